// Package defaultpolicy is the stock sensorpolicy.Policy: a small table of
// normalized keyword matches, falling back to an "unknown" intent so every
// transcript still produces a broadcastable asr event.
package defaultpolicy

import (
	"context"
	"strings"
	"unicode"

	"github.com/nabaztag-core/nabd/internal/sensorpolicy"
)

func init() {
	sensorpolicy.Register("default", New)
}

// Rule matches when every entry in Contains appears in the normalized
// text; the first matching Rule wins.
type Rule struct {
	Intent   string
	Contains []string
}

// DefaultRules covers the handful of intents a stock rabbit understands
// out of the box; a config file can supply a different rule set through
// Config.Options in a future revision without changing this package's
// shape.
var DefaultRules = []Rule{
	{Intent: "weather", Contains: []string{"weather"}},
	{Intent: "time", Contains: []string{"time"}},
	{Intent: "sleep", Contains: []string{"sleep"}},
	{Intent: "wake", Contains: []string{"wake"}},
}

type Policy struct {
	rules []Rule
}

func New(cfg sensorpolicy.Config) (sensorpolicy.Policy, error) {
	return &Policy{rules: DefaultRules}, nil
}

func (p *Policy) Classify(_ context.Context, text string) (sensorpolicy.Result, bool, error) {
	normalized := normalize(text)
	for _, rule := range p.rules {
		if containsAll(normalized, rule.Contains) {
			return sensorpolicy.Result{Intent: rule.Intent, Slots: map[string]string{"text": text}}, true, nil
		}
	}
	return sensorpolicy.Result{Intent: "unknown", Slots: map[string]string{"text": text}}, true, nil
}

func containsAll(normalized string, parts []string) bool {
	for _, part := range parts {
		if !strings.Contains(normalized, part) {
			return false
		}
	}
	return true
}

func normalize(text string) string {
	lowered := strings.ToLower(text)
	var b strings.Builder
	for _, r := range lowered {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			b.WriteRune(r)
			continue
		}
		b.WriteRune(' ')
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
