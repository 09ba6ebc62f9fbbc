// Package resource implements the resource resolution contract of spec
// §6.3: relative ResourceRef strings, semicolon-separated fallbacks,
// `*`-prefixed wildcard directory picks, locale-first app-scoped lookup,
// and in-memory preload into an opaque actuator.Asset handle.
package resource

import (
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"github.com/nabaztag-core/nabd/internal/actuator"
	"github.com/nabaztag-core/nabd/internal/protocol"
)

// Asset is the in-memory preloaded result of resolving one fallback entry.
type Asset struct {
	path string
	data []byte
}

func (a *Asset) Name() string { return a.path }

// Data returns the preloaded bytes; AudioSink implementations interpret
// them according to their own codec.
func (a *Asset) Data() []byte { return a.data }

var _ actuator.Asset = (*Asset)(nil)

// Resolver maps a ResourceRef string to preloaded assets. The `;`-separated
// fallbacks are tried in order and only the first one that resolves is
// returned, so a successful Resolve yields exactly one asset; later
// fallbacks are not loaded.
type Resolver interface {
	Resolve(ref string, kind string, locale string) ([]*Asset, error)
}

// FSResolver resolves against a set of installed app roots on disk, the
// default production implementation of Resolver.
type FSResolver struct {
	// Roots lists installed app asset bundle directories, each containing
	// `<app>/<type>/<locale>/<filename>` and `<app>/<type>/<filename>` trees.
	Roots []string
	// Rand drives `*`-wildcard random choice; defaults to a package-level
	// source if nil. Tests and the virtual backend inject a seeded source
	// for determinism (spec §6.4).
	Rand *rand.Rand
}

func NewFSResolver(roots []string, seed int64) *FSResolver {
	return &FSResolver{Roots: roots, Rand: rand.New(rand.NewSource(seed))}
}

func (r *FSResolver) Resolve(ref string, kind string, locale string) ([]*Asset, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("%w: empty resource reference", protocol.ErrInvalidResource)
	}
	var assets []*Asset
	for _, fallback := range strings.Split(ref, ";") {
		fallback = strings.TrimSpace(fallback)
		if fallback == "" {
			continue
		}
		asset, err := r.resolveOne(fallback, kind, locale)
		if err != nil {
			continue // try the next fallback
		}
		assets = append(assets, asset)
		return assets, nil // spec §6.3: "return the first match"
	}
	return nil, fmt.Errorf("%w: no fallback matched %q", protocol.ErrInvalidResource, ref)
}

func (r *FSResolver) resolveOne(fallback, kind, locale string) (*Asset, error) {
	if filepath.IsAbs(fallback) {
		return nil, fmt.Errorf("%w: absolute path %q rejected", protocol.ErrInvalidResource, fallback)
	}
	if strings.HasPrefix(fallback, "*") {
		return r.resolveWildcard(strings.TrimPrefix(fallback, "*"), kind)
	}
	return r.probe(fallback, kind, locale)
}

// resolveWildcard expands the remaining `<app>/<pattern>` path as a glob
// `<root>/<app>/<type>/<pattern>` across every installed app root and
// chooses one match uniformly at random.
func (r *FSResolver) resolveWildcard(pattern string, kind string) (*Asset, error) {
	pattern = strings.TrimPrefix(pattern, "/")
	app, name, ok := splitAppPath(pattern)
	if !ok {
		return nil, fmt.Errorf("%w: malformed wildcard %q", protocol.ErrInvalidResource, pattern)
	}
	var matches []string
	for _, root := range r.Roots {
		globPath := filepath.Join(root, app, kind, name)
		found, err := filepath.Glob(globPath)
		if err != nil {
			continue
		}
		matches = append(matches, found...)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: wildcard %q matched nothing", protocol.ErrInvalidResource, pattern)
	}
	pick := matches[0]
	if len(matches) > 1 {
		pick = matches[r.randIntn(len(matches))]
	}
	return r.load(pick)
}

func (r *FSResolver) randIntn(n int) int {
	if r.Rand != nil {
		return r.Rand.Intn(n)
	}
	return rand.Intn(n)
}

// probe tries `<app>/<type>/<locale>/<filename>` then `<app>/<type>/<filename>`
// across every installed app root (spec §6.3 step 3). `fallback` is
// `<app>/<filename>` relative to the app's asset tree.
func (r *FSResolver) probe(fallback, kind, locale string) (*Asset, error) {
	app, name, ok := splitAppPath(fallback)
	if !ok {
		return nil, fmt.Errorf("%w: malformed resource %q", protocol.ErrInvalidResource, fallback)
	}
	for _, root := range r.Roots {
		if locale != "" {
			if a, err := r.load(filepath.Join(root, app, kind, locale, name)); err == nil {
				return a, nil
			}
		}
		if a, err := r.load(filepath.Join(root, app, kind, name)); err == nil {
			return a, nil
		}
	}
	return nil, fmt.Errorf("%w: %q not found under any app root", protocol.ErrInvalidResource, fallback)
}

func splitAppPath(ref string) (app, rest string, ok bool) {
	parts := strings.SplitN(ref, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

func (r *FSResolver) load(path string) (*Asset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		return nil, err
	}
	return &Asset{path: path, data: data}, nil
}
