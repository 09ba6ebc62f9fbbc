// Package tts synthesizes arbitrary text into audio the rabbit can play
// through its speaker, for modules/tts/adapter.go's actuator.TTSSpeaker.
package tts

import (
	"context"

	"github.com/nabaztag-core/nabd/modules/audio"
)

// Request is one utterance to synthesize.
type Request struct {
	Text   string
	Voice  string
	Rate   int
	Pitch  float32
	Engine string
}

// Engine turns a Request into playable audio; the rabbit selects one at
// startup based on configuration.
type Engine interface {
	Name() string
	Synthesize(ctx context.Context, req Request) (audio.Buffer, error)
}
