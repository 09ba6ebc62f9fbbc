package tts

import (
	"context"
	"fmt"

	"github.com/nabaztag-core/nabd/internal/actuator"
)

// Speaker implements actuator.TTSSpeaker by synthesizing text through an
// Engine and playing the result through whatever AudioSink the rest of
// the capability set already uses, so speaking dynamic text plays the
// same way a resolved audio asset does.
type Speaker struct {
	Engine Engine
	Sink   actuator.AudioSink
	Voice  string
}

func NewSpeaker(engine Engine, sink actuator.AudioSink, voice string) *Speaker {
	return &Speaker{Engine: engine, Sink: sink, Voice: voice}
}

var _ actuator.TTSSpeaker = (*Speaker)(nil)

func (s *Speaker) Speak(ctx context.Context, locale, text string) error {
	if s.Engine == nil || s.Sink == nil {
		return nil
	}
	buf, err := s.Engine.Synthesize(ctx, Request{Text: text, Voice: s.Voice})
	if err != nil {
		return fmt.Errorf("tts synthesize: %w", err)
	}
	asset := ttsAsset{locale: locale, text: text, data: buf.Data}
	return s.Sink.Enqueue(ctx, asset)
}

// ttsAsset holds the raw PCM produced by Synthesize so a real AudioSink
// implementation can play it the same way it would a resolved file.
type ttsAsset struct {
	locale string
	text   string
	data   []byte
}

func (a ttsAsset) Name() string { return "tts:" + a.locale + ":" + a.text }

// Data exposes the synthesized bytes to AudioSink implementations that
// need them (the virtual backend only cares about Name for its queue
// depth display).
func (a ttsAsset) Bytes() []byte { return a.data }
