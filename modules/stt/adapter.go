package stt

import (
	"context"

	"github.com/nabaztag-core/nabd/internal/actuator"
	"github.com/nabaztag-core/nabd/modules/audio"
)

// Source implements actuator.ASRSource, turning a running Capture +
// Engine pair into the sensor dispatcher's event stream. Intent
// classification itself is left to internal/sensorpolicy; Source only
// reports the raw final transcript in Slots["text"].
type Source struct {
	Capture audio.Capture
	Engine  Engine
	Opts    Options
}

func NewSource(capture audio.Capture, engine Engine, opts Options) *Source {
	return &Source{Capture: capture, Engine: engine, Opts: opts}
}

var _ actuator.ASRSource = (*Source)(nil)

func (s *Source) Intents(ctx context.Context) (<-chan actuator.ASRResult, error) {
	if s.Capture == nil || s.Engine == nil {
		ch := make(chan actuator.ASRResult)
		close(ch)
		return ch, nil
	}
	frames, err := s.Capture.Start(ctx)
	if err != nil {
		return nil, err
	}
	transcripts, err := s.Engine.Transcribe(ctx, frames, s.Opts)
	if err != nil {
		return nil, err
	}
	out := make(chan actuator.ASRResult, 8)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case tr, ok := <-transcripts:
				if !ok {
					return
				}
				if !tr.Final {
					continue
				}
				res := actuator.ASRResult{Slots: map[string]string{"text": tr.Text}, At: tr.Timestamp}
				select {
				case out <- res:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
