package wakeword

import (
	"context"
	"time"

	"github.com/nabaztag-core/nabd/internal/actuator"
	"github.com/nabaztag-core/nabd/modules/audio"
)

// Source implements actuator.WakeDetector by running a Capture stream
// through a Detector and reporting each hit's timestamp.
type Source struct {
	Capture  audio.Capture
	Detector Detector
}

func NewSource(capture audio.Capture, detector Detector) *Source {
	return &Source{Capture: capture, Detector: detector}
}

var _ actuator.WakeDetector = (*Source)(nil)

func (s *Source) Detections(ctx context.Context) (<-chan time.Time, error) {
	if s.Capture == nil || s.Detector == nil {
		ch := make(chan time.Time)
		close(ch)
		return ch, nil
	}
	frames, err := s.Capture.Start(ctx)
	if err != nil {
		return nil, err
	}
	events, err := s.Detector.Detect(ctx, frames)
	if err != nil {
		return nil, err
	}
	out := make(chan time.Time, 4)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				select {
				case out <- ev.Timestamp:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
