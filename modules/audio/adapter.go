package audio

import (
	"context"

	"github.com/nabaztag-core/nabd/internal/actuator"
)

// SourceAdapter narrows a Capture's Frame stream to the raw-bytes shape
// actuator.AudioSource exposes to capability-set consumers that don't
// need Format/Timestamp (direct mic passthrough, rather than the
// transcript pipeline stt.Source builds on top of Capture directly).
type SourceAdapter struct {
	Capture Capture
}

func NewSourceAdapter(capture Capture) *SourceAdapter {
	return &SourceAdapter{Capture: capture}
}

func (a *SourceAdapter) Name() string {
	if a.Capture == nil {
		return "none"
	}
	return a.Capture.Name()
}

func (a *SourceAdapter) Start(ctx context.Context) (<-chan []byte, error) {
	frames, err := a.Capture.Start(ctx)
	if err != nil {
		return nil, err
	}
	out := make(chan []byte, 8)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case f, ok := <-frames:
				if !ok {
					return
				}
				select {
				case out <- f.Data:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (a *SourceAdapter) Close() error {
	if a.Capture == nil {
		return nil
	}
	return a.Capture.Close()
}

var _ actuator.AudioSource = (*SourceAdapter)(nil)
