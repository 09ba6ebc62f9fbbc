// Package wakeword listens on the rabbit's microphone for its hot word
// and reports each hit to modules/wakeword/adapter.go, which implements
// actuator.WakeDetector for the sensor dispatcher.
package wakeword

import (
	"context"
	"time"

	"github.com/nabaztag-core/nabd/modules/audio"
)

// Event is one detected wake-word hit.
type Event struct {
	Keyword    string
	Confidence float32
	Timestamp  time.Time
}

// Detector scans a capture stream for the rabbit's wake word.
type Detector interface {
	Name() string
	Detect(ctx context.Context, in <-chan audio.Frame) (<-chan Event, error)
}
