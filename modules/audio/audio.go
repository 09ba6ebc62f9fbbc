// Package audio holds the raw PCM/line-oriented plumbing shared by the
// rabbit's microphone input (ASR/wake-word capture) and its single
// speaker output (TTS/choreography playback). It only moves bytes; the
// rabbit's actual audio output is arbitrated by actuator.AudioSink.
package audio

import (
	"context"
	"time"
)

type Format struct {
	SampleRate int
	Channels   int
	Encoding   string
}

// Frame is one chunk of captured microphone audio (or scripted text
// standing in for it in dev/test capture sources).
type Frame struct {
	Data      []byte
	Format    Format
	Timestamp time.Time
}

// Buffer holds a complete synthesized or preloaded clip ready to enqueue
// on the rabbit's speaker.
type Buffer struct {
	Data   []byte
	Format Format
}

// Capture is the rabbit's microphone input: a real recorder, or a
// scripted stand-in for the virtual backend and local testing.
type Capture interface {
	Name() string
	Start(ctx context.Context) (<-chan Frame, error)
	Close() error
}

// Playback drains a frame stream to the rabbit's speaker.
type Playback interface {
	Name() string
	Play(ctx context.Context, in <-chan Frame) error
	Close() error
}
