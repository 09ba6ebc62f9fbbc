// Package stt turns the rabbit's captured microphone audio into text,
// for the sensor dispatcher's ASR event and whatever sensorpolicy rule
// classifies it into an intent.
package stt

import (
	"context"
	"time"

	"github.com/nabaztag-core/nabd/modules/audio"
)

// Transcript is one recognized utterance; only Final transcripts reach
// the rabbit's sensor dispatcher (modules/stt/adapter.go).
type Transcript struct {
	Text       string
	Final      bool
	Confidence float32
	Timestamp  time.Time
	Source     string
}

type Options struct {
	Language string
	Prompt   string
	Model    string
}

// Engine recognizes speech from a capture stream; the rabbit can run
// either the line-based dev stand-in (LineEngine) or an external process
// (BrabbleEngine).
type Engine interface {
	Name() string
	Transcribe(ctx context.Context, in <-chan audio.Frame, opts Options) (<-chan Transcript, error)
}
