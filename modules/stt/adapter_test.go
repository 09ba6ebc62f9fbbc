package stt

import (
	"context"
	"testing"
	"time"

	"github.com/nabaztag-core/nabd/modules/audio"
)

type fakeCapture struct {
	frames chan audio.Frame
}

func (f *fakeCapture) Name() string { return "fake" }

func (f *fakeCapture) Start(ctx context.Context) (<-chan audio.Frame, error) {
	return f.frames, nil
}

func (f *fakeCapture) Close() error { return nil }

type fakeEngine struct {
	transcripts chan Transcript
}

func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) Transcribe(ctx context.Context, in <-chan audio.Frame, opts Options) (<-chan Transcript, error) {
	return f.transcripts, nil
}

func TestSourceOnlyEmitsFinalTranscripts(t *testing.T) {
	capture := &fakeCapture{frames: make(chan audio.Frame, 1)}
	engine := &fakeEngine{transcripts: make(chan Transcript, 2)}
	s := NewSource(capture, engine, Options{})

	out, err := s.Intents(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	engine.transcripts <- Transcript{Text: "partial", Final: false}
	engine.transcripts <- Transcript{Text: "hello nabaztag", Final: true, Timestamp: time.Now()}

	select {
	case res := <-out:
		if res.Slots["text"] != "hello nabaztag" {
			t.Errorf("expected final transcript text, got %+v", res)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for final transcript")
	}
}

func TestSourceWithNoCaptureReturnsClosedChannel(t *testing.T) {
	s := NewSource(nil, nil, Options{})
	out, err := s.Intents(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	select {
	case _, ok := <-out:
		if ok {
			t.Fatalf("expected a closed, empty channel")
		}
	case <-time.After(time.Second):
		t.Fatalf("expected channel to be immediately closed")
	}
}
