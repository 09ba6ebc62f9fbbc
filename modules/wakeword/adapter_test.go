package wakeword

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

type fakeDetector struct {
	events chan Event
}

func (f *fakeDetector) Name() string { return "fake" }

func (f *fakeDetector) Detect(ctx context.Context, in <-chan audio.Frame) (<-chan Event, error) {
	return f.events, nil
}

func TestSourceForwardsDetectionTimestamps(t *testing.T) {
	capture := &fakeCapture{frames: make(chan audio.Frame, 1)}
	detector := &fakeDetector{events: make(chan Event, 1)}
	s := NewSource(capture, detector)

	out, err := s.Detections(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	now := time.Now()
	detector.events <- Event{Keyword: "hey nabaztag", Timestamp: now}

	select {
	case ts := <-out:
		if !ts.Equal(now) {
			t.Errorf("expected forwarded timestamp %v, got %v", now, ts)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for detection")
	}
}

func TestSourceWithNoDetectorReturnsClosedChannel(t *testing.T) {
	s := NewSource(nil, nil)
	out, err := s.Detections(context.Background())
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
