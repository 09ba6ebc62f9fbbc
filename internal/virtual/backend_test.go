package virtual

import (
	"context"
	"testing"

	"github.com/nabaztag-core/nabd/internal/actuator"
)

func TestSetAndClearLEDs(t *testing.T) {
	b := New(nil)
	ctx := context.Background()

	white := actuator.Color("ffffff")
	var frame actuator.LEDFrame
	frame[0] = &white
	if err := b.Set(ctx, frame); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := b.Clear(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, c := range b.leds {
		if c != nil {
			t.Errorf("expected LED %d cleared, got %v", i, *c)
		}
	}
}

func TestMoveToClampsRange(t *testing.T) {
	b := New(nil)
	ctx := context.Background()

	if err := b.MoveTo(ctx, actuator.EarLeft, 100); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := b.Position(actuator.EarLeft); got != 17 {
		t.Errorf("expected clamp to 17, got %d", got)
	}

	if err := b.MoveTo(ctx, actuator.EarRight, -100); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := b.Position(actuator.EarRight); got != -17 {
		t.Errorf("expected clamp to -17, got %d", got)
	}
}

type fakeAsset struct{ name string }

func (a fakeAsset) Name() string { return a.name }

func TestAudioQueueEnqueueAndFlush(t *testing.T) {
	b := New(nil)
	ctx := context.Background()

	if err := b.Enqueue(ctx, fakeAsset{name: "clock/tick.wav"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(b.audioQueue) != 1 {
		t.Fatalf("expected one queued item, got %d", len(b.audioQueue))
	}

	if err := b.Flush(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(b.audioQueue) != 0 {
		t.Fatalf("expected queue flushed, got %d", len(b.audioQueue))
	}
}

func TestInjectButtonDeliversEvent(t *testing.T) {
	b := New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := b.Events(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b.InjectButton(actuator.ButtonClick)

	select {
	case ev := <-events:
		if ev.Kind != actuator.ButtonClick {
			t.Errorf("expected click, got %v", ev.Kind)
		}
	default:
		t.Fatalf("expected an injected button event to be available")
	}
}

func TestCapabilitiesWiresAllImplementedInterfaces(t *testing.T) {
	b := New(nil)
	caps := b.Capabilities()
	if caps.LEDs == nil || caps.Ears == nil || caps.EarPos == nil || caps.Audio == nil || caps.Button == nil {
		t.Fatalf("expected every backend-implemented capability wired, got %+v", caps)
	}
}
