package scheduler

import (
	"testing"

	"github.com/nabaztag-core/nabd/internal/protocol"
)

func TestNextStateItemStartOnlyLeavesIdle(t *testing.T) {
	if got := nextState(protocol.StateIdle, evItemStart, true); got != protocol.StatePlaying {
		t.Errorf("idle + itemStart = %v, want playing", got)
	}
	if got := nextState(protocol.StateInteractive, evItemStart, true); got != protocol.StateInteractive {
		t.Errorf("itemStart should not move a non-idle state, got %v", got)
	}
}

func TestNextStateItemCompleteDependsOnQueue(t *testing.T) {
	if got := nextState(protocol.StatePlaying, evItemComplete, true); got != protocol.StateIdle {
		t.Errorf("playing + complete + emptyQueue = %v, want idle", got)
	}
	if got := nextState(protocol.StatePlaying, evItemComplete, false); got != protocol.StatePlaying {
		t.Errorf("playing + complete + nonEmptyQueue = %v, want playing", got)
	}
	if got := nextState(protocol.StateIdle, evItemComplete, true); got != protocol.StateIdle {
		t.Errorf("itemComplete should be a no-op outside playing, got %v", got)
	}
}

func TestNextStateInteractiveGrantAlwaysWins(t *testing.T) {
	for _, from := range []protocol.State{protocol.StateIdle, protocol.StatePlaying, protocol.StateRecording} {
		if got := nextState(from, evInteractiveGranted, true); got != protocol.StateInteractive {
			t.Errorf("%v + interactiveGranted = %v, want interactive", from, got)
		}
	}
}

func TestNextStateInteractiveReleaseFallsBackByQueue(t *testing.T) {
	if got := nextState(protocol.StateInteractive, evInteractiveReleased, true); got != protocol.StateIdle {
		t.Errorf("got %v, want idle", got)
	}
	if got := nextState(protocol.StateInteractive, evInteractiveReleased, false); got != protocol.StatePlaying {
		t.Errorf("got %v, want playing", got)
	}
}

func TestNextStateSleepAndWakeup(t *testing.T) {
	if got := nextState(protocol.StatePlaying, evSleepAck, true); got != protocol.StateAsleep {
		t.Errorf("sleepAck should always move to asleep, got %v", got)
	}
	if got := nextState(protocol.StateAsleep, evWakeup, true); got != protocol.StateIdle {
		t.Errorf("wakeup from asleep should go to idle, got %v", got)
	}
	if got := nextState(protocol.StateIdle, evWakeup, true); got != protocol.StateIdle {
		t.Errorf("wakeup outside asleep should be a no-op, got %v", got)
	}
}

func TestNextStateEnterRecording(t *testing.T) {
	if got := nextState(protocol.StateInteractive, evEnterRecording, true); got != protocol.StateRecording {
		t.Errorf("got %v, want recording", got)
	}
}
