package scheduler

import "github.com/nabaztag-core/nabd/internal/protocol"

// event names the cause of a state transition, used only to drive
// nextState, the pure table of spec §4.4's diagram. The scheduler actor
// calls nextState at each point the diagram draws an arrow; it never
// mutates state.State directly outside of it, except for the
// recording/exit-recording pair, which restores an arbitrary prior state
// the table has no slot for.
type event int

const (
	evItemStart event = iota
	evItemComplete
	evInteractiveGranted
	evInteractiveReleased
	evSleepAck
	evWakeup
	evEnterRecording
)

// nextState implements every arrow of spec §4.4's diagram. queueEmpty only
// matters for the two events whose target depends on whether work remains.
func nextState(current protocol.State, ev event, queueEmpty bool) protocol.State {
	switch ev {
	case evItemStart:
		if current == protocol.StateIdle {
			return protocol.StatePlaying
		}
		return current
	case evItemComplete:
		if current != protocol.StatePlaying {
			return current
		}
		if queueEmpty {
			return protocol.StateIdle
		}
		return protocol.StatePlaying
	case evInteractiveGranted:
		return protocol.StateInteractive
	case evInteractiveReleased:
		if current != protocol.StateInteractive {
			return current
		}
		if queueEmpty {
			return protocol.StateIdle
		}
		return protocol.StatePlaying
	case evSleepAck:
		return protocol.StateAsleep
	case evWakeup:
		if current == protocol.StateAsleep {
			return protocol.StateIdle
		}
		return current
	case evEnterRecording:
		return protocol.StateRecording
	default:
		return current
	}
}
