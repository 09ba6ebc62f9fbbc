package scheduler

import (
	"time"

	"github.com/nabaztag-core/nabd/internal/protocol"
	"github.com/nabaztag-core/nabd/internal/writer"
)

// Kind discriminates the WorkItem tagged variant of spec §3.
type Kind int

const (
	KindCommand Kind = iota
	KindMessage
	KindSleep
	KindWakeup // implied by spec §4.3/§8 S5; see DESIGN.md
	KindModeSwitch
	KindTest
	KindRfidWrite
	KindConfigUpdate
	KindShutdown
)

func (k Kind) String() string {
	switch k {
	case KindCommand:
		return "command"
	case KindMessage:
		return "message"
	case KindSleep:
		return "sleep"
	case KindWakeup:
		return "wakeup"
	case KindModeSwitch:
		return "mode_switch"
	case KindTest:
		return "test"
	case KindRfidWrite:
		return "rfid_write"
	case KindConfigUpdate:
		return "config_update"
	case KindShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// RfidWriteParams holds the fields of an rfid_write packet that are only
// meaningful once the item executes.
type RfidWriteParams struct {
	Tech    string
	UID     string
	Picture string
	App     string
	Data    string
	Timeout time.Duration
}

// WorkItem is the scheduler's queue element: a flat tagged-union struct
// rather than an interface, matching spec §9's "tagged variant (sum type)
// over packet kinds" guidance while keeping the data, not behavior,
// nature of a queue entry.
type WorkItem struct {
	Kind      Kind
	Origin    writer.ID
	RequestID string

	// Command / Message
	Sequence   []protocol.CommandItem
	Signature  *protocol.CommandItem
	Cancelable bool
	Expiration time.Time
	HasExp     bool

	// ModeSwitch
	TargetMode protocol.ModeValue

	// Test
	TestTarget protocol.TestTarget

	// RfidWrite
	Rfid RfidWriteParams

	// ConfigUpdate
	ConfigService string
	ConfigSlot    string

	// Shutdown
	ShutdownMode protocol.ShutdownMode
}

// blocksSleep reports whether an item of this kind prevents a Sleep ahead
// of it in the queue from transitioning the daemon to asleep (spec §3 I4,
// §4.3 step 4). Sleep, Test, Wakeup and Shutdown are the only kinds spec
// §3 I3 allows to coexist with a pending Sleep while asleep; everything
// else blocks.
func (k Kind) blocksSleep() bool {
	switch k {
	case KindSleep, KindTest, KindWakeup, KindShutdown:
		return false
	default:
		return true
	}
}

// allowedWhileAsleep reports whether spec §3 I3 permits this kind to be
// submitted while the daemon is asleep.
func (k Kind) allowedWhileAsleep() bool {
	switch k {
	case KindSleep, KindTest, KindWakeup, KindShutdown:
		return true
	default:
		return false
	}
}

// commandSequence expands a Command or Message work item into the ordered
// list of CommandItems the choreography engine plays, applying the
// signature/body/signature bracketing of spec §4.5 for Message.
func (w WorkItem) commandSequence() []protocol.CommandItem {
	switch w.Kind {
	case KindCommand:
		return w.Sequence
	case KindMessage:
		if w.Signature == nil {
			return w.Sequence
		}
		out := make([]protocol.CommandItem, 0, len(w.Sequence)+2)
		out = append(out, *w.Signature)
		out = append(out, w.Sequence...)
		out = append(out, *w.Signature)
		return out
	default:
		return nil
	}
}
