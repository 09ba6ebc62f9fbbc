package scheduler_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/nabaztag-core/nabd/internal/actuator"
	"github.com/nabaztag-core/nabd/internal/choreo"
	"github.com/nabaztag-core/nabd/internal/choreotime"
	"github.com/nabaztag-core/nabd/internal/protocol"
	"github.com/nabaztag-core/nabd/internal/scheduler"
	"github.com/nabaztag-core/nabd/internal/writer"
)

type fakeHooks struct {
	mu        sync.Mutex
	responses []protocol.ResponsePacket
	states    []protocol.State
}

func (f *fakeHooks) Respond(origin writer.ID, resp protocol.ResponsePacket) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, resp)
}

func (f *fakeHooks) BroadcastState(state protocol.State) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states = append(f.states, state)
}

func (f *fakeHooks) GrantInteractive(writer.ID)   {}
func (f *fakeHooks) ReleaseInteractive(writer.ID) {}
func (f *fakeHooks) Shutdown(protocol.ShutdownMode) {}

func (f *fakeHooks) waitForResponse(t *testing.T, requestID string) protocol.ResponsePacket {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		f.mu.Lock()
		for _, r := range f.responses {
			if r.RequestID == requestID {
				f.mu.Unlock()
				return r
			}
		}
		f.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("no response for request %q", requestID)
	return protocol.ResponsePacket{}
}

func newTestScheduler(t *testing.T) (*scheduler.Scheduler, *fakeHooks, context.CancelFunc) {
	t.Helper()
	hooks := &fakeHooks{}
	engine := choreo.New(choreotime.Real{})
	sched := scheduler.New(&actuator.Set{}, engine, nil, hooks, choreotime.Real{}, nil, nil, 16, "en")
	ctx, cancel := context.WithCancel(context.Background())
	go sched.Start(ctx)
	return sched, hooks, cancel
}

func TestSubmitEmptyCommandCompletesOK(t *testing.T) {
	sched, hooks, cancel := newTestScheduler(t)
	defer cancel()

	origin := uuid.New()
	sched.Submit(scheduler.WorkItem{
		Kind:      scheduler.KindCommand,
		Origin:    origin,
		RequestID: "r1",
		Sequence:  []protocol.CommandItem{{}},
	})

	resp := hooks.waitForResponse(t, "r1")
	if resp.Status != protocol.StatusOK {
		t.Fatalf("expected ok, got %v (%v/%v)", resp.Status, resp.Class, resp.Message)
	}
}

func TestSubmitWhileAsleepRejectsCommand(t *testing.T) {
	sched, hooks, cancel := newTestScheduler(t)
	defer cancel()

	origin := uuid.New()
	sched.Submit(scheduler.WorkItem{Kind: scheduler.KindSleep, Origin: origin, RequestID: "sleep1"})
	hooks.waitForResponse(t, "sleep1")

	sched.Submit(scheduler.WorkItem{
		Kind:      scheduler.KindCommand,
		Origin:    origin,
		RequestID: "blocked",
		Sequence:  []protocol.CommandItem{{}},
	})
	resp := hooks.waitForResponse(t, "blocked")
	if resp.Status != protocol.StatusError || resp.Class != protocol.ClassStateError {
		t.Fatalf("expected asleep rejection, got %v/%v", resp.Status, resp.Class)
	}
}

func TestSubmitWakeupWhileAsleepIsAllowed(t *testing.T) {
	sched, hooks, cancel := newTestScheduler(t)
	defer cancel()

	origin := uuid.New()
	sched.Submit(scheduler.WorkItem{Kind: scheduler.KindSleep, Origin: origin, RequestID: "sleep1"})
	hooks.waitForResponse(t, "sleep1")
	if got := sched.CurrentState(); got != protocol.StateAsleep {
		t.Fatalf("expected asleep, got %v", got)
	}

	sched.Submit(scheduler.WorkItem{Kind: scheduler.KindWakeup, Origin: origin, RequestID: "wake1"})
	hooks.waitForResponse(t, "wake1")
	if got := sched.CurrentState(); got != protocol.StateIdle {
		t.Fatalf("expected idle after wakeup, got %v", got)
	}
}

func TestQueueFullRejectsWithQueueOverflow(t *testing.T) {
	hooks := &fakeHooks{}
	engine := choreo.New(choreotime.Real{})
	// A one-item queue depth combined with an item that never completes
	// (blocked by a sleep that never drains because the depth is already
	// at capacity) isn't needed here: submitting straight past the depth
	// is enough since nothing drains the mailbox faster than Submit posts.
	sched := scheduler.New(&actuator.Set{}, engine, nil, hooks, choreotime.Real{}, nil, nil, 1, "en")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sched.Start(ctx)

	origin := uuid.New()
	// Start a "hold" command, then submit two more commands in a row: the
	// first of them fills the one queue slot, so the FIFO is still
	// non-empty when the next Submit checks maxQueue.
	for i := 0; i < 1; i++ {
		sched.Submit(scheduler.WorkItem{Kind: scheduler.KindCommand, Origin: origin, RequestID: "hold", Sequence: []protocol.CommandItem{{}}})
	}
	sched.Submit(scheduler.WorkItem{Kind: scheduler.KindCommand, Origin: origin, RequestID: "overflow1", Sequence: []protocol.CommandItem{{}}})
	sched.Submit(scheduler.WorkItem{Kind: scheduler.KindCommand, Origin: origin, RequestID: "overflow2", Sequence: []protocol.CommandItem{{}}})

	// one of the two trailing submits should have overflowed given a
	// depth-1 queue and an already-running head item.
	deadline := time.Now().Add(time.Second)
	found := false
	for time.Now().Before(deadline) {
		hooks.mu.Lock()
		for _, r := range hooks.responses {
			if r.Class == protocol.ClassQueueOverflow {
				found = true
			}
		}
		hooks.mu.Unlock()
		if found {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if !found {
		t.Fatalf("expected at least one queue-overflow response, got %+v", hooks.responses)
	}
}

func TestCancelUnknownRequestRespondsError(t *testing.T) {
	sched, hooks, cancel := newTestScheduler(t)
	defer cancel()

	origin := uuid.New()
	sched.Cancel(origin, "does-not-exist")
	resp := hooks.waitForResponse(t, "does-not-exist")
	if resp.Status != protocol.StatusError || resp.Class != protocol.ClassStateError {
		t.Fatalf("expected state error for unknown cancel target, got %v/%v", resp.Status, resp.Class)
	}
}
