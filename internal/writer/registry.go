// Package writer tracks connected TCP clients ("writers", spec §3), their
// event subscriptions, and which one (if any) currently owns the
// interactive slot (spec §4.2).
package writer

import (
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/nabaztag-core/nabd/internal/bqueue"
)

// ID identifies a connected writer for the lifetime of its connection.
type ID = uuid.UUID

// Writer is a connected client: a stable id, a bounded outbound frame
// queue, and a set of subscribed event-name patterns.
type Writer struct {
	ID   ID
	Send *bqueue.Queue[[]byte]

	// Overflowed, if set, is called at most once when Send is full rather
	// than closed (spec §4.1: a slow client is disconnected, never
	// blocked). The front-end wires this to tearing down the connection.
	Overflowed func()

	mu            sync.RWMutex
	subscriptions []string
	interactive   bool
}

func New(id ID, send *bqueue.Queue[[]byte]) *Writer {
	return &Writer{ID: id, Send: send}
}

// SetSubscriptions replaces a writer's subscribed event-name patterns
// (sent via a `mode` packet's `events` field, spec §4.1/§4.2).
func (w *Writer) SetSubscriptions(patterns []string) {
	w.mu.Lock()
	w.subscriptions = append([]string(nil), patterns...)
	w.mu.Unlock()
}

func (w *Writer) Subscriptions() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]string(nil), w.subscriptions...)
}

// Subscribed reports whether event matches one of w's subscription
// patterns (spec §4.2: exact match, trailing `*` prefix match, or
// `/*`-suffixed "any child" match). A writer with no subscriptions
// receives no events.
func (w *Writer) Subscribed(event string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, pattern := range w.subscriptions {
		if PatternMatches(pattern, event) {
			return true
		}
	}
	return false
}

// PatternMatches implements the single matching rule shared by every
// subscription pattern: exact equality, a trailing `*` prefix match, or a
// `/*` suffix meaning "any child of this prefix" (spec §4.2).
func PatternMatches(pattern, event string) bool {
	if pattern == event {
		return true
	}
	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "/*")
		return event == prefix || strings.HasPrefix(event, prefix+"/")
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(event, strings.TrimSuffix(pattern, "*"))
	}
	return false
}

func (w *Writer) setInteractive(v bool) {
	w.mu.Lock()
	w.interactive = v
	w.mu.Unlock()
}

func (w *Writer) IsInteractiveOwner() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.interactive
}

// Registry tracks every currently connected Writer and who (if anyone)
// owns the interactive slot.
type Registry struct {
	mu      sync.RWMutex
	writers map[ID]*Writer
	owner   *ID
}

func NewRegistry() *Registry {
	return &Registry{writers: make(map[ID]*Writer)}
}

func (r *Registry) Add(w *Writer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writers[w.ID] = w
}

// Remove drops a writer and, if it owned the interactive slot, releases
// ownership (spec §3: writer destruction releases the interactive owner
// back to none).
func (r *Registry) Remove(id ID) (wasOwner bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.writers, id)
	if r.owner != nil && *r.owner == id {
		r.owner = nil
		return true
	}
	return false
}

func (r *Registry) Get(id ID) (*Writer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.writers[id]
	return w, ok
}

// GrantInteractive makes id the interactive owner. Callers are expected to
// have already serialized this through the scheduler (spec §4.2: a
// ModeSwitch work item).
func (r *Registry) GrantInteractive(id ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.owner != nil {
		if prev, ok := r.writers[*r.owner]; ok {
			prev.setInteractive(false)
		}
	}
	r.owner = &id
	if w, ok := r.writers[id]; ok {
		w.setInteractive(true)
	}
}

// ReleaseInteractive clears the interactive slot, out-of-band (spec §4.2:
// "released immediately, no queueing").
func (r *Registry) ReleaseInteractive(id ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.owner != nil && *r.owner == id {
		r.owner = nil
	}
	if w, ok := r.writers[id]; ok {
		w.setInteractive(false)
	}
}

func (r *Registry) InteractiveOwner() (ID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.owner == nil {
		return ID{}, false
	}
	return *r.owner, true
}

// Broadcast sends payload to the state-universal listeners (every writer,
// unfiltered: spec §4.4 says state transitions go to all writers
// regardless of subscription).
func (r *Registry) Broadcast(payload []byte) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, w := range r.writers {
		trySend(w, payload)
	}
}

// Publish sends payload to every writer subscribed to event (spec §4.2,
// §4.7).
func (r *Registry) Publish(event string, payload []byte) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, w := range r.writers {
		if w.Subscribed(event) {
			trySend(w, payload)
		}
	}
}

// SendTo delivers payload to exactly one writer (a response to its own
// request), dropping it silently if the writer has disconnected.
func (r *Registry) SendTo(id ID, payload []byte) {
	r.mu.RLock()
	w, ok := r.writers[id]
	r.mu.RUnlock()
	if ok {
		trySend(w, payload)
	}
}

func (r *Registry) List() []ID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]ID, 0, len(r.writers))
	for id := range r.writers {
		ids = append(ids, id)
	}
	return ids
}

// trySend is a non-blocking enqueue (spec §4.1: bounded queue, never
// block). A full (not already closed) queue means the writer isn't
// draining fast enough; its connection is torn down via Overflowed.
func trySend(w *Writer, payload []byte) {
	if w.Send.Enqueue(payload) {
		return
	}
	if w.Send.Closed() {
		return
	}
	if w.Overflowed != nil {
		w.Overflowed()
	}
}
