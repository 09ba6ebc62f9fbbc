// Package scheduler is the single-owner actor of spec §4.3/§4.4: one
// goroutine holds the pending work-item queue and the current DaemonState;
// every other goroutine talks to it by posting closures onto its mailbox,
// turning a single-consumer drain loop into a stateful reducer.
package scheduler

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nabaztag-core/nabd/internal/actuator"
	"github.com/nabaztag-core/nabd/internal/choreo"
	"github.com/nabaztag-core/nabd/internal/choreotime"
	"github.com/nabaztag-core/nabd/internal/protocol"
	"github.com/nabaztag-core/nabd/internal/resource"
	"github.com/nabaztag-core/nabd/internal/writer"
)

// Hooks is everything the scheduler needs from the outside world that
// isn't queue/state bookkeeping: delivering responses and broadcasts
// through the writer registry, and tearing the process down.
type Hooks interface {
	Respond(origin writer.ID, resp protocol.ResponsePacket)
	BroadcastState(state protocol.State)
	GrantInteractive(origin writer.ID)
	ReleaseInteractive(origin writer.ID)
	Shutdown(mode protocol.ShutdownMode)
}

// ConfigApplier re-reads the on-disk config on a config-update work item
// and reports the locale it found, if any (§2.2: "the same path a remote
// config-update packet takes").
type ConfigApplier interface {
	Apply(service, slot string) (locale string, err error)
}

type runningItem struct {
	item              WorkItem
	cancelFn          context.CancelFunc
	cancelCh          chan struct{}
	canceledRequested bool
}

type itemResult struct {
	item    WorkItem
	status  protocol.Status
	class   protocol.ErrorClass
	message string
	uid     string
}

// Scheduler owns the FIFO queue, the interactive-bypass queue, the
// DaemonState, and the idle animation rotation. Every field below this
// comment is touched only by the goroutine running Start.
type Scheduler struct {
	mailbox chan func(*Scheduler)
	runDone chan itemResult
	done    chan struct{}
	ctx     context.Context

	caps     *actuator.Set
	engine   *choreo.Engine
	resolver resource.Resolver
	hooks    Hooks
	clock    choreotime.Clock
	applier  ConfigApplier
	log      *zap.Logger

	maxQueue int
	locale   string

	queue            []WorkItem
	interactiveQueue []WorkItem
	state            protocol.State
	recordingFrom    protocol.State
	running          *runningItem

	interactiveOwner writer.ID
	hasOwner         bool

	idleAnimations map[string]protocol.IdleAnimation
	idleOrder      []string
	idleIdx        int
	idleFramePos   int
	idleDrawn      bool
	idleNext       time.Time
}

func New(caps *actuator.Set, engine *choreo.Engine, resolver resource.Resolver, hooks Hooks, clock choreotime.Clock, applier ConfigApplier, log *zap.Logger, maxQueueDepth int, defaultLocale string) *Scheduler {
	if maxQueueDepth <= 0 {
		maxQueueDepth = 256
	}
	if defaultLocale == "" {
		defaultLocale = "en"
	}
	if clock == nil {
		clock = choreotime.Real{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		mailbox:        make(chan func(*Scheduler), 256),
		runDone:        make(chan itemResult, 1),
		done:           make(chan struct{}),
		caps:           caps,
		engine:         engine,
		resolver:       resolver,
		hooks:          hooks,
		clock:          clock,
		applier:        applier,
		log:            log,
		maxQueue:       maxQueueDepth,
		locale:         defaultLocale,
		state:          protocol.StateIdle,
		idleAnimations: make(map[string]protocol.IdleAnimation),
	}
}

// Start runs the actor loop until ctx is canceled. Callers typically run it
// under an errgroup alongside the front-end listener and sensor dispatcher.
func (s *Scheduler) Start(ctx context.Context) error {
	s.ctx = ctx
	ticker := time.NewTicker(choreo.TickDuration)
	defer ticker.Stop()
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return nil
		case fn := <-s.mailbox:
			fn(s)
		case res := <-s.runDone:
			s.finishRunning(res)
		case <-ticker.C:
			s.idleTick()
		}
	}
}

func (s *Scheduler) post(fn func(*Scheduler)) {
	select {
	case s.mailbox <- fn:
	case <-s.done:
	}
}

// Submit enqueues a work item, applying the asleep-admission gate (I3) and
// the interactive-bypass routing (I2) before it ever touches the FIFO.
func (s *Scheduler) Submit(item WorkItem) {
	s.post(func(sc *Scheduler) { sc.doSubmit(item) })
}

func (s *Scheduler) doSubmit(item WorkItem) {
	if s.state == protocol.StateAsleep && !item.Kind.allowedWhileAsleep() {
		s.respondItem(item, protocol.StatusError, protocol.ClassStateError, "daemon is asleep", "")
		return
	}
	if (item.Kind == KindCommand || item.Kind == KindMessage) &&
		s.state == protocol.StateInteractive && s.hasOwner && s.interactiveOwner == item.Origin {
		s.interactiveQueue = append(s.interactiveQueue, item)
		s.pump()
		return
	}
	if len(s.queue) >= s.maxQueue {
		s.respondItem(item, protocol.StatusError, protocol.ClassQueueOverflow, "queue full", "")
		return
	}
	s.queue = append(s.queue, item)
	s.pump()
}

// Cancel handles a `cancel` packet sent by cancelOrigin referencing
// requestID. A canceled running or queued item's own deferred response
// resolves to status=canceled; a cancel that finds nothing to act on
// responds to the canceler itself with status=error (spec §8 property 4).
func (s *Scheduler) Cancel(cancelOrigin writer.ID, requestID string) {
	s.post(func(sc *Scheduler) { sc.doCancel(cancelOrigin, requestID) })
}

func (s *Scheduler) doCancel(cancelOrigin writer.ID, requestID string) {
	if s.running != nil && s.running.item.RequestID == requestID {
		if !s.running.item.Cancelable {
			s.respondTo(cancelOrigin, requestID, protocol.StatusError, protocol.ClassStateError, "item is not cancelable", "")
			return
		}
		if s.running.canceledRequested {
			s.respondTo(cancelOrigin, requestID, protocol.StatusError, protocol.ClassStateError, "cancel already requested", "")
			return
		}
		s.running.canceledRequested = true
		close(s.running.cancelCh)
		return
	}
	if idx := indexOfRequest(s.queue, requestID); idx >= 0 {
		item := s.queue[idx]
		s.queue = append(s.queue[:idx], s.queue[idx+1:]...)
		s.respondItem(item, protocol.StatusCanceled, "", "", "")
		return
	}
	if idx := indexOfRequest(s.interactiveQueue, requestID); idx >= 0 {
		item := s.interactiveQueue[idx]
		s.interactiveQueue = append(s.interactiveQueue[:idx], s.interactiveQueue[idx+1:]...)
		s.respondItem(item, protocol.StatusCanceled, "", "", "")
		return
	}
	s.respondTo(cancelOrigin, requestID, protocol.StatusError, protocol.ClassStateError, "no pending request with that id", "")
}

func indexOfRequest(items []WorkItem, requestID string) int {
	for i, it := range items {
		if it.RequestID == requestID {
			return i
		}
	}
	return -1
}

// ReleaseInteractive handles a `mode=idle` packet from the current owner:
// out-of-band, no queueing (spec §4.2).
func (s *Scheduler) ReleaseInteractive(origin writer.ID) {
	s.post(func(sc *Scheduler) { sc.doRelease(origin) })
}

func (s *Scheduler) doRelease(origin writer.ID) {
	if !s.hasOwner || s.interactiveOwner != origin {
		return
	}
	s.hooks.ReleaseInteractive(origin)
	s.hasOwner = false
	if len(s.interactiveQueue) > 0 {
		s.queue = append(append([]WorkItem(nil), s.interactiveQueue...), s.queue...)
		s.interactiveQueue = nil
	}
	s.setState(nextState(s.state, evInteractiveReleased, len(s.queue) == 0 && s.running == nil))
	s.pump()
}

// WriterDisconnected drops origin's queued items, cancels its running item
// if cancelable, and releases the interactive slot if origin held it (spec
// §3, Writer lifetime).
func (s *Scheduler) WriterDisconnected(origin writer.ID) {
	s.post(func(sc *Scheduler) {
		sc.queue = dropOrigin(sc.queue, origin)
		sc.interactiveQueue = dropOrigin(sc.interactiveQueue, origin)
		if sc.running != nil && sc.running.item.Origin == origin && sc.running.item.Cancelable && !sc.running.canceledRequested {
			sc.running.canceledRequested = true
			close(sc.running.cancelCh)
		}
		if sc.hasOwner && sc.interactiveOwner == origin {
			sc.doRelease(origin)
		}
	})
}

func dropOrigin(items []WorkItem, origin writer.ID) []WorkItem {
	out := items[:0]
	for _, it := range items {
		if it.Origin != origin {
			out = append(out, it)
		}
	}
	return out
}

// CancelRunningIfCancelable aborts whatever is currently running, if
// anything, and if it was submitted as cancelable (spec §4.2: a button
// click cancels the running cancelable item). It is a no-op otherwise.
func (s *Scheduler) CancelRunningIfCancelable() {
	s.post(func(sc *Scheduler) {
		if sc.running == nil || !sc.running.item.Cancelable || sc.running.canceledRequested {
			return
		}
		sc.running.canceledRequested = true
		close(sc.running.cancelCh)
	})
}

// EnterRecording/ExitRecording bracket the transient `recording` state
// entered while capturing audio inside a running item (spec §4.4).
func (s *Scheduler) EnterRecording() {
	s.post(func(sc *Scheduler) {
		if sc.state == protocol.StateRecording {
			return
		}
		sc.recordingFrom = sc.state
		sc.setState(nextState(sc.state, evEnterRecording, false))
	})
}

func (s *Scheduler) ExitRecording() {
	s.post(func(sc *Scheduler) {
		if sc.state != protocol.StateRecording {
			return
		}
		sc.state = sc.recordingFrom
		sc.hooks.BroadcastState(sc.state)
	})
}

func (s *Scheduler) RegisterIdleAnimation(id string, anim protocol.IdleAnimation) {
	s.post(func(sc *Scheduler) {
		if _, exists := sc.idleAnimations[id]; !exists {
			sc.idleOrder = append(sc.idleOrder, id)
		}
		sc.idleAnimations[id] = anim
	})
}

func (s *Scheduler) UnregisterIdleAnimation(id string) {
	s.post(func(sc *Scheduler) {
		delete(sc.idleAnimations, id)
		for i, v := range sc.idleOrder {
			if v == id {
				sc.idleOrder = append(sc.idleOrder[:i], sc.idleOrder[i+1:]...)
				break
			}
		}
		if sc.idleIdx >= len(sc.idleOrder) {
			sc.idleIdx = 0
		}
	})
}

// CurrentState is a synchronous query, mostly used by the `gestalt`
// handler and tests.
func (s *Scheduler) CurrentState() protocol.State {
	result := make(chan protocol.State, 1)
	s.post(func(sc *Scheduler) { result <- sc.state })
	select {
	case st := <-result:
		return st
	case <-s.done:
		return protocol.StateIdle
	}
}

// pump advances the queue: interactive-bypass first (I2), then expiration
// sweep (I5) and sleep rotation (I4) ahead of every dequeue, starting at
// most one item (I1).
func (s *Scheduler) pump() {
	if s.running != nil {
		return
	}
	if s.state == protocol.StateInteractive && len(s.interactiveQueue) > 0 {
		item := s.interactiveQueue[0]
		s.interactiveQueue = s.interactiveQueue[1:]
		s.startAsync(item)
		return
	}
	for {
		if len(s.queue) == 0 {
			return
		}
		head := s.queue[0]
		if s.sweepExpired(head) {
			continue
		}
		switch head.Kind {
		case KindSleep:
			if s.hasBlockerBehindHead() {
				s.queue = append(s.queue[1:], head)
				continue
			}
			s.queue = s.queue[1:]
			s.setState(nextState(s.state, evSleepAck, false))
			s.respondItem(head, protocol.StatusOK, "", "", "")
			continue
		case KindWakeup:
			s.queue = s.queue[1:]
			s.setState(nextState(s.state, evWakeup, false))
			s.respondItem(head, protocol.StatusOK, "", "", "")
			continue
		case KindModeSwitch:
			s.queue = s.queue[1:]
			s.doModeSwitch(head)
			continue
		case KindConfigUpdate:
			s.queue = s.queue[1:]
			s.doConfigUpdate(head)
			continue
		case KindShutdown:
			s.queue = s.queue[1:]
			s.doShutdown(head)
			continue
		default:
			s.queue = s.queue[1:]
			s.startAsync(head)
			return
		}
	}
}

func (s *Scheduler) sweepExpired(head WorkItem) bool {
	if (head.Kind != KindCommand && head.Kind != KindMessage) || !head.HasExp {
		return false
	}
	if head.Expiration.After(s.clock.Now()) {
		return false
	}
	s.queue = s.queue[1:]
	s.respondItem(head, protocol.StatusExpired, "", "", "")
	return true
}

// hasBlockerBehindHead reports whether any item queued after the head
// Sleep would still need hardware access (spec §3 I4).
func (s *Scheduler) hasBlockerBehindHead() bool {
	for _, it := range s.queue[1:] {
		if it.Kind.blocksSleep() {
			return true
		}
	}
	return false
}

func (s *Scheduler) doModeSwitch(item WorkItem) {
	if item.TargetMode != protocol.ModeInteractive {
		s.respondItem(item, protocol.StatusOK, "", "", "")
		return
	}
	s.hooks.GrantInteractive(item.Origin)
	s.interactiveOwner = item.Origin
	s.hasOwner = true
	s.setState(nextState(s.state, evInteractiveGranted, false))
	s.respondItem(item, protocol.StatusOK, "", "", "")
}

func (s *Scheduler) doConfigUpdate(item WorkItem) {
	if item.ConfigService == "nabd" && s.applier != nil {
		locale, err := s.applier.Apply(item.ConfigService, item.ConfigSlot)
		if err != nil {
			s.respondItem(item, protocol.StatusError, protocol.ClassOf(err), err.Error(), "")
			return
		}
		if locale != "" {
			s.locale = locale
		}
	}
	s.respondItem(item, protocol.StatusOK, "", "", "")
}

func (s *Scheduler) doShutdown(item WorkItem) {
	s.respondItem(item, protocol.StatusOK, "", "", "")
	s.hooks.Shutdown(item.ShutdownMode)
}

func (s *Scheduler) startAsync(item WorkItem) {
	s.setState(nextState(s.state, evItemStart, false))
	ctx, cancel := context.WithCancel(s.ctx)
	s.running = &runningItem{item: item, cancelFn: cancel, cancelCh: make(chan struct{})}
	go s.runAsync(ctx, item, s.running.cancelCh)
}

func (s *Scheduler) runAsync(ctx context.Context, item WorkItem, cancelCh chan struct{}) {
	var res itemResult
	switch item.Kind {
	case KindCommand, KindMessage:
		res = s.runCommandLike(ctx, item, cancelCh)
	case KindTest:
		res = s.runTest(ctx, item, cancelCh)
	case KindRfidWrite:
		res = s.runRfidWrite(ctx, item)
	default:
		res = itemResult{item: item, status: protocol.StatusError, class: protocol.ClassProtocolError, message: "unexpected async kind"}
	}
	select {
	case s.runDone <- res:
	case <-ctx.Done():
	}
}

func (s *Scheduler) finishRunning(res itemResult) {
	running := s.running
	if running == nil {
		return
	}
	running.cancelFn()
	s.running = nil
	status := res.status
	if running.canceledRequested {
		status = protocol.StatusCanceled
	}
	s.respondItem(res.item, status, res.class, res.message, res.uid)
	s.setState(nextState(s.state, evItemComplete, len(s.queue) == 0 && len(s.interactiveQueue) == 0))
	s.pump()
}

func canceledCh(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

type ttsRequest struct {
	locale string
	text   string
}

func parseTTSRef(ref string) (locale, text string, ok bool) {
	rest, found := strings.CutPrefix(ref, "tts:")
	if !found {
		return "", "", false
	}
	locale, text, found = strings.Cut(rest, ":")
	if !found {
		return "", "", false
	}
	return locale, text, true
}

func (s *Scheduler) buildEngineItem(ci protocol.CommandItem) (choreo.Item, []ttsRequest, error) {
	var audioAssets []actuator.Asset
	var tts []ttsRequest
	for _, ref := range ci.Audio {
		if locale, text, ok := parseTTSRef(ref); ok {
			if locale == "" {
				locale = s.locale
			}
			tts = append(tts, ttsRequest{locale: locale, text: text})
			continue
		}
		assets, err := s.resolver.Resolve(ref, "sounds", s.locale)
		if err != nil {
			return choreo.Item{}, nil, err
		}
		for _, a := range assets {
			audioAssets = append(audioAssets, a)
		}
	}

	var program *choreo.Program
	cueAssets := make(map[string]actuator.Asset)
	if ci.Choreography != "" {
		progAssets, err := s.resolver.Resolve(ci.Choreography, "choreographies", s.locale)
		if err != nil {
			return choreo.Item{}, nil, err
		}
		if len(progAssets) == 0 {
			return choreo.Item{}, nil, errors.New("choreography resolved to no asset")
		}
		p, err := choreo.ParseProgram(progAssets[0].Data())
		if err != nil {
			return choreo.Item{}, nil, err
		}
		program = &p
		for _, frame := range p.Frames {
			if frame.AudioCue == "" {
				continue
			}
			if _, ok := cueAssets[frame.AudioCue]; ok {
				continue
			}
			cueA, err := s.resolver.Resolve(frame.AudioCue, "sounds", s.locale)
			if err != nil || len(cueA) == 0 {
				continue
			}
			cueAssets[frame.AudioCue] = cueA[0]
		}
	}
	return choreo.Item{Audio: audioAssets, Program: program, CueAssets: cueAssets}, tts, nil
}

func (s *Scheduler) runCommandLike(ctx context.Context, item WorkItem, cancelCh chan struct{}) itemResult {
	for _, ci := range item.commandSequence() {
		if canceledCh(cancelCh) {
			return itemResult{item: item, status: protocol.StatusCanceled}
		}
		engItem, tts, err := s.buildEngineItem(ci)
		if err != nil {
			return itemResult{item: item, status: protocol.StatusError, class: protocol.ClassOf(err), message: err.Error()}
		}
		if err := s.engine.Run(ctx, s.caps, engItem, cancelCh); err != nil {
			if errors.Is(err, protocol.ErrHardwareError) {
				return itemResult{item: item, status: protocol.StatusFailure, class: protocol.ClassHardwareError, message: err.Error()}
			}
			return itemResult{item: item, status: protocol.StatusError, class: protocol.ClassOf(err), message: err.Error()}
		}
		for _, req := range tts {
			if canceledCh(cancelCh) {
				return itemResult{item: item, status: protocol.StatusCanceled}
			}
			if s.caps == nil || s.caps.TTS == nil {
				continue
			}
			if err := s.caps.TTS.Speak(ctx, req.locale, req.text); err != nil {
				return itemResult{item: item, status: protocol.StatusFailure, class: protocol.ClassHardwareError, message: err.Error()}
			}
		}
	}
	if canceledCh(cancelCh) {
		return itemResult{item: item, status: protocol.StatusCanceled}
	}
	return itemResult{item: item, status: protocol.StatusOK}
}

// runTest plays a short, direct diagnostic sequence without going through
// the choreography engine (spec §3: Test "runs immediately when asleep",
// the one async kind I3 allows there).
func (s *Scheduler) runTest(ctx context.Context, item WorkItem, cancelCh chan struct{}) itemResult {
	if s.caps == nil {
		return itemResult{item: item, status: protocol.StatusOK}
	}
	switch item.TestTarget {
	case protocol.TestLEDs:
		if s.caps.LEDs == nil {
			return itemResult{item: item, status: protocol.StatusOK}
		}
		white := actuator.Color("ffffff")
		for i := actuator.LEDIndex(0); i < actuator.LEDCount; i++ {
			if canceledCh(cancelCh) {
				_ = s.caps.LEDs.Clear(ctx)
				return itemResult{item: item, status: protocol.StatusCanceled}
			}
			var frame actuator.LEDFrame
			frame[i] = &white
			if err := s.caps.LEDs.Set(ctx, frame); err != nil {
				return itemResult{item: item, status: protocol.StatusFailure, class: protocol.ClassHardwareError, message: err.Error()}
			}
			if !s.clock.SleepUntil(s.clock.Now().Add(100*time.Millisecond), cancelCh) {
				break
			}
		}
		if err := s.caps.LEDs.Clear(ctx); err != nil {
			return itemResult{item: item, status: protocol.StatusFailure, class: protocol.ClassHardwareError, message: err.Error()}
		}
	case protocol.TestEars:
		if s.caps.Ears == nil {
			return itemResult{item: item, status: protocol.StatusOK}
		}
		for _, ear := range []actuator.Ear{actuator.EarLeft, actuator.EarRight} {
			if canceledCh(cancelCh) {
				return itemResult{item: item, status: protocol.StatusCanceled}
			}
			if err := s.caps.Ears.MoveTo(ctx, ear, 8); err != nil {
				return itemResult{item: item, status: protocol.StatusFailure, class: protocol.ClassHardwareError, message: err.Error()}
			}
			s.clock.SleepUntil(s.clock.Now().Add(300*time.Millisecond), cancelCh)
			if err := s.caps.Ears.MoveTo(ctx, ear, 0); err != nil {
				return itemResult{item: item, status: protocol.StatusFailure, class: protocol.ClassHardwareError, message: err.Error()}
			}
		}
	}
	if canceledCh(cancelCh) {
		return itemResult{item: item, status: protocol.StatusCanceled}
	}
	return itemResult{item: item, status: protocol.StatusOK}
}

func (s *Scheduler) runRfidWrite(ctx context.Context, item WorkItem) itemResult {
	if s.caps == nil || s.caps.RFID == nil {
		return itemResult{item: item, status: protocol.StatusFailure, class: protocol.ClassNFCException, message: "no rfid reader present"}
	}
	timeout := item.Rfid.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	wctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	err := s.caps.RFID.Write(wctx, item.Rfid.Tech, item.Rfid.UID, item.Rfid.Picture, item.Rfid.App, item.Rfid.Data)
	if err != nil {
		if errors.Is(wctx.Err(), context.DeadlineExceeded) {
			return itemResult{item: item, status: protocol.StatusTimeout}
		}
		if errors.Is(err, protocol.ErrNFCException) {
			return itemResult{item: item, status: protocol.StatusFailure, class: protocol.ClassNFCException, message: err.Error()}
		}
		return itemResult{item: item, status: protocol.StatusFailure, class: protocol.ClassHardwareError, message: err.Error()}
	}
	return itemResult{item: item, status: protocol.StatusOK, uid: item.Rfid.UID}
}

func (s *Scheduler) setState(new protocol.State) {
	if s.state == new {
		return
	}
	s.state = new
	s.hooks.BroadcastState(new)
}

func (s *Scheduler) respondItem(item WorkItem, status protocol.Status, class protocol.ErrorClass, message, uid string) {
	s.respondTo(item.Origin, item.RequestID, status, class, message, uid)
}

func (s *Scheduler) respondTo(origin writer.ID, requestID string, status protocol.Status, class protocol.ErrorClass, message, uid string) {
	s.hooks.Respond(origin, protocol.ResponsePacket{
		Type:      "response",
		RequestID: requestID,
		Status:    status,
		Class:     class,
		Message:   message,
		UID:       uid,
	})
}

// idleTick drives the idle animator (spec §4.6): active only while the
// queue is empty, nothing is running, and the daemon is idle.
func (s *Scheduler) idleTick() {
	if s.running != nil || len(s.queue) > 0 || s.state != protocol.StateIdle || len(s.idleOrder) == 0 {
		s.haltIdle()
		return
	}
	now := s.clock.Now()
	if !s.idleNext.IsZero() && now.Before(s.idleNext) {
		return
	}
	id := s.idleOrder[s.idleIdx]
	anim := s.idleAnimations[id]
	if len(anim.Colors) == 0 {
		s.advanceIdleAnimation()
		return
	}
	frame := anim.Colors[s.idleFramePos]
	var led actuator.LEDFrame
	if frame.Left != "" {
		c := actuator.Color(frame.Left)
		led[actuator.LEDLeft] = &c
	}
	if frame.Center != "" {
		c := actuator.Color(frame.Center)
		led[actuator.LEDCenter] = &c
	}
	if frame.Right != "" {
		c := actuator.Color(frame.Right)
		led[actuator.LEDRight] = &c
	}
	if s.caps != nil && s.caps.LEDs != nil {
		if err := s.caps.LEDs.Set(s.ctx, led); err != nil {
			s.log.Warn("idle animation led write failed", zap.Error(err))
		}
	}
	s.idleDrawn = true
	tempo := anim.Tempo
	if tempo <= 0 {
		tempo = 0.5
	}
	s.idleNext = now.Add(time.Duration(tempo * float64(time.Second)))
	s.idleFramePos++
	if s.idleFramePos >= len(anim.Colors) {
		s.idleFramePos = 0
		s.advanceIdleAnimation()
	}
}

func (s *Scheduler) haltIdle() {
	s.idleFramePos = 0
	s.idleNext = time.Time{}
	if !s.idleDrawn {
		return
	}
	s.idleDrawn = false
	if s.caps != nil && s.caps.LEDs != nil {
		if err := s.caps.LEDs.Clear(s.ctx); err != nil {
			s.log.Warn("idle animation clear failed", zap.Error(err))
		}
	}
}

func (s *Scheduler) advanceIdleAnimation() {
	if len(s.idleOrder) == 0 {
		return
	}
	s.idleIdx = (s.idleIdx + 1) % len(s.idleOrder)
}
