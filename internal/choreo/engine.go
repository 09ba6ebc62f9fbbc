// Package choreo is the choreography execution engine of spec §4.5: it
// plays one CommandItem's audio list concatenated through the audio sink
// while driving an optional time-quantized LED/ear program in parallel, at
// a 10ms tick resolution, using absolute deadlines so it never accumulates
// rounding error.
package choreo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nabaztag-core/nabd/internal/actuator"
	"github.com/nabaztag-core/nabd/internal/choreotime"
	"github.com/nabaztag-core/nabd/internal/protocol"
)

// Engine runs one item at a time against a capability Set.
type Engine struct {
	Clock choreotime.Clock
}

func New(clock choreotime.Clock) *Engine {
	if clock == nil {
		clock = choreotime.Real{}
	}
	return &Engine{Clock: clock}
}

// Item is everything the engine needs to play one CommandItem: the
// (already resolved, fallback-expanded) audio sequence, an optional
// choreography program, and the assets its inline audio cues reference.
type Item struct {
	Audio      []actuator.Asset
	Program    *Program
	CueAssets  map[string]actuator.Asset
}

// Run executes item's three sub-timelines (LEDs, ears, audio) in parallel
// against caps and blocks until all three are drained, or until cancel
// fires. On cancel it stops all three: LEDs to black, ears halted, audio
// flushed (spec §4.5).
func (e *Engine) Run(ctx context.Context, caps *actuator.Set, item Item, cancel <-chan struct{}) error {
	start := e.Clock.Now()
	var wg sync.WaitGroup
	errs := make(chan error, 3)

	wg.Add(3)
	go func() {
		defer wg.Done()
		if err := e.runLEDs(ctx, caps, item.Program, start, cancel); err != nil {
			errs <- err
		}
	}()
	go func() {
		defer wg.Done()
		if err := e.runEars(ctx, caps, item.Program, start, cancel); err != nil {
			errs <- err
		}
	}()
	go func() {
		defer wg.Done()
		if err := e.runAudio(ctx, caps, item, start, cancel); err != nil {
			errs <- err
		}
	}()

	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func canceled(cancel <-chan struct{}) bool {
	select {
	case <-cancel:
		return true
	default:
		return false
	}
}

func (e *Engine) runLEDs(ctx context.Context, caps *actuator.Set, program *Program, start time.Time, cancel <-chan struct{}) error {
	if program == nil || len(program.Frames) == 0 || caps == nil || caps.LEDs == nil {
		return nil
	}
	var last actuator.LEDFrame
	deadline := start
	for _, frame := range program.Frames {
		deadline = deadline.Add(time.Duration(frame.Duration()) * TickDuration)
		if !e.Clock.SleepUntil(deadline, cancel) || canceled(cancel) {
			return caps.LEDs.Clear(ctx)
		}
		next := last
		changed := false
		for i, c := range frame.LEDs {
			if c == "" {
				continue
			}
			color := actuator.Color(c)
			next[i] = &color
			changed = true
		}
		if changed {
			if err := caps.LEDs.Set(ctx, next); err != nil {
				return fmt.Errorf("%w: led set: %v", protocol.ErrHardwareError, err)
			}
			last = next
		}
		if canceled(cancel) {
			return caps.LEDs.Clear(ctx)
		}
	}
	return nil
}

func (e *Engine) runEars(ctx context.Context, caps *actuator.Set, program *Program, start time.Time, cancel <-chan struct{}) error {
	if program == nil || len(program.Frames) == 0 || caps == nil || caps.Ears == nil {
		return nil
	}
	var pending [2]*int16
	deadline := start
	for _, frame := range program.Frames {
		deadline = deadline.Add(time.Duration(frame.Duration()) * TickDuration)
		if !e.Clock.SleepUntil(deadline, cancel) || canceled(cancel) {
			return e.haltEars(ctx, caps)
		}
		for _, target := range []struct {
			ear    actuator.Ear
			newPos *int16
		}{
			{actuator.EarLeft, frame.EarLeft},
			{actuator.EarRight, frame.EarRight},
		} {
			if target.newPos == nil {
				continue
			}
			if pending[target.ear] != nil {
				e.waitForArrival(ctx, caps, target.ear, *pending[target.ear], cancel)
			}
			if canceled(cancel) {
				return e.haltEars(ctx, caps)
			}
			if err := caps.Ears.MoveTo(ctx, target.ear, *target.newPos); err != nil {
				return fmt.Errorf("%w: ear move: %v", protocol.ErrHardwareError, err)
			}
			pos := *target.newPos
			pending[target.ear] = &pos
		}
		if canceled(cancel) {
			return e.haltEars(ctx, caps)
		}
	}
	return nil
}

func (e *Engine) haltEars(ctx context.Context, caps *actuator.Set) error {
	if err := caps.Ears.Halt(ctx, actuator.EarLeft); err != nil {
		return fmt.Errorf("%w: ear halt: %v", protocol.ErrHardwareError, err)
	}
	if err := caps.Ears.Halt(ctx, actuator.EarRight); err != nil {
		return fmt.Errorf("%w: ear halt: %v", protocol.ErrHardwareError, err)
	}
	return nil
}

// waitForArrival polls until the ear reaches target, ticking at the base
// tempo (spec §4.5: a new target for an ear already in motion waits for
// the prior arrival first).
func (e *Engine) waitForArrival(ctx context.Context, caps *actuator.Set, ear actuator.Ear, target int16, cancel <-chan struct{}) {
	for caps.Ears.Position(ear) != target {
		deadline := e.Clock.Now().Add(TickDuration)
		if !e.Clock.SleepUntil(deadline, cancel) || canceled(cancel) {
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

func (e *Engine) runAudio(ctx context.Context, caps *actuator.Set, item Item, start time.Time, cancel <-chan struct{}) error {
	if caps == nil || caps.Audio == nil {
		return nil
	}
	for _, asset := range item.Audio {
		if canceled(cancel) {
			return caps.Audio.Flush(ctx)
		}
		if err := caps.Audio.Enqueue(ctx, asset); err != nil {
			return fmt.Errorf("%w: audio enqueue: %v", protocol.ErrHardwareError, err)
		}
	}

	if item.Program != nil {
		deadline := start
		for _, frame := range item.Program.Frames {
			deadline = deadline.Add(time.Duration(frame.Duration()) * TickDuration)
			if !e.Clock.SleepUntil(deadline, cancel) || canceled(cancel) {
				return caps.Audio.Flush(ctx)
			}
			if frame.AudioCue == "" {
				continue
			}
			asset, ok := item.CueAssets[frame.AudioCue]
			if !ok {
				continue
			}
			if err := caps.Audio.Enqueue(ctx, asset); err != nil {
				return fmt.Errorf("%w: audio cue enqueue: %v", protocol.ErrHardwareError, err)
			}
		}
	}

	if canceled(cancel) {
		return caps.Audio.Flush(ctx)
	}
	select {
	case <-caps.Audio.Drained():
		return nil
	case <-cancel:
		return caps.Audio.Flush(ctx)
	case <-ctx.Done():
		return caps.Audio.Flush(ctx)
	}
}
