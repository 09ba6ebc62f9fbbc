// Package sensor fans the hardware event sources (button, ears, RFID, ASR,
// wake word) into the writer registry's broadcast, applying the small
// side effects spec §4.2/§4.7 attach to each: a button click cancels the
// running cancelable item, an RFID detection is annotated with its known
// picture, and an ASR transcript is classified into {intent, slots}
// before it is published.
package sensor

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/nabaztag-core/nabd/internal/actuator"
	"github.com/nabaztag-core/nabd/internal/protocol"
	"github.com/nabaztag-core/nabd/internal/scheduler"
	"github.com/nabaztag-core/nabd/internal/sensorpolicy"
	"github.com/nabaztag-core/nabd/internal/writer"
)

// Publisher is the subset of the writer registry the dispatcher needs.
type Publisher interface {
	Publish(event string, payload []byte)
}

// Scheduler is the subset of *scheduler.Scheduler the dispatcher drives.
type Scheduler interface {
	CancelRunningIfCancelable()
	Submit(item scheduler.WorkItem)
	EnterRecording()
	ExitRecording()
}

// Dispatcher owns no state of its own beyond what's needed to start one
// goroutine per present capability's event stream; all mutation it causes
// goes through Scheduler/Publisher.
type Dispatcher struct {
	caps      *actuator.Set
	pub       Publisher
	sched     Scheduler
	policy    sensorpolicy.Policy
	pictures  map[string]string // uid -> picture, known-service tags from config
	wakeOwner writer.ID
	log       *zap.Logger
}

func New(caps *actuator.Set, pub Publisher, sched Scheduler, policy sensorpolicy.Policy, pictures map[string]string, wakeOwner writer.ID, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	if pictures == nil {
		pictures = map[string]string{}
	}
	return &Dispatcher{caps: caps, pub: pub, sched: sched, policy: policy, pictures: pictures, wakeOwner: wakeOwner, log: log}
}

// Run starts a reader goroutine per present capability and blocks until
// ctx is canceled.
func (d *Dispatcher) Run(ctx context.Context) error {
	if d.caps == nil {
		<-ctx.Done()
		return nil
	}
	if d.caps.Button != nil {
		go d.runButton(ctx)
	}
	if d.caps.EarPos != nil {
		go d.runEars(ctx)
	}
	if d.caps.RFIDEv != nil {
		go d.runRFID(ctx)
	}
	if d.caps.ASR != nil {
		go d.runASR(ctx)
	}
	if d.caps.Wake != nil {
		go d.runWake(ctx)
	}
	<-ctx.Done()
	return nil
}

func (d *Dispatcher) runButton(ctx context.Context) {
	events, err := d.caps.Button.Events(ctx)
	if err != nil {
		d.log.Warn("button stream failed to start", zap.Error(err))
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Kind == actuator.ButtonClick {
				d.sched.CancelRunningIfCancelable()
			}
			d.publish("button", protocol.ButtonEvent{Type: "button", Event: string(ev.Kind), Time: unixSeconds(ev.At)})
		}
	}
}

func (d *Dispatcher) runEars(ctx context.Context) {
	events, err := d.caps.EarPos.Positions(ctx)
	if err != nil {
		d.log.Warn("ear position stream failed to start", zap.Error(err))
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			side := "left"
			if ev.Ear == actuator.EarRight {
				side = "right"
			}
			d.publish("ears", protocol.EarEvent{Type: "ear", Ear: side, Position: ev.Position, Time: unixSeconds(ev.At)})
		}
	}
}

func (d *Dispatcher) runRFID(ctx context.Context) {
	events, err := d.caps.RFIDEv.Events(ctx)
	if err != nil {
		d.log.Warn("rfid stream failed to start", zap.Error(err))
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			kind := "detected"
			if ev.Removed {
				kind = "removed"
			}
			picture := d.pictures[ev.UID]
			d.publish("rfid/"+orUnknown(ev.App), protocol.RFIDEvent{
				Type:    "rfid",
				Tech:    ev.Tech,
				UID:     ev.UID,
				Event:   kind,
				Support: string(ev.Support),
				Picture: picture,
				App:     ev.App,
				Data:    ev.Data,
				Time:    unixSeconds(ev.At),
			})
		}
	}
}

func (d *Dispatcher) runASR(ctx context.Context) {
	results, err := d.caps.ASR.Intents(ctx)
	if err != nil {
		d.log.Warn("asr stream failed to start", zap.Error(err))
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case res, ok := <-results:
			if !ok {
				return
			}
			intent, slots := res.Intent, res.Slots
			if d.policy != nil {
				if classified, matched, err := d.policy.Classify(ctx, intentText(res)); err == nil && matched {
					intent, slots = classified.Intent, classified.Slots
				}
			}
			d.publish("asr/"+orUnknown(intent), protocol.ASREvent{
				Type: "asr",
				NLU:  protocol.NLU{Intent: intent, Slots: slots},
				Time: unixSeconds(res.At),
			})
		}
	}
}

func intentText(res actuator.ASRResult) string {
	if text, ok := res.Slots["text"]; ok {
		return text
	}
	return res.Intent
}

func (d *Dispatcher) runWake(ctx context.Context) {
	detections, err := d.caps.Wake.Detections(ctx)
	if err != nil {
		d.log.Warn("wake detector failed to start", zap.Error(err))
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-detections:
			if !ok {
				return
			}
			d.sched.Submit(scheduler.WorkItem{
				Kind:       scheduler.KindModeSwitch,
				Origin:     d.wakeOwner,
				TargetMode: protocol.ModeInteractive,
			})
		}
	}
}

func (d *Dispatcher) publish(event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		d.log.Warn("event marshal failed", zap.String("event", event), zap.Error(err))
		return
	}
	d.pub.Publish(event, data)
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

func unixSeconds(t time.Time) float64 {
	if t.IsZero() {
		return 0
	}
	return float64(t.UnixNano()) / float64(time.Second)
}
