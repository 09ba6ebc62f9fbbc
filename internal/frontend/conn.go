package frontend

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nabaztag-core/nabd/internal/bqueue"
	"github.com/nabaztag-core/nabd/internal/protocol"
	"github.com/nabaztag-core/nabd/internal/scheduler"
	"github.com/nabaztag-core/nabd/internal/writer"
)

// conn is one accepted TCP connection: a registry Writer plus the reader
// goroutine that turns its lines into scheduler/registry calls.
type conn struct {
	id      writer.ID
	nc      net.Conn
	w       *writer.Writer
	srv     *Server
	log     *zap.Logger
	started time.Time

	closeOnce sync.Once
}

func newConn(nc net.Conn, srv *Server) *conn {
	id := uuid.New()
	send := bqueue.New[[]byte](srv.queueDepth)
	c := &conn{id: id, nc: nc, srv: srv, log: srv.log, started: srv.clockNow()}
	c.w = writer.New(id, send)
	c.w.Overflowed = c.teardownOverflow
	return c
}

func (c *conn) run() {
	defer c.teardown()
	go c.writeLoop()

	hello, _ := json.Marshal(protocol.StatePacket{Type: "state", State: c.srv.sched.CurrentState()})
	if !c.w.Send.Enqueue(hello) {
		return
	}

	scanner := bufio.NewScanner(c.nc)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		c.handleLine([]byte(line))
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
		c.log.Debug("connection read error", zap.Error(err))
	}
}

func (c *conn) writeLoop() {
	c.w.Send.Start(c.srv.ctx, func(payload []byte) {
		_ = c.nc.SetWriteDeadline(c.srv.clockNow().Add(10 * time.Second))
		if _, err := c.nc.Write(append(payload, '\n')); err != nil {
			c.teardown()
		}
	})
}

func (c *conn) teardownOverflow() {
	c.log.Warn("writer overflowed, disconnecting", zap.String("writer", c.id.String()))
	c.teardown()
}

func (c *conn) teardown() {
	c.closeOnce.Do(func() {
		c.w.Send.Close()
		_ = c.nc.Close()
		c.srv.registry.Remove(c.id)
		c.srv.sched.WriterDisconnected(c.id)
	})
}

func (c *conn) handleLine(line []byte) {
	env, err := protocol.ParseEnvelope(line)
	if err != nil {
		c.respondError("", protocol.ClassProtocolError, err.Error())
		return
	}
	switch env.Type {
	case "command":
		c.handleCommand(env)
	case "message":
		c.handleMessage(env)
	case "mode":
		c.handleMode(env)
	case "sleep":
		c.handleSleep(env)
	case "wakeup":
		c.handleWakeup(env)
	case "cancel":
		c.handleCancel(env)
	case "test":
		c.handleTest(env)
	case "gestalt":
		c.handleGestalt(env)
	case "rfid_write":
		c.handleRfidWrite(env)
	case "config-update":
		c.handleConfigUpdate(env)
	case "shutdown":
		c.handleShutdown(env)
	case "info":
		c.handleInfo(env)
	default:
		c.respondError(env.RequestID, protocol.ClassProtocolError, "unknown packet type "+env.Type)
	}
}

func (c *conn) handleCommand(env protocol.Envelope) {
	var p protocol.CommandPacket
	if err := env.Decode(&p); err != nil {
		c.respondError(env.RequestID, protocol.ClassProtocolError, err.Error())
		return
	}
	if err := protocol.ValidateSequence(p.Sequence); err != nil {
		c.respondError(p.RequestID, protocol.ClassOf(err), err.Error())
		return
	}
	exp, hasExp, err := protocol.ParseExpiration(p.Expiration)
	if err != nil {
		c.respondError(p.RequestID, protocol.ClassOf(err), err.Error())
		return
	}
	c.srv.sched.Submit(scheduler.WorkItem{
		Kind:       scheduler.KindCommand,
		Origin:     c.id,
		RequestID:  p.RequestID,
		Sequence:   p.Sequence,
		Cancelable: p.Cancelable,
		Expiration: exp,
		HasExp:     hasExp,
	})
}

func (c *conn) handleMessage(env protocol.Envelope) {
	var p protocol.MessagePacket
	if err := env.Decode(&p); err != nil {
		c.respondError(env.RequestID, protocol.ClassProtocolError, err.Error())
		return
	}
	if err := protocol.ValidateSequence(p.Body); err != nil {
		c.respondError(p.RequestID, protocol.ClassOf(err), err.Error())
		return
	}
	if p.Signature != nil && p.Signature.Empty() {
		c.respondError(p.RequestID, protocol.ClassInvalidParameter, "signature has neither audio nor choreography")
		return
	}
	exp, hasExp, err := protocol.ParseExpiration(p.Expiration)
	if err != nil {
		c.respondError(p.RequestID, protocol.ClassOf(err), err.Error())
		return
	}
	c.srv.sched.Submit(scheduler.WorkItem{
		Kind:       scheduler.KindMessage,
		Origin:     c.id,
		RequestID:  p.RequestID,
		Sequence:   p.Body,
		Signature:  p.Signature,
		Cancelable: p.Cancelable,
		Expiration: exp,
		HasExp:     hasExp,
	})
}

func (c *conn) handleMode(env protocol.Envelope) {
	var p protocol.ModePacket
	if err := env.Decode(&p); err != nil {
		c.respondError(env.RequestID, protocol.ClassProtocolError, err.Error())
		return
	}
	mode, err := protocol.ParseMode(p.Mode)
	if err != nil {
		c.respondError(p.RequestID, protocol.ClassOf(err), err.Error())
		return
	}
	c.w.SetSubscriptions(p.Events)
	if mode == protocol.ModeIdle {
		c.srv.sched.ReleaseInteractive(c.id)
		c.respond(p.RequestID, protocol.StatusOK, "", "", "")
		return
	}
	c.srv.sched.Submit(scheduler.WorkItem{
		Kind:       scheduler.KindModeSwitch,
		Origin:     c.id,
		RequestID:  p.RequestID,
		TargetMode: mode,
	})
}

func (c *conn) handleSleep(env protocol.Envelope) {
	var p protocol.SleepPacket
	if err := env.Decode(&p); err != nil {
		c.respondError(env.RequestID, protocol.ClassProtocolError, err.Error())
		return
	}
	c.srv.sched.Submit(scheduler.WorkItem{Kind: scheduler.KindSleep, Origin: c.id, RequestID: p.RequestID})
}

func (c *conn) handleWakeup(env protocol.Envelope) {
	var p protocol.WakeupPacket
	if err := env.Decode(&p); err != nil {
		c.respondError(env.RequestID, protocol.ClassProtocolError, err.Error())
		return
	}
	c.srv.sched.Submit(scheduler.WorkItem{Kind: scheduler.KindWakeup, Origin: c.id, RequestID: p.RequestID})
}

func (c *conn) handleCancel(env protocol.Envelope) {
	var p protocol.CancelPacket
	if err := env.Decode(&p); err != nil {
		c.respondError(env.RequestID, protocol.ClassProtocolError, err.Error())
		return
	}
	c.srv.sched.Cancel(c.id, p.RequestID)
}

func (c *conn) handleTest(env protocol.Envelope) {
	var p protocol.TestPacket
	if err := env.Decode(&p); err != nil {
		c.respondError(env.RequestID, protocol.ClassProtocolError, err.Error())
		return
	}
	target, err := protocol.ParseTestTarget(p.Test)
	if err != nil {
		c.respondError(p.RequestID, protocol.ClassOf(err), err.Error())
		return
	}
	c.srv.sched.Submit(scheduler.WorkItem{
		Kind:       scheduler.KindTest,
		Origin:     c.id,
		RequestID:  p.RequestID,
		TestTarget: target,
		Cancelable: true,
	})
}

func (c *conn) handleGestalt(env protocol.Envelope) {
	var p protocol.GestaltPacket
	if err := env.Decode(&p); err != nil {
		c.respondError(env.RequestID, protocol.ClassProtocolError, err.Error())
		return
	}
	c.respondInfo(p.RequestID)
}

func (c *conn) handleInfo(env protocol.Envelope) {
	var p protocol.InfoPacket
	if err := env.Decode(&p); err != nil {
		c.respondError(env.RequestID, protocol.ClassProtocolError, err.Error())
		return
	}
	if p.InfoID == "" && p.Animation == nil {
		c.respondInfo(p.RequestID)
		return
	}
	if p.Animation != nil {
		id := p.InfoID
		if id == "" {
			id = c.id.String()
		}
		c.srv.sched.RegisterIdleAnimation(id, *p.Animation)
	}
	c.respond(p.RequestID, protocol.StatusOK, "", "", "")
}

func (c *conn) handleRfidWrite(env protocol.Envelope) {
	var p protocol.RfidWritePacket
	if err := env.Decode(&p); err != nil {
		c.respondError(env.RequestID, protocol.ClassProtocolError, err.Error())
		return
	}
	timeout := time.Duration(p.Timeout * float64(time.Second))
	c.srv.sched.Submit(scheduler.WorkItem{
		Kind:       scheduler.KindRfidWrite,
		Origin:     c.id,
		RequestID:  p.RequestID,
		Cancelable: false,
		Rfid: scheduler.RfidWriteParams{
			Tech:    p.Tech,
			UID:     p.UID,
			Picture: p.Picture,
			App:     p.App,
			Data:    p.Data,
			Timeout: timeout,
		},
	})
}

func (c *conn) handleConfigUpdate(env protocol.Envelope) {
	var p protocol.ConfigUpdatePacket
	if err := env.Decode(&p); err != nil {
		c.respondError(env.RequestID, protocol.ClassProtocolError, err.Error())
		return
	}
	c.srv.sched.Submit(scheduler.WorkItem{
		Kind:          scheduler.KindConfigUpdate,
		Origin:        c.id,
		RequestID:     p.RequestID,
		ConfigService: p.Service,
		ConfigSlot:    p.Slot,
	})
}

func (c *conn) handleShutdown(env protocol.Envelope) {
	var p protocol.ShutdownPacket
	if err := env.Decode(&p); err != nil {
		c.respondError(env.RequestID, protocol.ClassProtocolError, err.Error())
		return
	}
	mode, err := protocol.ParseShutdownMode(p.Mode)
	if err != nil {
		c.respondError(p.RequestID, protocol.ClassOf(err), err.Error())
		return
	}
	c.srv.sched.Submit(scheduler.WorkItem{
		Kind:         scheduler.KindShutdown,
		Origin:       c.id,
		RequestID:    p.RequestID,
		ShutdownMode: mode,
	})
}

func (c *conn) respondInfo(requestID string) {
	uptime := c.srv.clockNow().Sub(c.srv.startedAt).Seconds()
	ids := c.srv.registry.List()
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		names = append(names, id.String())
	}
	payload, _ := json.Marshal(protocol.ResponsePacket{
		Type:      "response",
		RequestID: requestID,
		Status:    protocol.StatusOK,
		Info: &protocol.InfoEcho{
			Uptime:  uptime,
			State:   c.srv.sched.CurrentState(),
			Writers: names,
		},
	})
	c.w.Send.Enqueue(payload)
}

func (c *conn) respond(requestID string, status protocol.Status, class protocol.ErrorClass, message, uid string) {
	payload, _ := json.Marshal(protocol.ResponsePacket{
		Type:      "response",
		RequestID: requestID,
		Status:    status,
		Class:     class,
		Message:   message,
		UID:       uid,
	})
	c.w.Send.Enqueue(payload)
}

func (c *conn) respondError(requestID string, class protocol.ErrorClass, message string) {
	c.respond(requestID, protocol.StatusError, class, message, "")
}
