// Package frontend is the TCP front-end of spec §6: a listener that
// accepts line-delimited JSON connections, registers each as a writer,
// and turns inbound packets into scheduler calls.
package frontend

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/nabaztag-core/nabd/internal/choreotime"
	"github.com/nabaztag-core/nabd/internal/protocol"
	"github.com/nabaztag-core/nabd/internal/scheduler"
	"github.com/nabaztag-core/nabd/internal/writer"
)

// Scheduler is the subset of *scheduler.Scheduler the front-end drives.
type Scheduler interface {
	Submit(item scheduler.WorkItem)
	Cancel(cancelOrigin writer.ID, requestID string)
	ReleaseInteractive(origin writer.ID)
	WriterDisconnected(origin writer.ID)
	RegisterIdleAnimation(id string, anim protocol.IdleAnimation)
	CurrentState() protocol.State
}

// Server accepts connections on a single TCP address and feeds them into
// registry + sched. NewHooks builds the scheduler.Hooks implementation a
// caller should pass to scheduler.New, wired back to this same registry.
type Server struct {
	addr       string
	queueDepth int

	registry  *writer.Registry
	sched     Scheduler
	clock     choreotime.Clock
	log       *zap.Logger
	startedAt time.Time

	ctx      context.Context
	listener net.Listener
}

func New(addr string, queueDepth int, registry *writer.Registry, sched Scheduler, clock choreotime.Clock, log *zap.Logger) *Server {
	if queueDepth <= 0 {
		queueDepth = 64
	}
	if clock == nil {
		clock = choreotime.Real{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		addr:       addr,
		queueDepth: queueDepth,
		registry:   registry,
		sched:      sched,
		clock:      clock,
		log:        log,
		startedAt:  clock.Now(),
	}
}

// NewHooks builds the scheduler.Hooks this server's registry backs. Call
// this before scheduler.New and pass the result in; the server itself
// only needs the *writer.Registry, not the scheduler.Hooks value.
func NewHooks(registry *writer.Registry, log *zap.Logger, shutdownFn func(protocol.ShutdownMode)) scheduler.Hooks {
	if log == nil {
		log = zap.NewNop()
	}
	return &hooksAdapter{registry: registry, log: log, shutdownFn: shutdownFn}
}

// Run listens on s.addr and accepts connections until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = ln
	s.ctx = ctx

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		nc, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				s.log.Warn("accept failed", zap.Error(err))
				return err
			}
		}
		c := newConn(nc, s)
		s.registry.Add(c.w)
		go c.run()
	}
}

func (s *Server) clockNow() time.Time {
	return s.clock.Now()
}
