// Package virtual is a headless actuator.Set backend for development and
// tests: it renders the rabbit's LED/ear state as ANSI text with
// charmbracelet/lipgloss instead of driving real hardware, and serves that
// rendering on a small auxiliary TCP socket (daemon port + 1) so a
// terminal can "watch" the rabbit the way it would a physical one.
package virtual

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/nabaztag-core/nabd/internal/actuator"
)

var ledStyle = lipgloss.NewStyle().Bold(true)

// Backend implements the actuator capability interfaces entirely in
// memory, broadcasting a rendered snapshot to connected viewers whenever
// something changes.
type Backend struct {
	mu   sync.Mutex
	log  *zap.Logger
	leds actuator.LEDFrame
	ears [2]int16

	audioQueue []string
	drained    chan struct{}

	buttonEvents chan actuator.ButtonEvent

	viewers   map[net.Conn]struct{}
	listener  net.Listener
}

func New(log *zap.Logger) *Backend {
	if log == nil {
		log = zap.NewNop()
	}
	b := &Backend{
		log:          log,
		drained:      make(chan struct{}),
		buttonEvents: make(chan actuator.ButtonEvent, 16),
		viewers:      make(map[net.Conn]struct{}),
	}
	close(b.drained)
	return b
}

// Capabilities bundles this backend into an actuator.Set, wired against
// every capability it implements.
func (b *Backend) Capabilities() *actuator.Set {
	return &actuator.Set{
		LEDs:   b,
		Ears:   b,
		EarPos: b,
		Audio:  b,
		Button: b,
	}
}

// Serve accepts viewer connections on addr (daemon listen port + 1 per
// convention) until ctx is canceled, streaming the rendered snapshot to
// each on connect and on every subsequent change.
func (b *Backend) Serve(ctx context.Context, addr string) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen virtual viewer socket: %w", err)
	}
	b.listener = ln
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		b.mu.Lock()
		b.viewers[conn] = struct{}{}
		snapshot := b.render()
		b.mu.Unlock()
		go b.serveViewer(conn, snapshot)
	}
}

func (b *Backend) serveViewer(conn net.Conn, initial string) {
	w := bufio.NewWriter(conn)
	fmt.Fprintln(w, initial)
	w.Flush()
	defer func() {
		b.mu.Lock()
		delete(b.viewers, conn)
		b.mu.Unlock()
		conn.Close()
	}()
	buf := make([]byte, 1)
	for {
		if _, err := conn.Read(buf); err != nil {
			return
		}
	}
}

func (b *Backend) broadcast() {
	snapshot := b.render()
	for conn := range b.viewers {
		conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
		fmt.Fprintln(conn, snapshot)
	}
}

// render must be called with b.mu held.
func (b *Backend) render() string {
	var leds []string
	for i, c := range b.leds {
		val := "------"
		if c != nil {
			val = string(*c)
		}
		leds = append(leds, ledStyle.Foreground(lipgloss.Color("#"+colorOr(val))).Render(fmt.Sprintf("L%d:%s", i, val)))
	}
	return fmt.Sprintf("leds[%s] ears[L=%d R=%d] audio_queue=%d",
		strings.Join(leds, " "), b.ears[actuator.EarLeft], b.ears[actuator.EarRight], len(b.audioQueue))
}

func colorOr(v string) string {
	if len(v) != 6 {
		return "444444"
	}
	return v
}

// --- actuator.LEDStrip ---

func (b *Backend) Set(ctx context.Context, frame actuator.LEDFrame) error {
	b.mu.Lock()
	for i, c := range frame {
		if c != nil {
			b.leds[i] = c
		}
	}
	b.mu.Unlock()
	b.refresh()
	return nil
}

func (b *Backend) Clear(ctx context.Context) error {
	b.mu.Lock()
	b.leds = actuator.LEDFrame{}
	b.mu.Unlock()
	b.refresh()
	return nil
}

// --- actuator.EarController / EarEventSource ---

func (b *Backend) MoveTo(ctx context.Context, ear actuator.Ear, position int16) error {
	if position < -17 {
		position = -17
	}
	if position > 17 {
		position = 17
	}
	b.mu.Lock()
	b.ears[ear] = position
	b.mu.Unlock()
	b.refresh()
	return nil
}

func (b *Backend) Halt(ctx context.Context, ear actuator.Ear) error {
	return nil
}

func (b *Backend) Position(ear actuator.Ear) int16 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ears[ear]
}

func (b *Backend) Positions(ctx context.Context) (<-chan actuator.EarPositionEvent, error) {
	ch := make(chan actuator.EarPositionEvent)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

// --- actuator.AudioSink ---

func (b *Backend) Enqueue(ctx context.Context, asset actuator.Asset) error {
	b.mu.Lock()
	b.audioQueue = append(b.audioQueue, asset.Name())
	b.mu.Unlock()
	b.refresh()
	return nil
}

func (b *Backend) Flush(ctx context.Context) error {
	b.mu.Lock()
	b.audioQueue = nil
	b.mu.Unlock()
	b.refresh()
	return nil
}

func (b *Backend) Drained() <-chan struct{} {
	return b.drained
}

// --- actuator.Button ---

func (b *Backend) Events(ctx context.Context) (<-chan actuator.ButtonEvent, error) {
	return b.buttonEvents, nil
}

// InjectButton lets a test simulate a physical press. The viewer socket
// does not call it: bytes a viewer sends are read and discarded.
func (b *Backend) InjectButton(kind actuator.ButtonEventKind) {
	select {
	case b.buttonEvents <- actuator.ButtonEvent{Kind: kind, At: time.Now()}:
	default:
	}
}

func (b *Backend) refresh() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.broadcast()
}
