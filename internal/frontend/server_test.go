package frontend_test

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/nabaztag-core/nabd/internal/actuator"
	"github.com/nabaztag-core/nabd/internal/choreo"
	"github.com/nabaztag-core/nabd/internal/choreotime"
	"github.com/nabaztag-core/nabd/internal/frontend"
	"github.com/nabaztag-core/nabd/internal/protocol"
	"github.com/nabaztag-core/nabd/internal/scheduler"
	"github.com/nabaztag-core/nabd/internal/writer"
)

func startServer(t *testing.T) (addr string, cancel context.CancelFunc) {
	t.Helper()
	registry := writer.NewRegistry()
	hooks := frontend.NewHooks(registry, nil, nil)
	engine := choreo.New(choreotime.Real{})
	sched := scheduler.New(&actuator.Set{}, engine, nil, hooks, choreotime.Real{}, nil, nil, 16, "en")

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr = ln.Addr().String()
	ln.Close()

	srv := frontend.New(addr, 16, registry, sched, choreotime.Real{}, nil)
	ctx, cancelFn := context.WithCancel(context.Background())
	go sched.Start(ctx)
	go srv.Run(ctx)

	// Give the listener a moment to bind before the test dials it.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if conn, err := net.Dial("tcp", addr); err == nil {
			conn.Close()
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	return addr, cancelFn
}

func TestConnectReceivesInitialStatePacket(t *testing.T) {
	addr, cancel := startServer(t)
	defer cancel()

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(time.Second))
	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		t.Fatalf("expected a line, got err=%v", scanner.Err())
	}
	var pkt protocol.StatePacket
	if err := json.Unmarshal(scanner.Bytes(), &pkt); err != nil {
		t.Fatalf("unexpected payload %q: %v", scanner.Text(), err)
	}
	if pkt.Type != "state" || pkt.State != protocol.StateIdle {
		t.Fatalf("expected initial idle state packet, got %+v", pkt)
	}
}

func TestCommandRoundTripRespondsOK(t *testing.T) {
	addr, cancel := startServer(t)
	defer cancel()

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	scanner := bufio.NewScanner(conn)
	scanner.Scan() // discard the initial state packet

	pkt := protocol.CommandPacket{
		Type:      "command",
		Sequence:  []protocol.CommandItem{{Audio: []string{"tts:en:hello"}}},
		RequestID: "t1",
	}
	data, _ := json.Marshal(pkt)
	if _, err := conn.Write(append(data, '\n')); err != nil {
		t.Fatal(err)
	}

	// State broadcasts for the running item arrive on the same stream;
	// skip them until the response line.
	var resp protocol.ResponsePacket
	for resp.Type != "response" {
		if !scanner.Scan() {
			t.Fatalf("expected a response line, got err=%v", scanner.Err())
		}
		resp = protocol.ResponsePacket{}
		if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
			t.Fatalf("unexpected payload %q: %v", scanner.Text(), err)
		}
	}
	if resp.RequestID != "t1" || resp.Status != protocol.StatusOK {
		t.Fatalf("expected ok response for t1, got %+v", resp)
	}
}

func TestMalformedLineRespondsProtocolError(t *testing.T) {
	addr, cancel := startServer(t)
	defer cancel()

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	scanner := bufio.NewScanner(conn)
	scanner.Scan() // discard the initial state packet

	if _, err := conn.Write([]byte("not json at all\n")); err != nil {
		t.Fatal(err)
	}

	if !scanner.Scan() {
		t.Fatalf("expected a response line, got err=%v", scanner.Err())
	}
	var resp protocol.ResponsePacket
	if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
		t.Fatalf("unexpected payload %q: %v", scanner.Text(), err)
	}
	if resp.Status != protocol.StatusError || resp.Class != protocol.ClassProtocolError {
		t.Fatalf("expected protocol error, got %+v", resp)
	}
}

func TestGestaltReturnsStateAndWriters(t *testing.T) {
	addr, cancel := startServer(t)
	defer cancel()

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	scanner := bufio.NewScanner(conn)
	scanner.Scan() // discard the initial state packet

	req := map[string]string{"type": "gestalt", "request_id": "g1"}
	data, _ := json.Marshal(req)
	conn.Write(append(data, '\n'))

	if !scanner.Scan() {
		t.Fatalf("expected a response line, got err=%v", scanner.Err())
	}
	var resp protocol.ResponsePacket
	if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
		t.Fatalf("unexpected payload %q: %v", scanner.Text(), err)
	}
	if resp.Info == nil || resp.Info.State != protocol.StateIdle {
		t.Fatalf("expected idle state in gestalt response, got %+v", resp.Info)
	}
	if len(resp.Info.Writers) != 1 {
		t.Fatalf("expected exactly the one connected writer, got %v", resp.Info.Writers)
	}
}
