// Command nabctl is a thin line-protocol client for nabd: it connects,
// writes one JSON packet, and prints whatever comes back until the
// connection closes or --timeout elapses. Useful for scripting and for
// poking at a running daemon by hand.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nabaztag-core/nabd/internal/protocol"
)

var (
	addr       string
	timeout    time.Duration
	requestID  string
	cancelable bool
	expiresIn  time.Duration
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "nabctl",
	Short: "Send packets to a running nabd and print its responses",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&addr, "addr", "127.0.0.1:10543", "nabd listen address")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 3*time.Second, "how long to wait for responses")

	rootCmd.AddCommand(sendCmd, commandCmd, gestaltCmd, sleepCmd, wakeupCmd)

	commandCmd.Flags().StringVar(&requestID, "request-id", "", "request id to echo back in the response")
	commandCmd.Flags().BoolVar(&cancelable, "cancelable", false, "mark the sequence cancelable")
	commandCmd.Flags().DurationVar(&expiresIn, "expires-in", 0, "drop the sequence if not yet started after this long")
}

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Read one JSON line from stdin and send it verbatim",
	RunE: func(cmd *cobra.Command, args []string) error {
		var line bytes.Buffer
		if _, err := line.ReadFrom(os.Stdin); err != nil {
			return err
		}
		return roundTrip(bytes.TrimSpace(line.Bytes()))
	},
}

var commandCmd = &cobra.Command{
	Use:   "command [audio...]",
	Short: "Submit a one-item command sequence playing the given audio assets",
	RunE: func(cmd *cobra.Command, args []string) error {
		pkt := protocol.CommandPacket{
			Type:       "command",
			Sequence:   []protocol.CommandItem{{Audio: args}},
			Cancelable: cancelable,
			RequestID:  requestID,
		}
		if expiresIn > 0 {
			exp := time.Now().Add(expiresIn).UTC().Format(time.RFC3339)
			pkt.Expiration = &exp
		}
		return roundTripJSON(pkt)
	},
}

var gestaltCmd = &cobra.Command{
	Use:   "gestalt",
	Short: "Ask the daemon for its current state and connected writers",
	RunE: func(cmd *cobra.Command, args []string) error {
		return roundTripJSON(map[string]string{"type": "gestalt"})
	},
}

var sleepCmd = &cobra.Command{
	Use:   "sleep",
	Short: "Put the daemon to sleep once its queue drains",
	RunE: func(cmd *cobra.Command, args []string) error {
		return roundTripJSON(map[string]string{"type": "sleep"})
	},
}

var wakeupCmd = &cobra.Command{
	Use:   "wakeup",
	Short: "Wake the daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		return roundTripJSON(map[string]string{"type": "wakeup"})
	},
}

func roundTripJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return roundTrip(data)
}

func roundTrip(line []byte) error {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	if _, err := conn.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write: %w", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	scanner := bufio.NewScanner(conn)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 8*1024*1024)
	for scanner.Scan() {
		fmt.Println(scanner.Text())
		_ = conn.SetReadDeadline(time.Now().Add(timeout))
	}
	return nil
}
