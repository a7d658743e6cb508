package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

func newPlayCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play interactively over the realtime protocol",
		Long: `Connect to the server's websocket endpoint and play from the terminal.

Commands:
  queue           Enter the matchmaking queue
  cancel          Leave the queue
  rock|paper|scissors
                  Submit your move in the current match
  say <text>      Send a lobby chat message
  msg <text>      Send a match chat message
  quit            Disconnect

Press Ctrl+C to disconnect.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Token == "" {
				return fmt.Errorf("not logged in; run 'rpsduel account login' first")
			}
			return playSession(jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output events as JSON lines")

	return cmd
}

// serverEvent is an event frame as received from the server
type serverEvent struct {
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"ts"`
	Payload   json.RawMessage `json:"payload"`
}

func playSession(jsonOutput bool) error {
	url := wsURL(cfg.ServerURL) + "/ws?token=" + cfg.Token

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer func() { _ = conn.Close() }()

	if !jsonOutput {
		fmt.Println("Connected. Type 'queue' to find an opponent.")
	}

	// Handle interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		_ = conn.Close()
	}()

	// Print incoming events until the connection drops
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var event serverEvent
			if err := conn.ReadJSON(&event); err != nil {
				return
			}
			printEvent(event, jsonOutput)
		}
	}()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		select {
		case <-done:
			return nil
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" {
			return nil
		}

		frame, err := commandFrame(line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			continue
		}
		if err := conn.WriteJSON(frame); err != nil {
			return fmt.Errorf("send failed: %w", err)
		}
	}

	<-done
	return nil
}

// commandFrame turns a typed command line into a protocol frame
func commandFrame(line string) (map[string]any, error) {
	cmd, rest, _ := strings.Cut(line, " ")

	switch cmd {
	case "queue":
		return map[string]any{"type": "enqueue"}, nil
	case "cancel":
		return map[string]any{"type": "cancel"}, nil
	case "rock", "paper", "scissors":
		return map[string]any{"type": "play", "payload": map[string]string{"move": cmd}}, nil
	case "say":
		return map[string]any{"type": "chat", "payload": map[string]string{"scope": "lobby", "text": rest}}, nil
	case "msg":
		return map[string]any{"type": "chat", "payload": map[string]string{"scope": "match", "text": rest}}, nil
	default:
		return nil, fmt.Errorf("unknown command %q", cmd)
	}
}

func printEvent(event serverEvent, jsonOutput bool) {
	if jsonOutput {
		data, _ := json.Marshal(event)
		fmt.Println(string(data))
		return
	}

	var fields map[string]any
	_ = json.Unmarshal(event.Payload, &fields)

	switch event.Type {
	case "queued":
		fmt.Printf("Waiting for an opponent (position %v)\n", fields["position"])
	case "match_found":
		fmt.Printf("Match found! You play against %v\n", fields["opponent"])
	case "game_result":
		fmt.Printf("You played %v, opponent played %v: you %v (rating %v, %+v)\n",
			fields["move"], fields["opponent"], fields["outcome"], fields["rating"], fields["rating_delta"])
	case "match_abandoned":
		fmt.Printf("Match abandoned (%v)\n", fields["reason"])
	case "chat":
		fmt.Printf("[%v] %v\n", fields["user"], fields["text"])
	case "error":
		fmt.Fprintf(os.Stderr, "Error: %v (%v)\n", fields["message"], fields["code"])
	default:
		data, _ := json.Marshal(event)
		fmt.Println(string(data))
	}
}

// wsURL converts the configured HTTP base URL to a websocket one
func wsURL(base string) string {
	base = strings.TrimSuffix(base, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base
}
