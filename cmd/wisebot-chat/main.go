package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/jithsungh/wisebot/internal/tui"
)

func main() {
	var (
		server string
		userID string
	)
	flag.StringVar(&server, "server", "ws://localhost:8000", "WiseBot websocket base URL")
	flag.StringVar(&userID, "user", "", "User id; conversation history is kept per id (default: random)")
	flag.Parse()

	if userID == "" {
		userID = "cli-" + uuid.NewString()[:8]
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	client, err := tui.Dial(ctx, server, userID)
	cancel()
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer client.Close()

	p := tea.NewProgram(tui.New(client, userID), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
