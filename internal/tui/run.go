package tui

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mtowers/ledgermind/internal/dispatcher"
)

// Run starts the chat session and blocks until the user quits or the
// context is canceled.
func Run(ctx context.Context, d *dispatcher.Dispatcher) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	program := tea.NewProgram(NewModel(d), tea.WithAltScreen(), tea.WithContext(ctx))

	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	if _, err := program.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("chat session failed: %w", err)
	}
	return nil
}
