package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// Run starts the query screen against endpoint and blocks until the user
// quits. An in-flight request is cancelled on exit.
func Run(ctx context.Context, endpoint string) ([]Exchange, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewQueryModel(ctx, NewClient(endpoint)), tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("TUI error: %w", err)
	}
	return final.(QueryModel).History(), nil
}
