package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/xreader/xreader/pkg/models"
	"github.com/xreader/xreader/pkg/playback"
)

// Run shows the reader for book until the user quits. Playback is stopped on
// the way out.
func Run(ctx context.Context, player Player, book *models.Book, opts Options) error {
	p := tea.NewProgram(New(ctx, player, book, opts), tea.WithAltScreen(), tea.WithContext(ctx))

	// Listeners run under the controller's lock, so they only flag that
	// something changed. The model reads the session itself.
	changed := make(chan struct{}, 1)
	player.Subscribe(func(playback.Event) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case <-done:
				return
			case <-changed:
				p.Send(refreshMsg{})
			}
		}
	}()

	_, err := p.Run()
	if stopErr := player.Stop(ctx); err == nil {
		err = stopErr
	}
	return err
}
