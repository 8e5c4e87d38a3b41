package progress

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/robinjoseph08/golib/logger"
	"github.com/xreader/xreader/pkg/debounce"
)

// Pusher sends the current state of a book to the remote.
type Pusher interface {
	Push(ctx context.Context, bookID string) error
}

// Mirror coalesces progress changes and pushes them once writes have been
// quiet for the debounce delay. A push that is already running is never
// cancelled; books scheduled during it go out on the next run.
type Mirror struct {
	ctx       context.Context
	pusher    Pusher
	debouncer *debounce.Debouncer

	mu      sync.Mutex
	pending map[string]struct{}

	pushMu sync.Mutex
}

func NewMirror(ctx context.Context, pusher Pusher, delay time.Duration) *Mirror {
	m := &Mirror{
		ctx:     ctx,
		pusher:  pusher,
		pending: map[string]struct{}{},
	}
	m.debouncer = debounce.New(delay, m.push)
	return m
}

func (m *Mirror) Schedule(bookID string) {
	m.mu.Lock()
	m.pending[bookID] = struct{}{}
	m.mu.Unlock()

	m.debouncer.Trigger()
}

// Flush pushes anything still waiting on the debounce delay and returns once
// the push is done.
func (m *Mirror) Flush() {
	m.debouncer.Flush()
}

// Stop drops any scheduled push.
func (m *Mirror) Stop() {
	m.debouncer.Stop()
}

func (m *Mirror) push() {
	m.pushMu.Lock()
	defer m.pushMu.Unlock()

	m.mu.Lock()
	ids := make([]string, 0, len(m.pending))
	for id := range m.pending {
		ids = append(ids, id)
	}
	m.pending = map[string]struct{}{}
	m.mu.Unlock()

	sort.Strings(ids)

	log := logger.FromContext(m.ctx)
	for _, id := range ids {
		if err := m.pusher.Push(m.ctx, id); err != nil {
			log.Warn("failed to push progress", logger.Data{"book_id": id, "error": err.Error()})
		}
	}
}
