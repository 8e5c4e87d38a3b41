package playback

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/xreader/xreader/pkg/errcodes"
	"github.com/xreader/xreader/pkg/models"
	"github.com/xreader/xreader/pkg/paginator"
	"github.com/xreader/xreader/pkg/tts"
)

// Persister stores reading progress. Calls are made in transition order and
// awaited before the transition completes.
type Persister interface {
	Persist(ctx context.Context, bookID string, progress models.Progress) error
}

type Options struct {
	PageSize int
	Voice    string
	Rate     float64
}

// Controller drives speech through a book one paragraph at a time, keeping the
// highlight, displayed page and persisted progress in step with it.
//
// Every transition runs under one lock. Each dispatched utterance is tagged;
// a completion whose tag is no longer current is dropped, so Stop, Pause and
// navigation invalidate in-flight completions before they return.
type Controller struct {
	ctx      context.Context
	engine   tts.Engine
	store    Persister
	pageSize int

	mu        sync.Mutex
	listeners []Listener
	book      *models.Book
	state     State
	cursor    int
	page      int
	highlight int
	voice     string
	rate      float64

	tag uint64
	// held is a completion that arrived while paused.
	held *completion
	// redispatch is set when pausing had to cancel the utterance.
	redispatch bool
	pending    *pendingStart
	lastErr    error
}

type completion struct {
	err error
}

type pendingStart struct {
	target int
}

// New builds a controller. ctx is used for utterances and for persisting
// progress from speech completions, so it should outlive the session.
func New(ctx context.Context, engine tts.Engine, store Persister, opts Options) *Controller {
	if opts.PageSize <= 0 {
		opts.PageSize = paginator.DefaultPageSize
	}
	if opts.Rate <= 0 {
		opts.Rate = 1
	}
	return &Controller{
		ctx:       ctx,
		engine:    engine,
		store:     store,
		pageSize:  opts.PageSize,
		highlight: NoHighlight,
		voice:     opts.Voice,
		rate:      opts.Rate,
	}
}

func (c *Controller) Subscribe(l Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, l)
}

func (c *Controller) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Session{
		State:       c.state,
		Cursor:      c.cursor,
		DisplayPage: c.page,
		Highlight:   c.highlight,
		Voice:       c.voice,
		Rate:        c.rate,
	}
	if c.book != nil {
		s.BookID = c.book.ID
		s.BookName = c.book.Name
		s.ParagraphCount = c.book.ParagraphCount()
		s.TotalPages = paginator.TotalPages(s.ParagraphCount, c.pageSize)
		s.PercentRead = c.book.PercentRead()
	}
	return s
}

// DisplayedParagraphs returns the paragraphs on the displayed page and the
// index of the first one.
func (c *Controller) DisplayedParagraphs() (int, []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.book == nil {
		return 0, nil
	}
	start, end := paginator.RangeOf(c.page, c.pageSize, c.book.ParagraphCount())
	return start, c.book.Paragraphs[start:end]
}

// Err returns the error that ended the last playback, if any.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Open makes book the current book, stopping whatever was playing. The
// displayed page is the one holding the book's progress.
func (c *Controller) Open(ctx context.Context, book *models.Book) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.book != nil && c.state != Idle {
		c.stopLocked(ctx)
	}

	c.book = book
	c.state = Idle
	c.pending = nil
	c.lastErr = nil
	c.highlight = NoHighlight
	c.cursor = 0
	if book.HasParagraph(book.Progress.ParagraphIndex) {
		c.cursor = book.Progress.ParagraphIndex
	}
	c.page = paginator.PageOf(c.cursor, c.pageSize)

	c.emitLocked(PageChanged, nil)
	return c.persistLocked(ctx)
}

// Close stops playback and drops the current book.
func (c *Controller) Close(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.book == nil {
		return
	}
	if c.state != Idle {
		c.stopLocked(ctx)
	}
	c.book = nil
	c.pending = nil
}

// ForgetBook drops the session without persisting anything if it's reading
// the book with the given ID. Used when that book is deleted.
func (c *Controller) ForgetBook(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.book == nil || c.book.ID != id {
		return
	}
	c.invalidateLocked()
	c.held = nil
	c.redispatch = false
	c.pending = nil
	c.setHighlightLocked(NoHighlight)
	c.setStateLocked(Idle)
	c.book = nil
}

func (c *Controller) SetVoice(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.voice = name
}

func (c *Controller) SetRate(rate float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if rate > 0 {
		c.rate = rate
	}
}

// Start begins speaking from the persisted progress, or from the top of the
// displayed page when that's out of range. Starting while paused resumes.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireBookLocked(); err != nil {
		return err
	}

	switch c.state {
	case Speaking:
		return nil
	case Paused:
		return c.resumeLocked(ctx)
	}

	target, _ := paginator.RangeOf(c.page, c.pageSize, c.book.ParagraphCount())
	if c.book.HasParagraph(c.book.Progress.ParagraphIndex) {
		target = c.book.Progress.ParagraphIndex
	}
	return c.startLocked(ctx, target)
}

// JumpTo starts speaking at paragraph i, interrupting anything in flight.
func (c *Controller) JumpTo(ctx context.Context, i int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireBookLocked(); err != nil {
		return err
	}
	if !c.book.HasParagraph(i) {
		return errcodes.InvalidInput(fmt.Sprintf("Paragraph %d is out of range.", i))
	}

	if c.state != Idle {
		c.stopLocked(ctx)
	}
	return c.startLocked(ctx, i)
}

// Toggle starts when idle, pauses while speaking and resumes when paused.
func (c *Controller) Toggle(ctx context.Context) error {
	c.mu.Lock()
	state := c.state
	c.mu.Unlock()

	switch state {
	case Speaking:
		return c.Pause(ctx)
	case Paused:
		return c.Resume(ctx)
	default:
		return c.Start(ctx)
	}
}

// Pause suspends the utterance in flight. Engines that can't suspend have it
// cancelled instead, and Resume speaks the paragraph again from its start.
func (c *Controller) Pause(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Speaking {
		return nil
	}

	// ErrNothingSpeaking means the utterance ended as the pause came in. Its
	// completion is already waiting on the lock and gets held until Resume.
	if err := c.engine.Pause(); err != nil && !errors.Is(err, tts.ErrNothingSpeaking) {
		logger.FromContext(ctx).Debug("pause unavailable, cancelling utterance", logger.Data{"reason": err.Error()})
		c.invalidateLocked()
		c.redispatch = true
	}

	c.setStateLocked(Paused)
	return c.persistLocked(ctx)
}

func (c *Controller) Resume(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Paused {
		return nil
	}
	return c.resumeLocked(ctx)
}

func (c *Controller) resumeLocked(ctx context.Context) error {
	if h := c.held; h != nil {
		c.held = nil
		c.setStateLocked(Speaking)
		c.completeLocked(ctx, h.err)
		return nil
	}

	if c.redispatch {
		c.redispatch = false
		return c.dispatchLocked(ctx)
	}

	if err := c.engine.Resume(); err != nil {
		logger.FromContext(ctx).Debug("resume unavailable, speaking paragraph again", logger.Data{"reason": err.Error()})
		c.invalidateLocked()
		return c.dispatchLocked(ctx)
	}

	c.setStateLocked(Speaking)
	return nil
}

// Stop cancels speech, keeps the cursor where it is and clears the highlight.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pending = nil
	if c.book == nil || c.state == Idle {
		return nil
	}
	return c.stopLocked(ctx)
}

func (c *Controller) NextPage(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireBookLocked(); err != nil {
		return err
	}
	return c.stepPageLocked(ctx, 1)
}

func (c *Controller) PrevPage(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireBookLocked(); err != nil {
		return err
	}
	return c.stepPageLocked(ctx, -1)
}

// stepPageLocked moves by delta pages. Stepping past either end is a no-op.
func (c *Controller) stepPageLocked(ctx context.Context, delta int) error {
	page := paginator.ClampPage(c.page+delta, c.pageSize, c.book.ParagraphCount())
	if page == c.page {
		return nil
	}
	return c.goToPageLocked(ctx, page)
}

func (c *Controller) GoToPage(ctx context.Context, page int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireBookLocked(); err != nil {
		return err
	}
	if page < 0 || page >= paginator.TotalPages(c.book.ParagraphCount(), c.pageSize) {
		return errcodes.InvalidInput(fmt.Sprintf("Page %d is out of range.", page+1))
	}
	return c.goToPageLocked(ctx, page)
}

// ApplyProgress moves the session to progress adopted from elsewhere, e.g. a
// newer remote position. Playback is stopped first.
func (c *Controller) ApplyProgress(ctx context.Context, progress models.Progress) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireBookLocked(); err != nil {
		return err
	}
	if !c.book.HasParagraph(progress.ParagraphIndex) {
		return errcodes.InvalidInput(fmt.Sprintf("Paragraph %d is out of range.", progress.ParagraphIndex))
	}

	if c.state != Idle {
		c.stopLocked(ctx)
	}
	c.cursor = progress.ParagraphIndex
	if page := paginator.PageOf(c.cursor, c.pageSize); page != c.page {
		c.page = page
		c.emitLocked(PageChanged, nil)
	}
	return c.persistLocked(ctx)
}

// VoicesChanged retries a start that failed for lack of voices.
func (c *Controller) VoicesChanged(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending == nil || c.book == nil || c.state != Idle {
		return nil
	}
	target := c.pending.target
	if !c.book.HasParagraph(target) {
		c.pending = nil
		return nil
	}
	return c.startLocked(ctx, target)
}

// WatchVoices calls VoicesChanged each time the engine reports new voices,
// until ctx is done.
func (c *Controller) WatchVoices(ctx context.Context) {
	log := logger.FromContext(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.engine.VoicesChanged():
			err := c.VoicesChanged(ctx)
			if err != nil && !errcodes.HasCode(err, errcodes.CodeVoiceUnavailable) {
				log.Err(err).Error("failed to start after voices changed")
			}
		}
	}
}

func (c *Controller) requireBookLocked() error {
	if c.book == nil {
		return errcodes.InvalidInput("No book is open.")
	}
	if c.book.ParagraphCount() == 0 {
		return errcodes.InvalidInput("The book has no paragraphs.")
	}
	return nil
}

func (c *Controller) startLocked(ctx context.Context, target int) error {
	voices, err := c.engine.Voices(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if len(voices) == 0 {
		c.pending = &pendingStart{target: target}
		return errcodes.VoiceUnavailable()
	}

	c.pending = nil
	c.lastErr = nil
	c.cursor = target
	return c.dispatchLocked(ctx)
}

// dispatchLocked speaks the paragraph under the cursor.
func (c *Controller) dispatchLocked(ctx context.Context) error {
	if page := paginator.PageOf(c.cursor, c.pageSize); page != c.page {
		c.page = page
		c.emitLocked(PageChanged, nil)
	}
	c.setHighlightLocked(c.cursor)
	c.setStateLocked(Speaking)
	if err := c.persistLocked(ctx); err != nil {
		logger.FromContext(ctx).Err(err).Error("failed to persist progress")
	}

	c.tag++
	tag := c.tag
	utt, err := c.engine.Speak(c.ctx, tts.SpeakRequest{
		Text:  c.book.Paragraphs[c.cursor],
		Voice: c.voice,
		Rate:  c.rate,
	})
	if err != nil {
		c.failLocked(ctx, err)
		return c.lastErr
	}

	go c.await(tag, utt)
	return nil
}

func (c *Controller) await(tag uint64, utt *tts.Utterance) {
	err := <-utt.Done()

	c.mu.Lock()
	defer c.mu.Unlock()

	if tag != c.tag {
		return
	}

	switch c.state {
	case Paused:
		c.held = &completion{err: err}
	case Speaking:
		c.completeLocked(c.ctx, err)
	}
}

// completeLocked handles the end of the utterance for the cursor's paragraph.
func (c *Controller) completeLocked(ctx context.Context, err error) {
	if err != nil {
		c.failLocked(ctx, err)
		return
	}

	if c.cursor+1 >= c.book.ParagraphCount() {
		c.setHighlightLocked(NoHighlight)
		c.setStateLocked(Idle)
		if err := c.persistLocked(ctx); err != nil {
			logger.FromContext(ctx).Err(err).Error("failed to persist progress")
		}
		return
	}

	c.cursor++
	// failures are reported through PlaybackFailed
	_ = c.dispatchLocked(ctx)
}

func (c *Controller) failLocked(ctx context.Context, cause error) {
	c.lastErr = errors.WithStack(errcodes.PlaybackFailed(cause))
	logger.FromContext(ctx).Err(cause).Error("playback failed", logger.Data{"book_id": c.book.ID, "paragraph": c.cursor})

	c.invalidateLocked()
	c.held = nil
	c.redispatch = false
	c.setHighlightLocked(NoHighlight)
	c.setStateLocked(Idle)
	if err := c.persistLocked(ctx); err != nil {
		logger.FromContext(ctx).Err(err).Error("failed to persist progress")
	}
	c.emitLocked(PlaybackFailed, c.lastErr)
}

func (c *Controller) stopLocked(ctx context.Context) error {
	c.invalidateLocked()
	c.held = nil
	c.redispatch = false
	c.setHighlightLocked(NoHighlight)
	c.setStateLocked(Idle)
	return c.persistLocked(ctx)
}

// invalidateLocked drops the in-flight utterance and any completion it might
// still deliver.
func (c *Controller) invalidateLocked() {
	c.tag++
	if err := c.engine.Cancel(); err != nil {
		logger.FromContext(c.ctx).Err(err).Warn("failed to cancel utterance")
	}
}

func (c *Controller) goToPageLocked(ctx context.Context, page int) error {
	start, end := paginator.RangeOf(page, c.pageSize, c.book.ParagraphCount())

	if c.state != Idle {
		c.stopLocked(ctx)
		c.page = page
		c.emitLocked(PageChanged, nil)
		return c.startLocked(ctx, start)
	}

	c.page = page
	c.emitLocked(PageChanged, nil)
	if c.cursor < start || c.cursor >= end {
		c.cursor = start
	}
	return c.persistLocked(ctx)
}

func (c *Controller) persistLocked(ctx context.Context) error {
	progress := models.NewProgress(c.cursor, c.pageSize)
	c.book.Progress = progress
	c.emitLocked(ProgressChanged, nil)

	if err := c.store.Persist(ctx, c.book.ID, progress); err != nil {
		return errors.WithStack(err)
	}
	return nil
}

func (c *Controller) setHighlightLocked(i int) {
	if c.highlight == i {
		return
	}
	c.highlight = i
	c.emitLocked(HighlightChanged, nil)
}

func (c *Controller) setStateLocked(s State) {
	if c.state == s {
		return
	}
	c.state = s
	c.emitLocked(StateChanged, nil)
}

func (c *Controller) emitLocked(t EventType, err error) {
	if len(c.listeners) == 0 {
		return
	}
	ev := Event{
		Type:      t,
		Page:      c.page,
		Highlight: c.highlight,
		State:     c.state,
		Err:       err,
	}
	if c.book != nil {
		ev.BookID = c.book.ID
		ev.Progress = c.book.Progress
	}
	for _, l := range c.listeners {
		l(ev)
	}
}
