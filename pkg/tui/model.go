package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/xreader/xreader/pkg/models"
	"github.com/xreader/xreader/pkg/paginator"
	"github.com/xreader/xreader/pkg/playback"
	"github.com/xreader/xreader/pkg/search"
	"github.com/xreader/xreader/pkg/tts"
)

// Player is the part of the playback controller the reader drives.
type Player interface {
	Subscribe(l playback.Listener)
	Session() playback.Session
	DisplayedParagraphs() (int, []string)
	Err() error
	Toggle(ctx context.Context) error
	Stop(ctx context.Context) error
	NextPage(ctx context.Context) error
	PrevPage(ctx context.Context) error
	GoToPage(ctx context.Context, page int) error
	JumpTo(ctx context.Context, i int) error
	ApplyProgress(ctx context.Context, progress models.Progress) error
	SetRate(rate float64)
}

type Options struct {
	PageSize int
	// SaveRate persists a rate change. Optional.
	SaveRate func(ctx context.Context, rate float64) error
	// PullRemote fetches newer progress from the sync server. It reports
	// false when there is nothing newer to adopt. Optional.
	PullRemote func(ctx context.Context) (models.Progress, bool, error)
}

type mode int

const (
	modeRead mode = iota
	modeSearchInput
	modeSearchResults
)

// refreshMsg tells the model to re-read the session.
type refreshMsg struct{}

type actionMsg struct {
	err    error
	notice string
	// moved means the reading position changed and the selection follows it.
	moved bool
}

type Model struct {
	ctx      context.Context
	player   Player
	book     *models.Book
	pageSize int
	saveRate func(ctx context.Context, rate float64) error
	pull     func(ctx context.Context) (models.Progress, bool, error)

	session    playback.Session
	start      int
	paragraphs []string
	selected   int
	err        error
	notice     string

	mode     mode
	query    string
	results  []search.Result
	resultAt int

	width    int
	height   int
	quitting bool
}

func New(ctx context.Context, player Player, book *models.Book, opts Options) Model {
	if opts.PageSize <= 0 {
		opts.PageSize = paginator.DefaultPageSize
	}
	m := Model{
		ctx:      ctx,
		player:   player,
		book:     book,
		pageSize: opts.PageSize,
		saveRate: opts.SaveRate,
		pull:     opts.PullRemote,
		width:    80,
		height:   24,
	}
	m.refresh()
	m.selected = m.session.Cursor
	m.clampSelection()
	return m
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case refreshMsg:
		m.refresh()
		return m, nil

	case actionMsg:
		m.err = msg.err
		if msg.notice != "" {
			m.notice = msg.notice
		}
		m.refresh()
		if msg.moved {
			m.selected = m.session.Cursor
			m.clampSelection()
		}
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case modeSearchInput:
			return m.updateSearchInput(msg)
		case modeSearchResults:
			return m.updateSearchResults(msg)
		default:
			return m.updateRead(msg)
		}
	}

	return m, nil
}

func (m Model) updateRead(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case " ":
		return m, m.do(m.player.Toggle)

	case "s":
		return m, m.do(m.player.Stop)

	case "n", "right", "pgdown":
		return m, m.do(m.player.NextPage)

	case "p", "left", "pgup":
		return m, m.do(m.player.PrevPage)

	case "j", "down":
		m.selected++
		m.clampSelection()
		return m, nil

	case "k", "up":
		m.selected--
		m.clampSelection()
		return m, nil

	case "enter":
		i := m.selected
		return m, m.do(func(ctx context.Context) error {
			return m.player.JumpTo(ctx, i)
		})

	case "+", "=":
		return m.changeRate(1)

	case "-":
		return m.changeRate(-1)

	case "/":
		m.mode = modeSearchInput
		m.query = ""
		return m, nil

	case "r":
		return m, m.pullRemote()

	case "q", "Q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) updateSearchInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = modeRead
	case tea.KeyEnter:
		m.results = search.Search(m.book.Paragraphs, m.query)
		m.resultAt = 0
		m.mode = modeSearchResults
	case tea.KeyBackspace:
		if r := []rune(m.query); len(r) > 0 {
			m.query = string(r[:len(r)-1])
		}
	case tea.KeySpace:
		m.query += " "
	case tea.KeyRunes:
		m.query += string(msg.Runes)
	case tea.KeyCtrlC:
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) updateSearchResults(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q":
		m.mode = modeRead
	case "j", "down":
		if m.resultAt < len(m.results)-1 {
			m.resultAt++
		}
	case "k", "up":
		if m.resultAt > 0 {
			m.resultAt--
		}
	case "/":
		m.mode = modeSearchInput
	case "enter":
		m.mode = modeRead
		if len(m.results) == 0 {
			return m, nil
		}
		i := m.results[m.resultAt].ParagraphIndex
		m.selected = i
		if m.session.State != playback.Idle {
			return m, m.do(func(ctx context.Context) error {
				return m.player.JumpTo(ctx, i)
			})
		}
		page := paginator.PageOf(i, m.pageSize)
		return m, m.do(func(ctx context.Context) error {
			return m.player.GoToPage(ctx, page)
		})
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) changeRate(steps int) (tea.Model, tea.Cmd) {
	rate := tts.StepRate(m.session.Rate, steps)
	m.player.SetRate(rate)
	m.session.Rate = rate
	m.notice = fmt.Sprintf("Rate %.1fx applies from the next paragraph.", rate)
	if m.saveRate == nil {
		return m, nil
	}
	save := m.saveRate
	return m, m.do(func(ctx context.Context) error {
		return save(ctx, rate)
	})
}

// pullRemote moves the session to newer progress from another device. The
// key press is the confirmation.
func (m Model) pullRemote() tea.Cmd {
	if m.pull == nil {
		return nil
	}
	ctx := m.ctx
	pull := m.pull
	player := m.player
	return func() tea.Msg {
		progress, ok, err := pull(ctx)
		if err != nil {
			return actionMsg{err: err}
		}
		if !ok {
			return actionMsg{notice: "No newer position on the sync server."}
		}
		if err := player.ApplyProgress(ctx, progress); err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{
			notice: fmt.Sprintf("Moved to paragraph %d from the sync server.", progress.ParagraphIndex+1),
			moved:  true,
		}
	}
}

func (m Model) do(fn func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return actionMsg{err: fn(ctx)}
	}
}

func (m *Model) refresh() {
	prevPage := m.session.DisplayPage
	hadBook := m.session.BookID != ""

	m.session = m.player.Session()
	m.start, m.paragraphs = m.player.DisplayedParagraphs()
	if err := m.player.Err(); err != nil {
		m.err = err
	}

	switch {
	case m.session.Highlight != playback.NoHighlight:
		m.selected = m.session.Highlight
	case hadBook && prevPage != m.session.DisplayPage && !m.onPage(m.selected):
		m.selected = m.start
	}
	m.clampSelection()
}

func (m *Model) onPage(i int) bool {
	return i >= m.start && i < m.start+len(m.paragraphs)
}

func (m *Model) clampSelection() {
	if len(m.paragraphs) == 0 {
		m.selected = 0
		return
	}
	if m.selected < m.start {
		m.selected = m.start
	}
	if last := m.start + len(m.paragraphs) - 1; m.selected > last {
		m.selected = last
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(m.header())
	sb.WriteString("\n\n")

	switch m.mode {
	case modeSearchInput:
		sb.WriteString(titleStyle.Render("Search: ") + m.query + "█")
		sb.WriteString("\n")
	case modeSearchResults:
		sb.WriteString(m.resultsView())
	default:
		sb.WriteString(m.pageView())
	}

	sb.WriteString("\n")
	if m.err != nil {
		sb.WriteString(errorStyle.Render("Error: " + m.err.Error()))
		sb.WriteString("\n")
	} else if m.notice != "" {
		sb.WriteString(statusStyle.Render(m.notice))
		sb.WriteString("\n")
	}
	sb.WriteString(controlsStyle.Render(m.controls()))
	return sb.String()
}

func (m Model) header() string {
	s := m.session
	state := s.State.String()
	if s.State == playback.Paused {
		state = pausedStyle.Render("[PAUSED]")
	}
	page := 0
	if s.TotalPages > 0 {
		page = s.DisplayPage + 1
	}
	status := statusStyle.Render(fmt.Sprintf("Page %d/%d | %d%% | %s | %.1fx | %s",
		page, s.TotalPages, s.PercentRead, voiceLabel(s.Voice), s.Rate, state))
	return titleStyle.Render(displayName(s.BookName)) + status
}

func (m Model) pageView() string {
	width := m.width - 4
	if width < 20 {
		width = 20
	}

	blocks := make([]string, 0, len(m.paragraphs))
	focus := 0
	for offset, text := range m.paragraphs {
		i := m.start + offset
		style := paragraphStyle
		marker := "  "
		if i == m.selected {
			style = selectedStyle
			marker = "> "
			focus = offset
		}
		if i == m.session.Highlight {
			style = speakingStyle
		}
		blocks = append(blocks, marker+style.Width(width).Render(text))
	}

	return strings.Join(visibleBlocks(blocks, focus, m.height-5), "\n") + "\n"
}

// visibleBlocks drops blocks from the top until the focused block and the
// blocks before it fit in avail lines.
func visibleBlocks(blocks []string, focus, avail int) []string {
	if avail < 1 {
		avail = 1
	}
	from := 0
	for from < focus {
		lines := 0
		for _, b := range blocks[from : focus+1] {
			lines += strings.Count(b, "\n") + 1
		}
		if lines <= avail {
			break
		}
		from++
	}
	return blocks[from:]
}

func (m Model) resultsView() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(fmt.Sprintf("%d results for %q", len(m.results), m.query)))
	sb.WriteString("\n")
	if len(m.results) == 0 {
		sb.WriteString(paragraphStyle.Render("No matches."))
		sb.WriteString("\n")
		return sb.String()
	}
	for idx, r := range m.results {
		line := fmt.Sprintf("%5d  %s", r.ParagraphIndex+1, truncate(r.Text, m.width-10))
		if idx == m.resultAt {
			sb.WriteString(selectedStyle.Render("> " + line))
		} else {
			sb.WriteString(paragraphStyle.Render("  " + line))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m Model) controls() string {
	switch m.mode {
	case modeSearchInput:
		return "ENTER: search  ESC: cancel"
	case modeSearchResults:
		return "↑/↓: select  ENTER: go to  /: new search  ESC: back"
	default:
		return "SPACE: play/pause  S: stop  ←/→: page  ↑/↓ ENTER: read from  +/-: rate  /: search  R: pull sync  Q: quit"
	}
}

// displayName drops the file extension from a book name.
func displayName(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

func voiceLabel(name string) string {
	if name == "" {
		return "default voice"
	}
	return name
}

func truncate(s string, n int) string {
	if n < 10 {
		n = 10
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
