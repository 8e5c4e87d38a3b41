package playback

import "github.com/xreader/xreader/pkg/models"

type State int

const (
	Idle State = iota
	Speaking
	Paused
)

func (s State) String() string {
	switch s {
	case Speaking:
		return "speaking"
	case Paused:
		return "paused"
	default:
		return "idle"
	}
}

// NoHighlight is the highlighted paragraph when nothing is highlighted.
const NoHighlight = -1

type EventType int

const (
	PageChanged EventType = iota + 1
	HighlightChanged
	ProgressChanged
	StateChanged
	PlaybackFailed
)

func (t EventType) String() string {
	switch t {
	case PageChanged:
		return "page_changed"
	case HighlightChanged:
		return "highlight_changed"
	case ProgressChanged:
		return "progress_changed"
	case StateChanged:
		return "state_changed"
	case PlaybackFailed:
		return "playback_failed"
	default:
		return "unknown"
	}
}

// Event reports a change to the session. Every event carries a full snapshot
// of the fields below; Err is only set on PlaybackFailed.
type Event struct {
	Type      EventType
	BookID    string
	Page      int
	Highlight int
	Progress  models.Progress
	State     State
	Err       error
}

// Listener receives events synchronously while the controller is locked. It
// must not call back into the controller.
type Listener func(Event)

// Session is a point-in-time view of the reading session.
type Session struct {
	BookID         string
	BookName       string
	State          State
	Cursor         int
	DisplayPage    int
	TotalPages     int
	Highlight      int
	ParagraphCount int
	PercentRead    int
	Voice          string
	Rate           float64
}
