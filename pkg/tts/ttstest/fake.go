// Package ttstest provides an in-memory tts.Engine whose utterances are
// completed by the test.
package ttstest

import (
	"context"
	"sync"

	"github.com/xreader/xreader/pkg/tts"
)

type Engine struct {
	mu          sync.Mutex
	voices      []tts.Voice
	changed     chan struct{}
	spoken      []tts.SpeakRequest
	current     *tts.Utterance
	outstanding int
	maxInFlight int
	paused      bool

	// PauseErr, when set, is returned by Pause.
	PauseErr error
	// SpeakErr, when set, is returned by Speak.
	SpeakErr error
}

// New returns a fake engine with the given voices.
func New(voices ...tts.Voice) *Engine {
	return &Engine{
		voices:  voices,
		changed: make(chan struct{}, 1),
	}
}

func (e *Engine) Name() string {
	return "fake"
}

func (e *Engine) Voices(_ context.Context) ([]tts.Voice, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]tts.Voice(nil), e.voices...), nil
}

func (e *Engine) VoicesChanged() <-chan struct{} {
	return e.changed
}

// SetVoices replaces the voice list and signals VoicesChanged.
func (e *Engine) SetVoices(voices ...tts.Voice) {
	e.mu.Lock()
	e.voices = voices
	e.mu.Unlock()

	select {
	case e.changed <- struct{}{}:
	default:
	}
}

func (e *Engine) Speak(_ context.Context, req tts.SpeakRequest) (*tts.Utterance, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.SpeakErr != nil {
		return nil, e.SpeakErr
	}
	e.cancelLocked()

	utt := tts.NewUtterance(req.Text)
	e.current = utt
	e.spoken = append(e.spoken, req)
	e.outstanding++
	if e.outstanding > e.maxInFlight {
		e.maxInFlight = e.outstanding
	}
	return utt, nil
}

func (e *Engine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.PauseErr != nil {
		return e.PauseErr
	}
	if e.current == nil {
		return tts.ErrNothingSpeaking
	}
	e.paused = true
	return nil
}

func (e *Engine) Resume() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return tts.ErrNothingSpeaking
	}
	e.paused = false
	return nil
}

func (e *Engine) Cancel() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancelLocked()
	return nil
}

func (e *Engine) cancelLocked() {
	if e.current == nil {
		return
	}
	e.current.Finish(tts.ErrCancelled)
	e.current = nil
	e.outstanding--
	e.paused = false
}

// Complete ends the utterance in flight with err (nil for a normal end). It
// reports false when nothing is being spoken.
func (e *Engine) Complete(err error) bool {
	e.mu.Lock()
	utt := e.current
	if utt != nil {
		e.current = nil
		e.outstanding--
		e.paused = false
	}
	e.mu.Unlock()

	if utt == nil {
		return false
	}
	utt.Finish(err)
	return true
}

// Spoken returns every request passed to Speak, in order.
func (e *Engine) Spoken() []tts.SpeakRequest {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]tts.SpeakRequest(nil), e.spoken...)
}

// SpokenTexts returns the text of every request passed to Speak.
func (e *Engine) SpokenTexts() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	texts := make([]string, 0, len(e.spoken))
	for _, req := range e.spoken {
		texts = append(texts, req.Text)
	}
	return texts
}

// Speaking reports whether an utterance is in flight.
func (e *Engine) Speaking() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current != nil
}

func (e *Engine) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

// MaxInFlight is the highest number of unresolved utterances seen at once.
func (e *Engine) MaxInFlight() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.maxInFlight
}
