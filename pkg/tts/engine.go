package tts

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var (
	// ErrPauseUnsupported is returned by engines that can only cancel an
	// utterance, not suspend it.
	ErrPauseUnsupported = errors.New("pause is not supported by this engine")
	// ErrNothingSpeaking is returned by Pause and Resume when no utterance is
	// in flight.
	ErrNothingSpeaking = errors.New("nothing is being spoken")
	// ErrCancelled resolves an utterance that was cancelled before it ended.
	ErrCancelled = errors.New("utterance cancelled")
)

// Voice is a voice an engine can speak with.
type Voice struct {
	Name     string
	Language string
	Default  bool
}

// SpeakRequest is a single paragraph to speak.
type SpeakRequest struct {
	Text  string
	Voice string
	Rate  float64
}

// Engine is a text-to-speech backend that speaks one utterance at a time.
type Engine interface {
	// Name returns the engine identifier.
	Name() string
	// Voices returns the voices known so far. The list can be empty until
	// the engine has finished discovering them.
	Voices(ctx context.Context) ([]Voice, error)
	// VoicesChanged receives a value whenever the voice list changes.
	VoicesChanged() <-chan struct{}
	// Speak starts speaking req, replacing anything in flight.
	Speak(ctx context.Context, req SpeakRequest) (*Utterance, error)
	Pause() error
	Resume() error
	// Cancel stops the utterance in flight and returns once it has ended.
	Cancel() error
}

// Utterance resolves exactly once: with nil when speech ended normally or
// with the error that ended it.
type Utterance struct {
	ID   string
	Text string

	done chan error
	once sync.Once
}

func NewUtterance(text string) *Utterance {
	return &Utterance{
		ID:   uuid.New().String(),
		Text: text,
		done: make(chan error, 1),
	}
}

// Done yields the outcome once, then is closed.
func (u *Utterance) Done() <-chan error {
	return u.done
}

// Finish resolves the utterance. Only the first call has any effect.
func (u *Utterance) Finish(err error) {
	u.once.Do(func() {
		u.done <- err
		close(u.done)
	})
}
