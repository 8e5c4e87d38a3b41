//go:build !windows

package tts

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fakeSpeaker = `#!/bin/sh
if [ "$1" = "--voices" ]; then
  echo "Pty Language       Age/Gender VoiceName          File                 Other Languages"
  echo " 2  en-us           --/M      English_(America)  gmw/en-US"
  exit 0
fi
cat > /dev/null
if [ -n "$FAKE_SPEAKER_FAIL" ]; then
  echo "bad voice" >&2
  exit 1
fi
exec sleep "${FAKE_SPEAKER_SLEEP:-0}"
`

func newFakeSpeaker(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-espeak")
	require.NoError(t, os.WriteFile(path, []byte(fakeSpeaker), 0755))
	return path
}

func TestNewCommandEngine_MissingBinary(t *testing.T) {
	t.Parallel()

	_, err := NewCommandEngine(CommandConfig{BinaryPath: "/nonexistent/espeak-ng"})
	assert.True(t, errors.Is(err, ErrBinaryNotFound))
}

func TestCommandEngine_LoadVoices(t *testing.T) {
	t.Parallel()

	e, err := NewCommandEngine(CommandConfig{BinaryPath: newFakeSpeaker(t)})
	require.NoError(t, err)

	voices, err := e.Voices(context.Background())
	require.NoError(t, err)
	assert.Empty(t, voices)

	require.NoError(t, e.LoadVoices(context.Background()))
	select {
	case <-e.VoicesChanged():
	case <-time.After(time.Second):
		t.Fatal("voices changed was not signalled")
	}

	voices, err = e.Voices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Voice{{Name: "English_(America)", Language: "en-us"}}, voices)
}

func TestCommandEngine_Speak(t *testing.T) {
	t.Setenv("FAKE_SPEAKER_SLEEP", "0")

	e, err := NewCommandEngine(CommandConfig{BinaryPath: newFakeSpeaker(t)})
	require.NoError(t, err)

	utt, err := e.Speak(context.Background(), SpeakRequest{Text: "hello", Rate: 1.5})
	require.NoError(t, err)

	select {
	case err := <-utt.Done():
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("utterance never finished")
	}
}

func TestCommandEngine_SpeakFailure(t *testing.T) {
	t.Setenv("FAKE_SPEAKER_FAIL", "1")

	e, err := NewCommandEngine(CommandConfig{BinaryPath: newFakeSpeaker(t)})
	require.NoError(t, err)

	utt, err := e.Speak(context.Background(), SpeakRequest{Text: "hello"})
	require.NoError(t, err)

	select {
	case err := <-utt.Done():
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bad voice")
	case <-time.After(5 * time.Second):
		t.Fatal("utterance never finished")
	}
}

func TestCommandEngine_PauseResumeCancel(t *testing.T) {
	t.Setenv("FAKE_SPEAKER_SLEEP", "30")

	e, err := NewCommandEngine(CommandConfig{BinaryPath: newFakeSpeaker(t)})
	require.NoError(t, err)

	assert.True(t, errors.Is(e.Pause(), ErrNothingSpeaking))

	utt, err := e.Speak(context.Background(), SpeakRequest{Text: "hello"})
	require.NoError(t, err)

	require.NoError(t, e.Pause())
	require.NoError(t, e.Resume())
	require.NoError(t, e.Pause())
	require.NoError(t, e.Cancel())

	select {
	case err := <-utt.Done():
		assert.True(t, errors.Is(err, ErrCancelled))
	case <-time.After(5 * time.Second):
		t.Fatal("cancel did not resolve the utterance")
	}
}
