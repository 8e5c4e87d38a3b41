package tts

import (
	"bufio"
	"bytes"
	"context"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
)

// ErrBinaryNotFound is returned when the speech binary isn't on the PATH.
var ErrBinaryNotFound = errors.New("speech binary not found")

const defaultWordsPerMinute = 175

type CommandConfig struct {
	// BinaryPath is the espeak-ng compatible executable.
	BinaryPath string
	// DefaultVoice is used when a request names no voice.
	DefaultVoice string
	// WordsPerMinute is the speed at rate 1.0.
	WordsPerMinute int
}

// CommandEngine speaks through an espeak-ng compatible executable, one
// process per utterance.
type CommandEngine struct {
	cfg CommandConfig

	mu      sync.Mutex
	voices  []Voice
	changed chan struct{}
	current *process
}

type process struct {
	cmd    *exec.Cmd
	cancel context.CancelFunc
	done   chan struct{}
	paused bool
}

func NewCommandEngine(cfg CommandConfig) (*CommandEngine, error) {
	if cfg.BinaryPath == "" {
		cfg.BinaryPath = "espeak-ng"
	}
	if cfg.WordsPerMinute <= 0 {
		cfg.WordsPerMinute = defaultWordsPerMinute
	}

	if _, err := exec.LookPath(cfg.BinaryPath); err != nil {
		return nil, errors.Wrap(ErrBinaryNotFound, cfg.BinaryPath)
	}

	return &CommandEngine{
		cfg:     cfg,
		changed: make(chan struct{}, 1),
	}, nil
}

func (e *CommandEngine) Name() string {
	return filepath.Base(e.cfg.BinaryPath)
}

func (e *CommandEngine) Voices(_ context.Context) ([]Voice, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	voices := make([]Voice, len(e.voices))
	copy(voices, e.voices)
	return voices, nil
}

func (e *CommandEngine) VoicesChanged() <-chan struct{} {
	return e.changed
}

// LoadVoices asks the binary for its voice list and signals VoicesChanged.
func (e *CommandEngine) LoadVoices(ctx context.Context) error {
	out, err := exec.CommandContext(ctx, e.cfg.BinaryPath, "--voices").Output()
	if err != nil {
		return errors.Wrap(err, "failed to list voices")
	}

	voices := parseVoices(out, e.cfg.DefaultVoice)

	e.mu.Lock()
	e.voices = voices
	e.mu.Unlock()

	logger.FromContext(ctx).Info("voices loaded", logger.Data{"engine": e.Name(), "count": len(voices)})

	select {
	case e.changed <- struct{}{}:
	default:
	}
	return nil
}

// parseVoices reads the table printed by `espeak-ng --voices`:
//
//	Pty Language       Age/Gender VoiceName          File                 Other Languages
//	 5  af              --/M      Afrikaans          gmw/af
func parseVoices(out []byte, defaultVoice string) []Voice {
	voices := []Voice{}
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 || fields[0] == "Pty" {
			continue
		}
		v := Voice{Language: fields[1], Name: fields[3]}
		v.Default = defaultVoice != "" && (v.Name == defaultVoice || v.Language == defaultVoice)
		voices = append(voices, v)
	}
	return voices
}

func (e *CommandEngine) Speak(ctx context.Context, req SpeakRequest) (*Utterance, error) {
	if err := e.Cancel(); err != nil {
		return nil, err
	}

	voice := req.Voice
	if voice == "" {
		voice = e.cfg.DefaultVoice
	}
	rate := req.Rate
	if rate <= 0 {
		rate = 1
	}

	args := []string{"-s", strconv.Itoa(int(float64(e.cfg.WordsPerMinute) * rate))}
	if voice != "" {
		args = append(args, "-v", voice)
	}
	args = append(args, "--stdin")

	procCtx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(procCtx, e.cfg.BinaryPath, args...)
	cmd.Stdin = strings.NewReader(req.Text)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, errors.Wrap(err, "failed to start speech process")
	}

	log := logger.FromContext(ctx)
	utt := NewUtterance(req.Text)
	proc := &process{cmd: cmd, cancel: cancel, done: make(chan struct{})}

	e.mu.Lock()
	e.current = proc
	e.mu.Unlock()

	log.Debug("speaking", logger.Data{"utterance_id": utt.ID, "voice": voice, "rate": rate, "text_length": len(req.Text)})

	go func() {
		err := cmd.Wait()
		switch {
		case procCtx.Err() != nil:
			err = ErrCancelled
		case err != nil:
			err = errors.Wrapf(err, "speech process failed: %s", strings.TrimSpace(stderr.String()))
		}

		e.mu.Lock()
		if e.current == proc {
			e.current = nil
		}
		e.mu.Unlock()

		cancel()
		close(proc.done)
		utt.Finish(err)
	}()

	return utt, nil
}

func (e *CommandEngine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil {
		return ErrNothingSpeaking
	}
	if e.current.paused {
		return nil
	}
	if err := suspend(e.current.cmd.Process); err != nil {
		return err
	}
	e.current.paused = true
	return nil
}

func (e *CommandEngine) Resume() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil {
		return ErrNothingSpeaking
	}
	if !e.current.paused {
		return nil
	}
	if err := resume(e.current.cmd.Process); err != nil {
		return err
	}
	e.current.paused = false
	return nil
}

func (e *CommandEngine) Cancel() error {
	e.mu.Lock()
	proc := e.current
	paused := proc != nil && proc.paused
	e.mu.Unlock()

	if proc == nil {
		return nil
	}

	proc.cancel()
	if paused {
		// a stopped process has to be continued before it can exit
		_ = resume(proc.cmd.Process)
	}
	<-proc.done
	return nil
}
