//go:build !windows

package tts

import (
	"os"
	"syscall"

	"github.com/pkg/errors"
)

func suspend(p *os.Process) error {
	return errors.WithStack(p.Signal(syscall.SIGSTOP))
}

func resume(p *os.Process) error {
	return errors.WithStack(p.Signal(syscall.SIGCONT))
}
