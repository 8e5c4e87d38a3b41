//go:build windows

package tts

import "os"

func suspend(_ *os.Process) error {
	return ErrPauseUnsupported
}

func resume(_ *os.Process) error {
	return ErrPauseUnsupported
}
