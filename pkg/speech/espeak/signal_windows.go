//go:build windows

package espeak

import (
	"os/exec"

	"github.com/aretw0/speeza/pkg/speech"
)

func suspend(cmd *exec.Cmd) error { return speech.ErrUnsupported }
func resume(cmd *exec.Cmd) error  { return speech.ErrUnsupported }
