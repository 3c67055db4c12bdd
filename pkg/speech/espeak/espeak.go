// Package espeak drives the espeak-ng command line synthesizer.
//
// Each utterance runs as one child process; Stop kills it, Pause and Resume
// suspend it with job-control signals where the platform has them.
package espeak

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os/exec"
	"strings"
	"sync"

	"github.com/aretw0/speeza/pkg/speech"
)

// Compile-time interface check.
var _ speech.Engine = (*Engine)(nil)

// DefaultBinary is looked up on PATH when no binary is configured.
const DefaultBinary = "espeak-ng"

// Words per minute espeak uses at the extremes of the normalized rate.
const (
	minWPM = 80
	maxWPM = 450
)

// Engine speaks through an espeak-ng child process.
type Engine struct {
	Binary string
	Logger *slog.Logger

	mu     sync.Mutex
	cmd    *exec.Cmd
	done   chan struct{}
	paused bool
}

// New creates an engine using binary (DefaultBinary when empty).
func New(binary string, logger *slog.Logger) *Engine {
	if binary == "" {
		binary = DefaultBinary
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{Binary: binary, Logger: logger}
}

// Available reports whether the binary can be found.
func (e *Engine) Available() bool {
	_, err := exec.LookPath(e.Binary)
	return err == nil
}

// WordsPerMinute maps a normalized rate onto espeak's -s scale.
func WordsPerMinute(rate float64) int {
	r := (speech.ClampRate(rate) - speech.MinRate) / (speech.MaxRate - speech.MinRate)
	return int(math.Round(minWPM + r*(maxWPM-minWPM)))
}

// Args builds the espeak-ng command line for u.
func Args(u speech.Utterance) []string {
	args := []string{"-s", fmt.Sprint(WordsPerMinute(u.Rate))}
	switch {
	case u.Voice != "":
		args = append(args, "-v", u.Voice)
	case u.Language != "":
		args = append(args, "-v", strings.ToLower(u.Language))
	}
	return append(args, "--", u.Text)
}

// Speak stops the current process and starts a new one for u.
func (e *Engine) Speak(ctx context.Context, u speech.Utterance) error {
	_ = e.Stop()

	args := Args(u)
	e.Logger.Debug("executing espeak", "binary", e.Binary, "args", args[:len(args)-1])

	cmd := exec.Command(e.Binary, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("espeak start failed: %w", err)
	}

	done := make(chan struct{})
	e.mu.Lock()
	e.cmd = cmd
	e.done = done
	e.paused = false
	e.mu.Unlock()

	go func() {
		err := cmd.Wait()
		e.mu.Lock()
		if e.cmd == cmd {
			e.cmd = nil
			e.paused = false
		}
		e.mu.Unlock()
		close(done)
		if err != nil {
			e.Logger.Debug("espeak exited", "error", err)
		}
	}()
	return nil
}

// Stop kills the running process, if any, and waits for it to exit.
func (e *Engine) Stop() error {
	e.mu.Lock()
	cmd, done := e.cmd, e.done
	e.cmd = nil
	e.paused = false
	e.mu.Unlock()

	if cmd == nil {
		return nil
	}
	if err := cmd.Process.Kill(); err != nil {
		e.Logger.Debug("espeak kill failed", "error", err)
	}
	<-done
	return nil
}

// Pause suspends the running process.
func (e *Engine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cmd == nil || e.paused {
		return nil
	}
	if err := suspend(e.cmd); err != nil {
		return err
	}
	e.paused = true
	return nil
}

// Resume continues a suspended process.
func (e *Engine) Resume() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cmd == nil || !e.paused {
		return nil
	}
	if err := resume(e.cmd); err != nil {
		return err
	}
	e.paused = false
	return nil
}

// IsSpeaking reports whether a process is running.
func (e *Engine) IsSpeaking() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cmd != nil
}

// ListVoices runs `espeak-ng --voices` and parses the table.
func (e *Engine) ListVoices(ctx context.Context) ([]speech.Voice, error) {
	out, err := exec.CommandContext(ctx, e.Binary, "--voices").Output()
	if err != nil {
		return nil, fmt.Errorf("espeak --voices failed: %w", err)
	}
	return ParseVoices(strings.NewReader(string(out)))
}

// ParseVoices reads the output of `espeak-ng --voices`:
//
//	Pty Language       Age/Gender VoiceName          File                 Other Languages
//	 5  af              --/M      Afrikaans          gmw/af
//	 5  en-us           --/M      English_(America)  gmw/en-US            (en 3)
//
// Languages are normalized to BCP 47 casing ("en-us" -> "en-US").
func ParseVoices(r io.Reader) ([]speech.Voice, error) {
	var voices []speech.Voice
	sc := bufio.NewScanner(r)
	header := true
	for sc.Scan() {
		if header {
			header = false
			continue
		}
		fields := strings.Fields(sc.Text())
		if len(fields) < 4 {
			continue
		}
		voices = append(voices, speech.Voice{
			Name:     fields[3],
			Language: normalizeLanguage(fields[1]),
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading voice list: %w", err)
	}
	return voices, nil
}

func normalizeLanguage(code string) string {
	parts := strings.Split(code, "-")
	for i := 1; i < len(parts); i++ {
		if len(parts[i]) == 2 {
			parts[i] = strings.ToUpper(parts[i])
		}
	}
	return strings.Join(parts, "-")
}
