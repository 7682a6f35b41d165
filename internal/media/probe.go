package media

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-audio/wav"
)

// commandResult is an internal process execution response.
type commandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// commandRunner abstracts process execution for testability.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) (commandResult, error)
}

// execRunner executes commands via os/exec.
type execRunner struct{}

// Run executes one command and captures stdout/stderr and exit code.
func (r *execRunner) Run(ctx context.Context, name string, args ...string) (commandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := commandResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: 0,
	}
	if err != nil {
		result.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
		return result, err
	}

	return result, nil
}

// secondsPerMB approximates playback seconds per megabyte of audio.
const secondsPerMB = 6.0

// Prober reports audio durations. It never fails: when ffprobe is missing or
// unusable it degrades to the WAV header and finally to a size heuristic.
type Prober struct {
	ffprobePath string
	runner      commandRunner
	stat        func(string) (os.FileInfo, error)
	open        func(string) (*os.File, error)
}

// NewProber builds a prober that shells out to the given ffprobe binary.
func NewProber(ffprobePath string) *Prober {
	return &Prober{
		ffprobePath: ffprobePath,
		runner:      &execRunner{},
		stat:        os.Stat,
		open:        os.Open,
	}
}

// NewProberForTests builds a prober with injectable dependencies.
func NewProberForTests(
	ffprobePath string,
	runner commandRunner,
	stat func(string) (os.FileInfo, error),
	open func(string) (*os.File, error),
) *Prober {
	return &Prober{
		ffprobePath: ffprobePath,
		runner:      runner,
		stat:        stat,
		open:        open,
	}
}

// Duration returns the audio duration of path in seconds. The result may be
// an estimate but is always usable.
func (p *Prober) Duration(ctx context.Context, path string) float64 {
	args := buildFFprobeArgs(path)
	if result, err := p.runner.Run(ctx, p.ffprobePath, args...); err == nil {
		if seconds, parseErr := strconv.ParseFloat(strings.TrimSpace(result.Stdout), 64); parseErr == nil && seconds > 0 {
			return seconds
		}
	}

	if strings.EqualFold(filepath.Ext(path), ".wav") {
		if seconds, ok := p.wavDuration(path); ok {
			return seconds
		}
	}

	info, err := p.stat(path)
	if err != nil {
		return 0
	}
	sizeMB := float64(info.Size()) / (1024 * 1024)
	return sizeMB * secondsPerMB
}

// wavDuration reads duration from the WAV header without external tools.
func (p *Prober) wavDuration(path string) (float64, bool) {
	f, err := p.open(path)
	if err != nil {
		return 0, false
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	duration, err := decoder.Duration()
	if err != nil || duration <= 0 {
		return 0, false
	}
	return duration.Seconds(), true
}

// buildFFprobeArgs builds CLI args that print plain duration seconds.
func buildFFprobeArgs(path string) []string {
	return []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}
}
