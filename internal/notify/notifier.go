package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	goruntime "runtime"

	shellwords "github.com/mattn/go-shellwords"
	"github.com/pkg/browser"

	"audio-transcriptor/internal/config"
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

// Desktop sends best-effort desktop notifications. Delivery failures are
// swallowed: notifications are never on the critical path of a run.
type Desktop struct {
	enabled bool
	command []string
	goos    string
	runner  commandRunner
	log     *slog.Logger
}

// NewDesktop builds a notifier from config. A configured custom command takes
// precedence over the per-platform default and is parsed shell-style.
func NewDesktop(cfg config.NotifyConfig, log *slog.Logger) (*Desktop, error) {
	var command []string
	if cfg.Command != "" {
		parser := shellwords.NewParser()
		args, err := parser.Parse(cfg.Command)
		if err != nil {
			return nil, fmt.Errorf("parse notify command: %w", err)
		}
		if len(args) == 0 {
			return nil, fmt.Errorf("notify command is empty")
		}
		command = args
	}

	return &Desktop{
		enabled: cfg.Enabled,
		command: command,
		goos:    goruntime.GOOS,
		runner:  &execRunner{},
		log:     log,
	}, nil
}

// NewDesktopForTests builds a notifier with injectable platform and runner.
func NewDesktopForTests(enabled bool, command []string, goos string, runner commandRunner, log *slog.Logger) *Desktop {
	return &Desktop{
		enabled: enabled,
		command: command,
		goos:    goos,
		runner:  runner,
		log:     log,
	}
}

// Notify fires one desktop notification with title, message, and sound flag.
func (d *Desktop) Notify(ctx context.Context, title, message string, sound bool) {
	if !d.enabled {
		return
	}

	name, args := d.buildCommand(title, message, sound)
	if name == "" {
		return
	}

	if _, err := d.runner.Run(ctx, name, args...); err != nil && d.log != nil {
		d.log.Debug("notification delivery failed",
			slog.String("command", name),
			slog.String("error", err.Error()))
	}
}

// buildCommand maps a notification to the platform notifier invocation.
func (d *Desktop) buildCommand(title, message string, sound bool) (string, []string) {
	if len(d.command) > 0 {
		return d.command[0], append(append([]string{}, d.command[1:]...), title, message)
	}

	switch d.goos {
	case "darwin":
		script := fmt.Sprintf("display notification %q with title %q", message, title)
		if sound {
			script += ` sound name "Glass"`
		}
		return "osascript", []string{"-e", script}
	case "windows":
		// No stock CLI notifier on Windows; users set notify.command instead.
		return "", nil
	default:
		return "notify-send", []string{title, message}
	}
}

// Reveal opens path in the platform file browser, best-effort.
func (d *Desktop) Reveal(path string) {
	if err := browser.OpenFile(path); err != nil && d.log != nil {
		d.log.Debug("open file browser failed",
			slog.String("path", path),
			slog.String("error", err.Error()))
	}
}
