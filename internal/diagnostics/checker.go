package diagnostics

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"audio-transcriptor/internal/config"
	"audio-transcriptor/internal/domain"
)

// Checker validates external tools and required filesystem paths before a
// batch starts.
type Checker struct {
	lookPath   func(string) (string, error)
	stat       func(string) (os.FileInfo, error)
	readDir    func(string) ([]os.DirEntry, error)
	mkdirAll   func(string, os.FileMode) error
	createTemp func(string, string) (*os.File, error)
	remove     func(string) error
}

// NewChecker builds a checker using real OS dependencies.
func NewChecker() *Checker {
	return &Checker{
		lookPath:   exec.LookPath,
		stat:       os.Stat,
		readDir:    os.ReadDir,
		mkdirAll:   os.MkdirAll,
		createTemp: os.CreateTemp,
		remove:     os.Remove,
	}
}

// NewCheckerForTests creates a checker with injectable dependencies.
func NewCheckerForTests(
	lookPath func(string) (string, error),
	stat func(string) (os.FileInfo, error),
	readDir func(string) ([]os.DirEntry, error),
	mkdirAll func(string, os.FileMode) error,
	createTemp func(string, string) (*os.File, error),
	remove func(string) error,
) *Checker {
	return &Checker{
		lookPath:   lookPath,
		stat:       stat,
		readDir:    readDir,
		mkdirAll:   mkdirAll,
		createTemp: createTemp,
		remove:     remove,
	}
}

// Run executes all startup checks and returns a combined report.
func (c *Checker) Run(cfg config.Config) domain.DiagnosticReport {
	items := []domain.DiagnosticItem{
		c.checkTool("ffmpeg", cfg.Engine.FFmpegPath, domain.DiagnosticStatusFail,
			"Install ffmpeg and make sure the binary is reachable."),
		// A missing ffprobe only degrades duration estimates, so warn.
		c.checkTool("ffprobe", cfg.Probe.FFprobePath, domain.DiagnosticStatusWarn,
			"Without ffprobe, durations fall back to a file-size estimate."),
		c.checkTool("whisper", cfg.Engine.WhisperPath, domain.DiagnosticStatusFail,
			"Install whisper.cpp and make sure whisper-cli is reachable."),
		c.checkModelPath(cfg.Engine.ModelPath),
		c.checkDir("input_dir", "Input directory", cfg.Dirs.Input),
		c.checkDir("output_dir", "Output directory", cfg.Dirs.Output),
		c.checkDir("archive_dir", "Archive directory", cfg.Dirs.Archive),
	}

	hasFailures := false
	for _, item := range items {
		if item.Status == domain.DiagnosticStatusFail {
			hasFailures = true
			break
		}
	}

	return domain.DiagnosticReport{
		GeneratedAt: time.Now().UTC(),
		HasFailures: hasFailures,
		Items:       items,
	}
}

// checkTool verifies a configured executable exists, either as an explicit
// path or on PATH.
func (c *Checker) checkTool(name, configured string, missing domain.DiagnosticStatus, hint string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "tool_" + name,
		Name: name,
	}

	if strings.TrimSpace(configured) == "" {
		configured = name
	}

	if strings.ContainsRune(configured, os.PathSeparator) {
		if _, err := c.stat(configured); err != nil {
			item.Status = missing
			item.Message = fmt.Sprintf("Configured binary not found: %s", configured)
			item.Hint = hint
			return item
		}
		item.Status = domain.DiagnosticStatusPass
		item.Message = fmt.Sprintf("Found at %s", configured)
		return item
	}

	path, err := c.lookPath(configured)
	if err != nil {
		item.Status = missing
		item.Message = fmt.Sprintf("Tool not found in PATH: %s", configured)
		item.Hint = hint
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Found at %s", path)
	return item
}

// checkModelPath validates the configured model file or model directory.
func (c *Checker) checkModelPath(modelPath string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "model_path",
		Name: "Model path",
	}

	if strings.TrimSpace(modelPath) == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "Model path is empty."
		item.Hint = "Set a valid model file path or a directory containing whisper models."
		return item
	}

	info, err := c.stat(modelPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// The model may still be fetched on demand at run time.
			item.Status = domain.DiagnosticStatusWarn
			item.Message = fmt.Sprintf("Model path does not exist yet: %s", modelPath)
			item.Hint = "Enable auto_fetch or download a whisper.cpp model manually."
			return item
		}
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Cannot access model path: %s", modelPath)
		item.Hint = "Check permissions for the model path."
		return item
	}

	if !info.IsDir() {
		item.Status = domain.DiagnosticStatusPass
		item.Message = fmt.Sprintf("Model file found: %s", modelPath)
		return item
	}

	entries, err := c.readDir(modelPath)
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Cannot read model directory: %s", modelPath)
		item.Hint = "Check permissions for the model directory."
		return item
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext == ".bin" || ext == ".gguf" {
			item.Status = domain.DiagnosticStatusPass
			item.Message = fmt.Sprintf("Model directory is valid: %s", modelPath)
			return item
		}
	}

	item.Status = domain.DiagnosticStatusWarn
	item.Message = fmt.Sprintf("No model files found in directory: %s", modelPath)
	item.Hint = "Place a .bin or .gguf model file here, or enable auto_fetch."
	return item
}

// checkDir validates directory existence and write access.
func (c *Checker) checkDir(id, name, dir string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   id,
		Name: name,
	}

	if strings.TrimSpace(dir) == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("%s is empty.", name)
		item.Hint = "Set a directory path in the configuration."
		return item
	}

	if err := c.mkdirAll(dir, 0o755); err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Cannot create directory: %s", dir)
		item.Hint = "Choose a writable location or adjust filesystem permissions."
		return item
	}

	tmpFile, err := c.createTemp(dir, ".write-check-*")
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Directory is not writable: %s", dir)
		item.Hint = "Choose a writable directory."
		return item
	}

	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()
	_ = c.remove(tmpPath)

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Writable directory: %s", dir)
	return item
}
