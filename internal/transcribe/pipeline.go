package transcribe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// CommandLog captures one external command invocation result.
type CommandLog struct {
	Command  string
	Args     []string
	ExitCode int
	Stdout   string
	Stderr   string
}

// PipelineError is a stage-aware error with optional command context.
type PipelineError struct {
	Stage      string
	Message    string
	CommandLog CommandLog
	Err        error
}

// Error formats pipeline failures for logs and the console.
func (e *PipelineError) Error() string {
	if e == nil {
		return ""
	}
	if e.CommandLog.Command == "" {
		return fmt.Sprintf("%s: %s", e.Stage, e.Message)
	}

	return fmt.Sprintf(
		"%s: %s (cmd=%s exit=%d)",
		e.Stage,
		e.Message,
		e.CommandLog.Command,
		e.CommandLog.ExitCode,
	)
}

// Unwrap exposes underlying error for errors.Is / errors.As.
func (e *PipelineError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

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

// Pipeline transcribes files by shelling out: ffmpeg converts the input to
// 16 kHz mono PCM, then the whisper.cpp CLI produces the transcript text.
// The model path is resolved once when the pipeline is built.
type Pipeline struct {
	ffmpegPath  string
	whisperPath string
	modelPath   string
	logger      *slog.Logger
	runner      commandRunner
	mkdirTemp   func(dir, pattern string) (string, error)
	removeAll   func(path string) error
	stat        func(name string) (os.FileInfo, error)
	readFile    func(name string) ([]byte, error)
}

// NewPipeline constructs the production pipeline with OS dependencies.
// modelPath must point at a resolved model file.
func NewPipeline(ffmpegPath, whisperPath, modelPath string, logger *slog.Logger) (*Pipeline, error) {
	if strings.TrimSpace(modelPath) == "" {
		return nil, &PipelineError{
			Stage:   "loading",
			Message: "model path is required",
		}
	}
	if _, err := os.Stat(modelPath); err != nil {
		return nil, &PipelineError{
			Stage:   "loading",
			Message: fmt.Sprintf("cannot access model file: %s", modelPath),
			Err:     err,
		}
	}

	return &Pipeline{
		ffmpegPath:  ffmpegPath,
		whisperPath: whisperPath,
		modelPath:   modelPath,
		logger:      logger,
		runner:      &execRunner{},
		mkdirTemp:   os.MkdirTemp,
		removeAll:   os.RemoveAll,
		stat:        os.Stat,
		readFile:    os.ReadFile,
	}, nil
}

// Transcribe converts one audio file and returns the trimmed transcript.
func (p *Pipeline) Transcribe(ctx context.Context, path, language string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", &PipelineError{
			Stage:   "preprocessing",
			Message: "input audio path is required",
		}
	}
	if _, err := p.stat(path); err != nil {
		return "", &PipelineError{
			Stage:   "preprocessing",
			Message: fmt.Sprintf("cannot access input audio: %s", path),
			Err:     err,
		}
	}

	tempDir, err := p.mkdirTemp("", "transcriptor-*")
	if err != nil {
		return "", &PipelineError{
			Stage:   "preprocessing",
			Message: "failed to create temporary workspace",
			Err:     err,
		}
	}
	defer func() {
		_ = p.removeAll(tempDir)
	}()

	wavPath := filepath.Join(tempDir, "preprocessed-16k-mono.wav")
	args := buildFFmpegArgs(path, wavPath)

	cmdResult, runErr := p.runner.Run(ctx, p.ffmpegPath, args...)
	p.logCommand(CommandLog{
		Command:  p.ffmpegPath,
		Args:     args,
		ExitCode: cmdResult.ExitCode,
		Stdout:   cmdResult.Stdout,
		Stderr:   cmdResult.Stderr,
	})
	if runErr != nil {
		return "", &PipelineError{
			Stage:   "preprocessing",
			Message: "ffmpeg audio conversion failed",
			CommandLog: CommandLog{
				Command:  p.ffmpegPath,
				Args:     args,
				ExitCode: cmdResult.ExitCode,
				Stdout:   cmdResult.Stdout,
				Stderr:   cmdResult.Stderr,
			},
			Err: runErr,
		}
	}
	if _, err := p.stat(wavPath); err != nil {
		return "", &PipelineError{
			Stage:   "preprocessing",
			Message: "ffmpeg completed but output file is missing",
			Err:     err,
		}
	}

	textBase := filepath.Join(tempDir, "transcript")
	whisperArgs := buildWhisperArgs(p.modelPath, wavPath, textBase, language)

	whisperResult, runErr := p.runner.Run(ctx, p.whisperPath, whisperArgs...)
	whisperLog := CommandLog{
		Command:  p.whisperPath,
		Args:     whisperArgs,
		ExitCode: whisperResult.ExitCode,
		Stdout:   whisperResult.Stdout,
		Stderr:   whisperResult.Stderr,
	}
	p.logCommand(whisperLog)
	if runErr != nil {
		return "", &PipelineError{
			Stage:      "transcribing",
			Message:    "whisper transcription failed",
			CommandLog: whisperLog,
			Err:        runErr,
		}
	}

	textPath := textBase + ".txt"
	if _, err := p.stat(textPath); err != nil {
		return "", &PipelineError{
			Stage:      "transcribing",
			Message:    "whisper completed but transcript .txt file is missing",
			CommandLog: whisperLog,
			Err:        err,
		}
	}

	content, err := p.readFile(textPath)
	if err != nil {
		return "", &PipelineError{
			Stage:      "transcribing",
			Message:    fmt.Sprintf("failed to read transcript file: %s", textPath),
			CommandLog: whisperLog,
			Err:        err,
		}
	}

	return strings.TrimSpace(string(content)), nil
}

// Close releases resources. The exec pipeline holds none.
func (p *Pipeline) Close() error {
	return nil
}

// logCommand records external command completions at debug level.
func (p *Pipeline) logCommand(log CommandLog) {
	if p.logger == nil {
		return
	}
	p.logger.Debug("command completed",
		slog.String("command", log.Command),
		slog.Int("exit_code", log.ExitCode))
}

// normalizeLanguage maps "auto" and empty language to no CLI override.
func normalizeLanguage(raw string) string {
	lang := strings.TrimSpace(raw)
	if lang == "" || strings.EqualFold(lang, "auto") {
		return ""
	}
	return lang
}

// buildFFmpegArgs builds preprocessing CLI args for mono 16k PCM WAV output.
func buildFFmpegArgs(inputPath, outPath string) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", inputPath,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		outPath,
	}
}

// buildWhisperArgs builds whisper.cpp args for txt transcript export.
func buildWhisperArgs(modelPath, audioPath, textBase, language string) []string {
	args := []string{
		"-m", modelPath,
		"-f", audioPath,
		"-of", textBase,
		"-otxt",
	}

	if lang := normalizeLanguage(language); lang != "" {
		args = append(args, "-l", lang)
	}

	return args
}

// NewPipelineForTests constructs a pipeline with injectable dependencies.
func NewPipelineForTests(
	ffmpegPath string,
	whisperPath string,
	modelPath string,
	runner commandRunner,
	mkdirTemp func(dir, pattern string) (string, error),
	removeAll func(path string) error,
	stat func(name string) (os.FileInfo, error),
) *Pipeline {
	return &Pipeline{
		ffmpegPath:  ffmpegPath,
		whisperPath: whisperPath,
		modelPath:   modelPath,
		runner:      runner,
		mkdirTemp:   mkdirTemp,
		removeAll:   removeAll,
		stat:        stat,
		readFile:    os.ReadFile,
	}
}
