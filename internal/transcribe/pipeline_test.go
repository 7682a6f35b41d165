package transcribe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// fakeRunner simulates command execution order and outcomes.
type fakeRunner struct {
	run func(ctx context.Context, name string, args ...string) (commandResult, error)
}

// Run delegates to injected behavior.
func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) (commandResult, error) {
	if f.run == nil {
		return commandResult{}, nil
	}
	return f.run(ctx, name, args...)
}

// TestPipelineTranscribeSuccess checks the full happy path with an explicit
// language code.
func TestPipelineTranscribeSuccess(t *testing.T) {
	root := t.TempDir()
	inputPath := filepath.Join(root, "meeting.mp3")
	modelPath := filepath.Join(root, "ggml-medium.bin")
	mustWriteFile(t, inputPath, "media")
	mustWriteFile(t, modelPath, "model")

	call := 0
	var whisperArgs []string
	runner := &fakeRunner{
		run: func(ctx context.Context, name string, args ...string) (commandResult, error) {
			call++
			switch call {
			case 1:
				if name != "ffmpeg-custom" {
					t.Fatalf("command 1 name = %q, want ffmpeg-custom", name)
				}
				outPath := args[len(args)-1]
				mustWriteFile(t, outPath, "wav")
				return commandResult{Stdout: "ffmpeg ok", ExitCode: 0}, nil
			case 2:
				if name != "whisper-custom" {
					t.Fatalf("command 2 name = %q, want whisper-custom", name)
				}
				whisperArgs = append([]string{}, args...)
				base := argValue(args, "-of")
				mustWriteFile(t, base+".txt", " hola mundo \n")
				return commandResult{Stdout: "whisper ok", ExitCode: 0}, nil
			default:
				t.Fatalf("unexpected command call: %d", call)
				return commandResult{}, nil
			}
		},
	}

	pipeline := NewPipelineForTests("ffmpeg-custom", "whisper-custom", modelPath,
		runner, os.MkdirTemp, os.RemoveAll, os.Stat)

	text, err := pipeline.Transcribe(context.Background(), inputPath, "es")
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}

	if call != 2 {
		t.Fatalf("command calls = %d, want 2", call)
	}
	if text != "hola mundo" {
		t.Fatalf("transcript = %q, want trimmed text", text)
	}
	if argValue(whisperArgs, "-l") != "es" {
		t.Fatalf("whisper args missing language: %v", whisperArgs)
	}
	if argValue(whisperArgs, "-m") != modelPath {
		t.Fatalf("whisper args missing model: %v", whisperArgs)
	}
}

// TestPipelineAutoLanguageOmitsFlag checks auto and empty language handling.
func TestPipelineAutoLanguageOmitsFlag(t *testing.T) {
	for _, lang := range []string{"auto", "", "  "} {
		if args := buildWhisperArgs("m.bin", "a.wav", "out", lang); hasArg(args, "-l") {
			t.Fatalf("language %q should not pass -l, args=%v", lang, args)
		}
	}
}

// TestPipelineFFmpegFailureReturnsPreprocessingError checks the conversion
// error path and temp dir cleanup.
func TestPipelineFFmpegFailureReturnsPreprocessingError(t *testing.T) {
	root := t.TempDir()
	inputPath := filepath.Join(root, "clip.mp3")
	modelPath := filepath.Join(root, "model.bin")
	mustWriteFile(t, inputPath, "media")
	mustWriteFile(t, modelPath, "model")

	var cleaned string
	runner := &fakeRunner{
		run: func(ctx context.Context, name string, args ...string) (commandResult, error) {
			return commandResult{Stderr: "ffmpeg failed", ExitCode: 1}, errors.New("exit status 1")
		},
	}

	pipeline := NewPipelineForTests("ffmpeg", "whisper-cli", modelPath,
		runner, os.MkdirTemp,
		func(path string) error {
			cleaned = path
			return os.RemoveAll(path)
		},
		os.Stat)

	_, err := pipeline.Transcribe(context.Background(), inputPath, "es")
	if err == nil {
		t.Fatal("expected error")
	}

	var pErr *PipelineError
	if !errors.As(err, &pErr) {
		t.Fatalf("error type = %T, want *PipelineError", err)
	}
	if pErr.Stage != "preprocessing" {
		t.Fatalf("stage = %s, want preprocessing", pErr.Stage)
	}
	if pErr.CommandLog.Command != "ffmpeg" {
		t.Fatalf("command = %q, want ffmpeg", pErr.CommandLog.Command)
	}
	if cleaned == "" {
		t.Fatal("temp workspace was not cleaned up")
	}
}

// TestPipelineWhisperFailureReturnsTranscribingError checks the second stage
// error path.
func TestPipelineWhisperFailureReturnsTranscribingError(t *testing.T) {
	root := t.TempDir()
	inputPath := filepath.Join(root, "clip.mp3")
	modelPath := filepath.Join(root, "model.bin")
	mustWriteFile(t, inputPath, "media")
	mustWriteFile(t, modelPath, "model")

	call := 0
	runner := &fakeRunner{
		run: func(ctx context.Context, name string, args ...string) (commandResult, error) {
			call++
			if call == 1 {
				mustWriteFile(t, args[len(args)-1], "wav")
				return commandResult{ExitCode: 0}, nil
			}
			return commandResult{Stderr: "model load error", ExitCode: 3}, errors.New("exit status 3")
		},
	}

	pipeline := NewPipelineForTests("ffmpeg", "whisper-cli", modelPath,
		runner, os.MkdirTemp, os.RemoveAll, os.Stat)

	_, err := pipeline.Transcribe(context.Background(), inputPath, "es")
	var pErr *PipelineError
	if !errors.As(err, &pErr) {
		t.Fatalf("error type = %T, want *PipelineError", err)
	}
	if pErr.Stage != "transcribing" {
		t.Fatalf("stage = %s, want transcribing", pErr.Stage)
	}
	if pErr.CommandLog.ExitCode != 3 {
		t.Fatalf("exit code = %d, want 3", pErr.CommandLog.ExitCode)
	}
}

// TestPipelineMissingInputFails checks the input existence guard.
func TestPipelineMissingInputFails(t *testing.T) {
	root := t.TempDir()
	modelPath := filepath.Join(root, "model.bin")
	mustWriteFile(t, modelPath, "model")

	pipeline := NewPipelineForTests("ffmpeg", "whisper-cli", modelPath,
		&fakeRunner{}, os.MkdirTemp, os.RemoveAll, os.Stat)

	_, err := pipeline.Transcribe(context.Background(), filepath.Join(root, "absent.mp3"), "es")
	var pErr *PipelineError
	if !errors.As(err, &pErr) {
		t.Fatalf("error type = %T, want *PipelineError", err)
	}
	if pErr.Stage != "preprocessing" {
		t.Fatalf("stage = %s, want preprocessing", pErr.Stage)
	}
}

// TestNewPipelineRequiresModelFile checks the loading stage guard.
func TestNewPipelineRequiresModelFile(t *testing.T) {
	_, err := NewPipeline("ffmpeg", "whisper-cli", filepath.Join(t.TempDir(), "absent.bin"), nil)
	var pErr *PipelineError
	if !errors.As(err, &pErr) {
		t.Fatalf("error type = %T, want *PipelineError", err)
	}
	if pErr.Stage != "loading" {
		t.Fatalf("stage = %s, want loading", pErr.Stage)
	}
}

// mustWriteFile writes contents creating parent directories.
func mustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// argValue returns the value following a flag in args, or empty.
func argValue(args []string, flag string) string {
	for i, arg := range args {
		if arg == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

// hasArg reports whether args contains the given flag.
func hasArg(args []string, flag string) bool {
	for _, arg := range args {
		if arg == flag {
			return true
		}
	}
	return false
}
