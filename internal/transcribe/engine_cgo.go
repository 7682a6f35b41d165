//go:build whispercgo

package transcribe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/go-audio/wav"

	"audio-transcriptor/internal/config"
)

// bindingEngine runs whisper.cpp in-process through the official Go bindings.
// ffmpeg still preprocesses each input to the 16 kHz mono PCM the model needs.
type bindingEngine struct {
	model      whisper.Model
	ffmpegPath string
	logger     *slog.Logger
	runner     commandRunner
	mkdirTemp  func(dir, pattern string) (string, error)
	removeAll  func(path string) error
}

// NewEngine builds the bindings-backed engine, loading the model once.
func NewEngine(cfg config.EngineConfig, logger *slog.Logger) (Engine, error) {
	modelPath, err := ResolveModel(cfg.Model, cfg.ModelPath, cfg.AutoFetch)
	if err != nil {
		return nil, err
	}

	model, err := whisper.New(modelPath)
	if err != nil {
		return nil, &PipelineError{
			Stage:   "loading",
			Message: fmt.Sprintf("cannot load whisper model: %s", modelPath),
			Err:     err,
		}
	}

	return &bindingEngine{
		model:      model,
		ffmpegPath: cfg.FFmpegPath,
		logger:     logger,
		runner:     &execRunner{},
		mkdirTemp:  os.MkdirTemp,
		removeAll:  os.RemoveAll,
	}, nil
}

// Transcribe converts one audio file and returns the trimmed transcript.
func (e *bindingEngine) Transcribe(ctx context.Context, path, language string) (string, error) {
	tempDir, err := e.mkdirTemp("", "transcriptor-*")
	if err != nil {
		return "", &PipelineError{
			Stage:   "preprocessing",
			Message: "failed to create temporary workspace",
			Err:     err,
		}
	}
	defer func() {
		_ = e.removeAll(tempDir)
	}()

	wavPath := filepath.Join(tempDir, "preprocessed-16k-mono.wav")
	args := buildFFmpegArgs(path, wavPath)
	cmdResult, runErr := e.runner.Run(ctx, e.ffmpegPath, args...)
	if runErr != nil {
		return "", &PipelineError{
			Stage:   "preprocessing",
			Message: "ffmpeg audio conversion failed",
			CommandLog: CommandLog{
				Command:  e.ffmpegPath,
				Args:     args,
				ExitCode: cmdResult.ExitCode,
				Stdout:   cmdResult.Stdout,
				Stderr:   cmdResult.Stderr,
			},
			Err: runErr,
		}
	}

	samples, err := loadSamples(wavPath)
	if err != nil {
		return "", &PipelineError{
			Stage:   "preprocessing",
			Message: "cannot decode preprocessed audio",
			Err:     err,
		}
	}

	wctx, err := e.model.NewContext()
	if err != nil {
		return "", &PipelineError{
			Stage:   "transcribing",
			Message: "cannot create whisper context",
			Err:     err,
		}
	}
	if lang := normalizeLanguage(language); lang != "" {
		if err := wctx.SetLanguage(lang); err != nil {
			return "", &PipelineError{
				Stage:   "transcribing",
				Message: fmt.Sprintf("unsupported language: %s", lang),
				Err:     err,
			}
		}
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return "", &PipelineError{
			Stage:   "transcribing",
			Message: "whisper processing failed",
			Err:     err,
		}
	}

	var text strings.Builder
	for {
		segment, err := wctx.NextSegment()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return "", &PipelineError{
				Stage:   "transcribing",
				Message: "cannot read whisper segments",
				Err:     err,
			}
		}
		if text.Len() > 0 {
			text.WriteString(" ")
		}
		text.WriteString(strings.TrimSpace(segment.Text))
	}

	return strings.TrimSpace(text.String()), nil
}

// Close releases the loaded whisper model.
func (e *bindingEngine) Close() error {
	return e.model.Close()
}

// loadSamples decodes a 16 kHz mono WAV file into float32 samples.
func loadSamples(path string) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, err
	}
	if int(decoder.SampleRate) != whisper.SampleRate {
		return nil, fmt.Errorf("unexpected sample rate: %d", decoder.SampleRate)
	}
	if decoder.NumChans != 1 {
		return nil, fmt.Errorf("unexpected channel count: %d", decoder.NumChans)
	}

	return buf.AsFloat32Buffer().Data, nil
}
