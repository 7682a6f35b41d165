//go:build !whispercgo

package transcribe

import (
	"log/slog"

	"audio-transcriptor/internal/config"
)

// NewEngine builds the default subprocess-backed engine. The whisper.cpp
// bindings variant is selected with the whispercgo build tag.
func NewEngine(cfg config.EngineConfig, logger *slog.Logger) (Engine, error) {
	modelPath, err := ResolveModel(cfg.Model, cfg.ModelPath, cfg.AutoFetch)
	if err != nil {
		return nil, err
	}
	return NewPipeline(cfg.FFmpegPath, cfg.WhisperPath, modelPath, logger)
}
