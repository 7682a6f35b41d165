package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DirsConfig names the three working directories of a run.
type DirsConfig struct {
	Input   string `yaml:"input"`
	Output  string `yaml:"output"`
	Archive string `yaml:"archive"`
}

// EngineConfig selects the whisper model and external tool paths.
type EngineConfig struct {
	Model       string `yaml:"model"`
	ModelPath   string `yaml:"model_path"`
	FFmpegPath  string `yaml:"ffmpeg_path"`
	WhisperPath string `yaml:"whisper_path"`
	AutoFetch   bool   `yaml:"auto_fetch_model"`
}

// ProbeConfig configures the media duration probe.
type ProbeConfig struct {
	FFprobePath string `yaml:"ffprobe_path"`
}

// NotifyConfig controls desktop notifications.
type NotifyConfig struct {
	Enabled bool   `yaml:"enabled"`
	Sound   bool   `yaml:"sound"`
	Command string `yaml:"command"`
}

// HistoryConfig controls the optional SQLite run history.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Config is the full runtime configuration for one batch invocation.
type Config struct {
	Dirs         DirsConfig    `yaml:"dirs"`
	Language     string        `yaml:"language"`
	ProcessRatio float64       `yaml:"process_ratio"`
	Engine       EngineConfig  `yaml:"engine"`
	Probe        ProbeConfig   `yaml:"probe"`
	Notify       NotifyConfig  `yaml:"notify"`
	History      HistoryConfig `yaml:"history"`
	LogLevel     string        `yaml:"log_level"`
}

// Default returns baseline configuration matching a first run with no file.
func Default() Config {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	return Config{
		Dirs: DirsConfig{
			Input:   "audio",
			Output:  "transcriptions",
			Archive: "historical",
		},
		Language: "es",
		// Measured against playback length on reference hardware:
		// 5:13 of audio took about 2:07 to process.
		ProcessRatio: 0.4,
		Engine: EngineConfig{
			Model:       "medium",
			ModelPath:   filepath.Join(homeDir, ".transcriptor", "models"),
			FFmpegPath:  "ffmpeg",
			WhisperPath: "whisper-cli",
			AutoFetch:   false,
		},
		Probe: ProbeConfig{
			FFprobePath: "ffprobe",
		},
		Notify: NotifyConfig{
			Enabled: true,
			Sound:   true,
		},
		History: HistoryConfig{
			Enabled: false,
			Path:    filepath.Join(homeDir, ".transcriptor", "history.db"),
		},
		LogLevel: "info",
	}
}

// Load reads configuration from an optional YAML file and the environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ResolveDirs rebases relative directory and history paths onto base.
func (c *Config) ResolveDirs(base string) {
	c.Dirs.Input = rebase(base, c.Dirs.Input)
	c.Dirs.Output = rebase(base, c.Dirs.Output)
	c.Dirs.Archive = rebase(base, c.Dirs.Archive)
	c.History.Path = rebase(base, c.History.Path)
}

func rebase(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.Dirs.Input, "TRANSCRIPTOR_INPUT_DIR")
	overrideString(&cfg.Dirs.Output, "TRANSCRIPTOR_OUTPUT_DIR")
	overrideString(&cfg.Dirs.Archive, "TRANSCRIPTOR_ARCHIVE_DIR")
	overrideString(&cfg.Language, "TRANSCRIPTOR_LANGUAGE")
	overrideFloat(&cfg.ProcessRatio, "TRANSCRIPTOR_PROCESS_RATIO")
	overrideString(&cfg.Engine.Model, "TRANSCRIPTOR_ENGINE_MODEL")
	overrideString(&cfg.Engine.ModelPath, "TRANSCRIPTOR_ENGINE_MODEL_PATH")
	overrideString(&cfg.Engine.FFmpegPath, "TRANSCRIPTOR_ENGINE_FFMPEG_PATH")
	overrideString(&cfg.Engine.WhisperPath, "TRANSCRIPTOR_ENGINE_WHISPER_PATH")
	overrideBool(&cfg.Engine.AutoFetch, "TRANSCRIPTOR_ENGINE_AUTO_FETCH_MODEL")
	overrideString(&cfg.Probe.FFprobePath, "TRANSCRIPTOR_PROBE_FFPROBE_PATH")
	overrideBool(&cfg.Notify.Enabled, "TRANSCRIPTOR_NOTIFY_ENABLED")
	overrideBool(&cfg.Notify.Sound, "TRANSCRIPTOR_NOTIFY_SOUND")
	overrideString(&cfg.Notify.Command, "TRANSCRIPTOR_NOTIFY_COMMAND")
	overrideBool(&cfg.History.Enabled, "TRANSCRIPTOR_HISTORY_ENABLED")
	overrideString(&cfg.History.Path, "TRANSCRIPTOR_HISTORY_PATH")
	overrideString(&cfg.LogLevel, "TRANSCRIPTOR_LOG_LEVEL")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideFloat(target *float64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			*target = parsed
		}
	}
}

func validate(cfg Config) error {
	if cfg.Dirs.Input == "" {
		return errors.New("dirs.input must not be empty")
	}
	if cfg.Dirs.Output == "" {
		return errors.New("dirs.output must not be empty")
	}
	if cfg.Dirs.Archive == "" {
		return errors.New("dirs.archive must not be empty")
	}
	if strings.TrimSpace(cfg.Language) == "" {
		return errors.New("language must not be empty")
	}
	if cfg.ProcessRatio <= 0 {
		return errors.New("process_ratio must be positive")
	}
	if strings.TrimSpace(cfg.Engine.Model) == "" && strings.TrimSpace(cfg.Engine.ModelPath) == "" {
		return errors.New("engine.model or engine.model_path must be set")
	}
	if cfg.Engine.FFmpegPath == "" {
		return errors.New("engine.ffmpeg_path must not be empty")
	}
	if cfg.Engine.WhisperPath == "" {
		return errors.New("engine.whisper_path must not be empty")
	}
	if cfg.Probe.FFprobePath == "" {
		return errors.New("probe.ffprobe_path must not be empty")
	}
	if cfg.History.Enabled && cfg.History.Path == "" {
		return errors.New("history.path must not be empty when history is enabled")
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return errors.New("log_level must be one of debug|info|warn|error")
	}
	return nil
}
