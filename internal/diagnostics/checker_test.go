package diagnostics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"audio-transcriptor/internal/config"
	"audio-transcriptor/internal/domain"
)

func testConfig(root string) config.Config {
	cfg := config.Default()
	cfg.Dirs.Input = filepath.Join(root, "audio")
	cfg.Dirs.Output = filepath.Join(root, "transcriptions")
	cfg.Dirs.Archive = filepath.Join(root, "historical")
	cfg.Engine.ModelPath = filepath.Join(root, "models")
	return cfg
}

// TestCheckerRunAllPass validates the happy-path diagnostics report.
func TestCheckerRunAllPass(t *testing.T) {
	root := t.TempDir()
	cfg := testConfig(root)

	if err := os.MkdirAll(cfg.Engine.ModelPath, 0o755); err != nil {
		t.Fatalf("mkdir models: %v", err)
	}
	if err := os.WriteFile(filepath.Join(cfg.Engine.ModelPath, "ggml-medium.bin"), []byte("stub"), 0o644); err != nil {
		t.Fatalf("write model: %v", err)
	}

	checker := NewCheckerForTests(
		func(name string) (string, error) { return "/usr/local/bin/" + name, nil },
		os.Stat,
		os.ReadDir,
		os.MkdirAll,
		os.CreateTemp,
		os.Remove,
	)

	report := checker.Run(cfg)
	if report.HasFailures {
		t.Fatalf("expected no failures, got %+v", report.Items)
	}
}

// TestCheckerRunMissingTools validates tool failure classification: missing
// ffmpeg and whisper fail the run, missing ffprobe only warns.
func TestCheckerRunMissingTools(t *testing.T) {
	root := t.TempDir()
	cfg := testConfig(root)

	checker := NewCheckerForTests(
		func(string) (string, error) { return "", errors.New("not found") },
		os.Stat,
		os.ReadDir,
		os.MkdirAll,
		os.CreateTemp,
		os.Remove,
	)

	report := checker.Run(cfg)
	if !report.HasFailures {
		t.Fatal("expected failures")
	}

	assertStatusByID(t, report, "tool_ffmpeg", domain.DiagnosticStatusFail)
	assertStatusByID(t, report, "tool_ffprobe", domain.DiagnosticStatusWarn)
	assertStatusByID(t, report, "tool_whisper", domain.DiagnosticStatusFail)
}

// TestCheckerRunMissingModelPathWarns validates that an absent model path is
// only a warning, since the model can be fetched on demand.
func TestCheckerRunMissingModelPathWarns(t *testing.T) {
	root := t.TempDir()
	cfg := testConfig(root)

	checker := NewCheckerForTests(
		func(name string) (string, error) { return "/usr/local/bin/" + name, nil },
		os.Stat,
		os.ReadDir,
		os.MkdirAll,
		os.CreateTemp,
		os.Remove,
	)

	report := checker.Run(cfg)
	if report.HasFailures {
		t.Fatalf("expected no hard failures, got %+v", report.Items)
	}
	assertStatusByID(t, report, "model_path", domain.DiagnosticStatusWarn)
}

// TestCheckerRunModelDirectoryWithoutModelFilesWarns validates model check.
func TestCheckerRunModelDirectoryWithoutModelFilesWarns(t *testing.T) {
	root := t.TempDir()
	cfg := testConfig(root)

	if err := os.MkdirAll(cfg.Engine.ModelPath, 0o755); err != nil {
		t.Fatalf("mkdir models: %v", err)
	}
	if err := os.WriteFile(filepath.Join(cfg.Engine.ModelPath, "README.txt"), []byte("no model"), 0o644); err != nil {
		t.Fatalf("write readme: %v", err)
	}

	checker := NewCheckerForTests(
		func(name string) (string, error) { return "/usr/local/bin/" + name, nil },
		os.Stat,
		os.ReadDir,
		os.MkdirAll,
		os.CreateTemp,
		os.Remove,
	)

	report := checker.Run(cfg)
	assertStatusByID(t, report, "model_path", domain.DiagnosticStatusWarn)
}

// TestCheckerRunExplicitToolPath validates stat-based checking for
// configured absolute paths.
func TestCheckerRunExplicitToolPath(t *testing.T) {
	root := t.TempDir()
	cfg := testConfig(root)
	cfg.Engine.FFmpegPath = filepath.Join(root, "bin", "ffmpeg")

	checker := NewCheckerForTests(
		func(name string) (string, error) { return "/usr/local/bin/" + name, nil },
		os.Stat,
		os.ReadDir,
		os.MkdirAll,
		os.CreateTemp,
		os.Remove,
	)

	report := checker.Run(cfg)
	assertStatusByID(t, report, "tool_ffmpeg", domain.DiagnosticStatusFail)

	if err := os.MkdirAll(filepath.Dir(cfg.Engine.FFmpegPath), 0o755); err != nil {
		t.Fatalf("mkdir bin: %v", err)
	}
	if err := os.WriteFile(cfg.Engine.FFmpegPath, []byte("#!/bin/sh"), 0o755); err != nil {
		t.Fatalf("write ffmpeg stub: %v", err)
	}

	report = checker.Run(cfg)
	assertStatusByID(t, report, "tool_ffmpeg", domain.DiagnosticStatusPass)
}

// TestCheckerRunUnwritableDirFails validates the directory write check.
func TestCheckerRunUnwritableDirFails(t *testing.T) {
	root := t.TempDir()
	cfg := testConfig(root)

	checker := NewCheckerForTests(
		func(name string) (string, error) { return "/usr/local/bin/" + name, nil },
		os.Stat,
		os.ReadDir,
		os.MkdirAll,
		func(dir, pattern string) (*os.File, error) {
			if dir == cfg.Dirs.Output {
				return nil, errors.New("read-only filesystem")
			}
			return os.CreateTemp(dir, pattern)
		},
		os.Remove,
	)

	report := checker.Run(cfg)
	if !report.HasFailures {
		t.Fatal("expected failures")
	}
	assertStatusByID(t, report, "output_dir", domain.DiagnosticStatusFail)
	assertStatusByID(t, report, "input_dir", domain.DiagnosticStatusPass)
}

// assertStatusByID checks status for one diagnostic item by ID.
func assertStatusByID(t *testing.T, report domain.DiagnosticReport, id string, want domain.DiagnosticStatus) {
	t.Helper()
	for _, item := range report.Items {
		if item.ID == id {
			if item.Status != want {
				t.Fatalf("item %s status = %s, want %s", id, item.Status, want)
			}
			return
		}
	}
	t.Fatalf("item %s not found in report", id)
}
