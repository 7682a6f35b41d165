package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"audio-transcriptor/internal/batch"
	"audio-transcriptor/internal/config"
	"audio-transcriptor/internal/diagnostics"
	"audio-transcriptor/internal/domain"
	"audio-transcriptor/internal/history"
	"audio-transcriptor/internal/media"
	"audio-transcriptor/internal/notify"
	"audio-transcriptor/internal/transcribe"
	"audio-transcriptor/internal/ui"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, ui.ErrorStyle.Render("error: "+err.Error()))
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to YAML configuration file")
	showVersion := flag.Bool("version", false, "print version and exit")
	listModels := flag.Bool("list-models", false, "list known whisper models and exit")
	checkOnly := flag.Bool("check", false, "run environment diagnostics and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("transcriber %s\n", version)
		return nil
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.ResolveDirs(baseDir())

	logger := newLogger(cfg.LogLevel)

	if *listModels {
		printModels(cfg.Engine.ModelPath)
		return nil
	}

	report := diagnostics.NewChecker().Run(cfg)
	printReport(report, *checkOnly)
	if *checkOnly {
		return nil
	}
	if report.HasFailures {
		return fmt.Errorf("environment checks failed, run with -check for details")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	prober := media.NewProber(cfg.Probe.FFprobePath)
	notifier, err := notify.NewDesktop(cfg.Notify, logger)
	if err != nil {
		return fmt.Errorf("configure notifier: %w", err)
	}

	var store *history.Store
	if cfg.History.Enabled {
		store, err = history.Open(ctx, cfg.History.Path, logger)
		if err != nil {
			logger.Warn("history disabled", "error", err)
			store = nil
		} else {
			defer store.Close()
		}
	}

	newEngine := func(ctx context.Context) (transcribe.Engine, error) {
		return transcribe.NewEngine(cfg.Engine, logger)
	}

	orchestrator := batch.New(cfg, prober, notifier, newEngine, store, logger, os.Stdout)
	summary, err := orchestrator.Run(ctx)
	if err != nil {
		return err
	}

	logger.Info("batch finished",
		"files", summary.Files,
		"words", summary.Words,
		"seconds", summary.Seconds)
	return nil
}

// baseDir resolves the directory the binary lives in, matching the layout of
// sibling audio/transcriptions/historical directories next to the tool.
func baseDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func printModels(modelDir string) {
	for _, model := range transcribe.Models(modelDir) {
		marker := " "
		if model.Downloaded {
			marker = "✓"
		}
		fmt.Printf("%s %-16s %-8s %s\n", marker, model.ID, model.SizeLabel, model.Description)
	}
}

// printReport lists diagnostics, verbosely when requested, otherwise only
// warnings and failures.
func printReport(report domain.DiagnosticReport, verbose bool) {
	for _, item := range report.Items {
		switch item.Status {
		case domain.DiagnosticStatusPass:
			if verbose {
				fmt.Println(ui.OKStyle.Render("✓ ") + item.Name + ": " + item.Message)
			}
		case domain.DiagnosticStatusWarn:
			fmt.Println(ui.WarnStyle.Render("! ") + item.Name + ": " + item.Message)
			if item.Hint != "" {
				fmt.Println(ui.DetailStyle.Render("  " + item.Hint))
			}
		case domain.DiagnosticStatusFail:
			fmt.Println(ui.ErrorStyle.Render("✗ ") + item.Name + ": " + item.Message)
			if item.Hint != "" {
				fmt.Println(ui.DetailStyle.Render("  " + item.Hint))
			}
		}
	}
}
