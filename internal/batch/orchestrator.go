package batch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"audio-transcriptor/internal/config"
	"audio-transcriptor/internal/domain"
	"audio-transcriptor/internal/history"
	"audio-transcriptor/internal/progress"
	"audio-transcriptor/internal/transcribe"
	"audio-transcriptor/internal/ui"
)

// supportedExtensions lists the input formats picked up during discovery.
// Matching is case-insensitive on the file extension.
var supportedExtensions = map[string]bool{
	".wav":  true,
	".mp3":  true,
	".m4a":  true,
	".flac": true,
	".ogg":  true,
	".webm": true,
	".opus": true,
}

// SupportedExtensions returns the accepted extensions in sorted order.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(supportedExtensions))
	for ext := range supportedExtensions {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// DurationProber reports a media file's duration in seconds.
type DurationProber interface {
	Duration(ctx context.Context, path string) float64
}

// Notifier delivers best-effort desktop feedback.
type Notifier interface {
	Notify(ctx context.Context, title, message string, sound bool)
	Reveal(path string)
}

// reporter is the per-file progress renderer contract.
type reporter interface {
	Start()
	Stop() int
}

// EngineFactory builds the transcription engine. It is invoked lazily so a
// run with no input files never pays the model load.
type EngineFactory func(ctx context.Context) (transcribe.Engine, error)

// Orchestrator drives one batch run: discover, transcribe, archive, summarize.
type Orchestrator struct {
	cfg    config.Config
	logger *slog.Logger
	out    io.Writer

	prober    DurationProber
	notifier  Notifier
	newEngine EngineFactory
	store     *history.Store
	state     *State
	journal   *Journal
	newRunID  func() string
	clock     func() time.Time
	mkdirAll  func(path string, perm os.FileMode) error
	readDir   func(name string) ([]os.DirEntry, error)
	writeFile func(name string, data []byte, perm os.FileMode) error
	stat      func(name string) (os.FileInfo, error)
	rename    func(oldpath, newpath string) error
	newReport func(w io.Writer, estimatedSeconds float64) reporter
}

// New creates an orchestrator wired to the real filesystem and clock.
// The history store may be nil when run recording is disabled.
func New(
	cfg config.Config,
	prober DurationProber,
	notifier Notifier,
	newEngine EngineFactory,
	store *history.Store,
	logger *slog.Logger,
	out io.Writer,
) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		logger:    logger,
		out:       out,
		prober:    prober,
		notifier:  notifier,
		newEngine: newEngine,
		store:     store,
		state:     NewState(),
		journal:   NewJournal(0),
		newRunID:  uuid.NewString,
		clock:     time.Now,
		mkdirAll:  os.MkdirAll,
		readDir:   os.ReadDir,
		writeFile: os.WriteFile,
		stat:      os.Stat,
		rename:    os.Rename,
		newReport: func(w io.Writer, estimatedSeconds float64) reporter {
			return progress.NewReporter(w, estimatedSeconds)
		},
	}
}

// NewForTests creates an orchestrator with injectable OS and time deps.
func NewForTests(
	cfg config.Config,
	prober DurationProber,
	notifier Notifier,
	newEngine EngineFactory,
	logger *slog.Logger,
	out io.Writer,
	clock func() time.Time,
	newReport func(w io.Writer, estimatedSeconds float64) reporter,
) *Orchestrator {
	o := New(cfg, prober, notifier, newEngine, nil, logger, out)
	if clock != nil {
		o.clock = clock
	}
	if newReport != nil {
		o.newReport = newReport
	}
	return o
}

// Journal exposes the run journal for inspection after Run returns.
func (o *Orchestrator) Journal() *Journal {
	return o.journal
}

// Run executes one full batch pass over the input directory.
func (o *Orchestrator) Run(ctx context.Context) (domain.Summary, error) {
	runID := o.newRunID()
	if err := o.state.Start(runID); err != nil {
		return domain.Summary{}, err
	}
	o.publishStatus(domain.BatchStatusDiscovering)

	if o.store != nil {
		if err := o.store.BeginRun(ctx, runID, o.clock()); err != nil {
			o.logger.Warn("history begin failed", "error", err)
		}
	}

	if err := o.ensureDirs(); err != nil {
		return o.fail(ctx, runID, domain.Summary{}, err)
	}

	files, err := o.discover()
	if err != nil {
		return o.fail(ctx, runID, domain.Summary{}, err)
	}

	if len(files) == 0 {
		o.printNoFiles()
		o.notifier.Notify(ctx, "Transcriptor", "No audio files to process", false)
		o.publishStatus(domain.BatchStatusSummarizing)
		summary := domain.Summary{}
		o.finishHistory(ctx, runID, summary)
		o.publishStatus(domain.BatchStatusDone)
		return summary, nil
	}

	o.printBanner(ctx, files)

	o.publishStatus(domain.BatchStatusLoadingModel)
	fmt.Fprintf(o.out, "\n🧠 Loading speech model (%s)...\n", o.cfg.Engine.Model)
	engine, err := o.newEngine(ctx)
	if err != nil {
		return o.fail(ctx, runID, domain.Summary{}, fmt.Errorf("load engine: %w", err))
	}
	defer engine.Close()
	fmt.Fprintln(o.out, ui.OKStyle.Render("✅ Model ready"))
	fmt.Fprintln(o.out)

	o.notifier.Notify(ctx, "Transcriptor",
		fmt.Sprintf("Transcribing %d file(s)", len(files)), false)

	o.publishStatus(domain.BatchStatusProcessing)

	var summary domain.Summary
	for i, file := range files {
		result, err := o.processFile(ctx, engine, file, i+1, len(files))
		if err != nil {
			return o.fail(ctx, runID, summary, fmt.Errorf("transcribe %s: %w", file.Name, err))
		}

		summary.Files++
		summary.Words += result.Words
		summary.Seconds += result.Seconds

		o.journal.Publish(Event{
			Type:    EventTypeResult,
			File:    result.Name,
			Words:   result.Words,
			Seconds: result.Seconds,
		})
		if o.store != nil {
			if err := o.store.AppendTranscript(ctx, runID, result); err != nil {
				o.logger.Warn("history append failed", "file", result.Name, "error", err)
			}
		}
	}

	o.publishStatus(domain.BatchStatusSummarizing)
	o.printSummary(summary)

	o.notifier.Notify(ctx, "✅ Transcription complete",
		fmt.Sprintf("%d file(s) • %d words • %s",
			summary.Files, summary.Words, progress.Clock(summary.Seconds)),
		o.cfg.Notify.Sound)
	o.notifier.Reveal(o.cfg.Dirs.Output)

	o.finishHistory(ctx, runID, summary)
	o.publishStatus(domain.BatchStatusDone)
	return summary, nil
}

// processFile runs the full per-file sequence: probe, progress, transcribe,
// write, archive. The progress reporter is always joined before any further
// output or the error return.
func (o *Orchestrator) processFile(
	ctx context.Context,
	engine transcribe.Engine,
	file domain.MediaFile,
	index, total int,
) (domain.TranscriptResult, error) {
	fmt.Fprintln(o.out, ui.Rule(50))
	fmt.Fprintf(o.out, "📝 [%d/%d] %s\n", index, total, ui.FileStyle.Render(file.Name))

	o.journal.Publish(Event{Type: EventTypeFile, File: file.Name})

	audioDuration := o.prober.Duration(ctx, file.Path)
	estimated := audioDuration * o.cfg.ProcessRatio

	rep := o.newReport(o.out, estimated)
	rep.Start()

	text, err := engine.Transcribe(ctx, file.Path, o.cfg.Language)

	elapsed := rep.Stop()

	if err != nil {
		o.journal.Publish(Event{Type: EventTypeError, File: file.Name, Message: err.Error()})
		return domain.TranscriptResult{}, err
	}

	text = strings.TrimSpace(text)
	base := strings.TrimSuffix(file.Name, filepath.Ext(file.Name))
	outPath := filepath.Join(o.cfg.Dirs.Output, base+".txt")
	if err := o.writeFile(outPath, []byte(text), 0o644); err != nil {
		return domain.TranscriptResult{}, fmt.Errorf("write transcript: %w", err)
	}

	words := len(strings.Fields(text))
	fmt.Fprintf(o.out, "   💾 %s (%d words)\n", filepath.Base(outPath), words)

	archived, err := o.archive(file)
	if err != nil {
		return domain.TranscriptResult{}, fmt.Errorf("archive: %w", err)
	}
	fmt.Fprintf(o.out, "   📦 → %s\n",
		ui.DetailStyle.Render(filepath.Join(filepath.Base(o.cfg.Dirs.Archive), filepath.Base(archived))))

	return domain.TranscriptResult{Name: base, Words: words, Seconds: elapsed}, nil
}

// archive moves the original into the archive directory. An existing file of
// the same name gets a timestamp suffix so archived history is never
// overwritten.
func (o *Orchestrator) archive(file domain.MediaFile) (string, error) {
	dest := filepath.Join(o.cfg.Dirs.Archive, file.Name)
	if _, err := o.stat(dest); err == nil {
		ext := filepath.Ext(file.Name)
		base := strings.TrimSuffix(file.Name, ext)
		stamp := o.clock().Format("20060102_150405")
		dest = filepath.Join(o.cfg.Dirs.Archive, fmt.Sprintf("%s_%s%s", base, stamp, ext))
	}

	if err := o.rename(file.Path, dest); err != nil {
		// Cross-device moves cannot use rename; copy and remove instead.
		if copyErr := copyAndRemove(file.Path, dest); copyErr != nil {
			return "", err
		}
	}
	return dest, nil
}

func copyAndRemove(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}

// discover lists supported files in the input directory, non-recursive,
// sorted by name.
func (o *Orchestrator) discover() ([]domain.MediaFile, error) {
	entries, err := o.readDir(o.cfg.Dirs.Input)
	if err != nil {
		return nil, fmt.Errorf("read input dir: %w", err)
	}

	var files []domain.MediaFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if !supportedExtensions[ext] {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, domain.MediaFile{
			Path: filepath.Join(o.cfg.Dirs.Input, entry.Name()),
			Name: entry.Name(),
			Size: info.Size(),
		})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

func (o *Orchestrator) ensureDirs() error {
	for _, dir := range []string{o.cfg.Dirs.Input, o.cfg.Dirs.Output, o.cfg.Dirs.Archive} {
		if err := o.mkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create dir %s: %w", dir, err)
		}
	}
	return nil
}

func (o *Orchestrator) printNoFiles() {
	fmt.Fprintln(o.out, ui.Rule(50))
	fmt.Fprintln(o.out, ui.WarnStyle.Render(
		fmt.Sprintf("⚠️  No audio files in %s/", filepath.Base(o.cfg.Dirs.Input))))
	fmt.Fprintf(o.out, "   Formats: %s\n", strings.Join(SupportedExtensions(), ", "))
	fmt.Fprintln(o.out, ui.Rule(50))
}

func (o *Orchestrator) printBanner(ctx context.Context, files []domain.MediaFile) {
	fmt.Fprintln(o.out, ui.Rule(50))
	fmt.Fprintln(o.out, ui.TitleStyle.Render("🎙️  AUDIO TRANSCRIPTOR"))
	fmt.Fprintln(o.out, ui.Rule(50))
	fmt.Fprintf(o.out, "\n📁 %d file(s) found:\n\n", len(files))

	for _, f := range files {
		sizeMB := float64(f.Size) / (1024 * 1024)
		duration := o.prober.Duration(ctx, f.Path)
		fmt.Fprintf(o.out, "   • %s %s\n",
			ui.FileStyle.Render(f.Name),
			ui.DetailStyle.Render(fmt.Sprintf("(%.1f MB, ~%s)", sizeMB, progress.Clock(int(duration)))))
	}
}

func (o *Orchestrator) printSummary(summary domain.Summary) {
	fmt.Fprintln(o.out)
	fmt.Fprintln(o.out, ui.Rule(50))
	fmt.Fprintln(o.out, ui.SummaryStyle.Render("🎉 SUMMARY"))
	fmt.Fprintln(o.out, ui.Rule(50))
	fmt.Fprintf(o.out, "\n   📄 %d file(s) transcribed\n", summary.Files)
	fmt.Fprintf(o.out, "   📝 %d total words\n", summary.Words)
	fmt.Fprintf(o.out, "   ⏱️  Total time: %s\n", progress.Clock(summary.Seconds))
	fmt.Fprintf(o.out, "\n   📁 Transcripts: %s/\n", filepath.Base(o.cfg.Dirs.Output))
	fmt.Fprintf(o.out, "   📦 Audio moved: %s/\n", filepath.Base(o.cfg.Dirs.Archive))
	fmt.Fprintln(o.out)
	fmt.Fprintln(o.out, ui.Rule(50))
}

// publishStatus applies a state transition and journals it. Transition
// failures indicate a bug in the caller sequencing and are only logged.
func (o *Orchestrator) publishStatus(status domain.BatchStatus) {
	if err := o.state.Transition(status); err != nil {
		o.logger.Warn("state transition rejected", "status", status, "error", err)
		return
	}
	o.journal.Publish(Event{Type: EventTypeStatus, Status: status})
}

// fail marks the run failed and finishes history before propagating err.
func (o *Orchestrator) fail(ctx context.Context, runID string, summary domain.Summary, err error) (domain.Summary, error) {
	o.journal.Publish(Event{Type: EventTypeError, Message: err.Error()})
	if terr := o.state.Transition(domain.BatchStatusFailed); terr != nil {
		o.logger.Warn("state transition rejected", "status", domain.BatchStatusFailed, "error", terr)
	}
	o.finishHistory(ctx, runID, summary)
	return summary, err
}

// finishHistory persists the summary and journal when recording is enabled.
func (o *Orchestrator) finishHistory(ctx context.Context, runID string, summary domain.Summary) {
	if o.store == nil {
		return
	}
	if err := o.store.FinishRun(ctx, runID, summary, o.clock()); err != nil {
		o.logger.Warn("history finish failed", "error", err)
	}

	events := o.journal.Since(0)
	entries := make([]history.JournalEntry, 0, len(events))
	for _, ev := range events {
		message := ev.Message
		if ev.Type == EventTypeStatus {
			message = string(ev.Status)
		}
		entries = append(entries, history.JournalEntry{
			Seq:     ev.Seq,
			Type:    string(ev.Type),
			File:    ev.File,
			Message: message,
			At:      ev.Timestamp,
		})
	}
	if err := o.store.AppendJournal(ctx, runID, entries); err != nil {
		o.logger.Warn("history journal failed", "error", err)
	}
}
