package progress

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"

	"audio-transcriptor/internal/ui"
)

const barWidth = 30

// Reporter renders per-file progress on its own goroutine while a blocking
// transcription call runs. It shares nothing with its caller except a one-shot
// stop signal; the elapsed tick count is handed back when Stop joins.
type Reporter struct {
	w         io.Writer
	estimated float64
	interval  time.Duration
	bar       progress.Model
	frames    []string

	stop     chan struct{}
	done     chan int
	stopOnce sync.Once
	started  bool
}

// NewReporter creates a reporter with a one-second cadence. An estimate of
// zero or less switches rendering from a bar to a spinner.
func NewReporter(w io.Writer, estimatedSeconds float64) *Reporter {
	return newReporter(w, estimatedSeconds, time.Second)
}

// NewReporterForTests creates a reporter with an injectable tick interval.
func NewReporterForTests(w io.Writer, estimatedSeconds float64, interval time.Duration) *Reporter {
	return newReporter(w, estimatedSeconds, interval)
}

func newReporter(w io.Writer, estimatedSeconds float64, interval time.Duration) *Reporter {
	bar := progress.New(
		progress.WithWidth(barWidth),
		progress.WithSolidFill("#00FF00"),
		progress.WithoutPercentage(),
	)

	return &Reporter{
		w:         w,
		estimated: estimatedSeconds,
		interval:  interval,
		bar:       bar,
		frames:    spinner.MiniDot.Frames,
		stop:      make(chan struct{}),
		done:      make(chan int, 1),
	}
}

// Start launches the render loop. It must be called at most once.
func (r *Reporter) Start() {
	if r.started {
		return
	}
	r.started = true
	go r.loop()
}

// Stop signals the render loop, waits for the completion line, and returns
// the number of elapsed ticks. Safe to call more than once.
func (r *Reporter) Stop() int {
	if !r.started {
		return 0
	}
	r.stopOnce.Do(func() {
		close(r.stop)
	})
	ticks := <-r.done
	r.done <- ticks
	return ticks
}

func (r *Reporter) loop() {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	elapsed := 0
	r.render(elapsed)

	for {
		select {
		case <-r.stop:
			r.renderFinal(elapsed)
			r.done <- elapsed
			return
		case <-ticker.C:
			elapsed++
			r.render(elapsed)
		}
	}
}

func (r *Reporter) render(elapsed int) {
	if r.estimated > 0 {
		// Capped below 100% so the bar never claims completion before the
		// transcription call actually returns.
		pct := float64(elapsed) / r.estimated
		if pct > 0.99 {
			pct = 0.99
		}
		fmt.Fprintf(r.w, "\r   [%s] %2d%% %s %s / ~%s",
			r.bar.ViewAs(pct),
			int(pct*100),
			ui.DetailStyle.Render("•"),
			Clock(elapsed),
			Clock(int(r.estimated)),
		)
		return
	}

	frame := r.frames[elapsed%len(r.frames)]
	fmt.Fprintf(r.w, "\r   %s Transcribing... %s", frame, Clock(elapsed))
}

func (r *Reporter) renderFinal(elapsed int) {
	fmt.Fprintf(r.w, "\r   [%s] %s      \n",
		r.bar.ViewAs(1.0),
		ui.OKStyle.Render("done in "+Clock(elapsed)),
	)
}
