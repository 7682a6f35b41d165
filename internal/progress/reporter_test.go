package progress

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

// TestReporterCapsPercentage verifies the bar never claims completion while
// the transcription call is still running.
func TestReporterCapsPercentage(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporterForTests(&buf, 0.01, 5*time.Millisecond)

	r.Start()
	time.Sleep(60 * time.Millisecond)
	ticks := r.Stop()

	if ticks < 1 {
		t.Fatalf("ticks = %d, want at least 1", ticks)
	}

	out := buf.String()
	if !strings.Contains(out, "99%") {
		t.Fatalf("expected capped 99%% render, got: %q", out)
	}
	if strings.Contains(out, "100%") {
		t.Fatalf("bar claimed completion before stop: %q", out)
	}
}

// TestReporterFinalLine verifies the completion render after stop.
func TestReporterFinalLine(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporterForTests(&buf, 10.0, 5*time.Millisecond)

	r.Start()
	time.Sleep(20 * time.Millisecond)
	r.Stop()

	out := buf.String()
	if !strings.Contains(out, "done in ") {
		t.Fatalf("missing completion line, got: %q", out)
	}
	if !strings.HasSuffix(out, "\n") {
		t.Fatalf("completion line must end the output with a newline: %q", out)
	}
}

// TestReporterSpinnerWithoutEstimate verifies spinner fallback rendering.
func TestReporterSpinnerWithoutEstimate(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporterForTests(&buf, 0, 5*time.Millisecond)

	r.Start()
	time.Sleep(20 * time.Millisecond)
	r.Stop()

	if !strings.Contains(buf.String(), "Transcribing...") {
		t.Fatalf("expected spinner render, got: %q", buf.String())
	}
}

// TestReporterStopIsIdempotent verifies repeated stops return the same count.
func TestReporterStopIsIdempotent(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporterForTests(&buf, 1.0, 5*time.Millisecond)

	r.Start()
	time.Sleep(20 * time.Millisecond)

	first := r.Stop()
	second := r.Stop()
	if first != second {
		t.Fatalf("stop counts differ: %d vs %d", first, second)
	}
}

// TestReporterStopBeforeStart verifies a never-started reporter is safe.
func TestReporterStopBeforeStart(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporterForTests(&buf, 1.0, 5*time.Millisecond)

	if ticks := r.Stop(); ticks != 0 {
		t.Fatalf("ticks = %d, want 0", ticks)
	}
	if buf.Len() != 0 {
		t.Fatalf("unexpected output: %q", buf.String())
	}
}
