package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

func testSpinner(ctx context.Context, buf *bytes.Buffer) *spinner {
	s := newSpinner(ctx, "Rendering cpu.folded...")
	s.w = buf
	return s
}

func TestSpinnerDrawsAndClears(t *testing.T) {
	var buf bytes.Buffer
	s := testSpinner(context.Background(), &buf)
	s.Start()
	time.Sleep(200 * time.Millisecond)
	s.Stop()

	out := buf.String()
	if !strings.Contains(out, "Rendering cpu.folded...") {
		t.Errorf("spinner output %q lacks the message", out)
	}
	blank := "\r" + strings.Repeat(" ", len(s.message)+4) + "\r"
	if !strings.HasSuffix(out, blank) {
		t.Errorf("spinner did not clear its line: %q", out)
	}
}

func TestSpinnerStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var buf bytes.Buffer
	s := testSpinner(ctx, &buf)
	s.Start()
	cancel()

	select {
	case <-s.stopped:
	case <-time.After(time.Second):
		t.Fatal("spinner kept running after cancellation")
	}
	s.Stop() // no-op once stopped
	s.Stop()
}
