package flame

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/matzehuels/stackgraph/pkg/layout"
	"github.com/matzehuels/stackgraph/pkg/sample"
	"github.com/matzehuels/stackgraph/pkg/selection"
	"github.com/matzehuels/stackgraph/pkg/stack"
	"github.com/matzehuels/stackgraph/pkg/trie"
)

func testLayout(t *testing.T, counts map[string]int64, filter stack.Filter) *layout.Layout {
	t.Helper()
	snap := sample.Counts(counts)
	root, err := trie.Build(snap, filter)
	if err != nil {
		t.Fatalf("trie.Build() error: %v", err)
	}
	l, err := layout.Compute(root, snap.Descriptor(), layout.DefaultOptions(snap.Descriptor()))
	if err != nil {
		t.Fatalf("layout.Compute() error: %v", err)
	}
	return l
}

var counts = map[string]int64{
	"main;parse;lex":    6,
	"main;parse":        2,
	"main;render<html>": 2,
}

func TestRenderSVG(t *testing.T) {
	l := testLayout(t, counts, nil)
	svg := string(RenderSVG(l, WithWidth(800), WithTitle("cpu & more")))

	if !strings.HasPrefix(svg, "<svg") {
		t.Fatalf("output does not start with <svg: %q", svg[:20])
	}
	if got := strings.Count(svg, `<rect id="box-`); got != len(l.Boxes) {
		t.Errorf("box count = %d, want %d", got, len(l.Boxes))
	}
	if !strings.Contains(svg, "cpu &amp; more") {
		t.Error("title not escaped")
	}
	if !strings.Contains(svg, "render&lt;html&gt;") {
		t.Error("frame name not escaped")
	}
	if !strings.Contains(svg, `class="ruler"`) {
		t.Error("ruler missing for by-value scale")
	}
	if !strings.Contains(svg, "<title>main 100.0%</title>") {
		t.Errorf("root tooltip missing")
	}
	if strings.Contains(svg, "<script") {
		t.Error("script present without WithInteraction")
	}
}

func TestRenderSVGTierColors(t *testing.T) {
	l := testLayout(t, counts, nil)
	svg := string(RenderSVG(l))
	for _, b := range l.Boxes {
		if b.Share == 1 && b.Tier != layout.Tier0 {
			t.Errorf("full-width box %s has tier %d", b.Frame, b.Tier)
		}
	}
	if !strings.Contains(svg, TierColors[0]) {
		t.Error("hottest tier color missing")
	}
}

func TestRenderSVGEmpty(t *testing.T) {
	l := testLayout(t, map[string]int64{}, nil)
	svg := string(RenderSVG(l))
	if !strings.Contains(svg, "No data") {
		t.Errorf("empty text missing: %s", svg)
	}
	if strings.Contains(svg, `<rect id="box-`) {
		t.Error("empty layout drew boxes")
	}
}

func TestRenderSVGSelection(t *testing.T) {
	l := testLayout(t, map[string]int64{"main;a;b": 1, "main;c;b": 1}, nil)
	idx := selection.New(l)
	idx.Select(stack.Frame{Function: "b"})

	svg := string(RenderSVG(l, WithSelection(idx), WithInteraction()))
	if got := strings.Count(svg, `class="box highlight"`); got != 2 {
		t.Errorf("highlighted boxes = %d, want 2", got)
	}
	if got := strings.Count(svg, SelectedColor); got != 2 {
		t.Errorf("selected fills = %d, want 2", got)
	}
	if !strings.Contains(svg, "selectFrame") {
		t.Error("interaction script missing")
	}
}

func TestRenderJSON(t *testing.T) {
	l := testLayout(t, counts, nil)
	data, err := RenderJSON(l)
	if err != nil {
		t.Fatalf("RenderJSON() error: %v", err)
	}

	var out jsonOutput
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("json.Unmarshal() error: %v", err)
	}
	if out.Kind != "count" {
		t.Errorf("Kind = %q, want count", out.Kind)
	}
	if out.Total != 10 {
		t.Errorf("Total = %v, want 10", out.Total)
	}
	if out.Rows != 3 {
		t.Errorf("Rows = %d, want 3", out.Rows)
	}
	if len(out.Boxes) != len(l.Boxes) {
		t.Fatalf("Boxes = %d, want %d", len(out.Boxes), len(l.Boxes))
	}
	if out.Boxes[0].Frame != "main" || out.Boxes[0].X0 != 0 || out.Boxes[0].X1 != 1 {
		t.Errorf("first box = %+v, want main over [0,1)", out.Boxes[0])
	}
	if out.Empty != "" {
		t.Errorf("Empty = %q for non-empty layout", out.Empty)
	}
}

func TestRenderJSONEmptyAfterFilter(t *testing.T) {
	f, err := stack.NewFrameFilter(stack.FilterConfig{ExcludePatterns: []string{"."}})
	if err != nil {
		t.Fatal(err)
	}
	l := testLayout(t, counts, f)
	data, err := RenderJSON(l)
	if err != nil {
		t.Fatalf("RenderJSON() error: %v", err)
	}
	var out jsonOutput
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if out.Empty != "No stack frames remain after filter" {
		t.Errorf("Empty = %q", out.Empty)
	}
	if len(out.Boxes) != 0 {
		t.Errorf("Boxes = %d, want 0", len(out.Boxes))
	}
}

func TestRenderTextPlain(t *testing.T) {
	l := testLayout(t, map[string]int64{"main;a": 1, "main;b": 1}, nil)
	got := RenderText(l, WithColumns(20), WithPlain())
	lines := strings.Split(strings.TrimSuffix(got, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2:\n%s", len(lines), got)
	}
	if lines[0] != "|main"+strings.Repeat(" ", 15) {
		t.Errorf("row 0 = %q", lines[0])
	}
	if lines[1] != "|a"+strings.Repeat(" ", 8)+"|b"+strings.Repeat(" ", 8) {
		t.Errorf("row 1 = %q", lines[1])
	}
}

func TestRenderTextEmpty(t *testing.T) {
	l := testLayout(t, nil, nil)
	if got := RenderText(l); got != "No data\n" {
		t.Errorf("RenderText() = %q", got)
	}
}

func TestColumns(t *testing.T) {
	tests := []struct {
		x0, x1 float64
		c0, c1 int
	}{
		{0, 1, 0, 80},
		{0, 0.5, 0, 40},
		{0.5, 1, 40, 80},
		{0.999, 1, 80, 80},
	}
	for _, tt := range tests {
		c0, c1 := Columns(tt.x0, tt.x1, 80)
		if c0 != tt.c0 || c1 != tt.c1 {
			t.Errorf("Columns(%v, %v) = %d, %d, want %d, %d", tt.x0, tt.x1, c0, c1, tt.c0, tt.c1)
		}
	}
}

func TestBoxAtCellMatchesPainter(t *testing.T) {
	// a spans [0, 0.25): at 6 columns its right edge lands on 1.5 cells and
	// rounds up, so the painter draws a in cell 1.
	l := testLayout(t, map[string]int64{"main;a": 1, "main;b": 3}, nil)
	const cols = 6

	b, ok := BoxAtCell(l, 1, 1, cols)
	if !ok || b.Frame.Function != "a" {
		t.Fatalf("BoxAtCell(col 1) = %v, %v, want a", b, ok)
	}
	b, ok = BoxAtCell(l, 2, 1, cols)
	if !ok || b.Frame.Function != "b" {
		t.Fatalf("BoxAtCell(col 2) = %v, %v, want b", b, ok)
	}

	line := strings.Split(RenderText(l, WithColumns(cols), WithPlain()), "\n")[1]
	if !strings.HasPrefix(line, "|a") || strings.Index(line, "|b") != 2 {
		t.Errorf("painted row = %q, want a in cells 0-1 and b from cell 2", line)
	}

	for _, tt := range []struct{ col, row int }{{-1, 0}, {cols, 0}, {0, -1}, {0, l.Rows}} {
		if _, ok := BoxAtCell(l, tt.col, tt.row, cols); ok {
			t.Errorf("BoxAtCell(%d, %d) hit outside the canvas", tt.col, tt.row)
		}
	}
}

func TestTruncateLabel(t *testing.T) {
	tests := []struct {
		label string
		width float64
		want  string
	}{
		{"main", 200, "main"},
		{"very_long_function_name", 60, "very_lo.."},
		{"abc", 10, ""},
	}
	for _, tt := range tests {
		if got := TruncateLabel(tt.label, tt.width, 10); got != tt.want {
			t.Errorf("TruncateLabel(%q, %v) = %q, want %q", tt.label, tt.width, got, tt.want)
		}
	}
}

func TestFontSize(t *testing.T) {
	if got := FontSize(100); got != fontSizeMax {
		t.Errorf("FontSize(100) = %v, want %v", got, fontSizeMax)
	}
	if got := FontSize(2); got != fontSizeMin {
		t.Errorf("FontSize(2) = %v, want %v", got, fontSizeMin)
	}
}

func TestRenderTextWindow(t *testing.T) {
	l := testLayout(t, map[string]int64{"main;a": 1, "main;b": 1}, nil)
	got := RenderText(l, WithColumns(40), WithWindow(20, 10), WithPlain())
	lines := strings.Split(strings.TrimSuffix(got, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2:\n%s", len(lines), got)
	}
	if lines[0] != "|main"+strings.Repeat(" ", 5) {
		t.Errorf("row 0 = %q", lines[0])
	}
	if lines[1] != "|b"+strings.Repeat(" ", 8) {
		t.Errorf("row 1 = %q", lines[1])
	}
}
