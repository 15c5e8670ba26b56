package layout

import "testing"

func TestBoxRect(t *testing.T) {
	tests := []struct {
		name      string
		box       Box
		width     float64
		rowHeight float64
		want      Rect
	}{
		{
			name:      "first row",
			box:       Box{X0: 0, X1: 0.5, Depth: 1},
			width:     200,
			rowHeight: 10,
			want:      Rect{Left: 0, Right: 100, Top: 0, Bottom: 10},
		},
		{
			name:      "third row",
			box:       Box{X0: 0.25, X1: 0.75, Depth: 3},
			width:     400,
			rowHeight: 16,
			want:      Rect{Left: 100, Right: 300, Top: 32, Bottom: 48},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.box.Rect(tt.width, tt.rowHeight); got != tt.want {
				t.Errorf("Rect() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestRectGeometry(t *testing.T) {
	r := Rect{Left: 10, Right: 50, Top: 20, Bottom: 80}
	if got := r.Width(); got != 40 {
		t.Errorf("Width() = %v, want 40", got)
	}
	if got := r.Height(); got != 60 {
		t.Errorf("Height() = %v, want 60", got)
	}
	if got := r.CenterX(); got != 30 {
		t.Errorf("CenterX() = %v, want 30", got)
	}
	if got := r.CenterY(); got != 50 {
		t.Errorf("CenterY() = %v, want 50", got)
	}
}

func TestBoxContains(t *testing.T) {
	b := &Box{X0: 0.2, X1: 0.4, Depth: 2}
	tests := []struct {
		x    float64
		want bool
	}{
		{0.1, false},
		{0.2, true},
		{0.3, true},
		{0.4, false},
	}
	for _, tt := range tests {
		if got := b.Contains(tt.x); got != tt.want {
			t.Errorf("Contains(%v) = %v, want %v", tt.x, got, tt.want)
		}
	}
	if b.Row() != 1 {
		t.Errorf("Row() = %d, want 1", b.Row())
	}
}

func TestTierLabel(t *testing.T) {
	want := []string{"50%", "25%", "12%", "6%", "<6%"}
	for i, w := range want {
		if got := Tier(i).Label(); got != w {
			t.Errorf("Tier(%d).Label() = %q, want %q", i, got, w)
		}
	}
}
