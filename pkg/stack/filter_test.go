package stack

import (
	"testing"

	"github.com/matzehuels/stackgraph/pkg/errors"
)

type dropFilter string

func (d dropFilter) Includes(f Frame) bool { return f.Function != string(d) }

func TestApply(t *testing.T) {
	s := Of("main", "lock", "run", "lock", "read")

	if got := Apply(nil, s); !got.Equal(s) {
		t.Errorf("Apply(nil) = %v", got)
	}

	got := Apply(dropFilter("lock"), s)
	if want := Of("main", "run", "read"); !got.Equal(want) {
		t.Errorf("Apply(drop lock) = %v, want %v", got, want)
	}
	if !s.Equal(Of("main", "lock", "run", "lock", "read")) {
		t.Error("Apply must not modify the input stack")
	}

	if got := Apply(dropFilter("absent"), s); &got[0] != &s[0] {
		t.Error("Apply should return the input when nothing is dropped")
	}
}

func TestFrameFilter(t *testing.T) {
	tests := []struct {
		name string
		cfg  FilterConfig
		in   Stack
		want Stack
	}{
		{
			name: "no rules",
			in:   Of("a", "b"),
			want: Of("a", "b"),
		},
		{
			name: "exact exclude",
			cfg:  FilterConfig{Exclude: []string{"B"}},
			in:   Of("A", "B", "C"),
			want: Of("A", "C"),
		},
		{
			name: "exclude pattern",
			cfg:  FilterConfig{ExcludePatterns: []string{`^runtime\.`}},
			in:   Of("main", "runtime.mcall", "runtime.park", "work"),
			want: Of("main", "work"),
		},
		{
			name: "include pattern",
			cfg:  FilterConfig{IncludePatterns: []string{`^app\.`}},
			in:   Of("main", "app.Serve", "net.read", "app.Handle"),
			want: Of("app.Serve", "app.Handle"),
		},
		{
			name: "max depth keeps root frames",
			cfg:  FilterConfig{MaxDepth: 2},
			in:   Of("a", "b", "c", "d"),
			want: Of("a", "b"),
		},
		{
			name: "max depth after exclusion",
			cfg:  FilterConfig{Exclude: []string{"a"}, MaxDepth: 2},
			in:   Of("a", "b", "c", "d"),
			want: Of("b", "c"),
		},
		{
			name: "everything filtered",
			cfg:  FilterConfig{Exclude: []string{"a"}},
			in:   Of("a", "a"),
			want: Stack{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewFrameFilter(tt.cfg)
			if err != nil {
				t.Fatalf("NewFrameFilter() error = %v", err)
			}
			got := Apply(f, tt.in)
			if !got.Equal(tt.want) {
				t.Errorf("Apply() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewFrameFilterErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  FilterConfig
	}{
		{name: "negative depth", cfg: FilterConfig{MaxDepth: -1}},
		{name: "empty name", cfg: FilterConfig{Exclude: []string{" "}}},
		{name: "bad exclude pattern", cfg: FilterConfig{ExcludePatterns: []string{"("}}},
		{name: "bad include pattern", cfg: FilterConfig{IncludePatterns: []string{"["}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFrameFilter(tt.cfg)
			if !errors.Is(err, errors.ErrCodeInvalidFilter) {
				t.Errorf("NewFrameFilter() error = %v, want %s", err, errors.ErrCodeInvalidFilter)
			}
		})
	}
}

func TestFilterConfigIsZero(t *testing.T) {
	if !(FilterConfig{}).IsZero() {
		t.Error("empty config should be zero")
	}
	if (FilterConfig{MaxDepth: 1}).IsZero() {
		t.Error("config with max depth is not zero")
	}
}
