package layout

import (
	"strconv"
)

// Ruler tick counts for the by-value scale.
const (
	RulerMajor = 4
	RulerMinor = 20
)

// Tick is one ruler mark at fraction X of the total width.
type Tick struct {
	X     float64
	Major bool
	Value float64 // total value at X
}

// Ruler returns the ruler ticks, interior positions only. Widths are
// proportional to value only under ByValue, so other scales get no ruler.
func (l *Layout) Ruler() []Tick {
	if l.Options.Scale != ByValue || l.Total == 0 {
		return nil
	}
	ticks := make([]Tick, 0, RulerMinor-1)
	for i := 1; i < RulerMinor; i++ {
		x := float64(i) / RulerMinor
		ticks = append(ticks, Tick{
			X:     x,
			Major: i%(RulerMinor/RulerMajor) == 0,
			Value: x * l.Total,
		})
	}
	return ticks
}

func formatShare(share float64) string {
	return strconv.FormatFloat(share*100, 'f', 1, 64) + "%"
}
