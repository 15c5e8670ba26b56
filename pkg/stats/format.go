package stats

import (
	"math"
	"time"
)

// FormatValue renders a node value in mode for display, using the mode's
// unit: sizes for bytes, durations for times, grouped integers otherwise.
func FormatValue(d Descriptor, mode Mode, v float64) string {
	if d.Unit(mode) == "seconds" {
		return time.Duration(v * float64(time.Second)).Round(time.Microsecond).String()
	}
	return formatQuantity(int64(math.Round(v)), d.Unit(mode))
}
