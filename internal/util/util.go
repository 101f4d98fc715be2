package util

import (
	"fmt"
	"math"
)

// Round2 rounds to two decimal places. Used for keyword ratios.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Round3 rounds to three decimal places. Used for rates and precision
// values before they are persisted.
func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// Percent formats a ratio as a whole-number percentage, e.g. 0.65
// becomes "65%".
func Percent(v float64) string {
	return fmt.Sprintf("%.0f%%", v*100)
}
