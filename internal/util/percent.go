package util

import (
	"math"
	"strconv"
)

// FormatPercent renders v rounded to two decimals without trailing zeros,
// followed by a percent sign: 22.2 becomes "22.2%", 75.7749 becomes "75.77%".
func FormatPercent(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64) + "%"
}
