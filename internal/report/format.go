package report

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Null is the rendering of a missing metric value.
const Null = "NULL"

// ErrNotFinite is returned when NaN or an infinity is formatted.
var ErrNotFinite = errors.New("value is not finite")

const (
	metricDecimals = 5
	detailDecimals = 3
)

func formatFixed(v float64, decimals int) (string, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "", fmt.Errorf("%w: %v", ErrNotFinite, v)
	}
	s := strconv.FormatFloat(v, 'f', decimals, 64)
	s = strings.TrimRight(s, "0")
	if strings.HasSuffix(s, ".") {
		s += "0"
	}
	if s == "-0.0" {
		s = "0.0"
	}
	return s, nil
}

// FormatNumber renders a metric value.
func FormatNumber(v float64) (string, error) { return formatFixed(v, metricDecimals) }

// FormatDetail renders a per-frame detail value.
func FormatDetail(v float64) (string, error) { return formatFixed(v, detailDecimals) }
