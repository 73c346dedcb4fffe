// Package stats provides the bounded sample window and the robust
// statistics (median, MAD) used by the calibrators.
package stats

import (
	"math"
	"sort"
)

// MADScale converts a MAD value to a sigma estimate under normality.
const MADScale = 1.4826

// Window is a bounded FIFO of float64 samples. The zero value is not
// usable; create one with NewWindow.
type Window struct {
	vals []float64
	cap  int
}

// NewWindow creates a window that keeps the most recent capacity samples.
func NewWindow(capacity int) *Window {
	if capacity < 1 {
		capacity = 1
	}
	return &Window{vals: make([]float64, 0, capacity), cap: capacity}
}

// Push appends a sample, evicting the oldest when full.
func (w *Window) Push(v float64) {
	if len(w.vals) >= w.cap {
		copy(w.vals, w.vals[1:])
		w.vals[len(w.vals)-1] = v
		return
	}
	w.vals = append(w.vals, v)
}

// Len returns the number of stored samples.
func (w *Window) Len() int { return len(w.vals) }

// Cap returns the window capacity.
func (w *Window) Cap() int { return w.cap }

// Values returns a copy of the stored samples, oldest first.
func (w *Window) Values() []float64 {
	out := make([]float64, len(w.vals))
	copy(out, w.vals)
	return out
}

// Reset discards all samples.
func (w *Window) Reset() { w.vals = w.vals[:0] }

// Mean returns the arithmetic mean of the stored samples, 0 if empty.
func (w *Window) Mean() float64 { return Mean(w.vals) }

// Median returns the median of the stored samples, 0 if empty.
func (w *Window) Median() float64 { return Median(w.vals) }

// Mean returns the arithmetic mean of vals, 0 if empty.
func Mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// Median returns the median of vals, 0 if empty.
func Median(vals []float64) float64 {
	n := len(vals)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, vals)
	sort.Float64s(sorted)
	mid := n / 2
	if n%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// MAD returns the median absolute deviation of vals around center.
func MAD(vals []float64, center float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	devs := make([]float64, len(vals))
	for i, v := range vals {
		devs[i] = math.Abs(v - center)
	}
	return Median(devs)
}

// Baseline is a running statistical summary of "normal" readings.
type Baseline struct {
	Center      float64 `json:"center"`
	Dispersion  float64 `json:"dispersion"`
	SampleCount int     `json:"sample_count"`
}
