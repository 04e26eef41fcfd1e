package report

import (
	"fmt"
	"io"
)

// SizeReport compares a file's size before and after it was rewritten.
type SizeReport struct {
	Path      string
	Original  int64
	Optimized int64
}

func (r SizeReport) OriginalKB() float64 {
	return float64(r.Original) / 1024
}

func (r SizeReport) OptimizedKB() float64 {
	return float64(r.Optimized) / 1024
}

// Reduction is the percentage of the original size that was saved.
// It is negative when the file grew and zero for an empty original.
func (r SizeReport) Reduction() float64 {
	if r.Original == 0 {
		return 0
	}
	return float64(r.Original-r.Optimized) / float64(r.Original) * 100
}

func (r SizeReport) WriteTo(w io.Writer) (int64, error) {
	n, err := fmt.Fprintf(w,
		"Successfully optimized: %s\nOriginal Size: %.2f KB\nNew Size:      %.2f KB\nReduction:     %.1f%%\n",
		r.Path, r.OriginalKB(), r.OptimizedKB(), r.Reduction())
	return int64(n), err
}
