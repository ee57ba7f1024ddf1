package compressor

import (
	"fmt"
	"io"
	"math"
	"strings"
)

const rule = "========================================"

// WriteReport prints a human-readable summary of the run
func (r *Result) WriteReport(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\n       Compression Results\n%s\n", rule, rule)
	fmt.Fprintf(&b, "Run ID: %s\n", r.RunID)
	fmt.Fprintf(&b, "Execution Time: %.3f seconds\n", r.Duration.Seconds())
	fmt.Fprintf(&b, "Original Image Size: %s\n", formatBytes(r.OriginalSize))
	fmt.Fprintf(&b, "Compressed Image Size: %s\n", formatBytes(r.CompressedSize))
	fmt.Fprintf(&b, "Compression Percentage: %.2f%%\n", r.Ratio()*100)
	fmt.Fprintf(&b, "Threshold: %g (%s)\n", r.Threshold, r.Params.Method)
	if r.Search != nil {
		fmt.Fprintf(&b, "Threshold Search: %s after %d rounds, %d trials\n", r.Search.Status, r.Search.Rounds, r.Search.Trials)
		if !math.IsNaN(r.Search.Ratio) {
			fmt.Fprintf(&b, "Search Ratio (%s): %.2f%%\n", r.Measure, r.Search.Ratio*100)
		}
	}
	if r.Tree != nil {
		fmt.Fprintf(&b, "QuadTree Depth: %d\n", r.Tree.Depth())
		fmt.Fprintf(&b, "QuadTree Node Count: %d\n", r.Tree.NodeCount())
		fmt.Fprintf(&b, "QuadTree Leaf Count: %d\n", r.Tree.LeafCount())
	}
	b.WriteString(rule + "\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func formatBytes(n int64) string {
	s := fmt.Sprintf("%d bytes", n)
	if n >= 1024 {
		s += fmt.Sprintf(" (%.2f KB)", float64(n)/1024)
	}
	if n >= 1024*1024 {
		s += fmt.Sprintf(" (%.2f MB)", float64(n)/(1024*1024))
	}
	return s
}
