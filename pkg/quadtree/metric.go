package quadtree

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Method identifies an error metric. The numeric values are the identifiers
// accepted from configuration.
type Method int

const (
	Variance              Method = 1
	MeanAbsoluteDeviation Method = 2
	MaxPixelDifference    Method = 3
	Entropy               Method = 4
	StructuralSimilarity  Method = 5
)

// Methods lists every supported metric in identifier order
var Methods = []Method{Variance, MeanAbsoluteDeviation, MaxPixelDifference, Entropy, StructuralSimilarity}

func (m Method) String() string {
	switch m {
	case Variance:
		return "variance"
	case MeanAbsoluteDeviation:
		return "mad"
	case MaxPixelDifference:
		return "max"
	case Entropy:
		return "entropy"
	case StructuralSimilarity:
		return "ssim"
	default:
		return "unknown"
	}
}

// Valid reports whether m is one of the five known metrics
func (m Method) Valid() bool {
	return m >= Variance && m <= StructuralSimilarity
}

// Range returns the legal threshold bracket for the metric.
// Unknown methods use the Variance bracket, matching NewMetric's fallback.
func (m Method) Range() (lo, hi float64) {
	switch m {
	case MeanAbsoluteDeviation:
		return 0, 127.5
	case MaxPixelDifference:
		return 0, 255
	case Entropy:
		return 0, 8
	case StructuralSimilarity:
		return 0, 1
	default:
		// 127.5² is the largest population variance an 8-bit channel can reach.
		return 0, 16256.25
	}
}

// ParseMethod accepts an identifier (1..5) or a metric name
func ParseMethod(s string) (Method, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		m := Method(n)
		if !m.Valid() {
			return 0, fmt.Errorf("unknown error method %d", n)
		}
		return m, nil
	}
	switch s {
	case "variance", "var":
		return Variance, nil
	case "mad", "mean-absolute-deviation":
		return MeanAbsoluteDeviation, nil
	case "max", "max-pixel-difference", "mpd":
		return MaxPixelDifference, nil
	case "entropy":
		return Entropy, nil
	case "ssim", "structural-similarity":
		return StructuralSimilarity, nil
	}
	return 0, fmt.Errorf("unknown error method %q", s)
}

// Metric computes a non-negative detail score for a region.
// Higher scores mean more visual variation.
type Metric interface {
	CalculateError(g *Grid, r Region) (float64, error)
}

// NewMetric returns the metric for method, falling back to Variance for unknown identifiers
func NewMetric(method Method) Metric {
	switch method {
	case MeanAbsoluteDeviation:
		return madMetric{}
	case MaxPixelDifference:
		return maxDiffMetric{}
	case Entropy:
		return entropyMetric{}
	case StructuralSimilarity:
		return ssimMetric{}
	default:
		return varianceMetric{}
	}
}

// perChannel averages f over the three channels
func perChannel(g *Grid, r Region, f func(c int) float64) (float64, error) {
	if !g.Valid(r) {
		return 0, ErrInvalidRegion
	}
	return (f(0) + f(1) + f(2)) / 3.0, nil
}

type varianceMetric struct{}

func (varianceMetric) CalculateError(g *Grid, r Region) (float64, error) {
	return perChannel(g, r, func(c int) float64 {
		v, _ := g.ChannelVariance(r, c)
		return v
	})
}

type madMetric struct{}

func (madMetric) CalculateError(g *Grid, r Region) (float64, error) {
	return perChannel(g, r, func(c int) float64 {
		mean, _ := g.ChannelMean(r, c)
		var acc float64
		g.channelValues(r, c, func(v uint8) {
			acc += math.Abs(float64(v) - mean)
		})
		return acc / float64(r.Area())
	})
}

type maxDiffMetric struct{}

func (maxDiffMetric) CalculateError(g *Grid, r Region) (float64, error) {
	return perChannel(g, r, func(c int) float64 {
		lo, hi := uint8(255), uint8(0)
		g.channelValues(r, c, func(v uint8) {
			lo = min(lo, v)
			hi = max(hi, v)
		})
		return float64(hi - lo)
	})
}

type entropyMetric struct{}

func (entropyMetric) CalculateError(g *Grid, r Region) (float64, error) {
	return perChannel(g, r, func(c int) float64 {
		var hist [256]int
		g.channelValues(r, c, func(v uint8) { hist[v]++ })

		total := float64(r.Area())
		var e float64
		for _, count := range hist {
			if count == 0 {
				continue
			}
			p := float64(count) / total
			e -= p * math.Log2(p)
		}
		return e
	})
}
