package quadtree

// SSIM stabilizing constants for 8-bit samples (Wang et al.)
const (
	ssimC1 = (0.01 * 255) * (0.01 * 255)
	ssimC2 = (0.03 * 255) * (0.03 * 255)
)

// ssimMetric scores a region by how far it is from being structurally
// identical to its own flat-colored replacement. The score is only
// comparable to other ssim scores, not to the other metrics.
type ssimMetric struct{}

func (ssimMetric) CalculateError(g *Grid, r Region) (float64, error) {
	if !g.Valid(r) {
		return 0, ErrInvalidRegion
	}
	avg, err := g.AverageColor(r)
	if err != nil {
		return 0, err
	}

	n := r.Area()
	original := make([]float64, n)
	compressed := make([]float64, n)

	var total float64
	for c := 0; c < 3; c++ {
		i := 0
		g.channelValues(r, c, func(v uint8) {
			original[i] = float64(v)
			i++
		})
		fill := float64(avg.Channel(c))
		for j := range compressed {
			compressed[j] = fill
		}
		total += ssim(original, compressed)
	}
	return max(0, 1.0-total/3.0), nil
}

// ssim compares two equally sized signals with population statistics
func ssim(a, b []float64) float64 {
	n := float64(len(a))
	if n == 0 {
		return 1.0
	}

	var muA, muB float64
	for i := range a {
		muA += a[i]
		muB += b[i]
	}
	muA /= n
	muB /= n

	var sigAA, sigBB, sigAB float64
	for i := range a {
		da := a[i] - muA
		db := b[i] - muB
		sigAA += da * da
		sigBB += db * db
		sigAB += da * db
	}
	sigAA /= n
	sigBB /= n
	sigAB /= n

	num := (2*muA*muB + ssimC1) * (2*sigAB + ssimC2)
	den := (muA*muA + muB*muB + ssimC1) * (sigAA + sigBB + ssimC2)
	return num / den
}
