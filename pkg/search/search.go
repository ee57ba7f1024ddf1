// Package search calibrates a quadtree threshold so that the resulting
// compression ratio lands on a requested target.
//
// Compression ratio is not guaranteed to be monotonic in the threshold, so
// the search keeps a cache of every measured (threshold, ratio) sample and
// re-derives its bracket from the cache each round instead of relying on a
// classic bisection invariant.
package search

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"

	"github.com/harliandi/go-quadtree/pkg/metrics"
)

var (
	// ErrNoSamples is returned when every seed trial failed
	ErrNoSamples = errors.New("no threshold trial succeeded")
	// ErrInvalidTarget is returned for a target ratio outside (0, 1]
	ErrInvalidTarget = errors.New("target ratio must be in (0, 1]")
)

const (
	defaultMaxRounds        = 25
	defaultTolerance        = 1e-6
	defaultSeeds            = 5
	defaultConvergenceFloor = 1e-6
	defaultQuarterSpan      = 0.05
)

// Status describes how a search ended
type Status int

const (
	// Converged means the best ratio is within tolerance of the target
	Converged Status = iota
	// BestEffort means the rounds or bracket ran out before reaching tolerance
	BestEffort
	// Unattainable means the target lies outside the sampled ratio range
	Unattainable
)

func (s Status) String() string {
	switch s {
	case Converged:
		return "converged"
	case BestEffort:
		return "best_effort"
	case Unattainable:
		return "unattainable"
	default:
		return "unknown"
	}
}

// Result is the outcome of Find
type Result struct {
	// Threshold is the chosen threshold, or the caller's original one when Unattainable
	Threshold float64
	// Ratio is the measured ratio at Threshold (NaN when Unattainable)
	Ratio    float64
	Status   Status
	Rounds   int
	Trials   int
	Failures int
	// MinRatio and MaxRatio span the seed samples
	MinRatio float64
	MaxRatio float64
}

// Searcher finds a threshold for a target compression ratio
type Searcher struct {
	// Lo and Hi bound the thresholds tried
	Lo, Hi float64
	// Evaluate measures the ratio at a threshold
	Evaluate Evaluator
	// Workers sizes the trial pool; <= 0 uses DefaultWorkers
	Workers int
	// MaxRounds caps refinement rounds after seeding
	MaxRounds int
	// Tolerance is the accepted |ratio - target|
	Tolerance float64
	// Seeds is the number of initial samples (3..5 recommended)
	Seeds int
	// ConvergenceFloor stops the search once bracket width / span drops below it
	ConvergenceFloor float64
	// QuarterSpan adds quarter points while bracket width / span exceeds it
	QuarterSpan float64
}

// New creates a searcher over [lo, hi] with default limits
func New(lo, hi float64, eval Evaluator) *Searcher {
	return &Searcher{
		Lo:               lo,
		Hi:               hi,
		Evaluate:         eval,
		MaxRounds:        defaultMaxRounds,
		Tolerance:        defaultTolerance,
		Seeds:            defaultSeeds,
		ConvergenceFloor: defaultConvergenceFloor,
		QuarterSpan:      defaultQuarterSpan,
	}
}

type sample struct {
	threshold float64
	ratio     float64
}

// state is the per-call search cache
type state struct {
	target   float64
	samples  []sample // sorted by threshold
	seen     map[float64]bool
	best     sample
	hasBest  bool
	trials   int
	failures int
}

func (st *state) add(trials []Trial) {
	for _, tr := range trials {
		st.trials++
		if st.seen[tr.Threshold] {
			continue
		}
		if tr.Err != nil || math.IsNaN(tr.Ratio) || math.IsInf(tr.Ratio, 0) {
			st.failures++
			log.Printf("Threshold %g excluded: %v", tr.Threshold, tr.Err)
			// A busy pool says nothing about the threshold; it may be retried.
			if !errors.Is(tr.Err, ErrPoolBusy) {
				st.seen[tr.Threshold] = true
			}
			continue
		}
		st.seen[tr.Threshold] = true
		s := sample{threshold: tr.Threshold, ratio: tr.Ratio}
		st.samples = append(st.samples, s)
		if !st.hasBest || math.Abs(s.ratio-st.target) < math.Abs(st.best.ratio-st.target) {
			st.best = s
			st.hasBest = true
		}
	}
	sort.Slice(st.samples, func(i, j int) bool {
		return st.samples[i].threshold < st.samples[j].threshold
	})
}

// bracket returns the narrowest pair of adjacent samples whose ratios
// straddle the target, in either direction
func (st *state) bracket() (lo, hi sample, ok bool) {
	width := math.Inf(1)
	for i := 0; i+1 < len(st.samples); i++ {
		a, b := st.samples[i], st.samples[i+1]
		if (a.ratio-st.target)*(b.ratio-st.target) > 0 {
			continue
		}
		if w := b.threshold - a.threshold; w < width {
			lo, hi, width, ok = a, b, w, true
		}
	}
	return lo, hi, ok
}

// gaps returns the midpoints of the widest intervals between cached samples
func (st *state) gaps(n int) []float64 {
	type gap struct{ lo, hi float64 }
	var all []gap
	for i := 0; i+1 < len(st.samples); i++ {
		all = append(all, gap{st.samples[i].threshold, st.samples[i+1].threshold})
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].hi-all[i].lo > all[j].hi-all[j].lo
	})
	var out []float64
	for i := 0; i < len(all) && len(out) < n; i++ {
		mid := all[i].lo + (all[i].hi-all[i].lo)/2
		if !st.seen[mid] {
			out = append(out, mid)
		}
	}
	return out
}

// seedThresholds spreads n samples over [lo, hi], denser near lo where the
// ratio changes fastest
func seedThresholds(lo, hi float64, n int) []float64 {
	if n < 2 {
		n = 2
	}
	out := make([]float64, n)
	span := hi - lo
	for i := range out {
		f := float64(i) / float64(n-1)
		out[i] = lo + span*f*f
	}
	return out
}

// Find searches for a threshold whose measured ratio is close to target.
// original is returned unchanged when the target cannot be reached.
func (s *Searcher) Find(ctx context.Context, target, original float64) (Result, error) {
	if target <= 0 || target > 1 || math.IsNaN(target) {
		return Result{Threshold: original, Ratio: math.NaN(), Status: Unattainable}, ErrInvalidTarget
	}
	if s.Evaluate == nil {
		return Result{Threshold: original}, fmt.Errorf("search: nil evaluator")
	}

	pool := NewWorkerPool(s.Workers, s.Evaluate)
	pool.Start()
	defer pool.Stop()

	st := &state{target: target, seen: make(map[float64]bool)}
	span := s.Hi - s.Lo

	st.add(pool.Evaluate(ctx, seedThresholds(s.Lo, s.Hi, s.seeds())))
	if err := ctx.Err(); err != nil {
		return Result{Threshold: original}, err
	}
	if len(st.samples) == 0 {
		return Result{Threshold: original, Trials: st.trials, Failures: st.failures}, ErrNoSamples
	}

	res := Result{MinRatio: math.Inf(1), MaxRatio: math.Inf(-1)}
	for _, smp := range st.samples {
		log.Printf("Sample threshold %g gives compression %.2f%%", smp.threshold, smp.ratio*100)
		res.MinRatio = math.Min(res.MinRatio, smp.ratio)
		res.MaxRatio = math.Max(res.MaxRatio, smp.ratio)
	}

	if target < res.MinRatio || target > res.MaxRatio {
		log.Printf("Target %.2f%% outside achievable range [%.2f%%, %.2f%%]", target*100, res.MinRatio*100, res.MaxRatio*100)
		res.Threshold = original
		res.Ratio = math.NaN()
		res.Status = Unattainable
		res.Trials, res.Failures = st.trials, st.failures
		metrics.RecordSearch(res.Status.String(), 0)
		return res, nil
	}

	res.Status = BestEffort
	for res.Rounds < s.maxRounds() {
		if math.Abs(st.best.ratio-target) <= s.tolerance() {
			res.Status = Converged
			break
		}

		var next []float64
		lo, hi, ok := st.bracket()
		if ok {
			width := hi.threshold - lo.threshold
			if span <= 0 || width/span < s.convergenceFloor() {
				break
			}
			mid := lo.threshold + width/2
			next = append(next, mid)
			if width/span > s.quarterSpan() {
				next = append(next, lo.threshold+width/4, lo.threshold+3*width/4)
			}
		} else {
			next = st.gaps(2)
		}
		next = unseen(st, next)
		if len(next) == 0 {
			break
		}

		res.Rounds++
		st.add(pool.Evaluate(ctx, next))
		if err := ctx.Err(); err != nil {
			return Result{Threshold: original, Rounds: res.Rounds}, err
		}
	}
	if math.Abs(st.best.ratio-target) <= s.tolerance() {
		res.Status = Converged
	}

	res.Threshold = st.best.threshold
	res.Ratio = st.best.ratio
	res.Trials, res.Failures = st.trials, st.failures
	log.Printf("Threshold search %s after %d rounds: threshold %g gives %.4f%% (target %.4f%%)",
		res.Status, res.Rounds, res.Threshold, res.Ratio*100, target*100)
	metrics.RecordSearch(res.Status.String(), res.Rounds)
	return res, nil
}

func unseen(st *state, ths []float64) []float64 {
	out := ths[:0]
	for _, t := range ths {
		if !st.seen[t] {
			out = append(out, t)
		}
	}
	return out
}

func (s *Searcher) seeds() int {
	if s.Seeds < 3 {
		return 3
	}
	return s.Seeds
}

func (s *Searcher) maxRounds() int {
	if s.MaxRounds <= 0 {
		return defaultMaxRounds
	}
	return s.MaxRounds
}

func (s *Searcher) tolerance() float64 {
	if s.Tolerance <= 0 {
		return defaultTolerance
	}
	return s.Tolerance
}

func (s *Searcher) convergenceFloor() float64 {
	if s.ConvergenceFloor <= 0 {
		return defaultConvergenceFloor
	}
	return s.ConvergenceFloor
}

func (s *Searcher) quarterSpan() float64 {
	if s.QuarterSpan <= 0 {
		return defaultQuarterSpan
	}
	return s.QuarterSpan
}
