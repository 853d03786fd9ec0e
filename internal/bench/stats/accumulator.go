package stats

import "math"

// Accumulator reduces a stream of samples for one metric into a Summary.
// It keeps running sums only, so memory does not grow with the sample count.
type Accumulator struct {
	skip    int
	skipped int

	count int
	sum   float64
	sumSq float64
	min   float64
	max   float64
}

// NewAccumulator returns an accumulator that ignores the first skip values.
func NewAccumulator(skip int) *Accumulator {
	if skip < 0 {
		skip = 0
	}
	return &Accumulator{skip: skip}
}

func (a *Accumulator) Ingest(v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	if a.skipped < a.skip {
		a.skipped++
		return
	}

	if a.count == 0 || v < a.min {
		a.min = v
	}
	if a.count == 0 || v > a.max {
		a.max = v
	}
	a.count++
	a.sum += v
	a.sumSq += v * v
}

func (a *Accumulator) Count() int { return a.count }

func (a *Accumulator) Finalize() Summary {
	if a.count == 0 {
		return Summary{}
	}

	n := float64(a.count)
	mean := a.sum / n

	// rounding can push the mean a hair outside [min, max] for constant inputs
	mean = math.Min(math.Max(mean, a.min), a.max)

	s := Summary{
		Count: a.count,
		Mean:  mean,
		Min:   a.min,
		Max:   a.max,
	}

	if a.count >= 2 {
		variance := a.sumSq/n - mean*mean
		if variance < 0 {
			variance = 0
		}
		s.Stddev = math.Sqrt(variance)
	}

	return s
}
