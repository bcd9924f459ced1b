package generator

import (
	"errors"
	"math"
	"math/rand/v2"
	"sort"
)

// ============================================================================
// SAMPLING — weighted choice and subsampling over closed vocabularies
// ============================================================================

// Sampler draws indices proportionally to a fixed weight vector by binary
// search over the cumulative distribution. Weights are normalized so the
// last cumulative value is exactly 1.
type Sampler struct {
	cdf []float64
}

// NewSampler builds a Sampler. Weights must be finite, non-negative and
// have a positive sum.
func NewSampler(weights []float64) (*Sampler, error) {
	if len(weights) == 0 {
		return nil, errors.New("no weights")
	}
	var total float64
	for _, w := range weights {
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return nil, errors.New("weights must be finite and non-negative")
		}
		total += w
	}
	if total <= 0 {
		return nil, errors.New("weights must have a positive sum")
	}

	cdf := make([]float64, len(weights))
	var acc float64
	for i, w := range weights {
		acc += w / total
		cdf[i] = acc
	}
	// Pin everything from the last weighted bucket onward so rounding never
	// leaves a gap below 1 and zero-weight tail buckets are never picked.
	last := len(weights) - 1
	for weights[last] == 0 {
		last--
	}
	for i := last; i < len(cdf); i++ {
		cdf[i] = 1
	}
	return &Sampler{cdf: cdf}, nil
}

// Pick draws one index.
func (s *Sampler) Pick(r *rand.Rand) int {
	u := r.Float64()
	return sort.Search(len(s.cdf), func(i int) bool { return s.cdf[i] > u })
}

// Probabilities returns the normalized weights.
func (s *Sampler) Probabilities() []float64 {
	p := make([]float64, len(s.cdf))
	prev := 0.0
	for i, c := range s.cdf {
		p[i] = c - prev
		prev = c
	}
	return p
}

// Categorical is a Sampler bound to its category values.
type Categorical struct {
	values  []string
	sampler *Sampler
}

// NewCategorical builds a Categorical from weighted values.
func NewCategorical(ws []Weighted) (*Categorical, error) {
	values := make([]string, len(ws))
	weights := make([]float64, len(ws))
	for i, w := range ws {
		values[i] = w.Value
		weights[i] = w.Weight
	}
	s, err := NewSampler(weights)
	if err != nil {
		return nil, err
	}
	return &Categorical{values: values, sampler: s}, nil
}

// Pick draws one value.
func (c *Categorical) Pick(r *rand.Rand) string {
	return c.values[c.sampler.Pick(r)]
}

// Values returns the categories in configuration order.
func (c *Categorical) Values() []string {
	return append([]string(nil), c.values...)
}

// SampleWithoutReplacement returns min(n, k) distinct indices from [0, n).
// When k >= n every index is returned in order and no randomness is consumed;
// otherwise the indices come from a partial Fisher–Yates shuffle in draw order.
func SampleWithoutReplacement(r *rand.Rand, n, k int) []int {
	if n <= 0 || k <= 0 {
		return []int{}
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	if k >= n {
		return idx
	}
	for i := 0; i < k; i++ {
		j := i + r.IntN(n-i)
		idx[i], idx[j] = idx[j], idx[i]
	}
	return idx[:k]
}
