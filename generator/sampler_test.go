package generator

import (
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRand() *rand.Rand {
	return rand.New(rand.NewPCG(7, 7))
}

func TestNewSampler_Errors(t *testing.T) {
	tests := []struct {
		name    string
		weights []float64
	}{
		{"empty", nil},
		{"negative", []float64{0.5, -0.1}},
		{"zero sum", []float64{0, 0}},
		{"nan", []float64{math.NaN(), 1}},
		{"inf", []float64{math.Inf(1), 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSampler(tt.weights)
			assert.Error(t, err)
		})
	}
}

func TestSampler_NormalizesToOne(t *testing.T) {
	s, err := NewSampler([]float64{0.28, 0.22, 0.08, 0.07, 0.07, 0.06, 0.05, 0.09, 0.05})
	require.NoError(t, err)

	var sum float64
	for _, p := range s.Probabilities() {
		sum += p
	}
	assert.Equal(t, 1.0, s.cdf[len(s.cdf)-1])
	assert.InDelta(t, 1.0, sum, 1e-12)
	assert.InDelta(t, 0.28/0.97, s.Probabilities()[0], 1e-12)
}

func TestSampler_ZeroWeightNeverPicked(t *testing.T) {
	s, err := NewSampler([]float64{0, 1, 0, 2, 0})
	require.NoError(t, err)

	r := testRand()
	for i := 0; i < 20000; i++ {
		idx := s.Pick(r)
		assert.Contains(t, []int{1, 3}, idx)
	}
}

func TestSampler_Converges(t *testing.T) {
	weights := []float64{0.1, 0.6, 0.3}
	s, err := NewSampler(weights)
	require.NoError(t, err)

	r := testRand()
	const draws = 60000
	counts := make([]int, len(weights))
	for i := 0; i < draws; i++ {
		counts[s.Pick(r)]++
	}
	for i, w := range weights {
		assert.InDelta(t, w, float64(counts[i])/draws, 0.01, "bucket %d", i)
	}
}

func TestCategorical(t *testing.T) {
	c, err := NewCategorical([]Weighted{{Value: "web", Weight: 0.55}, {Value: "desktop", Weight: 0.45}})
	require.NoError(t, err)
	assert.Equal(t, []string{"web", "desktop"}, c.Values())

	r := testRand()
	for i := 0; i < 100; i++ {
		assert.Contains(t, []string{"web", "desktop"}, c.Pick(r))
	}

	_, err = NewCategorical(nil)
	assert.Error(t, err)
}

func TestSampleWithoutReplacement(t *testing.T) {
	r := testRand()

	picked := SampleWithoutReplacement(r, 100, 30)
	require.Len(t, picked, 30)
	seen := make(map[int]bool)
	for _, idx := range picked {
		assert.GreaterOrEqual(t, idx, 0)
		assert.Less(t, idx, 100)
		assert.False(t, seen[idx], "duplicate index %d", idx)
		seen[idx] = true
	}
}

func TestSampleWithoutReplacement_TakesAllWhenShort(t *testing.T) {
	r := testRand()
	assert.Equal(t, []int{0, 1, 2, 3, 4}, SampleWithoutReplacement(r, 5, 10))
	assert.Equal(t, []int{0, 1, 2}, SampleWithoutReplacement(r, 3, 3))
	assert.Empty(t, SampleWithoutReplacement(r, 0, 10))
	assert.Empty(t, SampleWithoutReplacement(r, 10, 0))
}

func TestSignupRepair(t *testing.T) {
	signup := time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)
	policy := SignupRepair{MaxJitterHours: 48}
	r := testRand()

	later := signup.Add(3 * time.Hour)
	assert.Equal(t, later, policy.Apply(r, later, signup))
	assert.Equal(t, signup, policy.Apply(r, signup, signup))

	earlier := signup.Add(-72 * time.Hour)
	for i := 0; i < 500; i++ {
		got := policy.Apply(r, earlier, signup)
		assert.False(t, got.Before(signup))
		assert.True(t, got.Before(signup.Add(48*time.Hour)))
		assert.Zero(t, got.Sub(signup)%time.Hour)
	}

	assert.Equal(t, signup, SignupRepair{}.Apply(r, earlier, signup))
}

func TestIntRangeClamp(t *testing.T) {
	rng := IntRange{Min: 2, Max: 120}
	assert.Equal(t, 2, rng.Clamp(0))
	assert.Equal(t, 30, rng.Clamp(30))
	assert.Equal(t, 120, rng.Clamp(500))
}

func TestDrawNegativeBinomial_Mean(t *testing.T) {
	nb := NegativeBinomial{Successes: 2, P: 0.55}
	r := testRand()

	const draws = 40000
	var total int
	for i := 0; i < draws; i++ {
		v := drawNegativeBinomial(r, nb)
		require.GreaterOrEqual(t, v, 0)
		total += v
	}
	want := float64(nb.Successes) * (1 - nb.P) / nb.P
	assert.InDelta(t, want, float64(total)/draws, 0.05)

	assert.Equal(t, 0, drawNegativeBinomial(r, NegativeBinomial{Successes: 3, P: 1}))
}

func TestDrawLogNormal_Median(t *testing.T) {
	ln := LogNormal{Mu: 2.2, Sigma: 0.55}
	r := testRand()

	const draws = 20000
	below := 0
	for i := 0; i < draws; i++ {
		v := drawLogNormal(r, ln)
		require.Greater(t, v, 0.0)
		if v < math.Exp(ln.Mu) {
			below++
		}
	}
	assert.InDelta(t, 0.5, float64(below)/draws, 0.02)
}

func TestLinearRamp(t *testing.T) {
	got := linearRamp(LinearRamp{Start: 2.5, End: 1.0}, 4)
	require.Len(t, got, 4)
	assert.InDelta(t, 2.5, got[0], 1e-12)
	assert.InDelta(t, 2.0, got[1], 1e-12)
	assert.InDelta(t, 1.5, got[2], 1e-12)
	assert.InDelta(t, 1.0, got[3], 1e-12)

	assert.Equal(t, []float64{2.5}, linearRamp(LinearRamp{Start: 2.5, End: 1.0}, 1))
}

func TestIDCounter(t *testing.T) {
	c := newIDCounter("s_")
	assert.Equal(t, "s_1", c.Next())
	assert.Equal(t, "s_2", c.Next())
	assert.Equal(t, 2, c.Issued())
}
