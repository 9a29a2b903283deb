package experiment

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWelchTTestKnownSamples(t *testing.T) {
	a := []float64{1, 2, 3, 4, 5}
	b := []float64{2, 3, 4, 5, 6}

	tstat, df, p := welchTTest(a, b)

	// Equal variances, mean shift 1, se = 1: t = 1, df = 8.
	assert.InDelta(t, 1.0, tstat, 1e-9)
	assert.InDelta(t, 8.0, df, 1e-9)
	assert.InDelta(t, 0.3466, p, 0.001)
}

func TestWelchTTestIdenticalSamples(t *testing.T) {
	a := []float64{1, 2, 3}
	_, _, p := welchTTest(a, a)
	assert.InDelta(t, 1.0, p, 1e-9)
}

func TestWelchTTestZeroVariance(t *testing.T) {
	a := []float64{0.5, 0.5, 0.5, 0.5}
	b := []float64{0.9, 0.9, 0.9, 0.9}

	tstat, _, p := welchTTest(a, b)
	assert.True(t, math.IsInf(tstat, 1))
	assert.Zero(t, p)

	tstat, _, p = welchTTest(b, a)
	assert.True(t, math.IsInf(tstat, -1))
	assert.Zero(t, p)

	_, _, p = welchTTest(a, a)
	assert.InDelta(t, 1.0, p, 1e-9)
}

func TestWelchTTestSeparatedSamples(t *testing.T) {
	a := []float64{0.48, 0.52, 0.5, 0.49, 0.51, 0.5, 0.52, 0.48}
	b := []float64{0.88, 0.92, 0.9, 0.89, 0.91, 0.9, 0.92, 0.88}

	_, _, p := welchTTest(a, b)
	assert.Less(t, p, 0.001)
}

func TestWelchTTestEmptySample(t *testing.T) {
	_, _, p := welchTTest(nil, []float64{1, 2})
	assert.InDelta(t, 1.0, p, 1e-9)
}
