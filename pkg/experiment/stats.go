package experiment

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// welchTTest runs Welch's two-sample t-test on a and b and returns the t
// statistic, the Welch–Satterthwaite degrees of freedom, and the two-sided
// p-value.
//
// Degenerate samples get explicit handling rather than NaN propagation: with
// zero pooled variance, equal means give p=1 and unequal means p=0. Two
// deterministic collectors that always differ are exactly that case, and the
// verdict should be "certainly different", not "undefined".
func welchTTest(a, b []float64) (t, df, p float64) {
	na, nb := float64(len(a)), float64(len(b))
	if na < 2 || nb < 2 {
		// No variance estimate is possible; report no evidence either way.
		return 0, 0, 1
	}

	ma := meanOrZero(a)
	mb := meanOrZero(b)
	va := varianceOrZero(a)
	vb := varianceOrZero(b)

	sa, sb := va/na, vb/nb
	se2 := sa + sb
	if se2 == 0 {
		if ma == mb {
			return 0, 0, 1
		}
		return math.Inf(sign(mb - ma)), math.Inf(1), 0
	}

	t = (mb - ma) / math.Sqrt(se2)

	// Welch–Satterthwaite approximation.
	denom := 0.0
	if na > 1 {
		denom += sa * sa / (na - 1)
	}
	if nb > 1 {
		denom += sb * sb / (nb - 1)
	}
	if denom == 0 {
		return t, 0, 1
	}
	df = se2 * se2 / denom

	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p = 2 * dist.CDF(-math.Abs(t))
	return t, df, p
}

func sign(v float64) int {
	if v < 0 {
		return -1
	}
	return 1
}
