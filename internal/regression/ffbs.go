package regression

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

const (
	// covJitter is the first diagonal nudge applied when rounding pushes a
	// conditional covariance off positive definite
	covJitter = 1e-10
	// maxJitterTries bounds how often the nudge grows before giving up
	maxJitterTries = 3
)

// backwardSample draws one complete coefficient path from its joint
// posterior given the filtered moments (Carter-Kohn). The intercepts land
// in alpha and the slopes in beta, in time order.
func (fs *filterState) backwardSample(walkVarA, walkVarB float64, src rand.Source, alpha, beta []float64) error {
	if len(alpha) != fs.T || len(beta) != fs.T {
		return fmt.Errorf("path buffers sized %d/%d, filter has %d steps", len(alpha), len(beta), fs.T)
	}

	theta := make([]float64, 2)
	mean := make([]float64, 2)
	R := mat.NewSymDense(2, nil)
	H := mat.NewSymDense(2, nil)
	var Rinv, C, CP mat.Dense

	// The final state comes straight from the last filtered distribution
	last := fs.T - 1
	if err := drawBivariate(theta, fs.m[last].RawVector().Data, fs.P[last], src); err != nil {
		return fmt.Errorf("draw state %d: %w", fs.T, err)
	}
	alpha[last], beta[last] = theta[0], theta[1]

	for t := fs.T - 2; t >= 0; t-- {
		// R is the one-step-ahead covariance seen from t
		R.CopySym(fs.P[t])
		R.SetSym(0, 0, R.At(0, 0)+walkVarA)
		R.SetSym(1, 1, R.At(1, 1)+walkVarB)
		if err := Rinv.Inverse(R); err != nil {
			return fmt.Errorf("predicted covariance singular at step %d: %w", t+2, err)
		}
		C.Mul(fs.P[t], &Rinv)

		// Conditional mean m_t + C*(theta_{t+1} - m_t): the random walk
		// predicts theta_{t+1} at m_t, so the smoother gain acts on the
		// drawn successor's surprise
		d0 := alpha[t+1] - fs.m[t].AtVec(0)
		d1 := beta[t+1] - fs.m[t].AtVec(1)
		mean[0] = fs.m[t].AtVec(0) + C.At(0, 0)*d0 + C.At(0, 1)*d1
		mean[1] = fs.m[t].AtVec(1) + C.At(1, 0)*d0 + C.At(1, 1)*d1

		// Conditional covariance P_t - C*R*C' = P_t - C*P_t
		CP.Mul(&C, fs.P[t])
		H.SetSym(0, 0, fs.P[t].At(0, 0)-CP.At(0, 0))
		H.SetSym(1, 1, fs.P[t].At(1, 1)-CP.At(1, 1))
		H.SetSym(0, 1, fs.P[t].At(0, 1)-(CP.At(0, 1)+CP.At(1, 0))/2)

		if err := drawBivariate(theta, mean, H, src); err != nil {
			return fmt.Errorf("draw state %d: %w", t+1, err)
		}
		alpha[t], beta[t] = theta[0], theta[1]
	}

	return nil
}

// drawBivariate samples dst ~ N(mean, cov). Rounding can leave cov,
// assembled from differences of near-equal matrices, indefinite; a
// growing diagonal jitter restores definiteness before sampling.
func drawBivariate(dst, mean []float64, cov *mat.SymDense, src rand.Source) error {
	jitter := 0.0
	for try := 0; try <= maxJitterTries; try++ {
		if try > 0 {
			if jitter == 0 {
				jitter = covJitter
			} else {
				jitter *= 100
			}
			cov.SetSym(0, 0, cov.At(0, 0)+jitter)
			cov.SetSym(1, 1, cov.At(1, 1)+jitter)
		}
		if dist, ok := distmv.NewNormal(mean, cov, src); ok {
			dist.Rand(dst)
			return nil
		}
	}
	return fmt.Errorf("covariance not positive definite after %d jitter attempts", maxJitterTries)
}
