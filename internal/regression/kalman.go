package regression

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// filterState holds the moments of one forward Kalman sweep over the
// bivariate coefficient state theta_t = (alpha_t, beta_t), plus the
// scratch space the sweep reuses across Gibbs iterations.
type filterState struct {
	T int

	// filtered moments per timestep
	m []*mat.VecDense // E[theta_t | y_1..t]
	P []*mat.SymDense // Cov[theta_t | y_1..t]

	// scratch
	a *mat.VecDense // predicted state mean
	R *mat.SymDense // predicted state covariance
	F *mat.VecDense // observation vector (1, x_t)
	S *mat.VecDense // R * F
}

func newFilterState(T int) *filterState {
	fs := &filterState{
		T: T,
		m: make([]*mat.VecDense, T),
		P: make([]*mat.SymDense, T),
		a: mat.NewVecDense(2, nil),
		R: mat.NewSymDense(2, nil),
		F: mat.NewVecDense(2, nil),
		S: mat.NewVecDense(2, nil),
	}
	for t := 0; t < T; t++ {
		fs.m[t] = mat.NewVecDense(2, nil)
		fs.P[t] = mat.NewSymDense(2, nil)
	}
	return fs
}

// forward runs the Kalman filter for the random-walk coefficient model
// with the given variances, filling the filtered moments.
//
// At t=1 the state prior N(0, initVar*I) is used directly; afterwards the
// prediction adds the walk variances to the previous filtered covariance.
func (fs *filterState) forward(x, y []float64, initVar, walkVarA, walkVarB, noiseVar float64) error {
	if len(x) != fs.T || len(y) != fs.T {
		return fmt.Errorf("filter built for %d steps, got %d/%d observations", fs.T, len(x), len(y))
	}

	for t := 0; t < fs.T; t++ {
		// Predict
		if t == 0 {
			fs.a.Zero()
			fs.R.SetSym(0, 0, initVar)
			fs.R.SetSym(0, 1, 0)
			fs.R.SetSym(1, 1, initVar)
		} else {
			fs.a.CopyVec(fs.m[t-1])
			fs.R.CopySym(fs.P[t-1])
			fs.R.SetSym(0, 0, fs.R.At(0, 0)+walkVarA)
			fs.R.SetSym(1, 1, fs.R.At(1, 1)+walkVarB)
		}

		// Update with y_t observed through F_t = (1, x_t)
		fs.F.SetVec(0, 1)
		fs.F.SetVec(1, x[t])
		fs.S.MulVec(fs.R, fs.F)
		q := mat.Dot(fs.F, fs.S) + noiseVar
		if q <= 0 || math.IsNaN(q) {
			return fmt.Errorf("non-positive innovation variance %g at step %d", q, t+1)
		}

		innov := y[t] - mat.Dot(fs.F, fs.a)
		fs.m[t].AddScaledVec(fs.a, innov/q, fs.S)
		fs.P[t].SymRankOne(fs.R, -1/q, fs.S)
	}

	return nil
}
