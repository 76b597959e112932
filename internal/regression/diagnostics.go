package regression

import (
	"context"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/stat"
)

const (
	// RHatThreshold is the split R-hat above which a parameter is flagged
	// as not mixed
	RHatThreshold = 1.05
	// MinEffectiveSampleSize is the pooled ESS below which a parameter is
	// flagged as undersampled
	MinEffectiveSampleSize = 100
)

// Diagnostics reports convergence statistics for a posterior. The scale
// parameters carry full summaries; the coefficient paths are condensed to
// their worst pointwise split R-hat.
type Diagnostics struct {
	WalkSDA      ScalarSummary `json:"walk_sd_a"`
	WalkSDB      ScalarSummary `json:"walk_sd_b"`
	NoiseSD      ScalarSummary `json:"noise_sd"`
	MaxAlphaRHat float64       `json:"max_alpha_r_hat"`
	MaxBetaRHat  float64       `json:"max_beta_r_hat"`
	Converged    bool          `json:"converged"`
}

// SplitRHat computes the split potential scale reduction factor. Each
// chain is halved so within-chain drift shows up as between-sequence
// disagreement; values near 1 indicate the sequences sample the same
// distribution.
func SplitRHat(chains [][]float64) float64 {
	sequences := make([][]float64, 0, 2*len(chains))
	for _, c := range chains {
		half := len(c) / 2
		if half < 2 {
			return math.NaN()
		}
		sequences = append(sequences, c[:half], c[len(c)-half:])
	}

	n := len(sequences[0])
	for _, s := range sequences {
		if len(s) < n {
			n = len(s)
		}
	}

	means := make([]float64, len(sequences))
	variances := make([]float64, len(sequences))
	for j, s := range sequences {
		means[j] = stat.Mean(s[:n], nil)
		variances[j] = stat.Variance(s[:n], nil)
	}

	within := stat.Mean(variances, nil)
	if within == 0 {
		// Degenerate sequences agree by definition
		return 1
	}
	between := float64(n) * stat.Variance(means, nil)
	pooled := float64(n-1)/float64(n)*within + between/float64(n)

	return math.Sqrt(pooled / within)
}

// EffectiveSampleSize estimates the number of independent draws the
// chains carry for one scalar parameter, using combined-chain
// autocorrelations truncated by Geyer's initial positive sequence rule.
func EffectiveSampleSize(chains [][]float64) float64 {
	m := len(chains)
	if m == 0 {
		return math.NaN()
	}
	n := len(chains[0])
	for _, c := range chains {
		if len(c) < n {
			n = len(c)
		}
	}
	if n < 4 {
		return math.NaN()
	}

	means := make([]float64, m)
	variances := make([]float64, m)
	for j, c := range chains {
		means[j] = stat.Mean(c[:n], nil)
		variances[j] = stat.Variance(c[:n], nil)
	}
	within := stat.Mean(variances, nil)
	if within == 0 {
		return math.NaN()
	}

	pooled := float64(n-1) / float64(n) * within
	if m > 1 {
		pooled += stat.Variance(means, nil)
	}

	// Combined autocorrelation at each lag from the mean within-chain
	// autocovariance
	rho := func(lag int) float64 {
		var acov float64
		for j, c := range chains {
			var s float64
			for i := 0; i+lag < n; i++ {
				s += (c[i] - means[j]) * (c[i+lag] - means[j])
			}
			acov += s / float64(n)
		}
		acov /= float64(m)
		return 1 - (within-acov)/pooled
	}

	// Geyer: sum autocorrelations in consecutive pairs while the pair
	// sums stay positive
	tau := -1.0
	for lag := 0; lag+1 < n; lag += 2 {
		pair := rho(lag) + rho(lag + 1)
		if pair <= 0 {
			break
		}
		tau += 2 * pair
	}
	if tau < 1 {
		tau = 1
	}

	return float64(m*n) / tau
}

// Diagnose computes convergence statistics for the scale parameters and
// the coefficient paths, logging a warning per statistic that crosses its
// threshold. Non-convergence is advisory and never fails the run.
func (p *Posterior) Diagnose(ctx context.Context, logger *slog.Logger, level float64) Diagnostics {
	if logger == nil {
		logger = slog.Default()
	}

	diag := Diagnostics{
		WalkSDA: p.WalkSDASummary(level),
		WalkSDB: p.WalkSDBSummary(level),
		NoiseSD: p.NoiseSDSummary(level),
	}
	diag.MaxAlphaRHat = p.maxPathRHat(func(c *ChainDraws) [][]float64 { return c.Alpha })
	diag.MaxBetaRHat = p.maxPathRHat(func(c *ChainDraws) [][]float64 { return c.Beta })

	diag.Converged = true
	check := func(name string, rhat, ess float64) {
		if rhat > RHatThreshold || math.IsNaN(rhat) {
			diag.Converged = false
			logger.WarnContext(ctx, "chains may not have converged",
				"parameter", name,
				"r_hat", rhat,
				"threshold", RHatThreshold,
			)
		}
		if ess >= 0 && (ess < MinEffectiveSampleSize || math.IsNaN(ess)) {
			diag.Converged = false
			logger.WarnContext(ctx, "effective sample size is low",
				"parameter", name,
				"ess", ess,
				"minimum", MinEffectiveSampleSize,
			)
		}
	}

	check("walk_sd_a", diag.WalkSDA.RHat, diag.WalkSDA.ESS)
	check("walk_sd_b", diag.WalkSDB.RHat, diag.WalkSDB.ESS)
	check("noise_sd", diag.NoiseSD.RHat, diag.NoiseSD.ESS)
	check("alpha_path", diag.MaxAlphaRHat, -1)
	check("beta_path", diag.MaxBetaRHat, -1)

	return diag
}

// maxPathRHat returns the worst pointwise split R-hat along a path
func (p *Posterior) maxPathRHat(paths func(*ChainDraws) [][]float64) float64 {
	worst := math.Inf(-1)
	column := make([][]float64, len(p.Chains))

	for t := 0; t < p.T; t++ {
		for i := range p.Chains {
			draws := paths(&p.Chains[i])
			col := make([]float64, len(draws))
			for d := range draws {
				col[d] = draws[d][t]
			}
			column[i] = col
		}
		if r := SplitRHat(column); !math.IsNaN(r) && r > worst {
			worst = r
		}
	}

	if math.IsInf(worst, -1) {
		return math.NaN()
	}
	return worst
}
