package regression

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// ChainDraws holds the kept draws of one chain. Coefficient draws are
// indexed draw-major: Alpha[d][t] is the intercept at timestep t in kept
// draw d. The scale parameters are stored on standard-deviation scale for
// reporting.
type ChainDraws struct {
	Alpha   [][]float64 `json:"alpha"`
	Beta    [][]float64 `json:"beta"`
	WalkSDA []float64   `json:"walk_sd_a"`
	WalkSDB []float64   `json:"walk_sd_b"`
	NoiseSD []float64   `json:"noise_sd"`
}

func (d *ChainDraws) reserve(draws int) {
	d.Alpha = make([][]float64, 0, draws)
	d.Beta = make([][]float64, 0, draws)
	d.WalkSDA = make([]float64, 0, draws)
	d.WalkSDB = make([]float64, 0, draws)
	d.NoiseSD = make([]float64, 0, draws)
}

func (d *ChainDraws) record(c *chain) {
	alpha := make([]float64, len(c.alpha))
	copy(alpha, c.alpha)
	beta := make([]float64, len(c.beta))
	copy(beta, c.beta)

	d.Alpha = append(d.Alpha, alpha)
	d.Beta = append(d.Beta, beta)
	d.WalkSDA = append(d.WalkSDA, math.Sqrt(c.varA))
	d.WalkSDB = append(d.WalkSDB, math.Sqrt(c.varB))
	d.NoiseSD = append(d.NoiseSD, math.Sqrt(c.varY))
}

// Len returns the number of kept draws in the chain
func (d *ChainDraws) Len() int {
	return len(d.Alpha)
}

// Posterior is the collection of kept draws across all chains
type Posterior struct {
	T      int          `json:"t"`
	Chains []ChainDraws `json:"chains"`
}

// TotalDraws returns the number of kept draws pooled across chains
func (p *Posterior) TotalDraws() int {
	total := 0
	for i := range p.Chains {
		total += p.Chains[i].Len()
	}
	return total
}

// PathSummary holds the pointwise posterior mean and central credible
// band of one coefficient sequence
type PathSummary struct {
	Mean  []float64 `json:"mean"`
	Lower []float64 `json:"lower"`
	Upper []float64 `json:"upper"`
}

// ScalarSummary describes the pooled posterior of a scalar parameter
type ScalarSummary struct {
	Mean  float64 `json:"mean"`
	SD    float64 `json:"sd"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	RHat  float64 `json:"r_hat"`
	ESS   float64 `json:"ess"`
}

// AlphaSummary summarizes the intercept path at the given credible level
func (p *Posterior) AlphaSummary(level float64) PathSummary {
	return p.pathSummary(func(c *ChainDraws) [][]float64 { return c.Alpha }, level)
}

// BetaSummary summarizes the slope path at the given credible level
func (p *Posterior) BetaSummary(level float64) PathSummary {
	return p.pathSummary(func(c *ChainDraws) [][]float64 { return c.Beta }, level)
}

func (p *Posterior) pathSummary(paths func(*ChainDraws) [][]float64, level float64) PathSummary {
	summary := PathSummary{
		Mean:  make([]float64, p.T),
		Lower: make([]float64, p.T),
		Upper: make([]float64, p.T),
	}
	lower, upper := tailProbabilities(level)

	pooled := make([]float64, 0, p.TotalDraws())
	for t := 0; t < p.T; t++ {
		pooled = pooled[:0]
		for i := range p.Chains {
			for _, draw := range paths(&p.Chains[i]) {
				pooled = append(pooled, draw[t])
			}
		}
		sort.Float64s(pooled)
		summary.Mean[t] = stat.Mean(pooled, nil)
		summary.Lower[t] = stat.Quantile(lower, stat.Empirical, pooled, nil)
		summary.Upper[t] = stat.Quantile(upper, stat.Empirical, pooled, nil)
	}

	return summary
}

// WalkSDASummary summarizes the intercept step standard deviation
func (p *Posterior) WalkSDASummary(level float64) ScalarSummary {
	return p.scalarSummary(func(c *ChainDraws) []float64 { return c.WalkSDA }, level)
}

// WalkSDBSummary summarizes the slope step standard deviation
func (p *Posterior) WalkSDBSummary(level float64) ScalarSummary {
	return p.scalarSummary(func(c *ChainDraws) []float64 { return c.WalkSDB }, level)
}

// NoiseSDSummary summarizes the observation noise standard deviation
func (p *Posterior) NoiseSDSummary(level float64) ScalarSummary {
	return p.scalarSummary(func(c *ChainDraws) []float64 { return c.NoiseSD }, level)
}

func (p *Posterior) scalarSummary(values func(*ChainDraws) []float64, level float64) ScalarSummary {
	sequences := make([][]float64, 0, len(p.Chains))
	pooled := make([]float64, 0, p.TotalDraws())
	for i := range p.Chains {
		seq := values(&p.Chains[i])
		sequences = append(sequences, seq)
		pooled = append(pooled, seq...)
	}

	sorted := make([]float64, len(pooled))
	copy(sorted, pooled)
	sort.Float64s(sorted)
	lower, upper := tailProbabilities(level)

	return ScalarSummary{
		Mean:  stat.Mean(pooled, nil),
		SD:    stat.StdDev(pooled, nil),
		Lower: stat.Quantile(lower, stat.Empirical, sorted, nil),
		Upper: stat.Quantile(upper, stat.Empirical, sorted, nil),
		RHat:  SplitRHat(sequences),
		ESS:   EffectiveSampleSize(sequences),
	}
}

// CoefficientDraws returns all kept (alpha_t, beta_t) pairs at one
// timestep, pooled across chains
func (p *Posterior) CoefficientDraws(t int) (alphas, betas []float64) {
	alphas = make([]float64, 0, p.TotalDraws())
	betas = make([]float64, 0, p.TotalDraws())
	for i := range p.Chains {
		for d := range p.Chains[i].Alpha {
			alphas = append(alphas, p.Chains[i].Alpha[d][t])
			betas = append(betas, p.Chains[i].Beta[d][t])
		}
	}
	return alphas, betas
}

// tailProbabilities converts a central credible level into its two
// quantile probabilities
func tailProbabilities(level float64) (lower, upper float64) {
	if level <= 0 || level >= 1 {
		level = DefaultCredibleLevel
	}
	tail := (1 - level) / 2
	return tail, 1 - tail
}
