package regression

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// chain runs one Gibbs chain: alternating full-path coefficient draws
// (forward filter, backward sample) with conjugate inverse-gamma variance
// updates.
type chain struct {
	model *Model
	cfg   SamplerConfig
	src   rand.Source
	fs    *filterState

	// current state
	alpha []float64
	beta  []float64
	varA  float64
	varB  float64
	varY  float64
}

// newChain seeds chain number index with its own deterministic random
// stream, starts the variances at their prior means and the coefficient
// path at the pooled least-squares fit.
func newChain(model *Model, cfg SamplerConfig, index int) *chain {
	T := model.Len()
	c := &chain{
		model: model,
		cfg:   cfg,
		src:   rand.NewPCG(cfg.Seed, uint64(index)),
		fs:    newFilterState(T),
		alpha: make([]float64, T),
		beta:  make([]float64, T),
		varA:  model.Priors.WalkA.Mean(),
		varB:  model.Priors.WalkB.Mean(),
		varY:  model.Priors.Noise.Mean(),
	}

	if fit, err := PooledOLS(model.X, model.Y); err == nil {
		for t := 0; t < T; t++ {
			c.alpha[t] = fit.Intercept
			c.beta[t] = fit.Slope
		}
	}

	return c
}

// run executes warmup plus the kept iterations, appending every kept draw
// to dst. The context is checked once per iteration so cancellation takes
// effect within a single sweep.
func (c *chain) run(ctx context.Context, dst *ChainDraws) error {
	total := c.cfg.Warmup + c.cfg.Draws*c.cfg.Thin
	dst.reserve(c.cfg.Draws)

	for iter := 0; iter < total; iter++ {
		select {
		case <-ctx.Done():
			return fmt.Errorf("cancelled at iteration %d: %w", iter, ctx.Err())
		default:
		}

		if err := c.step(); err != nil {
			return fmt.Errorf("iteration %d: %w", iter, err)
		}

		if iter >= c.cfg.Warmup && (iter-c.cfg.Warmup)%c.cfg.Thin == c.cfg.Thin-1 {
			dst.record(c)
		}
	}

	return nil
}

// step performs one full Gibbs sweep
func (c *chain) step() error {
	p := c.model.Priors
	if err := c.fs.forward(c.model.X, c.model.Y, p.InitVar, c.varA, c.varB, c.varY); err != nil {
		return err
	}
	if err := c.fs.backwardSample(c.varA, c.varB, c.src, c.alpha, c.beta); err != nil {
		return err
	}
	c.updateVariances()
	return nil
}

// updateVariances draws the three variances from their inverse-gamma full
// conditionals given the current coefficient path
func (c *chain) updateVariances() {
	T := c.model.Len()

	var ssA, ssB float64
	for t := 1; t < T; t++ {
		da := c.alpha[t] - c.alpha[t-1]
		db := c.beta[t] - c.beta[t-1]
		ssA += da * da
		ssB += db * db
	}

	var ssY float64
	for t := 0; t < T; t++ {
		r := c.model.Y[t] - c.alpha[t] - c.beta[t]*c.model.X[t]
		ssY += r * r
	}

	p := c.model.Priors
	steps := float64(T - 1)
	c.varA = drawInverseGamma(p.WalkA.Shape+steps/2, p.WalkA.Scale+ssA/2, c.src)
	c.varB = drawInverseGamma(p.WalkB.Shape+steps/2, p.WalkB.Scale+ssB/2, c.src)
	c.varY = drawInverseGamma(p.Noise.Shape+float64(T)/2, p.Noise.Scale+ssY/2, c.src)
}

// drawInverseGamma samples IG(shape, scale) by inverting a gamma draw.
// distuv.Gamma's Beta field is the rate, which equals the IG scale here.
func drawInverseGamma(shape, scale float64, src rand.Source) float64 {
	g := distuv.Gamma{Alpha: shape, Beta: scale, Src: src}
	v := g.Rand()
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		// Underflow guard: fall back near the conditional's mode
		return scale / (shape + 1)
	}
	return 1 / v
}
