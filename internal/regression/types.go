package regression

import (
	"fmt"
	"math"
)

const (
	// MinObservations is the shortest series the model accepts
	MinObservations = 8

	// DefaultInitVar is the prior variance of the initial coefficients.
	// Unit scale matches standardized data.
	DefaultInitVar = 1.0

	// DefaultWalkShape and DefaultWalkScale parameterize the prior on the
	// random-walk step variances. The scale keeps the prior mean step
	// standard deviation near 0.02, so coefficients drift slowly unless
	// the data insists otherwise.
	DefaultWalkShape = 2.0
	DefaultWalkScale = 5e-4

	// DefaultNoiseShape and DefaultNoiseScale parameterize the prior on
	// the observation noise variance.
	DefaultNoiseShape = 2.0
	DefaultNoiseScale = 5e-3

	// DefaultCredibleLevel is the width of reported credible intervals
	DefaultCredibleLevel = 0.90
)

// ValidationError represents validation errors
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	return ve.Message
}

// InverseGamma holds the hyperparameters of an inverse-gamma prior in the
// shape/scale parameterization: X ~ IG(Shape, Scale) has density
// proportional to x^(-Shape-1) * exp(-Scale/x).
type InverseGamma struct {
	Shape float64 `json:"shape"`
	Scale float64 `json:"scale"`
}

// Mean returns the prior mean, defined for Shape > 1
func (ig InverseGamma) Mean() float64 {
	if ig.Shape <= 1 {
		return math.NaN()
	}
	return ig.Scale / (ig.Shape - 1)
}

// IsValid reports whether the hyperparameters define a proper prior with
// a finite mean
func (ig InverseGamma) IsValid() bool {
	return ig.Shape > 1 && ig.Scale > 0 &&
		!math.IsNaN(ig.Shape) && !math.IsNaN(ig.Scale) &&
		!math.IsInf(ig.Shape, 0) && !math.IsInf(ig.Scale, 0)
}

// Priors collects the hyperparameters of the model
type Priors struct {
	// InitVar is the variance of the N(0, InitVar) prior on the initial
	// intercept and slope
	InitVar float64 `json:"init_var"`
	// WalkA and WalkB are the priors on the random-walk step variances of
	// the intercept and slope
	WalkA InverseGamma `json:"walk_a"`
	WalkB InverseGamma `json:"walk_b"`
	// Noise is the prior on the observation noise variance
	Noise InverseGamma `json:"noise"`
}

// DefaultPriors returns the slow-drift priors used on standardized data
func DefaultPriors() Priors {
	return Priors{
		InitVar: DefaultInitVar,
		WalkA:   InverseGamma{Shape: DefaultWalkShape, Scale: DefaultWalkScale},
		WalkB:   InverseGamma{Shape: DefaultWalkShape, Scale: DefaultWalkScale},
		Noise:   InverseGamma{Shape: DefaultNoiseShape, Scale: DefaultNoiseScale},
	}
}

// Validate checks the hyperparameters
func (p Priors) Validate() error {
	if p.InitVar <= 0 || math.IsNaN(p.InitVar) || math.IsInf(p.InitVar, 0) {
		return ValidationError{Field: "init_var", Message: "initial coefficient variance must be positive", Value: p.InitVar}
	}
	if !p.WalkA.IsValid() {
		return ValidationError{Field: "walk_a", Message: "intercept walk prior needs shape > 1 and scale > 0", Value: p.WalkA}
	}
	if !p.WalkB.IsValid() {
		return ValidationError{Field: "walk_b", Message: "slope walk prior needs shape > 1 and scale > 0", Value: p.WalkB}
	}
	if !p.Noise.IsValid() {
		return ValidationError{Field: "noise", Message: "noise prior needs shape > 1 and scale > 0", Value: p.Noise}
	}
	return nil
}

// Model binds the standardized observations to their priors
type Model struct {
	X      []float64 `json:"x"`
	Y      []float64 `json:"y"`
	Priors Priors    `json:"priors"`
}

// NewModel validates the observations and builds a model
func NewModel(x, y []float64, priors Priors) (*Model, error) {
	if len(x) != len(y) {
		return nil, ValidationError{
			Field:   "data",
			Message: fmt.Sprintf("series lengths differ: x has %d, y has %d", len(x), len(y)),
		}
	}
	if len(x) < MinObservations {
		return nil, ValidationError{
			Field:   "data",
			Message: fmt.Sprintf("need at least %d observations, got %d", MinObservations, len(x)),
			Value:   len(x),
		}
	}
	for i := range x {
		if math.IsNaN(x[i]) || math.IsInf(x[i], 0) || math.IsNaN(y[i]) || math.IsInf(y[i], 0) {
			return nil, ValidationError{
				Field:   "data",
				Message: fmt.Sprintf("non-finite observation at index %d", i),
			}
		}
	}
	if err := priors.Validate(); err != nil {
		return nil, err
	}

	return &Model{X: x, Y: y, Priors: priors}, nil
}

// Len returns the number of timesteps
func (m *Model) Len() int {
	return len(m.X)
}

// SamplerConfig contains MCMC run parameters
type SamplerConfig struct {
	// Chains is the number of independent chains run concurrently
	Chains int `json:"chains"`
	// Draws is the number of kept posterior draws per chain
	Draws int `json:"draws"`
	// Warmup is the number of discarded burn-in iterations per chain
	Warmup int `json:"warmup"`
	// Thin keeps every Thin-th post-warmup iteration
	Thin int `json:"thin"`
	// Seed feeds the per-chain deterministic random streams
	Seed uint64 `json:"seed"`
	// Cores caps the number of chains running at once (0 means no cap)
	Cores int `json:"cores"`
}

// DefaultSamplerConfig returns the standard run parameters
func DefaultSamplerConfig() SamplerConfig {
	return SamplerConfig{
		Chains: 4,
		Draws:  1000,
		Warmup: 1000,
		Thin:   1,
		Seed:   42,
	}
}

// Validate checks the run parameters
func (c SamplerConfig) Validate() error {
	if c.Chains < 1 {
		return ValidationError{Field: "chains", Message: "need at least one chain", Value: c.Chains}
	}
	if c.Draws < 1 {
		return ValidationError{Field: "draws", Message: "need at least one kept draw", Value: c.Draws}
	}
	if c.Warmup < 0 {
		return ValidationError{Field: "warmup", Message: "warmup cannot be negative", Value: c.Warmup}
	}
	if c.Thin < 1 {
		return ValidationError{Field: "thin", Message: "thinning interval must be at least 1", Value: c.Thin}
	}
	if c.Cores < 0 {
		return ValidationError{Field: "cores", Message: "cores cannot be negative", Value: c.Cores}
	}
	return nil
}
