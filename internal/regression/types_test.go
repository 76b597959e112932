package regression

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInverseGammaMean(t *testing.T) {
	assert.InDelta(t, 5e-4, InverseGamma{Shape: 2, Scale: 5e-4}.Mean(), 1e-12)
	assert.True(t, math.IsNaN(InverseGamma{Shape: 1, Scale: 1}.Mean()))
}

func TestPriorsValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Priors)
		wantErr string
	}{
		{"defaults pass", func(p *Priors) {}, ""},
		{"zero init variance", func(p *Priors) { p.InitVar = 0 }, "init_var"},
		{"NaN init variance", func(p *Priors) { p.InitVar = math.NaN() }, "init_var"},
		{"improper walk prior", func(p *Priors) { p.WalkA.Shape = 1 }, "walk_a"},
		{"negative walk scale", func(p *Priors) { p.WalkB.Scale = -1 }, "walk_b"},
		{"improper noise prior", func(p *Priors) { p.Noise.Scale = 0 }, "noise"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultPriors()
			tt.mutate(&p)
			err := p.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			var verr ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantErr, verr.Field)
		})
	}
}

func TestNewModel(t *testing.T) {
	x := []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8}
	y := []float64{0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9}

	t.Run("valid data", func(t *testing.T) {
		m, err := NewModel(x, y, DefaultPriors())
		require.NoError(t, err)
		assert.Equal(t, 8, m.Len())
	})

	t.Run("length mismatch", func(t *testing.T) {
		_, err := NewModel(x, y[:5], DefaultPriors())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "lengths differ")
	})

	t.Run("too few observations", func(t *testing.T) {
		_, err := NewModel(x[:4], y[:4], DefaultPriors())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least")
	})

	t.Run("non-finite observation", func(t *testing.T) {
		bad := append([]float64{}, x...)
		bad[3] = math.Inf(1)
		_, err := NewModel(bad, y, DefaultPriors())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "non-finite")
	})

	t.Run("invalid priors", func(t *testing.T) {
		p := DefaultPriors()
		p.InitVar = -1
		_, err := NewModel(x, y, p)
		require.Error(t, err)
	})
}

func TestSamplerConfigValidate(t *testing.T) {
	require.NoError(t, DefaultSamplerConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*SamplerConfig)
		field  string
	}{
		{"no chains", func(c *SamplerConfig) { c.Chains = 0 }, "chains"},
		{"no draws", func(c *SamplerConfig) { c.Draws = 0 }, "draws"},
		{"negative warmup", func(c *SamplerConfig) { c.Warmup = -1 }, "warmup"},
		{"zero thin", func(c *SamplerConfig) { c.Thin = 0 }, "thin"},
		{"negative cores", func(c *SamplerConfig) { c.Cores = -1 }, "cores"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultSamplerConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			var verr ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}
