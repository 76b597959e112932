package report

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"betadrift/internal/dataset"
	"betadrift/internal/regression"
)

// testReport builds a small but complete report with two chains of kept
// draws over ten dates
func testReport(t *testing.T) *Report {
	t.Helper()

	const (
		n      = 10
		chains = 2
		draws  = 6
	)

	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	xPts := make([]dataset.PricePoint, n)
	yPts := make([]dataset.PricePoint, n)
	for i := 0; i < n; i++ {
		date := start.AddDate(0, 0, i)
		xPts[i] = dataset.PricePoint{Date: date, Price: -1 + 0.2*float64(i)}
		yPts[i] = dataset.PricePoint{Date: date, Price: -0.8 + 0.18*float64(i)}
	}
	pair := dataset.Pair{
		X: dataset.Series{Symbol: "GFI", Points: xPts},
		Y: dataset.Series{Symbol: "GLD", Points: yPts},
	}

	post := &regression.Posterior{T: n, Chains: make([]regression.ChainDraws, chains)}
	for c := range post.Chains {
		for d := 0; d < draws; d++ {
			alpha := make([]float64, n)
			beta := make([]float64, n)
			for i := 0; i < n; i++ {
				alpha[i] = 0.1 + 0.01*float64(c+d)
				beta[i] = 0.9 + 0.005*float64(i) + 0.01*float64(d)
			}
			post.Chains[c].Alpha = append(post.Chains[c].Alpha, alpha)
			post.Chains[c].Beta = append(post.Chains[c].Beta, beta)
			post.Chains[c].WalkSDA = append(post.Chains[c].WalkSDA, 0.02)
			post.Chains[c].WalkSDB = append(post.Chains[c].WalkSDB, 0.03)
			post.Chains[c].NoiseSD = append(post.Chains[c].NoiseSD, 0.07)
		}
	}

	alpha := post.AlphaSummary(0.90)
	beta := post.BetaSummary(0.90)

	rolling := make([]regression.OLSFit, n)
	for i := range rolling {
		rolling[i] = regression.OLSFit{Intercept: math.NaN(), Slope: math.NaN(), R2: math.NaN()}
	}
	for i := 4; i < n; i++ {
		rolling[i] = regression.OLSFit{Intercept: 0.1, Slope: 0.91, R2: 0.98}
	}

	r := &Report{
		RunID:       "test-run",
		GeneratedAt: time.Date(2024, 2, 1, 9, 30, 0, 0, time.UTC),
		XSymbol:     "GFI",
		YSymbol:     "GLD",
		Pair:        pair,
		XScale:      dataset.Standardization{Mean: 12.5, Std: 1.4},
		YScale:      dataset.Standardization{Mean: 170, Std: 11},
		Level:       0.90,
		Alpha:       alpha,
		Beta:        beta,
		Pooled:      regression.OLSFit{Intercept: 0.05, Slope: 0.92, R2: 0.97},
		Rolling:     rolling,
		Posterior:   post,
		Sampler:     regression.SamplerConfig{Chains: chains, Draws: draws, Warmup: 10, Thin: 1, Seed: 42},
	}
	r.Diagnostics = regression.Diagnostics{
		WalkSDA:   post.WalkSDASummary(0.90),
		WalkSDB:   post.WalkSDBSummary(0.90),
		NoiseSD:   post.NoiseSDSummary(0.90),
		Converged: true,
	}

	require.NoError(t, r.Validate())
	return r
}

func TestReportValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Report)
		wantErr string
	}{
		{
			name:    "valid report passes",
			mutate:  func(r *Report) {},
			wantErr: "",
		},
		{
			name:    "empty pair",
			mutate:  func(r *Report) { r.Pair = dataset.Pair{} },
			wantErr: "no observations",
		},
		{
			name:    "short alpha summary",
			mutate:  func(r *Report) { r.Alpha.Mean = r.Alpha.Mean[:3] },
			wantErr: "coefficient summaries",
		},
		{
			name:    "rolling length mismatch",
			mutate:  func(r *Report) { r.Rolling = r.Rolling[:5] },
			wantErr: "rolling baseline",
		},
		{
			name:    "posterior length mismatch",
			mutate:  func(r *Report) { r.Posterior.T = 99 },
			wantErr: "posterior covers",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := testReport(t)
			tt.mutate(r)
			err := r.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFormatValue(t *testing.T) {
	require.Equal(t, "1.250000", formatValue(1.25))
	require.Equal(t, "", formatValue(math.NaN()))
	require.Equal(t, "", formatValue(math.Inf(1)))
}
