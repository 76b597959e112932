package report

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"betadrift/internal/dataset"
	"betadrift/internal/regression"
)

// Report bundles everything a completed run needs to persist. Pair holds
// the standardized observations the model saw; XScale and YScale map them
// back to price scale when a reader wants raw units.
type Report struct {
	RunID       string
	GeneratedAt time.Time

	XSymbol string
	YSymbol string

	Pair   dataset.Pair
	XScale dataset.Standardization
	YScale dataset.Standardization

	Level       float64
	Alpha       regression.PathSummary
	Beta        regression.PathSummary
	Diagnostics regression.Diagnostics
	Pooled      regression.OLSFit
	Rolling     []regression.OLSFit

	Posterior *regression.Posterior
	Sampler   regression.SamplerConfig
}

// Validate checks that the report's pieces agree on the number of dates.
// Rolling is optional; when present it must cover every date.
func (r *Report) Validate() error {
	if r == nil {
		return fmt.Errorf("report is nil")
	}
	n := r.Pair.Len()
	if n == 0 {
		return fmt.Errorf("report has no observations")
	}
	if len(r.Alpha.Mean) != n || len(r.Beta.Mean) != n {
		return fmt.Errorf("coefficient summaries cover %d/%d dates, pair has %d",
			len(r.Alpha.Mean), len(r.Beta.Mean), n)
	}
	if len(r.Rolling) != 0 && len(r.Rolling) != n {
		return fmt.Errorf("rolling baseline covers %d dates, pair has %d", len(r.Rolling), n)
	}
	if r.Posterior != nil && r.Posterior.T != n {
		return fmt.Errorf("posterior covers %d timesteps, pair has %d", r.Posterior.T, n)
	}
	return nil
}

// rollingSlope returns the rolling OLS slope at index i, NaN when the
// baseline is absent or the window was incomplete
func (r *Report) rollingSlope(i int) float64 {
	if len(r.Rolling) == 0 {
		return math.NaN()
	}
	return r.Rolling[i].Slope
}

// formatValue renders a float for CSV and workbook cells. NaN becomes an
// empty cell so spreadsheet tools treat it as missing rather than text.
func formatValue(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 6, 64)
}
