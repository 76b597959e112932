package regression

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// OLSFit holds a static least-squares fit
type OLSFit struct {
	Intercept float64 `json:"intercept"`
	Slope     float64 `json:"slope"`
	R2        float64 `json:"r2"`
}

// PooledOLS fits a single regression line over the whole sample. It is
// the static baseline the time-varying model is compared against, and
// seeds the Gibbs chains.
func PooledOLS(x, y []float64) (OLSFit, error) {
	if len(x) != len(y) {
		return OLSFit{}, ValidationError{
			Field:   "data",
			Message: fmt.Sprintf("series lengths differ: x has %d, y has %d", len(x), len(y)),
		}
	}
	if len(x) < 2 {
		return OLSFit{}, ValidationError{
			Field:   "data",
			Message: fmt.Sprintf("need at least 2 observations for a line, got %d", len(x)),
		}
	}

	intercept, slope := stat.LinearRegression(x, y, nil, false)
	if math.IsNaN(intercept) || math.IsNaN(slope) || math.IsInf(slope, 0) {
		return OLSFit{}, ValidationError{
			Field:   "data",
			Message: "regressor has no variation, least squares is undefined",
		}
	}

	return OLSFit{
		Intercept: intercept,
		Slope:     slope,
		R2:        stat.RSquared(x, y, nil, intercept, slope),
	}, nil
}

// RollingOLS fits a trailing-window regression ending at each date.
// Entries before the first complete window are NaN. A window whose
// regressor happens to be constant yields a NaN entry rather than an
// error.
func RollingOLS(x, y []float64, window int) ([]OLSFit, error) {
	if len(x) != len(y) {
		return nil, ValidationError{
			Field:   "data",
			Message: fmt.Sprintf("series lengths differ: x has %d, y has %d", len(x), len(y)),
		}
	}
	if window < 3 {
		return nil, ValidationError{
			Field:   "window",
			Message: fmt.Sprintf("rolling window must be at least 3, got %d", window),
			Value:   window,
		}
	}
	if window > len(x) {
		return nil, ValidationError{
			Field:   "window",
			Message: fmt.Sprintf("rolling window %d exceeds series length %d", window, len(x)),
			Value:   window,
		}
	}

	fits := make([]OLSFit, len(x))
	for i := range fits {
		fits[i] = OLSFit{Intercept: math.NaN(), Slope: math.NaN(), R2: math.NaN()}
	}

	for i := window - 1; i < len(x); i++ {
		xs := x[i-window+1 : i+1]
		ys := y[i-window+1 : i+1]

		intercept, slope := stat.LinearRegression(xs, ys, nil, false)
		if math.IsNaN(intercept) || math.IsNaN(slope) {
			continue
		}
		fits[i] = OLSFit{
			Intercept: intercept,
			Slope:     slope,
			R2:        stat.RSquared(xs, ys, nil, intercept, slope),
		}
	}

	return fits, nil
}
