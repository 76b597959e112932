package dataset

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// AlignPair joins two series on their common dates. Only dates present
// and finite in both series survive; the result is sorted ascending.
// Duplicate dates within one series are an error because they make the
// join ambiguous.
func AlignPair(x, y Series) (Pair, error) {
	xByDate, err := indexByDate(x)
	if err != nil {
		return Pair{}, err
	}
	yByDate, err := indexByDate(y)
	if err != nil {
		return Pair{}, err
	}

	var dates []time.Time
	for date := range xByDate {
		if _, ok := yByDate[date]; ok {
			dates = append(dates, date)
		}
	}
	sort.Slice(dates, func(i, j int) bool {
		return dates[i].Before(dates[j])
	})

	if len(dates) < MinObservations {
		return Pair{}, fmt.Errorf("only %d dates shared between %s and %s, need at least %d",
			len(dates), x.Symbol, y.Symbol, MinObservations)
	}

	aligned := Pair{
		X: Series{Symbol: x.Symbol, Points: make([]PricePoint, len(dates))},
		Y: Series{Symbol: y.Symbol, Points: make([]PricePoint, len(dates))},
	}
	for i, date := range dates {
		aligned.X.Points[i] = PricePoint{Date: date, Price: xByDate[date]}
		aligned.Y.Points[i] = PricePoint{Date: date, Price: yByDate[date]}
	}

	return aligned, nil
}

// indexByDate builds a date lookup for a series, rejecting duplicate
// dates and dropping non-finite prices
func indexByDate(s Series) (map[time.Time]float64, error) {
	byDate := make(map[time.Time]float64, len(s.Points))
	for _, p := range s.Points {
		date := p.Date.Truncate(24 * time.Hour)
		if _, exists := byDate[date]; exists {
			return nil, fmt.Errorf("duplicate date %s in series %s",
				date.Format("2006-01-02"), s.Symbol)
		}
		if math.IsNaN(p.Price) || math.IsInf(p.Price, 0) {
			continue
		}
		byDate[date] = p.Price
	}
	return byDate, nil
}

// Standardize returns a z-scored copy of the pair along with the two
// transforms, so results can be mapped back to price scale. The standard
// deviation is the sample one (n-1).
func (p Pair) Standardize() (Pair, Standardization, Standardization, error) {
	xStd, err := standardization(p.XValues(), p.X.Symbol)
	if err != nil {
		return Pair{}, Standardization{}, Standardization{}, err
	}
	yStd, err := standardization(p.YValues(), p.Y.Symbol)
	if err != nil {
		return Pair{}, Standardization{}, Standardization{}, err
	}

	scaled := Pair{
		X: Series{Symbol: p.X.Symbol, Points: make([]PricePoint, p.Len())},
		Y: Series{Symbol: p.Y.Symbol, Points: make([]PricePoint, p.Len())},
	}
	for i := range p.X.Points {
		scaled.X.Points[i] = PricePoint{
			Date:  p.X.Points[i].Date,
			Price: xStd.Apply(p.X.Points[i].Price),
		}
		scaled.Y.Points[i] = PricePoint{
			Date:  p.Y.Points[i].Date,
			Price: yStd.Apply(p.Y.Points[i].Price),
		}
	}

	return scaled, xStd, yStd, nil
}

// standardization computes the z-score transform of one series
func standardization(values []float64, symbol string) (Standardization, error) {
	if len(values) < 2 {
		return Standardization{}, fmt.Errorf("series %s too short to standardize", symbol)
	}
	mean := stat.Mean(values, nil)
	std := stat.StdDev(values, nil)
	if std == 0 || math.IsNaN(std) {
		return Standardization{}, fmt.Errorf("series %s has zero variance, cannot standardize", symbol)
	}
	return Standardization{Mean: mean, Std: std}, nil
}

// Subsample keeps every stride-th observation, always retaining the first.
// It thins dense daily data before sampling so chain length stays
// proportional to the information in the series rather than its density.
func (p Pair) Subsample(stride int) (Pair, error) {
	if stride < 1 {
		return Pair{}, fmt.Errorf("stride must be at least 1, got %d", stride)
	}
	if stride == 1 {
		return p, nil
	}

	thinned := Pair{
		X: Series{Symbol: p.X.Symbol},
		Y: Series{Symbol: p.Y.Symbol},
	}
	for i := 0; i < p.Len(); i += stride {
		thinned.X.Points = append(thinned.X.Points, p.X.Points[i])
		thinned.Y.Points = append(thinned.Y.Points, p.Y.Points[i])
	}

	if thinned.Len() < MinObservations {
		return Pair{}, fmt.Errorf("stride %d leaves %d observations, need at least %d",
			stride, thinned.Len(), MinObservations)
	}

	return thinned, nil
}

// Clip restricts the pair to a date range. A zero bound leaves that side
// open.
func (p Pair) Clip(from, to time.Time) (Pair, error) {
	clipped := Pair{
		X: Series{Symbol: p.X.Symbol},
		Y: Series{Symbol: p.Y.Symbol},
	}
	for i := range p.X.Points {
		date := p.X.Points[i].Date
		if !from.IsZero() && date.Before(from) {
			continue
		}
		if !to.IsZero() && date.After(to) {
			continue
		}
		clipped.X.Points = append(clipped.X.Points, p.X.Points[i])
		clipped.Y.Points = append(clipped.Y.Points, p.Y.Points[i])
	}

	if clipped.Len() < MinObservations {
		return Pair{}, fmt.Errorf("date range %s..%s leaves %d observations, need at least %d",
			formatBound(from), formatBound(to), clipped.Len(), MinObservations)
	}

	return clipped, nil
}

func formatBound(t time.Time) string {
	if t.IsZero() {
		return "open"
	}
	return t.Format("2006-01-02")
}

// Correlation returns the Pearson correlation of the two price series
func (p Pair) Correlation() float64 {
	if p.Len() < 2 {
		return math.NaN()
	}
	return stat.Correlation(p.XValues(), p.YValues(), nil)
}
