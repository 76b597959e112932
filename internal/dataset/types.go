package dataset

import (
	"time"
)

// MinObservations is the smallest number of aligned observations a pair
// may have and still be usable for modeling
const MinObservations = 8

// PricePoint represents a single dated price observation
type PricePoint struct {
	Date  time.Time `json:"date"`
	Price float64   `json:"price"`
}

// Series represents one asset's price history, sorted ascending by date
type Series struct {
	Symbol string       `json:"symbol"`
	Points []PricePoint `json:"points"`
}

// Len returns the number of observations in the series
func (s Series) Len() int {
	return len(s.Points)
}

// Dates returns the date axis of the series
func (s Series) Dates() []time.Time {
	dates := make([]time.Time, len(s.Points))
	for i, p := range s.Points {
		dates[i] = p.Date
	}
	return dates
}

// Values returns the price values of the series
func (s Series) Values() []float64 {
	values := make([]float64, len(s.Points))
	for i, p := range s.Points {
		values[i] = p.Price
	}
	return values
}

// Pair represents the aligned two-asset price table. X is the regressor
// series and Y the response; both always have identical date axes.
type Pair struct {
	X Series `json:"x"`
	Y Series `json:"y"`
}

// Len returns the number of aligned observations
func (p Pair) Len() int {
	return len(p.X.Points)
}

// Dates returns the shared date axis
func (p Pair) Dates() []time.Time {
	return p.X.Dates()
}

// XValues returns the regressor prices
func (p Pair) XValues() []float64 {
	return p.X.Values()
}

// YValues returns the response prices
func (p Pair) YValues() []float64 {
	return p.Y.Values()
}

// Standardization holds the parameters of a z-score transform so that
// model-scale results can be mapped back to price scale
type Standardization struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
}

// Apply transforms a raw value to z-score scale
func (s Standardization) Apply(v float64) float64 {
	return (v - s.Mean) / s.Std
}

// Invert maps a z-score back to the raw scale
func (s Standardization) Invert(z float64) float64 {
	return z*s.Std + s.Mean
}

// DateRange describes the span of an aligned pair
type DateRange struct {
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Length int       `json:"length"`
}

// Range returns the date range covered by the pair
func (p Pair) Range() DateRange {
	if p.Len() == 0 {
		return DateRange{}
	}
	return DateRange{
		Start:  p.X.Points[0].Date,
		End:    p.X.Points[p.Len()-1].Date,
		Length: p.Len(),
	}
}
