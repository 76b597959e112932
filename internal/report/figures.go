package report

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"betadrift/internal/regression"
)

// FigureOptions controls the optional layers of the PNG figures
type FigureOptions struct {
	// SpaghettiPaths is the number of sampled coefficient paths drawn
	// behind the posterior mean (0 disables the layer)
	SpaghettiPaths int
	// FitLines is the number of dated regression lines on the fit figure
	FitLines int
}

// DefaultFigureOptions returns the standard figure layout
func DefaultFigureOptions() FigureOptions {
	return FigureOptions{SpaghettiPaths: 30, FitLines: 8}
}

var (
	xSeriesColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	ySeriesColor = color.RGBA{R: 255, G: 127, B: 14, A: 255}
	meanColor    = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	bandColor    = color.NRGBA{R: 214, G: 39, B: 40, A: 50}
	pathColor    = color.NRGBA{R: 31, G: 119, B: 180, A: 40}

	// fit-figure gradient endpoints, early observations to late
	earlyColor = color.RGBA{R: 158, G: 202, B: 225, A: 255}
	lateColor  = color.RGBA{R: 8, G: 48, B: 107, A: 255}
)

// WriteFigures renders every figure of the run into dir and returns the
// paths written
func WriteFigures(dir string, r *Report, opts FigureOptions) ([]string, error) {
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create figure directory: %w", err)
	}

	figures := []struct {
		name  string
		build func() (*plot.Plot, error)
	}{
		{"prices.png", func() (*plot.Plot, error) { return PricesFigure(r) }},
		{"intercept.png", func() (*plot.Plot, error) {
			return CoefficientFigure(r, CoefficientIntercept, opts.SpaghettiPaths)
		}},
		{"slope.png", func() (*plot.Plot, error) {
			return CoefficientFigure(r, CoefficientSlope, opts.SpaghettiPaths)
		}},
		{"regression_fit.png", func() (*plot.Plot, error) { return RegressionFitFigure(r, opts.FitLines) }},
	}

	paths := make([]string, 0, len(figures))
	for _, fig := range figures {
		p, err := fig.build()
		if err != nil {
			return paths, fmt.Errorf("build %s: %w", fig.name, err)
		}
		path := filepath.Join(dir, fig.name)
		if err := p.Save(10*vg.Inch, 4*vg.Inch, path); err != nil {
			return paths, fmt.Errorf("save %s: %w", fig.name, err)
		}
		paths = append(paths, path)
	}

	return paths, nil
}

// PricesFigure plots both standardized price series over time
func PricesFigure(r *Report) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s and %s (standardized)", r.XSymbol, r.YSymbol)
	p.X.Label.Text = "date"
	p.Y.Label.Text = "z-score"
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02"}

	xs := timeAxis(r)

	xLine, err := plotter.NewLine(pairXYs(xs, r.Pair.XValues()))
	if err != nil {
		return nil, fmt.Errorf("x series line: %w", err)
	}
	xLine.Color = xSeriesColor
	xLine.Width = vg.Points(1.5)

	yLine, err := plotter.NewLine(pairXYs(xs, r.Pair.YValues()))
	if err != nil {
		return nil, fmt.Errorf("y series line: %w", err)
	}
	yLine.Color = ySeriesColor
	yLine.Width = vg.Points(1.5)

	p.Add(plotter.NewGrid(), xLine, yLine)
	p.Legend.Add(r.XSymbol, xLine)
	p.Legend.Add(r.YSymbol, yLine)
	p.Legend.Top = true

	return p, nil
}

// Coefficient selects which time-varying coefficient a figure shows
type Coefficient int

const (
	// CoefficientIntercept is the time-varying intercept alpha_t
	CoefficientIntercept Coefficient = iota
	// CoefficientSlope is the time-varying slope beta_t
	CoefficientSlope
)

func (c Coefficient) label() string {
	if c == CoefficientIntercept {
		return "intercept"
	}
	return "slope"
}

// CoefficientFigure plots one coefficient path: shaded credible band,
// posterior mean, and a spaghetti of sampled paths behind them
func CoefficientFigure(r *Report, coef Coefficient, spaghetti int) (*plot.Plot, error) {
	summary := r.Beta
	if coef == CoefficientIntercept {
		summary = r.Alpha
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s ~ %s: time-varying %s", r.YSymbol, r.XSymbol, coef.label())
	p.X.Label.Text = "date"
	p.Y.Label.Text = coef.label()
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02"}
	p.Add(plotter.NewGrid())

	xs := timeAxis(r)

	// Sampled paths go in first so the band and mean draw over them
	if spaghetti > 0 && r.Posterior != nil {
		for _, path := range samplePaths(r.Posterior, coef, spaghetti) {
			line, err := plotter.NewLine(pairXYs(xs, path))
			if err != nil {
				return nil, fmt.Errorf("sampled path line: %w", err)
			}
			line.Color = pathColor
			line.Width = vg.Points(0.5)
			p.Add(line)
		}
	}

	band, err := plotter.NewPolygon(bandPolygon(xs, summary))
	if err != nil {
		return nil, fmt.Errorf("credible band: %w", err)
	}
	band.Color = bandColor
	band.LineStyle.Width = 0

	mean, err := plotter.NewLine(pairXYs(xs, summary.Mean))
	if err != nil {
		return nil, fmt.Errorf("posterior mean line: %w", err)
	}
	mean.Color = meanColor
	mean.Width = vg.Points(2)

	p.Add(band, mean)
	p.Legend.Add("posterior mean", mean)
	p.Legend.Add(fmt.Sprintf("%.0f%% credible band", r.Level*100), band)
	p.Legend.Top = true

	return p, nil
}

// RegressionFitFigure scatters the observations shaded from early to late
// and overlays the posterior-mean regression line at evenly spaced dates
func RegressionFitFigure(r *Report, fitLines int) (*plot.Plot, error) {
	if fitLines < 2 {
		fitLines = 2
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s vs %s with dated regression lines", r.YSymbol, r.XSymbol)
	p.X.Label.Text = fmt.Sprintf("%s (z-score)", r.XSymbol)
	p.Y.Label.Text = fmt.Sprintf("%s (z-score)", r.YSymbol)
	p.Add(plotter.NewGrid())

	xs := r.Pair.XValues()
	ys := r.Pair.YValues()
	n := len(xs)

	// Scatter in time buckets so the glyph color can follow the gradient
	const buckets = 10
	for b := 0; b < buckets; b++ {
		lo := b * n / buckets
		hi := (b + 1) * n / buckets
		if lo >= hi {
			continue
		}
		pts := make(plotter.XYs, 0, hi-lo)
		for i := lo; i < hi; i++ {
			pts = append(pts, plotter.XY{X: xs[i], Y: ys[i]})
		}
		scatter, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, fmt.Errorf("scatter bucket %d: %w", b, err)
		}
		scatter.GlyphStyle.Color = gradient(float64(b) / float64(buckets-1))
		scatter.GlyphStyle.Radius = vg.Points(2)
		p.Add(scatter)
	}

	xMin, xMax := minMax(xs)
	for k := 0; k < fitLines; k++ {
		t := k * (n - 1) / (fitLines - 1)
		alpha := r.Alpha.Mean[t]
		beta := r.Beta.Mean[t]

		line, err := plotter.NewLine(plotter.XYs{
			{X: xMin, Y: alpha + beta*xMin},
			{X: xMax, Y: alpha + beta*xMax},
		})
		if err != nil {
			return nil, fmt.Errorf("regression line %d: %w", k, err)
		}
		line.Color = gradient(float64(k) / float64(fitLines-1))
		line.Width = vg.Points(1)
		p.Add(line)

		if k == 0 {
			p.Legend.Add(r.Pair.Dates()[t].Format("2006-01-02"), line)
		}
		if k == fitLines-1 {
			p.Legend.Add(r.Pair.Dates()[t].Format("2006-01-02"), line)
		}
	}
	p.Legend.Top = true

	return p, nil
}

// samplePaths picks up to count kept coefficient paths, evenly spaced over
// the pooled draws so every chain contributes
func samplePaths(post *regression.Posterior, coef Coefficient, count int) [][]float64 {
	pick := func(c *regression.ChainDraws) [][]float64 {
		if coef == CoefficientIntercept {
			return c.Alpha
		}
		return c.Beta
	}

	total := post.TotalDraws()
	if total == 0 {
		return nil
	}
	if count > total {
		count = total
	}
	step := total / count

	paths := make([][]float64, 0, count)
	global := 0
	next := 0
	for i := range post.Chains {
		for _, draw := range pick(&post.Chains[i]) {
			if global == next && len(paths) < count {
				paths = append(paths, draw)
				next += step
			}
			global++
		}
	}
	return paths
}

// bandPolygon builds the closed outline of a credible band: the upper
// bound left to right, then the lower bound back
func bandPolygon(xs []float64, s regression.PathSummary) plotter.XYs {
	n := len(xs)
	pts := make(plotter.XYs, 0, 2*n)
	for i := 0; i < n; i++ {
		pts = append(pts, plotter.XY{X: xs[i], Y: s.Upper[i]})
	}
	for i := n - 1; i >= 0; i-- {
		pts = append(pts, plotter.XY{X: xs[i], Y: s.Lower[i]})
	}
	return pts
}

// timeAxis converts the pair's dates to the unix-second axis TimeTicks
// expects
func timeAxis(r *Report) []float64 {
	dates := r.Pair.Dates()
	xs := make([]float64, len(dates))
	for i, d := range dates {
		xs[i] = float64(d.Unix())
	}
	return xs
}

func pairXYs(xs, ys []float64) plotter.XYs {
	pts := make(plotter.XYs, len(xs))
	for i := range xs {
		pts[i] = plotter.XY{X: xs[i], Y: ys[i]}
	}
	return pts
}

// gradient interpolates the early-to-late color at fraction frac in [0,1]
func gradient(frac float64) color.Color {
	if math.IsNaN(frac) || frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	lerp := func(a, b uint8) uint8 {
		return uint8(math.Round(float64(a) + frac*(float64(b)-float64(a))))
	}
	return color.RGBA{
		R: lerp(earlyColor.R, lateColor.R),
		G: lerp(earlyColor.G, lateColor.G),
		B: lerp(earlyColor.B, lateColor.B),
		A: 255,
	}
}

func minMax(values []float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}
