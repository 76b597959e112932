package report

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"betadrift/internal/regression"
)

const (
	summarySheet      = "Summary"
	coefficientsSheet = "Coefficients"
)

// WriteWorkbook writes the Excel workbook: a Summary sheet with run
// metadata, the pooled OLS baseline, and the scale-parameter posteriors,
// plus a Coefficients sheet mirroring the summary CSV with a native line
// chart of the slope posterior.
func WriteWorkbook(filePath string, r *Report) error {
	if err := r.Validate(); err != nil {
		return fmt.Errorf("invalid report: %w", err)
	}

	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("rename summary sheet: %w", err)
	}
	if _, err := f.NewSheet(coefficientsSheet); err != nil {
		return fmt.Errorf("create coefficients sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	if err := writeSummarySheet(f, r, bold); err != nil {
		return err
	}
	if err := writeCoefficientsSheet(f, r, bold); err != nil {
		return err
	}

	slog.Info("Writing workbook",
		slog.String("file_path", filePath),
		slog.Int("record_count", r.Pair.Len()))

	if err := f.SaveAs(filePath); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func writeSummarySheet(f *excelize.File, r *Report, bold int) error {
	rng := r.Pair.Range()

	row := 1
	section := func(title string) error {
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetCellValue(summarySheet, cell, title); err != nil {
			return err
		}
		if err := f.SetCellStyle(summarySheet, cell, cell, bold); err != nil {
			return err
		}
		row++
		return nil
	}
	kv := func(key string, value interface{}) error {
		if err := setRow(f, summarySheet, row, key, value); err != nil {
			return err
		}
		row++
		return nil
	}

	if err := section("Run"); err != nil {
		return err
	}
	entries := []struct {
		key   string
		value interface{}
	}{
		{"Run ID", r.RunID},
		{"Generated", r.GeneratedAt.Format("2006-01-02 15:04:05")},
		{"Regressor (X)", r.XSymbol},
		{"Response (Y)", r.YSymbol},
		{"Observations", rng.Length},
		{"First date", rng.Start.Format("2006-01-02")},
		{"Last date", rng.End.Format("2006-01-02")},
		{"Correlation", r.Pair.Correlation()},
		{"Credible level", r.Level},
		{"Chains", r.Sampler.Chains},
		{"Draws per chain", r.Sampler.Draws},
		{"Warmup", r.Sampler.Warmup},
		{"Thin", r.Sampler.Thin},
		{"Seed", r.Sampler.Seed},
	}
	for _, e := range entries {
		if err := kv(e.key, e.value); err != nil {
			return err
		}
	}

	row++
	if err := section("Pooled OLS baseline"); err != nil {
		return err
	}
	for _, e := range []struct {
		key   string
		value interface{}
	}{
		{"Intercept", r.Pooled.Intercept},
		{"Slope", r.Pooled.Slope},
		{"R2", r.Pooled.R2},
	} {
		if err := kv(e.key, e.value); err != nil {
			return err
		}
	}

	row++
	if err := section("Scale parameters"); err != nil {
		return err
	}
	headerRow := row
	if err := setRow(f, summarySheet, row,
		"Parameter", "Mean", "SD", "Lower", "Upper", "RHat", "ESS"); err != nil {
		return err
	}
	start, _ := excelize.CoordinatesToCellName(1, headerRow)
	end, _ := excelize.CoordinatesToCellName(7, headerRow)
	if err := f.SetCellStyle(summarySheet, start, end, bold); err != nil {
		return err
	}
	row++

	scales := []struct {
		name    string
		summary regression.ScalarSummary
	}{
		{"Intercept walk SD", r.Diagnostics.WalkSDA},
		{"Slope walk SD", r.Diagnostics.WalkSDB},
		{"Noise SD", r.Diagnostics.NoiseSD},
	}
	for _, s := range scales {
		if err := setRow(f, summarySheet, row, s.name,
			s.summary.Mean, s.summary.SD, s.summary.Lower, s.summary.Upper,
			s.summary.RHat, s.summary.ESS); err != nil {
			return err
		}
		row++
	}

	row++
	if err := section("Convergence"); err != nil {
		return err
	}
	for _, e := range []struct {
		key   string
		value interface{}
	}{
		{"Converged", r.Diagnostics.Converged},
		{"Max intercept path RHat", r.Diagnostics.MaxAlphaRHat},
		{"Max slope path RHat", r.Diagnostics.MaxBetaRHat},
	} {
		if err := kv(e.key, e.value); err != nil {
			return err
		}
	}

	if err := f.SetColWidth(summarySheet, "A", "A", 24); err != nil {
		return err
	}
	return nil
}

func writeCoefficientsSheet(f *excelize.File, r *Report, bold int) error {
	header := make([]interface{}, len(summaryHeader))
	for i, h := range summaryHeader {
		header[i] = h
	}
	if err := setRow(f, coefficientsSheet, 1, header...); err != nil {
		return err
	}
	start, _ := excelize.CoordinatesToCellName(1, 1)
	end, _ := excelize.CoordinatesToCellName(len(summaryHeader), 1)
	if err := f.SetCellStyle(coefficientsSheet, start, end, bold); err != nil {
		return err
	}

	dates := r.Pair.Dates()
	xs := r.Pair.XValues()
	ys := r.Pair.YValues()
	for i := range dates {
		if err := setRow(f, coefficientsSheet, i+2,
			dates[i].Format("2006-01-02"),
			xs[i], ys[i],
			r.Alpha.Mean[i], r.Alpha.Lower[i], r.Alpha.Upper[i],
			r.Beta.Mean[i], r.Beta.Lower[i], r.Beta.Upper[i],
			r.rollingSlope(i)); err != nil {
			return err
		}
	}

	lastRow := len(dates) + 1
	series := func(col string) excelize.ChartSeries {
		return excelize.ChartSeries{
			Name:       fmt.Sprintf("%s!$%s$1", coefficientsSheet, col),
			Categories: fmt.Sprintf("%s!$A$2:$A$%d", coefficientsSheet, lastRow),
			Values:     fmt.Sprintf("%s!$%s$2:$%s$%d", coefficientsSheet, col, col, lastRow),
		}
	}
	chart := &excelize.Chart{
		Type: excelize.Line,
		// Columns G..I hold BetaMean, BetaLower, BetaUpper
		Series: []excelize.ChartSeries{series("H"), series("G"), series("I")},
		Title: []excelize.RichTextRun{
			{Text: fmt.Sprintf("%s ~ %s slope posterior", r.YSymbol, r.XSymbol)},
		},
		Legend: excelize.ChartLegend{Position: "bottom"},
	}
	if err := f.AddChart(coefficientsSheet, "L2", chart); err != nil {
		return fmt.Errorf("add slope chart: %w", err)
	}

	if err := f.SetColWidth(coefficientsSheet, "A", "A", 12); err != nil {
		return err
	}
	return nil
}

// setRow writes one row of values starting at column A. Non-finite floats
// leave the cell empty so Excel shows a gap rather than an error.
func setRow(f *excelize.File, sheet string, row int, values ...interface{}) error {
	for i, v := range values {
		if fv, ok := v.(float64); ok && (math.IsNaN(fv) || math.IsInf(fv, 0)) {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return fmt.Errorf("cell coordinates (%d,%d): %w", i+1, row, err)
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("set cell %s: %w", cell, err)
		}
	}
	return nil
}
