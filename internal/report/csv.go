package report

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// summaryHeader is the column layout of the per-date summary CSV
var summaryHeader = []string{
	"Date", "X", "Y",
	"AlphaMean", "AlphaLower", "AlphaUpper",
	"BetaMean", "BetaLower", "BetaUpper",
	"RollingOLSBeta",
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// WriteCSV writes data to a CSV file with the given options, creating the
// parent directory when needed
func WriteCSV(filePath string, options WriteOptions) error {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	// BOM helps Excel recognize UTF-8
	if options.BOMPrefix {
		if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}

	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	return writer.Error()
}

// WriteSummaryCSV writes the per-date posterior summary: observed values,
// coefficient means with credible bands, and the rolling OLS baseline
func WriteSummaryCSV(filePath string, r *Report) error {
	if err := r.Validate(); err != nil {
		return fmt.Errorf("invalid report: %w", err)
	}

	dates := r.Pair.Dates()
	xs := r.Pair.XValues()
	ys := r.Pair.YValues()

	records := make([][]string, 0, len(dates))
	for i := range dates {
		records = append(records, []string{
			dates[i].Format("2006-01-02"),
			formatValue(xs[i]),
			formatValue(ys[i]),
			formatValue(r.Alpha.Mean[i]),
			formatValue(r.Alpha.Lower[i]),
			formatValue(r.Alpha.Upper[i]),
			formatValue(r.Beta.Mean[i]),
			formatValue(r.Beta.Lower[i]),
			formatValue(r.Beta.Upper[i]),
			formatValue(r.rollingSlope(i)),
		})
	}

	slog.Info("Writing summary CSV",
		slog.String("file_path", filePath),
		slog.Int("record_count", len(records)))

	return WriteCSV(filePath, WriteOptions{
		Headers:   summaryHeader,
		Records:   records,
		BOMPrefix: true,
	})
}
