package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Format identifies the CSV layout of an input file
type Format string

const (
	// FormatAuto sniffs the layout from the header row
	FormatAuto Format = "auto"
	// FormatWide is a Date column plus one column per ticker
	FormatWide Format = "wide"
	// FormatLong is one row per (date, ticker) observation
	FormatLong Format = "long"
)

// LoadOptions selects what to read from an input file. A nil Logger
// falls back to slog.Default.
type LoadOptions struct {
	Path    string
	XSymbol string
	YSymbol string
	Format  Format
	Logger  *slog.Logger
}

// LoadPair loads the two requested series from a CSV file and aligns them
// on their common dates. The concrete layout is sniffed unless opts.Format
// pins it.
func LoadPair(ctx context.Context, opts LoadOptions) (Pair, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	format := opts.Format
	if format == "" || format == FormatAuto {
		detected, err := DetectFormat(opts.Path)
		if err != nil {
			return Pair{}, fmt.Errorf("detect CSV format: %w", err)
		}
		format = detected
	}

	logger.InfoContext(ctx, "loading price pair",
		"path", opts.Path,
		"format", string(format),
		"x_symbol", opts.XSymbol,
		"y_symbol", opts.YSymbol,
	)

	var (
		x, y Series
		err  error
	)
	switch format {
	case FormatWide:
		x, y, err = loadWideCSV(opts.Path, opts.XSymbol, opts.YSymbol, logger)
	case FormatLong:
		x, y, err = loadLongCSV(opts.Path, opts.XSymbol, opts.YSymbol, logger)
	default:
		return Pair{}, fmt.Errorf("unknown CSV format: %q", format)
	}
	if err != nil {
		return Pair{}, err
	}

	pair, err := AlignPair(x, y)
	if err != nil {
		return Pair{}, err
	}

	logger.InfoContext(ctx, "price pair loaded",
		"observations", pair.Len(),
		"start", pair.Range().Start.Format("2006-01-02"),
		"end", pair.Range().End.Format("2006-01-02"),
	)

	return pair, nil
}

// DetectFormat sniffs wide vs long layout from the header row
func DetectFormat(path string) (Format, error) {
	record, err := readHeaderRow(path)
	if err != nil {
		return "", err
	}
	if !isHeaderRow(record) {
		return "", fmt.Errorf("cannot detect layout of %s: no header row, specify the format explicitly", filepath.Base(path))
	}

	for _, cell := range record {
		if strings.EqualFold(strings.TrimSpace(cell), "symbol") {
			return FormatLong, nil
		}
	}
	return FormatWide, nil
}

// LoadWideCSV loads two ticker columns from a wide CSV file.
// Expected layout: Date,<TICKER>,<TICKER>,... with a mandatory header row
// naming the tickers. Column resolution is case-insensitive.
func LoadWideCSV(path, xSymbol, ySymbol string) (Series, Series, error) {
	return loadWideCSV(path, xSymbol, ySymbol, slog.Default())
}

func loadWideCSV(path, xSymbol, ySymbol string, logger *slog.Logger) (Series, Series, error) {
	records, err := readAllRecords(path)
	if err != nil {
		return Series{}, Series{}, err
	}
	if !isHeaderRow(records[0]) {
		return Series{}, Series{}, fmt.Errorf("wide CSV %s has no header row naming the ticker columns", filepath.Base(path))
	}

	header := records[0]
	dateCol := findColumn(header, "date")
	if dateCol < 0 {
		dateCol = 0
	}
	xCol := findColumn(header, xSymbol)
	yCol := findColumn(header, ySymbol)
	if xCol < 0 || yCol < 0 {
		return Series{}, Series{}, fmt.Errorf("columns %q and %q not both present in %s (header: %s)",
			xSymbol, ySymbol, filepath.Base(path), strings.Join(header, ","))
	}

	x := Series{Symbol: strings.ToUpper(xSymbol)}
	y := Series{Symbol: strings.ToUpper(ySymbol)}
	skipped := 0

	for i := 1; i < len(records); i++ {
		record := records[i]
		if len(record) <= dateCol {
			skipped++
			continue
		}
		date, err := parseDate(strings.TrimSpace(record[dateCol]))
		if err != nil {
			logger.Warn("failed to parse CSV record",
				"file", filepath.Base(path),
				"line", i+1,
				"error", err,
			)
			skipped++
			continue
		}

		if p, ok := parseCell(record, xCol); ok {
			x.Points = append(x.Points, PricePoint{Date: date, Price: p})
		}
		if p, ok := parseCell(record, yCol); ok {
			y.Points = append(y.Points, PricePoint{Date: date, Price: p})
		}
	}

	if skipped > 0 {
		logger.Warn("skipped unparseable rows", "file", filepath.Base(path), "count", skipped)
	}

	return x, y, nil
}

// LoadLongCSV loads two tickers from a long CSV file.
// Expected layout: Date,Symbol,...,Close with a header row locating the
// closing price column; without a header the daily-report column order
// (Date,Symbol,Open,High,Low,Close,...) is assumed.
func LoadLongCSV(path, xSymbol, ySymbol string) (Series, Series, error) {
	return loadLongCSV(path, xSymbol, ySymbol, slog.Default())
}

func loadLongCSV(path, xSymbol, ySymbol string, logger *slog.Logger) (Series, Series, error) {
	records, err := readAllRecords(path)
	if err != nil {
		return Series{}, Series{}, err
	}

	dateCol, symbolCol, closeCol := 0, 1, 5
	dataStart := 0
	if isHeaderRow(records[0]) {
		dataStart = 1
		header := records[0]
		if c := findColumn(header, "date"); c >= 0 {
			dateCol = c
		}
		if c := findColumn(header, "symbol"); c >= 0 {
			symbolCol = c
		}
		closeCol = -1
		for _, name := range []string{"close", "closeprice", "close_price", "price"} {
			if c := findColumn(header, name); c >= 0 {
				closeCol = c
				break
			}
		}
		if closeCol < 0 {
			return Series{}, Series{}, fmt.Errorf("no closing price column in %s (header: %s)",
				filepath.Base(path), strings.Join(header, ","))
		}
	}

	x := Series{Symbol: strings.ToUpper(xSymbol)}
	y := Series{Symbol: strings.ToUpper(ySymbol)}
	skipped := 0

	for i := dataStart; i < len(records); i++ {
		record := records[i]
		maxCol := dateCol
		if symbolCol > maxCol {
			maxCol = symbolCol
		}
		if closeCol > maxCol {
			maxCol = closeCol
		}
		if len(record) <= maxCol {
			skipped++
			continue
		}

		symbol := strings.ToUpper(strings.TrimSpace(record[symbolCol]))
		if !strings.EqualFold(symbol, xSymbol) && !strings.EqualFold(symbol, ySymbol) {
			continue
		}

		date, err := parseDate(strings.TrimSpace(record[dateCol]))
		if err != nil {
			logger.Warn("failed to parse CSV record",
				"file", filepath.Base(path),
				"line", i+1,
				"error", err,
			)
			skipped++
			continue
		}
		price, ok := parseCell(record, closeCol)
		if !ok {
			skipped++
			continue
		}

		point := PricePoint{Date: date, Price: price}
		if strings.EqualFold(symbol, xSymbol) {
			x.Points = append(x.Points, point)
		} else {
			y.Points = append(y.Points, point)
		}
	}

	if skipped > 0 {
		logger.Warn("skipped unparseable rows", "file", filepath.Base(path), "count", skipped)
	}

	return x, y, nil
}

// readAllRecords reads a CSV file, strips a UTF-8 BOM if present, and
// rejects empty or header-only files
func readAllRecords(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read CSV records: %w", err)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("empty CSV file: %s", filepath.Base(path))
	}
	if len(records[0]) > 0 {
		records[0][0] = strings.TrimPrefix(records[0][0], "\ufeff")
	}
	if len(records) == 1 && isHeaderRow(records[0]) {
		return nil, fmt.Errorf("CSV file contains only header: %s", filepath.Base(path))
	}

	return records, nil
}

// readHeaderRow reads just the first row of a CSV file
func readHeaderRow(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	record, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read CSV header: %w", err)
	}
	if len(record) > 0 {
		record[0] = strings.TrimPrefix(record[0], "\ufeff")
	}
	return record, nil
}

// findColumn locates a header column by name, case-insensitively
func findColumn(header []string, name string) int {
	for i, cell := range header {
		if strings.EqualFold(strings.TrimSpace(cell), name) {
			return i
		}
	}
	return -1
}

// parseCell parses a price cell; blank, malformed, non-finite and
// non-positive values drop the observation rather than failing the load
func parseCell(record []string, col int) (float64, bool) {
	if col >= len(record) {
		return 0, false
	}
	str := strings.TrimSpace(record[col])
	if str == "" {
		return 0, false
	}
	// Tolerate thousands separators from spreadsheet exports
	str = strings.ReplaceAll(str, ",", "")

	value, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return 0, false
	}
	if math.IsNaN(value) || math.IsInf(value, 0) || value <= 0 {
		return 0, false
	}
	return value, true
}

// parseDate attempts to parse date strings in multiple formats
func parseDate(dateStr string) (time.Time, error) {
	dateFormats := []string{
		"2006-01-02",          // ISO format
		"01/02/2006",          // US format
		"02/01/2006",          // European format
		"2006/01/02",          // Alternative ISO
		"2006-01-02 15:04:05", // With time
		"01-02-2006",          // US with dashes
		"02-01-2006",          // European with dashes
	}

	for _, format := range dateFormats {
		if date, err := time.Parse(format, dateStr); err == nil {
			return date, nil
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse date: %s", dateStr)
}

// isHeaderRow checks if the first row contains headers
func isHeaderRow(record []string) bool {
	if len(record) == 0 {
		return false
	}

	firstCell := strings.ToLower(strings.TrimSpace(record[0]))
	if strings.Contains(firstCell, "date") {
		return true
	}

	// Try parsing as date - if it fails, likely a header
	_, err := parseDate(strings.TrimSpace(record[0]))
	return err != nil
}
