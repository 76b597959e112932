package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"betadrift/internal/config"
	"betadrift/internal/dataset"
	"betadrift/internal/infrastructure"
)

// datedFileRe matches filenames that carry their trading date, e.g.
// "2025-06-24.csv" or "2025 06 24 Daily Report.xlsx", so whole files can
// be skipped in accumulative mode
var datedFileRe = regexp.MustCompile(`^(\d{4})[ -](\d{2})[ -](\d{2})`)

// closePair collects the two closing prices observed on one date
type closePair struct {
	x, y       float64
	hasX, hasY bool
}

func main() {
	mode := flag.String("mode", "initial", "initial | accumulative")
	dir := flag.String("dir", "", "directory of daily long CSVs or XLSX exports")
	xSymbol := flag.String("x", "", "regressor ticker symbol")
	ySymbol := flag.String("y", "", "response ticker symbol")
	out := flag.String("out", "", "output wide CSV path (defaults to data/pair.csv)")
	flag.Parse()

	if *dir == "" || *xSymbol == "" || *ySymbol == "" {
		slog.Error("Missing required flags", "dir", *dir, "x", *xSymbol, "y", *ySymbol)
		flag.Usage()
		os.Exit(1)
	}
	if *out == "" {
		*out = filepath.Join("data", "pair.csv")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Warn("Failed to load config, using defaults", "error", err)
		cfg = config.Default()
		cfg.Logging.FilePath = filepath.Join("logs", "paircsv.log")
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}
	defer infrastructure.CloseLogFile()

	logger.Info("Starting pair extraction",
		slog.String("mode", *mode),
		slog.String("input_dir", *dir),
		slog.String("x_symbol", *xSymbol),
		slog.String("y_symbol", *ySymbol),
		slog.String("output_file", *out))

	outDir := filepath.Dir(*out)
	if err := os.MkdirAll(outDir, 0755); err != nil {
		logger.Error("Cannot create output directory",
			slog.String("path", outDir),
			slog.String("error", err.Error()))
		os.Exit(1)
	}

	var lastDate time.Time
	if *mode == "accumulative" {
		if d, err := loadLastDate(*out); err == nil {
			lastDate = d
			logger.Info("Existing CSV last date", slog.String("last_date", lastDate.Format("2006-01-02")))
		} else {
			logger.Warn("No existing CSV found, switching to initial mode", slog.String("error", err.Error()))
			*mode = "initial"
		}
	}

	if *mode == "initial" {
		if err := writeHeader(*out, *xSymbol, *ySymbol); err != nil {
			logger.Error("Cannot create output file",
				slog.String("path", *out),
				slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("Created new CSV file", slog.String("path", *out))
	}

	files, err := listInputFiles(*dir, lastDate)
	if err != nil {
		logger.Error("Failed to read directory",
			slog.String("dir", *dir),
			slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Input files found", slog.Int("count", len(files)))
	fmt.Printf("Found %d input files\n", len(files))
	if len(files) == 0 {
		fmt.Println("Pair extraction complete: 0 files")
		return
	}

	closes := make(map[time.Time]closePair)
	processed := 0
	for i, path := range files {
		logger.Info("Processing file",
			slog.Int("current", i+1),
			slog.Int("total", len(files)),
			slog.String("filename", filepath.Base(path)))

		if err := extractCloses(path, *xSymbol, *ySymbol, closes); err != nil {
			logger.Warn("Error processing file",
				slog.String("filename", filepath.Base(path)),
				slog.String("error", err.Error()))
			continue
		}
		processed++
	}

	rows := pairRows(closes, lastDate)
	logger.Info("Complete pair dates", slog.Int("count", len(rows)))

	if err := appendRows(*out, rows); err != nil {
		logger.Error("Failed to write output CSV",
			slog.String("path", *out),
			slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Pair extraction completed",
		slog.Int("processed_files", processed),
		slog.Int("rows_written", len(rows)),
		slog.String("output_path", *out))
	fmt.Printf("Pair extraction complete: %d files, %d rows\n", processed, len(rows))
}

// writeHeader creates the output CSV with its header row
func writeHeader(path, xSymbol, ySymbol string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"Date", strings.ToUpper(xSymbol), strings.ToUpper(ySymbol)}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush header: %w", err)
	}
	return nil
}

// listInputFiles returns the CSV and XLSX files under dir in date order.
// Files whose names carry a date at or before lastDate are skipped.
func listInputFiles(dir string, lastDate time.Time) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".csv" && ext != ".xlsx" {
			continue
		}
		if d, ok := fileDate(e.Name()); ok && !lastDate.IsZero() && !d.After(lastDate) {
			continue // already processed
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}

	sort.Strings(files)
	return files, nil
}

// fileDate parses the leading date of a dated filename
func fileDate(name string) (time.Time, bool) {
	m := datedFileRe.FindStringSubmatch(name)
	if m == nil {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", fmt.Sprintf("%s-%s-%s", m[1], m[2], m[3]))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// extractCloses merges the closing prices of both symbols from one input
// file into the accumulator
func extractCloses(path, xSymbol, ySymbol string, closes map[time.Time]closePair) error {
	var x, y dataset.Series
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		x, y, err = dataset.LoadLongCSV(path, xSymbol, ySymbol)
	case ".xlsx":
		x, y, err = loadLongXLSX(path, xSymbol, ySymbol)
	default:
		return fmt.Errorf("unsupported file type: %s", filepath.Base(path))
	}
	if err != nil {
		return err
	}

	for _, p := range x.Points {
		cp := closes[p.Date]
		cp.x, cp.hasX = p.Price, true
		closes[p.Date] = cp
	}
	for _, p := range y.Points {
		cp := closes[p.Date]
		cp.y, cp.hasY = p.Price, true
		closes[p.Date] = cp
	}
	return nil
}

// loadLongXLSX reads a daily XLSX export shaped like the long CSV format:
// a header row naming Date, Symbol, and a closing price column
func loadLongXLSX(path, xSymbol, ySymbol string) (dataset.Series, dataset.Series, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return dataset.Series{}, dataset.Series{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	x := dataset.Series{Symbol: strings.ToUpper(xSymbol)}
	y := dataset.Series{Symbol: strings.ToUpper(ySymbol)}

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) == 0 {
			continue
		}

		dateCol, symbolCol, closeCol := findLongColumns(rows[0])
		if dateCol < 0 {
			continue // not a data sheet
		}

		for _, row := range rows[1:] {
			maxCol := dateCol
			if symbolCol > maxCol {
				maxCol = symbolCol
			}
			if closeCol > maxCol {
				maxCol = closeCol
			}
			if len(row) <= maxCol {
				continue
			}

			symbol := strings.ToUpper(strings.TrimSpace(row[symbolCol]))
			if symbol != x.Symbol && symbol != y.Symbol {
				continue
			}
			date, err := time.Parse("2006-01-02", strings.TrimSpace(row[dateCol]))
			if err != nil {
				continue
			}
			price, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(row[closeCol]), ",", ""), 64)
			if err != nil {
				continue
			}

			point := dataset.PricePoint{Date: date, Price: price}
			if symbol == x.Symbol {
				x.Points = append(x.Points, point)
			} else {
				y.Points = append(y.Points, point)
			}
		}
	}

	if len(x.Points) == 0 && len(y.Points) == 0 {
		return x, y, fmt.Errorf("no rows for %s or %s in %s", x.Symbol, y.Symbol, filepath.Base(path))
	}
	return x, y, nil
}

// findLongColumns locates the Date, Symbol, and closing price columns in a
// header row, returning -1 for dateCol when the row is not a long header
func findLongColumns(header []string) (dateCol, symbolCol, closeCol int) {
	dateCol, symbolCol, closeCol = -1, -1, -1
	for i, cell := range header {
		switch strings.ToLower(strings.TrimSpace(cell)) {
		case "date":
			dateCol = i
		case "symbol", "ticker":
			symbolCol = i
		case "close", "closeprice", "close_price":
			closeCol = i
		}
	}
	if symbolCol < 0 || closeCol < 0 {
		dateCol = -1
	}
	return dateCol, symbolCol, closeCol
}

// pairRows turns the accumulated closes into sorted CSV records, keeping
// only dates where both symbols traded and that fall after lastDate
func pairRows(closes map[time.Time]closePair, lastDate time.Time) [][]string {
	dates := make([]time.Time, 0, len(closes))
	for d, cp := range closes {
		if !cp.hasX || !cp.hasY {
			continue
		}
		if !lastDate.IsZero() && !d.After(lastDate) {
			continue
		}
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	rows := make([][]string, 0, len(dates))
	for _, d := range dates {
		cp := closes[d]
		rows = append(rows, []string{
			d.Format("2006-01-02"),
			formatFloat(cp.x),
			formatFloat(cp.y),
		})
	}
	return rows
}

// appendRows appends records to the output CSV, flushing after each write
// so disk errors surface immediately
func appendRows(path string, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write record %s: %w", row[0], err)
		}
		writer.Flush()
		if err := writer.Error(); err != nil {
			return fmt.Errorf("flush record %s: %w", row[0], err)
		}
	}
	return nil
}

// loadLastDate reads the date of the last data row of an existing pair
// CSV without loading the whole file
func loadLastDate(csvPath string) (time.Time, error) {
	f, err := os.Open(csvPath)
	if err != nil {
		return time.Time{}, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return time.Time{}, err
	}
	size := stat.Size()
	if size == 0 {
		return time.Time{}, fmt.Errorf("empty CSV file")
	}

	// Read the last 1KB, enough for the final rows
	bufSize := int64(1024)
	if bufSize > size {
		bufSize = size
	}
	if _, err := f.Seek(size-bufSize, io.SeekStart); err != nil {
		return time.Time{}, err
	}
	buf := make([]byte, bufSize)
	n, err := f.Read(buf)
	if err != nil && err != io.EOF {
		return time.Time{}, err
	}

	lines := strings.Split(string(buf[:n]), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" || strings.HasPrefix(line, "Date") {
			continue
		}
		fields := strings.Split(line, ",")
		if len(fields) > 0 && fields[0] != "" {
			if t, err := time.Parse("2006-01-02", fields[0]); err == nil {
				return t, nil
			}
		}
	}

	return time.Time{}, fmt.Errorf("no valid data rows found")
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 4, 64)
}
