package main

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestFileDate(t *testing.T) {
	tests := []struct {
		name string
		file string
		want time.Time
		ok   bool
	}{
		{"dashed csv", "2025-06-24.csv", date(2025, 6, 24), true},
		{"spaced xlsx", "2025 06 24 Daily Report.xlsx", date(2025, 6, 24), true},
		{"no date", "combined.csv", time.Time{}, false},
		{"impossible date", "2025-13-45.csv", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := fileDate(tt.file)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestListInputFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"2025-06-23.csv",
		"2025-06-24.csv",
		"2025 06 25 Daily Report.xlsx",
		"notes.txt",
		"combined.csv",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0755))

	t.Run("initial picks all data files", func(t *testing.T) {
		files, err := listInputFiles(dir, time.Time{})
		require.NoError(t, err)
		require.Len(t, files, 4)
		assert.Equal(t, "2025 06 25 Daily Report.xlsx", filepath.Base(files[0]))
	})

	t.Run("accumulative skips dated files at or before last date", func(t *testing.T) {
		files, err := listInputFiles(dir, date(2025, 6, 24))
		require.NoError(t, err)
		names := make([]string, len(files))
		for i, f := range files {
			names[i] = filepath.Base(f)
		}
		// Undated files always re-scan; their rows are filtered later
		assert.ElementsMatch(t, []string{"2025 06 25 Daily Report.xlsx", "combined.csv"}, names)
	})
}

func TestFindLongColumns(t *testing.T) {
	d, s, c := findLongColumns([]string{"Date", "Symbol", "Open", "High", "Low", "Close"})
	assert.Equal(t, 0, d)
	assert.Equal(t, 1, s)
	assert.Equal(t, 5, c)

	d, s, c = findLongColumns([]string{"date", "ticker", "closeprice"})
	assert.Equal(t, 0, d)
	assert.Equal(t, 1, s)
	assert.Equal(t, 2, c)

	d, _, _ = findLongColumns([]string{"Date", "ISX60", "ISX15"})
	assert.Equal(t, -1, d, "wide header is not a long layout")
}

func writeLongCSV(t *testing.T, path string, rows [][3]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	fmt.Fprintln(f, "Date,Symbol,Open,High,Low,Close")
	for _, r := range rows {
		fmt.Fprintf(f, "%s,%s,0,0,0,%s\n", r[0], r[1], r[2])
	}
}

func TestExtractClosesFromCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "2025-06-24.csv")
	writeLongCSV(t, path, [][3]string{
		{"2025-06-24", "GFI", "12.50"},
		{"2025-06-24", "GLD", "171.30"},
		{"2025-06-24", "AAPL", "200.00"},
	})

	closes := make(map[time.Time]closePair)
	require.NoError(t, extractCloses(path, "GFI", "GLD", closes))

	cp, ok := closes[date(2025, 6, 24)]
	require.True(t, ok)
	assert.True(t, cp.hasX)
	assert.True(t, cp.hasY)
	assert.InDelta(t, 12.50, cp.x, 1e-9)
	assert.InDelta(t, 171.30, cp.y, 1e-9)
}

func TestLoadLongXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "2025 06 24 Daily Report.xlsx")

	f := excelize.NewFile()
	rows := [][]interface{}{
		{"Date", "Symbol", "Open", "High", "Low", "Close"},
		{"2025-06-24", "GFI", 12.1, 12.6, 12.0, 12.5},
		{"2025-06-24", "GLD", 170.0, 171.5, 169.8, 171.3},
		{"2025-06-24", "AAPL", 199.0, 201.0, 198.5, 200.0},
	}
	for i, row := range rows {
		for j, v := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue("Sheet1", cell, v))
		}
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	x, y, err := loadLongXLSX(path, "gfi", "gld")
	require.NoError(t, err)
	require.Len(t, x.Points, 1)
	require.Len(t, y.Points, 1)
	assert.InDelta(t, 12.5, x.Points[0].Price, 1e-9)
	assert.InDelta(t, 171.3, y.Points[0].Price, 1e-9)
	assert.Equal(t, date(2025, 6, 24), x.Points[0].Date)
}

func TestLoadLongXLSXWithoutMatchingRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.xlsx")

	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "Date"))
	require.NoError(t, f.SetCellValue("Sheet1", "B1", "Symbol"))
	require.NoError(t, f.SetCellValue("Sheet1", "C1", "Close"))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	_, _, err := loadLongXLSX(path, "GFI", "GLD")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no rows")
}

func TestPairRows(t *testing.T) {
	closes := map[time.Time]closePair{
		date(2025, 6, 23): {x: 12.4, y: 170.9, hasX: true, hasY: true},
		date(2025, 6, 24): {x: 12.5, y: 171.3, hasX: true, hasY: true},
		date(2025, 6, 25): {x: 12.6, hasX: true}, // Y halted, row dropped
	}

	t.Run("initial keeps all complete dates sorted", func(t *testing.T) {
		rows := pairRows(closes, time.Time{})
		require.Len(t, rows, 2)
		assert.Equal(t, []string{"2025-06-23", "12.4000", "170.9000"}, rows[0])
		assert.Equal(t, []string{"2025-06-24", "12.5000", "171.3000"}, rows[1])
	})

	t.Run("accumulative drops rows at or before last date", func(t *testing.T) {
		rows := pairRows(closes, date(2025, 6, 23))
		require.Len(t, rows, 1)
		assert.Equal(t, "2025-06-24", rows[0][0])
	})
}

func TestLoadLastDate(t *testing.T) {
	t.Run("reads the final data row", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "pair.csv")
		content := "Date,GFI,GLD\n2025-06-23,12.4,170.9\n2025-06-24,12.5,171.3\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		got, err := loadLastDate(path)
		require.NoError(t, err)
		assert.Equal(t, date(2025, 6, 24), got)
	})

	t.Run("header-only file errors", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "pair.csv")
		require.NoError(t, os.WriteFile(path, []byte("Date,GFI,GLD\n"), 0644))

		_, err := loadLastDate(path)
		require.Error(t, err)
	})

	t.Run("missing file errors", func(t *testing.T) {
		_, err := loadLastDate(filepath.Join(t.TempDir(), "missing.csv"))
		require.Error(t, err)
	})
}

func TestWriteHeader(t *testing.T) {
	t.Run("writes the uppercased header row", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "pair.csv")
		require.NoError(t, writeHeader(path, "gfi", "gld"))

		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "Date,GFI,GLD\n", string(raw))
	})

	t.Run("surfaces create errors", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing", "pair.csv")

		err := writeHeader(path, "GFI", "GLD")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "create output file")
	})
}

func TestAppendRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pair.csv")
	require.NoError(t, os.WriteFile(path, []byte("Date,GFI,GLD\n"), 0644))

	rows := [][]string{
		{"2025-06-23", "12.4000", "170.9000"},
		{"2025-06-24", "12.5000", "171.3000"},
	}
	require.NoError(t, appendRows(path, rows))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Date,GFI,GLD\n2025-06-23,12.4000,170.9000\n2025-06-24,12.5000,171.3000\n", string(raw))

	// Appending nothing leaves the file untouched
	require.NoError(t, appendRows(path, nil))
	raw2, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, raw, raw2)
}
