package report

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteSummaryCSV(t *testing.T) {
	r := testReport(t)
	path := filepath.Join(t.TempDir(), "reports", "summary.csv")

	require.NoError(t, WriteSummaryCSV(path, r))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, []byte{0xEF, 0xBB, 0xBF}), "expected UTF-8 BOM")

	records, err := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(raw, []byte{0xEF, 0xBB, 0xBF}))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, r.Pair.Len()+1)

	assert.Equal(t, summaryHeader, records[0])

	first := records[1]
	assert.Equal(t, "2024-01-02", first[0])
	assert.Equal(t, "-1.000000", first[1])
	// Rolling window incomplete at the start, cell stays empty
	assert.Equal(t, "", first[9])

	last := records[len(records)-1]
	assert.Equal(t, "2024-01-11", last[0])
	assert.Equal(t, "0.910000", last[9])
}

func TestWriteSummaryCSVWithoutRollingBaseline(t *testing.T) {
	r := testReport(t)
	r.Rolling = nil
	path := filepath.Join(t.TempDir(), "summary.csv")

	require.NoError(t, WriteSummaryCSV(path, r))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	records, err := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(raw, []byte{0xEF, 0xBB, 0xBF}))).ReadAll()
	require.NoError(t, err)
	for _, rec := range records[1:] {
		assert.Equal(t, "", rec[9])
	}
}

func TestWriteSummaryCSVRejectsInvalidReport(t *testing.T) {
	r := testReport(t)
	r.Alpha.Mean = r.Alpha.Mean[:2]

	err := WriteSummaryCSV(filepath.Join(t.TempDir(), "summary.csv"), r)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid report")
}

func TestWriteCSVCreatesParentDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "c.csv")

	err := WriteCSV(path, WriteOptions{
		Headers: []string{"Date", "Value"},
		Records: [][]string{{"2024-01-02", "1.5"}},
	})
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.False(t, bytes.HasPrefix(raw, []byte{0xEF, 0xBB, 0xBF}))
	assert.Contains(t, string(raw), "Date,Value")
}
