package testutil

import (
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferedSlogHandlerCapture(t *testing.T) {
	logger, handler := NewTestLogger(nil)

	logger.Info("loading data", slog.String("path", "pair.csv"))
	logger.Warn("skipped rows", slog.Int("count", 3))
	logger.Debug("chain finished")

	records := handler.Records()
	require.Len(t, records, 3)
	assert.Equal(t, "loading data", records[0].Message)

	assert.True(t, handler.ContainsMessage("skipped"))
	assert.False(t, handler.ContainsMessage("missing"))
	assert.True(t, handler.ContainsAttr("count", int64(3)))
	assert.False(t, handler.ContainsAttr("count", int64(4)))

	warns := handler.GetRecordsByLevel(slog.LevelWarn)
	require.Len(t, warns, 1)
	assert.Equal(t, int64(3), warns[0].Attrs["count"])
}

func TestBufferedSlogHandlerCapturesAllLevels(t *testing.T) {
	logger, handler := NewTestLogger(nil)

	logger.Debug("d")
	logger.Info("i")
	logger.Warn("w")
	logger.Error("e")

	assert.Len(t, handler.Records(), 4)
}

func TestBufferedSlogHandlerSharedAcrossDerivedLoggers(t *testing.T) {
	logger, handler := NewTestLogger(nil)

	logger.With("run_id", "abc").Info("derived")
	logger.WithGroup("g").Info("grouped")

	assert.True(t, handler.ContainsMessage("derived"))
	assert.True(t, handler.ContainsMessage("grouped"))
}

func TestBufferedSlogHandlerClear(t *testing.T) {
	logger, handler := NewTestLogger(nil)

	logger.Info("one")
	require.Len(t, handler.Records(), 1)

	handler.Clear()
	assert.Empty(t, handler.Records())
}

func TestBufferedSlogHandlerConcurrentUse(t *testing.T) {
	logger, handler := NewTestLogger(nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				logger.Info("concurrent write")
			}
		}()
	}
	wg.Wait()

	assert.Len(t, handler.Records(), 200)
}
