package cmsketch

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		out = append(out, rec)
	}
	return out
}

func TestLogger_Operations(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	path := filepath.Join(t.TempDir(), "log.cms")
	s := mustCreate(t, 1<<4, 255, WithPath(path), WithLogger(logger))
	require.NoError(t, s.Save(path+".bak"))
	_, err := s.Shrink(1<<5, 0, nil)
	require.Error(t, err)

	recs := decodeLines(t, &buf)
	require.Len(t, recs, 3)

	assert.Equal(t, "DEBUG", recs[0]["level"])
	assert.Equal(t, "sketch created", recs[0]["msg"])
	assert.Equal(t, path, recs[0]["path"])
	assert.EqualValues(t, 16, recs[0]["width"])
	assert.EqualValues(t, 255, recs[0]["max_value"])

	assert.Equal(t, "INFO", recs[1]["level"])
	assert.Equal(t, "sketch saved", recs[1]["msg"])
	assert.EqualValues(t, s.FileSize(), recs[1]["bytes"])
	assert.Equal(t, false, recs[1]["atomic"])

	assert.Equal(t, "ERROR", recs[2]["level"])
	assert.Equal(t, "shrink failed", recs[2]["msg"])
	assert.Contains(t, recs[2]["error"], "invalid argument")
}

func TestLogger_Open(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(slog.NewJSONHandler(&buf, nil))

	_, err := Open(filepath.Join(t.TempDir(), "missing.cms"), WithLogger(logger), WithFlags(FlagReadOnly))
	require.Error(t, err)

	recs := decodeLines(t, &buf)
	require.Len(t, recs, 1)
	assert.Equal(t, "open failed", recs[0]["msg"])
	assert.EqualValues(t, FlagReadOnly, recs[0]["flags"])
}

func TestNoopLogger(t *testing.T) {
	l := NoopLogger()
	assert.False(t, l.Enabled(t.Context(), slog.LevelError))

	s := mustCreate(t, 1<<4, 255, WithLogger(nil))
	assert.NotNil(t, s.opts.logger)
}
