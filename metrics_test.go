package cmsketch

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/cmsketch/blobstore"
)

// exercise runs every reported operation once, plus one failing merge and
// one failing create.
func exercise(t *testing.T, col MetricsCollector) *Sketch {
	t.Helper()
	ctx := context.Background()

	a := mustCreate(t, 1<<6, 255, WithMetricsCollector(col))
	a.AddString("k", 5)

	_, err := Create(3, 255, WithMetricsCollector(col))
	require.Error(t, err)

	other := mustCreate(t, 1<<7, 255)
	require.Error(t, a.Merge(other, nil, nil))

	c, err := a.Copy()
	require.NoError(t, err)
	require.NoError(t, c.Merge(a, nil, nil))
	require.NoError(t, c.Close())

	r, err := a.Shrink(1<<5, 0, nil)
	require.NoError(t, err)
	require.NoError(t, r.Close())

	path := filepath.Join(t.TempDir(), "m.cms")
	require.NoError(t, a.Save(path))
	l, err := Load(path, WithMetricsCollector(col))
	require.NoError(t, err)
	require.NoError(t, l.Close())

	store := blobstore.NewMemoryStore()
	require.NoError(t, a.Export(ctx, store, "m"))
	i, err := Import(ctx, store, "m", WithMetricsCollector(col))
	require.NoError(t, err)
	require.NoError(t, i.Close())
	return a
}

func TestBasicMetricsCollector(t *testing.T) {
	col := &BasicMetricsCollector{}
	a := exercise(t, col)
	size := int64(a.FileSize())

	st := col.GetStats()
	assert.Equal(t, int64(4), st.AttachCount)
	assert.Equal(t, int64(1), st.AttachErrors)
	assert.Equal(t, 3*size, st.AttachBytes)
	assert.Equal(t, int64(1), st.SaveCount)
	assert.Zero(t, st.SaveErrors)
	assert.Equal(t, size, st.SaveBytes)
	assert.Equal(t, int64(2), st.MergeCount)
	assert.Equal(t, int64(1), st.MergeErrors)
	assert.Equal(t, int64(1), st.ShrinkCount)
	assert.Equal(t, int64(1), st.ExportCount)
	assert.Positive(t, st.ExportBytes)
	assert.Equal(t, int64(1), st.ImportCount)
	assert.Equal(t, size, st.ImportBytes)
}

func TestBasicMetricsCollector_Averages(t *testing.T) {
	col := &BasicMetricsCollector{}
	assert.Zero(t, col.GetStats().SaveAvgNanos)

	col.RecordSave(10, 2*time.Millisecond, nil)
	col.RecordSave(10, 4*time.Millisecond, assert.AnError)
	col.RecordMerge(time.Second, nil)

	st := col.GetStats()
	assert.Equal(t, (3 * time.Millisecond).Nanoseconds(), st.SaveAvgNanos)
	assert.Equal(t, int64(10), st.SaveBytes)
	assert.Equal(t, int64(1), st.SaveErrors)
	assert.Equal(t, time.Second.Nanoseconds(), st.MergeAvgNanos)
}

func TestPrometheusCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	col := NewPrometheusCollector(reg)
	a := exercise(t, col)
	size := float64(a.FileSize())

	ops := col.OperationsTotal
	assert.Equal(t, 1.0, promtestutil.ToFloat64(ops.WithLabelValues(OpCreate, "ok")))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(ops.WithLabelValues(OpCreate, "error")))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(ops.WithLabelValues(OpCopy, "ok")))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(ops.WithLabelValues(OpLoad, "ok")))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(ops.WithLabelValues("merge", "ok")))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(ops.WithLabelValues("merge", "error")))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(ops.WithLabelValues("shrink", "ok")))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(ops.WithLabelValues("save", "ok")))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(ops.WithLabelValues("export", "ok")))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(ops.WithLabelValues("import", "ok")))

	assert.Equal(t, size, promtestutil.ToFloat64(col.BytesTotal.WithLabelValues("save")))
	assert.Equal(t, size, promtestutil.ToFloat64(col.BytesTotal.WithLabelValues("import")))
	assert.Equal(t, 8, promtestutil.CollectAndCount(col.OperationDuration, "cmsketch_operation_duration_seconds"))

	// Registering twice on the same registry panics.
	assert.Panics(t, func() { NewPrometheusCollector(reg) })
}
