package cmsketch

import (
	"sync/atomic"
	"time"
)

// Attach operations reported to RecordAttach.
const (
	OpCreate = "create"
	OpOpen   = "open"
	OpLoad   = "load"
	OpCopy   = "copy"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems;
// PrometheusCollector is a ready-made adapter.
//
// Point operations (Get, Inc, Add, Set) are never reported.
type MetricsCollector interface {
	// RecordAttach is called after a sketch is created, opened, loaded or
	// copied. bytes is the region size, err is nil if successful.
	RecordAttach(op string, bytes int64, duration time.Duration, err error)

	// RecordSave is called after each Save.
	RecordSave(bytes int64, duration time.Duration, err error)

	// RecordMerge is called after each Merge.
	RecordMerge(duration time.Duration, err error)

	// RecordShrink is called after each Shrink.
	RecordShrink(duration time.Duration, err error)

	// RecordExport is called after each Export with the compressed size.
	RecordExport(bytes int64, duration time.Duration, err error)

	// RecordImport is called after each Import with the region size.
	RecordImport(bytes int64, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordAttach(string, int64, time.Duration, error) {}
func (NoopMetricsCollector) RecordSave(int64, time.Duration, error)           {}
func (NoopMetricsCollector) RecordMerge(time.Duration, error)                 {}
func (NoopMetricsCollector) RecordShrink(time.Duration, error)                {}
func (NoopMetricsCollector) RecordExport(int64, time.Duration, error)         {}
func (NoopMetricsCollector) RecordImport(int64, time.Duration, error)         {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	AttachCount     atomic.Int64
	AttachErrors    atomic.Int64
	AttachBytes     atomic.Int64
	SaveCount       atomic.Int64
	SaveErrors      atomic.Int64
	SaveBytes       atomic.Int64
	SaveTotalNanos  atomic.Int64
	MergeCount      atomic.Int64
	MergeErrors     atomic.Int64
	MergeTotalNanos atomic.Int64
	ShrinkCount     atomic.Int64
	ShrinkErrors    atomic.Int64
	ExportCount     atomic.Int64
	ExportErrors    atomic.Int64
	ExportBytes     atomic.Int64
	ImportCount     atomic.Int64
	ImportErrors    atomic.Int64
	ImportBytes     atomic.Int64
}

// RecordAttach implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAttach(_ string, bytes int64, _ time.Duration, err error) {
	b.AttachCount.Add(1)
	if err != nil {
		b.AttachErrors.Add(1)
		return
	}
	b.AttachBytes.Add(bytes)
}

// RecordSave implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSave(bytes int64, duration time.Duration, err error) {
	b.SaveCount.Add(1)
	b.SaveTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SaveErrors.Add(1)
		return
	}
	b.SaveBytes.Add(bytes)
}

// RecordMerge implements MetricsCollector.
func (b *BasicMetricsCollector) RecordMerge(duration time.Duration, err error) {
	b.MergeCount.Add(1)
	b.MergeTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.MergeErrors.Add(1)
	}
}

// RecordShrink implements MetricsCollector.
func (b *BasicMetricsCollector) RecordShrink(_ time.Duration, err error) {
	b.ShrinkCount.Add(1)
	if err != nil {
		b.ShrinkErrors.Add(1)
	}
}

// RecordExport implements MetricsCollector.
func (b *BasicMetricsCollector) RecordExport(bytes int64, _ time.Duration, err error) {
	b.ExportCount.Add(1)
	if err != nil {
		b.ExportErrors.Add(1)
		return
	}
	b.ExportBytes.Add(bytes)
}

// RecordImport implements MetricsCollector.
func (b *BasicMetricsCollector) RecordImport(bytes int64, _ time.Duration, err error) {
	b.ImportCount.Add(1)
	if err != nil {
		b.ImportErrors.Add(1)
		return
	}
	b.ImportBytes.Add(bytes)
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		AttachCount:   b.AttachCount.Load(),
		AttachErrors:  b.AttachErrors.Load(),
		AttachBytes:   b.AttachBytes.Load(),
		SaveCount:     b.SaveCount.Load(),
		SaveErrors:    b.SaveErrors.Load(),
		SaveBytes:     b.SaveBytes.Load(),
		SaveAvgNanos:  avg(b.SaveTotalNanos.Load(), b.SaveCount.Load()),
		MergeCount:    b.MergeCount.Load(),
		MergeErrors:   b.MergeErrors.Load(),
		MergeAvgNanos: avg(b.MergeTotalNanos.Load(), b.MergeCount.Load()),
		ShrinkCount:   b.ShrinkCount.Load(),
		ShrinkErrors:  b.ShrinkErrors.Load(),
		ExportCount:   b.ExportCount.Load(),
		ExportErrors:  b.ExportErrors.Load(),
		ExportBytes:   b.ExportBytes.Load(),
		ImportCount:   b.ImportCount.Load(),
		ImportErrors:  b.ImportErrors.Load(),
		ImportBytes:   b.ImportBytes.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	AttachCount   int64
	AttachErrors  int64
	AttachBytes   int64
	SaveCount     int64
	SaveErrors    int64
	SaveBytes     int64
	SaveAvgNanos  int64
	MergeCount    int64
	MergeErrors   int64
	MergeAvgNanos int64
	ShrinkCount   int64
	ShrinkErrors  int64
	ExportCount   int64
	ExportErrors  int64
	ExportBytes   int64
	ImportCount   int64
	ImportErrors  int64
	ImportBytes   int64
}
