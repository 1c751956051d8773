package cmsketch

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/cmsketch/metric"
	"github.com/hupe1980/cmsketch/persistence"
)

// Filter transforms a decoded cell value. Results above the max value of
// the target sketch are clamped.
type Filter func(value uint64) uint64

func (f Filter) apply(v uint64) uint64 {
	if f == nil {
		return v
	}
	return f(v)
}

// Clear zeroes every cell.
func (s *Sketch) Clear() error {
	if err := s.checkWritable(); err != nil {
		return err
	}
	s.table.Clear()
	return nil
}

// Filter replaces every cell with fn of its decoded value. fn sees each of
// the Depth*Width cells independently, not query results.
func (s *Sketch) Filter(fn Filter) error {
	if err := s.checkWritable(); err != nil {
		return err
	}
	if fn == nil {
		return nil
	}
	n := Depth * s.header.Width
	for addr := uint64(0); addr < n; addr++ {
		code := s.table.Get(addr)
		if next := s.encode(fn(s.decode(code))); next != code {
			s.table.Set(addr, next)
		}
	}
	return nil
}

// Swap exchanges the sketches s and other refer to, including their
// regions and options.
func (s *Sketch) Swap(other *Sketch) {
	if other == nil || other == s {
		return
	}
	*s, *other = *other, *s
}

// Copy returns a new sketch with the geometry and table of s. The copy lives
// in memory unless WithPath is given.
func (s *Sketch) Copy(optFns ...Option) (c *Sketch, err error) {
	if s.mapping == nil {
		return nil, ErrClosed
	}
	o := applyOptions(s.opts.inherit(), optFns...)
	start := time.Now()
	defer func() {
		o.metricsCollector.RecordAttach(OpCopy, int64(s.header.FileSize), time.Since(start), err)
		o.logger.LogCreate(context.Background(), o.path, s.header.Width, s.header.MaxValue, time.Since(start), err)
	}()

	if err := s.checkTarget(o); err != nil {
		return nil, err
	}
	c, err = create(s.header, o)
	if err != nil {
		return nil, err
	}
	copy(c.table.Bytes(), s.table.Bytes())
	state := make([]byte, len(persistence.StateSlot(c.mapping.Bytes())))
	if err := s.rnd.MarshalState(state); err == nil {
		_ = c.rnd.UnmarshalState(state)
	}
	return c, nil
}

// checkTarget rejects deriving a sketch into the file that backs s.
// Creating it would truncate the live mapping of s.
func (s *Sketch) checkTarget(o options) error {
	if o.path == "" || o.flags.Has(FlagAnonymous) || !s.backedBy(o.path) {
		return nil
	}
	return invalidArgument("target %s is the backing file of the source", o.path)
}

// Shrink returns a new sketch of the given width and max value holding the
// cells of s, each passed through fn when it is not nil. A zero width or
// maxValue keeps that of s.
//
// width must be a power of two no larger than s.Width() and maxValue must
// not exceed s.MaxValue(). The cells c, c+width, c+2*width, ... of a row
// fold into cell c by taking their maximum, so estimates of the result never
// fall below those of s.
func (s *Sketch) Shrink(width, maxValue uint64, fn Filter, optFns ...Option) (out *Sketch, err error) {
	if s.mapping == nil {
		return nil, ErrClosed
	}
	if width == 0 {
		width = s.header.Width
	}
	if maxValue == 0 {
		maxValue = s.header.MaxValue
	}
	o := applyOptions(s.opts.inherit(), optFns...)
	start := time.Now()
	defer func() {
		o.metricsCollector.RecordShrink(time.Since(start), err)
		o.logger.LogShrink(context.Background(), s.header.Width, width, err)
	}()

	switch {
	case width > s.header.Width:
		return nil, invalidArgument("width %d exceeds %d", width, s.header.Width)
	case maxValue > s.header.MaxValue:
		return nil, invalidArgument("max value %d exceeds %d", maxValue, s.header.MaxValue)
	}
	if err := s.checkTarget(o); err != nil {
		return nil, err
	}
	h, err := persistence.NewHeader(width, maxValue, s.header.Seed)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	out, err = create(h, o)
	if err != nil {
		return nil, err
	}

	fold := s.header.Width / width
	for row := uint64(0); row < Depth; row++ {
		src := row * s.header.Width
		dst := row * width
		for c := uint64(0); c < width; c++ {
			var v uint64
			for k := uint64(0); k < fold; k++ {
				v = max(v, fn.apply(s.cell(src+k*width+c)))
			}
			if v != 0 {
				out.table.Set(dst+c, out.encode(v))
			}
		}
	}
	return out, nil
}

// Merge adds rhs into s cell by cell, so that s estimates the union of both
// key streams. lhsFilter and rhsFilter, when not nil, transform the decoded
// cells of s and rhs before they are summed. Sums saturate at MaxValue.
//
// Both sketches must share width, seed and value size; otherwise Merge
// fails with a GeometryMismatchError and neither is modified.
func (s *Sketch) Merge(rhs *Sketch, lhsFilter, rhsFilter Filter) (err error) {
	if s.mapping == nil {
		return ErrClosed
	}
	start := time.Now()
	defer func() {
		s.opts.metricsCollector.RecordMerge(time.Since(start), err)
		s.opts.logger.LogMerge(context.Background(), s.header.Width, time.Since(start), err)
	}()

	if err := s.checkWritable(); err != nil {
		return err
	}
	if rhs == nil || rhs.mapping == nil {
		return ErrClosed
	}
	if err := checkGeometry(s, rhs); err != nil {
		return err
	}

	limit := s.header.MaxValue
	n := Depth * s.header.Width
	for addr := uint64(0); addr < n; addr++ {
		l := lhsFilter.apply(s.cell(addr))
		r := rhsFilter.apply(rhs.cell(addr))
		sum := limit
		if l < limit && r < limit-l {
			sum = l + r
		}
		s.table.Set(addr, s.encode(sum))
	}
	return nil
}

// InnerProduct estimates the inner products of two sketches with the same
// geometry, averaged over rows.
type InnerProduct struct {
	// Value estimates the sum over keys of lhs(key)*rhs(key).
	Value float64
	// LHSSquaredLength estimates the sum over keys of lhs(key)^2.
	LHSSquaredLength float64
	// RHSSquaredLength estimates the sum over keys of rhs(key)^2.
	RHSSquaredLength float64
}

// InnerProduct estimates the inner product of the key counts of s and rhs
// without enumerating keys. Rows are scanned in parallel, bounded by the
// parallelism of the resource controller.
func (s *Sketch) InnerProduct(rhs *Sketch) (InnerProduct, error) {
	if s.mapping == nil || rhs == nil || rhs.mapping == nil {
		return InnerProduct{}, ErrClosed
	}
	if err := checkGeometry(s, rhs); err != nil {
		return InnerProduct{}, err
	}

	var rows [Depth]InnerProduct
	g := new(errgroup.Group)
	g.SetLimit(s.opts.resources.Parallelism())
	for row := range rows {
		g.Go(func() error {
			base := uint64(row) * s.header.Width
			var ip InnerProduct
			for c := uint64(0); c < s.header.Width; c++ {
				l := float64(s.cell(base + c))
				r := float64(rhs.cell(base + c))
				ip.Value += l * r
				ip.LHSSquaredLength += l * l
				ip.RHSSquaredLength += r * r
			}
			rows[row] = ip
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return InnerProduct{}, err
	}

	var out InnerProduct
	for _, ip := range rows {
		out.Value += ip.Value
		out.LHSSquaredLength += ip.LHSSquaredLength
		out.RHSSquaredLength += ip.RHSSquaredLength
	}
	out.Value /= Depth
	out.LHSSquaredLength /= Depth
	out.RHSSquaredLength /= Depth
	return out, nil
}

// Cosine estimates the cosine similarity of the key counts of s and rhs.
// It is 0 when either sketch is empty.
func (s *Sketch) Cosine(rhs *Sketch) (float64, error) {
	ip, err := s.InnerProduct(rhs)
	if err != nil {
		return 0, err
	}
	return metric.Cosine(ip.Value, ip.LHSSquaredLength, ip.RHSSquaredLength), nil
}

// GetCell returns the decoded value of one cell, bypassing hashing.
func (s *Sketch) GetCell(row, cell uint64) (uint64, error) {
	if s.mapping == nil {
		return 0, ErrClosed
	}
	addr, err := s.address(row, cell)
	if err != nil {
		return 0, err
	}
	return s.cell(addr), nil
}

// SetCell stores value, clamped to MaxValue, into one cell.
func (s *Sketch) SetCell(row, cell, value uint64) error {
	if err := s.checkWritable(); err != nil {
		return err
	}
	addr, err := s.address(row, cell)
	if err != nil {
		return err
	}
	s.table.Set(addr, s.encode(value))
	return nil
}

func (s *Sketch) address(row, cell uint64) (uint64, error) {
	if row >= Depth || cell >= s.header.Width {
		return 0, fmt.Errorf("%w: row %d cell %d, table is %dx%d", ErrOutOfRange, row, cell, Depth, s.header.Width)
	}
	return row*s.header.Width + cell, nil
}
