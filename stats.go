package cmsketch

import (
	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"golang.org/x/sync/errgroup"
)

// Stats describes the geometry and fill of a sketch.
type Stats struct {
	Width     uint64
	MaxValue  uint64
	ValueSize uint32
	Mode      Mode
	Seed      uint64
	FileSize  uint64
	Flags     Flags

	// NonZero counts the occupied cells of each row.
	NonZero [Depth]uint64
	// FillRatio is the mean fraction of occupied cells per row. Estimates
	// degrade quickly once it approaches 1.
	FillRatio float64
	// MaxCell is the largest decoded cell value.
	MaxCell uint64
}

// Occupancy returns the set of non-zero cells of row.
func (s *Sketch) Occupancy(row uint64) (*roaring64.Bitmap, error) {
	if s.mapping == nil {
		return nil, ErrClosed
	}
	if _, err := s.address(row, 0); err != nil {
		return nil, err
	}
	bm, _ := s.occupancy(row)
	return bm, nil
}

// occupancy scans row once and returns its non-zero cells and the largest
// decoded value in it.
func (s *Sketch) occupancy(row uint64) (*roaring64.Bitmap, uint64) {
	bm := roaring64.New()
	base := row * s.header.Width
	var peak uint64
	for c := uint64(0); c < s.header.Width; c++ {
		code := s.table.Get(base + c)
		if code == 0 {
			continue
		}
		bm.Add(c)
		peak = max(peak, code)
	}
	bm.RunOptimize()
	return bm, s.decode(peak)
}

// Stats scans the table and reports its fill. Rows are scanned in parallel.
func (s *Sketch) Stats() (Stats, error) {
	if s.mapping == nil {
		return Stats{}, ErrClosed
	}
	st := Stats{
		Width:     s.header.Width,
		MaxValue:  s.header.MaxValue,
		ValueSize: s.header.ValueSize,
		Mode:      s.header.Mode,
		Seed:      s.header.Seed,
		FileSize:  s.header.FileSize,
		Flags:     s.flags,
	}

	var peaks [Depth]uint64
	g := new(errgroup.Group)
	g.SetLimit(s.opts.resources.Parallelism())
	for row := range st.NonZero {
		g.Go(func() error {
			bm, peak := s.occupancy(uint64(row))
			st.NonZero[row] = bm.GetCardinality()
			peaks[row] = peak
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Stats{}, err
	}

	var occupied uint64
	for row, n := range st.NonZero {
		occupied += n
		st.MaxCell = max(st.MaxCell, peaks[row])
	}
	st.FillRatio = float64(occupied) / float64(Depth*s.header.Width)
	return st, nil
}
