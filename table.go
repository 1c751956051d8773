package cmsketch

import "github.com/hupe1980/cmsketch/internal/approx"

// addresses returns the table index of key's cell in each row.
func (s *Sketch) addresses(cells [Depth]uint64) [Depth]uint64 {
	for row := range cells {
		cells[row] += uint64(row) * s.header.Width
	}
	return cells
}

// decode returns the count a cell code stands for.
func (s *Sketch) decode(code uint64) uint64 {
	if s.header.Mode == ModeApprox {
		return approx.Decode(code)
	}
	return code
}

// encode returns the code to store for v, clamped to the max value.
// Approximate codes round at random and may consume the random stream.
func (s *Sketch) encode(v uint64) uint64 {
	if v >= s.header.MaxValue {
		return s.maxCode
	}
	if s.header.Mode == ModeApprox {
		return min(approx.Encode(v, s.rnd), s.maxCode)
	}
	return v
}

// cell returns the decoded value at table index addr.
func (s *Sketch) cell(addr uint64) uint64 {
	return s.decode(s.table.Get(addr))
}

func (s *Sketch) minCode(addr [Depth]uint64) uint64 {
	low := s.table.Get(addr[0])
	for _, a := range addr[1:] {
		low = min(low, s.table.Get(a))
	}
	return low
}

// Get returns the estimated count of key. It never underestimates the
// number of increments key received unless counts were lowered with Set,
// SetCell or Filter.
func (s *Sketch) Get(key []byte) uint64 {
	if s.mapping == nil {
		return 0
	}
	return s.decode(s.minCode(s.addresses(s.family.Cells(key))))
}

// GetString is Get for a string key.
func (s *Sketch) GetString(key string) uint64 {
	if s.mapping == nil {
		return 0
	}
	return s.decode(s.minCode(s.addresses(s.family.CellsString(key))))
}

// Inc adds one to the count of key and returns the new estimate.
func (s *Sketch) Inc(key []byte) uint64 {
	return s.Add(key, 1)
}

// IncString is Inc for a string key.
func (s *Sketch) IncString(key string) uint64 {
	return s.AddString(key, 1)
}

// Add adds delta to the count of key with conservative update and returns
// the new estimate, which saturates at MaxValue.
//
// Only cells below the new estimate are raised to it; cells already above
// are left alone. A read-only sketch is not modified.
func (s *Sketch) Add(key []byte, delta uint64) uint64 {
	if s.mapping == nil {
		return 0
	}
	return s.add(s.addresses(s.family.Cells(key)), delta)
}

// AddString is Add for a string key.
func (s *Sketch) AddString(key string, delta uint64) uint64 {
	if s.mapping == nil {
		return 0
	}
	return s.add(s.addresses(s.family.CellsString(key)), delta)
}

func (s *Sketch) add(addr [Depth]uint64, delta uint64) uint64 {
	low := s.minCode(addr)
	estimate := s.decode(low)
	if delta == 0 || !s.writable || estimate >= s.header.MaxValue {
		return estimate
	}

	target := s.header.MaxValue
	if delta < target-estimate {
		target = estimate + delta
	}
	code := s.encode(target)
	if code <= low {
		// Rounded down to where the count already is.
		return estimate
	}
	for _, a := range addr {
		if s.table.Get(a) < code {
			s.table.Set(a, code)
		}
	}
	return s.decode(code)
}

// Set overwrites the cells of key with value, clamped to MaxValue. Unlike
// Add it may lower cells shared with other keys. A read-only sketch is not
// modified.
func (s *Sketch) Set(key []byte, value uint64) {
	if s.mapping == nil {
		return
	}
	s.set(s.addresses(s.family.Cells(key)), value)
}

// SetString is Set for a string key.
func (s *Sketch) SetString(key string, value uint64) {
	if s.mapping == nil {
		return
	}
	s.set(s.addresses(s.family.CellsString(key)), value)
}

func (s *Sketch) set(addr [Depth]uint64, value uint64) {
	if !s.writable {
		return
	}
	code := s.encode(value)
	for _, a := range addr {
		s.table.Set(a, code)
	}
}
