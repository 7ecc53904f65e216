// Package rom turns an emitted byte stream into a final console image:
// platform header bytes, fixed padding, and checksums. It is the
// generalization of the teacher's loader package (which only ever read an
// already-built ELF/raw image back in) run in reverse: these builders are
// writers, one per target console, sharing a single input shape so the CLI
// driver can pick a builder purely from the selected architecture target.
package rom

// Segment is one contiguous, address-tagged run of emitted bytes — the
// common input every builder in this package consumes. It deliberately
// mirrors analyzer.Chunk without importing internal/analyzer, so that the
// ROM builders stay ignorant of the assembler's symbol table, diagnostics,
// and pass machinery; the CLI driver converts analyzer.Chunk to Segment at
// the boundary.
type Segment struct {
	Address int64
	Data    []byte
}

// span returns the lowest address and one-past-the-highest address touched
// by segs. ok is false for an empty segment list.
func span(segs []Segment) (lo, hi int64, ok bool) {
	for i, s := range segs {
		if len(s.Data) == 0 {
			continue
		}
		end := s.Address + int64(len(s.Data))
		if !ok {
			lo, hi, ok = s.Address, end, true
			continue
		}
		if s.Address < lo {
			lo = s.Address
		}
		if end > hi {
			hi = end
		}
		_ = i
	}
	return lo, hi, ok
}

// flatten lays segs out into a single buffer of exactly size bytes,
// addressed so that buffer offset 0 corresponds to address base, filling
// any untouched byte with pad. Data falling outside [base, base+size) is
// silently clipped, since callers compute size to already cover every
// segment they pass in.
func flatten(segs []Segment, base int64, size int, pad byte) []byte {
	img := make([]byte, size)
	if pad != 0 {
		for i := range img {
			img[i] = pad
		}
	}
	for _, s := range segs {
		off := s.Address - base
		for i, b := range s.Data {
			idx := off + int64(i)
			if idx >= 0 && idx < int64(size) {
				img[idx] = b
			}
		}
	}
	return img
}

// roundUp rounds n up to the next multiple of unit (unit must be > 0).
func roundUp(n, unit int) int {
	if n <= 0 {
		return unit
	}
	if r := n % unit; r != 0 {
		n += unit - r
	}
	return n
}
