package pagemap

import "github.com/RoaringBitmap/roaring"

// Map is an ordered set of block numbers, plus the "absent" flag the
// backup core uses to distinguish "no pagemap was built, copy
// everything" from "a pagemap was built and it is empty".
type Map struct {
	bitmap *roaring.Bitmap
	absent bool
}

// Absent returns a Map that means "back up every block": no pagemap was
// available or applicable for this file.
func Absent() *Map {
	return &Map{absent: true}
}

// Empty returns a usable, empty Map: a pagemap was built and it found no
// changed blocks.
func Empty() *Map {
	return &Map{bitmap: roaring.New()}
}

// FromBlocks builds a Map containing exactly the given block numbers.
func FromBlocks(blocks ...uint32) *Map {
	m := &Map{bitmap: roaring.New()}
	for _, b := range blocks {
		m.bitmap.Add(b)
	}
	return m
}

// IsAbsent reports whether this Map carries no bitmap at all.
func (m *Map) IsAbsent() bool {
	return m == nil || m.absent
}

// IsEmpty reports whether this Map is present but contains no blocks.
func (m *Map) IsEmpty() bool {
	return !m.IsAbsent() && m.bitmap.IsEmpty()
}

// Set marks block as changed.
func (m *Map) Set(block uint32) {
	if m.absent {
		return
	}
	if m.bitmap == nil {
		m.bitmap = roaring.New()
	}
	m.bitmap.Add(block)
}

// Len returns the number of blocks recorded, or 0 for an absent map.
func (m *Map) Len() uint64 {
	if m.IsAbsent() {
		return 0
	}
	return m.bitmap.GetCardinality()
}

// Iterator returns the recorded block numbers in ascending order. Calling
// it on an absent map returns a closed iterator that yields nothing; the
// caller is expected to check IsAbsent first and fall back to a full
// 0..nBlocks scan instead.
func (m *Map) Iterator() *roaring.Iterator {
	if m.IsAbsent() || m.bitmap == nil {
		return roaring.New().Iterator()
	}
	return m.bitmap.Iterator()
}

// Usable reports whether this pagemap should actually be used to restrict
// which blocks are copied, per the rule in the backup writer: present,
// non-empty, and the file existed in the parent backup.
func (m *Map) Usable(existsInPrev bool) bool {
	return existsInPrev && !m.IsAbsent() && !m.IsEmpty()
}
