// Package suballoc places aligned regions inside fixed-size memory blocks.
package suballoc

import (
	"fmt"
	"sort"
)

// Region is a range handed out by a Block.
type Region struct {
	Offset uint64
	Size   uint64
}

func (r *Region) String() string {
	return fmt.Sprintf("[%d %d]", r.Offset, r.Size)
}

// End is the first byte past the region.
func (r *Region) End() uint64 {
	return r.Offset + r.Size
}

// AlignUp rounds v up to the next multiple of align. An align of 0 or 1
// leaves v unchanged.
func AlignUp(v, align uint64) uint64 {
	if align <= 1 {
		return v
	}
	m := v % align
	if m == 0 {
		return v
	}
	return v - m + align
}

// Block tracks the live regions of one memory block, ordered by offset.
// Free space is whatever lies between them, so neighbouring holes merge as
// soon as the region separating them is freed.
//
// A linear block only ever places regions after the last live one. Freeing
// the last region gives its space back; space freed in the middle is
// reclaimed once everything after it is gone.
//
// Block is not safe for concurrent use.
type Block struct {
	size    uint64
	linear  bool
	regions []*Region
	used    uint64
}

func NewBlock(size uint64, linear bool) *Block {
	return &Block{size: size, linear: linear}
}

func (b *Block) Size() uint64 { return b.size }
func (b *Block) Used() uint64 { return b.used }
func (b *Block) Count() int   { return len(b.regions) }
func (b *Block) Empty() bool  { return len(b.regions) == 0 }
func (b *Block) Linear() bool { return b.linear }
func (b *Block) Free() uint64 { return b.size - b.used }

// Allocate returns the first region of size bytes starting at a multiple of
// align, or false when no hole is large enough.
func (b *Block) Allocate(size, align uint64) (*Region, bool) {
	if size == 0 || size > b.size {
		return nil, false
	}

	if b.linear {
		return b.insertAt(len(b.regions), size, align)
	}

	for i := 0; i <= len(b.regions); i++ {
		if r, ok := b.insertAt(i, size, align); ok {
			return r, true
		}
	}
	return nil, false
}

// insertAt tries to place a region in the hole before b.regions[i].
func (b *Block) insertAt(i int, size, align uint64) (*Region, bool) {
	var low uint64
	if i > 0 {
		low = b.regions[i-1].End()
	}
	high := b.size
	if i < len(b.regions) {
		high = b.regions[i].Offset
	}

	offset := AlignUp(low, align)
	if offset < low || offset > high || high-offset < size {
		return nil, false
	}

	r := &Region{Offset: offset, Size: size}
	b.regions = append(b.regions, nil)
	copy(b.regions[i+1:], b.regions[i:])
	b.regions[i] = r
	b.used += size
	return r, true
}

// Release returns r to the block. It reports false when r is not live in
// this block, which callers treat as a double free.
func (b *Block) Release(r *Region) bool {
	i := sort.Search(len(b.regions), func(i int) bool { return b.regions[i].Offset >= r.Offset })
	for ; i < len(b.regions) && b.regions[i].Offset == r.Offset; i++ {
		if b.regions[i] == r {
			b.regions = append(b.regions[:i], b.regions[i+1:]...)
			b.used -= r.Size
			return true
		}
	}
	return false
}

// Reset drops every region.
func (b *Block) Reset() {
	b.regions = nil
	b.used = 0
}

// LargestHole is the size of the biggest contiguous free range, ignoring
// alignment.
func (b *Block) LargestHole() uint64 {
	var largest, low uint64
	for _, r := range b.regions {
		if hole := r.Offset - low; hole > largest && !b.linear {
			largest = hole
		}
		low = r.End()
	}
	if tail := b.size - low; tail > largest {
		largest = tail
	}
	return largest
}

func (b *Block) String() string {
	return fmt.Sprintf("%v", b.regions)
}
