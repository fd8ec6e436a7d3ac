// ABOUTME: Reference bitmaps describing which object words are references
// ABOUTME: Layouts repeat across array elements, as in a precise collector

package graph

import "math/bits"

// Layout is a bitstring with one bit per word; a set bit marks a reference
// word. The bitstring repeats for objects longer than Len words, so an
// array of references is a one-bit layout.
type Layout struct {
	Len  int    // Number of words described by Bits
	Bits []byte // Little-endian bitstring, ceil(Len/8) bytes
}

// NewLayout builds a layout of n words with the given reference offsets
func NewLayout(n int, refs ...int) Layout {
	l := Layout{Len: n, Bits: make([]byte, (n+7)/8)}
	for _, off := range refs {
		if off < 0 || off >= n {
			continue
		}
		l.Bits[off/8] |= 1 << (off % 8)
	}
	return l
}

// IsRef reports whether word i of an object with this layout holds a reference
func (l Layout) IsRef(i int) bool {
	if l.Len == 0 {
		return false
	}
	bit := i % l.Len
	return l.Bits[bit/8]&(1<<(bit%8)) != 0
}

// PointerFree reports whether no word of the layout is a reference
func (l Layout) PointerFree() bool {
	for _, b := range l.Bits {
		if b != 0 {
			return false
		}
	}
	return true
}

// SameShape reports whether l and o mark the same words of every object as
// references. Layouts of different lengths can agree: a one-word reference
// layout has the shape of a two-word layout with both words set.
func (l Layout) SameShape(o Layout) bool {
	if l.PointerFree() || o.PointerFree() {
		return l.PointerFree() && o.PointerFree()
	}
	n := l.Len / gcd(l.Len, o.Len) * o.Len
	for i := 0; i < n; i++ {
		if l.IsRef(i) != o.IsRef(i) {
			return false
		}
	}
	return true
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// ForEachRef calls fn for every non-nil reference word in words.
// Trailing words that do not fill a whole element are still scanned,
// since the layout is indexed modulo its length.
func (l Layout) ForEachRef(words []uint64, fn func(i int, ref ObjID)) {
	if l.Len == 0 {
		return
	}
	for start := 0; start < len(words); start += l.Len {
		for i, mask := range l.Bits {
			for mask != 0 {
				bit := bits.TrailingZeros8(mask)
				idx := start + i*8 + bit
				if i*8+bit >= l.Len || idx >= len(words) {
					break
				}
				if ref := ObjID(words[idx]); ref != Nil {
					fn(idx, ref)
				}
				mask &= mask - 1
			}
		}
	}
}
