/*
Copyright 2026 The Vitess Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package bitset implements immutable sets of column ordinals, used for
// group keys, referenced input fields and unique keys.
package bitset

import (
	"math/bits"
	"strconv"
	"strings"
	"unsafe"
)

// A Bitset is an immutable collection of bits. All mutating operations
// return a new Bitset. It is safe to compare directly using the comparison
// operator and to use as a map key.
type Bitset string

const bitsetWidth = 8

func wordSize(max int) int {
	return max/bitsetWidth + 1
}

// toBitset converts a slice of bytes into a Bitset without copying. The
// slice must not be written to afterwards and must not end in a zero byte.
func toBitset(words []byte) Bitset {
	if len(words) == 0 {
		return ""
	}
	if words[len(words)-1] == 0 {
		panic("toBitset: did not truncate")
	}
	return *(*Bitset)(unsafe.Pointer(&words))
}

func truncate(words []byte) Bitset {
	m := len(words)
	for ; m > 0; m-- {
		if words[m-1] != 0 {
			break
		}
	}
	return toBitset(words[:m])
}

// Overlaps returns whether this Bitset and the input have any bits in common
func (bs Bitset) Overlaps(b2 Bitset) bool {
	for i := range min(len(bs), len(b2)) {
		if bs[i]&b2[i] != 0 {
			return true
		}
	}
	return false
}

// Or returns the logical OR of the two Bitsets as a new Bitset
func (bs Bitset) Or(b2 Bitset) Bitset {
	if len(bs) == 0 {
		return b2
	}
	if len(b2) == 0 {
		return bs
	}

	small, large := bs, b2
	if len(small) > len(large) {
		small, large = large, small
	}

	merged := make([]byte, len(large))
	copy(merged, large)
	for m := range len(small) {
		merged[m] |= small[m]
	}
	return toBitset(merged)
}

// AndNot returns the logical AND NOT of the two Bitsets as a new Bitset
func (bs Bitset) AndNot(b2 Bitset) Bitset {
	if len(b2) == 0 {
		return bs
	}

	merged := make([]byte, len(bs))
	for m := range len(bs) {
		if m < len(b2) {
			merged[m] = bs[m] & ^b2[m]
		} else {
			merged[m] = bs[m]
		}
	}
	return truncate(merged)
}

// And returns the logical AND of the two bitsets as a new Bitset
func (bs Bitset) And(b2 Bitset) Bitset {
	if len(bs) == 0 || len(b2) == 0 {
		return ""
	}

	merged := make([]byte, min(len(bs), len(b2)))
	for m := range merged {
		merged[m] = bs[m] & b2[m]
	}
	return truncate(merged)
}

// Set returns a copy of this Bitset where the bit at `offset` is set
func (bs Bitset) Set(offset int) Bitset {
	alloc := max(len(bs), wordSize(offset))
	words := make([]byte, alloc)
	copy(words, bs)
	words[offset/bitsetWidth] |= 1 << (offset % bitsetWidth)
	return toBitset(words)
}

// Clear returns a copy of this Bitset where the bit at `offset` is unset
func (bs Bitset) Clear(offset int) Bitset {
	if !bs.Contains(offset) {
		return bs
	}
	words := []byte(bs)
	words[offset/bitsetWidth] &^= 1 << (offset % bitsetWidth)
	return truncate(words)
}

// Contains returns whether the bit at offset is set.
func (bs Bitset) Contains(offset int) bool {
	if offset < 0 || offset/bitsetWidth >= len(bs) {
		return false
	}
	return bs[offset/bitsetWidth]&(1<<(offset%bitsetWidth)) != 0
}

// IsEmpty returns true if no bit is set.
func (bs Bitset) IsEmpty() bool {
	return len(bs) == 0
}

// SingleBit returns the position of the single bit that is set in this Bitset
// If the Bitset is empty, or contains more than one set bit, it returns -1
func (bs Bitset) SingleBit() int {
	offset := -1
	for i := range len(bs) {
		t := bs[i]
		if t == 0 {
			continue
		}
		if offset >= 0 || bits.OnesCount8(t) != 1 {
			return -1
		}
		offset = i*bitsetWidth + bits.TrailingZeros8(t)
	}
	return offset
}

// IsContainedBy returns whether this Bitset is contained by the given Bitset
func (bs Bitset) IsContainedBy(b2 Bitset) bool {
	if len(bs) > len(b2) {
		return false
	}
	for i := range len(bs) {
		if bs[i]&b2[i] != bs[i] {
			return false
		}
	}
	return true
}

// Popcount returns the number of bits that are set in this Bitset
func (bs Bitset) Popcount() (count int) {
	for i := range len(bs) {
		count += bits.OnesCount8(bs[i])
	}
	return
}

// Max returns the highest set bit, or -1 for the empty set.
func (bs Bitset) Max() int {
	if len(bs) == 0 {
		return -1
	}
	last := bs[len(bs)-1]
	return (len(bs)-1)*bitsetWidth + 7 - bits.LeadingZeros8(last)
}

// ForEach calls the given callback with the position of each bit set in
// this Bitset, in ascending order.
func (bs Bitset) ForEach(yield func(int)) {
	// From Lemire, "Iterating over set bits quickly"
	for i := range len(bs) {
		word := bs[i]
		for word != 0 {
			t := word & -word
			r := bits.TrailingZeros8(word)
			yield(i*bitsetWidth + r)
			word ^= t
		}
	}
}

// Ordinals returns the set bits in ascending order.
func (bs Bitset) Ordinals() []int {
	out := make([]int, 0, bs.Popcount())
	bs.ForEach(func(i int) { out = append(out, i) })
	return out
}

// Shift returns a Bitset with every bit moved by offset. Bits that would
// become negative are dropped.
func (bs Bitset) Shift(offset int) Bitset {
	if offset == 0 || len(bs) == 0 {
		return bs
	}
	var out []int
	bs.ForEach(func(i int) {
		if i+offset >= 0 {
			out = append(out, i+offset)
		}
	})
	return Build(out...)
}

// Permute maps every set bit i to mapping[i]. Bits without a mapping
// (mapping[i] < 0 or i out of range) are dropped.
func (bs Bitset) Permute(mapping []int) Bitset {
	var out []int
	bs.ForEach(func(i int) {
		if i < len(mapping) && mapping[i] >= 0 {
			out = append(out, mapping[i])
		}
	})
	return Build(out...)
}

// String renders the set as {0, 2, 5}.
func (bs Bitset) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	first := true
	bs.ForEach(func(i int) {
		if !first {
			sb.WriteString(", ")
		}
		first = false
		sb.WriteString(strconv.Itoa(i))
	})
	sb.WriteByte('}')
	return sb.String()
}

// Build creates a new immutable Bitset where all the given bits are set
func Build(bits ...int) Bitset {
	if len(bits) == 0 {
		return ""
	}

	hi := bits[0]
	for _, b := range bits[1:] {
		hi = max(hi, b)
	}

	words := make([]byte, wordSize(hi))
	for _, b := range bits {
		words[b/bitsetWidth] |= 1 << (b % bitsetWidth)
	}
	return toBitset(words)
}

// Range returns the set {from, ..., to-1}.
func Range(from, to int) Bitset {
	if to <= from {
		return ""
	}
	ords := make([]int, 0, to-from)
	for i := from; i < to; i++ {
		ords = append(ords, i)
	}
	return Build(ords...)
}

const singleton = "\x00\x00\x00\x01\x00\x00\x00\x02\x00\x00\x00\x04\x00\x00\x00\x08\x00\x00\x00\x10\x00\x00\x00\x20\x00\x00\x00\x40\x00\x00\x00\x80"

// Single returns a new Bitset where only the given bit is set.
// If the given bit is less than 32, Single does not allocate.
func Single(bit int) Bitset {
	switch {
	case bit < 8:
		bit = (bit + 1) << 2
		return Bitset(singleton[bit-1 : bit])
	case bit < 16:
		bit = (bit + 1 - 8) << 2
		return Bitset(singleton[bit-2 : bit])
	case bit < 24:
		bit = (bit + 1 - 16) << 2
		return Bitset(singleton[bit-3 : bit])
	case bit < 32:
		bit = (bit + 1 - 24) << 2
		return Bitset(singleton[bit-4 : bit])
	default:
		words := make([]byte, wordSize(bit))
		words[bit/bitsetWidth] |= 1 << (bit % bitsetWidth)
		return toBitset(words)
	}
}
