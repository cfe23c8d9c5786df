package staticdata

import (
	"cmp"
	"math/bits"
	"slices"
	"strconv"
	"strings"
)

// Set is a subset of a property's parameters, one bit per parameter index.
type Set uint64

// SetOf builds a Set from parameter indices.
func SetOf(indices ...int) Set {
	var s Set
	for _, i := range indices {
		s |= 1 << uint(i)
	}
	return s
}

// Mask returns the ascending parameter indices in s.
func (s Set) Mask() []int {
	mask := make([]int, 0, s.Len())
	for rest := uint64(s); rest != 0; rest &= rest - 1 {
		mask = append(mask, bits.TrailingZeros64(rest))
	}
	return mask
}

// Len returns the number of parameters in s.
func (s Set) Len() int { return bits.OnesCount64(uint64(s)) }

// Sum returns the sum of the parameter indices in s.
func (s Set) Sum() int {
	sum := 0
	for rest := uint64(s); rest != 0; rest &= rest - 1 {
		sum += bits.TrailingZeros64(rest)
	}
	return sum
}

// Has reports whether parameter i is in s.
func (s Set) Has(i int) bool { return s&(1<<uint(i)) != 0 }

// Contains reports whether o is a subset of s.
func (s Set) Contains(o Set) bool { return o&^s == 0 }

// StrictlyContains reports whether o is a proper subset of s.
func (s Set) StrictlyContains(o Set) bool { return s != o && s.Contains(o) }

// Max returns the largest index in s, or -1 for the empty set.
func (s Set) Max() int {
	if s == 0 {
		return -1
	}
	return 63 - bits.LeadingZeros64(uint64(s))
}

// Slot returns the position of parameter i in s.Mask(), or -1.
func (s Set) Slot(i int) int {
	if !s.Has(i) {
		return -1
	}
	return bits.OnesCount64(uint64(s) & (1<<uint(i) - 1))
}

// Subsets returns every non-empty subset of s in ascending Compare order.
func (s Set) Subsets() []Set {
	var subs []Set
	for sub := s; sub != 0; sub = (sub - 1) & s {
		subs = append(subs, sub)
	}
	SortAscending(subs)
	return subs
}

func (s Set) String() string {
	mask := s.Mask()
	parts := make([]string, len(mask))
	for i, p := range mask {
		parts[i] = strconv.Itoa(p)
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// Compare orders sets by size, then by the sum of their indices, then
// lexicographically by mask. Candidate priority in the derive and join
// phases follows this order, largest first.
func Compare(a, b Set) int {
	if c := cmp.Compare(a.Len(), b.Len()); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Sum(), b.Sum()); c != 0 {
		return c
	}
	return slices.Compare(a.Mask(), b.Mask())
}

// SortAscending sorts sets by Compare.
func SortAscending(sets []Set) {
	slices.SortFunc(sets, Compare)
}

// SortDescending sorts sets by Compare, largest first.
func SortDescending(sets []Set) {
	slices.SortFunc(sets, func(a, b Set) int { return Compare(b, a) })
}

// setList is an insertion-ordered set of Sets.
type setList struct {
	seen  map[Set]bool
	items []Set
}

func (l *setList) add(s Set) bool {
	if l.seen == nil {
		l.seen = make(map[Set]bool)
	}
	if l.seen[s] {
		return false
	}
	l.seen[s] = true
	l.items = append(l.items, s)
	return true
}

func (l *setList) has(s Set) bool { return l.seen[s] }

func (l *setList) sorted() []Set {
	out := slices.Clone(l.items)
	SortAscending(out)
	return out
}
