package staticdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSet_Basics(t *testing.T) {
	s := SetOf(0, 2, 5)

	assert.Equal(t, []int{0, 2, 5}, s.Mask())
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, 7, s.Sum())
	assert.Equal(t, 5, s.Max())
	assert.Equal(t, 1, s.Slot(2))
	assert.Equal(t, -1, s.Slot(1))
	assert.Equal(t, "{0,2,5}", s.String())
	assert.Equal(t, -1, Set(0).Max())
}

func TestSet_Containment(t *testing.T) {
	ab := SetOf(0, 1)
	a := SetOf(0)

	assert.True(t, ab.Contains(a))
	assert.True(t, ab.Contains(ab))
	assert.True(t, ab.StrictlyContains(a))
	assert.False(t, ab.StrictlyContains(ab))
	assert.False(t, a.Contains(ab))
	assert.True(t, a.Contains(0))
}

func TestCompare_SizeThenSumThenMask(t *testing.T) {
	tests := []struct {
		name string
		a, b Set
		want int
	}{
		{"smaller first", SetOf(3), SetOf(0, 1), -1},
		{"equal size lower sum first", SetOf(0, 3), SetOf(1, 3), -1},
		{"equal sum lexicographic", SetOf(0, 3), SetOf(1, 2), -1},
		{"identical", SetOf(1, 2), SetOf(1, 2), 0},
		{"larger later", SetOf(0, 1, 2), SetOf(5, 6), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compare(tt.a, tt.b))
		})
	}
}

func TestSet_Subsets(t *testing.T) {
	subs := SetOf(0, 1, 2).Subsets()

	assert.Equal(t, []Set{
		SetOf(0), SetOf(1), SetOf(2),
		SetOf(0, 1), SetOf(0, 2), SetOf(1, 2),
		SetOf(0, 1, 2),
	}, subs)
	assert.Empty(t, Set(0).Subsets())
}

func TestSortDescending(t *testing.T) {
	sets := []Set{SetOf(0), SetOf(0, 1), SetOf(1)}
	SortDescending(sets)
	assert.Equal(t, []Set{SetOf(0, 1), SetOf(1), SetOf(0)}, sets)
}
