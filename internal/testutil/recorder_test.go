package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecorder_KeepsArrivalOrder(t *testing.T) {
	r := NewRecorder[string]()
	r.Record("a")
	r.Record("b")
	r.Record("c")

	assert.Equal(t, []string{"a", "b", "c"}, r.All())
	assert.Equal(t, 3, r.Len())
}

func TestRecorder_AllReturnsCopy(t *testing.T) {
	r := NewRecorder[int]()
	r.Record(1)

	got := r.All()
	got[0] = 42

	assert.Equal(t, []int{1}, r.All())
}

func TestRecorder_Reset(t *testing.T) {
	r := NewRecorder[int]()
	r.Record(1)
	r.Reset()

	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.All())

	r.Record(2)
	assert.Equal(t, []int{2}, r.All())
}

func TestRecorder_Concurrent(t *testing.T) {
	r := NewRecorder[int]()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.Record(n)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1000, r.Len())
}
