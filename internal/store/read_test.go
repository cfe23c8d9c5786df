package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadMatches_OrderedBySeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.WriteRun(ctx, testRun("run-1")))
	require.NoError(t, s.WriteRun(ctx, testRun("run-2")))

	for _, m := range []struct {
		run string
		seq int64
	}{{"run-1", 3}, {"run-2", 1}, {"run-1", 1}, {"run-1", 2}} {
		require.NoError(t, s.WriteMatch(ctx, testMatch(m.run, m.seq, "c", "i")))
	}

	got, err := s.ReadMatches(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, m := range got {
		assert.Equal(t, int64(i+1), m.Seq)
		assert.Equal(t, "run-1", m.RunID)
	}

	all, err := s.ReadMatches(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, int64(1), all[0].Seq)
	assert.Equal(t, int64(1), all[1].Seq)
	assert.LessOrEqual(t, all[0].ID, all[1].ID, "ties broken by id")
	assert.Equal(t, int64(3), all[3].Seq)
}

func TestReadMatches_EmptyNotNil(t *testing.T) {
	s := createTestStore(t)

	got, err := s.ReadMatches(context.Background(), "run-1")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestReadRun(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.WriteRun(ctx, testRun("run-1")))

	run, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, testRun("run-1"), run)

	_, err = s.ReadRun(ctx, "run-2")
	assert.ErrorIs(t, err, ErrNotFound)
}
