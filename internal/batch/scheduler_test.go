package batch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_SmallInputSingleSlice(t *testing.T) {
	t.Parallel()

	yields := 0
	s := &Scheduler{SliceSize: 2, Threshold: 10, Yield: func() { yields++ }}
	var seen []int
	rep, err := s.Run(context.Background(), "match", 5, func(i int) error {
		seen = append(seen, i)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, seen)
	assert.Equal(t, 1, rep.SlicesTotal)
	assert.Equal(t, 1, rep.SlicesCompleted)
	assert.Equal(t, 5, rep.Processed)
	assert.Zero(t, yields)
}

func TestRun_SlicesAndYields(t *testing.T) {
	t.Parallel()

	yields := 0
	var progress []Progress
	s := &Scheduler{
		SliceSize:  3,
		Threshold:  4,
		Yield:      func() { yields++ },
		OnProgress: func(p Progress) { progress = append(progress, p) },
	}
	var seen []int
	rep, err := s.Run(context.Background(), "classify", 8, func(i int) error {
		seen = append(seen, i)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7}, seen)
	assert.Equal(t, 3, rep.SlicesTotal)
	assert.Equal(t, 3, rep.SlicesCompleted)
	assert.Equal(t, 2, yields, "no yield after the last slice")
	require.Len(t, progress, 3)
	assert.Equal(t, Progress{Stage: "classify", Processed: 8, Total: 8, Slice: 3, Slices: 3}, progress[2])
}

func TestRun_FailuresAndPanicsAreRecorded(t *testing.T) {
	t.Parallel()

	s := New(0, 0)
	rep, err := s.Run(context.Background(), "match", 4, func(i int) error {
		switch i {
		case 1:
			return errors.New("bad shape")
		case 2:
			panic("boom")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 4, rep.Processed)
	require.Len(t, rep.Failures, 2)
	assert.Equal(t, 1, rep.Failures[0].Index)
	assert.Equal(t, 2, rep.Failures[1].Index)
	assert.Contains(t, rep.Failures[1].Error(), "boom")
	assert.Contains(t, rep.Failures[0].Error(), "match: record 1")
}

func TestRun_CancelBetweenSlices(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := &Scheduler{SliceSize: 2, Threshold: 1, Yield: func() {}}
	var seen []int
	rep, err := s.Run(ctx, "match", 6, func(i int) error {
		seen = append(seen, i)
		if i == 2 {
			cancel()
		}
		return nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, rep.Cancelled)
	assert.Equal(t, []int{0, 1, 2, 3}, seen, "the running slice completes")
	assert.Equal(t, 2, rep.SlicesCompleted)
	assert.Equal(t, 3, rep.SlicesTotal)
	assert.Equal(t, 4, rep.Processed)
}

func TestRun_AlreadyCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	rep, err := New(10, 10).Run(ctx, "match", 3, func(int) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.False(t, called)
	assert.Zero(t, rep.SlicesCompleted)
}

func TestRun_Empty(t *testing.T) {
	t.Parallel()

	rep, err := New(10, 10).Run(context.Background(), "match", 0, func(int) error { return nil })
	require.NoError(t, err)
	assert.Zero(t, rep.SlicesTotal)
}

func TestSlices(t *testing.T) {
	t.Parallel()

	s := New(1000, 2000)
	assert.Equal(t, 1, s.Slices(2000))
	assert.Equal(t, 3, s.Slices(2001))
	assert.Equal(t, 0, s.Slices(0))
}
