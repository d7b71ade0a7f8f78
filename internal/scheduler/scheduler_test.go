package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merith-tk/smart-keymap/internal/keyref"
)

func tapHoldTimeout(idx keyref.KeymapIndex) keyref.Event {
	return keyref.Event{Kind: keyref.EventTapHoldTimeout, KeymapIndex: idx}
}

func TestScheduleImmediateDequeuesInOrder(t *testing.T) {
	s := New()
	s.ScheduleImmediate(tapHoldTimeout(1))
	s.ScheduleImmediate(tapHoldTimeout(2))

	first, ok := s.Dequeue()
	require.True(t, ok)
	assert.Equal(t, keyref.KeymapIndex(1), first.KeymapIndex)

	second, ok := s.Dequeue()
	require.True(t, ok)
	assert.Equal(t, keyref.KeymapIndex(2), second.KeymapIndex)

	_, ok = s.Dequeue()
	assert.False(t, ok)
}

func TestScheduleAfterFiresOnDeadline(t *testing.T) {
	s := New()
	s.ScheduleAfter(200, tapHoldTimeout(5))

	s.Tick(100)
	_, ok := s.Dequeue()
	assert.False(t, ok, "must not fire before its deadline")

	s.Tick(100)
	ev, ok := s.Dequeue()
	require.True(t, ok, "must fire once the deadline is reached")
	assert.Equal(t, keyref.KeymapIndex(5), ev.KeymapIndex)
}

func TestScheduleAfterSameDeadlinePreservesInsertionOrder(t *testing.T) {
	s := New()
	s.ScheduleAfter(50, tapHoldTimeout(1))
	s.ScheduleAfter(50, tapHoldTimeout(2))
	s.ScheduleAfter(50, tapHoldTimeout(3))

	// Each Tick call surfaces at most one due event; drive enough ticks
	// to drain all three in the order they were scheduled.
	var order []keyref.KeymapIndex
	for i := 0; i < 3; i++ {
		s.Tick(50)
		ev, ok := s.Dequeue()
		require.True(t, ok)
		order = append(order, ev.KeymapIndex)
	}
	assert.Equal(t, []keyref.KeymapIndex{1, 2, 3}, order)
}

func TestTickSurfacesAtMostOneDueEventPerCall(t *testing.T) {
	s := New()
	s.ScheduleAfter(10, tapHoldTimeout(1))
	s.ScheduleAfter(10, tapHoldTimeout(2))

	s.Tick(10)
	_, ok := s.Dequeue()
	require.True(t, ok)
	_, ok = s.Dequeue()
	assert.False(t, ok, "a single Tick call must only surface one due event")

	s.Tick(0)
	_, ok = s.Dequeue()
	assert.True(t, ok, "the second due event surfaces on the next Tick call")
}

func TestCancelForRemovesOnlyMatchingScheduledEvents(t *testing.T) {
	s := New()
	s.ScheduleAfter(100, tapHoldTimeout(1))
	s.ScheduleAfter(100, tapHoldTimeout(2))

	s.CancelFor(1)

	s.Tick(100)
	ev, ok := s.Dequeue()
	require.True(t, ok)
	assert.Equal(t, keyref.KeymapIndex(2), ev.KeymapIndex, "cancelling index 1 must leave index 2 scheduled")

	_, ok = s.Dequeue()
	assert.False(t, ok)
}

func TestCancelForDoesNotTouchPendingFIFO(t *testing.T) {
	s := New()
	s.ScheduleImmediate(tapHoldTimeout(1))
	s.CancelFor(1)

	ev, ok := s.Dequeue()
	require.True(t, ok, "CancelFor only cancels not-yet-due scheduled events, never the pending FIFO")
	assert.Equal(t, keyref.KeymapIndex(1), ev.KeymapIndex)
}

func TestHasPendingWork(t *testing.T) {
	s := New()
	assert.False(t, s.HasPendingWork())

	s.ScheduleAfter(10, tapHoldTimeout(1))
	assert.True(t, s.HasPendingWork())

	s.Tick(10)
	assert.True(t, s.HasPendingWork(), "a due-but-not-yet-dequeued event still counts as pending work")

	s.Dequeue()
	assert.False(t, s.HasPendingWork())
}

func TestResetClearsEverything(t *testing.T) {
	s := New()
	s.ScheduleImmediate(tapHoldTimeout(1))
	s.ScheduleAfter(10, tapHoldTimeout(2))
	s.Tick(5)

	s.Reset()

	assert.False(t, s.HasPendingWork())
	assert.Equal(t, uint32(0), s.Now())

	_, ok := s.Dequeue()
	assert.False(t, ok)
}

func TestNowAdvancesByDelta(t *testing.T) {
	s := New()
	s.Tick(3)
	s.Tick(4)
	assert.Equal(t, uint32(7), s.Now())
}
