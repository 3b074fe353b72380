package memtracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerCountsLiveAllocations(t *testing.T) {
	mt := NewTracker()
	mt.TrackAllocation(1, 100, "gray")
	mt.TrackAllocation(2, 300, "blurred")
	mt.TrackDeallocation(1, false)

	stats := mt.GetStats()
	assert.Equal(t, int64(400), stats.TotalAllocated)
	assert.Equal(t, int64(100), stats.TotalDeallocated)
	assert.Equal(t, int64(1), stats.CurrentlyActive)
	assert.Equal(t, int64(2), stats.AllocationCount)
	assert.Zero(t, stats.LeakCount)

	live := mt.GetAllocations()
	require.Len(t, live, 1)
	assert.Equal(t, "blurred", live[0].Tag)
}

func TestTrackerLeakAndUnknownIDs(t *testing.T) {
	mt := NewTracker()
	mt.TrackAllocation(7, 10, "")
	mt.TrackDeallocation(7, true)
	mt.TrackDeallocation(7, true)
	mt.TrackDeallocation(99, false)

	stats := mt.GetStats()
	assert.Equal(t, int64(1), stats.LeakCount)
	assert.Zero(t, stats.CurrentlyActive)
}

func TestDetectLeaks(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	mt := NewTracker()
	mt.now = func() time.Time { return now }

	mt.TrackAllocation(1, 1, "old")
	now = now.Add(time.Minute)
	mt.TrackAllocation(2, 1, "new")

	leaks := mt.DetectLeaks(30 * time.Second)
	require.Len(t, leaks, 1)
	assert.Equal(t, "old", leaks[0].Tag)
}

func TestDisabledTrackerIgnoresAllocations(t *testing.T) {
	mt := NewTracker()
	mt.SetEnabled(false)
	mt.TrackAllocation(1, 10, "x")
	assert.Zero(t, mt.GetStats().AllocationCount)
}
