package memtracker

import (
	"sort"
	"sync"
	"time"
)

type AllocationInfo struct {
	ID          uint64
	Size        int64
	Tag         string
	AllocatedAt time.Time
}

type MemoryStats struct {
	TotalAllocated   int64
	TotalDeallocated int64
	CurrentlyActive  int64
	AllocationCount  int64
	// LeakCount counts allocations released by the garbage collector
	// instead of an explicit Close.
	LeakCount int64
}

// Tracker records native image allocations by id.
type Tracker struct {
	mu           sync.Mutex
	allocations  map[uint64]AllocationInfo
	enabled      bool
	now          func() time.Time
	totalAlloc   int64
	totalDealloc int64
	allocCount   int64
	leakCount    int64
}

func NewTracker() *Tracker {
	return &Tracker{
		allocations: make(map[uint64]AllocationInfo),
		enabled:     true,
		now:         time.Now,
	}
}

func (mt *Tracker) TrackAllocation(id uint64, size int64, tag string) {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	if !mt.enabled {
		return
	}

	mt.totalAlloc += size
	mt.allocCount++
	mt.allocations[id] = AllocationInfo{
		ID:          id,
		Size:        size,
		Tag:         tag,
		AllocatedAt: mt.now(),
	}
}

// TrackDeallocation forgets id. leaked marks a release that came from a
// finalizer.
func (mt *Tracker) TrackDeallocation(id uint64, leaked bool) {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	info, exists := mt.allocations[id]
	if !exists {
		return
	}

	delete(mt.allocations, id)
	mt.totalDealloc += info.Size
	if leaked {
		mt.leakCount++
	}
}

func (mt *Tracker) GetStats() MemoryStats {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	return MemoryStats{
		TotalAllocated:   mt.totalAlloc,
		TotalDeallocated: mt.totalDealloc,
		CurrentlyActive:  int64(len(mt.allocations)),
		AllocationCount:  mt.allocCount,
		LeakCount:        mt.leakCount,
	}
}

// GetAllocations returns the live allocations ordered by id.
func (mt *Tracker) GetAllocations() []AllocationInfo {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	result := make([]AllocationInfo, 0, len(mt.allocations))
	for _, info := range mt.allocations {
		result = append(result, info)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// DetectLeaks lists live allocations older than olderThan.
func (mt *Tracker) DetectLeaks(olderThan time.Duration) []AllocationInfo {
	threshold := mt.now().Add(-olderThan)

	var leaks []AllocationInfo
	for _, info := range mt.GetAllocations() {
		if info.AllocatedAt.Before(threshold) {
			leaks = append(leaks, info)
		}
	}
	return leaks
}

func (mt *Tracker) SetEnabled(enabled bool) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.enabled = enabled
}
