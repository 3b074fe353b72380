package timing

import (
	"context"
	"sync"
	"time"
)

type contextKey struct{}

type timingInfo struct {
	operation string
	start     time.Time
}

// Tracker records how long each named pipeline stage takes.
type Tracker struct {
	timings map[string][]time.Duration
	mu      sync.RWMutex
	enabled bool
	now     func() time.Time
}

func NewTracker() *Tracker {
	return &Tracker{
		timings: make(map[string][]time.Duration),
		enabled: true,
		now:     time.Now,
	}
}

func (tt *Tracker) StartTiming(ctx context.Context, operation string) context.Context {
	if !tt.isEnabled() {
		return ctx
	}

	return context.WithValue(ctx, contextKey{}, timingInfo{
		operation: operation,
		start:     tt.now(),
	})
}

// EndTiming records the elapsed time for the operation started on ctx and
// returns it. A ctx without a started timing yields zero.
func (tt *Tracker) EndTiming(ctx context.Context) time.Duration {
	if !tt.isEnabled() {
		return 0
	}

	info, ok := ctx.Value(contextKey{}).(timingInfo)
	if !ok {
		return 0
	}

	duration := tt.now().Sub(info.start)

	tt.mu.Lock()
	tt.timings[info.operation] = append(tt.timings[info.operation], duration)
	tt.mu.Unlock()

	return duration
}

func (tt *Tracker) GetTimings(operation string) []time.Duration {
	tt.mu.RLock()
	defer tt.mu.RUnlock()

	timings := tt.timings[operation]
	if timings == nil {
		return nil
	}

	result := make([]time.Duration, len(timings))
	copy(result, timings)
	return result
}

// Summary returns the total time spent per operation.
func (tt *Tracker) Summary() map[string]time.Duration {
	tt.mu.RLock()
	defer tt.mu.RUnlock()

	result := make(map[string]time.Duration, len(tt.timings))
	for operation, timings := range tt.timings {
		var total time.Duration
		for _, d := range timings {
			total += d
		}
		result[operation] = total
	}
	return result
}

func (tt *Tracker) SetEnabled(enabled bool) {
	tt.mu.Lock()
	defer tt.mu.Unlock()
	tt.enabled = enabled
}

func (tt *Tracker) isEnabled() bool {
	tt.mu.RLock()
	defer tt.mu.RUnlock()
	return tt.enabled
}
