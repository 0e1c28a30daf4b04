package queue

import "time"

const (
	minQueuedETA  = 5 * time.Second
	minRunningETA = 1 * time.Second
)

// durationHistory is a bounded record of recent job durations.
type durationHistory struct {
	size     int
	fallback time.Duration
	values   []time.Duration
}

func (h *durationHistory) add(d time.Duration) {
	h.values = append(h.values, d)
	if len(h.values) > h.size {
		h.values = append(h.values[:0], h.values[len(h.values)-h.size:]...)
	}
}

func (h *durationHistory) average() time.Duration {
	if len(h.values) == 0 {
		return h.fallback
	}
	var sum time.Duration
	for _, v := range h.values {
		sum += v
	}
	return sum / time.Duration(len(h.values))
}

// runningETA extrapolates the remaining time of a running job.
func runningETA(avg, elapsed time.Duration, progress float64) time.Duration {
	pct := min(max(progress, 0), 99)
	if pct <= 0.1 {
		return max(minQueuedETA, avg-elapsed)
	}
	total := time.Duration(float64(elapsed) * (100 / pct))
	return max(minRunningETA, total-elapsed)
}

// queuedETA estimates the wait of a job at position.
func queuedETA(avg time.Duration, position int) time.Duration {
	return max(minQueuedETA, time.Duration(position)*avg)
}
