package metrics

import "time"

// DefaultTickScale is USER_HZ on practically every Linux build.
const DefaultTickScale = 100

// CounterSample is one reading of a cumulative counter. Timestamps must carry
// a monotonic clock reading (time.Now does) so wall clock steps cannot skew
// the elapsed time.
type CounterSample struct {
	Value     uint64
	Timestamp time.Time
}

// Estimate converts two samples of a per-process tick counter into the
// fraction of one CPU used in between. A nil previous sample is a cold start
// and yields 0. Non-positive elapsed time, a counter that went backwards or a
// non-positive tick scale also yield 0. The result is clamped to [0, 1].
func Estimate(prev *CounterSample, cur CounterSample, tickScale float64) float64 {
	if prev == nil || tickScale <= 0 {
		return 0
	}
	elapsed := cur.Timestamp.Sub(prev.Timestamp).Seconds()
	if elapsed <= 0 || cur.Value < prev.Value {
		return 0
	}
	rate := float64(cur.Value-prev.Value) / (tickScale * elapsed)
	if rate > 1 {
		return 1
	}
	return rate
}

// EstimateSystem computes 1 - idleDelta/totalDelta across the aggregate tick
// buckets. A nil previous reading or a zero (or negative) total delta yields 0.
// The result is not clamped.
func EstimateSystem(prev *CPUTicks, cur CPUTicks) float64 {
	if prev == nil {
		return 0
	}
	total := delta(prev.Total(), cur.Total())
	if total <= 0 {
		return 0
	}
	idle := delta(prev.IdleTotal(), cur.IdleTotal())
	return 1 - idle/total
}

func delta(prev, cur uint64) float64 {
	if cur >= prev {
		return float64(cur - prev)
	}
	return -float64(prev - cur)
}

// systemEstimator keeps the single previous-reading slot for the aggregate
// CPU line.
type systemEstimator struct {
	prev *CPUTicks
}

func (e *systemEstimator) observe(cur CPUTicks) float64 {
	u := EstimateSystem(e.prev, cur)
	e.prev = &cur
	return u
}

// MemoryUtilization returns (total - free) / total, or 0 for a zero total.
func MemoryUtilization(m MemoryTotals) float64 {
	if m.TotalKB == 0 || m.FreeKB > m.TotalKB {
		return 0
	}
	return float64(m.TotalKB-m.FreeKB) / float64(m.TotalKB)
}
