package metrics

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

var errGone = errors.New("no such process")

type fakeSource struct {
	mu sync.Mutex

	pids    []int
	pidsErr error

	sys    CPUTicks
	sysErr error

	mem    MemoryTotals
	memErr error

	uptime    int64
	uptimeErr error

	ticks     map[int]uint64
	ticksErr  map[int]error
	statics   map[int]ProcessStatic
	staticErr map[int]error
	procMem   map[int]uint64

	staticCalls map[int]int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		ticks:       make(map[int]uint64),
		ticksErr:    make(map[int]error),
		statics:     make(map[int]ProcessStatic),
		staticErr:   make(map[int]error),
		procMem:     make(map[int]uint64),
		staticCalls: make(map[int]int),
	}
}

func (f *fakeSource) LivePids() ([]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.pids...), f.pidsErr
}

func (f *fakeSource) SystemCPUTicks() (CPUTicks, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sys, f.sysErr
}

func (f *fakeSource) ProcessCPUTicks(pid int) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.ticksErr[pid]; err != nil {
		return 0, err
	}
	return f.ticks[pid], nil
}

func (f *fakeSource) MemoryTotals() (MemoryTotals, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mem, f.memErr
}

func (f *fakeSource) UptimeSeconds() (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uptime, f.uptimeErr
}

func (f *fakeSource) ProcessStatic(pid int) (ProcessStatic, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.staticCalls[pid]++
	if err := f.staticErr[pid]; err != nil {
		return ProcessStatic{}, err
	}
	return f.statics[pid], nil
}

func (f *fakeSource) ProcessMemory(pid int) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.procMem[pid], nil
}

func (f *fakeSource) set(fn func(f *fakeSource)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeSource) calls(pid int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.staticCalls[pid]
}

type hostSource struct {
	*fakeSource
	info HostInfo
	err  error
}

func (h hostSource) HostInfo() (HostInfo, error) { return h.info, h.err }

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type discardLogger struct{}

func (discardLogger) Debugf(string, ...interface{}) {}
func (discardLogger) Warnf(string, ...interface{})  {}

func testOptions(clock *fakeClock) Options {
	return Options{
		TickScale: 100,
		Workers:   1,
		Clock:     clock.Now,
		Logger:    discardLogger{},
	}
}

type countsSource struct {
	*fakeSource
	counts ProcessCounts
	err    error
}

func (c countsSource) ProcessCounts() (ProcessCounts, error) { return c.counts, c.err }

type recordLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordLogger) Debugf(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}

func (l *recordLogger) Warnf(format string, args ...interface{}) { l.Debugf(format, args...) }
