package metrics

// CPUTicks holds the system-wide cumulative tick buckets, in the order the
// kernel reports them on the aggregate "cpu" line.
type CPUTicks struct {
	User    uint64
	Nice    uint64
	System  uint64
	Idle    uint64
	Iowait  uint64
	IRQ     uint64
	SoftIRQ uint64
	Steal   uint64
}

// Total is the sum of all eight buckets.
func (t CPUTicks) Total() uint64 {
	return t.User + t.Nice + t.System + t.Idle + t.Iowait + t.IRQ + t.SoftIRQ + t.Steal
}

// Idle counts iowait as idle time.
func (t CPUTicks) IdleTotal() uint64 {
	return t.Idle + t.Iowait
}

type MemoryTotals struct {
	TotalKB uint64
	FreeKB  uint64
}

// ProcessStatic is captured once when a pid is first seen.
type ProcessStatic struct {
	User    string
	Command string
	// StartOffsetSeconds is the process start time measured from boot.
	StartOffsetSeconds int64
}

type HostInfo struct {
	Hostname string `json:"hostname"`
	OS       string `json:"os"`
	Kernel   string `json:"kernel"`
}

// CounterSource exposes raw cumulative counters. Implementations hold no
// rate state; every call is a fresh read.
type CounterSource interface {
	LivePids() ([]int, error)
	SystemCPUTicks() (CPUTicks, error)
	// ProcessCPUTicks returns user+system ticks of the process and its
	// waited-for children.
	ProcessCPUTicks(pid int) (uint64, error)
	MemoryTotals() (MemoryTotals, error)
	UptimeSeconds() (int64, error)
	ProcessStatic(pid int) (ProcessStatic, error)
	// ProcessMemory returns the virtual memory size of the process in kB.
	ProcessMemory(pid int) (uint64, error)
}

type ProcessCounts struct {
	// Running is the number of runnable tasks right now.
	Running uint64
	// Created counts forks since boot.
	Created uint64
}

// ProcessCountsSource is implemented by sources that expose the kernel's
// scheduler process counters.
type ProcessCountsSource interface {
	ProcessCounts() (ProcessCounts, error)
}

// HostInfoSource is implemented by sources that can describe the host.
type HostInfoSource interface {
	HostInfo() (HostInfo, error)
}

// Logger is satisfied by gommon's *log.Logger and echo.Logger.
type Logger interface {
	Debugf(format string, args ...interface{})
	Warnf(format string, args ...interface{})
}
