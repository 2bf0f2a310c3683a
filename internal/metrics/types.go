package metrics

import "time"

type CpuUsage struct {
	// Utilization is the busy fraction of all CPUs since the previous sample.
	Utilization float64 `json:"usage"`
}

type MemUsage struct {
	TotalKB     uint64  `json:"total_kb"`
	FreeKB      uint64  `json:"free_kb"`
	Utilization float64 `json:"usage"`
}

// Process is the read-only view of a ProcessRecord handed to display code.
type Process struct {
	Pid           int     `json:"pid"`
	User          string  `json:"user"`
	Command       string  `json:"command"`
	CpuUsage      float64 `json:"cpu"`
	MemKB         uint64  `json:"mem_kb"`
	UptimeSeconds int64   `json:"uptime"`
}

// Snapshot is one coherent refresh. It is built fresh on every Sample call.
type Snapshot struct {
	Timestamp     time.Time `json:"timestamp"`
	Host          HostInfo  `json:"host"`
	CpuUsage      CpuUsage  `json:"cpu"`
	MemUsage      MemUsage  `json:"mem"`
	UptimeSeconds int64     `json:"uptime"`
	ProcessCount  int       `json:"process_count"`
	// RunningProcesses and TotalProcesses come from the kernel's scheduler
	// counters; TotalProcesses is forks since boot, not live processes.
	RunningProcesses uint64    `json:"running_processes"`
	TotalProcesses   uint64    `json:"total_processes"`
	Processes        []Process `json:"processes"`
}
