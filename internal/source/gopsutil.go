package source

import (
	"fmt"
	"strings"

	"github.com/jeffypooo/proctop/internal/metrics"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
)

// Gopsutil reads counters through gopsutil and is the fallback source on
// platforms without procfs. gopsutil does not expose the CPU time of
// waited-for children, so ProcessCPUTicks covers the process itself only and
// under-reports parents that reap busy children. Use Procfs where available.
type Gopsutil struct {
	tickScale float64
}

func NewGopsutil(tickScale float64) *Gopsutil {
	return &Gopsutil{tickScale: tickScale}
}

func (g *Gopsutil) LivePids() ([]int, error) {
	pids, err := process.Pids()
	if err != nil {
		return nil, fmt.Errorf("error listing pids: %w", err)
	}
	out := make([]int, len(pids))
	for i, pid := range pids {
		out[i] = int(pid)
	}
	return out, nil
}

func (g *Gopsutil) SystemCPUTicks() (metrics.CPUTicks, error) {
	times, err := cpu.Times(false)
	if err != nil {
		return metrics.CPUTicks{}, fmt.Errorf("error getting cpu times: %w", err)
	}
	if len(times) == 0 {
		return metrics.CPUTicks{}, fmt.Errorf("error getting cpu times: no aggregate line")
	}
	t := times[0]
	return metrics.CPUTicks{
		User:    secondsToTicks(t.User, g.tickScale),
		Nice:    secondsToTicks(t.Nice, g.tickScale),
		System:  secondsToTicks(t.System, g.tickScale),
		Idle:    secondsToTicks(t.Idle, g.tickScale),
		Iowait:  secondsToTicks(t.Iowait, g.tickScale),
		IRQ:     secondsToTicks(t.Irq, g.tickScale),
		SoftIRQ: secondsToTicks(t.Softirq, g.tickScale),
		Steal:   secondsToTicks(t.Steal, g.tickScale),
	}, nil
}

func (g *Gopsutil) ProcessCPUTicks(pid int) (uint64, error) {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return 0, fmt.Errorf("error opening process %d: %w", pid, err)
	}
	times, err := p.Times()
	if err != nil {
		return 0, fmt.Errorf("error getting cpu times for %d: %w", pid, err)
	}
	return secondsToTicks(times.User+times.System, g.tickScale), nil
}

func (g *Gopsutil) MemoryTotals() (metrics.MemoryTotals, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return metrics.MemoryTotals{}, fmt.Errorf("error getting memory usage: %w", err)
	}
	return metrics.MemoryTotals{TotalKB: vm.Total / 1024, FreeKB: vm.Free / 1024}, nil
}

func (g *Gopsutil) UptimeSeconds() (int64, error) {
	up, err := host.Uptime()
	if err != nil {
		return 0, fmt.Errorf("error getting uptime: %w", err)
	}
	return int64(up), nil
}

func (g *Gopsutil) ProcessStatic(pid int) (metrics.ProcessStatic, error) {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return metrics.ProcessStatic{}, fmt.Errorf("error opening process %d: %w", pid, err)
	}
	var st metrics.ProcessStatic

	st.User, err = p.Username()
	if err != nil {
		st.User = "unknown"
	}

	st.Command, err = p.Cmdline()
	if err != nil || strings.TrimSpace(st.Command) == "" {
		name, nerr := p.Name()
		if nerr != nil {
			return metrics.ProcessStatic{}, fmt.Errorf("error getting command for %d: %w", pid, nerr)
		}
		st.Command = "[" + name + "]"
	}

	created, err := p.CreateTime()
	if err != nil {
		return metrics.ProcessStatic{}, fmt.Errorf("error getting start time for %d: %w", pid, err)
	}
	boot, err := host.BootTime()
	if err != nil {
		return metrics.ProcessStatic{}, fmt.Errorf("error getting boot time: %w", err)
	}
	st.StartOffsetSeconds = max(created/1000-int64(boot), 0)
	return st, nil
}

func (g *Gopsutil) ProcessMemory(pid int) (uint64, error) {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return 0, fmt.Errorf("error opening process %d: %w", pid, err)
	}
	info, err := p.MemoryInfo()
	if err != nil {
		return 0, fmt.Errorf("error getting memory info for %d: %w", pid, err)
	}
	return info.VMS / 1024, nil
}

func (g *Gopsutil) ProcessCounts() (metrics.ProcessCounts, error) {
	misc, err := load.Misc()
	if err != nil {
		return metrics.ProcessCounts{}, fmt.Errorf("error getting process counts: %w", err)
	}
	return metrics.ProcessCounts{
		Running: uint64(max(misc.ProcsRunning, 0)),
		Created: uint64(max(misc.ProcsCreated, 0)),
	}, nil
}

func (g *Gopsutil) HostInfo() (metrics.HostInfo, error) {
	return hostInfo()
}

func hostInfo() (metrics.HostInfo, error) {
	info, err := host.Info()
	if err != nil {
		return metrics.HostInfo{}, fmt.Errorf("error getting host info: %w", err)
	}
	osName := strings.TrimSpace(info.Platform + " " + info.PlatformVersion)
	if osName == "" {
		osName = info.OS
	}
	return metrics.HostInfo{
		Hostname: info.Hostname,
		OS:       osName,
		Kernel:   info.KernelVersion,
	}, nil
}
