package source

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jeffypooo/proctop/internal/metrics"
	"github.com/prometheus/procfs"
)

const defaultProcRoot = procfs.DefaultMountPoint

// Procfs reads counters straight from a procfs mount, so process ticks
// include waited-for children and start offsets come from the kernel's
// starttime field.
type Procfs struct {
	fs        procfs.FS
	root      string
	tickScale float64
	users     *userCache
}

func NewProcfs(root string, tickScale float64) (*Procfs, error) {
	if root == "" {
		root = defaultProcRoot
	}
	fs, err := procfs.NewFS(root)
	if err != nil {
		return nil, fmt.Errorf("error opening procfs at %s: %w", root, err)
	}
	return &Procfs{
		fs:        fs,
		root:      root,
		tickScale: tickScale,
		users:     newUserCache(),
	}, nil
}

func (p *Procfs) LivePids() ([]int, error) {
	procs, err := p.fs.AllProcs()
	if err != nil {
		return nil, fmt.Errorf("error listing processes: %w", err)
	}
	pids := make([]int, len(procs))
	for i, proc := range procs {
		pids[i] = proc.PID
	}
	return pids, nil
}

func (p *Procfs) SystemCPUTicks() (metrics.CPUTicks, error) {
	st, err := p.fs.Stat()
	if err != nil {
		return metrics.CPUTicks{}, fmt.Errorf("error reading kernel stat: %w", err)
	}
	c := st.CPUTotal
	return metrics.CPUTicks{
		User:    secondsToTicks(c.User, p.tickScale),
		Nice:    secondsToTicks(c.Nice, p.tickScale),
		System:  secondsToTicks(c.System, p.tickScale),
		Idle:    secondsToTicks(c.Idle, p.tickScale),
		Iowait:  secondsToTicks(c.Iowait, p.tickScale),
		IRQ:     secondsToTicks(c.IRQ, p.tickScale),
		SoftIRQ: secondsToTicks(c.SoftIRQ, p.tickScale),
		Steal:   secondsToTicks(c.Steal, p.tickScale),
	}, nil
}

func (p *Procfs) procStat(pid int) (procfs.ProcStat, error) {
	proc, err := p.fs.Proc(pid)
	if err != nil {
		return procfs.ProcStat{}, fmt.Errorf("error opening process %d: %w", pid, err)
	}
	stat, err := proc.Stat()
	if err != nil {
		return procfs.ProcStat{}, fmt.Errorf("error reading stat for %d: %w", pid, err)
	}
	return stat, nil
}

func (p *Procfs) ProcessCPUTicks(pid int) (uint64, error) {
	stat, err := p.procStat(pid)
	if err != nil {
		return 0, err
	}
	return uint64(stat.UTime) + uint64(stat.STime) + nonNegative(stat.CUTime) + nonNegative(stat.CSTime), nil
}

func (p *Procfs) MemoryTotals() (metrics.MemoryTotals, error) {
	mi, err := p.fs.Meminfo()
	if err != nil {
		return metrics.MemoryTotals{}, fmt.Errorf("error reading meminfo: %w", err)
	}
	if mi.MemTotal == nil || mi.MemFree == nil {
		return metrics.MemoryTotals{}, fmt.Errorf("error reading meminfo: MemTotal or MemFree missing")
	}
	return metrics.MemoryTotals{TotalKB: *mi.MemTotal, FreeKB: *mi.MemFree}, nil
}

// UptimeSeconds reads the first field of <root>/uptime, which the kernel
// keeps on a monotonic clock, so wall clock steps do not move it.
func (p *Procfs) UptimeSeconds() (int64, error) {
	data, err := os.ReadFile(filepath.Join(p.root, "uptime"))
	if err != nil {
		return 0, fmt.Errorf("error reading uptime: %w", err)
	}
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return 0, fmt.Errorf("error reading uptime: empty file")
	}
	up, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, fmt.Errorf("error parsing uptime %q: %w", fields[0], err)
	}
	return int64(up), nil
}

// ProcessCounts reports procs_running and the fork counter from /proc/stat.
func (p *Procfs) ProcessCounts() (metrics.ProcessCounts, error) {
	st, err := p.fs.Stat()
	if err != nil {
		return metrics.ProcessCounts{}, fmt.Errorf("error reading kernel stat: %w", err)
	}
	return metrics.ProcessCounts{
		Running: st.ProcessesRunning,
		Created: st.ProcessCreated,
	}, nil
}

func (p *Procfs) ProcessStatic(pid int) (metrics.ProcessStatic, error) {
	proc, err := p.fs.Proc(pid)
	if err != nil {
		return metrics.ProcessStatic{}, fmt.Errorf("error opening process %d: %w", pid, err)
	}
	stat, err := proc.Stat()
	if err != nil {
		return metrics.ProcessStatic{}, fmt.Errorf("error reading stat for %d: %w", pid, err)
	}

	st := metrics.ProcessStatic{
		StartOffsetSeconds: int64(float64(stat.Starttime) / p.tickScale),
	}

	args, err := proc.CmdLine()
	if err == nil && len(args) > 0 {
		st.Command = strings.Join(args, " ")
	} else {
		// kernel threads have an empty cmdline
		st.Command = "[" + stat.Comm + "]"
	}

	status, err := proc.NewStatus()
	if err != nil {
		st.User = "unknown"
	} else {
		st.User = p.users.name(fmt.Sprint(status.UIDs[0]))
	}
	return st, nil
}

func (p *Procfs) ProcessMemory(pid int) (uint64, error) {
	stat, err := p.procStat(pid)
	if err != nil {
		return 0, err
	}
	return uint64(stat.VirtualMemory()) / 1024, nil
}

func (p *Procfs) HostInfo() (metrics.HostInfo, error) {
	return hostInfo()
}

func nonNegative[T ~int | ~int64](v T) uint64 {
	if v < 0 {
		return 0
	}
	return uint64(v)
}
