package metrics

import (
	"sync"
)

// Sampler produces one SystemSnapshot per Sample call. It keeps the
// aggregate CPU previous-reading slot and the process table between calls,
// so Sample is deliberately not idempotent: two calls in quick succession
// report near-zero rates, while calls spaced by a real interval report the
// utilization over that interval.
type Sampler struct {
	mu     sync.Mutex
	src    CounterSource
	opts   Options
	cpu    systemEstimator
	table  *ProcessTable
	host   HostInfo
	counts ProcessCountsSource
}

func NewSampler(src CounterSource, opts Options) *Sampler {
	opts = opts.normalize()
	s := &Sampler{
		src:   src,
		opts:  opts,
		table: NewProcessTable(src, opts),
	}
	if hs, ok := src.(HostInfoSource); ok {
		info, err := hs.HostInfo()
		if err != nil {
			opts.Logger.Warnf("host info unavailable: %v", err)
		} else {
			s.host = info
		}
	}
	if cs, ok := src.(ProcessCountsSource); ok {
		s.counts = cs
	}
	return s
}

// Sample runs one refresh cycle. Failed reads degrade to zero-valued parts of
// the snapshot and are only logged. It is safe for concurrent use; callers
// are serialized so every snapshot reflects one complete reconciliation.
func (s *Sampler) Sample() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Timestamp: s.opts.Clock(),
		Host:      s.host,
		Processes: []Process{},
	}

	ticks, err := s.src.SystemCPUTicks()
	if err != nil {
		s.opts.Logger.Warnf("error reading system cpu ticks: %v", err)
	} else {
		snap.CpuUsage.Utilization = s.cpu.observe(ticks)
	}

	mem, err := s.src.MemoryTotals()
	if err != nil {
		s.opts.Logger.Warnf("error reading memory totals: %v", err)
	} else {
		snap.MemUsage = MemUsage{
			TotalKB:     mem.TotalKB,
			FreeKB:      mem.FreeKB,
			Utilization: MemoryUtilization(mem),
		}
	}

	uptime, err := s.src.UptimeSeconds()
	if err != nil {
		s.opts.Logger.Warnf("error reading uptime: %v", err)
	} else {
		snap.UptimeSeconds = uptime
	}

	if s.counts != nil {
		counts, err := s.counts.ProcessCounts()
		if err != nil {
			s.opts.Logger.Warnf("error reading process counts: %v", err)
		} else {
			snap.RunningProcesses = counts.Running
			snap.TotalProcesses = counts.Created
		}
	}

	pids, err := s.src.LivePids()
	if err != nil {
		// The table is left alone so a transient listing failure does not
		// look like every process exiting.
		s.opts.Logger.Warnf("error listing processes: %v", err)
		snap.CpuUsage = CpuUsage{}
		return snap
	}

	records := s.table.Reconcile(pids)
	s.opts.Logger.Debugf("sampled %d live pids, tracking %d records", len(pids), s.table.Len())
	snap.ProcessCount = len(records)
	snap.Processes = make([]Process, 0, len(records))
	for _, r := range records {
		snap.Processes = append(snap.Processes, Process{
			Pid:           r.Pid,
			User:          r.User,
			Command:       r.Command,
			CpuUsage:      r.Utilization,
			MemKB:         r.MemKB,
			UptimeSeconds: processUptime(snap.UptimeSeconds, r),
		})
	}
	return snap
}

func processUptime(systemUptime int64, r *ProcessRecord) int64 {
	if !r.staticLoaded || systemUptime <= 0 {
		return 0
	}
	return max(systemUptime-r.StartOffsetSeconds, 0)
}
