package metrics

import (
	"sort"
	"time"

	"github.com/labstack/gommon/log"
	"golang.org/x/sync/errgroup"
)

// ProcessRecord is the tracked state of one live pid. Static attributes are
// read once at discovery; LastCPU and Utilization are carried across
// refreshes for as long as the pid stays live.
type ProcessRecord struct {
	Pid                int
	User               string
	Command            string
	StartOffsetSeconds int64

	LastCPU     *CounterSample
	Utilization float64
	MemKB       uint64

	seq          uint64
	staticLoaded bool
}

type Options struct {
	// TickScale is the number of counter ticks per second.
	TickScale float64
	// Workers bounds concurrent per-process reads. 1 reads serially.
	Workers int
	Clock   func() time.Time
	Logger  Logger
}

func (o Options) normalize() Options {
	if o.TickScale <= 0 {
		o.TickScale = DefaultTickScale
	}
	if o.Workers <= 0 {
		o.Workers = 1
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	if o.Logger == nil {
		o.Logger = log.New("metrics")
	}
	return o
}

// ProcessTable owns the pid -> record map. Reconcile is the only mutating
// operation and is not safe for concurrent use; Sampler serializes it.
type ProcessTable struct {
	src     CounterSource
	opts    Options
	records map[int]*ProcessRecord
	seq     uint64
}

func NewProcessTable(src CounterSource, opts Options) *ProcessTable {
	return &ProcessTable{
		src:     src,
		opts:    opts.normalize(),
		records: make(map[int]*ProcessRecord),
	}
}

func (t *ProcessTable) Len() int { return len(t.records) }

func (t *ProcessTable) lookup(pid int) (*ProcessRecord, bool) {
	r, ok := t.records[pid]
	return r, ok
}

// Reconcile brings the table in line with livePids and recomputes every
// record's utilization. Records for pids that stay live keep their identity
// and previous sample; new pids get a cold-start record; pids that are gone
// are dropped. The result is ordered by descending utilization, ties by the
// order in which pids were first tracked.
func (t *ProcessTable) Reconcile(livePids []int) []*ProcessRecord {
	live := dedupeSorted(livePids)

	alive := make(map[int]struct{}, len(live))
	for _, pid := range live {
		alive[pid] = struct{}{}
	}
	for pid := range t.records {
		if _, ok := alive[pid]; !ok {
			delete(t.records, pid)
		}
	}

	var pending []*ProcessRecord
	for _, pid := range live {
		r, ok := t.records[pid]
		if !ok {
			r = t.track(pid)
		}
		if !r.staticLoaded {
			pending = append(pending, r)
		}
	}
	t.loadStatic(pending)

	records := make([]*ProcessRecord, 0, len(live))
	for _, pid := range live {
		records = append(records, t.records[pid])
	}
	t.refresh(records)

	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Utilization != records[j].Utilization {
			return records[i].Utilization > records[j].Utilization
		}
		return records[i].seq < records[j].seq
	})
	return records
}

func (t *ProcessTable) track(pid int) *ProcessRecord {
	t.seq++
	r := &ProcessRecord{Pid: pid, seq: t.seq}
	t.records[pid] = r
	return r
}

func (t *ProcessTable) loadStatic(pending []*ProcessRecord) {
	if len(pending) == 0 {
		return
	}
	statics := make([]ProcessStatic, len(pending))
	errs := make([]error, len(pending))
	g := new(errgroup.Group)
	g.SetLimit(t.opts.Workers)
	for i, r := range pending {
		i, r := i, r
		g.Go(func() error {
			statics[i], errs[i] = t.src.ProcessStatic(r.Pid)
			return nil
		})
	}
	_ = g.Wait()

	for i, r := range pending {
		if errs[i] != nil {
			// retried on the next refresh while the pid stays live
			t.opts.Logger.Debugf("pid %d: static attributes unavailable: %v", r.Pid, errs[i])
			continue
		}
		r.User = statics[i].User
		r.Command = statics[i].Command
		r.StartOffsetSeconds = statics[i].StartOffsetSeconds
		r.staticLoaded = true
	}
}

type procReading struct {
	cpu    CounterSample
	cpuErr error
	memKB  uint64
	memErr error
}

func (t *ProcessTable) refresh(records []*ProcessRecord) {
	readings := make([]procReading, len(records))
	g := new(errgroup.Group)
	g.SetLimit(t.opts.Workers)
	for i, r := range records {
		i, r := i, r
		g.Go(func() error {
			rd := &readings[i]
			var ticks uint64
			ticks, rd.cpuErr = t.src.ProcessCPUTicks(r.Pid)
			rd.cpu = CounterSample{Value: ticks, Timestamp: t.opts.Clock()}
			rd.memKB, rd.memErr = t.src.ProcessMemory(r.Pid)
			return nil
		})
	}
	_ = g.Wait()

	for i, r := range records {
		rd := readings[i]
		if rd.memErr != nil {
			r.MemKB = 0
		} else {
			r.MemKB = rd.memKB
		}
		if rd.cpuErr != nil {
			t.opts.Logger.Debugf("pid %d: cpu ticks unavailable: %v", r.Pid, rd.cpuErr)
			r.Utilization = 0
			continue
		}
		if r.LastCPU != nil && rd.cpu.Value < r.LastCPU.Value {
			// counters never decrease for one process, so the pid was reused
			t.opts.Logger.Debugf("pid %d: tick counter went backwards, treating as a new process", r.Pid)
			r = t.replace(r)
			records[i] = r
		}
		r.Utilization = Estimate(r.LastCPU, rd.cpu, t.opts.TickScale)
		sample := rd.cpu
		r.LastCPU = &sample
	}
}

// replace swaps a record for a fresh cold-start one under the same pid.
func (t *ProcessTable) replace(old *ProcessRecord) *ProcessRecord {
	r := t.track(old.Pid)
	r.MemKB = old.MemKB
	t.loadStatic([]*ProcessRecord{r})
	return r
}

func dedupeSorted(pids []int) []int {
	out := append([]int(nil), pids...)
	sort.Ints(out)
	n := 0
	for i, pid := range out {
		if i > 0 && pid == out[n-1] {
			continue
		}
		out[n] = pid
		n++
	}
	return out[:n]
}
