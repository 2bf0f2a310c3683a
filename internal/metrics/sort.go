package metrics

import "sort"

type SortDirection string

const (
	SortDirectionAsc  SortDirection = "asc"
	SortDirectionDesc SortDirection = "desc"
)

type ProcSort string

const (
	ProcSortCpu     ProcSort = "cpu"
	ProcSortMem     ProcSort = "mem"
	ProcSortPid     ProcSort = "pid"
	ProcSortCommand ProcSort = "command"
)

func ParseProcSort(s string) (ProcSort, bool) {
	switch ProcSort(s) {
	case ProcSortCpu, ProcSortMem, ProcSortPid, ProcSortCommand:
		return ProcSort(s), true
	}
	return "", false
}

func ParseSortDirection(s string) (SortDirection, bool) {
	switch SortDirection(s) {
	case SortDirectionAsc, SortDirectionDesc:
		return SortDirection(s), true
	}
	return "", false
}

// Arrange returns a re-ordered copy of procs truncated to limit (limit <= 0
// keeps everything). The sort is stable, so equal keys keep the snapshot's
// canonical order. procs itself is not modified.
func Arrange(procs []Process, by ProcSort, dir SortDirection, limit int) []Process {
	out := append([]Process(nil), procs...)
	less := func(i, j int) bool {
		switch by {
		case ProcSortMem:
			return out[i].MemKB < out[j].MemKB
		case ProcSortPid:
			return out[i].Pid < out[j].Pid
		case ProcSortCommand:
			return out[i].Command < out[j].Command
		default:
			return out[i].CpuUsage < out[j].CpuUsage
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if dir == SortDirectionAsc {
			return less(i, j)
		}
		return less(j, i)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
