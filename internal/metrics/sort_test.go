package metrics

import "testing"

func TestArrange(t *testing.T) {
	procs := []Process{
		{Pid: 3, Command: "b", CpuUsage: 0.7, MemKB: 10},
		{Pid: 1, Command: "c", CpuUsage: 0.3, MemKB: 30},
		{Pid: 2, Command: "a", CpuUsage: 0.3, MemKB: 20},
	}

	tests := []struct {
		name  string
		by    ProcSort
		dir   SortDirection
		limit int
		want  []int
	}{
		{"cpu desc keeps ties in place", ProcSortCpu, SortDirectionDesc, 0, []int{3, 1, 2}},
		{"cpu asc", ProcSortCpu, SortDirectionAsc, 0, []int{1, 2, 3}},
		{"mem desc", ProcSortMem, SortDirectionDesc, 0, []int{1, 2, 3}},
		{"pid asc", ProcSortPid, SortDirectionAsc, 0, []int{1, 2, 3}},
		{"command asc", ProcSortCommand, SortDirectionAsc, 0, []int{2, 3, 1}},
		{"limit", ProcSortPid, SortDirectionDesc, 2, []int{3, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Arrange(procs, tt.by, tt.dir, tt.limit)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d processes, want %d", len(got), len(tt.want))
			}
			for i, pid := range tt.want {
				if got[i].Pid != pid {
					t.Fatalf("position %d: got pid %d, want %d", i, got[i].Pid, pid)
				}
			}
		})
	}

	if procs[0].Pid != 3 || procs[1].Pid != 1 {
		t.Fatalf("Arrange modified its input")
	}
}

func TestParseProcSort(t *testing.T) {
	if s, ok := ParseProcSort("mem"); !ok || s != ProcSortMem {
		t.Fatalf("mem not parsed")
	}
	if _, ok := ParseProcSort("name"); ok {
		t.Fatalf("unknown key accepted")
	}
	if d, ok := ParseSortDirection("asc"); !ok || d != SortDirectionAsc {
		t.Fatalf("asc not parsed")
	}
	if _, ok := ParseSortDirection("up"); ok {
		t.Fatalf("unknown direction accepted")
	}
}
