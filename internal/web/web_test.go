package web

import (
	"context"
	"strings"
	"testing"

	"github.com/jeffypooo/proctop/internal/metrics"
)

func TestElapsedTime(t *testing.T) {
	tests := []struct {
		seconds int64
		want    string
	}{
		{0, "00:00:00"},
		{59, "00:00:59"},
		{3661, "01:01:01"},
		{90000, "25:00:00"},
		{-4, "00:00:00"},
	}
	for _, tt := range tests {
		if got := ElapsedTime(tt.seconds); got != tt.want {
			t.Fatalf("ElapsedTime(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestSnapshotDisplayEscapes(t *testing.T) {
	snap := metrics.Snapshot{
		Host:          metrics.HostInfo{OS: "debian 12", Kernel: "6.1.0"},
		CpuUsage:      metrics.CpuUsage{Utilization: 0.25},
		MemUsage:      metrics.MemUsage{TotalKB: 2 << 20, FreeKB: 1 << 20, Utilization: 0.5},
		UptimeSeconds: 3661,
		ProcessCount:  1,
	}
	procs := []metrics.Process{{Pid: 7, User: "root", Command: "sh -c '<b>x</b>'", CpuUsage: 0.5, MemKB: 2048, UptimeSeconds: 61}}

	var buf strings.Builder
	if err := SnapshotDisplay(snap, procs).Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render: %v", err)
	}
	html := buf.String()
	for _, want := range []string{"25.0%", "01:01:01", "00:01:01", "2.0 MiB", "1.0 GiB of 2.0 GiB", "&lt;b&gt;x&lt;/b&gt;", "6.1.0"} {
		if !strings.Contains(html, want) {
			t.Fatalf("rendered HTML missing %q:\n%s", want, html)
		}
	}
	if strings.Contains(html, "<b>x</b>") {
		t.Fatalf("command not escaped")
	}
}

func TestSnapshotDisplayProcessCounts(t *testing.T) {
	tests := []struct {
		name string
		snap metrics.Snapshot
		want []string
	}{
		{"counts", metrics.Snapshot{RunningProcesses: 3, TotalProcesses: 4123}, []string{"<dt>Running Processes</dt><dd>3</dd>", "<dt>Total Processes</dt><dd>4123</dd>"}},
		{"unavailable", metrics.Snapshot{}, []string{"<dt>Running Processes</dt><dd>0</dd>", "<dt>Total Processes</dt><dd>0</dd>"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf strings.Builder
			if err := SnapshotDisplay(tt.snap, nil).Render(context.Background(), &buf); err != nil {
				t.Fatalf("Render: %v", err)
			}
			html := buf.String()
			for _, want := range tt.want {
				if !strings.Contains(html, want) {
					t.Fatalf("rendered HTML missing %q:\n%s", want, html)
				}
			}
			if strings.Contains(html, "<dt>OS</dt>") {
				t.Fatalf("OS row rendered without host info")
			}
		})
	}
}

func TestIndex(t *testing.T) {
	var buf strings.Builder
	if err := Index("2s", "<5>").Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render: %v", err)
	}
	html := buf.String()
	if !strings.Contains(html, "/api/snapshot/sse") || !strings.Contains(html, "&lt;5&gt;") {
		t.Fatalf("unexpected index page:\n%s", html)
	}
}
