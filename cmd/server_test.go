package main

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jeffypooo/proctop/internal/config"
	"github.com/jeffypooo/proctop/internal/metrics"
)

type staticSource struct {
	mu    sync.Mutex
	ticks map[int]uint64
}

func newStaticSource() *staticSource {
	return &staticSource{ticks: map[int]uint64{1: 0, 2: 0, 3: 0}}
}

func (s *staticSource) LivePids() ([]int, error) { return []int{1, 2, 3}, nil }

func (s *staticSource) SystemCPUTicks() (metrics.CPUTicks, error) {
	return metrics.CPUTicks{User: 10, Idle: 90}, nil
}

func (s *staticSource) ProcessCPUTicks(pid int) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ticks[pid] += uint64(pid)
	return s.ticks[pid], nil
}

func (s *staticSource) MemoryTotals() (metrics.MemoryTotals, error) {
	return metrics.MemoryTotals{TotalKB: 1000, FreeKB: 250}, nil
}

func (s *staticSource) UptimeSeconds() (int64, error) { return 3600, nil }

func (s *staticSource) ProcessStatic(pid int) (metrics.ProcessStatic, error) {
	return metrics.ProcessStatic{User: "user", Command: "cmd-" + string(rune('a'+pid-1))}, nil
}

func (s *staticSource) ProcessMemory(pid int) (uint64, error) { return uint64(pid * 100), nil }

func testConfig() config.Config {
	return config.Normalize(config.Config{LogLevel: "off", Interval: 10 * time.Millisecond})
}

func TestAPISnapshot(t *testing.T) {
	e := newServer(testConfig(), newStaticSource())

	req := httptest.NewRequest(http.MethodGet, "/api/snapshot?sort=mem&dir=asc&limit=2", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rec.Code, rec.Body.String())
	}
	var snap metrics.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.MemUsage.Utilization != 0.75 || snap.ProcessCount != 3 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if len(snap.Processes) != 2 || snap.Processes[0].Pid != 1 || snap.Processes[1].Pid != 2 {
		t.Fatalf("unexpected processes: %+v", snap.Processes)
	}
}

func TestAPISnapshotBadParams(t *testing.T) {
	e := newServer(testConfig(), newStaticSource())
	for _, q := range []string{"sort=name", "dir=up", "limit=0", "limit=x"} {
		req := httptest.NewRequest(http.MethodGet, "/api/snapshot?"+q, nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: status %d", q, rec.Code)
		}
	}
}

func TestRootHandler(t *testing.T) {
	e := newServer(testConfig(), newStaticSource())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "top 10") {
		t.Fatalf("default limit not rendered: %s", rec.Body.String())
	}
}

func TestSSEStream(t *testing.T) {
	srv := httptest.NewServer(newServer(testConfig(), newStaticSource()))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/snapshot/sse?interval=10ms&limit=1&sort=mem", nil)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type: %q", ct)
	}

	events := 0
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "event: metrics" {
			events++
			if !scanner.Scan() {
				break
			}
			data := scanner.Text()
			if !strings.HasPrefix(data, "data: ") || !strings.Contains(data, "<table") {
				t.Fatalf("unexpected data line: %q", data)
			}
			if events == 2 {
				// limit=1 keeps only the largest process by memory
				if !strings.Contains(data, "cmd-c") || strings.Contains(data, "cmd-a") {
					t.Fatalf("unexpected rows: %q", data)
				}
				cancel()
				return
			}
		}
	}
	t.Fatalf("stream ended after %d metrics events: %v", events, scanner.Err())
}

func TestParseInterval(t *testing.T) {
	tests := []struct {
		raw     string
		want    time.Duration
		wantErr bool
	}{
		{"", time.Second, false},
		{"500ms", 500 * time.Millisecond, false},
		{"2s", 2 * time.Second, false},
		{"1.5", 1500 * time.Millisecond, false},
		{"0", 0, true},
		{"-1s", 0, true},
		{"soon", 0, true},
	}
	for _, tt := range tests {
		got, err := parseInterval(tt.raw, time.Second)
		if (err != nil) != tt.wantErr {
			t.Fatalf("parseInterval(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
		}
		if !tt.wantErr && got != tt.want {
			t.Fatalf("parseInterval(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}
