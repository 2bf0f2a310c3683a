package metrics

import (
	"context"
	"testing"
	"time"
)

func TestStream(t *testing.T) {
	src := newFakeSource()
	src.pids = []int{1}
	opts := testOptions(newFakeClock())
	s := NewSampler(src, opts)

	ctx, cancel := context.WithCancel(context.Background())
	ch := s.Stream(ctx, 5*time.Millisecond)

	for i := 0; i < 2; i++ {
		select {
		case snap, ok := <-ch:
			if !ok {
				t.Fatalf("stream closed early")
			}
			if len(snap.Processes) != 1 {
				t.Fatalf("snapshot %d: unexpected processes %+v", i, snap.Processes)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for snapshot %d", i)
		}
	}

	cancel()
	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatalf("stream not closed after cancel")
		}
	}
}
