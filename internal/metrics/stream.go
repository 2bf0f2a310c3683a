package metrics

import (
	"context"
	"time"
)

// Stream samples immediately and then once per interval until ctx is done.
// The channel is closed when the loop exits.
func (s *Sampler) Stream(ctx context.Context, interval time.Duration) <-chan Snapshot {
	ch := make(chan Snapshot)
	go func() {
		defer close(ch)

		select {
		case ch <- s.Sample():
		case <-ctx.Done():
			return
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				select {
				case ch <- s.Sample():
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return ch
}
