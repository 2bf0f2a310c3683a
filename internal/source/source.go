// Package source provides CounterSource implementations backed by the host's
// process accounting.
package source

import (
	"errors"
	"fmt"
	"math"
	"os/user"
	"runtime"
	"sync"

	"github.com/jeffypooo/proctop/internal/metrics"
)

const (
	KindGopsutil = "gopsutil"
	KindProcfs   = "procfs"
)

var ErrUnknownSource = errors.New("unknown counter source")

// DefaultKind is procfs on Linux, where it reports children's CPU time, and
// gopsutil elsewhere.
func DefaultKind() string {
	if runtime.GOOS == "linux" {
		return KindProcfs
	}
	return KindGopsutil
}

type Options struct {
	Kind string
	// ProcRoot is the procfs mount point. Only the procfs source uses it.
	ProcRoot string
	// TickScale converts the seconds reported by the libraries back into
	// kernel ticks.
	TickScale float64
}

func New(opts Options) (metrics.CounterSource, error) {
	if opts.TickScale <= 0 {
		opts.TickScale = metrics.DefaultTickScale
	}
	if opts.Kind == "" {
		opts.Kind = DefaultKind()
	}
	switch opts.Kind {
	case KindGopsutil:
		return NewGopsutil(opts.TickScale), nil
	case KindProcfs:
		return NewProcfs(opts.ProcRoot, opts.TickScale)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSource, opts.Kind)
}

func secondsToTicks(seconds, tickScale float64) uint64 {
	if seconds <= 0 {
		return 0
	}
	return uint64(math.Round(seconds * tickScale))
}

// userCache maps uids to login names. Unknown uids resolve to the uid itself.
type userCache struct {
	mu     sync.Mutex
	names  map[string]string
	lookup func(uid string) (string, error)
}

func newUserCache() *userCache {
	return &userCache{
		names: make(map[string]string),
		lookup: func(uid string) (string, error) {
			u, err := user.LookupId(uid)
			if err != nil {
				return "", err
			}
			return u.Username, nil
		},
	}
}

func (c *userCache) name(uid string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n, ok := c.names[uid]; ok {
		return n
	}
	n, err := c.lookup(uid)
	if err != nil || n == "" {
		n = uid
	}
	c.names[uid] = n
	return n
}
