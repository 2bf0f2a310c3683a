// Package web renders snapshots as HTML for the browser view. The
// components are written in .templ files; run `mage generate` after editing
// them.
package web

import (
	"fmt"

	"github.com/jeffypooo/proctop/internal/metrics"
)

// ElapsedTime formats seconds as HH:MM:SS. Hours are not wrapped at 24.
func ElapsedTime(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := seconds % 3600 / 60
	s := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func percent(fraction float64) string {
	return fmt.Sprintf("%.1f%%", fraction*100)
}

// memory formats kB with a binary unit suffix.
func memory(kb uint64) string {
	switch {
	case kb >= 1<<20:
		return fmt.Sprintf("%.1f GiB", float64(kb)/(1<<20))
	case kb >= 1<<10:
		return fmt.Sprintf("%.1f MiB", float64(kb)/(1<<10))
	}
	return fmt.Sprintf("%d KiB", kb)
}

func memoryLine(m metrics.MemUsage) string {
	used := m.TotalKB - min(m.FreeKB, m.TotalKB)
	return fmt.Sprintf("%s of %s (%s)", memory(used), memory(m.TotalKB), percent(m.Utilization))
}
