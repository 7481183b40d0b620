// system.go captures host and runtime state at capture time.

package xrayradar

import (
	"os"
	"runtime"
	"time"
)

// hostname is swapped in tests to simulate lookup failures.
var hostname = os.Hostname

// resolveServerName returns the local hostname, or "unknown" if it cannot be determined.
func resolveServerName() string {
	name, err := hostname()
	if err != nil || name == "" {
		return unknownServerName
	}
	return name
}

// RuntimeContext captures process metrics at the current moment.
// The startTime parameter is used to calculate process uptime.
func RuntimeContext(startTime time.Time) map[string]any {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	uptimeMs := time.Since(startTime).Milliseconds()
	if uptimeMs < 0 {
		uptimeMs = 0
	}

	return map[string]any{
		"name":         "go",
		"version":      runtime.Version(),
		"os":           runtime.GOOS,
		"arch":         runtime.GOARCH,
		"goroutines":   runtime.NumGoroutine(),
		"memory_bytes": int64(memStats.Alloc),
		"uptime_ms":    uptimeMs,
	}
}
