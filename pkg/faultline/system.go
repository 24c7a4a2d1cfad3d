// system.go captures host state at error time for the server block of a notice.

package faultline

import (
	"os"
	"runtime"
	"time"
)

// CaptureSystemState samples process metrics. start is used to calculate uptime.
func CaptureSystemState(start time.Time) *SystemState {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	hostname, _ := os.Hostname() // an empty hostname is acceptable

	uptimeMs := time.Since(start).Milliseconds()
	if uptimeMs < 0 {
		uptimeMs = 0
	}

	return &SystemState{
		Hostname:       hostname,
		PID:            os.Getpid(),
		GoVersion:      runtime.Version(),
		MemoryBytes:    int64(memStats.Alloc),
		GoroutineCount: runtime.NumGoroutine(),
		UptimeMs:       uptimeMs,
	}
}
