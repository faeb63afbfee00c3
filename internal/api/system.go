package api

import (
	"net/http"
	"runtime"
	"time"
)

// SystemInfo describes the running build.
type SystemInfo struct {
	Version       string `json:"version"`
	Commit        string `json:"commit,omitempty"`
	BuildDate     string `json:"build_date,omitempty"`
	GoVersion     string `json:"go_version"`
	StartedAt     string `json:"started_at"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// handleSystemInfo returns build and uptime information.
func (s *Server) handleSystemInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, SystemInfo{
		Version:       s.version,
		Commit:        s.commit,
		BuildDate:     s.buildDate,
		GoVersion:     runtime.Version(),
		StartedAt:     s.startTime.Format(time.RFC3339),
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
	})
}
