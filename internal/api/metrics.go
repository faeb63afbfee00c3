package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/breezehub/breeze-core/internal/fan"
)

// SystemMetrics is the body served by the system metrics endpoint, a
// point-in-time snapshot of process and component counters.
type SystemMetrics struct {
	Timestamp     string          `json:"timestamp"`
	Version       string          `json:"version"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	Runtime       RuntimeMetrics  `json:"runtime"`
	WebSocket     WSMetrics       `json:"websocket"`
	MQTT          MQTTMetrics     `json:"mqtt"`
	Bridge        *BridgeMetrics  `json:"bridge,omitempty"`
	Fans          FanMetrics      `json:"fans"`
	Database      DatabaseMetrics `json:"database"`
	InfluxDB      InfluxMetrics   `json:"influxdb"`
}

// RuntimeMetrics reports Go runtime counters.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// WSMetrics reports WebSocket hub occupancy.
type WSMetrics struct {
	ConnectedClients int `json:"connected_clients"`
}

// MQTTMetrics reports broker connectivity.
type MQTTMetrics struct {
	Connected bool `json:"connected"`
}

// BridgeMetrics mirrors the bridge's own counters. Present only when a
// bridge is wired in.
type BridgeMetrics struct {
	Connected      bool `json:"connected"`
	FansManaged    int  `json:"fans_managed"`
	SensorsWatched int  `json:"sensors_watched"`
}

// FanMetrics tallies registry entities by running state.
type FanMetrics struct {
	Total    int `json:"total"`
	On       int `json:"on"`
	Off      int `json:"off"`
	ByRemote int `json:"on_by_remote"`
}

// DatabaseMetrics exposes the SQLite connection pool counters.
type DatabaseMetrics struct {
	OpenConnections int   `json:"open_connections"`
	InUse           int   `json:"in_use"`
	Idle            int   `json:"idle"`
	WaitCount       int64 `json:"wait_count"`
}

// InfluxMetrics reports telemetry writer connectivity.
type InfluxMetrics struct {
	Connected bool `json:"connected"`
}

// handleSystemMetrics gathers counters from every wired component and
// serves them in one response.
func (s *Server) handleSystemMetrics(w http.ResponseWriter, _ *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	metrics := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(mem.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(mem.TotalAlloc) / 1024 / 1024,
			NumGC:         mem.NumGC,
		},
	}

	// Hub exists only after Start; the metrics route is reachable before
	// that in tests which call buildRouter directly.
	if s.hub != nil {
		metrics.WebSocket = WSMetrics{ConnectedClients: s.hub.ClientCount()}
	}

	if s.mqtt != nil {
		metrics.MQTT = MQTTMetrics{Connected: s.mqtt.IsConnected()}
	}

	if s.bridgeMetrics != nil {
		stats := s.bridgeMetrics.GetMetrics()
		metrics.Bridge = &BridgeMetrics{
			Connected:      stats.Connected,
			FansManaged:    stats.FansManaged,
			SensorsWatched: stats.SensorsWatched,
		}
	}

	metrics.Fans = s.collectFanMetrics()

	if s.db != nil {
		pool := s.db.Stats()
		metrics.Database = DatabaseMetrics{
			OpenConnections: pool.OpenConnections,
			InUse:           pool.InUse,
			Idle:            pool.Idle,
			WaitCount:       pool.WaitCount,
		}
	}

	if s.influx != nil {
		metrics.InfluxDB = InfluxMetrics{Connected: s.influx.IsConnected()}
	}

	writeJSON(w, http.StatusOK, metrics)
}

// collectFanMetrics counts fans by running state.
func (s *Server) collectFanMetrics() FanMetrics {
	entities := s.registry.List()
	counts := FanMetrics{Total: len(entities)}
	for _, entity := range entities {
		snap := entity.Snapshot()
		if snap.State == fan.StateOn {
			counts.On++
		} else {
			counts.Off++
		}
		if snap.OnByRemote {
			counts.ByRemote++
		}
	}
	return counts
}
