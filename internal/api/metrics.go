package api

import (
	"net/http"
	"runtime"
	"time"
)

// SystemMetrics represents the complete system metrics response.
type SystemMetrics struct {
	Timestamp     string          `json:"timestamp"`
	Version       string          `json:"version"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	Runtime       RuntimeMetrics  `json:"runtime"`
	WebSocket     WSMetrics       `json:"websocket"`
	MQTT          MQTTMetrics     `json:"mqtt"`
	Panel         PanelMetrics    `json:"panel"`
	Journal       JournalMetrics  `json:"journal"`
	Database      DatabaseMetrics `json:"database"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// WSMetrics contains WebSocket hub statistics.
type WSMetrics struct {
	ConnectedClients int `json:"connected_clients"`
}

// MQTTMetrics contains MQTT client statistics.
type MQTTMetrics struct {
	Connected bool `json:"connected"`
}

// PanelMetrics contains protocol engine and transport statistics.
type PanelMetrics struct {
	Connected    bool   `json:"connected"`
	Reconnecting bool   `json:"reconnecting"`
	FramesTx     uint64 `json:"frames_tx"`
	FramesRx     uint64 `json:"frames_rx"`
	PushesRx     uint64 `json:"pushes_rx"`
	ResponsesRx  uint64 `json:"responses_rx"`
	Timeouts     uint64 `json:"timeouts"`
	Rejections   uint64 `json:"rejections"`
	DecodeErrors uint64 `json:"decode_errors"`
	QueueDepth   int    `json:"queue_depth"`
	BytesTx      uint64 `json:"bytes_tx"`
	BytesRx      uint64 `json:"bytes_rx"`
	Reconnects   uint64 `json:"reconnects"`
}

// JournalMetrics contains event journal statistics.
type JournalMetrics struct {
	TotalEvents int64 `json:"total_events"`
}

// DatabaseMetrics contains database connection pool statistics.
type DatabaseMetrics struct {
	OpenConnections int   `json:"open_connections"`
	InUse           int   `json:"in_use"`
	Idle            int   `json:"idle"`
	WaitCount       int64 `json:"wait_count"`
}

// handleMetrics returns comprehensive system metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	stats := s.panel.Stats()
	tstats := s.panel.TransportStats()

	metrics := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		Panel: PanelMetrics{
			Connected:    s.panel.IsConnected(),
			Reconnecting: tstats.Reconnecting,
			FramesTx:     stats.FramesTx,
			FramesRx:     stats.FramesRx,
			PushesRx:     stats.PushesRx,
			ResponsesRx:  stats.ResponsesRx,
			Timeouts:     stats.Timeouts,
			Rejections:   stats.Rejections,
			DecodeErrors: stats.DecodeErrors,
			QueueDepth:   stats.QueueDepth,
			BytesTx:      tstats.BytesTx,
			BytesRx:      tstats.BytesRx,
			Reconnects:   tstats.ReconnectsTotal,
		},
	}

	if s.hub != nil {
		metrics.WebSocket = WSMetrics{ConnectedClients: s.hub.ClientCount()}
	}

	if s.mqtt != nil {
		metrics.MQTT = MQTTMetrics{Connected: s.mqtt.IsConnected()}
	}

	if total, err := s.journal.Count(r.Context()); err == nil {
		metrics.Journal = JournalMetrics{TotalEvents: total}
	}

	if s.db != nil {
		dbStats := s.db.Stats()
		metrics.Database = DatabaseMetrics{
			OpenConnections: dbStats.OpenConnections,
			InUse:           dbStats.InUse,
			Idle:            dbStats.Idle,
			WaitCount:       dbStats.WaitCount,
		}
	}

	writeJSON(w, http.StatusOK, metrics)
}
