package bridge

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-integra/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-integra/internal/satel"
)

// Health status values published on graylogic/health/integra.
const (
	HealthHealthy  = "healthy"
	HealthDegraded = "degraded"
	HealthOffline  = "offline"
	HealthStarting = "starting"
	HealthStopping = "stopping"
)

// HealthStats is the statistics block of a health report.
type HealthStats struct {
	FramesTx     uint64 `json:"frames_tx"`
	FramesRx     uint64 `json:"frames_rx"`
	PushesRx     uint64 `json:"pushes_rx"`
	Timeouts     uint64 `json:"timeouts"`
	Rejections   uint64 `json:"rejections"`
	DecodeErrors uint64 `json:"decode_errors"`
	QueueDepth   int    `json:"queue_depth"`
	Reconnects   uint64 `json:"reconnects"`
	CommandsOK   uint64 `json:"commands_ok"`
	CommandsFail uint64 `json:"commands_fail"`
}

// HealthMessage is the periodic health report.
type HealthMessage struct {
	Status         string      `json:"status"`
	Timestamp      time.Time   `json:"timestamp"`
	UptimeSeconds  int64       `json:"uptime_seconds"`
	PanelConnected bool        `json:"panel_connected"`
	MQTTConnected  bool        `json:"mqtt_connected"`
	Stats          HealthStats `json:"stats"`
}

// HealthPublisher is the MQTT surface the reporter needs.
type HealthPublisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	IsConnected() bool
}

// PanelStatus is the panel surface the reporter needs.
type PanelStatus interface {
	IsConnected() bool
	Stats() satel.Stats
	TransportStats() satel.TransportStats
}

// HealthReporter publishes periodic health reports for the bridge.
//
// Reports go to graylogic/health/integra as retained QoS 1 messages so
// late subscribers immediately see the last known state. The broker's
// LWT replaces the report with an offline payload if the bridge dies
// without publishing HealthStopping.
type HealthReporter struct {
	publisher HealthPublisher
	panel     PanelStatus
	interval  time.Duration
	logger    Logger

	startedAt time.Time

	mu           sync.Mutex
	commandsOK   uint64
	commandsFail uint64

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewHealthReporter builds a reporter. Interval defaults to 30 seconds.
func NewHealthReporter(publisher HealthPublisher, panel PanelStatus, interval time.Duration, logger Logger) *HealthReporter {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &HealthReporter{
		publisher: publisher,
		panel:     panel,
		interval:  interval,
		logger:    logger,
		startedAt: time.Now(),
		done:      make(chan struct{}),
	}
}

// Start publishes an initial report and begins the periodic loop.
func (h *HealthReporter) Start() {
	h.publish(h.determineStatus())
	h.wg.Add(1)
	go h.reportLoop()
}

// Stop publishes a final stopping report and halts the loop.
func (h *HealthReporter) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
		h.wg.Wait()
		h.publish(HealthStopping)
	})
}

// RecordCommand counts a command outcome for the statistics block.
func (h *HealthReporter) RecordCommand(ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ok {
		h.commandsOK++
	} else {
		h.commandsFail++
	}
}

// Report publishes an immediate report outside the periodic schedule,
// used after connection state changes.
func (h *HealthReporter) Report() {
	h.publish(h.determineStatus())
}

func (h *HealthReporter) reportLoop() {
	defer h.wg.Done()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.done:
			return
		case <-ticker.C:
			h.publish(h.determineStatus())
		}
	}
}

// determineStatus derives the overall status from both links. The
// bridge is degraded while either side is down and offline when both
// are.
func (h *HealthReporter) determineStatus() string {
	mqttUp := h.publisher.IsConnected()
	panelUp := h.panel.IsConnected()

	switch {
	case mqttUp && panelUp:
		return HealthHealthy
	case !mqttUp && !panelUp:
		return HealthOffline
	default:
		return HealthDegraded
	}
}

func (h *HealthReporter) publish(status string) {
	stats := h.panel.Stats()
	tstats := h.panel.TransportStats()

	h.mu.Lock()
	ok, fail := h.commandsOK, h.commandsFail
	h.mu.Unlock()

	msg := HealthMessage{
		Status:         status,
		Timestamp:      time.Now().UTC(),
		UptimeSeconds:  int64(time.Since(h.startedAt).Seconds()),
		PanelConnected: h.panel.IsConnected(),
		MQTTConnected:  h.publisher.IsConnected(),
		Stats: HealthStats{
			FramesTx:     stats.FramesTx,
			FramesRx:     stats.FramesRx,
			PushesRx:     stats.PushesRx,
			Timeouts:     stats.Timeouts,
			Rejections:   stats.Rejections,
			DecodeErrors: stats.DecodeErrors,
			QueueDepth:   stats.QueueDepth,
			Reconnects:   tstats.ReconnectsTotal,
			CommandsOK:   ok,
			CommandsFail: fail,
		},
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		if h.logger != nil {
			h.logger.Error("failed to marshal health report", "error", err)
		}
		return
	}

	if err := h.publisher.Publish(mqtt.Topics{}.Health(), payload, 1, true); err != nil {
		if h.logger != nil {
			h.logger.Debug("failed to publish health report", "error", err)
		}
	}
}
