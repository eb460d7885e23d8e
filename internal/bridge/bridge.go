package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-integra/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-integra/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-integra/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-integra/internal/journal"
	"github.com/nerrad567/gray-logic-integra/internal/satel"
)

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// MQTTClient is the broker surface the bridge needs.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	IsConnected() bool
}

// PanelClient is the protocol engine surface the bridge needs.
// *satel.Client satisfies it. A nil-predicate WaitFor reduces to
// submit-and-wait, which is all the bridge needs for plain reads.
type PanelClient interface {
	WaitFor(ctx context.Context, pred satel.Predicate, cmd *satel.Command, timeout time.Duration) (satel.Status, error)
	Subscribe(callback func(satel.Status))
	SetOnStateChange(callback func(satel.ConnState))
	CurrentSnapshot() *satel.Snapshot
	IsConnected() bool
	Stats() satel.Stats
	TransportStats() satel.TransportStats
}

// Options configures a Bridge.
type Options struct {
	// Config supplies panel credentials, MQTT QoS, and poll settings.
	// Required.
	Config *config.Config

	// MQTT carries commands in and state out. Required.
	MQTT MQTTClient

	// Panel is the protocol engine. Required.
	Panel PanelClient

	// Journal records alarm, arming, trouble, command, and connection
	// events. Optional.
	Journal journal.Repository

	// History receives temperature readings and state counts. Optional.
	History *influxdb.Client

	// Logger is optional.
	Logger Logger

	// HealthInterval sets the health report period. Default 30 seconds.
	HealthInterval time.Duration

	// ConfirmTimeout bounds how long a command waits for the panel to
	// confirm its effect through a state push. Default 60 seconds,
	// which covers typical exit delays.
	ConfirmTimeout time.Duration
}

// Bridge connects the alarm panel to the MQTT bus.
//
// Inbound, it subscribes to graylogic/command/integra/# and executes
// commands against the panel, acknowledging each on the matching ack
// topic. Outbound, it mirrors every panel state change onto retained
// state topics, records notable changes in the journal, and forwards
// temperature readings to the history store.
type Bridge struct {
	cfg     *config.Config
	mqtt    MQTTClient
	panel   PanelClient
	journal journal.Repository
	history *influxdb.Client
	health  *HealthReporter
	logger  Logger

	confirmTimeout  time.Duration
	responseTimeout time.Duration

	// lastState caches the last published item list per category so
	// identical pushes are not republished.
	stateMu   sync.Mutex
	lastState map[string][]int

	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewBridge builds a bridge from its dependencies. The bridge does not
// touch the panel or the broker until Start.
func NewBridge(opts Options) (*Bridge, error) {
	if opts.Config == nil {
		return nil, errors.New("bridge: config is required")
	}
	if opts.MQTT == nil {
		return nil, errors.New("bridge: mqtt client is required")
	}
	if opts.Panel == nil {
		return nil, errors.New("bridge: panel client is required")
	}
	if opts.ConfirmTimeout <= 0 {
		opts.ConfirmTimeout = 60 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())

	b := &Bridge{
		cfg:             opts.Config,
		mqtt:            opts.MQTT,
		panel:           opts.Panel,
		journal:         opts.Journal,
		history:         opts.History,
		logger:          opts.Logger,
		confirmTimeout:  opts.ConfirmTimeout,
		responseTimeout: opts.Config.GetResponseTimeout(),
		lastState:       make(map[string][]int),
		ctx:             ctx,
		cancel:          cancel,
		done:            make(chan struct{}),
	}
	b.health = NewHealthReporter(opts.MQTT, opts.Panel, opts.HealthInterval, opts.Logger)
	return b, nil
}

// Start wires the callbacks, subscribes to the command topics, and
// begins the polling and health loops.
func (b *Bridge) Start() error {
	b.panel.Subscribe(b.handlePush)
	b.panel.SetOnStateChange(b.handleConnState)

	qos := byte(b.cfg.MQTT.QoS)
	if err := b.mqtt.Subscribe(mqtt.Topics{}.AllCommands(), qos, b.handleCommandMessage); err != nil {
		return fmt.Errorf("bridge: subscribe to commands: %w", err)
	}
	if err := b.mqtt.Subscribe(mqtt.Topics{}.AllRequests(), qos, b.handleRequestMessage); err != nil {
		return fmt.Errorf("bridge: subscribe to requests: %w", err)
	}

	if b.panel.IsConnected() {
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			b.resync("startup")
		}()
	}

	if len(b.cfg.Panel.TemperatureZones) > 0 && b.cfg.Panel.TemperaturePollInterval > 0 {
		b.wg.Add(1)
		go b.temperatureLoop()
	}

	b.health.Start()
	b.logInfo("bridge started",
		"command_topic", mqtt.Topics{}.AllCommands(),
		"temperature_zones", len(b.cfg.Panel.TemperatureZones))
	return nil
}

// Stop halts the loops and publishes a final health report. Safe to
// call more than once.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		b.cancel()
		close(b.done)
		b.wg.Wait()
		b.health.Stop()
		b.logInfo("bridge stopped")
	})
}

// ============================================================
// Panel → MQTT
// ============================================================

// handlePush receives every decoded status fragment from the panel.
func (b *Bridge) handlePush(st satel.Status) {
	switch st.Kind {
	case satel.StatusTemperature:
		b.publishTemperature(st.Zone, st.Temperature, st.TempValid)
	case satel.StatusResult, satel.StatusDeviceInfo, satel.StatusUnknown:
		// Correlation-only frames carry no state.
	default:
		b.publishState(st.Kind, st.Items, "push")
	}
}

// publishState publishes a retained state fragment if the item list
// changed since the last publish for that category.
func (b *Bridge) publishState(kind satel.StatusKind, items []int, source string) {
	name := kind.String()

	b.stateMu.Lock()
	prev, seen := b.lastState[name]
	if seen && equalItems(prev, items) {
		b.stateMu.Unlock()
		return
	}
	b.lastState[name] = append([]int(nil), items...)
	b.stateMu.Unlock()

	msg := NewStateMessage(name, items, source)
	payload, err := json.Marshal(msg)
	if err != nil {
		b.logError("failed to marshal state message", err, "kind", name)
		return
	}
	if err := b.mqtt.Publish(mqtt.Topics{}.State(name), payload, 1, true); err != nil {
		b.logError("failed to publish state", err, "kind", name)
	}

	if b.history != nil {
		b.history.WriteStateCount(name, len(items))
	}

	if category, notable := journalCategory(kind); notable && seen {
		b.recordEvent(category, name, items, "")
	}
}

// publishTemperature publishes a retained reading and forwards valid
// readings to the history store.
func (b *Bridge) publishTemperature(zone int, celsius float64, valid bool) {
	msg := TemperatureMessage{
		Zone:      zone,
		Celsius:   celsius,
		Valid:     valid,
		Timestamp: time.Now().UTC(),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		b.logError("failed to marshal temperature", err, "zone", zone)
		return
	}
	if err := b.mqtt.Publish(mqtt.Topics{}.Temperature(zone), payload, 1, true); err != nil {
		b.logError("failed to publish temperature", err, "zone", zone)
	}

	if valid && b.history != nil {
		b.history.WriteTemperature(zone, celsius)
	}
}

// journalCategory maps a state category to a journal category. Only
// alarm, arming, and trouble transitions are worth a journal entry;
// zone violations and door states churn constantly.
func journalCategory(kind satel.StatusKind) (journal.Category, bool) {
	switch kind {
	case satel.StatusZonesAlarm, satel.StatusZonesTamperAlarm,
		satel.StatusPartsAlarm, satel.StatusPartsFireAlarm:
		return journal.CategoryAlarm, true
	case satel.StatusPartsArmed:
		return journal.CategoryArming, true
	case satel.StatusTroubles:
		return journal.CategoryTrouble, true
	default:
		return "", false
	}
}

// recordEvent writes a journal entry and mirrors it onto the event
// topic.
func (b *Bridge) recordEvent(category journal.Category, kind string, numbers []int, detail string) {
	if b.journal != nil {
		ev := &journal.Event{
			OccurredAt: time.Now().UTC(),
			Category:   category,
			Kind:       kind,
			Numbers:    numbers,
			Detail:     detail,
		}
		if err := b.journal.Record(b.ctx, ev); err != nil {
			b.logError("failed to record journal event", err, "kind", kind)
		}
	}

	msg := NewEventMessage(string(category), kind, numbers, detail)
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	if err := b.mqtt.Publish(mqtt.Topics{}.Event(string(category)), payload, 1, false); err != nil {
		b.logDebug("failed to publish event", "category", category, "error", err)
	}
}

// ============================================================
// Connection lifecycle
// ============================================================

// handleConnState reacts to panel link transitions. A fresh connection
// triggers a resync so the snapshot and the retained topics catch up
// with whatever happened while the link was down.
func (b *Bridge) handleConnState(state satel.ConnState) {
	b.logInfo("panel connection state changed", "state", state.String())
	b.recordEvent(journal.CategoryConnection, "panel_"+state.String(), nil, "")
	b.health.Report()

	if state == satel.StateConnected {
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			b.resync("reconnect")
		}()
	}
}

// resync subscribes to spontaneous pushes after a (re)connect. The
// panel answers the subscription with a full set of current states, so
// the snapshot and the retained topics repopulate without extra reads.
func (b *Bridge) resync(reason string) {
	cmd, err := satel.StartMonitoring(satel.DefaultMonitoring())
	if err != nil {
		b.logError("failed to build monitoring subscription", err)
		return
	}
	if _, err := b.panel.WaitFor(b.ctx, nil, &cmd, b.responseTimeout); err != nil {
		b.logError("monitoring subscription failed", err, "reason", reason)
		return
	}
	b.logInfo("panel monitoring active", "reason", reason)
}

// temperatureLoop polls the configured zones at the configured
// interval. The first round runs shortly after start so the retained
// topics populate without waiting a full period.
func (b *Bridge) temperatureLoop() {
	defer b.wg.Done()

	interval := time.Duration(b.cfg.Panel.TemperaturePollInterval) * time.Second

	initial := time.NewTimer(5 * time.Second)
	defer initial.Stop()
	select {
	case <-b.done:
		return
	case <-initial.C:
		b.pollTemperatures()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-b.done:
			return
		case <-ticker.C:
			b.pollTemperatures()
		}
	}
}

func (b *Bridge) pollTemperatures() {
	if !b.panel.IsConnected() {
		return
	}
	for _, zone := range b.cfg.Panel.TemperatureZones {
		cmd, err := satel.ReadTemperature(zone)
		if err != nil {
			b.logError("invalid temperature zone", err, "zone", zone)
			continue
		}
		st, err := b.panel.WaitFor(b.ctx, nil, &cmd, b.responseTimeout)
		if err != nil {
			b.logDebug("temperature poll failed", "zone", zone, "error", err)
			continue
		}
		b.publishTemperature(st.Zone, st.Temperature, st.TempValid)
	}
}

// ============================================================
// MQTT → Panel
// ============================================================

// handleCommandMessage parses an inbound command and executes it in its
// own goroutine. Confirmation waits can span an exit delay, so blocking
// the MQTT router here is not an option.
func (b *Bridge) handleCommandMessage(topic string, payload []byte) error {
	action := topic[strings.LastIndexByte(topic, '/')+1:]

	var msg CommandMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		b.logWarn("malformed command payload", "topic", topic, "error", err)
		b.publishAck(NewErrorAck("", action, AckFailed, ErrCodeInvalidParameters, "malformed JSON payload"))
		return nil
	}
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.executeCommand(action, msg)
	}()
	return nil
}

// executeCommand runs one command against the panel and publishes the
// acknowledgement.
func (b *Bridge) executeCommand(action string, msg CommandMessage) {
	b.logInfo("executing command", "action", action, "command_id", msg.ID, "source", msg.Source)

	err := b.runAction(action, msg)
	if err != nil {
		status, code := classifyError(err)
		b.publishAck(NewErrorAck(msg.ID, action, status, code, err.Error()))
		b.health.RecordCommand(false)
		b.recordEvent(journal.CategoryCommand, action+"_failed", commandNumbers(action, msg), code)
		b.logWarn("command failed", "action", action, "command_id", msg.ID, "error", err)
		return
	}

	b.publishAck(NewAckMessage(msg.ID, action, AckAccepted))
	b.health.RecordCommand(true)
	b.recordEvent(journal.CategoryCommand, action, commandNumbers(action, msg), msg.Source)
}

// runAction dispatches one action. Arm, disarm, and output commands
// wait for the panel to confirm the effect through a state push, not
// just acknowledge the frame.
func (b *Bridge) runAction(action string, msg CommandMessage) error {
	switch action {
	case ActionArm:
		if len(msg.Partitions) == 0 {
			return fmt.Errorf("%w: arm needs at least one partition", satel.ErrEncoding)
		}
		cmd, err := satel.Arm(msg.Mode, b.cfg.Panel.UserCode, msg.Partitions)
		if err != nil {
			return err
		}
		_, err = b.panel.WaitFor(b.ctx, satel.PartitionsArmed(msg.Partitions...), &cmd, b.confirmTimeout)
		return err

	case ActionDisarm:
		if len(msg.Partitions) == 0 {
			return fmt.Errorf("%w: disarm needs at least one partition", satel.ErrEncoding)
		}
		cmd, err := satel.Disarm(b.cfg.Panel.UserCode, msg.Partitions)
		if err != nil {
			return err
		}
		_, err = b.panel.WaitFor(b.ctx, satel.PartitionsDisarmed(msg.Partitions...), &cmd, b.confirmTimeout)
		return err

	case ActionClearAlarm:
		if len(msg.Partitions) == 0 {
			return fmt.Errorf("%w: clear_alarm needs at least one partition", satel.ErrEncoding)
		}
		cmd, err := satel.ClearAlarm(b.cfg.Panel.UserCode, msg.Partitions)
		if err != nil {
			return err
		}
		return b.submitAndWait(cmd)

	case ActionOutputsOn, ActionOutputsOff:
		on := action == ActionOutputsOn
		if len(msg.Outputs) == 0 {
			return fmt.Errorf("%w: %s needs at least one output", satel.ErrEncoding, action)
		}
		cmd, err := satel.SetOutputs(on, b.cfg.Panel.UserCode, msg.Outputs)
		if err != nil {
			return err
		}
		_, err = b.panel.WaitFor(b.ctx, satel.OutputsSet(on, msg.Outputs...), &cmd, b.confirmTimeout)
		return err

	case ActionReadTemperature:
		cmd, err := satel.ReadTemperature(msg.Zone)
		if err != nil {
			return err
		}
		st, err := b.panel.WaitFor(b.ctx, nil, &cmd, b.responseTimeout)
		if err != nil {
			return err
		}
		b.publishTemperature(st.Zone, st.Temperature, st.TempValid)
		return nil

	case ActionReadState:
		b.republishSnapshot()
		return nil

	default:
		return fmt.Errorf("%w: unknown action %q", errUnknownAction, action)
	}
}

var errUnknownAction = errors.New("bridge: unknown action")

func (b *Bridge) submitAndWait(cmd satel.Command) error {
	_, err := b.panel.WaitFor(b.ctx, nil, &cmd, b.responseTimeout)
	return err
}

// republishSnapshot pushes the whole current snapshot back onto the
// retained state topics, bypassing the change cache.
func (b *Bridge) republishSnapshot() {
	view := b.panel.CurrentSnapshot().Export()

	b.stateMu.Lock()
	b.lastState = make(map[string][]int)
	b.stateMu.Unlock()

	for kind, entry := range view.States {
		msg := NewStateMessage(kind, entry.Items, "request")
		payload, err := json.Marshal(msg)
		if err != nil {
			continue
		}
		if err := b.mqtt.Publish(mqtt.Topics{}.State(kind), payload, 1, true); err != nil {
			b.logError("failed to republish state", err, "kind", kind)
		}
		b.stateMu.Lock()
		b.lastState[kind] = append([]int(nil), entry.Items...)
		b.stateMu.Unlock()
	}
	for _, r := range view.Temperatures {
		b.publishTemperature(r.Zone, r.Celsius, r.Valid)
	}
}

// ============================================================
// Read requests
// ============================================================

// handleRequestMessage answers a read request from the snapshot. No
// panel round trip happens here; a consumer that wants fresh data
// sends a read command instead.
func (b *Bridge) handleRequestMessage(topic string, payload []byte) error {
	query := topic[strings.LastIndexByte(topic, '/')+1:]

	var req RequestMessage
	if err := json.Unmarshal(payload, &req); err != nil {
		b.logWarn("malformed request payload", "topic", topic, "error", err)
		return nil
	}
	if req.ID == "" {
		req.ID = uuid.New().String()
	}

	b.publishResponse(b.answerRequest(query, req))
	return nil
}

// answerRequest resolves one query against the snapshot.
func (b *Bridge) answerRequest(query string, req RequestMessage) ResponseMessage {
	snap := b.panel.CurrentSnapshot()

	switch query {
	case QuerySnapshot:
		view := snap.Export()
		return NewResponseMessage(req.ID, map[string]any{
			"panel_connected": b.panel.IsConnected(),
			"states":          view.States,
			"temperatures":    view.Temperatures,
		})

	case QueryState:
		if req.Kind == "" {
			return NewErrorResponse(req.ID, "state request needs a kind")
		}
		view := snap.Export()
		entry, ok := view.States[req.Kind]
		if !ok {
			return NewErrorResponse(req.ID, "no state recorded for category "+req.Kind)
		}
		return NewResponseMessage(req.ID, map[string]any{
			"kind":  req.Kind,
			"items": entry.Items,
			"at":    entry.At,
		})

	case QueryTemperature:
		reading, ok := snap.Temperature(req.Zone)
		if !ok {
			return NewErrorResponse(req.ID, fmt.Sprintf("no reading for zone %d", req.Zone))
		}
		return NewResponseMessage(req.ID, reading)

	default:
		return NewErrorResponse(req.ID, "unknown query "+query)
	}
}

func (b *Bridge) publishResponse(resp ResponseMessage) {
	payload, err := json.Marshal(resp)
	if err != nil {
		b.logError("failed to marshal response", err, "request_id", resp.RequestID)
		return
	}
	if err := b.mqtt.Publish(mqtt.Topics{}.Response(resp.RequestID), payload, 1, false); err != nil {
		b.logError("failed to publish response", err, "request_id", resp.RequestID)
	}
}

func (b *Bridge) publishAck(ack AckMessage) {
	payload, err := json.Marshal(ack)
	if err != nil {
		b.logError("failed to marshal ack", err, "command_id", ack.CommandID)
		return
	}
	if err := b.mqtt.Publish(mqtt.Topics{}.Ack(ack.Action), payload, 1, false); err != nil {
		b.logError("failed to publish ack", err, "command_id", ack.CommandID)
	}
}

// classifyError maps a panel error to an ack status and error code.
func classifyError(err error) (AckStatus, string) {
	switch {
	case errors.Is(err, satel.ErrTimeout):
		return AckTimeout, ErrCodeTimeout
	case errors.Is(err, satel.ErrRejected):
		return AckFailed, ErrCodeCommandRejected
	case errors.Is(err, satel.ErrQueueFull):
		return AckFailed, ErrCodeQueueFull
	case errors.Is(err, satel.ErrConnectionLost), errors.Is(err, satel.ErrNotConnected), errors.Is(err, satel.ErrClosed):
		return AckFailed, ErrCodePanelUnreachable
	case errors.Is(err, satel.ErrEncoding):
		return AckFailed, ErrCodeInvalidParameters
	case errors.Is(err, errUnknownAction):
		return AckFailed, ErrCodeInvalidCommand
	default:
		return AckFailed, ErrCodeBridgeError
	}
}

// commandNumbers picks the identifier list a journal entry should carry
// for an action.
func commandNumbers(action string, msg CommandMessage) []int {
	switch action {
	case ActionOutputsOn, ActionOutputsOff:
		return msg.Outputs
	case ActionReadTemperature:
		return []int{msg.Zone}
	default:
		return msg.Partitions
	}
}

func equalItems(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ============================================================
// Logging helpers
// ============================================================

func (b *Bridge) logDebug(msg string, keysAndValues ...any) {
	if b.logger != nil {
		b.logger.Debug(msg, keysAndValues...)
	}
}

func (b *Bridge) logInfo(msg string, keysAndValues ...any) {
	if b.logger != nil {
		b.logger.Info(msg, keysAndValues...)
	}
}

func (b *Bridge) logWarn(msg string, keysAndValues ...any) {
	if b.logger != nil {
		b.logger.Warn(msg, keysAndValues...)
	}
}

func (b *Bridge) logError(msg string, err error, keysAndValues ...any) {
	if b.logger != nil {
		args := append([]any{"error", err}, keysAndValues...)
		b.logger.Error(msg, args...)
	}
}
