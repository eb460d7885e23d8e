package mqtt

import "fmt"

// Topic layout for the Integra bridge.
//
// All bridge topics use the flat scheme: graylogic/{category}/integra/{suffix}
// so the bridge slots into the same bus as the other protocol bridges.
const (
	// TopicPrefix is the base for all bridge topics.
	TopicPrefix = "graylogic"

	// ProtocolName identifies this bridge on the bus.
	ProtocolName = "integra"
)

// Topics provides builders for the Integra bridge's MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.State("armed_partitions")
//	// Returns: "graylogic/state/integra/armed_partitions"
type Topics struct{}

// State returns the topic for a status fragment published by the bridge.
//
// Example: graylogic/state/integra/zones_violated
func (Topics) State(kind string) string {
	return fmt.Sprintf("%s/state/%s/%s", TopicPrefix, ProtocolName, kind)
}

// Temperature returns the topic for a zone temperature reading.
//
// Example: graylogic/state/integra/temperature/12
func (Topics) Temperature(zone int) string {
	return fmt.Sprintf("%s/state/%s/temperature/%d", TopicPrefix, ProtocolName, zone)
}

// Command returns the topic for a command sent to the bridge.
//
// Example: graylogic/command/integra/arm
func (Topics) Command(action string) string {
	return fmt.Sprintf("%s/command/%s/%s", TopicPrefix, ProtocolName, action)
}

// Ack returns the topic for command acknowledgements from the bridge.
//
// Example: graylogic/ack/integra/arm
func (Topics) Ack(action string) string {
	return fmt.Sprintf("%s/ack/%s/%s", TopicPrefix, ProtocolName, action)
}

// Request returns the topic for read requests sent to the bridge.
//
// Example: graylogic/request/integra/snapshot
func (Topics) Request(query string) string {
	return fmt.Sprintf("%s/request/%s/%s", TopicPrefix, ProtocolName, query)
}

// Response returns the topic for request responses from the bridge.
//
// Example: graylogic/response/integra/req-abc123
func (Topics) Response(requestID string) string {
	return fmt.Sprintf("%s/response/%s/%s", TopicPrefix, ProtocolName, requestID)
}

// Event returns the topic for journal events (alarms, troubles, arm changes).
//
// Example: graylogic/event/integra/alarm
func (Topics) Event(eventType string) string {
	return fmt.Sprintf("%s/event/%s/%s", TopicPrefix, ProtocolName, eventType)
}

// Health returns the topic for bridge health status. The broker publishes
// the Last Will here if the bridge dies without a graceful shutdown.
//
// Example: graylogic/health/integra
func (Topics) Health() string {
	return fmt.Sprintf("%s/health/%s", TopicPrefix, ProtocolName)
}

// AllCommands returns a pattern matching every command sent to the bridge.
//
// Pattern: graylogic/command/integra/#
func (Topics) AllCommands() string {
	return fmt.Sprintf("%s/command/%s/#", TopicPrefix, ProtocolName)
}

// AllRequests returns a pattern matching every read request to the bridge.
//
// Pattern: graylogic/request/integra/#
func (Topics) AllRequests() string {
	return fmt.Sprintf("%s/request/%s/#", TopicPrefix, ProtocolName)
}

// AllStates returns a pattern matching every state topic from the bridge.
//
// Pattern: graylogic/state/integra/#
func (Topics) AllStates() string {
	return fmt.Sprintf("%s/state/%s/#", TopicPrefix, ProtocolName)
}

// AllEvents returns a pattern matching every event topic from the bridge.
//
// Pattern: graylogic/event/integra/+
func (Topics) AllEvents() string {
	return fmt.Sprintf("%s/event/%s/+", TopicPrefix, ProtocolName)
}
