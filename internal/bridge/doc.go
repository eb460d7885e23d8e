// Package bridge connects a Satel Integra alarm panel to the MQTT bus.
//
// The bridge sits between the protocol engine in internal/satel and the
// broker client in internal/infrastructure/mqtt:
//
//	Panel ←→ satel.Client ←→ Bridge ←→ mqtt.Client ←→ Broker
//
// Inbound commands arrive on graylogic/command/integra/{action} and are
// acknowledged on graylogic/ack/integra/{action}. Arming and output
// commands are only acknowledged as accepted once the panel confirms
// the effect through a state push, so an "accepted" ack means the
// partition is actually armed, not merely that the frame was sent.
//
// Read requests on graylogic/request/integra/{query} are answered from
// the in-memory snapshot on graylogic/response/integra/{request_id}
// without touching the panel. Consumers that need fresh data send a
// read command instead.
//
// Outbound, every state change the panel pushes is published retained
// on graylogic/state/integra/{kind}, alarm and arming transitions are
// recorded in the journal and mirrored on the event topics, and
// temperature readings flow to the history store. A health reporter
// publishes periodic status on graylogic/health/integra.
package bridge
