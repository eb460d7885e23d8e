// Package api exposes the Integra bridge over HTTP and WebSocket.
//
// The server follows the same lifecycle pattern as the other
// infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// REST endpoints under /api/v1:
//
//	GET /health               - liveness and panel link state
//	GET /metrics              - runtime, panel, MQTT, and database metrics
//	GET /snapshot             - full panel snapshot (states + temperatures)
//	GET /state/{kind}         - one state category by snake_case name
//	GET /temperatures         - all known temperature readings
//	GET /temperatures/{zone}  - latest reading for one zone
//	GET /events               - journal listing with category/time filters
//	GET /ws                   - WebSocket upgrade
//
// WebSocket clients subscribe to channels (panel.state, panel.event,
// panel.health) and receive the bridge's MQTT publications relayed as
// JSON events. The REST surface is read-only; commands go through the
// MQTT command topics so every control path flows through the same
// acknowledgement pipeline.
package api
