package bridge

import (
	"time"

	"github.com/google/uuid"
)

// Command actions accepted on graylogic/command/integra/{action}.
const (
	ActionArm             = "arm"
	ActionDisarm          = "disarm"
	ActionClearAlarm      = "clear_alarm"
	ActionOutputsOn       = "outputs_on"
	ActionOutputsOff      = "outputs_off"
	ActionReadTemperature = "read_temperature"
	ActionReadState       = "read_state"
)

// CommandMessage is an inbound command from the MQTT bus.
//
// The action is carried in the topic; the payload supplies the targets.
// Partitions apply to arm, disarm, and clear_alarm. Outputs apply to
// outputs_on and outputs_off. Zone applies to read_temperature. Mode
// selects the arming mode (0 to 3) and defaults to 0.
type CommandMessage struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Partitions []int     `json:"partitions,omitempty"`
	Outputs    []int     `json:"outputs,omitempty"`
	Zone       int       `json:"zone,omitempty"`
	Mode       int       `json:"mode,omitempty"`
	Source     string    `json:"source,omitempty"`
}

// AckStatus is the outcome of a command acknowledgement.
type AckStatus string

const (
	// AckAccepted means the panel confirmed the command took effect.
	AckAccepted AckStatus = "accepted"

	// AckFailed means the command could not be executed.
	AckFailed AckStatus = "failed"

	// AckTimeout means the panel did not confirm within the deadline.
	AckTimeout AckStatus = "timeout"
)

// Error codes carried in failed acknowledgements.
const (
	ErrCodePanelUnreachable  = "PANEL_UNREACHABLE"
	ErrCodeInvalidCommand    = "INVALID_COMMAND"
	ErrCodeInvalidParameters = "INVALID_PARAMETERS"
	ErrCodeCommandRejected   = "COMMAND_REJECTED"
	ErrCodeTimeout           = "TIMEOUT"
	ErrCodeQueueFull         = "QUEUE_FULL"
	ErrCodeBridgeError       = "BRIDGE_ERROR"
)

// AckMessage acknowledges a command on graylogic/ack/integra/{action}.
type AckMessage struct {
	ID        string    `json:"id"`
	CommandID string    `json:"command_id"`
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Status    AckStatus `json:"status"`
	Error     string    `json:"error,omitempty"`
	ErrorCode string    `json:"error_code,omitempty"`
}

// NewAckMessage builds a successful acknowledgement for a command.
func NewAckMessage(commandID, action string, status AckStatus) AckMessage {
	return AckMessage{
		ID:        uuid.New().String(),
		CommandID: commandID,
		Timestamp: time.Now().UTC(),
		Action:    action,
		Status:    status,
	}
}

// NewErrorAck builds a failed acknowledgement with an error code.
func NewErrorAck(commandID, action string, status AckStatus, errCode, errMsg string) AckMessage {
	ack := NewAckMessage(commandID, action, status)
	ack.ErrorCode = errCode
	ack.Error = errMsg
	return ack
}

// StateMessage is a retained state fragment on
// graylogic/state/integra/{kind}. Items hold the 1-based identifiers
// currently active in the category, ascending.
type StateMessage struct {
	Kind      string    `json:"kind"`
	Items     []int     `json:"items"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source,omitempty"`
}

// NewStateMessage builds a state fragment. A nil item list is published
// as an empty array so consumers never see null.
func NewStateMessage(kind string, items []int, source string) StateMessage {
	if items == nil {
		items = []int{}
	}
	return StateMessage{
		Kind:      kind,
		Items:     items,
		Timestamp: time.Now().UTC(),
		Source:    source,
	}
}

// TemperatureMessage is a retained reading on
// graylogic/state/integra/temperature/{zone}. Valid is false when the
// zone has no temperature sensor or no reading yet.
type TemperatureMessage struct {
	Zone      int       `json:"zone"`
	Celsius   float64   `json:"celsius"`
	Valid     bool      `json:"valid"`
	Timestamp time.Time `json:"timestamp"`
}

// Read request queries accepted on graylogic/request/integra/{query}.
const (
	QuerySnapshot    = "snapshot"
	QueryState       = "state"
	QueryTemperature = "temperature"
)

// RequestMessage is a read request from the MQTT bus. Unlike commands,
// requests never touch the panel; they are answered from the snapshot.
//
// The query is carried in the topic. Kind selects the state category
// for QueryState; Zone selects the zone for QueryTemperature.
type RequestMessage struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Kind      string    `json:"kind,omitempty"`
	Zone      int       `json:"zone,omitempty"`
	Source    string    `json:"source,omitempty"`
}

// ResponseMessage answers a request on graylogic/response/integra/{id}.
type ResponseMessage struct {
	ID        string    `json:"id"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
	Payload   any       `json:"payload,omitempty"`
}

// NewResponseMessage builds a successful response carrying a payload.
func NewResponseMessage(requestID string, payload any) ResponseMessage {
	return ResponseMessage{
		ID:        uuid.New().String(),
		RequestID: requestID,
		Timestamp: time.Now().UTC(),
		Success:   true,
		Payload:   payload,
	}
}

// NewErrorResponse builds a failed response with an error message.
func NewErrorResponse(requestID, errMsg string) ResponseMessage {
	return ResponseMessage{
		ID:        uuid.New().String(),
		RequestID: requestID,
		Timestamp: time.Now().UTC(),
		Success:   false,
		Error:     errMsg,
	}
}

// EventMessage is a journal entry mirrored onto
// graylogic/event/integra/{category} as it is recorded.
type EventMessage struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Category  string    `json:"category"`
	Kind      string    `json:"kind"`
	Numbers   []int     `json:"numbers"`
	Detail    string    `json:"detail,omitempty"`
}

// NewEventMessage builds an event notification.
func NewEventMessage(category, kind string, numbers []int, detail string) EventMessage {
	if numbers == nil {
		numbers = []int{}
	}
	return EventMessage{
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC(),
		Category:  category,
		Kind:      kind,
		Numbers:   numbers,
		Detail:    detail,
	}
}
