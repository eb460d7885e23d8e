package bridge

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestNewStateMessage_NilItems(t *testing.T) {
	msg := NewStateMessage("outputs", nil, "push")

	payload, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(payload), `"items":[]`) {
		t.Errorf("nil items should marshal as empty array: %s", payload)
	}
}

func TestNewAckMessage(t *testing.T) {
	ack := NewAckMessage("cmd-9", ActionDisarm, AckAccepted)

	if ack.ID == "" {
		t.Error("ack should get a generated ID")
	}
	if ack.CommandID != "cmd-9" || ack.Action != ActionDisarm || ack.Status != AckAccepted {
		t.Errorf("unexpected ack: %+v", ack)
	}
	if ack.Timestamp.IsZero() {
		t.Error("timestamp should be set")
	}
}

func TestNewErrorAck(t *testing.T) {
	ack := NewErrorAck("cmd-9", ActionArm, AckTimeout, ErrCodeTimeout, "no confirmation")

	if ack.Status != AckTimeout {
		t.Errorf("status = %q, want timeout", ack.Status)
	}
	if ack.ErrorCode != ErrCodeTimeout || ack.Error != "no confirmation" {
		t.Errorf("unexpected error fields: %+v", ack)
	}
}

func TestNewEventMessage_NilNumbers(t *testing.T) {
	msg := NewEventMessage("alarm", "zones_alarm", nil, "")

	if msg.Numbers == nil {
		t.Error("numbers should default to empty slice")
	}
	if msg.ID == "" {
		t.Error("event should get a generated ID")
	}
}
