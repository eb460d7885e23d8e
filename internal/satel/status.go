package satel

import (
	"encoding/binary"
	"fmt"
	"strings"
	"time"
)

// StatusKind enumerates the snapshot categories a decoded frame can carry.
type StatusKind int

// Snapshot categories. Bitmask categories carry Items; the remaining
// kinds use the dedicated fields on Status.
const (
	StatusUnknown StatusKind = iota
	StatusZonesViolated
	StatusZonesTamper
	StatusZonesAlarm
	StatusZonesTamperAlarm
	StatusZonesAlarmMemory
	StatusZonesBypassed
	StatusPartsArmed
	StatusPartsArmedSuppressed
	StatusPartsArmedMode2
	StatusPartsArmedMode3
	StatusPartsFirstCode
	StatusPartsEntryTime
	StatusPartsExitTime
	StatusPartsAlarm
	StatusPartsFireAlarm
	StatusPartsAlarmMemory
	StatusOutputs
	StatusDoorsOpen
	StatusTroubles
	StatusTemperature
	StatusDeviceInfo
	StatusResult
)

// statusKindNames gives stable names used in logs, MQTT payloads, and the
// journal.
var statusKindNames = map[StatusKind]string{
	StatusZonesViolated:        "zones_violated",
	StatusZonesTamper:          "zones_tamper",
	StatusZonesAlarm:           "zones_alarm",
	StatusZonesTamperAlarm:     "zones_tamper_alarm",
	StatusZonesAlarmMemory:     "zones_alarm_memory",
	StatusZonesBypassed:        "zones_bypassed",
	StatusPartsArmed:           "partitions_armed",
	StatusPartsArmedSuppressed: "partitions_armed_suppressed",
	StatusPartsArmedMode2:      "partitions_armed_mode2",
	StatusPartsArmedMode3:      "partitions_armed_mode3",
	StatusPartsFirstCode:       "partitions_first_code",
	StatusPartsEntryTime:       "partitions_entry_time",
	StatusPartsExitTime:        "partitions_exit_time",
	StatusPartsAlarm:           "partitions_alarm",
	StatusPartsFireAlarm:       "partitions_fire_alarm",
	StatusPartsAlarmMemory:     "partitions_alarm_memory",
	StatusOutputs:              "outputs",
	StatusDoorsOpen:            "doors_open",
	StatusTroubles:             "troubles",
	StatusTemperature:          "temperature",
	StatusDeviceInfo:           "device_info",
	StatusResult:               "result",
}

// String returns the snake_case category name.
func (k StatusKind) String() string {
	if name, ok := statusKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int(k))
}

// codeToKind maps frame codes onto snapshot categories.
var codeToKind = map[Code]StatusKind{
	CodeZonesViolated:     StatusZonesViolated,
	CodeZonesTamper:       StatusZonesTamper,
	CodeZonesAlarm:        StatusZonesAlarm,
	CodeZonesTamperAlarm:  StatusZonesTamperAlarm,
	CodeZonesAlarmMemory:  StatusZonesAlarmMemory,
	CodeZonesBypassed:     StatusZonesBypassed,
	CodePartsArmedSuppr:   StatusPartsArmedSuppressed,
	CodePartsArmed:        StatusPartsArmed,
	CodePartsArmedMode2:   StatusPartsArmedMode2,
	CodePartsArmedMode3:   StatusPartsArmedMode3,
	CodePartsFirstCode:    StatusPartsFirstCode,
	CodePartsEntryTime:    StatusPartsEntryTime,
	CodePartsExitTimeLong: StatusPartsExitTime,
	CodePartsExitTime:     StatusPartsExitTime,
	CodePartsAlarm:        StatusPartsAlarm,
	CodePartsFireAlarm:    StatusPartsFireAlarm,
	CodePartsAlarmMemory:  StatusPartsAlarmMemory,
	CodeOutputsState:      StatusOutputs,
	CodeDoorsOpen:         StatusDoorsOpen,
	CodeTroubles:          StatusTroubles,
	CodeZoneTemp:          StatusTemperature,
	CodeDeviceInfo:        StatusDeviceInfo,
	CodeResult:            StatusResult,
}

// ResultCode is the panel's answer inside a result frame.
type ResultCode byte

// Result codes defined by the protocol revision.
const (
	ResultOK               ResultCode = 0x00
	ResultUserCodeNotFound ResultCode = 0x01
	ResultNoAccess         ResultCode = 0x02
	ResultUserNotExist     ResultCode = 0x03
	ResultUserExists       ResultCode = 0x04
	ResultWrongCode        ResultCode = 0x05
	ResultOtherError       ResultCode = 0x08
	ResultCanUseForce      ResultCode = 0x11
	ResultCannotArm        ResultCode = 0x12
	ResultAccepted         ResultCode = 0xFF
)

// resultNames maps result codes to readable descriptions.
var resultNames = map[ResultCode]string{
	ResultOK:               "ok",
	ResultUserCodeNotFound: "requiring user code not found",
	ResultNoAccess:         "no access",
	ResultUserNotExist:     "selected user does not exist",
	ResultUserExists:       "selected user already exists",
	ResultWrongCode:        "wrong code",
	ResultOtherError:       "other error",
	ResultCanUseForce:      "cannot arm, but can use force arm",
	ResultCannotArm:        "cannot arm",
	ResultAccepted:         "command accepted",
}

// String returns the documented description of the result code.
func (r ResultCode) String() string {
	if name, ok := resultNames[r]; ok {
		return name
	}
	return fmt.Sprintf("result 0x%02X", byte(r))
}

// OK reports whether the result indicates acceptance. ResultAccepted
// means the command was taken and will complete asynchronously; the
// outcome arrives as a later spontaneous push.
func (r ResultCode) OK() bool {
	return r == ResultOK || r == ResultAccepted
}

// TempNoReading is the sentinel the panel sends for a zone without a
// temperature sensor or with no reading yet.
const tempNoReading = 0xFFFF

// Status is one decoded, typed status fragment: the caller-facing form
// of a frame after classification.
type Status struct {
	// Kind selects the snapshot category this fragment replaces.
	Kind StatusKind

	// Items holds 1-based zone/partition/output/door identifiers for
	// bitmask kinds, ascending.
	Items []int

	// Zone and Temperature are set for StatusTemperature. TempValid is
	// false when the panel reported the no-reading sentinel.
	Zone        int
	Temperature float64
	TempValid   bool

	// Result is set for StatusResult.
	Result ResultCode

	// Raw keeps the undecoded payload for StatusDeviceInfo and
	// StatusTroubles.
	Raw []byte

	// At records when the frame was decoded.
	At time.Time
}

// String returns a compact description for logs.
func (s Status) String() string {
	switch s.Kind {
	case StatusTemperature:
		if !s.TempValid {
			return fmt.Sprintf("temperature zone=%d no-reading", s.Zone)
		}
		return fmt.Sprintf("temperature zone=%d %.1f°C", s.Zone, s.Temperature)
	case StatusResult:
		return "result: " + s.Result.String()
	default:
		parts := make([]string, len(s.Items))
		for i, it := range s.Items {
			parts[i] = fmt.Sprint(it)
		}
		return s.Kind.String() + " [" + strings.Join(parts, " ") + "]"
	}
}

// DecodeStatus turns a frame into a typed status fragment.
//
// Bitmask codes expand into identifier lists; temperature replies apply
// the panel's half-degree scaling with the −55°C offset; result frames
// carry their code through. Unknown frame codes fail with ErrFraming so
// the dispatcher can log and drop them.
func DecodeStatus(f *Frame) (Status, error) {
	kind, ok := codeToKind[f.Code]
	if !ok {
		return Status{}, fmt.Errorf("%w: unknown status code %s", ErrFraming, f.Code)
	}

	s := Status{Kind: kind, At: time.Now()}

	switch kind {
	case StatusTemperature:
		if len(f.Data) < 3 {
			return Status{}, fmt.Errorf("%w: temperature reply %d bytes, need 3", ErrFraming, len(f.Data))
		}
		s.Zone = int(f.Data[0])
		raw := binary.BigEndian.Uint16(f.Data[1:3])
		if raw != tempNoReading {
			s.Temperature = float64(raw)/2 - 55
			s.TempValid = true
		}

	case StatusResult:
		if len(f.Data) < 1 {
			return Status{}, fmt.Errorf("%w: empty result frame", ErrFraming)
		}
		s.Result = ResultCode(f.Data[0])

	case StatusDeviceInfo:
		s.Raw = append([]byte(nil), f.Data...)

	case StatusTroubles:
		// Trouble flags expand like the other bitmasks, as 1-based bit
		// positions into the panel's trouble block. Raw keeps the block
		// itself for diagnostics.
		s.Raw = append([]byte(nil), f.Data...)
		s.Items = BitmapToList(f.Data)

	default:
		s.Items = BitmapToList(f.Data)
	}

	return s, nil
}
