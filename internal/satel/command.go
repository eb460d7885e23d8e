package satel

import (
	"fmt"
	"sort"
)

// Code identifies an Integra protocol message kind.
//
// Codes below 0x80 double as status list identifiers: the panel uses the
// same value for a pushed status frame and for the matching entry in a
// monitoring subscription mask. Codes 0x80 and above are control commands
// acknowledged with a result frame.
//
// The enumeration is fixed to the protocol revision spoken by ETHM-1 and
// INT-RS modules; there is no negotiation.
type Code byte

// Status codes (panel → engine).
const (
	CodeZonesViolated     Code = 0x00
	CodeZonesTamper       Code = 0x01
	CodeZonesAlarm        Code = 0x02
	CodeZonesTamperAlarm  Code = 0x03
	CodeZonesAlarmMemory  Code = 0x04
	CodeZonesBypassed     Code = 0x06
	CodePartsArmedSuppr   Code = 0x09
	CodePartsArmed        Code = 0x0A
	CodePartsArmedMode2   Code = 0x0B
	CodePartsArmedMode3   Code = 0x0C
	CodePartsFirstCode    Code = 0x0D
	CodePartsEntryTime    Code = 0x0E
	CodePartsExitTimeLong Code = 0x0F
	CodePartsExitTime     Code = 0x10
	CodePartsAlarm        Code = 0x13
	CodePartsFireAlarm    Code = 0x14
	CodePartsAlarmMemory  Code = 0x15
	CodeOutputsState      Code = 0x17
	CodeDoorsOpen         Code = 0x18
	CodeTroubles          Code = 0x1B
	CodeZoneTemp          Code = 0x7D
	CodeDeviceInfo        Code = 0xEE
	CodeResult            Code = 0xEF
)

// Control commands (engine → panel).
const (
	CmdStartMonitoring Code = 0x7F
	CmdReadZoneTemp    Code = 0x7D
	CmdArmMode0        Code = 0x80
	CmdArmMode1        Code = 0x81
	CmdArmMode2        Code = 0x82
	CmdArmMode3        Code = 0x83
	CmdDisarm          Code = 0x84
	CmdClearAlarm      Code = 0x85
	CmdOutputsOn       Code = 0x88
	CmdOutputsOff      Code = 0x89
	CmdDeviceInfo      Code = 0xEE
)

// codeNames maps codes to their protocol documentation names.
var codeNames = map[Code]string{
	CodeZonesViolated:     "zones violated",
	CodeZonesTamper:       "zones tamper",
	CodeZonesAlarm:        "zones alarm",
	CodeZonesTamperAlarm:  "zones tamper alarm",
	CodeZonesAlarmMemory:  "zones alarm memory",
	CodeZonesBypassed:     "zones bypassed",
	CodePartsArmedSuppr:   "partitions armed (suppressed)",
	CodePartsArmed:        "partitions armed",
	CodePartsArmedMode2:   "partitions armed mode 2",
	CodePartsArmedMode3:   "partitions armed mode 3",
	CodePartsFirstCode:    "partitions first code entered",
	CodePartsEntryTime:    "partitions entry time",
	CodePartsExitTimeLong: "partitions exit time >10s",
	CodePartsExitTime:     "partitions exit time <10s",
	CodePartsAlarm:        "partitions alarm",
	CodePartsFireAlarm:    "partitions fire alarm",
	CodePartsAlarmMemory:  "partitions alarm memory",
	CodeOutputsState:      "outputs state",
	CodeDoorsOpen:         "doors open",
	CodeTroubles:          "troubles",
	CodeZoneTemp:          "zone temperature",
	CodeDeviceInfo:        "device info",
	CodeResult:            "result",
	CmdStartMonitoring:    "start monitoring",
	CmdArmMode0:           "arm mode 0",
	CmdArmMode1:           "arm mode 1",
	CmdArmMode2:           "arm mode 2",
	CmdArmMode3:           "arm mode 3",
	CmdDisarm:             "disarm",
	CmdClearAlarm:         "clear alarm",
	CmdOutputsOn:          "outputs on",
	CmdOutputsOff:         "outputs off",
}

// String returns the protocol name of the code.
func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("0x%02X", byte(c))
}

// responseCodes pairs each control command with its single valid
// acknowledgement kind. The protocol carries no per-message identifiers,
// so this table plus the one-in-flight discipline is the entire
// correlation mechanism.
var responseCodes = map[Code]Code{
	CmdStartMonitoring: CodeResult,
	CmdArmMode0:        CodeResult,
	CmdArmMode1:        CodeResult,
	CmdArmMode2:        CodeResult,
	CmdArmMode3:        CodeResult,
	CmdDisarm:          CodeResult,
	CmdClearAlarm:      CodeResult,
	CmdOutputsOn:       CodeResult,
	CmdOutputsOff:      CodeResult,
	CmdReadZoneTemp:    CodeZoneTemp,
	CmdDeviceInfo:      CodeDeviceInfo,
}

// ResponseCode returns the acknowledgement code a command expects and
// whether the command expects a direct response at all.
func ResponseCode(cmd Code) (Code, bool) {
	rc, ok := responseCodes[cmd]
	return rc, ok
}

// Command is one request to the panel: a code, its payload, and the
// correlation policy. Immutable once submitted.
type Command struct {
	// Code is the control command code.
	Code Code

	// Data is the serialised command payload.
	Data []byte

	// FireAndForget suppresses response correlation: the dispatcher
	// returns to idle immediately after the wire write. Commands whose
	// code has no entry in the acknowledgement table are implicitly
	// fire-and-forget.
	FireAndForget bool
}

// expectsResponse reports whether the dispatcher should hold the command
// in flight until a matching frame arrives.
func (c Command) expectsResponse() bool {
	if c.FireAndForget {
		return false
	}
	_, ok := responseCodes[c.Code]
	return ok
}

// Command payload sizing. The panel addresses up to 32 partitions in a
// 4-byte mask and up to 256 outputs in a 32-byte mask; zone and output
// state lists arrive as 16- or 32-byte masks depending on panel size.
const (
	userCodeBytes  = 8
	partitionBytes = 4
	outputBytes    = 32
	monitorBytes   = 12
)

// EncodeUserCode packs a numeric user code into the 8-byte prefix the
// panel expects: one BCD nibble per digit, padded with 0xF nibbles.
//
// Returns ErrEncoding if the code is longer than 16 digits or contains a
// non-digit character.
func EncodeUserCode(code string) ([]byte, error) {
	if len(code) > userCodeBytes*2 {
		return nil, fmt.Errorf("%w: user code longer than %d digits", ErrEncoding, userCodeBytes*2)
	}

	out := make([]byte, userCodeBytes)
	for i := range out {
		out[i] = 0xFF
	}
	for i := 0; i < len(code); i++ {
		d := code[i]
		if d < '0' || d > '9' {
			return nil, fmt.Errorf("%w: user code must be numeric", ErrEncoding)
		}
		nibble := d - '0'
		if i%2 == 0 {
			out[i/2] = nibble<<4 | 0x0F
		} else {
			out[i/2] = out[i/2]&0xF0 | nibble
		}
	}
	return out, nil
}

// ListToBitmap packs a list of 1-based identifiers into a little-endian
// bitmask of the given byte size. Item 1 is bit 0 of byte 0.
//
// Returns ErrEncoding when an identifier falls outside the mask.
func ListToBitmap(items []int, size int) ([]byte, error) {
	out := make([]byte, size)
	for _, item := range items {
		if item < 1 || item > size*8 {
			return nil, fmt.Errorf("%w: identifier %d outside 1..%d", ErrEncoding, item, size*8)
		}
		idx := item - 1
		out[idx/8] |= 1 << (idx % 8)
	}
	return out, nil
}

// BitmapToList expands a bitmask into the ascending list of 1-based
// identifiers whose bits are set. Inverse of ListToBitmap.
func BitmapToList(mask []byte) []int {
	var items []int
	for i, b := range mask {
		for bit := 0; bit < 8; bit++ {
			if b&(1<<bit) != 0 {
				items = append(items, i*8+bit+1)
			}
		}
	}
	return items
}

// Arm builds an arm command for the given mode (0-3) and partitions,
// authorised by the user code.
func Arm(mode int, userCode string, partitions []int) (Command, error) {
	if mode < 0 || mode > 3 {
		return Command{}, fmt.Errorf("%w: arm mode %d outside 0..3", ErrEncoding, mode)
	}
	data, err := codePrefixed(userCode, partitions, partitionBytes)
	if err != nil {
		return Command{}, err
	}
	return Command{Code: CmdArmMode0 + Code(mode), Data: data}, nil
}

// Disarm builds a disarm command for the given partitions.
func Disarm(userCode string, partitions []int) (Command, error) {
	data, err := codePrefixed(userCode, partitions, partitionBytes)
	if err != nil {
		return Command{}, err
	}
	return Command{Code: CmdDisarm, Data: data}, nil
}

// ClearAlarm builds an alarm-clearing command for the given partitions.
func ClearAlarm(userCode string, partitions []int) (Command, error) {
	data, err := codePrefixed(userCode, partitions, partitionBytes)
	if err != nil {
		return Command{}, err
	}
	return Command{Code: CmdClearAlarm, Data: data}, nil
}

// SetOutputs builds an outputs-on or outputs-off command.
func SetOutputs(on bool, userCode string, outputs []int) (Command, error) {
	data, err := codePrefixed(userCode, outputs, outputBytes)
	if err != nil {
		return Command{}, err
	}
	code := CmdOutputsOff
	if on {
		code = CmdOutputsOn
	}
	return Command{Code: code, Data: data}, nil
}

// ReadTemperature builds a zone temperature read for one zone (1-based).
func ReadTemperature(zone int) (Command, error) {
	if zone < 1 || zone > 255 {
		return Command{}, fmt.Errorf("%w: zone %d outside 1..255", ErrEncoding, zone)
	}
	return Command{Code: CmdReadZoneTemp, Data: []byte{byte(zone)}}, nil
}

// ReadDeviceInfo builds a device info read for the given device type and
// number (both panel-revision specific enumerations).
func ReadDeviceInfo(deviceType, number byte) Command {
	return Command{Code: CmdDeviceInfo, Data: []byte{deviceType, number}}
}

// StartMonitoring builds the monitoring subscription command: a bitmask
// over status codes the panel should push spontaneously from now on.
// Issued after every (re)connect to resynchronise the snapshot.
func StartMonitoring(codes []Code) (Command, error) {
	mask := make([]byte, monitorBytes)
	for _, c := range codes {
		if int(c) >= monitorBytes*8 {
			return Command{}, fmt.Errorf("%w: code %s not subscribable", ErrEncoding, c)
		}
		mask[c/8] |= 1 << (c % 8)
	}
	return Command{Code: CmdStartMonitoring, Data: mask}, nil
}

// DefaultMonitoring lists the status codes the bridge subscribes to.
func DefaultMonitoring() []Code {
	codes := []Code{
		CodeZonesViolated, CodeZonesTamper, CodeZonesAlarm,
		CodeZonesTamperAlarm, CodeZonesAlarmMemory, CodeZonesBypassed,
		CodePartsArmedSuppr, CodePartsArmed, CodePartsArmedMode2,
		CodePartsArmedMode3, CodePartsEntryTime, CodePartsExitTimeLong,
		CodePartsExitTime, CodePartsAlarm, CodePartsFireAlarm,
		CodePartsAlarmMemory, CodeOutputsState, CodeDoorsOpen,
		CodeTroubles,
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

// codePrefixed builds the common payload shape: 8-byte user code prefix
// followed by an identifier bitmask.
func codePrefixed(userCode string, items []int, maskSize int) ([]byte, error) {
	prefix, err := EncodeUserCode(userCode)
	if err != nil {
		return nil, err
	}
	mask, err := ListToBitmap(items, maskSize)
	if err != nil {
		return nil, err
	}
	return append(prefix, mask...), nil
}
