package satel

import (
	"errors"
	"reflect"
	"testing"
)

func TestDecodeStatusBitmap(t *testing.T) {
	tests := []struct {
		name  string
		frame Frame
		kind  StatusKind
		items []int
	}{
		{
			name:  "zones violated",
			frame: Frame{Code: CodeZonesViolated, Data: []byte{0x05, 0x00}},
			kind:  StatusZonesViolated,
			items: []int{1, 3},
		},
		{
			name:  "partitions armed",
			frame: Frame{Code: CodePartsArmed, Data: []byte{0x02, 0x00, 0x00, 0x00}},
			kind:  StatusPartsArmed,
			items: []int{2},
		},
		{
			name:  "entry time is its own category",
			frame: Frame{Code: CodePartsEntryTime, Data: []byte{0x01, 0x00, 0x00, 0x00}},
			kind:  StatusPartsEntryTime,
			items: []int{1},
		},
		{
			name:  "both exit time codes share a category",
			frame: Frame{Code: CodePartsExitTimeLong, Data: []byte{0x01, 0x00, 0x00, 0x00}},
			kind:  StatusPartsExitTime,
			items: []int{1},
		},
		{
			name:  "outputs",
			frame: Frame{Code: CodeOutputsState, Data: []byte{0x00, 0x01}},
			kind:  StatusOutputs,
			items: []int{9},
		},
		{
			name:  "empty bitmap",
			frame: Frame{Code: CodeDoorsOpen, Data: []byte{0x00, 0x00}},
			kind:  StatusDoorsOpen,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, err := DecodeStatus(&tt.frame)
			if err != nil {
				t.Fatalf("DecodeStatus() error: %v", err)
			}
			if st.Kind != tt.kind {
				t.Errorf("Kind = %s, want %s", st.Kind, tt.kind)
			}
			if !reflect.DeepEqual(st.Items, tt.items) {
				t.Errorf("Items = %v, want %v", st.Items, tt.items)
			}
			if st.At.IsZero() {
				t.Error("At not set")
			}
		})
	}
}

func TestDecodeStatusTemperature(t *testing.T) {
	tests := []struct {
		name      string
		data      []byte
		zone      int
		celsius   float64
		tempValid bool
	}{
		{
			name:      "ten degrees",
			data:      []byte{0x05, 0x00, 0x82},
			zone:      5,
			celsius:   10.0,
			tempValid: true,
		},
		{
			name:      "half degree resolution",
			data:      []byte{0x01, 0x00, 0x83},
			zone:      1,
			celsius:   10.5,
			tempValid: true,
		},
		{
			name:      "below zero",
			data:      []byte{0x02, 0x00, 0x14},
			zone:      2,
			celsius:   -45.0,
			tempValid: true,
		},
		{
			name: "no reading sentinel",
			data: []byte{0x07, 0xFF, 0xFF},
			zone: 7,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, err := DecodeStatus(&Frame{Code: CodeZoneTemp, Data: tt.data})
			if err != nil {
				t.Fatalf("DecodeStatus() error: %v", err)
			}
			if st.Kind != StatusTemperature {
				t.Errorf("Kind = %s, want %s", st.Kind, StatusTemperature)
			}
			if st.Zone != tt.zone {
				t.Errorf("Zone = %d, want %d", st.Zone, tt.zone)
			}
			if st.TempValid != tt.tempValid {
				t.Errorf("TempValid = %v, want %v", st.TempValid, tt.tempValid)
			}
			if tt.tempValid && st.Temperature != tt.celsius {
				t.Errorf("Temperature = %v, want %v", st.Temperature, tt.celsius)
			}
		})
	}

	_, err := DecodeStatus(&Frame{Code: CodeZoneTemp, Data: []byte{0x01}})
	if !errors.Is(err, ErrFraming) {
		t.Errorf("short temperature frame = %v, want ErrFraming", err)
	}
}

func TestDecodeStatusResult(t *testing.T) {
	tests := []struct {
		name string
		data byte
		ok   bool
	}{
		{name: "ok", data: 0x00, ok: true},
		{name: "accepted in progress", data: 0xFF, ok: true},
		{name: "no access", data: 0x02},
		{name: "cannot arm", data: 0x12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, err := DecodeStatus(&Frame{Code: CodeResult, Data: []byte{tt.data}})
			if err != nil {
				t.Fatalf("DecodeStatus() error: %v", err)
			}
			if st.Kind != StatusResult {
				t.Errorf("Kind = %s, want %s", st.Kind, StatusResult)
			}
			if st.Result != ResultCode(tt.data) {
				t.Errorf("Result = 0x%02X, want 0x%02X", byte(st.Result), tt.data)
			}
			if st.Result.OK() != tt.ok {
				t.Errorf("OK() = %v, want %v", st.Result.OK(), tt.ok)
			}
		})
	}

	_, err := DecodeStatus(&Frame{Code: CodeResult})
	if !errors.Is(err, ErrFraming) {
		t.Errorf("empty result frame = %v, want ErrFraming", err)
	}
}

func TestDecodeStatusTroubles(t *testing.T) {
	data := []byte{0x01, 0x00, 0x80}
	st, err := DecodeStatus(&Frame{Code: CodeTroubles, Data: data})
	if err != nil {
		t.Fatalf("DecodeStatus() error: %v", err)
	}
	if st.Kind != StatusTroubles {
		t.Errorf("Kind = %s, want %s", st.Kind, StatusTroubles)
	}

	// Bit 0 of byte 0 and bit 7 of byte 2 expand to positions 1 and 24.
	if len(st.Items) != 2 || st.Items[0] != 1 || st.Items[1] != 24 {
		t.Errorf("Items = %v, want [1 24]", st.Items)
	}
	if len(st.Raw) != len(data) || st.Raw[2] != 0x80 {
		t.Errorf("Raw = %X, want %X", st.Raw, data)
	}
}

func TestDecodeStatusUnknownCode(t *testing.T) {
	_, err := DecodeStatus(&Frame{Code: Code(0x42)})
	if !errors.Is(err, ErrFraming) {
		t.Errorf("DecodeStatus(0x42) = %v, want ErrFraming", err)
	}
}

func TestRejectedError(t *testing.T) {
	err := &RejectedError{Code: ResultCannotArm}
	if !errors.Is(err, ErrRejected) {
		t.Error("RejectedError does not unwrap to ErrRejected")
	}

	var rejected *RejectedError
	if !errors.As(error(err), &rejected) {
		t.Fatal("errors.As failed")
	}
	if rejected.Code != ResultCannotArm {
		t.Errorf("Code = 0x%02X, want 0x12", byte(rejected.Code))
	}
}
