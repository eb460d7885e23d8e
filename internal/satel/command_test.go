package satel

import (
	"bytes"
	"errors"
	"reflect"
	"testing"
)

func TestEncodeUserCode(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		want    []byte
		wantErr bool
	}{
		{
			name: "four digits",
			code: "1234",
			want: []byte{0x12, 0x34, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF},
		},
		{
			name: "odd length pads low nibble",
			code: "123",
			want: []byte{0x12, 0x3F, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF},
		},
		{
			name: "sixteen digits fills all bytes",
			code: "0123456789012345",
			want: []byte{0x01, 0x23, 0x45, 0x67, 0x89, 0x01, 0x23, 0x45},
		},
		{
			name: "empty code is all padding",
			code: "",
			want: []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF},
		},
		{
			name:    "too long",
			code:    "12345678901234567",
			wantErr: true,
		},
		{
			name:    "non-digit",
			code:    "12a4",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodeUserCode(tt.code)

			if tt.wantErr {
				if !errors.Is(err, ErrEncoding) {
					t.Errorf("EncodeUserCode() = %v, want ErrEncoding", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("EncodeUserCode() error: %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("EncodeUserCode() = %X, want %X", got, tt.want)
			}
		})
	}
}

func TestListToBitmap(t *testing.T) {
	tests := []struct {
		name    string
		items   []int
		size    int
		want    []byte
		wantErr bool
	}{
		{
			name:  "partition one is bit zero",
			items: []int{1},
			size:  4,
			want:  []byte{0x01, 0x00, 0x00, 0x00},
		},
		{
			name:  "partition nine is second byte",
			items: []int{9},
			size:  4,
			want:  []byte{0x00, 0x01, 0x00, 0x00},
		},
		{
			name:  "multiple partitions",
			items: []int{1, 2, 32},
			size:  4,
			want:  []byte{0x03, 0x00, 0x00, 0x80},
		},
		{
			name: "empty list",
			size: 4,
			want: []byte{0x00, 0x00, 0x00, 0x00},
		},
		{
			name:    "zero identifier",
			items:   []int{0},
			size:    4,
			wantErr: true,
		},
		{
			name:    "identifier past mask",
			items:   []int{33},
			size:    4,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ListToBitmap(tt.items, tt.size)

			if tt.wantErr {
				if !errors.Is(err, ErrEncoding) {
					t.Errorf("ListToBitmap() = %v, want ErrEncoding", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ListToBitmap() error: %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("ListToBitmap() = %X, want %X", got, tt.want)
			}
		})
	}
}

func TestBitmapToList(t *testing.T) {
	tests := []struct {
		name string
		mask []byte
		want []int
	}{
		{name: "empty mask", mask: []byte{0x00, 0x00}, want: nil},
		{name: "bit zero is one", mask: []byte{0x01}, want: []int{1}},
		{name: "high bit of second byte", mask: []byte{0x00, 0x80}, want: []int{16}},
		{name: "ascending across bytes", mask: []byte{0x82, 0x01}, want: []int{2, 8, 9}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BitmapToList(tt.mask)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("BitmapToList() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBitmapRoundTrip(t *testing.T) {
	items := []int{1, 7, 8, 15, 100, 256}
	mask, err := ListToBitmap(items, outputBytes)
	if err != nil {
		t.Fatalf("ListToBitmap() error: %v", err)
	}
	got := BitmapToList(mask)
	if !reflect.DeepEqual(got, items) {
		t.Errorf("round trip = %v, want %v", got, items)
	}
}

func TestArm(t *testing.T) {
	cmd, err := Arm(0, "1234", []int{1, 2})
	if err != nil {
		t.Fatalf("Arm() error: %v", err)
	}

	if cmd.Code != CmdArmMode0 {
		t.Errorf("Code = %s, want %s", cmd.Code, CmdArmMode0)
	}
	if len(cmd.Data) != userCodeBytes+partitionBytes {
		t.Fatalf("Data length = %d, want %d", len(cmd.Data), userCodeBytes+partitionBytes)
	}
	if cmd.Data[0] != 0x12 || cmd.Data[1] != 0x34 {
		t.Errorf("user code prefix = %X", cmd.Data[:2])
	}
	if cmd.Data[userCodeBytes] != 0x03 {
		t.Errorf("partition mask = %X, want 03", cmd.Data[userCodeBytes:])
	}
}

func TestArmModes(t *testing.T) {
	for mode := 0; mode <= 3; mode++ {
		cmd, err := Arm(mode, "1", []int{1})
		if err != nil {
			t.Fatalf("Arm(%d) error: %v", mode, err)
		}
		want := CmdArmMode0 + Code(mode)
		if cmd.Code != want {
			t.Errorf("Arm(%d).Code = %s, want %s", mode, cmd.Code, want)
		}
	}

	if _, err := Arm(4, "1", []int{1}); !errors.Is(err, ErrEncoding) {
		t.Errorf("Arm(4) = %v, want ErrEncoding", err)
	}
}

func TestSetOutputs(t *testing.T) {
	on, err := SetOutputs(true, "1234", []int{5})
	if err != nil {
		t.Fatalf("SetOutputs() error: %v", err)
	}
	if on.Code != CmdOutputsOn {
		t.Errorf("Code = %s, want %s", on.Code, CmdOutputsOn)
	}
	if len(on.Data) != userCodeBytes+outputBytes {
		t.Errorf("Data length = %d, want %d", len(on.Data), userCodeBytes+outputBytes)
	}
	if on.Data[userCodeBytes] != 0x10 {
		t.Errorf("output mask byte = 0x%02X, want 0x10", on.Data[userCodeBytes])
	}

	off, err := SetOutputs(false, "1234", []int{5})
	if err != nil {
		t.Fatalf("SetOutputs() error: %v", err)
	}
	if off.Code != CmdOutputsOff {
		t.Errorf("Code = %s, want %s", off.Code, CmdOutputsOff)
	}
}

func TestStartMonitoring(t *testing.T) {
	cmd, err := StartMonitoring([]Code{CodeZonesViolated, CodePartsArmed, CodeTroubles})
	if err != nil {
		t.Fatalf("StartMonitoring() error: %v", err)
	}

	if cmd.Code != CmdStartMonitoring {
		t.Errorf("Code = %s, want %s", cmd.Code, CmdStartMonitoring)
	}
	if len(cmd.Data) != monitorBytes {
		t.Fatalf("Data length = %d, want %d", len(cmd.Data), monitorBytes)
	}
	if cmd.Data[0]&0x01 == 0 {
		t.Error("bit for code 0x00 not set")
	}
	if cmd.Data[1]&0x04 == 0 {
		t.Error("bit for code 0x0A not set")
	}
	if cmd.Data[3]&0x08 == 0 {
		t.Error("bit for code 0x1B not set")
	}

	if _, err := StartMonitoring([]Code{CodeResult}); !errors.Is(err, ErrEncoding) {
		t.Errorf("StartMonitoring(result) = %v, want ErrEncoding", err)
	}
}

func TestDefaultMonitoringIsSubscribable(t *testing.T) {
	if _, err := StartMonitoring(DefaultMonitoring()); err != nil {
		t.Errorf("StartMonitoring(DefaultMonitoring()) error: %v", err)
	}
}

func TestResponseCode(t *testing.T) {
	tests := []struct {
		cmd  Code
		want Code
		ok   bool
	}{
		{cmd: CmdArmMode0, want: CodeResult, ok: true},
		{cmd: CmdDisarm, want: CodeResult, ok: true},
		{cmd: CmdStartMonitoring, want: CodeResult, ok: true},
		{cmd: CmdReadZoneTemp, want: CodeZoneTemp, ok: true},
		{cmd: CmdDeviceInfo, want: CodeDeviceInfo, ok: true},
		{cmd: Code(0x42), ok: false},
	}

	for _, tt := range tests {
		got, ok := ResponseCode(tt.cmd)
		if ok != tt.ok {
			t.Errorf("ResponseCode(%s) ok = %v, want %v", tt.cmd, ok, tt.ok)
			continue
		}
		if ok && got != tt.want {
			t.Errorf("ResponseCode(%s) = %s, want %s", tt.cmd, got, tt.want)
		}
	}
}

func TestReadTemperature(t *testing.T) {
	cmd, err := ReadTemperature(17)
	if err != nil {
		t.Fatalf("ReadTemperature() error: %v", err)
	}
	if cmd.Code != CmdReadZoneTemp {
		t.Errorf("Code = %s, want %s", cmd.Code, CmdReadZoneTemp)
	}
	if !bytes.Equal(cmd.Data, []byte{17}) {
		t.Errorf("Data = %X, want 11", cmd.Data)
	}

	if _, err := ReadTemperature(0); !errors.Is(err, ErrEncoding) {
		t.Errorf("ReadTemperature(0) = %v, want ErrEncoding", err)
	}
}
