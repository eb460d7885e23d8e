package satel

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Frame wire format constants for the Integra integration protocol.
//
// Every frame is:
//
//	0xFE 0xFE | command | data... | checksum (2 bytes, big-endian) | 0xFE 0x0D
//
// The 0xFE marker never appears literally inside a frame body: any body or
// checksum byte equal to 0xFE is transmitted as the pair 0xFE 0xF0.
const (
	// frameMarker is the reserved byte used for frame boundaries.
	frameMarker = 0xFE

	// frameEscape follows a marker byte to encode a literal 0xFE.
	frameEscape = 0xF0

	// frameEnd follows a marker byte to terminate a frame.
	frameEnd = 0x0D

	// maxFrameBody is the maximum unescaped body size (command + data).
	// Panel-revision constant; large list replies stay well under this.
	maxFrameBody = 255

	// checksumSeed is the initial value of the frame checksum register.
	checksumSeed = 0x147A

	// checksumSize is the width of the frame checksum in bytes.
	checksumSize = 2
)

// Frame is one complete, checksum-verified protocol message unit.
//
// Frames are ephemeral: the decoder produces one per inbound message and
// the classifier consumes it immediately.
type Frame struct {
	// Code identifies the message kind (command or status code).
	Code Code

	// Data is the unescaped frame payload after the code byte.
	Data []byte
}

// String returns a human-readable representation of the frame.
func (f Frame) String() string {
	return fmt.Sprintf("Frame{Code:%s, Data:%X}", f.Code, f.Data)
}

// checksum computes the Integra frame checksum over an unescaped body.
//
// The algorithm is the panel's documented rotate/invert/accumulate scheme:
// for each byte the 16-bit register is rotated left by one, inverted, then
// incremented by its own high byte and the input byte.
func checksum(body []byte) uint16 {
	crc := uint16(checksumSeed)
	for _, b := range body {
		crc = crc<<1 | crc>>15
		crc ^= 0xFFFF
		crc += crc>>8 + uint16(b)
	}
	return crc
}

// EncodeFrame serialises a command code and payload into a wire frame.
//
// The checksum is computed over the unescaped code+data body, then the
// body and checksum are escaped together so no literal 0xFE survives
// between the header and trailer.
//
// Returns ErrEncoding if the body exceeds the maximum frame size.
func EncodeFrame(code Code, data []byte) ([]byte, error) {
	if len(data)+1 > maxFrameBody {
		return nil, fmt.Errorf("%w: body %d bytes exceeds maximum %d",
			ErrEncoding, len(data)+1, maxFrameBody)
	}

	body := make([]byte, 0, len(data)+1+checksumSize)
	body = append(body, byte(code))
	body = append(body, data...)

	crc := checksum(body)
	body = append(body, byte(crc>>8), byte(crc))

	// Header + worst-case doubled body + trailer.
	out := make([]byte, 0, 2+len(body)*2+2)
	out = append(out, frameMarker, frameMarker)
	for _, b := range body {
		out = append(out, b)
		if b == frameMarker {
			out = append(out, frameEscape)
		}
	}
	out = append(out, frameMarker, frameEnd)

	return out, nil
}

// frameHeader is the two-byte start-of-frame sequence.
var frameHeader = []byte{frameMarker, frameMarker}

// DecodeFrame scans buf for one complete frame.
//
// Return values follow the streaming contract:
//   - (frame, rest, nil): a frame was decoded; rest holds unconsumed bytes.
//   - (nil, rest, nil): no complete frame yet; append more bytes to rest
//     and call again. Leading bytes that can no longer start a frame have
//     been discarded.
//   - (nil, rest, err): a complete-looking frame was corrupt (ErrChecksum,
//     ErrFraming). rest has been advanced past the corruption so repeated
//     calls always make progress; callers resume decoding from rest.
func DecodeFrame(buf []byte) (*Frame, []byte, error) {
	start := bytes.Index(buf, frameHeader)
	if start < 0 {
		// Keep a trailing lone marker; it may be the first header byte.
		if len(buf) > 0 && buf[len(buf)-1] == frameMarker {
			return nil, buf[len(buf)-1:], nil
		}
		return nil, nil, nil
	}
	buf = buf[start:]

	// The panel may stretch the header with extra sync markers; skip to
	// the last marker of the run, keeping two for the header itself.
	i := 2
	for i < len(buf) && buf[i] == frameMarker && i+1 < len(buf) && buf[i+1] == frameMarker {
		i++
	}

	// The longest legitimate unescaped body is maxFrameBody plus the
	// checksum; anything past that is an unterminated frame and the
	// scanner must resync rather than accumulate the noise forever.
	const maxDecodedBody = maxFrameBody + checksumSize

	body := make([]byte, 0, 64)
	for ; i < len(buf); i++ {
		b := buf[i]
		if b != frameMarker {
			if len(body) == maxDecodedBody {
				return nil, buf[i:], fmt.Errorf("%w: unterminated frame exceeds %d bytes", ErrFraming, maxDecodedBody)
			}
			body = append(body, b)
			continue
		}

		// Marker inside the frame: escape, trailer, or corruption.
		if i+1 >= len(buf) {
			return nil, buf, nil // incomplete escape/trailer
		}
		switch buf[i+1] {
		case frameEscape:
			if len(body) == maxDecodedBody {
				return nil, buf[i:], fmt.Errorf("%w: unterminated frame exceeds %d bytes", ErrFraming, maxDecodedBody)
			}
			body = append(body, frameMarker)
			i++
		case frameEnd:
			return finishFrame(body, buf[i+2:])
		case frameMarker:
			// A fresh header in mid-frame: the previous frame was
			// truncated. Resynchronise on the new header.
			return nil, buf[i:], fmt.Errorf("%w: header inside frame body", ErrFraming)
		default:
			return nil, buf[i+2:], fmt.Errorf("%w: invalid escape 0x%02X", ErrFraming, buf[i+1])
		}
	}

	return nil, buf, nil
}

// finishFrame validates an unescaped body (code + data + checksum) and
// builds the Frame.
func finishFrame(body, rest []byte) (*Frame, []byte, error) {
	if len(body) < 1+checksumSize {
		return nil, rest, fmt.Errorf("%w: frame body too short (%d bytes)", ErrFraming, len(body))
	}

	payload := body[:len(body)-checksumSize]
	want := binary.BigEndian.Uint16(body[len(body)-checksumSize:])
	if got := checksum(payload); got != want {
		return nil, rest, fmt.Errorf("%w: computed 0x%04X, frame carries 0x%04X",
			ErrChecksum, got, want)
	}

	data := make([]byte, len(payload)-1)
	copy(data, payload[1:])

	return &Frame{Code: Code(payload[0]), Data: data}, rest, nil
}
