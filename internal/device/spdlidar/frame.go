// internal/device/spdlidar/frame.go
package spdlidar

import (
	"fmt"
	"strconv"
	"strings"
)

// Wire constants of the SPD ranging protocol. Every frame in either
// direction is exactly eight bytes.
const (
	header1   = 0x55
	header2   = 0xAA
	cmdSingle = 0x88
	frameSize = 8
)

// Frame is one decoded eight-byte device frame.
type Frame struct {
	Raw         [frameSize]byte
	ValidHeader bool
	Status      byte
	Data        uint16 // big-endian payload, millimetres for ranging frames
	ChecksumOK  bool
}

// checksumSend covers bytes 2..6 of a seven-byte command; the result is
// appended as the eighth byte before transmission.
func checksumSend(cmd []byte) byte {
	var sum int
	for _, b := range cmd[2:7] {
		sum += int(b)
	}
	return byte(sum & 0xFF)
}

// checksumRecv covers the first seven bytes of a received frame and is
// compared against the eighth.
func checksumRecv(frame []byte) byte {
	var sum int
	for _, b := range frame[:7] {
		sum += int(b)
	}
	return byte(sum & 0xFF)
}

// BuildSingleShot returns the complete single-measurement trigger frame.
func BuildSingleShot() []byte {
	cmd := []byte{header1, header2, cmdSingle, 0xFF, 0xFF, 0xFF, 0xFF}
	return append(cmd, checksumSend(cmd))
}

// ParseHexLine turns a space-separated hex byte line into a sendable frame.
// Seven bytes get the checksum appended; eight are sent as written. Tokens
// may carry an optional 0x prefix.
func ParseHexLine(line string) ([]byte, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty hex line")
	}
	out := make([]byte, 0, frameSize)
	for _, tok := range fields {
		t := strings.TrimPrefix(strings.TrimPrefix(tok, "0x"), "0X")
		v, err := strconv.ParseUint(t, 16, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid hex byte %q", tok)
		}
		out = append(out, byte(v))
	}
	switch len(out) {
	case frameSize - 1:
		return append(out, checksumSend(out)), nil
	case frameSize:
		return out, nil
	default:
		return nil, fmt.Errorf("need 7 or 8 bytes, got %d", len(out))
	}
}

// Engine accumulates raw receive bytes and re-synchronizes on the 55 AA 88
// header. Bytes preceding a header are discarded; an incomplete tail stays
// buffered for the next feed.
type Engine struct {
	buf []byte
}

// Feed appends p to the receive buffer and returns every complete frame
// recoverable from it.
func (e *Engine) Feed(p []byte) []Frame {
	e.buf = append(e.buf, p...)

	var frames []Frame
	for len(e.buf) >= frameSize {
		start := 0
		for start+2 < len(e.buf) {
			if e.buf[start] == header1 && e.buf[start+1] == header2 && e.buf[start+2] == cmdSingle {
				break
			}
			start++
		}
		if start > 0 {
			e.buf = e.buf[start:]
		}
		if len(e.buf) < frameSize {
			break
		}

		var f Frame
		copy(f.Raw[:], e.buf[:frameSize])
		f.ValidHeader = f.Raw[0] == header1 && f.Raw[1] == header2 && f.Raw[2] == cmdSingle
		f.Status = f.Raw[3]
		f.Data = uint16(f.Raw[5])<<8 | uint16(f.Raw[6])
		f.ChecksumOK = checksumRecv(f.Raw[:]) == f.Raw[7]
		frames = append(frames, f)
		e.buf = e.buf[frameSize:]
	}
	return frames
}

// Pending reports how many bytes wait in the buffer for a future frame.
func (e *Engine) Pending() int { return len(e.buf) }
