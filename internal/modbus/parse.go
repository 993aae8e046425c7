// internal/modbus/parse.go
package modbus

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// payload validates the common response framing and returns the data bytes.
//
// Layout mirrors the request MBAP: byte 7 is the function code, byte 8 the
// declared data length N, and the frame must be exactly 9+N bytes. A function
// code different from the request's is treated as an exception frame with the
// code in byte 8.
func payload(resp []byte, fc uint8) ([]byte, error) {
	if len(resp) < 9 {
		return nil, fmt.Errorf("%w: %d bytes, need at least 9", ErrMalformedResponse, len(resp))
	}
	if got := resp[7]; got != fc {
		return nil, &ProtocolError{FC: got, Code: resp[8]}
	}
	n := int(resp[8])
	if len(resp) != 9+n {
		return nil, fmt.Errorf("%w: declared %d data bytes, frame is %d bytes", ErrMalformedResponse, n, len(resp))
	}
	return resp[9 : 9+n], nil
}

// ParseRegisters decodes qty big-endian 16-bit registers from a read
// response. The declared payload may be longer than 2*qty; it must not be
// shorter.
func ParseRegisters(resp []byte, fc uint8, qty uint16) ([]uint16, error) {
	data, err := payload(resp, fc)
	if err != nil {
		return nil, err
	}
	if len(data) < int(qty)*2 {
		return nil, fmt.Errorf("%w: %d data bytes cannot hold %d registers", ErrMalformedResponse, len(data), qty)
	}
	out := make([]uint16, qty)
	for i := range out {
		out[i] = binary.BigEndian.Uint16(data[2*i : 2*i+2])
	}
	return out, nil
}

// ParseCoils decodes qty packed coil bits from a read-coils response.
// Bit i of coil i+1 lives at byte i/8, bit i%8.
func ParseCoils(resp []byte, fc uint8, qty uint16) ([]bool, error) {
	data, err := payload(resp, fc)
	if err != nil {
		return nil, err
	}
	need := (int(qty) + 7) / 8
	if len(data) < need {
		return nil, fmt.Errorf("%w: %d data bytes cannot hold %d coils", ErrMalformedResponse, len(data), qty)
	}
	out := make([]bool, qty)
	for i := range out {
		out[i] = data[i/8]&(1<<uint(i%8)) != 0
	}
	return out, nil
}

// VerifyWriteEcho checks the exact-byte echo contract of single writes.
// A mismatch is reported, never promoted to success: the device may have
// applied the write even though the echo is wrong.
func VerifyWriteEcho(req, resp []byte) error {
	if bytes.Equal(req, resp) {
		return nil
	}
	return fmt.Errorf("%w: sent % X, got % X", ErrWriteEchoMismatch, req, resp)
}
