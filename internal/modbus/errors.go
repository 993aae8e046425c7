// internal/modbus/errors.go
package modbus

import (
	"errors"
	"fmt"
)

// ErrMalformedResponse marks responses with a broken length or payload-size
// declaration. Wrapped errors carry the detail; match with errors.Is.
var ErrMalformedResponse = errors.New("modbus: malformed response")

// ErrWriteEchoMismatch marks write responses that do not echo the request
// byte-for-byte. The write may still have taken effect on the device.
var ErrWriteEchoMismatch = errors.New("modbus: write echo mismatch")

// ProtocolError is a device-reported exception: the response function code
// has the high bit set and the payload is a one-byte exception code.
type ProtocolError struct {
	FC   uint8 // function code as received, high bit set
	Code uint8
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("modbus exception: fc=0x%02X code=0x%02X", e.FC, e.Code)
}

// ExceptionCode satisfies callers that classify errors without depending on
// this package's concrete types.
func (e *ProtocolError) ExceptionCode() uint8 { return e.Code }

// UnsupportedFunctionCodeError rejects function codes outside the supported
// repertoire before anything touches the wire.
type UnsupportedFunctionCodeError struct {
	FC uint8
}

func (e *UnsupportedFunctionCodeError) Error() string {
	return fmt.Sprintf("modbus: unsupported function code 0x%02X", e.FC)
}
