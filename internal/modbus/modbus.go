// internal/modbus/modbus.go
package modbus

// Function codes accepted anywhere in the system. Each device class narrows
// this further to its own allowlist.
const (
	FCReadCoils     uint8 = 0x01
	FCReadHolding   uint8 = 0x03
	FCReadInput     uint8 = 0x04
	FCWriteCoil     uint8 = 0x05
	FCWriteRegister uint8 = 0x06
)

// FrameLen is the exact request ADU size: MBAP(7) + PDU(5).
const FrameLen = 12

// Coil write payloads per the wire contract.
const (
	CoilOn  uint16 = 0xFF00
	CoilOff uint16 = 0x0000
)

// Request describes one register operation. Quantity is used by read function
// codes, Value by write function codes; the other field is ignored.
type Request struct {
	FC       uint8
	UnitID   uint8
	Address  uint16
	Quantity uint16
	Value    uint16
}

// IsRead reports whether fc is one of the supported read function codes.
func IsRead(fc uint8) bool {
	return fc == FCReadCoils || fc == FCReadHolding || fc == FCReadInput
}

// IsWrite reports whether fc is one of the supported write function codes.
func IsWrite(fc uint8) bool {
	return fc == FCWriteCoil || fc == FCWriteRegister
}

// CoilValue maps a switch state to its coil write payload.
func CoilValue(on bool) uint16 {
	if on {
		return CoilOn
	}
	return CoilOff
}
