// internal/modbus/session.go
package modbus

import "encoding/binary"

// initialTID is where every per-driver transaction counter starts; chosen to
// match the traffic the canonical gateway was validated against.
const initialTID uint16 = 0x31A6

// Session owns one driver's transaction-id counter. The id increments only
// when a read is issued; writes reuse the last-assigned id, which the gateway
// tolerates. Sessions are not safe for concurrent use; each driver owns one
// and relies on its caller holding the driver's command lock.
type Session struct {
	tid uint16
}

// NewSession returns a session with the canonical starting transaction id.
func NewSession() *Session {
	return &Session{tid: initialTID}
}

// TID returns the last-assigned transaction id.
func (s *Session) TID() uint16 { return s.tid }

// Encode builds the 12-byte request ADU:
//
//	TID(2) PID(2=0) LEN(2=6) UID(1) FC(1) ADDR(2) DATA(2)
//
// DATA is the quantity for reads and the value for writes.
func (s *Session) Encode(req Request) ([]byte, error) {
	switch {
	case IsRead(req.FC):
		s.tid++
	case IsWrite(req.FC):
		// keep the current id
	default:
		return nil, &UnsupportedFunctionCodeError{FC: req.FC}
	}

	const protoID uint16 = 0
	const length uint16 = 6 // UID(1) + PDU(1+2+2)

	adu := make([]byte, FrameLen)
	binary.BigEndian.PutUint16(adu[0:2], s.tid)
	binary.BigEndian.PutUint16(adu[2:4], protoID)
	binary.BigEndian.PutUint16(adu[4:6], length)
	adu[6] = req.UnitID
	adu[7] = req.FC

	binary.BigEndian.PutUint16(adu[8:10], req.Address)
	data := req.Quantity
	if IsWrite(req.FC) {
		data = req.Value
	}
	binary.BigEndian.PutUint16(adu[10:12], data)
	return adu, nil
}

// DecodeRequest unpacks a request ADU back into its header fields. Both the
// quantity and value fields are populated from the data word; the caller
// knows which one the function code means. Used by stub gateways in tests
// and by the write-echo diagnostics.
func DecodeRequest(adu []byte) (Request, uint16, error) {
	if len(adu) != FrameLen {
		return Request{}, 0, ErrMalformedResponse
	}
	tid := binary.BigEndian.Uint16(adu[0:2])
	data := binary.BigEndian.Uint16(adu[10:12])
	req := Request{
		FC:       adu[7],
		UnitID:   adu[6],
		Address:  binary.BigEndian.Uint16(adu[8:10]),
		Quantity: data,
		Value:    data,
	}
	return req, tid, nil
}
