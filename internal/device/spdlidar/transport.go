// internal/device/spdlidar/transport.go
package spdlidar

import (
	"errors"
	"net"
	"time"
)

// exchangeTimeout bounds connect, send and recv of one ranging exchange.
// The sensor answers within tens of milliseconds or not at all.
const exchangeTimeout = time.Second

// recvBufSize bounds the single receive. A burst of a few frames fits with
// room to spare.
const recvBufSize = 256

// ExchangeFunc performs one request/response round trip with a sensor.
// Tests substitute it to feed canned frames through the resync engine.
type ExchangeFunc func(endpoint string, req []byte) ([]byte, error)

// exchangeTCP opens a short-lived connection, writes the whole frame and
// performs one bounded receive. Unlike the Modbus gateway there is no retry:
// a missed single-shot is simply re-armed by the next poll.
func exchangeTCP(endpoint string, req []byte) ([]byte, error) {
	conn, err := net.DialTimeout("tcp", endpoint, exchangeTimeout)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(exchangeTimeout)); err != nil {
		return nil, err
	}
	if _, err := conn.Write(req); err != nil {
		return nil, err
	}

	buf := make([]byte, recvBufSize)
	n, err := conn.Read(buf)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, errors.New("empty response")
	}
	out := make([]byte, n)
	copy(out, buf[:n])
	return out, nil
}
