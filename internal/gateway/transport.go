// internal/gateway/transport.go
package gateway

import (
	"errors"
	"fmt"
	"net"
	"time"
)

// DefaultTimeout bounds connect, send and recv of one exchange.
const DefaultTimeout = 5 * time.Second

// recvBufSize bounds the single receive of an exchange. Register responses
// top out well below this.
const recvBufSize = 1024

// ErrTransport marks socket failures that survived the single retry.
var ErrTransport = errors.New("gateway: transport failure")

// DialFunc is net.DialTimeout's shape; tests substitute it to observe and
// fail connection attempts.
type DialFunc func(network, address string, timeout time.Duration) (net.Conn, error)

// Transport performs single-exchange TCP round trips. Connections are
// deliberately short-lived: industrial bridges drop idle connections, and
// reopening per exchange makes recovery trivial. One reconnect retry absorbs
// the transient resets such bridges produce.
type Transport struct {
	Timeout time.Duration // default for exchanges that pass no timeout
	Dial    DialFunc      // nil means net.DialTimeout
}

// Exchange opens a connection to endpoint, writes the whole request, performs
// one bounded receive and closes. Any failure triggers exactly one retry from
// scratch; a second failure surfaces ErrTransport.
func (t *Transport) Exchange(endpoint string, req []byte, timeout time.Duration) ([]byte, error) {
	if timeout <= 0 {
		timeout = t.Timeout
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	resp, first := t.once(endpoint, req, timeout)
	if first == nil {
		return resp, nil
	}
	resp, second := t.once(endpoint, req, timeout)
	if second != nil {
		return nil, fmt.Errorf("%w: %v (first attempt: %v)", ErrTransport, second, first)
	}
	return resp, nil
}

func (t *Transport) once(endpoint string, req []byte, timeout time.Duration) ([]byte, error) {
	dial := t.Dial
	if dial == nil {
		dial = net.DialTimeout
	}
	conn, err := dial("tcp", endpoint, timeout)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
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
