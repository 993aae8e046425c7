// internal/gateway/transport_test.go
package gateway

import (
	"bytes"
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"
)

// echoServer accepts connections and echoes whatever arrives. dropFirst makes
// it close the first connection without reading, simulating a bridge reset.
func echoServer(t *testing.T, dropFirst bool) (addr string, accepts *int32) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })

	var count int32
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			n := atomic.AddInt32(&count, 1)
			if dropFirst && n == 1 {
				conn.Close()
				continue
			}
			go func(c net.Conn) {
				defer c.Close()
				buf := make([]byte, 256)
				rn, err := c.Read(buf)
				if err != nil {
					return
				}
				c.Write(buf[:rn])
			}(conn)
		}
	}()
	return ln.Addr().String(), &count
}

func TestTransport_Exchange(t *testing.T) {
	addr, _ := echoServer(t, false)

	tr := &Transport{Timeout: time.Second}
	req := []byte{0x31, 0xA7, 0x00, 0x00, 0x00, 0x06, 0x03, 0x01, 0x00, 0x00, 0x00, 0x10}
	resp, err := tr.Exchange(addr, req, 0)
	if err != nil {
		t.Fatalf("Exchange err=%v", err)
	}
	if !bytes.Equal(resp, req) {
		t.Fatalf("resp = % X, want echo", resp)
	}
}

func TestTransport_RetriesOnceAfterDrop(t *testing.T) {
	addr, accepts := echoServer(t, true)

	var dials int32
	tr := &Transport{
		Timeout: time.Second,
		Dial: func(network, address string, timeout time.Duration) (net.Conn, error) {
			atomic.AddInt32(&dials, 1)
			return net.DialTimeout(network, address, timeout)
		},
	}

	req := []byte{0x01, 0x02, 0x03}
	resp, err := tr.Exchange(addr, req, 0)
	if err != nil {
		t.Fatalf("Exchange err=%v", err)
	}
	if !bytes.Equal(resp, req) {
		t.Fatalf("resp = % X, want echo", resp)
	}
	if got := atomic.LoadInt32(&dials); got != 2 {
		t.Fatalf("connect attempts = %d, want 2", got)
	}
	if got := atomic.LoadInt32(accepts); got != 2 {
		t.Fatalf("server accepts = %d, want 2", got)
	}
}

func TestTransport_SecondFailureSurfacesTransportError(t *testing.T) {
	tr := &Transport{
		Dial: func(network, address string, timeout time.Duration) (net.Conn, error) {
			return nil, errors.New("connection refused")
		},
	}
	_, err := tr.Exchange("192.0.2.1:502", []byte{0x00}, 50*time.Millisecond)
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("err = %v, want ErrTransport", err)
	}
}

func TestClient_ExchangeThroughRegistry(t *testing.T) {
	addr, _ := echoServer(t, false)

	reg := NewRegistry(10 * time.Millisecond)
	c := NewClient(context.Background(), addr, reg, &Transport{Timeout: time.Second})

	req := []byte{0xAA, 0xBB}
	for i := 0; i < 3; i++ {
		resp, err := c.Exchange(req, 0)
		if err != nil {
			t.Fatalf("Exchange %d err=%v", i, err)
		}
		if !bytes.Equal(resp, req) {
			t.Fatalf("resp = % X, want echo", resp)
		}
	}
}
