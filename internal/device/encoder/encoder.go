// internal/device/encoder/encoder.go
//
// Driver for the multi-turn absolute encoder. Unlike the other register
// devices it does not share the gateway serializer: RTU runs on its own
// serial line and the TCP variant is a dedicated converter, so a persistent
// goburrow client with a background sampling loop fits better than one-shot
// exchanges.
package encoder

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goburrow/modbus"

	"github.com/tamzrod/safety-controller/internal/config"
	"github.com/tamzrod/safety-controller/internal/device"
)

// connectTimeout bounds the initial connect and each register read.
const connectTimeout = time.Second

// connection bundles a live client with its handler teardown.
type connection struct {
	client regReader
	close  func() error
}

// dialFunc opens a transport-appropriate Modbus connection; tests substitute
// a scripted one.
type dialFunc func(cfg config.EncoderConfig) (*connection, error)

func dial(cfg config.EncoderConfig) (*connection, error) {
	switch cfg.Transport {
	case "tcp":
		h := modbus.NewTCPClientHandler(cfg.Endpoint())
		h.SlaveId = cfg.Slave
		h.Timeout = connectTimeout
		if err := h.Connect(); err != nil {
			return nil, err
		}
		return &connection{client: modbus.NewClient(h), close: h.Close}, nil
	case "rtu":
		h := modbus.NewRTUClientHandler(cfg.Device)
		h.BaudRate = cfg.Baud
		h.DataBits = cfg.DataBit
		h.Parity = cfg.Parity
		h.StopBits = cfg.StopBit
		h.SlaveId = cfg.Slave
		h.Timeout = connectTimeout
		if err := h.Connect(); err != nil {
			return nil, err
		}
		return &connection{client: modbus.NewClient(h), close: h.Close}, nil
	default:
		return nil, fmt.Errorf("unsupported encoder transport %q", cfg.Transport)
	}
}

// Driver exposes the encoder behind the uniform command surface.
type Driver struct {
	cfg  config.EncoderConfig
	dial dialFunc

	mu      sync.Mutex
	conn    *connection
	running bool
	stop    chan struct{}
	wg      sync.WaitGroup

	samples sampler
}

func New(cfg config.EncoderConfig) *Driver {
	return &Driver{cfg: cfg, dial: dial}
}

func (d *Driver) Name() string { return "multi_turn_encoder" }

func (d *Driver) Init() error { return nil }

// Start connects and launches the sampling loop, matching the behavior of
// the start command sequence connect+run.
func (d *Driver) Start() error {
	if err := d.connect(); err != nil {
		return fmt.Errorf("encoder connect failed: %w", err)
	}
	d.run()
	return nil
}

func (d *Driver) Stop() error {
	d.stopLoop()
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn != nil {
		d.conn.close()
		d.conn = nil
	}
	return nil
}

func (d *Driver) Commands() []string {
	return []string{"connect", "run", "get", "status", "stop"}
}

func (d *Driver) connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn != nil {
		return nil
	}
	conn, err := d.dial(d.cfg)
	if err != nil {
		return err
	}
	d.conn = conn
	return nil
}

// run starts the sampling loop; it is a no-op while already running.
func (d *Driver) run() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running || d.conn == nil {
		return
	}
	d.running = true
	d.stop = make(chan struct{})
	client := d.conn.client
	stop := d.stop
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.samples.run(client, stop)
	}()
}

func (d *Driver) stopLoop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	close(d.stop)
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Driver) isConnected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conn != nil
}

func (d *Driver) isRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

func (d *Driver) Query(args []string) (string, error) {
	if len(args) == 0 {
		return "", device.ErrMissingCommand
	}
	switch args[0] {
	case "connect":
		if err := d.connect(); err != nil {
			return "", fmt.Errorf("encoder connect failed: %w", err)
		}
		return "encoder connected\n", nil
	case "run":
		if !d.isConnected() {
			return "", errors.New("encoder not connected")
		}
		d.run()
		return "encoder run started\n", nil
	case "stop":
		d.stopLoop()
		return "encoder stopped\n", nil
	case "status":
		return fmt.Sprintf("[multi_turn_encoder] connected=%t running=%t\n",
			d.isConnected(), d.isRunning()), nil
	case "get":
		return renderSample(d.samples.Latest()), nil
	default:
		return "", fmt.Errorf("%w: %s", device.ErrUnknownCommand, args[0])
	}
}

func renderSample(s Sample) string {
	at := s.At
	if at.IsZero() {
		at = time.Unix(0, 0)
	}
	epoch := float64(at.UnixNano()) / 1e9

	var b strings.Builder
	fmt.Fprintf(&b, "[multi_turn_encoder] valid=%t ts_epoch=%.3f ts_local=%q turns_raw=%g turns_filtered=%g velocity=%g\n",
		s.Valid, epoch, at.Format("2006-01-02 15:04:05.000"), s.TurnsRaw, s.TurnsFiltered, s.Velocity)
	return b.String()
}
