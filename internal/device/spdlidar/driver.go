// internal/device/spdlidar/driver.go
package spdlidar

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tamzrod/safety-controller/internal/config"
	"github.com/tamzrod/safety-controller/internal/device"
)

// Instance pairs one configured sensor with its receive-side resync engine.
type Instance struct {
	Cfg         config.LidarInstance
	engine      Engine
	initialized bool
}

// endpoint picks the address an exchange targets. Client mode talks to the
// device; server-mode configs fall back to the local endpoint, which is what
// the bench simulator binds.
func (in *Instance) endpoint() string {
	if in.Cfg.Mode == "server" {
		return in.Cfg.LocalEndpoint()
	}
	return in.Cfg.Endpoint()
}

// Driver multiplexes the configured SPD LiDAR instances behind one command
// surface. Unlike the register devices it frames its own protocol and does
// not go through the Modbus gateway serializer.
type Driver struct {
	instances []*Instance
	byID      map[string]*Instance
	exchange  ExchangeFunc
}

// New builds a driver over every enabled instance in cfg, preserving the
// configured order for list output.
func New(cfg config.SpdLidarConfig) *Driver {
	d := &Driver{
		byID:     make(map[string]*Instance),
		exchange: exchangeTCP,
	}
	for _, ic := range cfg.Instances {
		in := &Instance{Cfg: ic}
		d.instances = append(d.instances, in)
		if ic.Enabled() {
			d.byID[ic.ID] = in
		}
	}
	return d
}

func (d *Driver) Name() string { return "spd_lidar" }

// Init arms the enabled instances; disabled ones stay uninitialized and are
// reported as such by list.
func (d *Driver) Init() error {
	for _, in := range d.instances {
		in.initialized = in.Cfg.Enabled()
	}
	return nil
}

func (d *Driver) Start() error { return nil }
func (d *Driver) Stop() error  { return nil }

func (d *Driver) Commands() []string {
	return []string{"list", "status", "send"}
}

// Instances returns the enabled instance ids in configured order, for
// building one poll task per sensor.
func (d *Driver) Instances() []string {
	var ids []string
	for _, in := range d.instances {
		if in.Cfg.Enabled() {
			ids = append(ids, in.Cfg.ID)
		}
	}
	return ids
}

func (d *Driver) Query(args []string) (string, error) {
	if len(args) == 0 {
		return "", device.ErrMissingCommand
	}
	switch args[0] {
	case "list", "status":
		return d.list(), nil
	case "send":
		if len(args) < 3 {
			return "", errors.New("usage: spd_lidar send <id|all> <single|hex bytes>")
		}
		return d.send(args[1], strings.Join(args[2:], " "))
	default:
		return "", fmt.Errorf("%w: %s (try list, status, send)", device.ErrUnknownCommand, args[0])
	}
}

func (d *Driver) list() string {
	var b strings.Builder
	b.WriteString("[spd_lidar] configured instances:\n")
	for _, in := range d.instances {
		c := in.Cfg
		fmt.Fprintf(&b, "  - id=%s enable=%t mode=%s local=%s:%d device=%s:%d initialized=%t",
			c.ID, c.Enabled(), c.Mode, c.LocalIP, c.LocalPort, c.DeviceIP, c.DevicePort, in.initialized)
		if c.Role != "" {
			fmt.Fprintf(&b, " role=%s", c.Role)
		}
		fmt.Fprintf(&b, " priority=%d\n", c.Priority)
	}
	return b.String()
}

func (d *Driver) send(target, payload string) (string, error) {
	frame, err := buildPayload(payload)
	if err != nil {
		return "", err
	}

	if target == "all" {
		if len(d.byID) == 0 {
			return "", errors.New("no enabled spd_lidar instance")
		}
		var b strings.Builder
		var errs []error
		for _, in := range d.instances {
			if !in.Cfg.Enabled() {
				continue
			}
			out, err := d.sendOne(in, frame)
			b.WriteString(out)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", in.Cfg.ID, err))
			}
		}
		return b.String(), errors.Join(errs...)
	}

	in, ok := d.byID[target]
	if !ok {
		return "", fmt.Errorf("unknown spd_lidar id: %s", target)
	}
	return d.sendOne(in, frame)
}

// buildPayload resolves the payload word into wire bytes: the single-shot
// keyword or a raw hex line.
func buildPayload(payload string) ([]byte, error) {
	if payload == "single" {
		return BuildSingleShot(), nil
	}
	return ParseHexLine(payload)
}

// sendOne runs one exchange and renders the send trace plus every frame the
// response yields. Distances arrive in millimetres.
func (d *Driver) sendOne(in *Instance, frame []byte) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "[spd_lidar:%s] send:", in.Cfg.ID)
	for _, v := range frame {
		fmt.Fprintf(&b, " 0x%02X", v)
	}
	b.WriteString("\n")

	resp, err := d.exchange(in.endpoint(), frame)
	if err != nil {
		fmt.Fprintf(&b, "[spd_lidar:%s] net error: %v\n", in.Cfg.ID, err)
		return b.String(), err
	}

	frames := in.engine.Feed(resp)
	if len(frames) == 0 {
		fmt.Fprintf(&b, "[spd_lidar:%s] no complete frame (%d bytes buffered)\n",
			in.Cfg.ID, in.engine.Pending())
		return b.String(), nil
	}
	for _, f := range frames {
		fmt.Fprintf(&b, "[spd_lidar:%s] distance=%dmm (%.3fm) status=0x%X checksum_ok=%t\n",
			in.Cfg.ID, f.Data, float64(f.Data)/1000.0, f.Status, f.ChecksumOK)
	}
	return b.String(), nil
}
