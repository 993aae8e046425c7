// internal/device/iorelay/iorelay.go
package iorelay

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tamzrod/safety-controller/internal/config"
	"github.com/tamzrod/safety-controller/internal/device"
	"github.com/tamzrod/safety-controller/internal/modbus"
)

// Channels is the relay bank width; channel n maps to coil n-1.
const Channels = 16

// Driver controls the 16-channel relay bank. Coil reads use FC 0x01,
// switching uses FC 0x05; nothing else is accepted.
type Driver struct {
	cfg     config.IoRelayConfig
	session *modbus.Session
	gw      device.Exchanger
}

func New(cfg config.IoRelayConfig, gw device.Exchanger) *Driver {
	return &Driver{cfg: cfg, session: modbus.NewSession(), gw: gw}
}

func (d *Driver) Name() string { return "io_relay" }
func (d *Driver) Init() error  { return nil }
func (d *Driver) Start() error { return nil }
func (d *Driver) Stop() error  { return nil }

func (d *Driver) Commands() []string { return []string{"on", "off", "read"} }

func coilAddr(channel int) (uint16, error) {
	if channel < 1 || channel > Channels {
		return 0, fmt.Errorf("channel must be within 1..%d", Channels)
	}
	return uint16(channel - 1), nil
}

func (d *Driver) Query(args []string) (string, error) {
	if len(args) == 0 {
		return "", device.ErrMissingCommand
	}

	var b strings.Builder
	cmd := args[0]
	var err error

	switch cmd {
	case "on", "off":
		if len(args) < 2 {
			return "", errors.New("usage: io_relay on|off <channel>")
		}
		ch, ok := device.ParseNumber(args[1])
		if !ok {
			return "", errors.New("invalid channel")
		}
		err = d.control(&b, ch, cmd == "on")

	case "read":
		ch := 0
		if len(args) >= 2 {
			v, ok := device.ParseNumber(args[1])
			if !ok {
				return "", errors.New("invalid channel")
			}
			ch = v
		}
		err = d.readStatus(&b, ch)

	default:
		return "", fmt.Errorf("%w: io_relay %s", device.ErrUnknownCommand, cmd)
	}

	return b.String(), err
}

func (d *Driver) control(b *strings.Builder, channel int, on bool) error {
	addr, err := coilAddr(channel)
	if err != nil {
		return err
	}

	adu, err := d.session.Encode(modbus.Request{
		FC:      modbus.FCWriteCoil,
		UnitID:  d.cfg.ModuleSlaveID,
		Address: addr,
		Value:   modbus.CoilValue(on),
	})
	if err != nil {
		return err
	}
	resp, err := d.gw.Exchange(adu, 0)
	if err != nil {
		return err
	}
	if err := modbus.VerifyWriteEcho(adu, resp); err != nil {
		fmt.Fprintf(b, "⚠️ 模块应答异常，响应长度=%d\n", len(resp))
		return err
	}

	state := "断开"
	if on {
		state = "吸合"
	}
	fmt.Fprintf(b, "✅ 第%d路继电器已%s\n", channel, state)
	return nil
}

// readStatus reads one channel, or the whole bank when channel is 0.
func (d *Driver) readStatus(b *strings.Builder, channel int) error {
	addr := uint16(0)
	qty := uint16(Channels)
	if channel > 0 {
		a, err := coilAddr(channel)
		if err != nil {
			return err
		}
		addr, qty = a, 1
	}

	adu, err := d.session.Encode(modbus.Request{
		FC:       modbus.FCReadCoils,
		UnitID:   d.cfg.ModuleSlaveID,
		Address:  addr,
		Quantity: qty,
	})
	if err != nil {
		return err
	}
	resp, err := d.gw.Exchange(adu, 0)
	if err != nil {
		return err
	}
	coils, err := modbus.ParseCoils(resp, modbus.FCReadCoils, qty)
	if err != nil {
		return err
	}

	if channel > 0 {
		state := "断开"
		if coils[0] {
			state = "吸合"
		}
		fmt.Fprintf(b, "📌 第%d路继电器状态：%s\n", channel, state)
		return nil
	}

	b.WriteString("\n📌 所有继电器状态：\n")
	for i, on := range coils {
		state := "断开"
		if on {
			state = "吸合"
		}
		fmt.Fprintf(b, "  第%d路：%s\n", i+1, state)
	}
	return nil
}
