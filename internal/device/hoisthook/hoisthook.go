// internal/device/hoisthook/hoisthook.go
package hoisthook

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tamzrod/safety-controller/internal/config"
	"github.com/tamzrod/safety-controller/internal/device"
	"github.com/tamzrod/safety-controller/internal/modbus"
)

// Driver speaks to the hoist-hook auxiliary panel. The panel itself answers
// on the hook slave id; its power module answers on a second id. Only FC
// 0x03 reads and FC 0x06 writes are accepted.
type Driver struct {
	cfg     config.HoistHookConfig
	session *modbus.Session
	gw      device.Exchanger
	confirm device.Confirmer

	groups []device.RegisterGroup
}

func New(cfg config.HoistHookConfig, gw device.Exchanger, confirm device.Confirmer) *Driver {
	return &Driver{
		cfg:     cfg,
		session: modbus.NewSession(),
		gw:      gw,
		confirm: confirm,
		groups: []device.RegisterGroup{
			{Start: 0x0000, End: 0x0063, Access: "读/写混合", Desc: "指令寄存器（0~99）"},
			{Start: 0x0064, End: 0x00C7, Access: "只读", Desc: "状态寄存器（100~199）"},
		},
	}
}

func (d *Driver) Name() string { return "hoist_hook" }
func (d *Driver) Init() error  { return nil }
func (d *Driver) Start() error { return nil }
func (d *Driver) Stop() error  { return nil }

func (d *Driver) Commands() []string {
	return []string{"map", "speaker", "light", "rfid", "power", "gps", "all",
		"speaker_ctl", "light_ctl", "get", "set"}
}

// ---- EXCHANGE HELPERS ----

func (d *Driver) read(addr, qty uint16, uid uint8, timeout time.Duration) ([]uint16, error) {
	adu, err := d.session.Encode(modbus.Request{
		FC: modbus.FCReadHolding, UnitID: uid, Address: addr, Quantity: qty,
	})
	if err != nil {
		return nil, err
	}
	resp, err := d.gw.Exchange(adu, timeout)
	if err != nil {
		return nil, err
	}
	return modbus.ParseRegisters(resp, modbus.FCReadHolding, qty)
}

func (d *Driver) write(addr, value uint16) error {
	adu, err := d.session.Encode(modbus.Request{
		FC: modbus.FCWriteRegister, UnitID: d.cfg.HookSlaveID, Address: addr, Value: value,
	})
	if err != nil {
		return err
	}
	resp, err := d.gw.Exchange(adu, 0)
	if err != nil {
		return err
	}
	return modbus.VerifyWriteEcho(adu, resp)
}

// ---- COMMAND DISPATCH ----

func (d *Driver) Query(args []string) (string, error) {
	if len(args) == 0 {
		return "", device.ErrMissingCommand
	}

	var b strings.Builder
	cmd := args[0]
	var err error

	switch cmd {
	case "map":
		b.WriteString(device.RenderGroups("📚 吊钩寄存器分组", d.groups))

	case "speaker":
		err = d.querySpeaker(&b)
	case "light":
		err = d.queryLight(&b)
	case "rfid":
		err = d.queryRFID(&b)
	case "power":
		err = d.queryPower(&b)
	case "gps":
		b.WriteString("🛰️ GPS 功能按需求暂不启用，当前仅保留接口占位。\n")
	case "all":
		err = errors.Join(
			d.querySpeaker(&b),
			d.queryLight(&b),
			d.queryRFID(&b),
			d.queryPower(&b),
		)
		b.WriteString("🛰️ GPS 功能按需求暂不启用，当前仅保留接口占位。\n")

	case "speaker_ctl":
		if len(args) < 2 {
			return "", errors.New("usage: hoist_hook speaker_ctl <off|7m|3m|both>")
		}
		err = d.controlSpeaker(&b, args[1])

	case "light_ctl":
		if len(args) < 2 {
			return "", errors.New("usage: hoist_hook light_ctl <on|off>")
		}
		err = d.controlLight(&b, args[1])

	case "get":
		if len(args) < 2 {
			return "", errors.New("usage: hoist_hook get <addr> [qty] [fc]")
		}
		addr, qty, fc, perr := parseReadArgs(args)
		if perr != nil {
			return "", perr
		}
		err = d.genericRead(&b, addr, qty, fc)

	case "set":
		if len(args) < 3 {
			return "", errors.New("usage: hoist_hook set <addr> <value> [fc]")
		}
		addr, value, fc, perr := parseWriteArgs(args)
		if perr != nil {
			return "", perr
		}
		err = d.genericWrite(&b, addr, value, fc)

	default:
		return "", fmt.Errorf("%w: hoist_hook %s", device.ErrUnknownCommand, cmd)
	}

	return b.String(), err
}

func parseReadArgs(args []string) (addr, qty uint16, fc int, err error) {
	a, ok := device.ParseNumber(args[1])
	if !ok {
		return 0, 0, 0, errors.New("invalid addr")
	}
	q := 1
	if len(args) >= 3 {
		if q, ok = device.ParseNumber(args[2]); !ok {
			return 0, 0, 0, errors.New("invalid qty")
		}
	}
	f := -1
	if len(args) >= 4 {
		if f, ok = device.ParseNumber(args[3]); !ok {
			return 0, 0, 0, errors.New("invalid fc")
		}
	}
	return uint16(a), uint16(q), f, nil
}

func parseWriteArgs(args []string) (addr, value uint16, fc int, err error) {
	a, ok := device.ParseNumber(args[1])
	if !ok {
		return 0, 0, 0, errors.New("invalid addr/value")
	}
	v, ok := device.ParseNumber(args[2])
	if !ok {
		return 0, 0, 0, errors.New("invalid addr/value")
	}
	f := -1
	if len(args) >= 4 {
		if f, ok = device.ParseNumber(args[3]); !ok {
			return 0, 0, 0, errors.New("invalid fc")
		}
	}
	return uint16(a), uint16(v), f, nil
}
