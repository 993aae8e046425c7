// internal/device/solar/solar.go
package solar

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tamzrod/safety-controller/internal/config"
	"github.com/tamzrod/safety-controller/internal/device"
	"github.com/tamzrod/safety-controller/internal/modbus"
)

// Driver speaks to the solar charge controller behind the shared gateway.
// Reads use FC 0x03/0x04; writes allow FC 0x05 (coil control) and 0x06.
type Driver struct {
	cfg     config.SolarConfig
	session *modbus.Session
	gw      device.Exchanger
	confirm device.Confirmer

	groups []device.RegisterGroup
}

func New(cfg config.SolarConfig, gw device.Exchanger, confirm device.Confirmer) *Driver {
	return &Driver{
		cfg:     cfg,
		session: modbus.NewSession(),
		gw:      gw,
		confirm: confirm,
		groups: []device.RegisterGroup{
			{Start: 0x2000, End: 0x200C, Access: "只读", Desc: "开关量状态（超温、昼夜）"},
			{Start: 0x3000, End: 0x3010, Access: "只读", Desc: "额定参数（阵列/电池/负载额定值）"},
			{Start: 0x3100, End: 0x311D, Access: "只读", Desc: "实时参数（阵列/负载/温度/SOC等）"},
			{Start: 0x3200, End: 0x3202, Access: "只读", Desc: "状态位（电池/充电/放电状态）"},
			{Start: 0x3302, End: 0x3313, Access: "只读", Desc: "日电/月/年/总统计"},
			{Start: 0x331A, End: 0x331C, Access: "只读", Desc: "电池电压/电流L/H"},
			{Start: 0x9000, End: 0x9070, Access: "读/写混合", Desc: "蓄电池参数与管理参数"},
			{Start: 0x9013, End: 0x9015, Access: "读/写混合", Desc: "实时时钟"},
			{Start: 0x9017, End: 0x9063, Access: "读/写混合", Desc: "设备参数（温度阈值等）"},
			{Start: 0x901E, End: 0x9069, Access: "读/写混合", Desc: "负载控制/光控/定时参数"},
			{Start: 0x0000, End: 0x000E, Access: "线圈写", Desc: "开关量控制（05功能码）"},
		},
	}
}

func (d *Driver) Name() string { return "solar" }
func (d *Driver) Init() error  { return nil }
func (d *Driver) Start() error { return nil }
func (d *Driver) Stop() error  { return nil }

func (d *Driver) Commands() []string {
	return []string{"map", "basic", "status", "all", "scan", "get", "set"}
}

// ---- EXCHANGE HELPERS ----

func (d *Driver) read(fc uint8, addr, qty uint16, uid uint8, timeout time.Duration) ([]uint16, error) {
	if fc != modbus.FCReadHolding && fc != modbus.FCReadInput {
		return nil, &modbus.UnsupportedFunctionCodeError{FC: fc}
	}
	adu, err := d.session.Encode(modbus.Request{FC: fc, UnitID: uid, Address: addr, Quantity: qty})
	if err != nil {
		return nil, err
	}
	resp, err := d.gw.Exchange(adu, timeout)
	if err != nil {
		return nil, err
	}
	return modbus.ParseRegisters(resp, fc, qty)
}

func (d *Driver) write(fc uint8, addr, value uint16) error {
	adu, err := d.session.Encode(modbus.Request{
		FC: fc, UnitID: d.cfg.SolarSlaveID, Address: addr, Value: value,
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

// signed32 assembles a two's-complement 32-bit value from low and high words.
func signed32(low, high uint16) int32 {
	return int32(uint32(high)<<16 | uint32(low))
}

// power32 assembles the unsigned power pair and scales to watts.
func power32(low, high uint16) float64 {
	return float64(uint32(high)<<16|uint32(low)) / 100.0
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
		b.WriteString(device.RenderGroups("📚 太阳能文档寄存器分组（可读可写范围）", d.groups))

	case "basic", "status", "all":
		err = d.queryInfo(&b, cmd)

	case "scan":
		start, end := 1, 16
		if len(args) >= 2 {
			v, ok := device.ParseNumber(args[1])
			if !ok {
				return "", errors.New("invalid scan start")
			}
			start = v
		}
		if len(args) >= 3 {
			v, ok := device.ParseNumber(args[2])
			if !ok {
				return "", errors.New("invalid scan end")
			}
			end = v
		}
		err = d.scan(&b, start, end)

	case "get":
		if len(args) < 2 {
			return "", errors.New("usage: solar get <addr> [qty] [fc]")
		}
		addr, qty, fc, perr := parseReadArgs(args)
		if perr != nil {
			return "", perr
		}
		err = d.genericRead(&b, addr, qty, fc)

	case "set":
		if len(args) < 3 {
			return "", errors.New("usage: solar set <addr> <value> [fc]")
		}
		addr, value, fc, perr := parseWriteArgs(args)
		if perr != nil {
			return "", perr
		}
		err = d.genericWrite(&b, addr, value, fc)

	default:
		return "", fmt.Errorf("%w: solar %s", device.ErrUnknownCommand, cmd)
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
