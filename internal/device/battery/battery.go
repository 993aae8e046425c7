// internal/device/battery/battery.go
package battery

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tamzrod/safety-controller/internal/config"
	"github.com/tamzrod/safety-controller/internal/device"
	"github.com/tamzrod/safety-controller/internal/modbus"
)

// Driver speaks to the BMS behind the shared gateway. Reads use FC 0x03/0x04,
// writes FC 0x06 only.
type Driver struct {
	cfg     config.BatteryConfig
	slaveID uint8
	session *modbus.Session
	gw      device.Exchanger
	confirm device.Confirmer

	groups []device.RegisterGroup
}

func New(cfg config.BatteryConfig, gw device.Exchanger, confirm device.Confirmer) *Driver {
	return &Driver{
		cfg:     cfg,
		slaveID: cfg.BatterySlaveID,
		session: modbus.NewSession(),
		gw:      gw,
		confirm: confirm,
		groups: []device.RegisterGroup{
			{Start: 0x0000, End: 0x000F, Access: "读/写混合", Desc: "基础状态（SOC、电流电压、MOS、均衡位）"},
			{Start: 0x0010, End: 0x004F, Access: "只读", Desc: "第1~64节电芯电压"},
			{Start: 0x0050, End: 0x0061, Access: "只读", Desc: "第1~15路NTC温度 + 平均/最高/最低"},
			{Start: 0x0062, End: 0x0090, Access: "读/写混合", Desc: "保护状态、串数、地址、波特率、保护阈值"},
			{Start: 0x0100, End: 0x0161, Access: "读/写混合", Desc: "电流/电压/温度校准参数"},
			{Start: 0x0162, End: 0x0183, Access: "只读", Desc: "蓝牙/GPS/绝缘/告警/SOH/大电流"},
			{Start: 0x0200, End: 0x0221, Access: "读/写混合", Desc: "告警阈值与回环参数"},
			{Start: 0x0FA1, End: 0x0FB4, Access: "读/写（高风险）", Desc: "调试/强制控制寄存器"},
			{Start: 0x5A60, End: 0x5A8E, Access: "读/写（高风险）", Desc: "高级系统/网络/通信参数"},
		},
	}
}

func (d *Driver) Name() string { return "battery" }
func (d *Driver) Init() error  { return nil }
func (d *Driver) Start() error { return nil }
func (d *Driver) Stop() error  { return nil }

func (d *Driver) Commands() []string {
	return []string{"map", "basic", "cell", "temp", "mos", "protect", "all", "scan", "addr", "get", "set"}
}

// SlaveID returns the current battery bus address; addr updates it.
func (d *Driver) SlaveID() uint8 { return d.slaveID }

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

func (d *Driver) write(addr, value uint16) error {
	adu, err := d.session.Encode(modbus.Request{
		FC: modbus.FCWriteRegister, UnitID: d.slaveID, Address: addr, Value: value,
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
		b.WriteString(device.RenderGroups("📚 电池文档寄存器分组（可读可写范围）", d.groups))

	case "basic", "cell", "temp", "mos", "protect", "all":
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

	case "addr":
		if len(args) < 2 {
			return "", errors.New("usage: battery addr <new_addr>")
		}
		v, ok := device.ParseNumber(args[1])
		if !ok {
			return "", errors.New("invalid addr value")
		}
		err = d.setAddr(&b, v)

	case "get":
		if len(args) < 2 {
			return "", errors.New("usage: battery get <addr> [qty] [fc]")
		}
		addr, qty, fc, perr := parseReadArgs(args)
		if perr != nil {
			return "", perr
		}
		err = d.genericRead(&b, addr, qty, fc)

	case "set":
		if len(args) < 3 {
			return "", errors.New("usage: battery set <addr> <value> [fc]")
		}
		addr, value, fc, perr := parseWriteArgs(args)
		if perr != nil {
			return "", perr
		}
		err = d.genericWrite(&b, addr, value, fc)

	default:
		return "", fmt.Errorf("%w: battery %s", device.ErrUnknownCommand, cmd)
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
