// internal/device/battery/queries.go
package battery

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tamzrod/safety-controller/internal/device"
	"github.com/tamzrod/safety-controller/internal/modbus"
)

var registerDescriptions = map[uint16]string{
	0x0000: "SOC（0.01%）",
	0x0001: "总电流（0.01A）",
	0x0002: "总电压（0.01V）",
	0x000A: "充电MOS状态",
	0x000B: "放电MOS状态",
	0x0062: "保护状态位",
	0x0063: "实际电池串数",
	0x0064: "RS485地址",
	0x0182: "SOH（0.1%）",
}

func describeRegister(addr uint16) string {
	if addr >= 0x0010 && addr <= 0x004F {
		return fmt.Sprintf("第%d节电芯电压（mV）", addr-0x0010+1)
	}
	if desc, ok := registerDescriptions[addr]; ok {
		return desc
	}
	return "文档寄存器（未内置详细语义）"
}

var protectionBits = []string{
	"单体过压保护", "单体欠压保护", "整组过压保护", "整组欠压保护",
	"充电过温保护", "充电低温保护", "放电过温保护", "放电低温保护",
	"充电过流保护", "放电过流保护", "短路保护",
}

// ---- INFO QUERIES ----

func (d *Driver) queryInfo(b *strings.Builder, infoType string) error {
	fmt.Fprintf(b, "\n📡 正在查询电池%s信息...\n", infoType)
	if d.slaveID == d.cfg.ModuleSlaveID || d.slaveID < 2 {
		return errors.New("battery slave id invalid")
	}

	switch infoType {
	case "basic":
		return d.queryBasic(b)
	case "cell":
		return d.queryCell(b)
	case "temp":
		return d.queryTemp(b)
	case "mos":
		return d.queryMOS(b)
	case "protect":
		return d.queryProtect(b)
	case "all":
		return errors.Join(
			d.queryBasic(b),
			d.queryCell(b),
			d.queryTemp(b),
			d.queryMOS(b),
			d.queryProtect(b),
		)
	}
	return fmt.Errorf("unknown info_type: %s", infoType)
}

func (d *Driver) queryBasic(b *strings.Builder) error {
	values, err := d.read(modbus.FCReadHolding, 0x0000, 9, d.slaveID, 0)
	if err != nil {
		return err
	}

	// The charge MOS register disambiguates "charging" from "charge
	// allowed"; best-effort, the basic block stands on its own.
	hasMOS := false
	var chargeMOS uint16
	if mos, err := d.read(modbus.FCReadHolding, 0x000A, 1, d.slaveID, 0); err == nil {
		hasMOS = true
		chargeMOS = mos[0]
	}

	currentA := float64(int16(values[1])) * 0.01
	var state string
	if hasMOS {
		switch {
		case chargeMOS == 0:
			state = "未充电"
		case currentA > 0.05:
			state = "充电中"
		default:
			state = "允许充电(当前无明显充电电流)"
		}
	} else {
		switch {
		case currentA > 0.05:
			state = "充电中"
		case currentA < -0.05:
			state = "放电中"
		default:
			state = "静置"
		}
	}

	remain := values[5]
	hours := int(remain >> 8)
	minutes := int(remain & 0xFF)

	b.WriteString("✅ 电池关键信息：\n")
	b.WriteString("  充电状态: " + state)
	if hasMOS {
		fmt.Fprintf(b, " (MOS=%d)", chargeMOS)
	}
	b.WriteString("\n")
	fmt.Fprintf(b, "  SOC: %.2f%%\n", float64(values[0])*0.01)
	fmt.Fprintf(b, "  总电流: %.2fA\n", currentA)
	fmt.Fprintf(b, "  总电压: %.2fV\n", float64(values[2])*0.01)
	fmt.Fprintf(b, "  剩余使用时间: %d小时%d分钟 (raw=0x%04X)\n", hours, minutes, remain)
	return nil
}

func (d *Driver) queryCell(b *strings.Builder) error {
	values, err := d.read(modbus.FCReadHolding, 0x0010, 16, d.slaveID, 0)
	if err != nil {
		return err
	}

	maxV, minV := values[0], values[0]
	for _, v := range values[1:] {
		if v > maxV {
			maxV = v
		}
		if v < minV {
			minV = v
		}
	}

	b.WriteString("✅ 16节电芯电压：\n")
	fmt.Fprintf(b, "  最高: %dmV, 最低: %dmV, 压差: %dmV\n", maxV, minV, maxV-minV)
	for i, v := range values {
		fmt.Fprintf(b, "  第%d节: %dmV\n", i+1, v)
	}
	return nil
}

func (d *Driver) queryTemp(b *strings.Builder) error {
	values, err := d.read(modbus.FCReadHolding, 0x0050, 2, d.slaveID, 0)
	if err != nil {
		return err
	}
	b.WriteString("✅ 温度信息：\n")
	fmt.Fprintf(b, "  第1路NTC温度: %.1f℃\n", float64(int16(values[0]))*0.1)
	fmt.Fprintf(b, "  第2路NTC温度: %.1f℃\n", float64(int16(values[1]))*0.1)
	return nil
}

func (d *Driver) queryMOS(b *strings.Builder) error {
	b.WriteString("✅ MOS管状态：\n")
	var firstErr error
	if values, err := d.read(modbus.FCReadHolding, 0x000A, 1, d.slaveID, 0); err == nil {
		fmt.Fprintf(b, "  充电MOS管状态: %d\n", values[0])
	} else {
		firstErr = err
	}
	if values, err := d.read(modbus.FCReadHolding, 0x000B, 1, d.slaveID, 0); err == nil {
		fmt.Fprintf(b, "  放电MOS管状态: %d\n", values[0])
	} else if firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func (d *Driver) queryProtect(b *strings.Builder) error {
	values, err := d.read(modbus.FCReadHolding, 0x0062, 1, d.slaveID, 0)
	if err != nil {
		return err
	}

	v := values[0]
	var active []string
	for bit, name := range protectionBits {
		if (v>>uint(bit))&0x1 != 0 {
			active = append(active, name)
		}
	}

	if len(active) == 0 {
		b.WriteString("✅ 无保护状态，电池正常\n")
	} else {
		b.WriteString("⚠️ 存在保护/告警: " + strings.Join(active, ", ") + "\n")
	}
	return nil
}

// ---- SCAN / ADDRESS ----

func (d *Driver) scan(b *strings.Builder, start, end int) error {
	if start < 1 || end > 252 || start > end {
		return errors.New("scan range must satisfy 1 <= start <= end <= 252")
	}
	fmt.Fprintf(b, "\n🔎 扫描电池站号: %d~%d\n", start, end)

	var found []int
	for uid := start; uid <= end; uid++ {
		if uint8(uid) == d.cfg.ModuleSlaveID {
			continue
		}
		values, err := d.read(modbus.FCReadHolding, 0x0002, 1, uint8(uid), device.ScanTimeout)
		if err != nil {
			continue
		}
		fmt.Fprintf(b, "✅ 站号%d 有响应，总电压=%.2fV\n", uid, float64(values[0])*0.01)
		found = append(found, uid)
	}

	if len(found) == 0 {
		b.WriteString("❌ 未发现可用电池从站\n")
		return nil
	}
	b.WriteString("🎯 可用电池站号: [")
	for i, uid := range found {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(b, "%d", uid)
	}
	b.WriteString("]\n")
	return nil
}

func (d *Driver) setAddr(b *strings.Builder, newAddr int) error {
	if newAddr < 1 || newAddr > 252 {
		return errors.New("addr must be within 1..252")
	}
	if err := d.write(0x0064, uint16(newAddr)); err != nil {
		if errors.Is(err, modbus.ErrWriteEchoMismatch) {
			b.WriteString("⚠️ 地址修改响应异常\n")
		}
		return err
	}
	d.slaveID = uint8(newAddr)
	fmt.Fprintf(b, "✅ 电池从站地址已修改为%d，重启电池生效\n", newAddr)
	return nil
}

// ---- GENERIC REGISTER ACCESS ----

func (d *Driver) genericRead(b *strings.Builder, addr, qty uint16, fc int) error {
	if qty < 1 || qty > 125 {
		return errors.New("quantity must be within 1..125")
	}
	code := uint8(modbus.FCReadHolding)
	if fc >= 0 {
		if fc != int(modbus.FCReadHolding) && fc != int(modbus.FCReadInput) {
			return errors.New("battery reads support fc 0x03/0x04 only")
		}
		code = uint8(fc)
	}

	values, err := d.read(code, addr, qty, d.slaveID, 0)
	if err != nil {
		return err
	}

	fmt.Fprintf(b, "✅ 电池寄存器读取结果（fc=0x%X）\n", code)
	for i, v := range values {
		reg := addr + uint16(i)
		fmt.Fprintf(b, "  0x%04X = %d (0x%04X) | %s\n", reg, v, v, describeRegister(reg))
	}
	return nil
}

func riskyWrite(addr uint16) bool {
	return (addr >= 0x0FA1 && addr <= 0x0FB4) || (addr >= 0x5A60 && addr <= 0x5A8E)
}

func (d *Driver) genericWrite(b *strings.Builder, addr, value uint16, fc int) error {
	if fc >= 0 && fc != int(modbus.FCWriteRegister) {
		return errors.New("battery writes support fc 0x06 only")
	}
	if riskyWrite(addr) &&
		!d.confirm.Confirm("⚠️  检测到高风险写入地址，可能导致设备参数变化。请输入 YES 确认继续写入：") {
		b.WriteString("ℹ️ 已取消写入\n")
		return nil
	}

	if err := d.write(addr, value); err != nil {
		if errors.Is(err, modbus.ErrWriteEchoMismatch) {
			b.WriteString("⚠️ 写入响应异常\n")
		}
		return err
	}
	fmt.Fprintf(b, "✅ 电池写入成功：0x%04X <= %d\n", addr, value)
	return nil
}
