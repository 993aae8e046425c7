// internal/device/hoisthook/queries.go
package hoisthook

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tamzrod/safety-controller/internal/modbus"
)

// Panel register map. 0x0002 carries the speaker bits: bit0 enables the 7 m
// voice warning, bit1 the 3 m one; 3 m wins when both are set.
const (
	regWarningLight = 0x0001
	regSpeaker      = 0x0002
	regRFIDMask     = 0x0003
	regRFIDGroups   = 0x0004
	regPowerBlock   = 0x0064
)

const rfidGroupCount = 8

var registerDescriptions = map[uint16]string{
	0x0001: "警示灯控制位（1开/0关）",
	0x0002: "喇叭控制/状态位（bit0=7m, bit1=3m）",
	0x0003: "RFID有效组掩码（bit0~bit7）",
	0x0004: "RFID组1 UID高16位",
	0x0005: "RFID组1 UID低16位",
	0x0006: "RFID组1 RSSI/电量（高8位RSSI,低8位电量）",
	0x0064: "状态区起始（100）",
}

func describeRegister(addr uint16) string {
	if desc, ok := registerDescriptions[addr]; ok {
		return desc
	}
	return "文档寄存器（语义待补充）"
}

// ---- SPEAKER / LIGHT ----

var speakerModes = map[string]uint16{
	"off":  0x0000,
	"7m":   0x0001,
	"3m":   0x0002,
	"both": 0x0003,
}

func (d *Driver) controlSpeaker(b *strings.Builder, mode string) error {
	value, ok := speakerModes[mode]
	if !ok {
		return errors.New("speaker mode must be off/7m/3m/both")
	}
	fmt.Fprintf(b, "🔊 设置喇叭模式: %s\n", mode)
	return d.genericWrite(b, regSpeaker, value, -1)
}

func (d *Driver) controlLight(b *strings.Builder, status string) error {
	if status != "on" && status != "off" {
		return errors.New("light status must be on/off")
	}
	value := uint16(0)
	if status == "on" {
		value = 1
	}
	fmt.Fprintf(b, "🚨 设置警示灯: %s\n", status)
	return d.genericWrite(b, regWarningLight, value, -1)
}

func (d *Driver) querySpeaker(b *strings.Builder) error {
	values, err := d.read(regSpeaker, 1, d.cfg.HookSlaveID, 0)
	if err != nil {
		return err
	}
	v := values[0]
	m7 := v&0x01 != 0
	m3 := v&0x02 != 0

	fmt.Fprintf(b, "✅ 喇叭状态寄存器(0x0002)=0x%X\n", v)
	fmt.Fprintf(b, "  7m语音: %s\n", onOff(m7))
	fmt.Fprintf(b, "  3m语音: %s\n", onOff(m3))
	switch {
	case m3:
		b.WriteString("  当前优先级输出: 3m语音\n")
	case m7:
		b.WriteString("  当前优先级输出: 7m语音\n")
	default:
		b.WriteString("  当前优先级输出: 停止播放\n")
	}
	return nil
}

func onOff(on bool) string {
	if on {
		return "开启"
	}
	return "关闭"
}

func (d *Driver) queryLight(b *strings.Builder) error {
	values, err := d.read(regWarningLight, 1, d.cfg.HookSlaveID, 0)
	if err != nil {
		return err
	}
	v := values[0]
	fmt.Fprintf(b, "✅ 警示灯状态: %s (reg=0x0001, raw=0x%X)\n", onOff(v&0x0001 != 0), v)
	return nil
}

// ---- RFID ----

// queryRFID reads the valid-group mask, then 8 groups of 3 registers each:
// UID high word, UID low word, RSSI (high byte) + battery level (low byte).
func (d *Driver) queryRFID(b *strings.Builder) error {
	mask, err := d.read(regRFIDMask, 1, d.cfg.HookSlaveID, 0)
	if err != nil {
		return err
	}
	validMask := mask[0] & 0x00FF

	groups, err := d.read(regRFIDGroups, rfidGroupCount*3, d.cfg.HookSlaveID, 0)
	if err != nil {
		return err
	}

	fmt.Fprintf(b, "✅ RFID有效组掩码: 0x%X\n", validMask)
	validCount := 0
	for i := 0; i < rfidGroupCount; i++ {
		valid := (validMask>>uint(i))&0x1 != 0
		base := i * 3
		fmt.Fprintf(b, "  组%d: ", i+1)
		if !valid {
			b.WriteString("无效\n")
			continue
		}
		validCount++
		uid := uint32(groups[base])<<16 | uint32(groups[base+1])
		rssi := int(groups[base+2] >> 8)
		batteryLevel := int(groups[base+2] & 0xFF)
		fmt.Fprintf(b, "有效, UID=0x%08X, RSSI=-%d dBm, 电量等级=%d\n", uid, rssi, batteryLevel)
	}

	if validCount == 0 {
		b.WriteString("ℹ️ 当前没有有效RFID组\n")
	} else {
		fmt.Fprintf(b, "ℹ️ 有效RFID组数量: %d/%d\n", validCount, rfidGroupCount)
	}
	return nil
}

// ---- POWER MODULE ----

// queryPower reads 6 registers off the power slave. Voltage/current scaling
// is the common 0.01 assumption; raw values are rendered alongside.
func (d *Driver) queryPower(b *strings.Builder) error {
	b.WriteString("🔋 正在读取电源模块状态...\n")
	values, err := d.read(regPowerBlock, 6, d.cfg.PowerSlaveID, 0)
	if err != nil {
		b.WriteString("⚠️ 电源模块读取失败，可使用 get 命令手动排查具体地址\n")
		return err
	}

	b.WriteString("✅ 电源模块状态（解析）\n")
	fmt.Fprintf(b, "  母线电压(估算): %.2fV (raw=%d)\n", float64(values[0])*0.01, values[0])
	fmt.Fprintf(b, "  母线电流(估算): %.2fA (raw=%d)\n", float64(values[1])*0.01, values[1])
	fmt.Fprintf(b, "  电荷余量SOC: %.2f%% (raw=%d)\n", float64(values[2])*0.01, values[2])
	fmt.Fprintf(b, "  状态字: 0x%X\n", values[3])
	fmt.Fprintf(b, "  温度/保留(raw): %d, %d\n", values[4], values[5])

	b.WriteString("  原始寄存器(0x0064~0x0069):")
	for i, v := range values {
		fmt.Fprintf(b, " [0x%04X=%d]", regPowerBlock+uint16(i), v)
	}
	b.WriteString("\n")
	return nil
}

// ---- GENERIC REGISTER ACCESS ----

func (d *Driver) genericRead(b *strings.Builder, addr, qty uint16, fc int) error {
	if qty < 1 || qty > 125 {
		return errors.New("quantity must be within 1..125")
	}
	if fc >= 0 && fc != int(modbus.FCReadHolding) {
		return errors.New("hoist_hook reads support fc 0x03 only")
	}

	values, err := d.read(addr, qty, d.cfg.HookSlaveID, 0)
	if err != nil {
		return err
	}

	b.WriteString("✅ 吊钩寄存器读取结果\n")
	for i, v := range values {
		reg := addr + uint16(i)
		fmt.Fprintf(b, "  0x%04X = %d (0x%04X) | %s\n", reg, v, v, describeRegister(reg))
	}
	return nil
}

// The whole command window is risky: writes there can trigger panel actions.
func riskyWrite(addr uint16) bool { return addr <= 0x0063 }

func (d *Driver) genericWrite(b *strings.Builder, addr, value uint16, fc int) error {
	if fc >= 0 && fc != int(modbus.FCWriteRegister) {
		return errors.New("hoist_hook writes support fc 0x06 only")
	}
	if riskyWrite(addr) &&
		!d.confirm.Confirm("⚠️  即将写入指令寄存器，可能触发设备动作。请输入 YES 确认继续写入：") {
		b.WriteString("ℹ️ 已取消写入\n")
		return nil
	}

	if err := d.write(addr, value); err != nil {
		if errors.Is(err, modbus.ErrWriteEchoMismatch) {
			b.WriteString("⚠️ 写入响应异常\n")
		}
		return err
	}
	fmt.Fprintf(b, "✅ 写入成功：0x%04X <= %d\n", addr, value)
	return nil
}
