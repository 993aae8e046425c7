// internal/device/solar/queries.go
package solar

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tamzrod/safety-controller/internal/device"
	"github.com/tamzrod/safety-controller/internal/modbus"
)

var registerDescriptions = map[uint16]string{
	0x3100: "阵列电压（V/100）",
	0x3101: "阵列电流（A/100）",
	0x3102: "发电功率L",
	0x3103: "发电功率H",
	0x310C: "负载电压（V/100）",
	0x310D: "负载电流（A/100）",
	0x310E: "负载功率L",
	0x310F: "负载功率H",
	0x311A: "蓄电池剩余电量（%）",
	0x3200: "蓄电池状态位",
	0x3201: "充电设备状态位",
	0x3202: "放电设备状态位",
	0x331A: "蓄电池电压（V/100）",
	0x331B: "蓄电池电流L",
	0x331C: "蓄电池电流H",
}

func describeRegister(addr uint16) string {
	if desc, ok := registerDescriptions[addr]; ok {
		return desc
	}
	return "文档寄存器（未内置详细语义）"
}

// ---- INFO QUERIES ----

func (d *Driver) queryInfo(b *strings.Builder, infoType string) error {
	fmt.Fprintf(b, "\n📡 正在查询太阳能%s信息...\n", infoType)
	if d.cfg.SolarSlaveID == d.cfg.ModuleSlaveID {
		return errors.New("solar slave id collides with module slave id")
	}

	switch infoType {
	case "basic":
		return d.queryBasic(b)
	case "status":
		return d.queryStatus(b)
	case "all":
		return errors.Join(d.queryBasic(b), d.queryStatus(b))
	}
	return fmt.Errorf("unknown info_type: %s", infoType)
}

// queryBasic reads the four real-time blocks independently and renders
// whatever answered. It fails only when nothing did.
func (d *Driver) queryBasic(b *strings.Builder) error {
	uid := d.cfg.SolarSlaveID
	pv, pvErr := d.read(modbus.FCReadInput, 0x3100, 4, uid, 0)
	load, loadErr := d.read(modbus.FCReadInput, 0x310C, 4, uid, 0)
	soc, socErr := d.read(modbus.FCReadInput, 0x311A, 1, uid, 0)
	batt, battErr := d.read(modbus.FCReadInput, 0x331A, 3, uid, 0)

	b.WriteString("✅ 太阳能实时信息：\n")
	hasData := false

	if pvErr == nil {
		hasData = true
		fmt.Fprintf(b, "  光伏阵列电压: %.2fV\n", float64(pv[0])/100.0)
		fmt.Fprintf(b, "  光伏阵列电流: %.2fA\n", float64(pv[1])/100.0)
		fmt.Fprintf(b, "  光伏发电功率: %.2fW\n", power32(pv[2], pv[3]))
	}
	if loadErr == nil {
		hasData = true
		fmt.Fprintf(b, "  负载电压: %.2fV\n", float64(load[0])/100.0)
		fmt.Fprintf(b, "  负载电流: %.2fA\n", float64(load[1])/100.0)
		fmt.Fprintf(b, "  负载功率: %.2fW\n", power32(load[2], load[3]))
	}
	if socErr == nil {
		hasData = true
		fmt.Fprintf(b, "  蓄电池剩余电量: %d%%\n", soc[0])
	}
	if battErr == nil {
		hasData = true
		fmt.Fprintf(b, "  蓄电池电压: %.2fV\n", float64(batt[0])/100.0)
		fmt.Fprintf(b, "  蓄电池电流: %.2fA（充电为正，放电为负）\n",
			float64(signed32(batt[1], batt[2]))/100.0)
	}

	if !hasData {
		return errors.Join(pvErr, loadErr, socErr, battErr)
	}
	return nil
}

// queryStatus requires both real-time blocks.
func (d *Driver) queryStatus(b *strings.Builder) error {
	uid := d.cfg.SolarSlaveID
	pv, err := d.read(modbus.FCReadInput, 0x3100, 4, uid, 0)
	if err != nil {
		return fmt.Errorf("pv array read: %w", err)
	}
	load, err := d.read(modbus.FCReadInput, 0x310C, 4, uid, 0)
	if err != nil {
		return fmt.Errorf("load read: %w", err)
	}

	b.WriteString("✅ 太阳能关键信息：\n")
	fmt.Fprintf(b, "  光伏阵列电压: %.2fV\n", float64(pv[0])/100.0)
	fmt.Fprintf(b, "  光伏阵列电流: %.2fA\n", float64(pv[1])/100.0)
	fmt.Fprintf(b, "  光伏发电功率: %.2fW\n", power32(pv[2], pv[3]))
	fmt.Fprintf(b, "  负载电压: %.2fV\n", float64(load[0])/100.0)
	fmt.Fprintf(b, "  负载电流: %.2fA\n", float64(load[1])/100.0)
	fmt.Fprintf(b, "  负载功率: %.2fW\n", power32(load[2], load[3]))
	return nil
}

// ---- SCAN ----

func (d *Driver) scan(b *strings.Builder, start, end int) error {
	if start < 1 || end > 252 || start > end {
		return errors.New("scan range must satisfy 1 <= start <= end <= 252")
	}
	fmt.Fprintf(b, "\n🔎 扫描太阳能站号: %d~%d\n", start, end)

	var found []int
	for uid := start; uid <= end; uid++ {
		if uint8(uid) == d.cfg.ModuleSlaveID {
			continue
		}
		values, err := d.read(modbus.FCReadInput, 0x3100, 1, uint8(uid), device.ScanTimeout)
		if err != nil {
			continue
		}
		fmt.Fprintf(b, "✅ 站号%d 有响应，阵列电压=%.2fV\n", uid, float64(values[0])/100.0)
		found = append(found, uid)
	}

	if len(found) == 0 {
		b.WriteString("❌ 未发现可用太阳能从站\n")
		return nil
	}
	b.WriteString("🎯 可用太阳能站号: [")
	for i, uid := range found {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(b, "%d", uid)
	}
	b.WriteString("]\n")
	return nil
}

// ---- GENERIC REGISTER ACCESS ----

func (d *Driver) genericRead(b *strings.Builder, addr, qty uint16, fc int) error {
	if qty < 1 || qty > 125 {
		return errors.New("quantity must be within 1..125")
	}
	code := uint8(modbus.FCReadInput)
	if fc >= 0 {
		if fc != int(modbus.FCReadHolding) && fc != int(modbus.FCReadInput) {
			return errors.New("solar reads support fc 0x03/0x04 only")
		}
		code = uint8(fc)
	}

	values, err := d.read(code, addr, qty, d.cfg.SolarSlaveID, 0)
	if err != nil {
		return err
	}

	fmt.Fprintf(b, "✅ 太阳能寄存器读取结果（fc=0x%X）\n", code)
	for i, v := range values {
		reg := addr + uint16(i)
		fmt.Fprintf(b, "  0x%04X = %d (0x%04X) | %s\n", reg, v, v, describeRegister(reg))
	}
	return nil
}

func riskyWrite(addr uint16) bool {
	return addr == 0x000D || addr == 0x000E || (addr >= 0x9000 && addr <= 0x9070)
}

func (d *Driver) genericWrite(b *strings.Builder, addr, value uint16, fc int) error {
	code := uint8(modbus.FCWriteRegister)
	if fc >= 0 {
		if fc != int(modbus.FCWriteCoil) && fc != int(modbus.FCWriteRegister) {
			return errors.New("solar writes support fc 0x05/0x06 only")
		}
		code = uint8(fc)
	}
	if riskyWrite(addr) &&
		!d.confirm.Confirm("⚠️  检测到高风险写入地址，可能导致设备参数变化。请输入 YES 确认继续写入：") {
		b.WriteString("ℹ️ 已取消写入\n")
		return nil
	}

	if err := d.write(code, addr, value); err != nil {
		if errors.Is(err, modbus.ErrWriteEchoMismatch) {
			b.WriteString("⚠️ 写入响应异常\n")
		}
		return err
	}
	fmt.Fprintf(b, "✅ 太阳能写入成功：0x%04X <= %d\n", addr, value)
	return nil
}
