// internal/device/battery/battery_test.go
package battery

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/safety-controller/internal/config"
	"github.com/tamzrod/safety-controller/internal/device"
	"github.com/tamzrod/safety-controller/internal/modbus"
)

// fakeGateway answers register reads from a static map and echoes writes.
type fakeGateway struct {
	regs       map[uint16][]uint16 // start address -> register values
	units      map[uint8]bool      // nil means every unit answers
	writes     []modbus.Request
	mangleEcho bool
}

func (f *fakeGateway) Exchange(req []byte, _ time.Duration) ([]byte, error) {
	r, _, err := modbus.DecodeRequest(req)
	if err != nil {
		return nil, err
	}
	if f.units != nil && !f.units[r.UnitID] {
		return nil, errors.New("no response")
	}

	if modbus.IsWrite(r.FC) {
		f.writes = append(f.writes, r)
		echo := make([]byte, len(req))
		copy(echo, req)
		if f.mangleEcho {
			echo[11] ^= 0xFF
		}
		return echo, nil
	}

	values, ok := f.regs[r.Address]
	if !ok || len(values) < int(r.Quantity) {
		return nil, errors.New("no response")
	}
	n := int(r.Quantity) * 2
	resp := make([]byte, 9+n)
	copy(resp[0:7], req[0:7])
	resp[7] = r.FC
	resp[8] = byte(n)
	for i := 0; i < int(r.Quantity); i++ {
		resp[9+2*i] = byte(values[i] >> 8)
		resp[10+2*i] = byte(values[i])
	}
	return resp, nil
}

func newTestDriver(gw *fakeGateway, confirm device.Confirmer) *Driver {
	cfg := config.Default().Runtime.Battery
	if confirm == nil {
		confirm = device.AllowAll{}
	}
	return New(cfg, gw, confirm)
}

func TestQuery_Basic(t *testing.T) {
	gw := &fakeGateway{regs: map[uint16][]uint16{
		0x0000: {5000, 50, 5285, 0, 0, 0x0203, 0, 0, 0},
		0x000A: {1},
	}}
	d := newTestDriver(gw, nil)

	out, err := d.Query([]string{"basic"})
	require.NoError(t, err)
	assert.Contains(t, out, "充电状态: 充电中 (MOS=1)")
	assert.Contains(t, out, "SOC: 50.00%")
	assert.Contains(t, out, "总电流: 0.50A")
	assert.Contains(t, out, "总电压: 52.85V")
	assert.Contains(t, out, "剩余使用时间: 2小时3分钟 (raw=0x0203)")
}

func TestQuery_BasicChargeMOSZero(t *testing.T) {
	gw := &fakeGateway{regs: map[uint16][]uint16{
		0x0000: {5000, 50, 5285, 0, 0, 0, 0, 0, 0},
		0x000A: {0},
	}}
	d := newTestDriver(gw, nil)

	out, err := d.Query([]string{"basic"})
	require.NoError(t, err)
	assert.Contains(t, out, "充电状态: 未充电 (MOS=0)")
}

func TestQuery_BasicWithoutMOSUsesCurrentSign(t *testing.T) {
	// -0.50 A as signed raw.
	raw := uint16(0xFFCE) // -50
	gw := &fakeGateway{regs: map[uint16][]uint16{
		0x0000: {5000, raw, 5285, 0, 0, 0, 0, 0, 0},
	}}
	d := newTestDriver(gw, nil)

	out, err := d.Query([]string{"basic"})
	require.NoError(t, err)
	assert.Contains(t, out, "充电状态: 放电中")
	assert.Contains(t, out, "总电流: -0.50A")
}

func TestQuery_InvalidSlaveID(t *testing.T) {
	cfg := config.Default().Runtime.Battery
	cfg.BatterySlaveID = cfg.ModuleSlaveID
	d := New(cfg, &fakeGateway{}, device.AllowAll{})

	_, err := d.Query([]string{"basic"})
	require.Error(t, err)
}

func TestQuery_Cell(t *testing.T) {
	cells := make([]uint16, 16)
	for i := range cells {
		cells[i] = uint16(3300 + i)
	}
	gw := &fakeGateway{regs: map[uint16][]uint16{0x0010: cells}}
	d := newTestDriver(gw, nil)

	out, err := d.Query([]string{"cell"})
	require.NoError(t, err)
	assert.Contains(t, out, "最高: 3315mV, 最低: 3300mV, 压差: 15mV")
	assert.Contains(t, out, "第16节: 3315mV")
}

func TestQuery_TempSigned(t *testing.T) {
	gw := &fakeGateway{regs: map[uint16][]uint16{
		0x0050: {0xFFF6, 251}, // -1.0, 25.1
	}}
	d := newTestDriver(gw, nil)

	out, err := d.Query([]string{"temp"})
	require.NoError(t, err)
	assert.Contains(t, out, "第1路NTC温度: -1.0℃")
	assert.Contains(t, out, "第2路NTC温度: 25.1℃")
}

func TestQuery_Protect(t *testing.T) {
	gw := &fakeGateway{regs: map[uint16][]uint16{0x0062: {1 << 10}}}
	d := newTestDriver(gw, nil)

	out, err := d.Query([]string{"protect"})
	require.NoError(t, err)
	assert.Contains(t, out, "⚠️ 存在保护/告警: 短路保护")
}

func TestQuery_ProtectClean(t *testing.T) {
	gw := &fakeGateway{regs: map[uint16][]uint16{0x0062: {0}}}
	d := newTestDriver(gw, nil)

	out, err := d.Query([]string{"protect"})
	require.NoError(t, err)
	assert.Contains(t, out, "✅ 无保护状态，电池正常")
}

func TestQuery_SetRiskyDenied(t *testing.T) {
	gw := &fakeGateway{}
	d := newTestDriver(gw, device.DenyAll{})

	out, err := d.Query([]string{"set", "0x0FA1", "1"})
	require.NoError(t, err)
	assert.Contains(t, out, "ℹ️ 已取消写入")
	assert.Empty(t, gw.writes)
}

func TestQuery_SetPlainAddressSkipsConfirm(t *testing.T) {
	gw := &fakeGateway{}
	d := newTestDriver(gw, device.DenyAll{})

	out, err := d.Query([]string{"set", "0x0063", "16"})
	require.NoError(t, err)
	assert.Contains(t, out, "✅ 电池写入成功：0x0063 <= 16")
	require.Len(t, gw.writes, 1)
	assert.Equal(t, uint16(0x0063), gw.writes[0].Address)
	assert.Equal(t, uint16(16), gw.writes[0].Value)
}

func TestQuery_SetEchoMismatch(t *testing.T) {
	gw := &fakeGateway{mangleEcho: true}
	d := newTestDriver(gw, nil)

	out, err := d.Query([]string{"set", "0x0063", "16"})
	require.ErrorIs(t, err, modbus.ErrWriteEchoMismatch)
	assert.Contains(t, out, "⚠️ 写入响应异常")
}

func TestQuery_AddrUpdatesSlaveID(t *testing.T) {
	gw := &fakeGateway{}
	d := newTestDriver(gw, nil)

	out, err := d.Query([]string{"addr", "7"})
	require.NoError(t, err)
	assert.Contains(t, out, "✅ 电池从站地址已修改为7，重启电池生效")
	assert.Equal(t, uint8(7), d.SlaveID())
	require.Len(t, gw.writes, 1)
	assert.Equal(t, uint16(0x0064), gw.writes[0].Address)
}

func TestQuery_AddrOutOfRange(t *testing.T) {
	d := newTestDriver(&fakeGateway{}, nil)

	_, err := d.Query([]string{"addr", "300"})
	require.Error(t, err)
}

func TestQuery_ScanSkipsModuleSlave(t *testing.T) {
	// Units 2 and 3 answer; 3 is the gateway itself and must be skipped.
	gw := &fakeGateway{
		regs:  map[uint16][]uint16{0x0002: {5285}},
		units: map[uint8]bool{2: true, 3: true},
	}
	d := newTestDriver(gw, nil)

	out, err := d.Query([]string{"scan", "1", "4"})
	require.NoError(t, err)
	assert.Contains(t, out, "✅ 站号2 有响应，总电压=52.85V")
	assert.NotContains(t, out, "站号3 有响应")
	assert.Contains(t, out, "🎯 可用电池站号: [2]")
}

func TestQuery_GenericReadDescriptions(t *testing.T) {
	gw := &fakeGateway{regs: map[uint16][]uint16{0x0000: {5000, 50}}}
	d := newTestDriver(gw, nil)

	out, err := d.Query([]string{"get", "0", "2"})
	require.NoError(t, err)
	assert.Contains(t, out, "0x0000 = 5000 (0x1388) | SOC（0.01%）")
	assert.Contains(t, out, "0x0001 = 50 (0x0032) | 总电流（0.01A）")
}

func TestQuery_GenericReadRejectsBadFC(t *testing.T) {
	d := newTestDriver(&fakeGateway{}, nil)

	_, err := d.Query([]string{"get", "0", "1", "0x01"})
	require.Error(t, err)
}

func TestQuery_UnknownCommand(t *testing.T) {
	d := newTestDriver(&fakeGateway{}, nil)

	_, err := d.Query([]string{"bogus"})
	require.ErrorIs(t, err, device.ErrUnknownCommand)
}

func TestQuery_Map(t *testing.T) {
	d := newTestDriver(&fakeGateway{}, nil)

	out, err := d.Query([]string{"map"})
	require.NoError(t, err)
	assert.Contains(t, out, "0x0FA1~0x0FB4 | 读/写（高风险） | 调试/强制控制寄存器")
}
