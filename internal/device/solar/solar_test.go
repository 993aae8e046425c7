// internal/device/solar/solar_test.go
package solar

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

type fakeGateway struct {
	regs   map[uint16][]uint16
	units  map[uint8]bool
	writes []modbus.Request
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

func newTestDriver(gw *fakeGateway) *Driver {
	return New(config.Default().Runtime.Solar, gw, device.AllowAll{})
}

func TestQuery_BasicScaling(t *testing.T) {
	gw := &fakeGateway{regs: map[uint16][]uint16{
		// 36.50 V, 2.10 A, power pair 76.65 W (7665 = 0x1DF1, low first)
		0x3100: {3650, 210, 7665, 0},
		0x310C: {1280, 150, 1920, 0},
		0x311A: {87},
		// 12.80 V; current -1.50 A as signed 32 over (low, high)
		0x331A: {1280, 0xFF6A, 0xFFFF},
	}}
	d := newTestDriver(gw)

	out, err := d.Query([]string{"basic"})
	require.NoError(t, err)
	assert.Contains(t, out, "光伏阵列电压: 36.50V")
	assert.Contains(t, out, "光伏阵列电流: 2.10A")
	assert.Contains(t, out, "光伏发电功率: 76.65W")
	assert.Contains(t, out, "负载功率: 19.20W")
	assert.Contains(t, out, "蓄电池剩余电量: 87%")
	assert.Contains(t, out, "蓄电池电压: 12.80V")
	assert.Contains(t, out, "蓄电池电流: -1.50A（充电为正，放电为负）")
}

func TestQuery_BasicPartialBlocksStillRender(t *testing.T) {
	gw := &fakeGateway{regs: map[uint16][]uint16{
		0x311A: {42},
	}}
	d := newTestDriver(gw)

	out, err := d.Query([]string{"basic"})
	require.NoError(t, err)
	assert.Contains(t, out, "蓄电池剩余电量: 42%")
	assert.NotContains(t, out, "光伏阵列电压")
}

func TestQuery_BasicAllBlocksFail(t *testing.T) {
	d := newTestDriver(&fakeGateway{})

	_, err := d.Query([]string{"basic"})
	require.Error(t, err)
}

func TestQuery_StatusRequiresBothBlocks(t *testing.T) {
	gw := &fakeGateway{regs: map[uint16][]uint16{
		0x3100: {3650, 210, 7665, 0},
	}}
	d := newTestDriver(gw)

	_, err := d.Query([]string{"status"})
	require.Error(t, err)
}

func TestQuery_SlaveIDCollision(t *testing.T) {
	cfg := config.Default().Runtime.Solar
	cfg.SolarSlaveID = cfg.ModuleSlaveID
	d := New(cfg, &fakeGateway{}, device.AllowAll{})

	_, err := d.Query([]string{"status"})
	require.Error(t, err)
}

func TestQuery_SetCoil(t *testing.T) {
	gw := &fakeGateway{}
	d := newTestDriver(gw)

	out, err := d.Query([]string{"set", "0x0001", "0xFF00", "0x05"})
	require.NoError(t, err)
	assert.Contains(t, out, "✅ 太阳能写入成功：0x0001 <= 65280")
	require.Len(t, gw.writes, 1)
	assert.Equal(t, modbus.FCWriteCoil, gw.writes[0].FC)
}

func TestQuery_SetRiskyDenied(t *testing.T) {
	gw := &fakeGateway{}
	d := New(config.Default().Runtime.Solar, gw, device.DenyAll{})

	out, err := d.Query([]string{"set", "0x9000", "1"})
	require.NoError(t, err)
	assert.Contains(t, out, "ℹ️ 已取消写入")
	assert.Empty(t, gw.writes)
}

func TestQuery_ScanProbesInputRegister(t *testing.T) {
	gw := &fakeGateway{
		regs:  map[uint16][]uint16{0x3100: {3650}},
		units: map[uint8]bool{4: true},
	}
	d := newTestDriver(gw)

	out, err := d.Query([]string{"scan", "1", "6"})
	require.NoError(t, err)
	assert.Contains(t, out, "✅ 站号4 有响应，阵列电压=36.50V")
	assert.Contains(t, out, "🎯 可用太阳能站号: [4]")
}

func TestQuery_UnknownCommand(t *testing.T) {
	d := newTestDriver(&fakeGateway{})

	_, err := d.Query([]string{"bogus"})
	require.ErrorIs(t, err, device.ErrUnknownCommand)
}
