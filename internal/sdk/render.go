// internal/sdk/render.go
package sdk

import (
	"fmt"
	"strings"

	"github.com/tamzrod/safety-controller/internal/config"
	"github.com/tamzrod/safety-controller/internal/device"
)

// renderStartupSummary prints the driver/auto-query plan emitted once at
// start. enabled reflects whether a driver was actually built.
func renderStartupSummary(cfg config.Config, drivers map[string]device.Driver) string {
	rt := cfg.Runtime
	has := func(name string) bool {
		_, ok := drivers[name]
		return ok
	}

	var b strings.Builder
	b.WriteString("[startup-summary] drivers and auto-query plan\n")
	fmt.Fprintf(&b, "  - battery: enabled=%t, query_hz=%g\n", has("battery"), rt.Battery.QueryHz)
	fmt.Fprintf(&b, "  - solar: enabled=%t, query_hz=%g\n", has("solar"), rt.Solar.QueryHz)
	fmt.Fprintf(&b, "  - hoist_hook: enabled=%t, query_hz=%g\n", has("hoist_hook"), rt.HoistHook.QueryHz)
	fmt.Fprintf(&b, "  - io_relay: enabled=%t, query_hz=%g\n", has("io_relay"), rt.IoRelay.QueryHz)
	fmt.Fprintf(&b, "  - multi_turn_encoder: enabled=%t, query_hz=%g\n", has("multi_turn_encoder"), rt.Encoder.QueryHz)

	enabled := 0
	for _, in := range rt.SpdLidar.Instances {
		if in.Enabled() {
			enabled++
		}
	}
	fmt.Fprintf(&b, "  - spd_lidar: enabled_instances=%d, query_hz=%g\n", enabled, rt.SpdLidar.QueryHz)
	return b.String()
}

// ShowConfig renders the active configuration one sensor per line, the way
// the CLI showcfg command prints it.
func (s *SDK) ShowConfig() string {
	cfg := s.Config()
	rt := cfg.Runtime

	var b strings.Builder
	path := cfg.Path
	if path == "" {
		path = "(builtin/default)"
	}
	fmt.Fprintf(&b, "loaded_config: %s\n", path)
	fmt.Fprintf(&b, "battery module_ip=%s enable=%t module_port=%d module_slave_id=%d battery_slave_id=%d query_hz=%g\n",
		rt.Battery.ModuleIP, rt.Battery.Enable, rt.Battery.ModulePort,
		rt.Battery.ModuleSlaveID, rt.Battery.BatterySlaveID, rt.Battery.QueryHz)
	fmt.Fprintf(&b, "solar module_ip=%s enable=%t module_port=%d module_slave_id=%d solar_slave_id=%d query_hz=%g\n",
		rt.Solar.ModuleIP, rt.Solar.Enable, rt.Solar.ModulePort,
		rt.Solar.ModuleSlaveID, rt.Solar.SolarSlaveID, rt.Solar.QueryHz)
	fmt.Fprintf(&b, "io_relay module_ip=%s enable=%t module_port=%d module_slave_id=%d query_hz=%g\n",
		rt.IoRelay.ModuleIP, rt.IoRelay.Enable, rt.IoRelay.ModulePort,
		rt.IoRelay.ModuleSlaveID, rt.IoRelay.QueryHz)
	fmt.Fprintf(&b, "hoist_hook module_ip=%s enable=%t module_port=%d hook_slave_id=%d power_slave_id=%d query_hz=%g\n",
		rt.HoistHook.ModuleIP, rt.HoistHook.Enable, rt.HoistHook.ModulePort,
		rt.HoistHook.HookSlaveID, rt.HoistHook.PowerSlaveID, rt.HoistHook.QueryHz)
	fmt.Fprintf(&b, "encoder transport=%s enable=%t device=%s baud=%d parity=%s data_bit=%d stop_bit=%d slave=%d ip=%s port=%d query_hz=%g\n",
		rt.Encoder.Transport, rt.Encoder.Enable, rt.Encoder.Device, rt.Encoder.Baud,
		rt.Encoder.Parity, rt.Encoder.DataBit, rt.Encoder.StopBit, rt.Encoder.Slave,
		rt.Encoder.IP, rt.Encoder.Port, rt.Encoder.QueryHz)
	fmt.Fprintf(&b, "spd_lidar query_hz=%g instances=%d\n", rt.SpdLidar.QueryHz, len(rt.SpdLidar.Instances))
	for i, in := range rt.SpdLidar.Instances {
		fmt.Fprintf(&b, "  [%d] id=%s enable=%t mode=%s local_ip=%s local_port=%d device_ip=%s device_port=%d",
			i, in.ID, in.Enabled(), in.Mode, in.LocalIP, in.LocalPort, in.DeviceIP, in.DevicePort)
		if in.Role != "" {
			fmt.Fprintf(&b, " role=%s", in.Role)
		}
		fmt.Fprintf(&b, " priority=%d\n", in.Priority)
	}
	return b.String()
}
