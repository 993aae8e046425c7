// internal/config/validate.go
package config

import (
	"fmt"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	rt := cfg.Runtime

	// ------------------------------------------------------------
	// REGISTER DEVICE ENDPOINTS
	// ------------------------------------------------------------

	type reg struct {
		name string
		on   bool
		ip   string
		port int
	}

	regs := []reg{
		{"battery", rt.Battery.Enable, rt.Battery.ModuleIP, rt.Battery.ModulePort},
		{"solar", rt.Solar.Enable, rt.Solar.ModuleIP, rt.Solar.ModulePort},
		{"io_relay", rt.IoRelay.Enable, rt.IoRelay.ModuleIP, rt.IoRelay.ModulePort},
		{"hoist_hook", rt.HoistHook.Enable, rt.HoistHook.ModuleIP, rt.HoistHook.ModulePort},
	}

	for _, r := range regs {
		if !r.on {
			continue
		}
		if r.ip == "" {
			return fmt.Errorf("%s: module_ip must be set when enabled", r.name)
		}
		if r.port < 1 || r.port > 65535 {
			return fmt.Errorf("%s: module_port %d out of range", r.name, r.port)
		}
	}

	if rt.Battery.Enable && rt.Battery.BatterySlaveID == rt.Battery.ModuleSlaveID {
		return fmt.Errorf(
			"battery: battery_slave_id %d collides with module_slave_id",
			rt.Battery.BatterySlaveID,
		)
	}

	// ------------------------------------------------------------
	// ENCODER TRANSPORT
	// ------------------------------------------------------------

	if rt.Encoder.Enable {
		switch rt.Encoder.Transport {
		case "rtu":
			if rt.Encoder.Device == "" {
				return fmt.Errorf("multi_turn_encoder: device must be set for rtu transport")
			}
		case "tcp":
			if rt.Encoder.IP == "" {
				return fmt.Errorf("multi_turn_encoder: ip must be set for tcp transport")
			}
			if rt.Encoder.Port < 1 || rt.Encoder.Port > 65535 {
				return fmt.Errorf("multi_turn_encoder: port %d out of range", rt.Encoder.Port)
			}
		default:
			return fmt.Errorf(
				"multi_turn_encoder: transport must be \"rtu\" or \"tcp\", got %q",
				rt.Encoder.Transport,
			)
		}
	}

	// ------------------------------------------------------------
	// LIDAR INSTANCES
	// ------------------------------------------------------------

	// key = instance id
	idOwner := make(map[string]int)

	for n, inst := range rt.SpdLidar.Instances {
		if prev, exists := idOwner[inst.ID]; exists {
			return fmt.Errorf(
				"spd_lidar: instance id %q used by entries %d and %d",
				inst.ID, prev, n,
			)
		}
		idOwner[inst.ID] = n

		if !inst.Enabled() {
			continue
		}

		switch inst.Mode {
		case "client":
			if inst.DeviceIP == "" {
				return fmt.Errorf("spd_lidar %q: device_ip must be set for client mode", inst.ID)
			}
		case "server":
			if inst.LocalIP == "" {
				return fmt.Errorf("spd_lidar %q: local_ip must be set for server mode", inst.ID)
			}
		default:
			return fmt.Errorf(
				"spd_lidar %q: mode must be \"client\" or \"server\", got %q",
				inst.ID, inst.Mode,
			)
		}
	}

	return nil
}
