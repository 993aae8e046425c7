// internal/config/normalize.go
package config

import "fmt"

// Normalize fills defaults for absent optional keys.
// It is allowed to mutate configuration.
// It MUST be called before Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	enc := &cfg.Runtime.Encoder
	if enc.Transport == "" {
		enc.Transport = "rtu"
	}
	if enc.Parity == "" {
		enc.Parity = "N"
	}
	if enc.Baud == 0 {
		enc.Baud = 9600
	}
	if enc.DataBit == 0 {
		enc.DataBit = 8
	}
	if enc.StopBit == 0 {
		enc.StopBit = 1
	}

	// ------------------------------------------------------------
	// LIDAR INSTANCE DEFAULTS
	// ------------------------------------------------------------

	for n := range cfg.Runtime.SpdLidar.Instances {
		inst := &cfg.Runtime.SpdLidar.Instances[n]

		if inst.ID == "" {
			if n == 0 {
				inst.ID = "default"
			} else {
				inst.ID = fmt.Sprintf("lidar%d", n)
			}
		}
		if inst.Mode == "" {
			inst.Mode = "server"
		}
		if inst.LocalIP == "" {
			inst.LocalIP = "192.168.0.201"
		}
		if inst.LocalPort == 0 {
			inst.LocalPort = 8234
		}
		if inst.DeviceIP == "" {
			inst.DeviceIP = "192.168.0.7"
		}
		if inst.DevicePort == 0 {
			inst.DevicePort = 8234
		}
	}
}
