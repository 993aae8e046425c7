// internal/config/config.go
package config

import (
	"net"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk configuration. Files are JSON; the YAML codec parses
// them unchanged (YAML 1.2 is a JSON superset) and ignores unknown keys,
// which gives the tolerant loading the field tooling relies on.
type Config struct {
	Runtime RuntimeConfig `yaml:"runtime"`

	// Path the config was loaded from; empty for builtin defaults.
	Path string `yaml:"-"`
}

type RuntimeConfig struct {
	Battery   BatteryConfig   `yaml:"battery"`
	Solar     SolarConfig     `yaml:"solar"`
	IoRelay   IoRelayConfig   `yaml:"io_relay"`
	HoistHook HoistHookConfig `yaml:"hoist_hook"`
	Encoder   EncoderConfig   `yaml:"multi_turn_encoder"`
	SpdLidar  SpdLidarConfig  `yaml:"spd_lidar"`
}

// ---- REGISTER DEVICES ----

type BatteryConfig struct {
	Enable         bool    `yaml:"enable"`
	ModuleIP       string  `yaml:"module_ip"`
	ModulePort     int     `yaml:"module_port"`
	ModuleSlaveID  uint8   `yaml:"module_slave_id"`
	BatterySlaveID uint8   `yaml:"battery_slave_id"`
	QueryHz        float64 `yaml:"query_hz"`
}

type SolarConfig struct {
	Enable        bool    `yaml:"enable"`
	ModuleIP      string  `yaml:"module_ip"`
	ModulePort    int     `yaml:"module_port"`
	ModuleSlaveID uint8   `yaml:"module_slave_id"`
	SolarSlaveID  uint8   `yaml:"solar_slave_id"`
	QueryHz       float64 `yaml:"query_hz"`
}

type IoRelayConfig struct {
	Enable        bool    `yaml:"enable"`
	ModuleIP      string  `yaml:"module_ip"`
	ModulePort    int     `yaml:"module_port"`
	ModuleSlaveID uint8   `yaml:"module_slave_id"`
	QueryHz       float64 `yaml:"query_hz"`
}

type HoistHookConfig struct {
	Enable       bool    `yaml:"enable"`
	ModuleIP     string  `yaml:"module_ip"`
	ModulePort   int     `yaml:"module_port"`
	HookSlaveID  uint8   `yaml:"hook_slave_id"`
	PowerSlaveID uint8   `yaml:"power_slave_id"`
	QueryHz      float64 `yaml:"query_hz"`
}

// ---- MULTI-TURN ENCODER ----

type EncoderConfig struct {
	Enable    bool    `yaml:"enable"`
	Transport string  `yaml:"transport"` // "rtu" | "tcp"
	Device    string  `yaml:"device"`
	Baud      int     `yaml:"baud"`
	Parity    string  `yaml:"parity"`
	DataBit   int     `yaml:"data_bit"`
	StopBit   int     `yaml:"stop_bit"`
	Slave     uint8   `yaml:"slave"`
	IP        string  `yaml:"ip"`
	Port      int     `yaml:"port"`
	QueryHz   float64 `yaml:"query_hz"`
}

// ---- SPD LIDAR ----

type SpdLidarConfig struct {
	QueryHz   float64         `yaml:"query_hz"`
	Instances []LidarInstance `yaml:"instances"`
}

type LidarInstance struct {
	ID         string `yaml:"id"`
	Enable     *bool  `yaml:"enable"` // nil means enabled
	Mode       string `yaml:"mode"`   // "client" | "server"
	LocalIP    string `yaml:"local_ip"`
	LocalPort  int    `yaml:"local_port"`
	DeviceIP   string `yaml:"device_ip"`
	DevicePort int    `yaml:"device_port"`
	Role       string `yaml:"role"`
	Priority   int    `yaml:"priority"`
}

// UnmarshalYAML accepts both the instances-list form and the legacy
// single-object spd_lidar block, which becomes a one-element list.
func (c *SpdLidarConfig) UnmarshalYAML(node *yaml.Node) error {
	type plain SpdLidarConfig
	p := plain(*c)
	if err := node.Decode(&p); err != nil {
		return err
	}
	if len(p.Instances) == 0 {
		var one LidarInstance
		if err := node.Decode(&one); err == nil && !one.isZero() {
			p.Instances = []LidarInstance{one}
		}
	}
	*c = SpdLidarConfig(p)
	return nil
}

func (i LidarInstance) isZero() bool {
	return i.ID == "" && i.Mode == "" && i.LocalIP == "" && i.DeviceIP == "" &&
		i.LocalPort == 0 && i.DevicePort == 0
}

// Enabled resolves the optional enable flag; absent means enabled.
func (i LidarInstance) Enabled() bool {
	return i.Enable == nil || *i.Enable
}

// Endpoint is the device address a client-mode instance exchanges with.
func (i LidarInstance) Endpoint() string { return endpoint(i.DeviceIP, i.DevicePort) }

// LocalEndpoint is the bind/fallback address for server-mode instances.
func (i LidarInstance) LocalEndpoint() string { return endpoint(i.LocalIP, i.LocalPort) }

// ---- ENDPOINT KEYS ----

func endpoint(ip string, port int) string {
	return net.JoinHostPort(ip, strconv.Itoa(port))
}

// Endpoint returns the host:port key the gateway serializer uses. Devices
// configured with the same value share one serialized bridge.
func (c BatteryConfig) Endpoint() string   { return endpoint(c.ModuleIP, c.ModulePort) }
func (c SolarConfig) Endpoint() string     { return endpoint(c.ModuleIP, c.ModulePort) }
func (c IoRelayConfig) Endpoint() string   { return endpoint(c.ModuleIP, c.ModulePort) }
func (c HoistHookConfig) Endpoint() string { return endpoint(c.ModuleIP, c.ModulePort) }

// Endpoint is the TCP address used when the encoder transport is "tcp".
func (c EncoderConfig) Endpoint() string { return endpoint(c.IP, c.Port) }

// Default returns the builtin configuration used when no file is found.
// Loading unmarshals over these values, so absent keys keep them.
func Default() Config {
	return Config{
		Runtime: RuntimeConfig{
			Battery: BatteryConfig{
				Enable:         true,
				ModuleIP:       "192.168.1.12",
				ModulePort:     502,
				ModuleSlaveID:  3,
				BatterySlaveID: 2,
			},
			Solar: SolarConfig{
				Enable:        true,
				ModuleIP:      "192.168.1.12",
				ModulePort:    502,
				ModuleSlaveID: 3,
				SolarSlaveID:  4,
			},
			IoRelay: IoRelayConfig{
				Enable:        true,
				ModuleIP:      "192.168.1.12",
				ModulePort:    502,
				ModuleSlaveID: 3,
			},
			HoistHook: HoistHookConfig{
				Enable:       true,
				ModuleIP:     "192.168.1.12",
				ModulePort:   502,
				HookSlaveID:  3,
				PowerSlaveID: 4,
			},
			Encoder: EncoderConfig{
				Enable:    true,
				Transport: "rtu",
				Device:    "/dev/ttyUSB0",
				Baud:      9600,
				Parity:    "N",
				DataBit:   8,
				StopBit:   1,
				Slave:     1,
				IP:        "192.168.1.100",
				Port:      502,
			},
		},
	}
}
