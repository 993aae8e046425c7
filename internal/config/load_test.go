// internal/config/load_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "common_config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"runtime": {
			"battery": {"module_ip": "10.0.0.5", "query_hz": 2.0},
			"io_relay": {"enable": false}
		}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.5:502", cfg.Runtime.Battery.Endpoint())
	assert.Equal(t, 2.0, cfg.Runtime.Battery.QueryHz)
	assert.False(t, cfg.Runtime.IoRelay.Enable)

	// untouched sections keep defaults
	assert.True(t, cfg.Runtime.Solar.Enable)
	assert.Equal(t, "192.168.1.12:502", cfg.Runtime.Solar.Endpoint())
	assert.Equal(t, uint8(4), cfg.Runtime.Solar.SolarSlaveID)
}

func TestLoad_UnknownKeysTolerated(t *testing.T) {
	path := writeConfig(t, `{
		"runtime": {
			"battery": {"module_ip": "10.0.0.5", "future_knob": 7}
		},
		"extra_section": {"x": 1}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5", cfg.Runtime.Battery.ModuleIP)
}

func TestLoad_LidarInstanceList(t *testing.T) {
	path := writeConfig(t, `{
		"runtime": {
			"spd_lidar": {
				"query_hz": 1.0,
				"instances": [
					{"id": "front", "mode": "client", "device_ip": "192.168.0.7", "device_port": 8234},
					{"id": "rear", "mode": "client", "device_ip": "192.168.0.8", "device_port": 8234, "enable": false}
				]
			}
		}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	insts := cfg.Runtime.SpdLidar.Instances
	require.Len(t, insts, 2)
	assert.Equal(t, "front", insts[0].ID)
	assert.True(t, insts[0].Enabled())
	assert.Equal(t, "192.168.0.7:8234", insts[0].Endpoint())
	assert.False(t, insts[1].Enabled())
}

func TestLoad_LegacyLidarObject(t *testing.T) {
	path := writeConfig(t, `{
		"runtime": {
			"spd_lidar": {
				"mode": "client",
				"device_ip": "192.168.0.9",
				"device_port": 8234
			}
		}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	insts := cfg.Runtime.SpdLidar.Instances
	require.Len(t, insts, 1)
	assert.Equal(t, "default", insts[0].ID)
	assert.Equal(t, "client", insts[0].Mode)
	assert.Equal(t, "192.168.0.9:8234", insts[0].Endpoint())
}

func TestLoad_NormalizeFillsLidarDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"runtime": {
			"spd_lidar": {
				"instances": [{"id": "front"}]
			}
		}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	inst := cfg.Runtime.SpdLidar.Instances[0]
	assert.Equal(t, "server", inst.Mode)
	assert.Equal(t, "192.168.0.201:8234", inst.LocalEndpoint())
	assert.Equal(t, "192.168.0.7:8234", inst.Endpoint())
}

func TestLoad_ParseError(t *testing.T) {
	path := writeConfig(t, `{"runtime": `)

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadOrDefault_NoFile(t *testing.T) {
	t.Setenv("ASC_CONFIG", filepath.Join(t.TempDir(), "missing.json"))

	cfg, err := LoadOrDefault()
	require.NoError(t, err)
	assert.Empty(t, cfg.Path)
	assert.True(t, cfg.Runtime.Battery.Enable)
}

func TestDiscover_Env(t *testing.T) {
	path := writeConfig(t, `{}`)
	t.Setenv("ASC_CONFIG", path)

	got, ok := Discover()
	require.True(t, ok)
	assert.Equal(t, path, got)
}
