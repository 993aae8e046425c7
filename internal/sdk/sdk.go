// internal/sdk/sdk.go
//
// SDK facade over the device drivers. Owns the shared gateway registry, the
// auto-query scheduler and the snapshot renderer, and exposes the
// sensor/command surface the CLI drives.
package sdk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/tamzrod/safety-controller/internal/config"
	"github.com/tamzrod/safety-controller/internal/device"
	"github.com/tamzrod/safety-controller/internal/device/battery"
	"github.com/tamzrod/safety-controller/internal/device/encoder"
	"github.com/tamzrod/safety-controller/internal/device/hoisthook"
	"github.com/tamzrod/safety-controller/internal/device/iorelay"
	"github.com/tamzrod/safety-controller/internal/device/solar"
	"github.com/tamzrod/safety-controller/internal/device/spdlidar"
	"github.com/tamzrod/safety-controller/internal/gateway"
	"github.com/tamzrod/safety-controller/internal/scheduler"
	"github.com/tamzrod/safety-controller/internal/snapshot"
)

var (
	ErrNotInitialized = errors.New("sdk not initialized")
	ErrUnknownSensor  = errors.New("sensor not enabled or unknown sensor")
)

// syncWriter serializes interactive command output against the snapshot
// renderer so blocks never interleave.
type syncWriter struct {
	mu  sync.Mutex
	out io.Writer
}

func (w *syncWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.out.Write(p)
}

// serialDriver guards a driver whose state (session transaction counter,
// receive buffer, bus address) assumes one caller at a time. The scheduler
// worker and interactive dispatch share drivers, so every Query takes the
// driver's lock.
type serialDriver struct {
	device.Driver
	mu sync.Mutex
}

func (d *serialDriver) Query(args []string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.Driver.Query(args)
}

// SDK is the controller facade. All methods are safe for concurrent use.
type SDK struct {
	out     *syncWriter
	confirm device.Confirmer

	mu          sync.Mutex
	cfg         config.Config
	initialized bool
	started     bool

	registry *gateway.Registry
	drivers  map[string]device.Driver
	store    *snapshot.Store

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds an SDK writing command and snapshot output to out. confirm
// guards the risky register writes; nil denies them all.
func New(out io.Writer, confirm device.Confirmer) *SDK {
	if confirm == nil {
		confirm = device.DenyAll{}
	}
	cfg := config.Default()
	config.Normalize(&cfg)
	return &SDK{
		out:     &syncWriter{out: out},
		confirm: confirm,
		cfg:     cfg,
		store:   snapshot.NewStore(),
	}
}

// LoadConfig replaces the active configuration. A started SDK is stopped
// first, the old drivers are torn down, and an initialized one gets its
// drivers rebuilt from the new values.
func (s *SDK) LoadConfig(path string) (string, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return "", err
	}

	s.stopPolling()

	s.mu.Lock()
	old := s.driversCopy()
	s.mu.Unlock()
	for _, d := range old {
		d.Stop()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = *cfg
	s.started = false
	if s.initialized {
		s.buildDrivers()
	}
	return "config loaded: " + path, nil
}

// Config returns the active configuration.
func (s *SDK) Config() config.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Init discovers a config file when none was loaded explicitly and builds
// one driver per enabled sensor.
func (s *SDK) Init() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return "sdk already initialized", nil
	}

	if s.cfg.Path == "" {
		cfg, err := config.LoadOrDefault()
		if err != nil {
			return "", err
		}
		s.cfg = *cfg
	}

	s.buildDrivers()
	for name, d := range s.drivers {
		if err := d.Init(); err != nil {
			return "", fmt.Errorf("init failed on %s: %w", name, err)
		}
	}

	s.initialized = true
	msg := "sdk initialized"
	if s.cfg.Path != "" {
		msg += " with config: " + s.cfg.Path
	}
	return msg, nil
}

// buildDrivers is called with s.mu held.
func (s *SDK) buildDrivers() {
	s.registry = gateway.NewRegistry(0)
	transport := &gateway.Transport{}
	client := func(endpoint string) *gateway.Client {
		return gateway.NewClient(context.Background(), endpoint, s.registry, transport)
	}

	rt := s.cfg.Runtime
	s.drivers = make(map[string]device.Driver)
	add := func(name string, d device.Driver) {
		s.drivers[name] = &serialDriver{Driver: d}
	}
	if rt.Battery.Enable {
		add("battery", battery.New(rt.Battery, client(rt.Battery.Endpoint()), s.confirm))
	}
	if rt.Solar.Enable {
		add("solar", solar.New(rt.Solar, client(rt.Solar.Endpoint()), s.confirm))
	}
	if rt.IoRelay.Enable {
		add("io_relay", iorelay.New(rt.IoRelay, client(rt.IoRelay.Endpoint())))
	}
	if rt.HoistHook.Enable {
		add("hoist_hook", hoisthook.New(rt.HoistHook, client(rt.HoistHook.Endpoint()), s.confirm))
	}
	if rt.Encoder.Enable {
		add("multi_turn_encoder", encoder.New(rt.Encoder))
	}
	if lidar := spdlidar.New(rt.SpdLidar); len(lidar.Instances()) > 0 {
		add("spd_lidar", lidar)
	}
}

// Start prints the auto-query plan, starts every driver and launches the
// polling and snapshot goroutines.
func (s *SDK) Start() (string, error) {
	s.mu.Lock()
	if !s.initialized {
		s.mu.Unlock()
		return "", ErrNotInitialized
	}
	if s.started {
		s.mu.Unlock()
		return "all drivers already started", nil
	}
	drivers := s.driversCopy()
	cfg := s.cfg
	s.mu.Unlock()

	io.WriteString(s.out, renderStartupSummary(cfg, drivers))

	for name, d := range drivers {
		if err := d.Start(); err != nil {
			return "", fmt.Errorf("start failed on %s: %w", name, err)
		}
	}

	s.startPolling(cfg, drivers)

	s.mu.Lock()
	s.started = true
	s.mu.Unlock()
	return "all drivers started", nil
}

// Stop halts polling and stops every driver. Safe to call repeatedly.
func (s *SDK) Stop() (string, error) {
	s.mu.Lock()
	if !s.initialized {
		s.mu.Unlock()
		return "", ErrNotInitialized
	}
	if !s.started {
		s.mu.Unlock()
		return "all drivers already stopped", nil
	}
	drivers := s.driversCopy()
	s.mu.Unlock()

	s.stopPolling()
	for name, d := range drivers {
		if err := d.Stop(); err != nil {
			return "", fmt.Errorf("stop failed on %s: %w", name, err)
		}
	}

	s.mu.Lock()
	s.started = false
	s.mu.Unlock()
	return "all drivers stopped", nil
}

func (s *SDK) driversCopy() map[string]device.Driver {
	out := make(map[string]device.Driver, len(s.drivers))
	for k, v := range s.drivers {
		out[k] = v
	}
	return out
}

// startPolling builds the auto-query task table and launches the scheduler
// and the 1 Hz snapshot renderer.
func (s *SDK) startPolling(cfg config.Config, drivers map[string]device.Driver) {
	sched := scheduler.New(s.store)
	add := func(sensor, key string, hz float64, args ...string) {
		d, ok := drivers[sensor]
		if !ok {
			return
		}
		sched.Add(sensor, key, hz, args, d.Query)
	}

	rt := cfg.Runtime
	add("battery", "battery", rt.Battery.QueryHz, "basic")
	add("solar", "solar", rt.Solar.QueryHz, "status")
	add("hoist_hook", "hoist_hook", rt.HoistHook.QueryHz, "all")
	add("io_relay", "io_relay", rt.IoRelay.QueryHz, "read")
	add("multi_turn_encoder", "multi_turn_encoder", rt.Encoder.QueryHz, "get")
	for _, in := range rt.SpdLidar.Instances {
		if !in.Enabled() {
			continue
		}
		add("spd_lidar", "spd_lidar:"+in.ID, rt.SpdLidar.QueryHz, "send", in.ID, "single")
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	renderer := snapshot.NewRenderer(s.store, s.out)
	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		sched.Run(ctx)
	}()
	go func() {
		defer s.wg.Done()
		renderer.Run(ctx)
	}()
}

func (s *SDK) stopPolling() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
	s.store.Clear()
}

// Query runs one command on a sensor and returns its captured output.
func (s *SDK) Query(sensor string, args []string) (string, error) {
	s.mu.Lock()
	if !s.initialized {
		s.mu.Unlock()
		return "", ErrNotInitialized
	}
	d, ok := s.drivers[sensor]
	s.mu.Unlock()
	if !ok {
		return "", ErrUnknownSensor
	}
	return d.Query(args)
}

// DispatchCommand runs one interactive command and prints its output.
func (s *SDK) DispatchCommand(sensor string, args []string) error {
	out, err := s.Query(sensor, args)
	if out != "" {
		io.WriteString(s.out, out)
	}
	return err
}

// EnabledSensors lists the built drivers in sorted order.
func (s *SDK) EnabledSensors() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.drivers))
	for name := range s.drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AvailableCommands lists the command repertoire of one sensor; nil for an
// unknown or disabled sensor.
func (s *SDK) AvailableCommands(sensor string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drivers[sensor]
	if !ok {
		return nil
	}
	return d.Commands()
}

// Close releases everything; the facade is unusable afterwards.
func (s *SDK) Close() {
	s.stopPolling()
	s.mu.Lock()
	drivers := s.driversCopy()
	s.mu.Unlock()
	for _, d := range drivers {
		d.Stop()
	}
}
