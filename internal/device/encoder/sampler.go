// internal/device/encoder/sampler.go
package encoder

import (
	"encoding/binary"
	"fmt"
	"sync"
	"time"
)

// Register layout of the multi-turn encoder. The turn counter is a signed
// 32-bit whole-turn count followed by a fractional register in 1/8192 turn.
const (
	regTurns    = 0x0000
	regTurnsQty = 4
	fracScale   = 8192.0
)

// sampleInterval paces the background read loop.
const sampleInterval = 50 * time.Millisecond

// filterAlpha is the smoothing factor of the exponential filter applied to
// the raw turn count.
const filterAlpha = 0.2

// Sample is one timestamped encoder reading. Velocity is turns per second
// derived from consecutive filtered samples.
type Sample struct {
	Valid         bool
	At            time.Time
	TurnsRaw      float64
	TurnsFiltered float64
	Velocity      float64
}

// regReader is the slice of the Modbus client the sampler needs.
type regReader interface {
	ReadHoldingRegisters(address, quantity uint16) ([]byte, error)
}

// readTurns performs one register read and decodes the absolute turn count.
func readTurns(c regReader) (float64, error) {
	raw, err := c.ReadHoldingRegisters(regTurns, regTurnsQty)
	if err != nil {
		return 0, err
	}
	if len(raw) < 2*regTurnsQty {
		return 0, fmt.Errorf("short register read: %d bytes", len(raw))
	}
	whole := int32(binary.BigEndian.Uint32(raw[0:4]))
	frac := binary.BigEndian.Uint16(raw[6:8])
	return float64(whole) + float64(frac)/fracScale, nil
}

// sampler runs the background read loop and keeps the latest sample.
type sampler struct {
	mu     sync.Mutex
	latest Sample
	primed bool
}

// Latest returns the most recent sample; Valid is false until the loop has
// stored at least one successful read.
func (s *sampler) Latest() Sample {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

// observe folds one successful read into the filtered state.
func (s *sampler) observe(turns float64, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := Sample{Valid: true, At: at, TurnsRaw: turns}
	if !s.primed {
		next.TurnsFiltered = turns
		s.primed = true
	} else {
		prev := s.latest
		next.TurnsFiltered = prev.TurnsFiltered + filterAlpha*(turns-prev.TurnsFiltered)
		if dt := at.Sub(prev.At).Seconds(); dt > 0 {
			next.Velocity = (next.TurnsFiltered - prev.TurnsFiltered) / dt
		} else {
			next.Velocity = prev.Velocity
		}
	}
	s.latest = next
}

// run polls until stop closes. Read failures keep the previous sample; the
// loop simply tries again on the next tick.
func (s *sampler) run(c regReader, stop <-chan struct{}) {
	ticker := time.NewTicker(sampleInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			turns, err := readTurns(c)
			if err != nil {
				continue
			}
			s.observe(turns, time.Now())
		}
	}
}
