// internal/scheduler/scheduler.go
package scheduler

import (
	"context"
	"math"
	"time"

	"github.com/tamzrod/safety-controller/internal/snapshot"
)

// ---- RATE LIMITS ----

// MinHz is the slowest accepted poll rate; configured rates below it
// (including zero, negative, and NaN) disable the task.
const MinHz = 0.1

// MaxHz caps the poll rate to protect the gateway.
const MaxHz = 50.0

// idleSleep is the wait between scans when no task is due.
const idleSleep = 20 * time.Millisecond

// Period converts a configured rate to a task period.
// The second return is false when the rate disables the task.
func Period(hz float64) (time.Duration, bool) {
	if math.IsNaN(hz) || hz < MinHz {
		return 0, false
	}
	if hz > MaxHz {
		hz = MaxHz
	}
	return time.Duration(float64(time.Second) / hz), true
}

// Scheduler drives all poll tasks from a single worker. One task runs per
// scan pass so drivers sharing a gateway take turns instead of bursting.
type Scheduler struct {
	store *snapshot.Store
	tasks []Task
}

func New(store *snapshot.Store) *Scheduler {
	return &Scheduler{store: store}
}

// Add registers a poll task. Rates that disable the task are dropped here,
// so Run only ever sees live tasks.
func (s *Scheduler) Add(sensor, snapshotKey string, hz float64, args []string, exec QueryFunc) bool {
	period, ok := Period(hz)
	if !ok || exec == nil {
		return false
	}
	s.tasks = append(s.tasks, Task{
		Sensor:      sensor,
		SnapshotKey: snapshotKey,
		Args:        args,
		Period:      period,
		Exec:        exec,
	})
	return true
}

// Tasks returns the registered task list for startup reporting.
func (s *Scheduler) Tasks() []Task { return s.tasks }

// Run executes tasks until ctx is cancelled. Intended for one goroutine;
// the caller joins it on shutdown.
func (s *Scheduler) Run(ctx context.Context) {
	now := time.Now()
	for i := range s.tasks {
		s.tasks[i].nextDue = now
	}

	for {
		if ctx.Err() != nil {
			return
		}

		now = time.Now()
		ran := false
		for i := range s.tasks {
			t := &s.tasks[i]
			if t.nextDue.After(now) {
				continue
			}

			out, err := t.Exec(t.Args)
			done := time.Now()
			s.store.Put(t.SnapshotKey, out, err, done)

			// Period restarts after the exchange completes, so slow
			// exchanges never stack executions.
			t.nextDue = done.Add(t.Period)
			ran = true
			break
		}

		if ran {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(idleSleep):
		}
	}
}
