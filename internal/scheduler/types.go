// internal/scheduler/types.go
package scheduler

import "time"

// QueryFunc is a driver's command entry point. It returns the captured
// human-readable output for the snapshot store.
type QueryFunc func(args []string) (string, error)

// Task is one periodic poll target.
type Task struct {
	Sensor      string
	SnapshotKey string
	Args        []string
	Period      time.Duration
	Exec        QueryFunc

	nextDue time.Time
}
