// internal/scheduler/scheduler_test.go
package scheduler

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/tamzrod/safety-controller/internal/snapshot"
)

func TestPeriod_Clamp(t *testing.T) {
	cases := []struct {
		hz      float64
		want    time.Duration
		enabled bool
	}{
		{0.05, 0, false},
		{60, 20 * time.Millisecond, true},
		{math.NaN(), 0, false},
		{0, 0, false},
		{-1, 0, false},
		{0.1, 10 * time.Second, true},
		{1, time.Second, true},
		{50, 20 * time.Millisecond, true},
	}

	for _, c := range cases {
		got, enabled := Period(c.hz)
		if enabled != c.enabled {
			t.Fatalf("Period(%v) enabled=%t, want %t", c.hz, enabled, c.enabled)
		}
		if enabled && got != c.want {
			t.Fatalf("Period(%v)=%v, want %v", c.hz, got, c.want)
		}
	}
}

func TestAdd_DisabledRateDropped(t *testing.T) {
	s := New(snapshot.NewStore())

	if s.Add("battery", "battery", 0, []string{"basic"}, func([]string) (string, error) { return "", nil }) {
		t.Fatalf("expected hz=0 task to be dropped")
	}
	if !s.Add("solar", "solar", 1, []string{"status"}, func([]string) (string, error) { return "", nil }) {
		t.Fatalf("expected hz=1 task to be added")
	}
	if len(s.Tasks()) != 1 {
		t.Fatalf("got %d tasks, want 1", len(s.Tasks()))
	}
}

func TestRun_SingleTaskPerPass(t *testing.T) {
	store := snapshot.NewStore()
	s := New(store)

	var mu sync.Mutex
	var order []string
	record := func(name string) QueryFunc {
		return func([]string) (string, error) {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return name, nil
		}
	}

	// Both due immediately; a single pass must run exactly one.
	s.Add("battery", "battery", 50, nil, record("battery"))
	s.Add("solar", "solar", 50, nil, record("solar"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	time.Sleep(120 * time.Millisecond)
	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	if len(order) < 4 {
		t.Fatalf("expected several executions, got %d", len(order))
	}
	for i := 1; i < len(order); i++ {
		if order[i] == order[i-1] {
			t.Fatalf("task %q ran twice in a row: %v", order[i], order)
		}
	}
}

func TestRun_StoresResultAndRearms(t *testing.T) {
	store := snapshot.NewStore()
	s := New(store)

	var mu sync.Mutex
	runs := 0
	s.Add("io_relay", "io_relay", 10, []string{"read"}, func(args []string) (string, error) {
		mu.Lock()
		runs++
		mu.Unlock()
		return "relays read", nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	time.Sleep(250 * time.Millisecond)
	cancel()
	<-done

	e, ok := store.Get("io_relay")
	if !ok {
		t.Fatalf("no snapshot entry stored")
	}
	if e.Output != "relays read" || !e.OK() {
		t.Fatalf("unexpected entry: %+v", e)
	}

	// 10 Hz over 250 ms: expect a couple of runs, not a burst.
	mu.Lock()
	defer mu.Unlock()
	if runs < 2 || runs > 4 {
		t.Fatalf("got %d runs, want 2..4", runs)
	}
}

func TestRun_CancelJoins(t *testing.T) {
	s := New(snapshot.NewStore())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("scheduler did not stop after cancel")
	}
}
