package debounce

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncer_CollapsesBurst(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	d := New(30 * time.Millisecond)

	for i := 0; i < 5; i++ {
		d.Trigger(func() { calls.Add(1) })
		time.Sleep(5 * time.Millisecond)
	}

	time.Sleep(100 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Errorf("burst of 5 triggers ran %d times, want 1", got)
	}
}

func TestDebouncer_LatestFunctionWins(t *testing.T) {
	t.Parallel()

	var got atomic.Int32
	d := New(20 * time.Millisecond)

	d.Trigger(func() { got.Store(1) })
	d.Trigger(func() { got.Store(2) })

	time.Sleep(80 * time.Millisecond)
	if v := got.Load(); v != 2 {
		t.Errorf("expected latest trigger to run, got %d", v)
	}
}

func TestDebouncer_Cancel(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	d := New(20 * time.Millisecond)

	d.Trigger(func() { calls.Add(1) })
	d.Cancel()

	time.Sleep(80 * time.Millisecond)
	if got := calls.Load(); got != 0 {
		t.Errorf("cancelled trigger still ran %d times", got)
	}
}

func TestDebouncer_SeparateBurstsBothRun(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	d := New(10 * time.Millisecond)

	d.Trigger(func() { calls.Add(1) })
	time.Sleep(50 * time.Millisecond)
	d.Trigger(func() { calls.Add(1) })
	time.Sleep(50 * time.Millisecond)

	if got := calls.Load(); got != 2 {
		t.Errorf("two settled bursts ran %d times, want 2", got)
	}
}
