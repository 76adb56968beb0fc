package listener

import (
	"testing"
	"time"
)

func TestBackoffSchedule(t *testing.T) {
	schedule := []time.Duration{
		5 * time.Second,
		10 * time.Second,
		30 * time.Second,
		60 * time.Second,
		120 * time.Second,
	}
	b := NewBackoff(schedule)

	want := []time.Duration{
		5 * time.Second,
		10 * time.Second,
		30 * time.Second,
		60 * time.Second,
		120 * time.Second,
		120 * time.Second,
		120 * time.Second,
	}
	for i, expected := range want {
		if got := b.Next(); got != expected {
			t.Fatalf("failure %d: got %v, want %v", i+1, got, expected)
		}
	}
}

func TestBackoffResetOnSuccess(t *testing.T) {
	b := NewBackoff([]time.Duration{5 * time.Second, 10 * time.Second})

	if got := b.Next(); got != 5*time.Second {
		t.Fatalf("first failure: got %v", got)
	}
	if got := b.Next(); got != 10*time.Second {
		t.Fatalf("second failure: got %v", got)
	}

	b.Reset()
	if b.Failures() != 0 {
		t.Fatalf("failures not cleared: %d", b.Failures())
	}
	if got := b.Next(); got != 5*time.Second {
		t.Fatalf("first failure after reset: got %v", got)
	}
}

func TestBackoffDefaultSchedule(t *testing.T) {
	b := NewBackoff(nil)
	if got := b.Next(); got != 5*time.Second {
		t.Fatalf("default first delay: got %v", got)
	}
}

func TestBackoffSingleEntryHolds(t *testing.T) {
	b := NewBackoff([]time.Duration{3 * time.Second})
	for i := 0; i < 4; i++ {
		if got := b.Next(); got != 3*time.Second {
			t.Fatalf("attempt %d: got %v", i+1, got)
		}
	}
}
