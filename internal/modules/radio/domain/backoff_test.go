package domain

import (
	"testing"
	"time"
)

func TestBackoff_DoublesUpToCapWithoutJitter(t *testing.T) {
	b := NewBackoff(time.Second, 10*time.Second)
	b.jitter = nil

	want := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		10 * time.Second,
		10 * time.Second,
	}
	for i, w := range want {
		if got := b.Next(); got != w {
			t.Errorf("Next() #%d = %v, want %v", i, got, w)
		}
	}
	if b.attempt != len(want) {
		t.Errorf("attempt = %d, want %d", b.attempt, len(want))
	}
}

func TestBackoff_NonDecreasingWithJitter(t *testing.T) {
	b := NewBackoff(100*time.Millisecond, 3*time.Second)

	var prev time.Duration
	for i := range 50 {
		got := b.Next()
		if got < prev {
			t.Fatalf("Next() #%d = %v, smaller than previous %v", i, got, prev)
		}
		if got > b.Max {
			t.Fatalf("Next() #%d = %v, exceeds cap %v", i, got, b.Max)
		}
		prev = got
	}
}

func TestBackoff_JitterStaysWithinQuarter(t *testing.T) {
	b := NewBackoff(time.Second, time.Minute)
	// Always pick the largest jitter the spread allows.
	b.jitter = func(n int64) int64 { return n - 1 }

	got := b.Next()
	if got < time.Second || got >= time.Second+time.Second/4 {
		t.Errorf("Next() = %v, want in [1s, 1.25s)", got)
	}
}

func TestBackoff_JitterDoesNotBreakMonotonicity(t *testing.T) {
	b := NewBackoff(time.Second, 2*time.Second)
	calls := 0
	// Large jitter first, none afterwards.
	b.jitter = func(n int64) int64 {
		calls++
		if calls == 1 {
			return n - 1
		}
		return 0
	}

	first := b.Next()
	second := b.Next()
	third := b.Next()
	if second < first || third < second {
		t.Errorf("delays decreased: %v, %v, %v", first, second, third)
	}
	if third != 2*time.Second {
		t.Errorf("third delay = %v, want cap 2s", third)
	}
}

func TestBackoff_Reset(t *testing.T) {
	b := NewBackoff(time.Second, time.Minute)
	b.jitter = nil

	b.Next()
	b.Next()
	b.Next()
	b.Reset()

	if b.attempt != 0 {
		t.Errorf("attempt after Reset = %d, want 0", b.attempt)
	}
	if got := b.Next(); got != time.Second {
		t.Errorf("Next() after Reset = %v, want %v", got, time.Second)
	}
}

func TestNewBackoff_ClampsMaxToBase(t *testing.T) {
	b := NewBackoff(5*time.Second, time.Second)
	if b.Max != 5*time.Second {
		t.Errorf("Max = %v, want %v", b.Max, 5*time.Second)
	}
}
