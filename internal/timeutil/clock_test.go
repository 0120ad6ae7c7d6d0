package timeutil

import (
	"testing"
	"time"
)

func TestMockClockSleepAdvancesAndRecords(t *testing.T) {
	c := NewMockClock(time.Unix(100, 0))

	c.Sleep(5 * time.Second)
	c.Sleep(10 * time.Second)

	if got, want := c.Now(), time.Unix(115, 0); !got.Equal(want) {
		t.Errorf("Now() = %v, want %v", got, want)
	}

	sleeps := c.Sleeps()
	want := []time.Duration{5 * time.Second, 10 * time.Second}
	if len(sleeps) != len(want) {
		t.Fatalf("got %d recorded sleeps, want %d", len(sleeps), len(want))
	}
	for i, d := range want {
		if sleeps[i] != d {
			t.Errorf("sleep %d = %v, want %v", i, sleeps[i], d)
		}
	}
}

func TestMockClockAdvance(t *testing.T) {
	c := NewMockClock(time.Unix(0, 0))
	c.Advance(time.Minute)
	if got, want := c.Now(), time.Unix(60, 0); !got.Equal(want) {
		t.Errorf("Now() = %v, want %v", got, want)
	}
	if len(c.Sleeps()) != 0 {
		t.Error("Advance should not record a sleep")
	}
}

func TestRealClockNow(t *testing.T) {
	before := time.Now()
	got := RealClock{}.Now()
	after := time.Now()
	if got.Before(before) || got.After(after) {
		t.Errorf("Now() = %v, want between %v and %v", got, before, after)
	}
}
