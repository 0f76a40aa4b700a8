package utils

import (
	"context"
	"testing"
	"time"
)

func TestBackoffDelay(t *testing.T) {
	b := Backoff{Base: 2, Max: 10 * time.Second}
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 2 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 10 * time.Second},
		{40, 10 * time.Second},
	}

	for _, test := range tests {
		if got := b.Delay(test.attempt); got != test.expected {
			t.Errorf("Delay(%d) = %s, expected %s", test.attempt, got, test.expected)
		}
	}
}

func TestBackoffCustomUnit(t *testing.T) {
	b := Backoff{Base: 3, Unit: time.Millisecond}
	if got := b.Delay(2); got != 9*time.Millisecond {
		t.Errorf("Delay(2) = %s, expected 9ms", got)
	}
}

func TestSleepHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Sleep(ctx, time.Hour); err == nil {
		t.Fatal("expected context error from cancelled Sleep")
	}
}

func TestHashKeyNormalises(t *testing.T) {
	if HashKey("  Công ty ABC ") != HashKey("công ty abc") {
		t.Error("expected case and surrounding space to be ignored")
	}
	if HashKey("a") == HashKey("b") {
		t.Error("expected different keys to hash differently")
	}
}

func TestHostOf(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"https://masothue.com/search?q=x", "masothue.com"},
		{"not a url", "_"},
		{"", "_"},
	}
	for _, test := range tests {
		if got := HostOf(test.input); got != test.expected {
			t.Errorf("HostOf(%q) = %q, expected %q", test.input, got, test.expected)
		}
	}
}

func TestNilHostLimiterDoesNotBlock(t *testing.T) {
	var hl *HostLimiter
	if err := hl.WaitURL(context.Background(), "https://masothue.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
