package chromedp_crawler

import (
	"testing"

	"go.uber.org/zap"
)

func TestJSStringEscapes(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`#ctl00_C_ENT_GDT_CODEFld`, `"#ctl00_C_ENT_GDT_CODEFld"`},
		{`input[id^="ctl00"]`, `"input[id^=\"ctl00\"]"`},
		{"Không tìm thấy", `"Không tìm thấy"`},
		{"a\nb", `"a\nb"`},
	}
	for _, test := range tests {
		if got := jsString(test.input); got != test.expected {
			t.Errorf("jsString(%q) = %s, expected %s", test.input, got, test.expected)
		}
	}
}

func TestLauncherDefaults(t *testing.T) {
	l := NewLauncher(Options{}, zap.NewNop())
	if l.opts.MaxSessions != 1 {
		t.Errorf("MaxSessions = %d, expected 1", l.opts.MaxSessions)
	}
	if l.opts.PageLoadTimeout <= 0 {
		t.Error("expected a positive page load timeout")
	}
	if l.opts.Identities == nil {
		t.Fatal("expected a default identity manager")
	}
	if !l.sem.TryAcquire(1) {
		t.Fatal("expected a free session slot")
	}
	if l.sem.TryAcquire(1) {
		t.Error("expected the session limit to be enforced")
	}
}

func TestAllocatorOptionsAddProxyOnlyWhenSet(t *testing.T) {
	l := NewLauncher(Options{Headless: true}, zap.NewNop())
	without := len(l.allocatorOptions(Identity{UserAgent: "ua"}))
	with := len(l.allocatorOptions(Identity{UserAgent: "ua", Proxy: "http://proxy:8080"}))
	if with != without+1 {
		t.Errorf("expected exactly one extra option for a proxy, got %d vs %d", with, without)
	}

	visible := NewLauncher(Options{Headless: false}, zap.NewNop())
	if got := len(visible.allocatorOptions(Identity{UserAgent: "ua"})); got != without+1 {
		t.Errorf("expected a headless override when not headless, got %d options", got)
	}
}
