package monitoring

import "testing"

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var got string
	SetLogger(func(format string, v ...interface{}) { got = format })
	Logf("hello %d")
	if got != "hello %d" {
		t.Errorf("custom logger not invoked, got %q", got)
	}

	// nil mutes without panicking
	SetLogger(nil)
	Logf("dropped")

	called := false
	SetLogger(func(string, ...interface{}) { called = true })
	Logf("x")
	if !called {
		t.Error("replacement logger after nil was not called")
	}
}

func TestSetDebug(t *testing.T) {
	origLog, origDebug := Logf, Debugf
	defer func() { Logf, Debugf = origLog, origDebug }()

	count := 0
	SetLogger(func(string, ...interface{}) { count++ })

	Debugf("suppressed by default")
	if count != 0 {
		t.Fatalf("Debugf fired while disabled, count=%d", count)
	}

	SetDebug(true)
	Debugf("now visible")
	if count != 1 {
		t.Fatalf("Debugf did not reach logger, count=%d", count)
	}

	SetDebug(false)
	Debugf("silenced again")
	if count != 1 {
		t.Fatalf("Debugf fired after disable, count=%d", count)
	}
}
