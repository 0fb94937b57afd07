package ratelimit

import (
	"testing"
	"time"
)

func TestTryAcquireConsumesBudget(t *testing.T) {
	l := New()
	l.Register("tight", 2, time.Hour)

	for i := 0; i < 2; i++ {
		if ok, _ := l.TryAcquire("tight"); !ok {
			t.Fatalf("acquire %d should succeed within budget", i+1)
		}
	}

	ok, deferUntil := l.TryAcquire("tight")
	if ok {
		t.Fatal("third acquire should be denied")
	}
	if !deferUntil.After(time.Now()) {
		t.Error("denial must report a future retry time")
	}
}

func TestUnregisteredProviderAlwaysAllowed(t *testing.T) {
	l := New()
	for i := 0; i < 100; i++ {
		if ok, _ := l.TryAcquire("nobudget"); !ok {
			t.Fatal("providers without a registered budget are never limited")
		}
	}
}

func TestRegisterReplacesBudget(t *testing.T) {
	l := New()
	l.Register("p", 1, time.Hour)
	if ok, _ := l.TryAcquire("p"); !ok {
		t.Fatal("first acquire should succeed")
	}
	if ok, _ := l.TryAcquire("p"); ok {
		t.Fatal("budget should be spent")
	}

	l.Register("p", 5, time.Hour)
	if ok, _ := l.TryAcquire("p"); !ok {
		t.Error("re-registering should install a fresh bucket")
	}
}

func TestRegisterIgnoresInvalidBudget(t *testing.T) {
	l := New()
	l.Register("p", 0, time.Hour)
	l.Register("q", 10, 0)
	if ok, _ := l.TryAcquire("p"); !ok {
		t.Error("zero-size budget should not register")
	}
	if ok, _ := l.TryAcquire("q"); !ok {
		t.Error("zero-window budget should not register")
	}
}
