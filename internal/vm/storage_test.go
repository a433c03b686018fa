package vm

import (
	"testing"
	"time"

	"github.com/swarmlang/swarm/internal/ast"
	"github.com/swarmlang/swarm/internal/isa"
)

func TestStorageTypifyRejectsMismatch(t *testing.T) {
	s := NewStorage(false)
	s.Typify("x", ast.Number)
	if err := s.Store("x", NumberValue{N: 1}); err != nil {
		t.Fatalf("store of a Number into a Number cell: %v", err)
	}
	err := s.Store("x", StringValue{S: "no"})
	if err == nil {
		t.Fatal("expected InvalidArgumentType")
	}
	rt, ok := err.(*RuntimeError)
	if !ok || rt.Code != ExInvalidArgumentType {
		t.Errorf("error = %v, want InvalidArgumentType", err)
	}
}

func TestLockReentrancyDetectedAcrossScopeChain(t *testing.T) {
	s := NewStorage(true)
	chain := []int64{3, 2, 1}

	acquired, reentrant := s.AcquireLock("l", chain)
	if !acquired || reentrant {
		t.Fatalf("first acquire = (%v, %v), want (true, false)", acquired, reentrant)
	}
	// a deeper frame of the same chain re-acquires: reentrant no-op
	acquired, reentrant = s.AcquireLock("l", []int64{9, 3, 2, 1})
	if acquired || !reentrant {
		t.Fatalf("chain re-acquire = (%v, %v), want (false, true)", acquired, reentrant)
	}
	// a disjoint chain contends
	acquired, reentrant = s.AcquireLock("l", []int64{7})
	if acquired || reentrant {
		t.Fatalf("foreign acquire = (%v, %v), want (false, false)", acquired, reentrant)
	}
	s.ReleaseLock("l")
	if acquired, _ := s.AcquireLock("l", []int64{7}); !acquired {
		t.Fatal("lock not released")
	}
}

func TestLockRetryExhaustionRaises(t *testing.T) {
	s := NewStorage(true)
	s.AcquireLock("l", []int64{1})
	_, err := s.AcquireLockRetry("l", []int64{2}, 3, time.Microsecond)
	if err == nil {
		t.Fatal("expected AcquireLockMaxAttemptsExceeded")
	}
	rt, ok := err.(*RuntimeError)
	if !ok || rt.Code != ExAcquireLockMaxAttemptsExceeded {
		t.Errorf("error = %v, want AcquireLockMaxAttemptsExceeded", err)
	}
}

func TestClearFailsWhileLocked(t *testing.T) {
	s := NewStorage(true)
	s.AcquireLock("l", []int64{1})
	if err := s.Clear(); err == nil {
		t.Fatal("Clear must fail while a lock is held")
	}
	s.ReleaseLock("l")
	if err := s.Clear(); err != nil {
		t.Fatalf("Clear after release: %v", err)
	}
}

func TestScopeShadowResolution(t *testing.T) {
	root := NewRootScope()
	l := isa.Loc(isa.Local, "x")

	if got := root.Map(l); got != "x" {
		t.Errorf("unshadowed Map = %q, want x", got)
	}

	call := root.NewCall(&CallRecord{Function: "F"})
	shadow := call.Shadow(l)
	if shadow == "x" {
		t.Error("Shadow must rewrite the name")
	}
	if got := call.Map(l); got != shadow {
		t.Errorf("Map in call scope = %q, want %q", got, shadow)
	}
	if got := root.Map(l); got != "x" {
		t.Errorf("Map in root scope = %q, want x", got)
	}

	inner := call.NewChild()
	if got := inner.Map(l); got != shadow {
		t.Errorf("child scope must see the parent shadow, got %q", got)
	}

	if _, ok := inner.InCall(); !ok {
		t.Error("InCall must find the enclosing call record")
	}
}

func TestScopeShadowIdempotentPerFrame(t *testing.T) {
	f := NewRootScope().NewChild()
	l := isa.Loc(isa.Local, "x")
	if a, b := f.Shadow(l), f.Shadow(l); a != b {
		t.Errorf("re-shadowing produced %q then %q", a, b)
	}
}
