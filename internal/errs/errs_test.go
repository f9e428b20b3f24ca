package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorString(t *testing.T) {
	e := &Error{Op: "create", Detail: "schedule is required"}
	want := "create: schedule is required"
	if got := e.Error(); got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

func TestErrorStringWithWrapped(t *testing.T) {
	inner := fmt.Errorf("disk full")
	e := &Error{Op: "persist", Kind: KindPersistence, Err: inner}
	got := e.Error()
	if got != "persist: persistence error: disk full" {
		t.Fatalf("unexpected message: %q", got)
	}
}

func TestErrorNilError(t *testing.T) {
	var e *Error
	if e.Error() != "<nil>" {
		t.Fatalf("expected <nil>, got %q", e.Error())
	}
}

func TestUnwrap(t *testing.T) {
	inner := fmt.Errorf("boom")
	e := Wrap(inner, KindInternal, "op")
	if errors.Unwrap(e) != inner {
		t.Fatalf("expected Unwrap to return inner error")
	}
}

func TestIsMatchesByKind(t *testing.T) {
	e1 := New(KindNotFound, "lookup", "task not found")
	e2 := &Error{Kind: KindNotFound}
	if !errors.Is(e1, e2) {
		t.Fatalf("expected errors with same Kind to match via errors.Is")
	}

	e3 := &Error{Kind: KindInternal}
	if errors.Is(e1, e3) {
		t.Fatalf("expected errors with different Kind not to match")
	}
}

func TestIsKind(t *testing.T) {
	err := WrapTask(fmt.Errorf("missing"), KindNotFound, "get", 7)
	if !IsKind(err, KindNotFound) {
		t.Fatalf("expected IsKind to report true for matching kind")
	}
	if IsKind(err, KindProtocol) {
		t.Fatalf("expected IsKind to report false for non-matching kind")
	}
}

func TestGetKind(t *testing.T) {
	err := New(KindScheduler, "plan", "rebuild failed")
	kind, ok := GetKind(err)
	if !ok || kind != KindScheduler {
		t.Fatalf("GetKind() = (%v, %v), want (KindScheduler, true)", kind, ok)
	}

	_, ok = GetKind(fmt.Errorf("plain error"))
	if ok {
		t.Fatalf("expected GetKind to report false for a non-*Error")
	}
}

func TestWrapTaskPreservesTaskID(t *testing.T) {
	err := WrapTask(fmt.Errorf("x"), KindPersistence, "remove", 99)
	if err.TaskID != 99 {
		t.Fatalf("expected TaskID=99, got %d", err.TaskID)
	}
}

func TestKindString(t *testing.T) {
	cases := map[Kind]string{
		KindNotFound:       "not found",
		KindInvalidRequest: "invalid request",
		KindPersistence:    "persistence error",
		KindScheduler:      "scheduler error",
		KindProtocol:       "protocol error",
		KindUnknownRequest: "unknown request",
		KindEncoding:       "encoding error",
		KindInternal:       "internal error",
	}
	for k, want := range cases {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", k, got, want)
		}
	}
}

func TestSentinelsAreDistinctByKind(t *testing.T) {
	if errors.Is(ErrTaskNotFound, ErrBadHeader) {
		t.Fatalf("expected ErrTaskNotFound and ErrBadHeader to differ")
	}
	if !errors.Is(ErrTaskNotFound, ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound to match itself")
	}
}
