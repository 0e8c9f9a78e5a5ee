package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseDispatch,
				Kind:   KindLookup,
				Module: "counter",
				Key:    "Missing",
				Detail: "no resource registered",
			},
			contains: []string{"[dispatch]", "lookup", "counter", `"Missing"`, "no resource registered"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseDecode,
				Kind:  KindProtocol,
			},
			contains: []string{"[decode]", "protocol"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseHandoff,
				Kind:   KindAllocation,
				Detail: "memory full",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[handoff]", "allocation", "memory full", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseDecode,
		Kind:  KindTypeMismatch,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is did not reach cause")
	}
}

func TestError_Is(t *testing.T) {
	err := Lookup(PhaseRegistry, "Counter")

	if !errors.Is(err, &Error{Phase: PhaseRegistry, Kind: KindLookup}) {
		t.Error("Is should match same phase and kind")
	}
	if errors.Is(err, &Error{Phase: PhaseDispatch, Kind: KindLookup}) {
		t.Error("Is should not match different phase")
	}
	if !errors.Is(err, &Error{Kind: KindLookup}) {
		t.Error("Is should match any phase when target phase is empty")
	}
	if errors.Is(err, &Error{Kind: KindTrap}) {
		t.Error("Is should not match different kind")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseDispatch, KindTypeMismatch).
		Module("guest-a").
		Key("Counter").
		Cause(cause).
		Detail("expected %s, got %s", "int", "string").
		Build()

	if err.Phase != PhaseDispatch {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseDispatch)
	}
	if err.Kind != KindTypeMismatch {
		t.Errorf("Kind = %v, want %v", err.Kind, KindTypeMismatch)
	}
	if err.Module != "guest-a" || err.Key != "Counter" {
		t.Errorf("Module=%q Key=%q", err.Module, err.Key)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "expected int, got string" {
		t.Errorf("Detail = %v", err.Detail)
	}
}

func TestKindSurvivesWrapping(t *testing.T) {
	// The VM wraps host faults with %w and a stack trace.
	fault := Lookup(PhaseDispatch, "Missing")
	wrapped := fmt.Errorf("%w (recovered by wazero)\nwasm stack trace:\n\tguest.main", fault)

	kind, ok := KindOf(wrapped)
	if !ok || kind != KindLookup {
		t.Fatalf("KindOf = %v, %v; want lookup", kind, ok)
	}
	if !IsLookup(wrapped) {
		t.Error("IsLookup should see through wrapping")
	}
	if IsTrap(wrapped) {
		t.Error("IsTrap should be false for a lookup fault")
	}

	if _, ok := KindOf(errors.New("plain")); ok {
		t.Error("KindOf should report false for unstructured errors")
	}
}

func TestWithModule(t *testing.T) {
	fault := AllocationFailed(64, 4, nil)
	tagged := WithModule(fmt.Errorf("outer: %w", fault), "b")

	var e *Error
	if !errors.As(tagged, &e) {
		t.Fatal("tagged error lost its structure")
	}
	if e.Module != "b" {
		t.Errorf("Module = %q, want b", e.Module)
	}
	if fault.Module != "" {
		t.Error("WithModule must not mutate the original error")
	}

	plain := errors.New("plain")
	if WithModule(plain, "b") != plain {
		t.Error("unstructured errors should pass through")
	}
}

func TestConvenienceConstructors(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		kind Kind
		want string
	}{
		{"MissingExport", MissingExport("m", "wavedash_alloc"), KindLoad, "wavedash_alloc"},
		{"UnknownTag", UnknownTag(PhaseDecode, "request", "Teleport"), KindProtocol, "Teleport"},
		{"TypeMismatch", TypeMismatch(PhaseDispatch, "Counter", "int64", nil), KindTypeMismatch, "int64"},
		{"AllocationFailed", AllocationFailed(1024, 8, nil), KindAllocation, "1024"},
		{"GrowFailed", GrowFailed(3), KindAllocation, "3 pages"},
		{"Trap", Trap("m", "wavedash_main", errors.New("unreachable")), KindTrap, "wavedash_main"},
		{"DuplicateKey", DuplicateKey("Counter"), KindDuplicateKey, "twice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Kind != tt.kind {
				t.Errorf("Kind = %v, want %v", tt.err.Kind, tt.kind)
			}
			if !strings.Contains(tt.err.Error(), tt.want) {
				t.Errorf("message %q should contain %q", tt.err.Error(), tt.want)
			}
		})
	}
}
