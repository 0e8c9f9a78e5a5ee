package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseLoad     Phase = "load"     // module compilation and instantiation
	PhaseEncode   Phase = "encode"   // envelope or payload encoding
	PhaseDecode   Phase = "decode"   // envelope or payload decoding
	PhaseRegistry Phase = "registry" // registry construction and lookup
	PhaseDispatch Phase = "dispatch" // host call handling
	PhaseHandoff  Phase = "handoff"  // host writes into guest memory
	PhaseRuntime  Phase = "runtime"  // entry point and system invocation
	PhaseGuest    Phase = "guest"    // guest client and parameter injection
	PhaseConfig   Phase = "config"   // configuration loading
)

// Kind categorizes the error
type Kind string

const (
	KindLoad           Kind = "load"
	KindProtocol       Kind = "protocol"
	KindLookup         Kind = "lookup"
	KindTypeMismatch   Kind = "type_mismatch"
	KindAllocation     Kind = "allocation"
	KindTrap           Kind = "trap"
	KindDuplicateKey   Kind = "duplicate_key"
	KindAlias          Kind = "alias"
	KindNotInitialized Kind = "not_initialized"
	KindInvalidInput   Kind = "invalid_input"
)

// Error is the structured error type used across the host and guest libraries.
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	Module string
	Key    string
	Detail string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Module != "" {
		b.WriteString(" in module ")
		b.WriteString(e.Module)
	}

	if e.Key != "" {
		b.WriteString(" for key ")
		b.WriteString(fmt.Sprintf("%q", e.Key))
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error.
// An empty Phase on the target matches any phase.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase != "" && t.Phase != e.Phase {
		return false
	}
	return e.Kind == t.Kind
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Module sets the guest module name
func (b *Builder) Module(name string) *Builder {
	b.err.Module = name
	return b
}

// Key sets the resource key
func (b *Builder) Key(key string) *Builder {
	b.err.Key = key
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Load creates a module loading error
func Load(module, detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindLoad,
		Module: module,
		Detail: detail,
		Cause:  cause,
	}
}

// MissingExport creates a load error for a guest that lacks a required export
func MissingExport(module, export string) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindLoad,
		Module: module,
		Detail: fmt.Sprintf("missing required export %q", export),
	}
}

// Protocol creates an envelope encode/decode error
func Protocol(phase Phase, detail string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindProtocol,
		Detail: detail,
		Cause:  cause,
	}
}

// UnknownTag creates a protocol error for an unrecognized envelope variant
func UnknownTag(phase Phase, what string, tag any) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindProtocol,
		Detail: fmt.Sprintf("unknown %s tag %v", what, tag),
	}
}

// Lookup creates an unknown resource key error
func Lookup(phase Phase, key string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindLookup,
		Key:    key,
		Detail: "no resource registered",
	}
}

// TypeMismatch creates an error for bytes or values that do not fit the registered type
func TypeMismatch(phase Phase, key, want string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTypeMismatch,
		Key:    key,
		Detail: fmt.Sprintf("value is not a %s", want),
		Cause:  cause,
	}
}

// AllocationFailed creates an allocation failure error
func AllocationFailed(size, align uint32, cause error) *Error {
	return &Error{
		Phase:  PhaseHandoff,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to allocate %d bytes (align %d)", size, align),
		Cause:  cause,
	}
}

// GrowFailed creates an allocation error for refused memory growth
func GrowFailed(pages uint32) *Error {
	return &Error{
		Phase:  PhaseHandoff,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("memory growth by %d pages refused", pages),
	}
}

// Trap creates an error for a guest call that did not return normally
func Trap(module, export string, cause error) *Error {
	return &Error{
		Phase:  PhaseRuntime,
		Kind:   KindTrap,
		Module: module,
		Detail: fmt.Sprintf("call %s", export),
		Cause:  cause,
	}
}

// DuplicateKey creates a registry construction error
func DuplicateKey(key string) *Error {
	return &Error{
		Phase:  PhaseRegistry,
		Kind:   KindDuplicateKey,
		Key:    key,
		Detail: "resource key registered twice",
	}
}

// NotInitialized creates a not-initialized error
func NotInitialized(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotInitialized,
		Detail: fmt.Sprintf("%s not initialized", component),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// KindOf returns the Kind of the first structured error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// WithModule returns a copy of the first structured error in err's chain
// tagged with the module name. Other errors are returned unchanged.
func WithModule(err error, module string) error {
	var e *Error
	if !stderrors.As(err, &e) {
		return err
	}
	cp := *e
	cp.Module = module
	return &cp
}

func hasKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

func IsLoad(err error) bool         { return hasKind(err, KindLoad) }
func IsProtocol(err error) bool     { return hasKind(err, KindProtocol) }
func IsLookup(err error) bool       { return hasKind(err, KindLookup) }
func IsTypeMismatch(err error) bool { return hasKind(err, KindTypeMismatch) }
func IsAllocation(err error) bool   { return hasKind(err, KindAllocation) }
func IsTrap(err error) bool         { return hasKind(err, KindTrap) }
