// Package errors provides structured error types for the wavedash host and guest libraries.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Kind set mirrors the failure taxonomy of the call boundary:
//
//	load           malformed bytecode or a missing required export
//	protocol       undecodable envelope or unknown variant tag
//	lookup         unknown resource key
//	type_mismatch  bytes that do not decode into the registered type
//	allocation     guest allocator exhausted or memory growth refused
//	trap           guest code faulted
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseDispatch, errors.KindLookup).
//		Module("counter").
//		Key("Counter").
//		Detail("no resource registered").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.Lookup(errors.PhaseRegistry, "Counter")
//	err := errors.GrowFailed(3)
//
// Errors survive wrapping by the VM, so callers can classify them with
// KindOf or the IsLookup/IsTrap/... predicates.
package errors
