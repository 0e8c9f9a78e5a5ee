// Package registry maps resource keys to type-erased marshalling functions.
//
// Each Descriptor carries two plain functions: Serialize reads the current
// value out of a State and encodes it, Apply decodes bytes and stores them.
// The registry is built once and never mutated; unknown keys are lookup
// errors, never empty results.
//
//	reg, err := registry.New(
//	    registry.Typed[uint64]("Counter", codec),
//	    registry.Typed[string]("Name", codec),
//	)
package registry
