// Package dispatch is the host side of the guest request import.
//
// A guest passes (ptr, len) of an encoded request. The dispatcher decodes
// it, consults the registry, touches the shared state in the CallContext,
// encodes and frames the response, and hands it back through a buffer the
// guest allocated:
//
//	cc := &dispatch.CallContext{State: w, Memory: mem, Allocator: alloc, Module: "counter"}
//	buf, err := d.Serve(ctx, cc, raw)
//
// Unknown keys, undecodable bytes, type mismatches and allocation failures
// are returned as errors and must trap the guest call; they never travel
// as responses.
package dispatch
