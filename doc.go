// Package wavedash runs sandboxed WebAssembly guests against shared host state.
//
// Guests read and mutate named resources through a small request/response
// boundary, and the host drives named entry points inside each guest.
//
// # Architecture Overview
//
//	wavedash/            Root package with the Memory and Allocator interfaces
//	├── protocol/        Request/response envelopes, codecs and framing
//	├── handoff/         Host writes into guest-owned memory
//	├── registry/        Type-erased resource descriptors keyed by string
//	├── world/           Reference shared-state container
//	├── dispatch/        Host side of the request import
//	├── engine/          wazero integration
//	├── runtime/         Module loading and entry point invocation
//	├── guest/           Guest client library
//	├── system/          Guest handlers with injected resource parameters
//	├── scheduler/       Fixed-interval multi-module driver
//	├── config/          YAML configuration
//	├── logging/         zap logger construction
//	├── metrics/         Prometheus collectors
//	├── tracing/         OpenTelemetry tracer setup
//	├── errors/          Structured error types
//	└── cmd/wavedash/    CLI: run, inspect, demo, schema
//
// # Quick Start
//
//	w := world.New()
//	w.Insert("Counter", uint64(42))
//
//	rt, err := runtime.New(ctx,
//	    runtime.WithResource(registry.Typed[uint64]("Counter", protocol.JSON())),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close(ctx)
//
//	mod, err := rt.Load(ctx, "counter", wasmBytes)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := mod.Tick(ctx, w); err != nil {
//	    log.Print(err)
//	}
//
// # Guest Contract
//
// A guest exports memory and wavedash_alloc(size, align) -> ptr, plus
// wavedash_main or the wavedash_system_count/wavedash_run_system pair.
// It may import request(ptr, len) -> ptr and log(ptr, len) from the
// "wavedash" module. Responses are written into buffers the guest
// allocated, prefixed with a 4-byte little-endian length, and the guest
// frees them after decoding.
package wavedash
