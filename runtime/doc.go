// Package runtime loads wavedash guests and drives their entry points.
//
// # Quick Start
//
//	ctx := context.Background()
//	rt, err := runtime.New(ctx,
//	    runtime.WithCodec(protocol.Borsh()),
//	    runtime.WithResource(registry.Typed[uint64]("Counter", protocol.Borsh())),
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
// # Calls
//
// Every call into a guest is an outermost call: the module builds a
// dispatch.CallContext holding the shared state, its memory and an
// allocator bound to the call, and attaches it to the call's context. Host
// imports find it there. A failing import traps the guest, and the call
// returns the structured error that caused the trap, tagged with the module
// name. Any other abnormal exit is a trap error.
package runtime
