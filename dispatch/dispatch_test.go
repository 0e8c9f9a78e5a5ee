package dispatch_test

import (
	"context"
	stderrors "errors"
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wippyai/wavedash/dispatch"
	"github.com/wippyai/wavedash/errors"
	"github.com/wippyai/wavedash/internal/loopback"
	"github.com/wippyai/wavedash/metrics"
	"github.com/wippyai/wavedash/protocol"
	"github.com/wippyai/wavedash/registry"
	"github.com/wippyai/wavedash/world"
)

func setup(t *testing.T, codec protocol.Codec, opts ...dispatch.Option) (*dispatch.Dispatcher, *world.World, *dispatch.CallContext) {
	t.Helper()

	reg, err := registry.New(
		registry.Typed[uint64]("Counter", codec),
		registry.Typed[string]("Name", codec),
	)
	if err != nil {
		t.Fatalf("registry.New: %v", err)
	}

	w := world.New()
	w.Insert("Counter", uint64(42))
	w.Insert("Name", "wave")

	cc := &dispatch.CallContext{
		State:     w,
		Memory:    loopback.NewMemory(1, 64),
		Allocator: loopback.NewAllocator(16),
		Module:    "counter",
	}
	return dispatch.New(reg, codec, opts...), w, cc
}

func counter(t *testing.T, w *world.World) uint64 {
	t.Helper()
	v, ok := world.Value[uint64](w, "Counter")
	if !ok {
		t.Fatal("Counter missing or not uint64")
	}
	return v
}

func TestHandle_GetSetGet(t *testing.T) {
	for _, codec := range []protocol.Codec{protocol.JSON(), protocol.Borsh()} {
		t.Run(codec.Name(), func(t *testing.T) {
			d, _, cc := setup(t, codec)

			get := func() uint64 {
				t.Helper()
				resp, err := d.Handle(cc, protocol.GetResource("Counter"))
				if err != nil {
					t.Fatalf("GetResource: %v", err)
				}
				if resp.Kind != protocol.ResponseResourceValue {
					t.Fatalf("kind = %v, want ResourceValue", resp.Kind)
				}
				var v uint64
				if err := codec.Unmarshal(resp.Value, &v); err != nil {
					t.Fatalf("Unmarshal: %v", err)
				}
				return v
			}

			if v := get(); v != 42 {
				t.Errorf("first get = %d, want 42", v)
			}

			next, err := codec.Marshal(uint64(43))
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			resp, err := d.Handle(cc, protocol.SetResource("Counter", next))
			if err != nil {
				t.Fatalf("SetResource: %v", err)
			}
			if resp.Kind != protocol.ResponseEmpty {
				t.Errorf("set kind = %v, want Empty", resp.Kind)
			}

			if v := get(); v != 43 {
				t.Errorf("get after set = %d, want 43", v)
			}
		})
	}
}

func TestHandle_UnknownKey(t *testing.T) {
	d, w, cc := setup(t, protocol.JSON())

	if _, err := d.Handle(cc, protocol.GetResource("Missing")); !errors.IsLookup(err) {
		t.Errorf("get: expected lookup error, got %v", err)
	}
	if _, err := d.Handle(cc, protocol.SetResource("Missing", []byte("1"))); !errors.IsLookup(err) {
		t.Errorf("set: expected lookup error, got %v", err)
	}
	if got := counter(t, w); got != 42 {
		t.Errorf("Counter = %d, want 42", got)
	}
}

func TestHandle_TypeMismatch(t *testing.T) {
	d, w, cc := setup(t, protocol.JSON())

	_, err := d.Handle(cc, protocol.SetResource("Counter", []byte(`"forty-three"`)))
	if !errors.IsTypeMismatch(err) {
		t.Fatalf("expected type mismatch, got %v", err)
	}
	if got := counter(t, w); got != 42 {
		t.Errorf("Counter = %d, want 42", got)
	}
}

func TestHandle_RecoversDescriptorPanic(t *testing.T) {
	reg := registry.MustNew(registry.Descriptor{
		Key:       "Boom",
		Serialize: func(registry.State) ([]byte, error) { panic("kaboom") },
		Apply:     func(registry.State, []byte) error { return nil },
	})
	d := dispatch.New(reg, protocol.JSON())

	_, err := d.Handle(&dispatch.CallContext{Module: "m"}, protocol.GetResource("Boom"))
	if !errors.IsTrap(err) {
		t.Fatalf("expected trap, got %v", err)
	}
	if !strings.Contains(err.Error(), "kaboom") {
		t.Errorf("error %q lost the panic value", err)
	}
}

func TestHandle_Log(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	var hooked []string
	d, _, cc := setup(t, protocol.JSON(),
		dispatch.WithLogger(zap.New(core)),
		dispatch.WithLogHook(func(module, text string) { hooked = append(hooked, module+": "+text) }),
	)

	resp, err := d.Handle(cc, protocol.Log("hello from guest"))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if resp.Kind != protocol.ResponseEmpty {
		t.Errorf("kind = %v, want Empty", resp.Kind)
	}

	entries := logs.FilterMessage("hello from guest").All()
	if len(entries) != 1 {
		t.Fatalf("got %d log entries, want 1", len(entries))
	}
	if m := entries[0].ContextMap()["module"]; m != "counter" {
		t.Errorf("module field = %v", m)
	}
	if want := []string{"counter: hello from guest"}; !reflect.DeepEqual(hooked, want) {
		t.Errorf("hooked = %v, want %v", hooked, want)
	}
}

func TestServe_WritesFramedResponse(t *testing.T) {
	for _, tc := range []struct {
		codec protocol.Codec
		want  uint64
	}{
		{protocol.JSON(), 42},
		{protocol.Borsh(), 42},
	} {
		t.Run(tc.codec.Name(), func(t *testing.T) {
			m, err := metrics.New()
			if err != nil {
				t.Fatalf("metrics.New: %v", err)
			}
			d, _, cc := setup(t, tc.codec, dispatch.WithMetrics(m))

			raw, err := tc.codec.EncodeRequest(protocol.GetResource("Counter"))
			if err != nil {
				t.Fatalf("EncodeRequest: %v", err)
			}
			buf, err := d.Serve(context.Background(), cc, raw)
			if err != nil {
				t.Fatalf("Serve: %v", err)
			}

			framed, err := cc.Memory.Read(buf.Ptr, buf.Len)
			if err != nil {
				t.Fatalf("Read: %v", err)
			}
			payload, err := protocol.Unframe(framed)
			if err != nil {
				t.Fatalf("Unframe: %v", err)
			}
			resp, err := tc.codec.DecodeResponse(payload)
			if err != nil {
				t.Fatalf("DecodeResponse: %v", err)
			}
			var v uint64
			if err := tc.codec.Unmarshal(resp.Value, &v); err != nil || v != tc.want {
				t.Errorf("value = %d, %v; want %d", v, err, tc.want)
			}

			s := d.Writer().Stats().Snapshot()
			if s.Writes != 1 || s.Bytes != uint64(buf.Len) {
				t.Errorf("stats = %+v, want one write of %d bytes", s, buf.Len)
			}
		})
	}
}

func TestServe_JSONWireShape(t *testing.T) {
	codec := protocol.JSON()
	d, _, cc := setup(t, codec)

	buf, err := d.Serve(context.Background(), cc, []byte(`{"GetResource":{"type_path":"Counter"}}`))
	if err != nil {
		t.Fatalf("Serve: %v", err)
	}
	framed, _ := cc.Memory.Read(buf.Ptr, buf.Len)
	payload, err := protocol.Unframe(framed)
	if err != nil {
		t.Fatalf("Unframe: %v", err)
	}
	if string(payload) != `{"Resource":42}` {
		t.Errorf("payload = %s", payload)
	}
}

func TestServe_Faults(t *testing.T) {
	d, _, cc := setup(t, protocol.JSON())
	ctx := context.Background()

	if _, err := d.Serve(ctx, cc, []byte("not an envelope")); !errors.IsProtocol(err) {
		t.Errorf("garbage: expected protocol error, got %v", err)
	}

	_, err := d.Serve(ctx, cc, []byte(`{"GetResource":{"type_path":"Missing"}}`))
	if !errors.IsLookup(err) {
		t.Fatalf("expected lookup error, got %v", err)
	}
	var e *errors.Error
	if !stderrors.As(err, &e) {
		t.Fatalf("error %T is not *errors.Error", err)
	}
	if e.Module != "counter" || e.Key != "Missing" {
		t.Errorf("module/key = %q/%q", e.Module, e.Key)
	}

	_, err = d.Serve(ctx, nil, []byte(`{"Log":"x"}`))
	if k, _ := errors.KindOf(err); k != errors.KindNotInitialized {
		t.Errorf("kind = %q, want not_initialized", k)
	}
}

func TestServe_GrowsGuestMemory(t *testing.T) {
	codec := protocol.JSON()
	d, w, _ := setup(t, codec)

	mem := loopback.NewMemory(1, 64)
	cc := &dispatch.CallContext{
		State:     w,
		Memory:    mem,
		Allocator: loopback.NewAllocator(65536 - 8),
		Module:    "counter",
	}

	raw, err := codec.EncodeRequest(protocol.GetResource("Counter"))
	if err != nil {
		t.Fatalf("EncodeRequest: %v", err)
	}
	if _, err := d.Serve(context.Background(), cc, raw); err != nil {
		t.Fatalf("Serve: %v", err)
	}
	if got := mem.GrowCalls(); !reflect.DeepEqual(got, []uint32{1}) {
		t.Errorf("grow calls = %v, want [1]", got)
	}
}

func TestCallContext(t *testing.T) {
	if _, err := dispatch.FromContext(context.Background()); err == nil {
		t.Error("expected error without a call context")
	}

	cc := &dispatch.CallContext{Module: "x"}
	ctx := dispatch.WithCallContext(context.Background(), cc)
	got, err := dispatch.FromContext(ctx)
	if err != nil {
		t.Fatalf("FromContext: %v", err)
	}
	if got != cc {
		t.Error("FromContext returned a different call context")
	}
}
