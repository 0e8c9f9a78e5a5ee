package wasmbin

import (
	"bytes"
	"context"
	"testing"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wavedash"
	"github.com/wippyai/wavedash/protocol"
)

func TestLEB128(t *testing.T) {
	tests := []struct {
		name string
		want []byte
		enc  func(*bytes.Buffer)
	}{
		{"u 0", []byte{0x00}, func(b *bytes.Buffer) { WriteLEB128u(b, 0) }},
		{"u 127", []byte{0x7F}, func(b *bytes.Buffer) { WriteLEB128u(b, 127) }},
		{"u 128", []byte{0x80, 0x01}, func(b *bytes.Buffer) { WriteLEB128u(b, 128) }},
		{"u 624485", []byte{0xE5, 0x8E, 0x26}, func(b *bytes.Buffer) { WriteLEB128u(b, 624485) }},
		{"s -1", []byte{0x7F}, func(b *bytes.Buffer) { WriteLEB128s(b, -1) }},
		{"s 64", []byte{0xC0, 0x00}, func(b *bytes.Buffer) { WriteLEB128s(b, 64) }},
		{"s -123456", []byte{0xC0, 0xBB, 0x78}, func(b *bytes.Buffer) { WriteLEB128s(b, -123456) }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var b bytes.Buffer
			tc.enc(&b)
			if !bytes.Equal(b.Bytes(), tc.want) {
				t.Errorf("got %x, want %x", b.Bytes(), tc.want)
			}
		})
	}
}

func TestModule_RunsInWazero(t *testing.T) {
	ctx := context.Background()

	m := New()
	g := m.Global(I32, true, 5)
	add := m.Func([]ValType{I32, I32}, []ValType{I32}, nil,
		NewCode().LocalGet(0).LocalGet(1).I32Add().GlobalGet(g).I32Add())
	m.ExportFunc("add", add)
	m.Memory(1).ExportMemory("memory").Data(16, []byte("hi"))

	r := wazero.NewRuntime(ctx)
	defer r.Close(ctx)

	mod, err := r.Instantiate(ctx, m.Encode())
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}

	res, err := mod.ExportedFunction("add").Call(ctx, 2, 3)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if api.DecodeI32(res[0]) != 10 {
		t.Errorf("add(2, 3) = %d, want 10", api.DecodeI32(res[0]))
	}

	got, ok := mod.Memory().Read(16, 2)
	if !ok || string(got) != "hi" {
		t.Errorf("data segment = %q", got)
	}
}

func TestGuest_Exports(t *testing.T) {
	ctx := context.Background()
	r := wazero.NewRuntime(ctx)
	defer r.Close(ctx)

	tests := []struct {
		name    string
		guest   Guest
		want    []string
		missing []string
	}{
		{
			name:  "counter",
			guest: CounterGuest(),
			want:  []string{wavedash.ExportAlloc, wavedash.ExportMain},
			missing: []string{
				wavedash.ExportInit, wavedash.ExportSystemCount, wavedash.ExportRunSystem,
			},
		},
		{
			name:  "systems and init",
			guest: Guest{Key: "Counter", Systems: 2, InitText: "init", NoEntry: true},
			want:  []string{wavedash.ExportAlloc, wavedash.ExportInit, wavedash.ExportSystemCount, wavedash.ExportRunSystem},
			missing: []string{
				wavedash.ExportMain,
			},
		},
		{
			name:    "no alloc",
			guest:   Guest{Key: "Counter", NoAlloc: true},
			want:    []string{wavedash.ExportMain},
			missing: []string{wavedash.ExportAlloc},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			bin, err := tc.guest.Build()
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			compiled, err := r.CompileModule(ctx, bin)
			if err != nil {
				t.Fatalf("CompileModule: %v", err)
			}
			exports := compiled.ExportedFunctions()
			for _, name := range tc.want {
				if _, ok := exports[name]; !ok {
					t.Errorf("missing export %q", name)
				}
			}
			for _, name := range tc.missing {
				if _, ok := exports[name]; ok {
					t.Errorf("unexpected export %q", name)
				}
			}
			if _, ok := compiled.ExportedMemories()[wavedash.ExportMemory]; !ok {
				t.Error("memory not exported")
			}
		})
	}
}

func TestGuest_IncrementNeedsBorsh(t *testing.T) {
	_, err := Guest{Codec: protocol.JSON(), Key: "Counter", Increment: true}.Build()
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestGuest_DataOverlapsHeap(t *testing.T) {
	_, err := Guest{Key: "Counter", LogText: string(make([]byte, 64)), HeapBase: 32}.Build()
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestGuest_JSONFixturesBuild(t *testing.T) {
	codec := protocol.JSON()
	for _, g := range []Guest{
		{Key: "Counter"},
		{Codec: codec, Key: "Counter", SetValue: []byte("43")},
		{Codec: codec, Key: "Name", SkipGet: true, SetValue: []byte(`"dash"`), LogRequest: "hi"},
	} {
		bin, err := g.Build()
		if err != nil {
			t.Fatalf("Build(%+v): %v", g, err)
		}
		if len(bin) < 8 || string(bin[:4]) != "\x00asm" {
			t.Errorf("Build(%+v) did not produce a wasm module", g)
		}
	}
}
