package wasmbin

import (
	"fmt"

	"github.com/wippyai/wavedash"
	"github.com/wippyai/wavedash/protocol"
)

// Guest describes a module that follows the wavedash guest contract. Its
// requests are encoded at build time and stored as static data; only the
// counter increment is computed at run time.
type Guest struct {
	// Codec encodes the static request envelopes. Defaults to JSON.
	Codec protocol.Codec

	// Key is the resource read and written by the body.
	Key string

	// Increment reads Key as a uint64, adds one and writes it back.
	// Requires the Borsh codec.
	Increment bool

	// SetValue is written to Key after the read when Increment is off.
	// A nil value skips the write.
	SetValue []byte

	// SkipGet omits the read.
	SkipGet bool

	// LogText is sent through the log import when the body starts.
	LogText string

	// LogRequest is sent as a Log request envelope when the body starts.
	LogRequest string

	TrapBeforeWrite bool
	TrapAfterWrite  bool

	// InitText, when set, exports wavedash_init which sends it through the
	// log import.
	InitText string

	// TrapInInit exports wavedash_init and makes it trap after logging.
	TrapInInit bool

	// Systems exports the system pair; every system runs the body.
	Systems int

	EntryName string
	NoEntry   bool
	NoAlloc   bool
	NoMemory  bool

	// HeapBase is the first address the allocator hands out.
	HeapBase    uint32
	MemoryPages uint32
}

const dataBase = 16

// CounterGuest increments the uint64 resource "Counter" on every entry call.
func CounterGuest() Guest {
	return Guest{
		Codec:     protocol.Borsh(),
		Key:       "Counter",
		Increment: true,
		LogText:   "counter guest tick",
	}
}

type blob struct {
	ptr, len uint32
}

// Build encodes the module.
func (g Guest) Build() ([]byte, error) {
	codec := g.Codec
	if codec == nil {
		codec = protocol.JSON()
	}
	if g.Increment && codec.Name() != protocol.CodecBorsh {
		return nil, fmt.Errorf("wasmbin: increment needs the borsh codec, got %s", codec.Name())
	}
	heap := g.HeapBase
	if heap == 0 {
		heap = 4096
	}
	pages := g.MemoryPages
	if pages == 0 {
		pages = 1
	}

	var data []byte
	place := func(b []byte) blob {
		p := blob{ptr: dataBase + uint32(len(data)), len: uint32(len(b))}
		data = append(data, b...)
		// keep every blob 8-byte aligned
		for len(data)%8 != 0 {
			data = append(data, 0)
		}
		return p
	}
	encode := func(req protocol.Request) (blob, error) {
		b, err := codec.EncodeRequest(req)
		if err != nil {
			return blob{}, err
		}
		return place(b), nil
	}

	var logText, logReq, getReq, setReq, initText blob
	var err error
	if g.LogText != "" {
		logText = place([]byte(g.LogText))
	}
	if g.LogRequest != "" {
		if logReq, err = encode(protocol.Log(g.LogRequest)); err != nil {
			return nil, err
		}
	}
	if !g.SkipGet {
		if getReq, err = encode(protocol.GetResource(g.Key)); err != nil {
			return nil, err
		}
	}
	valueOffset := uint32(0)
	switch {
	case g.Increment:
		tmpl, err := codec.EncodeRequest(protocol.SetResource(g.Key, make([]byte, 8)))
		if err != nil {
			return nil, err
		}
		setReq = place(tmpl)
		valueOffset = uint32(len(tmpl) - 8)
	case g.SetValue != nil:
		if setReq, err = encode(protocol.SetResource(g.Key, g.SetValue)); err != nil {
			return nil, err
		}
	}
	if g.InitText != "" {
		initText = place([]byte(g.InitText))
	}
	if dataBase+uint32(len(data)) > heap {
		return nil, fmt.Errorf("wasmbin: static data overlaps heap base %d", heap)
	}

	// Offset of the value bytes inside a framed ResourceValue response.
	// Only the binary envelope keeps the value at a fixed position.
	respValueOffset := uint32(0)
	if g.Increment {
		emptyValue, err := codec.EncodeResponse(protocol.ResourceValue(nil))
		if err != nil {
			return nil, err
		}
		respValueOffset = uint32(protocol.FrameHeaderSize + len(emptyValue))
	}

	m := New()
	request := m.ImportFunc(wavedash.ImportModule, wavedash.ImportRequest, []ValType{I32, I32}, []ValType{I32})
	log := m.ImportFunc(wavedash.ImportModule, wavedash.ImportLog, []ValType{I32, I32}, nil)

	if !g.NoMemory {
		m.Memory(pages).ExportMemory(wavedash.ExportMemory)
		if len(data) > 0 {
			m.Data(dataBase, data)
		}
	}
	heapGlobal := m.Global(I32, true, int64(heap))

	if !g.NoAlloc {
		// ptr = (heap + align - 1) & -align; heap = ptr + size
		alloc := NewCode().
			GlobalGet(heapGlobal).LocalGet(1).I32Add().I32Const(1).I32Sub().
			I32Const(0).LocalGet(1).I32Sub().I32And().LocalTee(2).
			LocalGet(0).I32Add().GlobalSet(heapGlobal).
			LocalGet(2)
		idx := m.Func([]ValType{I32, I32}, []ValType{I32}, []ValType{I32}, alloc)
		m.ExportFunc(wavedash.ExportAlloc, idx)
	}

	body := NewCode()
	if g.LogText != "" {
		body.I32Const(int32(logText.ptr)).I32Const(int32(logText.len)).Call(log)
	}
	if g.LogRequest != "" {
		body.I32Const(int32(logReq.ptr)).I32Const(int32(logReq.len)).Call(request).Drop()
	}
	if !g.SkipGet {
		body.I32Const(int32(getReq.ptr)).I32Const(int32(getReq.len)).Call(request).LocalSet(0)
	}
	if g.TrapBeforeWrite {
		body.Unreachable()
	}
	if g.Increment {
		body.I32Const(int32(setReq.ptr)).
			LocalGet(0).I64Load(0, respValueOffset).I64Const(1).I64Add().
			I64Store(0, valueOffset)
	}
	if g.Increment || g.SetValue != nil {
		body.I32Const(int32(setReq.ptr)).I32Const(int32(setReq.len)).Call(request).Drop()
	}
	if g.TrapAfterWrite {
		body.Unreachable()
	}
	bodyIdx := m.Func(nil, nil, []ValType{I32}, body)

	if !g.NoEntry {
		name := g.EntryName
		if name == "" {
			name = wavedash.ExportMain
		}
		m.ExportFunc(name, m.Func(nil, nil, nil, NewCode().Call(bodyIdx)))
	}

	if g.InitText != "" || g.TrapInInit {
		initCode := NewCode()
		if g.InitText != "" {
			initCode.I32Const(int32(initText.ptr)).I32Const(int32(initText.len)).Call(log)
		}
		if g.TrapInInit {
			initCode.Unreachable()
		}
		m.ExportFunc(wavedash.ExportInit, m.Func(nil, nil, nil, initCode))
	}

	if g.Systems > 0 {
		count := NewCode().I32Const(int32(g.Systems))
		m.ExportFunc(wavedash.ExportSystemCount, m.Func(nil, []ValType{I32}, nil, count))
		run := NewCode().Call(bodyIdx)
		m.ExportFunc(wavedash.ExportRunSystem, m.Func([]ValType{I32}, nil, nil, run))
	}

	return m.Encode(), nil
}

// MustBuild is Build that panics on error.
func (g Guest) MustBuild() []byte {
	b, err := g.Build()
	if err != nil {
		panic(err)
	}
	return b
}
