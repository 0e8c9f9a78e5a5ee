package engine

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wavedash"
)

// WazeroMemory wraps wazero memory to implement wavedash.GuestMemory
type WazeroMemory struct {
	mem api.Memory
}

// NewWazeroMemory wraps mem.
func NewWazeroMemory(mem api.Memory) *WazeroMemory {
	return &WazeroMemory{mem: mem}
}

func (m *WazeroMemory) Read(offset uint32, length uint32) ([]byte, error) {
	data, ok := m.mem.Read(offset, length)
	if !ok {
		return nil, fmt.Errorf("read out of bounds: offset=%d, length=%d", offset, length)
	}
	return data, nil
}

func (m *WazeroMemory) Write(offset uint32, data []byte) error {
	ok := m.mem.Write(offset, data)
	if !ok {
		return fmt.Errorf("write out of bounds: offset=%d, length=%d", offset, len(data))
	}
	return nil
}

func (m *WazeroMemory) WriteU32(offset uint32, value uint32) error {
	ok := m.mem.WriteUint32Le(offset, value)
	if !ok {
		return fmt.Errorf("write out of bounds")
	}
	return nil
}

func (m *WazeroMemory) Size() uint32 {
	if m.mem == nil {
		return 0
	}
	return m.mem.Size()
}

func (m *WazeroMemory) Grow(deltaPages uint32) (uint32, bool) {
	prev, ok := m.mem.Grow(deltaPages)
	if !ok {
		Logger().Debug("memory growth refused")
	}
	return prev, ok
}

// WazeroAllocator calls the guest allocation export.
type WazeroAllocator struct {
	allocFn api.Function
	ctx     context.Context
}

func (a *WazeroAllocator) Alloc(size, align uint32) (uint32, error) {
	if a.allocFn == nil {
		return 0, fmt.Errorf("no allocator available")
	}

	ctx := a.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	results, err := a.allocFn.Call(ctx, uint64(size), uint64(align))
	if err != nil {
		return 0, err
	}
	if len(results) != 1 {
		return 0, fmt.Errorf("allocator returned %d results", len(results))
	}
	return api.DecodeU32(results[0]), nil
}

// Compile-time check that WazeroMemory implements wavedash.GuestMemory
var _ wavedash.GuestMemory = (*WazeroMemory)(nil)

// Compile-time check that WazeroAllocator implements wavedash.Allocator
var _ wavedash.Allocator = (*WazeroAllocator)(nil)
