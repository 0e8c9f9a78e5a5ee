package loopback

import (
	"fmt"

	"github.com/wippyai/wavedash"
)

// Memory is an in-process stand-in for a guest's linear memory.
type Memory struct {
	data      []byte
	maxPages  uint32
	growCalls []uint32
}

var _ wavedash.GuestMemory = (*Memory)(nil)

// NewMemory creates memory of pages pages that may grow up to maxPages.
func NewMemory(pages, maxPages uint32) *Memory {
	return &Memory{
		data:     make([]byte, uint64(pages)*wavedash.PageSize),
		maxPages: maxPages,
	}
}

func (m *Memory) Size() uint32 { return uint32(len(m.data)) }

// Pages returns the current size in pages.
func (m *Memory) Pages() uint32 { return uint32(len(m.data) / wavedash.PageSize) }

// GrowCalls returns the delta of every Grow call so far.
func (m *Memory) GrowCalls() []uint32 {
	out := make([]uint32, len(m.growCalls))
	copy(out, m.growCalls)
	return out
}

func (m *Memory) Grow(delta uint32) (uint32, bool) {
	m.growCalls = append(m.growCalls, delta)
	prev := m.Pages()
	if uint64(prev)+uint64(delta) > uint64(m.maxPages) {
		return prev, false
	}
	m.data = append(m.data, make([]byte, uint64(delta)*wavedash.PageSize)...)
	return prev, true
}

func (m *Memory) Read(offset, length uint32) ([]byte, error) {
	end := uint64(offset) + uint64(length)
	if end > uint64(len(m.data)) {
		return nil, fmt.Errorf("read out of bounds: offset=%d, length=%d", offset, length)
	}
	return m.data[offset:end], nil
}

func (m *Memory) Write(offset uint32, data []byte) error {
	end := uint64(offset) + uint64(len(data))
	if end > uint64(len(m.data)) {
		return fmt.Errorf("write out of bounds: offset=%d, length=%d", offset, len(data))
	}
	copy(m.data[offset:end], data)
	return nil
}

func (m *Memory) WriteU32(offset uint32, value uint32) error {
	return m.Write(offset, []byte{byte(value), byte(value >> 8), byte(value >> 16), byte(value >> 24)})
}
