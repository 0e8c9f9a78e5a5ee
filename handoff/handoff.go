package handoff

import (
	"context"

	"go.uber.org/atomic"

	"github.com/wippyai/wavedash"
	"github.com/wippyai/wavedash/errors"
)

// TransferBuffer is a region inside one module's linear memory. It is always
// guest-owned: the guest allocated it and the guest frees it.
type TransferBuffer struct {
	Ptr uint32
	Len uint32
}

// End returns the first byte past the buffer.
func (b TransferBuffer) End() uint64 {
	return uint64(b.Ptr) + uint64(b.Len)
}

// PagesNeeded returns how many pages memory of capacity bytes must grow by so
// that end fits. It is zero when capacity already covers end.
func PagesNeeded(capacity, end uint64) uint32 {
	if end <= capacity {
		return 0
	}
	overflow := end - capacity
	return uint32((overflow + wavedash.PageSize - 1) / wavedash.PageSize)
}

// Stats counts what a Writer did. Safe for concurrent reads.
type Stats struct {
	Writes     atomic.Uint64
	Bytes      atomic.Uint64
	GrowCalls  atomic.Uint64
	GrownPages atomic.Uint64
}

// Snapshot is a point-in-time copy of Stats.
type Snapshot struct {
	Writes     uint64
	Bytes      uint64
	GrowCalls  uint64
	GrownPages uint64
}

// Snapshot copies the counters.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		Writes:     s.Writes.Load(),
		Bytes:      s.Bytes.Load(),
		GrowCalls:  s.GrowCalls.Load(),
		GrownPages: s.GrownPages.Load(),
	}
}

// Writer copies host payloads into guest-owned memory.
type Writer struct {
	stats Stats
}

// NewWriter creates a Writer with zeroed counters.
func NewWriter() *Writer {
	return &Writer{}
}

// Stats returns the writer's counters.
func (w *Writer) Stats() *Stats {
	return &w.stats
}

// Write asks the guest allocator for exactly len(payload) bytes at alignment 4,
// grows memory once if the returned region runs past the current capacity,
// and copies payload in. The guest owns the returned buffer.
func (w *Writer) Write(ctx context.Context, mem wavedash.GuestMemory, alloc wavedash.Allocator, payload []byte) (TransferBuffer, error) {
	buf, err := w.reserve(ctx, mem, alloc, uint32(len(payload)))
	if err != nil {
		return TransferBuffer{}, err
	}
	if err := mem.Write(buf.Ptr, payload); err != nil {
		return TransferBuffer{}, errors.Wrap(errors.PhaseHandoff, errors.KindAllocation, err, "write into guest buffer")
	}
	w.account(buf)
	return buf, nil
}

// WriteFrame is Write for a length-prefixed frame: the buffer holds a
// little-endian u32 payload length followed by payload.
func (w *Writer) WriteFrame(ctx context.Context, mem wavedash.GuestMemory, alloc wavedash.Allocator, payload []byte) (TransferBuffer, error) {
	buf, err := w.reserve(ctx, mem, alloc, HeaderSize+uint32(len(payload)))
	if err != nil {
		return TransferBuffer{}, err
	}
	if err := mem.WriteU32(buf.Ptr, uint32(len(payload))); err != nil {
		return TransferBuffer{}, errors.Wrap(errors.PhaseHandoff, errors.KindAllocation, err, "write frame header")
	}
	if err := mem.Write(buf.Ptr+HeaderSize, payload); err != nil {
		return TransferBuffer{}, errors.Wrap(errors.PhaseHandoff, errors.KindAllocation, err, "write into guest buffer")
	}
	w.account(buf)
	return buf, nil
}

// reserve allocates size bytes in the guest and makes sure memory covers them.
func (w *Writer) reserve(ctx context.Context, mem wavedash.GuestMemory, alloc wavedash.Allocator, size uint32) (TransferBuffer, error) {
	if mem == nil {
		return TransferBuffer{}, errors.NotInitialized(errors.PhaseHandoff, "guest memory")
	}
	if alloc == nil {
		return TransferBuffer{}, errors.NotInitialized(errors.PhaseHandoff, "guest allocator")
	}
	if err := ctx.Err(); err != nil {
		return TransferBuffer{}, errors.Wrap(errors.PhaseHandoff, errors.KindAllocation, err, "context done before write")
	}

	ptr, err := alloc.Alloc(size, Align)
	if err != nil {
		return TransferBuffer{}, errors.AllocationFailed(size, Align, err)
	}
	if ptr == 0 {
		return TransferBuffer{}, errors.AllocationFailed(size, Align, nil)
	}

	buf := TransferBuffer{Ptr: ptr, Len: size}
	if pages := PagesNeeded(uint64(mem.Size()), buf.End()); pages > 0 {
		if _, ok := mem.Grow(pages); !ok {
			return TransferBuffer{}, errors.GrowFailed(pages)
		}
		if w != nil {
			w.stats.GrowCalls.Inc()
			w.stats.GrownPages.Add(uint64(pages))
		}
	}
	return buf, nil
}

func (w *Writer) account(buf TransferBuffer) {
	if w != nil {
		w.stats.Writes.Inc()
		w.stats.Bytes.Add(uint64(buf.Len))
	}
}

const (
	// Align is the alignment requested for every host write.
	Align = 4

	// HeaderSize is the frame length prefix written by WriteFrame.
	HeaderSize = 4
)

// Write is Writer.Write without accounting.
func Write(ctx context.Context, mem wavedash.GuestMemory, alloc wavedash.Allocator, payload []byte) (TransferBuffer, error) {
	var w *Writer
	return w.Write(ctx, mem, alloc, payload)
}
