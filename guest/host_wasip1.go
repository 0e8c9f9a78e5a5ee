//go:build wasip1

package guest

import (
	"runtime"
	"unsafe"

	"github.com/wippyai/wavedash/protocol"
)

//go:wasmimport wavedash request
func hostRequest(ptr, size uint32) uint32

//go:wasmimport wavedash log
func hostLog(ptr, size uint32)

// pinned keeps host-owned blocks reachable until the guest frees them.
var pinned = map[uint32][]byte{}

//go:wasmexport wavedash_alloc
func wavedashAlloc(size, align uint32) uint32 {
	if align == 0 {
		align = 1
	}
	buf := make([]byte, size+align)
	base := uint32(uintptr(unsafe.Pointer(&buf[0])))
	ptr := (base + align - 1) &^ (align - 1)
	pinned[ptr] = buf
	return ptr
}

type hostBoundary struct{}

func (hostBoundary) Call(req []byte) (uint32, error) {
	if len(req) == 0 {
		return hostRequest(0, 0), nil
	}
	ptr := hostRequest(bytesPtr(req), uint32(len(req)))
	runtime.KeepAlive(req)
	return ptr, nil
}

func (hostBoundary) Log(msg string) error {
	if msg == "" {
		return nil
	}
	hostLog(uint32(uintptr(unsafe.Pointer(unsafe.StringData(msg)))), uint32(len(msg)))
	runtime.KeepAlive(msg)
	return nil
}

func (hostBoundary) Load(ptr, n uint32) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(uintptr(ptr))), n), nil
}

func (hostBoundary) Free(ptr, _, _ uint32) {
	delete(pinned, ptr)
}

func bytesPtr(b []byte) uint32 {
	return uint32(uintptr(unsafe.Pointer(&b[0])))
}

var defaultClient = NewClient(hostBoundary{}, protocol.JSON())

// Default returns the client bound to the host imports.
func Default() *Client { return defaultClient }

// UseCodec rebinds Default to codec. It must match the host's codec and is
// meant to be called from an init function.
func UseCodec(codec protocol.Codec) {
	defaultClient = NewClient(hostBoundary{}, codec)
}

//go:wasmexport wavedash_free
func wavedashFree(ptr, _, _ uint32) {
	delete(pinned, ptr)
}
