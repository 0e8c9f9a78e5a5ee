package wavedash

// PageSize is the size of one WebAssembly linear memory page.
const PageSize = 65536

// Guest contract. A module exports ExportMemory, ExportAlloc and either the
// entry point or the system pair, and may import the two host functions
// below from ImportModule.
const (
	ExportMemory      = "memory"
	ExportAlloc       = "wavedash_alloc"
	ExportMain        = "wavedash_main"
	ExportInit        = "wavedash_init"
	ExportSystemCount = "wavedash_system_count"
	ExportRunSystem   = "wavedash_run_system"

	ImportModule  = "wavedash"
	ImportRequest = "request"
	ImportLog     = "log"
)

// Memory represents WASM linear memory
type Memory interface {
	Read(offset uint32, length uint32) ([]byte, error)
	Write(offset uint32, data []byte) error
	WriteU32(offset uint32, value uint32) error
}

// MemorySizer provides the current size of WASM linear memory in bytes.
type MemorySizer interface {
	Size() uint32
}

// MemoryGrower extends linear memory by whole pages.
// It returns the previous size in pages and false if growth was refused.
type MemoryGrower interface {
	Grow(deltaPages uint32) (previousPages uint32, ok bool)
}

// GuestMemory is the memory capability the host needs to hand data to a guest.
type GuestMemory interface {
	Memory
	MemorySizer
	MemoryGrower
}

// Allocator allocates memory in WASM linear memory
type Allocator interface {
	Alloc(size, align uint32) (uint32, error)
}

// Freer releases memory previously returned by an Allocator.
// Only guests free; the host never releases guest memory.
type Freer interface {
	Free(ptr, size, align uint32)
}
