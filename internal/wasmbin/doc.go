// Package wasmbin assembles small core WebAssembly modules without a text
// format toolchain. It is used for test fixtures and the demo guest.
package wasmbin
