// Package engine wraps wazero for running wavedash guests.
//
// # Architecture
//
// The engine package provides three main types:
//
//	WazeroEngine   - Owns the wazero runtime and the host module
//	WazeroModule   - A compiled guest, inspectable before instantiation
//	WazeroInstance - A running guest with its memory and exports
//
// Host functions are installed once per engine through InstallHost. Every
// guest is instantiated anonymously, so many guests can share the runtime.
//
// # Memory
//
// WazeroMemory adapts api.Memory to wavedash.GuestMemory; WazeroAllocator
// calls the guest's allocation export and is bound to the context of the
// call in progress, since it re-enters the guest.
package engine
