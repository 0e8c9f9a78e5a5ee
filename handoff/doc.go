// Package handoff moves host-produced bytes into guest-owned memory.
//
// The guest is the only party that allocates and frees its memory. When the
// host needs to return data it calls the guest allocation export for exactly
// the size it needs, grows linear memory if the returned region does not fit,
// then writes. The guest frees the buffer once it has decoded it.
//
// Growth is minimal: one call, ceil(overflow / 65536) pages.
package handoff
