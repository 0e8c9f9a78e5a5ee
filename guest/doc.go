// Package guest is the library a wavedash guest links against.
//
// A Client sends requests to the host across a Boundary. Typed helpers sit
// on top of it:
//
//	n, err := guest.Resource[uint64](c, "Counter")
//
//	err := guest.With(c, "Counter", func(n *uint64) error {
//	    *n++
//	    return nil
//	})
//
// A MutGuard obtained from ResourceMut writes its value back on Commit, and
// With commits on every exit path including panics. Response buffers are
// freed as soon as they are decoded.
//
// When built for GOOS=wasip1 the package exports wavedash_alloc and binds
// the Boundary to the host imports; see Default.
package guest
