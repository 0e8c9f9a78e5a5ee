// Package world is a small reference implementation of registry.State.
package world
