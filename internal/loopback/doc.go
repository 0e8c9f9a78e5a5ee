// Package loopback runs the guest client library in-process against a host
// dispatcher, with a simulated linear memory and a counting bump allocator.
package loopback
