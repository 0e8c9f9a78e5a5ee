// Package tracing builds the OpenTelemetry tracer the scheduler records tick
// spans with. A disabled config yields a noop tracer.
package tracing
