// Package metrics defines the Prometheus collectors for dispatch, handoff and
// scheduling.
package metrics
