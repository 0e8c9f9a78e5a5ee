// Package scheduler drives loaded modules against shared state.
//
// Each tick runs every unit in registration order, one at a time, so units
// never overlap. A failing unit is isolated: its error or panic is logged,
// counted and recorded in the Report, and the next unit runs as usual.
// Writes a failing unit committed before it failed are kept.
//
//	s := scheduler.New(scheduler.WithLogger(log), scheduler.WithMetrics(m))
//	s.Add(counterModule, physicsModule)
//	err := s.Run(ctx, world, 16*time.Millisecond, 0)
//
// Ticks and unit slots are recorded as OpenTelemetry spans and the tick
// duration histogram.
package scheduler
