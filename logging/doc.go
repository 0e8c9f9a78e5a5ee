// Package logging builds the process logger from the log section of the
// config. Library packages never construct loggers; they accept a
// *zap.Logger and default to a no-op one.
package logging
