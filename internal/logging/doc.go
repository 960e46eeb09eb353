// Package logging builds the slog loggers used across fieldline and keeps
// the structured field vocabulary in one place.
//
// Two handler formats exist: a JSON handler for machine consumption and a
// console handler that prints a compact human-readable line with the
// component and job subject up front. Context carriers from the services
// package feed standard fields (conversation_id, job_id, step) into every
// record via WithContext.
package logging
