// Package store manages fieldline persistence backed by SQLite: dispatch
// jobs and their steps, notification templates, delivery records, and
// organization profiles.
//
// The store is the injected repository every other component receives
// explicitly; nothing in the module reaches for process-wide state. A file
// lock next to the database guards against a second dispatcher process
// operating on the same store.
package store
