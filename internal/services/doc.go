// Package services holds cross-cutting service plumbing: the error
// taxonomy shared by every component and the context carriers used to
// thread conversation and job identifiers into structured logs.
package services
