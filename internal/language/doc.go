// Package language classifies conversation text into one of a small closed
// set of supported languages using fixed phrase-weight tables.
//
// Matching is case-insensitive substring counting over curated indicator
// phrases. There is deliberately no external NLP dependency: detection has
// to run per conversation turn and its behavior must be exactly
// reproducible in tests.
package language
