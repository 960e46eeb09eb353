// Package urgency computes a bounded [0,1] urgency score for conversation
// text from weighted keyword matches plus cultural, industry, temporal, and
// customer-class modifiers.
//
// All scoring is table-driven and pure: weights and modifier constants are
// fixed at startup and every function is deterministic for a given input,
// which keeps the contribution breakdown auditable.
package urgency
