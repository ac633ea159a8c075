package api

// DefaultMaxPoints is the maximum number of points a single /randomness
// request may submit. It is the single source of truth for both the
// value reported by /info and the limit enforced by the /randomness
// handler.
const DefaultMaxPoints = 1024
