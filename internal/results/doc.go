// Package results holds the scoring service's analysis result and turns its
// per-candidate score table into ordered display rows. The shaping step is a
// pure function so it can be tested apart from terminal or PDF rendering.
package results
