// Package export writes analysis results to files. PDF reports embed a
// TrueType font with IPA coverage when one can be found; CSV exports carry
// the same header and rows as the on-screen table.
package export
