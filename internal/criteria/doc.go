// Package criteria defines the six linguistic criteria a user weights when
// choosing a preferred pronunciation, and validates that the weights form a
// strict ranking before they are submitted for scoring.
package criteria
