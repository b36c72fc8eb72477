// Package session keeps the artifacts each workflow step hands to the next:
// the audio reference, the target word with its IPA, the criteria weights and
// the analysis result. A session lives in a Store, either in memory for a
// single run or in a SQLite file shared by successive CLI invocations.
package session
