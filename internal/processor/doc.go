// Package processor carries out the voxpref commands. It opens the session,
// builds the backend client and logger from the configuration, drives the
// workflow one step at a time or in a single run, and prints progress,
// result tables and export locations.
package processor
