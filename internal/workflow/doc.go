// Package workflow drives the four steps of a pronunciation preference run:
// audio capture, word capture, criteria weighting and result presentation.
// Each step is guarded by the artifacts of the steps before it; entering a
// step too early yields a RedirectError naming the earliest missing step.
package workflow
