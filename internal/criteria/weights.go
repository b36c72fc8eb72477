package criteria

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrNotUnique is returned when two or more criteria share a value
var ErrNotUnique = errors.New("each criterion must have a unique value")

const notUniqueMessage = "Each criterion must have a unique value. Please adjust the sliders so no two are the same."

// ValidationError reports weights that cannot be submitted
type ValidationError struct {
	Key    Key
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Key == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Key, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Weights maps every criterion to its slider value
type Weights map[Key]int

// DefaultWeights returns all six sliders at their initial position
func DefaultWeights() Weights {
	w := make(Weights, len(all))
	for _, k := range Keys() {
		w[k] = DefaultWeight
	}
	return w
}

// Set moves one slider, rejecting unknown keys and out-of-range values
func (w Weights) Set(key string, value int) error {
	info, ok := Lookup(key)
	if !ok {
		return &ValidationError{Key: Key(key), Reason: "unknown criterion"}
	}
	if value < MinWeight || value > MaxWeight {
		return &ValidationError{Key: info.Key, Reason: fmt.Sprintf("value %d out of range %d-%d", value, MinWeight, MaxWeight)}
	}
	w[info.Key] = value
	return nil
}

// Distinct returns the number of distinct values among the weights
func (w Weights) Distinct() int {
	seen := make(map[int]struct{}, len(w))
	for _, v := range w {
		seen[v] = struct{}{}
	}
	return len(seen)
}

// Validate checks that all six criteria are present, in range and pairwise distinct
func (w Weights) Validate() error {
	for _, k := range Keys() {
		v, ok := w[k]
		if !ok {
			return &ValidationError{Key: k, Reason: "missing value"}
		}
		if v < MinWeight || v > MaxWeight {
			return &ValidationError{Key: k, Reason: fmt.Sprintf("value %d out of range %d-%d", v, MinWeight, MaxWeight)}
		}
	}
	if len(w) != len(all) {
		for k := range w {
			if !isKnown(k) {
				return &ValidationError{Key: k, Reason: "unknown criterion"}
			}
		}
	}
	if w.Distinct() < len(all) {
		return &ValidationError{Reason: notUniqueMessage, Err: ErrNotUnique}
	}
	return nil
}

// Clone returns an independent copy, used to freeze weights at submission
func (w Weights) Clone() Weights {
	out := make(Weights, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

// String renders the weights in display order, e.g. "IA=6 DI=5 ..."
func (w Weights) String() string {
	parts := make([]string, 0, len(all))
	for _, k := range Keys() {
		parts = append(parts, fmt.Sprintf("%s=%d", k, w[k]))
	}
	return strings.Join(parts, " ")
}

// ParseAssignments builds weights from "KEY=VALUE" items. Items may also be
// comma separated ("IA=6,DI=5"). Criteria not mentioned keep the default.
func ParseAssignments(items []string) (Weights, error) {
	w := DefaultWeights()
	for _, item := range items {
		for _, part := range strings.Split(item, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			key, raw, ok := strings.Cut(part, "=")
			if !ok {
				return nil, &ValidationError{Key: Key(part), Reason: "expected KEY=VALUE"}
			}
			value, err := strconv.Atoi(strings.TrimSpace(raw))
			if err != nil {
				return nil, &ValidationError{Key: Key(strings.TrimSpace(key)), Reason: fmt.Sprintf("invalid value %q", raw)}
			}
			if err := w.Set(key, value); err != nil {
				return nil, err
			}
		}
	}
	return w, nil
}

func isKnown(k Key) bool {
	for _, c := range all {
		if c.Key == k {
			return true
		}
	}
	return false
}
