package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"codeberg.org/snonux/voxpref/internal/audio"
	"codeberg.org/snonux/voxpref/internal/criteria"
	"codeberg.org/snonux/voxpref/internal/phonetic"
	"codeberg.org/snonux/voxpref/internal/results"
)

// order lists the artifacts in the order the workflow produces them
var order = []Key{KeyAudio, KeyTargetWord, KeyAnalysis, KeyWeights, KeyResult}

// Downstream returns every key produced after key
func Downstream(key Key) []Key {
	for i, k := range order {
		if k == key {
			return append([]Key(nil), order[i+1:]...)
		}
	}
	return nil
}

// State is a decoded view of everything stored in a session. Missing
// artifacts are nil.
type State struct {
	Audio    *audio.Ref
	Word     *phonetic.TargetWord
	Analysis json.RawMessage
	Weights  criteria.Weights
	Result   *results.AnalysisResult
}

// Session stores typed workflow artifacts as JSON in a Store
type Session struct {
	store Store
}

// New wraps store
func New(store Store) *Session {
	return &Session{store: store}
}

// Close closes the underlying store
func (s *Session) Close() error {
	return s.store.Close()
}

// Snapshot loads every stored artifact
func (s *Session) Snapshot(ctx context.Context) (*State, error) {
	var st State

	var ref audio.Ref
	if ok, err := s.load(ctx, KeyAudio, &ref); err != nil {
		return nil, err
	} else if ok {
		st.Audio = &ref
	}

	var word phonetic.TargetWord
	if ok, err := s.load(ctx, KeyTargetWord, &word); err != nil {
		return nil, err
	} else if ok {
		st.Word = &word
	}

	raw, err := s.store.Get(ctx, KeyAnalysis)
	switch {
	case err == nil:
		st.Analysis = json.RawMessage(raw)
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}

	var weights criteria.Weights
	if ok, err := s.load(ctx, KeyWeights, &weights); err != nil {
		return nil, err
	} else if ok {
		st.Weights = weights
	}

	var result results.AnalysisResult
	if ok, err := s.load(ctx, KeyResult, &result); err != nil {
		return nil, err
	} else if ok {
		st.Result = &result
	}

	return &st, nil
}

func (s *Session) load(ctx context.Context, key Key, dst any) (bool, error) {
	raw, err := s.store.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("corrupt session value %s: %w", key, err)
	}
	return true, nil
}

// save writes value under key and drops every downstream artifact
func (s *Session) save(ctx context.Context, key Key, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return s.saveRaw(ctx, key, raw)
}

func (s *Session) saveRaw(ctx context.Context, key Key, raw []byte) error {
	return s.store.PutAll(ctx, map[Key][]byte{key: raw}, Downstream(key)...)
}

func (s *Session) SaveAudio(ctx context.Context, ref *audio.Ref) error {
	return s.save(ctx, KeyAudio, ref)
}

// SaveWordAnalysis stores the target word and its analysis payload together.
// Either both are written or neither is.
func (s *Session) SaveWordAnalysis(ctx context.Context, word *phonetic.TargetWord, payload json.RawMessage) error {
	if !json.Valid(payload) {
		return fmt.Errorf("analysis payload is not valid JSON")
	}
	raw, err := json.Marshal(word)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", KeyTargetWord, err)
	}
	return s.store.PutAll(ctx,
		map[Key][]byte{KeyTargetWord: raw, KeyAnalysis: payload},
		Downstream(KeyAnalysis)...)
}

func (s *Session) SaveWeights(ctx context.Context, w criteria.Weights) error {
	return s.save(ctx, KeyWeights, w)
}

func (s *Session) SaveResult(ctx context.Context, r *results.AnalysisResult) error {
	return s.save(ctx, KeyResult, r)
}

// Reset forgets every artifact
func (s *Session) Reset(ctx context.Context) error {
	return s.store.Clear(ctx)
}
