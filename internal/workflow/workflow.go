package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"codeberg.org/snonux/voxpref/internal/api"
	"codeberg.org/snonux/voxpref/internal/audio"
	"codeberg.org/snonux/voxpref/internal/criteria"
	"codeberg.org/snonux/voxpref/internal/logging"
	"codeberg.org/snonux/voxpref/internal/phonetic"
	"codeberg.org/snonux/voxpref/internal/results"
	"codeberg.org/snonux/voxpref/internal/session"
)

// ErrBusy is returned when a step is started while another one is still
// waiting for the backend
var ErrBusy = errors.New("a request is already in progress, please wait")

// Workflow runs the steps of one session against the backend. At most one
// step is in progress at any time.
type Workflow struct {
	client  *api.Client
	session *session.Session
	logger  *zap.Logger

	busy atomic.Bool
}

// New creates a workflow over sess
func New(client *api.Client, sess *session.Session, logger *zap.Logger) *Workflow {
	return &Workflow{client: client, session: sess, logger: logging.OrNop(logger)}
}

func (w *Workflow) begin() (func(), error) {
	if !w.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	return func() { w.busy.Store(false) }, nil
}

func (w *Workflow) guard(ctx context.Context, stage Stage) (*session.State, error) {
	st, err := w.session.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if err := Guard(stage, st); err != nil {
		w.logger.Debug("stage guard redirect", zap.Stringer("stage", stage), zap.Error(err))
		return nil, err
	}
	return st, nil
}

// CaptureAudio validates the sample at location and records it. Any word,
// weights or result from a previous sample are dropped.
func (w *Workflow) CaptureAudio(ctx context.Context, location string) (*audio.Ref, error) {
	done, err := w.begin()
	if err != nil {
		return nil, err
	}
	defer done()

	ref, err := audio.NewRef(location)
	if err != nil {
		return nil, err
	}
	if err := w.session.SaveAudio(ctx, ref); err != nil {
		return nil, fmt.Errorf("failed to store audio reference: %w", err)
	}
	w.logger.Info("audio captured", zap.String("name", ref.Name), zap.String("type", ref.Type))
	return ref, nil
}

// CaptureWord fetches the IPA of word and submits the recorded sample for
// analysis. Nothing is stored unless both requests succeed.
func (w *Workflow) CaptureWord(ctx context.Context, word string) (*phonetic.TargetWord, error) {
	done, err := w.begin()
	if err != nil {
		return nil, err
	}
	defer done()

	st, err := w.guard(ctx, StageWord)
	if err != nil {
		return nil, err
	}
	if _, err := phonetic.NormalizeWord(word); err != nil {
		return nil, err
	}

	tw, err := w.client.RequestIPA(ctx, word)
	if err != nil {
		return nil, err
	}
	if tw.IPAError != "" {
		w.logger.Warn("backend reported an IPA problem", zap.String("word", tw.Word), zap.String("ipa_error", tw.IPAError))
	}

	sample, err := w.client.Download(ctx, st.Audio)
	if err != nil {
		return nil, err
	}

	payload, err := w.client.Analyze(ctx, tw.Word, bytes.NewReader(sample), st.Audio.Name, st.Audio.Type)
	if err != nil {
		return nil, err
	}
	w.checkAnalysis(payload)

	if err := w.session.SaveWordAnalysis(ctx, tw, payload); err != nil {
		return nil, fmt.Errorf("failed to store target word: %w", err)
	}
	return tw, nil
}

// checkAnalysis logs analysis payloads that report failure. The payload is
// stored regardless.
func (w *Workflow) checkAnalysis(payload json.RawMessage) {
	var head struct {
		Success *bool  `json:"success"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(payload, &head); err != nil {
		return
	}
	if head.Success != nil && !*head.Success {
		w.logger.Warn("analysis reported failure", zap.String("error", head.Error))
	}
}

// SubmitCriteria validates weights and sends them with the stored word to
// the scoring service. Invalid weights are rejected before any request.
func (w *Workflow) SubmitCriteria(ctx context.Context, weights criteria.Weights) (*results.AnalysisResult, error) {
	done, err := w.begin()
	if err != nil {
		return nil, err
	}
	defer done()

	st, err := w.guard(ctx, StageCriteria)
	if err != nil {
		return nil, err
	}
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	frozen := weights.Clone()

	result, err := w.client.SaveRankings(ctx, frozen, *st.Word)
	if err != nil {
		return nil, err
	}

	if err := w.session.SaveWeights(ctx, frozen); err != nil {
		return nil, fmt.Errorf("failed to store weights: %w", err)
	}
	if err := w.session.SaveResult(ctx, result); err != nil {
		return nil, fmt.Errorf("failed to store result: %w", err)
	}
	w.logger.Info("rankings submitted",
		zap.String("word", st.Word.Word),
		zap.Stringer("weights", frozen),
		zap.String("best", result.BestTranscription))
	return result, nil
}

// Result returns the display view of the stored analysis result
func (w *Workflow) Result(ctx context.Context) (*results.View, error) {
	st, err := w.guard(ctx, StageResult)
	if err != nil {
		return nil, err
	}
	return results.NewView(st.Result)
}

// Status describes how far the session has progressed
type Status struct {
	State *session.State
	Next  Stage
}

// Status reports the stored artifacts and the next stage to run
func (w *Workflow) Status(ctx context.Context) (*Status, error) {
	st, err := w.session.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return &Status{State: st, Next: Next(st)}, nil
}

// Reset forgets everything stored in the session
func (w *Workflow) Reset(ctx context.Context) error {
	done, err := w.begin()
	if err != nil {
		return err
	}
	defer done()
	return w.session.Reset(ctx)
}
