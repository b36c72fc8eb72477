package processor

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"codeberg.org/snonux/voxpref/internal/batch"
	"codeberg.org/snonux/voxpref/internal/criteria"
	"codeberg.org/snonux/voxpref/internal/session"
)

// Run executes all steps for one word, or for every entry of the batch file.
// Each word runs in its own in-memory session so the persistent session is
// left untouched.
func (p *Processor) Run(ctx context.Context) error {
	weights, err := criteria.ParseAssignments(p.flags.RunWeights)
	if err != nil {
		return err
	}
	if err := weights.Validate(); err != nil {
		return err
	}

	if p.flags.BatchFile != "" {
		return p.runBatch(ctx, weights)
	}
	if p.flags.RunAudio == "" {
		return fmt.Errorf("--audio is required (or use --batch)")
	}
	return p.runOne(ctx, p.flags.RunWord, p.flags.RunAudio, weights)
}

func (p *Processor) runBatch(ctx context.Context, weights criteria.Weights) error {
	entries, err := batch.ReadBatchFile(p.flags.BatchFile)
	if err != nil {
		return err
	}

	summary := batch.Summary{Total: len(entries)}
	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprintf(p.out, "\nProcessing %d/%d: %s\n", i+1, len(entries), entry.Word)
		if err := p.runOne(ctx, entry.Word, entry.AudioPath, weights); err != nil {
			breaker := p.breakerState()
			p.log().Error("batch entry failed",
				zap.String("word", entry.Word),
				zap.Int("line", entry.Line),
				zap.String("breaker", breaker),
				zap.Error(err))
			fmt.Fprintf(p.out, "Error processing '%s': %v\n", entry.Word, err)
			if breaker == "open" {
				fmt.Fprintln(p.out, "Backend circuit breaker is open, remaining words fail fast")
			}
			summary.Failed++
			continue
		}
		summary.Processed++
	}

	fmt.Fprint(p.out, summary)
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d words failed", summary.Failed, summary.Total)
	}
	return nil
}

func (p *Processor) breakerState() string {
	if p.api == nil {
		return "unknown"
	}
	return p.api.BreakerState()
}

func (p *Processor) runOne(ctx context.Context, word, audioPath string, weights criteria.Weights) error {
	wf, closeFn, err := p.openWorkflow(session.NewMemoryStore())
	if err != nil {
		return err
	}
	defer closeFn()

	ref, err := wf.CaptureAudio(ctx, audioPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(p.out, "  Audio sample: %s\n", ref.Name)

	if err := p.captureWord(ctx, wf, word); err != nil {
		return err
	}
	if err := p.submitCriteria(ctx, wf, weights); err != nil {
		return err
	}

	view, err := wf.Result(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(p.out, view.Render())

	if p.flags.RunExport {
		return p.export(view)
	}
	return nil
}
