package processor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"codeberg.org/snonux/voxpref/internal/api"
	"codeberg.org/snonux/voxpref/internal/archive"
	"codeberg.org/snonux/voxpref/internal/cli"
	"codeberg.org/snonux/voxpref/internal/criteria"
	"codeberg.org/snonux/voxpref/internal/export"
	"codeberg.org/snonux/voxpref/internal/logging"
	"codeberg.org/snonux/voxpref/internal/models"
	"codeberg.org/snonux/voxpref/internal/phonetic"
	"codeberg.org/snonux/voxpref/internal/results"
	"codeberg.org/snonux/voxpref/internal/session"
	"codeberg.org/snonux/voxpref/internal/workflow"
)

// Processor implements cli.Runner
type Processor struct {
	flags  *cli.Flags
	out    io.Writer
	now    func() time.Time
	logger *zap.Logger
	api    *api.Client
}

var _ cli.Runner = (*Processor)(nil)

// NewProcessor creates a processor printing to stdout
func NewProcessor(flags *cli.Flags) *Processor {
	return &Processor{
		flags: flags,
		out:   os.Stdout,
		now:   time.Now,
	}
}

// setting prefers the viper value (flag, env or config file) over fallback
func setting(key, fallback string) string {
	if v := viper.GetString(key); v != "" {
		return v
	}
	return fallback
}

func (p *Processor) log() *zap.Logger {
	if p.logger != nil {
		return p.logger
	}
	logger, err := logging.New(setting("log.level", p.flags.LogLevel), setting("log.format", p.flags.LogFormat))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v, logging disabled\n", err)
		logger = zap.NewNop()
	}
	p.logger = logger
	return logger
}

// client returns the backend client. It is built once so all words of a
// batch share one circuit breaker.
func (p *Processor) client() (*api.Client, error) {
	if p.api != nil {
		return p.api, nil
	}
	timeout := viper.GetDuration("api.timeout")
	if timeout <= 0 {
		timeout = p.flags.Timeout
	}
	c, err := api.New(api.Config{
		BaseURL:    setting("api.base_url", p.flags.APIURL),
		ScoringURL: setting("api.scoring_url", p.flags.ScoringURL),
		Timeout:    timeout,
		Logger:     p.log(),
	})
	if err != nil {
		return nil, err
	}
	p.api = c
	return c, nil
}

func (p *Processor) outputDir() string {
	return setting("output.directory", p.flags.OutputDir)
}

// openWorkflow builds a workflow over store. The returned close func closes
// the store.
func (p *Processor) openWorkflow(store session.Store) (*workflow.Workflow, func(), error) {
	client, err := p.client()
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	sess := session.New(store)
	closeFn := func() {
		if err := sess.Close(); err != nil {
			p.log().Warn("failed to close session", zap.Error(err))
		}
	}
	return workflow.New(client, sess, p.log()), closeFn, nil
}

// persistent opens the workflow of the named session in the session database
func (p *Processor) persistent() (*workflow.Workflow, func(), error) {
	store, err := session.OpenSQLite(
		setting("session.db", p.flags.SessionDB),
		setting("session.id", p.flags.SessionID))
	if err != nil {
		return nil, nil, err
	}
	return p.openWorkflow(store)
}

// withHint adds the command to run to a stage redirect
func withHint(err error) error {
	var re *workflow.RedirectError
	if errors.As(err, &re) {
		return fmt.Errorf("%w\nRun: %s", err, re.To.Hint())
	}
	return err
}

// Audio records the sample at location
func (p *Processor) Audio(ctx context.Context, location string) error {
	wf, closeFn, err := p.persistent()
	if err != nil {
		return err
	}
	defer closeFn()

	ref, err := wf.CaptureAudio(ctx, location)
	if err != nil {
		return withHint(err)
	}
	fmt.Fprintf(p.out, "Audio sample recorded: %s (%s)\n", ref.Name, ref.Type)
	fmt.Fprintf(p.out, "Next: %s\n", workflow.StageWord.Hint())
	return nil
}

// Word sets the target word and has the recorded sample analyzed
func (p *Processor) Word(ctx context.Context, word string) error {
	wf, closeFn, err := p.persistent()
	if err != nil {
		return err
	}
	defer closeFn()

	if err := p.captureWord(ctx, wf, word); err != nil {
		return withHint(err)
	}
	fmt.Fprintf(p.out, "Next: %s\n", workflow.StageCriteria.Hint())
	return nil
}

func (p *Processor) captureWord(ctx context.Context, wf *workflow.Workflow, word string) error {
	fmt.Fprintf(p.out, "Fetching IPA and analyzing '%s'...\n", word)
	tw, err := wf.CaptureWord(ctx, word)
	if err != nil {
		return err
	}
	fmt.Fprintf(p.out, "  Target word: %s\n", tw.Word)
	if tw.IPA != "" {
		fmt.Fprintf(p.out, "  IPA: %s\n", tw.IPA)
	}
	if tw.IPAError != "" {
		fmt.Fprintf(p.out, "  Warning: %s\n", tw.IPAError)
	}
	return nil
}

// Criteria submits weights given as KEY=VALUE assignments
func (p *Processor) Criteria(ctx context.Context, assignments []string) error {
	weights, err := criteria.ParseAssignments(assignments)
	if err != nil {
		return err
	}

	wf, closeFn, err := p.persistent()
	if err != nil {
		return err
	}
	defer closeFn()

	if err := p.submitCriteria(ctx, wf, weights); err != nil {
		return withHint(err)
	}
	fmt.Fprintf(p.out, "Next: %s\n", workflow.StageResult.Hint())
	return nil
}

func (p *Processor) submitCriteria(ctx context.Context, wf *workflow.Workflow, weights criteria.Weights) error {
	fmt.Fprintf(p.out, "Submitting rankings: %s\n", weights)
	result, err := wf.SubmitCriteria(ctx, weights)
	if err != nil {
		return err
	}
	fmt.Fprintf(p.out, "  Best IPA transcription: %s\n", result.BestTranscription)
	return nil
}

// ListCriteria prints the six criteria
func (p *Processor) ListCriteria() error {
	fmt.Fprintln(p.out, "Criteria (weight 1 = less important, 6 = more important):")
	for _, c := range criteria.All() {
		fmt.Fprintf(p.out, "  %-3s %s\n      %s\n", c.Key, c.Title, c.Description)
	}
	return nil
}

// Result prints the ranked table of the session
func (p *Processor) Result(ctx context.Context) error {
	wf, closeFn, err := p.persistent()
	if err != nil {
		return err
	}
	defer closeFn()

	view, err := wf.Result(ctx)
	if err != nil {
		return withHint(err)
	}
	fmt.Fprintln(p.out, view.Render())

	if p.flags.Explain {
		p.explain(ctx, view)
	}
	return nil
}

// explain prints a symbol by symbol reading of the best transcription.
// Failures are reported but do not fail the command.
func (p *Processor) explain(ctx context.Context, view *results.View) {
	explainer, err := phonetic.NewExplainer(ctx,
		setting("explain.provider", p.flags.ExplainProvider),
		phonetic.Keys{OpenAI: cli.GetOpenAIKey(), Gemini: cli.GetGeminiKey()})
	if err != nil {
		fmt.Fprintf(p.out, "Warning: %v\n", err)
		return
	}

	fmt.Fprintf(p.out, "\nExplaining %s...\n", view.BestTranscription)
	text, err := explainer.Explain(ctx, view.TargetWord, view.BestTranscription)
	if err != nil {
		fmt.Fprintf(p.out, "Warning: explanation failed: %v\n", err)
		return
	}
	fmt.Fprintf(p.out, "\n%s\n", text)
}

// Export writes the session's result to the output directory
func (p *Processor) Export(ctx context.Context) error {
	wf, closeFn, err := p.persistent()
	if err != nil {
		return err
	}
	defer closeFn()

	view, err := wf.Result(ctx)
	if err != nil {
		return withHint(err)
	}
	return p.export(view)
}

func (p *Processor) export(view *results.View) error {
	exp, err := export.New(setting("export.format", p.flags.ExportFormat), export.Options{
		FontPath: setting("export.font_path", p.flags.FontPath),
		Logger:   p.log(),
	})
	if err != nil {
		return err
	}

	path, err := export.WriteFile(p.outputDir(), exp, export.FromView(view, p.now()))
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	fmt.Fprintf(p.out, "Report saved to: %s\n", path)
	return nil
}

// Status prints which steps are done and what to run next
func (p *Processor) Status(ctx context.Context) error {
	wf, closeFn, err := p.persistent()
	if err != nil {
		return err
	}
	defer closeFn()

	status, err := wf.Status(ctx)
	if err != nil {
		return err
	}
	st := status.State

	fmt.Fprintf(p.out, "Session: %s\n", setting("session.id", p.flags.SessionID))
	if st.Audio != nil {
		fmt.Fprintf(p.out, "  Audio:    %s\n", st.Audio.Name)
	} else {
		fmt.Fprintf(p.out, "  Audio:    -\n")
	}
	if st.Word != nil {
		fmt.Fprintf(p.out, "  Word:     %s %s\n", st.Word.Word, st.Word.IPA)
	} else {
		fmt.Fprintf(p.out, "  Word:     -\n")
	}
	if st.Weights != nil {
		fmt.Fprintf(p.out, "  Criteria: %s\n", st.Weights)
	} else {
		fmt.Fprintf(p.out, "  Criteria: -\n")
	}
	if st.Result != nil {
		fmt.Fprintf(p.out, "  Result:   %s\n", st.Result.BestTranscription)
	} else {
		fmt.Fprintf(p.out, "  Result:   -\n")
	}
	fmt.Fprintf(p.out, "Next: %s\n", status.Next.Hint())
	return nil
}

// Reset clears the session
func (p *Processor) Reset(ctx context.Context) error {
	wf, closeFn, err := p.persistent()
	if err != nil {
		return err
	}
	defer closeFn()

	if err := wf.Reset(ctx); err != nil {
		return err
	}
	fmt.Fprintf(p.out, "Session '%s' cleared\n", setting("session.id", p.flags.SessionID))
	return nil
}

// Archive moves the reports directory aside
func (p *Processor) Archive() error {
	dest, err := archive.ArchiveReports(p.outputDir())
	if err != nil {
		return fmt.Errorf("failed to archive reports: %w", err)
	}
	fmt.Fprintf(p.out, "Reports directory archived to: %s\n", dest)
	return nil
}

// ListModels prints the OpenAI chat models available for explanations
func (p *Processor) ListModels(ctx context.Context) error {
	return models.NewLister(cli.GetOpenAIKey()).ListAvailableModels(ctx)
}
