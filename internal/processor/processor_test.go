package processor

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"codeberg.org/snonux/voxpref/internal/cli"
	"codeberg.org/snonux/voxpref/internal/criteria"
	"codeberg.org/snonux/voxpref/internal/testutil"
)

var weights = []string{"IA=6", "DI=5", "CO=4", "PC=3", "PS=2", "F=1"}

type harness struct {
	p       *Processor
	out     *bytes.Buffer
	backend *testutil.Backend
	dir     string
	sample  string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	backend := testutil.NewBackend(t)
	dir := t.TempDir()

	flags := cli.NewFlags()
	flags.APIURL = backend.URL()
	flags.SessionDB = filepath.Join(dir, "state", "session.db")
	flags.OutputDir = filepath.Join(dir, "reports")
	flags.ExportFormat = "csv"

	out := &bytes.Buffer{}
	p := NewProcessor(flags)
	p.out = out
	p.logger = zaptest.NewLogger(t)

	return &harness{
		p:       p,
		out:     out,
		backend: backend,
		dir:     dir,
		sample:  testutil.CreateAudioFile(t, dir, "sample.wav"),
	}
}

func TestNewProcessor(t *testing.T) {
	flags := cli.NewFlags()
	p := NewProcessor(flags)

	if p == nil {
		t.Fatal("NewProcessor returned nil")
	}
	if p.flags != flags {
		t.Error("Processor flags not set correctly")
	}
	if p.out != os.Stdout {
		t.Error("Processor should print to stdout")
	}
}

func TestStepwiseSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.p.Audio(ctx, h.sample))
	assert.Contains(t, h.out.String(), "Audio sample recorded: sample.wav (audio/wav)")
	testutil.AssertFileExists(t, filepath.Join(h.dir, "state", "session.db"))

	require.NoError(t, h.p.Word(ctx, "cat"))
	assert.Contains(t, h.out.String(), "IPA: /kæt/")
	assert.Equal(t, 1, h.backend.Calls("/analyze"))

	require.NoError(t, h.p.Criteria(ctx, weights))
	assert.Contains(t, h.out.String(), "Best IPA transcription: /kæt/")
	assert.Contains(t, string(h.backend.LastBody("/save-rankings")), `"IA":6`)

	h.out.Reset()
	require.NoError(t, h.p.Result(ctx))
	assert.Contains(t, h.out.String(), "/kæt/")
	assert.Contains(t, h.out.String(), "Best IPA Transcription:")

	h.out.Reset()
	require.NoError(t, h.p.Export(ctx))
	matches, err := filepath.Glob(filepath.Join(h.dir, "reports", "cat_*.csv"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	testutil.AssertFileContains(t, matches[0], "/kæt/")
	assert.Contains(t, h.out.String(), matches[0])

	h.out.Reset()
	require.NoError(t, h.p.Status(ctx))
	assert.Contains(t, h.out.String(), "Result:   /kæt/")
	assert.Contains(t, h.out.String(), "Next: voxpref result")

	h.out.Reset()
	require.NoError(t, h.p.Reset(ctx))
	require.NoError(t, h.p.Status(ctx))
	assert.Contains(t, h.out.String(), "Audio:    -")
	assert.Contains(t, h.out.String(), "Next: voxpref audio <file>")
}

func TestRedirectCarriesHint(t *testing.T) {
	h := newHarness(t)

	err := h.p.Word(context.Background(), "cat")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No audio sample found")
	assert.Contains(t, err.Error(), "Run: voxpref audio <file>")
	assert.Equal(t, 0, h.backend.Calls("/ipa"))

	err = h.p.Result(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No audio sample found")
}

func TestCriteria_RejectedBeforeRequest(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.p.Audio(ctx, h.sample))
	require.NoError(t, h.p.Word(ctx, "cat"))

	tests := []struct {
		name        string
		assignments []string
	}{
		{name: "duplicates", assignments: []string{"IA=6", "DI=6"}},
		{name: "out of range", assignments: []string{"IA=7"}},
		{name: "unknown key", assignments: []string{"XX=1"}},
		{name: "malformed", assignments: []string{"IA"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, h.p.Criteria(ctx, tt.assignments))
		})
	}
	assert.Equal(t, 0, h.backend.Calls("/save-rankings"))
}

func TestListCriteria(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.p.ListCriteria())

	for _, c := range criteria.All() {
		assert.Contains(t, h.out.String(), c.Title)
	}
}

func TestResult_ExplainWithoutKey(t *testing.T) {
	h := newHarness(t)
	t.Setenv("OPENAI_API_KEY", "")
	ctx := context.Background()

	require.NoError(t, h.p.Audio(ctx, h.sample))
	require.NoError(t, h.p.Word(ctx, "cat"))
	require.NoError(t, h.p.Criteria(ctx, weights))

	h.p.flags.Explain = true
	h.out.Reset()
	require.NoError(t, h.p.Result(ctx))
	assert.Contains(t, h.out.String(), "Warning: OpenAI API key not found")
}

func TestRun_SingleWord(t *testing.T) {
	h := newHarness(t)
	h.p.flags.RunAudio = h.sample
	h.p.flags.RunWord = "water"
	h.p.flags.RunWeights = []string{"IA=6,DI=5,CO=4", "PC=3", "PS=2", "F=1"}
	h.p.flags.RunExport = true

	require.NoError(t, h.p.Run(context.Background()))
	assert.Contains(t, h.out.String(), "IPA: /ˈwɔːtər/")
	assert.Contains(t, h.out.String(), "Report saved to:")

	matches, _ := filepath.Glob(filepath.Join(h.dir, "reports", "water_*.csv"))
	assert.Len(t, matches, 1)
	testutil.AssertFileNotExists(t, filepath.Join(h.dir, "state", "session.db"))
}

func TestRun_Validation(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(f *cli.Flags, sample string)
		wantErr string
	}{
		{
			name:    "default weights are not unique",
			setup:   func(f *cli.Flags, sample string) { f.RunAudio = sample; f.RunWord = "cat" },
			wantErr: "unique",
		},
		{
			name: "missing audio",
			setup: func(f *cli.Flags, sample string) {
				f.RunWord = "cat"
				f.RunWeights = weights
			},
			wantErr: "--audio is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			tt.setup(h.p.flags, h.sample)

			err := h.p.Run(context.Background())
			require.Error(t, err)
			assert.Contains(t, strings.ToLower(err.Error()), tt.wantErr)
			assert.Equal(t, 0, h.backend.Calls("/ipa"))
		})
	}
}

func TestRun_Batch(t *testing.T) {
	h := newHarness(t)
	batchFile := filepath.Join(h.dir, "words.txt")
	content := "# word = sample\ncat = sample.wav\nwater = missing.wav\n"
	testutil.CreateTestFile(t, batchFile, []byte(content))

	h.p.flags.BatchFile = batchFile
	h.p.flags.RunWeights = weights

	err := h.p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 words failed")

	out := h.out.String()
	assert.Contains(t, out, "Processing 1/2: cat")
	assert.Contains(t, out, "Error processing 'water'")
	assert.Contains(t, out, "Processed: 1")
	assert.Contains(t, out, "Errors: 1")
	assert.Equal(t, 1, h.backend.Calls("/save-rankings"))
}

func TestRun_BatchSharesBreaker(t *testing.T) {
	h := newHarness(t)
	h.backend.FailWith("/ipa", http.StatusInternalServerError)

	var content strings.Builder
	for _, w := range []string{"cat", "dog", "sun", "sea", "sky", "tree"} {
		content.WriteString(w + " = sample.wav\n")
	}
	batchFile := filepath.Join(h.dir, "words.txt")
	testutil.CreateTestFile(t, batchFile, []byte(content.String()))

	h.p.flags.BatchFile = batchFile
	h.p.flags.RunWeights = weights

	err := h.p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "6 of 6 words failed")

	// Five server errors open the breaker, the sixth word never reaches it
	assert.Equal(t, 5, h.backend.Calls("/ipa"))
	assert.Equal(t, "open", h.p.breakerState())
	assert.Contains(t, h.out.String(), "Backend circuit breaker is open")
}

func TestExport_FormatFromConfig(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.p.Audio(ctx, h.sample))
	require.NoError(t, h.p.Word(ctx, "cat"))
	require.NoError(t, h.p.Criteria(ctx, weights))

	h.p.flags.ExportFormat = "pdf"
	viper.Set("export.format", "csv")
	require.NoError(t, h.p.Export(ctx))
	assert.Regexp(t, `Report saved to: .*\.csv`, h.out.String())
}

func TestArchive(t *testing.T) {
	h := newHarness(t)
	reports := filepath.Join(h.dir, "reports")
	testutil.CreateTestFile(t, filepath.Join(reports, "cat.csv"), []byte("x"))

	require.NoError(t, h.p.Archive())
	assert.Contains(t, h.out.String(), "Reports directory archived to: "+filepath.Join(h.dir, "archive", "reports-"))
	testutil.AssertFileNotExists(t, reports)
}

func TestSettingPrefersViper(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	assert.Equal(t, "fallback", setting("output.directory", "fallback"))
	viper.Set("output.directory", "/from/config")
	assert.Equal(t, "/from/config", setting("output.directory", "fallback"))
}
