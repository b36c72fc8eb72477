package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"codeberg.org/snonux/voxpref/internal/api"
	"codeberg.org/snonux/voxpref/internal/criteria"
	"codeberg.org/snonux/voxpref/internal/phonetic"
	"codeberg.org/snonux/voxpref/internal/results"
	"codeberg.org/snonux/voxpref/internal/session"
	"codeberg.org/snonux/voxpref/internal/testutil"
)

type fixture struct {
	backend *testutil.Backend
	wf      *Workflow
	sess    *session.Session
	sample  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	backend := testutil.NewBackend(t)
	client, err := api.New(api.Config{
		BaseURL: backend.URL(),
		Timeout: 5 * time.Second,
		Logger:  zaptest.NewLogger(t),
	})
	require.NoError(t, err)

	sess := session.New(session.NewMemoryStore())
	return &fixture{
		backend: backend,
		wf:      New(client, sess, zaptest.NewLogger(t)),
		sess:    sess,
		sample:  testutil.CreateAudioFile(t, t.TempDir(), "sample.wav"),
	}
}

func distinctWeights() criteria.Weights {
	return criteria.Weights{
		criteria.InternationalAcceptance: 1,
		criteria.Disambiguity:            2,
		criteria.Contrastiveness:         3,
		criteria.PedagogicConvenience:    4,
		criteria.PhoneticSimplicity:      5,
		criteria.Frequency:               6,
	}
}

func (f *fixture) runTo(t *testing.T, stage Stage) {
	t.Helper()
	ctx := context.Background()
	if stage > StageAudio {
		_, err := f.wf.CaptureAudio(ctx, f.sample)
		require.NoError(t, err)
	}
	if stage > StageWord {
		_, err := f.wf.CaptureWord(ctx, "cat")
		require.NoError(t, err)
	}
	if stage > StageCriteria {
		_, err := f.wf.SubmitCriteria(ctx, distinctWeights())
		require.NoError(t, err)
	}
}

func TestFullRun(t *testing.T) {
	f := newFixture(t)
	f.runTo(t, StageResult)

	view, err := f.wf.Result(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "cat", view.TargetWord)
	assert.Equal(t, "/kæt/", view.BestTranscription)
	assert.Equal(t, "0.812", view.FormatWeightedScore())
	require.Len(t, view.Table.Rows, 2)
	assert.Equal(t, "/kæt/", view.Table.Rows[0][0])
	assert.Equal(t, []string{"IPA", "IA", "DI", "CO", "PC", "PS", "F"}, view.Table.Header)

	assert.Equal(t, 1, f.backend.Calls("/ipa"))
	assert.Equal(t, 1, f.backend.Calls("/analyze"))
	assert.Equal(t, 1, f.backend.Calls("/save-rankings"))
	assert.Equal(t, testutil.WAVHeader, f.backend.LastBody("/analyze"))
}

func TestCaptureWord_TranscriptionRetrievableUnchanged(t *testing.T) {
	f := newFixture(t)
	f.runTo(t, StageWord)

	tw, err := f.wf.CaptureWord(context.Background(), "water")
	require.NoError(t, err)
	assert.Equal(t, "/ˈwɔːtər/", tw.IPA)

	st, err := f.sess.Snapshot(context.Background())
	require.NoError(t, err)
	require.NotNil(t, st.Word)
	assert.Equal(t, phonetic.TargetWord{Word: "water", IPA: "/ˈwɔːtər/"}, *st.Word)
	assert.NotNil(t, st.Analysis)
}

func TestCaptureWord_EmptyWordSendsNothing(t *testing.T) {
	f := newFixture(t)
	f.runTo(t, StageWord)

	for _, word := range []string{"", "   "} {
		_, err := f.wf.CaptureWord(context.Background(), word)
		assert.ErrorIs(t, err, phonetic.ErrEmptyWord)
	}
	assert.Zero(t, f.backend.Calls("/ipa"))
	assert.Zero(t, f.backend.Calls("/analyze"))
}

func TestCaptureWord_KeepsIPAError(t *testing.T) {
	f := newFixture(t)
	f.runTo(t, StageWord)

	tw, err := f.wf.CaptureWord(context.Background(), "zzyzx")
	require.NoError(t, err)
	assert.Equal(t, "no transcription for zzyzx", tw.IPAError)
}

func TestCaptureWord_FailureCommitsNothing(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantMsg string
	}{
		{name: "ipa fails", path: "/ipa", wantMsg: api.MsgIPAFailed},
		{name: "analyze fails", path: "/analyze", wantMsg: api.MsgAnalyzeFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.runTo(t, StageWord)
			f.backend.FailWith(tt.path, http.StatusBadRequest)

			_, err := f.wf.CaptureWord(context.Background(), "cat")
			var apiErr *api.Error
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.wantMsg, apiErr.Message)

			st, err := f.sess.Snapshot(context.Background())
			require.NoError(t, err)
			assert.NotNil(t, st.Audio)
			assert.Nil(t, st.Word)
			assert.Nil(t, st.Analysis)
		})
	}
}

func TestSubmitCriteria_DuplicateRejectedWithoutRequest(t *testing.T) {
	f := newFixture(t)
	f.runTo(t, StageCriteria)

	w := criteria.Weights{
		criteria.InternationalAcceptance: 3,
		criteria.Disambiguity:            3,
		criteria.Contrastiveness:         1,
		criteria.PedagogicConvenience:    2,
		criteria.PhoneticSimplicity:      4,
		criteria.Frequency:               5,
	}
	_, err := f.wf.SubmitCriteria(context.Background(), w)

	var verr *criteria.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.ErrorIs(t, err, criteria.ErrNotUnique)
	assert.Zero(t, f.backend.Calls("/save-rankings"))

	_, err = f.wf.SubmitCriteria(context.Background(), criteria.DefaultWeights())
	assert.ErrorIs(t, err, criteria.ErrNotUnique)
	assert.Zero(t, f.backend.Calls("/save-rankings"))
}

func TestSubmitCriteria_SendsAllSix(t *testing.T) {
	f := newFixture(t)
	f.runTo(t, StageCriteria)

	w := distinctWeights()
	_, err := f.wf.SubmitCriteria(context.Background(), w)
	require.NoError(t, err)

	var sent struct {
		Sliders map[string]int      `json:"sliders"`
		IPA     phonetic.TargetWord `json:"ipa"`
	}
	require.NoError(t, json.Unmarshal(f.backend.LastBody("/save-rankings"), &sent))
	assert.Equal(t, map[string]int{"IA": 1, "DI": 2, "CO": 3, "PC": 4, "PS": 5, "F": 6}, sent.Sliders)
	assert.Equal(t, "/kæt/", sent.IPA.IPA)

	// Weights are frozen at submission
	w[criteria.Frequency] = 99
	st, err := f.sess.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, st.Weights[criteria.Frequency])
}

func TestSubmitCriteria_ServerError(t *testing.T) {
	f := newFixture(t)
	f.runTo(t, StageCriteria)
	f.backend.FailWith("/save-rankings", http.StatusInternalServerError)

	_, err := f.wf.SubmitCriteria(context.Background(), distinctWeights())
	require.Error(t, err)
	assert.Equal(t, "Scoring failed", err.Error())

	st, err := f.sess.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Nil(t, st.Weights)
	assert.Nil(t, st.Result)
}

func TestResult_EmptyTableIsNoData(t *testing.T) {
	f := newFixture(t)
	f.backend.SetRankings(`{"bestTranscription":"","finalTable":{}}`)
	f.runTo(t, StageResult)

	_, err := f.wf.Result(context.Background())
	assert.ErrorIs(t, err, results.ErrNoData)
}

func TestGuards(t *testing.T) {
	tests := []struct {
		name       string
		reached    Stage
		enter      Stage
		wantTo     Stage
		wantReason string
	}{
		{name: "word without audio", reached: StageAudio, enter: StageWord, wantTo: StageAudio, wantReason: reasonNoAudio},
		{name: "criteria without audio", reached: StageAudio, enter: StageCriteria, wantTo: StageAudio, wantReason: reasonNoAudio},
		{name: "criteria without word", reached: StageWord, enter: StageCriteria, wantTo: StageWord, wantReason: reasonNoWord},
		{name: "result without audio", reached: StageAudio, enter: StageResult, wantTo: StageAudio, wantReason: reasonNoAudio},
		{name: "result without word", reached: StageWord, enter: StageResult, wantTo: StageWord, wantReason: reasonNoWord},
		{name: "result without result", reached: StageCriteria, enter: StageResult, wantTo: StageCriteria, wantReason: reasonNoResult},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.runTo(t, tt.reached)
			ctx := context.Background()

			var err error
			switch tt.enter {
			case StageWord:
				_, err = f.wf.CaptureWord(ctx, "cat")
			case StageCriteria:
				_, err = f.wf.SubmitCriteria(ctx, distinctWeights())
			case StageResult:
				_, err = f.wf.Result(ctx)
			}

			var redirect *RedirectError
			require.ErrorAs(t, err, &redirect)
			assert.Equal(t, tt.wantTo, redirect.To)
			assert.Equal(t, tt.enter, redirect.From)
			assert.Equal(t, tt.wantReason, redirect.Error())
		})
	}
}

func TestGuard_Pure(t *testing.T) {
	assert.NoError(t, Guard(StageAudio, nil))
	assert.Error(t, Guard(StageWord, nil))
	assert.Equal(t, StageAudio, Next(nil))
	assert.Equal(t, "criteria", StageCriteria.String())
	assert.Equal(t, "voxpref result", StageResult.Hint())
}

func TestNewAudioInvalidatesDownstream(t *testing.T) {
	f := newFixture(t)
	f.runTo(t, StageResult)

	_, err := f.wf.CaptureAudio(context.Background(), f.sample)
	require.NoError(t, err)

	_, err = f.wf.Result(context.Background())
	var redirect *RedirectError
	require.ErrorAs(t, err, &redirect)
	assert.Equal(t, StageWord, redirect.To)
}

func TestNewWordInvalidatesResult(t *testing.T) {
	f := newFixture(t)
	f.runTo(t, StageResult)

	_, err := f.wf.CaptureWord(context.Background(), "water")
	require.NoError(t, err)

	_, err = f.wf.Result(context.Background())
	var redirect *RedirectError
	require.ErrorAs(t, err, &redirect)
	assert.Equal(t, reasonNoResult, redirect.Reason)
}

func TestCaptureAudio_Invalid(t *testing.T) {
	f := newFixture(t)
	_, err := f.wf.CaptureAudio(context.Background(), filepath.Join(t.TempDir(), "missing.wav"))
	assert.Error(t, err)

	st, err := f.sess.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Nil(t, st.Audio)
}

func TestBusy(t *testing.T) {
	f := newFixture(t)
	f.runTo(t, StageWord)

	release := f.backend.HoldIPA()
	defer release()
	errc := make(chan error, 1)
	go func() {
		_, err := f.wf.CaptureWord(context.Background(), "cat")
		errc <- err
	}()
	<-f.backend.Arrived

	_, err := f.wf.CaptureWord(context.Background(), "water")
	assert.ErrorIs(t, err, ErrBusy)
	_, err = f.wf.SubmitCriteria(context.Background(), distinctWeights())
	assert.ErrorIs(t, err, ErrBusy)
	assert.ErrorIs(t, f.wf.Reset(context.Background()), ErrBusy)

	release()
	require.NoError(t, <-errc)
	assert.Equal(t, 1, f.backend.Calls("/ipa"))

	_, err = f.wf.SubmitCriteria(context.Background(), distinctWeights())
	assert.NoError(t, err)
}

func TestStatusAndReset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s, err := f.wf.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, StageAudio, s.Next)

	f.runTo(t, StageCriteria)
	s, err = f.wf.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, StageCriteria, s.Next)
	assert.Equal(t, "cat", s.State.Word.Word)

	f.runTo(t, StageResult)
	s, err = f.wf.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, StageResult, s.Next)

	require.NoError(t, f.wf.Reset(ctx))
	s, err = f.wf.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, StageAudio, s.Next)
}

func TestCaptureWord_StalledAudioDownloadTimesOut(t *testing.T) {
	backend := testutil.NewBackend(t)
	release := make(chan struct{})
	audioSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer audioSrv.Close()
	defer close(release)

	client, err := api.New(api.Config{
		BaseURL: backend.URL(),
		Timeout: 200 * time.Millisecond,
		Logger:  zaptest.NewLogger(t),
	})
	require.NoError(t, err)
	wf := New(client, session.New(session.NewMemoryStore()), zaptest.NewLogger(t))

	ctx := context.Background()
	_, err = wf.CaptureAudio(ctx, audioSrv.URL+"/clips/cat.wav")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := wf.CaptureWord(ctx, "cat")
		done <- err
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(3 * time.Second):
		t.Fatal("CaptureWord still blocked on the audio download")
	}

	assert.Zero(t, backend.Calls("/analyze"))
	st, err := wf.Status(ctx)
	require.NoError(t, err)
	assert.Nil(t, st.State.Word)
	assert.Equal(t, StageWord, st.Next)

	// The busy flag was released
	_, err = wf.CaptureAudio(ctx, audioSrv.URL+"/clips/cat.wav")
	assert.NoError(t, err)
}

// failingStore refuses any write that carries the analysis payload
type failingStore struct {
	*session.MemoryStore
}

func (s failingStore) PutAll(ctx context.Context, values map[session.Key][]byte, drop ...session.Key) error {
	if _, ok := values[session.KeyAnalysis]; ok {
		return errors.New("disk full")
	}
	return s.MemoryStore.PutAll(ctx, values, drop...)
}

func TestCaptureWord_StoreFailureLeavesNoWord(t *testing.T) {
	backend := testutil.NewBackend(t)
	client, err := api.New(api.Config{BaseURL: backend.URL(), Timeout: 5 * time.Second})
	require.NoError(t, err)
	wf := New(client, session.New(failingStore{session.NewMemoryStore()}), zaptest.NewLogger(t))

	ctx := context.Background()
	_, err = wf.CaptureAudio(ctx, testutil.CreateAudioFile(t, t.TempDir(), "cat.wav"))
	require.NoError(t, err)

	_, err = wf.CaptureWord(ctx, "cat")
	require.Error(t, err)

	st, err := wf.Status(ctx)
	require.NoError(t, err)
	assert.Nil(t, st.State.Word)
	assert.Nil(t, st.State.Analysis)

	_, err = wf.SubmitCriteria(ctx, distinctWeights())
	var redirect *RedirectError
	require.ErrorAs(t, err, &redirect)
	assert.Equal(t, StageWord, redirect.To)
}
