package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// Backend is an in-process stand-in for the pronunciation backend and the
// scoring service. Responses can be swapped per test; every request is
// recorded.
type Backend struct {
	Server *httptest.Server

	mu       sync.Mutex
	ipa      map[string]string
	status   map[string]int
	rankings string
	calls    map[string]int
	last     map[string][]byte

	hold chan struct{}
	// Arrived receives a value whenever a held request reaches the server
	Arrived chan struct{}
}

// DefaultRankings is the /save-rankings answer used unless SetRankings is
// called. The best candidate is deliberately not the first key.
const DefaultRankings = `{
  "best_transcription": "/kæt/",
  "final_table": {
    "/kat/": {"IA": 0.5, "DI": 0.4, "CO": 0.3, "PC": 0.6, "PS": 0.7, "F": 0.2},
    "/kæt/": {"IA": 0.9, "DI": 0.8, "CO": 0.7, "PC": 0.9, "PS": 0.6, "F": 0.95}
  },
  "weighted_score": 0.8123
}`

// NewBackend starts a fake backend that is shut down with the test
func NewBackend(t *testing.T) *Backend {
	t.Helper()

	b := &Backend{
		ipa:      map[string]string{"water": "/ˈwɔːtər/", "cat": "/kæt/"},
		status:   make(map[string]int),
		rankings: DefaultRankings,
		calls:    make(map[string]int),
		last:     make(map[string][]byte),
		Arrived:  make(chan struct{}, 8),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ipa", b.handleIPA)
	mux.HandleFunc("/analyze", b.handleAnalyze)
	mux.HandleFunc("/save-rankings", b.handleRankings)
	b.Server = httptest.NewServer(mux)
	t.Cleanup(b.Server.Close)
	return b
}

// URL returns the base URL of the fake backend
func (b *Backend) URL() string {
	return b.Server.URL
}

// SetIPA registers the transcription returned for word
func (b *Backend) SetIPA(word, ipa string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ipa[word] = ipa
}

// HoldIPA makes /ipa block until the returned release func is called
func (b *Backend) HoldIPA() (release func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	hold := make(chan struct{})
	b.hold = hold
	var once sync.Once
	return func() {
		once.Do(func() { close(hold) })
	}
}

// SetRankings replaces the /save-rankings answer
func (b *Backend) SetRankings(body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rankings = body
}

// FailWith makes path answer with status and a JSON error body
func (b *Backend) FailWith(path string, status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status[path] = status
}

// Calls returns how many requests path received
func (b *Backend) Calls(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[path]
}

// LastBody returns the last request body seen on path
func (b *Backend) LastBody(path string) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last[path]
}

// record counts the request and returns the configured failure status, or 0
func (b *Backend) record(r *http.Request, body []byte) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls[r.URL.Path]++
	b.last[r.URL.Path] = body
	return b.status[r.URL.Path]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (b *Backend) handleIPA(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	word := r.PostForm.Get("target_word")
	if status := b.record(r, []byte(r.PostForm.Encode())); status != 0 {
		writeJSON(w, status, map[string]string{"error": "ipa lookup failed"})
		return
	}

	b.mu.Lock()
	hold := b.hold
	b.mu.Unlock()
	if hold != nil {
		b.Arrived <- struct{}{}
		<-hold
	}

	b.mu.Lock()
	ipa, ok := b.ipa[word]
	b.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"ipa": "", "ipa_error": "no transcription for " + word, "success": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ipa": ipa, "success": true})
}

func (b *Backend) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	f, hdr, err := r.FormFile("audioFile")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No audio file provided"})
		return
	}
	defer f.Close()
	sample, _ := io.ReadAll(f)

	if status := b.record(r, sample); status != 0 {
		writeJSON(w, status, map[string]string{"error": "analysis failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"target_word": r.FormValue("target_word"),
		"filename":    hdr.Filename,
		"bytes":       len(sample),
	})
}

func (b *Backend) handleRankings(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	if status := b.record(r, body); status != 0 {
		writeJSON(w, status, map[string]string{"error": "Scoring failed"})
		return
	}

	b.mu.Lock()
	answer := b.rankings
	b.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	io.WriteString(w, answer)
}
