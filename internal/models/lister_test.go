package models

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai"
)

func TestNewLister(t *testing.T) {
	lister := NewLister("test-api-key")

	if lister == nil {
		t.Fatal("NewLister returned nil")
	}
	if lister.apiKey != "test-api-key" {
		t.Errorf("Expected API key 'test-api-key', got '%s'", lister.apiKey)
	}
	if lister.client == nil {
		t.Error("OpenAI client not initialized")
	}
}

func TestListAvailableModels_NoAPIKey(t *testing.T) {
	lister := NewLister("")

	err := lister.ListAvailableModels(context.Background())
	if err == nil {
		t.Fatal("Expected error for missing API key")
	}
	if !strings.HasPrefix(err.Error(), "OpenAI API key not found") {
		t.Errorf("unexpected error: %v", err)
	}
}

func newFakeLister(t *testing.T, body string) (*Lister, *bytes.Buffer) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/models" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"
	var out bytes.Buffer
	return NewListerWithConfig(cfg, "test-key", &out), &out
}

func TestChatModels(t *testing.T) {
	lister, _ := newFakeLister(t, `{"object":"list","data":[
		{"id":"tts-1","object":"model"},
		{"id":"gpt-4o","object":"model"},
		{"id":"dall-e-3","object":"model"},
		{"id":"gpt-4o-mini-tts","object":"model"},
		{"id":"gpt-3.5-turbo","object":"model"},
		{"id":"o3-mini","object":"model"},
		{"id":"whisper-1","object":"model"}
	]}`)

	got, err := lister.ChatModels(context.Background())
	if err != nil {
		t.Fatalf("ChatModels: %v", err)
	}
	want := []string{"gpt-3.5-turbo", "gpt-4o", "o3-mini"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ChatModels() = %v, want %v", got, want)
	}
}

func TestListAvailableModels_Output(t *testing.T) {
	lister, out := newFakeLister(t, `{"data":[{"id":"gpt-4o"},{"id":"gpt-4.1"}]}`)

	if err := lister.ListAvailableModels(context.Background()); err != nil {
		t.Fatalf("ListAvailableModels: %v", err)
	}
	s := out.String()
	if !strings.Contains(s, "gpt-4o (default)") || !strings.Contains(s, "  gpt-4.1\n") {
		t.Errorf("unexpected output:\n%s", s)
	}
}

func TestListAvailableModels_Empty(t *testing.T) {
	lister, out := newFakeLister(t, `{"data":[{"id":"tts-1"}]}`)

	if err := lister.ListAvailableModels(context.Background()); err != nil {
		t.Fatalf("ListAvailableModels: %v", err)
	}
	if !strings.Contains(out.String(), "No chat models found") {
		t.Errorf("unexpected output:\n%s", out.String())
	}
}

func TestListAvailableModels_Integration(t *testing.T) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		t.Skip("Skipping integration test: OPENAI_API_KEY not set")
	}

	if err := NewLister(apiKey).ListAvailableModels(context.Background()); err != nil {
		t.Errorf("ListAvailableModels failed: %v", err)
	}
}
