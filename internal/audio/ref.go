package audio

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Ref points at the audio sample a user supplied. URL is an absolute file
// path or an http(s) URL.
type Ref struct {
	URL  string `json:"url"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// IsRemote reports whether the sample must be downloaded
func (r *Ref) IsRemote() bool {
	return strings.HasPrefix(r.URL, "http://") || strings.HasPrefix(r.URL, "https://")
}

// NewRef builds a Ref from a local path or an http(s) URL, validating local
// files on the spot
func NewRef(location string) (*Ref, error) {
	location = strings.TrimSpace(location)
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return newURLRef(location)
	}

	contentType, err := ValidateAudioFile(location)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(location)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve audio path: %w", err)
	}
	return &Ref{URL: abs, Name: filepath.Base(abs), Type: contentType}, nil
}

func newURLRef(raw string) (*Ref, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid audio URL: %s", raw)
	}
	name := path.Base(u.Path)
	if name == "/" || name == "." || name == "" {
		name = "audio"
	}
	contentType := TypeByExtension(name)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &Ref{URL: raw, Name: name, Type: contentType}, nil
}

// ReadSample reads a whole sample, rejecting empty ones and anything larger
// than MaxFileSize
func ReadSample(r io.Reader) ([]byte, error) {
	return readLimited(r, MaxFileSize)
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read audio sample: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("audio sample too large: more than %d bytes", limit)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("audio sample is empty")
	}
	return data, nil
}

// Open returns the sample's bytes. Remote samples are fetched with client and
// are bound to ctx, so callers set the download deadline.
func (r *Ref) Open(ctx context.Context, client *http.Client) (io.ReadCloser, error) {
	if !r.IsRemote() {
		f, err := os.Open(r.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to open audio file: %w", err)
		}
		return f, nil
	}

	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("download failed with status %d", resp.StatusCode)
	}
	return resp.Body, nil
}
