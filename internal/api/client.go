package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"codeberg.org/snonux/voxpref/internal/audio"
	"codeberg.org/snonux/voxpref/internal/criteria"
	"codeberg.org/snonux/voxpref/internal/logging"
	"codeberg.org/snonux/voxpref/internal/phonetic"
	"codeberg.org/snonux/voxpref/internal/results"
)

const (
	DefaultBaseURL = "http://localhost:5000"
	DefaultTimeout = 30 * time.Second

	breakerFailures = 5
	breakerTimeout  = 30 * time.Second
	maxResponseSize = 10 << 20
)

// User-facing messages for failed endpoint calls
const (
	MsgIPAFailed      = "Failed to fetch IPA"
	MsgAnalyzeFailed  = "Failed to process the word. Please try again."
	MsgRankingsFailed = "Failed to process rankings"
)

// Config holds the endpoints and limits of a Client
type Config struct {
	BaseURL    string
	ScoringURL string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client talks to the pronunciation backend
type Client struct {
	baseURL    string
	scoringURL string
	timeout    time.Duration
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *zap.Logger
}

// New validates cfg and creates a client. An empty ScoringURL falls back to
// BaseURL.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.ScoringURL == "" {
		cfg.ScoringURL = cfg.BaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	cfg.Logger = logging.OrNop(cfg.Logger)

	base, err := normalizeURL(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid api url: %w", err)
	}
	scoring, err := normalizeURL(cfg.ScoringURL)
	if err != nil {
		return nil, fmt.Errorf("invalid scoring url: %w", err)
	}

	c := &Client{
		baseURL:    base,
		scoringURL: scoring,
		timeout:    cfg.Timeout,
		httpClient: cfg.HTTPClient,
		logger:     cfg.Logger,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "voxpref-backend",
		MaxRequests: 1,
		Timeout:     breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailures
		},
		IsSuccessful: isSuccessful,
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return c, nil
}

func normalizeURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q in %s", u.Scheme, raw)
	}
	if u.Host == "" {
		return "", fmt.Errorf("missing host in %s", raw)
	}
	return strings.TrimRight(u.String(), "/"), nil
}

// isSuccessful decides what counts against the breaker: only transport
// failures and 5xx answers do
func isSuccessful(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return true
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return !apiErr.Temporary()
	}
	return false
}

// Download reads the sample behind ref. Remote samples get the same
// per-request timeout as backend calls; no sample may exceed
// audio.MaxFileSize.
func (c *Client) Download(ctx context.Context, ref *audio.Ref) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	rc, err := ref.Open(ctx, c.httpClient)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := audio.ReadSample(rc)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("sample loaded",
		zap.String("name", ref.Name),
		zap.Bool("remote", ref.IsRemote()),
		zap.Int("bytes", len(data)),
		zap.Duration("elapsed", time.Since(start)))
	return data, nil
}

// BreakerState reports the circuit breaker state
func (c *Client) BreakerState() string {
	return c.breaker.State().String()
}

type response struct {
	status int
	body   []byte
}

// do sends one request through the breaker. Non-2xx answers come back as
// *Error carrying failMsg.
func (c *Client) do(ctx context.Context, endpoint, failMsg string, build func(context.Context) (*http.Request, error)) (*response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	out, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := build(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%s request failed: %w", endpoint, err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s response: %w", endpoint, err)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, &Error{
				Endpoint:   endpoint,
				StatusCode: resp.StatusCode,
				Message:    failMsg,
				Detail:     serverMessage(body),
			}
		}
		return &response{status: resp.StatusCode, body: body}, nil
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		c.logger.Warn("request rejected by circuit breaker", zap.String("endpoint", endpoint))
		return nil, fmt.Errorf("%s: %w", endpoint, ErrUnavailable)
	}
	if err != nil {
		c.logger.Debug("request failed",
			zap.String("endpoint", endpoint),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, err
	}

	resp := out.(*response)
	c.logger.Debug("request done",
		zap.String("endpoint", endpoint),
		zap.Int("status", resp.status),
		zap.Int("bytes", len(resp.body)),
		zap.Duration("elapsed", time.Since(start)))
	return resp, nil
}

type ipaResponse struct {
	IPA      string `json:"ipa"`
	IPAError string `json:"ipa_error"`
	Success  *bool  `json:"success"`
}

// RequestIPA asks the backend for the IPA transcription of word. A blank word
// is rejected locally and nothing is sent.
func (c *Client) RequestIPA(ctx context.Context, word string) (*phonetic.TargetWord, error) {
	w, err := phonetic.NormalizeWord(word)
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("target_word", w)

	resp, err := c.do(ctx, "/ipa", MsgIPAFailed, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ipa", strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, err
	}

	var body ipaResponse
	if err := json.Unmarshal(resp.body, &body); err != nil {
		return nil, &Error{Endpoint: "/ipa", StatusCode: resp.status, Message: MsgIPAFailed, Detail: "invalid JSON response"}
	}
	if body.Success != nil && !*body.Success && body.IPAError == "" {
		c.logger.Info("ipa endpoint reported failure without ipa_error", zap.String("word", w))
	}

	return &phonetic.TargetWord{Word: w, IPA: body.IPA, IPAError: body.IPAError}, nil
}

// Analyze uploads the audio sample together with the target word and returns
// the backend's analysis payload untouched
func (c *Client) Analyze(ctx context.Context, word string, sample io.Reader, filename, contentType string) (json.RawMessage, error) {
	if sample == nil {
		return nil, fmt.Errorf("no audio sample to analyze")
	}
	data, err := audio.ReadSample(sample)
	if err != nil {
		return nil, err
	}
	if filename == "" {
		filename = "audio"
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	resp, err := c.do(ctx, "/analyze", MsgAnalyzeFailed, func(ctx context.Context) (*http.Request, error) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)

		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="audioFile"; filename="%s"`, escapeQuotes(filename)))
		h.Set("Content-Type", contentType)
		part, err := mw.CreatePart(h)
		if err != nil {
			return nil, err
		}
		if _, err := part.Write(data); err != nil {
			return nil, err
		}
		if err := mw.WriteField("target_word", word); err != nil {
			return nil, err
		}
		if err := mw.Close(); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analyze", &buf)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, err
	}

	if !json.Valid(resp.body) {
		return nil, &Error{Endpoint: "/analyze", StatusCode: resp.status, Message: MsgAnalyzeFailed, Detail: "invalid JSON response"}
	}
	return json.RawMessage(resp.body), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

type rankingsRequest struct {
	Sliders criteria.Weights    `json:"sliders"`
	IPA     phonetic.TargetWord `json:"ipa"`
}

// SaveRankings submits the criteria weights for word to the scoring service.
// The weights are validated first; invalid weights never reach the network.
func (c *Client) SaveRankings(ctx context.Context, weights criteria.Weights, word phonetic.TargetWord) (*results.AnalysisResult, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(rankingsRequest{Sliders: weights, IPA: word})
	if err != nil {
		return nil, fmt.Errorf("failed to encode rankings: %w", err)
	}

	resp, err := c.do(ctx, "/save-rankings", MsgRankingsFailed, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.scoringURL+"/save-rankings", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		var apiErr *Error
		if errors.As(err, &apiErr) && apiErr.Detail != "" {
			// The scoring service's own error text replaces the generic one
			apiErr.Message, apiErr.Detail = apiErr.Detail, ""
		}
		return nil, err
	}

	// A 2xx answer only fails on an "error" member when no scores came back
	var result results.AnalysisResult
	decodeErr := json.Unmarshal(resp.body, &result)
	if msg := errorMember(resp.body); msg != "" {
		if decodeErr != nil || len(result.FinalTable) == 0 {
			return nil, &Error{Endpoint: "/save-rankings", StatusCode: resp.status, Message: msg}
		}
		c.logger.Warn("scoring service returned scores with an error", zap.String("error", msg))
	}
	if decodeErr != nil {
		return nil, &Error{Endpoint: "/save-rankings", StatusCode: resp.status, Message: MsgRankingsFailed, Detail: decodeErr.Error()}
	}
	if result.TargetWord == "" {
		result.TargetWord = word.Word
	}
	return &result, nil
}
