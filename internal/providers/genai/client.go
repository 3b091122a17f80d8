package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/kris790/Kaleidoscope/internal/domain"
	"github.com/kris790/Kaleidoscope/internal/infra"
)

const (
	DefaultBaseURL     = "https://generativelanguage.googleapis.com/v1beta"
	DefaultVideoModel  = "veo-3.1-fast-generate-preview"
	DefaultExtendModel = "veo-3.1-generate-preview"
	DefaultTextModel   = "gemini-3-flash-preview"
	DefaultSpeechModel = "gemini-2.5-flash-preview-tts"
)

// Options controls how the Gemini client is configured.
type Options struct {
	APIKey            string
	BaseURL           string
	VideoModel        string
	ExtendModel       string
	TextModel         string
	SpeechModel       string
	RequestsPerMinute int
	HTTPClient        *http.Client
	Logger            *infra.Logger
}

// Client speaks the Gemini REST API for the three job classes the studio
// needs: long running video operations, grounded text rewrites and speech.
type Client struct {
	mu          sync.RWMutex
	apiKey      string
	baseURL     string
	videoModel  string
	extendModel string
	textModel   string
	speechModel string
	httpClient  *http.Client
	limiter     *rate.Limiter
	logger      *infra.Logger
}

// NewClient constructs a Gemini client with defaults for every unset option.
// An empty API key is allowed; calls then fail with ErrRemoteAuthExpired
// until SetAPIKey is called.
func NewClient(opts Options) (*Client, error) {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("genai: invalid base url: %w", err)
	}

	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		logger = &discard
	}

	limit := rate.Inf
	burst := 1
	if opts.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(opts.RequestsPerMinute))
		burst = max(1, opts.RequestsPerMinute/10)
	}

	return &Client{
		apiKey:      strings.TrimSpace(opts.APIKey),
		baseURL:     baseURL,
		videoModel:  firstNonEmpty(opts.VideoModel, DefaultVideoModel),
		extendModel: firstNonEmpty(opts.ExtendModel, DefaultExtendModel),
		textModel:   firstNonEmpty(opts.TextModel, DefaultTextModel),
		speechModel: firstNonEmpty(opts.SpeechModel, DefaultSpeechModel),
		httpClient:  client,
		limiter:     rate.NewLimiter(limit, burst),
		logger:      logger,
	}, nil
}

// SetAPIKey swaps the credential used for subsequent calls.
func (c *Client) SetAPIKey(key string) {
	c.mu.Lock()
	c.apiKey = strings.TrimSpace(key)
	c.mu.Unlock()
}

// HasAPIKey reports whether a credential is configured.
func (c *Client) HasAPIKey() bool {
	return c.key() != ""
}

func (c *Client) key() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.apiKey
}

func (c *Client) invoke(ctx context.Context, method, path string, payload any, out any) error {
	key := c.key()
	if key == "" {
		return fmt.Errorf("%w: gemini api key is not configured", domain.ErrRemoteAuthExpired)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	q := req.URL.Query()
	q.Set("key", key)
	req.URL.RawQuery = q.Encode()
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError(ctx, "invoke gemini", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeAPIError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode gemini response: %v", domain.ErrRemoteTransient, err)
	}
	return nil
}

// Download fetches a generated media file. Gemini file URIs require the API
// key as a query parameter.
func (c *Client) Download(ctx context.Context, uri string) ([]byte, string, error) {
	key := c.key()
	if key == "" {
		return nil, "", fmt.Errorf("%w: gemini api key is not configured", domain.ErrRemoteAuthExpired)
	}
	target := uri
	if !strings.HasPrefix(uri, "http://") && !strings.HasPrefix(uri, "https://") {
		target = c.baseURL + "/" + strings.TrimLeft(uri, "/")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create download request: %w", err)
	}
	q := req.URL.Query()
	q.Set("key", key)
	req.URL.RawQuery = q.Encode()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", transportError(ctx, "download file", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, "", decodeAPIError(resp)
	}
	blob, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", transportError(ctx, "read file", err)
	}
	if len(blob) == 0 {
		return nil, "", fmt.Errorf("%w: downloaded file is empty", domain.ErrEmptyResultPayload)
	}
	c.logger.Debug().Int("bytes", len(blob)).Msg("genai: downloaded media")
	return blob, resp.Header.Get("Content-Type"), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
