// Package gemini is a typed client for the Gemini generateContent REST
// API. The rest of the system treats it as an oracle: structured input
// in, validated structured output or a typed failure out. Failures are
// always one of two kinds, ErrUnavailable or ErrSchemaMismatch, so
// callers can degrade without inspecting transport details.
package gemini

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"

	"github.com/sakshipatil0812/FinancialyAI/internal/log"
)

const (
	// DefaultBaseURL is the Gemini API endpoint
	DefaultBaseURL = "https://generativelanguage.googleapis.com"

	// DefaultModel is used when no model is configured
	DefaultModel = "gemini-2.5-flash"

	// DefaultTimeout bounds a single HTTP attempt
	DefaultTimeout = 60 * time.Second

	apiKeyHeader = "x-goog-api-key"
	contentType  = "application/json"
)

// Client talks to the Gemini API. An empty API key is allowed: every
// call then fails with ErrUnavailable, which callers already handle.
type Client struct {
	baseURL     string
	apiKey      string
	model       string
	httpClient  *http.Client
	retryClient *retryablehttp.Client
	logger      *log.Logger
}

// ClientOptions configures the client
type ClientOptions struct {
	// APIKey authenticates requests
	APIKey string

	// Model overrides DefaultModel
	Model string

	// BaseURL overrides DefaultBaseURL
	BaseURL string

	// HTTPClient allows using a custom HTTP client
	HTTPClient *http.Client

	// Timeout sets the HTTP client timeout
	Timeout time.Duration

	// RetryMax bounds retries on transient failures (default 3)
	RetryMax int

	// Logger for debug logging
	Logger *log.Logger
}

// NewClient creates a Gemini client
func NewClient(opts *ClientOptions) *Client {
	if opts == nil {
		opts = &ClientOptions{}
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: DefaultTimeout}
	}
	if opts.Timeout > 0 {
		opts.HTTPClient.Timeout = opts.Timeout
	}
	if opts.RetryMax == 0 {
		opts.RetryMax = 3
	}
	if opts.Logger == nil {
		opts.Logger = log.New(log.Config{Component: log.ComponentOracle})
	}

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = opts.HTTPClient
	retryClient.RetryMax = opts.RetryMax
	retryClient.RetryWaitMin = 500 * time.Millisecond
	retryClient.RetryWaitMax = 5 * time.Second
	retryClient.Logger = opts.Logger
	// Hand back the final response when retries run out so the status
	// code still reaches error mapping.
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Client{
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		apiKey:      opts.APIKey,
		model:       opts.Model,
		httpClient:  opts.HTTPClient,
		retryClient: retryClient,
		logger:      opts.Logger,
	}
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// generate performs a blocking generateContent call and returns the text
// of the first candidate.
func (c *Client) generate(ctx context.Context, op string, req *generateRequest) (string, error) {
	body, err := c.execute(ctx, op, req, fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model), true)
	if err != nil {
		return "", err
	}

	var gen generateResponse
	if err := json.Unmarshal(body, &gen); err != nil {
		return "", mismatch(op, "parse response", errors.Wrap(err, "unmarshal generateContent response"))
	}
	text, ok := gen.firstText()
	if !ok {
		return "", mismatch(op, "response has no text candidate", nil)
	}
	return text, nil
}

// execute sends the request and returns the raw response body. Retries
// are used only for buffered calls; streaming requests go out once.
func (c *Client) execute(ctx context.Context, op string, req *generateRequest, url string, buffered bool) ([]byte, error) {
	resp, err := c.send(ctx, op, req, url, buffered)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, unavailable(op, "read response", 0, errors.Wrap(err, "read response body"))
	}
	return respBody, nil
}

func (c *Client) send(ctx context.Context, op string, req *generateRequest, url string, buffered bool) (*http.Response, error) {
	if c.apiKey == "" {
		return nil, unavailable(op, "missing API key", 0, nil)
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, unavailable(op, "encode request", 0, errors.Wrap(err, "marshal request"))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, unavailable(op, "build request", 0, errors.Wrap(err, "new request"))
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set(apiKeyHeader, c.apiKey)

	start := time.Now()
	resp, err := c.doRequest(httpReq, buffered)
	if err != nil {
		return nil, unavailable(op, "request failed", 0, err)
	}
	c.logger.DebugContext(ctx, "Gemini request completed",
		log.FieldOperation, op,
		log.FieldModel, c.model,
		log.FieldStatusCode, resp.StatusCode,
		log.FieldDuration, time.Since(start).Milliseconds())

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(resp.Body)
		return nil, c.handleHTTPError(op, resp.StatusCode, respBody)
	}
	return resp, nil
}

// doRequest executes the HTTP request, with retry for buffered calls
func (c *Client) doRequest(req *http.Request, buffered bool) (*http.Response, error) {
	if buffered {
		retryReq, err := retryablehttp.FromRequest(req)
		if err != nil {
			return nil, err
		}
		return c.retryClient.Do(retryReq)
	}
	return c.httpClient.Do(req)
}

// handleHTTPError maps non-200 statuses. Quota, auth, and server errors
// are all "unavailable" to callers; the status is kept for logs.
func (c *Client) handleHTTPError(op string, statusCode int, body []byte) error {
	var apiErr apiErrorResponse
	_ = json.Unmarshal(body, &apiErr)

	message := apiErr.Error.Message
	if message == "" {
		message = http.StatusText(statusCode)
	}
	if apiErr.Error.Status != "" {
		message = fmt.Sprintf("%s: %s", apiErr.Error.Status, message)
	}
	return unavailable(op, message, statusCode, nil)
}

// stream performs a streamGenerateContent call over SSE, invoking
// onChunk for every text delta, and returns the concatenated reply.
func (c *Client) stream(ctx context.Context, op string, req *generateRequest, onChunk func(text string)) (string, error) {
	url := fmt.Sprintf("%s/v1beta/models/%s:streamGenerateContent?alt=sse", c.baseURL, c.model)
	resp, err := c.send(ctx, op, req, url, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var full strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" || data == "[DONE]" {
			continue
		}
		var chunk generateResponse
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return full.String(), mismatch(op, "parse stream chunk", errors.Wrap(err, "unmarshal SSE chunk"))
		}
		if text, ok := chunk.firstText(); ok {
			full.WriteString(text)
			if onChunk != nil {
				onChunk(text)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return full.String(), unavailable(op, "stream interrupted", 0, errors.Wrap(err, "read SSE stream"))
	}
	return full.String(), nil
}
