// Copyright 2026 The Courier Authors
// SPDX-License-Identifier: Apache-2.0

package botapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/courier-foundation/courier/lib/netutil"
	"github.com/courier-foundation/courier/lib/secret"
)

// ClientConfig holds configuration for creating a Client.
type ClientConfig struct {
	// BaseURL is the API server root (e.g. "https://api.telegram.org").
	// If empty, the public server is used.
	BaseURL string
	// Token is the bot token from @BotFather. It is moved into
	// mmap-backed memory on construction; the original string remains
	// on the heap briefly until collected.
	Token string
	// TokenBuffer supplies the token as an already-protected buffer,
	// for callers that read it with secret.ReadFromPath. The Client
	// takes ownership and releases it on Close. Set exactly one of
	// Token and TokenBuffer.
	TokenBuffer *secret.Buffer
	// HTTPClient is used for all requests. If nil, http.DefaultClient
	// is used. Do not set HTTPClient.Timeout on a client that will
	// long-poll, it would cut polls short; deadlines travel per
	// request via context.
	HTTPClient *http.Client
	// Logger is used for structured logging. If nil, slog.Default()
	// is used.
	Logger *slog.Logger
}

// defaultBaseURL is the public Bot API server.
const defaultBaseURL = "https://api.telegram.org"

// Client is the Bot API transport adapter. It owns the token and HTTP
// transport and speaks the wire protocol; method semantics live in
// [Bot].
type Client struct {
	baseURL    string
	token      *secret.Buffer
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a Client for the given token.
//
// The caller must call Close when done to release the protected token
// memory.
func NewClient(config ClientConfig) (*Client, error) {
	if config.Token == "" && config.TokenBuffer == nil {
		return nil, fmt.Errorf("botapi: Token is required")
	}
	if config.Token != "" && config.TokenBuffer != nil {
		return nil, fmt.Errorf("botapi: set exactly one of Token and TokenBuffer")
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	// Validate the URL structure. We store the string form (with
	// trailing slash stripped) and build request URLs by direct
	// concatenation: the token and method name are the only path
	// segments and neither needs escaping.
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("botapi: invalid BaseURL %q: %w", baseURL, err)
	}

	token := config.TokenBuffer
	if token == nil {
		var err error
		token, err = secret.NewFromString(config.Token)
		if err != nil {
			return nil, fmt.Errorf("botapi: protecting token: %w", err)
		}
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Close releases the protected token memory. The Client must not be
// used afterwards.
func (c *Client) Close() error {
	return c.token.Close()
}

// CloseIdleConnections closes idle HTTP connections in the underlying
// transport's connection pool. Call this after a network disruption to
// force subsequent requests to establish fresh TCP connections instead
// of reusing a poisoned pooled connection.
func (c *Client) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}

// invokeMethod POSTs a form-encoded method call and returns the
// decoded envelope's result bytes. params may be nil for parameterless
// methods.
func (c *Client) invokeMethod(ctx context.Context, method string, params url.Values) (json.RawMessage, error) {
	var body io.Reader
	contentType := ""
	if params != nil {
		body = strings.NewReader(params.Encode())
		contentType = "application/x-www-form-urlencoded"
	}
	return c.do(ctx, method, contentType, body)
}

// invokeUpload POSTs a multipart method call carrying file content
// alongside the scalar params.
func (c *Client) invokeUpload(ctx context.Context, method string, params url.Values, parts []filePart) (json.RawMessage, error) {
	body, contentType, err := buildMultipart(params, parts)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, method, contentType, body)
}

func (c *Client) do(ctx context.Context, method, contentType string, body io.Reader) (json.RawMessage, error) {
	requestURL := c.baseURL + "/bot" + c.token.String() + "/" + method

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, requestURL, body)
	if err != nil {
		return nil, &TransportError{Method: method, Err: err}
	}
	if contentType != "" {
		request.Header.Set("Content-Type", contentType)
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, &TransportError{Method: method, Err: err}
	}
	defer response.Body.Close()
	c.logger.Debug("method call answered", "method", method, "status", response.StatusCode)

	responseBody, err := netutil.ReadResponse(response.Body)
	if err != nil {
		return nil, &TransportError{Method: method, Err: err}
	}

	return decodeEnvelope(response.StatusCode, responseBody)
}

// envelope is the uniform response wrapper: every Bot API response is
// a JSON object with an ok flag and either a result or an error
// description.
type envelope struct {
	OK          bool                `json:"ok"`
	Result      json.RawMessage     `json:"result"`
	ErrorCode   int                 `json:"error_code"`
	Description string              `json:"description"`
	Parameters  *responseParameters `json:"parameters"`
}

// responseParameters carries the optional retry and migration hints
// attached to some rejections.
type responseParameters struct {
	MigrateToChatID int64 `json:"migrate_to_chat_id"`
	RetryAfter      int   `json:"retry_after"`
}

// decodeEnvelope parses the response wrapper. The HTTP status usually
// mirrors the envelope's error_code, but the envelope is authoritative:
// some deployments answer 200 with ok:false.
func decodeEnvelope(statusCode int, body []byte) (json.RawMessage, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &DecodingError{StatusCode: statusCode, Snippet: bodySnippet(body), Err: err}
	}

	if env.OK {
		return env.Result, nil
	}

	if env.ErrorCode == 0 && env.Description == "" {
		// JSON, but not a Bot API envelope. Likely an intermediary's
		// error page.
		return nil, &DecodingError{
			StatusCode: statusCode,
			Snippet:    bodySnippet(body),
			Err:        errors.New("response is not a Bot API envelope"),
		}
	}

	apiErr := &APIError{
		Code:        env.ErrorCode,
		Description: env.Description,
		StatusCode:  statusCode,
	}
	if apiErr.Code == 0 {
		apiErr.Code = statusCode
	}
	if env.Parameters != nil {
		apiErr.RetryAfter = env.Parameters.RetryAfter
		apiErr.MigrateToChatID = env.Parameters.MigrateToChatID
	}
	return nil, apiErr
}

// DownloadFile streams the file at filePath (from a getFile result)
// into w, returning the byte count. Rejections arrive in the same
// envelope shape as method calls and surface as *APIError.
func (c *Client) DownloadFile(ctx context.Context, filePath string, w io.Writer) (int64, error) {
	if filePath == "" {
		return 0, &EncodingError{Field: "file_path", Reason: "required"}
	}

	requestURL := c.baseURL + "/file/bot" + c.token.String() + "/" + filePath

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return 0, &TransportError{Method: "download", Err: err}
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return 0, &TransportError{Method: "download", Err: err}
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		responseBody, readErr := netutil.ReadResponse(response.Body)
		if readErr != nil {
			return 0, &TransportError{Method: "download", Err: readErr}
		}
		if _, envErr := decodeEnvelope(response.StatusCode, responseBody); envErr != nil {
			return 0, envErr
		}
		return 0, &DecodingError{
			StatusCode: response.StatusCode,
			Snippet:    bodySnippet(responseBody),
			Err:        errors.New("success envelope on error status"),
		}
	}

	written, err := io.Copy(w, io.LimitReader(response.Body, netutil.MaxResponseSize+1))
	if err != nil {
		return written, &TransportError{Method: "download", Err: err}
	}
	if written > netutil.MaxResponseSize {
		return written, &TransportError{
			Method: "download",
			Err:    fmt.Errorf("file exceeds %d byte limit", netutil.MaxResponseSize),
		}
	}
	return written, nil
}
