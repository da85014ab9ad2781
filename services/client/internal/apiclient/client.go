package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"librarycatalog/internal/ratelimit"
	"librarycatalog/internal/util"
)

const (
	DefaultGenresPath         = "/genres"
	DefaultGenresFallbackPath = "/genre"
	DefaultTimeout            = 10 * time.Second
)

// Options tunes a Client. The zero value gives a 10s timeout, no throttle and
// the default genre paths. A negative Timeout disables the client timeout.
type Options struct {
	Timeout            time.Duration
	Limiter            ratelimit.Limiter
	Transport          http.RoundTripper
	GenresPath         string
	GenresFallbackPath string
}

// Client calls the library catalog REST API.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	limiter        ratelimit.Limiter
	genresPath     string
	genresFallback string
}

// NewClient constructs a catalog API client.
func NewClient(baseURL string, opts Options) *Client {
	timeout := opts.Timeout
	switch {
	case timeout == 0:
		timeout = DefaultTimeout
	case timeout < 0:
		timeout = 0
	}
	genres := strings.TrimSpace(opts.GenresPath)
	if genres == "" {
		genres = DefaultGenresPath
	}
	alt := strings.TrimSpace(opts.GenresFallbackPath)
	if alt == "" {
		alt = DefaultGenresFallbackPath
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: util.WithRequestID(util.WithRequestLog(opts.Transport)),
		},
		limiter:        opts.Limiter,
		genresPath:     genres,
		genresFallback: alt,
	}
}

// BaseURL returns the API origin.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// envelope is the response shape shared by every endpoint.
type envelope[T any] struct {
	Success    *bool       `json:"success"`
	Message    string      `json:"message"`
	Error      string      `json:"error"`
	Data       T           `json:"data"`
	Pagination *pagination `json:"pagination"`
}

// ack is the envelope of write calls whose data payload is not read.
type ack = envelope[json.RawMessage]

type pagination struct {
	TotalPages int `json:"totalPages"`
}

func (e envelope[T]) message() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}

func (c *Client) doJSON(ctx context.Context, method, path, token string, query url.Values, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := c.newRequest(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	addAuthHeader(req, token)
	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// do sends req and decodes the body into out. Non-2xx responses become
// *APIError carrying the server message; network failures become *TransportError.
func (c *Client) do(req *http.Request, out any) error {
	op := req.Method + " " + req.URL.Path
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return &TransportError{Op: op, Err: err}
		}
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp envelope[json.RawMessage]
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		return &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(errResp.message())}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return fmt.Errorf("decode %s: %w", op, err)
	}
	return nil
}

// checkSuccess turns success=false into an APIError. When strict, a missing
// success flag is also a failure.
func checkSuccess[T any](env envelope[T], status int, strict bool) error {
	if env.Success != nil && *env.Success {
		return nil
	}
	if env.Success == nil && !strict {
		return nil
	}
	return &APIError{Status: status, Message: strings.TrimSpace(env.message())}
}

func addAuthHeader(req *http.Request, token string) {
	if strings.TrimSpace(token) == "" {
		return
	}
	req.Header.Set("Authorization", "Bearer "+token)
}
