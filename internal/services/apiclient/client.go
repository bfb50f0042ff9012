// Package apiclient is the pooled HTTP client shared by every REST-style
// downstream (SerpAPI, Telegram). Retries are NOT performed here; failed
// calls return a models.HTTPStatusError and the retry executor decides.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/Spower4/ghost-choice-backend/internal/models"

	fiberlog "github.com/gofiber/fiber/v2/log"
)

const maxErrorBodyBytes = 2048

// Client represents an API client with connection pooling
type Client struct {
	BaseURL    string
	Provider   string
	HTTPClient *http.Client
	Headers    map[string]string
}

// RequestOptions provides options for API requests
type RequestOptions struct {
	Headers     map[string]string
	QueryParams map[string]string
	Timeout     time.Duration
}

// ClientConfig holds configuration for the API client
type ClientConfig struct {
	BaseURL             string
	Provider            string
	Timeout             time.Duration
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
	DialTimeout         time.Duration
	KeepAlive           time.Duration
	TLSHandshakeTimeout time.Duration
}

// DefaultClientConfig returns pooled-transport defaults for the API client
func DefaultClientConfig(provider, baseURL string) *ClientConfig {
	return &ClientConfig{
		BaseURL:             baseURL,
		Provider:            provider,
		Timeout:             30 * time.Second,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		DialTimeout:         10 * time.Second,
		KeepAlive:           30 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
}

// NewClient creates a new API client for a provider
func NewClient(provider, baseURL string) *Client {
	return NewClientWithConfig(DefaultClientConfig(provider, baseURL))
}

// NewClientWithConfig creates a new API client with custom configuration
func NewClientWithConfig(config *ClientConfig) *Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   config.DialTimeout,
			KeepAlive: config.KeepAlive,
		}).DialContext,
		MaxIdleConns:        config.MaxIdleConns,
		MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
		IdleConnTimeout:     config.IdleConnTimeout,
		TLSHandshakeTimeout: config.TLSHandshakeTimeout,
		ForceAttemptHTTP2:   true,
	}

	return &Client{
		BaseURL:  config.BaseURL,
		Provider: config.Provider,
		HTTPClient: &http.Client{
			Timeout:   config.Timeout,
			Transport: transport,
		},
		Headers: map[string]string{
			"Content-Type": "application/json",
			"Accept":       "application/json",
			"User-Agent":   "ghost-choice-backend/1.0",
		},
	}
}

// Get performs a GET request and decodes the JSON response into result
func (c *Client) Get(ctx context.Context, path string, result any, opts *RequestOptions) error {
	return c.doRequest(ctx, http.MethodGet, path, nil, result, opts)
}

// Post performs a POST request and decodes the JSON response into result
func (c *Client) Post(ctx context.Context, path string, body, result any, opts *RequestOptions) error {
	return c.doRequest(ctx, http.MethodPost, path, body, result, opts)
}

func (c *Client) doRequest(ctx context.Context, method, path string, body, result any, opts *RequestOptions) error {
	if opts == nil {
		opts = &RequestOptions{}
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("error marshaling request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}

	for k, v := range c.Headers {
		req.Header.Set(k, v)
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	if len(opts.QueryParams) > 0 {
		q := req.URL.Query()
		for k, v := range opts.QueryParams {
			q.Add(k, v)
		}
		req.URL.RawQuery = q.Encode()
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			fiberlog.Errorf("Error closing response body: %v", err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return &models.HTTPStatusError{
			Provider:   c.Provider,
			StatusCode: resp.StatusCode,
			Body:       string(bodyBytes),
		}
	}

	if result == nil {
		_, err := io.Copy(io.Discard, resp.Body)
		return err
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response body: %w", err)
	}
	if err := json.Unmarshal(bodyBytes, result); err != nil {
		return fmt.Errorf("error unmarshaling response: %w", err)
	}

	return nil
}

// Close closes idle connections on the underlying transport
func (c *Client) Close() {
	if transport, ok := c.HTTPClient.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
}
