package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Spower4/ghost-choice-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoResponse struct {
	Method string            `json:"method"`
	Path   string            `json:"path"`
	Query  map[string]string `json:"query"`
	Body   map[string]any    `json:"body,omitempty"`
}

func newEchoServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := echoResponse{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  map[string]string{},
		}
		for k := range r.URL.Query() {
			resp.Query[k] = r.URL.Query().Get(k)
		}
		if r.Body != nil {
			var body map[string]any
			if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
				resp.Body = body
			}
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestGetSendsQueryParams(t *testing.T) {
	server := newEchoServer(t)
	client := NewClient("serpapi", server.URL)

	var got echoResponse
	err := client.Get(context.Background(), "/search.json", &got, &RequestOptions{
		QueryParams: map[string]string{"q": "desk", "engine": "google_shopping"},
	})

	require.NoError(t, err)
	assert.Equal(t, http.MethodGet, got.Method)
	assert.Equal(t, "/search.json", got.Path)
	assert.Equal(t, "desk", got.Query["q"])
}

func TestPostSendsJSONBody(t *testing.T) {
	server := newEchoServer(t)
	client := NewClient("telegram", server.URL)

	var got echoResponse
	err := client.Post(context.Background(), "/sendMessage", map[string]string{"text": "hello"}, &got, nil)

	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "hello", got.Body["text"])
}

func TestNon2xxReturnsHTTPStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": "slow down"}`))
	}))
	t.Cleanup(server.Close)

	client := NewClient("serpapi", server.URL)
	err := client.Get(context.Background(), "/search.json", nil, nil)

	require.Error(t, err)
	var statusErr *models.HTTPStatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)
	assert.Equal(t, "serpapi", statusErr.Provider)
	assert.Contains(t, statusErr.Body, "slow down")
}

func TestErrorBodyIsCapped(t *testing.T) {
	huge := make([]byte, 10*1024)
	for i := range huge {
		huge[i] = 'x'
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write(huge)
	}))
	t.Cleanup(server.Close)

	client := NewClient("serpapi", server.URL)
	err := client.Get(context.Background(), "/x", nil, nil)

	var statusErr *models.HTTPStatusError
	require.True(t, errors.As(err, &statusErr))
	assert.LessOrEqual(t, len(statusErr.Body), maxErrorBodyBytes)
}

func TestNilResultDiscardsBody(t *testing.T) {
	server := newEchoServer(t)
	client := NewClient("serpapi", server.URL)

	assert.NoError(t, client.Get(context.Background(), "/x", nil, nil))
}

func TestContextCancellation(t *testing.T) {
	server := newEchoServer(t)
	client := NewClient("serpapi", server.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := client.Get(ctx, "/x", nil, nil)
	require.Error(t, err)
}
