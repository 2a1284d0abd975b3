package stoat

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	botToken     = "bot-token-short"
	sessionToken = "session-token-that-is-much-longer-than-any-bot-token-ever-issued"
)

func testClient(t *testing.T, token string, handler http.Handler) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL, token)
	require.NoError(t, err)

	c.sleep = func(context.Context, time.Duration) {}

	return c
}

func TestNewClientRequiresToken(t *testing.T) {
	_, err := NewClient("", "")
	assert.ErrorIs(t, err, ErrTokenMissing)
}

func TestTokenHeaderSelection(t *testing.T) {
	var header http.Header

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header = r.Header.Clone()
		w.Write([]byte("{}"))
	})

	c := testClient(t, botToken, handler)
	require.NoError(t, c.do(context.Background(), http.MethodGet, "/users/@me", nil, nil))
	assert.Equal(t, botToken, header.Get("X-Bot-Token"))
	assert.Empty(t, header.Get("X-Session-Token"))

	c = testClient(t, sessionToken, handler)
	require.NoError(t, c.do(context.Background(), http.MethodGet, "/users/@me", nil, nil))
	assert.Equal(t, sessionToken, header.Get("X-Session-Token"))
	assert.Empty(t, header.Get("X-Bot-Token"))
}

func TestDoRetriesThrottledRequests(t *testing.T) {
	attempts := 0

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts++

		if attempts < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"retry_after": 1}`))

			return
		}

		w.Write([]byte(`{"_id": "srv1"}`))
	})

	c := testClient(t, botToken, handler)

	var out struct {
		ID string `json:"_id"`
	}

	require.NoError(t, c.do(context.Background(), http.MethodGet, "/servers/srv1", nil, &out))
	assert.Equal(t, 3, attempts)
	assert.Equal(t, "srv1", out.ID)
}

func TestDoRetriesBadGateway(t *testing.T) {
	attempts := 0

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts++

		if attempts == 1 {
			w.WriteHeader(http.StatusBadGateway)

			return
		}

		w.Write([]byte("{}"))
	})

	c := testClient(t, botToken, handler)
	require.NoError(t, c.do(context.Background(), http.MethodGet, "/", nil, nil))
	assert.Equal(t, 2, attempts)
}

func TestDoGivesUpAfterBoundedAttempts(t *testing.T) {
	attempts := 0

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts++
		w.WriteHeader(http.StatusTooManyRequests)
	})

	c := testClient(t, botToken, handler)

	err := c.do(context.Background(), http.MethodGet, "/", nil, nil)
	require.Error(t, err)
	assert.Equal(t, maxAttempts, attempts)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.Status)
}

func TestDoReturnsAPIError(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"type": "NotFound"}`))
	})

	c := testClient(t, botToken, handler)

	err := c.do(context.Background(), http.MethodGet, "/servers/nope", nil, nil)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "/servers/nope", apiErr.Path)
	assert.Contains(t, err.Error(), "404")
}

func TestRetryWait(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   time.Duration
	}{
		{"bad gateway fixed", http.StatusBadGateway, "", 3 * time.Second},
		{"throttle without hint", http.StatusTooManyRequests, "{}", 3 * time.Second},
		{"throttle with hint", http.StatusTooManyRequests, `{"retry_after": 500}`, 1500 * time.Millisecond},
		{"throttle hint capped", http.StatusTooManyRequests, `{"retry_after": 60000}`, 15 * time.Second},
		{"garbage body", http.StatusTooManyRequests, "not json", 3 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, retryWait(tt.status, []byte(tt.body)))
		})
	}
}

func TestDoSendsJSONBody(t *testing.T) {
	var contentType, body string

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")

		buf := new(strings.Builder)
		_, _ = io.Copy(buf, r.Body)
		body = buf.String()

		w.Write([]byte("{}"))
	})

	c := testClient(t, botToken, handler)
	require.NoError(t, c.do(context.Background(), http.MethodPost, "/servers/create", map[string]string{"name": "Acme"}, nil))

	assert.Equal(t, "application/json", contentType)
	assert.JSONEq(t, `{"name": "Acme"}`, body)
}
