package stoat

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultBaseURL is the public Stoat API root.
	DefaultBaseURL = "https://api.stoat.chat"

	// sessionTokenLength separates user session tokens from bot tokens.
	// Session tokens are longer than any bot token the platform issues.
	sessionTokenLength = 60

	defaultTimeout = 30 * time.Second

	// maxAttempts bounds the retry loop for throttled or gateway-failed
	// requests.
	maxAttempts = 3

	gatewayRetryWait = 3 * time.Second
	maxRetryWait     = 15 * time.Second
)

// Client talks to one Stoat API instance with one token.
type Client struct {
	baseURL string
	token   string
	http    *http.Client

	// sleep is replaced in tests to skip real waiting.
	sleep func(context.Context, time.Duration)

	mu        sync.Mutex
	autumnURL string
}

// NewClient builds a client for the given API root. The token kind (user
// session or bot) is detected from its length.
func NewClient(baseURL, token string) (*Client, error) {
	if token == "" {
		return nil, ErrTokenMissing
	}

	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: defaultTimeout},
		sleep:   sleepCtx,
	}, nil
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (c *Client) authHeader() string {
	if len(c.token) > sessionTokenLength {
		return "X-Session-Token"
	}

	return "X-Bot-Token"
}

// retryWait derives how long to back off before retrying a throttled or
// gateway-failed request. Throttle responses carry a retry_after hint in
// milliseconds; the wait is padded and capped.
func retryWait(status int, body []byte) time.Duration {
	if status == http.StatusBadGateway {
		return gatewayRetryWait
	}

	var hint struct {
		RetryAfter int64 `json:"retry_after"`
	}

	wait := gatewayRetryWait
	if err := json.Unmarshal(body, &hint); err == nil && hint.RetryAfter > 0 {
		wait = time.Duration(hint.RetryAfter)*time.Millisecond + time.Second
	}

	if wait > maxRetryWait {
		wait = maxRetryWait
	}

	return wait
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status == http.StatusBadGateway
}

// do performs one API request, retrying throttled and gateway-failed
// responses a bounded number of times. A non-nil out receives the decoded
// response body.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var payload []byte

	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return errors.Wrap(err, "encoding request body")
		}
	}

	for attempt := 1; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return errors.Wrap(err, "building request")
		}

		req.Header.Set(c.authHeader(), c.token)

		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return errors.Wrapf(err, "calling %s %s", method, path)
		}

		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()

		if err != nil {
			return errors.Wrap(err, "reading response body")
		}

		if retryable(resp.StatusCode) && attempt < maxAttempts {
			wait := retryWait(resp.StatusCode, data)

			log.Debug().
				Int("status", resp.StatusCode).
				Int("attempt", attempt).
				Dur("wait", wait).
				Str("path", path).
				Msg("retrying throttled API call")

			c.sleep(ctx, wait)

			if ctx.Err() != nil {
				return ctx.Err()
			}

			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return &APIError{Status: resp.StatusCode, Path: path, Body: string(data)}
		}

		if out != nil && len(data) > 0 {
			if err := json.Unmarshal(data, out); err != nil {
				return errors.Wrapf(err, "decoding response of %s %s", method, path)
			}
		}

		return nil
	}
}
