package stoat

import (
	"errors"
	"fmt"
)

var (
	// ErrTokenMissing is returned when a client is built without a token.
	ErrTokenMissing = errors.New("stoat: API token missing")
	// ErrAssetHostNotAllowed is returned for asset downloads from hosts
	// outside the CDN allow-list.
	ErrAssetHostNotAllowed = errors.New("stoat: asset host not allowed")
	// ErrAssetTooLarge is returned when an asset exceeds the upload cap.
	ErrAssetTooLarge = errors.New("stoat: asset exceeds maximum size")
	// ErrMFARequired is returned when a login needs a second factor.
	ErrMFARequired = errors.New("stoat: multi-factor authentication required")
	// ErrLoginFailed is returned when credentials are rejected.
	ErrLoginFailed = errors.New("stoat: login failed")
)

// APIError is a non-success response from the Stoat API.
type APIError struct {
	Status int
	Path   string
	Body   string
}

func (e *APIError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("stoat: API returned %d for %s: %s", e.Status, e.Path, e.Body)
	}

	return fmt.Sprintf("stoat: API returned %d for %s", e.Status, e.Path)
}
