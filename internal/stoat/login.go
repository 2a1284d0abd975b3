package stoat

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/pkg/errors"
)

// LoginRequest carries the credentials for a session login. Ticket and
// TOTPCode are only set on the second round of a multi-factor login.
type LoginRequest struct {
	Email        string
	Password     string
	FriendlyName string
	Ticket       string
	TOTPCode     string
}

// Session is an established user session.
type Session struct {
	ID     string `json:"_id"`
	UserID string `json:"user_id"`
	Token  string `json:"token"`
}

// MFAChallenge describes a pending second factor. The ticket goes back into
// the follow-up LoginRequest together with a code.
type MFAChallenge struct {
	Ticket         string   `json:"ticket"`
	AllowedMethods []string `json:"allowed_methods"`
}

// Login establishes a user session. When the account has a second factor
// enabled, the returned error is ErrMFARequired and the challenge is
// non-nil; call Login again with its ticket and a code.
func Login(ctx context.Context, baseURL string, req LoginRequest) (*Session, *MFAChallenge, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	body := map[string]interface{}{
		"friendly_name": req.FriendlyName,
	}

	if req.Ticket != "" {
		body["mfa_ticket"] = req.Ticket
		body["mfa_response"] = map[string]string{"totp_code": req.TOTPCode}
	} else {
		body["email"] = req.Email
		body["password"] = req.Password
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, nil, errors.Wrap(err, "encoding login request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/auth/session/login", bytes.NewReader(payload))
	if err != nil {
		return nil, nil, errors.Wrap(err, "building login request")
	}

	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return nil, nil, errors.Wrap(err, "calling login endpoint")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, errors.Wrap(err, "reading login response")
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, nil, ErrLoginFailed
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, nil, &APIError{Status: resp.StatusCode, Path: "/auth/session/login", Body: string(data)}
	}

	var result struct {
		Result string `json:"result"`
		Session
		MFAChallenge
	}

	if err := json.Unmarshal(data, &result); err != nil {
		return nil, nil, errors.Wrap(err, "decoding login response")
	}

	switch result.Result {
	case "Success":
		return &result.Session, nil, nil
	case "MFA":
		return nil, &result.MFAChallenge, ErrMFARequired
	default:
		return nil, nil, errors.Errorf("stoat: unexpected login result %q", result.Result)
	}
}
