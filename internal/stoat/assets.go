package stoat

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"

	"github.com/pkg/errors"
)

const (
	// maxAssetSize caps asset downloads; Autumn rejects larger files anyway.
	maxAssetSize = 10 << 20

	fallbackAutumnURL = "https://cdn.revoltusercontent.com"
)

// allowedAssetHosts lists the CDNs assets may be fetched from. Asset URLs
// come out of user-editable mapping state, so arbitrary hosts are refused.
var allowedAssetHosts = map[string]bool{
	"cdn.discordapp.com":       true,
	"media.discordapp.net":     true,
	"cdn.revoltusercontent.com": true,
	"autumn.revolt.chat":       true,
	"stoat.chat":               true,
	"cdn.stoatusercontent.com": true,
}

// validateAssetURL checks that an asset source is https and on the CDN
// allow-list.
func validateAssetURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return errors.Wrap(err, "parsing asset url")
	}

	if u.Scheme != "https" {
		return ErrAssetHostNotAllowed
	}

	if !allowedAssetHosts[u.Hostname()] {
		return ErrAssetHostNotAllowed
	}

	return nil
}

// autumn resolves the file host URL advertised by the API root, caching the
// answer for the client's lifetime.
func (c *Client) autumn(ctx context.Context) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.autumnURL != "" {
		return c.autumnURL
	}

	var root struct {
		Features struct {
			Autumn struct {
				URL string `json:"url"`
			} `json:"autumn"`
		} `json:"features"`
	}

	if err := c.do(ctx, http.MethodGet, "/", nil, &root); err != nil || root.Features.Autumn.URL == "" {
		c.autumnURL = fallbackAutumnURL
	} else {
		c.autumnURL = root.Features.Autumn.URL
	}

	return c.autumnURL
}

// uploadAsset downloads an asset from an allow-listed CDN and uploads it to
// the file host under the given tag, returning the attachment id.
func (c *Client) uploadAsset(ctx context.Context, tag, srcURL string) (string, error) {
	if err := validateAssetURL(srcURL); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srcURL, nil)
	if err != nil {
		return "", errors.Wrap(err, "building asset request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "downloading asset")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("downloading asset: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAssetSize+1))
	if err != nil {
		return "", errors.Wrap(err, "reading asset")
	}

	if len(data) > maxAssetSize {
		return "", ErrAssetTooLarge
	}

	name := path.Base(req.URL.Path)
	if name == "" || name == "/" || name == "." {
		name = "asset"
	}

	var form bytes.Buffer

	w := multipart.NewWriter(&form)

	part, err := w.CreateFormFile("file", name)
	if err != nil {
		return "", errors.Wrap(err, "building upload form")
	}

	if _, err := part.Write(data); err != nil {
		return "", errors.Wrap(err, "building upload form")
	}

	if err := w.Close(); err != nil {
		return "", errors.Wrap(err, "building upload form")
	}

	target := c.autumn(ctx) + "/" + tag

	upload, err := http.NewRequestWithContext(ctx, http.MethodPost, target, &form)
	if err != nil {
		return "", errors.Wrap(err, "building upload request")
	}

	upload.Header.Set("Content-Type", w.FormDataContentType())
	upload.Header.Set(c.authHeader(), c.token)

	uresp, err := c.http.Do(upload)
	if err != nil {
		return "", errors.Wrap(err, "uploading asset")
	}
	defer uresp.Body.Close()

	body, err := io.ReadAll(uresp.Body)
	if err != nil {
		return "", errors.Wrap(err, "reading upload response")
	}

	if uresp.StatusCode < 200 || uresp.StatusCode > 299 {
		return "", &APIError{Status: uresp.StatusCode, Path: "/" + tag, Body: string(body)}
	}

	var out struct {
		ID string `json:"id"`
	}

	if err := json.Unmarshal(body, &out); err != nil {
		return "", errors.Wrap(err, "decoding upload response")
	}

	return out.ID, nil
}
