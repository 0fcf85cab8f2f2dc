// Package services holds the HTTP plumbing shared by the research data
// sources. Each source lives in its own subpackage and implements
// collaborator.Collaborator: it reports failures as text, never as errors.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultTimeout bounds a single outbound request when the caller's client
// has none.
const DefaultTimeout = 10 * time.Second

// maxBody caps decoded responses.
const maxBody = 4 << 20

// UserAgent is sent with every request. Yahoo rejects the Go default.
const UserAgent = "Mozilla/5.0 (compatible; pregelflow)"

// NewHTTPClient returns the client used when a source is built without one.
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: DefaultTimeout}
}

// GetJSON issues a GET to base+path with the query values. On a 200 the body
// is decoded into out. The status is returned whenever a response arrived so
// callers can map it to their own message.
func GetJSON(ctx context.Context, client *http.Client, base, path string, query url.Values, out any) (int, error) {
	u, err := url.Parse(base)
	if err != nil {
		return 0, fmt.Errorf("parse base url: %w", err)
	}
	u = u.JoinPath(path)
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	return resp.StatusCode, nil
}
