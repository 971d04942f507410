// Package moderation screens outgoing text against a banphrase API.
package moderation

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/go-json-experiment/json"
)

// DefaultURL is the banphrase test endpoint used when none is configured.
const DefaultURL = "https://forsen.tv/api/v1/banphrases/test"

// Client tests messages against a pajbot-style banphrase API.
type Client struct {
	// HTTP is the HTTP client for performing requests.
	// If nil, http.DefaultClient is used.
	HTTP *http.Client
	// URL is the banphrase test endpoint.
	URL string
}

// Result is the response from the banphrase API.
type Result struct {
	Banned    bool       `json:"banned"`
	Input     string     `json:"input_message"`
	Banphrase *Banphrase `json:"banphrase_data"`
}

// Banphrase describes the banphrase which matched a message.
type Banphrase struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	Phrase        string `json:"phrase"`
	Length        int    `json:"length"`
	Permanent     bool   `json:"permanent"`
	Operator      string `json:"operator"`
	CaseSensitive bool   `json:"case_sensitive"`
}

// Test submits text to the banphrase API.
// The response body is truncated to 1 MB.
func (c *Client) Test(ctx context.Context, text string) (*Result, error) {
	u, err := url.Parse(c.URL)
	if err != nil {
		return nil, fmt.Errorf("bad banphrase url: %w", err)
	}
	q := u.Query()
	q.Set("message", text)
	u.RawQuery = q.Encode()
	req, err := http.NewRequestWithContext(ctx, "POST", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("couldn't make request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("couldn't POST: %w", err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("couldn't read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("banphrase check failed: %s (%s)", b, resp.Status)
	}
	var r Result
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("couldn't decode banphrase response: %w", err)
	}
	return &r, nil
}

// Disallowed reports whether text matches a banphrase.
func (c *Client) Disallowed(ctx context.Context, text string) (bool, error) {
	r, err := c.Test(ctx, text)
	if err != nil {
		return false, err
	}
	return r.Banned, nil
}
