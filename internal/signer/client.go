// Package signer is the HTTP client for the remote claim-signing service.
// The signer service is the sole holder of the private key that authorizes
// on-chain claim execution; this process never signs anything itself.
package signer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nippysky/Panthart-Marketplace-sub002/internal/domain"
)

// Request is the signing request body. Token is the currency's token address,
// or the zero address for the native asset. Total is a base-unit integer
// string; Deadline is unix seconds.
type Request struct {
	Account  string `json:"account"`
	Token    string `json:"token"`
	Total    string `json:"total"`
	Deadline int64  `json:"deadline"`
}

// Client calls the remote signer over HTTP with bearer authentication.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates a signer client. An empty baseURL yields a client whose Sign
// always reports domain.ErrSignerNotConfigured, so callers need no nil checks.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:   strings.TrimSpace(token),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Sign posts the claim parameters to the signer service and returns the
// signature. Any non-2xx response is surfaced with the upstream status and
// body preserved for diagnosis; nothing is retried here.
func (c *Client) Sign(ctx context.Context, req Request) (string, error) {
	if c.baseURL == "" {
		return "", domain.ErrSignerNotConfigured
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("signer: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sign", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("signer: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("signer: %w: %v", domain.ErrSignerUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("signer: %w: status %d: %s",
			domain.ErrSignerUnavailable, resp.StatusCode, string(respBody))
	}

	var out struct {
		Signature string `json:"signature"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("signer: decode response: %w", err)
	}
	if out.Signature == "" {
		return "", fmt.Errorf("signer: %w: empty signature in response", domain.ErrSignerUnavailable)
	}
	return out.Signature, nil
}
