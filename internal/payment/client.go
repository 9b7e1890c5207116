// Package payment talks to the external payment-session authority. The
// provider owns session validity and expiry; this client only creates
// sessions and verifies returned session references.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	ErrSessionNotFound = errors.New("payment session not found")
	ErrProviderFailure = errors.New("payment provider request failed")
)

// Session is a created checkout session: an opaque reference plus the
// redirect target the shopper is sent to.
type Session struct {
	Ref         string `json:"id"`
	RedirectURL string `json:"url"`
}

// Verification is the provider's verdict on a returned session reference.
type Verification struct {
	Ref  string `json:"id"`
	Paid bool   `json:"paid"`
}

// SessionRequest describes what the provider should collect payment for.
type SessionRequest struct {
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	ReferenceID string `json:"reference_id"`
	SuccessURL  string `json:"success_url"`
	CancelURL   string `json:"cancel_url"`
}

// Gateway is the abstract payment authority the checkout orchestrator
// depends on.
type Gateway interface {
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
	VerifySession(ctx context.Context, sessionRef string) (*Verification, error)
}

// Config holds provider connection settings.
type Config struct {
	BaseURL    string
	APIKey     string
	SuccessURL string
	CancelURL  string
}

type client struct {
	config     Config
	httpClient *http.Client
}

// NewClient creates a Gateway backed by the provider's HTTP API
func NewClient(config Config) Gateway {
	return &client{
		config: config,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// CreateSession requests a new checkout session from the provider
func (c *client) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	if req.SuccessURL == "" {
		req.SuccessURL = c.config.SuccessURL
	}
	if req.CancelURL == "" {
		req.CancelURL = c.config.CancelURL
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode session request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/v1/checkout/sessions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build session request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment session: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("%w: create session returned %d", ErrProviderFailure, resp.StatusCode)
	}

	session := &Session{}
	if err := json.NewDecoder(resp.Body).Decode(session); err != nil {
		return nil, fmt.Errorf("failed to decode session response: %w", err)
	}
	if session.Ref == "" || session.RedirectURL == "" {
		return nil, fmt.Errorf("%w: incomplete session response", ErrProviderFailure)
	}

	return session, nil
}

// VerifySession asks the provider for the terminal state of a session.
// Expiry is the provider's determination; no local timeout is applied.
func (c *client) VerifySession(ctx context.Context, sessionRef string) (*Verification, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/v1/checkout/sessions/"+sessionRef, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build verify request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to verify payment session: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrSessionNotFound
	default:
		return nil, fmt.Errorf("%w: verify session returned %d", ErrProviderFailure, resp.StatusCode)
	}

	verification := &Verification{}
	if err := json.NewDecoder(resp.Body).Decode(verification); err != nil {
		return nil, fmt.Errorf("failed to decode verification response: %w", err)
	}

	return verification, nil
}
