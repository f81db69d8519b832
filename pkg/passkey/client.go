// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of cognito-sdk.
//
// cognito-sdk is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package passkey provides the client for the passkey/FIDO2 backend
// service: registration and authentication ceremonies, passkey CRUD, and
// the Cognito custom-auth token exchange. Each ceremony uses a fresh
// server-issued challenge, so operations are idempotent per challenge.
package passkey

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is the passkey backend capability consumed by the
// authentication flows. Implementations must return *APIError for
// non-2xx backend responses.
type Client interface {
	// RegInit starts a registration ceremony under an existing bearer
	// token (used when adding a passkey to an authenticated account).
	RegInit(ctx context.Context, bearer string, req *RegInitRequest) (*RegInitResponse, error)

	// RegComplete verifies an attestation response and issues the
	// backend access token.
	RegComplete(ctx context.Context, req *RegCompleteRequest) (*RegCompleteResponse, error)

	// AuthInit starts an authentication ceremony for a user.
	AuthInit(ctx context.Context, req *AuthInitRequest) (*AuthInitResponse, error)

	// AuthComplete verifies an assertion response and issues the backend
	// access token.
	AuthComplete(ctx context.Context, req *AuthCompleteRequest) (*AuthCompleteResponse, error)

	// AuthorizeCognito exchanges a backend access token for a Cognito
	// custom-auth token.
	AuthorizeCognito(ctx context.Context, accessJWT string) (*AuthorizeResponse, error)

	// List returns the passkeys registered for the bearer's account.
	List(ctx context.Context, bearer string) ([]Passkey, error)

	// Rename changes a passkey's display name.
	Rename(ctx context.Context, bearer, passkeyID, name string) error

	// Delete removes a passkey.
	Delete(ctx context.Context, bearer, passkeyID string) error
}

// Config configures the REST backend client.
type Config struct {
	// BaseURL is the passkey backend base URL (required).
	BaseURL string `yaml:"base_url" json:"base_url" mapstructure:"base_url"`

	// APIKey is an optional API key sent with every request.
	APIKey string `yaml:"api_key,omitempty" json:"api_key,omitempty" mapstructure:"api_key"`

	// Timeout bounds each backend request. Default: 30s.
	Timeout time.Duration `yaml:"timeout" json:"timeout" mapstructure:"timeout"`

	// HTTPClient overrides the default HTTP client (mainly for tests).
	HTTPClient *http.Client `yaml:"-" json:"-" mapstructure:"-"`
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ErrMissingBaseURL
	}
	return nil
}

// SetDefaults sets default values for unset configuration fields.
func (c *Config) SetDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
}

// RESTClient implements Client over the backend's HTTP/JSON surface.
type RESTClient struct {
	config     *Config
	httpClient *http.Client
	baseURL    string
}

// NewRESTClient creates a new REST backend client.
func NewRESTClient(cfg *Config) (*RESTClient, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	baseURL := cfg.BaseURL
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "https://" + baseURL
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	return &RESTClient{
		config:     cfg,
		httpClient: cfg.HTTPClient,
		baseURL:    baseURL,
	}, nil
}

// doRequest performs an HTTP request against the backend.
func (c *RESTClient) doRequest(ctx context.Context, method, path, bearer string, body interface{}) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.config.APIKey != "" {
		req.Header.Set("X-API-Key", c.config.APIKey)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, parseAPIError(resp.StatusCode, respBody)
	}

	return respBody, nil
}

// parseAPIError maps a non-2xx payload to an APIError. The backend uses
// either {"msg","msgCode"} or {"message"} shapes.
func parseAPIError(status int, body []byte) error {
	var errResp struct {
		Msg     string `json:"msg"`
		MsgCode string `json:"msgCode"`
		Message string `json:"message"`
	}

	apiErr := &APIError{Status: status}
	if err := json.Unmarshal(body, &errResp); err == nil {
		apiErr.Code = errResp.MsgCode
		switch {
		case errResp.Msg != "":
			apiErr.Message = errResp.Msg
		case errResp.Message != "":
			apiErr.Message = errResp.Message
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	return apiErr
}

// RegInit starts a registration ceremony.
func (c *RESTClient) RegInit(ctx context.Context, bearer string, req *RegInitRequest) (*RegInitResponse, error) {
	if bearer == "" {
		return nil, ErrMissingBearer
	}

	data, err := c.doRequest(ctx, http.MethodPost, "/reg/init", bearer, req)
	if err != nil {
		return nil, err
	}

	var resp RegInitResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &resp, nil
}

// RegComplete verifies an attestation response.
func (c *RESTClient) RegComplete(ctx context.Context, req *RegCompleteRequest) (*RegCompleteResponse, error) {
	data, err := c.doRequest(ctx, http.MethodPost, "/reg/complete", "", req)
	if err != nil {
		return nil, err
	}

	var resp RegCompleteResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &resp, nil
}

// AuthInit starts an authentication ceremony.
func (c *RESTClient) AuthInit(ctx context.Context, req *AuthInitRequest) (*AuthInitResponse, error) {
	data, err := c.doRequest(ctx, http.MethodPost, "/auth/init", "", req)
	if err != nil {
		return nil, err
	}

	var resp AuthInitResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &resp, nil
}

// AuthComplete verifies an assertion response.
func (c *RESTClient) AuthComplete(ctx context.Context, req *AuthCompleteRequest) (*AuthCompleteResponse, error) {
	data, err := c.doRequest(ctx, http.MethodPost, "/auth/complete", "", req)
	if err != nil {
		return nil, err
	}

	var resp AuthCompleteResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &resp, nil
}

// AuthorizeCognito exchanges a backend access token for a Cognito
// custom-auth token.
func (c *RESTClient) AuthorizeCognito(ctx context.Context, accessJWT string) (*AuthorizeResponse, error) {
	if accessJWT == "" {
		return nil, ErrMissingBearer
	}

	data, err := c.doRequest(ctx, http.MethodPost, "/webhook/cognito/passkeyAuthorize", accessJWT, nil)
	if err != nil {
		return nil, err
	}

	var resp AuthorizeResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &resp, nil
}

// List returns the passkeys registered for the bearer's account.
func (c *RESTClient) List(ctx context.Context, bearer string) ([]Passkey, error) {
	if bearer == "" {
		return nil, ErrMissingBearer
	}

	data, err := c.doRequest(ctx, http.MethodGet, "/passkeys", bearer, nil)
	if err != nil {
		return nil, err
	}

	var resp []Passkey
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return resp, nil
}

// Rename changes a passkey's display name.
func (c *RESTClient) Rename(ctx context.Context, bearer, passkeyID, name string) error {
	if bearer == "" {
		return ErrMissingBearer
	}

	path := fmt.Sprintf("/passkeys/%s", url.PathEscape(passkeyID))
	body := map[string]string{"name": name}

	_, err := c.doRequest(ctx, http.MethodPut, path, bearer, body)
	return err
}

// Delete removes a passkey.
func (c *RESTClient) Delete(ctx context.Context, bearer, passkeyID string) error {
	if bearer == "" {
		return ErrMissingBearer
	}

	path := fmt.Sprintf("/passkeys/%s", url.PathEscape(passkeyID))
	_, err := c.doRequest(ctx, http.MethodDelete, path, bearer, nil)
	return err
}
