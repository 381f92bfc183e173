package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ProviderError carries the HTTP status and response body of a non-2xx
// provider response. Callers decide retryability via Retryable.
type ProviderError struct {
	Status int
	Body   string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider returned %d: %s", e.Status, e.Body)
}

// Retryable reports whether the failure is worth retrying. 4xx responses
// mean bad credentials or bad input and never recover on retry.
func (e *ProviderError) Retryable() bool {
	return e.Status >= 500
}

// Client is a stateless HTTP wrapper around the telemetry provider API.
// Every call except the token exchanges requires a bearer token.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// ExchangeCode swaps an authorization code for a token pair.
func (c *Client) ExchangeCode(ctx context.Context, clientID, clientSecret, code string) (*TokenResponse, error) {
	form := url.Values{
		"grant_type":    {"authorization_code"},
		"client_id":     {clientID},
		"client_secret": {clientSecret},
		"code":          {code},
	}
	return c.tokenRequest(ctx, form)
}

// RefreshToken swaps a refresh token for a new token pair.
func (c *Client) RefreshToken(ctx context.Context, clientID, clientSecret, refreshToken string) (*TokenResponse, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {clientID},
		"client_secret": {clientSecret},
		"refresh_token": {refreshToken},
	}
	return c.tokenRequest(ctx, form)
}

func (c *Client) tokenRequest(ctx context.Context, form url.Values) (*TokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/oauth/token",
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var token TokenResponse
	if err := c.do(req, &token); err != nil {
		return nil, err
	}
	return &token, nil
}

// ListDevices returns every device visible to the credentials.
func (c *Client) ListDevices(ctx context.Context, accessToken string) ([]Device, error) {
	req, err := c.newAuthorizedRequest(ctx, http.MethodGet, "/vehicles", accessToken, nil)
	if err != nil {
		return nil, err
	}

	var devices []Device
	if err := c.do(req, &devices); err != nil {
		return nil, err
	}
	return devices, nil
}

// GetDevice returns one device, or nil when the provider reports 404.
func (c *Client) GetDevice(ctx context.Context, accessToken, imei string) (*Device, error) {
	req, err := c.newAuthorizedRequest(ctx, http.MethodGet, "/vehicles/"+url.PathEscape(imei), accessToken, nil)
	if err != nil {
		return nil, err
	}

	var device Device
	if err := c.do(req, &device); err != nil {
		var perr *ProviderError
		if errors.As(err, &perr) && perr.Status == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &device, nil
}

// ListTrips returns provider trips for a device within a time range.
func (c *Client) ListTrips(ctx context.Context, accessToken, imei string, start, end time.Time) ([]Trip, error) {
	path := fmt.Sprintf("/vehicles/%s/trips?start=%s&end=%s",
		url.PathEscape(imei),
		url.QueryEscape(start.UTC().Format(time.RFC3339)),
		url.QueryEscape(end.UTC().Format(time.RFC3339)))

	req, err := c.newAuthorizedRequest(ctx, http.MethodGet, path, accessToken, nil)
	if err != nil {
		return nil, err
	}

	var trips []Trip
	if err := c.do(req, &trips); err != nil {
		return nil, err
	}
	return trips, nil
}

// RegisterWebhook registers the callback URL for the given event types.
func (c *Client) RegisterWebhook(ctx context.Context, accessToken, callbackURL string, eventTypes []string) error {
	body, err := json.Marshal(WebhookRegistration{URL: callbackURL, EventTypes: eventTypes})
	if err != nil {
		return err
	}

	req, err := c.newAuthorizedRequest(ctx, http.MethodPost, "/webhooks", accessToken, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, nil)
}

func (c *Client) newAuthorizedRequest(ctx context.Context, method, path, accessToken string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	return req, nil
}

func (c *Client) do(req *http.Request, dest interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &ProviderError{Status: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	if dest == nil || len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dest)
}
