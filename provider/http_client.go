package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	defaultTimeout  = 15 * time.Second
	maxResponseBody = 1 << 20
	userAgent       = "notes-auth-client/1.0"
)

// HTTPClient implements Provider over the provider's REST routes.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

var _ Provider = (*HTTPClient)(nil)

type HTTPClientOption func(*HTTPClient)

// WithTimeout sets the per-request timeout of the default transport.
func WithTimeout(d time.Duration) HTTPClientOption {
	return func(c *HTTPClient) {
		if d > 0 {
			c.client.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) HTTPClientOption {
	return func(c *HTTPClient) {
		if hc != nil {
			c.client = hc
		}
	}
}

// NewHTTPClient returns a client for the provider rooted at baseURL.
func NewHTTPClient(baseURL string, options ...HTTPClientOption) *HTTPClient {
	c := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

type signInRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	JWTToken string   `json:"jwtToken"`
	Username string   `json:"username,omitempty"`
	Roles    []string `json:"roles,omitempty"`
}

type twoFactorStatusResponse struct {
	Enabled bool `json:"is2faEnabled"`
}

func (c *HTTPClient) SignIn(ctx context.Context, username, password string) (string, error) {
	var resp tokenResponse
	err := c.sendJSON(ctx, http.MethodPost, RouteSignIn, "", signInRequest{Username: username, Password: password}, &resp)
	if err != nil {
		return "", err
	}
	if resp.JWTToken == "" {
		return "", ErrEmptyToken
	}
	return resp.JWTToken, nil
}

func (c *HTTPClient) SignUp(ctx context.Context, req SignUpRequest) error {
	return c.sendJSON(ctx, http.MethodPost, RouteSignUp, "", req, nil)
}

func (c *HTTPClient) VerifyTwoFactorLogin(ctx context.Context, pendingToken, code string) (string, error) {
	form := url.Values{}
	form.Set("code", code)
	form.Set("jwtToken", pendingToken)

	var raw []byte
	if err := c.sendForm(ctx, http.MethodPost, RouteVerifyTwoFactorLogin, "", form, &raw); err != nil {
		return "", err
	}
	var resp tokenResponse
	if json.Unmarshal(raw, &resp) == nil && resp.JWTToken != "" {
		return resp.JWTToken, nil
	}
	return pendingToken, nil
}

func (c *HTTPClient) TwoFactorStatus(ctx context.Context, sessionToken string) (bool, error) {
	var resp twoFactorStatusResponse
	if err := c.sendJSON(ctx, http.MethodGet, RouteTwoFactorStatus, sessionToken, nil, &resp); err != nil {
		return false, err
	}
	return resp.Enabled, nil
}

func (c *HTTPClient) EnableTwoFactor(ctx context.Context, sessionToken string) (string, error) {
	var raw []byte
	if err := c.sendForm(ctx, http.MethodPost, RouteEnableTwoFactor, sessionToken, nil, &raw); err != nil {
		return "", err
	}
	return strings.Trim(strings.TrimSpace(string(raw)), `"`), nil
}

func (c *HTTPClient) VerifyTwoFactor(ctx context.Context, sessionToken, code string) error {
	form := url.Values{}
	form.Set("code", code)
	return c.sendForm(ctx, http.MethodPost, RouteVerifyTwoFactor, sessionToken, form, nil)
}

func (c *HTTPClient) DisableTwoFactor(ctx context.Context, sessionToken string) error {
	return c.sendForm(ctx, http.MethodPost, RouteDisableTwoFactor, sessionToken, nil, nil)
}

func (c *HTTPClient) CurrentUser(ctx context.Context, sessionToken string) (*AccountRecord, error) {
	var rec AccountRecord
	if err := c.sendJSON(ctx, http.MethodGet, RouteCurrentUser, sessionToken, nil, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (c *HTTPClient) UpdateCredentials(ctx context.Context, sessionToken, newUsername, newPassword string) error {
	form := url.Values{}
	form.Set("token", sessionToken)
	form.Set("newUsername", newUsername)
	form.Set("newPassword", newPassword)
	return c.sendForm(ctx, http.MethodPost, RouteUpdateCredentials, sessionToken, form, nil)
}

func (c *HTTPClient) UpdateStatus(ctx context.Context, sessionToken string, flag StatusFlag, value bool) error {
	if !flag.Valid() {
		return fmt.Errorf("unknown status flag %q", flag)
	}
	form := url.Values{}
	form.Set("token", sessionToken)
	form.Set(flag.Param(), strconv.FormatBool(value))
	return c.sendForm(ctx, http.MethodPut, flag.Route(), sessionToken, form, nil)
}

func (c *HTTPClient) ForgotPassword(ctx context.Context, email string) error {
	form := url.Values{}
	form.Set("email", email)
	return c.sendForm(ctx, http.MethodPost, RouteForgotPassword, "", form, nil)
}

func (c *HTTPClient) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	form := url.Values{}
	form.Set("token", resetToken)
	form.Set("newPassword", newPassword)
	return c.sendForm(ctx, http.MethodPost, RouteResetPassword, "", form, nil)
}

func (c *HTTPClient) sendJSON(ctx context.Context, method, route, sessionToken string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding %s body: %w", route, err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := c.newRequest(ctx, method, route, sessionToken, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *HTTPClient) sendForm(ctx context.Context, method, route, sessionToken string, form url.Values, out any) error {
	req, err := c.newRequest(ctx, method, route, sessionToken, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, out)
}

func (c *HTTPClient) newRequest(ctx context.Context, method, route, sessionToken string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+route, body)
	if err != nil {
		return nil, fmt.Errorf("building %s %s: %w", method, route, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if sessionToken != "" {
		(&oauth2.Token{AccessToken: sessionToken, TokenType: "Bearer"}).SetAuthHeader(req)
	}
	return req, nil
}

// do sends req and decodes a 2xx body into out. out may be nil, a *[]byte for the raw body,
// or any JSON target.
func (c *HTTPClient) do(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		log.Warn().Err(err).Str("route", req.URL.Path).Msg("provider request failed")
		return fmt.Errorf("%w: %s %s: %w", ErrNotTransmitted, req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return fmt.Errorf("reading %s response: %w", req.URL.Path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Debug().Int("status", resp.StatusCode).Str("route", req.URL.Path).Msg("provider rejected request")
		return newStatusError(resp.StatusCode, data)
	}

	switch o := out.(type) {
	case nil:
		return nil
	case *[]byte:
		*o = data
		return nil
	default:
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decoding %s response: %w", req.URL.Path, err)
		}
		return nil
	}
}
