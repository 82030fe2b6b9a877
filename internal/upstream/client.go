package upstream

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

	"go.uber.org/zap"

	"github.com/hstu-emis/admin-gateway/internal/models"
	appErrors "github.com/hstu-emis/admin-gateway/pkg/errors"
)

// Client talks to the EMIS REST backend. The backend is an external
// collaborator: the gateway consumes its aggregates and token endpoints
// and never recomputes what it owns.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// TokenPair is the credential pair minted by the backend on login.
type TokenPair struct {
	AccessToken  string `json:"access"`
	RefreshToken string `json:"refresh"`
}

// NewClient constructs a backend client with the given base URL and
// request timeout. Requests that outlive the timeout resolve to a
// connectivity error rather than hanging.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Login exchanges credentials for a token pair and fetches the profile
// of the authenticated user in a second call.
func (c *Client) Login(ctx context.Context, username, password string) (*TokenPair, *models.User, error) {
	body := map[string]string{"username": username, "password": password}

	var pair TokenPair
	if err := c.do(ctx, http.MethodPost, "/token/", "", body, &pair, c.mapLoginError); err != nil {
		return nil, nil, err
	}

	var user models.User
	if err := c.do(ctx, http.MethodGet, "/users/me/", pair.AccessToken, nil, &user, c.mapAuthedError); err != nil {
		return nil, nil, err
	}
	if !user.Role.Valid() {
		return nil, nil, appErrors.Wrap(fmt.Errorf("unknown role %q", user.Role), appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "backend returned an unknown role")
	}

	return &pair, &user, nil
}

// Verify asks the backend whether an access token is still accepted.
func (c *Client) Verify(ctx context.Context, accessToken string) error {
	body := map[string]string{"token": accessToken}
	return c.do(ctx, http.MethodPost, "/token/verify/", "", body, nil, c.mapAuthedError)
}

// Refresh mints a new access token from a refresh token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (string, error) {
	body := map[string]string{"refresh": refreshToken}
	var out struct {
		AccessToken string `json:"access"`
	}
	if err := c.do(ctx, http.MethodPost, "/token/refresh/", "", body, &out, c.mapAuthedError); err != nil {
		return "", err
	}
	return out.AccessToken, nil
}

// Blacklist invalidates a refresh token server-side. Used on sign-out;
// callers treat failures as best-effort.
func (c *Client) Blacklist(ctx context.Context, refreshToken string) error {
	body := map[string]string{"refresh": refreshToken}
	return c.do(ctx, http.MethodPost, "/logout/", "", body, nil, c.mapAuthedError)
}

// StudentByUsername fetches one student's profile and enrollment.
func (c *Client) StudentByUsername(ctx context.Context, accessToken, username string) (*models.Student, error) {
	path := "/student/id/" + url.PathEscape(username)
	var student models.Student
	if err := c.do(ctx, http.MethodGet, path, accessToken, nil, &student, c.mapAuthedError); err != nil {
		return nil, err
	}
	return &student, nil
}

// AcademicRecords fetches the raw record list plus the server-computed
// CGPA and credit-hour aggregates for one student.
func (c *Client) AcademicRecords(ctx context.Context, accessToken, studentID string) (*models.RecordBundle, error) {
	path := fmt.Sprintf("/academy/students/%s/academic-records/", url.PathEscape(studentID))
	var bundle models.RecordBundle
	if err := c.do(ctx, http.MethodGet, path, accessToken, nil, &bundle, c.mapAuthedError); err != nil {
		return nil, err
	}
	return &bundle, nil
}

type errorMapper func(status int, body []byte) error

func (c *Client) do(ctx context.Context, method, path, accessToken string, in, out interface{}, mapErr errorMapper) error {
	var reqBody io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "encode request")
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	res, err := c.http.Do(req)
	if err != nil {
		// No response at all. Never interpreted as token-invalid.
		return appErrors.Wrap(err, appErrors.ErrConnectivity.Code, appErrors.ErrConnectivity.Status, appErrors.ErrConnectivity.Message)
	}
	defer res.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrConnectivity.Code, appErrors.ErrConnectivity.Status, appErrors.ErrConnectivity.Message)
	}

	if res.StatusCode >= 400 {
		c.logger.Debug("upstream error",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", res.StatusCode),
		)
		return mapErr(res.StatusCode, raw)
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "decode backend response")
		}
	}
	return nil
}

type upstreamErrorBody struct {
	Detail string              `json:"detail"`
	Code   string              `json:"code"`
	Fields map[string][]string `json:"field_errors"`
}

func decodeErrorBody(raw []byte) upstreamErrorBody {
	var body upstreamErrorBody
	_ = json.Unmarshal(raw, &body)
	return body
}

// mapLoginError distinguishes the credential failure modes the UI must
// message differently: bad credentials, blocked account, unverified email.
func (c *Client) mapLoginError(status int, raw []byte) error {
	body := decodeErrorBody(raw)

	switch body.Code {
	case "account_blocked", "account_inactive":
		return appErrors.Clone(appErrors.ErrAccountBlocked, body.Detail)
	case "email_unverified":
		return appErrors.Clone(appErrors.ErrEmailUnverified, body.Detail)
	}

	switch status {
	case http.StatusUnauthorized:
		return appErrors.Clone(appErrors.ErrInvalidCredentials, "")
	case http.StatusBadRequest:
		if len(body.Fields) > 0 {
			return appErrors.FromFieldErrors(body.Fields)
		}
		return appErrors.Clone(appErrors.ErrInvalidCredentials, "")
	case http.StatusForbidden:
		return appErrors.Clone(appErrors.ErrAccountBlocked, body.Detail)
	}
	return appErrors.Clone(appErrors.ErrUpstream, body.Detail)
}

// mapAuthedError maps failures of bearer-authenticated calls. A 401 is
// an authentication rejection and triggers the single-renewal policy in
// the session layer.
func (c *Client) mapAuthedError(status int, raw []byte) error {
	body := decodeErrorBody(raw)

	switch status {
	case http.StatusUnauthorized:
		return appErrors.Clone(appErrors.ErrTokenExpired, body.Detail)
	case http.StatusForbidden:
		return appErrors.Clone(appErrors.ErrForbidden, body.Detail)
	case http.StatusNotFound:
		return appErrors.Clone(appErrors.ErrNotFound, body.Detail)
	case http.StatusBadRequest:
		if len(body.Fields) > 0 {
			return appErrors.FromFieldErrors(body.Fields)
		}
		return appErrors.Clone(appErrors.ErrValidation, body.Detail)
	}
	return appErrors.Clone(appErrors.ErrUpstream, body.Detail)
}
