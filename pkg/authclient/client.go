// Package authclient is a Go client for the PrintEase API. AuthContext holds
// the signed-in user and token and persists the session the way the
// storefront does: durable storage after an explicit sign-in, ephemeral
// storage for guests.
package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"
)

// APIError is the single human-readable failure surfaced to callers.
type APIError struct {
	Status  int
	Message string
	Err     error
}

func (e *APIError) Error() string { return e.Message }

func (e *APIError) Unwrap() error { return e.Err }

// User is the public account projection returned by the API.
type User struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role"`
	Address   string `json:"address,omitempty"`
	Phone     string `json:"phone,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// Session is what AuthContext keeps in memory and in storage.
type Session struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

// SignupFields are the registration form fields.
type SignupFields struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      string `json:"role"`
	Phone     string `json:"phone,omitempty"`
	Address   string `json:"address,omitempty"`
}

// ProfileUpdate is a partial profile change. Empty fields are left unchanged.
type ProfileUpdate struct {
	FirstName string
	LastName  string
	Address   string
	Phone     string

	Avatar            io.Reader
	AvatarFilename    string
	AvatarContentType string
}

// Notification mirrors the API notification shape.
type Notification struct {
	ID          string    `json:"id"`
	RecipientID string    `json:"recipient_id"`
	Kind        string    `json:"kind"`
	Title       string    `json:"title"`
	Body        string    `json:"body,omitempty"`
	RefID       string    `json:"ref_id,omitempty"`
	Read        bool      `json:"read"`
	CreatedAt   time.Time `json:"created_at"`
}

// Client performs the raw API calls. It holds no session state.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		// No client-wide timeout: callers bound requests with ctx.
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	var s Session
	body := map[string]string{"email": email, "password": password}
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login", "", body, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) Signup(ctx context.Context, fields SignupFields) (*Session, error) {
	var s Session
	if err := c.doJSON(ctx, http.MethodPost, "/auth/register", "", fields, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) Guest(ctx context.Context) (*Session, error) {
	var s Session
	if err := c.doJSON(ctx, http.MethodPost, "/auth/guest", "", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateProfile sends a multipart PUT /auth/profile and returns the updated user.
func (c *Client) UpdateProfile(ctx context.Context, token string, u ProfileUpdate) (*User, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, v := range map[string]string{
		"first_name": u.FirstName,
		"last_name":  u.LastName,
		"address":    u.Address,
		"phone":      u.Phone,
	} {
		if v == "" {
			continue
		}
		if err := w.WriteField(name, v); err != nil {
			return nil, &APIError{Message: "could not encode profile", Err: err}
		}
	}
	if u.Avatar != nil {
		ct := u.AvatarContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="avatar"; filename=%q`, u.AvatarFilename))
		h.Set("Content-Type", ct)
		part, err := w.CreatePart(h)
		if err == nil {
			_, err = io.Copy(part, u.Avatar)
		}
		if err != nil {
			return nil, &APIError{Message: "could not read avatar", Err: err}
		}
	}
	if err := w.Close(); err != nil {
		return nil, &APIError{Message: "could not encode profile", Err: err}
	}

	var out struct {
		User User `json:"user"`
	}
	if err := c.do(ctx, http.MethodPut, "/auth/profile", token, w.FormDataContentType(), &buf, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// Notifications lists notifications addressed to recipientID.
func (c *Client) Notifications(ctx context.Context, token, recipientID string) ([]Notification, error) {
	q := url.Values{}
	q.Set("recipient", recipientID)
	var out []Notification
	if err := c.doJSON(ctx, http.MethodGet, "/api/notifications?"+q.Encode(), token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) doJSON(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return &APIError{Message: "could not encode request", Err: err}
		}
		body = bytes.NewReader(raw)
		contentType = "application/json"
	}
	return c.do(ctx, method, path, token, contentType, body, out)
}

func (c *Client) do(ctx context.Context, method, path, token, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &APIError{Message: "could not build request", Err: err}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &APIError{Message: "Unable to reach the server. Please try again.", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &APIError{Status: resp.StatusCode, Message: "Unexpected response from the server.", Err: err}
	}
	return nil
}

func decodeError(resp *http.Response) error {
	var envelope struct {
		Message string `json:"message"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(raw, &envelope); err != nil || envelope.Message == "" {
		envelope.Message = http.StatusText(resp.StatusCode)
	}
	return &APIError{
		Status:  resp.StatusCode,
		Message: envelope.Message,
		Err:     errors.New(strings.TrimSpace(string(raw))),
	}
}
