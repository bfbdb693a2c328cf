// Package api is a client for the QA Learning Platform chat API: health,
// authentication, session management, message exchange and file upload.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/sonnes/qachat/core"
)

const (
	// BasePath prefixes every API route except /health.
	BasePath = "/api/v1"

	// SessionCookie carries the authenticated user session.
	SessionCookie = "session_id"

	DefaultBaseURL = "http://localhost:8000"
	DefaultTimeout = 15 * time.Second
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
)

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Op         string
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s: %d %s", e.Op, e.StatusCode, http.StatusText(e.StatusCode))
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Is maps 404 onto ErrNotFound and 401/403 onto ErrUnauthorized.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	}
	return false
}

// Client talks to one backend.
type Client struct {
	baseURL string
	http    *http.Client
	session string
	logger  *log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds every request. The default is DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithSession authenticates requests with the given session cookie value.
func WithSession(token string) Option {
	return func(c *Client) { c.session = token }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a Client for the backend at baseURL.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
		logger:  log.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend root URL.
func (c *Client) BaseURL() string { return c.baseURL }

// LoginURL is where a browser starts the Google sign-in flow. The backend
// sets the session cookie on completion.
func (c *Client) LoginURL() string {
	return c.baseURL + BasePath + "/auth/google"
}

// Health reports whether the backend answers GET /health.
func (c *Client) Health(ctx context.Context) error {
	var out HealthResponse
	return c.do(ctx, "health", http.MethodGet, "/health", nil, "", &out)
}

// Me returns the signed-in user, or nil when the session is anonymous.
func (c *Client) Me(ctx context.Context) (*core.User, error) {
	var out MeResponse
	if err := c.do(ctx, "get user", http.MethodGet, BasePath+"/auth/me", nil, "", &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

// Logout ends the user session on the backend.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, "logout", http.MethodPost, BasePath+"/auth/logout", nil, "", nil)
}

// CreateSession opens a new chat session.
func (c *Client) CreateSession(ctx context.Context) (*CreateSessionResponse, error) {
	var out CreateSessionResponse
	if err := c.doJSON(ctx, "create session", http.MethodPost, BasePath+"/sessions", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteSession removes a session and its thread.
func (c *Client) DeleteSession(ctx context.Context, id string) (*DeleteSessionResponse, error) {
	var out DeleteSessionResponse
	path := BasePath + "/sessions/" + url.PathEscape(id)
	if err := c.do(ctx, "delete session", http.MethodDelete, path, nil, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListSessions returns every session the backend knows about.
func (c *Client) ListSessions(ctx context.Context) ([]core.Session, error) {
	var out ListSessionsResponse
	if err := c.do(ctx, "list sessions", http.MethodGet, BasePath+"/sessions", nil, "", &out); err != nil {
		return nil, err
	}
	sessions := make([]core.Session, len(out.Sessions))
	for i, s := range out.Sessions {
		sessions[i] = s.Session()
	}
	return sessions, nil
}

// SessionMessages returns the thread of one session.
func (c *Client) SessionMessages(ctx context.Context, id string) ([]core.Message, error) {
	var out SessionMessagesResponse
	path := BasePath + "/sessions/" + url.PathEscape(id) + "/messages"
	if err := c.do(ctx, "get session messages", http.MethodGet, path, nil, "", &out); err != nil {
		return nil, err
	}
	msgs := make([]core.Message, len(out.Messages))
	for i, m := range out.Messages {
		msgs[i] = m.Message()
	}
	return msgs, nil
}

// SendMessage posts a prompt and waits for the complete assistant answer.
func (c *Client) SendMessage(ctx context.Context, req SendMessageRequest) (*SendMessageResponse, error) {
	var out SendMessageResponse
	if err := c.doJSON(ctx, "send message", http.MethodPost, BasePath+"/chat", req, &out); err != nil {
		return nil, err
	}
	if out.AssistantResponse == nil {
		return nil, fmt.Errorf("send message: response has no assistant answer")
	}
	return &out, nil
}

// UploadFile sends a file for the assistant to use. The content type is
// taken from the file extension, falling back to content sniffing.
func (c *Client) UploadFile(ctx context.Context, name string, r io.Reader) (*UploadFileResponse, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("upload file: read %s: %w", name, err)
	}

	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(name)))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("upload file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("upload file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("upload file: %w", err)
	}

	var out UploadFileResponse
	if err := c.do(ctx, "upload file", http.MethodPost, BasePath+"/upload", &body, mw.FormDataContentType(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	} else if method == http.MethodPost {
		contentType = "application/json"
	}
	return c.do(ctx, op, method, path, body, contentType, out)
}

func (c *Client) do(ctx context.Context, op, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if c.session != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: c.session})
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()
	c.logger.Debug("api request", "method", method, "path", path, "status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Op: op, StatusCode: resp.StatusCode, Detail: readDetail(resp.Body)}
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

// readDetail extracts a human-readable reason from an error body.
func readDetail(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(data) == 0 {
		return ""
	}
	var e errorResponse
	if json.Unmarshal(data, &e) == nil {
		if e.Detail != "" {
			return e.Detail
		}
		if e.Error != "" {
			return e.Error
		}
	}
	return strings.TrimSpace(string(data))
}
