// Package quip talks to the Quip document store.
package quip

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/simonmcc/md2quip/internal/logging"
	"github.com/simonmcc/md2quip/pkg/interfaces"
)

const (
	resourceFolder = "folder"
	resourceThread = "thread"
	resourceUser   = "user"

	maxResponseBytes = 32 << 20
)

// RetryPolicy bounds retries of transient failures.
type RetryPolicy struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
}

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		InitialWait: 500 * time.Millisecond,
		MaxWait:     10 * time.Second,
	}
}

// Config configures the HTTP client.
type Config struct {
	BaseURL     string
	AccessToken string
	Timeout     time.Duration
	Retry       RetryPolicy
}

// Client implements interfaces.DocumentStore over the Quip REST API.
type Client struct {
	routes     *routes
	httpClient *http.Client
	token      string
	retry      RetryPolicy
	logger     interfaces.Logger
}

var _ interfaces.DocumentStore = (*Client)(nil)

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(logger interfaces.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient constructs a Client.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	r, err := newRoutes(cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = DefaultRetryPolicy()
	}

	c := &Client{
		routes: r,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        100,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		token:  strings.TrimSpace(cfg.AccessToken),
		retry:  cfg.Retry,
		logger: logging.NoOp(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// GetFolder fetches a folder by id or secret path token.
func (c *Client) GetFolder(ctx context.Context, idOrToken string) (*interfaces.Folder, error) {
	endpoint, err := c.routes.build(routeFolder, map[string]any{"id": idOrToken})
	if err != nil {
		return nil, err
	}
	body, err := c.do(ctx, http.MethodGet, endpoint, nil, resourceFolder, idOrToken)
	if err != nil {
		return nil, err
	}
	folder, err := decodeFolder(body)
	if err != nil {
		return nil, RemoteFailure(resourceFolder, idOrToken, 0, err, "invalid record")
	}
	return folder, nil
}

// GetThread fetches a document by id.
func (c *Client) GetThread(ctx context.Context, id string) (*interfaces.Thread, error) {
	endpoint, err := c.routes.build(routeThread, map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	body, err := c.do(ctx, http.MethodGet, endpoint, nil, resourceThread, id)
	if err != nil {
		return nil, err
	}
	thread, err := decodeThread(body)
	if err != nil {
		return nil, RemoteFailure(resourceThread, id, 0, err, "invalid record")
	}
	return thread, nil
}

// NewDocument creates a document shared into req.MemberIDs.
func (c *Client) NewDocument(ctx context.Context, req interfaces.NewDocumentRequest) (*interfaces.Thread, error) {
	endpoint, err := c.routes.build(routeNewDocument, nil)
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("content", req.Content)
	form.Set("format", string(formatOrDefault(req.Format)))
	form.Set("type", "document")
	if req.Title != "" {
		form.Set("title", req.Title)
	}
	if len(req.MemberIDs) > 0 {
		form.Set("member_ids", strings.Join(req.MemberIDs, ","))
	}

	return c.postThread(ctx, endpoint, form, "new")
}

// EditDocument changes an existing document. LocationReplaceDocument appends
// the new body and then deletes every section that existed before, so the
// document is never left empty.
func (c *Client) EditDocument(ctx context.Context, req interfaces.EditDocumentRequest) (*interfaces.Thread, error) {
	if req.Location != interfaces.LocationReplaceDocument {
		return c.editSection(ctx, req, "")
	}

	current, err := c.GetThread(ctx, req.ThreadID)
	if err != nil {
		return nil, err
	}
	sections, err := topLevelSectionIDs(current.HTML)
	if err != nil {
		return nil, RemoteFailure(resourceThread, req.ThreadID, 0, err, "unparseable document body")
	}

	appendReq := req
	appendReq.Location = interfaces.LocationAppend
	thread, err := c.editSection(ctx, appendReq, "")
	if err != nil {
		return nil, err
	}

	for _, sectionID := range sections {
		deleteReq := interfaces.EditDocumentRequest{
			ThreadID: req.ThreadID,
			Format:   req.Format,
			Location: interfaces.LocationDeleteSection,
		}
		if thread, err = c.editSection(ctx, deleteReq, sectionID); err != nil {
			return nil, err
		}
	}

	c.logger.Debug("quip.document.replaced", "thread_id", req.ThreadID, "sections_removed", len(sections))
	return thread, nil
}

// GetAuthenticatedUser returns the account behind the access token.
func (c *Client) GetAuthenticatedUser(ctx context.Context) (*interfaces.User, error) {
	endpoint, err := c.routes.build(routeCurrentUser, nil)
	if err != nil {
		return nil, err
	}
	body, err := c.do(ctx, http.MethodGet, endpoint, nil, resourceUser, "current")
	if err != nil {
		return nil, err
	}
	user, err := decodeUser(body)
	if err != nil {
		return nil, RemoteFailure(resourceUser, "current", 0, err, "invalid record")
	}
	return user, nil
}

func (c *Client) editSection(ctx context.Context, req interfaces.EditDocumentRequest, sectionID string) (*interfaces.Thread, error) {
	endpoint, err := c.routes.build(routeEditDocument, nil)
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("thread_id", req.ThreadID)
	form.Set("format", string(formatOrDefault(req.Format)))
	form.Set("location", strconv.Itoa(int(req.Location)))
	if req.Content != "" {
		form.Set("content", req.Content)
	}
	if sectionID != "" {
		form.Set("section_id", sectionID)
	}
	return c.postThread(ctx, endpoint, form, req.ThreadID)
}

func (c *Client) postThread(ctx context.Context, endpoint string, form url.Values, id string) (*interfaces.Thread, error) {
	body, err := c.do(ctx, http.MethodPost, endpoint, form, resourceThread, id)
	if err != nil {
		return nil, err
	}
	thread, err := decodeThread(body)
	if err != nil {
		return nil, RemoteFailure(resourceThread, id, 0, err, "invalid record")
	}
	return thread, nil
}

// do executes a request, retrying failures marked retryable. Writes are only
// retried after a rate limit rejection, since any other failure may hide a
// write the server already applied. The returned error is either a context
// error or a categorised store error.
func (c *Client) do(ctx context.Context, method, endpoint string, form url.Values, resource, id string) ([]byte, error) {
	for attempt := 1; ; attempt++ {
		body, err := c.once(ctx, method, endpoint, form, resource, id)
		if err == nil {
			return body, nil
		}

		var retryable *goerrors.RetryableError
		if !errors.As(err, &retryable) {
			return nil, err
		}
		if !retryable.IsRetryable() || !replayable(method, retryable.Code) || attempt >= c.retry.MaxAttempts {
			return nil, retryable.BaseError
		}

		delay := retryable.RetryDealy(attempt)
		if c.retry.MaxWait > 0 && delay > c.retry.MaxWait {
			delay = c.retry.MaxWait
		}
		c.logger.Warn("quip.request.retry",
			"resource", resource,
			"id", id,
			"attempt", attempt,
			"delay", delay,
			"status_code", retryable.Code,
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (c *Client) once(ctx context.Context, method, endpoint string, form url.Values, resource, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var payload io.Reader
	if form != nil {
		payload = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, payload)
	if err != nil {
		return nil, RemoteFailure(resource, id, 0, err, "build request")
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, c.retryable(RemoteFailure(resource, id, 0, err, "transport error"))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, c.retryable(RemoteFailure(resource, id, resp.StatusCode, err, "read response"))
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}

	envelope := decodeError(body)
	description := envelope.ErrorDescription
	if description == "" {
		description = envelope.Error
	}

	switch {
	case resp.StatusCode == http.StatusForbidden:
		return nil, AccessDenied(resource, id, resp.StatusCode, description)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, c.retryable(RemoteFailure(resource, id, resp.StatusCode, nil, description))
	default:
		return nil, RemoteFailure(resource, id, resp.StatusCode, nil, description)
	}
}

func replayable(method string, status int) bool {
	switch method {
	case http.MethodGet, http.MethodHead:
		return true
	default:
		return status == http.StatusTooManyRequests
	}
}

func (c *Client) retryable(base *goerrors.Error) *goerrors.RetryableError {
	return (&goerrors.RetryableError{BaseError: base}).
		WithRetryable(true).
		WithRetryDelay(c.retry.InitialWait)
}

func formatOrDefault(format interfaces.Format) interfaces.Format {
	if format == "" {
		return interfaces.FormatHTML
	}
	return format
}
