// Package ledger is the client for the remote ledger service.
//
// The service is a single web endpoint fronting a spreadsheet. Every request
// is a GET whose query string carries an "action" plus that action's
// parameters, and every answer is JSON. Business outcomes are reported in the
// body's "success" field, never through HTTP status codes.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"finpocket/internal/log"
)

// Action selects the service's behaviour for a request.
type Action string

const (
	ActionLogin         Action = "login"
	ActionGetAccounts   Action = "getAccounts"
	ActionAddAccount    Action = "addAccount"
	ActionAddExpense    Action = "addExpense"
	ActionAdjustBalance Action = "adjustBalance"
	ActionAddPocket     Action = "addPocket"
)

func (a Action) String() string { return string(a) }

// Params are sent as query parameters. Empty values are sent too.
type Params map[string]string

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 4 << 20

type Client struct {
	endpoint   *url.URL
	httpClient *http.Client
	logger     *log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client used for every call.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout bounds each call. Zero keeps the transport defaults, which
// never time out a request on their own.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			hc := *c.httpClient
			hc.Timeout = d
			c.httpClient = &hc
		}
	}
}

// WithLogger sets the logger used for call diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l.WithComponent(log.ComponentLedger)
		}
	}
}

// NewClient returns a client for the service at endpoint, which must be an
// absolute http or https URL. Query parameters already present on the
// endpoint (deployment keys, for instance) are kept on every call.
func NewClient(endpoint string, opts ...Option) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse ledger endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("ledger endpoint %q: scheme must be http or https", endpoint)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("ledger endpoint %q: missing host", endpoint)
	}

	c := &Client{
		endpoint:   u,
		httpClient: newHTTPClient(),
		logger:     log.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// newHTTPClient keeps connections alive between calls. There is no overall
// Timeout; WithTimeout adds one when configured.
func newHTTPClient() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         dialer.DialContext,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		ForceAttemptHTTP2:   true,
	}
	return &http.Client{Transport: transport}
}

// Endpoint returns the configured endpoint without per-call parameters.
func (c *Client) Endpoint() string {
	return c.endpoint.String()
}

// Call performs action with params and returns the parsed JSON body. An
// empty body is returned as JSON null. The business outcome is not
// inspected: a body of {"success":false} is returned without error.
//
// Call fails with *ConnectivityError when the request cannot be sent, the
// status is not 2xx, or the body is not JSON. It never retries.
func (c *Client) Call(ctx context.Context, action Action, params Params) (json.RawMessage, error) {
	u := *c.endpoint
	q := u.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	q.Set("action", string(action))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &ConnectivityError{Action: action, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logFailure(ctx, action, err, start)
		return nil, &ConnectivityError{Action: action, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		c.logFailure(ctx, action, err, start)
		return nil, &ConnectivityError{Action: action, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := fmt.Errorf("unexpected status %s", resp.Status)
		c.logFailure(ctx, action, err, start)
		return nil, &ConnectivityError{Action: action, StatusCode: resp.StatusCode, Err: err}
	}

	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		body = []byte("null")
	}
	if !json.Valid(body) {
		err := fmt.Errorf("%w: body is not JSON", ErrMalformedResponse)
		c.logFailure(ctx, action, err, start)
		return nil, &ConnectivityError{Action: action, StatusCode: resp.StatusCode, Err: err}
	}

	c.logger.DebugContext(ctx, "Ledger call completed",
		log.FieldAction, string(action),
		log.FieldStatusCode, resp.StatusCode,
		log.FieldDuration, time.Since(start).Milliseconds())
	return json.RawMessage(body), nil
}

func (c *Client) logFailure(ctx context.Context, action Action, err error, start time.Time) {
	errorType := log.ErrorTypeNetwork
	if errors.Is(err, ErrMalformedResponse) {
		errorType = log.ErrorTypeInternal
	}
	fields := log.NewFields().
		WithAction(string(action)).
		WithError(err, errorType)
	fields[log.FieldDuration] = time.Since(start).Milliseconds()
	c.logger.WarnContext(ctx, "Ledger call failed", fields.ToSlice()...)
}
