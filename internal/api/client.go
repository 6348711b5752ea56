// Package api is the HTTP client for the logistics backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// TokenSource supplies the bearer token for each request. An empty token
// sends no Authorization header.
type TokenSource interface {
	Token() string
}

type staticToken string

func (s staticToken) Token() string { return string(s) }

type Client struct {
	baseURL         string
	http            *http.Client
	tokens          TokenSource
	logger          logrus.FieldLogger
	requestIDHeader string
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTimeout sets the timeout on a copy of the current HTTP client, so a
// shared client passed to WithHTTPClient is left untouched.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		h := *c.http
		h.Timeout = d
		c.http = &h
	}
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Client) { c.logger = l }
}

func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithToken uses a fixed bearer token.
func WithToken(token string) Option {
	return WithTokenSource(staticToken(token))
}

func WithRequestIDHeader(name string) Option {
	return func(c *Client) { c.requestIDHeader = name }
}

func New(baseURL string, opts ...Option) *Client {
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	c := &Client{
		baseURL:         strings.TrimRight(baseURL, "/"),
		http:            &http.Client{Timeout: 15 * time.Second},
		tokens:          staticToken(""),
		logger:          discard,
		requestIDHeader: "X-Request-ID",
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

// envelope is the common reply shape. Auth replies carry token and user at
// the top level.
type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Errors  any             `json:"errors"`
	Token   string          `json:"token"`
	User    json.RawMessage `json:"user"`
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) (*envelope, error) {
	u := c.baseURL + "/api/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "encode body")
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.tokens.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	reqID := uuid.NewString()
	req.Header.Set(c.requestIDHeader, reqID)

	log := c.logger.WithFields(logrus.Fields{
		"method":     method,
		"path":       path,
		"request_id": reqID,
	})
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.WithError(err).Warn("request failed")
		return nil, errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}
	log = log.WithFields(logrus.Fields{"status": resp.StatusCode, "duration": time.Since(start)})

	var env envelope
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil && resp.StatusCode < 300 {
			log.WithError(err).Warn("undecodable reply")
			return nil, errors.Wrapf(err, "decode %s %s", method, path)
		}
	}

	if resp.StatusCode >= 300 || (env.Success != nil && !*env.Success) {
		apiErr := &Error{
			Status:  resp.StatusCode,
			Message: firstNonEmpty(env.Message, env.Error, http.StatusText(resp.StatusCode), DefaultErrorMessage),
			Fields:  parseFieldErrors(env.Errors),
		}
		log.WithField("message", apiErr.Message).Warn("request rejected")
		return nil, apiErr
	}
	log.Debug("request done")
	return &env, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// Params are list query parameters. Empty values are not sent.
type Params map[string]string

func (p Params) values() url.Values {
	v := url.Values{}
	for k, val := range p {
		if val != "" {
			v.Set(k, val)
		}
	}
	return v
}

// List fetches one page of a resource.
func (c *Client) List(ctx context.Context, resource string, params Params) (Page, error) {
	env, err := c.do(ctx, http.MethodGet, resource, params.values(), nil)
	if err != nil {
		return Page{}, err
	}
	return decodePage(env.Data)
}

func decodePage(data json.RawMessage) (Page, error) {
	if len(data) == 0 || string(data) == "null" {
		return Page{Items: []Record{}}, nil
	}
	if data[0] == '[' {
		var items []Record
		if err := json.Unmarshal(data, &items); err != nil {
			return Page{}, errors.Wrap(err, "decode items")
		}
		return Page{Items: items, Total: len(items)}, nil
	}
	var body struct {
		Items []Record `json:"items"`
		Total int      `json:"total"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return Page{}, errors.Wrap(err, "decode page")
	}
	if body.Items == nil {
		body.Items = []Record{}
	}
	return Page{Items: body.Items, Total: body.Total}, nil
}

func decodeRecord(data json.RawMessage) (Record, error) {
	rec := Record{}
	if len(data) == 0 || string(data) == "null" {
		return rec, nil
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, errors.Wrap(err, "decode record")
	}
	return rec, nil
}

func (c *Client) Get(ctx context.Context, resource, id string) (Record, error) {
	env, err := c.do(ctx, http.MethodGet, resource+"/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeRecord(env.Data)
}

func (c *Client) Create(ctx context.Context, resource string, rec Record) (Record, error) {
	env, err := c.do(ctx, http.MethodPost, resource, nil, rec)
	if err != nil {
		return nil, err
	}
	return decodeRecord(env.Data)
}

func (c *Client) Update(ctx context.Context, resource, id string, rec Record) (Record, error) {
	env, err := c.do(ctx, http.MethodPut, resource+"/"+url.PathEscape(id), nil, rec)
	if err != nil {
		return nil, err
	}
	return decodeRecord(env.Data)
}

func (c *Client) Delete(ctx context.Context, resource, id string) error {
	_, err := c.do(ctx, http.MethodDelete, resource+"/"+url.PathEscape(id), nil, nil)
	return err
}

// Stats fetches GET /api/{resource}/stats/{name}.
func (c *Client) Stats(ctx context.Context, resource, name string) (map[string]any, error) {
	env, err := c.do(ctx, http.MethodGet, resource+"/stats/"+name, nil, nil)
	if err != nil {
		return nil, err
	}
	rec, err := decodeRecord(env.Data)
	return map[string]any(rec), err
}

// Export fetches the full dataset of a resource for export.
func (c *Client) Export(ctx context.Context, resource string) ([]Record, error) {
	env, err := c.do(ctx, http.MethodGet, "exportar/"+resource, nil, nil)
	if err != nil {
		return nil, err
	}
	page, err := decodePage(env.Data)
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}
