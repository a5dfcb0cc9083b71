package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"querypad/internal/model"
)

// ErrStatus is returned when the API answers with a status of 400 or above.
var ErrStatus = errors.New("unexpected response status")

type Config struct {
	// BaseURL is the API origin, e.g. http://127.0.0.1:8000.
	BaseURL string
	// Timeout bounds a whole request; zero means none.
	Timeout time.Duration
	// Retries is the number of extra attempts after a failed request.
	Retries int
	Logger  logrus.FieldLogger
}

// Client talks to the querypad API.
type Client struct {
	base *url.URL
	http *retryablehttp.Client
}

func New(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "api url")
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, errors.Errorf("api url %q: scheme must be http or https", cfg.BaseURL)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	hc := retryablehttp.NewClient()
	hc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	hc.RetryMax = max(cfg.Retries, 0)
	hc.RetryWaitMin = 100 * time.Millisecond
	hc.RetryWaitMax = 2 * time.Second
	hc.CheckRetry = retryPolicy
	hc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	hc.Logger = leveledLogger{logger.WithField("component", "api-client")}

	return &Client{base: base, http: hc}, nil
}

func (c *Client) BaseURL() string {
	return c.base.String()
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawQuery = query.Encode()
	return u.String()
}

// Greeting fetches the API greeting from GET /.
func (c *Client) Greeting(ctx context.Context) (string, error) {
	var resp model.GreetingResponse
	if err := c.do(ctx, http.MethodGet, "/", nil, nil, func(body []byte) error {
		return json.Unmarshal(body, &resp)
	}); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// Query sends text as one POST /query and decodes the returned rows.
func (c *Client) Query(ctx context.Context, text string) (model.ResultSet, error) {
	payload, err := json.Marshal(model.QueryRequest{Query: text})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	var rs model.ResultSet
	if err := c.do(ctx, http.MethodPost, "/query", nil, payload, func(body []byte) (err error) {
		rs, err = model.ParseResultSet(body)
		return err
	}); err != nil {
		return nil, err
	}
	return rs, nil
}

func (c *Client) Tables(ctx context.Context, schema string) ([]string, error) {
	query := url.Values{}
	if schema != "" {
		query.Set("schema", schema)
	}

	var resp model.TablesResponse
	if err := c.do(ctx, http.MethodGet, "/tables", query, nil, func(body []byte) error {
		return json.Unmarshal(body, &resp)
	}); err != nil {
		return nil, err
	}
	return resp.Tables, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload []byte, decode func([]byte) error) error {
	target := c.endpoint(path, query)

	var body any
	if payload != nil {
		body = payload
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrapf(err, "%s %s: read body", method, path)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		msg := resp.Status
		var apiErr model.ErrorResponse
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			msg = apiErr.Error
		}
		return errors.Wrapf(ErrStatus, "%s %s: %d: %s", method, path, resp.StatusCode, msg)
	}

	if err := decode(bytes.TrimSpace(data)); err != nil {
		return errors.Wrapf(err, "%s %s: decode", method, path)
	}
	return nil
}

// retryPolicy retries connection failures and 503 only. Any other answer
// means the server may have run the statement, and queries are not
// idempotent.
func retryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}
	return resp.StatusCode == http.StatusServiceUnavailable, nil
}

// leveledLogger adapts logrus to retryablehttp. Per-attempt chatter goes to
// debug.
type leveledLogger struct {
	entry *logrus.Entry
}

func fields(keysAndValues []any) logrus.Fields {
	f := logrus.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if k, ok := keysAndValues[i].(string); ok {
			f[k] = keysAndValues[i+1]
		}
	}
	return f
}

func (l leveledLogger) Error(msg string, kv ...any) { l.entry.WithFields(fields(kv)).Error(msg) }
func (l leveledLogger) Warn(msg string, kv ...any)  { l.entry.WithFields(fields(kv)).Warn(msg) }
func (l leveledLogger) Info(msg string, kv ...any)  { l.entry.WithFields(fields(kv)).Debug(msg) }
func (l leveledLogger) Debug(msg string, kv ...any) { l.entry.WithFields(fields(kv)).Debug(msg) }
