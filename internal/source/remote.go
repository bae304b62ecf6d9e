package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/atlekbai/query_forge/internal/logging"
	"github.com/atlekbai/query_forge/internal/metrics"
	"github.com/atlekbai/query_forge/internal/result"
	"github.com/atlekbai/query_forge/internal/schema"
)

const (
	DefaultRemoteTimeout = 30 * time.Second
	maxRemoteBody        = 8 << 20
)

// RemoteClient fetches remote sources over HTTP.
type RemoteClient struct {
	http    *http.Client
	timeout time.Duration
	metrics *metrics.Metrics
	log     *zap.Logger
	now     func() time.Time
}

type RemoteOption func(*RemoteClient)

func WithTimeout(d time.Duration) RemoteOption {
	return func(c *RemoteClient) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithHTTPClient(h *http.Client) RemoteOption {
	return func(c *RemoteClient) { c.http = h }
}

func WithMetrics(m *metrics.Metrics) RemoteOption {
	return func(c *RemoteClient) { c.metrics = m }
}

func WithLogger(l *zap.Logger) RemoteOption {
	return func(c *RemoteClient) { c.log = logging.OrNop(l) }
}

func NewRemoteClient(opts ...RemoteOption) *RemoteClient {
	c := &RemoteClient{
		http:    http.DefaultClient,
		timeout: DefaultRemoteTimeout,
		log:     zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch requests s and maps the response items. Every failure, including
// the request timeout, yields the canonical empty result and no error.
func (c *RemoteClient) Fetch(ctx context.Context, s Remote) (*result.Wrapper, error) {
	start := time.Now()
	items, total, err := c.fetch(ctx, s)
	c.metrics.Remote(time.Since(start))
	if err != nil {
		c.log.Warn("remote source failed", zap.String("url", s.URL), zap.Error(err))
		return result.Empty(), nil
	}
	return result.New(items, total, s.PerPage), nil
}

func (c *RemoteClient) fetch(ctx context.Context, s Remote) ([]result.Item, int, error) {
	target, err := requestURL(s)
	if err != nil {
		return nil, 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, s.Method, target, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	var body any
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxRemoteBody)).Decode(&body); err != nil {
		return nil, 0, fmt.Errorf("decode response: %w", err)
	}
	rows, total, err := envelope(body)
	if err != nil {
		return nil, 0, err
	}

	now := c.now()
	items := make([]result.Item, 0, len(rows))
	for _, raw := range rows {
		row, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		items = append(items, mapItem(row, remoteFields, string(s.Kind()), now))
	}
	return items, total, nil
}

// requestURL validates the endpoint and, for GET, appends pagination.
func requestURL(s Remote) (string, error) {
	u, err := url.Parse(s.URL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("unsupported url %q", s.URL)
	}
	if s.Method == http.MethodGet {
		q := u.Query()
		q.Set("per_page", strconv.Itoa(s.PerPage))
		q.Set("page", strconv.Itoa(s.Number))
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// envelope finds the item list in a response: {data:[...]}, {items:[...]},
// a bare list, or failing those the object's own values.
func envelope(body any) ([]any, int, error) {
	switch t := body.(type) {
	case []any:
		return t, len(t), nil
	case map[string]any:
		if len(t) == 0 {
			return nil, 0, fmt.Errorf("empty response object")
		}
		var rows []any
		if list, ok := t["data"].([]any); ok {
			rows = list
		} else if list, ok := t["items"].([]any); ok {
			rows = list
		} else {
			keys := make([]string, 0, len(t))
			for k := range t {
				keys = append(keys, k)
			}
			slices.Sort(keys)
			for _, k := range keys {
				rows = append(rows, t[k])
			}
		}
		total := len(rows)
		if v, ok := t["total"]; ok {
			total = int(schema.Int(v))
		}
		return rows, total, nil
	}
	return nil, 0, fmt.Errorf("unexpected response %T", body)
}
