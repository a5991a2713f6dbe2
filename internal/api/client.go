package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"sudooom.fedi.sync/internal/metrics"
)

const maxBodySize = 10 << 20

// Config 客户端配置
type Config struct {
	Timeout           time.Duration
	UserAgent         string
	RequestsPerSecond float64
	Burst             int
}

// Response 成功的响应，保留响应头用于读取分页链接
type Response[T any] struct {
	Body       T
	Header     http.Header
	StatusCode int
}

// Client 单个账号的 Mastodon API 客户端
type Client struct {
	baseURL   *url.URL
	token     string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewClient 创建客户端，baseURL 形如 https://mastodon.social
func NewClient(baseURL, accessToken string, cfg Config, m *metrics.Metrics) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}

	return &Client{
		baseURL:   u,
		token:     accessToken,
		userAgent: cfg.UserAgent,
		http:      &http.Client{Timeout: cfg.Timeout},
		limiter:   rate.NewLimiter(limit, cfg.Burst),
		metrics:   m,
		logger:    slog.Default(),
	}, nil
}

// request 描述一次 API 调用
type request struct {
	endpoint string // 指标标签
	method   string
	path     string
	query    url.Values
	form     url.Values
}

// do 执行请求并把响应体解码为 T，空响应体解码为 T 的零值
func do[T any](ctx context.Context, c *Client, r request) (*Response[T], error) {
	start := time.Now()
	resp, err := send[T](ctx, c, r)
	outcome := "success"
	if err != nil {
		outcome = err.(*Error).Kind.String()
	}
	c.metrics.ObserveAPI(r.endpoint, outcome, start)
	return resp, err
}

func send[T any](ctx context.Context, c *Client, r request) (*Response[T], error) {
	u := *c.baseURL
	u.Path = u.Path + r.path
	if len(r.query) > 0 {
		u.RawQuery = r.query.Encode()
	}
	target := u.String()

	fail := func(kind Kind, err error) *Error {
		return &Error{Kind: kind, Method: r.method, URL: target, Err: err}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fail(KindNetwork, err)
	}

	var body io.Reader
	if r.form != nil {
		body = strings.NewReader(r.form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, r.method, target, body)
	if err != nil {
		return nil, fail(KindNetwork, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if r.form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if r.method == http.MethodPost {
		req.Header.Set("Idempotency-Key", uuid.NewString())
	}

	httpResp, err := c.http.Do(req)
	if err != nil {
		return nil, fail(KindNetwork, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodySize))
	if err != nil {
		return nil, fail(KindNetwork, err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		apiErr := &Error{
			Kind:       KindHTTP,
			StatusCode: httpResp.StatusCode,
			Method:     r.method,
			URL:        target,
		}
		var payload struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &payload) == nil {
			apiErr.Message = payload.Error
		}
		c.logger.Debug("API request failed",
			"method", r.method,
			"url", target,
			"status", httpResp.StatusCode,
			"message", apiErr.Message)
		return nil, apiErr
	}

	out := &Response[T]{
		Header:     httpResp.Header,
		StatusCode: httpResp.StatusCode,
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(data, &out.Body); err != nil {
		return nil, fail(KindParse, err)
	}
	return out, nil
}
