package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"strings"

	"lfsclient/pkg/logr"
	"lfsclient/pkg/types"

	retryablehttp "github.com/hashicorp/go-retryablehttp"
)

// DefaultTransfers 是默认的 transfer 偏好顺序：先 multipart 再 basic
var DefaultTransfers = []string{types.TransferMultipartBasic, types.TransferBasic}

type (
	// Client 封装了与 LFS 服务端 batch 接口的交互
	Client struct {
		token   string
		baseURL *url.URL
		headers http.Header
		http    *retryablehttp.Client
		logger  logr.Logger
	}

	// Config 用于初始化 Client
	Config struct {
		// LFS 服务端地址，例如 https://lfs.example.com
		URL string
		// 可选的 Bearer token
		Token string
		// 附加到每个 batch 请求上的 header
		Headers http.Header
		// 覆盖默认的 http transport (测试时注入)
		Transport http.RoundTripper
		Logger    logr.Logger
	}
)

// NewClient 创建客户端
// 只校验配置，不发起任何网络请求
func NewClient(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("missing server url")
	}
	baseURL, err := url.Parse(strings.TrimRight(cfg.URL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid server url: %w", err)
	}
	if baseURL.Scheme != "http" && baseURL.Scheme != "https" {
		return nil, fmt.Errorf("invalid server url %q: scheme must be http or https", cfg.URL)
	}
	if cfg.Headers == nil {
		cfg.Headers = make(http.Header)
	}
	if cfg.Logger.GetSink() == nil {
		cfg.Logger = logr.Discard()
	}

	return &Client{
		token:   cfg.Token,
		baseURL: baseURL,
		headers: cfg.Headers,
		http:    NewHTTPClient(cfg.Transport, cfg.Logger),
		logger:  cfg.Logger,
	}, nil
}

// NewHTTPClient 返回一个关闭了重试的 retryablehttp 客户端
// 任何失败都立即返回给调用方，由调用方决定是否整体重来
func NewHTTPClient(transport http.RoundTripper, logger logr.Logger) *retryablehttp.Client {
	if transport == nil {
		transport = http.DefaultTransport
	}
	if logger.GetSink() == nil {
		logger = logr.Discard()
	}
	return &retryablehttp.Client{
		HTTPClient:   &http.Client{Transport: transport},
		Logger:       logr.Leveled{Logger: logger},
		RetryMax:     0,
		Backoff:      retryablehttp.DefaultBackoff,
		ErrorHandler: retryablehttp.PassthroughErrorHandler,
		CheckRetry: func(_ context.Context, _ *http.Response, err error) (bool, error) {
			return false, err
		},
	}
}

// HTTP 返回底层的 HTTP 客户端，transfer adapter 用它执行 action
func (c *Client) HTTP() *retryablehttp.Client {
	return c.http
}

// Hostname 返回服务端的 host:port
func (c *Client) Hostname() string {
	return c.baseURL.Host
}

// BatchURL 返回 {server}/{prefix}/objects/batch
func (c *Client) BatchURL(prefix string) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.Trim(prefix, "/") + "/objects/batch"
	return u.String()
}

// Batch 发送一次 batch 请求
// transfers 为空时使用 DefaultTransfers；ref 为空时不发送
// 非 2xx 返回 *NegotiationError
func (c *Client) Batch(ctx context.Context, prefix string, op types.Operation, objects []types.Object, ref string, transfers []string) (*types.BatchResponse, error) {
	if !op.IsValid() {
		return nil, fmt.Errorf("invalid batch operation: %q", op)
	}
	if len(transfers) == 0 {
		transfers = DefaultTransfers
	}

	payload := types.BatchRequest{
		Operation: op,
		Transfers: transfers,
		Objects:   objects,
	}
	if ref != "" {
		payload.Ref = &types.Ref{Name: ref}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal batch request: %w", err)
	}

	req, err := c.NewRequest(ctx, http.MethodPost, c.BatchURL(prefix), body)
	if err != nil {
		return nil, err
	}

	c.logger.V(1).Info("sending batch request", "url", req.URL.String(), "operation", op, "transfers", transfers, "objects", len(objects))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("batch request failed: %w", err)
	}
	defer resp.Body.Close()

	if !IsSuccess(resp.StatusCode) {
		return nil, &NegotiationError{
			StatusCode: resp.StatusCode,
			Body:       ReadErrorBody(resp.Body),
		}
	}

	var out types.BatchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode batch response: %w", err)
	}
	c.logger.V(1).Info("got batch response", "transfer", out.Transfer, "objects", len(out.Objects))

	return &out, nil
}

// NewRequest 创建一个发往 LFS 服务端的请求，带上协议 header 和 token
func (c *Client) NewRequest(ctx context.Context, method, target string, body []byte) (*retryablehttp.Request, error) {
	var rawBody any
	if body != nil {
		rawBody = bytes.NewReader(body)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, target, rawBody)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	// 默认 header
	maps.Copy(req.Header, c.headers)
	// 请求相关的 header
	req.Header.Set("Accept", types.ContentType)
	if body != nil {
		req.Header.Set("Content-Type", types.ContentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// IsSuccess 判断是否是 2xx
func IsSuccess(code int) bool {
	return code/100 == 2
}

// maxErrorBody 限制错误信息里携带的响应体长度
const maxErrorBody = 1024

// ReadErrorBody 读取 (截断后的) 响应体，用于错误信息
func ReadErrorBody(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	return strings.TrimSpace(string(b))
}
