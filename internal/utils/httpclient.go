package utils

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// StatusError 上游返回非 2xx
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("请求失败，状态码: %d (%s)", e.StatusCode, e.URL)
}

// IsStatusError 判断是否为上游状态码错误
func IsStatusError(err error) bool {
	var se *StatusError
	return errors.As(err, &se)
}

// HTTPClient 访问 JSON API 的客户端，带 Bearer 鉴权
type HTTPClient struct {
	httpClient  *http.Client
	bearerToken string
}

// NewHTTPClient 创建新的HTTP客户端
// 不设置 Timeout，使用传输层默认行为；调用方通过 context 取消
func NewHTTPClient(bearerToken string) *HTTPClient {
	return &HTTPClient{
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		bearerToken: bearerToken,
	}
}

// WithHTTPClient 替换底层 http.Client（测试用）
func (c *HTTPClient) WithHTTPClient(hc *http.Client) *HTTPClient {
	c.httpClient = hc
	return c
}

// Get 发送GET请求
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept-Encoding", "gzip, deflate")
	if c.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	}
	return c.httpClient.Do(req)
}

// GetJSON 发送GET请求并解析JSON响应
func (c *HTTPClient) GetJSON(ctx context.Context, url string, target interface{}) error {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{StatusCode: resp.StatusCode, URL: url}
	}

	var reader io.ReadCloser
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		reader, err = gzip.NewReader(resp.Body)
		if err != nil {
			return fmt.Errorf("创建gzip读取器失败: %w", err)
		}
		defer reader.Close()
	case "deflate":
		reader = flate.NewReader(resp.Body)
		defer reader.Close()
	default:
		reader = resp.Body
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("读取响应失败: %w", err)
	}
	if err := json.Unmarshal(body, target); err != nil {
		log.Printf("解析JSON失败: %v, 响应体: %.200s", err, body)
		return fmt.Errorf("解析JSON失败: %w", err)
	}
	return nil
}
