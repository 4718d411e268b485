// internal/pkg/httpclient/client.go
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Client 是一个可追踪的、可注入的HTTP客户端
type Client struct {
	Tracer     trace.Tracer
	HTTPClient *http.Client
}

// StatusError 表示下游服务返回了非 2xx 状态码
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("service %s returned status %d", e.URL, e.Code)
}

// NewClient 创建一个新的客户端实例。
// 不设置 http.Client 的 Timeout 字段，让超时完全受控于每次请求传入的 context
func NewClient(tracer trace.Tracer) *Client {
	return &Client{
		Tracer: tracer,
		HTTPClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
			},
		},
	}
}

// PostJSON 向下游服务 POST 一个 JSON 载荷，respOut 不为 nil 时解析响应体
func (c *Client) PostJSON(ctx context.Context, serviceURL string, reqBody, respOut interface{}) error {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return err
	}

	body, err := c.do(ctx, http.MethodPost, serviceURL, payload)
	if err != nil {
		return err
	}
	if respOut != nil {
		return json.Unmarshal(body, respOut)
	}
	return nil
}

// Delete 向下游服务发起 DELETE 请求
func (c *Client) Delete(ctx context.Context, serviceURL string) error {
	_, err := c.do(ctx, http.MethodDelete, serviceURL, nil)
	return err
}

func (c *Client) do(ctx context.Context, method, serviceURL string, payload []byte) ([]byte, error) {
	parsedURL, err := url.Parse(serviceURL)
	if err != nil {
		return nil, err
	}
	// 从 URL 中解析出服务名用于 Span
	spanName := fmt.Sprintf("call-%s", strings.Split(parsedURL.Host, ":")[0])

	ctx, span := c.Tracer.Start(ctx, spanName, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, serviceURL, reqBody)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	span.SetAttributes(
		attribute.String("http.url", serviceURL),
		attribute.String("http.method", method),
	)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		statusErr := &StatusError{Code: resp.StatusCode, URL: serviceURL}
		span.RecordError(statusErr)
		span.SetStatus(codes.Error, statusErr.Error())
		return nil, statusErr
	}
	return body, nil
}
