package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"cv-intake-go/internal/config"
	"cv-intake-go/internal/logger"
	"cv-intake-go/internal/tracing"
	"cv-intake-go/internal/types"
)

var clientTracer = otel.Tracer("cv-intake-go/client")

// CandidateCreator 向后端ATS提交规范化候选人
type CandidateCreator interface {
	CreateCandidate(ctx context.Context, candidate *types.NormalizedCandidate) error
}

// BackendClient 后端ATS REST客户端
type BackendClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	maxRetries int
	logger     zerolog.Logger
}

var _ CandidateCreator = (*BackendClient)(nil)

// NewBackendClient 创建后端ATS客户端
func NewBackendClient(cfg *config.BackendConfig) (*BackendClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("后端配置不能为空")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("后端base_url不能为空")
	}

	timeout := config.GetDuration(cfg.RequestTimeout, 15*time.Second)
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	return &BackendClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
		logger:     logger.Logger.With().Str("component", "backend_client").Logger(),
	}, nil
}

// backendError 后端返回的非2xx响应
type backendError struct {
	StatusCode int
	Body       string
}

func (e *backendError) Error() string {
	return fmt.Sprintf("后端返回状态 %d: %s", e.StatusCode, e.Body)
}

// CreateCandidate 提交候选人到后端ATS。
// 5xx和网络错误按指数退避重试，4xx视为最终失败不重试。
func (b *BackendClient) CreateCandidate(ctx context.Context, candidate *types.NormalizedCandidate) error {
	ctx, span := clientTracer.Start(ctx, "BackendClient.CreateCandidate",
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(
		attribute.String("http.method", http.MethodPost),
		attribute.String("peer.service", "ats-backend"),
	)

	if candidate == nil {
		err := fmt.Errorf("候选人不能为空")
		tracing.RecordError(span, err, tracing.ErrorTypeValidation)
		return err
	}

	body, err := json.Marshal(candidate)
	if err != nil {
		err = fmt.Errorf("序列化候选人失败: %w", err)
		tracing.RecordError(span, err, tracing.ErrorTypeInternal)
		return err
	}

	url := b.baseURL + "/api/v1/candidates"
	retryDelay := time.Second

	var lastErr error
	for attempt := 0; attempt < b.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				tracing.RecordError(span, ctx.Err(), tracing.ErrorTypeTimeout)
				return fmt.Errorf("上下文已取消: %w", ctx.Err())
			case <-time.After(retryDelay):
				retryDelay *= 2
				b.logger.Info().Int("attempt", attempt).Msg("重试候选人创建请求")
			}
		}

		lastErr = b.doCreate(ctx, url, body)
		if lastErr == nil {
			span.SetStatus(codes.Ok, "")
			return nil
		}

		// 4xx是确定性失败，重试无意义
		var be *backendError
		if errors.As(lastErr, &be) && be.StatusCode >= 400 && be.StatusCode < 500 {
			break
		}
	}

	var be *backendError
	if errors.As(lastErr, &be) {
		tracing.RecordHTTPError(span, lastErr, be.StatusCode)
	} else {
		tracing.RecordError(span, lastErr, tracing.ErrorTypeExternal)
	}
	return lastErr
}

func (b *BackendClient) doCreate(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("创建 HTTP 请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if b.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.apiKey)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("发送 HTTP 请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &backendError{StatusCode: resp.StatusCode, Body: string(respBody)}
}
