package extractor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	einoschema "github.com/cloudwego/eino/schema"
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

var extractorTracer = otel.Tracer("cv-intake-go/extractor")

// 定义基础错误类型
var (
	ErrEmptyDocument = errors.New("简历文本为空")
	ErrNoJSONPayload = errors.New("无法从LLM响应中提取有效的JSON")
)

// LLMCVExtractor 使用LLM将简历纯文本转换为结构化记录
type LLMCVExtractor struct {
	llmModel model.ToolCallingChatModel

	promptTemplate string
	timeout        time.Duration
	maxRetries     int
	retryWait      time.Duration

	logger zerolog.Logger
}

var _ CVExtractor = (*LLMCVExtractor)(nil)

// LLMExtractorOption LLM抽取器的配置选项
type LLMExtractorOption func(*LLMCVExtractor)

// WithPromptTemplate 覆盖默认提示词模板
func WithPromptTemplate(template string) LLMExtractorOption {
	return func(e *LLMCVExtractor) {
		if template != "" {
			e.promptTemplate = template
		}
	}
}

// WithExtractionTimeout 覆盖单次抽取超时
func WithExtractionTimeout(d time.Duration) LLMExtractorOption {
	return func(e *LLMCVExtractor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithRetryPolicy 覆盖重试策略
func WithRetryPolicy(maxRetries int, wait time.Duration) LLMExtractorOption {
	return func(e *LLMCVExtractor) {
		if maxRetries >= 0 {
			e.maxRetries = maxRetries
		}
		if wait > 0 {
			e.retryWait = wait
		}
	}
}

// NewLLMCVExtractor 创建LLM简历抽取器
func NewLLMCVExtractor(llmModel model.ToolCallingChatModel, cfg *config.ExtractorConfig, options ...LLMExtractorOption) *LLMCVExtractor {
	e := &LLMCVExtractor{
		llmModel:       llmModel,
		promptTemplate: defaultExtractionPrompt,
		timeout:        60 * time.Second,
		maxRetries:     2,
		retryWait:      2 * time.Second,
		logger:         logger.Logger.With().Str("component", "llm_extractor").Logger(),
	}

	if cfg != nil {
		if cfg.PromptTemplate != "" {
			e.promptTemplate = cfg.PromptTemplate
		}
		e.timeout = config.GetDuration(cfg.ExtractionTimeout, e.timeout)
		if cfg.MaxRetries > 0 {
			e.maxRetries = cfg.MaxRetries
		}
		if cfg.RetryWaitSeconds > 0 {
			e.retryWait = time.Duration(cfg.RetryWaitSeconds) * time.Second
		}
	}

	for _, opt := range options {
		opt(e)
	}

	return e
}

// defaultExtractionPrompt 简历结构化抽取的系统提示词。
// 输出JSON的字段名与后续规范化管道约定的键一致。
const defaultExtractionPrompt = `你是一个专业的简历解析专家，负责从简历文本中提取结构化信息并输出标准JSON。

核心任务：
1. 提取个人信息（personalInfo）：fullName, firstName, middleName, lastName, email, phone, location, website, linkedIn, github。
2. 提取工作经历（experience）：每条包含 company, position, startDate, endDate, location, description, responsibilities（字符串数组）。
3. 提取教育经历（education）：每条包含 institution, degree, fieldOfStudy, startDate, endDate, location, description。
4. 提取技能（skills）：可按 technical, programming, frameworks, databases, tools, soft, other 分组，也可输出扁平的字符串数组。
5. 提取证书（certifications）、奖项（awards）、项目（projects）、语言（languages）和推荐人（references）。

重要指令：
- 日期保持原文：不要改写简历中出现的日期格式，按原文输出（例如 "February 2024"、"2/2024"、"1982 - 1987"、"Present"）。
- 信息缺失处理：缺失的字段输出null或省略，切勿编造信息。
- 推荐人（references）：每条包含 name, position, company, email, phone。
- 语言（languages）：每条包含 language 和 proficiency。
- 严格输出JSON，不要包含任何解释性文字或Markdown标记。确保JSON的完整性和可解析性。

JSON输出格式规范：
{
  "personalInfo": {
    "fullName": "string", "firstName": "string", "lastName": "string",
    "email": "string", "phone": "string", "location": "string",
    "website": "string", "linkedIn": "string", "github": "string"
  },
  "experience": [
    { "company": "string", "position": "string", "startDate": "string", "endDate": "string",
      "location": "string", "description": "string", "responsibilities": ["string"] }
  ],
  "education": [
    { "institution": "string", "degree": "string", "fieldOfStudy": "string",
      "startDate": "string", "endDate": "string", "location": "string" }
  ],
  "skills": { "technical": ["string"], "soft": ["string"] },
  "certifications": [ { "name": "string", "issuer": "string", "date": "string" } ],
  "awards": [ { "title": "string", "issuer": "string", "date": "string", "description": "string" } ],
  "projects": [ { "name": "string", "description": "string", "technologies": ["string"],
    "startDate": "string", "endDate": "string", "url": "string" } ],
  "languages": [ { "language": "string", "proficiency": "string" } ],
  "references": [ { "name": "string", "position": "string", "company": "string",
    "email": "string", "phone": "string" } ]
}

接下来，你将收到一份简历文本，请对其进行分析。`

// Extract 调用LLM抽取简历结构化信息。
// 返回的记录保持LLM输出的松散类型，不做清洗。
func (e *LLMCVExtractor) Extract(ctx context.Context, cvText string) (types.ExtractedRecord, error) {
	ctx, span := extractorTracer.Start(ctx, "LLMCVExtractor.Extract",
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	// 简历全文是PII，span里只放截断后的预览
	span.SetAttributes(
		attribute.Int("cv.text_length", len(cvText)),
		attribute.String("cv.text_preview", tracing.SafeCVContent(cvText)),
	)

	if strings.TrimSpace(cvText) == "" {
		tracing.RecordError(span, ErrEmptyDocument, tracing.ErrorTypeValidation)
		return nil, ErrEmptyDocument
	}

	response, err := e.callLLM(ctx, e.promptTemplate, cvText)
	if err != nil {
		err = fmt.Errorf("LLM调用失败: %w", err)
		tracing.RecordError(span, err, tracing.ErrorTypeLLM)
		return nil, err
	}

	record, err := e.parseResponse(response)
	if err != nil {
		err = fmt.Errorf("解析LLM响应失败: %w", err)
		tracing.RecordError(span, err, tracing.ErrorTypeLLM)
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return record, nil
}

// callLLM 带重试地调用LLM
func (e *LLMCVExtractor) callLLM(ctx context.Context, systemContent, userContent string) (string, error) {
	messages := []*einoschema.Message{
		{Role: "system", Content: systemContent},
		{Role: "user", Content: userContent},
	}

	retryDelay := e.retryWait
	var response *einoschema.Message
	var err error

	for retry := 0; retry <= e.maxRetries; retry++ {
		if retry > 0 {
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("上下文已取消: %w", ctx.Err())
			case <-time.After(retryDelay):
				retryDelay *= 2
				e.logger.Info().Int("attempt", retry).Msg("重试LLM调用")
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, e.timeout)
		response, err = e.llmModel.Generate(callCtx, messages)
		cancel()

		if err == nil {
			break
		}

		if !isRetryableError(err) || retry >= e.maxRetries {
			return "", fmt.Errorf("LLM Generate failed: %w", err)
		}
	}

	return response.Content, nil
}

// isRetryableError 判断错误是否应该重试
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "EOF") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host")
}

// parseResponse 从LLM响应中提取并解析JSON
func (e *LLMCVExtractor) parseResponse(response string) (types.ExtractedRecord, error) {
	jsonStr := extractJSON(response)
	if jsonStr == "" {
		e.logger.Warn().Str("response", truncateForLog(response, 500)).Msg("无法从LLM响应中提取有效的JSON")
		return nil, ErrNoJSONPayload
	}

	var record types.ExtractedRecord
	if err := json.Unmarshal([]byte(jsonStr), &record); err != nil {
		return nil, fmt.Errorf("解析JSON失败: %w", err)
	}
	return record, nil
}

var jsonFenceRe = regexp.MustCompile("(?s)```json\\s*(\\{.*?\\})\\s*```")

// extractJSON 从文本中提取JSON，优先匹配```json代码块，回退到括号配对
func extractJSON(text string) string {
	matches := jsonFenceRe.FindStringSubmatch(text)
	if len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}

	start := strings.Index(text, "{")
	if start == -1 {
		return ""
	}

	level := 0
	for i := start; i < len(text); i++ {
		if text[i] == '{' {
			level++
		} else if text[i] == '}' {
			level--
			if level == 0 {
				return strings.TrimSpace(text[start : i+1])
			}
		}
	}
	return ""
}

func truncateForLog(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
