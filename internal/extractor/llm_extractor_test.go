package extractor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockChatModel 按顺序返回预设响应或错误
type mockChatModel struct {
	responses []string
	errs      []error
	calls     int
}

func (m *mockChatModel) Generate(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.Message, error) {
	idx := m.calls
	m.calls++
	if idx < len(m.errs) && m.errs[idx] != nil {
		return nil, m.errs[idx]
	}
	content := ""
	if idx < len(m.responses) {
		content = m.responses[idx]
	}
	return &schema.Message{Role: "assistant", Content: content}, nil
}

func (m *mockChatModel) Stream(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not implemented")
}

func (m *mockChatModel) BindTools(tools []*schema.ToolInfo) error {
	return nil
}

func (m *mockChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return m, nil
}

func TestExtractParsesFencedJSON(t *testing.T) {
	mock := &mockChatModel{
		responses: []string{"```json\n{\"personalInfo\": {\"fullName\": \"Jane Doe\", \"email\": \"jane@example.com\"}}\n```"},
	}
	e := NewLLMCVExtractor(mock, nil)

	record, err := e.Extract(context.Background(), "Jane Doe\njane@example.com")
	require.NoError(t, err)

	pi, ok := record["personalInfo"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Jane Doe", pi["fullName"])
	assert.Equal(t, "jane@example.com", pi["email"])
}

func TestExtractBraceFallback(t *testing.T) {
	// 没有代码块标记时回退到括号配对
	mock := &mockChatModel{
		responses: []string{`以下是解析结果: {"skills": ["Go", "Python"]} 希望对你有帮助`},
	}
	e := NewLLMCVExtractor(mock, nil)

	record, err := e.Extract(context.Background(), "some cv text")
	require.NoError(t, err)
	assert.Contains(t, record, "skills")
}

func TestExtractRetriesOnTimeout(t *testing.T) {
	mock := &mockChatModel{
		errs:      []error{errors.New("context deadline exceeded"), nil},
		responses: []string{"", `{"personalInfo": {"fullName": "A"}}`},
	}
	e := NewLLMCVExtractor(mock, nil, WithRetryPolicy(2, time.Millisecond))

	record, err := e.Extract(context.Background(), "cv text")
	require.NoError(t, err)
	assert.Equal(t, 2, mock.calls)
	assert.Contains(t, record, "personalInfo")
}

func TestExtractDoesNotRetryFatalError(t *testing.T) {
	mock := &mockChatModel{
		errs: []error{errors.New("invalid api key")},
	}
	e := NewLLMCVExtractor(mock, nil, WithRetryPolicy(3, time.Millisecond))

	_, err := e.Extract(context.Background(), "cv text")
	require.Error(t, err)
	assert.Equal(t, 1, mock.calls, "认证类错误不应重试")
}

func TestExtractInvalidJSON(t *testing.T) {
	mock := &mockChatModel{
		responses: []string{"抱歉，我无法解析这份简历。"},
	}
	e := NewLLMCVExtractor(mock, nil)

	_, err := e.Extract(context.Background(), "cv text")
	assert.Error(t, err)
}

func TestExtractEmptyText(t *testing.T) {
	mock := &mockChatModel{}
	e := NewLLMCVExtractor(mock, nil)

	_, err := e.Extract(context.Background(), "   ")
	require.Error(t, err)
	assert.Equal(t, 0, mock.calls)
}

func TestExtractJSONHelper(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"代码块", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"裸JSON", `{"a": 1}`, `{"a": 1}`},
		{"前后有文本", `result: {"a": {"b": 2}} done`, `{"a": {"b": 2}}`},
		{"无JSON", "no json here", ""},
		{"未闭合", `{"a": 1`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractJSON(tt.input))
		})
	}
}
