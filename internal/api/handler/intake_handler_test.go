package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sync"
	"testing"

	"cv-intake-go/internal/api/handler"
	"cv-intake-go/internal/api/router"
	"cv-intake-go/internal/config"
	"cv-intake-go/internal/constants"
	"cv-intake-go/internal/types"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockDocParser 把文件内容原样当作文本返回，便于测试中用内容控制抽取行为
type mockDocParser struct{}

func (p *mockDocParser) ExtractTextFromReader(ctx context.Context, reader io.Reader, uri string, extraMeta map[string]interface{}) (string, map[string]interface{}, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", nil, err
	}
	return string(data), nil, nil
}

func (p *mockDocParser) ExtractTextFromBytes(ctx context.Context, data []byte, uri string) (string, map[string]interface{}, error) {
	return string(data), nil, nil
}

// mockCVExtractor 按文本内容返回预设的抽取结果或错误
type mockCVExtractor struct {
	records map[string]types.ExtractedRecord
	errs    map[string]error
	calls   int
}

func (m *mockCVExtractor) Extract(ctx context.Context, cvText string) (types.ExtractedRecord, error) {
	m.calls++
	if err, ok := m.errs[cvText]; ok {
		return nil, err
	}
	if rec, ok := m.records[cvText]; ok {
		return rec, nil
	}
	return nil, fmt.Errorf("没有为文本 %q 预设抽取结果", cvText)
}

// mockBackend 记录创建调用，可按序注入错误
type mockBackend struct {
	mu         sync.Mutex
	created    []*types.NormalizedCandidate
	errs       []error
	totalCalls int
}

func (m *mockBackend) CreateCandidate(ctx context.Context, candidate *types.NormalizedCandidate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.totalCalls
	m.totalCalls++
	if idx < len(m.errs) && m.errs[idx] != nil {
		return m.errs[idx]
	}
	m.created = append(m.created, candidate)
	return nil
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Batch.InterItemDelayMS = 1
	cfg.ActiveExtractorVersion = "llm-extractor-v1"
	return cfg
}

func sampleRecord(name, email string) types.ExtractedRecord {
	pi := map[string]interface{}{"fullName": name}
	if email != "" {
		pi["email"] = email
	}
	return types.ExtractedRecord{
		"personalInfo": pi,
		"skills":       []interface{}{"Go", "MySQL"},
	}
}

func newTestEngine(t *testing.T, cfg *config.Config, extract *mockCVExtractor, backend *mockBackend) *server.Hertz {
	t.Helper()
	h := handler.NewIntakeHandler(cfg, nil, &mockDocParser{}, extract, backend)
	engine := server.New(server.WithHostPorts("127.0.0.1:0"))
	router.RegisterRoutes(engine, cfg, h)
	return engine
}

func multipartFiles(t *testing.T, field string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)
	for name, content := range files {
		part, err := writer.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = io.Copy(part, bytes.NewReader([]byte(content)))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

// 验证单文件上传在无存储依赖时也能完成抽取并返回清洗后的结构化数据。
func TestProcessUploadSanitizesExtraction(t *testing.T) {
	extract := &mockCVExtractor{
		records: map[string]types.ExtractedRecord{
			"alice-cv": {
				"personalInfo": map[string]interface{}{
					"fullName": "Alice Zhang",
					"email":    "alice@example.com",
					"phone":    "null", // 上游已知怪癖，清洗后应剔除
					"website":  nil,
				},
				"summary": "",
			},
		},
	}
	h := handler.NewIntakeHandler(testConfig(), nil, &mockDocParser{}, extract, &mockBackend{})

	resp, err := h.ProcessUpload(context.Background(), []byte("alice-cv"), "alice.pdf")
	require.NoError(t, err)
	require.Equal(t, constants.StatusExtracted, resp.Status)
	require.NotEmpty(t, resp.DocumentUUID)

	pi, ok := resp.StructuredData["personalInfo"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Alice Zhang", pi["fullName"])
	assert.Equal(t, "alice@example.com", pi["email"])
	assert.NotContains(t, pi, "phone", "字面量null应被清洗掉")
	assert.NotContains(t, pi, "website")
	assert.NotContains(t, resp.StructuredData, "summary", "空字符串节应被清洗掉")
}

// 验证抽取失败时上传不整体报错，响应携带失败状态和原因。
func TestProcessUploadExtractionFailure(t *testing.T) {
	extract := &mockCVExtractor{
		errs: map[string]error{"broken-cv": fmt.Errorf("模型响应不是有效JSON")},
	}
	h := handler.NewIntakeHandler(testConfig(), nil, &mockDocParser{}, extract, &mockBackend{})

	resp, err := h.ProcessUpload(context.Background(), []byte("broken-cv"), "broken.pdf")
	require.NoError(t, err)
	assert.Equal(t, constants.StatusExtractionFailed, resp.Status)
	assert.NotEmpty(t, resp.DocumentUUID)
	assert.Contains(t, resp.Error, "JSON")
	assert.Nil(t, resp.StructuredData)
}

func TestProcessUploadEmptyFile(t *testing.T) {
	h := handler.NewIntakeHandler(testConfig(), nil, &mockDocParser{}, &mockCVExtractor{}, &mockBackend{})

	_, err := h.ProcessUpload(context.Background(), nil, "empty.pdf")
	require.Error(t, err)
}

// 验证批量接入到批量创建的完整闭环：
// 混合成败的文件集、会话查询、create-all的部分失败容忍与重复执行的幂等性。
func TestBulkProcessAndCreateAll(t *testing.T) {
	extract := &mockCVExtractor{
		records: map[string]types.ExtractedRecord{
			"cv-a": sampleRecord("Alice Zhang", "alice@example.com"),
			"cv-c": sampleRecord("Carol Li", "carol@example.com"),
		},
		errs: map[string]error{"cv-b": fmt.Errorf("抽取超时")},
	}
	backend := &mockBackend{}
	cfg := testConfig()
	engine := newTestEngine(t, cfg, extract, backend)

	body, contentType := multipartFiles(t, "files", map[string]string{
		"a.pdf": "cv-a",
		"b.pdf": "cv-b",
		"c.pdf": "cv-c",
	})
	resp := ut.PerformRequest(engine.Engine, "POST", "/api/v1/cv/bulk-process",
		&ut.Body{Body: body, Len: body.Len()},
		ut.Header{Key: "Content-Type", Value: contentType},
	)
	require.Equal(t, http.StatusOK, resp.Code)

	var bulkResp handler.BulkProcessResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &bulkResp))
	require.NotEmpty(t, bulkResp.SessionID)
	assert.Equal(t, 3, bulkResp.Total)
	assert.Equal(t, 2, bulkResp.Succeeded)
	assert.Equal(t, 1, bulkResp.Failed)

	// 会话可查询
	getResp := ut.PerformRequest(engine.Engine, "GET", "/api/v1/cv/batch/"+bulkResp.SessionID, nil)
	require.Equal(t, http.StatusOK, getResp.Code)
	var session handler.BatchSession
	require.NoError(t, json.Unmarshal(getResp.Body.Bytes(), &session))
	assert.Len(t, session.Items, 3)

	// 首次批量创建：2个可用条目全部成功
	createResp := ut.PerformRequest(engine.Engine, "POST", "/api/v1/cv/batch/"+bulkResp.SessionID+"/create-all", nil)
	require.Equal(t, http.StatusOK, createResp.Code)
	var createOut handler.BatchCreateAllResponse
	require.NoError(t, json.Unmarshal(createResp.Body.Bytes(), &createOut))
	assert.Equal(t, 2, createOut.SuccessCount)
	assert.Equal(t, 0, createOut.FailureCount)
	assert.Equal(t, 2, backend.totalCalls)

	// 再次执行：已创建的条目被跳过，不会重复调用后端
	rerunResp := ut.PerformRequest(engine.Engine, "POST", "/api/v1/cv/batch/"+bulkResp.SessionID+"/create-all", nil)
	require.Equal(t, http.StatusOK, rerunResp.Code)
	var rerunOut handler.BatchCreateAllResponse
	require.NoError(t, json.Unmarshal(rerunResp.Body.Bytes(), &rerunOut))
	assert.Equal(t, 0, rerunOut.SuccessCount)
	assert.Equal(t, 0, rerunOut.FailureCount)
	assert.Equal(t, 2, backend.totalCalls)
}

// 验证单条目创建接口的边界：未知会话、非法索引、不可用条目。
func TestItemCreateBoundaries(t *testing.T) {
	extract := &mockCVExtractor{
		records: map[string]types.ExtractedRecord{"cv-a": sampleRecord("Alice Zhang", "alice@example.com")},
		errs:    map[string]error{"cv-b": fmt.Errorf("抽取超时")},
	}
	backend := &mockBackend{}
	engine := newTestEngine(t, testConfig(), extract, backend)

	body, contentType := multipartFiles(t, "files", map[string]string{"a.pdf": "cv-a", "b.pdf": "cv-b"})
	resp := ut.PerformRequest(engine.Engine, "POST", "/api/v1/cv/bulk-process",
		&ut.Body{Body: body, Len: body.Len()},
		ut.Header{Key: "Content-Type", Value: contentType},
	)
	require.Equal(t, http.StatusOK, resp.Code)
	var bulkResp handler.BulkProcessResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &bulkResp))

	// 未知会话
	r := ut.PerformRequest(engine.Engine, "POST", "/api/v1/cv/batch/no-such-session/items/0/create", nil)
	assert.Equal(t, http.StatusNotFound, r.Code)

	// 非法索引
	r = ut.PerformRequest(engine.Engine, "POST", "/api/v1/cv/batch/"+bulkResp.SessionID+"/items/99/create", nil)
	assert.Equal(t, http.StatusBadRequest, r.Code)

	// 找出抽取失败的条目下标，对它创建应返回冲突
	failedIdx := -1
	okIdx := -1
	for i, item := range bulkResp.Items {
		if item.Success {
			okIdx = i
		} else {
			failedIdx = i
		}
	}
	require.GreaterOrEqual(t, failedIdx, 0)
	require.GreaterOrEqual(t, okIdx, 0)

	r = ut.PerformRequest(engine.Engine, "POST", fmt.Sprintf("/api/v1/cv/batch/%s/items/%d/create", bulkResp.SessionID, failedIdx), nil)
	assert.Equal(t, http.StatusConflict, r.Code)

	// 可用条目创建成功，随后重复创建返回冲突
	r = ut.PerformRequest(engine.Engine, "POST", fmt.Sprintf("/api/v1/cv/batch/%s/items/%d/create", bulkResp.SessionID, okIdx), nil)
	assert.Equal(t, http.StatusOK, r.Code)
	assert.Equal(t, 1, backend.totalCalls)

	r = ut.PerformRequest(engine.Engine, "POST", fmt.Sprintf("/api/v1/cv/batch/%s/items/%d/create", bulkResp.SessionID, okIdx), nil)
	assert.Equal(t, http.StatusConflict, r.Code)
	assert.Equal(t, 1, backend.totalCalls)
}

// 验证候选人创建接口的信息不足门槛：缺少Email时返回422和缺失字段清单。
func TestCreateCandidateInsufficient(t *testing.T) {
	backend := &mockBackend{}
	engine := newTestEngine(t, testConfig(), &mockCVExtractor{}, backend)

	reqBody, err := json.Marshal(handler.CreateCandidateRequest{
		StructuredData: sampleRecord("Bob Wang", ""),
	})
	require.NoError(t, err)

	r := ut.PerformRequest(engine.Engine, "POST", "/api/v1/candidates",
		&ut.Body{Body: bytes.NewReader(reqBody), Len: len(reqBody)},
		ut.Header{Key: "Content-Type", Value: "application/json"},
	)
	require.Equal(t, http.StatusUnprocessableEntity, r.Code)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(r.Body.Bytes(), &out))
	missing, ok := out["missingFields"].([]interface{})
	require.True(t, ok)
	assert.Equal(t, []interface{}{"Email"}, missing)
	assert.Equal(t, 0, backend.totalCalls)
}

// 验证无名记录不能靠"Unknown"占位符绕过门槛：
// 归一化会给缺失的fullName补占位符，门槛校验必须仍判定姓名缺失。
func TestCreateCandidateMissingName(t *testing.T) {
	backend := &mockBackend{}
	engine := newTestEngine(t, testConfig(), &mockCVExtractor{}, backend)

	reqBody, err := json.Marshal(handler.CreateCandidateRequest{
		StructuredData: types.ExtractedRecord{
			"personalInfo": map[string]interface{}{"email": "noname@example.com"},
		},
	})
	require.NoError(t, err)

	r := ut.PerformRequest(engine.Engine, "POST", "/api/v1/candidates",
		&ut.Body{Body: bytes.NewReader(reqBody), Len: len(reqBody)},
		ut.Header{Key: "Content-Type", Value: "application/json"},
	)
	require.Equal(t, http.StatusUnprocessableEntity, r.Code)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(r.Body.Bytes(), &out))
	missing, ok := out["missingFields"].([]interface{})
	require.True(t, ok)
	assert.Equal(t, []interface{}{"Full Name"}, missing)
	assert.Equal(t, 0, backend.totalCalls)

	// firstName+lastName组合同样满足姓名要求
	reqBody, err = json.Marshal(handler.CreateCandidateRequest{
		StructuredData: types.ExtractedRecord{
			"personalInfo": map[string]interface{}{
				"firstName": "Bob",
				"lastName":  "Wang",
				"email":     "bob@example.com",
			},
		},
	})
	require.NoError(t, err)

	r = ut.PerformRequest(engine.Engine, "POST", "/api/v1/candidates",
		&ut.Body{Body: bytes.NewReader(reqBody), Len: len(reqBody)},
		ut.Header{Key: "Content-Type", Value: "application/json"},
	)
	assert.Equal(t, http.StatusCreated, r.Code)
	assert.Equal(t, 1, backend.totalCalls)
}

// 验证override补丁可以补齐抽取缺失的字段，使创建通过门槛。
func TestCreateCandidateWithOverride(t *testing.T) {
	backend := &mockBackend{}
	engine := newTestEngine(t, testConfig(), &mockCVExtractor{}, backend)

	reqBody, err := json.Marshal(handler.CreateCandidateRequest{
		StructuredData: sampleRecord("Bob Wang", ""),
		Override: &types.OverridePatch{
			PersonalInfo: &types.PersonalInfo{Email: "bob@example.com"},
		},
	})
	require.NoError(t, err)

	r := ut.PerformRequest(engine.Engine, "POST", "/api/v1/candidates",
		&ut.Body{Body: bytes.NewReader(reqBody), Len: len(reqBody)},
		ut.Header{Key: "Content-Type", Value: "application/json"},
	)
	require.Equal(t, http.StatusCreated, r.Code)
	require.Equal(t, 1, backend.totalCalls)
	require.Len(t, backend.created, 1)
	assert.Equal(t, "Bob Wang", backend.created[0].PersonalInfo.FullName)
	assert.Equal(t, "bob@example.com", backend.created[0].PersonalInfo.Email)
}

// 验证文档管理接口在存储未配置时统一降级为503而不是崩溃。
func TestDocumentEndpointsWithoutStorage(t *testing.T) {
	engine := newTestEngine(t, testConfig(), &mockCVExtractor{}, &mockBackend{})

	r := ut.PerformRequest(engine.Engine, "GET", "/api/v1/cv/documents", nil)
	assert.Equal(t, http.StatusServiceUnavailable, r.Code)

	r = ut.PerformRequest(engine.Engine, "POST", "/api/v1/cv/documents/some-uuid/extract", nil)
	assert.Equal(t, http.StatusServiceUnavailable, r.Code)

	r = ut.PerformRequest(engine.Engine, "GET", "/api/v1/cv/documents/some-uuid/download", nil)
	assert.Equal(t, http.StatusServiceUnavailable, r.Code)

	r = ut.PerformRequest(engine.Engine, "DELETE", "/api/v1/cv/documents/some-uuid", nil)
	assert.Equal(t, http.StatusServiceUnavailable, r.Code)
}

// 验证配置了API Key时的Bearer鉴权：健康检查豁免，业务接口强制。
func TestKeyAuthMiddleware(t *testing.T) {
	cfg := testConfig()
	cfg.Server.APIKey = "secret-key"
	engine := newTestEngine(t, cfg, &mockCVExtractor{}, &mockBackend{})

	// 健康检查不需要鉴权
	r := ut.PerformRequest(engine.Engine, "GET", "/api/v1/health", nil)
	assert.Equal(t, http.StatusOK, r.Code)

	// 无凭证
	r = ut.PerformRequest(engine.Engine, "GET", "/api/v1/cv/batch/any", nil)
	assert.Equal(t, http.StatusUnauthorized, r.Code)

	// 错误凭证
	r = ut.PerformRequest(engine.Engine, "GET", "/api/v1/cv/batch/any", nil,
		ut.Header{Key: "Authorization", Value: "Bearer wrong-key"})
	assert.Equal(t, http.StatusUnauthorized, r.Code)

	// 正确凭证，鉴权通过后才进入业务逻辑（会话不存在返回404）
	r = ut.PerformRequest(engine.Engine, "GET", "/api/v1/cv/batch/any", nil,
		ut.Header{Key: "Authorization", Value: "Bearer secret-key"})
	assert.Equal(t, http.StatusNotFound, r.Code)
}
