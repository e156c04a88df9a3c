package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"cv-intake-go/internal/batch"
	"cv-intake-go/internal/client"
	"cv-intake-go/internal/config"
	"cv-intake-go/internal/constants"
	"cv-intake-go/internal/cvdata"
	"cv-intake-go/internal/extractor"
	"cv-intake-go/internal/logger"
	storage2 "cv-intake-go/internal/storage"
	"cv-intake-go/internal/storage/models"
	"cv-intake-go/internal/types"
	"cv-intake-go/pkg/utils"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/gofrs/uuid/v5"
	googleuuid "github.com/google/uuid"
	"gorm.io/gorm"
)

// IntakeHandler CV接入处理器，负责协调上传、抽取与候选人创建的完整流程
type IntakeHandler struct {
	cfg       *config.Config
	storage   *storage2.Storage
	docParser extractor.DocumentParser
	cvExtract extractor.CVExtractor
	backend   client.CandidateCreator
	orch      *batch.Orchestrator

	mu       sync.RWMutex
	sessions map[string]*BatchSession
}

// BatchSession 一次批量处理会话，仅存活于进程内存，不做持久化。
// 会话里的条目被编排器原地修改（创建成功后翻转candidateCreated）。
type BatchSession struct {
	SessionID string        `json:"sessionId"`
	Items     []*batch.Item `json:"items"`
	CreatedAt time.Time     `json:"createdAt"`
}

// NewIntakeHandler 创建一个新的CV接入处理器
func NewIntakeHandler(
	cfg *config.Config,
	storage *storage2.Storage,
	docParser extractor.DocumentParser,
	cvExtract extractor.CVExtractor,
	backend client.CandidateCreator,
) *IntakeHandler {
	return &IntakeHandler{
		cfg:       cfg,
		storage:   storage,
		docParser: docParser,
		cvExtract: cvExtract,
		backend:   backend,
		orch:      batch.NewOrchestrator(batch.WithInterItemDelay(cfg.InterItemDelay())),
		sessions:  make(map[string]*BatchSession),
	}
}

// CVUploadResponse 单个CV上传响应
// Sufficient/MissingFields 是给复核界面的门槛报告：不足的记录仍然保留，
// 但创建候选人前必须补齐缺失字段。
type CVUploadResponse struct {
	DocumentUUID   string                `json:"documentUuid"`
	Status         string                `json:"status"`
	StructuredData types.ExtractedRecord `json:"structuredData,omitempty"`
	Sufficient     bool                  `json:"sufficient"`
	MissingFields  []string              `json:"missingFields,omitempty"`
	Error          string                `json:"error,omitempty"`
}

// HandleCVUpload 处理单个CV上传请求
// POST /api/v1/cv/upload
func (h *IntakeHandler) HandleCVUpload(ctx context.Context, c *app.RequestContext) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(consts.StatusBadRequest, map[string]string{"error": "文件未找到"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(consts.StatusInternalServerError, map[string]string{"error": "打开文件失败"})
		return
	}
	defer file.Close()

	fileBytes, err := io.ReadAll(file)
	if err != nil {
		c.JSON(consts.StatusInternalServerError, map[string]string{"error": "读取文件失败"})
		return
	}

	resp, err := h.ProcessUpload(ctx, fileBytes, fileHeader.Filename)
	if err != nil {
		c.JSON(consts.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	c.JSON(consts.StatusOK, resp)
}

// ProcessUpload 执行单文件的完整接入流程：去重、落盘、抽取、持久化。
// 抽取失败不整体报错，文档保留EXTRACTION_FAILED状态供后续重试。
func (h *IntakeHandler) ProcessUpload(ctx context.Context, fileBytes []byte, filename string) (*CVUploadResponse, error) {
	if len(fileBytes) == 0 {
		return nil, fmt.Errorf("上传文件内容为空")
	}
	fileMD5Hex := utils.CalculateMD5(fileBytes)

	// 文件级MD5去重，原子检查并登记
	if h.storage != nil && h.storage.Redis != nil {
		exists, err := h.storage.Redis.CheckAndAddRawFileMD5(ctx, fileMD5Hex)
		if err != nil {
			logger.Error().
				Err(err).
				Str("md5", fileMD5Hex).
				Msg("查询Redis文件MD5 Set失败")
			return nil, fmt.Errorf("检查文件MD5重复性时Redis查询失败: %w", err)
		}
		if exists {
			existingUUID, _ := h.storage.Redis.GetDocumentByMD5(ctx, fileMD5Hex)
			logger.Info().
				Str("md5", fileMD5Hex).
				Str("filename", filename).
				Msg("检测到重复的文件MD5，跳过处理")
			return &CVUploadResponse{
				DocumentUUID: existingUUID,
				Status:       "DUPLICATE_FILE_SKIPPED",
			}, nil
		}
	}

	uuidV7, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("生成UUIDv7失败: %w", err)
	}
	documentUUID := uuidV7.String()

	ext := filepath.Ext(filename)
	if ext == "" {
		ext = ".pdf"
	}

	var objectKey string
	if h.storage != nil && h.storage.MinIO != nil {
		objectKey, err = h.storage.MinIO.UploadCVFile(ctx, documentUUID, ext, bytes.NewReader(fileBytes), int64(len(fileBytes)))
		if err != nil {
			// 上传失败时回滚去重登记，否则该文件将永远无法重新提交
			if h.storage.Redis != nil {
				if rmErr := h.storage.Redis.RemoveRawFileMD5(ctx, fileMD5Hex); rmErr != nil {
					logger.Warn().Err(rmErr).Str("md5", fileMD5Hex).Msg("回滚文件MD5登记失败")
				}
			}
			return nil, fmt.Errorf("上传CV到MinIO失败: %w", err)
		}
	}

	if h.storage != nil && h.storage.MySQL != nil {
		doc := &models.CVDocument{
			DocumentUUID:        documentUUID,
			OriginalFilename:    filename,
			OriginalFilePathOSS: objectKey,
			RawFileMD5:          fileMD5Hex,
			ProcessingStatus:    constants.StatusUploaded,
			ExtractorVersion:    h.cfg.ActiveExtractorVersion,
		}
		if err := h.storage.MySQL.CreateCVDocument(ctx, doc); err != nil {
			return nil, fmt.Errorf("创建CV文档记录失败: %w", err)
		}
	}

	if h.storage != nil && h.storage.Redis != nil {
		if err := h.storage.Redis.MapMD5ToDocument(ctx, fileMD5Hex, documentUUID); err != nil {
			logger.Warn().
				Err(err).
				Str("md5", fileMD5Hex).
				Str("document_uuid", documentUUID).
				Msg("建立MD5到文档的映射失败")
		}
	}

	record, err := h.extractAndPersist(ctx, documentUUID, fileMD5Hex, fileBytes, filename)
	if err != nil {
		logger.Error().
			Err(err).
			Str("document_uuid", documentUUID).
			Str("filename", filename).
			Msg("CV结构化抽取失败")
		return &CVUploadResponse{
			DocumentUUID: documentUUID,
			Status:       constants.StatusExtractionFailed,
			Error:        err.Error(),
		}, nil
	}

	missing := cvdata.MissingFields(record)
	return &CVUploadResponse{
		DocumentUUID:   documentUUID,
		Status:         constants.StatusExtracted,
		StructuredData: record,
		Sufficient:     len(missing) == 0,
		MissingFields:  missing,
	}, nil
}

// extractAndPersist 对已落盘的文档执行文本提取与LLM结构化抽取，
// 结果清洗后写入MySQL、MinIO和Redis缓存。
func (h *IntakeHandler) extractAndPersist(ctx context.Context, documentUUID, fileMD5Hex string, fileBytes []byte, filename string) (types.ExtractedRecord, error) {
	h.updateStatus(ctx, documentUUID, constants.StatusExtracting)

	// 相同内容的抽取结果直接复用缓存，省一次LLM调用
	if h.storage != nil && h.storage.Redis != nil {
		if cached, err := h.storage.Redis.GetExtractionResult(ctx, fileMD5Hex); err == nil && cached != "" {
			var record types.ExtractedRecord
			if err := json.Unmarshal([]byte(cached), &record); err == nil {
				logger.Info().
					Str("md5", fileMD5Hex).
					Str("document_uuid", documentUUID).
					Msg("命中抽取结果缓存")
				h.persistExtraction(ctx, documentUUID, fileMD5Hex, record, false)
				return record, nil
			}
		}
	}

	if h.docParser == nil || h.cvExtract == nil {
		err := fmt.Errorf("抽取组件未初始化")
		h.markFailed(ctx, documentUUID, err)
		return nil, err
	}

	text, _, err := h.docParser.ExtractTextFromBytes(ctx, fileBytes, filename)
	if err != nil {
		h.markFailed(ctx, documentUUID, err)
		return nil, fmt.Errorf("提取CV文本失败: %w", err)
	}

	raw, err := h.cvExtract.Extract(ctx, text)
	if err != nil {
		h.markFailed(ctx, documentUUID, err)
		return nil, fmt.Errorf("LLM结构化抽取失败: %w", err)
	}

	record := types.ExtractedRecord(cvdata.SanitizeRecord(raw))
	h.persistExtraction(ctx, documentUUID, fileMD5Hex, record, true)
	return record, nil
}

// persistExtraction 把清洗后的抽取结果持久化到各存储层，单层失败只记日志
func (h *IntakeHandler) persistExtraction(ctx context.Context, documentUUID, fileMD5Hex string, record types.ExtractedRecord, cache bool) {
	if h.storage == nil {
		return
	}

	data, err := json.Marshal(record)
	if err != nil {
		logger.Warn().Err(err).Str("document_uuid", documentUUID).Msg("序列化抽取结果失败")
		return
	}

	var jsonPathOSS string
	if h.storage.MinIO != nil {
		jsonPathOSS, err = h.storage.MinIO.UploadExtractedJSON(ctx, documentUUID, data)
		if err != nil {
			logger.Warn().Err(err).Str("document_uuid", documentUUID).Msg("上传抽取JSON到MinIO失败")
		}
	}

	if h.storage.MySQL != nil {
		if err := h.storage.MySQL.SaveExtractedData(ctx, documentUUID, record, jsonPathOSS, constants.StatusExtracted); err != nil {
			logger.Warn().Err(err).Str("document_uuid", documentUUID).Msg("保存抽取结果到MySQL失败")
		}
	}

	if cache && h.storage.Redis != nil {
		if err := h.storage.Redis.SetExtractionResult(ctx, fileMD5Hex, string(data)); err != nil {
			logger.Warn().Err(err).Str("md5", fileMD5Hex).Msg("写入抽取结果缓存失败")
		}
	}
}

func (h *IntakeHandler) updateStatus(ctx context.Context, documentUUID, status string) {
	if h.storage == nil || h.storage.MySQL == nil {
		return
	}
	if err := h.storage.MySQL.UpdateProcessingStatus(ctx, documentUUID, status); err != nil {
		logger.Warn().Err(err).Str("document_uuid", documentUUID).Str("status", status).Msg("更新文档状态失败")
	}
}

func (h *IntakeHandler) markFailed(ctx context.Context, documentUUID string, cause error) {
	if h.storage == nil || h.storage.MySQL == nil {
		return
	}
	if err := h.storage.MySQL.MarkExtractionFailed(ctx, documentUUID, cause.Error()); err != nil {
		logger.Warn().Err(err).Str("document_uuid", documentUUID).Msg("标记抽取失败状态失败")
	}
}

// BulkProcessResponse 批量处理响应
type BulkProcessResponse struct {
	SessionID string        `json:"sessionId"`
	Total     int           `json:"total"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Items     []*batch.Item `json:"items"`
}

// HandleBulkProcess 处理批量CV上传与抽取请求
// POST /api/v1/cv/bulk-process
// 每个文件独立走完整接入流程，单个失败不影响其余文件；
// 处理结果汇集为一个内存会话，供后续批量创建候选人使用。
func (h *IntakeHandler) HandleBulkProcess(ctx context.Context, c *app.RequestContext) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(consts.StatusBadRequest, map[string]string{"error": "解析multipart表单失败"})
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(consts.StatusBadRequest, map[string]string{"error": "未提供任何文件"})
		return
	}

	items := make([]*batch.Item, 0, len(files))
	for _, fh := range files {
		item := &batch.Item{Filename: fh.Filename}
		items = append(items, item)

		f, err := fh.Open()
		if err != nil {
			item.Error = fmt.Sprintf("打开文件失败: %v", err)
			continue
		}
		fileBytes, readErr := io.ReadAll(f)
		f.Close()
		if readErr != nil {
			item.Error = fmt.Sprintf("读取文件失败: %v", readErr)
			continue
		}

		resp, err := h.ProcessUpload(ctx, fileBytes, fh.Filename)
		if err != nil {
			item.Error = err.Error()
			continue
		}
		switch resp.Status {
		case constants.StatusExtracted:
			item.Success = true
			item.StructuredData = resp.StructuredData
		case "DUPLICATE_FILE_SKIPPED":
			item.Error = "重复文件，已跳过"
		default:
			item.Error = resp.Error
		}
	}

	session := h.newSession(items)

	resp := &BulkProcessResponse{
		SessionID: session.SessionID,
		Total:     len(items),
		Items:     items,
	}
	for _, item := range items {
		if item.Success {
			resp.Succeeded++
		} else {
			resp.Failed++
		}
	}
	c.JSON(consts.StatusOK, resp)
}

// newSession 注册一个新的批量处理会话。
// 会话ID与文档UUID用不同的生成器，方便在日志里一眼区分两类标识。
func (h *IntakeHandler) newSession(items []*batch.Item) *BatchSession {
	session := &BatchSession{
		SessionID: googleuuid.NewString(),
		Items:     items,
		CreatedAt: time.Now(),
	}
	h.mu.Lock()
	h.sessions[session.SessionID] = session
	h.mu.Unlock()
	return session
}

// getSession 按ID查找会话
func (h *IntakeHandler) getSession(sessionID string) (*BatchSession, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.sessions[sessionID]
	return s, ok
}

// HandleGetBatch 查询批量处理会话的当前状态
// GET /api/v1/cv/batch/:session_id
func (h *IntakeHandler) HandleGetBatch(ctx context.Context, c *app.RequestContext) {
	session, ok := h.getSession(c.Param("session_id"))
	if !ok {
		c.JSON(consts.StatusNotFound, map[string]string{"error": "会话不存在"})
		return
	}
	c.JSON(consts.StatusOK, session)
}

// BatchCreateAllResponse 批量创建候选人的聚合结果
type BatchCreateAllResponse struct {
	SessionID    string        `json:"sessionId"`
	SuccessCount int           `json:"successCount"`
	FailureCount int           `json:"failureCount"`
	Items        []*batch.Item `json:"items"`
}

// HandleBatchCreateAll 对会话内所有可用条目批量创建候选人
// POST /api/v1/cv/batch/:session_id/create-all
func (h *IntakeHandler) HandleBatchCreateAll(ctx context.Context, c *app.RequestContext) {
	session, ok := h.getSession(c.Param("session_id"))
	if !ok {
		c.JSON(consts.StatusNotFound, map[string]string{"error": "会话不存在"})
		return
	}

	outcome := h.orch.CreateAll(ctx, session.Items, h.createFromRecord)
	c.JSON(consts.StatusOK, &BatchCreateAllResponse{
		SessionID:    session.SessionID,
		SuccessCount: outcome.SuccessCount,
		FailureCount: outcome.FailureCount,
		Items:        session.Items,
	})
}

// HandleItemCreate 对会话内单个条目创建候选人
// POST /api/v1/cv/batch/:session_id/items/:index/create
func (h *IntakeHandler) HandleItemCreate(ctx context.Context, c *app.RequestContext) {
	session, ok := h.getSession(c.Param("session_id"))
	if !ok {
		c.JSON(consts.StatusNotFound, map[string]string{"error": "会话不存在"})
		return
	}

	idx, err := strconv.Atoi(c.Param("index"))
	if err != nil || idx < 0 || idx >= len(session.Items) {
		c.JSON(consts.StatusBadRequest, map[string]string{"error": "条目索引无效"})
		return
	}

	item := session.Items[idx]
	if !item.Eligible() {
		c.JSON(consts.StatusConflict, map[string]interface{}{
			"error": "条目不可创建（抽取失败、无数据或已创建）",
			"item":  item,
		})
		return
	}

	if err := h.orch.CreateOne(ctx, item, h.createFromRecord); err != nil {
		c.JSON(consts.StatusBadGateway, map[string]interface{}{
			"error": err.Error(),
			"item":  item,
		})
		return
	}
	c.JSON(consts.StatusOK, item)
}

// createFromRecord 批量路径的单条创建回调：清洗、门槛校验、归一化、调用后端
func (h *IntakeHandler) createFromRecord(ctx context.Context, data types.ExtractedRecord) error {
	sanitized := types.ExtractedRecord(cvdata.SanitizeRecord(data))
	if missing := cvdata.MissingFields(sanitized); len(missing) > 0 {
		return fmt.Errorf("候选人信息不足，缺少: %v", missing)
	}
	if h.backend == nil {
		return fmt.Errorf("后端候选人服务未配置")
	}
	return h.backend.CreateCandidate(ctx, cvdata.Normalize(sanitized, nil))
}

// CreateCandidateRequest 直接创建候选人的请求体
type CreateCandidateRequest struct {
	StructuredData types.ExtractedRecord `json:"structuredData"`
	Override       *types.OverridePatch  `json:"override,omitempty"`
	DocumentUUID   string                `json:"documentUuid,omitempty"`
}

// HandleCreateCandidate 处理单个候选人创建请求
// POST /api/v1/candidates
// 信息不足时返回422和缺失字段清单，强制调用方走人工补全。
func (h *IntakeHandler) HandleCreateCandidate(ctx context.Context, c *app.RequestContext) {
	var req CreateCandidateRequest
	if err := json.Unmarshal(c.Request.Body(), &req); err != nil {
		c.JSON(consts.StatusBadRequest, map[string]string{"error": "请求体解析失败"})
		return
	}
	if len(req.StructuredData) == 0 {
		c.JSON(consts.StatusBadRequest, map[string]string{"error": "structuredData 不能为空"})
		return
	}

	sanitized := types.ExtractedRecord(cvdata.SanitizeRecord(req.StructuredData))
	candidate := cvdata.Normalize(sanitized, req.Override)

	// 门槛校验在override合并之后，允许调用方靠补丁补齐缺失字段
	if missing := missingAfterOverride(candidate); len(missing) > 0 {
		c.JSON(consts.StatusUnprocessableEntity, map[string]interface{}{
			"error":         "候选人信息不足，无法创建",
			"missingFields": missing,
		})
		return
	}

	if h.backend == nil {
		c.JSON(consts.StatusInternalServerError, map[string]string{"error": "后端候选人服务未配置"})
		return
	}
	if err := h.backend.CreateCandidate(ctx, candidate); err != nil {
		c.JSON(consts.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}

	if req.DocumentUUID != "" && h.storage != nil && h.storage.MySQL != nil {
		if err := h.storage.MySQL.MarkCandidateCreated(ctx, req.DocumentUUID); err != nil {
			logger.Warn().
				Err(err).
				Str("document_uuid", req.DocumentUUID).
				Msg("标记文档候选人已创建失败")
		}
	}

	c.JSON(consts.StatusCreated, map[string]interface{}{
		"status":       "CANDIDATE_CREATED",
		"personalInfo": candidate.PersonalInfo,
	})
}

// missingAfterOverride 在归一化结果上复查最低字段要求。
// 归一化会把缺失的fullName补成占位符，这里必须把占位符当作缺失处理，
// 否则无名记录会绕过门槛。顺序与抽取路径一致：Full Name在前、Email在后。
func missingAfterOverride(candidate *types.NormalizedCandidate) []string {
	var missing []string
	pi := candidate.PersonalInfo
	hasName := (pi.FullName != "" && pi.FullName != cvdata.FallbackFullName) ||
		(pi.FirstName != "" && pi.LastName != "")
	if !hasName {
		missing = append(missing, cvdata.LabelFullName)
	}
	if pi.Email == "" {
		missing = append(missing, cvdata.LabelEmail)
	}
	return missing
}

// HandleListDocuments 分页查询CV文档记录
// GET /api/v1/cv/documents
func (h *IntakeHandler) HandleListDocuments(ctx context.Context, c *app.RequestContext) {
	if h.storage == nil || h.storage.MySQL == nil {
		c.JSON(consts.StatusServiceUnavailable, map[string]string{"error": "数据库未配置"})
		return
	}

	offset, err := strconv.Atoi(c.Query("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit <= 0 || limit > 100 {
		limit = 20
	}

	docs, total, err := h.storage.MySQL.ListCVDocuments(ctx, offset, limit)
	if err != nil {
		c.JSON(consts.StatusInternalServerError, map[string]string{"error": "查询文档列表失败"})
		return
	}

	c.JSON(consts.StatusOK, map[string]interface{}{
		"data":       docs,
		"totalCount": total,
		"offset":     offset,
		"limit":      limit,
	})
}

// HandleRetryExtraction 对已落盘的文档重新执行结构化抽取。
// 主要用于EXTRACTION_FAILED状态的文档在模型恢复后重试。
// POST /api/v1/cv/documents/:document_uuid/extract
func (h *IntakeHandler) HandleRetryExtraction(ctx context.Context, c *app.RequestContext) {
	if h.storage == nil || h.storage.MySQL == nil || h.storage.MinIO == nil {
		c.JSON(consts.StatusServiceUnavailable, map[string]string{"error": "存储服务未配置"})
		return
	}

	documentUUID := c.Param("document_uuid")
	doc, err := h.storage.MySQL.GetCVDocumentByUUID(ctx, documentUUID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(consts.StatusNotFound, map[string]string{"error": "文档不存在"})
			return
		}
		c.JSON(consts.StatusInternalServerError, map[string]string{"error": "查询文档失败"})
		return
	}

	fileBytes, err := h.storage.MinIO.GetCVFile(ctx, doc.OriginalFilePathOSS)
	if err != nil {
		c.JSON(consts.StatusInternalServerError, map[string]string{"error": "下载原始文件失败"})
		return
	}

	record, err := h.extractAndPersist(ctx, documentUUID, doc.RawFileMD5, fileBytes, doc.OriginalFilename)
	if err != nil {
		c.JSON(consts.StatusOK, &CVUploadResponse{
			DocumentUUID: documentUUID,
			Status:       constants.StatusExtractionFailed,
			Error:        err.Error(),
		})
		return
	}

	missing := cvdata.MissingFields(record)
	c.JSON(consts.StatusOK, &CVUploadResponse{
		DocumentUUID:   documentUUID,
		Status:         constants.StatusExtracted,
		StructuredData: record,
		Sufficient:     len(missing) == 0,
		MissingFields:  missing,
	})
}

// HandleDocumentDownloadURL 签发原始简历文件的临时下载链接
// GET /api/v1/cv/documents/:document_uuid/download
func (h *IntakeHandler) HandleDocumentDownloadURL(ctx context.Context, c *app.RequestContext) {
	if h.storage == nil || h.storage.MySQL == nil || h.storage.MinIO == nil {
		c.JSON(consts.StatusServiceUnavailable, map[string]string{"error": "存储服务未配置"})
		return
	}

	documentUUID := c.Param("document_uuid")
	doc, err := h.storage.MySQL.GetCVDocumentByUUID(ctx, documentUUID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(consts.StatusNotFound, map[string]string{"error": "文档不存在"})
			return
		}
		c.JSON(consts.StatusInternalServerError, map[string]string{"error": "查询文档失败"})
		return
	}

	expiryMinutes, err := strconv.Atoi(c.Query("expiry_minutes"))
	if err != nil || expiryMinutes <= 0 || expiryMinutes > 60 {
		expiryMinutes = 15
	}

	url, err := h.storage.MinIO.GetPresignedURL(ctx, doc.OriginalFilePathOSS, time.Duration(expiryMinutes)*time.Minute)
	if err != nil {
		c.JSON(consts.StatusInternalServerError, map[string]string{"error": "生成下载链接失败"})
		return
	}

	c.JSON(consts.StatusOK, map[string]interface{}{
		"documentUuid":  documentUUID,
		"url":           url,
		"expiryMinutes": expiryMinutes,
	})
}

// HandleDeleteDocument 删除文档：对象存储、去重登记与台账记录一并清理。
// 对象删除失败时中止，避免留下无台账可寻的孤儿对象。
// DELETE /api/v1/cv/documents/:document_uuid
func (h *IntakeHandler) HandleDeleteDocument(ctx context.Context, c *app.RequestContext) {
	if h.storage == nil || h.storage.MySQL == nil {
		c.JSON(consts.StatusServiceUnavailable, map[string]string{"error": "存储服务未配置"})
		return
	}

	documentUUID := c.Param("document_uuid")
	doc, err := h.storage.MySQL.GetCVDocumentByUUID(ctx, documentUUID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(consts.StatusNotFound, map[string]string{"error": "文档不存在"})
			return
		}
		c.JSON(consts.StatusInternalServerError, map[string]string{"error": "查询文档失败"})
		return
	}

	if h.storage.MinIO != nil && doc.OriginalFilePathOSS != "" {
		if err := h.storage.MinIO.DeleteCVFile(ctx, doc.OriginalFilePathOSS); err != nil {
			c.JSON(consts.StatusInternalServerError, map[string]string{"error": "删除原始文件失败"})
			return
		}
	}

	// 清理去重登记，让相同内容的文件可以重新提交
	if h.storage.Redis != nil && doc.RawFileMD5 != "" {
		if err := h.storage.Redis.RemoveRawFileMD5(ctx, doc.RawFileMD5); err != nil {
			logger.Warn().Err(err).Str("md5", doc.RawFileMD5).Msg("清理文件MD5登记失败")
		}
	}

	if err := h.storage.MySQL.DeleteCVDocument(ctx, documentUUID); err != nil {
		c.JSON(consts.StatusInternalServerError, map[string]string{"error": "删除文档记录失败"})
		return
	}

	c.JSON(consts.StatusOK, map[string]string{
		"documentUuid": documentUUID,
		"status":       "DELETED",
	})
}
