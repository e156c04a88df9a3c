package constants

import "time"

const (
	// DefaultExtractorVer 抽取流水线版本号，写入文档台账便于追溯
	DefaultExtractorVer = "llm-extractor-v1"

	// 文档处理状态
	StatusUploaded         = "UPLOADED"
	StatusExtracting       = "EXTRACTING"
	StatusExtracted        = "EXTRACTED"
	StatusExtractionFailed = "EXTRACTION_FAILED"
	StatusCandidateCreated = "CANDIDATE_CREATED"

	// ExtractionCacheDuration 抽取结果缓存时长
	ExtractionCacheDuration = 24 * time.Hour
)
