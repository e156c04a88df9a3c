package extractor

import (
	"context"
	"io"

	"cv-intake-go/internal/types"
)

// DocumentParser 从简历文件中提取纯文本
type DocumentParser interface {
	// ExtractTextFromReader 从Reader中提取文本，返回文本和解析器元数据
	ExtractTextFromReader(ctx context.Context, reader io.Reader, uri string, extraMeta map[string]interface{}) (string, map[string]interface{}, error)

	// ExtractTextFromBytes 从字节数组中提取文本
	ExtractTextFromBytes(ctx context.Context, data []byte, uri string) (string, map[string]interface{}, error)
}

// CVExtractor 把简历纯文本转换为松散类型的结构化记录。
// 返回的记录未经清洗，由上层的规范化管道处理。
type CVExtractor interface {
	Extract(ctx context.Context, cvText string) (types.ExtractedRecord, error)
}
