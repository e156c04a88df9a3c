package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"cv-intake-go/internal/config"
	"cv-intake-go/internal/logger"
	"cv-intake-go/internal/tracing"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/lifecycle"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var minioTracer = otel.Tracer("cv-intake-go/storage/minio")

// ObjectStorage 对象存储接口
type ObjectStorage interface {
	// UploadCVFile 上传原始简历文件，返回对象键
	UploadCVFile(ctx context.Context, documentUUID, fileExt string, reader io.Reader, fileSize int64) (string, error)

	// UploadExtractedJSON 上传结构化抽取结果JSON，返回对象键
	UploadExtractedJSON(ctx context.Context, documentUUID string, data []byte) (string, error)

	// GetCVFile 下载原始简历文件
	GetCVFile(ctx context.Context, objectKey string) ([]byte, error)

	// GetPresignedURL 获取原始文件的预签名URL
	GetPresignedURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error)

	// DeleteCVFile 删除原始简历文件
	DeleteCVFile(ctx context.Context, objectKey string) error
}

var _ ObjectStorage = (*MinIO)(nil)

// MinIO 提供对象存储功能
type MinIO struct {
	client          *minio.Client
	cfg             *config.MinIOConfig
	originalsBucket string
	extractedBucket string
	logger          zerolog.Logger
}

// NewMinIO 创建MinIO客户端并确保存储桶和生命周期规则就绪
func NewMinIO(cfg *config.MinIOConfig) (*MinIO, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MinIO配置不能为空")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("创建MinIO客户端失败: %w", err)
	}

	originalsBucket := cfg.OriginalsBucket
	if originalsBucket == "" {
		originalsBucket = "cv-originals"
	}
	extractedBucket := cfg.ExtractedJSONBucket
	if extractedBucket == "" {
		extractedBucket = "cv-extracted"
	}

	m := &MinIO{
		client:          client,
		cfg:             cfg,
		originalsBucket: originalsBucket,
		extractedBucket: extractedBucket,
		logger:          logger.Logger.With().Str("component", "minio").Logger(),
	}

	if err := m.ensureBucketExists(originalsBucket, cfg.Location); err != nil {
		return nil, fmt.Errorf("确保原始简历存储桶 %s 存在失败: %w", originalsBucket, err)
	}
	if err := m.ensureBucketExists(extractedBucket, cfg.Location); err != nil {
		return nil, fmt.Errorf("确保抽取结果存储桶 %s 存在失败: %w", extractedBucket, err)
	}

	if cfg.OriginalFileExpireDays > 0 || cfg.ExtractedJSONExpireDays > 0 {
		if err := m.setupLifecycleRules(context.Background()); err != nil {
			m.logger.Warn().Err(err).Msg("设置生命周期规则失败")
		}
	}

	m.logger.Info().
		Str("endpoint", cfg.Endpoint).
		Str("originalsBucket", originalsBucket).
		Str("extractedBucket", extractedBucket).
		Msg("MinIO客户端初始化完成")
	return m, nil
}

// ensureBucketExists 确保存储桶存在
func (m *MinIO) ensureBucketExists(bucketName, location string) error {
	exists, err := m.client.BucketExists(context.Background(), bucketName)
	if err != nil {
		return fmt.Errorf("检查存储桶 %s 是否存在时出错: %w", bucketName, err)
	}
	if !exists {
		err = m.client.MakeBucket(context.Background(), bucketName, minio.MakeBucketOptions{Region: location})
		if err != nil {
			return fmt.Errorf("创建存储桶 %s 失败: %w", bucketName, err)
		}
		m.logger.Info().Str("bucket", bucketName).Msg("存储桶已创建")
	}
	return nil
}

// setupLifecycleRules 设置对象生命周期规则
func (m *MinIO) setupLifecycleRules(ctx context.Context) error {
	if m.cfg.OriginalFileExpireDays > 0 {
		if err := m.setupBucketLifecycle(ctx, m.originalsBucket, "expire-originals", m.cfg.OriginalFileExpireDays); err != nil {
			return fmt.Errorf("为原始文件存储桶 %s 设置生命周期失败: %w", m.originalsBucket, err)
		}
	}
	if m.cfg.ExtractedJSONExpireDays > 0 {
		if err := m.setupBucketLifecycle(ctx, m.extractedBucket, "expire-extracted-json", m.cfg.ExtractedJSONExpireDays); err != nil {
			return fmt.Errorf("为抽取结果存储桶 %s 设置生命周期失败: %w", m.extractedBucket, err)
		}
	}
	return nil
}

// setupBucketLifecycle 为指定存储桶设置生命周期规则
func (m *MinIO) setupBucketLifecycle(ctx context.Context, bucketName, ruleID string, expiryDays int) error {
	lcConfig := lifecycle.NewConfiguration()
	lcConfig.Rules = []lifecycle.Rule{
		{
			ID:     ruleID,
			Status: "Enabled",
			Expiration: lifecycle.Expiration{
				Days: lifecycle.ExpirationDays(expiryDays),
			},
		},
	}
	return m.client.SetBucketLifecycle(ctx, bucketName, lcConfig)
}

// UploadCVFile 上传原始简历文件到originalsBucket，返回对象键
func (m *MinIO) UploadCVFile(ctx context.Context, documentUUID, fileExt string, reader io.Reader, fileSize int64) (string, error) {
	ctx, span := minioTracer.Start(ctx, "MinIO.UploadCVFile",
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	objectName := fmt.Sprintf("cv/%s/original%s", documentUUID, fileExt)
	contentType := getContentType(fileExt)

	span.SetAttributes(
		attribute.String("oss.bucket", m.originalsBucket),
		attribute.String("oss.object", objectName),
		attribute.Int64("oss.size", fileSize),
	)

	_, err := m.client.PutObject(ctx, m.originalsBucket, objectName, reader, fileSize,
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		err = fmt.Errorf("上传对象 %s/%s 失败: %w", m.originalsBucket, objectName, err)
		tracing.RecordErrorWithInfo(span, err, tracing.ErrorTypeStorage,
			attribute.String("oss.operation", "PutObject"))
		return "", err
	}

	span.SetStatus(codes.Ok, "")
	return objectName, nil
}

// UploadExtractedJSON 上传结构化抽取结果JSON到extractedBucket
func (m *MinIO) UploadExtractedJSON(ctx context.Context, documentUUID string, data []byte) (string, error) {
	objectName := fmt.Sprintf("cv/%s/extracted.json", documentUUID)
	_, err := m.client.PutObject(ctx, m.extractedBucket, objectName, bytes.NewReader(data),
		int64(len(data)), minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return "", fmt.Errorf("上传抽取结果 %s 到存储桶 %s 失败: %w", objectName, m.extractedBucket, err)
	}
	return objectName, nil
}

// GetCVFile 从originalsBucket获取简历文件
func (m *MinIO) GetCVFile(ctx context.Context, objectKey string) ([]byte, error) {
	ctx, span := minioTracer.Start(ctx, "MinIO.GetCVFile",
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(
		attribute.String("oss.bucket", m.originalsBucket),
		attribute.String("oss.object", objectKey),
	)

	obj, err := m.client.GetObject(ctx, m.originalsBucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		err = fmt.Errorf("获取对象 %s/%s 失败: %w", m.originalsBucket, objectKey, err)
		tracing.RecordError(span, err, tracing.ErrorTypeStorage)
		return nil, err
	}
	defer obj.Close()

	// Stat确认对象确实存在，GetObject本身是惰性的
	if _, err := obj.Stat(); err != nil {
		err = fmt.Errorf("获取对象 %s/%s 状态失败: %w", m.originalsBucket, objectKey, err)
		tracing.RecordError(span, err, tracing.ErrorTypeStorage)
		return nil, err
	}

	data, err := io.ReadAll(obj)
	if err != nil {
		err = fmt.Errorf("读取对象 %s/%s 数据失败: %w", m.originalsBucket, objectKey, err)
		tracing.RecordError(span, err, tracing.ErrorTypeStorage)
		return nil, err
	}

	span.SetAttributes(attribute.Int("oss.bytes_read", len(data)))
	span.SetStatus(codes.Ok, "")
	return data, nil
}

// GetPresignedURL 获取原始文件的预签名URL
func (m *MinIO) GetPresignedURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error) {
	presignedURL, err := m.client.PresignedGetObject(ctx, m.originalsBucket, objectKey, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("生成MinIO预签名URL失败: %w", err)
	}
	return presignedURL.String(), nil
}

// DeleteCVFile 删除原始简历文件
func (m *MinIO) DeleteCVFile(ctx context.Context, objectKey string) error {
	err := m.client.RemoveObject(ctx, m.originalsBucket, objectKey, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("删除对象 %s 失败: %w", objectKey, err)
	}
	return nil
}

// getContentType 根据扩展名推断内容类型
func getContentType(ext string) string {
	switch strings.ToLower(ext) {
	case ".pdf":
		return "application/pdf"
	case ".doc":
		return "application/msword"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".txt":
		return "text/plain"
	case ".html", ".htm":
		return "text/html"
	default:
		return "application/octet-stream"
	}
}
