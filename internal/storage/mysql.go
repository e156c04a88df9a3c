package storage

import (
	"context"
	"fmt"
	"log"
	"time"

	"cv-intake-go/internal/config"
	"cv-intake-go/internal/constants"
	"cv-intake-go/internal/storage/models"
	"cv-intake-go/internal/tracing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var mysqlTracer = otel.Tracer("cv-intake-go/storage/mysql")

// GormTracingPlugin 是一个GORM插件，用于向OpenTelemetry中添加数据库操作的追踪点
type GormTracingPlugin struct {
	tracer         trace.Tracer
	dbName         string
	disableErrSkip bool
}

// Name 返回插件名称
func (p *GormTracingPlugin) Name() string {
	return "GormOpenTelemetryPlugin"
}

// Initialize 注册GORM回调以启用追踪
func (p *GormTracingPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()

	if err := cb.Create().Before("gorm:create").Register("otel:before_create", p.before("CREATE")); err != nil {
		return err
	}
	if err := cb.Create().After("gorm:create").Register("otel:after_create", p.after()); err != nil {
		return err
	}

	if err := cb.Query().Before("gorm:query").Register("otel:before_query", p.before("SELECT")); err != nil {
		return err
	}
	if err := cb.Query().After("gorm:query").Register("otel:after_query", p.after()); err != nil {
		return err
	}

	if err := cb.Update().Before("gorm:update").Register("otel:before_update", p.before("UPDATE")); err != nil {
		return err
	}
	if err := cb.Update().After("gorm:update").Register("otel:after_update", p.after()); err != nil {
		return err
	}

	if err := cb.Delete().Before("gorm:delete").Register("otel:before_delete", p.before("DELETE")); err != nil {
		return err
	}
	if err := cb.Delete().After("gorm:delete").Register("otel:after_delete", p.after()); err != nil {
		return err
	}

	return nil
}

// before 返回在GORM操作之前执行的回调函数
func (p *GormTracingPlugin) before(operation string) func(db *gorm.DB) {
	return func(db *gorm.DB) {
		if p.disableErrSkip && db.Statement.SkipHooks {
			return
		}

		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}

		tableName := db.Statement.Table
		if tableName == "" {
			tableName = "unknown"
		}

		spanName := fmt.Sprintf("%s %s", operation, tableName)
		opts := []trace.SpanStartOption{
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				semconv.DBSystemMySQL,
				attribute.String("db.name", p.dbName),
				attribute.String("db.operation", operation),
				attribute.String("db.sql.table", tableName),
			),
		}

		newCtx, span := p.tracer.Start(ctx, spanName, opts...)
		db.Statement.Context = context.WithValue(newCtx, "otel-span", span)
	}
}

// after 返回在GORM操作之后执行的回调函数
func (p *GormTracingPlugin) after() func(db *gorm.DB) {
	return func(db *gorm.DB) {
		span, ok := db.Statement.Context.Value("otel-span").(trace.Span)
		if !ok {
			return
		}
		defer span.End()

		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
		if sql := db.Statement.SQL.String(); sql != "" {
			span.SetAttributes(attribute.String("db.statement", tracing.SafeSQL(sql)))
		}

		// ErrRecordNotFound 是业务逻辑正常情况的一部分，不作为错误处理
		if db.Error != nil {
			if db.Error == gorm.ErrRecordNotFound {
				span.SetAttributes(attribute.String("error.type", "record_not_found"))
				span.SetStatus(codes.Ok, "record not found")
			} else {
				tracing.RecordError(span, db.Error, tracing.ErrorTypeDB)
			}
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}
}

// NewGormTracingPlugin 创建一个新的GORM追踪插件
func NewGormTracingPlugin(dbName string) *GormTracingPlugin {
	return &GormTracingPlugin{
		tracer:         mysqlTracer,
		dbName:         dbName,
		disableErrSkip: true,
	}
}

// Database 关系数据库接口
type Database interface {
	DB() *gorm.DB
	Close() error
}

var _ Database = (*MySQL)(nil)

// MySQL 提供关系数据库功能
type MySQL struct {
	db  *gorm.DB
	cfg *config.MySQLConfig
}

// NewMySQL 创建MySQL客户端
func NewMySQL(cfg *config.MySQLConfig) (*MySQL, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MySQL配置不能为空")
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local&timeout=%ds&readTimeout=%ds&writeTimeout=%ds",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database,
		cfg.ConnectTimeoutSeconds, cfg.ReadTimeoutSeconds, cfg.WriteTimeoutSeconds)

	var logLevel logger.LogLevel
	switch cfg.LogLevel {
	case 1:
		logLevel = logger.Silent
	case 2:
		logLevel = logger.Error
	case 3:
		logLevel = logger.Warn
	default:
		logLevel = logger.Info
	}

	gormConfig := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   logger.Default.LogMode(logLevel),
		PrepareStmt:                              true,
		NowFunc: func() time.Time {
			return time.Now().Local()
		},
	}

	db, err := gorm.Open(mysql.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("连接MySQL失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}

	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTimeMinutes) * time.Minute)

	m := &MySQL{
		db:  db,
		cfg: cfg,
	}

	// 注册OpenTelemetry追踪插件
	if err := db.Use(NewGormTracingPlugin(cfg.Database)); err != nil {
		return nil, fmt.Errorf("注册追踪插件失败: %w", err)
	}

	if err := m.autoMigrateSchema(); err != nil {
		if sqlDB, _ := db.DB(); sqlDB != nil {
			sqlDB.Close()
		}
		return nil, fmt.Errorf("自动迁移数据库结构失败: %w", err)
	}

	return m, nil
}

// autoMigrateSchema 使用GORM自动迁移数据库表结构
func (m *MySQL) autoMigrateSchema() error {
	// 迁移时关闭SQL日志打印
	silentLogger := logger.New(
		log.New(log.Writer(), "", log.LstdFlags),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Silent,
			IgnoreRecordNotFoundError: true,
		},
	)
	silentDB := m.db.Session(&gorm.Session{Logger: silentLogger})

	if err := silentDB.AutoMigrate(&models.CVDocument{}); err != nil {
		return fmt.Errorf("GORM自动迁移失败: %w", err)
	}
	return nil
}

// DB 返回GORM数据库连接实例
func (m *MySQL) DB() *gorm.DB {
	return m.db
}

// Close 关闭数据库连接
func (m *MySQL) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	return sqlDB.Close()
}

// CreateCVDocument 插入一条简历文档台账记录
func (m *MySQL) CreateCVDocument(ctx context.Context, doc *models.CVDocument) error {
	return m.db.WithContext(ctx).Create(doc).Error
}

// GetCVDocumentByUUID 通过文档UUID获取台账记录
func (m *MySQL) GetCVDocumentByUUID(ctx context.Context, documentUUID string) (*models.CVDocument, error) {
	var doc models.CVDocument
	if err := m.db.WithContext(ctx).Where("document_uuid = ?", documentUUID).First(&doc).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

// GetCVDocumentByMD5 通过原始文件MD5获取台账记录，不存在时返回 gorm.ErrRecordNotFound
func (m *MySQL) GetCVDocumentByMD5(ctx context.Context, md5Hex string) (*models.CVDocument, error) {
	var doc models.CVDocument
	if err := m.db.WithContext(ctx).Where("raw_file_md5 = ?", md5Hex).First(&doc).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

// ListCVDocuments 分页列出台账记录，按创建时间倒序
func (m *MySQL) ListCVDocuments(ctx context.Context, offset, limit int) ([]models.CVDocument, int64, error) {
	ctx, span := mysqlTracer.Start(ctx, "MySQL.ListCVDocuments",
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(
		semconv.DBSystemMySQL,
		attribute.String("db.name", m.cfg.Database),
		attribute.String("db.sql.table", "cv_documents"),
		attribute.Int("query.offset", offset),
		attribute.Int("query.limit", limit),
	)

	if limit <= 0 {
		limit = 20
	}

	var total int64
	if err := m.db.WithContext(ctx).Model(&models.CVDocument{}).Count(&total).Error; err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return nil, 0, err
	}

	var docs []models.CVDocument
	err := m.db.WithContext(ctx).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&docs).Error
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return nil, 0, err
	}

	span.SetAttributes(attribute.Int("result.count", len(docs)))
	span.SetStatus(codes.Ok, "")
	return docs, total, nil
}

// UpdateProcessingStatus 更新文档的处理状态
func (m *MySQL) UpdateProcessingStatus(ctx context.Context, documentUUID string, status string) error {
	return m.db.WithContext(ctx).Model(&models.CVDocument{}).
		Where("document_uuid = ?", documentUUID).
		Update("processing_status", status).Error
}

// SaveExtractedData 写入抽取结果并把状态推进到EXTRACTED
func (m *MySQL) SaveExtractedData(ctx context.Context, documentUUID string, extracted map[string]interface{}, jsonPathOSS string, status string) error {
	dataJSON, err := models.MapToJSON(extracted)
	if err != nil {
		return err
	}
	updates := map[string]interface{}{
		"extracted_data":          dataJSON,
		"extracted_json_path_oss": jsonPathOSS,
		"processing_status":       status,
	}
	return m.db.WithContext(ctx).Model(&models.CVDocument{}).
		Where("document_uuid = ?", documentUUID).
		Updates(updates).Error
}

// MarkExtractionFailed 记录抽取失败的原因
func (m *MySQL) MarkExtractionFailed(ctx context.Context, documentUUID string, errMsg string) error {
	updates := map[string]interface{}{
		"processing_status": constants.StatusExtractionFailed,
		"error_message":     errMsg,
	}
	return m.db.WithContext(ctx).Model(&models.CVDocument{}).
		Where("document_uuid = ?", documentUUID).
		Updates(updates).Error
}

// DeleteCVDocument 删除文档台账记录
func (m *MySQL) DeleteCVDocument(ctx context.Context, documentUUID string) error {
	return m.db.WithContext(ctx).
		Where("document_uuid = ?", documentUUID).
		Delete(&models.CVDocument{}).Error
}

// MarkCandidateCreated 标记文档对应的候选人已创建
func (m *MySQL) MarkCandidateCreated(ctx context.Context, documentUUID string) error {
	updates := map[string]interface{}{
		"candidate_created": true,
		"processing_status": constants.StatusCandidateCreated,
	}
	return m.db.WithContext(ctx).Model(&models.CVDocument{}).
		Where("document_uuid = ?", documentUUID).
		Updates(updates).Error
}
