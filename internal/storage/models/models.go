package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// CVDocument 简历文档台账表。
// 每个上传的简历文件一条记录，跟踪其对象存储位置、抽取状态和候选人创建标记。
type CVDocument struct {
	DocumentUUID         string         `gorm:"type:char(36);primaryKey"`
	OriginalFilename     string         `gorm:"type:varchar(255)"`
	OriginalFilePathOSS  string         `gorm:"type:varchar(1024)"`
	ExtractedJSONPathOSS string         `gorm:"type:varchar(1024)"`
	RawFileMD5           string         `gorm:"type:char(32);index:idx_cvd_raw_file_md5"`
	ExtractedData        datatypes.JSON `gorm:"type:json"`
	ProcessingStatus     string         `gorm:"type:varchar(50);default:'UPLOADED';index:idx_cvd_processing_status"`
	ExtractorVersion     string         `gorm:"type:varchar(50)"`
	CandidateCreated     bool           `gorm:"default:false;index:idx_cvd_candidate_created"`
	ErrorMessage         string         `gorm:"type:text"`
	CreatedAt            time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt            time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
}

func (CVDocument) TableName() string {
	return "cv_documents"
}

// MapToJSON 将map转换为datatypes.JSON，用于写入GORM的json列
func MapToJSON(m map[string]interface{}) (datatypes.JSON, error) {
	if m == nil {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("序列化map为JSON失败: %w", err)
	}
	return datatypes.JSON(data), nil
}

// JSONToMap 将datatypes.JSON解析回map
func JSONToMap(j datatypes.JSON) (map[string]interface{}, error) {
	if len(j) == 0 {
		return nil, nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal(j, &m); err != nil {
		return nil, fmt.Errorf("解析JSON列失败: %w", err)
	}
	return m, nil
}
