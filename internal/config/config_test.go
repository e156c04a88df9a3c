package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoadConfigFromFile 验证YAML配置能被成功加载且默认值正确填充
func TestLoadConfigFromFile(t *testing.T) {
	yamlContent := `
server:
  address: ":9000"
  api_key: "secret"
backend:
  base_url: "http://ats:9090"
  request_timeout: "5s"
batch:
  inter_item_delay_ms: 50
extractor:
  modelName: "qwen-plus"
  maxRetries: 5
minio:
  originalsBucket: "cv-originals"
  extractedJSONBucket: "cv-extracted"
`
	tmpDir, err := os.MkdirTemp("", "config-test")
	require.NoError(t, err, "无法创建临时目录")
	defer os.RemoveAll(tmpDir)

	configPath := filepath.Join(tmpDir, "config.yaml")
	err = os.WriteFile(configPath, []byte(yamlContent), 0644)
	require.NoError(t, err, "无法写入临时配置文件")

	config, err := LoadConfig(configPath)
	require.NoError(t, err, "加载配置不应返回错误")
	require.NotNil(t, config, "配置对象不应为 nil")

	assert.Equal(t, ":9000", config.Server.Address)
	assert.Equal(t, "secret", config.Server.APIKey)
	assert.Equal(t, "http://ats:9090", config.Backend.BaseURL)
	assert.Equal(t, "5s", config.Backend.RequestTimeout)
	assert.Equal(t, 50, config.Batch.InterItemDelayMS)
	assert.Equal(t, "qwen-plus", config.Extractor.ModelName)
	assert.Equal(t, 5, config.Extractor.MaxRetries)
	assert.Equal(t, "cv-originals", config.MinIO.OriginalsBucket)

	// 未显式配置的字段应被默认值填充
	assert.Equal(t, 3, config.Backend.MaxRetries)
	assert.Equal(t, "60s", config.Extractor.ExtractionTimeout)
	assert.Equal(t, "cv-intake", config.Tracing.ServiceName)
	assert.Equal(t, "llm-extractor-v1", config.ActiveExtractorVersion)
}

// TestLoadConfigMissingFileInTest 测试环境下缺失配置文件应回落到默认配置
func TestLoadConfigMissingFileInTest(t *testing.T) {
	config, err := LoadConfig(filepath.Join(os.TempDir(), "definitely-not-here", "config.yaml"))
	require.NoError(t, err, "测试环境下缺失配置文件不应报错")
	require.NotNil(t, config)

	assert.Equal(t, ":8080", config.Server.Address)
	assert.Equal(t, "localhost:6379", config.Redis.Address)
	assert.Equal(t, 200, config.Batch.InterItemDelayMS)
}

// TestEnvOverride 环境变量应覆盖文件中的配置
func TestEnvOverride(t *testing.T) {
	yamlContent := `
aliyun:
  api_key: "from-file"
`
	tmpDir, err := os.MkdirTemp("", "config-test-env")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0644))

	t.Setenv("ALIYUN_API_KEY", "from-env")

	config, err := LoadConfig(configPath)
	require.NoError(t, err)
	assert.Equal(t, "from-env", config.Aliyun.APIKey)
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 15*time.Second, GetDuration("15s", time.Second))
	assert.Equal(t, time.Second, GetDuration("", time.Second))
	assert.Equal(t, time.Second, GetDuration("not-a-duration", time.Second))
}

func TestInterItemDelay(t *testing.T) {
	c := &Config{}
	assert.Equal(t, 200*time.Millisecond, c.InterItemDelay(), "未配置时使用默认节流间隔")

	c.Batch.InterItemDelayMS = 50
	assert.Equal(t, 50*time.Millisecond, c.InterItemDelay())
}
