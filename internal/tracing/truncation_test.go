package tracing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskPII(t *testing.T) {
	assert.Equal(t, "", MaskPII(""))
	assert.Equal(t, "*", MaskPII("A"))
	assert.Equal(t, "张*", MaskPII("张三"))
	assert.Equal(t, "王*明", MaskPII("王小明"))
	assert.Equal(t, "my"+strings.Repeat("*", 15)+"om", MaskPII("myemail@example.com"))
	assert.Equal(t, "13*******78", MaskPII("13812345678"))
}

func TestSafeAttributeValue(t *testing.T) {
	// 敏感键名触发掩码，无论值内容如何
	assert.Equal(t, "al"+strings.Repeat("*", 13)+"om", SafeAttributeValue("user.email", "alice@example.com", DefaultMaxLength))
	assert.Equal(t, "张*", SafeAttributeValue("candidate.姓名", "张三", DefaultMaxLength))

	// 非敏感键名只做截断
	long := strings.Repeat("x", 300)
	safe := SafeAttributeValue("db.statement", long, DefaultMaxLength)
	assert.LessOrEqual(t, len([]rune(safe)), DefaultMaxLength)
	assert.Contains(t, safe, "...")

	short := SafeAttributeValue("db.statement", "SELECT 1", DefaultMaxLength)
	assert.Equal(t, "SELECT 1", short)
}

func TestSafeSQLAndRedisKey(t *testing.T) {
	longSQL := "SELECT * FROM cv_documents WHERE " + strings.Repeat("a=1 AND ", 200) + "b=2"
	assert.LessOrEqual(t, len([]rune(SafeSQL(longSQL))), MaxSQLLength)

	longKey := "cv:extraction:" + strings.Repeat("f", 200)
	assert.LessOrEqual(t, len([]rune(SafeRedisKey(longKey))), MaxRedisLength)
	assert.Equal(t, "cv:md5", SafeRedisKey("cv:md5"))
}

func TestSafeCVContent(t *testing.T) {
	text := strings.Repeat("简", 400)
	preview := SafeCVContent(text)
	assert.LessOrEqual(t, len([]rune(preview)), MaxCVTextLength)
	assert.Contains(t, preview, "...")
}
