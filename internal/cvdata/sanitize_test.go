package cvdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assertClean 递归断言结果中不存在null/"null"/空串/空集合
func assertClean(t *testing.T, v interface{}) {
	t.Helper()
	switch val := v.(type) {
	case nil:
		t.Fatal("结果中出现nil")
	case string:
		assert.NotEmpty(t, val)
		assert.NotEqual(t, "null", val)
	case map[string]interface{}:
		require.NotEmpty(t, val)
		for _, inner := range val {
			assertClean(t, inner)
		}
	case []interface{}:
		require.NotEmpty(t, val)
		for _, inner := range val {
			assertClean(t, inner)
		}
	}
}

func TestSanitizeStripsSentinels(t *testing.T) {
	input := map[string]interface{}{
		"name":  "Jane",
		"email": nil,
		"phone": "null",
		"notes": "",
		"blank": "   ",
		"nested": map[string]interface{}{
			"keep":  "value",
			"empty": map[string]interface{}{},
			"list":  []interface{}{nil, "null", "", "ok"},
		},
		"emptyList": []interface{}{nil, "null"},
		"years":     float64(5),
		"active":    true,
	}

	cleaned, ok := Sanitize(input)
	require.True(t, ok)
	assertClean(t, cleaned)

	m := cleaned.(map[string]interface{})
	assert.Equal(t, "Jane", m["name"])
	assert.Equal(t, float64(5), m["years"])
	assert.Equal(t, true, m["active"])
	assert.NotContains(t, m, "email")
	assert.NotContains(t, m, "phone")
	assert.NotContains(t, m, "notes")
	assert.NotContains(t, m, "blank")
	assert.NotContains(t, m, "emptyList")

	nested := m["nested"].(map[string]interface{})
	assert.Equal(t, "value", nested["keep"])
	assert.NotContains(t, nested, "empty")
	assert.Equal(t, []interface{}{"ok"}, nested["list"])
}

func TestSanitizeDeepNesting(t *testing.T) {
	// 多层嵌套中只有哨兵值时整棵子树坍缩为缺失
	input := map[string]interface{}{
		"a": map[string]interface{}{
			"b": []interface{}{
				map[string]interface{}{"c": "null"},
				map[string]interface{}{"d": nil},
			},
		},
	}
	_, ok := Sanitize(input)
	assert.False(t, ok)
}

func TestSanitizeScalars(t *testing.T) {
	tests := []struct {
		name   string
		input  interface{}
		want   interface{}
		wantOK bool
	}{
		{"nil缺失", nil, nil, false},
		{"null字符串缺失", "null", nil, false},
		{"空串缺失", "", nil, false},
		{"空白串缺失", "  \t ", nil, false},
		{"普通字符串保留", "hello", "hello", true},
		{"数字保留", float64(0), float64(0), true},
		{"false保留", false, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Sanitize(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestSanitizeIdempotent(t *testing.T) {
	input := map[string]interface{}{
		"personalInfo": map[string]interface{}{
			"fullName": "Jane Doe",
			"email":    "null",
		},
		"skills": []interface{}{"Go", "", "Python"},
	}

	once, ok := Sanitize(input)
	require.True(t, ok)
	twice, ok := Sanitize(once)
	require.True(t, ok)
	assert.Equal(t, once, twice)
}

func TestSanitizeRecordNeverNil(t *testing.T) {
	assert.NotNil(t, SanitizeRecord(nil))
	assert.NotNil(t, SanitizeRecord(map[string]interface{}{"x": nil}))
	assert.Empty(t, SanitizeRecord(map[string]interface{}{"x": "null"}))
}
