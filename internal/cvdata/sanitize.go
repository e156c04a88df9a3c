// Package cvdata 实现简历抽取数据的清洗、归一化与完备性检查。
// 这是松散类型的抽取数据进入类型化领域模型之前的唯一收口点。
package cvdata

import "strings"

// Sanitize 递归清洗任意嵌套的抽取数据。
// 返回值的第二个bool表示清洗后是否仍有内容（false即"缺失"）：
//   - 标量：null、字面量字符串"null"、空白字符串视为缺失，其余原样返回
//   - 数组：逐元素清洗，丢弃变为缺失的元素；结果为空数组则整体缺失
//   - 映射：逐值清洗，丢弃值变为缺失的键；结果无键则整体缺失
//
// 任何输入形状都被接受，不会panic。这是整个代码库中唯一允许把
// "null"字符串当作哨兵值处理的函数，其余调用方一律以字段缺失为
// "无值"的规范信号。
func Sanitize(v interface{}) (interface{}, bool) {
	switch val := v.(type) {
	case nil:
		return nil, false

	case string:
		if strings.TrimSpace(val) == "" || val == "null" {
			return nil, false
		}
		return val, true

	case map[string]interface{}:
		cleaned := make(map[string]interface{}, len(val))
		for k, inner := range val {
			if c, ok := Sanitize(inner); ok {
				cleaned[k] = c
			}
		}
		if len(cleaned) == 0 {
			return nil, false
		}
		return cleaned, true

	case []interface{}:
		cleaned := make([]interface{}, 0, len(val))
		for _, inner := range val {
			if c, ok := Sanitize(inner); ok {
				cleaned = append(cleaned, c)
			}
		}
		if len(cleaned) == 0 {
			return nil, false
		}
		return cleaned, true

	default:
		// 数字、布尔等其他标量原样保留
		return val, true
	}
}

// SanitizeRecord 对顶层记录做清洗，缺失时返回空map而不是nil，
// 方便上层直接继续做字段提取。
func SanitizeRecord(record map[string]interface{}) map[string]interface{} {
	cleaned, ok := Sanitize(map[string]interface{}(record))
	if !ok {
		return map[string]interface{}{}
	}
	return cleaned.(map[string]interface{})
}
