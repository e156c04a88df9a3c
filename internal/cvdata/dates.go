package cvdata

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"cv-intake-go/internal/logger"
)

// ISODateLayout 输出的规范日期格式
const ISODateLayout = "2006-01-02"

var (
	yearOnlyRe  = regexp.MustCompile(`^\d{4}$`)
	yearRangeRe = regexp.MustCompile(`^(\d{4})\s*[-–—]\s*(\d{4})$`)
	monthYearRe = regexp.MustCompile(`^(\d{1,2})/(\d{4})$`)
)

// monthNameLayouts "<月份名> <年份>" 形式，全称与三字母缩写
var monthNameLayouts = []string{
	"January 2006",
	"Jan 2006",
}

// longFormLayouts "<月份名> <日>, <年份>" 等长格式
var longFormLayouts = []string{
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
}

// fallbackLayouts 通用的兜底格式，最后才尝试
var fallbackLayouts = []string{
	time.RFC3339,
	"2006/01/02",
	"01/02/2006",
	"2006.01.02",
	"2006-01",
	"2006年1月",
	"2006年1月2日",
}

// NormalizeDate 把人工书写的各种日期字符串解析为规范的 YYYY-MM-DD。
// 识别规则按顺序尝试，首个命中即生效：
//  1. 空串、"null"、"present"（忽略大小写）→ 缺失（表示"至今"/未知，不是错误）
//  2. "<月份名> <年份>" → 当月1日
//  3. "<年份>"（4位）→ 当年1月1日
//  4. "<年份1>-<年份2>" 年份区间（含en/em-dash）→ 后一年的6月1日
//     （后一年被视为完成/毕业年份，是沿用的产品决策，见DESIGN.md）
//  5. "<月>/<年份>" 数字形式 → 当月1日
//  6. "YYYY-MM-DD" ISO → 校验后透传
//  7. "<月份名> <日>, <年份>" 长格式 → 标准日历解析
//  8. 兜底：尝试一组通用格式
//
// 任何规则都无法产生合法日期时返回缺失，绝不报错；仅记录一条debug日志。
func NormalizeDate(input string) (string, bool) {
	s := strings.TrimSpace(input)

	// 规则1：显式的"进行中/未知"哨兵
	if s == "" || strings.EqualFold(s, "null") || strings.EqualFold(s, "present") {
		return "", false
	}

	// 规则2："February 2024" / "Feb 2024"
	for _, layout := range monthNameLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(ISODateLayout), true
		}
	}

	// 规则3："2024"
	if yearOnlyRe.MatchString(s) {
		return s + "-01-01", true
	}

	// 规则4："1982 - 1987"，取后一年
	if m := yearRangeRe.FindStringSubmatch(s); m != nil {
		return m[2] + "-06-01", true
	}

	// 规则5："2/2024" / "02/2024"
	if m := monthYearRe.FindStringSubmatch(s); m != nil {
		month, _ := strconv.Atoi(m[1])
		if month >= 1 && month <= 12 {
			return fmt.Sprintf("%s-%02d-01", m[2], month), true
		}
	}

	// 规则6：已是ISO格式，校验后透传
	if t, err := time.Parse(ISODateLayout, s); err == nil {
		return t.Format(ISODateLayout), true
	}

	// 规则7："February 20, 2024" 等长格式
	for _, layout := range longFormLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(ISODateLayout), true
		}
	}

	// 规则8：兜底的通用解析
	for _, layout := range fallbackLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(ISODateLayout), true
		}
	}

	logger.Debug().Str("input", input).Msg("无法解析的日期字符串，按缺失处理")
	return "", false
}
