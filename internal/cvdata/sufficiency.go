package cvdata

import "cv-intake-go/internal/types"

// 缺失字段的人类可读标签，UI直接展示
const (
	LabelFullName = "Full Name"
	LabelEmail    = "Email"
)

// IsSufficient 判断抽取结果是否具备创建候选人的最低字段要求。
// 规则：清洗后personalInfo中 (fullName 或 (firstName 且 lastName)) 且 email。
// 这道门槛用于在创建前强制人工复核，调用方不得绕过。
func IsSufficient(extracted types.ExtractedRecord) bool {
	return len(MissingFields(extracted)) == 0
}

// MissingFields 返回未满足条件的字段标签，固定顺序：Full Name、Email。
func MissingFields(extracted types.ExtractedRecord) []string {
	pi := asMap(SanitizeRecord(extracted)["personalInfo"])

	var missing []string
	hasName := str(pi, "fullName") != "" ||
		(str(pi, "firstName") != "" && str(pi, "lastName") != "")
	if !hasName {
		missing = append(missing, LabelFullName)
	}
	if str(pi, "email") == "" {
		missing = append(missing, LabelEmail)
	}
	return missing
}
