package cvdata

import (
	"strings"

	"cv-intake-go/internal/types"
)

// skillGroupKeys skills节下按类别分组的键，展平时的遍历顺序
var skillGroupKeys = []string{
	"technical", "programming", "frameworks", "databases", "tools", "soft", "other",
}

// Normalize 把松散类型的抽取记录映射为后端候选人创建接口要求的严格结构。
// 流程：整体清洗 → 构建personalInfo（带字段级回退链）→ 各重复节逐项整形
// （日期归一化、嵌套数组清洗、命名占位符）→ skills展平去重 → references
// 过滤 → 可选的override合并（override逐字段优先）。
// 对任意畸形输入都返回完整的候选人对象，绝不报错；输出中不会残留
// null或"null"（依赖Sanitize保证）。
func Normalize(extracted types.ExtractedRecord, override *types.OverridePatch) *types.NormalizedCandidate {
	record := SanitizeRecord(extracted)

	candidate := &types.NormalizedCandidate{
		PersonalInfo: buildPersonalInfo(asMap(record["personalInfo"])),
	}

	for _, item := range asSlice(record["workExperience"]) {
		candidate.Experience = append(candidate.Experience, shapeExperience(asMap(item)))
	}
	for _, item := range asSlice(record["education"]) {
		candidate.Education = append(candidate.Education, shapeEducation(asMap(item)))
	}
	for _, item := range asSlice(record["certifications"]) {
		candidate.Certifications = append(candidate.Certifications, shapeCertification(asMap(item)))
	}
	for _, item := range asSlice(record["awards"]) {
		candidate.Awards = append(candidate.Awards, shapeAward(asMap(item)))
	}
	for _, item := range asSlice(record["projects"]) {
		candidate.Projects = append(candidate.Projects, shapeProject(asMap(item)))
	}

	candidate.Skills = flattenSkills(record["skills"])
	candidate.Languages = shapeLanguages(record["languages"])
	candidate.Interests = stringSlice(record["interests"])

	for _, item := range asSlice(record["references"]) {
		if ref, ok := shapeReference(asMap(item)); ok {
			candidate.References = append(candidate.References, ref)
		}
	}

	if override != nil {
		applyOverride(candidate, override)
	}

	return candidate
}

// buildPersonalInfo 从清洗后的personalInfo节构建个人信息，带字段级回退链。
// fullName完全缺失时使用"Unknown"占位符；注意这里刻意不从
// firstName+lastName拼出fullName（保持既有行为，见DESIGN.md）。
func buildPersonalInfo(pi map[string]interface{}) types.PersonalInfo {
	info := types.PersonalInfo{
		FullName:   str(pi, "fullName"),
		FirstName:  str(pi, "firstName"),
		MiddleName: str(pi, "middleName"),
		LastName:   str(pi, "lastName"),
		Email:      str(pi, "email"),
		Phone:      str(pi, "phone", "phoneNumber"),
		Location:   str(pi, "location", "city"),
		Website:    str(pi, "website", "portfolio"),
		LinkedIn:   str(pi, "linkedIn", "linkedin"),
		GitHub:     str(pi, "github", "gitHub"),
		Avatar:     str(pi, "avatar"),
	}
	if info.FullName == "" {
		info.FullName = FallbackFullName
	}
	return info
}

func shapeExperience(m map[string]interface{}) types.Experience {
	exp := types.Experience{
		Company:          str(m, "company", "employer"),
		Position:         str(m, "position", "title", "jobTitle"),
		Location:         str(m, "location"),
		Description:      str(m, "description", "summary"),
		Responsibilities: stringSlice(m["responsibilities"]),
		Achievements:     stringSlice(m["achievements"]),
		Technologies:     stringSlice(m["technologies"]),
	}
	if exp.Company == "" {
		exp.Company = FallbackCompany
	}
	if exp.Position == "" {
		exp.Position = FallbackPosition
	}
	exp.StartDate, _ = NormalizeDate(str(m, "startDate", "from"))
	exp.EndDate, _ = NormalizeDate(str(m, "endDate", "to"))
	return exp
}

func shapeEducation(m map[string]interface{}) types.Education {
	edu := types.Education{
		Institution: str(m, "institution", "school", "university"),
		Degree:      str(m, "degree"),
		Field:       str(m, "field", "fieldOfStudy", "major"),
		Location:    str(m, "location"),
		GPA:         str(m, "gpa"),
		Courses:     stringSlice(m["courses"]),
		Honors:      stringSlice(m["honors"]),
	}
	if edu.Institution == "" {
		edu.Institution = FallbackInstitution
	}
	edu.StartDate, _ = NormalizeDate(str(m, "startDate", "from"))
	edu.EndDate, _ = NormalizeDate(str(m, "endDate", "to", "graduationDate", "graduationYear"))
	return edu
}

func shapeCertification(m map[string]interface{}) types.Certification {
	cert := types.Certification{
		Name:         str(m, "name", "title"),
		Issuer:       str(m, "issuer", "organization", "authority"),
		CredentialID: str(m, "credentialId", "credentialID"),
		URL:          str(m, "url"),
	}
	cert.IssueDate, _ = NormalizeDate(str(m, "issueDate", "date"))
	cert.ExpiryDate, _ = NormalizeDate(str(m, "expiryDate", "expirationDate"))
	return cert
}

func shapeAward(m map[string]interface{}) types.Award {
	award := types.Award{
		Title:       str(m, "title", "name"),
		Issuer:      str(m, "issuer", "organization"),
		Description: str(m, "description"),
	}
	award.Date, _ = NormalizeDate(str(m, "date", "year"))
	return award
}

func shapeProject(m map[string]interface{}) types.Project {
	proj := types.Project{
		Name:         str(m, "name", "title"),
		Description:  str(m, "description"),
		Role:         str(m, "role"),
		URL:          str(m, "url", "link"),
		Technologies: stringSlice(m["technologies"]),
	}
	proj.StartDate, _ = NormalizeDate(str(m, "startDate"))
	proj.EndDate, _ = NormalizeDate(str(m, "endDate"))
	return proj
}

// flattenSkills 把skills节展平为单个去重后的列表。
// 分组形式（technical/programming/...）与平铺数组形式都接受。
// 去重为大小写敏感的精确匹配（已知局限，不做大小写归一）。
func flattenSkills(v interface{}) []string {
	var out []string
	seen := make(map[string]struct{})

	appendSkill := func(s string) {
		if _, dup := seen[s]; dup {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	switch skills := v.(type) {
	case map[string]interface{}:
		for _, key := range skillGroupKeys {
			for _, s := range stringSlice(skills[key]) {
				appendSkill(s)
			}
		}
	case []interface{}:
		for _, s := range stringSlice(skills) {
			appendSkill(s)
		}
	}
	return out
}

// shapeLanguages 语言节既可能是字符串列表也可能是对象列表
func shapeLanguages(v interface{}) []types.Language {
	var out []types.Language
	for _, item := range asSlice(v) {
		switch lang := item.(type) {
		case string:
			out = append(out, types.Language{Language: lang})
		case map[string]interface{}:
			l := types.Language{
				Language:    str(lang, "language", "name"),
				Proficiency: str(lang, "proficiency", "level"),
			}
			if l.Language != "" {
				out = append(out, l)
			}
		}
	}
	return out
}

// shapeReference 整形单个推荐人并判定是否保留。
// 保留条件：名字非空，且公司非空、邮箱形似邮箱（含@）、职位非空三者
// 至少其一。未通过的条目静默丢弃，避免创建几乎为空的占位推荐人。
// 通过筛选后缺失的公司/职位/邮箱用契约占位符补齐。
func shapeReference(m map[string]interface{}) (types.Reference, bool) {
	ref := types.Reference{
		Name:     str(m, "name"),
		Company:  str(m, "company", "organization"),
		Position: str(m, "position", "title"),
		Email:    str(m, "email"),
		Phone:    str(m, "phone"),
	}
	if ref.Name == "" {
		return types.Reference{}, false
	}
	hasEmail := strings.Contains(ref.Email, "@")
	if ref.Company == "" && !hasEmail && ref.Position == "" {
		return types.Reference{}, false
	}
	if ref.Company == "" {
		ref.Company = FallbackReferenceCompany
	}
	if ref.Position == "" {
		ref.Position = FallbackPosition
	}
	if !hasEmail {
		ref.Email = FallbackReferenceEmail
	}
	return ref, true
}

// applyOverride 用用户提供的覆盖值修正构建结果。
// personalInfo按字段合并（override的非空字段获胜），其余顶层字段
// 非nil时整体替换。
func applyOverride(c *types.NormalizedCandidate, o *types.OverridePatch) {
	if o.PersonalInfo != nil {
		mergePersonalInfo(&c.PersonalInfo, o.PersonalInfo)
	}
	if o.Experience != nil {
		c.Experience = o.Experience
	}
	if o.Education != nil {
		c.Education = o.Education
	}
	if o.Certifications != nil {
		c.Certifications = o.Certifications
	}
	if o.Awards != nil {
		c.Awards = o.Awards
	}
	if o.Projects != nil {
		c.Projects = o.Projects
	}
	if o.Skills != nil {
		c.Skills = o.Skills
	}
	if o.Languages != nil {
		c.Languages = o.Languages
	}
	if o.Interests != nil {
		c.Interests = o.Interests
	}
	if o.References != nil {
		c.References = o.References
	}
}

func mergePersonalInfo(dst *types.PersonalInfo, src *types.PersonalInfo) {
	if src.FullName != "" {
		dst.FullName = src.FullName
	}
	if src.FirstName != "" {
		dst.FirstName = src.FirstName
	}
	if src.MiddleName != "" {
		dst.MiddleName = src.MiddleName
	}
	if src.LastName != "" {
		dst.LastName = src.LastName
	}
	if src.Email != "" {
		dst.Email = src.Email
	}
	if src.Phone != "" {
		dst.Phone = src.Phone
	}
	if src.Location != "" {
		dst.Location = src.Location
	}
	if src.Website != "" {
		dst.Website = src.Website
	}
	if src.LinkedIn != "" {
		dst.LinkedIn = src.LinkedIn
	}
	if src.GitHub != "" {
		dst.GitHub = src.GitHub
	}
	if src.Avatar != "" {
		dst.Avatar = src.Avatar
	}
}

// ----- 松散结构的取值辅助 -----

func asMap(v interface{}) map[string]interface{} {
	if m, ok := v.(map[string]interface{}); ok {
		return m
	}
	return nil
}

func asSlice(v interface{}) []interface{} {
	if s, ok := v.([]interface{}); ok {
		return s
	}
	return nil
}

// str 按回退链顺序取第一个非空字符串字段
func str(m map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if s, ok := m[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// stringSlice 提取字符串列表，忽略非字符串元素
func stringSlice(v interface{}) []string {
	items := asSlice(v)
	if len(items) == 0 {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
