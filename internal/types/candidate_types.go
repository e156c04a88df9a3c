package types

// ExtractedRecord 外部AI抽取服务返回的松散结构化简历数据
// 字段可能缺失、为null、或为字面量字符串"null"（上游已知的怪癖），
// 不保证任何固定形状，只有一组文档化的顶层节（personalInfo、workExperience等）。
// 在进入类型化映射之前，必须先经过 cvdata.Sanitize 这个唯一的收口点。
type ExtractedRecord map[string]interface{}

// PersonalInfo 候选人个人信息，后端候选人创建接口要求的严格结构
type PersonalInfo struct {
	FullName   string `json:"fullName"`
	FirstName  string `json:"firstName,omitempty"`
	MiddleName string `json:"middleName,omitempty"`
	LastName   string `json:"lastName,omitempty"`
	Email      string `json:"email"`
	Phone      string `json:"phone,omitempty"`
	Location   string `json:"location,omitempty"`
	Website    string `json:"website,omitempty"`
	LinkedIn   string `json:"linkedIn,omitempty"`
	GitHub     string `json:"github,omitempty"`
	Avatar     string `json:"avatar,omitempty"`
}

// Experience 一段工作经历
type Experience struct {
	Company          string   `json:"company"`
	Position         string   `json:"position"`
	Location         string   `json:"location,omitempty"`
	StartDate        string   `json:"startDate,omitempty"` // 归一化后的 YYYY-MM-DD
	EndDate          string   `json:"endDate,omitempty"`   // 归一化后的 YYYY-MM-DD，在职则缺失
	Description      string   `json:"description,omitempty"`
	Responsibilities []string `json:"responsibilities,omitempty"`
	Achievements     []string `json:"achievements,omitempty"`
	Technologies     []string `json:"technologies,omitempty"`
}

// Education 一段教育经历
type Education struct {
	Institution string   `json:"institution"`
	Degree      string   `json:"degree,omitempty"`
	Field       string   `json:"field,omitempty"`
	Location    string   `json:"location,omitempty"`
	StartDate   string   `json:"startDate,omitempty"`
	EndDate     string   `json:"endDate,omitempty"`
	GPA         string   `json:"gpa,omitempty"`
	Courses     []string `json:"courses,omitempty"`
	Honors      []string `json:"honors,omitempty"`
}

// Certification 一项认证
type Certification struct {
	Name         string `json:"name"`
	Issuer       string `json:"issuer,omitempty"`
	IssueDate    string `json:"issueDate,omitempty"`
	ExpiryDate   string `json:"expiryDate,omitempty"`
	CredentialID string `json:"credentialId,omitempty"`
	URL          string `json:"url,omitempty"`
}

// Award 一项获奖
type Award struct {
	Title       string `json:"title"`
	Issuer      string `json:"issuer,omitempty"`
	Date        string `json:"date,omitempty"`
	Description string `json:"description,omitempty"`
}

// Project 一个项目经历
type Project struct {
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	Role         string   `json:"role,omitempty"`
	URL          string   `json:"url,omitempty"`
	StartDate    string   `json:"startDate,omitempty"`
	EndDate      string   `json:"endDate,omitempty"`
	Technologies []string `json:"technologies,omitempty"`
}

// Language 语言能力
type Language struct {
	Language    string `json:"language"`
	Proficiency string `json:"proficiency,omitempty"`
}

// Reference 推荐人信息
// 只有携带真实标识信息（公司/邮箱/职位至少其一）的推荐人才会被保留
type Reference struct {
	Name     string `json:"name"`
	Company  string `json:"company,omitempty"`
	Position string `json:"position,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

// NormalizedCandidate 后端候选人创建接口消费的完整载荷
// 不变式：所有日期字段（若存在）均为规范的 YYYY-MM-DD；skills 无重复项；
// references 不包含仅有名字的占位条目；任何位置不出现 null 或 "null"。
type NormalizedCandidate struct {
	PersonalInfo   PersonalInfo    `json:"personalInfo"`
	Experience     []Experience    `json:"experience,omitempty"`
	Education      []Education     `json:"education,omitempty"`
	Certifications []Certification `json:"certifications,omitempty"`
	Awards         []Award         `json:"awards,omitempty"`
	Projects       []Project       `json:"projects,omitempty"`
	Skills         []string        `json:"skills,omitempty"`
	Languages      []Language      `json:"languages,omitempty"`
	Interests      []string        `json:"interests,omitempty"`
	References     []Reference     `json:"references,omitempty"`
}

// OverridePatch 调用方（UI层）在创建时临时提供的局部覆盖
// PersonalInfo 按字段合并（非空字段覆盖抽取值），其余顶层字段非nil时整体替换。
// 合并后即丢弃，核心不持有。
type OverridePatch struct {
	PersonalInfo   *PersonalInfo   `json:"personalInfo,omitempty"`
	Experience     []Experience    `json:"experience,omitempty"`
	Education      []Education     `json:"education,omitempty"`
	Certifications []Certification `json:"certifications,omitempty"`
	Awards         []Award         `json:"awards,omitempty"`
	Projects       []Project       `json:"projects,omitempty"`
	Skills         []string        `json:"skills,omitempty"`
	Languages      []Language      `json:"languages,omitempty"`
	Interests      []string        `json:"interests,omitempty"`
	References     []Reference     `json:"references,omitempty"`
}
