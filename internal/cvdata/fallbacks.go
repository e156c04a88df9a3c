package cvdata

// 后端候选人创建接口缺省值的字面量。
// 这些字符串是与后端之间事实上的线上契约，修改任何一个都是破坏性变更。
const (
	// FallbackFullName 抽取结果中完全缺失fullName时的占位符，
	// 保证下游的必填校验始终有值可用
	FallbackFullName = "Unknown"

	// FallbackCompany 工作经历中公司名缺失时的占位符
	FallbackCompany = "Unknown Company"

	// FallbackPosition 职位缺失时的占位符
	FallbackPosition = "Position Not Specified"

	// FallbackInstitution 教育经历中院校名缺失时的占位符
	FallbackInstitution = "Unknown Institution"

	// FallbackReferenceCompany 通过筛选的推荐人缺失公司时的占位符
	FallbackReferenceCompany = "Company Not Specified"

	// FallbackReferenceEmail 通过筛选的推荐人缺失邮箱时的占位符
	FallbackReferenceEmail = "no-email@example.com"
)
