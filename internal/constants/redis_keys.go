package constants

// Redis Key 前缀和格式常量
// 使用统一的命名规范: cvintake:{module}:{entity}:{unique_id}
const (
	// AppPrefix 是所有Redis Key的统一应用前缀
	AppPrefix = "cvintake"

	// FileModulePrefix 文件模块
	FileModulePrefix = "file"
	// ExtractionModulePrefix 抽取模块
	ExtractionModulePrefix = "extraction"

	// EntityDedupSet 去重集合实体
	EntityDedupSet = "dedup_set"
	// EntityMD5ToDoc MD5到文档UUID的映射实体
	EntityMD5ToDoc = "md5_to_doc"
	// EntityResult 抽取结果实体
	EntityResult = "result"

	// KeyFileMD5Set 原始文件MD5集合，用于快速去重 (SET)
	// 格式: cvintake:file:dedup_set
	KeyFileMD5Set = AppPrefix + ":" + FileModulePrefix + ":" + EntityDedupSet

	// KeyFileMD5ToDocumentUUID MD5到文档UUID的映射 (STRING)
	// 格式: cvintake:file:md5_to_doc:{md5}
	KeyFileMD5ToDocumentUUID = AppPrefix + ":" + FileModulePrefix + ":" + EntityMD5ToDoc + ":%s"

	// KeyExtractionResult 按文本MD5缓存的抽取结果 (STRING, JSON)
	// 格式: cvintake:extraction:result:{md5}
	KeyExtractionResult = AppPrefix + ":" + ExtractionModulePrefix + ":" + EntityResult + ":%s"
)
