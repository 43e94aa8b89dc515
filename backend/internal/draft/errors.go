package draft

import "errors"

// 错误分类（上层映射为 HTTP 状态码）：
// - NotFound:  草稿/变更不存在
// - Forbidden: 变更不属于请求的草稿
// - Conflict:  变更已处于目标状态（以及无可撤销/重做，见 revision 包）
// - Upstream:  外部存储 / markup / diff 协作方失败
var (
	ErrDraftNotFound   = errors.New("DRAFT_NOT_FOUND")
	ErrChangeNotFound  = errors.New("CHANGE_NOT_FOUND")
	ErrChangeForbidden = errors.New("CHANGE_FORBIDDEN")
	ErrChangeConflict  = errors.New("CHANGE_CONFLICT")
	ErrMarkupUpstream  = errors.New("MARKUP_UPSTREAM_ERROR")
)
