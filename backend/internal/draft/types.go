package draft

import (
	"context"
	"time"

	"draftServer/backend/internal/diff"
)

// ProposedEdit 是一条变更里的一个候选编辑。
type ProposedEdit struct {
	Description string `json:"description,omitempty"`
	Search      string `json:"search,omitempty"`
	Replace     string `json:"replace,omitempty"`
}

// SectionChange 是外部存储持有的“对某一节的建议修改”记录。
// 本引擎只协调它的 applied/dismissed 状态，不拥有它的存储。
type SectionChange struct {
	ID          uint64         `json:"id"`
	DraftID     string         `json:"draftId"`
	ChangeType  string         `json:"changeType"`
	Proposed    []ProposedEdit `json:"proposed,omitempty"`
	Applied     bool           `json:"applied"`
	Dismissed   bool           `json:"dismissed"`
	DismissedBy uint64         `json:"dismissedBy,omitempty"`
	DismissedAt *time.Time     `json:"dismissedAt,omitempty"`
}

// Section 是 markup 协作方对草稿全文重新标注后的一个小节。
type Section struct {
	Index            int      `json:"index"`
	Title            string   `json:"title"`
	Body             string   `json:"body"`
	PendingChangeIDs []uint64 `json:"pendingChangeIds,omitempty"`
}

// 草稿内容存储（外部协作方，引擎每次编辑都写穿）
type DraftStore interface {
	GetContent(ctx context.Context, draftID string) (string, error)
	UpdateContent(ctx context.Context, draftID, content string, editorID uint64, editedAt time.Time) error
}

// 变更记录存储（外部协作方）
type ChangeStore interface {
	Get(ctx context.Context, changeID uint64) (*SectionChange, error)
	ListByDraft(ctx context.Context, draftID string) ([]*SectionChange, error)
	SetApplied(ctx context.Context, changeID uint64, applied bool) error
	SetDismissed(ctx context.Context, changeID uint64, dismissed bool, by uint64, at *time.Time) error
}

// 差异协作方：计算新旧全文之间的结构化差异
type Differ interface {
	Diff(oldText, newText string) []diff.Span
}

// markup 协作方：小节标注与把一条变更落到全文上
type Markup interface {
	Annotate(ctx context.Context, draftID, content string) ([]Section, error)
	ApplyChangeToContent(ctx context.Context, content string, change *SectionChange) (string, error)
}

// Broadcaster 把事件推给草稿的本地观看者（及分布式中继）。
// excludeUserID == 0 表示不排除任何人。
type Broadcaster interface {
	Broadcast(draftID string, evt Event, excludeUserID uint64)
}
