package draft

import "draftServer/backend/internal/diff"

// 广播事件的封闭集合：每种 type 一个变体结构，
// 新增事件必须新增类型并实现 Event，编译器保证不会散落裸字符串。
const (
	EventUserJoined             = "user_joined"
	EventUserLeft               = "user_left"
	EventContentUpdate          = "content_update"
	EventSectionChangeApplied   = "section_change_applied"
	EventSectionChangeDismissed = "section_change_dismissed"
	EventDraftSaved             = "draft_saved"
	EventDraftDeleted           = "draft_deleted"
)

type Event interface {
	EventType() string
}

type UserJoinedEvent struct {
	UserID   uint64 `json:"userId"`
	Username string `json:"username,omitempty"`
}

type UserLeftEvent struct {
	UserID   uint64 `json:"userId"`
	Username string `json:"username,omitempty"`
}

// ContentUpdateEvent 携带结构化差异；发起编辑者本人不会收到
// （本地已经应用过，回显会覆盖其正在输入的内容）。
type ContentUpdateEvent struct {
	EditorID    uint64      `json:"editorId"`
	Diff        []diff.Span `json:"diff"`
	Description string      `json:"description,omitempty"`
}

// 变更应用/驳回只广播 id，收到的客户端自行重新拉取小节状态。
type SectionChangeAppliedEvent struct {
	ChangeID uint64 `json:"changeId"`
	AuthorID uint64 `json:"authorId"`
}

type SectionChangeDismissedEvent struct {
	ChangeID uint64 `json:"changeId"`
	AuthorID uint64 `json:"authorId"`
}

type DraftSavedEvent struct {
	UserID uint64 `json:"userId"`
}

type DraftDeletedEvent struct {
	UserID uint64 `json:"userId"`
}

func (UserJoinedEvent) EventType() string             { return EventUserJoined }
func (UserLeftEvent) EventType() string               { return EventUserLeft }
func (ContentUpdateEvent) EventType() string          { return EventContentUpdate }
func (SectionChangeAppliedEvent) EventType() string   { return EventSectionChangeApplied }
func (SectionChangeDismissedEvent) EventType() string { return EventSectionChangeDismissed }
func (DraftSavedEvent) EventType() string             { return EventDraftSaved }
func (DraftDeletedEvent) EventType() string           { return EventDraftDeleted }
