package draft

import (
	"context"
	"fmt"
	"sync"
	"time"

	"draftServer/backend/internal/revision"
)

// Service 是请求层使用的门面：编辑 / 撤销 / 重做 / 应用变更 / 驳回变更 /
// 保存 / 删除。
//
// 同一草稿的变更操作整体串行：游标移动和"编辑后截断"在两个请求交错
// 读写同一草稿时会错乱，所以每个草稿一把互斥锁，覆盖从读内容到落版本
// 的完整序列。不同草稿之间完全并行。
type Service struct {
	revisions   *revision.Store
	drafts      DraftStore
	changes     ChangeStore
	differ      Differ
	markup      Markup
	hub         Broadcaster
	coordinator *ChangeCoordinator

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewService(revisions *revision.Store, drafts DraftStore, changes ChangeStore, differ Differ, markup Markup, hub Broadcaster) *Service {
	return &Service{
		revisions:   revisions,
		drafts:      drafts,
		changes:     changes,
		differ:      differ,
		markup:      markup,
		hub:         hub,
		coordinator: NewChangeCoordinator(revisions, changes, markup),
		locks:       make(map[string]*sync.Mutex),
	}
}

func (s *Service) draftLock(draftID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.locks[draftID]
	if m == nil {
		m = &sync.Mutex{}
		s.locks[draftID] = m
	}
	return m
}

// EditResult 返回给编辑者本人（其余观看者走广播）。
type EditResult struct {
	Content string `json:"content"`
	CanUndo bool   `json:"canUndo"`
	CanRedo bool   `json:"canRedo"`
}

// TimelineResult 是撤销/重做的完整响应：恢复后的内容加上重新标注的小节。
// 撤销/重做不广播——发起者在响应里拿到全量状态，广播反而会和
// 他正在进行的编辑互相竞争。
type TimelineResult struct {
	Content  string    `json:"content"`
	Sections []Section `json:"sections"`
	CanUndo  bool      `json:"canUndo"`
	CanRedo  bool      `json:"canRedo"`
}

// ChangeResult 是应用/驳回变更的响应。
type ChangeResult struct {
	Content  string    `json:"content"`
	Sections []Section `json:"sections"`
	CanUndo  bool      `json:"canUndo"`
	CanRedo  bool      `json:"canRedo"`
}

// EditContent 处理一次整文编辑：
// 首次编辑先落基线版本，再落新版本，并把差异广播给除编辑者外的观看者。
func (s *Service) EditContent(ctx context.Context, draftID string, editorID uint64, newContent, description string) (*EditResult, error) {
	mu := s.draftLock(draftID)
	mu.Lock()
	defer mu.Unlock()

	old, err := s.drafts.GetContent(ctx, draftID)
	if err != nil {
		return nil, err
	}

	if s.revisions.Count(draftID) == 0 {
		s.revisions.AddRevision(draftID, old, editorID, "baseline", nil, nil)
	}

	spans := s.differ.Diff(old, newContent)

	// 外部写失败则不落版本，历史保持原样
	if err := s.drafts.UpdateContent(ctx, draftID, newContent, editorID, time.Now()); err != nil {
		return nil, err
	}
	if description == "" {
		description = "Edited content"
	}
	s.revisions.AddRevision(draftID, newContent, editorID, description, nil, nil)

	s.hub.Broadcast(draftID, ContentUpdateEvent{
		EditorID:    editorID,
		Diff:        spans,
		Description: description,
	}, editorID)

	return &EditResult{
		Content: newContent,
		CanUndo: s.revisions.CanUndo(draftID),
		CanRedo: s.revisions.CanRedo(draftID),
	}, nil
}

// Undo 回退一个版本：还原内容、反向还原变更标记、重新标注小节。
func (s *Service) Undo(ctx context.Context, draftID string, userID uint64) (*TimelineResult, error) {
	mu := s.draftLock(draftID)
	mu.Lock()
	defer mu.Unlock()

	content, undoneApplied, undoneDismissed, err := s.revisions.Undo(draftID)
	if err != nil {
		return nil, err
	}
	if err := s.coordinator.Revert(ctx, undoneApplied, undoneDismissed); err != nil {
		return nil, err
	}
	return s.finishTimelineOp(ctx, draftID, userID, content)
}

// Redo 前进一个版本：恢复内容并重新施加变更标记。
func (s *Service) Redo(ctx context.Context, draftID string, userID uint64) (*TimelineResult, error) {
	mu := s.draftLock(draftID)
	mu.Lock()
	defer mu.Unlock()

	content, reapplied, redismissed, err := s.revisions.Redo(draftID)
	if err != nil {
		return nil, err
	}
	if err := s.coordinator.Reinstate(ctx, reapplied, redismissed, userID); err != nil {
		return nil, err
	}
	return s.finishTimelineOp(ctx, draftID, userID, content)
}

func (s *Service) finishTimelineOp(ctx context.Context, draftID string, userID uint64, content string) (*TimelineResult, error) {
	if err := s.drafts.UpdateContent(ctx, draftID, content, userID, time.Now()); err != nil {
		return nil, err
	}
	sections, err := s.markup.Annotate(ctx, draftID, content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMarkupUpstream, err)
	}
	return &TimelineResult{
		Content:  content,
		Sections: sections,
		CanUndo:  s.revisions.CanUndo(draftID),
		CanRedo:  s.revisions.CanRedo(draftID),
	}, nil
}

// ApplyChange 把一条建议变更合入草稿，并向所有观看者（含发起者）
// 广播轻量通知——客户端收到后自行重拉小节状态，不存在回显问题。
func (s *Service) ApplyChange(ctx context.Context, draftID string, changeID, userID uint64) (*ChangeResult, error) {
	mu := s.draftLock(draftID)
	mu.Lock()
	defer mu.Unlock()

	change, err := s.changes.Get(ctx, changeID)
	if err != nil {
		return nil, err
	}
	content, err := s.drafts.GetContent(ctx, draftID)
	if err != nil {
		return nil, err
	}

	updated, err := s.coordinator.Apply(ctx, draftID, change, content, userID)
	if err != nil {
		return nil, err
	}
	if err := s.drafts.UpdateContent(ctx, draftID, updated, userID, time.Now()); err != nil {
		return nil, err
	}

	sections, err := s.markup.Annotate(ctx, draftID, updated)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMarkupUpstream, err)
	}

	s.hub.Broadcast(draftID, SectionChangeAppliedEvent{ChangeID: changeID, AuthorID: userID}, 0)

	return &ChangeResult{
		Content:  updated,
		Sections: sections,
		CanUndo:  s.revisions.CanUndo(draftID),
		CanRedo:  s.revisions.CanRedo(draftID),
	}, nil
}

// DismissChange 驳回一条建议变更，内容不动。
func (s *Service) DismissChange(ctx context.Context, draftID string, changeID, userID uint64) (*ChangeResult, error) {
	mu := s.draftLock(draftID)
	mu.Lock()
	defer mu.Unlock()

	change, err := s.changes.Get(ctx, changeID)
	if err != nil {
		return nil, err
	}
	content, err := s.drafts.GetContent(ctx, draftID)
	if err != nil {
		return nil, err
	}

	if err := s.coordinator.Dismiss(ctx, draftID, change, content, userID); err != nil {
		return nil, err
	}

	sections, err := s.markup.Annotate(ctx, draftID, content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMarkupUpstream, err)
	}

	s.hub.Broadcast(draftID, SectionChangeDismissedEvent{ChangeID: changeID, AuthorID: userID}, 0)

	return &ChangeResult{
		Content:  content,
		Sections: sections,
		CanUndo:  s.revisions.CanUndo(draftID),
		CanRedo:  s.revisions.CanRedo(draftID),
	}, nil
}

// SaveDraft 结束一次编辑会话：历史整体丢弃，通知所有观看者。
func (s *Service) SaveDraft(ctx context.Context, draftID string, userID uint64) {
	mu := s.draftLock(draftID)
	mu.Lock()
	defer mu.Unlock()

	s.revisions.Clear(draftID)
	s.hub.Broadcast(draftID, DraftSavedEvent{UserID: userID}, 0)
}

// DeleteDraft 同上，但事件语义是草稿已删除。
func (s *Service) DeleteDraft(ctx context.Context, draftID string, userID uint64) {
	mu := s.draftLock(draftID)
	mu.Lock()
	defer mu.Unlock()

	s.revisions.Clear(draftID)
	s.hub.Broadcast(draftID, DraftDeletedEvent{UserID: userID}, 0)
}

// RevisionLog 返回历史元信息（不带全文），用于历史面板。
func (s *Service) RevisionLog(draftID string) []revision.Metadata {
	return s.revisions.Log(draftID)
}

// ListChanges 透传外部变更存储，便于客户端在收到变更事件后重拉。
func (s *Service) ListChanges(ctx context.Context, draftID string) ([]*SectionChange, error) {
	return s.changes.ListByDraft(ctx, draftID)
}
