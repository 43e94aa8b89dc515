package draft

import (
	"context"
	"fmt"
	"time"

	"draftServer/backend/internal/revision"
)

// ChangeCoordinator 负责把单条变更的应用/驳回落到当前内容与版本历史上，
// 并保证外部变更记录的 applied/dismissed 标记与历史保持一致。
type ChangeCoordinator struct {
	revisions *revision.Store
	changes   ChangeStore
	markup    Markup
}

func NewChangeCoordinator(revisions *revision.Store, changes ChangeStore, markup Markup) *ChangeCoordinator {
	return &ChangeCoordinator{revisions: revisions, changes: changes, markup: markup}
}

// 历史为空时先落一个基线版本，保证之后永远有东西可以撤回。
func (c *ChangeCoordinator) seedBaseline(draftID, content string, authorID uint64) {
	if c.revisions.Count(draftID) == 0 {
		c.revisions.AddRevision(draftID, content, authorID, "baseline", nil, nil)
	}
}

// Apply 把一条变更合入当前内容。
// 前置：变更属于该草稿且尚未应用。外部写失败时不落版本。
func (c *ChangeCoordinator) Apply(ctx context.Context, draftID string, change *SectionChange, currentContent string, authorID uint64) (string, error) {
	if change.DraftID != draftID {
		return "", ErrChangeForbidden
	}
	if change.Applied {
		return "", ErrChangeConflict
	}

	c.seedBaseline(draftID, currentContent, authorID)

	updated, err := c.markup.ApplyChangeToContent(ctx, currentContent, change)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMarkupUpstream, err)
	}

	if err := c.changes.SetApplied(ctx, change.ID, true); err != nil {
		return "", err
	}
	change.Applied = true

	c.revisions.AddRevision(draftID, updated, authorID,
		changeDescription("Applied", change), []uint64{change.ID}, nil)
	return updated, nil
}

// Dismiss 驳回一条变更：内容不变，只压掉这条建议。
// 仍然落一个版本（携带 dismissedChangeIds），撤销时才能把驳回也还原。
func (c *ChangeCoordinator) Dismiss(ctx context.Context, draftID string, change *SectionChange, currentContent string, authorID uint64) error {
	if change.DraftID != draftID {
		return ErrChangeForbidden
	}
	if change.Dismissed {
		return ErrChangeConflict
	}

	c.seedBaseline(draftID, currentContent, authorID)

	now := time.Now()
	if err := c.changes.SetDismissed(ctx, change.ID, true, authorID, &now); err != nil {
		return err
	}
	change.Dismissed = true
	change.DismissedBy = authorID
	change.DismissedAt = &now

	c.revisions.AddRevision(draftID, currentContent, authorID,
		changeDescription("Dismissed", change), nil, []uint64{change.ID})
	return nil
}

// Revert 在撤销后把被撤掉版本携带的标记反向还原：
// applied 翻回 false，dismissed 清掉（连同驳回人/时间）。
func (c *ChangeCoordinator) Revert(ctx context.Context, undoneApplied, undoneDismissed []uint64) error {
	for _, id := range undoneApplied {
		if err := c.changes.SetApplied(ctx, id, false); err != nil {
			return err
		}
	}
	for _, id := range undoneDismissed {
		if err := c.changes.SetDismissed(ctx, id, false, 0, nil); err != nil {
			return err
		}
	}
	return nil
}

// Reinstate 在重做后重新施加标记。
// 注意：重做驳回时会写入新的 dismissedBy/dismissedAt，而不是恢复
// 原来的元数据——沿用既有行为，勿"修复"。
func (c *ChangeCoordinator) Reinstate(ctx context.Context, reapplied, redismissed []uint64, by uint64) error {
	for _, id := range reapplied {
		if err := c.changes.SetApplied(ctx, id, true); err != nil {
			return err
		}
	}
	for _, id := range redismissed {
		now := time.Now()
		if err := c.changes.SetDismissed(ctx, id, true, by, &now); err != nil {
			return err
		}
	}
	return nil
}

func changeDescription(verb string, change *SectionChange) string {
	if len(change.Proposed) > 0 && change.Proposed[0].Description != "" {
		return fmt.Sprintf("%s: %s", verb, change.Proposed[0].Description)
	}
	return fmt.Sprintf("%s change %d", verb, change.ID)
}
