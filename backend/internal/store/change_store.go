package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"

	"draftServer/backend/internal/draft"
)

// sectionChangeRow 是 section_changes 表的 gorm 映射。
// proposed 存 JSON 列，读出时解到 []draft.ProposedEdit。
type sectionChangeRow struct {
	ID          uint64     `gorm:"column:id;primaryKey"`
	DraftID     string     `gorm:"column:draft_id;index"`
	ChangeType  string     `gorm:"column:change_type"`
	Proposed    string     `gorm:"column:proposed;type:json"`
	Applied     bool       `gorm:"column:applied"`
	Dismissed   bool       `gorm:"column:dismissed"`
	DismissedBy *uint64    `gorm:"column:dismissed_by"`
	DismissedAt *time.Time `gorm:"column:dismissed_at"`
}

func (sectionChangeRow) TableName() string { return "section_changes" }

// ChangeStore 实现 draft.ChangeStore。
type ChangeStore struct{ db *gorm.DB }

func NewChangeStore(db *gorm.DB) *ChangeStore {
	return &ChangeStore{db: db}
}

func (s *ChangeStore) Get(ctx context.Context, changeID uint64) (*draft.SectionChange, error) {
	var row sectionChangeRow
	err := s.db.WithContext(ctx).First(&row, "id = ?", changeID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, draft.ErrChangeNotFound
	}
	if err != nil {
		return nil, err
	}
	return rowToChange(&row)
}

func (s *ChangeStore) ListByDraft(ctx context.Context, draftID string) ([]*draft.SectionChange, error) {
	var rows []sectionChangeRow
	if err := s.db.WithContext(ctx).Where("draft_id = ?", draftID).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*draft.SectionChange, 0, len(rows))
	for i := range rows {
		ch, err := rowToChange(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, ch)
	}
	return out, nil
}

func (s *ChangeStore) SetApplied(ctx context.Context, changeID uint64, applied bool) error {
	// MySQL 对“值未变化”的 UPDATE 报 0 行受影响，
	// 所以这里不能用 RowsAffected 判断记录是否存在
	return s.db.WithContext(ctx).Model(&sectionChangeRow{}).
		Where("id = ?", changeID).
		Update("applied", applied).Error
}

func (s *ChangeStore) SetDismissed(ctx context.Context, changeID uint64, dismissed bool, by uint64, at *time.Time) error {
	updates := map[string]any{
		"dismissed":    dismissed,
		"dismissed_at": at,
	}
	if dismissed {
		updates["dismissed_by"] = by
	} else {
		// 撤销驳回时连元数据一起清掉
		updates["dismissed_by"] = nil
	}
	return s.db.WithContext(ctx).Model(&sectionChangeRow{}).
		Where("id = ?", changeID).
		Updates(updates).Error
}

func rowToChange(row *sectionChangeRow) (*draft.SectionChange, error) {
	ch := &draft.SectionChange{
		ID:          row.ID,
		DraftID:     row.DraftID,
		ChangeType:  row.ChangeType,
		Applied:     row.Applied,
		Dismissed:   row.Dismissed,
		DismissedAt: row.DismissedAt,
	}
	if row.DismissedBy != nil {
		ch.DismissedBy = *row.DismissedBy
	}
	if row.Proposed != "" {
		if err := json.Unmarshal([]byte(row.Proposed), &ch.Proposed); err != nil {
			return nil, err
		}
	}
	return ch, nil
}
