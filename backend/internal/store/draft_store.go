package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"draftServer/backend/internal/draft"
)

// DraftStore 读写草稿正文（外部 MySQL 表，本引擎不拥有建表）。
type DraftStore struct{ db *sql.DB }

func NewDraftStore(db *sql.DB) *DraftStore {
	return &DraftStore{db: db}
}

func (s *DraftStore) GetContent(ctx context.Context, draftID string) (string, error) {
	var content string
	err := s.db.QueryRowContext(ctx,
		`SELECT content FROM drafts WHERE id = ?`,
		draftID,
	).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return "", draft.ErrDraftNotFound
	}
	return content, err
}

func (s *DraftStore) UpdateContent(ctx context.Context, draftID, content string, editorID uint64, editedAt time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE drafts SET content = ?, edited_by = ?, edited_at = ? WHERE id = ?`,
		content,
		editorID,
		editedAt,
		draftID,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// 0 行受影响也可能是内容原样重写，先确认草稿确实不存在
		var one int
		if scanErr := s.db.QueryRowContext(ctx, `SELECT 1 FROM drafts WHERE id = ?`, draftID).Scan(&one); errors.Is(scanErr, sql.ErrNoRows) {
			return draft.ErrDraftNotFound
		}
	}
	return nil
}
