package revision

import (
	"errors"
	"sync"
	"time"
)

// 每个草稿的撤销/重做时间线，进程内存态，不做持久化。
// 保存/删除草稿时整体丢弃，下一次编辑会惰性重建。

const DefaultMaxRevisions = 50

var (
	ErrNothingToUndo = errors.New("NOTHING_TO_UNDO")
	ErrNothingToRedo = errors.New("NOTHING_TO_REDO")
)

// Revision 是草稿内容在某一时刻的不可变快照。
// AppliedChangeIDs/DismissedChangeIDs 记录“到达本版本时”新标记的变更，
// 撤销时要把这些标记反向还原。
type Revision struct {
	Content            string
	Timestamp          time.Time
	AuthorID           uint64
	Description        string
	AppliedChangeIDs   []uint64
	DismissedChangeIDs []uint64
}

// Metadata 用于轻量的历史列表展示（不携带全文）。
type Metadata struct {
	Index              int       `json:"index"`
	Timestamp          time.Time `json:"timestamp"`
	AuthorID           uint64    `json:"authorId"`
	Description        string    `json:"description"`
	AppliedChangeIDs   []uint64  `json:"appliedChangeIds,omitempty"`
	DismissedChangeIDs []uint64  `json:"dismissedChangeIds,omitempty"`
}

// history 是单个草稿的版本序列 + 游标。
// current == -1 表示空；非空时 0 <= current < len(revisions)。
type history struct {
	mu        sync.Mutex
	revisions []Revision
	current   int
}

// Store 持有所有草稿的历史。
// 外层 RWMutex 只保护 map 本身；单个草稿的操作由 history.mu 串行化，
// 不同草稿之间互不阻塞。
type Store struct {
	mu           sync.RWMutex
	histories    map[string]*history
	maxRevisions int
}

func NewStore(maxRevisions int) *Store {
	if maxRevisions <= 0 {
		maxRevisions = DefaultMaxRevisions
	}
	return &Store{
		histories:    make(map[string]*history),
		maxRevisions: maxRevisions,
	}
}

// 获取或创建指定草稿的历史（双重检查，热路径只读锁）
func (s *Store) getOrCreate(draftID string) *history {
	s.mu.RLock()
	h := s.histories[draftID]
	s.mu.RUnlock()
	if h != nil {
		return h
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if h = s.histories[draftID]; h == nil {
		h = &history{current: -1}
		s.histories[draftID] = h
	}
	return h
}

func (s *Store) peek(draftID string) *history {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.histories[draftID]
}

// AddRevision 追加一个新版本并把游标指向它。
// 规则：
//   - 游标不在尾部（此前撤销过）时，先丢弃游标之后的所有版本——
//     被放弃的“未来”不保留分叉，否则会在后续无关编辑后凭空复活；
//   - 超过容量时从头部挤掉最旧版本，游标不动
//     （下标整体前移一位，游标仍指向同一个逻辑版本，即新尾部）。
func (s *Store) AddRevision(draftID, content string, authorID uint64, description string, appliedIDs, dismissedIDs []uint64) {
	h := s.getOrCreate(draftID)
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.current < len(h.revisions)-1 {
		h.revisions = h.revisions[:h.current+1]
	}

	rev := Revision{
		Content:            content,
		Timestamp:          time.Now(),
		AuthorID:           authorID,
		Description:        description,
		AppliedChangeIDs:   cloneIDs(appliedIDs),
		DismissedChangeIDs: cloneIDs(dismissedIDs),
	}
	h.revisions = append(h.revisions, rev)
	if len(h.revisions) > s.maxRevisions {
		h.revisions = h.revisions[1:]
	} else {
		h.current++
	}
}

// Undo 把游标回退一格。
// 返回回退后的当前内容，以及被撤销的那个版本携带的
// applied/dismissed 标记（由调用方负责反向还原外部变更记录）。
func (s *Store) Undo(draftID string) (content string, undoneApplied, undoneDismissed []uint64, err error) {
	h := s.peek(draftID)
	if h == nil {
		return "", nil, nil, ErrNothingToUndo
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current <= 0 {
		return "", nil, nil, ErrNothingToUndo
	}
	undone := h.revisions[h.current]
	h.current--
	return h.revisions[h.current].Content, undone.AppliedChangeIDs, undone.DismissedChangeIDs, nil
}

// Redo 把游标前进一格，返回新当前版本的内容及其携带的标记
// （由调用方重新施加到外部变更记录上）。
func (s *Store) Redo(draftID string) (content string, reapplied, redismissed []uint64, err error) {
	h := s.peek(draftID)
	if h == nil {
		return "", nil, nil, ErrNothingToRedo
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current >= len(h.revisions)-1 {
		return "", nil, nil, ErrNothingToRedo
	}
	h.current++
	r := h.revisions[h.current]
	return r.Content, r.AppliedChangeIDs, r.DismissedChangeIDs, nil
}

func (s *Store) CanUndo(draftID string) bool {
	h := s.peek(draftID)
	if h == nil {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current > 0
}

func (s *Store) CanRedo(draftID string) bool {
	h := s.peek(draftID)
	if h == nil {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current < len(h.revisions)-1
}

// Clear 整体丢弃草稿的历史（保存/删除草稿时调用）。
func (s *Store) Clear(draftID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.histories, draftID)
}

// CurrentContent 返回游标所指版本的内容；历史为空时 ok=false。
func (s *Store) CurrentContent(draftID string) (string, bool) {
	h := s.peek(draftID)
	if h == nil {
		return "", false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current < 0 {
		return "", false
	}
	return h.revisions[h.current].Content, true
}

func (s *Store) Count(draftID string) int {
	h := s.peek(draftID)
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.revisions)
}

// RevisionAt 返回下标处的版本快照；越界时 ok=false。
func (s *Store) RevisionAt(draftID string, index int) (Revision, bool) {
	h := s.peek(draftID)
	if h == nil {
		return Revision{}, false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if index < 0 || index >= len(h.revisions) {
		return Revision{}, false
	}
	return h.revisions[index], true
}

// Log 返回全部版本的元信息（不带内容），按时间顺序。
func (s *Store) Log(draftID string) []Metadata {
	h := s.peek(draftID)
	if h == nil {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Metadata, len(h.revisions))
	for i, r := range h.revisions {
		out[i] = Metadata{
			Index:              i,
			Timestamp:          r.Timestamp,
			AuthorID:           r.AuthorID,
			Description:        r.Description,
			AppliedChangeIDs:   r.AppliedChangeIDs,
			DismissedChangeIDs: r.DismissedChangeIDs,
		}
	}
	return out
}

func cloneIDs(ids []uint64) []uint64 {
	if len(ids) == 0 {
		return nil
	}
	out := make([]uint64, len(ids))
	copy(out, ids)
	return out
}
