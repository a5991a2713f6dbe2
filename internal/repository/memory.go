package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"sudooom.fedi.sync/internal/model"
)

// memState 内存存储的一个不可变快照，写事务在副本上修改后整体替换
type memState struct {
	accounts      map[model.AccountID]model.Account
	conversations map[model.AccountID]map[string]model.ConversationRecord
	viewData      map[model.AccountID]map[string]model.StatusViewDataEntity
}

func (s *memState) clone() *memState {
	c := &memState{
		accounts:      make(map[model.AccountID]model.Account, len(s.accounts)),
		conversations: make(map[model.AccountID]map[string]model.ConversationRecord, len(s.conversations)),
		viewData:      make(map[model.AccountID]map[string]model.StatusViewDataEntity, len(s.viewData)),
	}
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k, v := range s.conversations {
		c.conversations[k] = v
	}
	for k, v := range s.viewData {
		c.viewData[k] = v
	}
	return c
}

// MemoryStore 基于写时复制快照的内存存储
// 读者总是看到某次提交后的完整状态
type MemoryStore struct {
	writeMu  sync.Mutex
	mu       sync.RWMutex
	state    *memState
	notifier *Notifier
}

// NewMemoryStore 创建内存存储
func NewMemoryStore(notifier *Notifier) *MemoryStore {
	if notifier == nil {
		notifier = NewNotifier()
	}
	return &MemoryStore{
		state: &memState{
			accounts:      make(map[model.AccountID]model.Account),
			conversations: make(map[model.AccountID]map[string]model.ConversationRecord),
			viewData:      make(map[model.AccountID]map[string]model.StatusViewDataEntity),
		},
		notifier: notifier,
	}
}

// Notifier 返回通知器
func (m *MemoryStore) Notifier() *Notifier {
	return m.notifier
}

func (m *MemoryStore) snapshot() *memState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// memTx 内存写事务
type memTx struct {
	state   *memState
	owned   map[model.AccountID]bool // 本事务已复制的会话表
	ownedVD map[model.AccountID]bool // 本事务已复制的覆盖层表
	touched map[model.AccountID]bool
}

func (m *MemoryStore) update(ctx context.Context, fn func(tx *memTx) error) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &memTx{
		state:   m.snapshot().clone(),
		owned:   make(map[model.AccountID]bool),
		ownedVD: make(map[model.AccountID]bool),
		touched: make(map[model.AccountID]bool),
	}
	if err := fn(tx); err != nil {
		return err
	}

	// 提交
	m.mu.Lock()
	m.state = tx.state
	m.mu.Unlock()

	ids := make([]model.AccountID, 0, len(tx.touched))
	for id := range tx.touched {
		ids = append(ids, id)
	}
	m.notifier.Notify(ids...)
	return nil
}

func (tx *memTx) conversations(accountID model.AccountID) map[string]model.ConversationRecord {
	if !tx.owned[accountID] {
		src := tx.state.conversations[accountID]
		dst := make(map[string]model.ConversationRecord, len(src))
		for k, v := range src {
			dst[k] = v
		}
		tx.state.conversations[accountID] = dst
		tx.owned[accountID] = true
	}
	tx.touched[accountID] = true
	return tx.state.conversations[accountID]
}

func (tx *memTx) viewData(accountID model.AccountID) map[string]model.StatusViewDataEntity {
	if !tx.ownedVD[accountID] {
		src := tx.state.viewData[accountID]
		dst := make(map[string]model.StatusViewDataEntity, len(src))
		for k, v := range src {
			dst[k] = v
		}
		tx.state.viewData[accountID] = dst
		tx.ownedVD[accountID] = true
	}
	tx.touched[accountID] = true
	return tx.state.viewData[accountID]
}

func (tx *memTx) requireAccount(accountID model.AccountID) error {
	if _, ok := tx.state.accounts[accountID]; !ok {
		return ErrAccountNotFound
	}
	return nil
}

// DeleteConversationsForAccount 删除账号的全部会话行
func (tx *memTx) DeleteConversationsForAccount(ctx context.Context, accountID model.AccountID) error {
	tx.state.conversations[accountID] = make(map[string]model.ConversationRecord)
	tx.owned[accountID] = true
	tx.touched[accountID] = true
	return nil
}

// UpsertConversations 写入会话行并合并覆盖层默认值
func (tx *memTx) UpsertConversations(ctx context.Context, records []model.ConversationRecord) error {
	for _, rec := range records {
		if err := tx.requireAccount(rec.AccountID); err != nil {
			return err
		}
		defaults := rec.ViewData
		rec.ViewData = model.StatusViewDataEntity{}
		tx.conversations(rec.AccountID)[rec.ID] = rec

		vd := tx.viewData(rec.AccountID)
		merged := vd[rec.LastStatus.ID].Merge(defaults)
		merged.AccountID = rec.AccountID
		merged.ServerID = rec.LastStatus.ID
		vd[rec.LastStatus.ID] = merged
	}
	return nil
}

// RunInTx 在单个写事务内执行 fn
func (m *MemoryStore) RunInTx(ctx context.Context, fn func(tx Tx) error) error {
	return m.update(ctx, func(tx *memTx) error {
		return fn(tx)
	})
}

// withViewData 为读取结果附加覆盖层
func (s *memState) withViewData(rec model.ConversationRecord) model.ConversationRecord {
	vd, ok := s.viewData[rec.AccountID][rec.LastStatus.ID]
	if !ok {
		vd = model.StatusViewDataEntity{AccountID: rec.AccountID, ServerID: rec.LastStatus.ID}
	}
	rec.ViewData = vd
	return rec
}

// Conversations 按 sort_order 升序读取
func (m *MemoryStore) Conversations(ctx context.Context, accountID model.AccountID, offset, limit int) ([]model.ConversationRecord, error) {
	return m.snapshot().conversationPage(accountID, offset, limit), nil
}

// CountConversations 统计账号的会话数
func (m *MemoryStore) CountConversations(ctx context.Context, accountID model.AccountID) (int, error) {
	return len(m.snapshot().conversations[accountID]), nil
}

// ConversationPage 在同一个快照上读取一段会话与总数
func (m *MemoryStore) ConversationPage(ctx context.Context, accountID model.AccountID, offset, limit int) ([]model.ConversationRecord, int, error) {
	s := m.snapshot()
	return s.conversationPage(accountID, offset, limit), len(s.conversations[accountID]), nil
}

func (s *memState) conversationPage(accountID model.AccountID, offset, limit int) []model.ConversationRecord {
	rows := make([]model.ConversationRecord, 0, len(s.conversations[accountID]))
	for _, rec := range s.conversations[accountID] {
		rows = append(rows, rec)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].SortOrder != rows[j].SortOrder {
			return rows[i].SortOrder < rows[j].SortOrder
		}
		return rows[i].ID < rows[j].ID
	})

	if offset < 0 {
		offset = 0
	}
	if offset >= len(rows) {
		return []model.ConversationRecord{}
	}
	end := len(rows)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	out := make([]model.ConversationRecord, 0, end-offset)
	for _, rec := range rows[offset:end] {
		out = append(out, s.withViewData(rec))
	}
	return out
}

// Conversation 获取单个会话
func (m *MemoryStore) Conversation(ctx context.Context, accountID model.AccountID, id string) (*model.ConversationRecord, error) {
	s := m.snapshot()
	rec, ok := s.conversations[accountID][id]
	if !ok {
		return nil, ErrNotFound
	}
	rec = s.withViewData(rec)
	return &rec, nil
}

// ConversationByStatus 按最后一条状态查找会话
func (m *MemoryStore) ConversationByStatus(ctx context.Context, accountID model.AccountID, statusID string) (*model.ConversationRecord, error) {
	s := m.snapshot()
	for _, rec := range s.conversations[accountID] {
		if rec.LastStatus.ID == statusID {
			rec = s.withViewData(rec)
			return &rec, nil
		}
	}
	return nil, ErrNotFound
}

// DeleteConversation 删除单个会话
func (m *MemoryStore) DeleteConversation(ctx context.Context, accountID model.AccountID, id string) error {
	return m.update(ctx, func(tx *memTx) error {
		if _, ok := tx.state.conversations[accountID][id]; !ok {
			return nil
		}
		delete(tx.conversations(accountID), id)
		return nil
	})
}

// SetUnread 更新会话未读标记
func (m *MemoryStore) SetUnread(ctx context.Context, accountID model.AccountID, id string, unread bool) error {
	return m.update(ctx, func(tx *memTx) error {
		rec, ok := tx.state.conversations[accountID][id]
		if !ok {
			return ErrNotFound
		}
		rec.Unread = unread
		tx.conversations(accountID)[id] = rec
		return nil
	})
}

// updateByStatus 修改最后一条状态为 statusID 的所有会话
func (m *MemoryStore) updateByStatus(ctx context.Context, accountID model.AccountID, statusID string, fn func(s *model.StatusSnapshot)) error {
	return m.update(ctx, func(tx *memTx) error {
		var ids []string
		for id, rec := range tx.state.conversations[accountID] {
			if rec.LastStatus.ID == statusID {
				ids = append(ids, id)
			}
		}
		if len(ids) == 0 {
			return nil
		}
		convs := tx.conversations(accountID)
		for _, id := range ids {
			rec := convs[id]
			fn(&rec.LastStatus)
			convs[id] = rec
		}
		return nil
	})
}

// SetFavourited 更新收藏标记
func (m *MemoryStore) SetFavourited(ctx context.Context, accountID model.AccountID, statusID string, favourited bool) error {
	return m.updateByStatus(ctx, accountID, statusID, func(s *model.StatusSnapshot) {
		if s.Favourited != favourited {
			if favourited {
				s.FavouritesCount++
			} else if s.FavouritesCount > 0 {
				s.FavouritesCount--
			}
		}
		s.Favourited = favourited
	})
}

// SetBookmarked 更新书签标记
func (m *MemoryStore) SetBookmarked(ctx context.Context, accountID model.AccountID, statusID string, bookmarked bool) error {
	return m.updateByStatus(ctx, accountID, statusID, func(s *model.StatusSnapshot) {
		s.Bookmarked = bookmarked
	})
}

// SetMuted 更新静音标记
func (m *MemoryStore) SetMuted(ctx context.Context, accountID model.AccountID, statusID string, muted bool) error {
	return m.updateByStatus(ctx, accountID, statusID, func(s *model.StatusSnapshot) {
		s.Muted = muted
	})
}

// SetVoted 替换投票
func (m *MemoryStore) SetVoted(ctx context.Context, accountID model.AccountID, statusID string, poll *model.Poll) error {
	return m.updateByStatus(ctx, accountID, statusID, func(s *model.StatusSnapshot) {
		s.Poll = poll
	})
}

// StatusViewData 批量读取覆盖层，未保存的ID不出现在结果中
func (m *MemoryStore) StatusViewData(ctx context.Context, accountID model.AccountID, statusIDs []string) (map[string]model.StatusViewDataEntity, error) {
	s := m.snapshot()
	out := make(map[string]model.StatusViewDataEntity, len(statusIDs))
	for _, id := range statusIDs {
		if vd, ok := s.viewData[accountID][id]; ok {
			out[id] = vd
		}
	}
	return out, nil
}

// setViewData 修改单个覆盖层，不存在时创建
func (m *MemoryStore) setViewData(ctx context.Context, accountID model.AccountID, statusID string, fn func(vd *model.StatusViewDataEntity)) error {
	return m.update(ctx, func(tx *memTx) error {
		if err := tx.requireAccount(accountID); err != nil {
			return err
		}
		all := tx.viewData(accountID)
		vd := all[statusID]
		vd.AccountID = accountID
		vd.ServerID = statusID
		fn(&vd)
		all[statusID] = vd
		return nil
	})
}

// SetExpanded 保存内容警告展开状态
func (m *MemoryStore) SetExpanded(ctx context.Context, accountID model.AccountID, statusID string, expanded bool) error {
	return m.setViewData(ctx, accountID, statusID, func(vd *model.StatusViewDataEntity) {
		vd.Expanded = model.Bool(expanded)
	})
}

// SetContentShowing 保存敏感内容显示状态
func (m *MemoryStore) SetContentShowing(ctx context.Context, accountID model.AccountID, statusID string, showing bool) error {
	return m.setViewData(ctx, accountID, statusID, func(vd *model.StatusViewDataEntity) {
		vd.ContentShowing = model.Bool(showing)
	})
}

// SetContentCollapsed 保存长内容折叠状态
func (m *MemoryStore) SetContentCollapsed(ctx context.Context, accountID model.AccountID, statusID string, collapsed bool) error {
	return m.setViewData(ctx, accountID, statusID, func(vd *model.StatusViewDataEntity) {
		vd.ContentCollapsed = model.Bool(collapsed)
	})
}

// SetTranslationState 保存翻译状态
func (m *MemoryStore) SetTranslationState(ctx context.Context, accountID model.AccountID, statusID string, state model.TranslationState) error {
	return m.setViewData(ctx, accountID, statusID, func(vd *model.StatusViewDataEntity) {
		vd.TranslationState = state
	})
}

// UpsertAccount 写入账号
func (m *MemoryStore) UpsertAccount(ctx context.Context, account *model.Account) error {
	return m.update(ctx, func(tx *memTx) error {
		a := *account
		if existing, ok := tx.state.accounts[a.ID]; ok {
			a.CreatedAt = existing.CreatedAt
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = time.Now()
		}
		tx.state.accounts[a.ID] = a
		tx.touched[a.ID] = true
		return nil
	})
}

// Account 获取账号
func (m *MemoryStore) Account(ctx context.Context, id model.AccountID) (*model.Account, error) {
	a, ok := m.snapshot().accounts[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return &a, nil
}

// Accounts 获取全部账号，按ID排序
func (m *MemoryStore) Accounts(ctx context.Context) ([]model.Account, error) {
	s := m.snapshot()
	out := make([]model.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// DeleteAccount 删除账号并级联删除其会话与覆盖层
func (m *MemoryStore) DeleteAccount(ctx context.Context, id model.AccountID) error {
	return m.update(ctx, func(tx *memTx) error {
		if err := tx.requireAccount(id); err != nil {
			return err
		}
		delete(tx.state.accounts, id)
		delete(tx.state.conversations, id)
		delete(tx.state.viewData, id)
		tx.touched[id] = true
		return nil
	})
}
