package repository

import (
	"context"
	"errors"

	"sudooom.fedi.sync/internal/model"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrAccountNotFound = errors.New("account not found")
)

// Tx 事务内的写操作，所有操作在 RunInTx 返回前全部生效或全部丢弃
type Tx interface {
	// DeleteConversationsForAccount 删除账号的全部会话行，覆盖层保留
	DeleteConversationsForAccount(ctx context.Context, accountID model.AccountID) error
	// UpsertConversations 按 (AccountID, ID) 写入会话行；
	// 记录的 ViewData 只填充覆盖层中尚未设置的字段
	UpsertConversations(ctx context.Context, records []model.ConversationRecord) error
}

// Store 本地关系存储，所有数据按账号分区
type Store interface {
	// RunInTx 在单个事务内执行 fn，fn 返回错误时回滚
	RunInTx(ctx context.Context, fn func(tx Tx) error) error

	// Conversations 按 sort_order 升序读取一段会话
	Conversations(ctx context.Context, accountID model.AccountID, offset, limit int) ([]model.ConversationRecord, error)
	CountConversations(ctx context.Context, accountID model.AccountID) (int, error)
	// ConversationPage 读取一段会话以及同一时刻的会话总数
	ConversationPage(ctx context.Context, accountID model.AccountID, offset, limit int) ([]model.ConversationRecord, int, error)
	Conversation(ctx context.Context, accountID model.AccountID, id string) (*model.ConversationRecord, error)
	// ConversationByStatus 查找最后一条状态为 statusID 的会话
	ConversationByStatus(ctx context.Context, accountID model.AccountID, statusID string) (*model.ConversationRecord, error)
	DeleteConversation(ctx context.Context, accountID model.AccountID, id string) error
	SetUnread(ctx context.Context, accountID model.AccountID, id string, unread bool) error

	// 以下按最后一条状态的ID更新
	SetFavourited(ctx context.Context, accountID model.AccountID, statusID string, favourited bool) error
	SetBookmarked(ctx context.Context, accountID model.AccountID, statusID string, bookmarked bool) error
	SetMuted(ctx context.Context, accountID model.AccountID, statusID string, muted bool) error
	SetVoted(ctx context.Context, accountID model.AccountID, statusID string, poll *model.Poll) error

	// 覆盖层
	StatusViewData(ctx context.Context, accountID model.AccountID, statusIDs []string) (map[string]model.StatusViewDataEntity, error)
	SetExpanded(ctx context.Context, accountID model.AccountID, statusID string, expanded bool) error
	SetContentShowing(ctx context.Context, accountID model.AccountID, statusID string, showing bool) error
	SetContentCollapsed(ctx context.Context, accountID model.AccountID, statusID string, collapsed bool) error
	SetTranslationState(ctx context.Context, accountID model.AccountID, statusID string, state model.TranslationState) error

	// 账号，删除账号级联删除其全部数据
	UpsertAccount(ctx context.Context, account *model.Account) error
	Account(ctx context.Context, id model.AccountID) (*model.Account, error)
	Accounts(ctx context.Context) ([]model.Account, error)
	DeleteAccount(ctx context.Context, id model.AccountID) error

	// Notifier 返回提交后发出变更通知的通知器
	Notifier() *Notifier
}
