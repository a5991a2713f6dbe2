package conversation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"sudooom.fedi.sync/internal/api"
	"sudooom.fedi.sync/internal/metrics"
	"sudooom.fedi.sync/internal/model"
	"sudooom.fedi.sync/internal/paging"
	"sudooom.fedi.sync/internal/repository"
)

// API 会话功能依赖的上游接口
type API interface {
	GetConversations(ctx context.Context, maxID string, limit int) (*api.Response[[]model.Conversation], error)
	Statuses(ctx context.Context, ids []string) (*api.Response[[]model.Status], error)
	DeleteConversation(ctx context.Context, id string) (*api.Response[struct{}], error)
	MarkConversationRead(ctx context.Context, id string) (*api.Response[model.Conversation], error)
}

// RemoteMediator 把会话列表的网络页合并进本地存储
// 游标只保存在内存中，进程重启后从 REFRESH 开始
type RemoteMediator struct {
	account *model.Account
	api     API
	store   repository.Store
	metrics *metrics.Metrics
	logger  *slog.Logger

	mu          sync.Mutex
	nextKey     string
	pageCounter int
	endReached  bool
	// refreshed 本进程内是否完成过 REFRESH，之前的 APPEND 按 REFRESH 处理
	refreshed bool
}

// NewRemoteMediator 创建账号的会话 RemoteMediator
func NewRemoteMediator(account *model.Account, client API, store repository.Store, m *metrics.Metrics) *RemoteMediator {
	return &RemoteMediator{
		account: account,
		api:     client,
		store:   store,
		metrics: m,
		logger:  slog.Default().With("accountId", account.ID),
	}
}

// Cursor 返回当前游标与计数
func (m *RemoteMediator) Cursor() (nextKey string, pageCounter int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nextKey, m.pageCounter
}

// Load 执行一次加载
func (m *RemoteMediator) Load(ctx context.Context, loadType paging.LoadType, pageSize int) paging.MediatorResult {
	start := time.Now()
	result := m.load(ctx, loadType, pageSize)

	outcome := "success"
	if result.Err != nil {
		outcome = "error"
	}
	m.metrics.ObserveLoad(loadType.String(), outcome, start)
	return result
}

func (m *RemoteMediator) load(ctx context.Context, loadType paging.LoadType, pageSize int) paging.MediatorResult {
	// 服务端无法从任意位置向更新的方向翻页
	if loadType == paging.Prepend {
		return paging.Success(true)
	}

	m.mu.Lock()
	nextKey, counter, endReached, refreshed := m.nextKey, m.pageCounter, m.endReached, m.refreshed
	m.mu.Unlock()

	if loadType == paging.Append && !refreshed {
		m.logger.Info("Append before refresh, starting over")
		loadType = paging.Refresh
	}
	if loadType == paging.Append && endReached {
		return paging.Success(true)
	}
	if loadType == paging.Refresh {
		nextKey, counter = "", 0
	}

	if err := ctx.Err(); err != nil {
		return paging.Failure(err)
	}

	resp, err := m.api.GetConversations(ctx, nextKey, pageSize)
	if err != nil {
		m.logger.Warn("Failed to fetch conversations",
			"loadType", loadType.String(),
			"maxId", nextKey,
			"error", err)
		return paging.Failure(err)
	}

	conversations := make([]model.Conversation, 0, len(resp.Body))
	for _, c := range resp.Body {
		if c.LastStatus != nil {
			conversations = append(conversations, c)
		}
	}
	dropped := len(resp.Body) - len(conversations)

	starters := m.conversationStarters(ctx, conversations)
	newNextKey := api.NextMaxID(resp.Header)

	prefs := m.account.Preferences()
	records := make([]model.ConversationRecord, 0, len(conversations))
	for _, c := range conversations {
		records = append(records, recordOf(m.account.ID, c, counter, starters[c.LastStatus.ID], prefs))
		counter++
	}

	err = m.store.RunInTx(ctx, func(tx repository.Tx) error {
		if loadType == paging.Refresh {
			if err := tx.DeleteConversationsForAccount(ctx, m.account.ID); err != nil {
				return err
			}
		}
		if err := tx.UpsertConversations(ctx, records); err != nil {
			return err
		}
		// 请求方已经离开时不提交
		return ctx.Err()
	})
	if err != nil {
		m.logger.Error("Failed to merge conversations",
			"loadType", loadType.String(),
			"error", err)
		return paging.Failure(err)
	}

	m.mu.Lock()
	m.nextKey = newNextKey
	m.pageCounter = counter
	m.endReached = newNextKey == ""
	m.refreshed = true
	m.mu.Unlock()

	m.metrics.AddMerged(len(records), dropped)
	m.logger.Debug("Merged conversations",
		"loadType", loadType.String(),
		"rows", len(records),
		"dropped", dropped,
		"nextKey", newNextKey)

	return paging.Success(newNextKey == "")
}

// conversationStarters 判断每条最后状态是否为其线程的起始状态
// 无法在本地判断的，一次性拉取父状态；父状态不是私信时视为起始状态
func (m *RemoteMediator) conversationStarters(ctx context.Context, conversations []model.Conversation) map[string]bool {
	result := make(map[string]bool, len(conversations))
	// 父状态ID -> 回复它的状态ID
	toCheck := make(map[string][]string)

	for _, c := range conversations {
		s := c.LastStatus
		if !s.IsReply() {
			result[s.ID] = true
			continue
		}
		if s.InReplyToAccountID != nil && s.Account.ID == *s.InReplyToAccountID {
			result[s.ID] = true
			continue
		}
		toCheck[*s.InReplyToID] = append(toCheck[*s.InReplyToID], s.ID)
	}

	if len(toCheck) == 0 {
		return result
	}

	ids := make([]string, 0, len(toCheck))
	for id := range toCheck {
		ids = append(ids, id)
	}
	resp, err := m.api.Statuses(ctx, ids)
	if err != nil {
		m.logger.Warn("Failed to fetch parent statuses", "count", len(ids), "error", err)
		return result
	}
	for _, parent := range resp.Body {
		for _, child := range toCheck[parent.ID] {
			result[child] = parent.Visibility != model.VisibilityDirect
		}
	}
	return result
}

// recordOf 构建会话行，覆盖层取账号默认值
func recordOf(accountID model.AccountID, c model.Conversation, order int, starter bool, prefs model.Preferences) model.ConversationRecord {
	accounts := make([]model.ConversationAccount, 0, len(c.Accounts))
	for _, a := range c.Accounts {
		accounts = append(accounts, model.ConversationAccountOf(a))
	}
	last := c.LastStatus

	return model.ConversationRecord{
		AccountID:             accountID,
		ID:                    c.ID,
		SortOrder:             order,
		Accounts:              accounts,
		Unread:                c.Unread,
		LastStatus:            model.SnapshotOf(last),
		IsConversationStarter: starter,
		ViewData: model.StatusViewDataEntity{
			AccountID:        accountID,
			ServerID:         last.ID,
			Expanded:         model.Bool(prefs.AlwaysOpenSpoiler),
			ContentShowing:   model.Bool(prefs.AlwaysShowSensitiveMedia || !last.Sensitive),
			ContentCollapsed: model.Bool(true),
			TranslationState: model.TranslationShowOriginal,
		},
	}
}
