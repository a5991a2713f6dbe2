package conversation

import (
	"context"
	"log/slog"
	"sync"

	"sudooom.fedi.sync/internal/api"
	"sudooom.fedi.sync/internal/metrics"
	"sudooom.fedi.sync/internal/model"
	"sudooom.fedi.sync/internal/paging"
	"sudooom.fedi.sync/internal/repository"
	"sudooom.fedi.sync/internal/usecase"
)

// Client 会话、状态与线程操作需要的上游接口
type Client interface {
	API
	usecase.API
	Status(ctx context.Context, id string) (*api.Response[model.Status], error)
	StatusContext(ctx context.Context, id string) (*api.Response[model.StatusContext], error)
}

// ClientFactory 为账号创建上游客户端
type ClientFactory func(account *model.Account) (Client, error)

// ConversationPager 会话分页器
type ConversationPager = paging.Pager[model.ConversationRecord]

type pagerEntry struct {
	account  *model.Account
	pager    *ConversationPager
	mediator *RemoteMediator
	cancel   context.CancelFunc
}

// Repository 按账号管理会话分页器，不存在进程级的当前账号
type Repository struct {
	store   repository.Store
	clients ClientFactory
	cfg     paging.Config
	metrics *metrics.Metrics
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	entries map[model.AccountID]*pagerEntry
}

// NewRepository 创建会话仓库
func NewRepository(store repository.Store, clients ClientFactory, cfg paging.Config, m *metrics.Metrics) *Repository {
	ctx, cancel := context.WithCancel(context.Background())
	return &Repository{
		store:   store,
		clients: clients,
		cfg:     cfg,
		metrics: m,
		logger:  slog.Default(),
		ctx:     ctx,
		cancel:  cancel,
		entries: make(map[model.AccountID]*pagerEntry),
	}
}

// Pager 返回账号的分页器，首次调用时创建
func (r *Repository) Pager(ctx context.Context, accountID model.AccountID) (*ConversationPager, error) {
	e, err := r.entry(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return e.pager, nil
}

// Mediator 返回账号的 RemoteMediator
func (r *Repository) Mediator(ctx context.Context, accountID model.AccountID) (*RemoteMediator, error) {
	e, err := r.entry(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return e.mediator, nil
}

// Account 返回分页器所属的账号
func (r *Repository) Account(ctx context.Context, accountID model.AccountID) (*model.Account, error) {
	e, err := r.entry(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return e.account, nil
}

// Client 返回账号的上游客户端
func (r *Repository) Client(ctx context.Context, accountID model.AccountID) (Client, error) {
	account, err := r.Account(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return r.clients(account)
}

func (r *Repository) entry(ctx context.Context, accountID model.AccountID) (*pagerEntry, error) {
	r.mu.Lock()
	if e, ok := r.entries[accountID]; ok {
		r.mu.Unlock()
		return e, nil
	}
	r.mu.Unlock()

	account, err := r.store.Account(ctx, accountID)
	if err != nil {
		return nil, err
	}
	client, err := r.clients(account)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// 并发创建时保留先完成的
	if e, ok := r.entries[accountID]; ok {
		return e, nil
	}

	mediator := NewRemoteMediator(account, client, r.store, r.metrics)
	factory := paging.NewInvalidatingSourceFactory(func() paging.Source[model.ConversationRecord] {
		return NewPagingSource(accountID, r.store)
	})

	watchCtx, cancel := context.WithCancel(r.ctx)
	changes, unsubscribe := r.store.Notifier().Subscribe(accountID)
	go func() {
		defer unsubscribe()
		factory.Watch(watchCtx, changes)
	}()

	e := &pagerEntry{
		account:  account,
		pager:    paging.NewPager(r.cfg, mediator, factory),
		mediator: mediator,
		cancel:   cancel,
	}
	r.entries[accountID] = e
	r.logger.Debug("Created conversation pager", "accountId", accountID)
	return e, nil
}

// Remove 丢弃账号的分页器，账号偏好或令牌变化后下次访问重新创建
func (r *Repository) Remove(accountID model.AccountID) {
	r.mu.Lock()
	e, ok := r.entries[accountID]
	delete(r.entries, accountID)
	r.mu.Unlock()
	if ok {
		e.cancel()
	}
}

// Close 停止所有变更监听
func (r *Repository) Close() {
	r.cancel()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make(map[model.AccountID]*pagerEntry)
}
