package paging

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// maxInvalidRetries 读取过程中数据源连续失效时的最大重试次数
const maxInvalidRetries = 3

// Config 分页配置
type Config struct {
	PageSize           int
	InitialLoadSize    int
	EnablePlaceholders bool
}

// LoadState 一个方向上的加载状态
type LoadState struct {
	Loading    bool  `json:"loading"`
	EndReached bool  `json:"end_reached"`
	Err        error `json:"-"`
}

// States 刷新与追加两个方向的加载状态
type States struct {
	Refresh LoadState `json:"refresh"`
	Append  LoadState `json:"append"`
}

// Pager 组合远端加载与本地读取
type Pager[T any] struct {
	cfg      Config
	mediator RemoteMediator
	factory  *InvalidatingSourceFactory[T]
	logger   *slog.Logger

	// loadMu 保证同一时刻只有一个远端加载
	loadMu sync.Mutex

	mu     sync.Mutex
	source Source[T]
	states States
}

// NewPager 创建 Pager
func NewPager[T any](cfg Config, mediator RemoteMediator, factory *InvalidatingSourceFactory[T]) *Pager[T] {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 20
	}
	if cfg.InitialLoadSize <= 0 {
		cfg.InitialLoadSize = cfg.PageSize
	}
	return &Pager[T]{
		cfg:      cfg,
		mediator: mediator,
		factory:  factory,
		logger:   slog.Default(),
	}
}

// Refresh 从最新位置重新拉取
func (p *Pager[T]) Refresh(ctx context.Context) MediatorResult {
	p.loadMu.Lock()
	defer p.loadMu.Unlock()

	p.setState(func(s *States) { s.Refresh = LoadState{Loading: true} })
	result := p.mediator.Load(ctx, Refresh, p.cfg.InitialLoadSize)
	p.setState(func(s *States) {
		s.Refresh = LoadState{Err: result.Err}
		if result.Err == nil {
			s.Append = LoadState{EndReached: result.EndOfPaginationReached}
		}
	})
	p.logResult(Refresh, result)
	return result
}

// Append 拉取下一页，已到末尾时不发起请求
func (p *Pager[T]) Append(ctx context.Context) MediatorResult {
	p.loadMu.Lock()
	defer p.loadMu.Unlock()

	if p.States().Append.EndReached {
		return Success(true)
	}

	p.setState(func(s *States) { s.Append.Loading = true })
	result := p.mediator.Load(ctx, Append, p.cfg.PageSize)
	p.setState(func(s *States) {
		if result.Err != nil {
			s.Append = LoadState{Err: result.Err}
			return
		}
		s.Append = LoadState{EndReached: result.EndOfPaginationReached}
	})
	p.logResult(Append, result)
	return result
}

// Prepend 向前加载
func (p *Pager[T]) Prepend(ctx context.Context) MediatorResult {
	p.loadMu.Lock()
	defer p.loadMu.Unlock()
	return p.mediator.Load(ctx, Prepend, p.cfg.PageSize)
}

// Load 从本地读取一页，数据源失效时重建后重读
func (p *Pager[T]) Load(ctx context.Context, key *int, loadSize int) (Page[T], error) {
	if loadSize <= 0 {
		loadSize = p.cfg.PageSize
	}
	params := LoadParams{
		Key:                 key,
		LoadSize:            loadSize,
		PlaceholdersEnabled: p.cfg.EnablePlaceholders,
	}

	var lastErr error
	for range maxInvalidRetries {
		src := p.currentSource()
		page, err := src.Load(ctx, params)
		if err == nil && !src.Invalid() {
			return page, nil
		}
		if err != nil && !errors.Is(err, ErrInvalid) {
			return Page[T]{}, err
		}
		lastErr = ErrInvalid
	}
	return Page[T]{}, lastErr
}

// States 返回当前加载状态
func (p *Pager[T]) States() States {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.states
}

// Invalidate 使当前数据源失效
func (p *Pager[T]) Invalidate() {
	p.factory.Invalidate()
}

func (p *Pager[T]) currentSource() Source[T] {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.source == nil || p.source.Invalid() {
		p.source = p.factory.New()
	}
	return p.source
}

func (p *Pager[T]) setState(fn func(s *States)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(&p.states)
}

func (p *Pager[T]) logResult(loadType LoadType, result MediatorResult) {
	if result.Err != nil {
		p.logger.Warn("Remote load failed",
			"loadType", loadType.String(),
			"error", result.Err)
		return
	}
	p.logger.Debug("Remote load finished",
		"loadType", loadType.String(),
		"endReached", result.EndOfPaginationReached)
}
