// Package thread 实现单个线程视图的状态机。
// 所有状态转换在单 worker 队列上串行执行；网络请求在队列外并发进行，结果投递回队列。
package thread

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"sudooom.fedi.sync/internal/api"
	"sudooom.fedi.sync/internal/events"
	"sudooom.fedi.sync/internal/model"
	"sudooom.fedi.sync/internal/repository"
	"sudooom.fedi.sync/internal/usecase"
	"sudooom.fedi.sync/internal/viewdata"
	"sudooom.fedi.sync/internal/workerpool"
	apperrors "sudooom.fedi.sync/pkg/errors"
)

const (
	queueSize   = 64
	eventBuffer = 32
	errorBuffer = 16
)

// FilterContext 线程视图使用的过滤上下文
const FilterContext = model.FilterContextThread

var errNoPoll = apperrors.ErrInvalidParams.Wrap(errors.New("status has no poll"))

// API 线程视图依赖的上游接口
type API interface {
	usecase.API
	Status(ctx context.Context, id string) (*api.Response[model.Status], error)
	StatusContext(ctx context.Context, id string) (*api.Response[model.StatusContext], error)
}

// Store 线程视图使用的本地存储
type Store interface {
	ConversationByStatus(ctx context.Context, accountID model.AccountID, statusID string) (*model.ConversationRecord, error)
	StatusViewData(ctx context.Context, accountID model.AccountID, statusIDs []string) (map[string]model.StatusViewDataEntity, error)
	SetExpanded(ctx context.Context, accountID model.AccountID, statusID string, expanded bool) error
	SetContentShowing(ctx context.Context, accountID model.AccountID, statusID string, showing bool) error
	SetContentCollapsed(ctx context.Context, accountID model.AccountID, statusID string, collapsed bool) error
}

// ViewModel 一个账号下一个线程的视图状态
type ViewModel struct {
	account  *model.Account
	prefs    model.Preferences
	statusID string
	client   API
	store    Store
	cases    *usecase.TimelineCases
	logger   *slog.Logger

	queue       *workerpool.Pool
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	unsubscribe func()
	errs        chan error

	// gen 只在队列中读写，用于丢弃过期的加载结果
	gen int

	mu      sync.Mutex
	state   State
	changed chan struct{}
}

// New 创建线程视图并开始监听事件，使用完毕后调用 Close
func New(account *model.Account, statusID string, client API, store Store, cases *usecase.TimelineCases, hub *events.Hub) *ViewModel {
	ctx, cancel := context.WithCancel(context.Background())
	logger := slog.Default().With("accountId", account.ID, "statusId", statusID)
	vm := &ViewModel{
		account:  account,
		prefs:    account.Preferences(),
		statusID: statusID,
		client:   client,
		store:    store,
		cases:    cases,
		logger:   logger,
		queue:    workerpool.New("thread", 1, queueSize, logger),
		ctx:      ctx,
		cancel:   cancel,
		errs:     make(chan error, errorBuffer),
		state:    Loading{},
		changed:  make(chan struct{}),
	}

	ch, unsubscribe := hub.Subscribe(eventBuffer)
	vm.unsubscribe = unsubscribe
	vm.wg.Add(1)
	go vm.watch(ch)
	return vm
}

// Close 停止事件监听和进行中的加载
// 先关闭队列，队列关闭后不会再有新的网络请求发起
func (vm *ViewModel) Close() {
	vm.cancel()
	vm.unsubscribe()
	vm.queue.Shutdown()
	vm.wg.Wait()
}

// State 返回当前状态
func (vm *ViewModel) State() State {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.state
}

// Wait 阻塞直到状态满足 pred 或 ctx 结束
func (vm *ViewModel) Wait(ctx context.Context, pred func(State) bool) (State, error) {
	for {
		vm.mu.Lock()
		s, changed := vm.state, vm.changed
		vm.mu.Unlock()
		if pred(s) {
			return s, nil
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return s, ctx.Err()
		}
	}
}

// Errors 非致命错误，例如上下文加载失败或翻译失败
func (vm *ViewModel) Errors() <-chan error {
	return vm.errs
}

// Load 加载线程
func (vm *ViewModel) Load() {
	vm.post(func() {
		vm.set(Loading{})
		vm.loadThread()
	})
}

// Retry 出错后重新加载
func (vm *ViewModel) Retry() {
	vm.Load()
}

// Refresh 用户下拉刷新
func (vm *ViewModel) Refresh() {
	vm.post(func() {
		vm.set(Refreshing{})
		vm.loadThread()
	})
}

// loadThread 必须在队列中调用
func (vm *ViewModel) loadThread() {
	if vm.ctx.Err() != nil {
		return
	}
	vm.gen++
	gen := vm.gen
	vm.wg.Add(1)
	go vm.fetch(gen)
}

func (vm *ViewModel) fetch(gen int) {
	defer vm.wg.Done()

	var (
		detailed   viewdata.StatusViewData
		thread     *model.StatusContext
		contextErr error
	)
	g, ctx := errgroup.WithContext(vm.ctx)
	g.Go(func() error {
		resp, err := vm.client.StatusContext(ctx, vm.statusID)
		if err != nil {
			contextErr = err
			return nil
		}
		thread = &resp.Body
		return nil
	})
	g.Go(func() error {
		v, err := vm.detailedStatus(ctx, gen)
		if err != nil {
			return err
		}
		detailed = v
		return nil
	})

	if err := g.Wait(); err != nil {
		vm.logger.Warn("Failed to load status", "error", err)
		vm.postLoad(gen, func() { vm.set(Error{Err: err}) })
		return
	}
	if contextErr != nil {
		vm.logger.Warn("Failed to load thread context", "error", contextErr)
		vm.postLoad(gen, func() {
			vm.emitError(contextErr)
			vm.set(Success{
				Statuses:         []viewdata.StatusViewData{detailed},
				DetailedPosition: 0,
				RevealButton:     viewdata.RevealNoButton,
			})
		})
		return
	}

	success := vm.threadOf(vm.ctx, detailed, thread)
	vm.postLoad(gen, func() { vm.set(success) })
}

// detailedStatus 优先使用本地缓存的状态，随后用网络结果替换内容并保留覆盖层
func (vm *ViewModel) detailedStatus(ctx context.Context, gen int) (viewdata.StatusViewData, error) {
	rec, err := vm.store.ConversationByStatus(ctx, vm.account.ID, vm.statusID)
	switch {
	case err == nil:
		overlay := rec.ViewData
		cached := viewdata.Reconcile(vm.account.ID, vm.prefs, rec.LastStatus.ToStatus(), &overlay, true)
		cached = vm.withCachedTranslation(ctx, cached)
		vm.postLoadingThread(gen, cached)

		resp, err := vm.client.Status(ctx, vm.statusID)
		if err != nil {
			vm.logger.Debug("Keeping cached status", "error", err)
			return cached, nil
		}
		return cached.WithStatus(resp.Body), nil
	case errors.Is(err, repository.ErrNotFound):
	default:
		vm.logger.Warn("Failed to read cached status", "error", err)
	}

	resp, err := vm.client.Status(ctx, vm.statusID)
	if err != nil {
		return viewdata.StatusViewData{}, err
	}
	status := resp.Body
	overlays := vm.overlays(ctx, []model.Status{status})
	v := vm.reconcile(ctx, status, overlays, true)
	vm.postLoadingThread(gen, v)
	return v, nil
}

// threadOf 组装祖先、详情、后代；祖先与后代中 hide 的项被移除
func (vm *ViewModel) threadOf(ctx context.Context, detailed viewdata.StatusViewData, thread *model.StatusContext) Success {
	overlays := vm.overlays(ctx, slices.Concat(thread.Ancestors, thread.Descendants))

	toView := func(statuses []model.Status) []viewdata.StatusViewData {
		out := make([]viewdata.StatusViewData, 0, len(statuses))
		for _, s := range statuses {
			out = append(out, vm.reconcile(ctx, s, overlays, false))
		}
		return viewdata.ApplyFilters(out, FilterContext)
	}
	ancestors := toView(thread.Ancestors)
	descendants := toView(thread.Descendants)

	items := make([]viewdata.StatusViewData, 0, len(ancestors)+1+len(descendants))
	items = append(items, ancestors...)
	items = append(items, detailed)
	items = append(items, descendants...)

	return Success{
		Statuses:         items,
		DetailedPosition: len(ancestors),
		RevealButton:     viewdata.AggregateRevealButton(items),
	}
}

func (vm *ViewModel) overlays(ctx context.Context, statuses []model.Status) map[string]model.StatusViewDataEntity {
	if len(statuses) == 0 {
		return nil
	}
	ids := make([]string, 0, len(statuses))
	for i := range statuses {
		ids = append(ids, statuses[i].Actionable().ID)
	}
	overlays, err := vm.store.StatusViewData(ctx, vm.account.ID, ids)
	if err != nil {
		vm.logger.Warn("Failed to read status view data", "count", len(ids), "error", err)
		return nil
	}
	return overlays
}

func (vm *ViewModel) reconcile(ctx context.Context, s model.Status, overlays map[string]model.StatusViewDataEntity, detailed bool) viewdata.StatusViewData {
	var prior *model.StatusViewDataEntity
	if e, ok := overlays[s.Actionable().ID]; ok {
		prior = &e
	}
	return vm.withCachedTranslation(ctx, viewdata.Reconcile(vm.account.ID, vm.prefs, s, prior, detailed))
}

func (vm *ViewModel) withCachedTranslation(ctx context.Context, v viewdata.StatusViewData) viewdata.StatusViewData {
	if v.TranslationState != model.TranslationShowTranslation {
		return v
	}
	t, err := vm.cases.Translation(ctx, vm.account.ID, v.ActionableID())
	if err != nil {
		vm.logger.Warn("Failed to read cached translation", "error", err)
	}
	return v.WithTranslation(v.TranslationState, t)
}

func (vm *ViewModel) postLoadingThread(gen int, v viewdata.StatusViewData) {
	vm.postLoad(gen, func() {
		vm.set(LoadingThread{Status: &v, RevealButton: v.RevealButton()})
	})
}

// postLoad 投递加载结果，之后又发起过加载时丢弃
func (vm *ViewModel) postLoad(gen int, fn func()) {
	vm.post(func() {
		if gen != vm.gen {
			return
		}
		fn()
	})
}

// ChangeExpanded 展开或收起内容警告，先保存再更新视图
func (vm *ViewModel) ChangeExpanded(statusID string, expanded bool) {
	vm.change("expanded", statusID, func(ctx context.Context, id string) error {
		return vm.store.SetExpanded(ctx, vm.account.ID, id, expanded)
	}, func(v viewdata.StatusViewData) viewdata.StatusViewData {
		return v.WithExpanded(expanded)
	})
}

// ChangeContentShowing 显示或隐藏敏感媒体
func (vm *ViewModel) ChangeContentShowing(statusID string, showing bool) {
	vm.change("content_showing", statusID, func(ctx context.Context, id string) error {
		return vm.store.SetContentShowing(ctx, vm.account.ID, id, showing)
	}, func(v viewdata.StatusViewData) viewdata.StatusViewData {
		return v.WithShowingContent(showing)
	})
}

// ChangeContentCollapsed 折叠或展开长正文
func (vm *ViewModel) ChangeContentCollapsed(statusID string, collapsed bool) {
	vm.change("collapsed", statusID, func(ctx context.Context, id string) error {
		return vm.store.SetContentCollapsed(ctx, vm.account.ID, id, collapsed)
	}, func(v viewdata.StatusViewData) viewdata.StatusViewData {
		return v.WithCollapsed(collapsed)
	})
}

// change 覆盖层写入存储后再修改内存中的项，写入失败只记录日志
func (vm *ViewModel) change(field, statusID string, persist func(ctx context.Context, id string) error, fn func(viewdata.StatusViewData) viewdata.StatusViewData) {
	vm.post(func() {
		s, ok := vm.State().(Success)
		if !ok {
			return
		}
		idx := indexOf(s.Statuses, statusID)
		if idx < 0 {
			return
		}
		vm.save(field, s.Statuses[idx].ActionableID(), persist)
		vm.updateStatusViewData(statusID, fn)
	})
}

// ToggleRevealButton HIDE 收起全部并切换为 REVEAL，REVEAL 展开全部并切换为 HIDE
func (vm *ViewModel) ToggleRevealButton() {
	vm.post(func() {
		vm.updateSuccess(func(s Success) Success {
			var expanded bool
			switch s.RevealButton {
			case viewdata.RevealHide:
				expanded = false
			case viewdata.RevealReveal:
				expanded = true
			default:
				return s
			}
			items := make([]viewdata.StatusViewData, len(s.Statuses))
			for i, v := range s.Statuses {
				items[i] = v.WithExpanded(expanded)
			}
			next := s.withStatuses(items)
			if expanded {
				next.RevealButton = viewdata.RevealHide
			} else {
				next.RevealButton = viewdata.RevealReveal
			}
			return next
		})
	})
}

// RemoveStatus 从视图中移除状态
func (vm *ViewModel) RemoveStatus(statusID string) {
	vm.post(func() {
		vm.removeWhere(func(v viewdata.StatusViewData) bool { return v.ID() == statusID })
	})
}

// Favourite 收藏，视图在事件到达后更新
func (vm *ViewModel) Favourite(ctx context.Context, statusID string, favourite bool) error {
	if _, err := vm.cases.Favourite(ctx, vm.account.ID, vm.client, statusID, favourite); err != nil {
		vm.logger.Warn("Failed to favourite status", "target", statusID, "error", err)
		return err
	}
	return nil
}

// Bookmark 添加书签
func (vm *ViewModel) Bookmark(ctx context.Context, statusID string, bookmark bool) error {
	if _, err := vm.cases.Bookmark(ctx, vm.account.ID, vm.client, statusID, bookmark); err != nil {
		vm.logger.Warn("Failed to bookmark status", "target", statusID, "error", err)
		return err
	}
	return nil
}

// Reblog 转发
func (vm *ViewModel) Reblog(ctx context.Context, statusID string, reblog bool) error {
	if _, err := vm.cases.Reblog(ctx, vm.account.ID, vm.client, statusID, reblog); err != nil {
		vm.logger.Warn("Failed to reblog status", "target", statusID, "error", err)
		return err
	}
	return nil
}

// VoteInPoll 投票，先在视图中显示投票结果
func (vm *ViewModel) VoteInPoll(ctx context.Context, statusID string, choices []int) error {
	s, ok := vm.State().(Success)
	if !ok {
		return errNoPoll
	}
	idx := indexOf(s.Statuses, statusID)
	if idx < 0 || s.Statuses[idx].Actionable().Poll == nil {
		return errNoPoll
	}
	poll := s.Statuses[idx].Actionable().Poll

	vm.post(func() {
		vm.updateStatusViewData(statusID, func(v viewdata.StatusViewData) viewdata.StatusViewData {
			return v.UpdateStatus(func(s *model.Status) { s.Poll = poll.Votes(choices) })
		})
	})
	if _, err := vm.cases.VoteInPoll(ctx, vm.account.ID, vm.client, statusID, poll.ID, choices); err != nil {
		vm.logger.Warn("Failed to vote in poll", "target", statusID, "error", err)
		return err
	}
	return nil
}

// Translate 翻译状态
func (vm *ViewModel) Translate(ctx context.Context, statusID string) error {
	vm.setTranslation(statusID, model.TranslationTranslating, nil)
	t, err := vm.cases.Translate(ctx, vm.account.ID, vm.client, statusID)
	if err != nil {
		vm.setTranslation(statusID, model.TranslationShowOriginal, nil)
		vm.post(func() { vm.emitError(err) })
		return err
	}
	vm.setTranslation(statusID, model.TranslationShowTranslation, t)
	return nil
}

// TranslateUndo 显示原文
func (vm *ViewModel) TranslateUndo(ctx context.Context, statusID string) error {
	vm.setTranslation(statusID, model.TranslationShowOriginal, nil)
	return vm.cases.TranslateUndo(ctx, vm.account.ID, statusID)
}

func (vm *ViewModel) setTranslation(statusID string, state model.TranslationState, t *model.Translation) {
	vm.post(func() {
		vm.updateStatusViewData(statusID, func(v viewdata.StatusViewData) viewdata.StatusViewData {
			return v.WithTranslation(state, t)
		})
	})
}

func (vm *ViewModel) watch(ch <-chan events.Event) {
	defer vm.wg.Done()
	for {
		select {
		case <-vm.ctx.Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			if e.Account() != vm.account.ID {
				continue
			}
			vm.post(func() { vm.handleEvent(e) })
		}
	}
}

func (vm *ViewModel) handleEvent(e events.Event) {
	switch e := e.(type) {
	case events.FavouriteEvent:
		vm.updateStatus(e.StatusID, func(s *model.Status) { s.Favourited = e.Favourited })
	case events.ReblogEvent:
		vm.updateStatus(e.StatusID, func(s *model.Status) { s.Reblogged = e.Reblogged })
	case events.BookmarkEvent:
		vm.updateStatus(e.StatusID, func(s *model.Status) { s.Bookmarked = e.Bookmarked })
	case events.MuteConversationEvent:
		vm.updateStatus(e.StatusID, func(s *model.Status) { s.Muted = e.Muted })
	case events.PollVoteEvent:
		if e.Poll != nil {
			vm.updateStatus(e.StatusID, func(s *model.Status) { s.Poll = e.Poll })
		}
	case events.BlockEvent:
		vm.removeWhere(func(v viewdata.StatusViewData) bool {
			return v.Status.Account.ID == e.TargetAccountID || v.Actionable().Account.ID == e.TargetAccountID
		})
	case events.StatusComposedEvent:
		vm.insertReply(e.Status)
	case events.StatusEditedEvent:
		vm.replaceEdited(e.OriginalID, e.Status)
	case events.StatusDeletedEvent:
		vm.removeWhere(func(v viewdata.StatusViewData) bool { return v.ID() == e.StatusID })
	}
}

// insertReply 回复的是详情状态或其后的状态时，插入到被回复状态之后
func (vm *ViewModel) insertReply(status model.Status) {
	vm.updateSuccess(func(s Success) Success {
		if status.InReplyToID == nil {
			return s
		}
		detailedIdx := slices.IndexFunc(s.Statuses, func(v viewdata.StatusViewData) bool { return v.Detailed })
		repliedIdx := slices.IndexFunc(s.Statuses, func(v viewdata.StatusViewData) bool { return v.ID() == *status.InReplyToID })
		if detailedIdx < 0 || repliedIdx < detailedIdx {
			return s
		}
		filtered := viewdata.ApplyFilters([]viewdata.StatusViewData{vm.fromStatusAndUiState(s, status)}, FilterContext)
		if len(filtered) == 0 {
			return s
		}
		return s.withStatuses(slices.Insert(slices.Clone(s.Statuses), repliedIdx+1, filtered[0]))
	})
}

func (vm *ViewModel) replaceEdited(originalID string, status model.Status) {
	vm.updateSuccess(func(s Success) Success {
		items := make([]viewdata.StatusViewData, 0, len(s.Statuses))
		for _, v := range s.Statuses {
			if v.ActionableID() != originalID {
				items = append(items, v)
				continue
			}
			edited := vm.fromStatusAndUiState(s, status)
			if !edited.Detailed {
				filtered := viewdata.ApplyFilters([]viewdata.StatusViewData{edited}, FilterContext)
				if len(filtered) == 0 {
					continue
				}
				edited = filtered[0]
			}
			items = append(items, edited)
		}
		return s.withStatuses(items)
	})
}

// fromStatusAndUiState 新状态沿用视图中同ID项的本地状态，没有时取默认值
func (vm *ViewModel) fromStatusAndUiState(s Success, status model.Status) viewdata.StatusViewData {
	if idx := indexOf(s.Statuses, status.ID); idx >= 0 {
		old := s.Statuses[idx]
		prior := old.Entity()
		return viewdata.Reconcile(vm.account.ID, vm.prefs, status, &prior, old.Detailed).
			WithTranslation(old.TranslationState, nil)
	}
	return viewdata.Reconcile(vm.account.ID, vm.prefs, status, nil, false)
}

func (vm *ViewModel) updateStatus(statusID string, fn func(s *model.Status)) {
	vm.updateStatusViewData(statusID, func(v viewdata.StatusViewData) viewdata.StatusViewData {
		return v.UpdateStatus(fn)
	})
}

// updateStatusViewData 修改匹配的项，返回修改后的项
func (vm *ViewModel) updateStatusViewData(statusID string, fn func(viewdata.StatusViewData) viewdata.StatusViewData) (viewdata.StatusViewData, bool) {
	var (
		updated viewdata.StatusViewData
		found   bool
	)
	vm.updateSuccess(func(s Success) Success {
		idx := indexOf(s.Statuses, statusID)
		if idx < 0 {
			return s
		}
		items := slices.Clone(s.Statuses)
		items[idx] = fn(items[idx])
		updated, found = items[idx], true
		return s.withStatuses(items)
	})
	return updated, found
}

func (vm *ViewModel) removeWhere(pred func(viewdata.StatusViewData) bool) {
	vm.updateSuccess(func(s Success) Success {
		items := slices.DeleteFunc(slices.Clone(s.Statuses), pred)
		if len(items) == len(s.Statuses) {
			return s
		}
		return s.withStatuses(items)
	})
}

// updateSuccess 只在 Success 状态下修改
func (vm *ViewModel) updateSuccess(fn func(Success) Success) {
	s, ok := vm.State().(Success)
	if !ok {
		return
	}
	vm.set(fn(s))
}

func (vm *ViewModel) save(field, statusID string, fn func(ctx context.Context, id string) error) {
	if err := fn(vm.ctx, statusID); err != nil {
		vm.logger.Error("Failed to persist status view data",
			"field", field,
			"target", statusID,
			"error", err)
	}
}

func (vm *ViewModel) set(s State) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.state = s
	close(vm.changed)
	vm.changed = make(chan struct{})
}

func (vm *ViewModel) post(fn func()) {
	if err := vm.queue.Submit(vm.ctx, fn); err != nil {
		vm.logger.Debug("Dropping thread update", "error", err)
	}
}

func (vm *ViewModel) emitError(err error) {
	select {
	case vm.errs <- err:
	default:
		vm.logger.Warn("Thread error channel full, dropping error", "error", err)
	}
}

func indexOf(items []viewdata.StatusViewData, statusID string) int {
	return slices.IndexFunc(items, func(v viewdata.StatusViewData) bool {
		return v.ID() == statusID || v.ActionableID() == statusID
	})
}
