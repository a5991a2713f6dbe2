package conversation

import (
	"context"
	"errors"
	"log/slog"

	"sudooom.fedi.sync/internal/cache"
	"sudooom.fedi.sync/internal/events"
	"sudooom.fedi.sync/internal/metrics"
	"sudooom.fedi.sync/internal/model"
	"sudooom.fedi.sync/internal/paging"
	"sudooom.fedi.sync/internal/repository"
	"sudooom.fedi.sync/internal/usecase"
	"sudooom.fedi.sync/internal/viewdata"
)

// ViewUpdate 覆盖层的部分更新，nil 字段不修改
type ViewUpdate struct {
	Expanded       *bool `json:"expanded"`
	ContentShowing *bool `json:"content_showing"`
	Collapsed      *bool `json:"collapsed"`
}

// Service 会话列表上的用户操作
// 依赖上游的操作只在上游成功后更新本地存储；只改覆盖层的操作直接写存储，失败只记录日志
type Service struct {
	repo         *Repository
	store        repository.Store
	cases        *usecase.TimelineCases
	hub          *events.Hub
	translations cache.TranslationCache
	metrics      *metrics.Metrics
	logger       *slog.Logger
}

// NewService 创建会话服务
func NewService(repo *Repository, store repository.Store, cases *usecase.TimelineCases, hub *events.Hub, translations cache.TranslationCache, m *metrics.Metrics) *Service {
	return &Service{
		repo:         repo,
		store:        store,
		cases:        cases,
		hub:          hub,
		translations: translations,
		metrics:      m,
		logger:       slog.Default(),
	}
}

// Conversations 读取本地缓存的一页会话
func (s *Service) Conversations(ctx context.Context, accountID model.AccountID, offset, limit int) (paging.Page[viewdata.ConversationViewData], error) {
	pager, err := s.repo.Pager(ctx, accountID)
	if err != nil {
		return paging.Page[viewdata.ConversationViewData]{}, err
	}
	account, err := s.repo.Account(ctx, accountID)
	if err != nil {
		return paging.Page[viewdata.ConversationViewData]{}, err
	}

	var key *int
	if offset > 0 {
		key = paging.Key(offset)
	}
	page, err := pager.Load(ctx, key, limit)
	if err != nil {
		return paging.Page[viewdata.ConversationViewData]{}, err
	}

	prefs := account.Preferences()
	items := make([]viewdata.ConversationViewData, 0, len(page.Data))
	for i := range page.Data {
		rec := &page.Data[i]
		items = append(items, viewdata.ConversationFrom(prefs, rec, s.translation(ctx, rec)))
	}
	return paging.Page[viewdata.ConversationViewData]{
		Data:        items,
		PrevKey:     page.PrevKey,
		NextKey:     page.NextKey,
		ItemsBefore: page.ItemsBefore,
		ItemsAfter:  page.ItemsAfter,
	}, nil
}

// Refresh 从最新位置重新拉取会话
func (s *Service) Refresh(ctx context.Context, accountID model.AccountID) (paging.MediatorResult, paging.States, error) {
	pager, err := s.repo.Pager(ctx, accountID)
	if err != nil {
		return paging.MediatorResult{}, paging.States{}, err
	}
	result := pager.Refresh(ctx)
	return result, pager.States(), nil
}

// Append 拉取下一页会话
func (s *Service) Append(ctx context.Context, accountID model.AccountID) (paging.MediatorResult, paging.States, error) {
	pager, err := s.repo.Pager(ctx, accountID)
	if err != nil {
		return paging.MediatorResult{}, paging.States{}, err
	}
	result := pager.Append(ctx)
	return result, pager.States(), nil
}

// Favourite 收藏最后一条状态
func (s *Service) Favourite(ctx context.Context, accountID model.AccountID, statusID string, favourite bool) error {
	client, err := s.repo.Client(ctx, accountID)
	if err != nil {
		return err
	}
	if _, err := s.cases.Favourite(ctx, accountID, client, statusID, favourite); err != nil {
		return err
	}
	s.writeThrough("favourited", accountID, statusID, s.store.SetFavourited(ctx, accountID, statusID, favourite))
	return nil
}

// Bookmark 为最后一条状态添加书签
func (s *Service) Bookmark(ctx context.Context, accountID model.AccountID, statusID string, bookmark bool) error {
	client, err := s.repo.Client(ctx, accountID)
	if err != nil {
		return err
	}
	if _, err := s.cases.Bookmark(ctx, accountID, client, statusID, bookmark); err != nil {
		return err
	}
	s.writeThrough("bookmarked", accountID, statusID, s.store.SetBookmarked(ctx, accountID, statusID, bookmark))
	return nil
}

// Mute 静音会话
func (s *Service) Mute(ctx context.Context, accountID model.AccountID, statusID string, mute bool) error {
	client, err := s.repo.Client(ctx, accountID)
	if err != nil {
		return err
	}
	if _, err := s.cases.MuteConversation(ctx, accountID, client, statusID, mute); err != nil {
		return err
	}
	s.writeThrough("muted", accountID, statusID, s.store.SetMuted(ctx, accountID, statusID, mute))
	return nil
}

// VoteInPoll 在最后一条状态的投票中投票
func (s *Service) VoteInPoll(ctx context.Context, accountID model.AccountID, statusID, pollID string, choices []int) (*model.Poll, error) {
	client, err := s.repo.Client(ctx, accountID)
	if err != nil {
		return nil, err
	}
	poll, err := s.cases.VoteInPoll(ctx, accountID, client, statusID, pollID, choices)
	if err != nil {
		return nil, err
	}
	s.writeThrough("poll", accountID, statusID, s.store.SetVoted(ctx, accountID, statusID, poll))
	return poll, nil
}

// Remove 删除会话
func (s *Service) Remove(ctx context.Context, accountID model.AccountID, conversationID string) error {
	client, err := s.repo.Client(ctx, accountID)
	if err != nil {
		return err
	}
	if _, err := client.DeleteConversation(ctx, conversationID); err != nil {
		return err
	}
	if err := s.store.DeleteConversation(ctx, accountID, conversationID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.writeThrough("deleted", accountID, conversationID, err)
	}
	s.hub.Dispatch(events.ConversationRemovedEvent{AccountID: accountID, ConversationID: conversationID})
	return nil
}

// MarkRead 标记会话已读
func (s *Service) MarkRead(ctx context.Context, accountID model.AccountID, conversationID string) error {
	client, err := s.repo.Client(ctx, accountID)
	if err != nil {
		return err
	}
	if _, err := client.MarkConversationRead(ctx, conversationID); err != nil {
		return err
	}
	if err := s.store.SetUnread(ctx, accountID, conversationID, false); err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.writeThrough("unread", accountID, conversationID, err)
	}
	return nil
}

// UpdateView 修改状态的覆盖层
func (s *Service) UpdateView(ctx context.Context, accountID model.AccountID, statusID string, u ViewUpdate) {
	if u.Expanded != nil {
		s.writeThrough("expanded", accountID, statusID, s.store.SetExpanded(ctx, accountID, statusID, *u.Expanded))
	}
	if u.ContentShowing != nil {
		s.writeThrough("content_showing", accountID, statusID, s.store.SetContentShowing(ctx, accountID, statusID, *u.ContentShowing))
	}
	if u.Collapsed != nil {
		s.writeThrough("collapsed", accountID, statusID, s.store.SetContentCollapsed(ctx, accountID, statusID, *u.Collapsed))
	}
}

// Expand 展开或收起内容警告
func (s *Service) Expand(ctx context.Context, accountID model.AccountID, statusID string, expanded bool) {
	s.UpdateView(ctx, accountID, statusID, ViewUpdate{Expanded: &expanded})
}

// ShowContent 显示或隐藏敏感媒体
func (s *Service) ShowContent(ctx context.Context, accountID model.AccountID, statusID string, showing bool) {
	s.UpdateView(ctx, accountID, statusID, ViewUpdate{ContentShowing: &showing})
}

// Collapse 折叠或展开长正文
func (s *Service) Collapse(ctx context.Context, accountID model.AccountID, statusID string, collapsed bool) {
	s.UpdateView(ctx, accountID, statusID, ViewUpdate{Collapsed: &collapsed})
}

// Translate 翻译状态
func (s *Service) Translate(ctx context.Context, accountID model.AccountID, statusID string) (*model.Translation, error) {
	client, err := s.repo.Client(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return s.cases.Translate(ctx, accountID, client, statusID)
}

// TranslateUndo 显示原文
func (s *Service) TranslateUndo(ctx context.Context, accountID model.AccountID, statusID string) error {
	return s.cases.TranslateUndo(ctx, accountID, statusID)
}

func (s *Service) translation(ctx context.Context, rec *model.ConversationRecord) *model.Translation {
	if rec.ViewData.TranslationState != model.TranslationShowTranslation {
		return nil
	}
	t, err := s.translations.Get(ctx, rec.AccountID, rec.LastStatus.ID)
	if err != nil {
		s.logger.Warn("Failed to read cached translation",
			"accountId", rec.AccountID,
			"statusId", rec.LastStatus.ID,
			"error", err)
		return nil
	}
	return t
}

func (s *Service) writeThrough(field string, accountID model.AccountID, id string, err error) {
	if err == nil {
		return
	}
	s.metrics.WriteThroughFailed(field)
	s.logger.Error("Failed to persist local state",
		"field", field,
		"accountId", accountID,
		"id", id,
		"error", err)
}
