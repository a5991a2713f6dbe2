package usecase

import (
	"context"
	"errors"
	"log/slog"

	"sudooom.fedi.sync/internal/api"
	"sudooom.fedi.sync/internal/cache"
	"sudooom.fedi.sync/internal/events"
	"sudooom.fedi.sync/internal/model"
	apperrors "sudooom.fedi.sync/pkg/errors"
)

var errNoChoices = apperrors.ErrInvalidParams.Wrap(errors.New("poll vote requires at least one choice"))

// API 状态操作依赖的上游接口
type API interface {
	Favourite(ctx context.Context, id string, favourite bool) (*api.Response[model.Status], error)
	Bookmark(ctx context.Context, id string, bookmark bool) (*api.Response[model.Status], error)
	Reblog(ctx context.Context, id string, reblog bool) (*api.Response[model.Status], error)
	MuteConversation(ctx context.Context, id string, mute bool) (*api.Response[model.Status], error)
	VoteInPoll(ctx context.Context, pollID string, choices []int) (*api.Response[model.Poll], error)
	Translate(ctx context.Context, id, lang string) (*api.Response[model.Translation], error)
}

// TranslationStateStore 保存翻译状态
type TranslationStateStore interface {
	SetTranslationState(ctx context.Context, accountID model.AccountID, statusID string, state model.TranslationState) error
}

// TimelineCases 状态操作用例，成功后在事件总线上广播
type TimelineCases struct {
	hub            *events.Hub
	store          TranslationStateStore
	translations   cache.TranslationCache
	targetLanguage string
	logger         *slog.Logger
}

// NewTimelineCases 创建用例
func NewTimelineCases(hub *events.Hub, store TranslationStateStore, translations cache.TranslationCache, targetLanguage string) *TimelineCases {
	return &TimelineCases{
		hub:            hub,
		store:          store,
		translations:   translations,
		targetLanguage: targetLanguage,
		logger:         slog.Default(),
	}
}

// Favourite 收藏或取消收藏
func (tc *TimelineCases) Favourite(ctx context.Context, accountID model.AccountID, client API, statusID string, favourite bool) (*model.Status, error) {
	resp, err := client.Favourite(ctx, statusID, favourite)
	if err != nil {
		return nil, err
	}
	tc.hub.Dispatch(events.FavouriteEvent{AccountID: accountID, StatusID: statusID, Favourited: favourite})
	return &resp.Body, nil
}

// Bookmark 添加或移除书签
func (tc *TimelineCases) Bookmark(ctx context.Context, accountID model.AccountID, client API, statusID string, bookmark bool) (*model.Status, error) {
	resp, err := client.Bookmark(ctx, statusID, bookmark)
	if err != nil {
		return nil, err
	}
	tc.hub.Dispatch(events.BookmarkEvent{AccountID: accountID, StatusID: statusID, Bookmarked: bookmark})
	return &resp.Body, nil
}

// Reblog 转发或取消转发
func (tc *TimelineCases) Reblog(ctx context.Context, accountID model.AccountID, client API, statusID string, reblog bool) (*model.Status, error) {
	resp, err := client.Reblog(ctx, statusID, reblog)
	if err != nil {
		return nil, err
	}
	tc.hub.Dispatch(events.ReblogEvent{AccountID: accountID, StatusID: statusID, Reblogged: reblog})
	return &resp.Body, nil
}

// MuteConversation 静音或取消静音状态所在的会话
func (tc *TimelineCases) MuteConversation(ctx context.Context, accountID model.AccountID, client API, statusID string, mute bool) (*model.Status, error) {
	resp, err := client.MuteConversation(ctx, statusID, mute)
	if err != nil {
		return nil, err
	}
	tc.hub.Dispatch(events.MuteConversationEvent{AccountID: accountID, StatusID: statusID, Muted: mute})
	return &resp.Body, nil
}

// VoteInPoll 投票，返回服务端的最新投票结果
func (tc *TimelineCases) VoteInPoll(ctx context.Context, accountID model.AccountID, client API, statusID, pollID string, choices []int) (*model.Poll, error) {
	if len(choices) == 0 {
		return nil, errNoChoices
	}
	resp, err := client.VoteInPoll(ctx, pollID, choices)
	if err != nil {
		return nil, err
	}
	poll := resp.Body
	tc.hub.Dispatch(events.PollVoteEvent{AccountID: accountID, StatusID: statusID, Poll: &poll})
	return &poll, nil
}

// Translate 翻译状态
// 过程中状态为 TRANSLATING；成功后缓存译文并切换为 SHOW_TRANSLATION，失败时回到 SHOW_ORIGINAL
func (tc *TimelineCases) Translate(ctx context.Context, accountID model.AccountID, client API, statusID string) (*model.Translation, error) {
	if err := tc.store.SetTranslationState(ctx, accountID, statusID, model.TranslationTranslating); err != nil {
		return nil, err
	}

	var err error
	translation := tc.cachedTranslation(ctx, accountID, statusID)
	if translation == nil {
		var resp *api.Response[model.Translation]
		resp, err = client.Translate(ctx, statusID, tc.targetLanguage)
		if err == nil {
			translation = &resp.Body
			if cerr := tc.translations.Set(ctx, accountID, statusID, translation); cerr != nil {
				tc.logger.Warn("Failed to cache translation", "accountId", accountID, "statusId", statusID, "error", cerr)
			}
		}
	}
	if err != nil {
		tc.logger.Warn("Failed to translate status", "accountId", accountID, "statusId", statusID, "error", err)
		if serr := tc.store.SetTranslationState(context.WithoutCancel(ctx), accountID, statusID, model.TranslationShowOriginal); serr != nil {
			tc.logger.Error("Failed to reset translation state", "accountId", accountID, "statusId", statusID, "error", serr)
		}
		return nil, err
	}

	if err := tc.store.SetTranslationState(ctx, accountID, statusID, model.TranslationShowTranslation); err != nil {
		return nil, err
	}
	return translation, nil
}

// TranslateUndo 显示原文，缓存的译文保留
func (tc *TimelineCases) TranslateUndo(ctx context.Context, accountID model.AccountID, statusID string) error {
	return tc.store.SetTranslationState(ctx, accountID, statusID, model.TranslationShowOriginal)
}

// Translation 返回缓存的译文
func (tc *TimelineCases) Translation(ctx context.Context, accountID model.AccountID, statusID string) (*model.Translation, error) {
	return tc.translations.Get(ctx, accountID, statusID)
}

// cachedTranslation 读取缓存失败时按未命中处理
func (tc *TimelineCases) cachedTranslation(ctx context.Context, accountID model.AccountID, statusID string) *model.Translation {
	t, err := tc.translations.Get(ctx, accountID, statusID)
	if err != nil {
		tc.logger.Warn("Failed to read cached translation", "accountId", accountID, "statusId", statusID, "error", err)
		return nil
	}
	return t
}
