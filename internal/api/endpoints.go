package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"sudooom.fedi.sync/internal/model"
)

// GetConversations 获取私信会话列表，maxID 为空时从最新开始
func (c *Client) GetConversations(ctx context.Context, maxID string, limit int) (*Response[[]model.Conversation], error) {
	q := url.Values{}
	if maxID != "" {
		q.Set("max_id", maxID)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return do[[]model.Conversation](ctx, c, request{
		endpoint: "conversations",
		method:   http.MethodGet,
		path:     "/api/v1/conversations",
		query:    q,
	})
}

// DeleteConversation 删除会话
func (c *Client) DeleteConversation(ctx context.Context, id string) (*Response[struct{}], error) {
	return do[struct{}](ctx, c, request{
		endpoint: "conversation_delete",
		method:   http.MethodDelete,
		path:     "/api/v1/conversations/" + url.PathEscape(id),
	})
}

// MarkConversationRead 标记会话已读
func (c *Client) MarkConversationRead(ctx context.Context, id string) (*Response[model.Conversation], error) {
	return do[model.Conversation](ctx, c, request{
		endpoint: "conversation_read",
		method:   http.MethodPost,
		path:     "/api/v1/conversations/" + url.PathEscape(id) + "/read",
	})
}

// Status 获取单个状态
func (c *Client) Status(ctx context.Context, id string) (*Response[model.Status], error) {
	return do[model.Status](ctx, c, request{
		endpoint: "status",
		method:   http.MethodGet,
		path:     "/api/v1/statuses/" + url.PathEscape(id),
	})
}

// StatusContext 获取状态的祖先与后代
func (c *Client) StatusContext(ctx context.Context, id string) (*Response[model.StatusContext], error) {
	return do[model.StatusContext](ctx, c, request{
		endpoint: "status_context",
		method:   http.MethodGet,
		path:     "/api/v1/statuses/" + url.PathEscape(id) + "/context",
	})
}

// Statuses 一次获取多个状态，服务端会忽略不存在的ID
func (c *Client) Statuses(ctx context.Context, ids []string) (*Response[[]model.Status], error) {
	q := url.Values{}
	for _, id := range ids {
		q.Add("id[]", id)
	}
	return do[[]model.Status](ctx, c, request{
		endpoint: "statuses",
		method:   http.MethodGet,
		path:     "/api/v1/statuses",
		query:    q,
	})
}

// Favourite 收藏或取消收藏
func (c *Client) Favourite(ctx context.Context, id string, favourite bool) (*Response[model.Status], error) {
	return c.statusAction(ctx, id, toggle(favourite, "favourite", "unfavourite"))
}

// Bookmark 添加或移除书签
func (c *Client) Bookmark(ctx context.Context, id string, bookmark bool) (*Response[model.Status], error) {
	return c.statusAction(ctx, id, toggle(bookmark, "bookmark", "unbookmark"))
}

// Reblog 转发或取消转发
func (c *Client) Reblog(ctx context.Context, id string, reblog bool) (*Response[model.Status], error) {
	return c.statusAction(ctx, id, toggle(reblog, "reblog", "unreblog"))
}

// MuteConversation 静音或取消静音状态所在的会话
func (c *Client) MuteConversation(ctx context.Context, id string, mute bool) (*Response[model.Status], error) {
	return c.statusAction(ctx, id, toggle(mute, "mute", "unmute"))
}

// VoteInPoll 投票，choices 为选项下标
func (c *Client) VoteInPoll(ctx context.Context, pollID string, choices []int) (*Response[model.Poll], error) {
	form := url.Values{}
	for _, choice := range choices {
		form.Add("choices[]", strconv.Itoa(choice))
	}
	return do[model.Poll](ctx, c, request{
		endpoint: "poll_vote",
		method:   http.MethodPost,
		path:     "/api/v1/polls/" + url.PathEscape(pollID) + "/votes",
		form:     form,
	})
}

// Translate 翻译状态，lang 为空时由服务端决定目标语言
func (c *Client) Translate(ctx context.Context, id, lang string) (*Response[model.Translation], error) {
	form := url.Values{}
	if lang != "" {
		form.Set("lang", lang)
	}
	return do[model.Translation](ctx, c, request{
		endpoint: "translate",
		method:   http.MethodPost,
		path:     "/api/v1/statuses/" + url.PathEscape(id) + "/translate",
		form:     form,
	})
}

func (c *Client) statusAction(ctx context.Context, id, action string) (*Response[model.Status], error) {
	return do[model.Status](ctx, c, request{
		endpoint: "status_" + action,
		method:   http.MethodPost,
		path:     "/api/v1/statuses/" + url.PathEscape(id) + "/" + action,
	})
}

func toggle(on bool, yes, no string) string {
	if on {
		return yes
	}
	return no
}
