package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"sudooom.fedi.sync/internal/conversation"
	"sudooom.fedi.sync/internal/middleware"
	"sudooom.fedi.sync/internal/model"
	"sudooom.fedi.sync/pkg/response"
)

// ToggleRequest 开关类操作的请求体
type ToggleRequest struct {
	Value *bool `json:"value" binding:"required"`
}

// VoteRequest 投票请求
type VoteRequest struct {
	PollID  string `json:"poll_id" binding:"required"`
	Choices []int  `json:"choices" binding:"required,min=1,dive,gte=0"`
}

// StatusHandler 会话最后一条状态上的操作
type StatusHandler struct {
	svc *conversation.Service
}

// NewStatusHandler 创建状态处理器
func NewStatusHandler(svc *conversation.Service) *StatusHandler {
	return &StatusHandler{svc: svc}
}

type toggleFunc func(ctx context.Context, accountID model.AccountID, statusID string, value bool) error

// Favourite 收藏或取消收藏
// @Summary      收藏
// @Tags         状态
// @Accept       json
// @Param        id path string true "状态ID"
// @Param        request body ToggleRequest true "是否收藏"
// @Success      200  {object}  response.Response
// @Router       /statuses/{id}/favourite [post]
func (h *StatusHandler) Favourite(c *gin.Context) {
	h.toggle(c, h.svc.Favourite)
}

// Bookmark 添加或移除书签
// @Summary      书签
// @Tags         状态
// @Accept       json
// @Param        id path string true "状态ID"
// @Param        request body ToggleRequest true "是否加入书签"
// @Success      200  {object}  response.Response
// @Router       /statuses/{id}/bookmark [post]
func (h *StatusHandler) Bookmark(c *gin.Context) {
	h.toggle(c, h.svc.Bookmark)
}

// Mute 静音或取消静音会话
// @Summary      静音会话
// @Tags         状态
// @Accept       json
// @Param        id path string true "状态ID"
// @Param        request body ToggleRequest true "是否静音"
// @Success      200  {object}  response.Response
// @Router       /statuses/{id}/mute [post]
func (h *StatusHandler) Mute(c *gin.Context) {
	h.toggle(c, h.svc.Mute)
}

func (h *StatusHandler) toggle(c *gin.Context, fn toggleFunc) {
	var req ToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidParams(c, err.Error())
		return
	}
	if err := fn(c.Request.Context(), middleware.GetAccountID(c), c.Param("id"), *req.Value); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, nil)
}

// Vote 在投票中投票
// @Summary      投票
// @Tags         状态
// @Accept       json
// @Produce      json
// @Param        id path string true "状态ID"
// @Param        request body VoteRequest true "选项"
// @Success      200  {object}  response.Response{data=model.Poll}
// @Router       /statuses/{id}/poll [post]
func (h *StatusHandler) Vote(c *gin.Context) {
	var req VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidParams(c, err.Error())
		return
	}
	poll, err := h.svc.VoteInPoll(c.Request.Context(), middleware.GetAccountID(c), c.Param("id"), req.PollID, req.Choices)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, poll)
}

// UpdateView 修改展开、敏感内容显示与折叠状态
// @Summary      修改展示状态
// @Tags         状态
// @Accept       json
// @Param        id path string true "状态ID"
// @Param        request body conversation.ViewUpdate true "要修改的字段"
// @Success      200  {object}  response.Response
// @Router       /statuses/{id}/view [put]
func (h *StatusHandler) UpdateView(c *gin.Context) {
	var req conversation.ViewUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidParams(c, err.Error())
		return
	}
	if req.Expanded == nil && req.ContentShowing == nil && req.Collapsed == nil {
		response.InvalidParams(c, "at least one of expanded, content_showing, collapsed is required")
		return
	}
	h.svc.UpdateView(c.Request.Context(), middleware.GetAccountID(c), c.Param("id"), req)
	response.Success(c, nil)
}

// Translate 翻译状态
// @Summary      翻译
// @Tags         状态
// @Produce      json
// @Param        id path string true "状态ID"
// @Success      200  {object}  response.Response{data=model.Translation}
// @Router       /statuses/{id}/translation [post]
func (h *StatusHandler) Translate(c *gin.Context) {
	t, err := h.svc.Translate(c.Request.Context(), middleware.GetAccountID(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, t)
}

// TranslateUndo 显示原文
// @Summary      撤销翻译
// @Tags         状态
// @Param        id path string true "状态ID"
// @Success      200  {object}  response.Response
// @Router       /statuses/{id}/translation [delete]
func (h *StatusHandler) TranslateUndo(c *gin.Context) {
	if err := h.svc.TranslateUndo(c.Request.Context(), middleware.GetAccountID(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, nil)
}
