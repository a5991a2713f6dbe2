package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"sudooom.fedi.sync/internal/api"
	"sudooom.fedi.sync/internal/conversation"
	"sudooom.fedi.sync/internal/middleware"
	"sudooom.fedi.sync/internal/model"
	"sudooom.fedi.sync/internal/paging"
	"sudooom.fedi.sync/internal/render"
	"sudooom.fedi.sync/internal/viewdata"
	"sudooom.fedi.sync/pkg/response"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 80
)

// ConversationItem 会话列表中的一项
type ConversationItem struct {
	ID                    string                      `json:"id"`
	Order                 int                         `json:"order"`
	Accounts              []model.ConversationAccount `json:"accounts"`
	Unread                bool                        `json:"unread"`
	IsConversationStarter bool                        `json:"is_conversation_starter"`
	LastStatus            render.Card                 `json:"last_status"`
}

// ConversationPage 一页会话
type ConversationPage struct {
	Items       []ConversationItem `json:"items"`
	PrevKey     *int               `json:"prev_key"`
	NextKey     *int               `json:"next_key"`
	ItemsBefore int                `json:"items_before"`
	ItemsAfter  int                `json:"items_after"`
}

// LoadResult 一次远端加载的结果
type LoadResult struct {
	EndOfPaginationReached bool          `json:"end_of_pagination_reached"`
	States                 paging.States `json:"states"`
}

// ConversationHandler 会话列表处理器
type ConversationHandler struct {
	svc *conversation.Service
}

// NewConversationHandler 创建会话列表处理器
func NewConversationHandler(svc *conversation.Service) *ConversationHandler {
	return &ConversationHandler{svc: svc}
}

// List 读取本地缓存的会话
// @Summary      会话列表
// @Tags         会话
// @Produce      json
// @Param        offset query int false "起始行"
// @Param        limit  query int false "条数"
// @Success      200  {object}  response.Response{data=ConversationPage}
// @Router       /conversations [get]
func (h *ConversationHandler) List(c *gin.Context) {
	offset, err := queryInt(c, "offset", 0)
	if err != nil || offset < 0 {
		response.InvalidParams(c, "offset must be a non-negative integer")
		return
	}
	limit, err := queryInt(c, "limit", defaultPageLimit)
	if err != nil || limit <= 0 {
		response.InvalidParams(c, "limit must be a positive integer")
		return
	}
	limit = min(limit, maxPageLimit)

	page, err := h.svc.Conversations(c.Request.Context(), middleware.GetAccountID(c), offset, limit)
	if err != nil {
		fail(c, err)
		return
	}

	items := make([]ConversationItem, 0, len(page.Data))
	for _, conv := range page.Data {
		items = append(items, ConversationItem{
			ID:                    conv.ID,
			Order:                 conv.Order,
			Accounts:              conv.Accounts,
			Unread:                conv.Unread,
			IsConversationStarter: conv.IsConversationStarter,
			LastStatus:            render.Render(viewdata.DisplayOf(conv.LastStatus, viewdata.ConversationFilterContext)),
		})
	}
	response.Success(c, ConversationPage{
		Items:       items,
		PrevKey:     page.PrevKey,
		NextKey:     page.NextKey,
		ItemsBefore: page.ItemsBefore,
		ItemsAfter:  page.ItemsAfter,
	})
}

// Refresh 从最新位置重新拉取
// @Summary      刷新会话
// @Tags         会话
// @Produce      json
// @Success      200  {object}  response.Response{data=LoadResult}
// @Router       /conversations/refresh [post]
func (h *ConversationHandler) Refresh(c *gin.Context) {
	result, states, err := h.svc.Refresh(c.Request.Context(), middleware.GetAccountID(c))
	h.load(c, result, states, err)
}

// Append 拉取下一页
// @Summary      加载更多会话
// @Tags         会话
// @Produce      json
// @Success      200  {object}  response.Response{data=LoadResult}
// @Router       /conversations/append [post]
func (h *ConversationHandler) Append(c *gin.Context) {
	result, states, err := h.svc.Append(c.Request.Context(), middleware.GetAccountID(c))
	h.load(c, result, states, err)
}

func (h *ConversationHandler) load(c *gin.Context, result paging.MediatorResult, states paging.States, err error) {
	if err != nil {
		fail(c, err)
		return
	}
	if result.Err != nil {
		fail(c, api.ToAppError(result.Err))
		return
	}
	response.Success(c, LoadResult{
		EndOfPaginationReached: result.EndOfPaginationReached,
		States:                 states,
	})
}

// Delete 删除会话
// @Summary      删除会话
// @Tags         会话
// @Param        id path string true "会话ID"
// @Success      200  {object}  response.Response
// @Router       /conversations/{id} [delete]
func (h *ConversationHandler) Delete(c *gin.Context) {
	if err := h.svc.Remove(c.Request.Context(), middleware.GetAccountID(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, nil)
}

// MarkRead 标记会话已读
// @Summary      标记已读
// @Tags         会话
// @Param        id path string true "会话ID"
// @Success      200  {object}  response.Response
// @Router       /conversations/{id}/read [post]
func (h *ConversationHandler) MarkRead(c *gin.Context) {
	if err := h.svc.MarkRead(c.Request.Context(), middleware.GetAccountID(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, nil)
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	v := c.Query(key)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}
