package handler

import (
	"io"

	"github.com/gin-gonic/gin"

	"sudooom.fedi.sync/internal/events"
	"sudooom.fedi.sync/internal/middleware"
	"sudooom.fedi.sync/pkg/response"
	appErrors "sudooom.fedi.sync/pkg/errors"
)

const maxEventSize = 1 << 20

// 客户端只能上报在本服务之外发生的事件，其余事件由本服务的操作产生
var clientEventKinds = map[string]bool{
	events.KindBlock:          true,
	events.KindStatusComposed: true,
	events.KindStatusDeleted:  true,
	events.KindStatusEdited:   true,
}

// EventHandler 接收客户端上报的事件
type EventHandler struct {
	hub *events.Hub
}

// NewEventHandler 创建事件处理器
func NewEventHandler(hub *events.Hub) *EventHandler {
	return &EventHandler{hub: hub}
}

// Publish 上报事件
// @Summary      上报事件
// @Tags         事件
// @Accept       json
// @Param        request body events.Envelope true "事件"
// @Success      200  {object}  response.Response
// @Router       /events [post]
func (h *EventHandler) Publish(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxEventSize))
	if err != nil {
		response.InvalidParams(c, err.Error())
		return
	}
	env, e, err := events.Decode(body)
	if err != nil {
		response.InvalidParams(c, err.Error())
		return
	}
	if !clientEventKinds[env.Kind] {
		response.InvalidParams(c, "event kind not accepted: "+env.Kind)
		return
	}
	if e.Account() != middleware.GetAccountID(c) {
		response.Error(c, appErrors.ErrTokenInvalid)
		return
	}

	h.hub.Dispatch(e)
	response.Success(c, nil)
}
