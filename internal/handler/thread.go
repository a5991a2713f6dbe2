package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"sudooom.fedi.sync/internal/middleware"
	"sudooom.fedi.sync/internal/render"
	"sudooom.fedi.sync/internal/thread"
	"sudooom.fedi.sync/internal/viewdata"
	"sudooom.fedi.sync/pkg/response"
)

// ThreadResponse 加载完成的线程
type ThreadResponse struct {
	Statuses         []render.Card              `json:"statuses"`
	DetailedPosition int                        `json:"detailed_position"`
	RevealButton     viewdata.RevealButtonState `json:"reveal_button"`
	Warnings         []string                   `json:"warnings,omitempty"`
}

// ThreadHandler 线程处理器
type ThreadHandler struct {
	factory *thread.Factory
	timeout time.Duration
}

// NewThreadHandler 创建线程处理器
func NewThreadHandler(factory *thread.Factory, timeout time.Duration) *ThreadHandler {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &ThreadHandler{factory: factory, timeout: timeout}
}

// Get 加载以该状态为详情的线程
// @Summary      线程
// @Tags         线程
// @Produce      json
// @Param        id path string true "状态ID"
// @Success      200  {object}  response.Response{data=ThreadResponse}
// @Router       /threads/{id} [get]
func (h *ThreadHandler) Get(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	state, warnings, err := h.factory.Load(ctx, middleware.GetAccountID(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	switch s := state.(type) {
	case thread.Success:
		resp := ThreadResponse{
			Statuses:         render.RenderAll(s.Statuses, thread.FilterContext),
			DetailedPosition: s.DetailedPosition,
			RevealButton:     s.RevealButton,
		}
		for _, w := range warnings {
			resp.Warnings = append(resp.Warnings, w.Error())
		}
		response.Success(c, resp)
	case thread.Error:
		fail(c, s.Err)
	default:
		fail(c, context.DeadlineExceeded)
	}
}
