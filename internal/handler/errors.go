package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"sudooom.fedi.sync/internal/api"
	"sudooom.fedi.sync/internal/repository"
	"sudooom.fedi.sync/pkg/response"
	appErrors "sudooom.fedi.sync/pkg/errors"
)

// fail 把内部错误转换为统一的错误响应
func fail(c *gin.Context, err error) {
	_ = c.Error(err)

	var appErr *appErrors.AppError
	switch {
	case errors.As(err, &appErr):
		response.Error(c, appErr)
	case api.IsHTTPStatus(err, http.StatusNotFound):
		response.Error(c, appErrors.ErrStatusNotFound)
	case errors.Is(err, repository.ErrAccountNotFound):
		response.Error(c, appErrors.ErrAccountNotFound)
	case errors.Is(err, repository.ErrNotFound):
		response.Error(c, appErrors.ErrConversationNotFound)
	default:
		if mapped := api.ToAppError(err); mapped != err {
			response.ErrorFromAppError(c, mapped)
			return
		}
		slog.Error("Unhandled request error", "path", c.FullPath(), "error", err)
		response.Error(c, appErrors.ErrServerError)
	}
}
