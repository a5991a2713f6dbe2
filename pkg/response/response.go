package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "sudooom.fedi.sync/pkg/errors"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    appErrors.CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, err *appErrors.AppError) {
	c.JSON(appErrors.HTTPStatus(err.Code), Response{
		Code:    err.Code,
		Message: err.Message,
		Data:    nil,
	})
}

// ErrorWithMsg 自定义错误消息
func ErrorWithMsg(c *gin.Context, code int, message string) {
	c.JSON(appErrors.HTTPStatus(code), Response{
		Code:    code,
		Message: message,
		Data:    nil,
	})
}

// ErrorFromAppError 从 AppError 生成错误响应，其他错误按服务器内部错误处理
func ErrorFromAppError(c *gin.Context, err error) {
	code := appErrors.GetCode(err)
	c.JSON(appErrors.HTTPStatus(code), Response{
		Code:    code,
		Message: appErrors.GetMessage(err),
		Data:    nil,
	})
}

// Unauthorized 未认证
func Unauthorized(c *gin.Context) {
	Error(c, appErrors.ErrTokenInvalid)
}

// InvalidParams 参数错误
func InvalidParams(c *gin.Context, message string) {
	if message == "" {
		message = appErrors.ErrInvalidParams.Message
	}
	ErrorWithMsg(c, appErrors.CodeInvalidParams, message)
}
