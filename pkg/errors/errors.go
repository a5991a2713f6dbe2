package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError 带错误码的业务错误，Message 直接返回给调用方，Err 只用于日志
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("[%d] %s", e.Code, e.Message)
	}
	return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 错误码相同即视为同一错误，errors.Is(err, ErrStatusNotFound) 对包装后的错误同样成立
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

// NewError 创建错误
func NewError(code int, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap 返回携带原始错误的副本
func (e *AppError) Wrap(err error) *AppError {
	return &AppError{Code: e.Code, Message: e.Message, Err: err}
}

// WithMessage 返回替换消息的副本，错误码不变
func (e *AppError) WithMessage(message string) *AppError {
	return &AppError{Code: e.Code, Message: message, Err: e.Err}
}

// HTTPStatus 错误码对应的 HTTP 状态码
func (e *AppError) HTTPStatus() int {
	return HTTPStatus(e.Code)
}

// Is 判断 err 链上是否有与 target 同码的错误
func Is(err error, target *AppError) bool {
	return errors.Is(err, target)
}

// As 取出 err 链上的 AppError，不存在时返回 nil
func As(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// GetCode 获取错误码，非 AppError 按服务器内部错误处理
func GetCode(err error) int {
	if appErr := As(err); appErr != nil {
		return appErr.Code
	}
	return CodeServerError
}

// GetMessage 获取错误消息
func GetMessage(err error) string {
	if appErr := As(err); appErr != nil {
		return appErr.Message
	}
	return ErrServerError.Message
}

// HTTPStatus 按错误码区间映射 HTTP 状态码
func HTTPStatus(code int) int {
	switch {
	case code == CodeSuccess:
		return http.StatusOK
	case code >= 10000 && code < 11000:
		return http.StatusUnauthorized
	case code == CodeAccountNotFound, code == CodeConversationNotFound, code == CodeStatusNotFound:
		return http.StatusNotFound
	case code >= 11000 && code < 13000:
		return http.StatusBadRequest
	case code >= 13000 && code < 14000:
		return http.StatusBadGateway
	case code == CodeTooManyReqest:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// ============== 错误码定义 ==============

const (
	CodeSuccess = 0

	// 认证相关 10000-10999
	CodeInvalidCredentials = 10002
	CodeTokenInvalid       = 10003
	CodeTokenExpired       = 10004

	// 请求相关 11000-11999
	CodeAccountNotFound = 11001
	CodeInvalidParams   = 11002

	// 会话与状态相关 12000-12999
	CodeConversationNotFound = 12001
	CodeStatusNotFound       = 12002
	CodeTranslationFailed    = 12003

	// 上游 API 相关 13000-13999
	CodeUpstreamHTTP    = 13001
	CodeUpstreamNetwork = 13002
	CodeUpstreamParse   = 13003

	// 系统错误 50000-50999
	CodeServerError   = 50001
	CodeDBError       = 50002
	CodeCacheError    = 50003
	CodeTooManyReqest = 50004
)

// ============== 预定义错误 ==============

// 认证相关
var (
	ErrInvalidCredentials = NewError(CodeInvalidCredentials, "账号或访问令牌错误")
	ErrTokenInvalid       = NewError(CodeTokenInvalid, "Token 无效")
	ErrTokenExpired       = NewError(CodeTokenExpired, "Token 已过期")
)

// 请求相关
var (
	ErrAccountNotFound = NewError(CodeAccountNotFound, "账号不存在")
	ErrInvalidParams   = NewError(CodeInvalidParams, "参数校验失败")
)

// 会话与状态相关
var (
	ErrConversationNotFound = NewError(CodeConversationNotFound, "会话不存在")
	ErrStatusNotFound       = NewError(CodeStatusNotFound, "状态不存在")
	ErrTranslationFailed    = NewError(CodeTranslationFailed, "翻译失败")
)

// 上游 API 相关
var (
	ErrUpstreamHTTP    = NewError(CodeUpstreamHTTP, "服务器返回错误")
	ErrUpstreamNetwork = NewError(CodeUpstreamNetwork, "网络错误，请重试")
	ErrUpstreamParse   = NewError(CodeUpstreamParse, "服务器响应无法解析")
)

// 系统相关
var (
	ErrServerError    = NewError(CodeServerError, "服务器内部错误")
	ErrDBError        = NewError(CodeDBError, "数据库错误")
	ErrCacheError     = NewError(CodeCacheError, "缓存错误")
	ErrTooManyRequest = NewError(CodeTooManyReqest, "请求过于频繁，请稍后再试")
)
