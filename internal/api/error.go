package api

import (
	"errors"
	"fmt"

	appErrors "sudooom.fedi.sync/pkg/errors"
)

// Kind 请求失败的类别
type Kind int

const (
	// KindHTTP 服务端返回非 2xx 状态码
	KindHTTP Kind = iota + 1
	// KindNetwork DNS、超时、连接重置等传输层错误
	KindNetwork
	// KindParse 响应体无法解析
	KindParse
)

// String 返回类别名
func (k Kind) String() string {
	switch k {
	case KindHTTP:
		return "http"
	case KindNetwork:
		return "network"
	case KindParse:
		return "parse"
	default:
		return "unknown"
	}
}

// Error API 调用失败，客户端返回的 error 均为 *Error
type Error struct {
	Kind       Kind
	StatusCode int
	Method     string
	URL        string
	Message    string // 服务端 {"error": "..."} 中的消息
	Err        error
}

// Error 实现 error 接口
func (e *Error) Error() string {
	switch e.Kind {
	case KindHTTP:
		if e.Message != "" {
			return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.URL, e.StatusCode, e.Message)
		}
		return fmt.Sprintf("%s %s: HTTP %d", e.Method, e.URL, e.StatusCode)
	default:
		return fmt.Sprintf("%s %s: %s error: %v", e.Method, e.URL, e.Kind, e.Err)
	}
}

// Unwrap 支持 errors.Unwrap
func (e *Error) Unwrap() error {
	return e.Err
}

// IsHTTPStatus 判断 err 是否为指定状态码的 HTTP 错误
func IsHTTPStatus(err error, code int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == KindHTTP && apiErr.StatusCode == code
}

// ToAppError 将 API 错误映射为应用错误
func ToAppError(err error) error {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return err
	}
	switch apiErr.Kind {
	case KindHTTP:
		if apiErr.Message != "" {
			return appErrors.ErrUpstreamHTTP.WithMessage(apiErr.Message).Wrap(err)
		}
		return appErrors.ErrUpstreamHTTP.Wrap(err)
	case KindNetwork:
		return appErrors.ErrUpstreamNetwork.Wrap(err)
	default:
		return appErrors.ErrUpstreamParse.Wrap(err)
	}
}
