// Package paging 实现本地缓存优先的分页：
// RemoteMediator 把网络页合并进本地存储，Source 只从本地存储读取。
package paging

import (
	"context"
	"errors"
)

// LoadType 加载类型
type LoadType int

const (
	Refresh LoadType = iota
	Append
	Prepend
)

// String 返回加载类型名
func (t LoadType) String() string {
	switch t {
	case Refresh:
		return "refresh"
	case Append:
		return "append"
	case Prepend:
		return "prepend"
	default:
		return "unknown"
	}
}

// MediatorResult 一次远端加载的结果
type MediatorResult struct {
	EndOfPaginationReached bool
	Err                    error
}

// Success 加载成功
func Success(endOfPaginationReached bool) MediatorResult {
	return MediatorResult{EndOfPaginationReached: endOfPaginationReached}
}

// Failure 可重试的加载错误
func Failure(err error) MediatorResult {
	return MediatorResult{Err: err}
}

// RemoteMediator 拉取网络页并合并进本地存储
// 调用方保证同一实例同一时刻只有一个 Load 在执行
type RemoteMediator interface {
	Load(ctx context.Context, loadType LoadType, pageSize int) MediatorResult
}

// CountUndefined 未启用占位时 ItemsBefore/ItemsAfter 的取值
const CountUndefined = -1

// ErrInvalid 数据源已失效，需要重新创建
var ErrInvalid = errors.New("paging source invalidated")

// LoadParams 本地读取参数
type LoadParams struct {
	Key                 *int // 行偏移，nil 表示从头读取
	LoadSize            int
	PlaceholdersEnabled bool
}

// Page 一页本地数据
type Page[T any] struct {
	Data        []T  `json:"data"`
	PrevKey     *int `json:"prev_key"`
	NextKey     *int `json:"next_key"`
	ItemsBefore int  `json:"items_before"`
	ItemsAfter  int  `json:"items_after"`
}

// Source 本地数据源，表变更后失效
type Source[T any] interface {
	Load(ctx context.Context, params LoadParams) (Page[T], error)
	Invalidate()
	Invalid() bool
}

// Key 返回指向 n 的指针
func Key(n int) *int {
	return &n
}
