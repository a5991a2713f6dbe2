package paging

import (
	"context"
	"sync"
	"sync/atomic"
)

// Invalidation 可嵌入数据源的失效标记
type Invalidation struct {
	invalid atomic.Bool
	once    sync.Once
	done    chan struct{}
	mu      sync.Mutex
}

// Invalidate 标记失效，可重复调用
func (i *Invalidation) Invalidate() {
	i.invalid.Store(true)
	i.once.Do(func() {
		close(i.channel())
	})
}

// Invalid 是否已失效
func (i *Invalidation) Invalid() bool {
	return i.invalid.Load()
}

// Done 失效时关闭的通道
func (i *Invalidation) Done() <-chan struct{} {
	return i.channel()
}

func (i *Invalidation) channel() chan struct{} {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.done == nil {
		i.done = make(chan struct{})
	}
	return i.done
}

// InvalidatingSourceFactory 创建数据源并在底层变更时使其全部失效
type InvalidatingSourceFactory[T any] struct {
	create func() Source[T]

	mu      sync.Mutex
	sources []Source[T]
}

// NewInvalidatingSourceFactory 创建工厂
func NewInvalidatingSourceFactory[T any](create func() Source[T]) *InvalidatingSourceFactory[T] {
	return &InvalidatingSourceFactory[T]{create: create}
}

// New 创建新的数据源
func (f *InvalidatingSourceFactory[T]) New() Source[T] {
	src := f.create()

	f.mu.Lock()
	defer f.mu.Unlock()
	// 顺便清理已失效的数据源
	live := f.sources[:0]
	for _, s := range f.sources {
		if !s.Invalid() {
			live = append(live, s)
		}
	}
	f.sources = append(live, src)
	return src
}

// Invalidate 使所有已创建的数据源失效
func (f *InvalidatingSourceFactory[T]) Invalidate() {
	f.mu.Lock()
	sources := f.sources
	f.sources = nil
	f.mu.Unlock()

	for _, s := range sources {
		s.Invalidate()
	}
}

// Watch 每次收到变更通知时使数据源失效，直到 ctx 结束或通道关闭
func (f *InvalidatingSourceFactory[T]) Watch(ctx context.Context, changes <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-changes:
			if !ok {
				return
			}
			f.Invalidate()
		}
	}
}
