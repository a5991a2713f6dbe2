package events

import (
	"log/slog"
	"sync"

	"sudooom.fedi.sync/internal/metrics"
)

// Hub 进程内事件总线，订阅者满时丢弃事件
type Hub struct {
	mu      sync.RWMutex
	nextID  int
	subs    map[int]chan Event
	forward func(Event)
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewHub 创建事件总线
func NewHub(m *metrics.Metrics) *Hub {
	return &Hub{
		subs:    make(map[int]chan Event),
		metrics: m,
		logger:  slog.Default(),
	}
}

// SetForwarder 设置本地事件的转发函数
func (h *Hub) SetForwarder(fn func(Event)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.forward = fn
}

// Subscribe 订阅事件，返回取消函数
func (h *Hub) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 64
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan Event, buffer)
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs, id)
			close(ch)
		})
	}
}

// Dispatch 分发本地产生的事件并转发到其他节点
func (h *Hub) Dispatch(e Event) {
	h.Deliver(e)

	h.mu.RLock()
	forward := h.forward
	h.mu.RUnlock()
	if forward != nil {
		forward(e)
	}
}

// Deliver 只分发给本地订阅者
func (h *Hub) Deliver(e Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	h.metrics.EventDispatched(e.Kind())
	for _, ch := range h.subs {
		select {
		case ch <- e:
		default:
			h.metrics.EventDropped()
			h.logger.Warn("Event subscriber full, dropping event",
				"kind", e.Kind(),
				"accountId", e.Account())
		}
	}
}
