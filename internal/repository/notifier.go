package repository

import (
	"sync"

	"sudooom.fedi.sync/internal/model"
)

// Notifier 按账号分发表变更通知
// 通道容量为 1，未消费的通知会合并
type Notifier struct {
	mu      sync.Mutex
	nextID  int
	subs    map[model.AccountID]map[int]chan struct{}
	forward func(model.AccountID)
}

// NewNotifier 创建通知器
func NewNotifier() *Notifier {
	return &Notifier{
		subs: make(map[model.AccountID]map[int]chan struct{}),
	}
}

// SetForwarder 设置本地提交后的转发函数，例如发布到其他节点
func (n *Notifier) SetForwarder(fn func(model.AccountID)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.forward = fn
}

// Subscribe 订阅账号的变更，返回取消函数
func (n *Notifier) Subscribe(accountID model.AccountID) (<-chan struct{}, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++
	ch := make(chan struct{}, 1)
	if n.subs[accountID] == nil {
		n.subs[accountID] = make(map[int]chan struct{})
	}
	n.subs[accountID][id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			delete(n.subs[accountID], id)
			if len(n.subs[accountID]) == 0 {
				delete(n.subs, accountID)
			}
		})
	}
}

// Notify 通知本地订阅者并转发
func (n *Notifier) Notify(accountIDs ...model.AccountID) {
	n.NotifyLocal(accountIDs...)

	n.mu.Lock()
	forward := n.forward
	n.mu.Unlock()
	if forward == nil {
		return
	}
	for _, id := range accountIDs {
		forward(id)
	}
}

// NotifyLocal 只通知本地订阅者
func (n *Notifier) NotifyLocal(accountIDs ...model.AccountID) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, id := range accountIDs {
		for _, ch := range n.subs[id] {
			select {
			case ch <- struct{}{}:
			default:
			}
		}
	}
}
