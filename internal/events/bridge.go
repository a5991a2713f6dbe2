package events

import (
	"encoding/json"
	"log/slog"
	"strings"
	"sync"

	"github.com/nats-io/nats.go"
	"sudooom.fedi.sync/internal/model"
)

// invalidation 失效通知消息体
type invalidation struct {
	NodeID string `json:"node_id"`
}

// Bridge 通过 NATS 在多个守护进程之间转发事件与失效通知
type Bridge struct {
	nc     *nats.Conn
	hub    *Hub
	nodeID string
	logger *slog.Logger

	mu   sync.Mutex
	subs []*nats.Subscription
}

// NewBridge 创建桥接器
func NewBridge(nc *nats.Conn, hub *Hub, nodeID string) *Bridge {
	return &Bridge{
		nc:     nc,
		hub:    hub,
		nodeID: nodeID,
		logger: slog.Default(),
	}
}

// Start 订阅远端事件与失效通知，并接管 Hub 的转发
// onInvalidate 收到其他节点的失效通知时调用
func (b *Bridge) Start(onInvalidate func(model.AccountID)) error {
	evSub, err := b.nc.Subscribe(SubjectEventsAll, b.handleEvent)
	if err != nil {
		return err
	}
	invSub, err := b.nc.Subscribe(SubjectInvalidateAll, func(msg *nats.Msg) {
		b.handleInvalidate(msg, onInvalidate)
	})
	if err != nil {
		_ = evSub.Unsubscribe()
		return err
	}

	b.mu.Lock()
	b.subs = append(b.subs, evSub, invSub)
	b.mu.Unlock()

	b.hub.SetForwarder(b.PublishEvent)
	b.logger.Info("Event bridge started", "nodeId", b.nodeID)
	return nil
}

// Stop 取消订阅
func (b *Bridge) Stop() {
	b.hub.SetForwarder(nil)

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs {
		if err := sub.Unsubscribe(); err != nil {
			b.logger.Warn("Failed to unsubscribe", "subject", sub.Subject, "error", err)
		}
	}
	b.subs = nil
}

// PublishEvent 发布本地事件
func (b *Bridge) PublishEvent(e Event) {
	data, err := Encode(b.nodeID, e)
	if err != nil {
		b.logger.Error("Failed to marshal event", "kind", e.Kind(), "error", err)
		return
	}
	subject := BuildEventsSubject(e.Account())
	if err := b.nc.Publish(subject, data); err != nil {
		b.logger.Error("Failed to publish event", "subject", subject, "error", err)
		return
	}
	b.logger.Debug("Published event", "subject", subject, "kind", e.Kind())
}

// PublishInvalidation 发布账号的失效通知
func (b *Bridge) PublishInvalidation(id model.AccountID) {
	data, err := json.Marshal(invalidation{NodeID: b.nodeID})
	if err != nil {
		b.logger.Error("Failed to marshal invalidation", "error", err)
		return
	}
	if err := b.nc.Publish(BuildInvalidateSubject(id), data); err != nil {
		b.logger.Error("Failed to publish invalidation", "accountId", id, "error", err)
	}
}

func (b *Bridge) handleEvent(msg *nats.Msg) {
	env, e, err := Decode(msg.Data)
	if err != nil {
		b.logger.Warn("Failed to decode event", "subject", msg.Subject, "error", err)
		return
	}
	if env.NodeID == b.nodeID {
		return
	}
	b.hub.Deliver(e)
}

func (b *Bridge) handleInvalidate(msg *nats.Msg, onInvalidate func(model.AccountID)) {
	var inv invalidation
	if err := json.Unmarshal(msg.Data, &inv); err != nil {
		b.logger.Warn("Failed to decode invalidation", "subject", msg.Subject, "error", err)
		return
	}
	if inv.NodeID == b.nodeID || onInvalidate == nil {
		return
	}
	id, err := model.ParseAccountID(strings.TrimPrefix(msg.Subject, SubjectInvalidatePrefix))
	if err != nil {
		b.logger.Warn("Invalid invalidation subject", "subject", msg.Subject)
		return
	}
	onInvalidate(id)
}
