package events

import "sudooom.fedi.sync/internal/model"

// NATS Subject 常量定义
const (
	// SubjectEventsPrefix 账号事件前缀
	// 完整格式: fedisync.events.{account_id}
	SubjectEventsPrefix = "fedisync.events."

	// SubjectInvalidatePrefix 本地存储失效通知前缀
	// 完整格式: fedisync.invalidate.{account_id}
	SubjectInvalidatePrefix = "fedisync.invalidate."

	SubjectEventsAll     = SubjectEventsPrefix + ">"
	SubjectInvalidateAll = SubjectInvalidatePrefix + ">"
)

// BuildEventsSubject 构建账号事件 Subject
func BuildEventsSubject(id model.AccountID) string {
	return SubjectEventsPrefix + id.String()
}

// BuildInvalidateSubject 构建失效通知 Subject
func BuildInvalidateSubject(id model.AccountID) string {
	return SubjectInvalidatePrefix + id.String()
}
