package viewdata

import "sudooom.fedi.sync/internal/model"

// ConversationFilterContext 会话列表使用的过滤上下文
const ConversationFilterContext = model.FilterContextThread

// ConversationViewData 会话列表中的一项
type ConversationViewData struct {
	AccountID             model.AccountID             `json:"account_id,string"`
	ID                    string                      `json:"id"`
	Order                 int                         `json:"order"`
	Accounts              []model.ConversationAccount `json:"accounts"`
	Unread                bool                        `json:"unread"`
	IsConversationStarter bool                        `json:"is_conversation_starter"`
	LastStatus            StatusViewData              `json:"last_status"`
}

// ConversationFrom 由本地会话行构建展示数据，行中携带的覆盖层优先于账号默认值
func ConversationFrom(prefs model.Preferences, rec *model.ConversationRecord, translation *model.Translation) ConversationViewData {
	status := rec.LastStatus.ToStatus()
	overlay := rec.ViewData
	last := Reconcile(rec.AccountID, prefs, status, &overlay, false).
		WithTranslation(overlay.TranslationState.OrOriginal(), translation)
	last = last.WithFilterAction(FilterActionFor(&status, ConversationFilterContext))

	return ConversationViewData{
		AccountID:             rec.AccountID,
		ID:                    rec.ID,
		Order:                 rec.SortOrder,
		Accounts:              rec.Accounts,
		Unread:                rec.Unread,
		IsConversationStarter: rec.IsConversationStarter,
		LastStatus:            last,
	}
}

// WithLastStatus 返回替换最后一条状态展示数据后的副本
func (c ConversationViewData) WithLastStatus(fn func(StatusViewData) StatusViewData) ConversationViewData {
	c.LastStatus = fn(c.LastStatus)
	return c
}
