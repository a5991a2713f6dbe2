package viewdata

import (
	"sudooom.fedi.sync/internal/model"
)

// StatusViewData 单条状态的展示数据，不可变，修改通过 With* 返回副本
type StatusViewData struct {
	AccountID        model.AccountID        `json:"account_id,string"`
	Status           model.Status           `json:"status"`
	Translation      *model.Translation     `json:"translation,omitempty"`
	Expanded         bool                   `json:"expanded"`
	ShowingContent   bool                   `json:"showing_content"`
	Collapsed        bool                   `json:"collapsed"`
	Detailed         bool                   `json:"detailed"`
	FilterAction     model.FilterAction     `json:"filter_action,omitempty"`
	TranslationState model.TranslationState `json:"translation_state"`
}

// Reconcile 合并最新拉取的状态与已保存的覆盖层
// prior 中未设置的字段取账号偏好默认值；详情状态默认不折叠
func Reconcile(accountID model.AccountID, prefs model.Preferences, status model.Status, prior *model.StatusViewDataEntity, detailed bool) StatusViewData {
	defaults := Defaults(accountID, prefs, &status, detailed)
	overlay := defaults
	if prior != nil {
		overlay = prior.Merge(defaults)
	}

	return StatusViewData{
		AccountID:        accountID,
		Status:           status,
		Expanded:         *overlay.Expanded,
		ShowingContent:   *overlay.ContentShowing,
		Collapsed:        *overlay.ContentCollapsed,
		Detailed:         detailed,
		TranslationState: overlay.TranslationState.OrOriginal(),
	}
}

// Defaults 返回没有保存状态时的覆盖层默认值
func Defaults(accountID model.AccountID, prefs model.Preferences, status *model.Status, detailed bool) model.StatusViewDataEntity {
	actionable := status.Actionable()
	return model.StatusViewDataEntity{
		AccountID:        accountID,
		ServerID:         actionable.ID,
		Expanded:         model.Bool(prefs.AlwaysOpenSpoiler),
		ContentShowing:   model.Bool(prefs.AlwaysShowSensitiveMedia || !actionable.Sensitive),
		ContentCollapsed: model.Bool(!detailed),
		TranslationState: model.TranslationShowOriginal,
	}
}

// ID 状态ID
func (v StatusViewData) ID() string {
	return v.Status.ID
}

// Actionable 可操作的状态，转发时为原状态
func (v StatusViewData) Actionable() *model.Status {
	return v.Status.Actionable()
}

// ActionableID 可操作状态的ID
func (v StatusViewData) ActionableID() string {
	return v.Actionable().ID
}

// Content 按翻译状态返回正文 HTML
func (v StatusViewData) Content() string {
	if v.showTranslation() {
		return v.Translation.Content
	}
	return v.Actionable().Content
}

// SpoilerText 按翻译状态返回内容警告
func (v StatusViewData) SpoilerText() string {
	if v.showTranslation() {
		return v.Translation.SpoilerText
	}
	return v.Actionable().SpoilerText
}

// IsCollapsible 正文是否长到需要折叠
func (v StatusViewData) IsCollapsible() bool {
	return IsCollapsible(v.Content())
}

// Entity 返回需要持久化的覆盖层
func (v StatusViewData) Entity() model.StatusViewDataEntity {
	return model.StatusViewDataEntity{
		AccountID:        v.AccountID,
		ServerID:         v.ActionableID(),
		Expanded:         model.Bool(v.Expanded),
		ContentShowing:   model.Bool(v.ShowingContent),
		ContentCollapsed: model.Bool(v.Collapsed),
		TranslationState: v.TranslationState,
	}
}

func (v StatusViewData) showTranslation() bool {
	return v.TranslationState == model.TranslationShowTranslation && v.Translation != nil
}

func (v StatusViewData) WithExpanded(expanded bool) StatusViewData {
	v.Expanded = expanded
	return v
}

func (v StatusViewData) WithShowingContent(showing bool) StatusViewData {
	v.ShowingContent = showing
	return v
}

func (v StatusViewData) WithCollapsed(collapsed bool) StatusViewData {
	v.Collapsed = collapsed
	return v
}

func (v StatusViewData) WithFilterAction(action model.FilterAction) StatusViewData {
	v.FilterAction = action
	return v
}

// WithTranslation 设置翻译状态与译文，SHOW_TRANSLATION 缺少译文时退回原文
func (v StatusViewData) WithTranslation(state model.TranslationState, t *model.Translation) StatusViewData {
	if state == model.TranslationShowTranslation && t == nil {
		state = model.TranslationShowOriginal
	}
	v.TranslationState = state
	if t != nil {
		v.Translation = t
	}
	return v
}

// WithStatus 替换状态数据，本地状态保留
func (v StatusViewData) WithStatus(status model.Status) StatusViewData {
	v.Status = status
	return v
}

// UpdateStatus 对状态做修改后返回副本，转发时修改被转发的状态
func (v StatusViewData) UpdateStatus(fn func(s *model.Status)) StatusViewData {
	s := v.Status
	if s.Reblog != nil {
		reblog := *s.Reblog
		fn(&reblog)
		s.Reblog = &reblog
	} else {
		fn(&s)
	}
	v.Status = s
	return v
}
