package model

import "time"

// ConversationAccount 会话参与者在拉取时的快照
type ConversationAccount struct {
	ID          string  `json:"id"`
	Username    string  `json:"username"`
	Acct        string  `json:"acct"`
	DisplayName string  `json:"display_name"`
	Avatar      string  `json:"avatar"`
	Bot         bool    `json:"bot"`
	Emojis      []Emoji `json:"emojis,omitempty"`
}

// ConversationAccountOf 从服务端账号构建快照
func ConversationAccountOf(a TimelineAccount) ConversationAccount {
	return ConversationAccount{
		ID:          a.ID,
		Username:    a.Username,
		Acct:        a.Acct,
		DisplayName: a.DisplayName,
		Avatar:      a.Avatar,
		Bot:         a.Bot,
		Emojis:      a.Emojis,
	}
}

// StatusSnapshot 会话最后一条状态的反范式副本
type StatusSnapshot struct {
	ID                 string              `json:"id"`
	URL                string              `json:"url,omitempty"`
	InReplyToID        string              `json:"in_reply_to_id,omitempty"`
	InReplyToAccountID string              `json:"in_reply_to_account_id,omitempty"`
	Account            ConversationAccount `json:"account"`
	Content            string              `json:"content"`
	SpoilerText        string              `json:"spoiler_text"`
	CreatedAt          time.Time           `json:"created_at"`
	EditedAt           *time.Time          `json:"edited_at,omitempty"`
	Emojis             []Emoji             `json:"emojis,omitempty"`
	RepliesCount       int                 `json:"replies_count"`
	ReblogsCount       int                 `json:"reblogs_count"`
	FavouritesCount    int                 `json:"favourites_count"`
	Favourited         bool                `json:"favourited"`
	Bookmarked         bool                `json:"bookmarked"`
	Sensitive          bool                `json:"sensitive"`
	Muted              bool                `json:"muted"`
	Visibility         Visibility          `json:"visibility"`
	Attachments        []Attachment        `json:"attachments,omitempty"`
	Mentions           []Mention           `json:"mentions,omitempty"`
	Tags               []HashTag           `json:"tags,omitempty"`
	Poll               *Poll               `json:"poll,omitempty"`
	Language           string              `json:"language,omitempty"`
	Filtered           []FilterResult      `json:"filtered,omitempty"`
}

// SnapshotOf 从服务端状态构建快照
func SnapshotOf(s *Status) StatusSnapshot {
	snap := StatusSnapshot{
		ID:              s.ID,
		URL:             s.URL,
		Account:         ConversationAccountOf(s.Account),
		Content:         s.Content,
		SpoilerText:     s.SpoilerText,
		CreatedAt:       s.CreatedAt,
		EditedAt:        s.EditedAt,
		Emojis:          s.Emojis,
		RepliesCount:    s.RepliesCount,
		ReblogsCount:    s.ReblogsCount,
		FavouritesCount: s.FavouritesCount,
		Favourited:      s.Favourited,
		Bookmarked:      s.Bookmarked,
		Sensitive:       s.Sensitive,
		Muted:           s.Muted,
		Visibility:      s.Visibility,
		Attachments:     s.MediaAttachments,
		Mentions:        s.Mentions,
		Tags:            s.Tags,
		Poll:            s.Poll,
		Language:        s.Language,
		Filtered:        s.Filtered,
	}
	if s.InReplyToID != nil {
		snap.InReplyToID = *s.InReplyToID
	}
	if s.InReplyToAccountID != nil {
		snap.InReplyToAccountID = *s.InReplyToAccountID
	}
	return snap
}

// ToStatus 还原为服务端状态结构
func (s *StatusSnapshot) ToStatus() Status {
	status := Status{
		ID:  s.ID,
		URL: s.URL,
		Account: TimelineAccount{
			ID:          s.Account.ID,
			Username:    s.Account.Username,
			Acct:        s.Account.Acct,
			DisplayName: s.Account.DisplayName,
			Avatar:      s.Account.Avatar,
			Bot:         s.Account.Bot,
			Emojis:      s.Account.Emojis,
		},
		Content:          s.Content,
		SpoilerText:      s.SpoilerText,
		CreatedAt:        s.CreatedAt,
		EditedAt:         s.EditedAt,
		Emojis:           s.Emojis,
		RepliesCount:     s.RepliesCount,
		ReblogsCount:     s.ReblogsCount,
		FavouritesCount:  s.FavouritesCount,
		Favourited:       s.Favourited,
		Bookmarked:       s.Bookmarked,
		Sensitive:        s.Sensitive,
		Muted:            s.Muted,
		Visibility:       s.Visibility,
		MediaAttachments: s.Attachments,
		Mentions:         s.Mentions,
		Tags:             s.Tags,
		Poll:             s.Poll,
		Language:         s.Language,
		Filtered:         s.Filtered,
	}
	if s.InReplyToID != "" {
		id := s.InReplyToID
		status.InReplyToID = &id
	}
	if s.InReplyToAccountID != "" {
		id := s.InReplyToAccountID
		status.InReplyToAccountID = &id
	}
	return status
}

// ConversationRecord 本地缓存的会话行，主键 (AccountID, ID)
type ConversationRecord struct {
	AccountID             AccountID             `json:"account_id,string"`
	ID                    string                `json:"id"`
	SortOrder             int                   `json:"sort_order"`
	Accounts              []ConversationAccount `json:"accounts"`
	Unread                bool                  `json:"unread"`
	LastStatus            StatusSnapshot        `json:"last_status"`
	IsConversationStarter bool                  `json:"is_conversation_starter"`

	// ViewData 写入时为覆盖层默认值，读取时为已保存的覆盖层
	ViewData StatusViewDataEntity `json:"view_data"`
}

// TranslationState 翻译状态
type TranslationState string

const (
	TranslationShowOriginal    TranslationState = "show_original"
	TranslationTranslating     TranslationState = "translating"
	TranslationShowTranslation TranslationState = "show_translation"
)

// OrOriginal 未设置时视为显示原文
func (t TranslationState) OrOriginal() TranslationState {
	if t == "" {
		return TranslationShowOriginal
	}
	return t
}

// StatusViewDataEntity 状态的本地覆盖层，nil 字段表示从未设置
type StatusViewDataEntity struct {
	AccountID        AccountID        `json:"-"`
	ServerID         string           `json:"server_id"`
	Expanded         *bool            `json:"expanded,omitempty"`
	ContentShowing   *bool            `json:"content_showing,omitempty"`
	ContentCollapsed *bool            `json:"content_collapsed,omitempty"`
	TranslationState TranslationState `json:"translation_state,omitempty"`
}

// Merge 仅填充尚未设置的字段，已设置的字段保持不变
func (e StatusViewDataEntity) Merge(defaults StatusViewDataEntity) StatusViewDataEntity {
	if e.Expanded == nil {
		e.Expanded = defaults.Expanded
	}
	if e.ContentShowing == nil {
		e.ContentShowing = defaults.ContentShowing
	}
	if e.ContentCollapsed == nil {
		e.ContentCollapsed = defaults.ContentCollapsed
	}
	if e.TranslationState == "" {
		e.TranslationState = defaults.TranslationState
	}
	return e
}

// Bool 返回指向 v 的指针
func Bool(v bool) *bool {
	return &v
}
