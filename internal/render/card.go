package render

import (
	"time"

	"sudooom.fedi.sync/internal/model"
	"sudooom.fedi.sync/internal/viewdata"
)

// Card 一条状态渲染后的结果，由 HTTP 接口直接返回
type Card struct {
	Kind     viewdata.DisplayKind `json:"kind"`
	ID       string               `json:"id"`
	StatusID string               `json:"status_id"`

	Author      *Author   `json:"author,omitempty"`
	RebloggedBy *Author   `json:"reblogged_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	Edited      bool      `json:"edited,omitempty"`

	Content *Content `json:"content,omitempty"`
	Media   *Media   `json:"media,omitempty"`
	Buttons *Buttons `json:"buttons,omitempty"`

	// FilterTitles 仅 filtered 类型使用
	FilterTitles []string `json:"filter_titles,omitempty"`
}

// Author 作者展示信息
type Author struct {
	ID          string        `json:"id"`
	DisplayName string        `json:"display_name"`
	Handle      string        `json:"handle"`
	Avatar      string        `json:"avatar"`
	Bot         bool          `json:"bot,omitempty"`
	Emojis      []model.Emoji `json:"emojis,omitempty"`
}

// Content 正文展示信息
type Content struct {
	HTML             string                 `json:"html,omitempty"`
	SpoilerText      string                 `json:"spoiler_text,omitempty"`
	Expanded         bool                   `json:"expanded"`
	Collapsible      bool                   `json:"collapsible"`
	Collapsed        bool                   `json:"collapsed"`
	TranslationState model.TranslationState `json:"translation_state"`
	Language         string                 `json:"language,omitempty"`
	Poll             *model.Poll            `json:"poll,omitempty"`
}

// Media 附件展示信息
type Media struct {
	Sensitive   bool               `json:"sensitive"`
	Showing     bool               `json:"showing"`
	Attachments []model.Attachment `json:"attachments"`
}

// Buttons 操作按钮状态
type Buttons struct {
	Favourited      bool `json:"favourited"`
	Bookmarked      bool `json:"bookmarked"`
	Reblogged       bool `json:"reblogged"`
	Muted           bool `json:"muted"`
	CanReblog       bool `json:"can_reblog"`
	RepliesCount    int  `json:"replies_count"`
	ReblogsCount    int  `json:"reblogs_count"`
	FavouritesCount int  `json:"favourites_count"`
}
