package render

import (
	"sudooom.fedi.sync/internal/model"
	"sudooom.fedi.sync/internal/viewdata"
)

// Capability 填充 Card 的一部分
type Capability func(c *Card, v viewdata.StatusViewData)

// SetDisplayName 作者与转发者
func SetDisplayName(c *Card, v viewdata.StatusViewData) {
	c.Author = authorOf(&v.Actionable().Account)
	if v.Status.Reblog != nil {
		c.RebloggedBy = authorOf(&v.Status.Account)
	}
	c.CreatedAt = v.Actionable().CreatedAt
	c.Edited = v.Actionable().EditedAt != nil
}

// SetMediaPreview 附件；内容未显示时只给出数量对应的占位，不含地址
func SetMediaPreview(c *Card, v viewdata.StatusViewData) {
	s := v.Actionable()
	if len(s.MediaAttachments) == 0 {
		return
	}
	m := &Media{Sensitive: s.Sensitive, Showing: v.ShowingContent}
	if v.ShowingContent {
		m.Attachments = s.MediaAttachments
	} else {
		m.Attachments = make([]model.Attachment, len(s.MediaAttachments))
		for i, a := range s.MediaAttachments {
			m.Attachments[i] = model.Attachment{ID: a.ID, Type: a.Type, Description: a.Description, Blurhash: a.Blurhash}
		}
	}
	c.Media = m
}

// SetButtons 操作按钮
func SetButtons(c *Card, v viewdata.StatusViewData) {
	s := v.Actionable()
	c.Buttons = &Buttons{
		Favourited:      s.Favourited,
		Bookmarked:      s.Bookmarked,
		Reblogged:       s.Reblogged,
		Muted:           s.Muted,
		CanReblog:       s.Visibility == model.VisibilityPublic || s.Visibility == model.VisibilityUnlisted,
		RepliesCount:    s.RepliesCount,
		ReblogsCount:    s.ReblogsCount,
		FavouritesCount: s.FavouritesCount,
	}
}

// SetContent 正文、内容警告与投票
// 有内容警告且未展开时不输出正文
func SetContent(c *Card, v viewdata.StatusViewData) {
	s := v.Actionable()
	content := &Content{
		SpoilerText:      v.SpoilerText(),
		Expanded:         v.Expanded,
		Collapsible:      v.IsCollapsible(),
		Collapsed:        v.Collapsed,
		TranslationState: v.TranslationState,
		Language:         s.Language,
	}
	if content.SpoilerText == "" || v.Expanded {
		content.HTML = v.Content()
		content.Poll = s.Poll
	}
	// 详情状态不折叠
	if v.Detailed {
		content.Collapsible = false
		content.Collapsed = false
	}
	c.Content = content
}

func authorOf(a *model.TimelineAccount) *Author {
	return &Author{
		ID:          a.ID,
		DisplayName: a.Name(),
		Handle:      "@" + a.Acct,
		Avatar:      a.Avatar,
		Bot:         a.Bot,
		Emojis:      a.Emojis,
	}
}
