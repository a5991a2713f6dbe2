package model

import "time"

// Visibility 状态可见性
type Visibility string

const (
	VisibilityPublic   Visibility = "public"
	VisibilityUnlisted Visibility = "unlisted"
	VisibilityPrivate  Visibility = "private"
	VisibilityDirect   Visibility = "direct"
)

// TimelineAccount 服务端返回的账号信息
type TimelineAccount struct {
	ID          string  `json:"id"`
	Username    string  `json:"username"`
	Acct        string  `json:"acct"`
	DisplayName string  `json:"display_name"`
	URL         string  `json:"url"`
	Avatar      string  `json:"avatar"`
	Bot         bool    `json:"bot"`
	Emojis      []Emoji `json:"emojis,omitempty"`
}

// Name 展示名，为空时退回到用户名
func (a *TimelineAccount) Name() string {
	if a.DisplayName != "" {
		return a.DisplayName
	}
	return a.Username
}

// Emoji 自定义表情
type Emoji struct {
	Shortcode       string `json:"shortcode"`
	URL             string `json:"url"`
	StaticURL       string `json:"static_url"`
	VisibleInPicker bool   `json:"visible_in_picker"`
}

// Attachment 媒体附件
type Attachment struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	URL         string `json:"url"`
	PreviewURL  string `json:"preview_url"`
	Description string `json:"description,omitempty"`
	Blurhash    string `json:"blurhash,omitempty"`
}

// Mention 提及
type Mention struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Acct     string `json:"acct"`
	URL      string `json:"url"`
}

// HashTag 话题标签
type HashTag struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// PollOption 投票选项
type PollOption struct {
	Title      string `json:"title"`
	VotesCount *int   `json:"votes_count"`
}

// Poll 投票
type Poll struct {
	ID          string       `json:"id"`
	ExpiresAt   *time.Time   `json:"expires_at"`
	Expired     bool         `json:"expired"`
	Multiple    bool         `json:"multiple"`
	VotesCount  int          `json:"votes_count"`
	VotersCount *int         `json:"voters_count"`
	Options     []PollOption `json:"options"`
	Voted       bool         `json:"voted"`
	OwnVotes    []int        `json:"own_votes"`
}

// Votes 用给定的选项投票后的本地副本
func (p *Poll) Votes(choices []int) *Poll {
	voted := *p
	voted.Options = make([]PollOption, len(p.Options))
	copy(voted.Options, p.Options)
	for _, c := range choices {
		if c < 0 || c >= len(voted.Options) {
			continue
		}
		n := 1
		if voted.Options[c].VotesCount != nil {
			n = *voted.Options[c].VotesCount + 1
		}
		voted.Options[c].VotesCount = &n
	}
	voted.VotesCount += len(choices)
	if voted.VotersCount != nil {
		n := *voted.VotersCount + 1
		voted.VotersCount = &n
	}
	voted.Voted = true
	voted.OwnVotes = append([]int(nil), choices...)
	return &voted
}

// FilterAction 服务端过滤动作
type FilterAction string

const (
	FilterActionNone FilterAction = ""
	FilterActionWarn FilterAction = "warn"
	FilterActionHide FilterAction = "hide"
)

// FilterContext 过滤器生效的上下文
type FilterContext string

const (
	FilterContextHome          FilterContext = "home"
	FilterContextNotifications FilterContext = "notifications"
	FilterContextPublic        FilterContext = "public"
	FilterContextThread        FilterContext = "thread"
	FilterContextAccount       FilterContext = "account"
)

// Filter 服务端过滤器
type Filter struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	Context      []FilterContext `json:"context"`
	FilterAction FilterAction    `json:"filter_action"`
}

// FilterResult 状态命中的过滤器
type FilterResult struct {
	Filter         Filter   `json:"filter"`
	KeywordMatches []string `json:"keyword_matches,omitempty"`
	StatusMatches  []string `json:"status_matches,omitempty"`
}

// Status 服务端返回的状态
type Status struct {
	ID                 string          `json:"id"`
	URL                string          `json:"url,omitempty"`
	Account            TimelineAccount `json:"account"`
	InReplyToID        *string         `json:"in_reply_to_id"`
	InReplyToAccountID *string         `json:"in_reply_to_account_id"`
	Reblog             *Status         `json:"reblog,omitempty"`
	Content            string          `json:"content"`
	CreatedAt          time.Time       `json:"created_at"`
	EditedAt           *time.Time      `json:"edited_at"`
	Emojis             []Emoji         `json:"emojis,omitempty"`
	ReblogsCount       int             `json:"reblogs_count"`
	FavouritesCount    int             `json:"favourites_count"`
	RepliesCount       int             `json:"replies_count"`
	Reblogged          bool            `json:"reblogged"`
	Favourited         bool            `json:"favourited"`
	Bookmarked         bool            `json:"bookmarked"`
	Muted              bool            `json:"muted"`
	Pinned             bool            `json:"pinned"`
	Sensitive          bool            `json:"sensitive"`
	SpoilerText        string          `json:"spoiler_text"`
	Visibility         Visibility      `json:"visibility"`
	MediaAttachments   []Attachment    `json:"media_attachments,omitempty"`
	Mentions           []Mention       `json:"mentions,omitempty"`
	Tags               []HashTag       `json:"tags,omitempty"`
	Poll               *Poll           `json:"poll,omitempty"`
	Language           string          `json:"language,omitempty"`
	Filtered           []FilterResult  `json:"filtered,omitempty"`
}

// Actionable 转发时返回被转发的状态，否则返回自身
func (s *Status) Actionable() *Status {
	if s.Reblog != nil {
		return s.Reblog
	}
	return s
}

// IsReply 是否为回复
func (s *Status) IsReply() bool {
	return s.InReplyToID != nil && *s.InReplyToID != ""
}

// StatusContext 状态所在线程的上下文
type StatusContext struct {
	Ancestors   []Status `json:"ancestors"`
	Descendants []Status `json:"descendants"`
}

// Conversation 服务端返回的私信会话
type Conversation struct {
	ID         string            `json:"id"`
	Accounts   []TimelineAccount `json:"accounts"`
	LastStatus *Status           `json:"last_status"`
	Unread     bool              `json:"unread"`
}

// Translation 服务端翻译结果
type Translation struct {
	Content                string `json:"content"`
	SpoilerText            string `json:"spoiler_text,omitempty"`
	DetectedSourceLanguage string `json:"detected_source_language"`
	Provider               string `json:"provider"`
}
