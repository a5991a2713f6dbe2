package events

import (
	"encoding/json"
	"fmt"

	"sudooom.fedi.sync/internal/model"
)

// Event 账号范围内的领域事件
type Event interface {
	Account() model.AccountID
	Kind() string
}

// 事件类型
const (
	KindFavourite        = "favourite"
	KindReblog           = "reblog"
	KindBookmark         = "bookmark"
	KindMuteConversation = "mute_conversation"
	KindPollVote         = "poll_vote"
	KindBlock            = "block"
	KindStatusComposed   = "status_composed"
	KindStatusDeleted    = "status_deleted"
	KindStatusEdited     = "status_edited"
	KindConversationGone = "conversation_removed"
)

// FavouriteEvent 收藏状态变化
type FavouriteEvent struct {
	AccountID  model.AccountID `json:"account_id,string"`
	StatusID   string          `json:"status_id"`
	Favourited bool            `json:"favourited"`
}

func (e FavouriteEvent) Account() model.AccountID { return e.AccountID }
func (e FavouriteEvent) Kind() string             { return KindFavourite }

// ReblogEvent 转发状态变化
type ReblogEvent struct {
	AccountID model.AccountID `json:"account_id,string"`
	StatusID  string          `json:"status_id"`
	Reblogged bool            `json:"reblogged"`
}

func (e ReblogEvent) Account() model.AccountID { return e.AccountID }
func (e ReblogEvent) Kind() string             { return KindReblog }

// BookmarkEvent 书签状态变化
type BookmarkEvent struct {
	AccountID  model.AccountID `json:"account_id,string"`
	StatusID   string          `json:"status_id"`
	Bookmarked bool            `json:"bookmarked"`
}

func (e BookmarkEvent) Account() model.AccountID { return e.AccountID }
func (e BookmarkEvent) Kind() string             { return KindBookmark }

// MuteConversationEvent 会话静音变化
type MuteConversationEvent struct {
	AccountID model.AccountID `json:"account_id,string"`
	StatusID  string          `json:"status_id"`
	Muted     bool            `json:"muted"`
}

func (e MuteConversationEvent) Account() model.AccountID { return e.AccountID }
func (e MuteConversationEvent) Kind() string             { return KindMuteConversation }

// PollVoteEvent 投票完成
type PollVoteEvent struct {
	AccountID model.AccountID `json:"account_id,string"`
	StatusID  string          `json:"status_id"`
	Poll      *model.Poll     `json:"poll"`
}

func (e PollVoteEvent) Account() model.AccountID { return e.AccountID }
func (e PollVoteEvent) Kind() string             { return KindPollVote }

// BlockEvent 屏蔽了某个远端账号
type BlockEvent struct {
	AccountID       model.AccountID `json:"account_id,string"`
	TargetAccountID string          `json:"target_account_id"`
}

func (e BlockEvent) Account() model.AccountID { return e.AccountID }
func (e BlockEvent) Kind() string             { return KindBlock }

// StatusComposedEvent 发出了新状态
type StatusComposedEvent struct {
	AccountID model.AccountID `json:"account_id,string"`
	Status    model.Status    `json:"status"`
}

func (e StatusComposedEvent) Account() model.AccountID { return e.AccountID }
func (e StatusComposedEvent) Kind() string             { return KindStatusComposed }

// StatusDeletedEvent 删除了状态
type StatusDeletedEvent struct {
	AccountID model.AccountID `json:"account_id,string"`
	StatusID  string          `json:"status_id"`
}

func (e StatusDeletedEvent) Account() model.AccountID { return e.AccountID }
func (e StatusDeletedEvent) Kind() string             { return KindStatusDeleted }

// StatusEditedEvent 编辑了状态
type StatusEditedEvent struct {
	AccountID  model.AccountID `json:"account_id,string"`
	OriginalID string          `json:"original_id"`
	Status     model.Status    `json:"status"`
}

func (e StatusEditedEvent) Account() model.AccountID { return e.AccountID }
func (e StatusEditedEvent) Kind() string             { return KindStatusEdited }

// ConversationRemovedEvent 删除了会话
type ConversationRemovedEvent struct {
	AccountID      model.AccountID `json:"account_id,string"`
	ConversationID string          `json:"conversation_id"`
}

func (e ConversationRemovedEvent) Account() model.AccountID { return e.AccountID }
func (e ConversationRemovedEvent) Kind() string             { return KindConversationGone }

// Envelope 跨节点传输的事件包
type Envelope struct {
	Kind    string          `json:"kind"`
	NodeID  string          `json:"node_id"`
	Payload json.RawMessage `json:"payload"`
}

// Encode 编码事件
func Encode(nodeID string, e Event) ([]byte, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Kind: e.Kind(), NodeID: nodeID, Payload: payload})
}

// Decode 解码事件包
func Decode(data []byte) (Envelope, Event, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return env, nil, err
	}

	var e Event
	var err error
	switch env.Kind {
	case KindFavourite:
		e, err = decodeAs[FavouriteEvent](env.Payload)
	case KindReblog:
		e, err = decodeAs[ReblogEvent](env.Payload)
	case KindBookmark:
		e, err = decodeAs[BookmarkEvent](env.Payload)
	case KindMuteConversation:
		e, err = decodeAs[MuteConversationEvent](env.Payload)
	case KindPollVote:
		e, err = decodeAs[PollVoteEvent](env.Payload)
	case KindBlock:
		e, err = decodeAs[BlockEvent](env.Payload)
	case KindStatusComposed:
		e, err = decodeAs[StatusComposedEvent](env.Payload)
	case KindStatusDeleted:
		e, err = decodeAs[StatusDeletedEvent](env.Payload)
	case KindStatusEdited:
		e, err = decodeAs[StatusEditedEvent](env.Payload)
	case KindConversationGone:
		e, err = decodeAs[ConversationRemovedEvent](env.Payload)
	default:
		return env, nil, fmt.Errorf("unknown event kind %q", env.Kind)
	}
	return env, e, err
}

func decodeAs[T Event](payload json.RawMessage) (Event, error) {
	var v T
	if err := json.Unmarshal(payload, &v); err != nil {
		return nil, err
	}
	return v, nil
}
