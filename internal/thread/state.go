package thread

import (
	"encoding/json"

	"sudooom.fedi.sync/internal/viewdata"
)

// State 线程视图的状态，取值为 Loading、LoadingThread、Success、Error、Refreshing 之一
type State interface {
	Phase() string
}

// Loading 尚未拿到详情状态
type Loading struct{}

// LoadingThread 已有详情状态，上下文仍在加载
type LoadingThread struct {
	Status       *viewdata.StatusViewData   `json:"status"`
	RevealButton viewdata.RevealButtonState `json:"reveal_button"`
}

// Success 线程加载完成
type Success struct {
	Statuses         []viewdata.StatusViewData  `json:"statuses"`
	DetailedPosition int                        `json:"detailed_position"`
	RevealButton     viewdata.RevealButtonState `json:"reveal_button"`
}

// Error 详情状态无法加载
type Error struct {
	Err error `json:"-"`
}

// Refreshing 用户触发的重新加载
type Refreshing struct{}

func (Loading) Phase() string       { return "loading" }
func (LoadingThread) Phase() string { return "loading_thread" }
func (Success) Phase() string       { return "success" }
func (Error) Phase() string         { return "error" }
func (Refreshing) Phase() string    { return "refreshing" }

// MarshalJSON 输出错误消息
func (e Error) MarshalJSON() ([]byte, error) {
	msg := ""
	if e.Err != nil {
		msg = e.Err.Error()
	}
	return json.Marshal(struct {
		Error string `json:"error"`
	}{msg})
}

// Detailed 返回详情状态
func (s Success) Detailed() (viewdata.StatusViewData, bool) {
	if s.DetailedPosition < 0 || s.DetailedPosition >= len(s.Statuses) {
		return viewdata.StatusViewData{}, false
	}
	return s.Statuses[s.DetailedPosition], true
}

// withStatuses 替换列表并重新计算详情位置与按钮状态，详情状态被移除时位置为 -1
func (s Success) withStatuses(items []viewdata.StatusViewData) Success {
	pos := -1
	for i, v := range items {
		if v.Detailed {
			pos = i
			break
		}
	}
	return Success{
		Statuses:         items,
		DetailedPosition: pos,
		RevealButton:     viewdata.AggregateRevealButton(items),
	}
}

// IsTerminal 加载是否已结束
func IsTerminal(s State) bool {
	switch s.(type) {
	case Success, Error:
		return true
	default:
		return false
	}
}
