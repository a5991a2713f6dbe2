package viewdata

// RevealButtonState 线程视图中“全部展开/全部收起”按钮的状态
type RevealButtonState int

const (
	RevealNoButton RevealButtonState = iota
	RevealReveal
	RevealHide
)

func (s RevealButtonState) String() string {
	switch s {
	case RevealReveal:
		return "reveal"
	case RevealHide:
		return "hide"
	default:
		return "no_button"
	}
}

func (s RevealButtonState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// RevealButton 单条状态：有内容警告时，已展开为 HIDE，否则为 REVEAL
func (v StatusViewData) RevealButton() RevealButtonState {
	if v.Actionable().SpoilerText == "" {
		return RevealNoButton
	}
	if v.Expanded {
		return RevealHide
	}
	return RevealReveal
}

// AggregateRevealButton 任一项为 REVEAL 则为 REVEAL；否则任一项为 HIDE 则为 HIDE
func AggregateRevealButton(items []StatusViewData) RevealButtonState {
	seenHide := false
	for _, v := range items {
		switch v.RevealButton() {
		case RevealReveal:
			return RevealReveal
		case RevealHide:
			seenHide = true
		}
	}
	if seenHide {
		return RevealHide
	}
	return RevealNoButton
}
