package viewdata

import "sudooom.fedi.sync/internal/model"

// Display 列表项的展示类型
type Display interface {
	Kind() DisplayKind
	Item() StatusViewData
}

// DisplayKind 展示类型
type DisplayKind string

const (
	KindNormal   DisplayKind = "normal"
	KindDetailed DisplayKind = "detailed"
	KindFiltered DisplayKind = "filtered"
)

// Normal 普通状态
type Normal struct {
	StatusViewData
}

func (Normal) Kind() DisplayKind { return KindNormal }
func (d Normal) Item() StatusViewData { return d.StatusViewData }

// Detailed 线程中的焦点状态
type Detailed struct {
	StatusViewData
}

func (Detailed) Kind() DisplayKind { return KindDetailed }
func (d Detailed) Item() StatusViewData { return d.StatusViewData }

// Filtered 命中 warn 过滤器的状态，只展示过滤器标题
type Filtered struct {
	StatusViewData
	Titles []string
}

func (Filtered) Kind() DisplayKind { return KindFiltered }
func (d Filtered) Item() StatusViewData { return d.StatusViewData }

// DisplayOf 选择展示类型，详情状态不受过滤影响
func DisplayOf(v StatusViewData, ctx model.FilterContext) Display {
	switch {
	case v.Detailed:
		return Detailed{v}
	case v.FilterAction == model.FilterActionWarn:
		return Filtered{StatusViewData: v, Titles: FilterTitles(&v.Status, ctx)}
	default:
		return Normal{v}
	}
}
