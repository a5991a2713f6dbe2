package viewdata

import (
	"slices"

	"sudooom.fedi.sync/internal/model"
)

// FilterActionFor 根据服务端过滤结果决定在 ctx 中的动作，hide 优先于 warn
func FilterActionFor(status *model.Status, ctx model.FilterContext) model.FilterAction {
	action := model.FilterActionNone
	for _, r := range status.Actionable().Filtered {
		if !slices.Contains(r.Filter.Context, ctx) {
			continue
		}
		switch r.Filter.FilterAction {
		case model.FilterActionHide:
			return model.FilterActionHide
		case model.FilterActionWarn:
			action = model.FilterActionWarn
		}
	}
	return action
}

// FilterTitles 返回在 ctx 中命中的 warn 过滤器标题
func FilterTitles(status *model.Status, ctx model.FilterContext) []string {
	var titles []string
	for _, r := range status.Actionable().Filtered {
		if r.Filter.FilterAction == model.FilterActionWarn && slices.Contains(r.Filter.Context, ctx) {
			titles = append(titles, r.Filter.Title)
		}
	}
	return titles
}

// ApplyFilters 设置每项的过滤动作并移除 hide 的项，详情状态始终保留
func ApplyFilters(items []StatusViewData, ctx model.FilterContext) []StatusViewData {
	out := make([]StatusViewData, 0, len(items))
	for _, v := range items {
		if v.Detailed {
			out = append(out, v)
			continue
		}
		action := FilterActionFor(&v.Status, ctx)
		if action == model.FilterActionHide {
			continue
		}
		out = append(out, v.WithFilterAction(action))
	}
	return out
}
