package render

import (
	"sudooom.fedi.sync/internal/model"
	"sudooom.fedi.sync/internal/viewdata"
)

// Renderer 按展示类型组合能力
type Renderer struct {
	capabilities []Capability
}

var (
	normalRenderer   = &Renderer{capabilities: []Capability{SetDisplayName, SetContent, SetMediaPreview, SetButtons}}
	detailedRenderer = normalRenderer
	filteredRenderer = &Renderer{capabilities: []Capability{SetDisplayName}}
)

// Render 渲染一条状态
func (r *Renderer) Render(kind viewdata.DisplayKind, v viewdata.StatusViewData) Card {
	c := Card{Kind: kind, ID: v.ID(), StatusID: v.ActionableID()}
	for _, capability := range r.capabilities {
		capability(&c, v)
	}
	return c
}

// Render 根据展示类型选择渲染方式
func Render(d viewdata.Display) Card {
	switch d := d.(type) {
	case viewdata.Detailed:
		return detailedRenderer.Render(d.Kind(), d.StatusViewData)
	case viewdata.Filtered:
		c := filteredRenderer.Render(d.Kind(), d.StatusViewData)
		c.FilterTitles = d.Titles
		return c
	default:
		return normalRenderer.Render(d.Kind(), d.Item())
	}
}

// RenderAll 渲染一组状态
func RenderAll(items []viewdata.StatusViewData, ctx model.FilterContext) []Card {
	cards := make([]Card, 0, len(items))
	for _, v := range items {
		cards = append(cards, Render(viewdata.DisplayOf(v, ctx)))
	}
	return cards
}
