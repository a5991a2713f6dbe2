package render

import (
	"testing"

	"sudooom.fedi.sync/internal/model"
	"sudooom.fedi.sync/internal/viewdata"
)

func sample() model.Status {
	return model.Status{
		ID:         "s1",
		Account:    model.TimelineAccount{ID: "a1", Username: "alice", Acct: "alice@example.com"},
		Content:    "<p>secret</p>",
		Sensitive:  true,
		Visibility: model.VisibilityDirect,
		MediaAttachments: []model.Attachment{
			{ID: "m1", Type: "image", URL: "https://example.com/m1.png", PreviewURL: "https://example.com/m1s.png", Blurhash: "LKO2"},
		},
		Poll:            &model.Poll{ID: "p1"},
		FavouritesCount: 3,
		Favourited:      true,
	}
}

func TestRenderNormalHidesSensitiveMedia(t *testing.T) {
	v := viewdata.Reconcile(1, model.Preferences{}, sample(), nil, false)
	c := Render(viewdata.DisplayOf(v, model.FilterContextThread))

	if c.Kind != viewdata.KindNormal || c.ID != "s1" {
		t.Fatalf("unexpected card header %+v", c)
	}
	if c.Author == nil || c.Author.DisplayName != "alice" || c.Author.Handle != "@alice@example.com" {
		t.Fatalf("author = %+v", c.Author)
	}
	if c.Media == nil || c.Media.Showing || c.Media.Attachments[0].URL != "" {
		t.Fatalf("hidden media leaked: %+v", c.Media)
	}
	if c.Media.Attachments[0].Blurhash != "LKO2" {
		t.Fatal("placeholder should keep the blurhash")
	}
	if c.Buttons == nil || !c.Buttons.Favourited || c.Buttons.FavouritesCount != 3 || c.Buttons.CanReblog {
		t.Fatalf("buttons = %+v", c.Buttons)
	}
	if c.Content.HTML != "<p>secret</p>" || c.Content.Poll == nil {
		t.Fatalf("content = %+v", c.Content)
	}
}

func TestRenderSpoilerHidesContent(t *testing.T) {
	s := sample()
	s.SpoilerText = "cw"
	v := viewdata.Reconcile(1, model.Preferences{}, s, nil, false)

	c := Render(viewdata.DisplayOf(v, model.FilterContextThread))
	if c.Content.HTML != "" || c.Content.Poll != nil || c.Content.SpoilerText != "cw" {
		t.Fatalf("collapsed spoiler = %+v", c.Content)
	}

	c = Render(viewdata.DisplayOf(v.WithExpanded(true).WithShowingContent(true), model.FilterContextThread))
	if c.Content.HTML == "" || !c.Media.Showing || c.Media.Attachments[0].URL == "" {
		t.Fatalf("expanded card = %+v %+v", c.Content, c.Media)
	}
}

func TestRenderDetailedNeverCollapsed(t *testing.T) {
	v := viewdata.Reconcile(1, model.Preferences{}, sample(), nil, true).WithCollapsed(true)
	c := Render(viewdata.DisplayOf(v, model.FilterContextThread))
	if c.Kind != viewdata.KindDetailed || c.Content.Collapsed || c.Content.Collapsible {
		t.Fatalf("detailed card = %+v", c.Content)
	}
}

func TestRenderFiltered(t *testing.T) {
	s := sample()
	s.Filtered = []model.FilterResult{{Filter: model.Filter{Title: "spoilers", Context: []model.FilterContext{model.FilterContextThread}, FilterAction: model.FilterActionWarn}}}
	items := viewdata.ApplyFilters([]viewdata.StatusViewData{viewdata.Reconcile(1, model.Preferences{}, s, nil, false)}, model.FilterContextThread)

	cards := RenderAll(items, model.FilterContextThread)
	if len(cards) != 1 {
		t.Fatalf("cards = %d", len(cards))
	}
	c := cards[0]
	if c.Kind != viewdata.KindFiltered || c.Content != nil || c.Media != nil || c.Buttons != nil {
		t.Fatalf("filtered card exposes content: %+v", c)
	}
	if len(c.FilterTitles) != 1 || c.FilterTitles[0] != "spoilers" {
		t.Fatalf("filter titles = %v", c.FilterTitles)
	}
}

func TestRenderReblog(t *testing.T) {
	inner := sample()
	outer := model.Status{ID: "r1", Account: model.TimelineAccount{ID: "b1", Username: "bob", DisplayName: "Bob", Acct: "bob"}, Reblog: &inner}
	c := Render(viewdata.DisplayOf(viewdata.Reconcile(1, model.Preferences{}, outer, nil, false), model.FilterContextHome))

	if c.ID != "r1" || c.StatusID != "s1" {
		t.Fatalf("ids = %s / %s", c.ID, c.StatusID)
	}
	if c.RebloggedBy == nil || c.RebloggedBy.DisplayName != "Bob" || c.Author.ID != "a1" {
		t.Fatalf("author %+v reblogger %+v", c.Author, c.RebloggedBy)
	}
}
