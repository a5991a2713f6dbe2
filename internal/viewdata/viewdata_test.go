package viewdata

import (
	"strings"
	"testing"

	"sudooom.fedi.sync/internal/model"
)

func status(id string, sensitive bool, spoiler string) model.Status {
	return model.Status{ID: id, Sensitive: sensitive, SpoilerText: spoiler, Content: "<p>hi</p>"}
}

func TestReconcileDefaults(t *testing.T) {
	cases := []struct {
		name     string
		prefs    model.Preferences
		s        model.Status
		detailed bool
		want     StatusViewData
	}{
		{
			name: "not sensitive shows content",
			s:    status("1", false, ""),
			want: StatusViewData{ShowingContent: true, Collapsed: true},
		},
		{
			name: "sensitive hidden by default",
			s:    status("1", true, ""),
			want: StatusViewData{ShowingContent: false, Collapsed: true},
		},
		{
			name:  "always show sensitive media",
			prefs: model.Preferences{AlwaysShowSensitiveMedia: true, AlwaysOpenSpoiler: true},
			s:     status("1", true, "cw"),
			want:  StatusViewData{ShowingContent: true, Expanded: true, Collapsed: true},
		},
		{
			name:     "detailed is not collapsed",
			s:        status("1", false, ""),
			detailed: true,
			want:     StatusViewData{ShowingContent: true, Collapsed: false},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Reconcile(1, tc.prefs, tc.s, nil, tc.detailed)
			if got.ShowingContent != tc.want.ShowingContent || got.Expanded != tc.want.Expanded || got.Collapsed != tc.want.Collapsed {
				t.Fatalf("got expanded=%v showing=%v collapsed=%v, want %+v",
					got.Expanded, got.ShowingContent, got.Collapsed, tc.want)
			}
			if got.TranslationState != model.TranslationShowOriginal {
				t.Fatalf("translation state = %s", got.TranslationState)
			}
		})
	}
}

func TestReconcilePriorWins(t *testing.T) {
	prior := &model.StatusViewDataEntity{
		Expanded:         model.Bool(true),
		ContentShowing:   model.Bool(false),
		TranslationState: model.TranslationShowTranslation,
	}
	prefs := model.Preferences{AlwaysShowSensitiveMedia: true}

	got := Reconcile(1, prefs, status("1", false, "cw"), prior, true)
	if !got.Expanded {
		t.Error("stored expanded should win over preference")
	}
	if got.ShowingContent {
		t.Error("stored content showing should win over preference")
	}
	if got.Collapsed {
		t.Error("unset collapsed on a detailed status should default to false")
	}
	if got.TranslationState != model.TranslationShowTranslation {
		t.Errorf("translation state = %s", got.TranslationState)
	}
}

func TestTranslatedContent(t *testing.T) {
	v := Reconcile(1, model.Preferences{}, status("1", false, "cw"), nil, false)
	if v.Content() != "<p>hi</p>" || v.SpoilerText() != "cw" {
		t.Fatalf("original content = %q / %q", v.Content(), v.SpoilerText())
	}

	tr := &model.Translation{Content: "<p>hallo</p>", SpoilerText: "iw"}
	shown := v.WithTranslation(model.TranslationShowTranslation, tr)
	if shown.Content() != "<p>hallo</p>" || shown.SpoilerText() != "iw" {
		t.Fatalf("translated content = %q / %q", shown.Content(), shown.SpoilerText())
	}
	if v.Content() != "<p>hi</p>" {
		t.Fatal("WithTranslation must not modify the receiver")
	}

	original := shown.WithTranslation(model.TranslationShowOriginal, nil)
	if original.Content() != "<p>hi</p>" {
		t.Fatal("undo should show the original content")
	}

	missing := v.WithTranslation(model.TranslationShowTranslation, nil)
	if missing.TranslationState != model.TranslationShowOriginal {
		t.Fatal("show translation without a translation should fall back to original")
	}
}

func TestIsCollapsible(t *testing.T) {
	short := "<p>" + strings.Repeat("a", CollapseThreshold) + "</p>"
	long := "<p>" + strings.Repeat("é", CollapseThreshold+1) + "</p>"
	markup := "<p>" + strings.Repeat(`<a href="https://example.com/very/long/link">x</a>`, 100) + "</p>"

	if IsCollapsible(short) {
		t.Error("content at threshold should not be collapsible")
	}
	if !IsCollapsible(long) {
		t.Error("content over threshold should be collapsible")
	}
	if IsCollapsible(markup) {
		t.Error("markup should not count towards the length")
	}
	if IsCollapsible("") {
		t.Error("empty content is never collapsible")
	}
}

func TestPlainText(t *testing.T) {
	got := PlainText("<p>one<br>two</p><p>three &amp; four</p>")
	want := "one\ntwo\n\nthree & four"
	if got != want {
		t.Fatalf("PlainText = %q, want %q", got, want)
	}
}

func TestRevealButton(t *testing.T) {
	plain := Reconcile(1, model.Preferences{}, status("1", false, ""), nil, false)
	hidden := Reconcile(1, model.Preferences{}, status("2", false, "cw"), nil, false)
	shown := hidden.WithExpanded(true)

	if plain.RevealButton() != RevealNoButton || hidden.RevealButton() != RevealReveal || shown.RevealButton() != RevealHide {
		t.Fatalf("per-item states = %v %v %v", plain.RevealButton(), hidden.RevealButton(), shown.RevealButton())
	}

	cases := []struct {
		items []StatusViewData
		want  RevealButtonState
	}{
		{nil, RevealNoButton},
		{[]StatusViewData{plain}, RevealNoButton},
		{[]StatusViewData{plain, shown}, RevealHide},
		{[]StatusViewData{shown, hidden, plain}, RevealReveal},
		{[]StatusViewData{hidden, shown}, RevealReveal},
	}
	for i, tc := range cases {
		if got := AggregateRevealButton(tc.items); got != tc.want {
			t.Errorf("case %d: got %v, want %v", i, got, tc.want)
		}
	}
}

func TestRevealButtonUsesReblogSpoiler(t *testing.T) {
	inner := status("inner", false, "cw")
	outer := model.Status{ID: "outer", Reblog: &inner}
	v := Reconcile(1, model.Preferences{}, outer, nil, false)
	if v.RevealButton() != RevealReveal {
		t.Fatalf("reblog of a status with a warning should need reveal, got %v", v.RevealButton())
	}
	if v.ActionableID() != "inner" {
		t.Fatalf("ActionableID = %s", v.ActionableID())
	}
}

func filtered(id string, action model.FilterAction, ctx ...model.FilterContext) model.Status {
	s := status(id, false, "")
	s.Filtered = []model.FilterResult{{Filter: model.Filter{ID: "f" + id, Title: "filter " + id, Context: ctx, FilterAction: action}}}
	return s
}

func TestFilterActionFor(t *testing.T) {
	hide := filtered("1", model.FilterActionHide, model.FilterContextThread)
	warn := filtered("2", model.FilterActionWarn, model.FilterContextThread)
	other := filtered("3", model.FilterActionHide, model.FilterContextHome)

	if got := FilterActionFor(&hide, model.FilterContextThread); got != model.FilterActionHide {
		t.Errorf("hide = %q", got)
	}
	if got := FilterActionFor(&warn, model.FilterContextThread); got != model.FilterActionWarn {
		t.Errorf("warn = %q", got)
	}
	if got := FilterActionFor(&other, model.FilterContextThread); got != model.FilterActionNone {
		t.Errorf("other context = %q", got)
	}

	both := warn
	both.Filtered = append(both.Filtered, hide.Filtered...)
	if got := FilterActionFor(&both, model.FilterContextThread); got != model.FilterActionHide {
		t.Errorf("hide should win over warn, got %q", got)
	}
}

func TestApplyFiltersKeepsDetailed(t *testing.T) {
	prefs := model.Preferences{}
	items := []StatusViewData{
		Reconcile(1, prefs, filtered("1", model.FilterActionHide, model.FilterContextThread), nil, false),
		Reconcile(1, prefs, filtered("2", model.FilterActionHide, model.FilterContextThread), nil, true),
		Reconcile(1, prefs, filtered("3", model.FilterActionWarn, model.FilterContextThread), nil, false),
	}
	got := ApplyFilters(items, model.FilterContextThread)
	if len(got) != 2 || got[0].ID() != "2" || got[1].ID() != "3" {
		t.Fatalf("ApplyFilters kept %v", ids(got))
	}
	if got[1].FilterAction != model.FilterActionWarn {
		t.Fatalf("warn action not recorded")
	}

	if d := DisplayOf(got[0], model.FilterContextThread); d.Kind() != KindDetailed {
		t.Errorf("detailed display = %s", d.Kind())
	}
	d := DisplayOf(got[1], model.FilterContextThread)
	f, ok := d.(Filtered)
	if !ok || len(f.Titles) != 1 || f.Titles[0] != "filter 3" {
		t.Errorf("filtered display = %#v", d)
	}
	if d := DisplayOf(Reconcile(1, prefs, status("9", false, ""), nil, false), model.FilterContextThread); d.Kind() != KindNormal {
		t.Errorf("normal display = %s", d.Kind())
	}
}

func TestConversationFrom(t *testing.T) {
	s := status("s1", true, "cw")
	rec := &model.ConversationRecord{
		AccountID:  1,
		ID:         "c1",
		SortOrder:  4,
		Unread:     true,
		LastStatus: model.SnapshotOf(&s),
		ViewData: model.StatusViewDataEntity{
			ServerID:         "s1",
			ContentShowing:   model.Bool(true),
			TranslationState: model.TranslationShowTranslation,
		},
	}

	c := ConversationFrom(model.Preferences{}, rec, &model.Translation{Content: "<p>tr</p>"})
	if c.ID != "c1" || c.Order != 4 || !c.Unread {
		t.Fatalf("unexpected conversation %+v", c)
	}
	if !c.LastStatus.ShowingContent {
		t.Error("stored content showing should win over sensitive default")
	}
	if c.LastStatus.Expanded || !c.LastStatus.Collapsed {
		t.Error("unset fields should use defaults")
	}
	if c.LastStatus.Content() != "<p>tr</p>" {
		t.Errorf("Content = %q, want translation", c.LastStatus.Content())
	}

	noTr := ConversationFrom(model.Preferences{}, rec, nil)
	if noTr.LastStatus.TranslationState != model.TranslationShowOriginal {
		t.Error("missing cached translation should show the original")
	}
}

func TestEntityRoundTrip(t *testing.T) {
	v := Reconcile(1, model.Preferences{}, status("1", false, ""), nil, false).WithExpanded(true).WithCollapsed(false)
	e := v.Entity()
	again := Reconcile(1, model.Preferences{}, status("1", true, ""), &e, false)
	if !again.Expanded || again.Collapsed || !again.ShowingContent {
		t.Fatalf("overlay not preserved across refetch: %+v", again)
	}
}

func ids(items []StatusViewData) []string {
	out := make([]string, len(items))
	for i, v := range items {
		out[i] = v.ID()
	}
	return out
}
