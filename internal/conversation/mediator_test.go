package conversation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sudooom.fedi.sync/internal/api"
	"sudooom.fedi.sync/internal/model"
	"sudooom.fedi.sync/internal/paging"
)

func newMediator(client *fakeClient, prefs model.Preferences) (*RemoteMediator, *fakeClient) {
	store, account := newStore(prefs)
	return NewRemoteMediator(account, client, store, nil), client
}

func TestMediator_RefreshWithoutNextLink(t *testing.T) {
	client := newFakeClient(page{conversations: convs("1", "2")})
	store, account := newStore(model.Preferences{})
	m := NewRemoteMediator(account, client, store, nil)

	result := m.Load(context.Background(), paging.Refresh, 20)

	require.NoError(t, result.Err)
	assert.True(t, result.EndOfPaginationReached)

	got := rows(store)
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].ID)
	assert.Equal(t, 0, got[0].SortOrder)
	assert.Equal(t, "2", got[1].ID)
	assert.Equal(t, 1, got[1].SortOrder)

	assert.Equal(t, []fetchCall{{maxID: "", limit: 20}}, client.calls())
}

func TestMediator_DropsConversationWithoutLastStatus(t *testing.T) {
	empty := model.Conversation{ID: "9", Accounts: []model.TimelineAccount{{ID: "peer"}}}
	client := newFakeClient(page{conversations: []model.Conversation{empty}})
	store, account := newStore(model.Preferences{})
	m := NewRemoteMediator(account, client, store, nil)

	result := m.Load(context.Background(), paging.Refresh, 20)

	require.NoError(t, result.Err)
	assert.Empty(t, rows(store))
}

func TestMediator_AppendContinuesFromCursor(t *testing.T) {
	client := newFakeClient(
		page{conversations: convs("1", "2"), next: "100"},
		page{conversations: convs("3", "4"), next: "50"},
	)
	store, account := newStore(model.Preferences{})
	m := NewRemoteMediator(account, client, store, nil)

	require.NoError(t, m.Load(context.Background(), paging.Refresh, 2).Err)
	next, counter := m.Cursor()
	assert.Equal(t, "100", next)
	assert.Equal(t, 2, counter)

	result := m.Load(context.Background(), paging.Append, 2)
	require.NoError(t, result.Err)
	assert.False(t, result.EndOfPaginationReached)

	calls := client.calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "100", calls[1].maxID)

	got := rows(store)
	require.Len(t, got, 4)
	for i, rec := range got {
		assert.Equal(t, i, rec.SortOrder)
	}
	assert.Equal(t, "3", got[2].ID)
	assert.Equal(t, "4", got[3].ID)
}

func TestMediator_OrderIsMonotonicAcrossAppends(t *testing.T) {
	client := newFakeClient(
		page{conversations: convs("a", "b"), next: "p1"},
		page{conversations: convs("c", "d", "e"), next: "p2"},
		page{conversations: convs("f"), next: "p3"},
		page{conversations: convs("g", "h")},
	)
	store, account := newStore(model.Preferences{})
	m := NewRemoteMediator(account, client, store, nil)

	require.NoError(t, m.Load(context.Background(), paging.Refresh, 3).Err)
	for i := 0; i < 3; i++ {
		require.NoError(t, m.Load(context.Background(), paging.Append, 3).Err)
	}

	got := rows(store)
	ids := make([]string, 0, len(got))
	for i, rec := range got {
		ids = append(ids, rec.ID)
		if i > 0 {
			assert.Greater(t, rec.SortOrder, got[i-1].SortOrder)
		}
	}
	assert.Equal(t, []string{"a", "b", "c", "d", "e", "f", "g", "h"}, ids)
}

func TestMediator_AppendAfterEndIsNoop(t *testing.T) {
	client := newFakeClient(page{conversations: convs("1")})
	store, account := newStore(model.Preferences{})
	m := NewRemoteMediator(account, client, store, nil)

	require.True(t, m.Load(context.Background(), paging.Refresh, 20).EndOfPaginationReached)

	result := m.Load(context.Background(), paging.Append, 20)
	require.NoError(t, result.Err)
	assert.True(t, result.EndOfPaginationReached)
	assert.Len(t, client.calls(), 1, "append after end must not hit the network")

	client.push(page{conversations: convs("1", "2"), next: "7"})
	result = m.Load(context.Background(), paging.Refresh, 20)
	require.NoError(t, result.Err)
	assert.False(t, result.EndOfPaginationReached)
	assert.Len(t, rows(store), 2)
}

func TestMediator_AppendBeforeRefreshStartsOver(t *testing.T) {
	store, account := newStore(model.Preferences{})
	ctx := context.Background()

	before := NewRemoteMediator(account, newFakeClient(page{conversations: convs("a", "b", "c"), next: "c"}), store, nil)
	require.NoError(t, before.Load(ctx, paging.Refresh, 3).Err)

	// 进程重启后新的 mediator 没有游标
	client := newFakeClient(page{conversations: convs("x", "y"), next: "y"})
	m := NewRemoteMediator(account, client, store, nil)
	result := m.Load(ctx, paging.Append, 2)
	require.NoError(t, result.Err)
	assert.False(t, result.EndOfPaginationReached)
	assert.Equal(t, []fetchCall{{maxID: "", limit: 2}}, client.calls())

	got := rows(store)
	ids := make([]string, 0, len(got))
	for i, rec := range got {
		ids = append(ids, rec.ID)
		assert.Equal(t, i, rec.SortOrder)
	}
	assert.Equal(t, []string{"x", "y"}, ids)

	next, counter := m.Cursor()
	assert.Equal(t, "y", next)
	assert.Equal(t, 2, counter)

	client.push(page{conversations: convs("z")})
	require.NoError(t, m.Load(ctx, paging.Append, 2).Err)
	assert.Equal(t, "y", client.calls()[1].maxID)
	assert.Len(t, rows(store), 3)
}

func TestMediator_PrependIsAlwaysEnd(t *testing.T) {
	client := newFakeClient()
	m, _ := newMediator(client, model.Preferences{})

	result := m.Load(context.Background(), paging.Prepend, 20)
	require.NoError(t, result.Err)
	assert.True(t, result.EndOfPaginationReached)
	assert.Empty(t, client.calls())
}

func TestMediator_FailedAppendLeavesStateUnchanged(t *testing.T) {
	netErr := &api.Error{Kind: api.KindNetwork, Err: errors.New("connection reset")}
	client := newFakeClient(
		page{conversations: convs("1", "2"), next: "100"},
		page{err: netErr},
		page{conversations: convs("3"), next: "40"},
	)
	store, account := newStore(model.Preferences{})
	m := NewRemoteMediator(account, client, store, nil)

	require.NoError(t, m.Load(context.Background(), paging.Refresh, 2).Err)
	before := rows(store)

	result := m.Load(context.Background(), paging.Append, 2)
	require.Error(t, result.Err)
	var apiErr *api.Error
	require.ErrorAs(t, result.Err, &apiErr)
	assert.Equal(t, api.KindNetwork, apiErr.Kind)

	next, counter := m.Cursor()
	assert.Equal(t, "100", next)
	assert.Equal(t, 2, counter)
	assert.Equal(t, before, rows(store))

	require.NoError(t, m.Load(context.Background(), paging.Append, 2).Err)
	calls := client.calls()
	assert.Equal(t, "100", calls[1].maxID)
	assert.Equal(t, "100", calls[2].maxID)

	got := rows(store)
	require.Len(t, got, 3)
	assert.Equal(t, "3", got[2].ID)
	assert.Equal(t, 2, got[2].SortOrder)
}

func TestMediator_CancelledContextDoesNotCommit(t *testing.T) {
	c := conv("1")
	c.LastStatus.InReplyToID = strPtr("parent")
	c.LastStatus.InReplyToAccountID = strPtr("other")
	client := newFakeClient(page{conversations: []model.Conversation{c}, next: "100"})
	store, account := newStore(model.Preferences{})
	m := NewRemoteMediator(account, client, store, nil)

	// 网络请求返回之后、提交之前取消
	ctx, cancel := context.WithCancel(context.Background())
	client.parentFn = func([]string) error {
		cancel()
		return nil
	}

	result := m.Load(ctx, paging.Refresh, 20)
	require.ErrorIs(t, result.Err, context.Canceled)
	assert.Empty(t, rows(store))

	next, counter := m.Cursor()
	assert.Empty(t, next)
	assert.Zero(t, counter)
}

func TestMediator_AlreadyCancelledContextSkipsFetch(t *testing.T) {
	client := newFakeClient(page{conversations: convs("1")})
	m, _ := newMediator(client, model.Preferences{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := m.Load(ctx, paging.Refresh, 20)
	require.ErrorIs(t, result.Err, context.Canceled)
	assert.Empty(t, client.calls())
}

func TestMediator_RefetchIsIdempotent(t *testing.T) {
	client := newFakeClient(
		page{conversations: convs("1", "2")},
		page{conversations: convs("1", "2")},
	)
	store, account := newStore(model.Preferences{})
	m := NewRemoteMediator(account, client, store, nil)

	require.NoError(t, m.Load(context.Background(), paging.Refresh, 20).Err)
	first := rows(store)
	require.NoError(t, m.Load(context.Background(), paging.Refresh, 20).Err)

	assert.Equal(t, first, rows(store))
}

func TestMediator_RefreshPreservesOverlay(t *testing.T) {
	sensitive := conv("1")
	sensitive.LastStatus.Sensitive = true
	client := newFakeClient(
		page{conversations: []model.Conversation{sensitive}},
		page{conversations: []model.Conversation{sensitive}},
	)
	store, account := newStore(model.Preferences{})
	m := NewRemoteMediator(account, client, store, nil)
	ctx := context.Background()

	require.NoError(t, m.Load(ctx, paging.Refresh, 20).Err)
	got := rows(store)
	require.Len(t, got, 1)
	assert.False(t, *got[0].ViewData.Expanded)
	assert.False(t, *got[0].ViewData.ContentShowing)

	require.NoError(t, store.SetExpanded(ctx, testAccount, "s1", true))
	require.NoError(t, m.Load(ctx, paging.Refresh, 20).Err)

	got = rows(store)
	require.Len(t, got, 1)
	assert.True(t, *got[0].ViewData.Expanded)
	assert.False(t, *got[0].ViewData.ContentShowing)
}

func TestMediator_OverlayDefaultsFollowPreferences(t *testing.T) {
	sensitive := conv("1")
	sensitive.LastStatus.Sensitive = true
	client := newFakeClient(page{conversations: []model.Conversation{sensitive, conv("2")}})
	store, account := newStore(model.Preferences{AlwaysOpenSpoiler: true})
	m := NewRemoteMediator(account, client, store, nil)

	require.NoError(t, m.Load(context.Background(), paging.Refresh, 20).Err)
	got := rows(store)
	require.Len(t, got, 2)

	assert.True(t, *got[0].ViewData.Expanded)
	assert.False(t, *got[0].ViewData.ContentShowing)
	assert.True(t, *got[0].ViewData.ContentCollapsed)
	assert.True(t, *got[1].ViewData.ContentShowing)
	assert.Equal(t, model.TranslationShowOriginal, got[1].ViewData.TranslationState)
}

func TestMediator_ContentShowingOnlyTouchesOneItem(t *testing.T) {
	a, b := conv("1"), conv("2")
	a.LastStatus.Sensitive = true
	b.LastStatus.Sensitive = true
	client := newFakeClient(page{conversations: []model.Conversation{a, b}})
	store, account := newStore(model.Preferences{})
	m := NewRemoteMediator(account, client, store, nil)
	ctx := context.Background()

	require.NoError(t, m.Load(ctx, paging.Refresh, 20).Err)
	require.NoError(t, store.SetContentShowing(ctx, testAccount, "s1", true))

	got := rows(store)
	require.Len(t, got, 2)
	assert.True(t, *got[0].ViewData.ContentShowing)
	assert.True(t, got[0].LastStatus.Sensitive)
	assert.False(t, *got[1].ViewData.ContentShowing)
}

func TestConversationStarters(t *testing.T) {
	reply := func(id, author, parent, parentAuthor string) model.Conversation {
		c := conv(id)
		c.LastStatus.Account.ID = author
		c.LastStatus.InReplyToID = strPtr(parent)
		c.LastStatus.InReplyToAccountID = strPtr(parentAuthor)
		return c
	}

	client := newFakeClient()
	client.parents["p-public"] = model.Status{ID: "p-public", Visibility: model.VisibilityPublic}
	client.parents["p-direct"] = model.Status{ID: "p-direct", Visibility: model.VisibilityDirect}
	m, _ := newMediator(client, model.Preferences{})

	got := m.conversationStarters(context.Background(), []model.Conversation{
		conv("root"),
		reply("self", "me", "p-self", "me"),
		reply("public", "me", "p-public", "other"),
		reply("direct", "me", "p-direct", "other"),
	})

	assert.True(t, got["sroot"], "no parent")
	assert.True(t, got["sself"], "reply to own status")
	assert.True(t, got["spublic"], "parent not direct")
	assert.False(t, got["sdirect"], "parent is direct")
}

func TestConversationStarters_SharedParent(t *testing.T) {
	a, b := conv("1"), conv("2")
	for _, c := range []model.Conversation{a, b} {
		c.LastStatus.InReplyToID = strPtr("p")
		c.LastStatus.InReplyToAccountID = strPtr("other")
	}
	client := newFakeClient()
	client.parents["p"] = model.Status{ID: "p", Visibility: model.VisibilityPublic}
	m, _ := newMediator(client, model.Preferences{})

	got := m.conversationStarters(context.Background(), []model.Conversation{a, b})
	assert.True(t, got["s1"])
	assert.True(t, got["s2"])
}

func TestConversationStarters_LookupFailure(t *testing.T) {
	c := conv("1")
	c.LastStatus.InReplyToID = strPtr("p")
	c.LastStatus.InReplyToAccountID = strPtr("other")

	client := newFakeClient(page{conversations: []model.Conversation{c, conv("2")}})
	client.parentFn = func([]string) error {
		return &api.Error{Kind: api.KindHTTP, StatusCode: 500}
	}
	store, account := newStore(model.Preferences{})
	m := NewRemoteMediator(account, client, store, nil)

	require.NoError(t, m.Load(context.Background(), paging.Refresh, 20).Err)

	got := rows(store)
	require.Len(t, got, 2)
	assert.False(t, got[0].IsConversationStarter)
	assert.True(t, got[1].IsConversationStarter)
}

func strPtr(s string) *string {
	return &s
}
