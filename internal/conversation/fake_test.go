package conversation

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"sudooom.fedi.sync/internal/api"
	"sudooom.fedi.sync/internal/model"
	"sudooom.fedi.sync/internal/repository"
)

const testAccount model.AccountID = 1

// page 一次会话列表响应
type page struct {
	conversations []model.Conversation
	next          string // 空表示没有 next 链接
	err           error
}

type fetchCall struct {
	maxID string
	limit int
}

// fakeClient 按顺序返回预设的响应
type fakeClient struct {
	mu       sync.Mutex
	pages    []page
	fetches  []fetchCall
	parents  map[string]model.Status
	parentFn func(ids []string) error

	deleted   []string
	read      []string
	actionErr error
	favs      map[string]bool
}

func newFakeClient(pages ...page) *fakeClient {
	return &fakeClient{pages: pages, parents: map[string]model.Status{}, favs: map[string]bool{}}
}

func (f *fakeClient) push(p page) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages = append(f.pages, p)
}

func (f *fakeClient) calls() []fetchCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fetchCall(nil), f.fetches...)
}

func (f *fakeClient) GetConversations(ctx context.Context, maxID string, limit int) (*api.Response[[]model.Conversation], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches = append(f.fetches, fetchCall{maxID: maxID, limit: limit})
	if len(f.pages) == 0 {
		return nil, &api.Error{Kind: api.KindNetwork, Err: errors.New("no more pages scripted")}
	}
	p := f.pages[0]
	f.pages = f.pages[1:]
	if p.err != nil {
		return nil, p.err
	}
	header := http.Header{}
	if p.next != "" {
		header.Set("Link", `<https://example.com/api/v1/conversations?max_id=`+p.next+`>; rel="next"`)
	}
	return &api.Response[[]model.Conversation]{Body: p.conversations, Header: header, StatusCode: http.StatusOK}, nil
}

func (f *fakeClient) Statuses(ctx context.Context, ids []string) (*api.Response[[]model.Status], error) {
	if f.parentFn != nil {
		if err := f.parentFn(ids); err != nil {
			return nil, err
		}
	}
	var out []model.Status
	for _, id := range ids {
		if s, ok := f.parents[id]; ok {
			out = append(out, s)
		}
	}
	return &api.Response[[]model.Status]{Body: out}, nil
}

func (f *fakeClient) Status(ctx context.Context, id string) (*api.Response[model.Status], error) {
	return f.statusResp(id)
}

func (f *fakeClient) StatusContext(ctx context.Context, id string) (*api.Response[model.StatusContext], error) {
	return &api.Response[model.StatusContext]{}, nil
}

func (f *fakeClient) DeleteConversation(ctx context.Context, id string) (*api.Response[struct{}], error) {
	if f.actionErr != nil {
		return nil, f.actionErr
	}
	f.deleted = append(f.deleted, id)
	return &api.Response[struct{}]{}, nil
}

func (f *fakeClient) MarkConversationRead(ctx context.Context, id string) (*api.Response[model.Conversation], error) {
	if f.actionErr != nil {
		return nil, f.actionErr
	}
	f.read = append(f.read, id)
	return &api.Response[model.Conversation]{Body: model.Conversation{ID: id}}, nil
}

func (f *fakeClient) statusResp(id string) (*api.Response[model.Status], error) {
	if f.actionErr != nil {
		return nil, f.actionErr
	}
	return &api.Response[model.Status]{Body: model.Status{ID: id}}, nil
}

func (f *fakeClient) Favourite(ctx context.Context, id string, v bool) (*api.Response[model.Status], error) {
	f.favs[id] = v
	return f.statusResp(id)
}
func (f *fakeClient) Bookmark(ctx context.Context, id string, v bool) (*api.Response[model.Status], error) {
	return f.statusResp(id)
}
func (f *fakeClient) Reblog(ctx context.Context, id string, v bool) (*api.Response[model.Status], error) {
	return f.statusResp(id)
}
func (f *fakeClient) MuteConversation(ctx context.Context, id string, v bool) (*api.Response[model.Status], error) {
	return f.statusResp(id)
}
func (f *fakeClient) VoteInPoll(ctx context.Context, pollID string, choices []int) (*api.Response[model.Poll], error) {
	if f.actionErr != nil {
		return nil, f.actionErr
	}
	return &api.Response[model.Poll]{Body: model.Poll{ID: pollID, Voted: true, OwnVotes: choices}}, nil
}
func (f *fakeClient) Translate(ctx context.Context, id, lang string) (*api.Response[model.Translation], error) {
	if f.actionErr != nil {
		return nil, f.actionErr
	}
	return &api.Response[model.Translation]{Body: model.Translation{Content: "<p>translated</p>"}}, nil
}

// conv 构建一个最后状态为 "s"+id 的会话
func conv(id string) model.Conversation {
	return model.Conversation{
		ID:       id,
		Accounts: []model.TimelineAccount{{ID: "peer", Username: "peer"}},
		LastStatus: &model.Status{
			ID:         "s" + id,
			Account:    model.TimelineAccount{ID: "author"},
			Content:    "<p>hello " + id + "</p>",
			Visibility: model.VisibilityDirect,
		},
	}
}

func convs(ids ...string) []model.Conversation {
	out := make([]model.Conversation, len(ids))
	for i, id := range ids {
		out[i] = conv(id)
	}
	return out
}

func newStore(prefs model.Preferences) (*repository.MemoryStore, *model.Account) {
	store := repository.NewMemoryStore(nil)
	account := &model.Account{
		ID:                       testAccount,
		Domain:                   "example.com",
		Username:                 "me",
		AccessToken:              "token",
		AlwaysShowSensitiveMedia: prefs.AlwaysShowSensitiveMedia,
		AlwaysOpenSpoiler:        prefs.AlwaysOpenSpoiler,
	}
	_ = store.UpsertAccount(context.Background(), account)
	return store, account
}

func rows(store repository.Store) []model.ConversationRecord {
	out, _ := store.Conversations(context.Background(), testAccount, 0, 1000)
	return out
}
