package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sudooom.fedi.sync/internal/api"
	"sudooom.fedi.sync/internal/cache"
	"sudooom.fedi.sync/internal/events"
	"sudooom.fedi.sync/internal/model"
	apperrors "sudooom.fedi.sync/pkg/errors"
)

type fakeAPI struct {
	err            error
	translateCalls int
	lastChoices    []int
}

func (f *fakeAPI) status(id string) (*api.Response[model.Status], error) {
	if f.err != nil {
		return nil, f.err
	}
	return &api.Response[model.Status]{Body: model.Status{ID: id}}, nil
}

func (f *fakeAPI) Favourite(_ context.Context, id string, _ bool) (*api.Response[model.Status], error) {
	return f.status(id)
}
func (f *fakeAPI) Bookmark(_ context.Context, id string, _ bool) (*api.Response[model.Status], error) {
	return f.status(id)
}
func (f *fakeAPI) Reblog(_ context.Context, id string, _ bool) (*api.Response[model.Status], error) {
	return f.status(id)
}
func (f *fakeAPI) MuteConversation(_ context.Context, id string, _ bool) (*api.Response[model.Status], error) {
	return f.status(id)
}
func (f *fakeAPI) VoteInPoll(_ context.Context, pollID string, choices []int) (*api.Response[model.Poll], error) {
	if f.err != nil {
		return nil, f.err
	}
	f.lastChoices = choices
	return &api.Response[model.Poll]{Body: model.Poll{ID: pollID, Voted: true, OwnVotes: choices}}, nil
}
func (f *fakeAPI) Translate(_ context.Context, id, lang string) (*api.Response[model.Translation], error) {
	f.translateCalls++
	if f.err != nil {
		return nil, f.err
	}
	return &api.Response[model.Translation]{Body: model.Translation{Content: "translated " + id, DetectedSourceLanguage: "de"}}, nil
}

type recordingStore struct {
	mu     sync.Mutex
	states []model.TranslationState
	err    error
}

func (s *recordingStore) SetTranslationState(_ context.Context, _ model.AccountID, _ string, state model.TranslationState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.states = append(s.states, state)
	return nil
}

func setup() (*TimelineCases, *recordingStore, <-chan events.Event, func()) {
	hub := events.NewHub(nil)
	ch, cancel := hub.Subscribe(8)
	store := &recordingStore{}
	tc := NewTimelineCases(hub, store, cache.NewMemoryTranslationCache(0), "en")
	return tc, store, ch, cancel
}

func TestTimelineCases_FavouriteDispatchesEvent(t *testing.T) {
	tc, _, ch, cancel := setup()
	defer cancel()

	status, err := tc.Favourite(context.Background(), 1, &fakeAPI{}, "s1", true)
	require.NoError(t, err)
	assert.Equal(t, "s1", status.ID)

	e := <-ch
	fe, ok := e.(events.FavouriteEvent)
	require.True(t, ok)
	assert.Equal(t, model.AccountID(1), fe.AccountID)
	assert.True(t, fe.Favourited)
}

func TestTimelineCases_FailureDispatchesNothing(t *testing.T) {
	tc, _, ch, cancel := setup()
	defer cancel()

	client := &fakeAPI{err: &api.Error{Kind: api.KindNetwork, Err: errors.New("offline")}}
	_, err := tc.Bookmark(context.Background(), 1, client, "s1", true)
	require.Error(t, err)
	_, err = tc.MuteConversation(context.Background(), 1, client, "s1", true)
	require.Error(t, err)

	select {
	case e := <-ch:
		t.Fatalf("unexpected event %#v", e)
	default:
	}
}

func TestTimelineCases_VoteInPoll(t *testing.T) {
	tc, _, ch, cancel := setup()
	defer cancel()

	client := &fakeAPI{}
	poll, err := tc.VoteInPoll(context.Background(), 1, client, "s1", "p1", []int{0, 2})
	require.NoError(t, err)
	assert.True(t, poll.Voted)
	assert.Equal(t, []int{0, 2}, client.lastChoices)

	e := (<-ch).(events.PollVoteEvent)
	assert.Equal(t, "s1", e.StatusID)
	assert.Equal(t, "p1", e.Poll.ID)

	_, err = tc.VoteInPoll(context.Background(), 1, client, "s1", "p1", nil)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidParams))
}

func TestTimelineCases_TranslateSuccess(t *testing.T) {
	tc, store, _, cancel := setup()
	defer cancel()

	client := &fakeAPI{}
	tr, err := tc.Translate(context.Background(), 1, client, "s1")
	require.NoError(t, err)
	assert.Equal(t, "translated s1", tr.Content)
	assert.Equal(t, []model.TranslationState{model.TranslationTranslating, model.TranslationShowTranslation}, store.states)

	cached, err := tc.Translation(context.Background(), 1, "s1")
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, "translated s1", cached.Content)

	// 第二次命中缓存
	_, err = tc.Translate(context.Background(), 1, client, "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, client.translateCalls)
}

func TestTimelineCases_TranslateFailureResetsState(t *testing.T) {
	tc, store, _, cancel := setup()
	defer cancel()

	_, err := tc.Translate(context.Background(), 1, &fakeAPI{err: &api.Error{Kind: api.KindHTTP, StatusCode: 503}}, "s1")
	require.Error(t, err)
	assert.Equal(t, []model.TranslationState{model.TranslationTranslating, model.TranslationShowOriginal}, store.states)

	cached, _ := tc.Translation(context.Background(), 1, "s1")
	assert.Nil(t, cached)
}

func TestTimelineCases_TranslateUndo(t *testing.T) {
	tc, store, _, cancel := setup()
	defer cancel()

	require.NoError(t, tc.TranslateUndo(context.Background(), 1, "s1"))
	assert.Equal(t, []model.TranslationState{model.TranslationShowOriginal}, store.states)
}

func TestTimelineCases_TranslateStoreFailure(t *testing.T) {
	tc, store, _, cancel := setup()
	defer cancel()
	store.err = errors.New("disk full")

	client := &fakeAPI{}
	_, err := tc.Translate(context.Background(), 1, client, "s1")
	require.Error(t, err)
	assert.Equal(t, 0, client.translateCalls)
}
