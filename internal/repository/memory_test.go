package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"sudooom.fedi.sync/internal/model"
)

const testAccount = model.AccountID(1)

func newTestStore(t *testing.T) *MemoryStore {
	t.Helper()
	store := NewMemoryStore(nil)
	err := store.UpsertAccount(context.Background(), &model.Account{
		ID:          testAccount,
		Domain:      "example.social",
		Username:    "alice",
		AccessToken: "token",
	})
	if err != nil {
		t.Fatalf("UpsertAccount failed: %v", err)
	}
	return store
}

func record(id string, order int, defaults model.StatusViewDataEntity) model.ConversationRecord {
	return model.ConversationRecord{
		AccountID: testAccount,
		ID:        id,
		SortOrder: order,
		Unread:    true,
		LastStatus: model.StatusSnapshot{
			ID:      "s" + id,
			Content: "<p>hello " + id + "</p>",
		},
		ViewData: defaults,
	}
}

func defaults() model.StatusViewDataEntity {
	return model.StatusViewDataEntity{
		Expanded:         model.Bool(false),
		ContentShowing:   model.Bool(true),
		ContentCollapsed: model.Bool(true),
		TranslationState: model.TranslationShowOriginal,
	}
}

func upsert(t *testing.T, store Store, records ...model.ConversationRecord) {
	t.Helper()
	err := store.RunInTx(context.Background(), func(tx Tx) error {
		return tx.UpsertConversations(context.Background(), records)
	})
	if err != nil {
		t.Fatalf("UpsertConversations failed: %v", err)
	}
}

func TestMemoryStore_UpsertIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	upsert(t, store, record("1", 0, defaults()))
	upsert(t, store, record("1", 0, defaults()))

	n, err := store.CountConversations(ctx, testAccount)
	if err != nil {
		t.Fatalf("CountConversations failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("Expected 1 row, got %d", n)
	}

	rec, err := store.Conversation(ctx, testAccount, "1")
	if err != nil {
		t.Fatalf("Conversation failed: %v", err)
	}
	if rec.ViewData.Expanded == nil || *rec.ViewData.Expanded {
		t.Errorf("Expected expanded=false, got %v", rec.ViewData.Expanded)
	}
}

func TestMemoryStore_OverlaySurvivesRefetch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	upsert(t, store, record("1", 0, defaults()))
	if err := store.SetExpanded(ctx, testAccount, "s1", true); err != nil {
		t.Fatalf("SetExpanded failed: %v", err)
	}

	// 重新拉取并整体刷新
	err := store.RunInTx(ctx, func(tx Tx) error {
		if err := tx.DeleteConversationsForAccount(ctx, testAccount); err != nil {
			return err
		}
		return tx.UpsertConversations(ctx, []model.ConversationRecord{record("1", 0, defaults())})
	})
	if err != nil {
		t.Fatalf("RunInTx failed: %v", err)
	}

	rec, err := store.Conversation(ctx, testAccount, "1")
	if err != nil {
		t.Fatalf("Conversation failed: %v", err)
	}
	if rec.ViewData.Expanded == nil || !*rec.ViewData.Expanded {
		t.Errorf("Expected expanded=true to survive refetch, got %v", rec.ViewData.Expanded)
	}
	if rec.ViewData.ContentShowing == nil || !*rec.ViewData.ContentShowing {
		t.Errorf("Expected default content showing to be filled")
	}
}

func TestMemoryStore_OverlaySetterIsolated(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sensitive := record("1", 0, defaults())
	sensitive.LastStatus.Sensitive = true
	upsert(t, store, sensitive, record("2", 1, defaults()))

	if err := store.SetContentShowing(ctx, testAccount, "s1", false); err != nil {
		t.Fatalf("SetContentShowing failed: %v", err)
	}

	rows, err := store.Conversations(ctx, testAccount, 0, 10)
	if err != nil {
		t.Fatalf("Conversations failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}
	if *rows[0].ViewData.ContentShowing {
		t.Error("Expected content showing=false for first row")
	}
	if !rows[0].LastStatus.Sensitive {
		t.Error("Sensitive flag must not change")
	}
	if !*rows[1].ViewData.ContentShowing {
		t.Error("Second row overlay must not change")
	}
}

func TestMemoryStore_PagedReadOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	upsert(t, store, record("c", 2, defaults()), record("a", 0, defaults()), record("b", 1, defaults()))

	tests := []struct {
		offset, limit int
		expected      []string
	}{
		{0, 2, []string{"a", "b"}},
		{1, 2, []string{"b", "c"}},
		{2, 5, []string{"c"}},
		{3, 5, nil},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("offset=%d,limit=%d", tt.offset, tt.limit), func(t *testing.T) {
			rows, err := store.Conversations(ctx, testAccount, tt.offset, tt.limit)
			if err != nil {
				t.Fatalf("Conversations failed: %v", err)
			}
			if len(rows) != len(tt.expected) {
				t.Fatalf("Expected %d rows, got %d", len(tt.expected), len(rows))
			}
			for i, id := range tt.expected {
				if rows[i].ID != id {
					t.Errorf("Row %d: expected %s, got %s", i, id, rows[i].ID)
				}
			}
		})
	}
}

func TestMemoryStore_ConversationPageConsistent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	upsert(t, store, record("a", 0, defaults()), record("b", 1, defaults()))

	var (
		wg   sync.WaitGroup
		stop atomic.Bool
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		// 在两行与四行之间来回切换
		for i := 0; !stop.Load(); i++ {
			err := store.RunInTx(ctx, func(tx Tx) error {
				if err := tx.DeleteConversationsForAccount(ctx, testAccount); err != nil {
					return err
				}
				records := []model.ConversationRecord{record("a", 0, defaults()), record("b", 1, defaults())}
				if i%2 == 0 {
					records = append(records, record("c", 2, defaults()), record("d", 3, defaults()))
				}
				return tx.UpsertConversations(ctx, records)
			})
			if err != nil {
				t.Errorf("RunInTx failed: %v", err)
				return
			}
		}
	}()

	for i := 0; i < 500; i++ {
		rows, total, err := store.ConversationPage(ctx, testAccount, 1, 10)
		if err != nil {
			t.Fatalf("ConversationPage failed: %v", err)
		}
		if len(rows) != total-1 {
			t.Fatalf("Rows %d do not match total %d", len(rows), total)
		}
	}
	stop.Store(true)
	wg.Wait()
}

func TestMemoryStore_FailedTxRollsBack(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	upsert(t, store, record("1", 0, defaults()))

	boom := errors.New("boom")
	err := store.RunInTx(ctx, func(tx Tx) error {
		if err := tx.DeleteConversationsForAccount(ctx, testAccount); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Expected boom, got %v", err)
	}

	n, _ := store.CountConversations(ctx, testAccount)
	if n != 1 {
		t.Errorf("Expected rollback to keep 1 row, got %d", n)
	}
}

func TestMemoryStore_UnknownAccount(t *testing.T) {
	store := newTestStore(t)
	rec := record("1", 0, defaults())
	rec.AccountID = 99

	err := store.RunInTx(context.Background(), func(tx Tx) error {
		return tx.UpsertConversations(context.Background(), []model.ConversationRecord{rec})
	})
	if !errors.Is(err, ErrAccountNotFound) {
		t.Errorf("Expected ErrAccountNotFound, got %v", err)
	}
}

func TestMemoryStore_DeleteAccountCascades(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	upsert(t, store, record("1", 0, defaults()))
	if err := store.DeleteAccount(ctx, testAccount); err != nil {
		t.Fatalf("DeleteAccount failed: %v", err)
	}

	if n, _ := store.CountConversations(ctx, testAccount); n != 0 {
		t.Errorf("Expected 0 rows after cascade, got %d", n)
	}
	vd, _ := store.StatusViewData(ctx, testAccount, []string{"s1"})
	if len(vd) != 0 {
		t.Errorf("Expected overlay rows removed, got %d", len(vd))
	}
	if _, err := store.Account(ctx, testAccount); !errors.Is(err, ErrAccountNotFound) {
		t.Errorf("Expected ErrAccountNotFound, got %v", err)
	}
}

func TestMemoryStore_StatusSetters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	upsert(t, store, record("1", 0, defaults()))

	if err := store.SetFavourited(ctx, testAccount, "s1", true); err != nil {
		t.Fatalf("SetFavourited failed: %v", err)
	}
	if err := store.SetBookmarked(ctx, testAccount, "s1", true); err != nil {
		t.Fatalf("SetBookmarked failed: %v", err)
	}
	if err := store.SetMuted(ctx, testAccount, "s1", true); err != nil {
		t.Fatalf("SetMuted failed: %v", err)
	}
	if err := store.SetVoted(ctx, testAccount, "s1", &model.Poll{ID: "p", Voted: true}); err != nil {
		t.Fatalf("SetVoted failed: %v", err)
	}
	if err := store.SetUnread(ctx, testAccount, "1", false); err != nil {
		t.Fatalf("SetUnread failed: %v", err)
	}

	rec, err := store.ConversationByStatus(ctx, testAccount, "s1")
	if err != nil {
		t.Fatalf("ConversationByStatus failed: %v", err)
	}
	s := rec.LastStatus
	if !s.Favourited || s.FavouritesCount != 1 || !s.Bookmarked || !s.Muted || s.Poll == nil || !s.Poll.Voted || rec.Unread {
		t.Errorf("Unexpected record after setters: %+v", rec)
	}

	if err := store.SetUnread(ctx, testAccount, "missing", false); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_NotifiesAfterCommit(t *testing.T) {
	store := newTestStore(t)
	ch, cancel := store.Notifier().Subscribe(testAccount)
	defer cancel()

	upsert(t, store, record("1", 0, defaults()))

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("Expected change notification")
	}

	// 回滚的事务不通知
	_ = store.RunInTx(context.Background(), func(tx Tx) error {
		_ = tx.DeleteConversationsForAccount(context.Background(), testAccount)
		return errors.New("rollback")
	})
	select {
	case <-ch:
		t.Fatal("Unexpected notification for rolled back tx")
	default:
	}
}

// TestMemoryStore_RefreshIsAtomic 读者只能看到刷新前或刷新后的行数
func TestMemoryStore_RefreshIsAtomic(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	const oldCount, newCount = 50, 20
	var old []model.ConversationRecord
	for i := 0; i < oldCount; i++ {
		old = append(old, record(fmt.Sprintf("old%d", i), i, defaults()))
	}
	upsert(t, store, old...)

	var fresh []model.ConversationRecord
	for i := 0; i < newCount; i++ {
		fresh = append(fresh, record(fmt.Sprintf("new%d", i), i, defaults()))
	}

	var (
		stop    atomic.Bool
		torn    atomic.Int64
		wg      sync.WaitGroup
		started = make(chan struct{})
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		close(started)
		for !stop.Load() {
			n, _ := store.CountConversations(ctx, testAccount)
			if n != oldCount && n != newCount {
				torn.Add(1)
			}
			rows, _ := store.Conversations(ctx, testAccount, 0, 0)
			if len(rows) != oldCount && len(rows) != newCount {
				torn.Add(1)
			}
		}
	}()
	<-started

	for i := 0; i < 20; i++ {
		records := fresh
		if i%2 == 1 {
			records = old
		}
		err := store.RunInTx(ctx, func(tx Tx) error {
			if err := tx.DeleteConversationsForAccount(ctx, testAccount); err != nil {
				return err
			}
			return tx.UpsertConversations(ctx, records)
		})
		if err != nil {
			t.Fatalf("RunInTx failed: %v", err)
		}
	}
	stop.Store(true)
	wg.Wait()

	if torn.Load() != 0 {
		t.Errorf("Observed %d torn reads", torn.Load())
	}
}
