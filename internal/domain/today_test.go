package domain_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/MrSnakeDoc/shelf/internal/gateway/memory"
)

func todayList(t *testing.T, gw domain.Gateway, id string, current *string) *domain.List {
	t.Helper()
	l, err := domain.ListFromRaw(gw,
		domain.ListRecord{ID: id, OwnerID: "u1", Title: id, CreatedAt: ts, UpdatedAt: ts},
		&domain.LibraryListRecord{UserID: "u1", ListID: id, FolderID: strp("f1"), Today: true, CurrentItem: current},
	)
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func itemRecord(id, listID, content string) domain.ListItemRecord {
	return domain.ListItemRecord{ID: id, ListID: listID, Content: content, CreatedAt: ts, UpdatedAt: ts}
}

// scriptedItems hands out one gate per RetrieveListItem call, in call order.
type scriptedItems struct {
	domain.ItemGateway
	calls   atomic.Int32
	started chan int
	gates   []chan domain.ListItemRecord
}

func newScriptedItems(n int) *scriptedItems {
	s := &scriptedItems{started: make(chan int, n)}
	for i := 0; i < n; i++ {
		s.gates = append(s.gates, make(chan domain.ListItemRecord, 1))
	}
	return s
}

func (s *scriptedItems) RetrieveListItem(ctx context.Context, id string) (domain.ListItemRecord, error) {
	n := int(s.calls.Add(1))
	s.started <- n
	return <-s.gates[n-1], nil
}

// funcItems answers RetrieveListItem with fn.
type funcItems struct {
	domain.ItemGateway
	fn func(ctx context.Context, id string) (domain.ListItemRecord, error)
}

func (f funcItems) RetrieveListItem(ctx context.Context, id string) (domain.ListItemRecord, error) {
	return f.fn(ctx, id)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestTodayInfoResolvesCurrentItems(t *testing.T) {
	ctx := context.Background()
	gw := memory.NewStore()
	for _, id := range []string{"L1", "L2", "L3"} {
		if err := gw.StoreNewList(ctx, domain.ListRecord{ID: id, OwnerID: "u1", CreatedAt: ts, UpdatedAt: ts}); err != nil {
			t.Fatal(err)
		}
	}
	if err := gw.StoreNewListItem(ctx, itemRecord("i1", "L1", "Dune")); err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	var failed []string
	hook := func(listID, itemID string, err error) {
		mu.Lock()
		defer mu.Unlock()
		failed = append(failed, listID+"/"+itemID)
	}

	lists := []*domain.List{
		todayList(t, gw, "L1", strp("i1")),
		todayList(t, gw, "L2", nil),
		todayList(t, gw, "L3", strp("gone")),
	}
	today := domain.NewTodayInfo(ctx, gw, lists, domain.WithFetchErrorHook(hook))
	today.Wait()

	if it := today.GetItemForList("L1"); it == nil || it.ID() != "i1" || it.Content() != "Dune" {
		t.Errorf("L1 item = %v", it)
	}
	if it := today.GetItemForList("L2"); it != nil {
		t.Errorf("L2 item = %v, want nil", it.ID())
	}
	if it := today.GetItemForList("L3"); it != nil {
		t.Errorf("L3 item = %v, want nil", it.ID())
	}

	tests := []struct {
		listID string
		want   domain.ItemStatus
	}{
		{"L1", domain.StatusResolved},
		{"L2", domain.StatusNoItem},
		{"L3", domain.StatusFailed},
		{"L9", domain.StatusUnresolved},
	}
	for _, tt := range tests {
		t.Run(tt.listID, func(t *testing.T) {
			st := today.Lookup(tt.listID)
			if st.Status != tt.want || st.Pending {
				t.Errorf("Lookup = %s pending=%v, want %s", st.Status, st.Pending, tt.want)
			}
		})
	}
	if st := today.Lookup("L3"); !domain.IsNotFound(st.Err) {
		t.Errorf("L3 err = %v, want NotFound", st.Err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(failed) != 1 || failed[0] != "L3/gone" {
		t.Errorf("error hook calls = %v", failed)
	}
}

func TestTodayInfoPendingBeforeCompletion(t *testing.T) {
	ctx := context.Background()
	items := newScriptedItems(1)
	gw := memory.NewStore()

	today := domain.NewTodayInfo(ctx, items, []*domain.List{todayList(t, gw, "L1", strp("i1"))})
	<-items.started

	st := today.Lookup("L1")
	if st.Status != domain.StatusUnresolved || !st.Pending {
		t.Errorf("in-flight Lookup = %s pending=%v", st.Status, st.Pending)
	}
	if today.GetItemForList("L1") != nil {
		t.Error("item visible before fetch completed")
	}

	items.gates[0] <- itemRecord("i1", "L1", "Dune")
	today.Wait()
	if st := today.Lookup("L1"); st.Status != domain.StatusResolved || st.Pending {
		t.Errorf("completed Lookup = %s pending=%v", st.Status, st.Pending)
	}
}

func TestTodayInfoOverlappingRefreshes(t *testing.T) {
	tests := []struct {
		name string
		opts []domain.TodayOption
		want string
	}{
		{"last completed wins", nil, "old"},
		{"superseded discarded", []domain.TodayOption{domain.WithSupersededDiscard()}, "new"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			items := newScriptedItems(2)
			gw := memory.NewStore()

			today := domain.NewTodayInfo(ctx, items, []*domain.List{todayList(t, gw, "L1", strp("i1"))}, tt.opts...)
			if n := <-items.started; n != 1 {
				t.Fatalf("first call = %d", n)
			}
			today.RefreshTodayItems(ctx)
			if n := <-items.started; n != 2 {
				t.Fatalf("second call = %d", n)
			}

			// The newer fetch completes first.
			items.gates[1] <- itemRecord("i1", "L1", "new")
			waitFor(t, func() bool {
				it := today.GetItemForList("L1")
				return it != nil && it.Content() == "new"
			})

			items.gates[0] <- itemRecord("i1", "L1", "old")
			today.Wait()

			it := today.GetItemForList("L1")
			if it == nil || it.Content() != tt.want {
				t.Errorf("final item = %v, want content %q", it, tt.want)
			}
		})
	}
}

func TestTodayInfoFetchOutlivesCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	items := funcItems{fn: func(ctx context.Context, id string) (domain.ListItemRecord, error) {
		if err := ctx.Err(); err != nil {
			return domain.ListItemRecord{}, err
		}
		return itemRecord(id, "L1", "Dune"), nil
	}}
	today := domain.NewTodayInfo(ctx, items, []*domain.List{todayList(t, memory.NewStore(), "L1", strp("i1"))})
	today.Wait()

	if today.GetItemForList("L1") == nil {
		t.Errorf("fetch canceled with caller ctx: %v", today.Lookup("L1").Err)
	}
}

func TestTodayInfoFetchTimeout(t *testing.T) {
	items := funcItems{fn: func(ctx context.Context, id string) (domain.ListItemRecord, error) {
		<-ctx.Done()
		return domain.ListItemRecord{}, domain.NewTransportError("retrieve list item", ctx.Err())
	}}
	today := domain.NewTodayInfo(context.Background(), items,
		[]*domain.List{todayList(t, memory.NewStore(), "L1", strp("i1"))},
		domain.WithFetchTimeout(10*time.Millisecond))
	today.Wait()

	st := today.Lookup("L1")
	if st.Status != domain.StatusFailed || !errors.Is(st.Err, context.DeadlineExceeded) {
		t.Errorf("Lookup = %s err=%v", st.Status, st.Err)
	}
	if !domain.IsTransport(st.Err) {
		t.Errorf("err = %v, want TransportError", st.Err)
	}
}

func TestTodayInfoLocalOverride(t *testing.T) {
	ctx := context.Background()
	gw := memory.NewStore()
	if err := gw.StoreNewList(ctx, domain.ListRecord{ID: "L1", OwnerID: "u1", CreatedAt: ts, UpdatedAt: ts}); err != nil {
		t.Fatal(err)
	}
	if err := gw.StoreNewListItem(ctx, itemRecord("i1", "L1", "Dune")); err != nil {
		t.Fatal(err)
	}

	today := domain.NewTodayInfo(ctx, gw, []*domain.List{todayList(t, gw, "L1", strp("i1"))})
	today.Wait()

	other, err := domain.ListItemFromRaw(gw, itemRecord("i2", "L1", "Hyperion"))
	if err != nil {
		t.Fatal(err)
	}
	today.ChangeTodayItemForList("L1", other)
	if it := today.GetItemForList("L1"); it != other {
		t.Errorf("override not visible: %v", it)
	}
	if _, err := gw.RetrieveListItem(ctx, "i2"); !domain.IsNotFound(err) {
		t.Error("override wrote to the gateway")
	}

	today.ChangeTodayItemForList("L1", nil)
	if today.GetItemForList("L1") != nil || today.Lookup("L1").Status != domain.StatusNoItem {
		t.Errorf("nil override: %s", today.Lookup("L1").Status)
	}
}

func TestTodayInfoUpdateTodayLists(t *testing.T) {
	ctx := context.Background()
	gw := memory.NewStore()
	for _, id := range []string{"L1", "L2"} {
		if err := gw.StoreNewList(ctx, domain.ListRecord{ID: id, OwnerID: "u1", CreatedAt: ts, UpdatedAt: ts}); err != nil {
			t.Fatal(err)
		}
	}
	if err := gw.StoreNewListItem(ctx, itemRecord("i1", "L1", "Dune")); err != nil {
		t.Fatal(err)
	}
	if err := gw.StoreNewListItem(ctx, itemRecord("i2", "L2", "Hyperion")); err != nil {
		t.Fatal(err)
	}

	l1 := todayList(t, gw, "L1", strp("i1"))
	today := domain.NewTodayInfo(ctx, gw, []*domain.List{l1})
	today.Wait()

	l2 := todayList(t, gw, "L2", strp("i2"))
	today.UpdateTodayLists(ctx, []*domain.List{l2})
	today.Wait()

	if today.GetItemForList("L1") != nil || today.Lookup("L1").Status != domain.StatusUnresolved {
		t.Errorf("untracked list kept its entry: %s", today.Lookup("L1").Status)
	}
	if it := today.GetItemForList("L2"); it == nil || it.ID() != "i2" {
		t.Errorf("L2 item = %v", it)
	}
	if got := today.Lists(); len(got) != 1 || got[0] != l2 {
		t.Errorf("Lists = %v", got)
	}

	// Clearing the current item drops the cached entry on the next refresh.
	l2.SetCurrentItem(nil)
	today.RefreshTodayItems(ctx)
	today.Wait()
	if today.GetItemForList("L2") != nil || today.Lookup("L2").Status != domain.StatusNoItem {
		t.Errorf("cleared list: %s", today.Lookup("L2").Status)
	}
}
