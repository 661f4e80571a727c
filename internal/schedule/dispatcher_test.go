package schedule

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"DayPulse/internal/model"
)

type fakeNotifyStore struct {
	due         []*model.CheckIn
	queryErr    error
	queryCalls  int
	markedIDs   []int64
	queriedNow  time.Time
	queriedSize int
}

func (f *fakeNotifyStore) PendingNotifications(ctx context.Context, now time.Time, limit int) ([]*model.CheckIn, error) {
	f.queryCalls++
	f.queriedNow = now
	f.queriedSize = limit
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.due, nil
}

func (f *fakeNotifyStore) MarkNotified(ctx context.Context, id int64, now time.Time) error {
	f.markedIDs = append(f.markedIDs, id)
	return nil
}

type fakeOwnerStore struct {
	owners map[int64]*model.User
}

func (f *fakeOwnerStore) GetByIDs(ctx context.Context, ids []int64) (map[int64]*model.User, error) {
	out := make(map[int64]*model.User)
	for _, id := range ids {
		if u, ok := f.owners[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

func newTestDispatcher(store *fakeNotifyStore, owners *fakeOwnerStore) *NotifyDispatcher {
	return &NotifyDispatcher{
		logger:   zap.NewNop(),
		checkIns: store,
		users:    owners,
	}
}

func dueCheckIn(id, userID int64, at time.Time) *model.CheckIn {
	c := &model.CheckIn{
		PublicID:      2000 + id,
		UserID:        userID,
		CheckInType:   model.CheckInTypeMorning,
		Status:        model.CheckInStatusScheduled,
		ScheduledTime: &at,
	}
	c.ID = id
	return c
}

func TestDispatchDueNothingDue(t *testing.T) {
	store := &fakeNotifyStore{}
	d := newTestDispatcher(store, &fakeOwnerStore{})

	now := time.Date(2026, 3, 14, 8, 1, 0, 0, time.UTC)
	n, err := d.DispatchDue(context.Background(), now)
	if err != nil {
		t.Fatalf("DispatchDue: %v", err)
	}
	if n != 0 {
		t.Fatalf("dispatched = %d, want 0", n)
	}
	if store.queryCalls != 1 {
		t.Fatalf("query calls = %d, want 1", store.queryCalls)
	}
	if !store.queriedNow.Equal(now) {
		t.Errorf("queried now = %v, want %v", store.queriedNow, now)
	}
	if store.queriedSize != dispatchBatchSize {
		t.Errorf("queried batch = %d, want %d", store.queriedSize, dispatchBatchSize)
	}
}

func TestDispatchDueQueryError(t *testing.T) {
	store := &fakeNotifyStore{queryErr: fmt.Errorf("connection refused")}
	d := newTestDispatcher(store, &fakeOwnerStore{})

	n, err := d.DispatchDue(context.Background(), time.Now())
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if n != 0 {
		t.Fatalf("dispatched = %d, want 0", n)
	}
	if len(store.markedIDs) != 0 {
		t.Fatalf("marked %d check-ins on a failed query", len(store.markedIDs))
	}
}

// 打卡归属用户消失（物理删除等）时跳过该条，不标记也不发布
func TestDispatchDueSkipsOrphanedCheckIns(t *testing.T) {
	at := time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)
	store := &fakeNotifyStore{
		due: []*model.CheckIn{dueCheckIn(1, 42, at)},
	}
	d := newTestDispatcher(store, &fakeOwnerStore{})

	n, err := d.DispatchDue(context.Background(), at.Add(time.Minute))
	if err != nil {
		t.Fatalf("DispatchDue: %v", err)
	}
	if n != 0 {
		t.Fatalf("dispatched = %d, want 0", n)
	}
	if len(store.markedIDs) != 0 {
		t.Fatalf("marked %v, want no marks", store.markedIDs)
	}
}

// 上一轮还没跑完时发起新一轮，直接空转返回
func TestDispatchDueSkipsWhenAlreadyRunning(t *testing.T) {
	store := &fakeNotifyStore{}
	d := newTestDispatcher(store, &fakeOwnerStore{})
	d.dispatchMu.Lock()
	d.dispatchRunning = true
	d.dispatchMu.Unlock()

	n, err := d.DispatchDue(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("DispatchDue: %v", err)
	}
	if n != 0 {
		t.Fatalf("dispatched = %d, want 0", n)
	}
	if store.queryCalls != 0 {
		t.Fatalf("query calls = %d, want 0", store.queryCalls)
	}
}
