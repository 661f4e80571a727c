package schedule

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"go.uber.org/zap"

	"DayPulse/config"
	"DayPulse/internal/model"
	"DayPulse/pkg/errors"
	"DayPulse/pkg/logger"
	"DayPulse/pkg/snowflake"
)

func TestMain(m *testing.M) {
	logger.Logger = zap.NewNop()
	if err := snowflake.Init(1, 1); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// fakeUserStore 故意不过滤状态，模拟列表查询后用户被暂停的竞态
type fakeUserStore struct {
	users     []*model.User
	listCalls int
}

func (f *fakeUserStore) ListActive(ctx context.Context, afterID int64, limit int) ([]*model.User, error) {
	f.listCalls++
	out := make([]*model.User, 0, limit)
	for _, u := range f.users {
		if u.ID <= afterID {
			continue
		}
		out = append(out, u)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type fakeCheckInStore struct {
	byKey   map[string]*model.CheckIn
	created []*model.CheckIn
}

func newFakeCheckInStore() *fakeCheckInStore {
	return &fakeCheckInStore{byKey: make(map[string]*model.CheckIn)}
}

func fixedKey(dailyLogID int64, t model.CheckInType) string {
	return fmt.Sprintf("%d/%s", dailyLogID, t)
}

func (f *fakeCheckInStore) Create(ctx context.Context, c *model.CheckIn) error {
	c.ID = int64(len(f.created) + 1)
	f.created = append(f.created, c)
	return nil
}

func (f *fakeCheckInStore) EnsureFixed(ctx context.Context, c *model.CheckIn) (*model.CheckIn, bool, error) {
	key := fixedKey(c.DailyLogID, c.CheckInType)
	if existing, ok := f.byKey[key]; ok {
		return existing, false, nil
	}
	c.ID = int64(len(f.created) + 1)
	f.byKey[key] = c
	f.created = append(f.created, c)
	return c, true, nil
}

type fakeDailyLogStore struct {
	nextID int64
	byKey  map[string]*model.DailyLog
}

func newFakeDailyLogStore() *fakeDailyLogStore {
	return &fakeDailyLogStore{byKey: make(map[string]*model.DailyLog)}
}

func (f *fakeDailyLogStore) GetOrCreate(ctx context.Context, lg *model.DailyLog) (*model.DailyLog, bool, error) {
	key := fmt.Sprintf("%d/%s", lg.UserID, lg.LogDate.Format("2006-01-02"))
	if existing, ok := f.byKey[key]; ok {
		return existing, false, nil
	}
	f.nextID++
	lg.ID = f.nextID
	f.byKey[key] = lg
	return lg, true, nil
}

func testUser(id int64) *model.User {
	u := &model.User{
		PublicID:      1000 + id,
		Nickname:      fmt.Sprintf("user-%d", id),
		Status:        model.UserStatusActive,
		Timezone:      "UTC",
		MorningTime:   "08:00:00",
		MiddayTime:    "13:00:00",
		EveningTime:   "20:00:00",
		MiddayEnabled: true,
	}
	u.ID = id
	return u
}

func newTestScheduler() (*CheckInScheduler, *fakeUserStore, *fakeCheckInStore, *fakeDailyLogStore) {
	users := &fakeUserStore{}
	checkIns := newFakeCheckInStore()
	dailyLogs := newFakeDailyLogStore()
	return NewScheduler(users, checkIns, dailyLogs), users, checkIns, dailyLogs
}

func TestScheduleDailyCheckInsCreatesFixedSlots(t *testing.T) {
	s, _, checkIns, dailyLogs := newTestScheduler()
	user := testUser(1)
	now := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)

	lg, created, err := s.ScheduleDailyCheckIns(context.Background(), user, now)
	if err != nil {
		t.Fatalf("ScheduleDailyCheckIns: %v", err)
	}
	if created != 3 {
		t.Fatalf("created = %d, want 3", created)
	}
	wantDate := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	if !lg.LogDate.Equal(wantDate) {
		t.Fatalf("log date = %v, want %v", lg.LogDate, wantDate)
	}
	if len(dailyLogs.byKey) != 1 {
		t.Fatalf("daily logs = %d, want 1", len(dailyLogs.byKey))
	}

	wantTimes := map[model.CheckInType]time.Time{
		model.CheckInTypeMorning: time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC),
		model.CheckInTypeMidday:  time.Date(2026, 3, 14, 13, 0, 0, 0, time.UTC),
		model.CheckInTypeEvening: time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC),
	}
	for checkInType, want := range wantTimes {
		c, ok := checkIns.byKey[fixedKey(lg.ID, checkInType)]
		if !ok {
			t.Fatalf("missing %s check-in", checkInType)
		}
		if c.Status != model.CheckInStatusScheduled {
			t.Errorf("%s status = %s, want scheduled", checkInType, c.Status)
		}
		if c.ScheduledTime == nil || !c.ScheduledTime.Equal(want) {
			t.Errorf("%s scheduled time = %v, want %v", checkInType, c.ScheduledTime, want)
		}
		if c.TriggerContext.Source != model.TriggerSourceScheduler {
			t.Errorf("%s trigger source = %q, want scheduler", checkInType, c.TriggerContext.Source)
		}
		if c.TriggerContext.Reason != "daily_schedule" {
			t.Errorf("%s trigger reason = %q, want daily_schedule", checkInType, c.TriggerContext.Reason)
		}
		if c.PublicID == 0 {
			t.Errorf("%s has zero public id", checkInType)
		}
	}
}

func TestScheduleDailyCheckInsIdempotent(t *testing.T) {
	s, _, checkIns, _ := newTestScheduler()
	user := testUser(1)
	now := time.Date(2026, 3, 14, 0, 5, 0, 0, time.UTC)

	lg, created, err := s.ScheduleDailyCheckIns(context.Background(), user, now)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if created != 3 {
		t.Fatalf("first run created = %d, want 3", created)
	}
	firstIDs := make(map[model.CheckInType]int64)
	for _, checkInType := range model.FixedCheckInTypes {
		firstIDs[checkInType] = checkIns.byKey[fixedKey(lg.ID, checkInType)].PublicID
	}

	// 同一天再跑一遍，一条都不该多
	lg2, created, err := s.ScheduleDailyCheckIns(context.Background(), user, now.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if created != 0 {
		t.Fatalf("second run created = %d, want 0", created)
	}
	if lg2.ID != lg.ID {
		t.Fatalf("second run log id = %d, want %d", lg2.ID, lg.ID)
	}
	if len(checkIns.created) != 3 {
		t.Fatalf("total created = %d, want 3", len(checkIns.created))
	}
	for _, checkInType := range model.FixedCheckInTypes {
		got := checkIns.byKey[fixedKey(lg.ID, checkInType)].PublicID
		if got != firstIDs[checkInType] {
			t.Errorf("%s public id changed: %d -> %d", checkInType, firstIDs[checkInType], got)
		}
	}
}

func TestScheduleDailyCheckInsSkipsMiddayWhenDisabled(t *testing.T) {
	s, _, checkIns, _ := newTestScheduler()
	user := testUser(1)
	user.MiddayEnabled = false
	now := time.Date(2026, 3, 14, 0, 5, 0, 0, time.UTC)

	lg, created, err := s.ScheduleDailyCheckIns(context.Background(), user, now)
	if err != nil {
		t.Fatalf("ScheduleDailyCheckIns: %v", err)
	}
	if created != 2 {
		t.Fatalf("created = %d, want 2", created)
	}
	if _, ok := checkIns.byKey[fixedKey(lg.ID, model.CheckInTypeMidday)]; ok {
		t.Fatal("midday check-in created despite midday_enabled=false")
	}
}

func TestScheduleDailyCheckInsRejectsInactiveUser(t *testing.T) {
	s, _, checkIns, _ := newTestScheduler()
	user := testUser(1)
	user.Status = model.UserStatusPaused

	_, _, err := s.ScheduleDailyCheckIns(context.Background(), user, time.Now())
	if err != errors.UserUnavailable {
		t.Fatalf("err = %v, want UserUnavailable", err)
	}
	if len(checkIns.created) != 0 {
		t.Fatalf("created %d check-ins for paused user", len(checkIns.created))
	}
}

func TestScheduleForAllUsersContinuesOnFailure(t *testing.T) {
	s, users, checkIns, _ := newTestScheduler()
	for i := int64(1); i <= 5; i++ {
		users.users = append(users.users, testUser(i))
	}
	// 3 号用户在列表查询后被暂停
	users.users[2].Status = model.UserStatusPaused

	now := time.Date(2026, 3, 14, 0, 5, 0, 0, time.UTC)
	result, err := s.ScheduleForAllUsers(context.Background(), now, nil)
	if err != nil {
		t.Fatalf("ScheduleForAllUsers: %v", err)
	}
	if result.UsersProcessed != 5 {
		t.Errorf("users processed = %d, want 5", result.UsersProcessed)
	}
	if result.Scheduled != 12 {
		t.Errorf("scheduled = %d, want 12", result.Scheduled)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("errors = %d, want 1", len(result.Errors))
	}
	if result.Errors[0].Code != errors.UserUnavailable.Code {
		t.Errorf("error code = %q, want %q", result.Errors[0].Code, errors.UserUnavailable.Code)
	}
	wantUserID := fmt.Sprintf("%d", users.users[2].PublicID)
	if result.Errors[0].UserID != wantUserID {
		t.Errorf("error user id = %q, want %q", result.Errors[0].UserID, wantUserID)
	}
	if len(checkIns.created) != 12 {
		t.Errorf("store holds %d check-ins, want 12", len(checkIns.created))
	}
}

func TestScheduleForAllUsersPaginates(t *testing.T) {
	oldBatch := config.Cfg.ScheduleBatchSize
	config.Cfg.ScheduleBatchSize = 2
	defer func() { config.Cfg.ScheduleBatchSize = oldBatch }()

	s, users, _, _ := newTestScheduler()
	for i := int64(1); i <= 5; i++ {
		users.users = append(users.users, testUser(i))
	}

	now := time.Date(2026, 3, 14, 0, 5, 0, 0, time.UTC)
	result, err := s.ScheduleForAllUsers(context.Background(), now, nil)
	if err != nil {
		t.Fatalf("ScheduleForAllUsers: %v", err)
	}
	if result.UsersProcessed != 5 {
		t.Errorf("users processed = %d, want 5", result.UsersProcessed)
	}
	if result.Scheduled != 15 {
		t.Errorf("scheduled = %d, want 15", result.Scheduled)
	}
	// 2+2+1 三页
	if users.listCalls != 3 {
		t.Errorf("list calls = %d, want 3", users.listCalls)
	}
}

func TestScheduleForAllUsersFixedDate(t *testing.T) {
	s, users, _, dailyLogs := newTestScheduler()
	users.users = append(users.users, testUser(1))

	now := time.Date(2026, 3, 14, 0, 5, 0, 0, time.UTC)
	date := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	result, err := s.ScheduleForAllUsers(context.Background(), now, &date)
	if err != nil {
		t.Fatalf("ScheduleForAllUsers: %v", err)
	}
	if result.Date != "2026-03-10" {
		t.Errorf("result date = %q, want 2026-03-10", result.Date)
	}
	if _, ok := dailyLogs.byKey["1/2026-03-10"]; !ok {
		t.Fatal("daily log not anchored to the requested date")
	}
}
