package repository

import (
	"context"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"DayPulse/internal/model"
	"DayPulse/pkg/errors"
)

var (
	testDB     *gorm.DB
	testDBOnce sync.Once
	testDBErr  error

	testIDSeq int64
)

// nextTestID 测试用 public_id，时间戳叠加序号避免并发撞号
func nextTestID() int64 {
	return time.Now().UnixNano() + atomic.AddInt64(&testIDSeq, 1)
}

// openTestDB 连接集成测试库，未配置 DSN 时跳过
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := strings.TrimSpace(os.Getenv("DAYPULSE_TEST_POSTGRES_DSN"))
	if dsn == "" {
		t.Skip("set DAYPULSE_TEST_POSTGRES_DSN to run repository integration tests")
	}

	testDBOnce.Do(func() {
		db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
			DisableForeignKeyConstraintWhenMigrating: true,
			SkipDefaultTransaction:                   true,
		})
		if err != nil {
			testDBErr = err
			return
		}
		testDBErr = db.AutoMigrate(
			&model.User{},
			&model.DailyLog{},
			&model.CheckIn{},
			&model.Emotion{},
			&model.DailyLogEmotion{},
			&model.Moment{},
			&model.NotificationTask{},
		)
		testDB = db
	})
	if testDBErr != nil {
		t.Fatalf("failed to open test database: %v", testDBErr)
	}
	return testDB
}

// seedUserAndLog 造一个用户和一条当日日志，public_id 用纳秒时间戳保证互不冲突
func seedUserAndLog(t *testing.T, db *gorm.DB, date time.Time) (*model.User, *model.DailyLog) {
	t.Helper()

	u := &model.User{
		PublicID: nextTestID(),
		Nickname: "it-user",
		Status:   model.UserStatusActive,
		Timezone: "UTC",
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}

	lg, _, err := NewDailyLogRepo(db).GetOrCreate(context.Background(), &model.DailyLog{
		PublicID: nextTestID(),
		UserID:   u.ID,
		LogDate:  date,
	})
	if err != nil {
		t.Fatalf("failed to seed daily log: %v", err)
	}
	return u, lg
}

func fixedCheckIn(u *model.User, lg *model.DailyLog, typ model.CheckInType, at time.Time) *model.CheckIn {
	return &model.CheckIn{
		PublicID:       nextTestID(),
		UserID:         u.ID,
		DailyLogID:     lg.ID,
		CheckInType:    typ,
		Status:         model.CheckInStatusScheduled,
		ScheduledTime:  &at,
		TriggerContext: model.TriggerContext{Source: "scheduler", Reason: "daily_schedule"},
	}
}

func TestEnsureFixedIdempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewCheckInRepo(db)

	date := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	u, lg := seedUserAndLog(t, db, date)
	at := date.Add(8 * time.Hour)

	first, created, err := repo.EnsureFixed(ctx, fixedCheckIn(u, lg, model.CheckInTypeMorning, at))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created {
		t.Fatal("expected first EnsureFixed to create")
	}

	second, created, err := repo.EnsureFixed(ctx, fixedCheckIn(u, lg, model.CheckInTypeMorning, at))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created {
		t.Fatal("expected second EnsureFixed to be a no-op")
	}
	if second.ID != first.ID {
		t.Errorf("expected same row, got %d and %d", first.ID, second.ID)
	}
}

// N 个并发排期同一天只允许出现 3 条固定打卡
func TestEnsureFixedConcurrent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewCheckInRepo(db)

	date := time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)
	u, lg := seedUserAndLog(t, db, date)

	const workers = 8
	var wg sync.WaitGroup
	errCh := make(chan error, workers*len(model.FixedCheckInTypes))

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for hour, typ := range model.FixedCheckInTypes {
				at := date.Add(time.Duration(8+hour*6) * time.Hour)
				if _, _, err := repo.EnsureFixed(ctx, fixedCheckIn(u, lg, typ, at)); err != nil {
					errCh <- err
				}
			}
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Fatalf("unexpected error: %v", err)
	}

	var count int64
	if err := db.Model(&model.CheckIn{}).Where("daily_log_id = ?", lg.ID).Count(&count).Error; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 check-ins, got %d", count)
	}
}

func TestDailyLogGetOrCreateConcurrent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewDailyLogRepo(db)

	u, _ := seedUserAndLog(t, db, time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC))
	date := time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)

	const workers = 8
	var wg sync.WaitGroup
	ids := make(chan int64, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lg, _, err := repo.GetOrCreate(ctx, &model.DailyLog{
				PublicID: nextTestID(),
				UserID:   u.ID,
				LogDate:  date,
			})
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			ids <- lg.ID
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[int64]bool{}
	for id := range ids {
		seen[id] = true
	}
	if len(seen) != 1 {
		t.Errorf("expected all goroutines to converge on one row, got %d distinct", len(seen))
	}
}

// 先记 3 后记 7，同一 (daily_log, emotion) 只留一行且值为 7
func TestUpsertEmotionOverwrite(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	logs := NewDailyLogRepo(db)

	date := time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)
	_, lg := seedUserAndLog(t, db, date)

	emotion := model.Emotion{Name: "Anxious-" + time.Now().Format("150405.000000"), Emoji: "😰"}
	if err := NewEmotionRepo(db).Seed(ctx, []model.Emotion{emotion}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var stored model.Emotion
	if err := db.Where("name = ?", emotion.Name).First(&stored).Error; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := logs.UpsertEmotion(ctx, &model.DailyLogEmotion{DailyLogID: lg.ID, EmotionID: stored.ID, Intensity: 3}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := logs.UpsertEmotion(ctx, &model.DailyLogEmotion{DailyLogID: lg.ID, EmotionID: stored.ID, Intensity: 7}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var rows []model.DailyLogEmotion
	if err := db.Where("daily_log_id = ? AND emotion_id = ?", lg.ID, stored.ID).Find(&rows).Error; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected exactly one row, got %d", len(rows))
	}
	if rows[0].Intensity != 7 {
		t.Errorf("expected intensity 7, got %d", rows[0].Intensity)
	}
}

// 并发追加动作不丢更新
func TestAppendActionConcurrent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewCheckInRepo(db)

	date := time.Date(2025, 3, 6, 0, 0, 0, 0, time.UTC)
	u, lg := seedUserAndLog(t, db, date)
	c := fixedCheckIn(u, lg, model.CheckInTypeMorning, date.Add(8*time.Hour))
	if err := repo.Create(ctx, c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	const appends = 10
	var wg sync.WaitGroup
	for i := 0; i < appends; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.AppendAction(ctx, c.ID, model.ActionRecord{
				Action:    "create_reminder",
				Timestamp: time.Now().UTC(),
			})
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	reloaded, err := repo.GetByID(ctx, c.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reloaded.ActionsTaken) != appends {
		t.Errorf("expected %d actions, got %d", appends, len(reloaded.ActionsTaken))
	}
}

func TestAppendActionOnTerminal(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewCheckInRepo(db)

	date := time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC)
	u, lg := seedUserAndLog(t, db, date)
	c := fixedCheckIn(u, lg, model.CheckInTypeEvening, date.Add(20*time.Hour))
	c.Status = model.CheckInStatusSkipped
	if err := repo.Create(ctx, c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := repo.AppendAction(ctx, c.ID, model.ActionRecord{Action: "save_moment", Timestamp: time.Now().UTC()})
	if err != errors.CheckInInvalidOperation {
		t.Fatalf("expected CheckInInvalidOperation, got %v", err)
	}
}

// 通知查询只认 到点 + scheduled + 未通知 三个条件，打完时间戳即退出结果集
func TestPendingNotificationsFilter(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewCheckInRepo(db)

	date := time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC)
	u, lg := seedUserAndLog(t, db, date)
	now := date.Add(12 * time.Hour)

	due := fixedCheckIn(u, lg, model.CheckInTypeMorning, date.Add(8*time.Hour))
	future := fixedCheckIn(u, lg, model.CheckInTypeEvening, date.Add(20*time.Hour))
	started := fixedCheckIn(u, lg, model.CheckInTypeMidday, date.Add(9*time.Hour))
	started.Status = model.CheckInStatusInProgress

	for _, c := range []*model.CheckIn{due, future, started} {
		if err := repo.Create(ctx, c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	pending, err := repo.PendingNotifications(ctx, now, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ids := map[int64]bool{}
	for _, c := range pending {
		if c.UserID == u.ID {
			ids[c.ID] = true
		}
	}
	if !ids[due.ID] {
		t.Error("expected due check-in in pending set")
	}
	if ids[future.ID] {
		t.Error("future check-in must not be pending")
	}
	if ids[started.ID] {
		t.Error("in_progress check-in must not be pending")
	}

	if err := repo.MarkNotified(ctx, due.ID, now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pending, err = repo.PendingNotifications(ctx, now, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, c := range pending {
		if c.ID == due.ID {
			t.Error("notified check-in reported again")
		}
	}
}

// 两个并发 complete 只允许一个生效
func TestUpdateTransitionGuard(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewCheckInRepo(db)

	date := time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)
	u, lg := seedUserAndLog(t, db, date)
	c := fixedCheckIn(u, lg, model.CheckInTypeMorning, date.Add(8*time.Hour))
	if err := repo.Create(ctx, c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	now := time.Now().UTC()
	winner := *c
	if err := winner.Complete("first", model.Insights{}, now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := repo.UpdateTransition(ctx, &winner, []model.CheckInStatus{model.CheckInStatusScheduled, model.CheckInStatusInProgress}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loser := *c
	if err := loser.Complete("second", model.Insights{}, now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := repo.UpdateTransition(ctx, &loser, []model.CheckInStatus{model.CheckInStatusScheduled, model.CheckInStatusInProgress})
	if err != errors.CheckInInvalidTransition {
		t.Fatalf("expected CheckInInvalidTransition, got %v", err)
	}

	reloaded, err := repo.GetByID(ctx, c.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reloaded.Summary != "first" {
		t.Errorf("expected winner summary kept, got %q", reloaded.Summary)
	}
}
