package model

import (
	"testing"
	"time"

	"DayPulse/pkg/errors"
)

func newCheckIn(status CheckInStatus) *CheckIn {
	sched := time.Date(2025, 6, 12, 8, 0, 0, 0, time.UTC)
	return &CheckIn{
		PublicID:      1001,
		UserID:        1,
		DailyLogID:    1,
		CheckInType:   CheckInTypeMorning,
		Status:        status,
		ScheduledTime: &sched,
	}
}

// TestCheckInTransitionTable 穷举 (状态, 事件) 组合，未列入迁移表的组合必须报
// InvalidTransition 且记录保持原样
func TestCheckInTransitionTable(t *testing.T) {
	now := time.Date(2025, 6, 12, 8, 5, 0, 0, time.UTC)

	events := []struct {
		name  string
		apply func(c *CheckIn) error
	}{
		{"start", func(c *CheckIn) error { return c.Start("conv-1", now) }},
		{"complete", func(c *CheckIn) error { return c.Complete("done", Insights{}, now) }},
		{"skip", func(c *CheckIn) error { return c.Skip(now) }},
	}

	allowed := map[CheckInStatus]map[string]CheckInStatus{
		CheckInStatusScheduled: {
			"start":    CheckInStatusInProgress,
			"complete": CheckInStatusCompleted, // scheduled 直接完成是允许的捷径
			"skip":     CheckInStatusSkipped,
		},
		CheckInStatusInProgress: {
			"complete": CheckInStatusCompleted,
		},
		CheckInStatusCompleted: {},
		CheckInStatusSkipped:   {},
	}

	for from, table := range allowed {
		for _, ev := range events {
			t.Run(string(from)+"_"+ev.name, func(t *testing.T) {
				c := newCheckIn(from)
				before := *c
				err := ev.apply(c)

				want, ok := table[ev.name]
				if ok {
					if err != nil {
						t.Fatalf("expected transition to succeed, got %v", err)
					}
					if c.Status != want {
						t.Errorf("expected status %s, got %s", want, c.Status)
					}
					return
				}

				if err != errors.CheckInInvalidTransition {
					t.Fatalf("expected CheckInInvalidTransition, got %v", err)
				}
				if c.Status != before.Status {
					t.Errorf("status changed on rejected transition: %s -> %s", before.Status, c.Status)
				}
				if c.Summary != before.Summary {
					t.Errorf("summary changed on rejected transition")
				}
				if (c.CompletedAt == nil) != (before.CompletedAt == nil) {
					t.Errorf("completed_at changed on rejected transition")
				}
			})
		}
	}
}

func TestCheckInStartRecordsConversation(t *testing.T) {
	now := time.Now().UTC()
	c := newCheckIn(CheckInStatusScheduled)

	if err := c.Start("conv_42", now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.ConversationRef == nil || *c.ConversationRef != "conv_42" {
		t.Errorf("expected conversation_ref conv_42, got %v", c.ConversationRef)
	}
	if c.StartedAt == nil || !c.StartedAt.Equal(now) {
		t.Errorf("expected started_at %v, got %v", now, c.StartedAt)
	}
}

// 重复 complete 是硬错误，已写入的洞察不能被覆盖
func TestCheckInCompleteTwice(t *testing.T) {
	now := time.Now().UTC()
	c := newCheckIn(CheckInStatusScheduled)

	rating := 8
	first := Insights{DayRating: &rating, Emotions: []EmotionScore{{Emotion: "Happy", Intensity: 5}}}
	if err := c.Complete("a good day", first, now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := c.Complete("overwrite attempt", Insights{}, now.Add(time.Minute))
	if err != errors.CheckInInvalidTransition {
		t.Fatalf("expected CheckInInvalidTransition, got %v", err)
	}
	if c.Summary != "a good day" {
		t.Errorf("summary was overwritten: %q", c.Summary)
	}
	if len(c.Insights.Emotions) != 1 {
		t.Errorf("insights were overwritten: %+v", c.Insights)
	}
}

func TestCheckInSkipFromInProgress(t *testing.T) {
	now := time.Now().UTC()
	c := newCheckIn(CheckInStatusInProgress)

	if err := c.Skip(now); err != errors.CheckInInvalidTransition {
		t.Fatalf("expected CheckInInvalidTransition, got %v", err)
	}
	if c.Status != CheckInStatusInProgress {
		t.Errorf("expected status unchanged, got %s", c.Status)
	}
}

func TestCheckInAddAction(t *testing.T) {
	now := time.Now().UTC()
	c := newCheckIn(CheckInStatusInProgress)

	first := ActionRecord{Action: "create_reminder", Params: map[string]interface{}{"time": "17:30"}, Timestamp: now}
	second := ActionRecord{Action: "create_task", Timestamp: now.Add(time.Minute)}

	if err := c.AddAction(first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := c.AddAction(second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(c.ActionsTaken) != 2 {
		t.Fatalf("expected 2 actions, got %d", len(c.ActionsTaken))
	}
	// 只追加，顺序保持
	if c.ActionsTaken[0].Action != "create_reminder" || c.ActionsTaken[1].Action != "create_task" {
		t.Errorf("actions out of order: %+v", c.ActionsTaken)
	}
}

func TestCheckInAddActionOnTerminal(t *testing.T) {
	now := time.Now().UTC()
	for _, status := range []CheckInStatus{CheckInStatusCompleted, CheckInStatusSkipped} {
		c := newCheckIn(status)
		err := c.AddAction(ActionRecord{Action: "save_moment", Timestamp: now})
		if err != errors.CheckInInvalidOperation {
			t.Fatalf("status %s: expected CheckInInvalidOperation, got %v", status, err)
		}
		if len(c.ActionsTaken) != 0 {
			t.Errorf("status %s: actions_taken changed on rejected add", status)
		}
	}
}

func TestCheckInTypeDisplayName(t *testing.T) {
	cases := map[CheckInType]string{
		CheckInTypeMorning: "Morning Catch-up",
		CheckInTypeMidday:  "Midday Check-in",
		CheckInTypeEvening: "Evening Reflection",
		CheckInTypeAdhoc:   "Ad-hoc Check-in",
	}
	for typ, want := range cases {
		if got := typ.DisplayName(); got != want {
			t.Errorf("%s: expected %q, got %q", typ, want, got)
		}
	}
}

func TestCheckInTypeIsFixed(t *testing.T) {
	for _, typ := range FixedCheckInTypes {
		if !typ.IsFixed() {
			t.Errorf("expected %s to be fixed", typ)
		}
	}
	if CheckInTypeAdhoc.IsFixed() {
		t.Error("adhoc must not be fixed")
	}
	if CheckInType("weekly").IsValid() {
		t.Error("unknown type must be invalid")
	}
}
