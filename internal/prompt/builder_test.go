package prompt

import (
	"strconv"
	"strings"
	"testing"

	"DayPulse/internal/model"
)

func testUser() *model.User {
	u := &model.User{
		Nickname: "Sam",
		Timezone: "UTC",
	}
	u.ID = 42424242
	u.PublicID = 111222333444
	return u
}

func testCheckIn(t model.CheckInType) *model.CheckIn {
	ref := "conv_9f1d2c3b"
	c := &model.CheckIn{
		CheckInType:     t,
		Status:          model.CheckInStatusScheduled,
		ConversationRef: &ref,
	}
	c.ID = 55667788
	c.PublicID = 998877665544
	return c
}

func TestBuildSelectsTypeTemplate(t *testing.T) {
	cases := []struct {
		checkInType model.CheckInType
		heading     string
		initial     string
	}{
		{model.CheckInTypeMorning, "## Morning Catch-up", "Good morning! How are you feeling today?"},
		{model.CheckInTypeMidday, "## Midday Check-in", "Hi! Just checking in. How are things going?"},
		{model.CheckInTypeEvening, "## Evening Reflection", "Good evening! How did your day go?"},
		{model.CheckInTypeAdhoc, "## Ad-hoc Check-in", "Hi! I'm here to chat. What's on your mind?"},
	}

	for _, tc := range cases {
		c := testCheckIn(tc.checkInType)
		c.TriggerContext = model.TriggerContext{Source: "scheduler", Reason: "daily_schedule"}

		got, err := Build(testUser(), c, nil, nil)
		if err != nil {
			t.Fatalf("Build(%s) returned error: %v", tc.checkInType, err)
		}
		if !strings.Contains(got.SystemPrompt, tc.heading) {
			t.Fatalf("expected %s prompt to contain %q", tc.checkInType, tc.heading)
		}
		if got.InitialMessage != tc.initial {
			t.Fatalf("expected initial message %q, got %q", tc.initial, got.InitialMessage)
		}
		// 例行排期不该解释自己的来由
		if strings.Contains(got.SystemPrompt, "Why This Check-in Was Created") {
			t.Fatalf("daily schedule trigger should not produce a trigger section")
		}
	}
}

func TestBuildStressfulEventInitialMessage(t *testing.T) {
	c := testCheckIn(model.CheckInTypeAdhoc)
	c.TriggerContext = model.TriggerContext{
		Source: "dialogue-tool",
		Reason: "stressful_event",
		Event:  "team presentation",
	}

	got, err := Build(testUser(), c, nil, nil)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}

	want := "Hi! Just checking in before team presentation. How are you feeling?"
	if got.InitialMessage != want {
		t.Fatalf("expected initial message %q, got %q", want, got.InitialMessage)
	}
	if !strings.Contains(got.SystemPrompt, "Why This Check-in Was Created") {
		t.Fatalf("expected trigger section for a dynamic check-in")
	}
	if !strings.Contains(got.SystemPrompt, "Event: team presentation") {
		t.Fatalf("expected the event description to surface in the prompt")
	}
}

func TestBuildStressfulEventWithoutDescription(t *testing.T) {
	c := testCheckIn(model.CheckInTypeAdhoc)
	c.TriggerContext = model.TriggerContext{Source: "dialogue-tool", Reason: "stressful_event"}

	got, err := Build(testUser(), c, nil, nil)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}

	want := "Hi! Just checking in before your upcoming event. How are you feeling?"
	if got.InitialMessage != want {
		t.Fatalf("expected fallback event wording, got %q", got.InitialMessage)
	}
}

func TestBuildEmbedsHistoryAndMoments(t *testing.T) {
	morning := testCheckIn(model.CheckInTypeMorning)
	morning.Status = model.CheckInStatusCompleted
	morning.Summary = "Slept badly but feeling hopeful about the day."

	skipped := testCheckIn(model.CheckInTypeMidday)
	skipped.Status = model.CheckInStatusSkipped
	skipped.Summary = "should never appear"

	moment := &model.Moment{
		WhatHappened:   "Got praised at standup",
		WhenItHappened: model.MomentWhenAfternoon,
		HowItFelt:      "proud",
	}

	evening := testCheckIn(model.CheckInTypeEvening)
	got, err := Build(testUser(), evening, []*model.CheckIn{morning, skipped}, []*model.Moment{moment})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}

	if !strings.Contains(got.SystemPrompt, "### Morning Catch-up") {
		t.Fatalf("expected completed morning check-in in history")
	}
	if !strings.Contains(got.SystemPrompt, morning.Summary) {
		t.Fatalf("expected morning summary in history")
	}
	if strings.Contains(got.SystemPrompt, "should never appear") {
		t.Fatalf("skipped check-ins must not enter history")
	}
	if !strings.Contains(got.SystemPrompt, "- [afternoon] Got praised at standup (felt: proud)") {
		t.Fatalf("expected the captured moment in the prompt")
	}
}

func TestBuildDeterministic(t *testing.T) {
	c := testCheckIn(model.CheckInTypeMorning)
	first, err := Build(testUser(), c, nil, nil)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	second, err := Build(testUser(), c, nil, nil)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if first.SystemPrompt != second.SystemPrompt || first.InitialMessage != second.InitialMessage {
		t.Fatalf("expected identical output for identical input")
	}
}

func TestBuildDoesNotLeakIdentifiers(t *testing.T) {
	u := testUser()
	c := testCheckIn(model.CheckInTypeEvening)

	history := testCheckIn(model.CheckInTypeMorning)
	history.Status = model.CheckInStatusCompleted
	history.Summary = "A calm start."

	got, err := Build(u, c, []*model.CheckIn{history}, nil)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}

	full := got.SystemPrompt + "\n" + got.InitialMessage
	leaks := []string{
		strconv.FormatInt(c.ID, 10),
		strconv.FormatInt(c.PublicID, 10),
		strconv.FormatInt(u.ID, 10),
		strconv.FormatInt(u.PublicID, 10),
		*c.ConversationRef,
	}
	for _, leak := range leaks {
		if strings.Contains(full, leak) {
			t.Fatalf("prompt output leaked internal identifier %q", leak)
		}
	}
}
