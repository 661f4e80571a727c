package service

import (
	"strings"
	"testing"

	"DayPulse/internal/model"
)

func completedCheckIn(t model.CheckInType, summary string) *model.CheckIn {
	return &model.CheckIn{
		CheckInType: t,
		Status:      model.CheckInStatusCompleted,
		Summary:     summary,
	}
}

func TestComposeDaySummary(t *testing.T) {
	checkIns := []*model.CheckIn{
		completedCheckIn(model.CheckInTypeMorning, "Slept well, feeling ready for the day."),
		completedCheckIn(model.CheckInTypeMidday, "Presentation went fine, energy dipping."),
		completedCheckIn(model.CheckInTypeEvening, "Tired but satisfied."),
	}

	got := ComposeDaySummary(checkIns)

	want := "**Morning Catch-up**: Slept well, feeling ready for the day.\n\n" +
		"**Midday Check-in**: Presentation went fine, energy dipping.\n\n" +
		"**Evening Reflection**: Tired but satisfied."
	if got != want {
		t.Errorf("ComposeDaySummary() = %q, want %q", got, want)
	}
}

func TestComposeDaySummarySkipsUnusable(t *testing.T) {
	checkIns := []*model.CheckIn{
		nil,
		completedCheckIn(model.CheckInTypeMorning, "   "),
		{CheckInType: model.CheckInTypeMidday, Status: model.CheckInStatusSkipped, Summary: "should not appear"},
		completedCheckIn(model.CheckInTypeAdhoc, "Quick chat before the interview."),
	}

	got := ComposeDaySummary(checkIns)

	want := "**Ad-hoc Check-in**: Quick chat before the interview."
	if got != want {
		t.Errorf("ComposeDaySummary() = %q, want %q", got, want)
	}
	if strings.Contains(got, "should not appear") {
		t.Errorf("ComposeDaySummary() included a skipped check-in: %q", got)
	}
}

func TestComposeDaySummaryEmpty(t *testing.T) {
	if got := ComposeDaySummary(nil); got != "" {
		t.Errorf("ComposeDaySummary(nil) = %q, want empty", got)
	}
	if got := ComposeDaySummary([]*model.CheckIn{completedCheckIn(model.CheckInTypeMorning, "")}); got != "" {
		t.Errorf("ComposeDaySummary(blank summaries) = %q, want empty", got)
	}
}

func TestClampIntensity(t *testing.T) {
	tests := []struct {
		name string
		in   int
		want int
	}{
		{name: "absent defaults to midpoint", in: 0, want: 5},
		{name: "negative defaults to midpoint", in: -3, want: 5},
		{name: "lower bound kept", in: 1, want: 1},
		{name: "in range kept", in: 7, want: 7},
		{name: "upper bound kept", in: 10, want: 10},
		{name: "overflow clamped", in: 14, want: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := clampIntensity(tt.in); got != tt.want {
				t.Errorf("clampIntensity(%d) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}
