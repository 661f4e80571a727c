package service

import (
	"strings"
	"testing"

	"DayPulse/internal/model"
)

func TestComposeNotification(t *testing.T) {
	tests := []struct {
		name         string
		checkInType  model.CheckInType
		reason       string
		event        string
		nickname     string
		wantTitle    string
		wantBodyPart string
	}{
		{
			name:         "morning with nickname",
			checkInType:  model.CheckInTypeMorning,
			reason:       "daily_schedule",
			nickname:     "Liang",
			wantTitle:    "Good morning! Time for your morning catch-up ☀️",
			wantBodyPart: "Morning, Liang!",
		},
		{
			name:         "midday routine",
			checkInType:  model.CheckInTypeMidday,
			reason:       "daily_schedule",
			wantTitle:    "Midday check-in 🌤️",
			wantBodyPart: "how is your day going so far?",
		},
		{
			name:         "midday carries reason",
			checkInType:  model.CheckInTypeMidday,
			reason:       "high_stress_reported",
			wantTitle:    "Midday check-in 🌤️",
			wantBodyPart: "checking in about high stress reported",
		},
		{
			name:         "evening",
			checkInType:  model.CheckInTypeEvening,
			nickname:     "Mara",
			wantTitle:    "Evening reflection time 🌙",
			wantBodyPart: "Hi, Mara, time to wind down",
		},
		{
			name:         "adhoc with event",
			checkInType:  model.CheckInTypeAdhoc,
			reason:       "stressful_event",
			event:        "the budget review",
			wantTitle:    "Check-in reminder",
			wantBodyPart: "just checking in before the budget review",
		},
		{
			name:         "adhoc with reason only",
			checkInType:  model.CheckInTypeAdhoc,
			reason:       "stressful_event",
			wantTitle:    "Check-in reminder",
			wantBodyPart: "checking in about stressful event",
		},
		{
			name:         "adhoc plain",
			checkInType:  model.CheckInTypeAdhoc,
			reason:       "user_requested",
			wantTitle:    "Check-in reminder",
			wantBodyPart: "you have a check-in waiting",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			title, body := composeNotification(tt.checkInType, tt.reason, tt.event, tt.nickname)
			if title != tt.wantTitle {
				t.Errorf("title = %q, want %q", title, tt.wantTitle)
			}
			if !strings.Contains(body, tt.wantBodyPart) {
				t.Errorf("body = %q, want it to contain %q", body, tt.wantBodyPart)
			}
		})
	}
}

func TestComposeNotificationNoNickname(t *testing.T) {
	_, body := composeNotification(model.CheckInTypeMorning, "daily_schedule", "", "  ")
	if strings.Contains(body, ",") && strings.HasPrefix(body, "Morning,") {
		t.Errorf("body %q carries a dangling comma for the empty nickname", body)
	}
	if !strings.HasPrefix(body, "Morning!") {
		t.Errorf("body = %q, want it to open with %q", body, "Morning!")
	}
}
