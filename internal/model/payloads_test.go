package model

import (
	"encoding/json"
	"testing"
)

// 上游附带的未知键必须在反序列化/再序列化之间原样保留
func TestTriggerContextExtraPassthrough(t *testing.T) {
	raw := `{"source":"dialogue_tool","reason":"stressful_event","event":"exam at 17:30","urgency":"high","tags":["exam","school"]}`

	var tc TriggerContext
	if err := json.Unmarshal([]byte(raw), &tc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if tc.Source != "dialogue_tool" {
		t.Errorf("expected source dialogue_tool, got %q", tc.Source)
	}
	if tc.Reason != "stressful_event" {
		t.Errorf("expected reason stressful_event, got %q", tc.Reason)
	}
	if tc.Extra["urgency"] != "high" {
		t.Errorf("expected extra urgency preserved, got %v", tc.Extra)
	}
	if _, known := tc.Extra["reason"]; known {
		t.Error("known key leaked into extra map")
	}

	out, err := json.Marshal(tc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var round map[string]interface{}
	if err := json.Unmarshal(out, &round); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if round["urgency"] != "high" {
		t.Errorf("extra key lost on marshal: %s", out)
	}
	if round["reason"] != "stressful_event" {
		t.Errorf("known key lost on marshal: %s", out)
	}
	if _, ok := round["tags"]; !ok {
		t.Errorf("extra array lost on marshal: %s", out)
	}
}

// 已知字段与 Extra 冲突时，已知字段优先
func TestTriggerContextKnownFieldWins(t *testing.T) {
	tc := TriggerContext{
		Reason: "daily_schedule",
		Extra:  map[string]interface{}{"reason": "stale_value", "note": "keep me"},
	}
	out, err := json.Marshal(tc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var round map[string]interface{}
	if err := json.Unmarshal(out, &round); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if round["reason"] != "daily_schedule" {
		t.Errorf("expected known field to win, got %v", round["reason"])
	}
	if round["note"] != "keep me" {
		t.Errorf("expected extra key preserved, got %v", round)
	}
}

func TestInsightsExtraPassthrough(t *testing.T) {
	raw := `{
		"overall_mood": "content",
		"day_rating": 7,
		"emotions": [{"emotion": "Happy", "intensity": 5}, {"emotion": "Tired", "intensity": 6}],
		"highlights": ["shipped the release"],
		"custom_metric": 0.82,
		"coach_notes": {"next": "ask about sleep"}
	}`

	var in Insights
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if in.OverallMood != "content" {
		t.Errorf("expected overall_mood content, got %q", in.OverallMood)
	}
	if in.DayRating == nil || *in.DayRating != 7 {
		t.Errorf("expected day_rating 7, got %v", in.DayRating)
	}
	if len(in.Emotions) != 2 || in.Emotions[0].Emotion != "Happy" || in.Emotions[1].Intensity != 6 {
		t.Errorf("emotions parsed wrong: %+v", in.Emotions)
	}
	if _, ok := in.Extra["custom_metric"]; !ok {
		t.Errorf("expected custom_metric in extra, got %v", in.Extra)
	}
	if _, ok := in.Extra["emotions"]; ok {
		t.Error("known key leaked into extra map")
	}

	out, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var round map[string]interface{}
	if err := json.Unmarshal(out, &round); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := round["custom_metric"]; !ok {
		t.Errorf("extra key lost on marshal: %s", out)
	}
	if _, ok := round["coach_notes"]; !ok {
		t.Errorf("extra object lost on marshal: %s", out)
	}
	if _, ok := round["emotions"]; !ok {
		t.Errorf("known key lost on marshal: %s", out)
	}
}

func TestInsightsZeroValueMarshalsEmpty(t *testing.T) {
	out, err := json.Marshal(Insights{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != "{}" {
		t.Errorf("expected {}, got %s", out)
	}
}

func TestActionRecordsValueNeverNull(t *testing.T) {
	var a ActionRecords
	v, err := a.Value()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(v.([]byte)) != "[]" {
		t.Errorf("expected [], got %s", v)
	}
}

func TestScanJSONBAcceptsStringAndBytes(t *testing.T) {
	var tc TriggerContext
	if err := tc.Scan([]byte(`{"source":"scheduler"}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tc.Source != "scheduler" {
		t.Errorf("expected scheduler, got %q", tc.Source)
	}

	var tc2 TriggerContext
	if err := tc2.Scan(`{"source":"api"}`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tc2.Source != "api" {
		t.Errorf("expected api, got %q", tc2.Source)
	}
}
