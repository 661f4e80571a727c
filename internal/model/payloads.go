package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// 触发来源取值，user / dialogue-tool 与 MomentSource 共用一套语义
const (
	TriggerSourceScheduler    = "scheduler"
	TriggerSourceUser         = "user"
	TriggerSourceDialogueTool = "dialogue-tool"
)

// TriggerContext 打卡创建时记录的触发上下文，创建后不可变
//
// 已知字段之外的键在反序列化时原样保留在 Extra 中，序列化时再合并回去，
// 保证上游协作方附带的扩展字段不会在本服务经手后丢失。
type TriggerContext struct {
	Source string                 `json:"source,omitempty"` // scheduler / user / dialogue-tool
	Reason string                 `json:"reason,omitempty"` // daily_schedule / user_requested / stressful_event ...
	Event  string                 `json:"event,omitempty"`  // 触发事件描述，如压力事件名称
	Extra  map[string]interface{} `json:"-"`
}

var triggerContextKnownKeys = []string{"source", "reason", "event"}

// MarshalJSON 已知字段与 Extra 合并输出，已知字段优先
func (t TriggerContext) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(t.Extra)+len(triggerContextKnownKeys))
	for k, v := range t.Extra {
		out[k] = v
	}
	if t.Source != "" {
		out["source"] = t.Source
	}
	if t.Reason != "" {
		out["reason"] = t.Reason
	}
	if t.Event != "" {
		out["event"] = t.Event
	}
	return json.Marshal(out)
}

// UnmarshalJSON 拆出已知字段，剩余键进入 Extra
func (t *TriggerContext) UnmarshalJSON(data []byte) error {
	type known struct {
		Source string `json:"source"`
		Reason string `json:"reason"`
		Event  string `json:"event"`
	}
	var k known
	if err := json.Unmarshal(data, &k); err != nil {
		return err
	}
	raw := map[string]interface{}{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, key := range triggerContextKnownKeys {
		delete(raw, key)
	}
	t.Source = k.Source
	t.Reason = k.Reason
	t.Event = k.Event
	if len(raw) > 0 {
		t.Extra = raw
	} else {
		t.Extra = nil
	}
	return nil
}

func (t TriggerContext) Value() (driver.Value, error) {
	return json.Marshal(t)
}

func (t *TriggerContext) Scan(value interface{}) error {
	return scanJSONB(value, t)
}

// EmotionScore 单条情绪强度记录，强度范围 1-10
type EmotionScore struct {
	Emotion   string `json:"emotion"`
	Intensity int    `json:"intensity"`
}

// Insights 打卡完成时写入的结构化洞察
//
// 字段按打卡类型约定：早间记录起床状态与今日预期，午间记录当下压力，
// 晚间记录整日回顾与情绪列表，临时打卡记录发起原因。对话协作方可能
// 附带约定之外的键，统一保留在 Extra 中透传。
type Insights struct {
	// 早间（mood 与 adhoc 共用）
	Mood               string   `json:"mood,omitempty"`
	PhysicalState      string   `json:"physical_state,omitempty"`
	SleepQuality       string   `json:"sleep_quality,omitempty"`
	EnergyLevel        *int     `json:"energy_level,omitempty"`
	Concerns           []string `json:"concerns,omitempty"`
	UpcomingChallenges []string `json:"upcoming_challenges,omitempty"`
	PositiveNotes      []string `json:"positive_notes,omitempty"`

	// 午间
	CurrentMood  string `json:"current_mood,omitempty"`
	StressLevel  *int   `json:"stress_level,omitempty"`
	NeedsSupport *bool  `json:"needs_support,omitempty"`
	Notes        string `json:"notes,omitempty"`

	// 晚间
	OverallMood      string         `json:"overall_mood,omitempty"`
	DayRating        *int           `json:"day_rating,omitempty"`
	Highlights       []string       `json:"highlights,omitempty"`
	Challenges       []string       `json:"challenges,omitempty"`
	Emotions         []EmotionScore `json:"emotions,omitempty"`
	TomorrowConcerns []string       `json:"tomorrow_concerns,omitempty"`
	SleepReadiness   string         `json:"sleep_readiness,omitempty"`

	// 临时
	ReasonForCheckin string   `json:"reason_for_checkin,omitempty"`
	KeyTopics        []string `json:"key_topics,omitempty"`
	ActionItems      []string `json:"action_items,omitempty"`

	// 未知字段原样透传
	Extra map[string]interface{} `json:"-"`
}

var insightsKnownKeys = []string{
	"mood", "physical_state", "sleep_quality", "energy_level",
	"concerns", "upcoming_challenges", "positive_notes",
	"current_mood", "stress_level", "needs_support", "notes",
	"overall_mood", "day_rating", "highlights", "challenges",
	"emotions", "tomorrow_concerns", "sleep_readiness",
	"reason_for_checkin", "key_topics", "action_items",
}

// insightsAlias 防止 MarshalJSON/UnmarshalJSON 递归
type insightsAlias Insights

func (i Insights) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(insightsAlias(i))
	if err != nil {
		return nil, err
	}
	if len(i.Extra) == 0 {
		return base, nil
	}
	out := make(map[string]json.RawMessage, len(i.Extra)+8)
	if err := json.Unmarshal(base, &out); err != nil {
		return nil, err
	}
	for k, v := range i.Extra {
		if _, exists := out[k]; exists {
			continue // 已知字段优先
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		out[k] = raw
	}
	return json.Marshal(out)
}

func (i *Insights) UnmarshalJSON(data []byte) error {
	var alias insightsAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	raw := map[string]interface{}{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, key := range insightsKnownKeys {
		delete(raw, key)
	}
	*i = Insights(alias)
	if len(raw) > 0 {
		i.Extra = raw
	} else {
		i.Extra = nil
	}
	return nil
}

func (i Insights) Value() (driver.Value, error) {
	return json.Marshal(i)
}

func (i *Insights) Scan(value interface{}) error {
	return scanJSONB(value, i)
}

// ActionRecord 打卡过程中对话协作方执行的一次动作
type ActionRecord struct {
	Action    string                 `json:"action"`
	Params    map[string]interface{} `json:"params,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// ActionRecords 动作记录数组（JSONB），只追加
type ActionRecords []ActionRecord

func (a ActionRecords) Value() (driver.Value, error) {
	if a == nil {
		return json.Marshal(ActionRecords{})
	}
	return json.Marshal(a)
}

func (a *ActionRecords) Scan(value interface{}) error {
	return scanJSONB(value, a)
}

// scanJSONB 统一的 JSONB 扫描入口，兼容 []byte 与 string 两种驱动返回
func scanJSONB(value interface{}, dest interface{}) error {
	if value == nil {
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, dest)
	case string:
		return json.Unmarshal([]byte(v), dest)
	default:
		return errors.New("failed to unmarshal JSONB value")
	}
}
