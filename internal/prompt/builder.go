package prompt

import (
	"fmt"
	"strings"

	"DayPulse/internal/model"
)

// Context 交给对话协作方的开场上下文
type Context struct {
	SystemPrompt   string
	InitialMessage string
}

// Build 组装一次打卡会话的系统提示与开场白
//
// 输入相同则输出相同：不读时钟、不读全局状态。history 与 moments 只应
// 包含当天的记录，排序由调用方保证。输出直接交给外部对话协作方，内部
// 标识（自增 ID、public_id、会话引用）一律不出现在文本里。
func Build(user *model.User, checkIn *model.CheckIn, history []*model.CheckIn, moments []*model.Moment) (*Context, error) {
	set, err := loadTemplates()
	if err != nil {
		return nil, err
	}

	tpl := set.templateFor(checkIn.CheckInType)

	sections := []string{
		strings.TrimSpace(set.Identity),
		strings.TrimSpace(tpl.Instructions),
		renderUser(user),
		renderHistory(history),
		renderMoments(moments),
		renderTrigger(checkIn.TriggerContext),
		strings.TrimSpace(set.Tools),
		strings.TrimSpace(set.Closing),
	}

	out := make([]string, 0, len(sections))
	for _, s := range sections {
		if s != "" {
			out = append(out, s)
		}
	}

	return &Context{
		SystemPrompt:   strings.Join(out, "\n\n"),
		InitialMessage: initialMessage(set, tpl, checkIn),
	}, nil
}

// renderUser 用户侧的基本背景，昵称之外的资料不进提示词
func renderUser(u *model.User) string {
	if u == nil || u.Nickname == "" {
		return ""
	}
	return fmt.Sprintf("## About the User\n\nThey go by %s.", u.Nickname)
}

// renderHistory 把当天更早完成的打卡浓缩成上下文段落
func renderHistory(history []*model.CheckIn) string {
	lines := make([]string, 0, len(history)*3)
	for _, c := range history {
		if c == nil || c.Status != model.CheckInStatusCompleted {
			continue
		}
		lines = append(lines, fmt.Sprintf("### %s", c.CheckInType.DisplayName()))
		if c.Summary != "" {
			lines = append(lines, c.Summary)
		}
		if signal := renderInsightLine(c.Insights); signal != "" {
			lines = append(lines, signal)
		}
	}
	if len(lines) == 0 {
		return ""
	}
	return "## Earlier Check-ins Today\n\n" + strings.Join(lines, "\n")
}

// renderInsightLine 从洞察里挑出值得带给下一场对话的信号
func renderInsightLine(in model.Insights) string {
	parts := make([]string, 0, 3)

	mood := in.Mood
	if mood == "" {
		mood = in.CurrentMood
	}
	if mood == "" {
		mood = in.OverallMood
	}
	if mood != "" {
		parts = append(parts, fmt.Sprintf("mood %s", mood))
	}
	if in.StressLevel != nil {
		parts = append(parts, fmt.Sprintf("stress level %d/10", *in.StressLevel))
	}
	if in.DayRating != nil {
		parts = append(parts, fmt.Sprintf("day rating %d/10", *in.DayRating))
	}
	if len(in.Concerns) > 0 {
		parts = append(parts, fmt.Sprintf("concerns: %s", strings.Join(in.Concerns, ", ")))
	}

	if len(parts) == 0 {
		return ""
	}
	return "Key signals: " + strings.Join(parts, "; ")
}

// renderMoments 当天随手记下的瞬间，作为对话背景
func renderMoments(moments []*model.Moment) string {
	lines := make([]string, 0, len(moments))
	for _, m := range moments {
		if m == nil || m.WhatHappened == "" {
			continue
		}
		line := fmt.Sprintf("- [%s] %s", m.WhenItHappened, m.WhatHappened)
		if m.HowItFelt != "" {
			line += fmt.Sprintf(" (felt: %s)", m.HowItFelt)
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return ""
	}
	return "## Moments Captured Today\n\n" + strings.Join(lines, "\n")
}

// renderTrigger 动态打卡的来由；每日例行排期不值得占一段
func renderTrigger(tc model.TriggerContext) string {
	if tc.Event == "" && (tc.Reason == "" || tc.Reason == "daily_schedule") {
		return ""
	}

	lines := []string{"## Why This Check-in Was Created"}
	if tc.Reason != "" {
		lines = append(lines, fmt.Sprintf("Reason: %s", strings.ReplaceAll(tc.Reason, "_", " ")))
	}
	if tc.Event != "" {
		lines = append(lines, fmt.Sprintf("Event: %s", tc.Event))
	}
	return strings.Join(lines, "\n")
}

// initialMessage 选择开场白，压力事件触发的打卡用专门文案并带上事件描述
func initialMessage(set *templateSet, tpl TypeTemplate, checkIn *model.CheckIn) string {
	if checkIn.TriggerContext.Reason == "stressful_event" {
		if special, ok := set.SpecialInitialMessages["stressful_event"]; ok && special != "" {
			event := checkIn.TriggerContext.Event
			if event == "" {
				event = "your upcoming event"
			}
			return strings.ReplaceAll(special, "{event}", event)
		}
	}
	return tpl.InitialMessage
}
