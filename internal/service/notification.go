package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"DayPulse/internal/model"
	"DayPulse/internal/model/dto"
	"DayPulse/internal/repository"
	pkgerrors "DayPulse/pkg/errors"
	"DayPulse/pkg/logger"
	"DayPulse/pkg/snowflake"
)

const defaultPendingTaskLimit = 100

var (
	notificationService *NotificationService
	notificationOnce    sync.Once
)

// Notification 获取通知服务单例
func Notification() *NotificationService {
	notificationOnce.Do(func() {
		notificationService = &NotificationService{}
	})
	return notificationService
}

// NotificationService 通知服务
//
// worker 消费 checkin.notify 消息后组装提醒文案落任务表，推送渠道由
// 外部送达协作方拉取任务表完成，本服务不碰任何发送通道。
type NotificationService struct{}

// HandleCheckInNotify 打卡提醒消息的 worker 入口
//
// 目标打卡已不在 scheduled（用户先一步开始或完结）时提醒没有意义，
// 按脏消息跳过。任务表的 check_in_id 唯一索引兜底消费重放。
func (s *NotificationService) HandleCheckInNotify(ctx context.Context, msg model.CheckInNotifyMessage) error {
	c, err := repository.CheckIns().GetAnyByPublicID(ctx, msg.CheckInID)
	if err != nil {
		if errors.Is(err, pkgerrors.CheckInNotFound) {
			return &pkgerrors.SkipMessageError{Reason: fmt.Sprintf("check-in %d not found", msg.CheckInID)}
		}
		return fmt.Errorf("failed to load check-in: %w", err)
	}
	if c.Status != model.CheckInStatusScheduled {
		return &pkgerrors.SkipMessageError{Reason: fmt.Sprintf("check-in %d already %s", msg.CheckInID, c.Status)}
	}

	// 昵称走设置缓存，worker 热路径不用回 users 表
	nickname := ""
	if snap, err := User().SettingsSnapshot(ctx, msg.UserID); err == nil {
		nickname = snap.Nickname
	} else if errors.Is(err, pkgerrors.UserNotFound) {
		return &pkgerrors.SkipMessageError{Reason: fmt.Sprintf("user %d not found", msg.UserID)}
	} else {
		logger.Logger.Warn("Failed to load user settings for notification",
			zap.Int64("user_id", msg.UserID),
			zap.Error(err))
	}

	title, body := composeNotification(model.CheckInType(msg.CheckInType), msg.Reason, msg.Event, nickname)

	scheduledAt := time.Now()
	if t, err := time.Parse(time.RFC3339, msg.ScheduledTime); err == nil {
		scheduledAt = t
	}

	payload, err := json.Marshal(map[string]interface{}{
		"check_in_id":    strconv.FormatInt(msg.CheckInID, 10),
		"check_in_type":  msg.CheckInType,
		"scheduled_time": msg.ScheduledTime,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal notification payload: %w", err)
	}

	taskCode, err := snowflake.NextID()
	if err != nil {
		return fmt.Errorf("failed to generate task code: %w", err)
	}

	task := &model.NotificationTask{
		TaskCode:    taskCode,
		UserID:      msg.UserID,
		CheckInID:   &c.ID,
		Category:    model.NotificationCategoryCheckInReminder,
		Title:       title,
		Body:        body,
		Payload:     datatypes.JSON(payload),
		Status:      model.NotificationTaskStatusPending,
		ScheduledAt: scheduledAt,
	}
	created, err := repository.Notifications().CreateIfAbsent(ctx, task)
	if err != nil {
		return fmt.Errorf("failed to create notification task: %w", err)
	}
	if !created {
		logger.Logger.Info("Notification task already exists, message replayed",
			zap.Int64("check_in_id", msg.CheckInID),
			zap.Int64("user_id", msg.UserID))
		return nil
	}

	logger.Logger.Info("Notification task composed",
		zap.Int64("task_code", taskCode),
		zap.Int64("user_id", msg.UserID),
		zap.Int64("check_in_id", msg.CheckInID),
		zap.String("check_in_type", msg.CheckInType))
	return nil
}

// ListPending 送达协作方拉取待处理任务
func (s *NotificationService) ListPending(ctx context.Context, limit int) (*dto.NotificationTaskListData, error) {
	if limit <= 0 || limit > defaultPendingTaskLimit {
		limit = defaultPendingTaskLimit
	}

	tasks, err := repository.Notifications().ListPending(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending notification tasks: %w", err)
	}

	data := &dto.NotificationTaskListData{Tasks: make([]dto.NotificationTaskItem, 0, len(tasks))}
	for _, task := range tasks {
		item := dto.NotificationTaskItem{
			TaskCode:    strconv.FormatInt(task.TaskCode, 10),
			UserID:      strconv.FormatInt(task.UserID, 10),
			Category:    string(task.Category),
			Title:       task.Title,
			Body:        task.Body,
			Status:      string(task.Status),
			ScheduledAt: task.ScheduledAt,
			ProcessedAt: task.ProcessedAt,
		}
		if len(task.Payload) > 0 {
			var payload map[string]interface{}
			if err := json.Unmarshal(task.Payload, &payload); err == nil {
				item.Payload = payload
			}
		}
		data.Tasks = append(data.Tasks, item)
	}
	return data, nil
}

// Ack 送达协作方的处理回执
func (s *NotificationService) Ack(ctx context.Context, req *dto.AckNotificationRequest) error {
	taskCode, err := strconv.ParseInt(req.TaskCode, 10, 64)
	if err != nil {
		return pkgerrors.NotificationTaskNotFound
	}

	status := model.NotificationTaskStatus(req.Status)
	if status != model.NotificationTaskStatusSent && status != model.NotificationTaskStatusFailed {
		return pkgerrors.NotificationStatusInvalid
	}

	if err := repository.Notifications().MarkProcessed(ctx, taskCode, status, time.Now()); err != nil {
		return err
	}

	logger.Logger.Info("Notification task acknowledged",
		zap.Int64("task_code", taskCode),
		zap.String("status", string(status)))
	return nil
}

// composeNotification 组装提醒标题与正文，纯函数
//
// 午间与临时打卡的正文带上触发原因，让提醒本身能回答"为什么现在找我"。
func composeNotification(t model.CheckInType, reason, event, nickname string) (string, string) {
	greeting := ""
	if name := strings.TrimSpace(nickname); name != "" {
		greeting = ", " + name
	}

	switch t {
	case model.CheckInTypeMorning:
		return "Good morning! Time for your morning catch-up ☀️",
			fmt.Sprintf("Morning%s! Take a minute to check in and set the tone for your day.", greeting)

	case model.CheckInTypeMidday:
		body := fmt.Sprintf("Hey%s, how is your day going so far?", greeting)
		if reason != "" && reason != "daily_schedule" {
			body = fmt.Sprintf("Hey%s, checking in about %s. How are things going?", greeting, humanizeReason(reason))
		}
		return "Midday check-in 🌤️", body

	case model.CheckInTypeEvening:
		return "Evening reflection time 🌙",
			fmt.Sprintf("Hi%s, time to wind down and reflect on your day.", greeting)

	default:
		body := fmt.Sprintf("Hey%s, you have a check-in waiting.", greeting)
		if event != "" {
			body = fmt.Sprintf("Hey%s, just checking in before %s. Got a minute?", greeting, event)
		} else if reason != "" && reason != "user_requested" {
			body = fmt.Sprintf("Hey%s, checking in about %s.", greeting, humanizeReason(reason))
		}
		return "Check-in reminder", body
	}
}

// humanizeReason 把 snake_case 的原因码转成可读文本
func humanizeReason(reason string) string {
	return strings.ReplaceAll(reason, "_", " ")
}
