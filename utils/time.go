package utils

import (
	"time"
)

// parseTime 解析时间字符串（格式：HH:MM:SS）并应用到指定日期
func ParseTime(timeStr string, date time.Time) (time.Time, error) {
	if timeStr == "" {
		return date, nil
	}

	parsedTime, err := time.Parse("15:04:05", timeStr)
	if err != nil {
		return date, err
	}

	return time.Date(
		date.Year(),
		date.Month(),
		date.Day(),
		parsedTime.Hour(),
		parsedTime.Minute(),
		parsedTime.Second(),
		0,
		date.Location(),
	), nil
}

// DateOnly 取时间所在时区的日历日，归一成 UTC 零点
// date 列的读写都走这个归一，避免驱动按会话时区截断出现隔天
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// TodayIn 某时区下的"今天"，同样归一成 UTC 零点
func TodayIn(loc *time.Location) time.Time {
	return DateOnly(time.Now().In(loc))
}

// LoadLocation 解析时区名，失败时退回 fallback，再失败用 UTC
func LoadLocation(name, fallback string) *time.Location {
	if name != "" {
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	if fallback != "" {
		if loc, err := time.LoadLocation(fallback); err == nil {
			return loc
		}
	}
	return time.UTC
}
