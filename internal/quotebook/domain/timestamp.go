package domain

import (
	"fmt"
	"time"
)

// TimestampLayout 报价文件与查询参数共用的时间格式：毫秒精度，字面量 Z 后缀
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// ParseTimestamp 按 TimestampLayout 解析时间，结果为 UTC
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.ParseInLocation(TimestampLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, s)
	}
	return t, nil
}

// FormatTimestamp 按 TimestampLayout 输出时间
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
