package domain

import (
	"fmt"
	"strings"
	"time"
)

// WindowPolicy 报价有效时间窗的边界策略
type WindowPolicy int

const (
	// WindowInclusive 闭区间 [start, end]，默认策略
	WindowInclusive WindowPolicy = iota
	// WindowExclusive 开区间 (start, end)，仅用于对齐历史行为
	WindowExclusive
)

// ParseWindowPolicy 解析配置中的边界策略，空串视为 inclusive
func ParseWindowPolicy(s string) (WindowPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "inclusive":
		return WindowInclusive, nil
	case "exclusive":
		return WindowExclusive, nil
	default:
		return WindowInclusive, fmt.Errorf("%w: %q", ErrUnknownWindowPolicy, s)
	}
}

// Contains 判断 t 是否落在 [start, end]（或开区间）内
func (p WindowPolicy) Contains(start, end, t time.Time) bool {
	if p == WindowExclusive {
		return t.After(start) && t.Before(end)
	}
	return !t.Before(start) && !t.After(end)
}

func (p WindowPolicy) String() string {
	if p == WindowExclusive {
		return "exclusive"
	}
	return "inclusive"
}
