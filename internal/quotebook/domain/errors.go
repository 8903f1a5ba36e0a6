package domain

import "errors"

var (
	// ErrInvalidTimestamp 时间戳格式不符合 2006-01-02T15:04:05.000Z
	ErrInvalidTimestamp = errors.New("invalid timestamp")
	// ErrSymbolRequired 查询缺少交易标的
	ErrSymbolRequired = errors.New("symbol is required")
	// ErrInvalidLimit 截断数量为负
	ErrInvalidLimit = errors.New("limit must be non-negative")
	// ErrInvalidQuote 报价违反实体不变量
	ErrInvalidQuote = errors.New("invalid quote")
	// ErrUnknownWindowPolicy 未知的时间窗边界策略
	ErrUnknownWindowPolicy = errors.New("unknown window boundary policy")
)
