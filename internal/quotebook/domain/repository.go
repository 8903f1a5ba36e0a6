package domain

import "context"

// QuoteSource 报价快照的数据来源（CSV 文件、MySQL 表等）
// Load 每次返回完整的报价列表，顺序即入库顺序
type QuoteSource interface {
	Load(ctx context.Context) ([]Quote, error)
	// Describe 返回来源描述，用于日志与快照元信息
	Describe() string
}

// EventPublisher 领域事件发布者
type EventPublisher interface {
	Publish(ctx context.Context, topic string, key string, event any) error
}
