// Package events 提供领域事件发布实现
package events

import (
	"context"

	"github.com/wyfcoding/quotebook/pkg/logger"
)

// LogPublisher 未启用 Kafka 时使用的发布者，仅记录日志
type LogPublisher struct{}

// Publish 记录事件
func (LogPublisher) Publish(ctx context.Context, topic string, key string, event any) error {
	logger.Debug(ctx, "Publishing event", "topic", topic, "key", key, "event", event)
	return nil
}
