package consumer

import (
	"context"
	"fmt"

	"github.com/wyfcoding/quotebook/internal/quotebook/domain"
	"github.com/wyfcoding/quotebook/pkg/logger"
	"github.com/wyfcoding/quotebook/pkg/mq"
)

// Rebuilder 能重建报价快照的服务
type Rebuilder interface {
	Rebuild(ctx context.Context) (uint64, error)
}

// RebuildFunc 适配普通函数为 Rebuilder
type RebuildFunc func(ctx context.Context) (uint64, error)

func (f RebuildFunc) Rebuild(ctx context.Context) (uint64, error) { return f(ctx) }

// RebuildRequestHandler 消费重建请求事件并触发快照重建
type RebuildRequestHandler struct {
	rebuilder Rebuilder
}

func NewRebuildRequestHandler(rebuilder Rebuilder) *RebuildRequestHandler {
	return &RebuildRequestHandler{rebuilder: rebuilder}
}

// Handle 处理一条重建请求，格式错误的消息直接丢弃
// 重建失败时返回错误仅用于记录：来源已自行重试过，消费循环不会重投该消息，
// 后续消息提交时会越过它的偏移量，下一次请求或周期重建会再次加载
func (h *RebuildRequestHandler) Handle(ctx context.Context, msg *mq.Message) error {
	var event domain.RebuildRequestedEvent
	if err := msg.UnmarshalPayload(&event); err != nil {
		logger.Warn(ctx, "Dropping malformed rebuild request", "offset", msg.Offset, "error", err)
		return nil
	}

	logger.Info(ctx, "Handling rebuild request",
		"reason", event.Reason,
		"requested_by", event.RequestedBy,
	)
	id, err := h.rebuilder.Rebuild(ctx)
	if err != nil {
		return fmt.Errorf("rebuild requested by %q: %w", event.RequestedBy, err)
	}
	logger.Info(ctx, "Rebuild request completed", "snapshot_id", id)
	return nil
}
