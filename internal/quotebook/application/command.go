package application

import (
	"context"
	"fmt"
	"time"

	"github.com/wyfcoding/quotebook/internal/quotebook/domain"
	"github.com/wyfcoding/quotebook/pkg/logger"
)

// Rebuild 从数据来源重新加载全部报价并替换当前快照
// 加载失败时旧快照继续提供查询
func (s *QuoteBookService) Rebuild(ctx context.Context) (*SnapshotDTO, error) {
	s.rebuildMu.Lock()
	defer s.rebuildMu.Unlock()

	source := s.source.Describe()
	defer logger.LogDuration(ctx, "quote snapshot rebuild finished", "source", source)()

	start := time.Now()
	quotes, err := s.source.Load(ctx)
	if err != nil {
		s.metrics.RecordRebuild(false, 0, time.Since(start))
		logger.Error(ctx, "failed to load quotes", "source", source, "error", err)
		return nil, fmt.Errorf("rebuild from %s: %w", source, err)
	}

	id, err := s.idgen.NextID()
	if err != nil {
		s.metrics.RecordRebuild(false, 0, time.Since(start))
		return nil, fmt.Errorf("failed to generate snapshot id: %w", err)
	}

	snap := &domain.Snapshot{
		ID:      id,
		Store:   domain.NewQuoteStore(quotes),
		BuiltAt: s.now().UTC(),
		Source:  source,
	}
	s.snapshot.Store(snap)
	s.metrics.RecordRebuild(true, snap.Store.Len(), time.Since(start))
	logger.Info(ctx, "quote snapshot replaced", "snapshot_id", id, "quotes", snap.Store.Len())

	s.publishRebuilt(ctx, snap)
	s.notify(snap)
	return toSnapshotDTO(snap), nil
}

func (s *QuoteBookService) publishRebuilt(ctx context.Context, snap *domain.Snapshot) {
	if s.publisher == nil || s.snapshotTopic == "" {
		return
	}
	event := domain.SnapshotRebuiltEvent{
		SnapshotID: snap.ID,
		QuoteCount: snap.Store.Len(),
		Symbols:    snap.Store.Symbols(),
		Source:     snap.Source,
		BuiltAt:    snap.BuiltAt.UnixMilli(),
	}
	if err := s.publisher.Publish(ctx, s.snapshotTopic, fmt.Sprintf("%d", snap.ID), event); err != nil {
		// 事件发布失败不影响快照生效
		logger.Warn(ctx, "failed to publish snapshot rebuilt event", "snapshot_id", snap.ID, "error", err)
	}
}

// RunRefresher 按固定间隔重建快照，直到 ctx 结束；interval <= 0 时直接返回
func (s *QuoteBookService) RunRefresher(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.Rebuild(ctx); err != nil {
				logger.Warn(ctx, "scheduled rebuild failed, keeping previous snapshot", "error", err)
			}
		}
	}
}
