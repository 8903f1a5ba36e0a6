// Package application 报价簿应用服务：快照重建（Command）与时点查询（Query）
package application

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sony/sonyflake"
	"github.com/wyfcoding/quotebook/internal/quotebook/domain"
	"github.com/wyfcoding/quotebook/pkg/metrics"
)

// Settings 可热更新的查询参数
type Settings struct {
	ResultLimit int
	Window      domain.WindowPolicy
}

// ServiceConfig 服务构造参数
type ServiceConfig struct {
	ResultLimit    int
	WindowBoundary string
	// SnapshotTopic 为空时不发布快照重建事件
	SnapshotTopic string
	// NodeID 快照 ID 生成器的机器号
	NodeID uint16
}

// QuoteBookService 持有当前报价快照，查询读取快照，重建整体替换快照
type QuoteBookService struct {
	source        domain.QuoteSource
	publisher     domain.EventPublisher
	snapshotTopic string
	metrics       *metrics.Metrics
	idgen         *sonyflake.Sonyflake
	now           func() time.Time

	snapshot  atomic.Pointer[domain.Snapshot]
	settings  atomic.Pointer[Settings]
	rebuildMu sync.Mutex

	listenerMu sync.RWMutex
	listeners  []func(*domain.Snapshot)
}

// NewQuoteBookService 创建服务，快照为空直到第一次 Rebuild 成功
func NewQuoteBookService(source domain.QuoteSource, publisher domain.EventPublisher, m *metrics.Metrics, cfg ServiceConfig) (*QuoteBookService, error) {
	policy, err := domain.ParseWindowPolicy(cfg.WindowBoundary)
	if err != nil {
		return nil, err
	}
	if cfg.ResultLimit < 0 {
		return nil, fmt.Errorf("%w: %d", domain.ErrInvalidLimit, cfg.ResultLimit)
	}

	nodeID := cfg.NodeID
	sf := sonyflake.NewSonyflake(sonyflake.Settings{
		StartTime: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
		MachineID: func() (uint16, error) { return nodeID, nil },
	})
	if sf == nil {
		return nil, fmt.Errorf("failed to create snapshot id generator")
	}

	s := &QuoteBookService{
		source:        source,
		publisher:     publisher,
		snapshotTopic: cfg.SnapshotTopic,
		metrics:       m,
		idgen:         sf,
		now:           time.Now,
	}
	s.settings.Store(&Settings{ResultLimit: cfg.ResultLimit, Window: policy})
	return s, nil
}

// Settings 返回当前查询参数
func (s *QuoteBookService) Settings() Settings {
	return *s.settings.Load()
}

// UpdateSettings 热更新结果条数与时间窗边界，参数非法时保持原值
func (s *QuoteBookService) UpdateSettings(limit int, boundary string) error {
	if limit < 0 {
		return fmt.Errorf("%w: %d", domain.ErrInvalidLimit, limit)
	}
	policy, err := domain.ParseWindowPolicy(boundary)
	if err != nil {
		return err
	}
	s.settings.Store(&Settings{ResultLimit: limit, Window: policy})
	return nil
}

// OnRebuilt 注册快照替换后的回调，例如切换 gRPC 健康状态
func (s *QuoteBookService) OnRebuilt(fn func(*domain.Snapshot)) {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *QuoteBookService) notify(snap *domain.Snapshot) {
	s.listenerMu.RLock()
	defer s.listenerMu.RUnlock()
	for _, fn := range s.listeners {
		fn(snap)
	}
}
