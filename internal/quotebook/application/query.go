package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wyfcoding/quotebook/internal/quotebook/domain"
	"github.com/wyfcoding/quotebook/pkg/logger"
)

// PointInTime 查询 symbol 在指定时刻的最优买卖报价
func (s *QuoteBookService) PointInTime(ctx context.Context, req PointInTimeRequest) (*domain.QueryResult, error) {
	res, _, _, err := s.query(ctx, req)
	return res, err
}

// QueryNbbo 查询并转换为 JSON 结构
func (s *QuoteBookService) QueryNbbo(ctx context.Context, req PointInTimeRequest) (*NbboDTO, error) {
	res, snapshotID, limit, err := s.query(ctx, req)
	if err != nil {
		return nil, err
	}
	return ToNbboDTO(res, limit, snapshotID), nil
}

// Report 查询并渲染文本报表，lineSeparator 为行分隔符
func (s *QuoteBookService) Report(ctx context.Context, req PointInTimeRequest, lineSeparator string) (string, error) {
	res, err := s.PointInTime(ctx, req)
	if err != nil {
		return "", err
	}
	return ReportFormatter{LineSeparator: lineSeparator}.Format(res), nil
}

func (s *QuoteBookService) query(ctx context.Context, req PointInTimeRequest) (*domain.QueryResult, uint64, int, error) {
	start := time.Now()

	symbol := strings.TrimSpace(req.Symbol)
	if symbol == "" {
		s.metrics.RecordQuery("invalid", 0, time.Since(start))
		return nil, 0, 0, domain.ErrSymbolRequired
	}
	pointInTime, err := domain.ParseTimestamp(req.PointInTime)
	if err != nil {
		s.metrics.RecordQuery("invalid", 0, time.Since(start))
		return nil, 0, 0, err
	}

	settings := s.Settings()
	limit := settings.ResultLimit
	if req.Limit != nil {
		if *req.Limit < 0 {
			s.metrics.RecordQuery("invalid", 0, time.Since(start))
			return nil, 0, 0, fmt.Errorf("%w: %d", domain.ErrInvalidLimit, *req.Limit)
		}
		limit = *req.Limit
	}

	var (
		store      *domain.QuoteStore
		snapshotID uint64
	)
	if snap := s.snapshot.Load(); snap != nil {
		store = snap.Store
		snapshotID = snap.ID
	}

	res := domain.PointInTime(store, symbol, pointInTime, limit, settings.Window)

	result := "ok"
	if res.LiveCount == 0 {
		result = "empty"
	}
	s.metrics.RecordQuery(result, res.LiveCount, time.Since(start))
	logger.Debug(ctx, "nbbo query",
		"symbol", symbol,
		"point_in_time", req.PointInTime,
		"limit", limit,
		"live", res.LiveCount,
		"snapshot_id", snapshotID,
	)
	return res, snapshotID, limit, nil
}

// Snapshot 返回当前快照信息，尚未构建时 Ready 为 false
func (s *QuoteBookService) Snapshot() *SnapshotDTO {
	return toSnapshotDTO(s.snapshot.Load())
}

// Ready 是否已有可查询的快照
func (s *QuoteBookService) Ready() bool {
	return s.snapshot.Load() != nil
}

func toSnapshotDTO(snap *domain.Snapshot) *SnapshotDTO {
	if snap == nil {
		return &SnapshotDTO{}
	}
	return &SnapshotDTO{
		Ready:      true,
		ID:         snap.ID,
		QuoteCount: snap.Store.Len(),
		Symbols:    snap.Store.Symbols(),
		BuiltAt:    domain.FormatTimestamp(snap.BuiltAt),
		Source:     snap.Source,
	}
}
