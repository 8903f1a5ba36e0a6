package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/quotebook/internal/quotebook/domain"
	"github.com/wyfcoding/quotebook/pkg/metrics"
)

type fakeSource struct {
	mu     sync.Mutex
	quotes []domain.Quote
	err    error
	calls  int
}

func (f *fakeSource) Load(context.Context) ([]domain.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.quotes, nil
}

func (f *fakeSource) Describe() string { return "fake" }

func (f *fakeSource) set(quotes []domain.Quote, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quotes, f.err = quotes, err
}

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	events []any
}

func (p *recordingPublisher) Publish(_ context.Context, topic, _ string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.events = append(p.events, event)
	return nil
}

func quote(t *testing.T, symbol, bid, ask string, bidQty, askQty int64, start, end string) domain.Quote {
	t.Helper()
	s, err := domain.ParseTimestamp(start)
	require.NoError(t, err)
	e, err := domain.ParseTimestamp(end)
	require.NoError(t, err)
	return domain.Quote{
		Symbol:       symbol,
		MarketCenter: "NASDAQ",
		BidQuantity:  bidQty,
		AskQuantity:  askQty,
		BidPrice:     decimal.RequireFromString(bid),
		AskPrice:     decimal.RequireFromString(ask),
		StartTime:    s,
		EndTime:      e,
		SipFeed:      "Q",
	}
}

func newService(t *testing.T, src domain.QuoteSource, pub domain.EventPublisher, m *metrics.Metrics) *QuoteBookService {
	t.Helper()
	svc, err := NewQuoteBookService(src, pub, m, ServiceConfig{
		ResultLimit:   5,
		SnapshotTopic: "quotebook.snapshot.rebuilt",
		NodeID:        1,
	})
	require.NoError(t, err)
	return svc
}

func intPtr(v int) *int { return &v }

func TestNewQuoteBookService_RejectsBadConfig(t *testing.T) {
	_, err := NewQuoteBookService(&fakeSource{}, nil, nil, ServiceConfig{WindowBoundary: "half-open"})
	assert.ErrorIs(t, err, domain.ErrUnknownWindowPolicy)

	_, err = NewQuoteBookService(&fakeSource{}, nil, nil, ServiceConfig{ResultLimit: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidLimit)
}

func TestPointInTime_BeforeFirstRebuildIsEmpty(t *testing.T) {
	svc := newService(t, &fakeSource{}, nil, nil)

	res, err := svc.PointInTime(context.Background(), PointInTimeRequest{
		Symbol:      "AAPL",
		PointInTime: "2021-02-18T09:58:59.262Z",
	})
	require.NoError(t, err)
	assert.Zero(t, res.LiveCount)
	assert.Empty(t, res.BestBids)
	assert.False(t, svc.Snapshot().Ready)
	assert.False(t, svc.Ready())
}

func TestPointInTime_SingleLiveQuote(t *testing.T) {
	src := &fakeSource{quotes: []domain.Quote{
		quote(t, "AAPL", "129.46", "129.50", 100, 200, "2021-02-18T09:58:59.200Z", "2021-02-18T09:58:59.300Z"),
	}}
	svc := newService(t, src, nil, nil)
	_, err := svc.Rebuild(context.Background())
	require.NoError(t, err)

	res, err := svc.PointInTime(context.Background(), PointInTimeRequest{
		Symbol:      "AAPL",
		PointInTime: "2021-02-18T09:58:59.262Z",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.LiveCount)
	require.Len(t, res.BestBids, 1)
	assert.Equal(t, "129.46", FormatPrice(res.BestBids[0].BidPrice))
}

func TestPointInTime_InvalidInput(t *testing.T) {
	svc := newService(t, &fakeSource{}, nil, nil)
	ctx := context.Background()

	_, err := svc.PointInTime(ctx, PointInTimeRequest{Symbol: "  ", PointInTime: "2021-02-18T09:58:59.262Z"})
	assert.ErrorIs(t, err, domain.ErrSymbolRequired)

	_, err = svc.PointInTime(ctx, PointInTimeRequest{Symbol: "AAPL", PointInTime: "2021-02-18 09:58:59"})
	assert.ErrorIs(t, err, domain.ErrInvalidTimestamp)

	_, err = svc.PointInTime(ctx, PointInTimeRequest{Symbol: "AAPL", PointInTime: "2021-02-18T09:58:59.262Z", Limit: intPtr(-1)})
	assert.ErrorIs(t, err, domain.ErrInvalidLimit)
}

func TestPointInTime_LimitOverrideAndSettings(t *testing.T) {
	src := &fakeSource{quotes: []domain.Quote{
		quote(t, "AAPL", "129.40", "129.60", 100, 100, "2021-02-18T10:00:00.000Z", "2021-02-18T10:00:01.000Z"),
		quote(t, "AAPL", "129.46", "129.50", 200, 200, "2021-02-18T10:00:00.000Z", "2021-02-18T10:00:01.000Z"),
		quote(t, "AAPL", "129.45", "129.55", 300, 300, "2021-02-18T10:00:00.000Z", "2021-02-18T10:00:01.000Z"),
	}}
	svc := newService(t, src, nil, nil)
	ctx := context.Background()
	_, err := svc.Rebuild(ctx)
	require.NoError(t, err)

	req := PointInTimeRequest{Symbol: "AAPL", PointInTime: "2021-02-18T10:00:01.000Z"}

	res, err := svc.PointInTime(ctx, req)
	require.NoError(t, err)
	assert.Len(t, res.BestBids, 3)

	req.Limit = intPtr(1)
	dto, err := svc.QueryNbbo(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 1, dto.Limit)
	assert.Equal(t, 3, dto.LiveCount)
	require.Len(t, dto.BestBids, 1)
	assert.Equal(t, "129.46", dto.BestBids[0].Price)
	require.Len(t, dto.BestAsks, 1)
	assert.Equal(t, "129.50", dto.BestAsks[0].Price)

	require.NoError(t, svc.UpdateSettings(2, "exclusive"))
	req.Limit = nil
	res, err = svc.PointInTime(ctx, req)
	require.NoError(t, err)
	// 10:00:01.000 恰好是结束时刻，开区间下不再有效
	assert.Zero(t, res.LiveCount)

	assert.Error(t, svc.UpdateSettings(-3, "inclusive"))
	assert.Equal(t, Settings{ResultLimit: 2, Window: domain.WindowExclusive}, svc.Settings())
}

func TestReport_IsIdempotent(t *testing.T) {
	src := &fakeSource{quotes: []domain.Quote{
		quote(t, "AAPL", "129.46", "129.48", 100, 400, "2021-02-18T10:08:52.000Z", "2021-02-18T10:08:53.000Z"),
		quote(t, "AAPL", "129.45", "129.49", 300, 100, "2021-02-18T10:08:52.500Z", "2021-02-18T10:08:53.000Z"),
	}}
	svc := newService(t, src, nil, nil)
	ctx := context.Background()
	_, err := svc.Rebuild(ctx)
	require.NoError(t, err)

	req := PointInTimeRequest{Symbol: "AAPL", PointInTime: "2021-02-18T10:08:52.868Z"}
	first, err := svc.Report(ctx, req, HTMLLineBreak)
	require.NoError(t, err)
	second, err := svc.Report(ctx, req, HTMLLineBreak)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t,
		"$AAPL (2021-02-18T10:08:52.868Z)<br />\n"+
			"Best Bids: 129.46(100); 129.45(300); <br />\n"+
			"Best Asks: 129.48(400); 129.49(100); ",
		first)
}

func TestRebuild_ReplacesSnapshotAndPublishes(t *testing.T) {
	src := &fakeSource{quotes: []domain.Quote{
		quote(t, "AAPL", "129.46", "129.50", 100, 200, "2021-02-18T09:58:59.200Z", "2021-02-18T09:58:59.300Z"),
	}}
	pub := &recordingPublisher{}
	m := metrics.New("quotebook_test")
	svc := newService(t, src, pub, m)

	var notified []uint64
	svc.OnRebuilt(func(s *domain.Snapshot) { notified = append(notified, s.ID) })

	ctx := context.Background()
	first, err := svc.Rebuild(ctx)
	require.NoError(t, err)
	assert.True(t, first.Ready)
	assert.Equal(t, 1, first.QuoteCount)
	assert.Equal(t, []string{"AAPL"}, first.Symbols)
	assert.Equal(t, "fake", first.Source)

	src.set([]domain.Quote{
		quote(t, "AAPL", "129.46", "129.50", 100, 200, "2021-02-18T09:58:59.200Z", "2021-02-18T09:58:59.300Z"),
		quote(t, "MSFT", "243.10", "243.20", 100, 100, "2021-02-18T09:58:59.200Z", "2021-02-18T09:58:59.300Z"),
	}, nil)
	second, err := svc.Rebuild(ctx)
	require.NoError(t, err)
	assert.Greater(t, second.ID, first.ID)
	assert.Equal(t, 2, svc.Snapshot().QuoteCount)
	assert.Equal(t, []uint64{first.ID, second.ID}, notified)

	require.Len(t, pub.events, 2)
	assert.Equal(t, "quotebook.snapshot.rebuilt", pub.topics[1])
	event, ok := pub.events[1].(domain.SnapshotRebuiltEvent)
	require.True(t, ok)
	assert.Equal(t, second.ID, event.SnapshotID)
	assert.Equal(t, []string{"AAPL", "MSFT"}, event.Symbols)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.SnapshotRebuildsTotal.WithLabelValues("success")))
}

func TestRebuild_FailureKeepsPreviousSnapshot(t *testing.T) {
	src := &fakeSource{quotes: []domain.Quote{
		quote(t, "AAPL", "129.46", "129.50", 100, 200, "2021-02-18T09:58:59.200Z", "2021-02-18T09:58:59.300Z"),
	}}
	svc := newService(t, src, nil, nil)
	ctx := context.Background()

	before, err := svc.Rebuild(ctx)
	require.NoError(t, err)

	src.set(nil, errors.New("disk gone"))
	_, err = svc.Rebuild(ctx)
	require.Error(t, err)

	after := svc.Snapshot()
	assert.Equal(t, before.ID, after.ID)

	res, err := svc.PointInTime(ctx, PointInTimeRequest{Symbol: "AAPL", PointInTime: "2021-02-18T09:58:59.262Z"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.LiveCount)
}

func TestRunRefresher_RebuildsUntilCancelled(t *testing.T) {
	src := &fakeSource{}
	svc := newService(t, src, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.RunRefresher(ctx, 10*time.Millisecond) }()

	require.Eventually(t, svc.Ready, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.NoError(t, svc.RunRefresher(context.Background(), 0))
}

func TestPointInTime_ConcurrentWithRebuild(t *testing.T) {
	live := func(n int) []domain.Quote {
		quotes := make([]domain.Quote, 0, n)
		for i := range n {
			bid := decimal.RequireFromString("129.00").Add(decimal.New(int64(i), -2))
			ask := bid.Add(decimal.RequireFromString("0.05"))
			quotes = append(quotes, quote(t, "AAPL", bid.String(), ask.String(), int64(100+i), int64(100+i),
				"2021-02-18T10:00:00.000Z", "2021-02-18T10:00:01.000Z"))
		}
		return quotes
	}
	small, large := live(1), live(50)

	src := &fakeSource{quotes: small}
	svc, err := NewQuoteBookService(src, nil, nil, ServiceConfig{ResultLimit: 100, NodeID: 1})
	require.NoError(t, err)
	ctx := context.Background()
	_, err = svc.Rebuild(ctx)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := range 200 {
			if i%2 == 0 {
				src.set(large, nil)
			} else {
				src.set(small, nil)
			}
			if _, err := svc.Rebuild(ctx); err != nil {
				t.Errorf("rebuild %d: %v", i, err)
				return
			}
		}
	}()

	req := PointInTimeRequest{Symbol: "AAPL", PointInTime: "2021-02-18T10:00:00.500Z"}
	for range 2000 {
		res, err := svc.PointInTime(ctx, req)
		require.NoError(t, err)
		// 查询只会看到完整的旧快照或完整的新快照
		if res.LiveCount != 1 && res.LiveCount != 50 {
			t.Fatalf("partial snapshot: live count %d", res.LiveCount)
		}
		require.Len(t, res.BestBids, res.LiveCount)
		require.Equal(t, len(res.BestBids), len(res.BestAsks))
	}
	<-done
}
