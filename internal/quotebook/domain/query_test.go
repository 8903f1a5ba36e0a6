package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ts(t *testing.T, s string) time.Time {
	t.Helper()
	v, err := ParseTimestamp(s)
	require.NoError(t, err)
	return v
}

func newQuote(t *testing.T, symbol, bid, ask string, bidQty, askQty int64, start, end, seq string) Quote {
	t.Helper()
	return Quote{
		Symbol:       symbol,
		MarketCenter: "NASDAQ",
		BidQuantity:  bidQty,
		AskQuantity:  askQty,
		BidPrice:     decimal.RequireFromString(bid),
		AskPrice:     decimal.RequireFromString(ask),
		StartTime:    ts(t, start),
		EndTime:      ts(t, end),
		SipFeedSeq:   seq,
		SipFeed:      "Q",
	}
}

func TestPointInTime_SingleLiveQuote(t *testing.T) {
	store := NewQuoteStore([]Quote{
		newQuote(t, "AAPL", "129.46", "129.50", 100, 200,
			"2021-02-18T09:58:59.200Z", "2021-02-18T09:58:59.300Z", "1"),
	})

	res := PointInTime(store, "AAPL", ts(t, "2021-02-18T09:58:59.262Z"), 5, WindowInclusive)

	assert.Equal(t, 1, res.LiveCount)
	require.Len(t, res.BestBids, 1)
	assert.True(t, res.BestBids[0].BidPrice.Equal(decimal.RequireFromString("129.46")))
	assert.Equal(t, int64(100), res.BestBids[0].BidQuantity)
	require.Len(t, res.BestAsks, 1)
}

func TestPointInTime_NoLiveQuotes(t *testing.T) {
	store := NewQuoteStore([]Quote{
		newQuote(t, "AAPL", "129.46", "129.50", 100, 200,
			"2021-02-18T09:58:59.200Z", "2021-02-18T09:58:59.300Z", "1"),
	})

	res := PointInTime(store, "AAPL", ts(t, "2021-02-18T09:50:59.262Z"), 5, WindowInclusive)

	assert.Zero(t, res.LiveCount)
	assert.Empty(t, res.BestBids)
	assert.Empty(t, res.BestAsks)
	assert.NotNil(t, res.BestBids)
	assert.NotNil(t, res.BestAsks)
}

func TestPointInTime_UnknownSymbol(t *testing.T) {
	store := NewQuoteStore([]Quote{
		newQuote(t, "AAPL", "129.46", "129.50", 100, 200,
			"2021-02-18T09:58:59.200Z", "2021-02-18T09:58:59.300Z", "1"),
	})

	res := PointInTime(store, "MSFT", ts(t, "2021-02-18T09:58:59.262Z"), 5, WindowInclusive)
	assert.Empty(t, res.BestBids)
	assert.Empty(t, res.BestAsks)
}

func TestPointInTime_NilStore(t *testing.T) {
	res := PointInTime(nil, "AAPL", ts(t, "2021-02-18T09:58:59.262Z"), 5, WindowInclusive)
	assert.Zero(t, res.LiveCount)
	assert.Empty(t, res.BestBids)
	assert.Empty(t, res.BestAsks)
}

func TestPointInTime_InclusiveEndBoundary(t *testing.T) {
	store := NewQuoteStore([]Quote{
		newQuote(t, "AAPL", "129.46", "129.50", 100, 200,
			"2021-02-18T10:00:00.000Z", "2021-02-18T10:00:01.000Z", "1"),
	})

	atEnd := PointInTime(store, "AAPL", ts(t, "2021-02-18T10:00:01.000Z"), 5, WindowInclusive)
	assert.Equal(t, 1, atEnd.LiveCount)

	atStart := PointInTime(store, "AAPL", ts(t, "2021-02-18T10:00:00.000Z"), 5, WindowInclusive)
	assert.Equal(t, 1, atStart.LiveCount)

	after := PointInTime(store, "AAPL", ts(t, "2021-02-18T10:00:01.001Z"), 5, WindowInclusive)
	assert.Zero(t, after.LiveCount)
}

func TestPointInTime_ExclusivePolicyDropsBoundaries(t *testing.T) {
	store := NewQuoteStore([]Quote{
		newQuote(t, "AAPL", "129.46", "129.50", 100, 200,
			"2021-02-18T10:00:00.000Z", "2021-02-18T10:00:01.000Z", "1"),
	})

	assert.Zero(t, PointInTime(store, "AAPL", ts(t, "2021-02-18T10:00:01.000Z"), 5, WindowExclusive).LiveCount)
	assert.Zero(t, PointInTime(store, "AAPL", ts(t, "2021-02-18T10:00:00.000Z"), 5, WindowExclusive).LiveCount)
	assert.Equal(t, 1, PointInTime(store, "AAPL", ts(t, "2021-02-18T10:00:00.500Z"), 5, WindowExclusive).LiveCount)
}

func TestPointInTime_LimitClampsAndTruncates(t *testing.T) {
	store := NewQuoteStore([]Quote{
		newQuote(t, "AAPL", "129.40", "129.60", 100, 100,
			"2021-02-18T10:00:00.000Z", "2021-02-18T10:00:05.000Z", "1"),
		newQuote(t, "AAPL", "129.45", "129.55", 200, 200,
			"2021-02-18T10:00:00.000Z", "2021-02-18T10:00:05.000Z", "2"),
		newQuote(t, "AAPL", "129.42", "129.52", 300, 300,
			"2021-02-18T10:00:00.000Z", "2021-02-18T10:00:05.000Z", "3"),
	})
	at := ts(t, "2021-02-18T10:00:01.000Z")

	res := PointInTime(store, "AAPL", at, 5, WindowInclusive)
	assert.Len(t, res.BestBids, 3)
	assert.Len(t, res.BestAsks, 3)

	res = PointInTime(store, "AAPL", at, 2, WindowInclusive)
	require.Len(t, res.BestBids, 2)
	assert.Equal(t, "2", res.BestBids[0].SipFeedSeq)
	assert.Equal(t, "3", res.BestBids[1].SipFeedSeq)
	require.Len(t, res.BestAsks, 2)
	assert.Equal(t, "3", res.BestAsks[0].SipFeedSeq)
	assert.Equal(t, "2", res.BestAsks[1].SipFeedSeq)
	assert.Equal(t, 3, res.LiveCount)

	res = PointInTime(store, "AAPL", at, 0, WindowInclusive)
	assert.Empty(t, res.BestBids)
	assert.Empty(t, res.BestAsks)
}

func TestPointInTime_Idempotent(t *testing.T) {
	store := NewQuoteStore([]Quote{
		newQuote(t, "AAPL", "129.46", "129.50", 100, 200,
			"2021-02-18T10:00:00.000Z", "2021-02-18T10:00:05.000Z", "1"),
		newQuote(t, "AAPL", "129.46", "129.49", 300, 400,
			"2021-02-18T10:00:00.000Z", "2021-02-18T10:00:05.000Z", "2"),
	})
	before := store.Quotes()
	at := ts(t, "2021-02-18T10:00:01.000Z")

	first := PointInTime(store, "AAPL", at, 5, WindowInclusive)
	second := PointInTime(store, "AAPL", at, 5, WindowInclusive)

	assert.Equal(t, first, second)
	assert.Equal(t, before, store.Quotes())
}
