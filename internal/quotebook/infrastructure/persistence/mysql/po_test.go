package mysql

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/wyfcoding/quotebook/internal/quotebook/domain"
)

func TestQuotePORoundTripKeepsDomainFields(t *testing.T) {
	start := time.Date(2021, 2, 18, 9, 58, 59, 200_000_000, time.UTC)
	q := domain.Quote{
		Symbol:          "AAPL",
		MarketCenter:    "NASDAQ",
		BidQuantity:     100,
		AskQuantity:     200,
		BidPrice:        decimal.RequireFromString("129.46"),
		AskPrice:        decimal.RequireFromString("129.50"),
		StartTime:       start,
		EndTime:         start.Add(100 * time.Millisecond),
		QuoteConditions: "R",
		SipFeedSeq:      "10000127",
		SipFeed:         "Q",
	}

	var po QuotePO
	po.FromDomain(q)
	got := po.ToDomain()

	assert.Equal(t, q.Symbol, got.Symbol)
	assert.Equal(t, q.MarketCenter, got.MarketCenter)
	assert.True(t, q.BidPrice.Equal(got.BidPrice))
	assert.True(t, q.StartTime.Equal(got.StartTime))
	assert.Equal(t, q.SipFeedSeq, got.SipFeedSeq)
	assert.Equal(t, "nbbo_quotes", po.TableName())
	assert.Equal(t, "mysql:nbbo_quotes", NewQuoteSource(nil).Describe())
}
