package mysql

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/quotebook/internal/quotebook/domain"
)

// QuotePO 历史报价表 nbbo_quotes 的行模型，ID 顺序即入库顺序
type QuotePO struct {
	ID              uint            `gorm:"primarykey"`
	Symbol          string          `gorm:"column:symbol;type:varchar(20);index:idx_symbol_window;not null"`
	MarketCenter    string          `gorm:"column:market_center;type:varchar(20);not null"`
	BidQuantity     int64           `gorm:"column:bid_quantity;type:bigint;not null"`
	AskQuantity     int64           `gorm:"column:ask_quantity;type:bigint;not null"`
	BidPrice        decimal.Decimal `gorm:"column:bid_price;type:decimal(20,8);not null"`
	AskPrice        decimal.Decimal `gorm:"column:ask_price;type:decimal(20,8);not null"`
	StartTime       time.Time       `gorm:"column:start_time;type:datetime(3);index:idx_symbol_window;not null"`
	EndTime         time.Time       `gorm:"column:end_time;type:datetime(3);not null"`
	QuoteConditions string          `gorm:"column:quote_conditions;type:varchar(32)"`
	SipFeedSeq      string          `gorm:"column:sip_feed_seq;type:varchar(32)"`
	SipFeed         string          `gorm:"column:sip_feed;type:varchar(8)"`
}

func (QuotePO) TableName() string { return "nbbo_quotes" }

func (po *QuotePO) ToDomain() domain.Quote {
	return domain.Quote{
		Symbol:          po.Symbol,
		MarketCenter:    po.MarketCenter,
		BidQuantity:     po.BidQuantity,
		AskQuantity:     po.AskQuantity,
		BidPrice:        po.BidPrice,
		AskPrice:        po.AskPrice,
		StartTime:       po.StartTime.UTC(),
		EndTime:         po.EndTime.UTC(),
		QuoteConditions: po.QuoteConditions,
		SipFeedSeq:      po.SipFeedSeq,
		SipFeed:         po.SipFeed,
	}
}

func (po *QuotePO) FromDomain(q domain.Quote) {
	po.Symbol = q.Symbol
	po.MarketCenter = q.MarketCenter
	po.BidQuantity = q.BidQuantity
	po.AskQuantity = q.AskQuantity
	po.BidPrice = q.BidPrice
	po.AskPrice = q.AskPrice
	po.StartTime = q.StartTime
	po.EndTime = q.EndTime
	po.QuoteConditions = q.QuoteConditions
	po.SipFeedSeq = q.SipFeedSeq
	po.SipFeed = q.SipFeed
}
