// Package domain 报价簿服务的领域模型：报价实体、不可变报价快照、时间窗过滤、NBBO 排序与截断
package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Quote 报价实体
// 代表某个交易标的在一个有效时间窗内由某个报价中心报出的买卖价，入库后不可修改
type Quote struct {
	// Symbol 交易标的（如 AAPL）
	Symbol string
	// MarketCenter 报价中心
	MarketCenter string
	// BidQuantity 买量
	BidQuantity int64
	// AskQuantity 卖量
	AskQuantity int64
	// BidPrice 买价
	BidPrice decimal.Decimal
	// AskPrice 卖价
	AskPrice decimal.Decimal
	// StartTime 有效期开始
	StartTime time.Time
	// EndTime 有效期结束
	EndTime time.Time
	// QuoteConditions 报价条件（透传）
	QuoteConditions string
	// SipFeedSeq SIP 序号（透传）
	SipFeedSeq string
	// SipFeed SIP 来源（透传）
	SipFeed string
}

// Validate 校验报价的基本不变量
func (q *Quote) Validate() error {
	if q.Symbol == "" {
		return fmt.Errorf("%w: symbol is empty", ErrInvalidQuote)
	}
	if q.BidQuantity < 0 || q.AskQuantity < 0 {
		return fmt.Errorf("%w: negative quantity", ErrInvalidQuote)
	}
	if q.BidPrice.IsNegative() || q.AskPrice.IsNegative() {
		return fmt.Errorf("%w: negative price", ErrInvalidQuote)
	}
	if q.EndTime.Before(q.StartTime) {
		return fmt.Errorf("%w: end time %s before start time %s",
			ErrInvalidQuote, FormatTimestamp(q.EndTime), FormatTimestamp(q.StartTime))
	}
	return nil
}

// IsLive 判断报价在 pointInTime 时刻对 symbol 是否有效
func (q *Quote) IsLive(symbol string, pointInTime time.Time, policy WindowPolicy) bool {
	if q.Symbol != symbol {
		return false
	}
	return policy.Contains(q.StartTime, q.EndTime, pointInTime)
}

// GetSpread 获取买卖价差
func (q *Quote) GetSpread() decimal.Decimal {
	return q.AskPrice.Sub(q.BidPrice)
}

// GetMidPrice 获取中间价
func (q *Quote) GetMidPrice() decimal.Decimal {
	return q.BidPrice.Add(q.AskPrice).Div(decimal.NewFromInt(2))
}
