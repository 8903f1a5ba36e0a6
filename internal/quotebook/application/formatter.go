package application

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/quotebook/internal/quotebook/domain"
)

const (
	// HTMLLineBreak 浏览器展示用的换行
	HTMLLineBreak = "<br />\n"
	// TextLineBreak 纯文本换行
	TextLineBreak = "\n"
)

// ReportFormatter 把查询结果渲染为两行文本报表：
//
//	$AAPL (2021-02-18T10:08:52.868Z)
//	Best Bids: 129.46(100); 129.45(300);
//	Best Asks: 129.48(400); 129.49(100);
type ReportFormatter struct {
	LineSeparator string
}

// Format 渲染报表，每条报价后都跟 "; "
func (f ReportFormatter) Format(res *domain.QueryResult) string {
	var b strings.Builder
	b.WriteString("$")
	b.WriteString(res.Symbol)
	b.WriteString(" (")
	b.WriteString(domain.FormatTimestamp(res.PointInTime))
	b.WriteString(")")
	b.WriteString(f.LineSeparator)

	b.WriteString("Best Bids: ")
	for i := range res.BestBids {
		writeEntry(&b, res.BestBids[i].BidPrice, res.BestBids[i].BidQuantity)
	}

	b.WriteString(f.LineSeparator)
	b.WriteString("Best Asks: ")
	for i := range res.BestAsks {
		writeEntry(&b, res.BestAsks[i].AskPrice, res.BestAsks[i].AskQuantity)
	}
	return b.String()
}

func writeEntry(b *strings.Builder, price decimal.Decimal, qty int64) {
	b.WriteString(FormatPrice(price))
	b.WriteString("(")
	b.WriteString(strconv.FormatInt(qty, 10))
	b.WriteString("); ")
}

// FormatPrice 按入库时的小数位输出价格，129.40 不会变成 129.4
func FormatPrice(d decimal.Decimal) string {
	if exp := d.Exponent(); exp < 0 {
		return d.StringFixed(-exp)
	}
	return d.String()
}

// ToNbboDTO 转换为 JSON 响应结构
func ToNbboDTO(res *domain.QueryResult, limit int, snapshotID uint64) *NbboDTO {
	dto := &NbboDTO{
		Symbol:      res.Symbol,
		PointInTime: domain.FormatTimestamp(res.PointInTime),
		Limit:       limit,
		LiveCount:   res.LiveCount,
		SnapshotID:  snapshotID,
		BestBids:    make([]QuoteEntryDTO, 0, len(res.BestBids)),
		BestAsks:    make([]QuoteEntryDTO, 0, len(res.BestAsks)),
	}
	for i := range res.BestBids {
		q := &res.BestBids[i]
		dto.BestBids = append(dto.BestBids, toEntry(q, q.BidPrice, q.BidQuantity))
	}
	for i := range res.BestAsks {
		q := &res.BestAsks[i]
		dto.BestAsks = append(dto.BestAsks, toEntry(q, q.AskPrice, q.AskQuantity))
	}
	return dto
}

func toEntry(q *domain.Quote, price decimal.Decimal, qty int64) QuoteEntryDTO {
	return QuoteEntryDTO{
		Price:           FormatPrice(price),
		Quantity:        qty,
		MarketCenter:    q.MarketCenter,
		StartTime:       domain.FormatTimestamp(q.StartTime),
		EndTime:         domain.FormatTimestamp(q.EndTime),
		QuoteConditions: q.QuoteConditions,
		SipFeedSeq:      q.SipFeedSeq,
		SipFeed:         q.SipFeed,
	}
}
