// Package csvsource 从报价 CSV 文件加载报价快照
package csvsource

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
	"github.com/wyfcoding/quotebook/internal/quotebook/domain"
)

// Headers 报价文件的列
var Headers = []string{
	"symbol", "marketCenter", "bidQuantity", "askQuantity", "bidPrice", "askPrice",
	"startTime", "endTime", "quoteConditions", "sipfeedSeq", "sipfeed",
}

// quoteRecord 报价文件的一行，字段保持原始文本，转换时逐列校验
type quoteRecord struct {
	Symbol          string `csv:"symbol"`
	MarketCenter    string `csv:"marketCenter"`
	BidQuantity     string `csv:"bidQuantity"`
	AskQuantity     string `csv:"askQuantity"`
	BidPrice        string `csv:"bidPrice"`
	AskPrice        string `csv:"askPrice"`
	StartTime       string `csv:"startTime"`
	EndTime         string `csv:"endTime"`
	QuoteConditions string `csv:"quoteConditions"`
	SipFeedSeq      string `csv:"sipfeedSeq"`
	SipFeed         string `csv:"sipfeed"`
}

// Source 基于文件路径的报价来源
type Source struct {
	path string
}

// New 创建 CSV 报价来源
func New(path string) *Source {
	return &Source{path: path}
}

// Describe 返回来源描述
func (s *Source) Describe() string {
	return "csv:" + s.path
}

// Load 读取整个文件并转换为报价列表
func (s *Source) Load(ctx context.Context) ([]domain.Quote, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open quotes file: %w", err)
	}
	defer f.Close()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Parse(f)
}

// Parse 解析带表头的报价 CSV，缺少任一列或任何一行无效都会使整体失败
func Parse(r io.Reader) ([]domain.Quote, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read quotes csv: %w", err)
	}
	if err := checkHeader(data); err != nil {
		return nil, err
	}

	var records []*quoteRecord
	if err := gocsv.UnmarshalBytes(data, &records); err != nil {
		return nil, fmt.Errorf("parse quotes csv: %w", err)
	}

	quotes := make([]domain.Quote, 0, len(records))
	for i, rec := range records {
		q, err := rec.toDomain()
		if err != nil {
			// 表头占第 1 行
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		quotes = append(quotes, q)
	}
	return quotes, nil
}

// checkHeader gocsv 对缺失的列静默留空，这里先确认 Headers 中的列都存在
func checkHeader(data []byte) error {
	header, err := csv.NewReader(bytes.NewReader(data)).Read()
	if err != nil {
		return fmt.Errorf("read quotes csv header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var missing []string
	for _, col := range Headers {
		if !slices.Contains(header, col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("quotes csv header missing columns: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (r *quoteRecord) toDomain() (domain.Quote, error) {
	bidQty, err := strconv.ParseInt(r.BidQuantity, 10, 64)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("bidQuantity %q: %w", r.BidQuantity, err)
	}
	askQty, err := strconv.ParseInt(r.AskQuantity, 10, 64)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("askQuantity %q: %w", r.AskQuantity, err)
	}
	bidPrice, err := decimal.NewFromString(r.BidPrice)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("bidPrice %q: %w", r.BidPrice, err)
	}
	askPrice, err := decimal.NewFromString(r.AskPrice)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("askPrice %q: %w", r.AskPrice, err)
	}
	start, err := domain.ParseTimestamp(r.StartTime)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("startTime: %w", err)
	}
	end, err := domain.ParseTimestamp(r.EndTime)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("endTime: %w", err)
	}

	q := domain.Quote{
		Symbol:          r.Symbol,
		MarketCenter:    r.MarketCenter,
		BidQuantity:     bidQty,
		AskQuantity:     askQty,
		BidPrice:        bidPrice,
		AskPrice:        askPrice,
		StartTime:       start,
		EndTime:         end,
		QuoteConditions: r.QuoteConditions,
		SipFeedSeq:      r.SipFeedSeq,
		SipFeed:         r.SipFeed,
	}
	if err := q.Validate(); err != nil {
		return domain.Quote{}, err
	}
	return q, nil
}
