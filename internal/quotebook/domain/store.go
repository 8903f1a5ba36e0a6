package domain

import (
	"slices"
	"time"
)

// QuoteStore 不可变报价集合
// 保留入库顺序，构建后不再修改；重建时整体替换而不是原地更新
type QuoteStore struct {
	quotes []Quote
}

// NewQuoteStore 以 quotes 的副本构建报价集合
func NewQuoteStore(quotes []Quote) *QuoteStore {
	return &QuoteStore{quotes: slices.Clone(quotes)}
}

// Len 报价数量，nil 集合视为空
func (s *QuoteStore) Len() int {
	if s == nil {
		return 0
	}
	return len(s.quotes)
}

// Quotes 返回全部报价的副本
func (s *QuoteStore) Quotes() []Quote {
	if s == nil {
		return nil
	}
	return slices.Clone(s.quotes)
}

// Symbols 按首次出现顺序返回去重后的交易标的
func (s *QuoteStore) Symbols() []string {
	if s == nil {
		return nil
	}
	seen := make(map[string]struct{})
	symbols := make([]string, 0)
	for i := range s.quotes {
		sym := s.quotes[i].Symbol
		if _, ok := seen[sym]; ok {
			continue
		}
		seen[sym] = struct{}{}
		symbols = append(symbols, sym)
	}
	return symbols
}

// LiveQuotes 返回 pointInTime 时刻对 symbol 有效的报价，保持入库顺序
// 未构建的集合、未知标的或没有覆盖该时刻的报价都返回空切片
func (s *QuoteStore) LiveQuotes(symbol string, pointInTime time.Time, policy WindowPolicy) []Quote {
	live := make([]Quote, 0)
	if s == nil {
		return live
	}
	for i := range s.quotes {
		if s.quotes[i].IsLive(symbol, pointInTime, policy) {
			live = append(live, s.quotes[i])
		}
	}
	return live
}

// Snapshot 某次构建得到的报价快照及其元信息
type Snapshot struct {
	// ID 快照 ID（单调递增）
	ID uint64
	// Store 报价集合
	Store *QuoteStore
	// BuiltAt 构建完成时间
	BuiltAt time.Time
	// Source 数据来源描述（文件路径、表名等）
	Source string
}
