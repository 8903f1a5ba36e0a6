package domain

import "time"

// QueryResult 某一时刻的 NBBO 查询结果，每次查询新建，不做缓存
type QueryResult struct {
	Symbol      string
	PointInTime time.Time
	// LiveCount 截断前的有效报价数量
	LiveCount int
	// BestBids 买价从高到低
	BestBids []Quote
	// BestAsks 卖价从低到高
	BestAsks []Quote
}

// PointInTime 查询 symbol 在 pointInTime 时刻的最优买卖报价
// 有效报价只过滤一次，两种排序基于同一个有效集合，各自截断到 limit
func PointInTime(store *QuoteStore, symbol string, pointInTime time.Time, limit int, policy WindowPolicy) *QueryResult {
	live := store.LiveQuotes(symbol, pointInTime, policy)
	return &QueryResult{
		Symbol:      symbol,
		PointInTime: pointInTime,
		LiveCount:   len(live),
		BestBids:    TopN(RankBestBids(live), limit),
		BestAsks:    TopN(RankBestAsks(live), limit),
	}
}
