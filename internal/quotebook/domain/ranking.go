package domain

import "slices"

// RankBestBids 按买价从高到低排序（NBB），价格相同保持输入顺序
// 返回新切片，不修改 quotes
func RankBestBids(quotes []Quote) []Quote {
	ranked := slices.Clone(quotes)
	slices.SortStableFunc(ranked, func(a, b Quote) int {
		return b.BidPrice.Cmp(a.BidPrice)
	})
	return ranked
}

// RankBestAsks 按卖价从低到高排序（NBO），价格相同保持输入顺序
// 返回新切片，不修改 quotes
func RankBestAsks(quotes []Quote) []Quote {
	ranked := slices.Clone(quotes)
	slices.SortStableFunc(ranked, func(a, b Quote) int {
		return a.AskPrice.Cmp(b.AskPrice)
	})
	return ranked
}

// TopN 返回前 min(limit, len(seq)) 个元素，limit 超出长度时返回全部，limit <= 0 返回空
func TopN[T any](seq []T, limit int) []T {
	if limit <= 0 {
		return make([]T, 0)
	}
	n := min(limit, len(seq))
	return seq[:n:n]
}
