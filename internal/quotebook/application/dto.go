package application

// PointInTimeRequest 时点查询请求
type PointInTimeRequest struct {
	Symbol string
	// PointInTime 查询时刻，格式 2006-01-02T15:04:05.000Z
	PointInTime string
	// Limit 每侧返回条数，nil 时使用配置值
	Limit *int
}

// QuoteEntryDTO 排序结果中的一条报价
type QuoteEntryDTO struct {
	Price           string `json:"price"`
	Quantity        int64  `json:"quantity"`
	MarketCenter    string `json:"market_center"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	QuoteConditions string `json:"quote_conditions,omitempty"`
	SipFeedSeq      string `json:"sip_feed_seq,omitempty"`
	SipFeed         string `json:"sip_feed,omitempty"`
}

// NbboDTO 时点查询结果
type NbboDTO struct {
	Symbol      string          `json:"symbol"`
	PointInTime string          `json:"point_in_time"`
	Limit       int             `json:"limit"`
	LiveCount   int             `json:"live_count"`
	SnapshotID  uint64          `json:"snapshot_id"`
	BestBids    []QuoteEntryDTO `json:"best_bids"`
	BestAsks    []QuoteEntryDTO `json:"best_asks"`
}

// SnapshotDTO 当前报价快照信息
type SnapshotDTO struct {
	Ready      bool     `json:"ready"`
	ID         uint64   `json:"id,omitempty"`
	QuoteCount int      `json:"quote_count"`
	Symbols    []string `json:"symbols,omitempty"`
	BuiltAt    string   `json:"built_at,omitempty"`
	Source     string   `json:"source,omitempty"`
}
