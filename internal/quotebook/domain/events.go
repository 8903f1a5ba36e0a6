package domain

// SnapshotRebuiltEvent 报价快照重建完成事件
type SnapshotRebuiltEvent struct {
	SnapshotID uint64   `json:"snapshot_id"`
	QuoteCount int      `json:"quote_count"`
	Symbols    []string `json:"symbols"`
	Source     string   `json:"source"`
	BuiltAt    int64    `json:"built_at"`
}

// RebuildRequestedEvent 外部请求重建快照（例如上游落地了新的报价文件）
type RebuildRequestedEvent struct {
	Reason      string `json:"reason"`
	RequestedBy string `json:"requested_by"`
}
