package application

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/wyfcoding/quotebook/internal/quotebook/domain"
)

func TestFormatPrice_KeepsIngestedScale(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"129.40", "129.40"},
		{"129.4", "129.4"},
		{"129", "129"},
		{"0.0001", "0.0001"},
		{"1E2", "100"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatPrice(decimal.RequireFromString(tt.in)))
		})
	}
}

func TestReportFormatter_EmptyResult(t *testing.T) {
	at, err := domain.ParseTimestamp("2021-02-18T09:50:59.262Z")
	assert.NoError(t, err)

	got := ReportFormatter{LineSeparator: TextLineBreak}.Format(&domain.QueryResult{
		Symbol:      "AAPL",
		PointInTime: at,
	})

	assert.Equal(t, "$AAPL (2021-02-18T09:50:59.262Z)\nBest Bids: \nBest Asks: ", got)
}

func TestToNbboDTO_NeverNilSides(t *testing.T) {
	dto := ToNbboDTO(&domain.QueryResult{Symbol: "AAPL"}, 5, 7)

	assert.NotNil(t, dto.BestBids)
	assert.NotNil(t, dto.BestAsks)
	assert.Equal(t, uint64(7), dto.SnapshotID)
	assert.Equal(t, 5, dto.Limit)
}
