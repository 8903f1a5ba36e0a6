package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/quotebook/internal/quotebook/application"
	"github.com/wyfcoding/quotebook/internal/quotebook/domain"
)

type staticSource struct {
	quotes []domain.Quote
}

func (s staticSource) Load(context.Context) ([]domain.Quote, error) { return s.quotes, nil }
func (s staticSource) Describe() string { return "static" }

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	parsed, err := domain.ParseTimestamp(s)
	require.NoError(t, err)
	return parsed
}

func setupRouter(t *testing.T, rebuild bool) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	start := mustTime(t, "2021-02-18T10:08:52.000Z")
	end := mustTime(t, "2021-02-18T10:08:53.000Z")
	src := staticSource{quotes: []domain.Quote{
		{
			Symbol: "AAPL", MarketCenter: "NASDAQ",
			BidPrice: decimal.RequireFromString("129.46"), BidQuantity: 100,
			AskPrice: decimal.RequireFromString("129.48"), AskQuantity: 400,
			StartTime: start, EndTime: end, SipFeedSeq: "1",
		},
		{
			Symbol: "AAPL", MarketCenter: "EDGX",
			BidPrice: decimal.RequireFromString("129.45"), BidQuantity: 300,
			AskPrice: decimal.RequireFromString("129.49"), AskQuantity: 100,
			StartTime: start, EndTime: end, SipFeedSeq: "2",
		},
	}}

	svc, err := application.NewQuoteBookService(src, nil, nil, application.ServiceConfig{ResultLimit: 5, NodeID: 1})
	require.NoError(t, err)
	if rebuild {
		_, err = svc.Rebuild(context.Background())
		require.NoError(t, err)
	}

	router := gin.New()
	NewHandler(svc, "AAPL", "2021-02-18T10:08:52.868Z").RegisterRoutes(router)
	return router
}

func do(router *gin.Engine, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestDefaultReport(t *testing.T) {
	router := setupRouter(t, true)

	w := do(router, http.MethodGet, "/")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Equal(t,
		"$AAPL (2021-02-18T10:08:52.868Z)<br />\n"+
			"Best Bids: 129.46(100); 129.45(300); <br />\n"+
			"Best Asks: 129.48(400); 129.49(100); ",
		w.Body.String())
}

func TestGetReport_TextFormat(t *testing.T) {
	router := setupRouter(t, true)

	w := do(router, http.MethodGet, "/api/v1/quotebook/nbbo/report?symbol=AAPL&time=2021-02-18T10:08:52.868Z&limit=1&format=text")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "$AAPL (2021-02-18T10:08:52.868Z)\nBest Bids: 129.46(100); \nBest Asks: 129.48(400); ", w.Body.String())

	w = do(router, http.MethodGet, "/api/v1/quotebook/nbbo/report?symbol=AAPL&time=2021-02-18T10:08:52.868Z&format=pdf")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetNbbo(t *testing.T) {
	router := setupRouter(t, true)

	w := do(router, http.MethodGet, "/api/v1/quotebook/nbbo?symbol=AAPL&time=2021-02-18T10:08:52.868Z")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data application.NbboDTO `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "AAPL", body.Data.Symbol)
	assert.Equal(t, 2, body.Data.LiveCount)
	require.Len(t, body.Data.BestBids, 2)
	assert.Equal(t, "129.46", body.Data.BestBids[0].Price)
	assert.Equal(t, "NASDAQ", body.Data.BestBids[0].MarketCenter)
}

func TestGetNbbo_BadRequests(t *testing.T) {
	router := setupRouter(t, true)

	for _, target := range []string{
		"/api/v1/quotebook/nbbo?time=2021-02-18T10:08:52.868Z",
		"/api/v1/quotebook/nbbo?symbol=AAPL&time=yesterday",
		"/api/v1/quotebook/nbbo?symbol=AAPL&time=2021-02-18T10:08:52.868Z&limit=abc",
		"/api/v1/quotebook/nbbo?symbol=AAPL&time=2021-02-18T10:08:52.868Z&limit=-2",
	} {
		t.Run(target, func(t *testing.T) {
			w := do(router, http.MethodGet, target)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestSnapshotLifecycle(t *testing.T) {
	router := setupRouter(t, false)

	assert.Equal(t, http.StatusServiceUnavailable, do(router, http.MethodGet, "/health").Code)

	w := do(router, http.MethodPost, "/api/v1/quotebook/snapshot/rebuild")
	require.Equal(t, http.StatusOK, w.Code)

	w = do(router, http.MethodGet, "/api/v1/quotebook/snapshot")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data application.SnapshotDTO `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Data.Ready)
	assert.Equal(t, 2, body.Data.QuoteCount)
	assert.Equal(t, "static", body.Data.Source)

	assert.Equal(t, http.StatusOK, do(router, http.MethodGet, "/health").Code)
}
