package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/quotebook/internal/quotebook/application"
	"github.com/wyfcoding/quotebook/internal/quotebook/domain"
	"github.com/wyfcoding/quotebook/pkg/logger"
)

// Handler HTTP 处理器
// 负责报价簿的查询、报表与快照管理请求
type Handler struct {
	service       *application.QuoteBookService
	defaultSymbol string
	defaultTime   string
}

// NewHandler 创建 HTTP 处理器实例
// defaultSymbol/defaultTime: 根路径报表使用的标的与时刻
func NewHandler(service *application.QuoteBookService, defaultSymbol, defaultTime string) *Handler {
	return &Handler{
		service:       service,
		defaultSymbol: defaultSymbol,
		defaultTime:   defaultTime,
	}
}

// ErrorResponse 错误响应
type ErrorResponse struct {
	Error string `json:"error"`
}

// DefaultReport 以 HTML 换行输出默认标的与时刻的报表
// @Router / [get]
func (h *Handler) DefaultReport(c *gin.Context) {
	req := application.PointInTimeRequest{Symbol: h.defaultSymbol, PointInTime: h.defaultTime}
	report, err := h.service.Report(c.Request.Context(), req, application.HTMLLineBreak)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(report))
}

// GetNbbo 查询时点最优买卖报价
// @Summary 时点 NBBO 查询
// @Param symbol query string true "交易标的"
// @Param time query string true "查询时刻 2006-01-02T15:04:05.000Z"
// @Param limit query int false "每侧条数"
// @Success 200 {object} application.NbboDTO
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/quotebook/nbbo [get]
func (h *Handler) GetNbbo(c *gin.Context) {
	req, ok := h.bindRequest(c)
	if !ok {
		return
	}
	dto, err := h.service.QueryNbbo(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": dto})
}

// GetReport 查询并返回文本报表，format=html|text，默认 html
// @Router /api/v1/quotebook/nbbo/report [get]
func (h *Handler) GetReport(c *gin.Context) {
	req, ok := h.bindRequest(c)
	if !ok {
		return
	}

	sep, contentType := application.HTMLLineBreak, "text/html; charset=utf-8"
	switch strings.ToLower(c.DefaultQuery("format", "html")) {
	case "html":
	case "text":
		sep, contentType = application.TextLineBreak, "text/plain; charset=utf-8"
	default:
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "format must be html or text"})
		return
	}

	report, err := h.service.Report(c.Request.Context(), req, sep)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.Data(http.StatusOK, contentType, []byte(report))
}

// GetSnapshot 返回当前快照信息
// @Router /api/v1/quotebook/snapshot [get]
func (h *Handler) GetSnapshot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.service.Snapshot()})
}

// RebuildSnapshot 立即从数据来源重建快照
// @Router /api/v1/quotebook/snapshot/rebuild [post]
func (h *Handler) RebuildSnapshot(c *gin.Context) {
	ctx := c.Request.Context()
	snap, err := h.service.Rebuild(ctx)
	if err != nil {
		logger.Error(ctx, "Failed to rebuild snapshot", "error", err)
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": snap})
}

// Health 存活与就绪检查，快照未构建时返回 503
func (h *Handler) Health(c *gin.Context) {
	if !h.service.Ready() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "loading"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) bindRequest(c *gin.Context) (application.PointInTimeRequest, bool) {
	req := application.PointInTimeRequest{
		Symbol:      c.Query("symbol"),
		PointInTime: c.Query("time"),
	}
	if raw, ok := c.GetQuery("limit"); ok {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			logger.Warn(c.Request.Context(), "Invalid limit", "limit", raw, "error", err)
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be an integer"})
			return req, false
		}
		req.Limit = &limit
	}
	return req, true
}

func (h *Handler) writeError(c *gin.Context, err error) {
	ctx := c.Request.Context()
	switch {
	case errors.Is(err, domain.ErrSymbolRequired),
		errors.Is(err, domain.ErrInvalidTimestamp),
		errors.Is(err, domain.ErrInvalidLimit):
		logger.Warn(ctx, "Invalid request", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	default:
		logger.Error(ctx, "Failed to query quote book", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}
}

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/", h.DefaultReport)
	router.GET("/health", h.Health)

	v1 := router.Group("/api/v1/quotebook")
	{
		v1.GET("/nbbo", h.GetNbbo)
		v1.GET("/nbbo/report", h.GetReport)
		v1.GET("/snapshot", h.GetSnapshot)
		v1.POST("/snapshot/rebuild", h.RebuildSnapshot)
	}
}
