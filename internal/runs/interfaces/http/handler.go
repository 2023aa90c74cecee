package http

import (
	"net/http"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/runtracker/internal/runs/application"
	"github.com/wyfcoding/runtracker/internal/runs/domain"
	"github.com/wyfcoding/runtracker/pkg/logger"
	"github.com/wyfcoding/runtracker/pkg/response"
)

// RunHandler 负责处理 HTTP 请求
type RunHandler struct {
	cmd   *application.RunCommandService
	query *application.RunQueryService
}

func NewRunHandler(cmd *application.RunCommandService, query *application.RunQueryService) *RunHandler {
	return &RunHandler{cmd: cmd, query: query}
}

func (h *RunHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/v1/runs")
	{
		api.POST("/series", h.CreateSeries)
		api.GET("/series", h.ListSeries)
		api.GET("/series/:id", h.GetSeries)
		api.DELETE("/series/:id", h.DeleteSeries)
		api.POST("/series/:id/adjust", h.AdjustRange)
		api.GET("/series/:id/longest", h.LongestRun)
	}
}

// CreateSeries 创建序列，请求体可以是价格、tick 值或长度加统一初始值。
func (h *RunHandler) CreateSeries(c *gin.Context) {
	var req application.CreateSeriesCommand
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid request data", err.Error())
		return
	}

	dto, err := h.cmd.CreateSeries(c.Request.Context(), req)
	if err != nil {
		h.fail(c, "failed to create series", err)
		return
	}
	response.Created(c, dto)
}

// ListSeries 全部序列概要
func (h *RunHandler) ListSeries(c *gin.Context) {
	list, err := h.query.ListSeries(c.Request.Context())
	if err != nil {
		h.fail(c, "failed to list series", err)
		return
	}
	response.Success(c, gin.H{"data": list})
}

// GetSeries 序列快照
func (h *RunHandler) GetSeries(c *gin.Context) {
	dto, err := h.query.GetSeries(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "failed to get series", err)
		return
	}
	response.Success(c, dto)
}

// DeleteSeries 删除序列
func (h *RunHandler) DeleteSeries(c *gin.Context) {
	if err := h.cmd.DeleteSeries(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, "failed to delete series", err)
		return
	}
	response.Success(c, gin.H{"id": c.Param("id")})
}

// AdjustRange 区间 [a, b] 加 delta（价格）或 delta_ticks
func (h *RunHandler) AdjustRange(c *gin.Context) {
	var req application.AdjustRangeCommand
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid request data", err.Error())
		return
	}
	if req.Delta == "" && req.DeltaTicks == nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "delta or delta_ticks is required", "")
		return
	}
	req.SeriesID = c.Param("id")

	dto, err := h.cmd.AdjustRange(c.Request.Context(), req)
	if err != nil {
		h.fail(c, "failed to adjust range", err)
		return
	}
	response.Success(c, dto)
}

// LongestRun 区间最长非递减连续段
func (h *RunHandler) LongestRun(c *gin.Context) {
	a, err := strconv.Atoi(c.Query("a"))
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid a parameter", "")
		return
	}
	b, err := strconv.Atoi(c.Query("b"))
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid b parameter", "")
		return
	}

	dto, err := h.query.LongestRun(c.Request.Context(), application.LongestRunQuery{
		SeriesID: c.Param("id"),
		A:        a,
		B:        b,
	})
	if err != nil {
		h.fail(c, "failed to query longest run", err)
		return
	}
	response.Success(c, dto)
}

func (h *RunHandler) fail(c *gin.Context, msg string, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		logger.Error(c.Request.Context(), msg, "error", err)
		response.Error(c, err)
		return
	}
	logger.Debug(c.Request.Context(), msg, "status", status, "error", err)
	response.ErrorWithStatus(c, status, msg, err.Error())
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrSeriesNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrSeriesExists):
		return http.StatusConflict
	case domain.IsInvalidArgument(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
