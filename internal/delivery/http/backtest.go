package http

import (
	"bytes"
	"net/http"
	"strconv"

	"golang-backtester/internal/dto"
	"golang-backtester/internal/model"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupMarketData(base *echo.Group) {
	marketData := base.Group("/market-data")
	marketData.POST("/preview", h.previewMarketData)
}

func (h *HttpAPIHandler) SetupBacktest(base *echo.Group) {
	backtestGroup := base.Group("/backtests")
	backtestGroup.POST("", h.runBacktest)
	backtestGroup.POST("/batch", h.runBatchBacktest)
	backtestGroup.GET("", h.listBacktests)
	backtestGroup.GET("/:id", h.getBacktest)
	backtestGroup.DELETE("/:id", h.deleteBacktest)
	backtestGroup.GET("/:id/chart", h.backtestChart)
}

func (h *HttpAPIHandler) previewMarketData(c echo.Context) error {
	req := new(dto.MarketDataRequest)
	if resp := h.bindAndValidate(c, req); resp != nil {
		return c.JSON(resp.Code, resp)
	}

	preview, err := h.service.BacktestService.Preview(c.Request().Context(), *req)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("market data loaded", preview))
}

func (h *HttpAPIHandler) runBacktest(c echo.Context) error {
	// omitted params keep their defaults
	req := &dto.BacktestRequest{Params: dto.DefaultStrategyParams()}
	if resp := h.bindAndValidate(c, req); resp != nil {
		return c.JSON(resp.Code, resp)
	}

	result, err := h.service.BacktestService.Run(c.Request().Context(), *req, model.RunSourceAPI)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("backtest completed", result))
}

func (h *HttpAPIHandler) runBatchBacktest(c echo.Context) error {
	req := &dto.BatchBacktestRequest{Params: dto.DefaultStrategyParams()}
	if resp := h.bindAndValidate(c, req); resp != nil {
		return c.JSON(resp.Code, resp)
	}

	result, err := h.service.BacktestService.RunBatch(c.Request().Context(), *req)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("batch completed", result))
}

func (h *HttpAPIHandler) listBacktests(c echo.Context) error {
	param := new(dto.ListBacktestRunsParam)
	if resp := h.bindAndValidate(c, param); resp != nil {
		return c.JSON(resp.Code, resp)
	}

	runs, err := h.service.BacktestService.List(c.Request().Context(), *param)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("ok", runs))
}

func (h *HttpAPIHandler) getBacktest(c echo.Context) error {
	id, resp := parseID(c)
	if resp != nil {
		return c.JSON(resp.Code, resp)
	}

	result, err := h.service.BacktestService.Get(c.Request().Context(), id)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("ok", result))
}

func (h *HttpAPIHandler) deleteBacktest(c echo.Context) error {
	id, resp := parseID(c)
	if resp != nil {
		return c.JSON(resp.Code, resp)
	}

	if err := h.service.BacktestService.Delete(c.Request().Context(), id); err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("backtest deleted", nil))
}

func (h *HttpAPIHandler) backtestChart(c echo.Context) error {
	id, resp := parseID(c)
	if resp != nil {
		return c.JSON(resp.Code, resp)
	}

	var buf bytes.Buffer
	if err := h.service.ChartService.Render(c.Request().Context(), id, &buf); err != nil {
		return h.errorResponse(c, err)
	}
	return c.HTMLBlob(http.StatusOK, buf.Bytes())
}

func parseID(c echo.Context) (uint, *dto.BaseResponse) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, dto.NewBadRequestResponse("invalid id")
	}
	return uint(id), nil
}
