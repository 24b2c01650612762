package http

import (
	"golang-backtest/internal/dto"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupBacktest(base *echo.Group) {
	backtestGroup := base.Group("/backtest")
	backtestGroup.POST("", h.runBacktest)
	backtestGroup.POST("/batch", h.runBatchBacktest)
	backtestGroup.GET("", h.listBacktests)
	backtestGroup.GET("/:id", h.getBacktest)
}

func (h *HttpAPIHandler) runBacktest(c echo.Context) error {
	req := new(dto.BacktestRequest)
	if !h.bindAndValidate(c, req) {
		return nil
	}

	result, err := h.service.BacktestService.RunBacktest(c.Request().Context(), *req)
	if err != nil {
		return h.failure(c, err)
	}
	return h.success(c, result)
}

func (h *HttpAPIHandler) runBatchBacktest(c echo.Context) error {
	req := new(dto.BatchBacktestRequest)
	if !h.bindAndValidate(c, req) {
		return nil
	}

	result, err := h.service.BacktestService.RunBatch(c.Request().Context(), *req)
	if err != nil {
		return h.failure(c, err)
	}
	return h.success(c, result)
}

func (h *HttpAPIHandler) getBacktest(c echo.Context) error {
	result, err := h.service.BacktestService.GetBacktest(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.failure(c, err)
	}
	return h.success(c, result)
}

func (h *HttpAPIHandler) listBacktests(c echo.Context) error {
	param := new(dto.ListBacktestParam)
	if !h.bindAndValidate(c, param) {
		return nil
	}

	result, err := h.service.BacktestService.ListBacktests(c.Request().Context(), *param)
	if err != nil {
		return h.failure(c, err)
	}
	return h.success(c, result)
}
