package http

import (
	"golang-backtest/internal/dto"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupStrategy(base *echo.Group) {
	strategyGroup := base.Group("/strategy")
	strategyGroup.POST("/compile", h.compileStrategy)
}

func (h *HttpAPIHandler) compileStrategy(c echo.Context) error {
	req := new(dto.CompileStrategyRequest)
	if !h.bindAndValidate(c, req) {
		return nil
	}

	result, err := h.service.StrategyService.CompileStrategy(c.Request().Context(), *req)
	if err != nil {
		return h.failure(c, err)
	}
	return h.success(c, result)
}
