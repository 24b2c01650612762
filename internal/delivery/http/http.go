package http

import (
	"errors"
	"net/http"

	"golang-backtest/internal/backtest"
	"golang-backtest/internal/dto"
	"golang-backtest/internal/repository"
	"golang-backtest/internal/service"
	"golang-backtest/pkg/logger"

	goValidator "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type HttpAPIHandler struct {
	echo      *echo.Echo
	validator *goValidator.Validate
	service   *service.Service
	log       *logger.Logger
}

func NewHttpAPIHandler(echo *echo.Echo, validator *goValidator.Validate, service *service.Service, log *logger.Logger) *HttpAPIHandler {
	return &HttpAPIHandler{
		echo:      echo,
		validator: validator,
		service:   service,
		log:       log,
	}
}

func (h *HttpAPIHandler) SetupRoutes() {
	base := h.echo.Group("/api")
	h.SetupBacktest(base)
	h.SetupStrategy(base)
}

// bindAndValidate decodes the body or query into req and runs the struct
// tags. On false the 400 response has already been written.
func (h *HttpAPIHandler) bindAndValidate(c echo.Context, req interface{}) bool {
	if err := c.Bind(req); err != nil {
		_ = c.JSON(http.StatusBadRequest, dto.NewErrorResponse("invalid request body"))
		return false
	}
	if err := h.validator.Struct(req); err != nil {
		_ = c.JSON(http.StatusBadRequest, dto.NewErrorResponse(err.Error()))
		return false
	}
	return true
}

func (h *HttpAPIHandler) success(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

func (h *HttpAPIHandler) failure(c echo.Context, err error) error {
	status := statusFromError(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		h.log.ErrorContext(c.Request().Context(), "Request failed",
			logger.StringField("path", c.Path()),
			logger.ErrorField(err))
		message = "internal server error"
	}
	return c.JSON(status, dto.NewErrorResponse(message))
}

func statusFromError(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidRequest),
		errors.Is(err, service.ErrInvalidStrategy),
		errors.Is(err, service.ErrNoCandles),
		errors.Is(err, service.ErrCompileRejected),
		errors.Is(err, repository.ErrTooManyCandles),
		errors.Is(err, backtest.ErrUnsupportedIndicator),
		errors.Is(err, backtest.ErrInvalidParameter),
		errors.Is(err, backtest.ErrInvalidOperator),
		errors.Is(err, backtest.ErrInvalidCondition):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrUpstream):
		return http.StatusBadGateway
	case errors.Is(err, repository.ErrCompilerUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
