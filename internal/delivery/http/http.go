package http

import (
	"errors"
	"net/http"

	"golang-backtester/config"
	"golang-backtester/internal/backtest"
	"golang-backtester/internal/dto"
	"golang-backtester/internal/service"
	"golang-backtester/pkg/logger"

	goValidator "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type HttpAPIHandler struct {
	cfg       *config.Config
	log       *logger.Logger
	echo      *echo.Echo
	validator *goValidator.Validate
	service   *service.Service
}

func NewHttpAPIHandler(cfg *config.Config, log *logger.Logger, echo *echo.Echo, validator *goValidator.Validate, service *service.Service) *HttpAPIHandler {
	return &HttpAPIHandler{
		cfg:       cfg,
		log:       log,
		echo:      echo,
		validator: validator,
		service:   service,
	}
}

func (h *HttpAPIHandler) SetupRoutes() {
	h.echo.GET("/healthz", h.Healthz)
	h.SetupDashboard(h.echo)

	base := h.echo.Group("/api/v1")
	h.SetupMarketData(base)
	h.SetupBacktest(base)
	h.SetupJobs(base)
}

func (h *HttpAPIHandler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("ok", nil))
}

// bindAndValidate binds the request into req and runs the struct validator.
func (h *HttpAPIHandler) bindAndValidate(c echo.Context, req interface{}) *dto.BaseResponse {
	if err := c.Bind(req); err != nil {
		return dto.NewBadRequestResponse("invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return dto.NewBadRequestResponse(err.Error())
	}
	return nil
}

// errorResponse maps service errors to an HTTP status.
func (h *HttpAPIHandler) errorResponse(c echo.Context, err error) error {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, dto.ErrInvalidDateRange),
		errors.Is(err, dto.ErrInvalidTimeframe),
		errors.Is(err, dto.ErrInvalidExchange),
		errors.Is(err, dto.ErrTooManySymbols),
		errors.Is(err, backtest.ErrInvalidParameter):
		code = http.StatusBadRequest
	case errors.Is(err, dto.ErrRunNotFound),
		errors.Is(err, dto.ErrNoPriceData),
		errors.Is(err, service.ErrJobNotFound),
		errors.Is(err, service.ErrScheduleNotFound):
		code = http.StatusNotFound
	case errors.Is(err, backtest.ErrNotEnoughData):
		code = http.StatusUnprocessableEntity
	case errors.Is(err, dto.ErrProviderFailure):
		code = http.StatusBadGateway
	}

	message := err.Error()
	if code == http.StatusInternalServerError {
		h.log.ErrorContext(c.Request().Context(), "Request failed", logger.ErrorField(err),
			logger.StringField("path", c.Path()))
		message = "internal server error"
	}
	return c.JSON(code, dto.NewErrorResponse(code, message))
}
