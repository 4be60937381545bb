package http

import (
	"net/http"

	"golang-backtester/internal/dto"
	"golang-backtester/internal/model"
	"golang-backtester/pkg/utils"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupJobs(base *echo.Group) {
	v1 := base.Group("/jobs")
	{
		v1.GET("", h.ListJobs)
		v1.POST("/run", h.RunJobs)
		v1.POST("/:id/run", h.RunJob)
	}
}

func (h *HttpAPIHandler) schedulerDisabled(c echo.Context) error {
	resp := dto.NewErrorResponse(http.StatusServiceUnavailable, "scheduler is disabled, enable the database to use jobs")
	return c.JSON(resp.Code, resp)
}

func (h *HttpAPIHandler) ListJobs(c echo.Context) error {
	if h.service.SchedulerService == nil {
		return h.schedulerDisabled(c)
	}

	jobs, err := h.service.SchedulerService.GetJobSchedule(c.Request().Context(), model.GetJobParam{
		WithTaskHistory: &model.GetTaskExecutionHistoryParam{Limit: utils.ToPointer(5)},
	})
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("ok", jobs))
}

func (h *HttpAPIHandler) RunJobs(c echo.Context) error {
	if h.service.SchedulerService == nil {
		return h.schedulerDisabled(c)
	}

	response := dto.NewBaseResponse(http.StatusOK, "Start running jobs", nil)
	if err := h.service.SchedulerService.Execute(c.Request().Context()); err != nil {
		response.Code = http.StatusInternalServerError
		response.Message = err.Error()
	}
	return c.JSON(response.Code, response)
}

func (h *HttpAPIHandler) RunJob(c echo.Context) error {
	if h.service.SchedulerService == nil {
		return h.schedulerDisabled(c)
	}
	id, resp := parseID(c)
	if resp != nil {
		return c.JSON(resp.Code, resp)
	}

	if err := h.service.SchedulerService.RunJobTask(c.Request().Context(), id); err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("job started", nil))
}
