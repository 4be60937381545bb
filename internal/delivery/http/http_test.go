package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang-backtester/config"
	"golang-backtester/internal/backtest"
	"golang-backtester/internal/dto"
	"golang-backtester/internal/model"
	"golang-backtester/internal/service"
	"golang-backtester/pkg/logger"

	goValidator "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBacktestService struct {
	service.BacktestService
	lastRequest dto.BacktestRequest
	lastSource  string
	lastList    dto.ListBacktestRunsParam
	runErr      error
	getErr      error
}

func (s *stubBacktestService) Run(_ context.Context, req dto.BacktestRequest, source string) (*dto.BacktestResult, error) {
	s.lastRequest = req
	s.lastSource = source
	if s.runErr != nil {
		return nil, s.runErr
	}
	return &dto.BacktestResult{RunID: 7, Symbol: req.Symbol, Params: req.Params}, nil
}

func (s *stubBacktestService) Get(_ context.Context, id uint) (*dto.BacktestResult, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return &dto.BacktestResult{RunID: id, Symbol: "AAPL"}, nil
}

func (s *stubBacktestService) List(_ context.Context, param dto.ListBacktestRunsParam) ([]dto.BacktestRunSummary, error) {
	s.lastList = param
	return []dto.BacktestRunSummary{{ID: 1, Symbol: "AAPL"}}, nil
}

func (s *stubBacktestService) Delete(_ context.Context, id uint) error {
	if id == 404 {
		return dto.ErrRunNotFound
	}
	return nil
}

type stubChartService struct{}

func (stubChartService) Render(_ context.Context, runID uint, w io.Writer) error {
	if runID == 404 {
		return fmt.Errorf("replay: %w", dto.ErrRunNotFound)
	}
	_, err := io.WriteString(w, "<html>chart</html>")
	return err
}

type stubScheduler struct {
	service.SchedulerService
	executed int
}

func (s *stubScheduler) Execute(context.Context) error {
	s.executed++
	return nil
}

func (s *stubScheduler) RunJobTask(_ context.Context, jobID uint) error {
	if jobID == 2 {
		return fmt.Errorf("%w: %d", service.ErrJobNotFound, jobID)
	}
	return nil
}

func (s *stubScheduler) GetJobSchedule(context.Context, model.GetJobParam) ([]model.Job, error) {
	return []model.Job{{ID: 1, Name: "nightly"}}, nil
}

func newTestServer(backtests *stubBacktestService, scheduler service.SchedulerService) *echo.Echo {
	e := echo.New()
	svc := &service.Service{
		BacktestService: backtests,
		ChartService:    stubChartService{},
	}
	if scheduler != nil {
		svc.SchedulerService = scheduler
	}
	cfg := &config.Config{Backtest: config.Backtest{DefaultLookbackDays: 365}}
	NewHttpAPIHandler(cfg, logger.NewNop(), e, goValidator.New(), svc).SetupRoutes()
	return e
}

func doRequest(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRunBacktest_DefaultParams(t *testing.T) {
	backtests := &stubBacktestService{}
	e := newTestServer(backtests, nil)

	rec := doRequest(e, http.MethodPost, "/api/v1/backtests",
		`{"symbol":"aapl","timeframe":"1d","start_date":"2023-01-01","end_date":"2023-12-31","params":{"rsi_period":10}}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, model.RunSourceAPI, backtests.lastSource)
	assert.Equal(t, "aapl", backtests.lastRequest.Symbol)
	assert.Equal(t, 10, backtests.lastRequest.Params.RSIPeriod)
	assert.Equal(t, 200, backtests.lastRequest.Params.SMASlow)
	assert.Equal(t, float64(7), decode(t, rec)["data"].(map[string]interface{})["run_id"])
}

func TestRunBacktest_Errors(t *testing.T) {
	valid := `{"symbol":"AAPL","timeframe":"1d","start_date":"2023-01-01","end_date":"2023-12-31"}`
	tests := []struct {
		name     string
		body     string
		runErr   error
		wantCode int
	}{
		{name: "malformed body", body: `{"symbol":`, wantCode: http.StatusBadRequest},
		{name: "missing symbol", body: `{"timeframe":"1d","start_date":"2023-01-01","end_date":"2023-12-31"}`, wantCode: http.StatusBadRequest},
		{name: "unknown timeframe", body: `{"symbol":"AAPL","timeframe":"3m","start_date":"2023-01-01","end_date":"2023-12-31"}`, wantCode: http.StatusBadRequest},
		{name: "bad date", body: `{"symbol":"AAPL","timeframe":"1d","start_date":"2023/01/01","end_date":"2023-12-31"}`, wantCode: http.StatusBadRequest},
		{name: "param out of range", body: `{"symbol":"AAPL","timeframe":"1d","start_date":"2023-01-01","end_date":"2023-12-31","params":{"sma_slow":50}}`, wantCode: http.StatusBadRequest},
		{name: "invalid range", body: valid, runErr: fmt.Errorf("%w: end before start", dto.ErrInvalidDateRange), wantCode: http.StatusBadRequest},
		{name: "invalid parameter", body: valid, runErr: fmt.Errorf("%w: oversold", backtest.ErrInvalidParameter), wantCode: http.StatusBadRequest},
		{name: "no data", body: valid, runErr: dto.ErrNoPriceData, wantCode: http.StatusNotFound},
		{name: "not enough data", body: valid, runErr: backtest.ErrNotEnoughData, wantCode: http.StatusUnprocessableEntity},
		{name: "provider down", body: valid, runErr: dto.ErrProviderFailure, wantCode: http.StatusBadGateway},
		{name: "unexpected", body: valid, runErr: fmt.Errorf("boom"), wantCode: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestServer(&stubBacktestService{runErr: tt.runErr}, nil)
			rec := doRequest(e, http.MethodPost, "/api/v1/backtests", tt.body)

			assert.Equal(t, tt.wantCode, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, float64(tt.wantCode), body["code"])
			if tt.wantCode == http.StatusInternalServerError {
				assert.Equal(t, "internal server error", body["message"])
			}
		})
	}
}

func TestBacktestRuns(t *testing.T) {
	backtests := &stubBacktestService{}
	e := newTestServer(backtests, nil)

	rec := doRequest(e, http.MethodGet, "/api/v1/backtests?symbol=AAPL&limit=10&offset=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, dto.ListBacktestRunsParam{Symbol: "AAPL", Limit: 10, Offset: 5}, backtests.lastList)

	rec = doRequest(e, http.MethodGet, "/api/v1/backtests?limit=1000", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(e, http.MethodGet, "/api/v1/backtests/3", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(3), decode(t, rec)["data"].(map[string]interface{})["run_id"])

	rec = doRequest(e, http.MethodGet, "/api/v1/backtests/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(e, http.MethodDelete, "/api/v1/backtests/404", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(e, http.MethodDelete, "/api/v1/backtests/3", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBacktestChart(t *testing.T) {
	e := newTestServer(&stubBacktestService{}, nil)

	rec := doRequest(e, http.MethodGet, "/api/v1/backtests/1/chart", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "text/html")
	assert.Equal(t, "<html>chart</html>", rec.Body.String())

	rec = doRequest(e, http.MethodGet, "/api/v1/backtests/404/chart", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestJobs(t *testing.T) {
	e := newTestServer(&stubBacktestService{}, nil)
	rec := doRequest(e, http.MethodPost, "/api/v1/jobs/run", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	scheduler := &stubScheduler{}
	e = newTestServer(&stubBacktestService{}, scheduler)

	rec = doRequest(e, http.MethodPost, "/api/v1/jobs/run", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, scheduler.executed)

	rec = doRequest(e, http.MethodPost, "/api/v1/jobs/2/run", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(e, http.MethodGet, "/api/v1/jobs", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthzAndDashboard(t *testing.T) {
	e := newTestServer(&stubBacktestService{}, nil)

	rec := doRequest(e, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(e, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="rsi_period" min="5" max="30" value="14"`)
	assert.Contains(t, rec.Body.String(), "Past performance")
	assert.Contains(t, rec.Body.String(), "<option>BINANCE</option>")
	assert.Contains(t, rec.Body.String(), "/api/v1/market-data/preview")
	assert.Contains(t, rec.Body.String(), "Data from ")
	assert.Contains(t, rec.Body.String(), "s.profit_factor")
	assert.Contains(t, rec.Body.String(), "Trade Analysis")
	assert.Contains(t, rec.Body.String(), "t.duration_text")
}
