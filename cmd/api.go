package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	httpDelivery "golang-backtester/internal/delivery/http"
	"golang-backtester/pkg/common"
	"golang-backtester/pkg/middleware"

	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

type HTTPServer struct {
	ctx     context.Context
	appDep  *AppDependency
	handler *httpDelivery.HttpAPIHandler
}

func NewHTTPServer(ctx context.Context, appDep *AppDependency, handler *httpDelivery.HttpAPIHandler) *HTTPServer {
	return &HTTPServer{
		ctx:     ctx,
		appDep:  appDep,
		handler: handler,
	}
}

func (s *HTTPServer) Start() error {
	address := s.appDep.cfg.API.Address()
	s.appDep.log.Info("Starting HTTP server", zap.String("address", address))

	s.SetupMiddleware()
	s.SetupRoutes()

	if err := s.appDep.echo.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Stop() error {
	s.appDep.log.Info("Shutting down HTTP server")

	ctx, cancel := context.WithTimeout(context.WithoutCancel(s.ctx), 10*time.Second)
	defer cancel()

	if err := s.appDep.echo.Shutdown(ctx); err != nil {
		s.appDep.log.Error("Error When Stop HTTP server", zap.Error(err))
		return err
	}
	s.appDep.log.Info("HTTP server stopped successfully")
	return nil
}

func (s *HTTPServer) SetupMiddleware() {
	e := s.appDep.echo
	e.HideBanner = true
	e.HidePort = true
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.RequestIDWithConfig(echoMiddleware.RequestIDConfig{
		TargetHeader: common.HEADER_REQUEST_ID,
	}))
	e.Use(middleware.RequestLogger(s.appDep.log))
	e.Use(middleware.NewRateLimiterMiddleware(s.appDep.cfg.API))
}

func (s *HTTPServer) SetupRoutes() {
	s.handler.SetupRoutes()
}
