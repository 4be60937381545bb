package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang-backtester/internal/delivery/http"
	"golang-backtester/internal/delivery/telegram"
	"golang-backtester/internal/repository"
	"golang-backtester/internal/service"
	"golang-backtester/pkg/logger"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the backtester HTTP server, Telegram bot and scheduler",
	Run:   Start,
}

func Start(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appDep, err := NewAppDependency(ctx)
	if err != nil {
		log.Fatalf("Failed to create app dependency: %v", err)
	}

	repo := repository.NewRepository(appDep.cfg, appDep.GormDB(), appDep.cache, appDep.log)

	var sender service.MessageSender
	if appDep.telegram != nil {
		sender = appDep.telegram
	}
	services := service.NewService(appDep.cfg, appDep.log, repo, sender)

	httpHandler := http.NewHttpAPIHandler(appDep.cfg, appDep.log, appDep.echo, appDep.validator, services)
	apiServer := NewHTTPServer(ctx, appDep, httpHandler)
	go func() {
		if err := apiServer.Start(); err != nil {
			log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	var telegramHandler *telegram.TelegramBotHandler
	if appDep.telegramBot != nil {
		telegramHandler = telegram.NewTelegramBotHandler(
			ctx,
			appDep.cfg,
			appDep.log,
			appDep.telegramBot,
			appDep.telegram,
			appDep.cache,
			services,
		)
		telegramHandler.Start()
	}

	var schedulerRunner *SchedulerRunner
	if services.SchedulerService != nil {
		schedulerRunner, err = NewSchedulerRunner(ctx, appDep.log, services.SchedulerService, appDep.cfg.Scheduler.TickInterval)
		if err != nil {
			log.Fatalf("Failed to create scheduler: %v", err)
		}
		schedulerRunner.Start()
	}

	<-ctx.Done()
	appDep.log.Info("Shutting down gracefully...")

	if telegramHandler != nil {
		telegramHandler.Stop()
	}
	if err := apiServer.Stop(); err != nil {
		appDep.log.Error("Failed to stop HTTP server cleanly", logger.ErrorField(err))
	}
	if schedulerRunner != nil {
		schedulerRunner.Stop(shutdownTimeout)
	}

	if err := appDep.Close(); err != nil {
		log.Fatalf("Failed to close app dependency: %v", err)
	}
}
