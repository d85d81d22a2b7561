package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	logger "github.com/sirupsen/logrus"

	"tradingrelay/src/connectors"
	"tradingrelay/src/database"
	"tradingrelay/src/engines"
	"tradingrelay/src/pnl"
	"tradingrelay/src/queue"
	"tradingrelay/src/relay"
	"tradingrelay/src/repository"
	"tradingrelay/src/server"
	"tradingrelay/src/worker"
	"tradingrelay/src/ws"
)

var APP_NAME = os.Getenv("APP_NAME")

func SetupLogger() {
	levelStr := strings.ToLower(os.Getenv("LOG_LEVEL"))

	level, err := logger.ParseLevel(levelStr)
	if err != nil {
		level = logger.DebugLevel
	}

	logger.SetLevel(level)
	logger.SetFormatter(&logger.TextFormatter{
		FullTimestamp: true,
	})
}

func main() {
	SetupLogger()
	defer handlePanic()

	if err := database.InitMainDB(); err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}

	queueCfg := queue.GetConfig()
	rdb := queue.NewClient(queueCfg)
	queues := queue.New(rdb, queueCfg)

	hub := ws.NewHub()

	tracker := engines.NewTracker(repository.NewEngineRepository(), engines.GetConfig())
	router := relay.NewRouter(queues, tracker, repository.NewPositionRepository(), hub, 64)
	subscriber := relay.NewSubscriber(rdb, router)

	telegram := connectors.NewTelegramConnector(connectors.GetConfig())
	processors := worker.NewProcessors(
		repository.NewOrderRepository(),
		repository.NewTradeRepository(),
		repository.NewNotificationRepository(),
		repository.NewAuditRepository(),
		telegram,
	)

	workerCfg := worker.GetConfig()
	pools := []*worker.Pool{
		worker.NewPool(queues, queue.QueueOrderPersistence, processors.ProcessOrderUpdate, workerCfg),
		worker.NewPool(queues, queue.QueueTradePersistence, processors.ProcessTradeNew, workerCfg),
		worker.NewPool(queues, queue.QueueNotification, processors.ProcessRiskAlert, workerCfg),
		worker.NewPool(queues, queue.QueueAuditLog, processors.ProcessAudit, workerCfg),
		worker.NewPool(queues, queue.QueueEngineLifecycle, processors.ProcessEngineLifecycle, workerCfg),
	}

	pnlService := pnl.NewService(
		repository.NewTradeRepository(),
		repository.NewBotRepository(),
		repository.NewPnlRepository(),
	)
	pnlScheduler := pnl.NewScheduler(pnlService, pnl.GetConfig())

	ctx, cancel := context.WithCancel(context.Background())

	if err := subscriber.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to start subscriber")
	}

	queueNames := []string{
		queue.QueueOrderPersistence,
		queue.QueueTradePersistence,
		queue.QueueNotification,
		queue.QueueAuditLog,
		queue.QueueEngineLifecycle,
	}
	go queues.StartMover(ctx, queueNames, workerCfg.MoveInterval)

	for _, pool := range pools {
		pool.Start(ctx)
	}

	go tracker.StartSweep(ctx)
	pnlScheduler.Start(ctx)

	srv := server.Start(server.GetConfig().Port, hub)

	// Shutdown on SIGINT or SIGTERM
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down gracefully...")

	subscriber.Stop()
	cancel()
	for _, pool := range pools {
		pool.Wait()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Shutdown error")
	}
}

func handlePanic() {
	if r := recover(); r != nil {
		logger.WithError(fmt.Errorf("%+v", r)).Error(fmt.Sprintf("Application %s panic", APP_NAME))
	}
	//nolint
	time.Sleep(time.Second * 5)
}
