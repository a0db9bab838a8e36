package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crypto-profile-trader/internal/api"
	"crypto-profile-trader/internal/executor"
	"crypto-profile-trader/internal/model"
	"crypto-profile-trader/internal/notifier"
	"crypto-profile-trader/internal/position"
	"crypto-profile-trader/internal/service"
	"crypto-profile-trader/internal/strategy"
	"crypto-profile-trader/internal/trader"
	"crypto-profile-trader/pkg/ta"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	// .env 里放 BINANCE_API_KEY / BINANCE_SECRET_KEY，没有该文件也不报错
	_ = godotenv.Load()

	service.InitLogger()
	defer service.Logger.Sync()
	logger := service.Logger

	configPath := "config"
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		logger.Fatal("Configuration directory 'config/' not found. Please create it.")
	}
	cfg, err := service.LoadConfig(configPath)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// 指标后端在启动时一次性选定，进程生命周期内不再切换
	backend := ta.Resolve(logger)
	calc := ta.NewCalculator(backend, logger)

	exchange := executor.NewBinanceExchange(
		os.Getenv("BINANCE_API_KEY"),
		os.Getenv("BINANCE_SECRET_KEY"),
		cfg.Exchange.RESTURL,
		logger,
	)

	var store position.Store
	if cfg.Store.Path != "" {
		gormStore, err := position.NewGormStore(cfg.Store.Path)
		if err != nil {
			logger.Fatal("Failed to open position store", zap.Error(err))
		}
		store = gormStore
	}
	tracker := position.NewTracker(store, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := tracker.Restore(ctx); err != nil {
		logger.Fatal("Failed to restore positions", zap.Error(err))
	}

	var notify notifier.Notifier = notifier.Noop{}
	if cfg.Notifier.TelegramToken != "" {
		notify = notifier.NewTelegram(
			cfg.Notifier.TelegramToken,
			cfg.Notifier.TelegramChatID,
			cfg.Notifier.ProxyURL,
			logger,
		)
	}

	manager := executor.NewManager(exchange, tracker, logger)
	signals := strategy.NewSignalGenerator(logger)

	// 1. 收集所有要订阅的 Symbol，启动实时价格流
	var symbols []string
	for _, prof := range cfg.Profiles {
		symbols = append(symbols, prof.Symbol)
	}
	connector := api.NewConnector(cfg.Exchange.WSURL, symbols, logger)
	prices := model.NewPriceCache(connector.GetTickerChannel(), 10*time.Second)
	go connector.Start(ctx)
	go prices.Start()

	// 2. 为每个 Profile 组装隔离的交易管线，并行预热历史数据
	scheduler := trader.NewScheduler(logger)
	group, warmCtx := errgroup.WithContext(ctx)
	for name, prof := range cfg.Profiles {
		p := prof
		loop := trader.NewTrader(&p, exchange, calc, signals, manager, tracker, prices, notify,
			logger.With(zap.String("profile", name)))

		group.Go(func() error { return loop.Warmup(warmCtx) })
		if err := scheduler.Register(ctx, loop); err != nil {
			logger.Fatal("Failed to register trading loop", zap.Error(err))
		}
	}
	if err := group.Wait(); err != nil {
		// 预热失败不致命：每个周期都会重新拉取完整窗口
		logger.Warn("History warmup incomplete", zap.Error(err))
	}

	// 3. 启动调度
	scheduler.Start()
	logger.Info("Trading agent started",
		zap.Int("profiles", len(cfg.Profiles)),
		zap.String("backend", calc.Backend()))

	<-ctx.Done()
	logger.Info("Shutdown signal received, draining cycles...")
	scheduler.Stop()
}
