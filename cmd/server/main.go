package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/v4vapp/bridge/internal/adapter/exchange"
	"github.com/v4vapp/bridge/internal/adapter/hive"
	httpAdapter "github.com/v4vapp/bridge/internal/adapter/http"
	"github.com/v4vapp/bridge/internal/adapter/http/handler"
	"github.com/v4vapp/bridge/internal/adapter/lightning"
	"github.com/v4vapp/bridge/internal/adapter/notify"
	postgresRepo "github.com/v4vapp/bridge/internal/adapter/repository/postgres"
	redisRepo "github.com/v4vapp/bridge/internal/adapter/repository/redis"
	"github.com/v4vapp/bridge/internal/infrastructure/config"
	"github.com/v4vapp/bridge/internal/infrastructure/health"
	loggerpkg "github.com/v4vapp/bridge/internal/infrastructure/logger"
	"github.com/v4vapp/bridge/internal/infrastructure/postgres"
	"github.com/v4vapp/bridge/internal/infrastructure/redis"
	"github.com/v4vapp/bridge/internal/infrastructure/runtime"
	"github.com/v4vapp/bridge/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// The logger is built before the notification dispatcher, which needs
	// postgres, redis and the adapters first; the logger's Warn+ hook holds
	// this handle and reads through it, bound once BuildDispatcher returns
	// (spec §5 rebind contract).
	notifyHandle := runtime.NewHandle[usecase.Notifier]()

	logger := loggerpkg.New(loggerpkg.Config{
		Level:        cfg.LogLevel,
		Format:       cfg.LogFormat,
		NotifyHandle: notifyHandle,
	})
	log.Logger = logger

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns, cfg.DatabaseMinConns)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()
	log.Info().Msg("connected to postgres")

	redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("connected to redis")

	// Repositories
	txManager := postgresRepo.NewTxManager(pool)
	trackedOpRepo := postgresRepo.NewTrackedOpRepository(pool)
	ledgerRepo := postgresRepo.NewLedgerRepository(pool)
	rebalanceRepo := postgresRepo.NewRebalanceRepository(pool)
	errorCodeRepo := postgresRepo.NewErrorCodeRepository(pool)
	counterpartyRepo := postgresRepo.NewCounterpartyRepository(pool)
	policyRepo := postgresRepo.NewPolicyRepository(pool)
	ratesRepo := postgresRepo.NewRatesRepository(pool)
	outboxRepo := postgresRepo.NewOutboxRepository(pool)
	auditRepo := postgresRepo.NewAuditRepository(pool)
	idempotencyStore := redisRepo.NewIdempotencyStore(redisClient)
	idGen := postgresRepo.NewULIDGenerator()
	cache := redisRepo.NewCache(redisClient)

	// External adapters
	hiveClient := hive.NewClient(hive.ClientConfig{
		NodeURL:   cfg.HiveNodeURL,
		Account:   cfg.HiveAccount,
		ActiveKey: cfg.HiveActiveKey,
		Logger:    logger.With().Str("component", "hive").Logger(),
	})

	lnClient, err := lightning.NewClient(lightning.ClientConfig{
		Address:     cfg.LNDAddress,
		TLSCertPath: cfg.LNDTLSCertPath,
		MacaroonHex: cfg.LNDMacaroonHex,
		Logger:      logger.With().Str("component", "lnd").Logger(),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to dial lnd")
	}
	defer lnClient.Close()

	lnAddrResolver := lightning.NewAddressResolver(logger.With().Str("component", "lnurl").Logger())

	exchangeClient := exchange.NewAdapter(exchange.Config{
		BaseURL:   cfg.ExchangeBaseURL,
		APIKey:    cfg.ExchangeAPIKey,
		APISecret: cfg.ExchangeAPISecret,
		Logger:    logger.With().Str("component", "exchange").Logger(),
	})

	dispatcher, err := notify.BuildDispatcher(notify.DispatcherConfig{
		TelegramToken:   cfg.TelegramBotToken,
		TelegramChatID:  cfg.TelegramChatID,
		SilenceList:     cfg.NotifySilenceList,
		ConsoleFallback: cfg.DevMode,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build notification dispatcher")
	}
	notifyHandle.Set(dispatcher)

	// Use cases
	ingestUC := usecase.NewIngestUseCase(trackedOpRepo, idGen, logger.With().Str("component", "ingest").Logger())
	ledgerUC := usecase.NewLedgerUseCase(ledgerRepo, cache, outboxRepo, idGen)
	ledgerUC.SetTrackedOps(trackedOpRepo)
	policyUC := usecase.NewPolicyUseCase(policyRepo)
	counterpartyUC := usecase.NewCounterpartyUseCase(counterpartyRepo)
	errorCodeUC := usecase.NewErrorCodeUseCase(errorCodeRepo, cfg.HiveAccount)
	healthUC := usecase.NewHealthUseCase([]usecase.HealthProbe{
		health.PostgresProbe{Pool: pool},
		health.RedisProbe{Client: redisClient},
		health.HiveProbe{Client: hiveClient},
		health.LightningProbe{Client: lnClient},
	})

	rebalanceUC := usecase.NewRebalanceUseCase(rebalanceRepo, ledgerUC, exchangeClient, txManager, idGen, dispatcher, outboxRepo)

	conversionUC := usecase.NewConversionUseCase(
		usecase.ConversionConfig{
			ServerHiveAccount: cfg.HiveAccount,
			ServerSub:         cfg.LedgerServerSub,
			NodeName:          cfg.LedgerNodeName,
			OperatorAccount:   cfg.LedgerOperatorAccount,
		},
		ledgerUC,
		policyUC,
		counterpartyUC,
		rebalanceUC,
		ratesRepo,
		hiveClient,
		lnClient,
		lnAddrResolver,
		txManager,
		idGen,
		auditRepo,
	)

	routerUC := usecase.NewRouterUseCase(trackedOpRepo, conversionUC)

	// HTTP handlers + live feed
	liveHandler := handler.NewLiveHandler(logger.With().Str("component", "live").Logger())
	ledgerUC.SetBroadcaster(liveHandler)

	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		BalanceHandler:   handler.NewBalanceHandler(ledgerUC),
		TrackedOpHandler: handler.NewTrackedOpHandler(ingestUC),
		RebalanceHandler: handler.NewRebalanceHandler(rebalanceUC),
		PolicyHandler:    handler.NewPolicyHandler(policyUC),
		HealthHandler:    handler.NewHealthHandler(healthUC),
		LiveHandler:      liveHandler,
		IdempotencyStore: idempotencyStore,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	hiveWatcher := hive.NewWatcher(hive.Config{
		Client:    hiveClient,
		Ingest:    ingestUC,
		PollEvery: cfg.HivePollInterval,
		Logger:    logger.With().Str("component", "hive-watcher").Logger(),
	})
	lnWatcher := lightning.NewWatcher(lightning.Config{
		Client: lnClient,
		Ingest: ingestUC,
		Logger: logger.With().Str("component", "ln-watcher").Logger(),
	})

	go runWatcher(ctx, "hive", logger, errorCodeUC, dispatcher, hiveWatcher.Run)
	go runWatcher(ctx, "lightning", logger, errorCodeUC, dispatcher, lnWatcher.Run)
	go runRouterLoop(ctx, routerUC, logger, errorCodeUC, dispatcher)

	<-ctx.Done()
	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

// runWatcher restarts a watcher's Run loop on unexpected exit, observing
// failures through the error-code dedup so a flapping dependency doesn't
// flood the dispatcher with identical alerts (spec §7).
func runWatcher(ctx context.Context, name string, logger zerolog.Logger, errorCodeUC *usecase.ErrorCodeUseCase, notifier usecase.Notifier, run func(context.Context) error) {
	for {
		err := run(ctx)
		if ctx.Err() != nil {
			return
		}
		logger.Error().Err(err).Str("watcher", name).Msg("watcher exited, restarting")

		suppress, obsErr := errorCodeUC.Observe(ctx, "watcher_"+name+"_crash", err.Error())
		if obsErr == nil && !suppress {
			notifier.Notify(ctx, usecase.NotificationMessage{
				Text:      fmt.Sprintf("%s watcher crashed: %v", name, err),
				Severity:  "ERROR",
				Component: name,
				Notify:    true,
			})
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(5 * time.Second):
		}
	}
}

// runRouterLoop drains newly-ingested ops on a short tick (spec §4.4).
func runRouterLoop(ctx context.Context, routerUC *usecase.RouterUseCase, logger zerolog.Logger, errorCodeUC *usecase.ErrorCodeUseCase, notifier usecase.Notifier) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := routerUC.RouteOnce(ctx); err != nil {
				logger.Error().Err(err).Msg("router loop failed")
				suppress, obsErr := errorCodeUC.Observe(ctx, "router_loop_failure", err.Error())
				if obsErr == nil && !suppress {
					notifier.Notify(ctx, usecase.NotificationMessage{
						Text:      fmt.Sprintf("router loop failed: %v", err),
						Severity:  "ERROR",
						Component: "router",
						Notify:    true,
					})
				}
			}
		}
	}
}
