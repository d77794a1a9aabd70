package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/agencyiq/agency-service/internal/api/http"
	"github.com/agencyiq/agency-service/internal/api/http/handlers"
	"github.com/agencyiq/agency-service/internal/auth"
	"github.com/agencyiq/agency-service/internal/config"
	"github.com/agencyiq/agency-service/internal/events"
	"github.com/agencyiq/agency-service/internal/observability"
	"github.com/agencyiq/agency-service/internal/persistence"
	"github.com/agencyiq/agency-service/internal/platform/convertio"
	"github.com/agencyiq/agency-service/internal/platform/elevenlabs"
	"github.com/agencyiq/agency-service/internal/platform/mailer"
	"github.com/agencyiq/agency-service/internal/platform/objectstore"
	"github.com/agencyiq/agency-service/internal/platform/openaiclient"
	"github.com/agencyiq/agency-service/internal/platform/ringcentral"
	"github.com/agencyiq/agency-service/internal/platform/stripeclient"
	"github.com/agencyiq/agency-service/internal/ratelimit"
	"github.com/agencyiq/agency-service/internal/repository"
	"github.com/agencyiq/agency-service/internal/service"
	"github.com/agencyiq/agency-service/internal/transcription"
	"github.com/agencyiq/agency-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	agencyRepo := repository.NewAgencyRepository(pool)
	staffRepo := repository.NewStaffRepository(pool)
	sessionRepo := repository.NewStaffSessionRepository(pool)
	resetRepo := repository.NewPasswordResetRepository(pool)
	saleRepo := repository.NewSaleRepository(pool)
	callRepo := repository.NewCallRepository(pool)
	onboardingRepo := repository.NewOnboardingRepository(pool)
	challengeRepo := repository.NewChallengeRepository(pool)
	leadRepo := repository.NewLeadRepository(pool)
	billingEventRepo := repository.NewBillingEventRepository(pool)

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.OwnerTokenTTLMinutes)
	sessionManager := auth.NewSessionManager(sessionRepo, redis.Client, cfg.Auth.StaffSessionTTLHours)

	store, err := objectstore.NewS3Store(ctx, cfg.Storage)
	if err != nil {
		logger.Fatal("failed to init object storage", zap.Error(err))
	}

	openAI := openaiclient.New(cfg.OpenAI)
	converter := convertio.NewClient(convertio.Config{
		APIKey:        cfg.Convertio.APIKey,
		PollDelay:     time.Duration(cfg.Convertio.PollDelayMS) * time.Millisecond,
		MaxPollRounds: cfg.Convertio.MaxPollRounds,
	})
	pipeline := transcription.NewPipeline(transcription.PipelineConfig{
		Transcriber: openAI,
		Converter:   converter,
		ChunkSize:   cfg.OpenAI.ChunkSizeBytes,
		Parallelism: cfg.OpenAI.ChunkParallelism,
		Logger:      logger,
	})
	scorer := transcription.NewScorer(openAI)

	ringCentral := ringcentral.NewClient(ringcentral.Config{
		BaseURL:     cfg.RingCentral.BaseURL,
		AccessToken: cfg.RingCentral.AccessToken,
	})
	synthesizer := elevenlabs.NewClient(elevenlabs.Config{
		APIKey:  cfg.ElevenLabs.APIKey,
		VoiceID: cfg.ElevenLabs.VoiceID,
	})
	stripeGateway := stripeclient.NewClient(cfg.Stripe.APIKey, cfg.Stripe.SeatPriceID)
	mail := mailer.NewResendMailer(cfg.Mail.ResendAPIKey, cfg.Mail.From)

	dispatcher := events.NewInMemoryDispatcher()

	ttsWorker := worker.NewTTSWorker(cfg.ElevenLabs, worker.TTSDependencies{
		Synthesizer:    synthesizer,
		Store:          store,
		OnboardingRepo: onboardingRepo,
		ChallengeRepo:  challengeRepo,
		Logger:         logger,
	})
	ttsWorker.Start(ctx)
	defer ttsWorker.Stop()

	billingService := service.NewBillingService(*cfg, service.BillingDependencies{
		AgencyRepo:       agencyRepo,
		BillingEventRepo: billingEventRepo,
		Stripe:           stripeGateway,
		Dispatcher:       dispatcher,
		Logger:           logger,
	})
	agencyService := service.NewAgencyService(service.AgencyDependencies{
		Pool:           pool,
		AgencyRepo:     agencyRepo,
		StaffRepo:      staffRepo,
		SessionManager: sessionManager,
		Billing:        billingService,
		Dispatcher:     dispatcher,
		BcryptCost:     cfg.Auth.BcryptCost,
	})
	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		AgencyRepo:        agencyRepo,
		StaffRepo:         staffRepo,
		PasswordResetRepo: resetRepo,
		TokenManager:      tokenManager,
		SessionManager:    sessionManager,
		Mailer:            mail,
	})
	salesService := service.NewSalesService(service.SalesDependencies{
		SaleRepo:   saleRepo,
		StaffRepo:  staffRepo,
		Dispatcher: dispatcher,
	})
	scorecardService := service.NewScorecardService(service.ScorecardDependencies{
		SaleRepo:  saleRepo,
		StaffRepo: staffRepo,
	})
	trainingService := service.NewTrainingService(service.TrainingDependencies{
		Pool:           pool,
		OnboardingRepo: onboardingRepo,
		ChallengeRepo:  challengeRepo,
		StaffRepo:      staffRepo,
		Speech:         ttsWorker,
		Dispatcher:     dispatcher,
	})
	callService := service.NewCallService(service.CallDependencies{
		CallRepo:    callRepo,
		StaffRepo:   staffRepo,
		Store:       store,
		Pipeline:    pipeline,
		Scorer:      scorer,
		RingCentral: ringCentral,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	leadService := service.NewLeadService(service.LeadDependencies{
		LeadRepo:   leadRepo,
		Dispatcher: dispatcher,
	})
	notificationService := service.NewNotificationService(service.NotificationDependencies{
		AgencyRepo: agencyRepo,
		StaffRepo:  staffRepo,
		Mailer:     mail,
		Logger:     logger,
	})
	worker.StartNotificationWorker(notificationService, dispatcher)

	authMiddleware := auth.NewAuthMiddleware(tokenManager, sessionManager, agencyRepo, staffRepo)
	publicLimiter := ratelimit.New(redis.Client, "public_form", cfg.RateLimit.PublicFormPerMinute, time.Minute)

	metrics := observability.NewMetrics()

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Agency:         handlers.NewAgencyHandler(agencyService),
		Sales:          handlers.NewSalesHandler(salesService, scorecardService),
		Training:       handlers.NewTrainingHandler(trainingService),
		Calls:          handlers.NewCallsHandler(callService),
		Billing:        handlers.NewBillingHandler(billingService, agencyService),
		Public:         handlers.NewPublicHandler(leadService, publicLimiter),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
