package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/vasapolrittideah/account-verification-api/services/auth-service/internal/config"
	"github.com/vasapolrittideah/account-verification-api/services/auth-service/internal/handler"
	"github.com/vasapolrittideah/account-verification-api/services/auth-service/internal/notifier"
	"github.com/vasapolrittideah/account-verification-api/services/auth-service/internal/repository"
	"github.com/vasapolrittideah/account-verification-api/services/auth-service/internal/usecase"
	"github.com/vasapolrittideah/account-verification-api/shared/auth"
	"github.com/vasapolrittideah/account-verification-api/shared/discovery"
	"github.com/vasapolrittideah/account-verification-api/shared/logger"
	"github.com/vasapolrittideah/account-verification-api/shared/mailer"
	"github.com/vasapolrittideah/account-verification-api/shared/utilities"
	"github.com/vasapolrittideah/account-verification-api/shared/validator"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := logger.New("info", true)
		bootLogger.Fatal().Err(err).Msg("failed to load config")
	}

	log := logger.New(cfg.LogLevel, cfg.LogPretty)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := mongo.Connect(options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to mongo")
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := client.Disconnect(disconnectCtx); err != nil {
			log.Error().Err(err).Msg("failed to disconnect from mongo")
		}
	}()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err = client.Ping(pingCtx, readpref.Primary())
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to ping mongo")
	}

	db := client.Database(cfg.Mongo.Database)
	userRepo := repository.NewUserMongoRepository(ctx, log, db)
	sessionRepo := repository.NewSessionMongoRepository(ctx, log, db)

	mailerCfg, err := mailer.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load mailer config")
	}
	verificationMailer := notifier.NewVerificationMailer(cfg.AppBaseURL, mailer.NewMailer(mailerCfg, log))

	jwtAuth := auth.NewJWTAuthenticator(cfg.Token.SessionSecret, cfg.Token.Audience, cfg.Token.Issuer)
	authUsecase := usecase.NewAuthUsecase(userRepo, sessionRepo, verificationMailer, jwtAuth, cfg, log)

	v, err := validator.New()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create validator")
	}
	authHandler := handler.NewAuthHTTPHandler(authUsecase, v, cfg, log)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler.NewRouter(authHandler, jwtAuth, log),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
	}

	healthServer := utilities.NewHealthServer(cfg.ServiceName)
	healthLis, err := net.Listen("tcp", cfg.GRPCHealthAddr)
	if err != nil {
		log.Fatal().Err(err).Str("addr", cfg.GRPCHealthAddr).Msg("failed to listen for health checks")
	}

	go func() {
		log.Info().Str("addr", cfg.GRPCHealthAddr).Msg("gRPC health server started")
		if err := healthServer.Serve(healthLis); err != nil {
			log.Error().Err(err).Msg("gRPC health server stopped")
		}
	}()

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP server started")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	var registry *discovery.ConsulRegistry
	serviceID := fmt.Sprintf("%s-%s", cfg.ServiceName, cfg.AdvertiseHost)
	if cfg.ConsulAddr != "" {
		registry = register(cfg, serviceID, log)
	}

	<-ctx.Done()
	log.Info().Msg("shutting down")

	if registry != nil {
		if err := registry.Deregister(serviceID); err != nil {
			log.Error().Err(err).Msg("failed to deregister service")
		}
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to shut down HTTP server")
	}
	healthServer.Stop()

	log.Info().Msg("server stopped")
}

func register(cfg *config.AuthServiceConfig, serviceID string, log *zerolog.Logger) *discovery.ConsulRegistry {
	registry, err := discovery.NewConsulRegistry(cfg.ConsulAddr, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create consul registry")
	}

	port, err := portOf(cfg.HTTPAddr)
	if err != nil {
		log.Fatal().Err(err).Str("addr", cfg.HTTPAddr).Msg("invalid HTTP address")
	}
	healthPort, err := portOf(cfg.GRPCHealthAddr)
	if err != nil {
		log.Fatal().Err(err).Str("addr", cfg.GRPCHealthAddr).Msg("invalid gRPC health address")
	}

	err = registry.Register(discovery.Registration{
		ID:         serviceID,
		Name:       cfg.ServiceName,
		Address:    cfg.AdvertiseHost,
		Port:       port,
		HealthAddr: net.JoinHostPort(cfg.AdvertiseHost, strconv.Itoa(healthPort)),
		Tags:       []string{"http"},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to register service")
	}

	return registry
}

func portOf(addr string) (int, error) {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, err
	}

	return strconv.Atoi(port)
}
