package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-email-change/internal/application/emailchange"
	"github.com/go-email-change/internal/config"
	"github.com/go-email-change/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-email-change/internal/infrastructure/jwt"
	"github.com/go-email-change/internal/infrastructure/redisstore"
	"github.com/go-email-change/internal/infrastructure/smtp"
	"github.com/go-email-change/internal/infrastructure/sns"
	transporthttp "github.com/go-email-change/internal/transport/http"
	appmiddleware "github.com/go-email-change/internal/transport/http/middleware"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	jwtProvider, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		log.Fatalf("JWT provider not available: %v", err)
	}

	verifications, closeStore, err := newVerificationStore(cfg, dynamoClient)
	if err != nil {
		log.Fatalf("verification store: %v", err)
	}
	defer closeStore()

	notifier, err := newNotifier(cfg)
	if err != nil {
		log.Fatalf("notifier: %v", err)
	}

	limiter := appmiddleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	defer limiter.Stop()

	deps := &transporthttp.Deps{
		EmailChange: emailchange.NewService(emailchange.ServiceDeps{
			Verifications: verifications,
			Users:         dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables.Users),
			Notifier:      notifier,
			OTP:           cfg.OTP,
		}),
		Tokens:      jwtProvider,
		RateLimiter: limiter,
	}
	// A nil *SessionRepo must not reach the interface field.
	if cfg.DynamoTables.Sessions != "" {
		deps.Sessions = dynamo.NewSessionRepo(dynamoClient, cfg.DynamoTables.Sessions)
	}

	router := transporthttp.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s, store=%s, notifier=%s)", cfg.AppPort, cfg.AppEnv, cfg.VerificationStore, cfg.Notifier)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("forced shutdown: %v", err)
		return
	}
	log.Println("Server stopped")
}

func newVerificationStore(cfg *config.Config, client dynamo.API) (emailchange.VerificationStore, func(), error) {
	switch cfg.VerificationStore {
	case config.StoreDynamo:
		return dynamo.NewVerificationRepo(client, cfg.DynamoTables.Verifications), func() {}, nil
	case config.StoreRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opts)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("ping redis: %w", err)
		}
		return redisstore.NewVerificationStore(rdb, redisstore.DefaultRetention), func() { _ = rdb.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown VERIFICATION_STORE %q", cfg.VerificationStore)
	}
}

func newNotifier(cfg *config.Config) (emailchange.Notifier, error) {
	switch cfg.Notifier {
	case config.NotifierSMTP:
		return smtp.NewOTPNotifier(smtp.NewMailer(cfg), cfg.OTP.ExpirationMinutes), nil
	case config.NotifierSNS:
		p, err := sns.NewPublisher(cfg)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown NOTIFIER %q", cfg.Notifier)
	}
}
