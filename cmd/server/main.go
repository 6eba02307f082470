package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"mothercare/backend/internal/cache"
	"mothercare/backend/internal/config"
	"mothercare/backend/internal/domain"
	"mothercare/backend/internal/httpapi"
	"mothercare/backend/internal/service"
	"mothercare/backend/internal/store"
	"mothercare/backend/internal/store/memory"
	pgstore "mothercare/backend/internal/store/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load configuration")
	}
	setupLogging(cfg)

	if err := validateSecurityConfig(cfg); err != nil {
		log.Fatal().Err(err).Msg("invalid security configuration")
	}
	loc, err := cfg.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid report timezone")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	var repo store.Repository
	closers := make([]func() error, 0, 2)

	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("postgres unavailable and DATABASE_URL is set; refusing to fall back to memory")
		}
		if err := pg.Migrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("apply schema")
		}
		repo = pg
		closers = append(closers, pg.Close)
		log.Info().Str("repository", "postgres").Msg("storage ready")
	} else if cfg.SeedDemoData {
		repo = memory.NewSeeded()
		log.Info().Str("repository", "memory").Bool("seeded", true).Msg("storage ready")
	} else {
		repo = memory.New()
		log.Info().Str("repository", "memory").Bool("seeded", false).Msg("storage ready")
	}

	var reports cache.ReportCache = cache.NoopReportCache{}
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisReportCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("redis unavailable, reports are not cached")
			_ = redisCache.Close()
		} else {
			reports = redisCache
			closers = append(closers, redisCache.Close)
			log.Info().Str("cache", "redis").Msg("report cache ready")
		}
	}

	svc := service.New(repo, service.Options{
		Authorizer:     service.NewRoleAuthorizer(cfg.AuthorizedActors()),
		ReportCache:    reports,
		ReportCacheTTL: cfg.ReportCacheTTL(),
		Location:       loc,
	})
	if err := openSessions(ctx, svc); err != nil {
		log.Fatal().Err(err).Msg("open accounting sessions")
	}

	auth := httpapi.NewAuthManager(ctx, cfg.AuthSecret, cfg.AccessTokenTTL(), cfg.ManagerPIN, repo)
	api := httpapi.New(svc, auth, cfg.AllowedOrigin)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Address()).Str("timezone", loc.String()).Msg("mothercare backend listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Error().Err(err).Msg("close resource")
		}
	}
	log.Info().Msg("server stopped")
}

// openSessions makes sure every line has a session to file sales under.
func openSessions(ctx context.Context, svc *service.Service) error {
	sys := service.SystemContext(ctx)
	for _, line := range domain.Lines() {
		session, created, err := svc.OpenFirstSession(sys, line)
		if err != nil {
			return fmt.Errorf("%s: %w", line, err)
		}
		log.Info().Str("line", string(line)).Str("session_id", session.ID).Bool("created", created).Msg("accounting session")
	}
	return nil
}

func setupLogging(cfg config.Config) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if strings.EqualFold(cfg.LogFormat, "json") {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return errors.New("AUTH_SECRET must be set and at least 32 characters")
	}
	if len(cfg.ManagerPIN) < 6 {
		return errors.New("MANAGER_PIN must be set and at least 6 digits")
	}
	for _, r := range cfg.ManagerPIN {
		if r < '0' || r > '9' {
			return errors.New("MANAGER_PIN must contain digits only")
		}
	}
	if err := validatePINStrength(cfg.ManagerPIN); err != nil {
		return fmt.Errorf("MANAGER_PIN is too weak: %w", err)
	}
	return nil
}

var weakPINs = map[string]bool{
	"123456": true, "654321": true, "121212": true, "112233": true,
	"123123": true, "159753": true, "246810": true, "102030": true,
}

// validatePINStrength rejects repeated digits, straight runs and a short
// list of commonly chosen PINs.
func validatePINStrength(pin string) error {
	if weakPINs[pin] {
		return errors.New("common PIN not allowed")
	}
	if strings.Count(pin, pin[:1]) == len(pin) {
		return errors.New("repeated-digit PIN not allowed")
	}

	up, down := true, true
	for i := 1; i < len(pin); i++ {
		step := int(pin[i]) - int(pin[i-1])
		up = up && step == 1
		down = down && step == -1
	}
	if up || down {
		return errors.New("sequential PIN not allowed")
	}
	return nil
}
