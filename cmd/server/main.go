package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	echoapi "github.com/coderepojon/authcore/api/echo"
	"github.com/coderepojon/authcore/cache"
	redistore "github.com/coderepojon/authcore/cache/redis"
	"github.com/coderepojon/authcore/config"
	"github.com/coderepojon/authcore/internal/auth"
	"github.com/coderepojon/authcore/live"
	"github.com/coderepojon/authcore/log"
	"github.com/coderepojon/authcore/mongodb"
	"github.com/coderepojon/authcore/services"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to load configuration")
	}
	log.Setup(cfg.LogLevel, cfg.LogPretty)

	zlog.Info().
		Str("http_port", cfg.HTTPPort).
		Str("mongo_db", cfg.MongoDBName).
		Msg("starting authcore server")

	ctx := context.Background()
	client, db, err := mongodb.Connect(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to connect to mongodb")
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			zlog.Error().Err(err).Msg("mongodb disconnect error")
		}
	}()

	tokenRepo, err := mongodb.NewTokenRepository(ctx, db)
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to initialize token repository")
	}
	userRepo, err := mongodb.NewUserRepository(ctx, db)
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to initialize user repository")
	}

	var tokenCache cache.TokenCache
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			zlog.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("failed to connect to redis")
		}
		tokenCache = redistore.NewTokenCache(rdb, "authcore")
		zlog.Info().Str("addr", cfg.RedisAddr).Msg("using redis token cache")
	} else {
		tokenCache = cache.NewMemoryTokenCache()
		zlog.Info().Msg("using in-memory token cache")
	}
	defer tokenCache.Close()

	codec, err := services.NewCodec(cfg.JWTSecretKey, cfg.JWTIssuer, cfg.AccessTokenTTL(), cfg.RefreshTokenTTL())
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to initialize credential codec")
	}

	broker := live.NewBroker()
	tokenService := services.NewTokenService(tokenRepo, userRepo, codec, tokenCache, broker)
	registry := services.NewSessionRegistry(tokenRepo, userRepo)
	hasher := auth.NewBcryptPasswordHasher(bcrypt.DefaultCost)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())

	authAPI := echoapi.NewAuthAPI(userRepo, hasher, tokenService, registry, broker)
	authAPI.RegisterRoutes(e)

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	go func() {
		if err := e.Start(":" + cfg.HTTPPort); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Err(err).Msg("http server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	zlog.Info().Str("signal", sig.String()).Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Err(err).Msg("http server shutdown error")
	}

	zlog.Info().Msg("server stopped")
}
