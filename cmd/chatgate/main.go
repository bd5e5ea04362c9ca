// Command chatgate is the process entrypoint: it loads configuration,
// constructs every security component, builds the chi router, and serves
// HTTP until a SIGINT/SIGTERM triggers a graceful drain. Grounded on
// _examples/skywalker-88-stormgate/cmd/protector/main.go.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/roomline/chatgate/internal/burst"
	"github.com/roomline/chatgate/internal/config"
	"github.com/roomline/chatgate/internal/contentfilter"
	"github.com/roomline/chatgate/internal/httpserver"
	"github.com/roomline/chatgate/internal/identity"
	"github.com/roomline/chatgate/internal/kv"
	"github.com/roomline/chatgate/internal/moderation"
	"github.com/roomline/chatgate/internal/pipeline"
	"github.com/roomline/chatgate/internal/ratelimit"
	"github.com/roomline/chatgate/internal/reports"
	"github.com/roomline/chatgate/internal/reputation"
	"github.com/roomline/chatgate/internal/sanitize"
	"github.com/roomline/chatgate/internal/shadowban"
	"github.com/roomline/chatgate/internal/stats"
	"github.com/roomline/chatgate/internal/store"
	"github.com/roomline/chatgate/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	switch strings.ToLower(getenv("LOG_LEVEL", "info")) {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load policy config")
	}

	serverSecret, err := config.RequireEnv("SERVER_SECRET")
	if err != nil {
		log.Fatal().Err(err).Msg("config error")
	}
	redisURL, err := config.RequireEnv("REDIS_URL")
	if err != nil {
		log.Fatal().Err(err).Msg("config error")
	}
	allowedOrigin, err := config.RequireEnv("ALLOWED_ORIGIN")
	if err != nil {
		log.Fatal().Err(err).Msg("config error")
	}
	port := config.MustEnv("PORT", "3001")
	openAIKey := os.Getenv("OPENAI_API_KEY")

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("malformed REDIS_URL")
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Warn().Err(err).Msg("redis not reachable yet")
	} else {
		log.Info().Msg("redis reachable")
	}
	cancel()

	redisStore := kv.NewRedisStore(rdb)
	bus := kv.NewRedisBus(rdb)

	keys := identity.NewKeyGenerator(serverSecret)
	blocks := ratelimit.NewBlockStore(redisStore)
	governor := ratelimit.NewGovernor(cfg.Governor.RPS, cfg.Governor.Burst)
	limiter := ratelimit.New(redisStore)
	burstProfiler := burst.New(redisStore, burst.Profile{
		Window:    time.Duration(cfg.Burst.WindowMillis) * time.Millisecond,
		Threshold: cfg.Burst.EndpointThresh,
		KeyTTL:    time.Duration(cfg.Burst.KeyTTLSeconds) * time.Second,
	})
	sbMgr := shadowban.New(redisStore)
	repMgr := reputation.New(redisStore, time.Duration(cfg.Reputation.ReportTTLSeconds)*time.Second)
	cf := contentfilter.New()
	classifier := moderation.NewClassifier(openAIKey, time.Duration(cfg.Moderation.OpenAITimeoutMillis)*time.Millisecond)
	modSvc := moderation.NewService(classifier, cfg.Moderation.KeywordDensityMin, cfg.Moderation.MaxURLs)
	sanitizer := sanitize.NewHTML()
	messageStore := store.New(redisStore, bus, time.Duration(cfg.Message.TTLSeconds)*time.Second)
	statsTracker := stats.New(redisStore)
	reportsPipeline := reports.New(redisStore, messageStore, sbMgr, repMgr, reports.Policy{
		ShadowbanThreshold: cfg.Reports.ShadowbanThreshold,
		DeleteThreshold:    cfg.Reports.DeleteThreshold,
	})

	ipBlockDuration := time.Duration(cfg.RateLimits.IPBlockSeconds) * time.Second

	p := pipeline.New(pipeline.Deps{
		Blocks:        blocks,
		Governor:      governor,
		BurstProfiler: burstProfiler,
		Limiter:       limiter,
		Shadowban:     sbMgr,
		Reputation:    repMgr,
		ContentFilter: cf,
		Moderation:    modSvc,
		Sanitizer:     sanitizer,
		Store:         messageStore,
		Stats:         statsTracker,
		Reports:       reportsPipeline,
	}, pipeline.Quotas{
		Post: ratelimit.Quota{
			Window: time.Duration(cfg.RateLimits.PostWindowSeconds) * time.Second,
			Max:    int64(cfg.RateLimits.PostMax),
		},
		Reveal: ratelimit.Quota{
			Window: time.Duration(cfg.RateLimits.RevealWindowSeconds) * time.Second,
			Max:    int64(cfg.RateLimits.RevealMax),
		},
		Burst: ratelimit.Quota{
			Window: time.Duration(cfg.RateLimits.BurstWindowSeconds) * time.Second,
			Max:    int64(cfg.RateLimits.BurstMax),
		},
	}, pipeline.Policy{
		MaxMessageLength:   cfg.Message.MaxLength,
		FanoutBlockIP:      ipBlockDuration,
		BurstWindowBlockIP: ipBlockDuration,
		ViolationTTL:       time.Duration(cfg.Shadowban.ViolationTTLSeconds) * time.Second,
		ViolationThreshold: cfg.Shadowban.ViolationThreshold,
		AutoBanDuration:    time.Duration(cfg.Shadowban.AutoBanSeconds) * time.Second,
	})

	reg := prometheus.NewRegistry()
	metrics.Register(reg)

	accessLogN, _ := strconv.Atoi(getenv("ACCESS_LOG_SAMPLE", "1"))

	router, cleanup := httpserver.NewRouter(httpserver.Deps{
		Pipeline:      p,
		Redis:         rdb,
		Keys:          keys,
		AllowedOrigin: allowedOrigin,
		AccessLog:     strings.EqualFold(getenv("ACCESS_LOG", "true"), "true"),
		AccessLogN:    accessLogN,
	})

	addr := ":" + port
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      35 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Info().Str("addr", addr).Str("log_level", zerolog.GlobalLevel().String()).Msg("chatgate starting")

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped unexpectedly")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	sig := <-quit
	log.Info().Str("signal", sig.String()).Msg("shutdown requested; draining")

	httpserver.SetDraining(true)

	shCtx, shCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shCancel()
	if err := srv.Shutdown(shCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown did not complete in time; forcing close")
		_ = srv.Close()
	} else {
		log.Info().Msg("http server shut down cleanly")
	}

	if cleanup != nil {
		cleanup()
	}
	if err := rdb.Close(); err != nil {
		log.Warn().Err(err).Msg("redis close")
	} else {
		log.Info().Msg("redis closed")
	}

	log.Info().Msg("chatgate exited")
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
