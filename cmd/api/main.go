package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"examgate.org/internal/authz"
	"examgate.org/internal/config"
	"examgate.org/internal/httpapi"
	"examgate.org/internal/obs"
	"examgate.org/internal/session"
	"examgate.org/internal/store/pg"
	"examgate.org/internal/stream"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// Grant store. Without a DSN the server still serves health and
	// metrics; every guarded route answers 503.
	var store *pg.Store
	if cfg.PGDSN != "" {
		store, err = pg.Open(cfg.PGDSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
	}

	// Session revocation deny-list.
	var verifierOpts []session.VerifierOption
	verifierOpts = append(verifierOpts, session.WithIssuer(cfg.AuthIssuer))
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("parse redis url: %v", err)
		}
		redisClient = redis.NewClient(redisOpts)
		revocations, err := session.NewRedisRevocations(redisClient)
		if err != nil {
			log.Fatalf("revocation store: %v", err)
		}
		verifierOpts = append(verifierOpts, session.WithRevocationStore(revocations))
	}

	var guard *authz.Guard
	if store != nil && cfg.AuthSecret != "" {
		verifier, err := session.NewVerifier(cfg.AuthSecret, verifierOpts...)
		if err != nil {
			log.Fatalf("session verifier: %v", err)
		}
		builder, err := authz.NewBuilder(store)
		if err != nil {
			log.Fatalf("profile builder: %v", err)
		}
		guard, err = authz.NewGuard(verifier, builder)
		if err != nil {
			log.Fatalf("guard: %v", err)
		}
	} else {
		log.Println("guard disabled: EXAMGATE_PG_DSN and EXAMGATE_AUTH_SECRET are both required")
	}

	opts := httpapi.Options{
		Guard:         guard,
		Decisions:     stream.New(),
		Version:       version,
		LoginURL:      cfg.LoginURL,
		RateBurst:     cfg.RateLimitBurst,
		RatePerSecond: cfg.RateLimitPerSecond,
	}
	if store != nil {
		opts.ReadyProbe = httpapi.ReadyProbe{DB: store.DB()}
	}
	api := httpapi.New(opts)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting examgate-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if store != nil {
		_ = store.Close()
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	log.Println("Stopped")
}
