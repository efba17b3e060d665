package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-club-go/internal/auth"
	authrepo "github.com/ovaphlow/pitchfork/service-club-go/internal/auth/repo"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/coach"
	coachrepo "github.com/ovaphlow/pitchfork/service-club-go/internal/coach/repo"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/gate"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/match"
	matchrepo "github.com/ovaphlow/pitchfork/service-club-go/internal/match/repo"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/medical"
	medicalrepo "github.com/ovaphlow/pitchfork/service-club-go/internal/medical/repo"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/permission"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/physical"
	physicalrepo "github.com/ovaphlow/pitchfork/service-club-go/internal/physical/repo"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/player"
	playerrepo "github.com/ovaphlow/pitchfork/service-club-go/internal/player/repo"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/router"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/season"
	seasonrepo "github.com/ovaphlow/pitchfork/service-club-go/internal/season/repo"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/storage"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/user"
	userrepo "github.com/ovaphlow/pitchfork/service-club-go/internal/user/repo"
	"github.com/ovaphlow/pitchfork/service-club-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-club-go/pkg/utilities"
)

type schema interface {
	EnsureTable(ctx context.Context) error
}

func ensureSchema(ctx context.Context, repos ...schema) error {
	for _, r := range repos {
		if err := r.EnsureTable(ctx); err != nil {
			return fmt.Errorf("ensure %T: %w", r, err)
		}
	}
	return nil
}

// sessionStore picks the store named by SESSION_STORE. The returned purger is
// non-nil for stores that need an expiry sweep.
func sessionStore(ctx context.Context, repo *authrepo.SessionRepo, cfg auth.Config, sugar *zap.SugaredLogger) (auth.SessionStore, auth.ExpiredSessionPurger, func(), error) {
	switch kind := os.Getenv("SESSION_STORE"); kind {
	case "", "postgres":
		return repo, repo, func() {}, nil
	case "redis":
		client, err := auth.NewRedisClient(ctx, auth.RedisConfigFromEnv())
		if err != nil {
			return nil, nil, nil, err
		}
		return auth.NewRedisStore(client), nil, func() { client.Close() }, nil
	case "memory":
		sugar.Warn("in-memory sessions do not survive restarts")
		return auth.NewMemoryStore(10000, cfg.SessionTTL), nil, func() {}, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown SESSION_STORE %q", kind)
	}
}

func main() {
	// best effort: a missing .env leaves the real environment in charge
	_ = godotenv.Load()

	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()
	sugar := lg.Sugar()
	sugar.Info("starting service-club-go")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(database.ConfigFromEnv())
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	users := userrepo.NewUserRepo(db)
	sessions := authrepo.NewSessionRepo(db)
	seasons := seasonrepo.NewSeasonRepo(db)
	players := playerrepo.NewPlayerRepo(db)
	coaches := coachrepo.NewCoachRepo(db)
	matches := matchrepo.NewMatchRepo(db)
	records := medicalrepo.NewRecordRepo(db)
	datasets := physicalrepo.NewDatasetRepo(db)
	if os.Getenv("DATABASE_ENSURE_SCHEMA") == "1" {
		if err := ensureSchema(ctx, users, sessions, seasons, players, coaches, matches, records, datasets); err != nil {
			sugar.Fatalf("schema: %v", err)
		}
		sugar.Info("schema ensured")
	}

	var uploader storage.Uploader = storage.Disabled{}
	if scfg := storage.ConfigFromEnv(); scfg.Enabled() {
		s3, err := storage.NewS3(ctx, scfg)
		if err != nil {
			sugar.Fatalf("storage: %v", err)
		}
		uploader = s3
		sugar.Infow("object storage enabled", "bucket", scfg.Bucket)
	} else {
		sugar.Warn("S3_BUCKET not set; uploads are disabled")
	}

	authCfg := auth.ConfigFromEnv()
	store, purger, closeStore, err := sessionStore(ctx, sessions, authCfg, sugar)
	if err != nil {
		sugar.Fatalf("session store: %v", err)
	}
	defer closeStore()

	broker := auth.NewBroker()
	userSvc := user.NewUserService(users, user.BcryptHasher{}, broker)
	resolver := permission.NewResolver(userSvc, permission.ConfigFromEnv(), sugar)
	unbind := auth.BindResolver(broker, resolver)
	defer unbind()
	authSvc, err := auth.NewService(userSvc, store, broker, authCfg, sugar)
	if err != nil {
		sugar.Fatalf("auth: %v", err)
	}

	sched := cron.New()
	if purger != nil {
		if _, err := auth.ScheduleSweep(sched, auth.SweepScheduleFromEnv(), purger, sugar); err != nil {
			sugar.Fatalf("session sweep schedule: %v", err)
		}
	}
	sched.Start()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	seasonSvc := season.NewService(seasons)
	playerSvc := player.NewService(players, seasonSvc, uploader, sugar)
	coachSvc := coach.NewService(coaches, seasonSvc)
	matchSvc := match.NewService(matches, seasonSvc, playerSvc, coachSvc, uploader, sugar)

	handler := router.New(router.Deps{
		Logger:     sugar,
		Registry:   reg,
		Sessions:   authSvc,
		CookieName: authCfg.CookieName,
		Gate:       gate.New(resolver, sugar, reg),
		Auth:       auth.NewHandler(authSvc, resolver, authCfg, sugar),
		Users:      user.NewHandler(userSvc, sugar),
		Seasons:    season.NewHandler(seasonSvc, sugar),
		Players:    player.NewHandler(playerSvc, sugar),
		Coaches:    coach.NewHandler(coachSvc, sugar),
		Matches:    match.NewHandler(matchSvc, sugar),
		Medical:    medical.NewHandler(medical.NewService(records, playerSvc, uploader, sugar), sugar),
		Physical:   physical.NewHandler(physical.NewService(datasets, playerSvc, sugar), sugar),
	})

	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = "0.0.0.0:8431"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()
	sugar.Infow("listening", "addr", addr)

	<-ctx.Done()
	sugar.Info("shutting down")

	doneCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}
	<-sched.Stop().Done()
	sugar.Info("goodbye")
}
