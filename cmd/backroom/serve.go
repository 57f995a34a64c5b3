package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nathoo/backroom/backend/narrator"
	"github.com/nathoo/backroom/backend/scenario"
	"github.com/nathoo/backroom/backend/server"
	"github.com/nathoo/backroom/backend/store"
	"github.com/nathoo/backroom/config"
	"github.com/nathoo/backroom/logging"
)

var serveFlags struct {
	listen   string
	scenario string
	redis    string
	dev      bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scripted dev backend",
	Long:  `Serve a Lua scenario over /api/chat (NDJSON), /api/chat/sse and /ws. Snapshots are kept in redis; without --redis an in-process instance is started.`,
	RunE:  runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveFlags.listen, "listen", "", "listen address (overrides BACKROOM_LISTEN)")
	f.StringVar(&serveFlags.scenario, "scenario", "", "scenario directory (default: built-in)")
	f.StringVar(&serveFlags.redis, "redis", "", "redis address (default: in-process)")
	f.BoolVar(&serveFlags.dev, "dev", false, "human-readable logs")
}

// shutdownTimeout bounds how long open streams may take to finish.
const shutdownTimeout = 5 * time.Second

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(dotenv)
	if err != nil {
		return err
	}
	if serveFlags.listen != "" {
		cfg.Listen = serveFlags.listen
	}
	if serveFlags.scenario != "" {
		cfg.ScenarioDir = config.ExpandHome(serveFlags.scenario)
	}
	if serveFlags.redis != "" {
		cfg.RedisAddr = serveFlags.redis
	}

	log, err := logging.New(logging.Options{Level: cfg.LogLevel, Development: serveFlags.dev})
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	sc, err := loadScenario(cfg.ScenarioDir)
	if err != nil {
		return err
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	rdb, closeRedis, err := store.Dial(cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer closeRedis() //nolint:errcheck

	st, err := store.New(&store.Config{Client: rdb, TTL: cfg.SessionTTL})
	if err != nil {
		return err
	}
	srv, err := server.New(&server.Config{
		Narrator:   narrator.New(sc, narrator.NewRNG(seed), log),
		Store:      st,
		ChunkDelay: cfg.ChunkDelay(),
		Log:        log,
	})
	if err != nil {
		return err
	}

	httpSrv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error {
		log.Info("backend listening",
			zap.String("addr", cfg.Listen),
			zap.String("scenario", sc.Title),
			zap.Int64("seed", seed),
			zap.Bool("external_redis", cfg.RedisAddr != ""))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func loadScenario(dir string) (*scenario.Scenario, error) {
	if dir == "" {
		return scenario.Default()
	}
	return scenario.Load(dir)
}
