// Command itemsync-server runs the reference item backend over HTTP.
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

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/and161185/itemsync/internal/config"
	"github.com/and161185/itemsync/internal/limiter"
	"github.com/and161185/itemsync/internal/migrate"
	"github.com/and161185/itemsync/internal/repository/memory"
	"github.com/and161185/itemsync/internal/repository/postgres"
	"github.com/and161185/itemsync/internal/server/httpapi"
	"github.com/and161185/itemsync/internal/service"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// memoryDSN selects the in-process store instead of PostgreSQL.
const memoryDSN = "memory"

const shutdownTimeout = 5 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

type flags struct {
	cfgFile string
	addr    string
	dsn     string
	jwtKey  string
}

// load reads the config file and environment; flags win.
func (f *flags) load() (*config.Server, error) {
	cfg, err := config.LoadServer(f.cfgFile)
	if err != nil {
		return nil, err
	}
	if f.addr != "" {
		cfg.Addr = f.addr
	}
	if f.dsn != "" {
		cfg.DSN = f.dsn
	}
	if f.jwtKey != "" {
		cfg.JWTKey = f.jwtKey
	}
	return cfg, cfg.Validate()
}

func rootCmd() *cobra.Command {
	var f flags
	root := &cobra.Command{
		Use:           "itemsync-server",
		Short:         "Item backend (REST + JWT)",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&f.cfgFile, "config", "", "config file (YAML)")
	pf.StringVar(&f.dsn, "dsn", "", `PostgreSQL DSN, or "memory" for a throwaway in-process store`)

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run migrations and serve the API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := f.load()
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg.Env)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			return run(cmd.Context(), cfg, logger)
		},
	}
	serve.Flags().StringVar(&f.addr, "addr", "", "listen address")
	serve.Flags().StringVar(&f.jwtKey, "jwt-key", "", "HS256 signing key")

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadServer(f.cfgFile)
			if err != nil {
				return err
			}
			if f.dsn != "" {
				cfg.DSN = f.dsn
			}
			if cfg.DSN == memoryDSN {
				return errors.New("nothing to migrate for the in-memory store")
			}
			if err := migrate.Up(cmd.Context(), cfg.DSN); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "itemsync-server %s (%s)\n", version, buildDate)
		},
	}

	root.AddCommand(serve, migrateCmd, versionCmd)
	return root
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "production" {
		gin.SetMode(gin.ReleaseMode)
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

type backend struct {
	auth  service.AuthService
	items service.ItemService
	close func()
}

// openBackend builds the services over PostgreSQL, or over memory for memoryDSN.
func openBackend(ctx context.Context, cfg *config.Server, logger *zap.Logger) (*backend, error) {
	key := []byte(cfg.JWTKey)
	lc := cfg.Limiter

	if cfg.DSN == memoryDSN {
		logger.Warn("using in-memory storage; data is lost on exit")
		st := memory.New()
		lim := limiter.NewMemory(lc.Window, lc.MaxFails, lc.BlockFor)
		return &backend{
			auth:  service.NewAuthService(st.Users(), st.Tokens(), lim, key, cfg.AccessTTL, cfg.RefreshTTL),
			items: service.NewItemService(st.Items()),
			close: func() {},
		}, nil
	}

	if err := migrate.Up(ctx, cfg.DSN); err != nil {
		return nil, fmt.Errorf("migrate up: %w", err)
	}
	db, err := postgres.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	lim := limiter.NewPG(db.Pool, lc.Window, lc.MaxFails, lc.BlockFor)
	return &backend{
		auth: service.NewAuthService(postgres.NewUserRepo(db), postgres.NewTokenRepo(db), lim,
			key, cfg.AccessTTL, cfg.RefreshTTL),
		items: service.NewItemService(postgres.NewItemRepo(db)),
		close: db.Close,
	}, nil
}

// run serves until ctx is cancelled, then shuts down gracefully.
func run(ctx context.Context, cfg *config.Server, logger *zap.Logger) error {
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.Addr),
		zap.String("env", cfg.Env),
	)

	b, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.New(b.auth, b.items, logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("graceful shutdown", zap.Error(err))
			_ = srv.Close()
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
	}

	logger.Info("shutdown complete")
	return nil
}
