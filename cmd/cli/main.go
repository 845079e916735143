// Command itemsync is the CLI client of the item backend.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/and161185/itemsync/internal/api"
	"github.com/and161185/itemsync/internal/app"
	"github.com/and161185/itemsync/internal/config"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// cli carries global flags and the lazily built container.
type cli struct {
	cfgFile string
	baseURL string
	dataDir string
	verbose bool
	asJSON  bool

	out  io.Writer
	http api.Doer // tests inject a client

	c *app.Container
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := &cli{out: os.Stdout}
	if err := a.root().ExecuteContext(ctx); err != nil {
		printError(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func (a *cli) root() *cobra.Command {
	root := &cobra.Command{
		Use:           "itemsync",
		Short:         "Item sync client",
		Long:          "Sign in, synchronize and edit your items from the terminal.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if a.c == nil {
				return nil
			}
			err := a.c.Close()
			a.c = nil
			return err
		},
	}
	root.SetOut(a.out)

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (YAML)")
	pf.StringVar(&a.baseURL, "base-url", "", "API base URL (overrides config)")
	pf.StringVar(&a.dataDir, "data-dir", "", "local data directory (overrides config)")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")
	pf.BoolVar(&a.asJSON, "json", false, "print JSON")

	root.AddCommand(
		a.versionCmd(),
		a.signUpCmd(),
		a.loginCmd(),
		a.logoutCmd(),
		a.whoamiCmd(),
		a.profileCmd(),
		a.accountCmd(),
		a.itemsCmd(),
		a.prefsCmd(),
	)
	return root
}

func (a *cli) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "itemsync %s (%s)\n", version, buildDate)
		},
	}
}

// container loads config and builds the dependencies on first use.
func (a *cli) container(ctx context.Context) (*app.Container, error) {
	if a.c != nil {
		return a.c, nil
	}
	cfg, err := config.LoadClient(a.cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if a.baseURL != "" {
		cfg.BaseURL = a.baseURL
	}
	if a.dataDir != "" {
		cfg.DataDir = a.dataDir
	}

	log, err := newLogger(a.verbose || cfg.Verbose)
	if err != nil {
		return nil, err
	}

	var opts []app.Option
	if a.http != nil {
		opts = append(opts, app.WithHTTPClient(a.http))
	}
	c, err := app.New(ctx, cfg, log, opts...)
	if err != nil {
		return nil, err
	}
	a.c = c
	return c, nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}
