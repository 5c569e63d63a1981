package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"askbox/internal/auth"
	"askbox/internal/captcha"
	"askbox/internal/config"
	"askbox/internal/server"
	"askbox/internal/store"
)

type rootOptions struct {
	ConfigPath string
	LogLevel   string
	LogFormat  string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "askbox",
		Short: "Anonymous question box",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(cmd.ErrOrStderr(), opts.LogLevel, opts.LogFormat)
			if err != nil {
				return err
			}
			slog.SetDefault(logger)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (default $"+config.PathEnv+" or "+config.DefaultPath+")")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "info", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", "json", "log format (json|text)")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newMigrateCommand(opts))
	return cmd
}

func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q", level)
	}
	handlerOpts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, handlerOpts)), nil
	case "text":
		return slog.New(slog.NewTextHandler(w, handlerOpts)), nil
	default:
		return nil, fmt.Errorf("invalid --log-format %q: must be json or text", format)
	}
}

func (o *rootOptions) loadConfig() (config.Config, error) {
	if o.ConfigPath != "" {
		return config.LoadFile(o.ConfigPath)
	}
	return config.LoadConfig()
}

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema if it is missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if cfg.Database.Driver != config.DriverPostgres {
				return fmt.Errorf("migrate needs database.driver = %q, got %q", config.DriverPostgres, cfg.Database.Driver)
			}
			pool, err := store.NewPostgresPool(cmd.Context(), cfg.Database.DSN(), int32(cfg.Database.MaxConnections))
			if err != nil {
				return err
			}
			defer pool.Close()
			if err := store.CreateSchema(cmd.Context(), pool); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		},
	}
}

func openStore(ctx context.Context, cfg config.Database) (store.Store, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		slog.Warn("using in-memory store", "snapshot_file", cfg.SnapshotFile)
		mem, err := store.NewMemoryWithOptions(store.MemoryOptions{SnapshotFile: cfg.SnapshotFile})
		if err != nil {
			return nil, err
		}
		return mem, nil
	case config.DriverPostgres:
		pool, err := store.NewPostgresPool(ctx, cfg.DSN(), int32(cfg.MaxConnections))
		if err != nil {
			return nil, err
		}
		if err := store.CreateSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		slog.Info("connected to postgres", "host", cfg.Host, "database", cfg.Database, "max_connections", cfg.MaxConnections)
		return store.NewPostgres(pool), nil
	default:
		return nil, errors.New("unknown database driver " + cfg.Driver)
	}
}

func newDeps(cfg config.Config, st store.Store) (server.Deps, error) {
	trusted, err := cfg.TrustedProxyPrefixes()
	if err != nil {
		return server.Deps{}, err
	}
	gate, err := auth.NewAdminGate(cfg.Host.AdminToken)
	if err != nil {
		return server.Deps{}, err
	}
	timeout := cfg.HCaptcha.Timeout.Std()
	verifier := captcha.NewVerifier(
		cfg.HCaptcha.SiteKey,
		cfg.HCaptcha.Secret,
		trusted,
		timeout,
		captcha.NewHTTPClient(cfg.HCaptcha.Endpoint, timeout),
	)
	if verifier.Bypassed() {
		slog.Warn("captcha verification is bypassed in this build; do not run it in production")
	}
	return server.Deps{
		Store:     st,
		Verifier:  verifier,
		AdminGate: gate,
		Logger:    slog.Default(),
	}, nil
}

func serve(ctx context.Context, cfg config.Config) error {
	gin.SetMode(cfg.Host.GinMode)

	st, err := openStore(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	deps, err := newDeps(cfg, st)
	if err != nil {
		return err
	}
	router, err := server.NewRouter(deps)
	if err != nil {
		return err
	}
	return server.Run(ctx, cfg, router)
}
