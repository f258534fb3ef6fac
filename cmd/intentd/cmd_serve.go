package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/danmuck/intentctl/internal/admin"
	"github.com/danmuck/intentctl/internal/config"
	"github.com/danmuck/intentctl/internal/gateway"
	"github.com/danmuck/intentctl/internal/logging"
	"github.com/danmuck/intentctl/internal/observability"
	"github.com/danmuck/intentctl/internal/server"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

// Serve settings resolve as flag, then INTENTD_* environment variable, then
// config file, then default.
var serveEnv = map[string]string{
	"config":     "INTENTD_CONFIG",
	"addr":       "INTENTD_ADDR",
	"admin-addr": "INTENTD_ADMIN_ADDR",
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the intent daemon",
		Long:  "Listen for train and query requests. The admin HTTP surface starts when admin_addr is set.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logging.ConfigureRuntime()
			v, err := bindServeFlags(cmd)
			if err != nil {
				return err
			}
			cfg, err := resolveServeConfig(v)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	cmd.Flags().String("config", defaultConfigPath, "path to the intentd TOML config")
	cmd.Flags().String("addr", "", "TCP listen address (overrides config)")
	cmd.Flags().String("admin-addr", "", "admin HTTP address (overrides config)")
	return cmd
}

func bindServeFlags(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()
	for key, env := range serveEnv {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(key)); err != nil {
			return nil, fmt.Errorf("bind --%s: %w", key, err)
		}
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}
	return v, nil
}

// resolveServeConfig loads the config file when present. A missing file is
// only an error when a path was given explicitly.
func resolveServeConfig(v *viper.Viper) (config.Config, error) {
	path := v.GetString("config")
	cfg := config.Default()
	if _, err := os.Stat(path); err == nil {
		cfg, err = config.Load(path)
		if err != nil {
			return config.Config{}, err
		}
		log.Info().Str("path", path).Msg("using config file")
	} else if v.IsSet("config") {
		return config.Config{}, fmt.Errorf("config not found: %s", path)
	}

	if addr := v.GetString("addr"); addr != "" {
		cfg.Addr = addr
	}
	if addr := v.GetString("admin-addr"); addr != "" {
		cfg.AdminAddr = addr
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func serve(ctx context.Context, cfg config.Config) error {
	recorder := observability.NewRecorder()
	gw := gateway.NewWithObserver(recorder)
	srv := server.New(cfg.Server(), gw, server.WithMetrics(recorder))

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return srv.ListenAndServe(ctx)
	})
	if cfg.AdminAddr != "" {
		adm := admin.New(cfg.AdminAddr, srv, cfg.CorsOrigins)
		group.Go(func() error {
			return adm.Run(ctx, cfg.ShutdownTimeout)
		})
	}

	log.Info().
		Str("addr", cfg.Addr).
		Str("admin_addr", cfg.AdminAddr).
		Int("legacy_read_limit", cfg.LegacyReadLimit).
		Uint32("max_frame_bytes", cfg.MaxFrameBytes).
		Msg("intentd starting")
	return group.Wait()
}
