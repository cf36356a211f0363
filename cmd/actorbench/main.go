package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	if err := newRootCmd(viper.New()).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "actorbench",
		Short: "Load generator for the prioactor runtime",
		Long: `actorbench launches a group of actors, floods them with messages of
mixed priority from concurrent senders and reports throughput and ask latency.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initConfig(cmd, v)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := Load(v)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	d := Default()
	f := cmd.Flags()
	f.StringP("config", "c", "", "config file (yaml)")
	f.IntP("actors", "a", d.Actors, "number of actors in the group")
	f.IntP("senders", "s", d.Senders, "number of concurrent sender goroutines")
	f.DurationP("duration", "d", d.Duration, "how long to generate load")
	f.Int("ask-every", d.AskEvery, "every n-th message is an ask instead of a send (0 disables asks)")
	f.Duration("ask-timeout", d.AskTimeout, "timeout of a single ask")
	f.Duration("heartbeat", d.Heartbeat, "interval of the per-actor resender (0 disables it)")
	f.Duration("work-time", d.WorkTime, "simulated work per message")
	f.String("metrics-addr", d.MetricsAddr, "serve prometheus metrics on this address, e.g. :9090")
	f.String("log-level", d.LogLevel, "debug, info, warn or error")

	return cmd
}

func initConfig(cmd *cobra.Command, v *viper.Viper) error {
	SetDefaults(v)

	// flags use dashes, config keys underscores
	for _, key := range []string{"actors", "senders", "duration", "ask_every", "ask_timeout", "heartbeat", "work_time", "metrics_addr", "log_level"} {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(strings.ReplaceAll(key, "_", "-"))); err != nil {
			return err
		}
	}

	v.SetEnvPrefix("ACTORBENCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config %s: %w", cfgFile, err)
		}
	}
	return nil
}

func run(parent context.Context, cfg Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	level, _ := parseLevel(cfg.LogLevel)
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	b := newBench(cfg, log)

	if cfg.MetricsAddr != "" {
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: b.metricsHandler()}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		defer func() { _ = srv.Close() }()
		log.Info("serving metrics", slog.String("addr", cfg.MetricsAddr))
	}

	res, err := b.Run(ctx)
	if err != nil {
		return err
	}
	res.Print(os.Stdout)
	return nil
}
