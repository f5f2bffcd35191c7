package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tazhate/olivabot/config"
	"github.com/tazhate/olivabot/internal/logging"
	"github.com/tazhate/olivabot/internal/storage"
	"go.uber.org/zap"
)

var (
	Version   = "dev"
	CommitSHA = "none"
	BuildDate = "unknown"
)

func NewRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "oliva",
		Short:         "Oliva salon assistant: Telegram bot, booking API and catalog tools",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ./oliva.yaml if present)")

	env := &runtime{configPath: &configPath}
	root.AddCommand(newVersionCmd())
	root.AddCommand(newServeCmd(env))
	root.AddCommand(newMigrateCmd(env))
	root.AddCommand(newImportCmd(env))
	root.AddCommand(newSeedCmd(env))
	root.AddCommand(newAvailabilityCmd(env))
	root.AddCommand(newCalendarsCmd(env))

	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runtime loads config and logger lazily, once flags are parsed
type runtime struct {
	configPath *string
	cfg        *config.Config
	logger     *zap.Logger
}

func (r *runtime) load() (*config.Config, *zap.Logger, error) {
	if r.cfg != nil {
		return r.cfg, r.logger, nil
	}
	cfg, err := config.Load(*r.configPath)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	r.cfg, r.logger = cfg, logger
	return cfg, logger, nil
}

func (r *runtime) openStorage() (*storage.Storage, error) {
	cfg, _, err := r.load()
	if err != nil {
		return nil, err
	}
	st, err := storage.New(cfg.DatabasePath, cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	return st, nil
}

func (r *runtime) close() {
	if r.logger != nil {
		_ = r.logger.Sync()
	}
}
