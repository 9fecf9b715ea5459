package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"yashubustudio/occumatch/internal/logger"
	"yashubustudio/occumatch/skillmatch"
)

const app = "occumatch"

var (
	// Used for flags.
	cfgFile string

	v = viper.New()

	rootCmd = &cobra.Command{
		Use:          app,
		Short:        "occumatch maps résumé skills and occupations onto the CBO vocabulary",
		SilenceUsage: true,
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is occumatch.yaml in the current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	_ = v.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = v.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

// runtime bundles what every matching subcommand needs.
type runtime struct {
	cfg     skillmatch.Config
	logger  *zap.Logger
	service *skillmatch.Service
}

func (r *runtime) Close() {
	if err := r.service.Close(); err != nil {
		r.logger.Warn("closing service", zap.Error(err))
	}
	_ = r.logger.Sync()
}

// bootstrap loads the config, the CBO registry and the embedder, in that
// order, and assembles the service on top of them.
func bootstrap(ctx context.Context) (*runtime, error) {
	log, err := logger.New(v.GetBool("json"), v.GetBool("debug"))
	if err != nil {
		return nil, fmt.Errorf("creating a logger: %w", err)
	}

	cfg, err := skillmatch.LoadConfig(v, cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	log.Debug("configuration loaded",
		zap.String("dataset_dir", cfg.Dataset.Dir),
		zap.String("provider", cfg.Embedder.Provider),
		zap.String("model_id", cfg.Embedder.ModelID),
	)

	registry, err := skillmatch.LoadRegistry(cfg.Dataset, skillmatch.ColumnCandidates{}, log)
	if err != nil {
		return nil, fmt.Errorf("loading CBO dataset: %w", err)
	}

	embedder, err := skillmatch.NewEmbedder(ctx, cfg.Embedder, log)
	if err != nil {
		return nil, fmt.Errorf("initializing embedder: %w", err)
	}

	service, err := skillmatch.NewService(embedder, registry, cfg, log)
	if err != nil {
		_ = embedder.Close()
		return nil, err
	}
	return &runtime{cfg: cfg, logger: log, service: service}, nil
}
