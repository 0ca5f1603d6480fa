package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	app "github.com/JX3BOX/analysis-dungeon-rank/internal/app"
	"github.com/JX3BOX/analysis-dungeon-rank/internal/config"
	"github.com/JX3BOX/analysis-dungeon-rank/internal/domain/taxonomy"
	"github.com/JX3BOX/analysis-dungeon-rank/internal/synth"
	"github.com/JX3BOX/analysis-dungeon-rank/pkg/logger"
	"github.com/JX3BOX/analysis-dungeon-rank/pkg/metrics"
	"github.com/spf13/cobra"
)

// Flag names shared with config keys.
const (
	flagInput       = "input"
	flagOutput      = "output"
	flagBosses      = "bosses"
	flagSchool      = "school"
	flagMountGroup  = "mount-group"
	flagWorkers     = "workers"
	flagMetricsFile = "metrics-file"
	flagLogLevel    = "log-level"
	flagLogFormat   = "log-format"
	flagConfig      = "config"
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "rank",
		Short:         "Analyse dungeon boss clears into a ranking report",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runAnalysis,
	}
	f := cmd.Flags()
	f.StringP(flagInput, "i", "", "participant CSV to analyse")
	f.StringP(flagOutput, "o", "", "report path (default result.json)")
	f.StringP(flagBosses, "b", "", "comma-separated boss (achieve) ids with their own partition")
	f.String(flagSchool, "", "school catalog (JSON or YAML); embedded default when empty")
	f.String(flagMountGroup, "", "mount group catalog (JSON or YAML); embedded default when empty")
	f.Int(flagWorkers, 0, "partitions computed concurrently (default number of CPUs)")
	f.String(flagMetricsFile, "", "write Prometheus metrics to this textfile after the run")
	cmd.PersistentFlags().String(flagLogLevel, "", "debug, info, warn or error")
	cmd.PersistentFlags().String(flagLogFormat, "", "text or json")
	cmd.PersistentFlags().String(flagConfig, os.Getenv(config.EnvConfigFile), "optional YAML config file")

	cmd.AddCommand(newGenerateCmd())
	return cmd
}

// loadConfig layers defaults, the config file, env vars and explicit flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString(flagConfig)
	cfg, err := config.LoadFile(cmd.Context(), path)
	if err != nil {
		return nil, err
	}

	f := cmd.Flags()
	overrides := map[string]*string{
		flagInput:       &cfg.Input,
		flagOutput:      &cfg.Output,
		flagBosses:      &cfg.Bosses,
		flagSchool:      &cfg.SchoolCatalog,
		flagMountGroup:  &cfg.MountGroupCatalog,
		flagMetricsFile: &cfg.MetricsFile,
		flagLogLevel:    &cfg.LogLevel,
		flagLogFormat:   &cfg.LogFormat,
	}
	for name, dst := range overrides {
		if f.Lookup(name) != nil && f.Changed(name) {
			*dst, _ = f.GetString(name)
		}
	}
	if f.Lookup(flagWorkers) != nil && f.Changed(flagWorkers) {
		cfg.WorkerCount, _ = f.GetInt(flagWorkers)
	}
	return cfg, nil
}

// initLogging configures the global logger from cfg. Logs go to stderr so
// stdout stays free for piping.
func initLogging(cmd *cobra.Command, cfg *config.Config) error {
	if err := logger.Init(
		logger.WithOutput(cmd.ErrOrStderr()),
		logger.WithJSON(cfg.LogFormat == config.LogFormatJSON),
	); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(cmd.Context(), "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	return nil
}

func runAnalysis(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := initLogging(cmd, cfg); err != nil {
		return err
	}
	log := logger.Named("rank")

	tax, err := taxonomy.Load(ctx, cfg.SchoolCatalog, cfg.MountGroupCatalog)
	if err != nil {
		return err
	}
	bosses, err := cfg.BossIDs()
	if err != nil {
		return err
	}

	svc, err := app.New(
		app.WithLogger(log),
		app.WithTaxonomy(tax),
		app.WithBosses(bosses),
		app.WithWorkerCount(cfg.WorkerCount),
	)
	if err != nil {
		return err
	}
	res, runErr := svc.RunFile(ctx, cfg.Input, cfg.Output)
	if runErr != nil {
		log.Error(ctx, "analysis failed", logger.Error(runErr))
	} else {
		log.Info(ctx, "analysis finished",
			logger.String("run_id", res.RunID),
			logger.Int("admitted", res.Summary.Admitted),
			logger.Int("leaders", res.Leaders),
			logger.String("output", cfg.Output))
	}

	if cfg.MetricsFile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
			log.Warn(ctx, "failed to write metrics textfile",
				logger.String("path", cfg.MetricsFile), logger.Error(err))
		}
	}
	return runErr
}

func newGenerateCmd() *cobra.Command {
	defaults := synth.DefaultConfig()
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a synthetic participant CSV",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := initLogging(cmd, cfg); err != nil {
				return err
			}

			f := cmd.Flags()
			gen := synth.DefaultConfig()
			out, _ := f.GetString(flagOutput)
			gen.Teams, _ = f.GetInt("teams")
			gen.TeamSize, _ = f.GetInt("team-size")
			gen.Seed, _ = f.GetInt64("seed")
			gen.RejectRate, _ = f.GetFloat64("reject-rate")
			gen.MalformedRate, _ = f.GetFloat64("malformed-rate")
			if list, _ := f.GetString(flagBosses); list != "" {
				if gen.Bosses, err = config.ParseBossIDs(list); err != nil {
					return err
				}
			}

			tax, err := taxonomy.Load(cmd.Context(), cfg.SchoolCatalog, cfg.MountGroupCatalog)
			if err != nil {
				return err
			}
			_, err = synth.GenerateFile(cmd.Context(), gen, tax, out)
			return err
		},
	}
	f := cmd.Flags()
	f.StringP(flagOutput, "o", "input.csv", "CSV file to write")
	f.StringP(flagBosses, "b", "", "comma-separated boss ids to spread teams over")
	f.String(flagSchool, "", "school catalog (JSON or YAML)")
	f.String(flagMountGroup, "", "mount group catalog (JSON or YAML)")
	f.Int("teams", defaults.Teams, "number of teams")
	f.Int("team-size", defaults.TeamSize, "members per team")
	f.Int64("seed", defaults.Seed, "random seed")
	f.Float64("reject-rate", defaults.RejectRate, "share of teams written with status 0")
	f.Float64("malformed-rate", defaults.MalformedRate, "share of rows with a broken column")
	return cmd
}
