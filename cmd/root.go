package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joy095/staybook/config"
	"github.com/joy095/staybook/config/db"
	"github.com/joy095/staybook/config/redis"
	"github.com/joy095/staybook/logger"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var Version = "dev"

var configFile string

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "staybook",
		Short:        "Staybook - listings, bookings and payment reconciliation",
		Version:      Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config.LoadEnv()
			logger.InitLoggers()
			if configFile != "" {
				return os.Setenv("CONFIG_FILE", configFile)
			}
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML config file layered under the environment")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(workerCmd())
	rootCmd.AddCommand(migrateCmd())
	return rootCmd
}

// Execute runs the command tree and exits non-zero on failure.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// stack holds the connections a command opened so they can be closed together.
type stack struct {
	cfg   *config.Config
	pool  *pgxpool.Pool
	gdb   *gorm.DB
	redis *goredis.Client
}

func openStack(ctx context.Context, withDB, withRedis bool) (*stack, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	s := &stack{cfg: cfg}

	if withDB {
		if s.pool, err = db.Connect(cfg.DatabaseURL); err != nil {
			return nil, err
		}
		if s.gdb, err = db.NewGorm(s.pool); err != nil {
			s.close()
			return nil, err
		}
	}

	if withRedis && cfg.RedisURL != "" {
		rdb, err := redis.Connect(ctx, cfg.RedisURL)
		if err != nil {
			// Redis backs rate limits, caching and dedup; all of them degrade
			// to in-memory or disabled without it.
			logger.WarnLogger.Warnf("Redis unavailable, continuing without it: %v", err)
		} else {
			s.redis = rdb
		}
	}
	return s, nil
}

func (s *stack) close() {
	if s.redis != nil {
		redis.Close(s.redis)
	}
	if s.pool != nil {
		db.Close(s.pool)
	}
}
