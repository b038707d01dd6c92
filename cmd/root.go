// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/copperline/shadowtable/cmd/flags"
	"github.com/copperline/shadowtable/pkg/db"
	"github.com/copperline/shadowtable/pkg/sqlgen"
)

// Version is the shadowtable version
var Version = "development"

func init() {
	viper.SetEnvPrefix("SHADOWTABLE")
	viper.AutomaticEnv()

	flags.ConnectionFlags(rootCmd)

	rootCmd.PersistentFlags().Int("chunk-size", db.DefaultChunkSize, "Number of rows copied per backfill chunk")
	rootCmd.PersistentFlags().Duration("throttle", db.DefaultThrottle, "Sleep between backfill chunks (eg. 100ms, 1s)")
	rootCmd.PersistentFlags().Int("max-name-length", db.DefaultMaxNameLength, "Length bound for generated trigger names")
	rootCmd.PersistentFlags().Int("max-rename-retries", db.DefaultMaxRenameRetries, "Rename retry bound on mysql lock timeouts")
	rootCmd.PersistentFlags().Duration("retry-sleep-time", db.DefaultRetrySleep, "Sleep between mysql rename retries")

	viper.BindPFlag("CHUNK_SIZE", rootCmd.PersistentFlags().Lookup("chunk-size"))
	viper.BindPFlag("THROTTLE", rootCmd.PersistentFlags().Lookup("throttle"))
	viper.BindPFlag("MAX_NAME_LENGTH", rootCmd.PersistentFlags().Lookup("max-name-length"))
	viper.BindPFlag("MAX_RENAME_RETRIES", rootCmd.PersistentFlags().Lookup("max-rename-retries"))
	viper.BindPFlag("RETRY_SLEEP_TIME", rootCmd.PersistentFlags().Lookup("retry-sleep-time"))
}

var rootCmd = &cobra.Command{
	Use:          "shadowtable",
	SilenceUsage: true,
	Version:      Version,
}

// NewDatabase opens a session against the configured database and binds
// it to the configured dialect.
func NewDatabase(ctx context.Context) (*db.Database, error) {
	dialect := sqlgen.Dialect(flags.Dialect())

	conn, err := db.Connect(ctx, dialect, flags.URL())
	if err != nil {
		return nil, err
	}

	cfg := db.NewConfig(dialect, flags.Database())
	cfg.Schema = flags.Schema()
	cfg.ChunkSize = flags.ChunkSize()
	cfg.Throttle = flags.Throttle()
	cfg.MaxNameLength = flags.MaxNameLength()
	cfg.MaxRenameRetries = flags.MaxRenameRetries()
	cfg.RetrySleep = flags.RetrySleep()

	d, err := db.New(ctx, conn, cfg)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return d, nil
}

// Execute executes the root command.
func Execute() error {
	// register subcommands
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(tablesCmd)

	return rootCmd.Execute()
}
