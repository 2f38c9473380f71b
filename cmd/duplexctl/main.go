// duplexctl runs operational checks against a duplex-managed database pair.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/duplexdb/duplex"
	"github.com/duplexdb/duplex/memdb"
	"github.com/duplexdb/duplex/postgres"
)

var (
	configPath string
	timeout    time.Duration
	dryRun     bool
)

func main() {
	root := &cobra.Command{
		Use:           "duplexctl",
		Short:         "Operational checks for a duplex database pair",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"YAML config file; environment variables take precedence")
	root.AddCommand(healthCmd(), validateCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (duplex.Config, error) {
	if configPath != "" {
		return duplex.LoadFromFile(configPath)
	}
	return duplex.LoadFromEnv(), nil
}

func healthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Ping the main connection and report a verdict",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			dial := postgres.Dial
			if dryRun {
				dial = memdb.Dial
			}
			mgr, err := duplex.NewManager(cfg, dial)
			if err != nil {
				return err
			}
			defer mgr.Shutdown()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			db, err := mgr.Facade(ctx)
			if err != nil {
				return err
			}
			health := db.CheckHealth(ctx)
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", health.Status, health.Details)
			if health.Status != duplex.StatusHealthy {
				return fmt.Errorf("main connection is unhealthy")
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "probe timeout")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false,
		"probe an in-memory connection instead of dialing the database")
	return cmd
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration without dialing",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "configuration ok")
			return nil
		},
	}
}
