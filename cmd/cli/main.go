package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	postgresRepo "github.com/v4vapp/bridge/internal/adapter/repository/postgres"
	"github.com/v4vapp/bridge/internal/infrastructure/config"
	"github.com/v4vapp/bridge/internal/infrastructure/postgres"
	"github.com/v4vapp/bridge/internal/usecase"
)

var migrationsPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "bridge-cli",
		Short: "Operator CLI for the Hive/Lightning bridge",
		Long:  `A command line interface for migrating, replaying, and reconciling the bridge ledger.`,
	}

	rootCmd.PersistentFlags().StringVar(&migrationsPath, "migrations", "migrations", "Path to the golang-migrate SQL directory")

	rootCmd.AddCommand(migrateCmd(), reconcileCmd(), replayCmd(), policyCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back schema migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfigOrExit()
			if err := postgres.RunMigrations(cfg.DatabaseURL, migrationsPath); err != nil {
				fmt.Printf("migration failed: %v\n", err)
				os.Exit(1)
			}
			fmt.Println("migrations applied")
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfigOrExit()
			if err := postgres.RunMigrationsDown(cfg.DatabaseURL, migrationsPath); err != nil {
				fmt.Printf("rollback failed: %v\n", err)
				os.Exit(1)
			}
			fmt.Println("migration rolled back")
		},
	})

	return cmd
}

func reconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Check double-entry consistency across every unit",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			cfg := loadConfigOrExit()

			pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns, cfg.DatabaseMinConns)
			if err != nil {
				fmt.Printf("failed to connect to postgres: %v\n", err)
				os.Exit(1)
			}
			defer pool.Close()

			reconcileUC := usecase.NewReconciliationUseCase(postgresRepo.NewLedgerRepository(pool))
			report, err := reconcileUC.GenerateReconciliationReport(ctx)
			if err != nil {
				fmt.Printf("reconciliation failed: %v\n", err)
				os.Exit(1)
			}

			printJSON(report)
			if !report.LedgerConsistent {
				os.Exit(1)
			}
		},
	}
}

func replayCmd() *cobra.Command {
	var aggregateType, aggregateID string
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "List outbox events recorded for an aggregate, for incident replay",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			cfg := loadConfigOrExit()

			pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns, cfg.DatabaseMinConns)
			if err != nil {
				fmt.Printf("failed to connect to postgres: %v\n", err)
				os.Exit(1)
			}
			defer pool.Close()

			outboxRepo := postgresRepo.NewOutboxRepository(pool)
			events, err := outboxRepo.GetByAggregate(ctx, aggregateType, aggregateID, limit, offset)
			if err != nil {
				fmt.Printf("replay failed: %v\n", err)
				os.Exit(1)
			}

			printJSON(events)
		},
	}

	cmd.Flags().StringVar(&aggregateType, "aggregate-type", "", "aggregate type, e.g. tracked_op, pending_rebalance")
	cmd.Flags().StringVar(&aggregateID, "aggregate-id", "", "aggregate id to replay events for")
	cmd.Flags().IntVar(&limit, "limit", 50, "max events to return")
	cmd.Flags().IntVar(&offset, "offset", 0, "pagination offset")
	cmd.MarkFlagRequired("aggregate-type")
	cmd.MarkFlagRequired("aggregate-id")

	return cmd
}

func policyCmd() *cobra.Command {
	policy := &cobra.Command{
		Use:   "policy",
		Short: "Inspect the live operator policy",
	}

	policy.AddCommand(&cobra.Command{
		Use:   "inspect",
		Short: "Print the currently effective policy",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			cfg := loadConfigOrExit()

			pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns, cfg.DatabaseMinConns)
			if err != nil {
				fmt.Printf("failed to connect to postgres: %v\n", err)
				os.Exit(1)
			}
			defer pool.Close()

			policyUC := usecase.NewPolicyUseCase(postgresRepo.NewPolicyRepository(pool))
			p, err := policyUC.Reload(ctx)
			if err != nil {
				fmt.Printf("failed to load policy: %v\n", err)
				os.Exit(1)
			}

			printJSON(p)
		},
	})

	return policy
}

func loadConfigOrExit() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// printJSON pretty-prints v to stdout. Every subcommand's output is
// machine-parseable JSON rather than ad-hoc text tables, so it composes
// with jq in an operator's shell.
func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// truncate shortens s to at most n runes, appending "..." when cut.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
