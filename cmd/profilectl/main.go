// Command profilectl is the operator CLI for the user service: schema
// migrations, seed data, template export and development tokens.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/uniz-user-service/internal/auth"
	"github.com/dharsanguruparan/uniz-user-service/internal/config"
	"github.com/dharsanguruparan/uniz-user-service/internal/database"
	"github.com/dharsanguruparan/uniz-user-service/internal/ingest"
	"github.com/dharsanguruparan/uniz-user-service/internal/model"
	"github.com/dharsanguruparan/uniz-user-service/internal/repository"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "profilectl: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profilectl",
		Short: "User service operator CLI",
		Long: `profilectl applies database migrations, seeds development data, exports the bulk
upload template and mints development tokens for the user service.`,
		SilenceUsage: true,
	}
	cmd.AddCommand(
		newMigrateCmd(),
		newSeedCmd(),
		newTemplateCmd(),
		newTokenCmd(),
	)
	return cmd
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.ConfigureLogging()
	return cfg, nil
}

func withDatabase(ctx context.Context, fn func(*pgxpool.Pool) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	return fn(pool)
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(cmd.Context(), func(pool *pgxpool.Pool) error {
				return database.Migrate(cmd.Context(), pool)
			})
		},
	}
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert the default admin accounts and sample students",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withDatabase(ctx, func(pool *pgxpool.Pool) error {
				if err := database.Migrate(ctx, pool); err != nil {
					return err
				}
				staff := repository.NewStaffRepository(pool)
				for _, a := range seedAdmins() {
					if err := staff.EnsureAdmin(ctx, &a); err != nil {
						return err
					}
				}
				students := repository.NewStudentRepository(pool)
				for _, row := range seedStudents {
					if err := students.UpsertUploadRow(ctx, row); err != nil {
						return err
					}
				}
				logrus.WithFields(logrus.Fields{
					"admins":   len(seedAdminRoles),
					"students": len(seedStudents),
				}).Info("seed finished")
				return nil
			})
		},
	}
}

func newTemplateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "template <file>",
		Short: "Write the bulk upload spreadsheet template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := ingest.Template()
			if err != nil {
				return err
			}
			if err := os.WriteFile(args[0], data, 0o644); err != nil {
				return fmt.Errorf("write template: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "template written to %s\n", args[0])
			return nil
		},
	}
}

func newTokenCmd() *cobra.Command {
	var (
		username string
		role     string
		ttl      time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a signed development token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.IsProduction() {
				return fmt.Errorf("refusing to mint tokens in production")
			}
			tok, err := auth.NewManager(cfg.JWTSecret).GenerateToken(username, model.Role(role), ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "Token subject username")
	cmd.Flags().StringVar(&role, "role", string(model.RoleWebmaster), "Token role")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}
