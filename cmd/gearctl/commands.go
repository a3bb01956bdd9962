package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gearhire-backend/internal/app"
	"gearhire-backend/internal/config"
	"gearhire-backend/internal/domain"
	"gearhire-backend/internal/repository/postgres"
	"gearhire-backend/internal/service"

	"github.com/spf13/cobra"
)

// boot loads config and initializes logging. The returned func flushes logs.
func boot(ctx context.Context) (*config.Config, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	return cfg, app.InitLogging(ctx, cfg), nil
}

// gearctl migrate
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, closeLogs, err := boot(ctx)
		if err != nil {
			return err
		}
		defer closeLogs()

		db, err := app.OpenDB(ctx, cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := postgres.Migrate(ctx, db); err != nil {
			return err
		}
		fmt.Println("Schema is up to date")
		return nil
	},
}

// gearctl create-user
func newCreateUserCmd() *cobra.Command {
	var in service.RegisterInput
	var role string

	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create a user account with an explicit role",
		Example: "  gearctl create-user --email ops@example.com --name Ops --role staff\n" +
			"  GEARCTL_PASSWORD=... gearctl create-user --email admin@example.com --name Admin --role admin",
		RunE: func(cmd *cobra.Command, args []string) error {
			if in.Password == "" {
				in.Password = os.Getenv("GEARCTL_PASSWORD")
			}

			ctx := cmd.Context()
			cfg, closeLogs, err := boot(ctx)
			if err != nil {
				return err
			}
			defer closeLogs()

			a, err := app.New(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			user, err := a.Auth.CreateUser(ctx, in, domain.Role(strings.ToLower(role)))
			if err != nil {
				return err
			}
			fmt.Printf("Created %s user %d <%s>\n", user.Role, user.ID, user.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&in.Email, "email", "", "Email address (required)")
	cmd.Flags().StringVar(&in.Name, "name", "", "Display name (required)")
	cmd.Flags().StringVar(&in.Password, "password", "", "Password; defaults to $GEARCTL_PASSWORD")
	cmd.Flags().StringVar(&in.Phone, "phone", "", "Phone number")
	cmd.Flags().StringVar(&in.CustomerType, "customer-type", "", "Customer type used for pricing rules")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleCustomer), "customer, staff or admin")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

// gearctl run-job <name>
var runJobCmd = &cobra.Command{
	Use:       "run-job <name>",
	Short:     "Run one background job immediately",
	Long:      "Run one background job immediately. Jobs: assess-late-fees, send-return-reminders, expire-pending-orders.",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"assess-late-fees", "send-return-reminders", "expire-pending-orders"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, closeLogs, err := boot(ctx)
		if err != nil {
			return err
		}
		defer closeLogs()

		a, err := app.New(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.Jobs.Run(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s processed %d orders\n", args[0], n)
		return nil
	},
}
