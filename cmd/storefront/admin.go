package main

import (
	"context"
	"fmt"

	"github.com/caarlos0/env/v10"
	"github.com/spf13/cobra"

	"go-storefront/config"
	"go-storefront/dto"
	"go-storefront/models"
	"go-storefront/repository"
	"go-storefront/services"
	"go-storefront/utils"
)

func adminCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Maintenance commands that talk to MongoDB directly",
	}
	cmd.AddCommand(createUserCommand())
	return cmd
}

// createUserCommand bootstraps an admin account, which the API refuses to
// self-register unless ALLOW_ADMIN_SIGNUP is set.
func createUserCommand() *cobra.Command {
	var req dto.RegisterRequest
	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create a user with the given role directly in the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var cfg config.MongoConfig
			if err := env.Parse(&cfg); err != nil {
				return fmt.Errorf("parse config: %w", err)
			}
			if err := services.NewValidator().Struct(req); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*cfg.Timeout)
			defer cancel()
			client, err := utils.ConnectDB(ctx, cfg.URI, cfg.Timeout)
			if err != nil {
				return err
			}
			defer client.Disconnect(context.Background())

			db := client.Database(cfg.Database)
			if err := repository.EnsureIndexes(ctx, db); err != nil {
				return err
			}
			user, err := services.NewUser(req)
			if err != nil {
				return err
			}
			if err := repository.NewUserRepository(db).Create(ctx, user); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s %s (%s)\n", user.Role, user.Email, user.ID.Hex())
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.Username, "username", "", "user name")
	f.StringVar(&req.Email, "email", "", "email address")
	f.StringVar(&req.Password, "password", "", "password, at least 8 characters")
	f.StringVar(&req.Agent, "agent", "", "agent code")
	f.StringVar(&req.Phone, "phone", "", "phone number like 123-456-7890")
	f.StringVar(&req.Address, "address", "", "address")
	f.StringVar(&req.Role, "role", models.RoleAdmin, "customer or admin")
	for _, name := range []string{"username", "email", "password", "agent", "phone", "address"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}
