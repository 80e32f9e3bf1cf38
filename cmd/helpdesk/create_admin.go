package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

func newCreateAdminCommand() *cobra.Command {
	var input service.RegisterInput

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an ADMIN account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := apperrors.ValidateStruct(dto.UserRegisterRequest{
				Username: input.Username,
				Email:    input.Email,
				Password: input.Password,
			}); err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			logger, err := observability.NewLogger(cfg.Logger)
			if err != nil {
				return fmt.Errorf("failed to init logger: %w", err)
			}
			defer logger.Sync() //nolint:errcheck

			pg, err := persistence.NewPostgres(cmd.Context(), cfg.Postgres, logger)
			if err != nil {
				return fmt.Errorf("failed to connect postgres: %w", err)
			}
			defer pg.Close()

			users := service.NewUserService(service.UserDependencies{
				UserRepo:   repository.NewUserRepository(pg.Pool),
				BcryptCost: cfg.Auth.BcryptCost,
			})
			admin, err := users.CreateAdmin(cmd.Context(), input)
			if err != nil {
				return err
			}
			logger.Info("admin created", zap.String("id", admin.ID), zap.String("username", admin.Username))
			return nil
		},
	}

	cmd.Flags().StringVar(&input.Username, "username", "", "login name")
	cmd.Flags().StringVar(&input.Email, "email", "", "contact address")
	cmd.Flags().StringVar(&input.Password, "password", "", "initial password")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
