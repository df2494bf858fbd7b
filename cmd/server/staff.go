package main

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iliyamo/event-ticketing/internal/config"
	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/repository"
)

func staffCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "staff",
		Short: "manage dashboard accounts",
	}

	var email, password, role string
	create := &cobra.Command{
		Use:   "create",
		Short: "create an ADMIN or STAFF account",
		RunE: func(cmd *cobra.Command, args []string) error {
			role = strings.ToUpper(strings.TrimSpace(role))
			if role != model.RoleAdmin && role != model.RoleStaff {
				return fmt.Errorf("role must be %s or %s", model.RoleAdmin, model.RoleStaff)
			}
			if strings.TrimSpace(email) == "" || len(password) < 8 {
				return fmt.Errorf("email and a password of at least 8 characters are required")
			}
			return withDB(func(db *sql.DB, cfg config.Config, log *zap.Logger) error {
				id, err := repository.NewUserRepo(db).Create(cmd.Context(), email, password, role, cfg.BcryptCost)
				if err != nil {
					return err
				}
				log.Info("staff account created", zap.Uint64("user_id", id), zap.String("role", role))
				return nil
			})
		},
	}
	create.Flags().StringVar(&email, "email", "", "login email")
	create.Flags().StringVar(&password, "password", "", "initial password")
	create.Flags().StringVar(&role, "role", model.RoleStaff, "ADMIN or STAFF")
	_ = create.MarkFlagRequired("email")
	_ = create.MarkFlagRequired("password")

	cmd.AddCommand(create)
	return cmd
}
