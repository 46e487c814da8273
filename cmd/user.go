package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/vibast-solutions/ms-go-hr-auth/app/entity"
	"github.com/vibast-solutions/ms-go-hr-auth/app/repository"
	"github.com/vibast-solutions/ms-go-hr-auth/app/service"

	"github.com/spf13/cobra"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Administer user accounts",
}

var userSetRoleCmd = &cobra.Command{
	Use:   "set-role <email> <role>",
	Short: "Assign a role (user, admin, hr, it_admin) to an account",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		email := service.NormalizeEmail(args[0])
		role := strings.ToLower(strings.TrimSpace(args[1]))
		if !entity.IsValidRole(role) {
			return fmt.Errorf("unknown role %q", role)
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := openDB(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		rows, err := repository.NewUserRepository(db).UpdateRole(ctx, email, role, time.Now().UTC())
		if err != nil {
			return err
		}
		if rows == 0 {
			return fmt.Errorf("no account registered for %s", email)
		}

		fmt.Printf("role updated: %s -> %s\n", email, role)
		return nil
	},
}

func init() {
	userCmd.AddCommand(userSetRoleCmd)
	rootCmd.AddCommand(userCmd)
}
