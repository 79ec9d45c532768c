package commands

import (
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"telugulearn/internal/config"
	"telugulearn/internal/models"
	"telugulearn/internal/observability"
	"telugulearn/internal/services"
	contextutils "telugulearn/internal/utils"

	"github.com/spf13/cobra"
)

// UserCommands returns the user management commands
func UserCommands(userService services.UserServiceInterface, logger *observability.Logger, databaseURL string) *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "User management commands",
		Long: `User management commands.

Available commands:
  list            - List users
  reset-password  - Reset password for a user
  deactivate      - Disable an account and revoke its sessions
  promote         - Grant or revoke admin rights`,
	}

	userCmd.AddCommand(listCmd(userService, logger, databaseURL))
	userCmd.AddCommand(resetPasswordCmd(userService, logger))
	userCmd.AddCommand(deactivateCmd(userService, logger))
	userCmd.AddCommand(promoteCmd(userService, logger))

	return userCmd
}

func listCmd(userService services.UserServiceInterface, logger *observability.Logger, databaseURL string) *cobra.Command {
	var (
		page     int
		pageSize int
		search   string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users",
		Long:  `List users with their basic information. Use --search to filter by username or email.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			logger.Info(ctx, "Admin command diagnostics", map[string]interface{}{
				"config_file":  os.Getenv(config.ConfigFileEnv),
				"database_url": maskDatabaseURL(databaseURL),
			})

			users, total, err := userService.ListUsers(ctx, page, pageSize, search)
			if err != nil {
				logger.Error(ctx, "Failed to list users", err, map[string]interface{}{"page": page})
				return contextutils.WrapError(err, "failed to list users")
			}
			if len(users) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No users found")
				return nil
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-5s %-20s %-30s %-8s %-8s %-10s\n", "ID", "Username", "Email", "Active", "Admin", "Created")
			fmt.Fprintln(out, strings.Repeat("-", 86))
			for _, u := range users {
				fmt.Fprintf(out, "%-5d %-20s %-30s %-8s %-8s %-10s\n",
					u.ID, u.Username, u.Email, yesNo(u.IsActive), yesNo(u.IsAdmin), u.CreatedAt.Format("2006-01-02"))
			}
			fmt.Fprintf(out, "\nShowing %d of %d users (page %d)\n", len(users), total, page)
			return nil
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 50, "Users per page")
	cmd.Flags().StringVar(&search, "search", "", "Filter by username or email")
	return cmd
}

func resetPasswordCmd(userService services.UserServiceInterface, logger *observability.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-password [username]",
		Short: "Reset password for a user",
		Long:  `Reset the password for a user. If username is not provided, you will be prompted for it.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var username string
			if len(args) > 0 {
				username = args[0]
			} else {
				fmt.Print("Enter username: ")
				if _, err := fmt.Scanln(&username); err != nil {
					return contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to read username: %v", err)
				}
			}
			if username == "" {
				return contextutils.ErrorWithContextf("username is required")
			}

			newPassword, err := readPassword("Enter new password: ")
			if err != nil {
				return err
			}
			if newPassword == "" {
				return contextutils.ErrorWithContextf("password cannot be empty")
			}
			confirm, err := readPassword("Confirm new password: ")
			if err != nil {
				return err
			}
			if newPassword != confirm {
				return contextutils.ErrorWithContextf("passwords do not match")
			}

			user, err := lookupUser(ctx, userService, username)
			if err != nil {
				return err
			}
			if err := userService.SetPassword(ctx, user.ID, newPassword); err != nil {
				logger.Error(ctx, "Failed to update password", err, map[string]interface{}{"username": username, "user_id": user.ID})
				return contextutils.WrapErrorf(err, "failed to update password for user '%s'", username)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Password reset for user '%s' (ID: %d)\n", username, user.ID)
			logger.Info(ctx, "Password reset successful", map[string]interface{}{"username": username, "user_id": user.ID})
			return nil
		},
	}
}

func deactivateCmd(userService services.UserServiceInterface, logger *observability.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate <username>",
		Short: "Disable an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			user, err := lookupUser(ctx, userService, args[0])
			if err != nil {
				return err
			}
			if err := userService.Deactivate(ctx, user.ID); err != nil {
				return contextutils.WrapErrorf(err, "failed to deactivate '%s'", args[0])
			}
			logger.Info(ctx, "User deactivated", map[string]interface{}{"user_id": user.ID})
			fmt.Fprintf(cmd.OutOrStdout(), "Deactivated '%s'\n", user.Username)
			return nil
		},
	}
}

func promoteCmd(userService services.UserServiceInterface, logger *observability.Logger) *cobra.Command {
	var revoke bool
	cmd := &cobra.Command{
		Use:   "promote <username>",
		Short: "Grant admin rights (or revoke with --revoke)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			user, err := lookupUser(ctx, userService, args[0])
			if err != nil {
				return err
			}
			if err := userService.SetAdmin(ctx, user.ID, !revoke); err != nil {
				return contextutils.WrapErrorf(err, "failed to update admin flag for '%s'", args[0])
			}
			logger.Info(ctx, "Admin flag updated", map[string]interface{}{"user_id": user.ID, "admin": !revoke})
			fmt.Fprintf(cmd.OutOrStdout(), "User '%s' admin=%t\n", user.Username, !revoke)
			return nil
		},
	}
	cmd.Flags().BoolVar(&revoke, "revoke", false, "Remove admin rights instead of granting them")
	return cmd
}

type userFinder interface {
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

func lookupUser(ctx context.Context, finder userFinder, username string) (*models.User, error) {
	user, err := finder.GetUserByUsername(ctx, username)
	if err != nil {
		if contextutils.IsError(err, contextutils.ErrRecordNotFound) {
			return nil, contextutils.ErrorWithContextf("user '%s' not found", username)
		}
		return nil, contextutils.WrapErrorf(err, "failed to load user '%s'", username)
	}
	if user == nil {
		return nil, contextutils.ErrorWithContextf("user '%s' not found", username)
	}
	return user, nil
}

func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	b, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to read password: %v", err)
	}
	return string(b), nil
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
