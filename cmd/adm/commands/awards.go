package commands

import (
	"context"
	"fmt"

	"telugulearn/internal/models"
	"telugulearn/internal/observability"
	contextutils "telugulearn/internal/utils"

	"github.com/spf13/cobra"
)

const reevaluatePageSize = 100

// UserDirectory lists and resolves accounts
type UserDirectory interface {
	userFinder
	ListUsers(ctx context.Context, page, pageSize int, search string) ([]models.User, int, error)
}

// AwardEvaluator grants badges and achievements a user already qualifies for
type AwardEvaluator interface {
	EvaluateAwards(ctx context.Context, userID int) (*models.ActivityOutcome, error)
}

// AwardCommands returns the badge and achievement maintenance commands
func AwardCommands(users UserDirectory, evaluator AwardEvaluator, logger *observability.Logger) *cobra.Command {
	awardsCmd := &cobra.Command{
		Use:   "awards",
		Short: "Badge and achievement maintenance",
		Long: `Badge and achievement maintenance.

Available commands:
  reevaluate  - Grant awards users already qualify for (run after "seed catalog")`,
	}
	awardsCmd.AddCommand(reevaluateCmd(users, evaluator, logger))
	return awardsCmd
}

func reevaluateCmd(users UserDirectory, evaluator AwardEvaluator, logger *observability.Logger) *cobra.Command {
	var username string
	cmd := &cobra.Command{
		Use:   "reevaluate",
		Short: "Grant awards users already qualify for",
		Long: `Re-check every active user against the badge and achievement catalog
without logging an activity. Newly seeded definitions are granted to users
whose totals already meet them. Use --user to limit the run to one account.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			var targets []models.User
			if username != "" {
				user, err := lookupUser(ctx, users, username)
				if err != nil {
					return err
				}
				targets = []models.User{*user}
			} else {
				all, err := activeUsers(ctx, users)
				if err != nil {
					logger.Error(ctx, "Failed to list users for award evaluation", err, nil)
					return err
				}
				targets = all
			}

			out := cmd.OutOrStdout()
			var badges, achievements int
			for _, u := range targets {
				outcome, err := evaluator.EvaluateAwards(ctx, u.ID)
				if err != nil {
					logger.Error(ctx, "Award evaluation failed", err, map[string]interface{}{"user_id": u.ID})
					return contextutils.WrapErrorf(err, "failed to evaluate awards for '%s'", u.Username)
				}
				if outcome == nil {
					continue
				}
				if n := len(outcome.NewBadges) + len(outcome.NewAchievements); n > 0 {
					fmt.Fprintf(out, "%-20s +%d badges +%d achievements\n", u.Username, len(outcome.NewBadges), len(outcome.NewAchievements))
				}
				badges += len(outcome.NewBadges)
				achievements += len(outcome.NewAchievements)
			}
			fmt.Fprintf(out, "Evaluated %d users: %d badges and %d achievements granted\n", len(targets), badges, achievements)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "user", "", "Only evaluate this username")
	return cmd
}

func activeUsers(ctx context.Context, users UserDirectory) ([]models.User, error) {
	var active []models.User
	for page, seen := 1, 0; ; page++ {
		batch, total, err := users.ListUsers(ctx, page, reevaluatePageSize, "")
		if err != nil {
			return nil, contextutils.WrapError(err, "failed to list users")
		}
		for _, u := range batch {
			if u.IsActive {
				active = append(active, u)
			}
		}
		seen += len(batch)
		if len(batch) == 0 || seen >= total {
			return active, nil
		}
	}
}
