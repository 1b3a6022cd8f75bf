package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tom2552tom/universal-ai-matching-system-sub000/internal/core"
)

var matchesCmd = &cobra.Command{
	Use:   "matches",
	Short: "Inspect and manage stored matches",
}

var matchesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List matches for a job or an engineer",
	Run: func(cmd *cobra.Command, _ []string) {
		withMatches(func(ctx context.Context, a *appContext) error {
			matches, err := listSide(ctx, a, cmd)
			if err != nil {
				return err
			}
			pretty, _ := json.MarshalIndent(matches.Items, "", "  ")
			fmt.Println(string(pretty))
			return nil
		})
	},
}

var matchesHideCmd = &cobra.Command{
	Use:   "hide <match-id>",
	Short: "Hide a match from listings without freeing the pair",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		withMatches(func(ctx context.Context, a *appContext) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.store.Matches().SetHidden(ctx, id, true)
		})
	},
}

var matchesUnhideCmd = &cobra.Command{
	Use:   "unhide <match-id>",
	Short: "Make a hidden match visible again",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		withMatches(func(ctx context.Context, a *appContext) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.store.Matches().SetHidden(ctx, id, false)
		})
	},
}

var matchesStatusCmd = &cobra.Command{
	Use:   "status <match-id> <status>",
	Short: "Set the proposal status of a match",
	Args:  cobra.ExactArgs(2),
	Run: func(_ *cobra.Command, args []string) {
		withMatches(func(ctx context.Context, a *appContext) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			status, err := core.ParseStatus(args[1])
			if err != nil {
				return err
			}
			return a.store.Matches().SetStatus(ctx, id, status)
		})
	},
}

var matchesClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all matches for a job or an engineer, freeing their pairs",
	Run: func(cmd *cobra.Command, _ []string) {
		withMatches(func(ctx context.Context, a *appContext) error {
			if jobID, _ := cmd.Flags().GetInt64("job"); jobID > 0 {
				return a.store.Matches().ClearForJob(ctx, jobID)
			}
			if engineerID, _ := cmd.Flags().GetInt64("engineer"); engineerID > 0 {
				return a.store.Matches().ClearForEngineer(ctx, engineerID)
			}
			return fmt.Errorf("%w: either --job or --engineer is required", core.ErrInvalidArgument)
		})
	},
}

func init() {
	rootCmd.AddCommand(matchesCmd)
	matchesCmd.AddCommand(matchesListCmd, matchesHideCmd, matchesUnhideCmd, matchesStatusCmd, matchesClearCmd)

	matchesListCmd.Flags().Int64("job", 0, "list matches for this job id")
	matchesListCmd.Flags().Int64("engineer", 0, "list matches for this engineer id")

	matchesClearCmd.Flags().Int64("job", 0, "clear matches for this job id")
	matchesClearCmd.Flags().Int64("engineer", 0, "clear matches for this engineer id")
}

// withMatches wires storage around a repository operation. No AI provider
// is needed for these commands.
func withMatches(fn func(ctx context.Context, a *appContext) error) {
	ctx := context.Background()

	a, err := newStoreContext()
	if err != nil {
		log.Fatalf("starting %s: %v", app, err)
	}
	defer a.Close()

	if err := fn(ctx, a); err != nil {
		a.logger.Fatal("matches command failed", zap.Error(err))
	}
}

func listSide(ctx context.Context, a *appContext, cmd *cobra.Command) (*core.Matches, error) {
	if jobID, _ := cmd.Flags().GetInt64("job"); jobID > 0 {
		return a.store.Matches().ListForJob(ctx, jobID)
	}
	if engineerID, _ := cmd.Flags().GetInt64("engineer"); engineerID > 0 {
		return a.store.Matches().ListForEngineer(ctx, engineerID)
	}
	return nil, fmt.Errorf("%w: either --job or --engineer is required", core.ErrInvalidArgument)
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", core.ErrInvalidArgument, raw)
	}
	return id, nil
}
