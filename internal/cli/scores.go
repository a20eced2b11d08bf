package cli

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

func newScoresCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scores",
		Short: "Leaderboard commands",
	}

	cmd.AddCommand(newScoresListCmd())
	cmd.AddCommand(newScoresSubmitCmd())

	return cmd
}

func newScoresListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <slug>",
		Short: "Show a game's leaderboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result ScoresResult

			if err := client.Get(gamePath(args[0])+"/scores", &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

func newScoresSubmitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "submit <slug> <score>",
		Short: "Record a score against the current version",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("invalid score %q", args[1])
			}

			if err := client.Post(gamePath(args[0])+"/scores", map[string]float64{"score": value}, nil); err != nil {
				return err
			}

			output(cmd).PrintMessage(fmt.Sprintf("Recorded %g for %s", value, args[0]))
			return nil
		},
	}
}

func newUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Player profile commands",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get <username>",
		Short: "Show a player's profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Profile

			if err := client.Get(apiPrefix+"/users/"+url.PathEscape(args[0]), &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	})

	return cmd
}
