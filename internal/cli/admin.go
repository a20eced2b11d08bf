package cli

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Principal administration (requires --admin-key)",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cmd.Root().PersistentPreRunE(cmd, args); err != nil {
				return err
			}
			if cfg.AdminKey == "" {
				return fmt.Errorf("--admin-key or GAMEHOST_ADMIN_KEY is required")
			}
			return nil
		},
	}

	cmd.AddCommand(newAdminGetCmd())
	cmd.AddCommand(newAdminBlockCmd())
	cmd.AddCommand(newAdminUnblockCmd())

	return cmd
}

func principalPath(username string) string {
	return apiPrefix + "/admin/principals/" + url.PathEscape(username)
}

func newAdminGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <username>",
		Short: "Show a principal's status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Principal

			if err := client.Get(principalPath(args[0]), &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

func newAdminBlockCmd() *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "block <username>",
		Short: "Block a principal and end their session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Principal

			if err := client.Post(principalPath(args[0])+"/block", map[string]string{"reason": reason}, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", "Reason recorded with the block")

	return cmd
}

func newAdminUnblockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unblock <username>",
		Short: "Lift a principal's block",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Principal

			if err := client.Post(principalPath(args[0])+"/unblock", nil, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}
