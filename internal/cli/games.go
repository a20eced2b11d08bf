package cli

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

func newGamesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "games",
		Short: "Catalog and publishing commands",
	}

	cmd.AddCommand(newGamesListCmd())
	cmd.AddCommand(newGamesGetCmd())
	cmd.AddCommand(newGamesCreateCmd())
	cmd.AddCommand(newGamesUpdateCmd())
	cmd.AddCommand(newGamesDeleteCmd())
	cmd.AddCommand(newGamesUploadCmd())

	return cmd
}

func gamePath(slug string) string {
	return apiPrefix + "/games/" + url.PathEscape(slug)
}

func newGamesListCmd() *cobra.Command {
	var page, size int
	var sortBy, sortDir string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List published games",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			q.Set("page", strconv.Itoa(page))
			if size > 0 {
				q.Set("size", strconv.Itoa(size))
			}
			if sortBy != "" {
				q.Set("sortBy", sortBy)
			}
			if sortDir != "" {
				q.Set("sortDir", sortDir)
			}

			var result CatalogPage
			if err := client.Get(apiPrefix+"/games?"+q.Encode(), &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().IntVar(&page, "page", 0, "Page number, starting at 0")
	cmd.Flags().IntVar(&size, "size", 0, "Page size")
	cmd.Flags().StringVar(&sortBy, "sort", "", "Sort key: title, popularity, uploadDate")
	cmd.Flags().StringVar(&sortDir, "dir", "", "Sort direction: asc, desc")

	return cmd
}

func newGamesGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <slug>",
		Short: "Show a game and its versions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Game

			if err := client.Get(gamePath(args[0]), &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

func newGamesCreateCmd() *cobra.Command {
	var title, description string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a game",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{
				"title":       title,
				"description": description,
			}
			var result SlugResult

			if err := client.Post(apiPrefix+"/games", req, &result); err != nil {
				return err
			}

			output(cmd).PrintMessage(fmt.Sprintf("Created game %s", result.Slug))
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Title (required)")
	cmd.Flags().StringVar(&description, "description", "", "Description")
	_ = cmd.MarkFlagRequired("title")

	return cmd
}

func newGamesUpdateCmd() *cobra.Command {
	var title, description string

	cmd := &cobra.Command{
		Use:   "update <slug>",
		Short: "Change a game's title and description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{
				"title":       title,
				"description": description,
			}
			var result Game

			if err := client.Put(gamePath(args[0]), req, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Title (required)")
	cmd.Flags().StringVar(&description, "description", "", "Description")
	_ = cmd.MarkFlagRequired("title")

	return cmd
}

func newGamesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <slug>",
		Short: "Delete a game with all its versions and scores",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Delete(gamePath(args[0])); err != nil {
				return err
			}

			output(cmd).PrintMessage(fmt.Sprintf("Deleted game %s", args[0]))
			return nil
		},
	}
}

func newGamesUploadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upload <slug> <archive.zip>",
		Short: "Publish a zip archive as the next version of a game",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Version

			if err := client.Upload(gamePath(args[0])+"/upload", "zipfile", args[1], &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}
