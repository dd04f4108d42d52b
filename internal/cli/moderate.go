package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/evcraddock/folio/internal/comment"
)

func newEditCmd() *cobra.Command {
	var name, body string

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a comment (requires API key)",
		Long:  "Change a comment's name and/or text. Connected watchers see the change live.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseCommentID(args[0])
			if err != nil {
				return err
			}

			var patch comment.Patch
			if cmd.Flags().Changed("name") {
				patch.Name = &name
			}
			if cmd.Flags().Changed("comment") {
				patch.Body = &body
			}
			if patch.Name == nil && patch.Body == nil {
				return fmt.Errorf("nothing to change: pass --name and/or --comment")
			}

			updated, err := newAPIClient().Update(cmd.Context(), id, patch)
			if err != nil {
				return err
			}

			if isJSON() {
				return printJSON(cmd.OutOrStdout(), updated)
			}
			printComment(cmd.OutOrStdout(), translator(), *updated)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "new display name")
	cmd.Flags().StringVar(&body, "comment", "", "new comment text")

	return cmd
}

func newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a comment (requires API key)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseCommentID(args[0])
			if err != nil {
				return err
			}

			if err := newAPIClient().Delete(cmd.Context(), id); err != nil {
				return err
			}

			if isJSON() {
				return printJSON(cmd.OutOrStdout(), map[string]interface{}{"id": id, "removed": true})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Comment #%d removed.\n", id)
			return nil
		},
	}
}

// parseCommentID parses a positive comment ID argument.
func parseCommentID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid comment ID: %s", arg)
	}
	return id, nil
}
