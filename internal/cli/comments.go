package cli

import (
	"github.com/spf13/cobra"
)

func newCommentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "comments",
		Aliases: []string{"ls"},
		Short:   "List comments",
		Long:    "List all comments on the board, newest first.",
		Args:    cobra.NoArgs,
		RunE:    runComments,
	}
}

func runComments(cmd *cobra.Command, args []string) error {
	comments, err := newAPIClient().FetchAll(cmd.Context())
	if err != nil {
		return err
	}

	if isJSON() {
		return printJSON(cmd.OutOrStdout(), comments)
	}

	printCommentList(cmd.OutOrStdout(), translator(), comments)
	return nil
}
