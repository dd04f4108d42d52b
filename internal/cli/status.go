package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
)

const statusTimeout = 5 * time.Second

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check server connection and local settings",
		Long:  "Tests the connection to the server and shows the configured API key, language, and identity.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

func runStatus(ctx context.Context, out io.Writer) error {
	serverURL := getServerURL()
	apiKey := getAPIKey()
	t := translator()

	fmt.Fprintf(out, "Server:   %s\n", serverURL)

	if apiKey == "" {
		fmt.Fprintln(out, "API Key:  not configured (only needed for edit/rm)")
	} else {
		prefix := apiKey
		if len(prefix) > 8 {
			prefix = prefix[:8]
		}
		fmt.Fprintf(out, "API Key:  %s…\n", prefix)
	}

	fmt.Fprintf(out, "Language: %s\n", t.Tag())

	if id, err := newAssigner().GetOrCreate(); err == nil {
		fmt.Fprintf(out, "%s:  %s\n", t.T("list.user_id"), id.Hint())
	}

	ctx, cancel := context.WithTimeout(ctx, statusTimeout)
	defer cancel()

	if err := newAPIClient().Health(ctx); err != nil {
		fmt.Fprintf(out, "Status:   ✗ cannot reach server (%v)\n", err)
		return nil
	}
	fmt.Fprintln(out, "Status:   ✓ connected")
	return nil
}
