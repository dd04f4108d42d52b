package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/evcraddock/folio/internal/identity"
)

func newWhoamiCmd() *cobra.Command {
	var full bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show this device's anonymous identity",
		Long:  "Show the session identifier attached to comments posted from this device, creating it on first use.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := newAssigner().GetOrCreate()
			var unavailable *identity.UnavailableError
			if err != nil && !errors.As(err, &unavailable) {
				return err
			}

			if isJSON() {
				return printJSON(cmd.OutOrStdout(), map[string]interface{}{
					"user_id_session": id.Token,
					"persistent":      id.Persistent,
				})
			}

			shown := id.Hint()
			if full {
				shown = id.Token
			}
			t := translator()
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", t.T("list.user_id"), shown)
			if !id.Persistent {
				fmt.Fprintln(cmd.OutOrStdout(), t.T("identity.ephemeral"))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&full, "full", false, "print the whole identifier")

	return cmd
}

// newAssigner returns an identity assigner over the default identity file.
func newAssigner() *identity.Assigner {
	path, err := identity.DefaultPath()
	if err != nil {
		slog.Warn("locating identity file", "err", err)
		return identity.NewAssigner(nil)
	}
	return identity.NewAssigner(identity.NewFileStorage(path))
}
