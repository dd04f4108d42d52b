package cli

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/evcraddock/folio/internal/auth"
)

func newKeysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage moderation API keys",
		Long:  "Create, list, and revoke the API keys that allow editing and deleting comments. Operates on the server database directly.",
	}

	cmd.AddCommand(newKeysCreateCmd(), newKeysListCmd(), newKeysRevokeCmd())
	return cmd
}

func newKeysCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Create an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := openDB(os.Getenv("FOLIO_DB_PATH"))
			if err != nil {
				return err
			}
			defer closeDB(database)

			rawKey, key, err := auth.NewAPIKeyStore(database).Create(args[0])
			if err != nil {
				return err
			}

			if isJSON() {
				return printJSON(cmd.OutOrStdout(), map[string]interface{}{"key": rawKey, "api_key": key})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created key #%d (%s):\n\n  %s\n\nStore it now; it is not shown again.\n", key.ID, key.Name, rawKey)
			return nil
		},
	}
}

func newKeysListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List API keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := openDB(os.Getenv("FOLIO_DB_PATH"))
			if err != nil {
				return err
			}
			defer closeDB(database)

			keys, err := auth.NewAPIKeyStore(database).List()
			if err != nil {
				return err
			}

			if isJSON() {
				if keys == nil {
					keys = []auth.APIKey{}
				}
				return printJSON(cmd.OutOrStdout(), keys)
			}
			if len(keys) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No API keys.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			if _, err := fmt.Fprintln(w, "ID\tNAME\tPREFIX\tCREATED\tLAST USED"); err != nil {
				return fmt.Errorf("writing table header: %w", err)
			}
			for _, k := range keys {
				lastUsed := "never"
				if k.LastUsedAt != nil {
					lastUsed = k.LastUsedAt.Local().Format(timeLayout)
				}
				if _, err := fmt.Fprintf(w, "%d\t%s\t%s…\t%s\t%s\n",
					k.ID, k.Name, k.KeyPrefix, k.CreatedAt.Local().Format(timeLayout), lastUsed); err != nil {
					return fmt.Errorf("writing table row: %w", err)
				}
			}
			return w.Flush()
		},
	}
}

func newKeysRevokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <id>",
		Short: "Revoke an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid key ID: %s", args[0])
			}

			database, err := openDB(os.Getenv("FOLIO_DB_PATH"))
			if err != nil {
				return err
			}
			defer closeDB(database)

			if err := auth.NewAPIKeyStore(database).Delete(id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Key #%d revoked.\n", id)
			return nil
		},
	}
}
