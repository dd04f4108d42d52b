// Package cli defines the cobra command tree for folio.
package cli

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/evcraddock/folio/internal/client"
	"github.com/evcraddock/folio/internal/db"
	"github.com/evcraddock/folio/internal/i18n"
)

var (
	flagFormat string
	flagDB     string
	flagServer string
	flagLang   string
)

// NewRootCmd creates the root cobra command with global flags.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "folio",
		Short:         "Anonymous real-time comment board",
		Long:          "Run a comment board server, post comments anonymously, and watch new comments arrive live.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format (text|json)")
	root.PersistentFlags().StringVar(&flagDB, "db", "", "SQLite database path (default: ~/.config/folio/comments.db)")
	root.PersistentFlags().StringVar(&flagServer, "server", "", "server URL (default: from config or http://localhost:8080)")
	root.PersistentFlags().StringVar(&flagLang, "lang", "", "display language, e.g. en-US or id-ID")

	root.AddCommand(
		newServeCmd(),
		newCommentsCmd(),
		newPostCmd(),
		newWatchCmd(),
		newWhoamiCmd(),
		newEditCmd(),
		newRemoveCmd(),
		newKeysCmd(),
		newLoginCmd(),
		newLogoutCmd(),
		newStatusCmd(),
		newVersionCmd(),
	)

	return root
}

// openDB opens the SQLite database using the --db flag, fallback, or default path.
func openDB(fallback string, opts ...db.Option) (*sql.DB, error) {
	path := flagDB
	if path == "" {
		path = fallback
	}
	if path == "" {
		var err error
		path, err = db.DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	return db.Open(path, opts...)
}

// newAPIClient creates an HTTP client for the folio API.
func newAPIClient() *client.Client {
	return client.New(getServerURL(), getAPIKey())
}

// translator resolves the display language.
func translator() *i18n.Translator {
	return i18n.New(getLang())
}

// isJSON returns true if the --format flag is set to json.
func isJSON() bool {
	return flagFormat == "json"
}

// closeDB closes the database, logging any error to stderr.
func closeDB(database *sql.DB) {
	if err := database.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: closing database: %v\n", err)
	}
}
