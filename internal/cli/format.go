package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/evcraddock/folio/internal/comment"
	"github.com/evcraddock/folio/internal/i18n"
)

const timeLayout = "2006-01-02 15:04"

// printJSON marshals v as indented JSON and writes it to w.
func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printCommentList prints comments newest first in text format.
func printCommentList(w io.Writer, t *i18n.Translator, comments []comment.Comment) {
	fmt.Fprintf(w, "%s\n\n", t.T("list.title"))

	if len(comments) == 0 {
		fmt.Fprintln(w, t.T("list.empty"))
		return
	}

	for _, c := range comments {
		printComment(w, t, c)
		fmt.Fprintln(w)
	}
}

// printComment prints one comment with its avatar initial and identity hint.
func printComment(w io.Writer, t *i18n.Translator, c comment.Comment) {
	fmt.Fprintf(w, "[%s] %s  #%d  %s\n", c.Initial(), c.Name, c.ID, c.CreatedAt.Local().Format(timeLayout))
	for _, line := range strings.Split(c.Body, "\n") {
		fmt.Fprintf(w, "    %s\n", line)
	}
	if hint := c.IDHint(); hint != "" {
		fmt.Fprintf(w, "    %s: %s\n", t.T("list.user_id"), hint)
	}
}
