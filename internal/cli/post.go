package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evcraddock/folio/internal/identity"
	"github.com/evcraddock/folio/internal/submit"
)

func newPostCmd() *cobra.Command {
	var (
		name      string
		assumeYes bool
	)

	cmd := &cobra.Command{
		Use:   "post <comment...>",
		Short: "Post a comment",
		Long:  "Post an anonymous comment under a display name. Asks for confirmation when run in a terminal.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			form := submit.Form{Name: name, Body: strings.Join(args, " ")}
			return runPost(cmd.Context(), out, chooseNotifier(assumeYes, out), form)
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "display name")
	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "send without asking for confirmation")

	return cmd
}

// runPost sends one comment, asking notifier to confirm it first.
func runPost(ctx context.Context, out io.Writer, notifier submit.Notifier, form submit.Form) error {
	t := translator()

	id, err := newAssigner().GetOrCreate()
	var unavailable *identity.UnavailableError
	if err != nil && !errors.As(err, &unavailable) {
		return err
	}

	ctrl := submit.NewController(newAPIClient(),
		submit.WithNotifier(notifier),
		submit.WithTranslate(t.T),
	)
	ctrl.SetIdentity(id.Token)
	ctrl.SetForm(form)

	created, err := ctrl.Submit(ctx)
	if errors.Is(err, submit.ErrDeclined) {
		fmt.Fprintln(out, t.T("notice.declined"))
		return nil
	}
	if err != nil {
		return err
	}

	if isJSON() {
		return printJSON(out, created)
	}
	printComment(out, t, *created)
	return nil
}
