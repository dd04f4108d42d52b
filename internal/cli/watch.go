package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/evcraddock/folio/internal/board"
	"github.com/evcraddock/folio/internal/client"
	"github.com/evcraddock/folio/internal/comment"
	"github.com/evcraddock/folio/internal/i18n"
	"github.com/evcraddock/folio/internal/identity"
	"github.com/evcraddock/folio/internal/submit"
)

const clearScreen = "\033[H\033[2J"

func newWatchCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Show comments and follow new ones live",
		Long: "Load the board, then redraw it whenever a comment is added, edited, or removed. " +
			"With --name, every line typed on stdin is posted as a comment under that name. Stop with Ctrl-C.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, watchOptions{
				in:     cmd.InOrStdin(),
				out:    cmd.OutOrStdout(),
				redraw: isTerminal(cmd.OutOrStdout()),
				name:   name,
			})
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "post each stdin line as a comment under this name")

	return cmd
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

type watchOptions struct {
	in     io.Reader
	out    io.Writer
	redraw bool   // clear the screen between renders
	name   string // post stdin lines under this name when set
}

// watchSession is one live board. When posting, its controller merges each
// created comment into the board; the feed's echo of it is absorbed by ID.
type watchSession struct {
	board *board.Board
	ctrl  *submit.Controller
}

// newWatchSession builds the board and, when posting, a controller that
// reconciles into it using the identity from assigner.
func newWatchSession(c *client.Client, assigner *identity.Assigner, posting bool, notifier submit.Notifier) (*watchSession, error) {
	feedURL, err := c.ChangesURL()
	if err != nil {
		return nil, err
	}

	s := &watchSession{board: board.New(c, feedURL)}
	if !posting {
		return s, nil
	}

	id, err := assigner.GetOrCreate()
	var unavailable *identity.UnavailableError
	if err != nil && !errors.As(err, &unavailable) {
		return nil, err
	}

	s.ctrl = submit.NewController(c,
		submit.WithNotifier(notifier),
		submit.WithReconciler(s.board),
		submit.WithTranslate(translator().T),
	)
	s.ctrl.SetIdentity(id.Token)
	return s, nil
}

func (s *watchSession) close() {
	if err := s.board.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: closing feed: %v\n", err)
	}
}

// post submits one typed line. Failures are already reported to the user
// by the controller's notifier.
func (s *watchSession) post(ctx context.Context, name, body string) {
	s.ctrl.SetForm(submit.Form{Name: name, Body: body})
	if _, err := s.ctrl.Submit(ctx); err != nil {
		slog.Debug("watch post not sent", "err", err)
	}
}

// runWatch follows the board until ctx ends.
func runWatch(ctx context.Context, opts watchOptions) error {
	out := opts.out
	t := translator()
	posting := opts.name != ""

	s, err := newWatchSession(newAPIClient(), newAssigner(), posting, lineNotifier{newTermNotifier(nil, out)})
	if err != nil {
		return err
	}
	defer s.close()

	fmt.Fprintln(out, t.T("list.loading"))
	if err := s.board.Start(ctx); err != nil {
		if _, serr := s.board.Stale(); serr != nil {
			return err
		}
		fmt.Fprintf(out, "✗ %s %s\n", t.T("notice.fetch_failed.title"), t.T("notice.fetch_failed.text"))
	}

	stale, err := s.board.Stale()
	if err != nil {
		return err
	}

	var lines <-chan string
	if posting {
		lines = readLines(ctx, opts.in)
	}

	list := s.board.List()
	render := func() {
		if opts.redraw {
			fmt.Fprint(out, clearScreen)
		}
		if isJSON() {
			if err := printJSON(out, list.Snapshot()); err != nil {
				fmt.Fprintf(os.Stderr, "warning: encoding comments: %v\n", err)
			}
			return
		}
		printBoard(out, t, list.Snapshot())
		if posting {
			fmt.Fprintln(out, t.T("form.prompt"))
		}
	}
	render()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-list.Changed():
			render()
		case <-stale:
			stale = nil
			if ctx.Err() == nil {
				fmt.Fprintf(out, "! %s\n", t.T("list.stale"))
			}
		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			if body := strings.TrimSpace(line); body != "" {
				s.post(ctx, opts.name, body)
			}
		}
	}
}

// readLines streams lines from r until EOF or ctx ends.
func readLines(ctx context.Context, r io.Reader) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case ch <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			slog.Warn("reading comment input", "err", err)
		}
	}()
	return ch
}

// printBoard prints the board heading followed by the list.
func printBoard(w io.Writer, t *i18n.Translator, comments []comment.Comment) {
	fmt.Fprintf(w, "%s\n%s\n\n", t.T("board.title"), t.T("board.subtitle"))
	printCommentList(w, t, comments)
}
