package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/evcraddock/folio/internal/submit"
)

// termNotifier asks and reports on a terminal.
type termNotifier struct {
	in  *bufio.Reader
	out io.Writer
}

func newTermNotifier(in io.Reader, out io.Writer) *termNotifier {
	return &termNotifier{in: bufio.NewReader(in), out: out}
}

// chooseNotifier returns a terminal prompt when stdin is interactive and
// the user did not pass --yes, and auto-confirmation otherwise.
func chooseNotifier(assumeYes bool, out io.Writer) submit.Notifier {
	if assumeYes || !term.IsTerminal(int(os.Stdin.Fd())) {
		return submit.AutoConfirm{}
	}
	return newTermNotifier(os.Stdin, out)
}

// Confirm prints the prompt and reads a yes/no answer. An empty answer
// accepts.
func (n *termNotifier) Confirm(ctx context.Context, p submit.Prompt) (bool, error) {
	fmt.Fprintf(n.out, "%s\n%s\n[%s / %s]: ", p.Title, p.Text, p.Confirm, p.Cancel)

	type answer struct {
		line string
		err  error
	}
	ch := make(chan answer, 1)
	go func() {
		line, err := n.in.ReadString('\n')
		ch <- answer{line, err}
	}()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case a := <-ch:
		if a.err != nil && a.line == "" {
			if errors.Is(a.err, io.EOF) {
				return false, nil
			}
			return false, fmt.Errorf("reading answer: %w", a.err)
		}
		switch strings.ToLower(strings.TrimSpace(a.line)) {
		case "", "y", "yes", "ya":
			return true, nil
		default:
			return false, nil
		}
	}
}

// Notify prints the notice with a level marker.
func (n *termNotifier) Notify(_ context.Context, note submit.Notice) {
	marker := "•"
	switch note.Level {
	case submit.LevelSuccess:
		marker = "✓"
	case submit.LevelError:
		marker = "✗"
	case submit.LevelWarning:
		marker = "!"
	}
	fmt.Fprintf(n.out, "%s %s %s\n", marker, note.Title, note.Text)
}

// Loading prints the busy message once.
func (n *termNotifier) Loading(_ context.Context, p submit.Prompt) func() {
	fmt.Fprintf(n.out, "… %s %s\n", p.Title, p.Text)
	return func() {}
}

// lineNotifier reports on the terminal like termNotifier but never asks:
// typing the line was the confirmation.
type lineNotifier struct {
	*termNotifier
}

// Confirm always approves.
func (lineNotifier) Confirm(context.Context, submit.Prompt) (bool, error) { return true, nil }
