package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/evcraddock/folio/internal/submit"
)

func TestTermNotifierConfirm(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"enter accepts", "\n", true},
		{"yes", "yes\n", true},
		{"y uppercase", "Y\n", true},
		{"indonesian ya", "ya\n", true},
		{"no", "n\n", false},
		{"anything else", "later\n", false},
		{"eof declines", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			n := newTermNotifier(strings.NewReader(tt.input), &out)

			got, err := n.Confirm(context.Background(), submit.Prompt{
				Title: "Send this comment?", Text: "It will be published.", Confirm: "Yes", Cancel: "Cancel",
			})
			if err != nil {
				t.Fatalf("Confirm: %v", err)
			}
			if got != tt.want {
				t.Errorf("Confirm(%q) = %v, want %v", tt.input, got, tt.want)
			}
			if !strings.Contains(out.String(), "[Yes / Cancel]") {
				t.Errorf("prompt = %q", out.String())
			}
		})
	}
}

func TestTermNotifierConfirmCancelled(t *testing.T) {
	r, w := io.Pipe()
	t.Cleanup(func() {
		if err := w.Close(); err != nil {
			t.Errorf("close pipe: %v", err)
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n := newTermNotifier(r, io.Discard)
	_, err := n.Confirm(ctx, submit.Prompt{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestTermNotifierNotify(t *testing.T) {
	tests := []struct {
		level submit.Level
		want  string
	}{
		{submit.LevelSuccess, "✓ Done ok"},
		{submit.LevelError, "✗ Done ok"},
		{submit.LevelWarning, "! Done ok"},
		{submit.LevelInfo, "• Done ok"},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			var out bytes.Buffer
			n := newTermNotifier(strings.NewReader(""), &out)
			n.Notify(context.Background(), submit.Notice{Level: tt.level, Title: "Done", Text: "ok"})
			if strings.TrimSpace(out.String()) != tt.want {
				t.Errorf("output = %q, want %q", out.String(), tt.want)
			}
		})
	}
}

func TestChooseNotifierAssumeYes(t *testing.T) {
	if _, ok := chooseNotifier(true, io.Discard).(submit.AutoConfirm); !ok {
		t.Error("expected AutoConfirm with --yes")
	}
}

func TestLineNotifierConfirmsWithoutReading(t *testing.T) {
	var out bytes.Buffer
	n := lineNotifier{newTermNotifier(nil, &out)}

	ok, err := n.Confirm(context.Background(), submit.Prompt{Title: "Send this comment?"})
	if err != nil || !ok {
		t.Fatalf("Confirm = %v, %v; want true, nil", ok, err)
	}
	if out.Len() != 0 {
		t.Errorf("confirm printed %q, want nothing", out.String())
	}

	n.Notify(context.Background(), submit.Notice{Level: submit.LevelSuccess, Title: "Success!", Text: "Comment sent."})
	if got := out.String(); got != "✓ Success! Comment sent.\n" {
		t.Errorf("notify = %q", got)
	}
}
