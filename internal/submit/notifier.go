package submit

import "context"

// Level classifies a notice.
type Level string

// Notice levels.
const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Prompt is the text of a confirmation or loading step.
type Prompt struct {
	Title   string
	Text    string
	Confirm string
	Cancel  string
}

// Notice is a message reported back to the user.
type Notice struct {
	Level Level
	Title string
	Text  string
}

// Notifier is the user-facing dialog capability.
type Notifier interface {
	// Confirm asks the user to approve an action.
	Confirm(ctx context.Context, p Prompt) (bool, error)
	// Notify reports an outcome.
	Notify(ctx context.Context, n Notice)
	// Loading shows a busy indicator until the returned func is called.
	Loading(ctx context.Context, p Prompt) (done func())
}

// AutoConfirm approves every prompt and discards notices. It stands in when
// no interactive notifier is available.
type AutoConfirm struct{}

// Confirm always approves.
func (AutoConfirm) Confirm(context.Context, Prompt) (bool, error) { return true, nil }

// Notify does nothing.
func (AutoConfirm) Notify(context.Context, Notice) {}

// Loading does nothing.
func (AutoConfirm) Loading(context.Context, Prompt) func() { return func() {} }
