// Package submit drives one comment submission from form input to the
// store: validate, confirm, create, report.
package submit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/evcraddock/folio/internal/client"
	"github.com/evcraddock/folio/internal/comment"
)

// State is a step of the submission flow.
type State int

// Submission states.
const (
	Idle State = iota
	Validating
	Confirming
	Submitting
	Succeeded
	Failed
)

var stateNames = [...]string{"idle", "validating", "confirming", "submitting", "succeeded", "failed"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

var (
	// ErrBusy is returned when a submission is already in flight.
	ErrBusy = errors.New("submission already in progress")
	// ErrDeclined is returned when the user cancels at the confirm step.
	ErrDeclined = errors.New("submission declined")
)

// Reason says why validation failed.
type Reason int

// Validation reasons.
const (
	EmptyFields Reason = iota + 1
	IdentityNotReady
)

// ValidationError rejects input before any network call.
type ValidationError struct {
	Reason Reason
}

func (e *ValidationError) Error() string {
	switch e.Reason {
	case EmptyFields:
		return "name and comment are required"
	case IdentityNotReady:
		return "client identity is not ready"
	default:
		return "invalid submission"
	}
}

// Creator performs the remote insert; client.Client satisfies it.
type Creator interface {
	Create(ctx context.Context, name, body, sessionID string) (*comment.Comment, error)
}

// Reconciler receives the stored comment after a successful create.
type Reconciler interface {
	Reconcile(c comment.Comment)
}

// Translate returns user-visible text for a key.
type Translate func(key string) string

// Form is the author's input.
type Form struct {
	Name string
	Body string
}

// Controller runs the submission state machine. At most one submission is
// in flight; concurrent calls get ErrBusy without touching the store.
type Controller struct {
	creator    Creator
	reconciler Reconciler
	notifier   Notifier
	t          Translate

	busy atomic.Bool

	mu       sync.Mutex
	state    State
	form     Form
	identity string
}

// Option configures a Controller.
type Option func(*Controller)

// WithNotifier sets the dialog capability. Without it the controller
// auto-confirms and reports nothing.
func WithNotifier(n Notifier) Option {
	return func(c *Controller) {
		if n != nil {
			c.notifier = n
		}
	}
}

// WithReconciler sets where successful comments are merged locally.
func WithReconciler(r Reconciler) Option {
	return func(c *Controller) { c.reconciler = r }
}

// WithTranslate sets the text lookup for prompts and notices.
func WithTranslate(t Translate) Option {
	return func(c *Controller) {
		if t != nil {
			c.t = t
		}
	}
}

// NewController creates a controller that writes through creator.
func NewController(creator Creator, opts ...Option) *Controller {
	c := &Controller{
		creator:  creator,
		notifier: AutoConfirm{},
		t:        func(key string) string { return key },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetIdentity records the client identity once it is available.
func (c *Controller) SetIdentity(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.identity = strings.TrimSpace(token)
}

// SetForm replaces the current input.
func (c *Controller) SetForm(f Form) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.form = f
}

// Form returns the current input. It is cleared after a successful submit.
func (c *Controller) Form() Form {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.form
}

// State returns the current step.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Busy reports whether a submission is in flight.
func (c *Controller) Busy() bool {
	return c.busy.Load()
}

// Submit runs the flow for the current form. It returns the stored comment
// on success, a *ValidationError, ErrDeclined, ErrBusy, or the store's
// error. The controller is back in Idle when Submit returns.
func (c *Controller) Submit(ctx context.Context) (*comment.Comment, error) {
	if !c.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer c.busy.Store(false)
	defer c.setState(Idle)

	c.setState(Validating)
	form, identity, err := c.validate()
	if err != nil {
		c.rejectInvalid(ctx, err)
		return nil, err
	}

	c.setState(Confirming)
	ok, err := c.notifier.Confirm(ctx, Prompt{
		Title:   c.t("confirm.send.title"),
		Text:    c.t("confirm.send.text"),
		Confirm: c.t("confirm.send.yes"),
		Cancel:  c.t("confirm.send.no"),
	})
	if err != nil {
		return nil, fmt.Errorf("confirming submission: %w", err)
	}
	if !ok {
		return nil, ErrDeclined
	}

	c.setState(Submitting)
	done := c.notifier.Loading(ctx, Prompt{
		Title: c.t("notice.sending.title"),
		Text:  c.t("notice.sending.text"),
	})
	created, err := c.creator.Create(ctx, form.Name, form.Body, identity)
	done()

	if err != nil {
		c.setState(Failed)
		c.fail(ctx, err)
		return nil, err
	}

	c.setState(Succeeded)
	c.succeed(ctx, *created)
	return created, nil
}

func (c *Controller) validate() (Form, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	form := Form{
		Name: strings.TrimSpace(c.form.Name),
		Body: strings.TrimSpace(c.form.Body),
	}
	if form.Name == "" || form.Body == "" {
		return Form{}, "", &ValidationError{Reason: EmptyFields}
	}
	if c.identity == "" {
		return Form{}, "", &ValidationError{Reason: IdentityNotReady}
	}
	return form, c.identity, nil
}

func (c *Controller) rejectInvalid(ctx context.Context, err error) {
	var ve *ValidationError
	if !errors.As(err, &ve) {
		return
	}
	n := Notice{
		Level: LevelWarning,
		Title: c.t("notice.incomplete.title"),
		Text:  c.t("notice.incomplete.text"),
	}
	if ve.Reason == IdentityNotReady {
		n.Title = c.t("notice.identity_not_ready.title")
		n.Text = c.t("notice.identity_not_ready.text")
	}
	c.notifier.Notify(ctx, n)
}

func (c *Controller) succeed(ctx context.Context, created comment.Comment) {
	c.mu.Lock()
	c.form = Form{}
	c.mu.Unlock()

	if c.reconciler != nil {
		c.reconciler.Reconcile(created)
	}
	slog.Info("comment submitted", "id", created.ID)

	c.notifier.Notify(ctx, Notice{
		Level: LevelSuccess,
		Title: c.t("notice.success.title"),
		Text:  c.t("notice.success.text"),
	})
}

func (c *Controller) fail(ctx context.Context, err error) {
	reason := c.t("notice.unknown_error")
	var se *client.SubmitError
	if errors.As(err, &se) {
		reason = se.Reason()
	} else if err != nil {
		reason = err.Error()
	}
	slog.Warn("comment submission failed", "err", err)

	c.notifier.Notify(ctx, Notice{
		Level: LevelError,
		Title: c.t("notice.failed.title"),
		Text:  fmt.Sprintf("%s (%s)", c.t("notice.failed.text"), reason),
	})
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != s {
		slog.Debug("submission state", "from", c.state, "to", s)
	}
	c.state = s
}
