// Package action implements the uniform action-dispatch and dialog
// continuation protocol (§4.7): any surface (TUI, HTTP API, background
// monitor) requests a named action on a pane and drives it to completion
// through a tree of ActionResult continuations, without the caller needing
// a back-channel into the component that produced the first result.
package action

import "context"

// Kind is the ActionResult's discriminant.
type Kind string

const (
	KindSuccess    Kind = "success"
	KindError      Kind = "error"
	KindInfo       Kind = "info"
	KindConfirm    Kind = "confirm"
	KindChoice     Kind = "choice"
	KindInput      Kind = "input"
	KindProgress   Kind = "progress"
	KindNavigation Kind = "navigation"
)

// Choice is one selectable option in a KindChoice result.
type Choice struct {
	ID          string
	Label       string
	Description string
	Danger      bool
	Default     bool
}

// Result is the tagged union every action and every dialog step returns.
// Exactly the fields relevant to Type are meaningful; the rest are left
// zero. Callbacks are continuations: a step does not have to resolve
// synchronously, it just returns the next Result, which lets the merge
// orchestrator express an arbitrarily deep dialog tree without a
// back-channel into the dispatcher.
type Result struct {
	Type        Kind
	Message     string
	Title       string
	Dismissable bool

	// confirm
	ConfirmLabel string
	CancelLabel  string
	OnConfirm    func(ctx context.Context) Result
	OnCancel     func(ctx context.Context) Result

	// choice
	Choices  []Choice
	OnSelect func(ctx context.Context, id string) Result

	// input
	Placeholder  string
	DefaultValue string
	OnSubmit     func(ctx context.Context, value string) Result

	// progress; nil means indeterminate
	Progress *float64

	// navigation
	TargetPaneID string
}

// Success builds a purely informational success Result.
func Success(message string) Result { return Result{Type: KindSuccess, Message: message} }

// Err builds a purely informational error Result.
func Err(message string) Result { return Result{Type: KindError, Message: message} }

// Info builds a purely informational Result with no success/failure connotation.
func Info(message string) Result { return Result{Type: KindInfo, Message: message} }

// Navigate builds a Result telling the UI to focus paneID.
func Navigate(paneID string) Result {
	return Result{Type: KindNavigation, TargetPaneID: paneID}
}
