package session

import (
	"context"

	"github.com/pkg/errors"

	"github.com/oneany574/eduflow-calendar-hub/internal/validation"
)

// Action is a session card command.
type Action string

const (
	ActionView       Action = "view"
	ActionStart      Action = "start"
	ActionEnd        Action = "end"
	ActionCancel     Action = "cancel"
	ActionReschedule Action = "reschedule"
	ActionEdit       Action = "edit"
	ActionDelete     Action = "delete"
)

// ErrUnknownAction is returned by Dispatch for actions it does not handle.
var ErrUnknownAction = errors.New("unknown action")

// Command is a tagged action on one session. Edit needs Update and
// reschedule needs Reschedule; other actions ignore them.
type Command struct {
	Action     Action         `json:"action" binding:"required"`
	SessionID  string         `json:"-"`
	Update     *UpdateSession `json:"update,omitempty"`
	Reschedule *Reschedule    `json:"reschedule,omitempty"`
}

// Outcome is what a dispatched command produced.
type Outcome struct {
	Action    Action    `json:"action"`
	Session   *Session  `json:"session,omitempty"` // nil after delete
	Conflicts []Session `json:"conflicts,omitempty"`
	Deleted   bool      `json:"deleted,omitempty"`
}

// Dispatch runs cmd against the session it names.
func (svc *Service) Dispatch(ctx context.Context, cmd Command) (Outcome, error) {
	out := Outcome{Action: cmd.Action}

	var (
		s   Session
		res Result
		err error
	)
	switch cmd.Action {
	case ActionView:
		s, err = svc.Get(cmd.SessionID)
	case ActionStart:
		s, err = svc.Start(ctx, cmd.SessionID)
	case ActionEnd:
		s, err = svc.End(ctx, cmd.SessionID)
	case ActionCancel:
		s, err = svc.Cancel(ctx, cmd.SessionID)
	case ActionEdit:
		if cmd.Update == nil {
			return out, validation.NewValidationError(validation.FieldError{Field: "update", Error: "update is required"})
		}
		res, err = svc.Update(ctx, cmd.SessionID, *cmd.Update)
		s, out.Conflicts = res.Session, res.Conflicts
	case ActionReschedule:
		if cmd.Reschedule == nil {
			return out, validation.NewValidationError(validation.FieldError{Field: "reschedule", Error: "reschedule is required"})
		}
		res, err = svc.Reschedule(ctx, cmd.SessionID, *cmd.Reschedule)
		s, out.Conflicts = res.Session, res.Conflicts
	case ActionDelete:
		if err = svc.Delete(ctx, cmd.SessionID); err != nil {
			return out, err
		}
		out.Deleted = true
		return out, nil
	default:
		return out, errors.Wrapf(ErrUnknownAction, "%q", cmd.Action)
	}
	if err != nil {
		return out, err
	}
	out.Session = &s
	return out, nil
}
