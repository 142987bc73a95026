package viewer

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Action names one user action.
type Action string

const (
	ActionLogs     Action = "logs"
	ActionSpeed    Action = "speed"
	ActionEvents   Action = "events"
	ActionDownload Action = "download"
)

// Actions lists every action in button order.
var Actions = []Action{ActionLogs, ActionSpeed, ActionEvents, ActionDownload}

// ErrUnknownAction is returned by Dispatch for an action it does not know.
var ErrUnknownAction = errors.New("unknown action")

// Command is one user action with the serial number typed by the user.
type Command struct {
	Action Action `json:"action"`
	ID     string `json:"id"`
}

// ParseAction maps a name such as "speed" to its Action.
func ParseAction(name string) (Action, error) {
	a := Action(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Actions {
		if a == known {
			return a, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, name)
}

// Dispatch runs the operation named by cmd.
func (c *Controller) Dispatch(ctx context.Context, cmd Command) error {
	switch cmd.Action {
	case ActionLogs:
		return c.ShowLogs(ctx, cmd.ID)
	case ActionSpeed:
		return c.ShowSpeed(ctx, cmd.ID)
	case ActionEvents:
		return c.ShowEvents(ctx, cmd.ID)
	case ActionDownload:
		return c.DownloadTelemetryCsv(ctx, cmd.ID)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, cmd.Action)
	}
}
