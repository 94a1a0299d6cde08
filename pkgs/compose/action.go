// Package compose resolves reply/forward recipients and builds the quoted
// body of a response to a reference message.
//
// The Resolver and Composer are pure: they only read their inputs and
// allocate fresh results, so a single instance may be shared between
// goroutines.
package compose

import (
	"fmt"
	"strings"
)

// Action identifies what kind of message is being composed.
type Action int

const (
	// ActionCompose is a new message or an edited draft.
	ActionCompose Action = iota
	ActionReply
	ActionReplyAll
	ActionForward
)

func (a Action) String() string {
	switch a {
	case ActionCompose:
		return "compose"
	case ActionReply:
		return "reply"
	case ActionReplyAll:
		return "reply-all"
	case ActionForward:
		return "forward"
	}
	return fmt.Sprintf("Action(%d)", int(a))
}

// IsResponse reports whether the action refers to a reference message.
func (a Action) IsResponse() bool {
	switch a {
	case ActionReply, ActionReplyAll, ActionForward:
		return true
	}
	return false
}

// ParseAction parses an action name such as "reply-all" or "fwd".
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "compose", "new":
		return ActionCompose, nil
	case "reply", "re":
		return ActionReply, nil
	case "reply-all", "replyall", "reply_all":
		return ActionReplyAll, nil
	case "forward", "fwd", "fw":
		return ActionForward, nil
	}
	return 0, fmt.Errorf("unknown action: %q", s)
}

func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Action) UnmarshalText(b []byte) error {
	parsed, err := ParseAction(string(b))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
