package domain

import (
	"fmt"
	"strings"
)

type ActionKind string

const (
	ActionApprovePayment ActionKind = "approve_pay"
	ActionRejectPayment  ActionKind = "reject_pay"
)

// Action is the "kind:argument" string carried by an inline button.
type Action struct {
	Kind     ActionKind
	Argument string
}

func NewAction(kind ActionKind, arg string) Action {
	return Action{Kind: kind, Argument: arg}
}

func (a Action) String() string {
	return string(a.Kind) + ":" + a.Argument
}

// ParseAction splits callback data on the first colon.
func ParseAction(data string) (Action, bool) {
	kind, arg, ok := strings.Cut(strings.TrimSpace(data), ":")
	if !ok || kind == "" || arg == "" {
		return Action{}, false
	}
	return Action{Kind: ActionKind(kind), Argument: arg}, true
}

// JoinCode is the structured account-linking payload JOIN:<sponsor>:<position>:<order>.
type JoinCode struct {
	SponsorID string
	Position  Position
	OrderRef  string
}

const joinPrefix = "JOIN"

// ParseJoinCode parses a JOIN code. The order reference may itself contain colons.
func ParseJoinCode(code string) (JoinCode, error) {
	parts := strings.Split(strings.TrimSpace(code), ":")
	if len(parts) < 4 || !strings.EqualFold(parts[0], joinPrefix) {
		return JoinCode{}, fmt.Errorf("%w: not a join code", ErrInvalidInput)
	}
	if parts[1] == "" || parts[2] == "" || parts[3] == "" {
		return JoinCode{}, fmt.Errorf("%w: incomplete join code", ErrInvalidInput)
	}
	pos, err := ParsePosition(parts[2])
	if err != nil {
		return JoinCode{}, err
	}
	return JoinCode{
		SponsorID: parts[1],
		Position:  pos,
		OrderRef:  strings.Join(parts[3:], ":"),
	}, nil
}
