package contract

import "errors"

var (
	ErrInputFormat        = errors.New("input format invalid")
	ErrUnknownSelection   = errors.New("unknown selection")
	ErrStrategyInvocation = errors.New("quote strategy failed")
	ErrPrecondition       = errors.New("dialogue precondition violated")
	ErrInvalidEvent       = errors.New("event is invalid")
	ErrInvalidUser        = errors.New("user id is invalid")
)
