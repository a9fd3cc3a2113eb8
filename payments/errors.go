package payments

import "github.com/pkg/errors"

var (
	ErrValidation         = errors.New("invalid request")
	ErrNotFound           = errors.New("not found")
	ErrInvalidState       = errors.New("invalid donation state")
	ErrConflict           = errors.New("transaction already recorded")
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrInvalidRecipient   = errors.New("invalid recipient")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrChainUnavailable   = errors.New("chain node unavailable")
)
