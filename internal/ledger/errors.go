package ledger

import "errors"

// Sentinel errors for every failure mode of the ledger. Callers dispatch on
// these with errors.Is; ErrInvalidArgument and ErrTransferFailed are wrapped
// with the specific reason.
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrCampaignNotFound  = errors.New("campaign not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrCampaignInactive  = errors.New("campaign is not active")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrTransferFailed    = errors.New("transfer failed")
)
