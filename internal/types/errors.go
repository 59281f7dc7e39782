package types

import "errors"

var (
	// ErrDataUnavailable: snapshot or position fetch failed. The tick is aborted and no order is placed.
	ErrDataUnavailable = errors.New("data unavailable")
	// ErrDegenerateRisk: zero stop distance or a size that is not strictly positive.
	ErrDegenerateRisk = errors.New("degenerate risk")
	// ErrOrderRejected: the exchange refused the order.
	ErrOrderRejected = errors.New("order rejected")
	// ErrUnrecoverable: startup or auth failure. The process exits.
	ErrUnrecoverable = errors.New("unrecoverable")
	// ErrNoSignal is the HOLD rejection. Callers skip execution without reporting an error.
	ErrNoSignal = errors.New("no signal")
)
