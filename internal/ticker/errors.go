package ticker

import "signalbot/internal/errs"

// ErrNetworkFail and ErrMalformedPayload are re-exported from errs so
// callers can errors.Is against ticker.ErrX without importing errs too.
var (
	ErrNetworkFail      = errs.ErrNetworkFail
	ErrMalformedPayload = errs.ErrMalformedPayload
)
