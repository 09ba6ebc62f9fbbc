package protocol

import "errors"

// Sentinel errors for the error taxonomy of spec §7, one per `class`.
// Mirrors the flat var-block-of-sentinels style of stepherg-devicemgr's
// errors.go, generalized from a device-management vocabulary to ours.
var (
	ErrProtocolError    = errors.New("protocol error")
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrInvalidResource  = errors.New("invalid resource")
	ErrHardwareError    = errors.New("hardware error")
	ErrNFCException     = errors.New("nfc exception")
	ErrStateError       = errors.New("state error")
	ErrQueueOverflow    = errors.New("outbound queue overflow")
)

// ClassOf maps a sentinel (or a wrapped sentinel) to its wire error class.
// Falls back to ProtocolError for anything unrecognized, since an
// unclassified failure at the wire boundary is still a protocol-level
// complaint to the client.
func ClassOf(err error) ErrorClass {
	switch {
	case errors.Is(err, ErrInvalidParameter):
		return ClassInvalidParameter
	case errors.Is(err, ErrInvalidResource):
		return ClassInvalidResource
	case errors.Is(err, ErrHardwareError):
		return ClassHardwareError
	case errors.Is(err, ErrNFCException):
		return ClassNFCException
	case errors.Is(err, ErrStateError):
		return ClassStateError
	case errors.Is(err, ErrQueueOverflow):
		return ClassQueueOverflow
	default:
		return ClassProtocolError
	}
}
