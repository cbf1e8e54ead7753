package state

import "errors"

var (
	// ErrNoRouteAvailable is reported when data must be forwarded but the node has no preferred parent.
	ErrNoRouteAvailable = errors.New("no route available")
	// ErrMalformedPdu is reported for a pdu of unrecognized kind. It is never fatal.
	ErrMalformedPdu = errors.New("malformed pdu")
	// ErrHopLimit is reported when data has been relayed more times than any loop-free path allows.
	ErrHopLimit = errors.New("hop limit exceeded")
	// ErrNodeStopped is returned when work is submitted to a node that has terminated.
	ErrNodeStopped = errors.New("node stopped")
)
