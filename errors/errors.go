package errors

import "fmt"

var (
	ErrWorkerPanic = fmt.Errorf("worker panic")

	// Identity and authorization, surfaced synchronously to the caller.
	ErrUnknownEntity     = fmt.Errorf("unknown entity")
	ErrDuplicateIdentity = fmt.Errorf("duplicate identity")
	ErrNotAuthorized     = fmt.Errorf("not authorized")
	ErrNotAMember        = fmt.Errorf("not a member")
	ErrSelfSendRejected  = fmt.Errorf("self send rejected")
	ErrInvalidName       = fmt.Errorf("invalid name")
	ErrInvalidMessage    = fmt.Errorf("invalid message")

	// Delivery-time, reported per recipient and never escalated by the fanout.
	ErrMailboxFull       = fmt.Errorf("mailbox full")
	ErrMailboxClosed     = fmt.Errorf("mailbox closed")
	ErrDeliveryFailed    = fmt.Errorf("delivery failed")
	ErrInvalidTransition = fmt.Errorf("invalid delivery transition")

	ErrAlreadyRecorded = fmt.Errorf("message already recorded")
	ErrJournalDisabled = fmt.Errorf("journal disabled")
	ErrInvalidCursor   = fmt.Errorf("invalid cursor")
)

// DeliveryError is a recipient-side failure carrying an opaque reason.
type DeliveryError struct {
	Reason string
	Err    error
}

func (e *DeliveryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", ErrDeliveryFailed, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", ErrDeliveryFailed, e.Reason)
}

// Is makes every DeliveryError match ErrDeliveryFailed.
func (e *DeliveryError) Is(target error) bool {
	return target == ErrDeliveryFailed
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
