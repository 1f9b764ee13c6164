package domain

import (
	"chat-relay/errors"
	"fmt"
)

type DeliveryStatus string

const (
	Pending   DeliveryStatus = "pending"
	Delivered DeliveryStatus = "delivered"
	Failed    DeliveryStatus = "failed"
)

// FailureReason tells why a recipient did not get the entry.
type FailureReason string

const (
	ReasonNone               FailureReason = ""
	ReasonMailboxFull        FailureReason = "MailboxFull"
	ReasonMailboxUnavailable FailureReason = "MailboxUnavailable"
	ReasonCanceled           FailureReason = "Canceled"
	ReasonDeliveryFailed     FailureReason = "DeliveryFailed"
)

// Delivery is the outcome record of one recipient for one send.
// It goes from Pending to Delivered or Failed once, terminal states never move.
// Delivered means the entry was accepted into the recipient's mailbox and is
// queued for transport.
type Delivery struct {
	Recipient UserID
	Status    DeliveryStatus
	Reason    FailureReason
	Err       error
}

func NewDelivery(recipient UserID) Delivery {
	return Delivery{Recipient: recipient, Status: Pending}
}

func (d Delivery) Deliver() (Delivery, error) {
	if d.Status != Pending {
		return d, fmt.Errorf("%w: %s -> %s", errors.ErrInvalidTransition, d.Status, Delivered)
	}
	d.Status = Delivered
	return d, nil
}

func (d Delivery) Fail(reason FailureReason, cause error) (Delivery, error) {
	if d.Status != Pending {
		return d, fmt.Errorf("%w: %s -> %s", errors.ErrInvalidTransition, d.Status, Failed)
	}
	d.Status = Failed
	d.Reason = reason
	d.Err = cause
	return d, nil
}

func (d Delivery) IsTerminal() bool {
	return d.Status == Delivered || d.Status == Failed
}
