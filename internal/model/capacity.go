package model

import "fmt"

// Unlimited reports whether the event accepts any number of participants.
func (e *Event) Unlimited() bool {
	return e.ParticipantLimit == 0
}

// Remaining returns the number of seats still available. It is only
// meaningful for limited events.
func (e *Event) Remaining() int {
	if e.Unlimited() {
		return 0
	}
	if r := e.ParticipantLimit - e.ConfirmedRequests; r > 0 {
		return r
	}
	return 0
}

// IsFull returns true when a limited event has no remaining seats.
func (e *Event) IsFull() bool {
	return !e.Unlimited() && e.ConfirmedRequests >= e.ParticipantLimit
}

// AutoConfirms reports whether new requests skip moderation.
func (e *Event) AutoConfirms() bool {
	return !e.RequestModeration || e.Unlimited()
}

// CheckCapacity fails with ErrCapacityExceeded when the event is full.
func (e *Event) CheckCapacity() error {
	if e.IsFull() {
		return fmt.Errorf("%w: event with id %s has reached participant limit %d",
			ErrCapacityExceeded, e.ID, e.ParticipantLimit)
	}
	return nil
}

// Confirm records n newly confirmed participants. The counter never moves
// past a non-zero limit.
func (e *Event) Confirm(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: negative confirmation count %d", ErrValidation, n)
	}
	if !e.Unlimited() && e.ConfirmedRequests+n > e.ParticipantLimit {
		return fmt.Errorf("%w: confirming %d would exceed limit %d of event %s (confirmed %d)",
			ErrCapacityExceeded, n, e.ParticipantLimit, e.ID, e.ConfirmedRequests)
	}
	e.ConfirmedRequests += n
	return nil
}

// SetParticipantLimit changes the limit unless a non-zero limit would fall
// below the participants already confirmed.
func (e *Event) SetParticipantLimit(limit int) error {
	if limit < 0 {
		return fmt.Errorf("%w: participant limit must be positive or 0", ErrValidation)
	}
	if limit != 0 && limit < e.ConfirmedRequests {
		return fmt.Errorf("%w: limit %d is below %d confirmed participants of event %s",
			ErrCapacityExceeded, limit, e.ConfirmedRequests, e.ID)
	}
	e.ParticipantLimit = limit
	return nil
}
