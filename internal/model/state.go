package model

import (
	"fmt"
	"slices"
)

// EventState is the publication state of an event.
type EventState string

const (
	EventPending   EventState = "PENDING"
	EventPublished EventState = "PUBLISHED"
	EventCanceled  EventState = "CANCELED"
)

// ParseEventState converts a wire token into an EventState.
func ParseEventState(s string) (EventState, error) {
	switch st := EventState(s); st {
	case EventPending, EventPublished, EventCanceled:
		return st, nil
	}
	return "", fmt.Errorf("%w: unknown event state %q", ErrValidation, s)
}

// EditableByInitiator reports whether the initiator may still change the event.
func (s EventState) EditableByInitiator() bool {
	return s == EventPending || s == EventCanceled
}

// StateAction is a requested event state change.
type StateAction string

const (
	SendToReview StateAction = "SEND_TO_REVIEW"
	CancelReview StateAction = "CANCEL_REVIEW"
	PublishEvent StateAction = "PUBLISH_EVENT"
	RejectEvent  StateAction = "REJECT_EVENT"
)

// Actor identifies who drives an event transition.
type Actor int

const (
	ActorInitiator Actor = iota
	ActorAdmin
)

func (a Actor) String() string {
	if a == ActorAdmin {
		return "admin"
	}
	return "initiator"
}

type eventTransition struct {
	from []EventState
	to   EventState
}

// eventTransitions is the complete event state machine. Anything not listed
// here is rejected.
var eventTransitions = map[Actor]map[StateAction]eventTransition{
	ActorInitiator: {
		SendToReview: {from: []EventState{EventPending, EventCanceled}, to: EventPending},
		CancelReview: {from: []EventState{EventPending, EventCanceled}, to: EventCanceled},
	},
	ActorAdmin: {
		PublishEvent: {from: []EventState{EventPending}, to: EventPublished},
		RejectEvent:  {from: []EventState{EventPending}, to: EventCanceled},
	},
}

// NextEventState resolves the state reached when actor applies action to an
// event currently in state from.
func NextEventState(actor Actor, from EventState, action StateAction) (EventState, error) {
	t, ok := eventTransitions[actor][action]
	if !ok {
		return "", fmt.Errorf("%w: %s can't apply %q", ErrUnsupportedAction, actor, action)
	}
	if !slices.Contains(t.from, from) {
		return "", fmt.Errorf("%w: can't apply %s to event in state %s", ErrInvalidState, action, from)
	}
	return t.to, nil
}

// RequestStatus is the moderation status of a participation request.
type RequestStatus string

const (
	RequestPending   RequestStatus = "PENDING"
	RequestConfirmed RequestStatus = "CONFIRMED"
	RequestRejected  RequestStatus = "REJECTED"
	RequestCanceled  RequestStatus = "CANCELED"
)

// requestTransitions lists the statuses reachable from each status.
// Cancellation is allowed from anywhere and is final.
var requestTransitions = map[RequestStatus][]RequestStatus{
	RequestPending:   {RequestConfirmed, RequestRejected, RequestCanceled},
	RequestConfirmed: {RequestCanceled},
	RequestRejected:  {RequestCanceled},
	RequestCanceled:  {RequestCanceled},
}

// CanTransitionTo reports whether next is reachable from s.
func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	return slices.Contains(requestTransitions[s], next)
}

// TransitionTo moves the request into status next.
func (r *ParticipationRequest) TransitionTo(next RequestStatus) error {
	if !r.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: request %s can't move from %s to %s", ErrInvalidState, r.ID, r.Status, next)
	}
	r.Status = next
	return nil
}
