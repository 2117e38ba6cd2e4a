// Package model defines the core domain types for the event participation system.
package model

import "time"

// Location is the geographic point an event takes place at.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Category is the short form of an event category.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// UserShort is the short form of a user, as embedded in event views.
type UserShort struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Event represents a public event created by its initiator.
type Event struct {
	ID                string     `json:"id"`
	Annotation        string     `json:"annotation"`
	Category          Category   `json:"category"`
	ConfirmedRequests int        `json:"confirmedRequests"`
	Description       string     `json:"description"`
	EventDate         DateTime   `json:"eventDate"`
	Initiator         UserShort  `json:"initiator"`
	Location          Location   `json:"location"`
	Paid              bool       `json:"paid"`
	ParticipantLimit  int        `json:"participantLimit"`
	CreatedOn         DateTime   `json:"createdOn"`
	PublishedOn       *DateTime  `json:"publishedOn,omitempty"`
	RequestModeration bool       `json:"requestModeration"`
	State             EventState `json:"state"`
	Title             string     `json:"title"`
	Views             int64      `json:"views"`
}

// EventShort is the list representation returned by public search.
type EventShort struct {
	ID                string    `json:"id"`
	Annotation        string    `json:"annotation"`
	Category          Category  `json:"category"`
	ConfirmedRequests int       `json:"confirmedRequests"`
	EventDate         DateTime  `json:"eventDate"`
	Initiator         UserShort `json:"initiator"`
	Paid              bool      `json:"paid"`
	Title             string    `json:"title"`
	Views             int64     `json:"views"`
}

// Short converts the event into its list representation.
func (e *Event) Short() EventShort {
	return EventShort{
		ID:                e.ID,
		Annotation:        e.Annotation,
		Category:          e.Category,
		ConfirmedRequests: e.ConfirmedRequests,
		EventDate:         e.EventDate,
		Initiator:         e.Initiator,
		Paid:              e.Paid,
		Title:             e.Title,
		Views:             e.Views,
	}
}

// ParticipationRequest is a user's request to join a published event.
type ParticipationRequest struct {
	ID          string        `json:"id"`
	Created     DateTime      `json:"created"`
	EventID     string        `json:"event"`
	RequesterID string        `json:"requester"`
	Status      RequestStatus `json:"status"`
}

// NewEventRequest is the payload for creating a new event.
type NewEventRequest struct {
	Annotation        string    `json:"annotation" validate:"required,min=20,max=2000"`
	Category          string    `json:"category" validate:"required"`
	Description       string    `json:"description" validate:"required,min=20,max=7000"`
	EventDate         *DateTime `json:"eventDate" validate:"required"`
	Location          *Location `json:"location" validate:"required"`
	Paid              *bool     `json:"paid"`
	ParticipantLimit  *int      `json:"participantLimit" validate:"omitempty,gte=0"`
	RequestModeration *bool     `json:"requestModeration"`
	Title             string    `json:"title" validate:"required,min=3,max=120"`
}

// UpdateEventRequest is a partial event patch. Nil fields are left untouched.
// StateAction is validated by the caller against the actor's transition table.
type UpdateEventRequest struct {
	Annotation        *string      `json:"annotation" validate:"omitempty,min=20,max=2000"`
	Category          *string      `json:"category" validate:"omitempty,min=1"`
	Description       *string      `json:"description" validate:"omitempty,min=20,max=7000"`
	EventDate         *DateTime    `json:"eventDate"`
	Location          *Location    `json:"location"`
	Paid              *bool        `json:"paid"`
	ParticipantLimit  *int         `json:"participantLimit" validate:"omitempty,gte=0"`
	RequestModeration *bool        `json:"requestModeration"`
	StateAction       *StateAction `json:"stateAction"`
	Title             *string      `json:"title" validate:"omitempty,min=3,max=120"`
}

// StatusUpdateRequest is the initiator's batch moderation payload.
type StatusUpdateRequest struct {
	RequestIDs []string      `json:"requestIds" validate:"required"`
	Status     RequestStatus `json:"status" validate:"required"`
}

// StatusUpdateResult partitions a moderated batch.
type StatusUpdateResult struct {
	ConfirmedRequests []ParticipationRequest `json:"confirmedRequests"`
	RejectedRequests  []ParticipationRequest `json:"rejectedRequests"`
}

// Page is an offset/limit window.
type Page struct {
	From int
	Size int
}

// DefaultPage is applied when a caller omits pagination.
var DefaultPage = Page{From: 0, Size: 10}

// SortOrder selects the ordering of public search results.
type SortOrder string

const (
	SortEventDate SortOrder = "EVENT_DATE"
	SortViews     SortOrder = "VIEWS"
)

// PublicEventFilter narrows the public event search. Only published events match.
type PublicEventFilter struct {
	Text          string
	Categories    []string
	Paid          *bool
	RangeStart    *time.Time
	RangeEnd      *time.Time
	OnlyAvailable bool
	Sort          SortOrder
	Page
}

// AdminEventFilter narrows the administrator's event search across all states.
type AdminEventFilter struct {
	Users      []string
	States     []EventState
	Categories []string
	RangeStart *time.Time
	RangeEnd   *time.Time
	Page
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error     string   `json:"error"`
	Status    string   `json:"status"`
	Reason    string   `json:"reason"`
	Timestamp DateTime `json:"timestamp"`
}
