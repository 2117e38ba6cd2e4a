package service

import (
	"context"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
)

// Reader is the read side of the event and request stores. Lookups by id
// return an error wrapping model.ErrNotFound when the record is absent.
type Reader interface {
	GetUser(ctx context.Context, id string) (*model.UserShort, error)
	GetCategory(ctx context.Context, id string) (*model.Category, error)

	GetEvent(ctx context.Context, id string) (*model.Event, error)
	ListEventsByInitiator(ctx context.Context, initiatorID string, page model.Page) ([]model.Event, error)
	SearchEvents(ctx context.Context, f model.PublicEventFilter) ([]model.Event, error)
	SearchEventsAdmin(ctx context.Context, f model.AdminEventFilter) ([]model.Event, error)

	GetRequest(ctx context.Context, id string) (*model.ParticipationRequest, error)
	ListRequestsByRequester(ctx context.Context, requesterID string) ([]model.ParticipationRequest, error)
	ListRequestsByEvent(ctx context.Context, eventID string) ([]model.ParticipationRequest, error)
}

// Tx is one atomic unit of work. Writes become visible to other units only
// when the unit commits; an error from the unit discards them all.
type Tx interface {
	Reader

	// LockEvent reads the event and holds it exclusively until the unit
	// ends. Units locking the same event are linearized; units on other
	// events proceed in parallel.
	LockEvent(ctx context.Context, id string) (*model.Event, error)
	InsertEvent(ctx context.Context, e *model.Event) error
	UpdateEvent(ctx context.Context, e *model.Event) error

	RequestExists(ctx context.Context, requesterID, eventID string) (bool, error)
	InsertRequest(ctx context.Context, r *model.ParticipationRequest) error
	// PendingRequests returns the requests among ids that belong to eventID
	// and are PENDING, in the order of ids.
	PendingRequests(ctx context.Context, eventID string, ids []string) ([]model.ParticipationRequest, error)
	SetRequestStatus(ctx context.Context, status model.RequestStatus, ids ...string) error
}

// Store provides non-transactional reads and atomic units of work.
type Store interface {
	Reader

	// Atomically runs fn in a new unit of work and commits it when fn
	// returns nil. A lost write conflict is reported as model.ErrConflict.
	Atomically(ctx context.Context, fn func(tx Tx) error) error
}
