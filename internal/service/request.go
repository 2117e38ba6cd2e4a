package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/event-participation/internal/metrics"
	"github.com/Shivanand-hulikatti/event-participation/internal/model"
)

// RequestService owns participation requests: submission, cancellation and
// the initiator's batch moderation against the event's participant limit.
type RequestService struct {
	base
}

// NewRequestService constructs a RequestService with its dependencies.
func NewRequestService(store Store, opts ...Option) *RequestService {
	return &RequestService{base: newBase(store, opts)}
}

// SubmitRequest files requesterID's request to join eventID. Requests for
// events without moderation or without a limit are confirmed immediately
// and take a seat in the same unit of work.
//
// The event row stays locked from the capacity check until commit, so two
// concurrent submissions can't both take the last seat.
func (s *RequestService) SubmitRequest(ctx context.Context, requesterID, eventID string) (*model.ParticipationRequest, error) {
	var created *model.ParticipationRequest
	err := s.atomically(ctx, func(tx Tx) error {
		if _, err := tx.GetUser(ctx, requesterID); err != nil {
			return err
		}
		event, err := tx.LockEvent(ctx, eventID)
		if err != nil {
			return err
		}

		exists, err := tx.RequestExists(ctx, requesterID, eventID)
		if err != nil {
			return err
		}
		if exists {
			s.log.Warn("duplicate request", zap.String("user", requesterID), zap.String("event", eventID))
			return fmt.Errorf("%w: user with id %s has already submitted a request for event with id %s",
				model.ErrDuplicateRequest, requesterID, eventID)
		}
		if requesterID == event.Initiator.ID {
			s.log.Warn("request from initiator", zap.String("user", requesterID), zap.String("event", eventID))
			return fmt.Errorf("%w: event initiator can't submit a request to their own event", model.ErrAccessDenied)
		}
		if event.State != model.EventPublished {
			return fmt.Errorf("%w: only published events are available for requests", model.ErrInvalidState)
		}
		if err := event.CheckCapacity(); err != nil {
			return err
		}

		req := &model.ParticipationRequest{
			ID:          uuid.NewString(),
			Created:     model.NewDateTime(s.clock()),
			EventID:     eventID,
			RequesterID: requesterID,
			Status:      model.RequestPending,
		}
		if event.AutoConfirms() {
			if err := req.TransitionTo(model.RequestConfirmed); err != nil {
				return err
			}
			if err := event.Confirm(1); err != nil {
				return err
			}
			if err := tx.UpdateEvent(ctx, event); err != nil {
				return err
			}
		}
		if err := tx.InsertRequest(ctx, req); err != nil {
			return err
		}
		created = req
		return nil
	})
	if err != nil {
		if errors.Is(err, model.ErrCapacityExceeded) {
			metrics.RecordCapacityRefusal("submit")
			s.log.Warn("participant limit reached", zap.String("event", eventID))
		}
		return nil, err
	}

	metrics.RecordRequestSubmitted(string(created.Status))
	s.log.Info("participation request saved",
		zap.String("request", created.ID), zap.String("event", eventID), zap.String("status", string(created.Status)))
	return created, nil
}

// CancelRequest cancels the requester's own request.
//
// A confirmed request keeps its seat: confirmedRequests is not decremented,
// so the seat stays occupied for the rest of the event's life.
func (s *RequestService) CancelRequest(ctx context.Context, requesterID, requestID string) (*model.ParticipationRequest, error) {
	var canceled *model.ParticipationRequest
	err := s.atomically(ctx, func(tx Tx) error {
		req, err := tx.GetRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if req.RequesterID != requesterID {
			s.log.Warn("cancel attempt not from requester", zap.String("user", requesterID), zap.String("request", requestID))
			return fmt.Errorf("%w: only requester can cancel request", model.ErrAccessDenied)
		}
		// Serialize with moderation of the same event, then re-read.
		if _, err := tx.LockEvent(ctx, req.EventID); err != nil {
			return err
		}
		if req, err = tx.GetRequest(ctx, requestID); err != nil {
			return err
		}
		if err := req.TransitionTo(model.RequestCanceled); err != nil {
			return err
		}
		if err := tx.SetRequestStatus(ctx, model.RequestCanceled, req.ID); err != nil {
			return err
		}
		canceled = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("participation request canceled", zap.String("request", requestID))
	return canceled, nil
}

// ModerateRequests applies the initiator's decision to the PENDING requests
// among req.RequestIDs.
//
// Unlimited events confirm every pending request. Otherwise confirmation is
// bounded by the seats left: requests are taken in the order given, the
// first ones confirmed and the overflow rejected. Events without moderation
// always confirm as far as seats allow. A REJECTED decision on a moderated
// event rejects the whole batch. An event that is already full refuses the
// batch outright.
func (s *RequestService) ModerateRequests(ctx context.Context, initiatorID, eventID string, req model.StatusUpdateRequest) (*model.StatusUpdateResult, error) {
	if err := s.validateStruct(req); err != nil {
		return nil, err
	}
	if req.Status != model.RequestConfirmed && req.Status != model.RequestRejected {
		return nil, fmt.Errorf("%w: status must be CONFIRMED or REJECTED, got %q", model.ErrValidation, req.Status)
	}
	ids := uniqueIDs(req.RequestIDs)

	var result *model.StatusUpdateResult
	err := s.atomically(ctx, func(tx Tx) error {
		event, err := tx.LockEvent(ctx, eventID)
		if err != nil {
			return err
		}
		if event.Initiator.ID != initiatorID {
			s.log.Warn("moderation attempt not from initiator", zap.String("user", initiatorID), zap.String("event", eventID))
			return fmt.Errorf("%w: only initiator can moderate requests", model.ErrAccessDenied)
		}
		if err := event.CheckCapacity(); err != nil {
			return err
		}

		pending, err := tx.PendingRequests(ctx, eventID, ids)
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			s.log.Info("no pending requests to moderate", zap.String("event", eventID))
			result = &model.StatusUpdateResult{
				ConfirmedRequests: []model.ParticipationRequest{},
				RejectedRequests:  []model.ParticipationRequest{},
			}
			return nil
		}

		var confirmed, rejected []model.ParticipationRequest
		switch {
		case event.Unlimited():
			confirmed, rejected = allocate(pending, len(pending))
		case !event.RequestModeration || req.Status == model.RequestConfirmed:
			confirmed, rejected = allocate(pending, event.Remaining())
		default:
			confirmed, rejected = allocate(pending, 0)
		}

		for i := range confirmed {
			if err := confirmed[i].TransitionTo(model.RequestConfirmed); err != nil {
				return err
			}
		}
		for i := range rejected {
			if err := rejected[i].TransitionTo(model.RequestRejected); err != nil {
				return err
			}
		}

		if len(confirmed) > 0 {
			if err := event.Confirm(len(confirmed)); err != nil {
				return err
			}
			if err := tx.UpdateEvent(ctx, event); err != nil {
				return err
			}
			if err := tx.SetRequestStatus(ctx, model.RequestConfirmed, requestIDs(confirmed)...); err != nil {
				return err
			}
		}
		if len(rejected) > 0 {
			if err := tx.SetRequestStatus(ctx, model.RequestRejected, requestIDs(rejected)...); err != nil {
				return err
			}
		}

		result = &model.StatusUpdateResult{ConfirmedRequests: confirmed, RejectedRequests: rejected}
		return nil
	})
	if err != nil {
		if errors.Is(err, model.ErrCapacityExceeded) {
			metrics.RecordCapacityRefusal("moderate")
			s.log.Warn("participant limit reached", zap.String("event", eventID))
		}
		return nil, err
	}

	metrics.RecordModeration(len(result.ConfirmedRequests), len(result.RejectedRequests))
	s.log.Info("requests moderated", zap.String("event", eventID),
		zap.Int("confirmed", len(result.ConfirmedRequests)), zap.Int("rejected", len(result.RejectedRequests)))
	return result, nil
}

// ListUserRequests returns every request filed by requesterID.
func (s *RequestService) ListUserRequests(ctx context.Context, requesterID string) ([]model.ParticipationRequest, error) {
	if _, err := s.store.GetUser(ctx, requesterID); err != nil {
		return nil, err
	}
	reqs, err := s.store.ListRequestsByRequester(ctx, requesterID)
	if err != nil {
		return nil, fmt.Errorf("list user requests: %w", err)
	}
	return reqs, nil
}

// ListEventRequests returns the requests filed for the initiator's event.
func (s *RequestService) ListEventRequests(ctx context.Context, initiatorID, eventID string) ([]model.ParticipationRequest, error) {
	event, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.Initiator.ID != initiatorID {
		return nil, fmt.Errorf("%w: only initiator can view requests of event %s", model.ErrAccessDenied, eventID)
	}
	reqs, err := s.store.ListRequestsByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list event requests: %w", err)
	}
	return reqs, nil
}
