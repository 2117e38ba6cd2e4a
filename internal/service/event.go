package service

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/event-participation/internal/metrics"
	"github.com/Shivanand-hulikatti/event-participation/internal/model"
	"github.com/Shivanand-hulikatti/event-participation/internal/stats"
)

const (
	// userEditLead is how far ahead of now an event must start for its
	// initiator to create or change it.
	userEditLead = 2 * time.Hour
	// adminEditLead is the same bound for administrator date changes.
	adminEditLead = time.Hour
)

// EventService owns the event lifecycle: creation, initiator and
// administrator edits, and the views of events.
type EventService struct {
	base
	stats stats.Collector
}

// NewEventService constructs an EventService with its dependencies.
func NewEventService(store Store, collector stats.Collector, opts ...Option) *EventService {
	return &EventService{base: newBase(store, opts), stats: collector}
}

// EventPath is the public URI of an event, under which its views are counted.
func EventPath(id string) string {
	return "/events/" + id
}

// CreateEvent validates the request and stores a new PENDING event owned by
// initiatorID.
func (s *EventService) CreateEvent(ctx context.Context, initiatorID string, req model.NewEventRequest) (*model.Event, error) {
	req.Title = strings.TrimSpace(req.Title)
	if err := s.validateStruct(req); err != nil {
		return nil, err
	}
	now := s.clock()
	if req.EventDate.Before(now.Add(userEditLead)) {
		s.log.Warn("event date too early", zap.String("initiator", initiatorID), zap.Time("eventDate", req.EventDate.Time))
		return nil, fmt.Errorf("%w: event can't start earlier than 2 hours from now", model.ErrInvalidSchedule)
	}

	event := &model.Event{
		ID:                uuid.NewString(),
		Annotation:        req.Annotation,
		Description:       req.Description,
		EventDate:         model.NewDateTime(req.EventDate.Time),
		Location:          *req.Location,
		CreatedOn:         model.NewDateTime(now),
		RequestModeration: true,
		State:             model.EventPending,
		Title:             req.Title,
	}
	if req.Paid != nil {
		event.Paid = *req.Paid
	}
	if req.ParticipantLimit != nil {
		event.ParticipantLimit = *req.ParticipantLimit
	}
	if req.RequestModeration != nil {
		event.RequestModeration = *req.RequestModeration
	}

	err := s.atomically(ctx, func(tx Tx) error {
		initiator, err := tx.GetUser(ctx, initiatorID)
		if err != nil {
			return err
		}
		category, err := tx.GetCategory(ctx, req.Category)
		if err != nil {
			return err
		}
		event.Initiator = *initiator
		event.Category = *category
		return tx.InsertEvent(ctx, event)
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordEventTransition(string(model.EventPending))
	s.log.Info("event created", zap.String("event", event.ID), zap.String("initiator", initiatorID))
	return event, nil
}

// EditEventAsUser applies the initiator's patch and optional state action.
// Only PENDING and CANCELED events that start at least two hours from now
// may be edited.
func (s *EventService) EditEventAsUser(ctx context.Context, initiatorID, eventID string, patch model.UpdateEventRequest) (*model.Event, error) {
	if err := s.validateStruct(patch); err != nil {
		return nil, err
	}
	now := s.clock()

	var updated *model.Event
	err := s.atomically(ctx, func(tx Tx) error {
		event, err := tx.LockEvent(ctx, eventID)
		if err != nil {
			return err
		}
		if event.Initiator.ID != initiatorID {
			s.log.Warn("edit attempt not from initiator", zap.String("user", initiatorID), zap.String("event", eventID))
			return fmt.Errorf("%w: only initiator can update event", model.ErrAccessDenied)
		}
		if !event.State.EditableByInitiator() {
			return fmt.Errorf("%w: only pending or canceled event can be updated, event is %s", model.ErrInvalidState, event.State)
		}
		if event.EventDate.Before(now.Add(userEditLead)) {
			return fmt.Errorf("%w: can't update event because it starts in less than 2 hours", model.ErrInvalidSchedule)
		}
		if patch.EventDate != nil && patch.EventDate.Before(now.Add(userEditLead)) {
			return fmt.Errorf("%w: event can't start earlier than 2 hours from now", model.ErrInvalidSchedule)
		}

		if err := applyPatch(ctx, tx, event, patch); err != nil {
			return err
		}
		if patch.StateAction != nil {
			next, err := model.NextEventState(model.ActorInitiator, event.State, *patch.StateAction)
			if err != nil {
				return err
			}
			event.State = next
		}
		if err := tx.UpdateEvent(ctx, event); err != nil {
			return err
		}
		updated = event
		return nil
	})
	if err != nil {
		return nil, err
	}

	if patch.StateAction != nil {
		metrics.RecordEventTransition(string(updated.State))
	}
	s.log.Info("event updated by initiator", zap.String("event", eventID), zap.String("state", string(updated.State)))
	return updated, nil
}

// EditEventAsAdmin applies an administrator's patch and optional moderation
// action (publish or reject) to a PENDING event.
func (s *EventService) EditEventAsAdmin(ctx context.Context, eventID string, patch model.UpdateEventRequest) (*model.Event, error) {
	if err := s.validateStruct(patch); err != nil {
		return nil, err
	}
	now := s.clock()

	var updated *model.Event
	err := s.atomically(ctx, func(tx Tx) error {
		event, err := tx.LockEvent(ctx, eventID)
		if err != nil {
			return err
		}
		if patch.EventDate != nil {
			// The bound applies to the date being replaced.
			if event.EventDate.Before(now.Add(adminEditLead)) {
				return fmt.Errorf("%w: can't update event because it starts in less than 1 hour", model.ErrInvalidSchedule)
			}
			if !patch.EventDate.After(now) {
				return fmt.Errorf("%w: event date must be in future", model.ErrInvalidSchedule)
			}
		}

		if err := applyPatch(ctx, tx, event, patch); err != nil {
			return err
		}
		if patch.StateAction != nil {
			next, err := model.NextEventState(model.ActorAdmin, event.State, *patch.StateAction)
			if err != nil {
				s.log.Warn("admin state action refused", zap.String("event", eventID), zap.Error(err))
				return err
			}
			if next == model.EventPublished {
				published := model.NewDateTime(now)
				event.PublishedOn = &published
			}
			event.State = next
		}
		if err := tx.UpdateEvent(ctx, event); err != nil {
			return err
		}
		updated = event
		return nil
	})
	if err != nil {
		return nil, err
	}

	if patch.StateAction != nil {
		metrics.RecordEventTransition(string(updated.State))
	}
	s.log.Info("event updated by admin", zap.String("event", eventID), zap.String("state", string(updated.State)))
	return updated, nil
}

// applyPatch copies every supplied field of patch onto event.
func applyPatch(ctx context.Context, tx Tx, event *model.Event, patch model.UpdateEventRequest) error {
	if patch.Annotation != nil {
		event.Annotation = *patch.Annotation
	}
	if patch.Category != nil {
		category, err := tx.GetCategory(ctx, *patch.Category)
		if err != nil {
			return err
		}
		event.Category = *category
	}
	if patch.Description != nil {
		event.Description = *patch.Description
	}
	if patch.EventDate != nil {
		event.EventDate = model.NewDateTime(patch.EventDate.Time)
	}
	if patch.Location != nil {
		event.Location = *patch.Location
	}
	if patch.Paid != nil {
		event.Paid = *patch.Paid
	}
	if patch.ParticipantLimit != nil {
		if err := event.SetParticipantLimit(*patch.ParticipantLimit); err != nil {
			return err
		}
	}
	if patch.RequestModeration != nil {
		event.RequestModeration = *patch.RequestModeration
	}
	if patch.Title != nil {
		event.Title = strings.TrimSpace(*patch.Title)
	}
	return nil
}

// GetPublishedEvent is the public view of an event. Unpublished events are
// reported as not found. The hit is recorded and the unique view count
// since publication attached.
func (s *EventService) GetPublishedEvent(ctx context.Context, id string, hit stats.Hit) (*model.Event, error) {
	event, err := s.store.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if event.State != model.EventPublished {
		return nil, fmt.Errorf("%w: event with id %s not found", model.ErrNotFound, id)
	}

	s.recordHit(ctx, hit)
	events := []model.Event{*event}
	s.attachViews(ctx, events)
	return &events[0], nil
}

// GetUserEvent is the owner-scoped view: the initiator sees the event in any
// state, everyone else gets not found.
func (s *EventService) GetUserEvent(ctx context.Context, initiatorID, eventID string) (*model.Event, error) {
	event, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.Initiator.ID != initiatorID {
		return nil, fmt.Errorf("%w: event with id %s not found", model.ErrNotFound, eventID)
	}
	return event, nil
}

// ListUserEvents returns the initiator's own events in any state.
func (s *EventService) ListUserEvents(ctx context.Context, initiatorID string, page model.Page) ([]model.Event, error) {
	events, err := s.store.ListEventsByInitiator(ctx, initiatorID, normalizePage(page))
	if err != nil {
		return nil, fmt.Errorf("list user events: %w", err)
	}
	s.log.Debug("user events found", zap.String("user", initiatorID), zap.Int("count", len(events)))
	return events, nil
}

// SearchEvents runs the public search over published events.
func (s *EventService) SearchEvents(ctx context.Context, f model.PublicEventFilter, hit stats.Hit) ([]model.EventShort, error) {
	if err := checkRange(f.RangeStart, f.RangeEnd); err != nil {
		return nil, err
	}
	if f.Sort != "" && f.Sort != model.SortEventDate && f.Sort != model.SortViews {
		return nil, fmt.Errorf("%w: unknown sort %q", model.ErrValidation, f.Sort)
	}
	if f.RangeStart == nil && f.RangeEnd == nil {
		now := s.clock()
		f.RangeStart = &now
	}
	f.Page = normalizePage(f.Page)

	events, err := s.store.SearchEvents(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("search events: %w", err)
	}
	s.recordHit(ctx, hit)
	s.attachViews(ctx, events)

	out := make([]model.EventShort, 0, len(events))
	for i := range events {
		out = append(out, events[i].Short())
	}
	switch f.Sort {
	case model.SortViews:
		slices.SortStableFunc(out, func(a, b model.EventShort) int { return cmp.Compare(b.Views, a.Views) })
	case model.SortEventDate:
		slices.SortStableFunc(out, func(a, b model.EventShort) int { return b.EventDate.Compare(a.EventDate.Time) })
	}
	s.log.Debug("public events found", zap.Int("count", len(out)))
	return out, nil
}

// SearchEventsAdmin lists events in any state for administrators.
func (s *EventService) SearchEventsAdmin(ctx context.Context, f model.AdminEventFilter) ([]model.Event, error) {
	if err := checkRange(f.RangeStart, f.RangeEnd); err != nil {
		return nil, err
	}
	f.Page = normalizePage(f.Page)
	events, err := s.store.SearchEventsAdmin(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("search events by admin: %w", err)
	}
	return events, nil
}

func (s *EventService) recordHit(ctx context.Context, hit stats.Hit) {
	if hit.URI == "" {
		return
	}
	if hit.Timestamp.IsZero() {
		hit.Timestamp = s.clock()
	}
	if err := s.stats.RecordHit(ctx, hit); err != nil {
		s.log.Warn("record hit failed", zap.String("uri", hit.URI), zap.Error(err))
	}
}

// attachViews fills Views of every published event with its unique view
// count. Collector failures leave the counts at zero.
func (s *EventService) attachViews(ctx context.Context, events []model.Event) {
	var (
		uris  []string
		start time.Time
	)
	for _, e := range events {
		if e.PublishedOn == nil {
			continue
		}
		uris = append(uris, EventPath(e.ID))
		if start.IsZero() || e.PublishedOn.Before(start) {
			start = e.PublishedOn.Time
		}
	}
	if len(uris) == 0 {
		return
	}

	counts, err := s.stats.ViewCounts(ctx, start, s.clock(), uris, true)
	if err != nil {
		s.log.Warn("view counts unavailable", zap.Error(err))
		return
	}
	byURI := make(map[string]int64, len(counts))
	for _, c := range counts {
		byURI[c.URI] += c.Hits
	}
	for i := range events {
		events[i].Views = byURI[EventPath(events[i].ID)]
	}
}
