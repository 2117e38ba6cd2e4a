// Package memory is an in-process implementation of the event and request
// stores. Units of work stage their writes and publish them on commit;
// LockEvent serializes units on the same event only.
package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
	"github.com/Shivanand-hulikatti/event-participation/internal/service"
)

// Store keeps every record in memory. The zero value is not usable; call New.
type Store struct {
	mu         sync.RWMutex
	users      map[string]model.UserShort
	categories map[string]model.Category
	events     map[string]model.Event
	requests   map[string]model.ParticipationRequest
	eventSeq   []string
	requestSeq []string

	locksMu sync.Mutex
	locks   map[string]chan struct{}
}

// New creates an empty store.
func New() *Store {
	return &Store{
		users:      make(map[string]model.UserShort),
		categories: make(map[string]model.Category),
		events:     make(map[string]model.Event),
		requests:   make(map[string]model.ParticipationRequest),
		locks:      make(map[string]chan struct{}),
	}
}

// AddUser registers a user and returns it.
func (s *Store) AddUser(name string) model.UserShort {
	u := model.UserShort{ID: uuid.NewString(), Name: name}
	s.mu.Lock()
	s.users[u.ID] = u
	s.mu.Unlock()
	return u
}

// AddCategory registers a category and returns it.
func (s *Store) AddCategory(name string) model.Category {
	c := model.Category{ID: uuid.NewString(), Name: name}
	s.mu.Lock()
	s.categories[c.ID] = c
	s.mu.Unlock()
	return c
}

// Atomically implements service.Store.
func (s *Store) Atomically(ctx context.Context, fn func(tx service.Tx) error) error {
	t := &tx{
		Store:    s,
		events:   make(map[string]model.Event),
		requests: make(map[string]model.ParticipationRequest),
		held:     make(map[string]chan struct{}),
	}
	defer t.release()

	if err := fn(t); err != nil {
		return err
	}
	return t.commit()
}

func (s *Store) eventLock(id string) chan struct{} {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = make(chan struct{}, 1)
		s.locks[id] = l
	}
	return l
}

// GetUser implements service.Reader.
func (s *Store) GetUser(_ context.Context, id string) (*model.UserShort, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: user with id %s not found", model.ErrNotFound, id)
	}
	return &u, nil
}

// GetCategory implements service.Reader.
func (s *Store) GetCategory(_ context.Context, id string) (*model.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.categories[id]
	if !ok {
		return nil, fmt.Errorf("%w: category with id %s not found", model.ErrNotFound, id)
	}
	return &c, nil
}

// GetEvent implements service.Reader.
func (s *Store) GetEvent(_ context.Context, id string) (*model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[id]
	if !ok {
		return nil, fmt.Errorf("%w: event with id %s not found", model.ErrNotFound, id)
	}
	return &e, nil
}

// ListEventsByInitiator implements service.Reader.
func (s *Store) ListEventsByInitiator(_ context.Context, initiatorID string, page model.Page) ([]model.Event, error) {
	return paginate(s.filterEvents(func(e model.Event) bool { return e.Initiator.ID == initiatorID }), page), nil
}

// SearchEvents implements service.Reader.
func (s *Store) SearchEvents(_ context.Context, f model.PublicEventFilter) ([]model.Event, error) {
	text := strings.ToLower(f.Text)
	events := s.filterEvents(func(e model.Event) bool {
		if e.State != model.EventPublished {
			return false
		}
		if text != "" && !strings.Contains(strings.ToLower(e.Annotation), text) &&
			!strings.Contains(strings.ToLower(e.Description), text) {
			return false
		}
		if len(f.Categories) > 0 && !slices.Contains(f.Categories, e.Category.ID) {
			return false
		}
		if f.Paid != nil && e.Paid != *f.Paid {
			return false
		}
		if f.RangeStart != nil && e.EventDate.Before(*f.RangeStart) {
			return false
		}
		if f.RangeEnd != nil && e.EventDate.After(*f.RangeEnd) {
			return false
		}
		if f.OnlyAvailable && e.IsFull() {
			return false
		}
		return true
	})
	if f.Sort == model.SortEventDate {
		slices.SortStableFunc(events, func(a, b model.Event) int { return b.EventDate.Compare(a.EventDate.Time) })
	}
	return paginate(events, f.Page), nil
}

// SearchEventsAdmin implements service.Reader.
func (s *Store) SearchEventsAdmin(_ context.Context, f model.AdminEventFilter) ([]model.Event, error) {
	events := s.filterEvents(func(e model.Event) bool {
		if len(f.Users) > 0 && !slices.Contains(f.Users, e.Initiator.ID) {
			return false
		}
		if len(f.States) > 0 && !slices.Contains(f.States, e.State) {
			return false
		}
		if len(f.Categories) > 0 && !slices.Contains(f.Categories, e.Category.ID) {
			return false
		}
		if f.RangeStart != nil && e.EventDate.Before(*f.RangeStart) {
			return false
		}
		if f.RangeEnd != nil && e.EventDate.After(*f.RangeEnd) {
			return false
		}
		return true
	})
	return paginate(events, f.Page), nil
}

// GetRequest implements service.Reader.
func (s *Store) GetRequest(_ context.Context, id string) (*model.ParticipationRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.requests[id]
	if !ok {
		return nil, fmt.Errorf("%w: request with id %s not found", model.ErrNotFound, id)
	}
	return &r, nil
}

// ListRequestsByRequester implements service.Reader.
func (s *Store) ListRequestsByRequester(_ context.Context, requesterID string) ([]model.ParticipationRequest, error) {
	return s.filterRequests(func(r model.ParticipationRequest) bool { return r.RequesterID == requesterID }), nil
}

// ListRequestsByEvent implements service.Reader.
func (s *Store) ListRequestsByEvent(_ context.Context, eventID string) ([]model.ParticipationRequest, error) {
	return s.filterRequests(func(r model.ParticipationRequest) bool { return r.EventID == eventID }), nil
}

// ConfirmedCount counts CONFIRMED requests of an event.
func (s *Store) ConfirmedCount(eventID string) int {
	return len(s.filterRequests(func(r model.ParticipationRequest) bool {
		return r.EventID == eventID && r.Status == model.RequestConfirmed
	}))
}

func (s *Store) filterEvents(keep func(model.Event) bool) []model.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.Event{}
	for _, id := range s.eventSeq {
		if e := s.events[id]; keep(e) {
			out = append(out, e)
		}
	}
	return out
}

func (s *Store) filterRequests(keep func(model.ParticipationRequest) bool) []model.ParticipationRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.ParticipationRequest{}
	for _, id := range s.requestSeq {
		if r := s.requests[id]; keep(r) {
			out = append(out, r)
		}
	}
	return out
}

func paginate[T any](items []T, p model.Page) []T {
	from := min(max(p.From, 0), len(items))
	to := len(items)
	if p.Size > 0 {
		to = min(from+p.Size, len(items))
	}
	return items[from:to]
}

// tx is one unit of work. Reads see the unit's own staged writes.
type tx struct {
	*Store
	events      map[string]model.Event
	requests    map[string]model.ParticipationRequest
	newEvents   []string
	newRequests []string
	held        map[string]chan struct{}
}

func (t *tx) LockEvent(ctx context.Context, id string) (*model.Event, error) {
	if _, ok := t.held[id]; !ok {
		l := t.Store.eventLock(id)
		select {
		case l <- struct{}{}:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		t.held[id] = l
	}
	return t.GetEvent(ctx, id)
}

func (t *tx) release() {
	for id, l := range t.held {
		<-l
		delete(t.held, id)
	}
}

func (t *tx) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	if e, ok := t.events[id]; ok {
		return &e, nil
	}
	return t.Store.GetEvent(ctx, id)
}

func (t *tx) InsertEvent(ctx context.Context, e *model.Event) error {
	if _, err := t.Store.GetEvent(ctx, e.ID); err == nil {
		return fmt.Errorf("event %s already exists", e.ID)
	}
	t.events[e.ID] = *e
	t.newEvents = append(t.newEvents, e.ID)
	return nil
}

func (t *tx) UpdateEvent(ctx context.Context, e *model.Event) error {
	if _, err := t.GetEvent(ctx, e.ID); err != nil {
		return err
	}
	t.events[e.ID] = *e
	return nil
}

func (t *tx) GetRequest(ctx context.Context, id string) (*model.ParticipationRequest, error) {
	if r, ok := t.requests[id]; ok {
		return &r, nil
	}
	return t.Store.GetRequest(ctx, id)
}

func (t *tx) RequestExists(_ context.Context, requesterID, eventID string) (bool, error) {
	for _, r := range t.requests {
		if r.RequesterID == requesterID && r.EventID == eventID {
			return true, nil
		}
	}
	found := t.Store.filterRequests(func(r model.ParticipationRequest) bool {
		return r.RequesterID == requesterID && r.EventID == eventID
	})
	return len(found) > 0, nil
}

func (t *tx) InsertRequest(ctx context.Context, r *model.ParticipationRequest) error {
	exists, err := t.RequestExists(ctx, r.RequesterID, r.EventID)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: user with id %s has already submitted a request for event with id %s",
			model.ErrDuplicateRequest, r.RequesterID, r.EventID)
	}
	t.requests[r.ID] = *r
	t.newRequests = append(t.newRequests, r.ID)
	return nil
}

func (t *tx) PendingRequests(ctx context.Context, eventID string, ids []string) ([]model.ParticipationRequest, error) {
	out := []model.ParticipationRequest{}
	for _, id := range ids {
		r, err := t.GetRequest(ctx, id)
		if err != nil {
			continue
		}
		if r.EventID == eventID && r.Status == model.RequestPending {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (t *tx) SetRequestStatus(ctx context.Context, status model.RequestStatus, ids ...string) error {
	for _, id := range ids {
		r, err := t.GetRequest(ctx, id)
		if err != nil {
			return err
		}
		r.Status = status
		t.requests[id] = *r
	}
	return nil
}

func (t *tx) ListRequestsByEvent(ctx context.Context, eventID string) ([]model.ParticipationRequest, error) {
	committed, err := t.Store.ListRequestsByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return t.overlayRequests(committed, func(r model.ParticipationRequest) bool { return r.EventID == eventID }), nil
}

func (t *tx) ListRequestsByRequester(ctx context.Context, requesterID string) ([]model.ParticipationRequest, error) {
	committed, err := t.Store.ListRequestsByRequester(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	return t.overlayRequests(committed, func(r model.ParticipationRequest) bool { return r.RequesterID == requesterID }), nil
}

// overlayRequests replaces committed rows with staged versions and appends
// staged inserts that match keep.
func (t *tx) overlayRequests(committed []model.ParticipationRequest, keep func(model.ParticipationRequest) bool) []model.ParticipationRequest {
	for i, r := range committed {
		if staged, ok := t.requests[r.ID]; ok {
			committed[i] = staged
		}
	}
	for _, id := range t.newRequests {
		if r := t.requests[id]; keep(r) {
			committed = append(committed, r)
		}
	}
	return committed
}

// commit publishes the staged writes in one step.
func (t *tx) commit() error {
	s := t.Store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range t.newRequests {
		r := t.requests[id]
		for _, existing := range s.requests {
			if existing.EventID == r.EventID && existing.RequesterID == r.RequesterID {
				return fmt.Errorf("%w: user with id %s has already submitted a request for event with id %s",
					model.ErrDuplicateRequest, r.RequesterID, r.EventID)
			}
		}
	}

	for id, e := range t.events {
		s.events[id] = e
	}
	s.eventSeq = append(s.eventSeq, t.newEvents...)
	for id, r := range t.requests {
		s.requests[id] = r
	}
	s.requestSeq = append(s.requestSeq, t.newRequests...)
	return nil
}
