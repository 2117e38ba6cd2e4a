package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
	"github.com/Shivanand-hulikatti/event-participation/internal/service"
	"github.com/Shivanand-hulikatti/event-participation/internal/stats"
)

func ptr[T any](v T) *T { return &v }

func TestCreateEventDefaults(t *testing.T) {
	f := newFixture(t)
	req := newEventRequest(f.category.ID, now.Add(48*time.Hour))

	event, err := f.events.CreateEvent(context.Background(), f.initiator.ID, req)
	require.NoError(t, err)
	assert.NotEmpty(t, event.ID)
	assert.Equal(t, model.EventPending, event.State)
	assert.False(t, event.Paid)
	assert.Zero(t, event.ParticipantLimit)
	assert.Zero(t, event.ConfirmedRequests)
	assert.True(t, event.RequestModeration)
	assert.Nil(t, event.PublishedOn)
	assert.Equal(t, now, event.CreatedOn.Time)
	assert.Equal(t, f.initiator, event.Initiator)
	assert.Equal(t, f.category, event.Category)
}

func TestCreateEventRefusals(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name      string
		initiator string
		mutate    func(*model.NewEventRequest)
		want      error
	}{
		{
			name:      "starts too soon",
			initiator: f.initiator.ID,
			mutate:    func(r *model.NewEventRequest) { r.EventDate = ptr(model.NewDateTime(now.Add(time.Hour))) },
			want:      model.ErrInvalidSchedule,
		},
		{
			name:      "unknown category",
			initiator: f.initiator.ID,
			mutate:    func(r *model.NewEventRequest) { r.Category = "missing" },
			want:      model.ErrNotFound,
		},
		{
			name:      "unknown initiator",
			initiator: "missing",
			mutate:    func(*model.NewEventRequest) {},
			want:      model.ErrNotFound,
		},
		{
			name:      "short annotation",
			initiator: f.initiator.ID,
			mutate:    func(r *model.NewEventRequest) { r.Annotation = "too short" },
			want:      model.ErrValidation,
		},
		{
			name:      "negative limit",
			initiator: f.initiator.ID,
			mutate:    func(r *model.NewEventRequest) { r.ParticipantLimit = ptr(-1) },
			want:      model.ErrValidation,
		},
		{
			name:      "missing location",
			initiator: f.initiator.ID,
			mutate:    func(r *model.NewEventRequest) { r.Location = nil },
			want:      model.ErrValidation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := newEventRequest(f.category.ID, now.Add(48*time.Hour))
			tt.mutate(&req)
			_, err := f.events.CreateEvent(context.Background(), tt.initiator, req)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestEditEventAsUserTransitions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	event := f.pendingEvent(t, 0, true)

	canceled, err := f.events.EditEventAsUser(ctx, f.initiator.ID, event.ID,
		model.UpdateEventRequest{StateAction: ptr(model.CancelReview)})
	require.NoError(t, err)
	assert.Equal(t, model.EventCanceled, canceled.State)

	pending, err := f.events.EditEventAsUser(ctx, f.initiator.ID, event.ID,
		model.UpdateEventRequest{StateAction: ptr(model.SendToReview), Title: ptr("Renamed evening"), Paid: ptr(true)})
	require.NoError(t, err)
	assert.Equal(t, model.EventPending, pending.State)
	assert.Equal(t, "Renamed evening", pending.Title)
	assert.True(t, pending.Paid)

	stored := f.event(t, event.ID)
	assert.Equal(t, "Renamed evening", stored.Title)

	_, err = f.events.EditEventAsUser(ctx, f.initiator.ID, event.ID,
		model.UpdateEventRequest{StateAction: ptr(model.PublishEvent)})
	require.ErrorIs(t, err, model.ErrUnsupportedAction)
}

func TestEditEventAsUserRefusals(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	pending := f.pendingEvent(t, 0, true)
	published := f.publishedEvent(t, 0, true)

	t.Run("published", func(t *testing.T) {
		_, err := f.events.EditEventAsUser(ctx, f.initiator.ID, published.ID,
			model.UpdateEventRequest{Title: ptr("Too late now")})
		require.ErrorIs(t, err, model.ErrInvalidState)
	})
	t.Run("not initiator", func(t *testing.T) {
		stranger := f.store.AddUser("stranger")
		_, err := f.events.EditEventAsUser(ctx, stranger.ID, pending.ID, model.UpdateEventRequest{})
		require.ErrorIs(t, err, model.ErrAccessDenied)
	})
	t.Run("patched date too soon", func(t *testing.T) {
		_, err := f.events.EditEventAsUser(ctx, f.initiator.ID, pending.ID,
			model.UpdateEventRequest{EventDate: ptr(model.NewDateTime(now.Add(time.Hour)))})
		require.ErrorIs(t, err, model.ErrInvalidSchedule)
	})
	t.Run("event starts too soon", func(t *testing.T) {
		soon, err := f.events.CreateEvent(ctx, f.initiator.ID, newEventRequest(f.category.ID, now.Add(3*time.Hour)))
		require.NoError(t, err)
		later := service.NewEventService(f.store, f.collector,
			service.WithClock(func() time.Time { return now.Add(90 * time.Minute) }))
		_, err = later.EditEventAsUser(ctx, f.initiator.ID, soon.ID,
			model.UpdateEventRequest{EventDate: ptr(model.NewDateTime(now.Add(72 * time.Hour)))})
		require.ErrorIs(t, err, model.ErrInvalidSchedule)
	})
	t.Run("unknown category", func(t *testing.T) {
		_, err := f.events.EditEventAsUser(ctx, f.initiator.ID, pending.ID,
			model.UpdateEventRequest{Category: ptr("missing")})
		require.ErrorIs(t, err, model.ErrNotFound)
	})
}

func TestEditEventAsAdmin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	t.Run("publish", func(t *testing.T) {
		event := f.pendingEvent(t, 0, true)
		published, err := f.events.EditEventAsAdmin(ctx, event.ID, model.UpdateEventRequest{StateAction: ptr(model.PublishEvent)})
		require.NoError(t, err)
		assert.Equal(t, model.EventPublished, published.State)
		require.NotNil(t, published.PublishedOn)
		assert.Equal(t, now, published.PublishedOn.Time)

		_, err = f.events.EditEventAsAdmin(ctx, event.ID, model.UpdateEventRequest{StateAction: ptr(model.PublishEvent)})
		require.ErrorIs(t, err, model.ErrInvalidState)
		_, err = f.events.EditEventAsAdmin(ctx, event.ID, model.UpdateEventRequest{StateAction: ptr(model.RejectEvent)})
		require.ErrorIs(t, err, model.ErrInvalidState)
	})
	t.Run("reject", func(t *testing.T) {
		event := f.pendingEvent(t, 0, true)
		rejected, err := f.events.EditEventAsAdmin(ctx, event.ID, model.UpdateEventRequest{StateAction: ptr(model.RejectEvent)})
		require.NoError(t, err)
		assert.Equal(t, model.EventCanceled, rejected.State)
		assert.Nil(t, rejected.PublishedOn)
	})
	t.Run("initiator action", func(t *testing.T) {
		event := f.pendingEvent(t, 0, true)
		_, err := f.events.EditEventAsAdmin(ctx, event.ID, model.UpdateEventRequest{StateAction: ptr(model.SendToReview)})
		require.ErrorIs(t, err, model.ErrUnsupportedAction)
	})
	t.Run("unknown event", func(t *testing.T) {
		_, err := f.events.EditEventAsAdmin(ctx, "missing", model.UpdateEventRequest{})
		require.ErrorIs(t, err, model.ErrNotFound)
	})
	t.Run("patch without action", func(t *testing.T) {
		event := f.pendingEvent(t, 0, true)
		updated, err := f.events.EditEventAsAdmin(ctx, event.ID,
			model.UpdateEventRequest{ParticipantLimit: ptr(7), EventDate: ptr(model.NewDateTime(now.Add(24 * time.Hour)))})
		require.NoError(t, err)
		assert.Equal(t, model.EventPending, updated.State)
		assert.Equal(t, 7, updated.ParticipantLimit)
		assert.Equal(t, now.Add(24*time.Hour), updated.EventDate.Time)
	})
	t.Run("patched date in past", func(t *testing.T) {
		event := f.pendingEvent(t, 0, true)
		_, err := f.events.EditEventAsAdmin(ctx, event.ID,
			model.UpdateEventRequest{EventDate: ptr(model.NewDateTime(now.Add(-time.Hour)))})
		require.ErrorIs(t, err, model.ErrInvalidSchedule)
	})
	t.Run("current date too soon", func(t *testing.T) {
		event, err := f.events.CreateEvent(ctx, f.initiator.ID, newEventRequest(f.category.ID, now.Add(3*time.Hour)))
		require.NoError(t, err)
		later := service.NewEventService(f.store, f.collector,
			service.WithClock(func() time.Time { return now.Add(150 * time.Minute) }))
		_, err = later.EditEventAsAdmin(ctx, event.ID,
			model.UpdateEventRequest{EventDate: ptr(model.NewDateTime(now.Add(72 * time.Hour)))})
		require.ErrorIs(t, err, model.ErrInvalidSchedule)
	})
	t.Run("limit below confirmed", func(t *testing.T) {
		event := f.publishedEvent(t, 0, true)
		f.submit(t, event.ID)
		f.submit(t, event.ID)
		_, err := f.events.EditEventAsAdmin(ctx, event.ID, model.UpdateEventRequest{ParticipantLimit: ptr(1)})
		require.ErrorIs(t, err, model.ErrCapacityExceeded)

		updated, err := f.events.EditEventAsAdmin(ctx, event.ID, model.UpdateEventRequest{ParticipantLimit: ptr(2)})
		require.NoError(t, err)
		assert.True(t, updated.IsFull())
	})
}

func TestGetPublishedEventCountsUniqueViews(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	event := f.publishedEvent(t, 0, true)
	path := service.EventPath(event.ID)

	_, err := f.events.GetPublishedEvent(ctx, event.ID, stats.Hit{URI: path, IP: "10.0.0.1"})
	require.NoError(t, err)
	_, err = f.events.GetPublishedEvent(ctx, event.ID, stats.Hit{URI: path, IP: "10.0.0.1"})
	require.NoError(t, err)
	got, err := f.events.GetPublishedEvent(ctx, event.ID, stats.Hit{URI: path, IP: "10.0.0.2"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Views)
}

func TestGetPublishedEventHidesUnpublished(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	event := f.pendingEvent(t, 0, true)

	_, err := f.events.GetPublishedEvent(ctx, event.ID, stats.Hit{})
	require.ErrorIs(t, err, model.ErrNotFound)

	own, err := f.events.GetUserEvent(ctx, f.initiator.ID, event.ID)
	require.NoError(t, err)
	assert.Equal(t, model.EventPending, own.State)

	stranger := f.store.AddUser("stranger")
	_, err = f.events.GetUserEvent(ctx, stranger.ID, event.ID)
	require.ErrorIs(t, err, model.ErrNotFound)
}

type failingCollector struct{}

func (failingCollector) RecordHit(context.Context, stats.Hit) error {
	return errors.New("collector down")
}

func (failingCollector) ViewCounts(context.Context, time.Time, time.Time, []string, bool) ([]stats.ViewStats, error) {
	return nil, errors.New("collector down")
}

func TestViewsSurviveCollectorFailure(t *testing.T) {
	f := newFixture(t)
	event := f.publishedEvent(t, 0, true)
	svc := service.NewEventService(f.store, failingCollector{}, service.WithClock(fixedClock))

	got, err := svc.GetPublishedEvent(context.Background(), event.ID, stats.Hit{URI: service.EventPath(event.ID), IP: "10.0.0.1"})
	require.NoError(t, err)
	assert.Zero(t, got.Views)
}

func TestListUserEvents(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	first := f.pendingEvent(t, 0, true)
	second := f.publishedEvent(t, 0, true)

	events, err := f.events.ListUserEvents(ctx, f.initiator.ID, model.Page{From: 0, Size: 10})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, first.ID, events[0].ID)
	assert.Equal(t, second.ID, events[1].ID)

	page, err := f.events.ListUserEvents(ctx, f.initiator.ID, model.Page{From: 1, Size: 10})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, second.ID, page[0].ID)
}

func TestSearchEvents(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	quiet := f.publishedEvent(t, 0, true)
	popular := f.publishedEvent(t, 1, false)
	f.pendingEvent(t, 0, true)
	for _, ip := range []string{"10.0.0.1", "10.0.0.2"} {
		_, err := f.events.GetPublishedEvent(ctx, popular.ID, stats.Hit{URI: service.EventPath(popular.ID), IP: ip})
		require.NoError(t, err)
	}

	t.Run("published only sorted by views", func(t *testing.T) {
		got, err := f.events.SearchEvents(ctx, model.PublicEventFilter{Sort: model.SortViews}, stats.Hit{URI: "/events", IP: "10.0.0.9"})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, popular.ID, got[0].ID)
		assert.Equal(t, int64(2), got[0].Views)
		assert.Equal(t, quiet.ID, got[1].ID)
	})
	t.Run("only available", func(t *testing.T) {
		f.submit(t, popular.ID)
		got, err := f.events.SearchEvents(ctx, model.PublicEventFilter{OnlyAvailable: true}, stats.Hit{})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, quiet.ID, got[0].ID)
	})
	t.Run("text", func(t *testing.T) {
		got, err := f.events.SearchEvents(ctx, model.PublicEventFilter{Text: "SHOSTAKOVICH"}, stats.Hit{})
		require.NoError(t, err)
		assert.Len(t, got, 2)

		got, err = f.events.SearchEvents(ctx, model.PublicEventFilter{Text: "jazz"}, stats.Hit{})
		require.NoError(t, err)
		assert.Empty(t, got)
	})
	t.Run("bad range", func(t *testing.T) {
		start, end := now.Add(time.Hour), now
		_, err := f.events.SearchEvents(ctx, model.PublicEventFilter{RangeStart: &start, RangeEnd: &end}, stats.Hit{})
		require.ErrorIs(t, err, model.ErrInvalidSchedule)
	})
	t.Run("bad sort", func(t *testing.T) {
		_, err := f.events.SearchEvents(ctx, model.PublicEventFilter{Sort: "NAME"}, stats.Hit{})
		require.ErrorIs(t, err, model.ErrValidation)
	})
}

func TestSearchEventsAdmin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	pending := f.pendingEvent(t, 0, true)
	f.publishedEvent(t, 0, true)

	got, err := f.events.SearchEventsAdmin(ctx, model.AdminEventFilter{States: []model.EventState{model.EventPending}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, pending.ID, got[0].ID)

	all, err := f.events.SearchEventsAdmin(ctx, model.AdminEventFilter{Users: []string{f.initiator.ID}})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
