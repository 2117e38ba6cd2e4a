package service_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
)

func confirm(ids ...string) model.StatusUpdateRequest {
	return model.StatusUpdateRequest{RequestIDs: ids, Status: model.RequestConfirmed}
}

func reject(ids ...string) model.StatusUpdateRequest {
	return model.StatusUpdateRequest{RequestIDs: ids, Status: model.RequestRejected}
}

func ids(reqs []model.ParticipationRequest) []string {
	out := make([]string, len(reqs))
	for i, r := range reqs {
		out[i] = r.ID
	}
	return out
}

func TestModerateSplitsByInputOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	event := f.publishedEvent(t, 2, true)
	r1, r2, r3 := f.submit(t, event.ID), f.submit(t, event.ID), f.submit(t, event.ID)

	result, err := f.requests.ModerateRequests(ctx, f.initiator.ID, event.ID, confirm(r1.ID, r2.ID, r3.ID))
	require.NoError(t, err)
	assert.Equal(t, []string{r1.ID, r2.ID}, ids(result.ConfirmedRequests))
	assert.Equal(t, []string{r3.ID}, ids(result.RejectedRequests))
	assert.Equal(t, 2, f.event(t, event.ID).ConfirmedRequests)
	assert.Equal(t, 2, f.store.ConfirmedCount(event.ID))

	// Capacity is now exhausted: the whole batch is refused.
	_, err = f.requests.ModerateRequests(ctx, f.initiator.ID, event.ID, confirm(r3.ID))
	require.ErrorIs(t, err, model.ErrCapacityExceeded)
}

func TestModerateKeepsCallerOrderNotSubmissionOrder(t *testing.T) {
	f := newFixture(t)
	event := f.publishedEvent(t, 1, true)
	r1, r2 := f.submit(t, event.ID), f.submit(t, event.ID)

	result, err := f.requests.ModerateRequests(context.Background(), f.initiator.ID, event.ID, confirm(r2.ID, r1.ID))
	require.NoError(t, err)
	assert.Equal(t, []string{r2.ID}, ids(result.ConfirmedRequests))
	assert.Equal(t, []string{r1.ID}, ids(result.RejectedRequests))
}

func TestModerateRejectsWholeBatch(t *testing.T) {
	f := newFixture(t)
	event := f.publishedEvent(t, 5, true)
	r1, r2 := f.submit(t, event.ID), f.submit(t, event.ID)

	result, err := f.requests.ModerateRequests(context.Background(), f.initiator.ID, event.ID, reject(r1.ID, r2.ID))
	require.NoError(t, err)
	assert.Empty(t, result.ConfirmedRequests)
	assert.Equal(t, []string{r1.ID, r2.ID}, ids(result.RejectedRequests))
	assert.Zero(t, f.event(t, event.ID).ConfirmedRequests)

	got, err := f.store.GetRequest(context.Background(), r1.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestRejected, got.Status)
}

func TestModerateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	event := f.publishedEvent(t, 3, true)
	r1, r2 := f.submit(t, event.ID), f.submit(t, event.ID)

	_, err := f.requests.ModerateRequests(ctx, f.initiator.ID, event.ID, confirm(r1.ID, r2.ID))
	require.NoError(t, err)

	result, err := f.requests.ModerateRequests(ctx, f.initiator.ID, event.ID, confirm(r1.ID, r2.ID))
	require.NoError(t, err)
	assert.NotNil(t, result.ConfirmedRequests)
	assert.NotNil(t, result.RejectedRequests)
	assert.Empty(t, result.ConfirmedRequests)
	assert.Empty(t, result.RejectedRequests)
	assert.Equal(t, 2, f.event(t, event.ID).ConfirmedRequests)
}

func TestModerateIgnoresForeignAndDuplicateIDs(t *testing.T) {
	f := newFixture(t)
	event := f.publishedEvent(t, 5, true)
	other := f.publishedEvent(t, 5, true)
	r1 := f.submit(t, event.ID)
	foreign := f.submit(t, other.ID)

	result, err := f.requests.ModerateRequests(context.Background(), f.initiator.ID, event.ID,
		confirm(r1.ID, r1.ID, foreign.ID, "missing"))
	require.NoError(t, err)
	assert.Equal(t, []string{r1.ID}, ids(result.ConfirmedRequests))
	assert.Empty(t, result.RejectedRequests)
	assert.Equal(t, 1, f.event(t, event.ID).ConfirmedRequests)
	assert.Zero(t, f.event(t, other.ID).ConfirmedRequests)
}

func TestModerateAccounting(t *testing.T) {
	tests := []struct {
		name          string
		limit         int
		moderation    bool
		decision      model.RequestStatus
		wantConfirmed int
		wantRejected  int
	}{
		{name: "limited confirm", limit: 3, moderation: true, decision: model.RequestConfirmed, wantConfirmed: 3, wantRejected: 2},
		{name: "limited reject", limit: 3, moderation: true, decision: model.RequestRejected, wantConfirmed: 0, wantRejected: 5},
		{name: "roomy confirm", limit: 10, moderation: true, decision: model.RequestConfirmed, wantConfirmed: 5, wantRejected: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			event := f.publishedEvent(t, tt.limit, tt.moderation)
			var batch []string
			for range 5 {
				batch = append(batch, f.submit(t, event.ID).ID)
			}
			before := f.event(t, event.ID).ConfirmedRequests

			result, err := f.requests.ModerateRequests(context.Background(), f.initiator.ID, event.ID,
				model.StatusUpdateRequest{RequestIDs: batch, Status: tt.decision})
			require.NoError(t, err)
			assert.Len(t, result.ConfirmedRequests, tt.wantConfirmed)
			assert.Len(t, result.RejectedRequests, tt.wantRejected)
			assert.Equal(t, len(batch), len(result.ConfirmedRequests)+len(result.RejectedRequests))

			after := f.event(t, event.ID)
			assert.Equal(t, before+len(result.ConfirmedRequests), after.ConfirmedRequests)
			assert.LessOrEqual(t, after.ConfirmedRequests, after.ParticipantLimit)
			assert.Equal(t, after.ConfirmedRequests, f.store.ConfirmedCount(event.ID))
		})
	}
}

func TestModerateRefusals(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	event := f.publishedEvent(t, 2, true)
	r1 := f.submit(t, event.ID)

	t.Run("not initiator", func(t *testing.T) {
		stranger := f.store.AddUser("stranger")
		_, err := f.requests.ModerateRequests(ctx, stranger.ID, event.ID, confirm(r1.ID))
		require.ErrorIs(t, err, model.ErrAccessDenied)
	})
	t.Run("unknown event", func(t *testing.T) {
		_, err := f.requests.ModerateRequests(ctx, f.initiator.ID, "missing", confirm(r1.ID))
		require.ErrorIs(t, err, model.ErrNotFound)
	})
	t.Run("bad decision", func(t *testing.T) {
		_, err := f.requests.ModerateRequests(ctx, f.initiator.ID, event.ID,
			model.StatusUpdateRequest{RequestIDs: []string{r1.ID}, Status: model.RequestCanceled})
		require.ErrorIs(t, err, model.ErrValidation)
	})
	t.Run("missing ids", func(t *testing.T) {
		_, err := f.requests.ModerateRequests(ctx, f.initiator.ID, event.ID,
			model.StatusUpdateRequest{Status: model.RequestConfirmed})
		require.ErrorIs(t, err, model.ErrValidation)
	})
}

func TestSubmitUnlimitedAutoConfirms(t *testing.T) {
	for _, moderation := range []bool{true, false} {
		f := newFixture(t)
		event := f.publishedEvent(t, 0, moderation)

		req := f.submit(t, event.ID)
		assert.Equal(t, model.RequestConfirmed, req.Status)
		assert.Equal(t, 1, f.event(t, event.ID).ConfirmedRequests)
	}
}

func TestSubmitWithoutModerationTakesSeat(t *testing.T) {
	f := newFixture(t)
	event := f.publishedEvent(t, 1, false)

	req := f.submit(t, event.ID)
	assert.Equal(t, model.RequestConfirmed, req.Status)

	late := f.store.AddUser("late")
	_, err := f.requests.SubmitRequest(context.Background(), late.ID, event.ID)
	require.ErrorIs(t, err, model.ErrCapacityExceeded)
}

func TestSubmitModeratedStaysPending(t *testing.T) {
	f := newFixture(t)
	event := f.publishedEvent(t, 3, true)

	req := f.submit(t, event.ID)
	assert.Equal(t, model.RequestPending, req.Status)
	assert.Equal(t, event.ID, req.EventID)
	assert.Equal(t, now, req.Created.Time)
	assert.Zero(t, f.event(t, event.ID).ConfirmedRequests)
}

func TestSubmitRefusals(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	published := f.publishedEvent(t, 3, true)
	pending := f.pendingEvent(t, 3, true)
	user := f.store.AddUser("user")
	_, err := f.requests.SubmitRequest(ctx, user.ID, published.ID)
	require.NoError(t, err)

	tests := []struct {
		name      string
		requester string
		event     string
		want      error
	}{
		{name: "unknown user", requester: "missing", event: published.ID, want: model.ErrNotFound},
		{name: "unknown event", requester: user.ID, event: "missing", want: model.ErrNotFound},
		{name: "duplicate", requester: user.ID, event: published.ID, want: model.ErrDuplicateRequest},
		{name: "own event", requester: f.initiator.ID, event: published.ID, want: model.ErrAccessDenied},
		{name: "unpublished", requester: user.ID, event: pending.ID, want: model.ErrInvalidState},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.requests.SubmitRequest(ctx, tt.requester, tt.event)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCancelRequest(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	event := f.publishedEvent(t, 3, true)
	req := f.submit(t, event.ID)

	stranger := f.store.AddUser("stranger")
	_, err := f.requests.CancelRequest(ctx, stranger.ID, req.ID)
	require.ErrorIs(t, err, model.ErrAccessDenied)

	_, err = f.requests.CancelRequest(ctx, req.RequesterID, "missing")
	require.ErrorIs(t, err, model.ErrNotFound)

	canceled, err := f.requests.CancelRequest(ctx, req.RequesterID, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestCanceled, canceled.Status)

	// Canceled is final: moderation no longer sees the request.
	result, err := f.requests.ModerateRequests(ctx, f.initiator.ID, event.ID, confirm(req.ID))
	require.NoError(t, err)
	assert.Empty(t, result.ConfirmedRequests)
}

// Canceling a confirmed request leaves confirmedRequests untouched, so the
// seat stays taken. This is the current documented behavior; the counter
// then exceeds the number of CONFIRMED requests.
func TestCancelConfirmedRequestKeepsSeat(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	event := f.publishedEvent(t, 1, true)
	req := f.submit(t, event.ID)
	_, err := f.requests.ModerateRequests(ctx, f.initiator.ID, event.ID, confirm(req.ID))
	require.NoError(t, err)

	canceled, err := f.requests.CancelRequest(ctx, req.RequesterID, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestCanceled, canceled.Status)

	after := f.event(t, event.ID)
	assert.Equal(t, 1, after.ConfirmedRequests)
	assert.Zero(t, f.store.ConfirmedCount(event.ID))

	late := f.store.AddUser("late")
	_, err = f.requests.SubmitRequest(ctx, late.ID, event.ID)
	require.ErrorIs(t, err, model.ErrCapacityExceeded)
}

func TestListRequests(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	event := f.publishedEvent(t, 0, true)
	r1, r2 := f.submit(t, event.ID), f.submit(t, event.ID)

	mine, err := f.requests.ListUserRequests(ctx, r1.RequesterID)
	require.NoError(t, err)
	assert.Equal(t, []string{r1.ID}, ids(mine))

	_, err = f.requests.ListUserRequests(ctx, "missing")
	require.ErrorIs(t, err, model.ErrNotFound)

	all, err := f.requests.ListEventRequests(ctx, f.initiator.ID, event.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{r1.ID, r2.ID}, ids(all))

	_, err = f.requests.ListEventRequests(ctx, r1.RequesterID, event.ID)
	require.ErrorIs(t, err, model.ErrAccessDenied)
}

func TestConcurrentSubmissionsNeverOvershoot(t *testing.T) {
	f := newFixture(t)
	const seats = 5
	event := f.publishedEvent(t, seats, false)

	const numRequests = 100
	var successCount, fullCount, errorCount int32
	var wg sync.WaitGroup
	wg.Add(numRequests)
	for i := 0; i < numRequests; i++ {
		user := f.store.AddUser("gopher")
		go func() {
			defer wg.Done()
			_, err := f.requests.SubmitRequest(context.Background(), user.ID, event.ID)
			switch {
			case err == nil:
				atomic.AddInt32(&successCount, 1)
			case errors.Is(err, model.ErrCapacityExceeded):
				atomic.AddInt32(&fullCount, 1)
			default:
				t.Logf("unexpected error: %v", err)
				atomic.AddInt32(&errorCount, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(seats), successCount)
	assert.Equal(t, int32(numRequests-seats), fullCount)
	assert.Zero(t, errorCount)
	assert.Equal(t, seats, f.event(t, event.ID).ConfirmedRequests)
	assert.Equal(t, seats, f.store.ConfirmedCount(event.ID))
}

func TestConcurrentModerationNeverOvershoots(t *testing.T) {
	f := newFixture(t)
	const seats = 3
	event := f.publishedEvent(t, seats, true)
	var batches [4][]string
	for i := range batches {
		for range 3 {
			batches[i] = append(batches[i], f.submit(t, event.ID).ID)
		}
	}

	var confirmed atomic.Int32
	var wg sync.WaitGroup
	for _, batch := range batches {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := f.requests.ModerateRequests(context.Background(), f.initiator.ID, event.ID, confirm(batch...))
			if err != nil {
				assert.ErrorIs(t, err, model.ErrCapacityExceeded)
				return
			}
			confirmed.Add(int32(len(result.ConfirmedRequests)))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(seats), confirmed.Load())
	assert.Equal(t, seats, f.event(t, event.ID).ConfirmedRequests)
	assert.Equal(t, seats, f.store.ConfirmedCount(event.ID))
}
