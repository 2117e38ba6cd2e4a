package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
)

const selectRequest = `SELECT id, created, event_id, requester_id, status FROM participation_requests`

func scanRequest(row pgx.Row) (*model.ParticipationRequest, error) {
	var r model.ParticipationRequest
	if err := row.Scan(&r.ID, &r.Created.Time, &r.EventID, &r.RequesterID, &r.Status); err != nil {
		return nil, err
	}
	r.Created = model.NewDateTime(r.Created.UTC())
	return &r, nil
}

func (q *queries) listRequests(ctx context.Context, op, sql string, args ...any) ([]model.ParticipationRequest, error) {
	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	defer rows.Close()

	reqs := []model.ParticipationRequest{}
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		reqs = append(reqs, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(op, err)
	}
	return reqs, nil
}

// GetRequest implements service.Reader.
func (q *queries) GetRequest(ctx context.Context, id string) (*model.ParticipationRequest, error) {
	r, err := scanRequest(q.db.QueryRow(ctx, selectRequest+` WHERE id = $1`, id))
	if err != nil {
		return nil, notFound("get request", "request", id, err)
	}
	return r, nil
}

// ListRequestsByRequester implements service.Reader.
func (q *queries) ListRequestsByRequester(ctx context.Context, requesterID string) ([]model.ParticipationRequest, error) {
	return q.listRequests(ctx, "list requester requests",
		selectRequest+` WHERE requester_id = $1 ORDER BY created, id`, requesterID)
}

// ListRequestsByEvent implements service.Reader.
func (q *queries) ListRequestsByEvent(ctx context.Context, eventID string) ([]model.ParticipationRequest, error) {
	return q.listRequests(ctx, "list event requests",
		selectRequest+` WHERE event_id = $1 ORDER BY created, id`, eventID)
}

// RequestExists implements service.Tx.
func (q *queries) RequestExists(ctx context.Context, requesterID, eventID string) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM participation_requests WHERE requester_id = $1 AND event_id = $2)`,
		requesterID, eventID,
	).Scan(&exists)
	if err != nil {
		return false, wrapErr("check request exists", err)
	}
	return exists, nil
}

// InsertRequest implements service.Tx. A concurrent duplicate that slipped
// past RequestExists is caught by uq_request_event_requester.
func (q *queries) InsertRequest(ctx context.Context, r *model.ParticipationRequest) error {
	_, err := q.db.Exec(ctx,
		`INSERT INTO participation_requests (id, created, event_id, requester_id, status)
		 VALUES ($1, $2, $3, $4, $5)`,
		r.ID, r.Created.Time, r.EventID, r.RequesterID, r.Status,
	)
	if err != nil {
		return wrapErr("insert request", err)
	}
	return nil
}

// PendingRequests implements service.Tx. Rows come back in the order of ids
// and are locked until the transaction ends.
func (q *queries) PendingRequests(ctx context.Context, eventID string, ids []string) ([]model.ParticipationRequest, error) {
	if len(ids) == 0 {
		return []model.ParticipationRequest{}, nil
	}
	return q.listRequests(ctx, "select pending requests",
		selectRequest+` WHERE id = ANY($1) AND event_id = $2 AND status = $3
		 ORDER BY array_position($1::text[], id)
		 FOR UPDATE`,
		ids, eventID, string(model.RequestPending),
	)
}

// SetRequestStatus implements service.Tx.
func (q *queries) SetRequestStatus(ctx context.Context, status model.RequestStatus, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	tag, err := q.db.Exec(ctx,
		`UPDATE participation_requests SET status = $1 WHERE id = ANY($2)`,
		string(status), ids,
	)
	if err != nil {
		return wrapErr("update request status", err)
	}
	if tag.RowsAffected() != int64(len(ids)) {
		return fmt.Errorf("%w: %d of %d requests updated", model.ErrNotFound, tag.RowsAffected(), len(ids))
	}
	return nil
}
