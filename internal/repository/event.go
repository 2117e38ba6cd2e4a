package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
)

const selectEvent = `
	SELECT e.id, e.annotation, c.id, c.name, e.confirmed_requests, e.description, e.event_date,
	       u.id, u.name, e.lat, e.lon, e.paid, e.participant_limit, e.created_on, e.published_on,
	       e.request_moderation, e.state, e.title
	FROM events e
	JOIN categories c ON c.id = e.category_id
	JOIN users u ON u.id = e.initiator_id`

func scanEvent(row pgx.Row) (*model.Event, error) {
	var (
		e           model.Event
		publishedOn *time.Time
	)
	err := row.Scan(
		&e.ID, &e.Annotation, &e.Category.ID, &e.Category.Name, &e.ConfirmedRequests, &e.Description,
		&e.EventDate.Time, &e.Initiator.ID, &e.Initiator.Name, &e.Location.Lat, &e.Location.Lon,
		&e.Paid, &e.ParticipantLimit, &e.CreatedOn.Time, &publishedOn, &e.RequestModeration,
		&e.State, &e.Title,
	)
	if err != nil {
		return nil, err
	}
	e.EventDate = model.NewDateTime(e.EventDate.UTC())
	e.CreatedOn = model.NewDateTime(e.CreatedOn.UTC())
	if publishedOn != nil {
		p := model.NewDateTime(publishedOn.UTC())
		e.PublishedOn = &p
	}
	return &e, nil
}

func (q *queries) listEvents(ctx context.Context, op, sql string, args ...any) ([]model.Event, error) {
	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	defer rows.Close()

	events := []model.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(op, err)
	}
	return events, nil
}

// GetEvent implements service.Reader.
func (q *queries) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	e, err := scanEvent(q.db.QueryRow(ctx, selectEvent+` WHERE e.id = $1`, id))
	if err != nil {
		return nil, notFound("get event", "event", id, err)
	}
	return e, nil
}

// LockEvent acquires an exclusive row-level lock on the event and returns it.
//
// Without the lock two transactions could both read confirmed_requests = 9
// of a 10-seat event, both pass the capacity check and both write 10,
// admitting 11 participants. SELECT … FOR UPDATE makes any other transaction
// that locks the same row wait until this one commits or rolls back, so the
// read-check-write of the counter is serialized per event while other
// events are unaffected.
func (q *queries) LockEvent(ctx context.Context, id string) (*model.Event, error) {
	e, err := scanEvent(q.db.QueryRow(ctx, selectEvent+` WHERE e.id = $1 FOR UPDATE OF e`, id))
	if err != nil {
		return nil, notFound("lock event row", "event", id, err)
	}
	return e, nil
}

// InsertEvent implements service.Tx.
func (q *queries) InsertEvent(ctx context.Context, e *model.Event) error {
	_, err := q.db.Exec(ctx,
		`INSERT INTO events (id, annotation, category_id, confirmed_requests, description, event_date,
		                     initiator_id, lat, lon, paid, participant_limit, created_on, published_on,
		                     request_moderation, state, title)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		e.ID, e.Annotation, e.Category.ID, e.ConfirmedRequests, e.Description, e.EventDate.Time,
		e.Initiator.ID, e.Location.Lat, e.Location.Lon, e.Paid, e.ParticipantLimit, e.CreatedOn.Time,
		publishedOnArg(e), e.RequestModeration, e.State, e.Title,
	)
	if err != nil {
		return wrapErr("insert event", err)
	}
	return nil
}

// UpdateEvent implements service.Tx.
func (q *queries) UpdateEvent(ctx context.Context, e *model.Event) error {
	tag, err := q.db.Exec(ctx,
		`UPDATE events
		 SET annotation = $2, category_id = $3, confirmed_requests = $4, description = $5,
		     event_date = $6, lat = $7, lon = $8, paid = $9, participant_limit = $10,
		     published_on = $11, request_moderation = $12, state = $13, title = $14
		 WHERE id = $1`,
		e.ID, e.Annotation, e.Category.ID, e.ConfirmedRequests, e.Description, e.EventDate.Time,
		e.Location.Lat, e.Location.Lon, e.Paid, e.ParticipantLimit, publishedOnArg(e),
		e.RequestModeration, e.State, e.Title,
	)
	if err != nil {
		return wrapErr("update event", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: event with id %s not found", model.ErrNotFound, e.ID)
	}
	return nil
}

func publishedOnArg(e *model.Event) *time.Time {
	if e.PublishedOn == nil {
		return nil
	}
	return &e.PublishedOn.Time
}

// ListEventsByInitiator implements service.Reader.
func (q *queries) ListEventsByInitiator(ctx context.Context, initiatorID string, page model.Page) ([]model.Event, error) {
	return q.listEvents(ctx, "list initiator events",
		selectEvent+` WHERE e.initiator_id = $1 ORDER BY e.created_on, e.id LIMIT $2 OFFSET $3`,
		initiatorID, page.Size, page.From,
	)
}

// SearchEvents implements service.Reader.
func (q *queries) SearchEvents(ctx context.Context, f model.PublicEventFilter) ([]model.Event, error) {
	sql, args := buildPublicSearch(f)
	return q.listEvents(ctx, "search events", sql, args...)
}

// SearchEventsAdmin implements service.Reader.
func (q *queries) SearchEventsAdmin(ctx context.Context, f model.AdminEventFilter) ([]model.Event, error) {
	sql, args := buildAdminSearch(f)
	return q.listEvents(ctx, "search events by admin", sql, args...)
}

// where accumulates filter conditions with positional arguments.
type where struct {
	conds []string
	args  []any
}

// add appends a condition; every %[1]s in cond refers to arg.
func (w *where) add(cond string, arg any) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, fmt.Sprintf(cond, fmt.Sprintf("$%d", len(w.args))))
}

func (w *where) raw(cond string) {
	w.conds = append(w.conds, cond)
}

func (w *where) build(base, order string, page model.Page) (string, []any) {
	var b strings.Builder
	b.WriteString(base)
	if len(w.conds) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(w.conds, " AND "))
	}
	b.WriteString(" ORDER BY ")
	b.WriteString(order)
	args := append(w.args, page.Size, page.From)
	fmt.Fprintf(&b, " LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	return b.String(), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func buildPublicSearch(f model.PublicEventFilter) (string, []any) {
	var w where
	w.add("e.state = %[1]s", string(model.EventPublished))
	if f.Text != "" {
		w.add("(e.annotation ILIKE %[1]s OR e.description ILIKE %[1]s)", "%"+likeEscaper.Replace(f.Text)+"%")
	}
	if len(f.Categories) > 0 {
		w.add("e.category_id = ANY(%[1]s)", f.Categories)
	}
	if f.Paid != nil {
		w.add("e.paid = %[1]s", *f.Paid)
	}
	if f.RangeStart != nil {
		w.add("e.event_date >= %[1]s", *f.RangeStart)
	}
	if f.RangeEnd != nil {
		w.add("e.event_date <= %[1]s", *f.RangeEnd)
	}
	if f.OnlyAvailable {
		w.raw("(e.participant_limit = 0 OR e.confirmed_requests < e.participant_limit)")
	}

	order := "e.created_on, e.id"
	if f.Sort == model.SortEventDate {
		order = "e.event_date DESC, e.id"
	}
	return w.build(selectEvent, order, f.Page)
}

func buildAdminSearch(f model.AdminEventFilter) (string, []any) {
	var w where
	if len(f.Users) > 0 {
		w.add("e.initiator_id = ANY(%[1]s)", f.Users)
	}
	if len(f.States) > 0 {
		states := make([]string, len(f.States))
		for i, s := range f.States {
			states[i] = string(s)
		}
		w.add("e.state = ANY(%[1]s)", states)
	}
	if len(f.Categories) > 0 {
		w.add("e.category_id = ANY(%[1]s)", f.Categories)
	}
	if f.RangeStart != nil {
		w.add("e.event_date >= %[1]s", *f.RangeStart)
	}
	if f.RangeEnd != nil {
		w.add("e.event_date <= %[1]s", *f.RangeEnd)
	}
	return w.build(selectEvent, "e.created_on, e.id", f.Page)
}
