package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/mwalimuhq/ngao/core"
)

type eventRow struct {
	ID       string      `db:"id"`
	Type     string      `db:"type"`
	UserID   null.String `db:"user_id"`
	Details  string      `db:"details"`
	Severity string      `db:"severity"`
	Time     time.Time   `db:"time"`
}

func (r eventRow) toEvent() core.SecurityEvent {
	return core.SecurityEvent{
		ID:       r.ID,
		Type:     r.Type,
		UserID:   r.UserID.String,
		Details:  r.Details,
		Severity: r.Severity,
		Time:     r.Time.UTC(),
	}
}

type eventRepository struct {
	db *sqlx.DB
}

var _ core.EventRepository = (*eventRepository)(nil)

func NewEventRepository(db *sqlx.DB) *eventRepository {
	return &eventRepository{db: db}
}

func (repo *eventRepository) CreateEvent(ctx context.Context, ev core.SecurityEvent) error {
	row := eventRow{
		ID:       ev.ID,
		Type:     ev.Type,
		UserID:   null.NewString(ev.UserID, ev.UserID != ""),
		Details:  ev.Details,
		Severity: ev.Severity,
		Time:     ev.Time,
	}
	_, err := repo.db.NamedExecContext(ctx,
		`INSERT INTO security_event (id, type, user_id, details, severity, time)
		 VALUES (:id, :type, :user_id, :details, :severity, :time)`, row)
	return errors.Wrap(err, "inserting security event")
}

func (repo *eventRepository) FilterEvents(ctx context.Context, filter core.EventFilter) ([]core.SecurityEvent, error) {
	query := `SELECT id, type, user_id, details, severity, time FROM security_event WHERE 1=1`
	var args []interface{}

	appendArg := func(clause string, val interface{}) {
		args = append(args, val)
		query += clause
	}
	if filter.Type != "" {
		appendArg(" AND type = ?", filter.Type)
	}
	if filter.Severity != "" {
		appendArg(" AND severity = ?", filter.Severity)
	}
	if filter.UserID != "" {
		appendArg(" AND user_id = ?", filter.UserID)
	}
	if !filter.Since.IsZero() {
		appendArg(" AND time >= ?", filter.Since)
	}
	query += " ORDER BY time DESC"
	if filter.Limit > 0 {
		appendArg(" LIMIT ?", filter.Limit)
	}

	var rows []eventRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying security events")
	}

	events := make([]core.SecurityEvent, 0, len(rows))
	for _, row := range rows {
		events = append(events, row.toEvent())
	}
	return events, nil
}

func (repo *eventRepository) PurgeEventsBefore(ctx context.Context, t time.Time) (int64, error) {
	res, err := repo.db.ExecContext(ctx,
		repo.db.Rebind(`DELETE FROM security_event WHERE time < ?`), t)
	if err != nil {
		return 0, errors.Wrap(err, "purging security events")
	}
	return res.RowsAffected()
}
