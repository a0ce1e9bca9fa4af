// Package syncx keeps an append-only feed of content and result changes so
// offline clients can catch up by sequence number.
package syncx

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

const (
	TestPut       = "test.put"
	TestDeleted   = "test.deleted"
	ResultCreated = "result.created"
)

type Event struct {
	Seq       int64           `json:"seq"`
	Type      string          `json:"type"`
	EntityID  string          `json:"entityId"`
	Data      json.RawMessage `json:"data,omitempty"`
	CreatedAt int64           `json:"createdAt"`
}

type EventRepo struct{ db *sql.DB }

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

func (r *EventRepo) Append(ctx context.Context, e Event) error {
	data := string(e.Data)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO event_log (typ, entity_id, data, created_at)
		 VALUES ($1,$2,$3,$4)`,
		e.Type, e.EntityID, data, time.Now().Unix())
	return errors.Wrapf(err, "append %s event", e.Type)
}

const (
	defaultEventLimit = 100
	maxEventLimit     = 500
)

// Since returns up to limit events with a sequence number above after,
// oldest first.
func (r *EventRepo) Since(ctx context.Context, after int64, limit int) ([]Event, error) {
	switch {
	case limit <= 0:
		limit = defaultEventLimit
	case limit > maxEventLimit:
		limit = maxEventLimit
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT seq, typ, entity_id, data, created_at FROM event_log
		 WHERE seq > $1 ORDER BY seq LIMIT $2`, after, limit)
	if err != nil {
		return nil, errors.Wrap(err, "read events")
	}
	defer rows.Close()
	out := []Event{}
	for rows.Next() {
		var (
			e    Event
			data string
		)
		if err := rows.Scan(&e.Seq, &e.Type, &e.EntityID, &data, &e.CreatedAt); err != nil {
			return nil, err
		}
		if data != "" {
			e.Data = json.RawMessage(data)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
