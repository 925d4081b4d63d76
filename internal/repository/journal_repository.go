package repository

import (
	"context"
	"database/sql"
	"time"
)

// JournalEntry mirrors a row of the 'activity_journal' table.  Amounts are
// stored as decimal strings because they do not fit any SQL integer type.
type JournalEntry struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	EventID    uint32    `json:"eventId"`
	Tier       uint32    `json:"tier"`
	Actor      string    `json:"actor"`
	Currency   string    `json:"currency"`
	Amount     string    `json:"amount"`
	Fee        string    `json:"fee"`
	Quantity   uint64    `json:"quantity"`
	OccurredAt time.Time `json:"occurredAt"`
}

type JournalRepo struct{ DB *sql.DB }

func NewJournalRepo(db *sql.DB) *JournalRepo { return &JournalRepo{DB: db} }

// Append stores one entry.  Re-appending an id returns ErrConflict.
func (r *JournalRepo) Append(ctx context.Context, e JournalEntry) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO activity_journal (id, kind, event_id, tier, actor, currency, amount, fee, quantity, occurred_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?)`,
		e.ID, e.Kind, e.EventID, e.Tier, e.Actor, e.Currency, e.Amount, e.Fee, e.Quantity, e.OccurredAt.UTC())
	if isDuplicate(err) {
		return ErrConflict
	}
	return err
}

// ListByEvent returns the newest entries of one event, newest first.
func (r *JournalRepo) ListByEvent(ctx context.Context, eventID uint32, limit int) ([]JournalEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id,kind,event_id,tier,actor,currency,amount,fee,quantity,occurred_at
		 FROM activity_journal WHERE event_id=? ORDER BY occurred_at DESC, id LIMIT ?`,
		eventID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []JournalEntry{}
	for rows.Next() {
		var e JournalEntry
		if err := rows.Scan(&e.ID, &e.Kind, &e.EventID, &e.Tier, &e.Actor, &e.Currency,
			&e.Amount, &e.Fee, &e.Quantity, &e.OccurredAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
