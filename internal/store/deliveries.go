package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Delivery statuses recorded for outgoing send attempts.
const (
	DeliverySent   = "sent"
	DeliveryFailed = "failed"
)

// Delivery is one outgoing send attempt, recorded after the send settles.
type Delivery struct {
	ID         string    `json:"id"`
	Recipient  string    `json:"recipient"`
	Body       string    `json:"body"`
	Routing    string    `json:"routing"` // from number or messaging service SID
	Status     string    `json:"status"`
	MessageSID string    `json:"messageSid,omitempty"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// SQLiteDeliveryLog records outgoing send attempts in SQLite.
type SQLiteDeliveryLog struct {
	db *DB
}

// NewSQLiteDeliveryLog creates a delivery log using the given database.
func NewSQLiteDeliveryLog(db *DB) *SQLiteDeliveryLog {
	return &SQLiteDeliveryLog{db: db}
}

// Record persists one delivery attempt.
func (l *SQLiteDeliveryLog) Record(ctx context.Context, d Delivery) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}

	_, err := l.db.sql.ExecContext(ctx,
		`INSERT INTO deliveries (id, recipient, body, routing, status, message_sid, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Recipient, d.Body, d.Routing, d.Status, d.MessageSID, d.Error,
		d.CreatedAt.UTC().Format(time.DateTime),
	)
	if err != nil {
		return fmt.Errorf("recording delivery to %q: %w", d.Recipient, err)
	}
	return nil
}

// Recent returns the most recent delivery attempts, newest first.
func (l *SQLiteDeliveryLog) Recent(ctx context.Context, limit int) ([]Delivery, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := l.db.sql.QueryContext(ctx,
		`SELECT id, recipient, body, routing, status, message_sid, error, created_at
		 FROM deliveries ORDER BY created_at DESC, id LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing deliveries: %w", err)
	}
	defer rows.Close()

	var out []Delivery
	for rows.Next() {
		var d Delivery
		var createdAt string
		if err := rows.Scan(&d.ID, &d.Recipient, &d.Body, &d.Routing, &d.Status, &d.MessageSID, &d.Error, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning delivery: %w", err)
		}
		d.CreatedAt, _ = time.Parse(time.DateTime, createdAt)
		out = append(out, d)
	}
	return out, rows.Err()
}
