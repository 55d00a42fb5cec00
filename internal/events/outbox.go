// Package events records scrape attempts in a transactional outbox and
// relays them to a Redis stream.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maltedev/pet-products-scraper/internal/models"
)

const (
	StatusPending    = "pending"
	StatusProcessed  = "processed"
	StatusFailed     = "failed"
	StatusDeadLetter = "dead_letter"

	// MaxRetryCount is the number of failed publishes before an event is
	// parked as dead letter.
	MaxRetryCount = 5

	DefaultStream = "stream:scrape_attempts"

	AggregateURL    = "discovered_url"
	EventURLScraped = "URL_SCRAPED"
	EventURLFailed  = "URL_FAILED"
)

// Event is one row of the outbox_event table.
type Event struct {
	ID            uuid.UUID       `db:"id"`
	AggregateType string          `db:"aggregate_type"`
	AggregateID   string          `db:"aggregate_id"`
	EventType     string          `db:"event_type"`
	Payload       json.RawMessage `db:"payload"`
	TargetStream  string          `db:"target_stream"`
	Status        string          `db:"status"`
	RetryCount    int             `db:"retry_count"`
	ErrorMessage  *string         `db:"error_message"`
	CreatedAt     time.Time       `db:"created_at"`
	ProcessedAt   *time.Time      `db:"processed_at"`
	NextRetryAt   *time.Time      `db:"next_retry_at"`
}

// ScrapeAttempt is the payload of a URL_SCRAPED or URL_FAILED event.
type ScrapeAttempt struct {
	URLID       int64               `json:"url_id"`
	Shop        string              `json:"shop"`
	URL         string              `json:"url"`
	Status      models.ScrapeStatus `json:"status"`
	Rows        int                 `json:"rows"`
	Error       string              `json:"error,omitempty"`
	AttemptedAt time.Time           `json:"attempted_at"`
}

// NewScrapeAttemptEvent wraps an attempt into an outbox event. The event type
// follows the attempt's status.
func NewScrapeAttemptEvent(a ScrapeAttempt) (*Event, error) {
	payload, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal scrape attempt: %w", err)
	}

	eventType := EventURLScraped
	if a.Status != models.StatusDone {
		eventType = EventURLFailed
	}

	return &Event{
		AggregateType: AggregateURL,
		AggregateID:   fmt.Sprintf("%s:%d", a.Shop, a.URLID),
		EventType:     eventType,
		Payload:       payload,
	}, nil
}

// Outbox persists events next to the state change they describe.
type Outbox struct {
	pool   *pgxpool.Pool
	stream string
}

func NewOutbox(pool *pgxpool.Pool, stream string) *Outbox {
	if stream == "" {
		stream = DefaultStream
	}
	return &Outbox{pool: pool, stream: stream}
}

// InsertWithTx adds event inside tx so it commits or rolls back with the
// caller's writes.
func (o *Outbox) InsertWithTx(ctx context.Context, tx pgx.Tx, event *Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Status == "" {
		event.Status = StatusPending
	}
	if event.TargetStream == "" {
		event.TargetStream = o.stream
	}

	now := time.Now()
	event.CreatedAt = now
	if event.NextRetryAt == nil {
		event.NextRetryAt = &now
	}

	_, err := tx.Exec(ctx, `
		INSERT INTO outbox_event (
			id, aggregate_type, aggregate_id, event_type,
			payload, target_stream, status, retry_count,
			created_at, next_retry_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		event.ID, event.AggregateType, event.AggregateID, event.EventType,
		event.Payload, event.TargetStream, event.Status, event.RetryCount,
		event.CreatedAt, event.NextRetryAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}
	return nil
}

// GetPending returns events due for (re)publishing, oldest first.
func (o *Outbox) GetPending(ctx context.Context, limit int) ([]*Event, error) {
	rows, err := o.pool.Query(ctx, `
		SELECT
			id, aggregate_type, aggregate_id, event_type,
			payload, target_stream, status, retry_count,
			error_message, created_at, processed_at, next_retry_at
		FROM outbox_event
		WHERE status IN ($1, $2)
			AND next_retry_at <= $3
		ORDER BY created_at ASC
		LIMIT $4`,
		StatusPending, StatusFailed, time.Now(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending events: %w", err)
	}
	defer rows.Close()

	var out []*Event
	for rows.Next() {
		e := &Event{}
		if err := rows.Scan(
			&e.ID, &e.AggregateType, &e.AggregateID, &e.EventType,
			&e.Payload, &e.TargetStream, &e.Status, &e.RetryCount,
			&e.ErrorMessage, &e.CreatedAt, &e.ProcessedAt, &e.NextRetryAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}
	return out, nil
}

func (o *Outbox) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	tag, err := o.pool.Exec(ctx,
		`UPDATE outbox_event SET status = $1, processed_at = $2 WHERE id = $3`,
		StatusProcessed, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to mark event as processed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("event not found: %s", id)
	}
	return nil
}

// MarkFailed records a publish failure and schedules the next attempt with
// exponential back-off, or parks the event after MaxRetryCount failures.
func (o *Outbox) MarkFailed(ctx context.Context, id uuid.UUID, cause error) error {
	var retryCount int
	if err := o.pool.QueryRow(ctx,
		`SELECT retry_count FROM outbox_event WHERE id = $1`, id).Scan(&retryCount); err != nil {
		return fmt.Errorf("failed to get retry count: %w", err)
	}

	retryCount++
	status := StatusFailed
	if retryCount >= MaxRetryCount {
		status = StatusDeadLetter
	}

	_, err := o.pool.Exec(ctx, `
		UPDATE outbox_event
		SET status = $1, retry_count = $2, error_message = $3, next_retry_at = $4
		WHERE id = $5`,
		status, retryCount, cause.Error(), nextRetryTime(time.Now(), retryCount), id)
	if err != nil {
		return fmt.Errorf("failed to mark event as failed: %w", err)
	}
	return nil
}

// Counts returns the number of events still to publish and the number
// parked as dead letter.
func (o *Outbox) Counts(ctx context.Context) (pending, deadLetter int64, err error) {
	err = o.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status IN ($1, $2)),
			COUNT(*) FILTER (WHERE status = $3)
		FROM outbox_event`,
		StatusPending, StatusFailed, StatusDeadLetter).Scan(&pending, &deadLetter)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count outbox events: %w", err)
	}
	return pending, deadLetter, nil
}

// nextRetryTime backs off 2^n seconds, capped at five minutes.
func nextRetryTime(now time.Time, retryCount int) time.Time {
	backoff := 300
	if retryCount < 9 {
		backoff = min(1<<retryCount, 300)
	}
	return now.Add(time.Duration(backoff) * time.Second)
}
