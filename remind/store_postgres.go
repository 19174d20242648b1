package remind

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS remind (
	id        BIGSERIAL PRIMARY KEY,
	receiver  TEXT NOT NULL,
	added_by  TEXT NOT NULL,
	message   TEXT NOT NULL,
	channel   TEXT NOT NULL,
	timestamp BIGINT NOT NULL,
	date      BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS remind_receiver ON remind (lower(receiver));
`

// PostgresStore keeps reminders in PostgreSQL
type PostgresStore struct {
	pool *pgxpool.Pool
	now  Clock
}

// OpenPostgres connects to dsn. Call Init before use.
func OpenPostgres(ctx context.Context, dsn string, clock Clock) (*PostgresStore, error) {
	if clock == nil {
		clock = time.Now
	}
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}
	config.MaxConns = 4
	config.MaxConnIdleTime = 30 * time.Minute
	config.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresStore{pool: pool, now: clock}, nil
}

func (s *PostgresStore) Init(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("create remind table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Insert(ctx context.Context, r Reminder) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO remind (receiver, added_by, message, channel, timestamp, date)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		r.Receiver, r.AddedBy, r.Message, r.Channel, r.DueAt.Unix(), s.now().Unix(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert reminder: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id int64, requester string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM remind
		WHERE id = $1 AND (lower(receiver) = lower($2) OR lower(added_by) = lower($2))`,
		id, requester)
	if err != nil {
		return false, fmt.Errorf("delete reminder %d: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) Exists(ctx context.Context, id int64) (bool, error) {
	return s.exists(ctx, `SELECT 1 FROM remind WHERE id = $1`, id)
}

func (s *PostgresStore) HasDeleteRights(ctx context.Context, id int64, requester string) (bool, error) {
	return s.exists(ctx, `
		SELECT 1 FROM remind
		WHERE id = $1 AND (lower(receiver) = lower($2) OR lower(added_by) = lower($2))`,
		id, requester)
}

func (s *PostgresStore) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var one int
	err := s.pool.QueryRow(ctx, query, args...).Scan(&one)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("query reminder: %w", err)
	}
	return true, nil
}

func (s *PostgresStore) DueReceivers(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT min(receiver) FROM remind
		WHERE timestamp <= $1
		GROUP BY lower(receiver)
		ORDER BY min(id)`, s.now().Unix())
	if err != nil {
		return nil, fmt.Errorf("query due receivers: %w", err)
	}
	receivers, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan due receivers: %w", err)
	}
	return receivers, nil
}

func (s *PostgresStore) DueForReceiver(ctx context.Context, receiver string) ([]Reminder, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, receiver, added_by, message, channel, timestamp, date
		FROM remind
		WHERE timestamp <= $1 AND lower(receiver) = lower($2)
		ORDER BY id`, s.now().Unix(), receiver)
	if err != nil {
		return nil, fmt.Errorf("query due reminders: %w", err)
	}
	defer rows.Close()

	var reminders []Reminder
	for rows.Next() {
		var (
			r            Reminder
			due, created int64
		)
		if err := rows.Scan(&r.ID, &r.Receiver, &r.AddedBy, &r.Message, &r.Channel, &due, &created); err != nil {
			return nil, fmt.Errorf("scan reminder: %w", err)
		}
		r.DueAt = time.Unix(due, 0).UTC()
		r.Created = time.Unix(created, 0).UTC()
		reminders = append(reminders, r)
	}
	return reminders, rows.Err()
}

func (s *PostgresStore) Take(ctx context.Context, id int64) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM remind WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("take reminder %d: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) SweepExpired(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-Retention).Unix()
	tag, err := s.pool.Exec(ctx, `DELETE FROM remind WHERE date < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sweep expired reminders: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
