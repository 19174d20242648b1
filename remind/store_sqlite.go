package remind

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS remind (
	id        INTEGER PRIMARY KEY AUTOINCREMENT NOT NULL,
	receiver  TEXT COLLATE NOCASE,
	added_by  TEXT COLLATE NOCASE,
	message   TEXT,
	channel   TEXT COLLATE NOCASE,
	timestamp INTEGER,
	date      INTEGER
);
CREATE INDEX IF NOT EXISTS remind_receiver ON remind (receiver);
`

// SQLiteStore keeps reminders in a sqlite file
type SQLiteStore struct {
	db  *sql.DB
	now Clock
}

// OpenSQLite opens the database at path. Call Init before use.
func OpenSQLite(path string, clock Clock) (*SQLiteStore, error) {
	if clock == nil {
		clock = time.Now
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// sqlite allows one writer, the command handlers and the worker share it
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return &SQLiteStore{db: db, now: clock}, nil
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("create remind table: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Insert(ctx context.Context, r Reminder) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO remind (receiver, added_by, message, channel, timestamp, date)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.Receiver, r.AddedBy, r.Message, r.Channel, r.DueAt.Unix(), s.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("insert reminder: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert reminder: %w", err)
	}
	return id, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id int64, requester string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM remind WHERE id = ? AND (receiver = ? OR added_by = ?)`,
		id, requester, requester)
	if err != nil {
		return false, fmt.Errorf("delete reminder %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete reminder %d: %w", id, err)
	}
	return n == 1, nil
}

func (s *SQLiteStore) Exists(ctx context.Context, id int64) (bool, error) {
	return s.exists(ctx, `SELECT 1 FROM remind WHERE id = ?`, id)
}

func (s *SQLiteStore) HasDeleteRights(ctx context.Context, id int64, requester string) (bool, error) {
	return s.exists(ctx,
		`SELECT 1 FROM remind WHERE id = ? AND (receiver = ? OR added_by = ?)`,
		id, requester, requester)
}

func (s *SQLiteStore) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&one)
	switch {
	case err == sql.ErrNoRows:
		return false, nil
	case err != nil:
		return false, fmt.Errorf("query reminder: %w", err)
	}
	return true, nil
}

func (s *SQLiteStore) DueReceivers(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT receiver FROM remind
		WHERE timestamp <= ?
		GROUP BY receiver
		ORDER BY MIN(id)`, s.now().Unix())
	if err != nil {
		return nil, fmt.Errorf("query due receivers: %w", err)
	}
	defer rows.Close()

	var receivers []string
	for rows.Next() {
		var receiver string
		if err := rows.Scan(&receiver); err != nil {
			return nil, fmt.Errorf("scan due receiver: %w", err)
		}
		receivers = append(receivers, receiver)
	}
	return receivers, rows.Err()
}

func (s *SQLiteStore) DueForReceiver(ctx context.Context, receiver string) ([]Reminder, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, receiver, added_by, message, channel, timestamp, date
		FROM remind
		WHERE timestamp <= ? AND receiver = ?
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

func (s *SQLiteStore) Take(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM remind WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("take reminder %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("take reminder %d: %w", id, err)
	}
	return n == 1, nil
}

func (s *SQLiteStore) SweepExpired(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-Retention).Unix()
	res, err := s.db.ExecContext(ctx, `DELETE FROM remind WHERE date < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sweep expired reminders: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
