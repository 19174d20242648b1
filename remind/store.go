package remind

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Retention is how long a reminder may wait for its receiver, counted from
// the time it was set. SweepExpired removes anything older.
const Retention = 5 * 24 * time.Hour

// ErrUnknownDriver is returned by Open for an unsupported driver name
var ErrUnknownDriver = errors.New("remind: unknown store driver")

// Reminder is one stored reminder
type Reminder struct {
	ID       int64
	Receiver string
	AddedBy  string
	Message  string
	Channel  string    // channel it was set in, or AddedBy if set in private
	DueAt    time.Time // never changes after Insert
	Created  time.Time
}

// Clock returns the current time
type Clock func() time.Time

// Store holds reminders. Nick comparisons are case-insensitive.
type Store interface {
	// Init creates the schema if it does not exist
	Init(ctx context.Context) error
	// Insert stores r and returns its new id. r.ID and r.Created are ignored.
	Insert(ctx context.Context, r Reminder) (int64, error)
	// Delete removes reminder id if requester is its receiver or its creator.
	// It reports false when no row was removed.
	// It is a no-op otherwise.
	Delete(ctx context.Context, id int64, requester string) (bool, error)
	Exists(ctx context.Context, id int64) (bool, error)
	HasDeleteRights(ctx context.Context, id int64, requester string) (bool, error)
	// DueReceivers returns each receiver with at least one due reminder
	DueReceivers(ctx context.Context) ([]string, error)
	// DueForReceiver returns the due reminders of receiver, oldest first
	DueForReceiver(ctx context.Context, receiver string) ([]Reminder, error)
	// Take removes reminder id and reports whether this call removed it
	Take(ctx context.Context, id int64) (bool, error)
	// SweepExpired removes reminders older than Retention, returning how many
	SweepExpired(ctx context.Context) (int64, error)
	Close() error
}

// Open returns a Store for driver ("sqlite3" or "postgres") at dsn.
// A nil clock means time.Now.
func Open(ctx context.Context, driver, dsn string, clock Clock) (Store, error) {
	if clock == nil {
		clock = time.Now
	}
	var (
		store Store
		err   error
	)
	switch driver {
	case "sqlite3", "sqlite":
		store, err = openSQLite(dsn, clock)
	case "postgres", "postgresql", "pgx":
		store, err = openPostgres(ctx, dsn, clock)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}

func openSQLite(path string, clock Clock) (Store, error) {
	s, err := OpenSQLite(path, clock)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func openPostgres(ctx context.Context, dsn string, clock Clock) (Store, error) {
	s, err := OpenPostgres(ctx, dsn, clock)
	if err != nil {
		return nil, err
	}
	return s, nil
}
