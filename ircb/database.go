package ircb

import (
	"errors"
	"time"

	"github.com/boltdb/bolt"
)

var dbsettings = []byte("settings")

const (
	settingTimezone = "timezone"
	settingPrefix   = "prefix"
)

var errNoSettings = errors.New("no settings database")

// Settings persists small bot options across restarts
type Settings struct {
	db *bolt.DB
}

// OpenSettings opens the bolt file, making buckets if not exist
func OpenSettings(filename string) (*Settings, error) {
	db, err := bolt.Open(filename, 0600, &bolt.Options{Timeout: 3 * time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(dbsettings)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Settings{db: db}, nil
}

// Get returns the stored value, or "" if unset
func (s *Settings) Get(key string) (value string) {
	if s == nil || s.db == nil {
		return ""
	}
	s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(dbsettings)
		if bucket == nil {
			return nil
		}
		value = string(bucket.Get([]byte(key)))
		return nil
	})
	return value
}

// Set stores value under key
func (s *Settings) Set(key, value string) error {
	if s == nil || s.db == nil {
		return errNoSettings
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(dbsettings).Put([]byte(key), []byte(value))
	})
}

func (s *Settings) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
