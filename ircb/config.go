package ircb

import (
	"encoding/json"
	"strings"
)

// Config holds configurable variables for ircb client
type Config struct {
	Host          string // in the form 'host:port'
	Nick          string
	Master        string // in the form 'master:prefix'
	CommandPrefix string
	Channels      string // comma separated channels to autojoin
	UseSSL        bool
	InvalidSSL    bool
	Verbose       bool
	AuthMode      int    // 0 ACC (freenode), 1 STATUS, -1 none
	Database      string // path to boltdb settings, empty disables persisted settings
	LogFile       string // can be empty to log to stderr only
	RemindDriver  string // sqlite3 or postgres
	RemindDSN     string // sqlite file path or postgres url
	Timezone      string // IANA zone used when displaying times, default UTC
	MetricsAddr   string // listen address for /metrics, empty disables
}

// NewDefaultConfig returns the default config, minimal changes would be Host,Nick,Master for typical usage.
func NewDefaultConfig() *Config {
	config := new(Config)
	config.Host = "localhost:6667"
	config.Nick = "mustangsally"
	config.Master = "aerth:$"
	config.CommandPrefix = "!"
	config.Channels = "##ircb"
	config.UseSSL = false
	config.InvalidSSL = false
	config.Database = "bolt.db"
	config.LogFile = ".log.txt"
	config.RemindDriver = "sqlite3"
	config.RemindDSN = "remind.db"
	config.Timezone = "UTC"
	return config
}

// MasterName is the nickname part of the Master field
func (c Config) MasterName() string {
	return strings.Split(c.Master, ":")[0]
}

// MasterPrefix is the prefix part of the Master field, empty if missing
func (c Config) MasterPrefix() string {
	i := strings.Index(c.Master, ":")
	if i == -1 || i+1 >= len(c.Master) {
		return ""
	}
	return c.Master[i+1:]
}

// MarshalConfig encodes the connection's config as JSON
func (c *Connection) MarshalConfig() ([]byte, error) {
	return c.config.Marshal()
}

// Marshal into json encoded bytes from config values
func (c Config) Marshal() ([]byte, error) {
	return json.MarshalIndent(c, " ", " ")
}

// ConfigFromJSON loads a new config from json encoded bytes.
// It starts with a NewDefaultConfig, so not all fields must be present in json code.
func ConfigFromJSON(b []byte) (*Config, error) {
	config := NewDefaultConfig()
	err := json.Unmarshal(b, config)
	if err != nil {
		return nil, err
	}
	return config, nil
}
