// Package config loads the engine's server-wide configuration: per-process
// knobs from the environment, plus a once-loaded JSON catalog of default
// per-gameType parameters.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
)

// ServerConfig is the process-wide configuration recognized by §6.3:
// round deadlines, retention, idle timeout, admission control, and
// broadcaster backpressure.
type ServerConfig struct {
	RoundDeadlineMs          int64   `env:"GAMEARENA_ROUND_DEADLINE_MS" envDefault:"10000"`
	RetentionWindowMs        int64   `env:"GAMEARENA_RETENTION_WINDOW_MS" envDefault:"3600000"`
	SessionIdleTimeoutMs     int64   `env:"GAMEARENA_SESSION_IDLE_TIMEOUT_MS" envDefault:"30000"`
	AdmissionRatePerSecond   float64 `env:"GAMEARENA_ADMISSION_RATE_PER_SECOND" envDefault:"5"`
	AdmissionBurst           int     `env:"GAMEARENA_ADMISSION_BURST" envDefault:"10"`
	BroadcasterQueueDepth    int     `env:"GAMEARENA_BROADCASTER_QUEUE_DEPTH" envDefault:"32"`
	AdjudicatorRetry         bool    `env:"GAMEARENA_ADJUDICATOR_RETRY" envDefault:"true"`
	ListenAddr               string  `env:"GAMEARENA_LISTEN_ADDR" envDefault:":8080"`
	ReconnectSecret          string  `env:"GAMEARENA_RECONNECT_SECRET" envDefault:"dev-secret-change-me"`
	CatalogPath              string  `env:"GAMEARENA_CATALOG_PATH" envDefault:""`
}

// RoundDeadline returns RoundDeadlineMs as a time.Duration.
func (c ServerConfig) RoundDeadline() time.Duration {
	return time.Duration(c.RoundDeadlineMs) * time.Millisecond
}

// SessionIdleTimeout returns SessionIdleTimeoutMs as a time.Duration.
func (c ServerConfig) SessionIdleTimeout() time.Duration {
	return time.Duration(c.SessionIdleTimeoutMs) * time.Millisecond
}

// RetentionWindow returns RetentionWindowMs as a time.Duration.
func (c ServerConfig) RetentionWindow() time.Duration {
	return time.Duration(c.RetentionWindowMs) * time.Millisecond
}

// LoadServerConfig parses ServerConfig from the environment.
func LoadServerConfig() (ServerConfig, error) {
	var c ServerConfig
	if err := env.Parse(&c); err != nil {
		return ServerConfig{}, fmt.Errorf("parse server config: %w", err)
	}
	return c, nil
}

// CatalogEntry is one gameType's default creation parameters, as loaded
// from the optional catalog file.
type CatalogEntry struct {
	GameType        string         `json:"gameType"`
	RoundDeadlineMs int64          `json:"roundDeadlineMs"`
	MinParticipants int            `json:"minParticipants"`
	MaxParticipants int            `json:"maxParticipants"`
	GameParams      map[string]any `json:"gameParams"`
}

var (
	catalog     []CatalogEntry
	catalogOnce sync.Once
	catalogErr  error
)

// LoadCatalog loads the default-parameters catalog from path exactly once
// per process; subsequent calls return the first call's result.
func LoadCatalog(path string) error {
	catalogOnce.Do(func() {
		if path == "" {
			return
		}
		data, err := os.ReadFile(path)
		if err != nil {
			catalogErr = fmt.Errorf("read catalog: %w", err)
			return
		}
		var entries []CatalogEntry
		if err := json.Unmarshal(data, &entries); err != nil {
			catalogErr = fmt.Errorf("unmarshal catalog: %w", err)
			return
		}
		catalog = entries
	})
	return catalogErr
}

// Catalog returns the loaded default-parameters catalog, or nil if none
// was loaded.
func Catalog() []CatalogEntry {
	return catalog
}

// CatalogEntryFor returns the catalog defaults for gameType, if any.
func CatalogEntryFor(gameType string) (CatalogEntry, bool) {
	for _, e := range catalog {
		if e.GameType == gameType {
			return e, true
		}
	}
	return CatalogEntry{}, false
}
