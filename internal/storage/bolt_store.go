// Package storage persists completed run summaries to a long-lived
// bbolt database so the TUI's history view survives across invocations.
package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"ratewright/internal/engine"
)

const bucketRuns = "runs"

// RunSummary is the persisted shape of a completed run's aggregate
// stats, trimmed from loadtest.RunSummary to the fields worth keeping
// around after the histograms themselves are gone.
type RunSummary struct {
	Connections       int           `json:"connections"`
	Duration          time.Duration `json:"duration"`
	Ops               uint64        `json:"ops"`
	Gets              uint64        `json:"gets"`
	Posts             uint64        `json:"posts"`
	GetMisses         uint64        `json:"get_misses"`
	Skips             uint64        `json:"skips"`
	TxBytes           uint64        `json:"tx_bytes"`
	RxBytes           uint64        `json:"rx_bytes"`
	GetP50Micros      int64         `json:"get_p50_micros"`
	GetP99Micros      int64         `json:"get_p99_micros"`
	GetMeanMicros     float64       `json:"get_mean_micros"`
	FatalErrorSummary string        `json:"fatal_error_summary,omitempty"`
}

// HistoryItem is one completed run: the options it ran with and the
// summary it produced, keyed by a fresh uuid.
type HistoryItem struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Options   engine.Options `json:"options"`
	Hostname  string         `json:"hostname"`
	Summary   RunSummary     `json:"summary"`
}

// Store wraps a bbolt database at $HOME/.ratewright/history.db.
type Store struct {
	db *bbolt.DB
}

// NewStore opens (creating if absent) the long-lived history database.
func NewStore() (*Store, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		slog.Error("storage: resolve home dir", "err", err)
		return nil, fmt.Errorf("storage: resolve home dir: %w", err)
	}

	dir := filepath.Join(home, ".ratewright")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		slog.Error("storage: create history dir", "dir", dir, "err", err)
		return nil, fmt.Errorf("storage: create %s: %w", dir, err)
	}

	db, err := bbolt.Open(filepath.Join(dir, "history.db"), 0o600, nil)
	if err != nil {
		slog.Error("storage: open history.db", "err", err)
		return nil, fmt.Errorf("storage: open history.db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketRuns))
		return err
	})
	if err != nil {
		db.Close()
		slog.Error("storage: init bucket", "err", err)
		return nil, fmt.Errorf("storage: init bucket: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the database handle; it does not delete history.db,
// unlike the teacher's session-scoped ephemeral store.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save persists item under a fresh uuid if ID is unset.
func (s *Store) Save(item HistoryItem) (HistoryItem, error) {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketRuns))
		data, err := json.Marshal(item)
		if err != nil {
			return err
		}
		return b.Put([]byte(item.ID), data)
	})
	if err != nil {
		slog.Error("storage: save run", "id", item.ID, "err", err)
	}
	return item, err
}

// List returns every stored run, newest first by Timestamp. Keys are
// random uuids, so the cursor order alone carries no time order.
func (s *Store) List() ([]HistoryItem, error) {
	var items []HistoryItem
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketRuns))
		c := b.Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var item HistoryItem
			if err := json.Unmarshal(v, &item); err != nil {
				return err
			}
			items = append(items, item)
		}
		return nil
	})
	if err != nil {
		slog.Error("storage: list runs", "err", err)
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Timestamp.After(items[j].Timestamp)
	})
	return items, err
}

// Get looks up a single run by ID.
func (s *Store) Get(id string) (*HistoryItem, error) {
	var item HistoryItem
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketRuns))
		v := b.Get([]byte(id))
		if v == nil {
			return fmt.Errorf("storage: run %s not found", id)
		}
		return json.Unmarshal(v, &item)
	})
	if err != nil {
		slog.Error("storage: get run", "id", id, "err", err)
		return nil, err
	}
	return &item, nil
}

// SummaryFromRunSummary builds the persisted RunSummary shape from a
// loadtest.RunSummary-like set of fields, isolating storage from
// loadtest's histogram types (bbolt entries stay small, human-readable
// JSON rather than serialized HdrHistogram state).
func SummaryFromRunSummary(connections int, duration time.Duration, ops, gets, posts, getMisses, skips, txBytes, rxBytes uint64, getP50, getP99 int64, getMean float64, fatalErr error) RunSummary {
	rs := RunSummary{
		Connections:   connections,
		Duration:      duration,
		Ops:           ops,
		Gets:          gets,
		Posts:         posts,
		GetMisses:     getMisses,
		Skips:         skips,
		TxBytes:       txBytes,
		RxBytes:       rxBytes,
		GetP50Micros:  getP50,
		GetP99Micros:  getP99,
		GetMeanMicros: getMean,
	}
	if fatalErr != nil {
		rs.FatalErrorSummary = fatalErr.Error()
	}
	return rs
}
