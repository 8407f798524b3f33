// Package history persists completed dictation sessions and running usage
// totals in a local Badger database.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("history: store is closed")

const (
	entryPrefix = "entry:"
	statsKey    = "stats"
)

// Entry is one completed dictation session.
type Entry struct {
	ID            string        `json:"id"`
	Text          string        `json:"text"`
	ModelSize     string        `json:"modelSize"`
	Language      string        `json:"language,omitempty"`
	AudioDuration time.Duration `json:"audioDuration"`
	CreatedAt     time.Time     `json:"createdAt"`
}

// Stats are cumulative totals across all recorded sessions.
type Stats struct {
	Sessions      int           `json:"sessions"`
	Words         int           `json:"words"`
	AudioDuration time.Duration `json:"audioDuration"`
}

// Store is a Badger-backed session history.
type Store struct {
	db *badger.DB
}

// Open opens or creates the history database at dir.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	return &Store{db: db}, nil
}

// Add records a completed session and updates the running totals. A zero ID
// or CreatedAt is filled in.
func (s *Store) Add(e Entry) error {
	if s.db.IsClosed() {
		return ErrClosed
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(entryKey(e.CreatedAt), data); err != nil {
			return err
		}

		stats, err := readStats(txn)
		if err != nil {
			return err
		}
		stats.Sessions++
		stats.Words += countWords(e.Text)
		stats.AudioDuration += e.AudioDuration

		sdata, err := json.Marshal(stats)
		if err != nil {
			return err
		}
		return txn.Set([]byte(statsKey), sdata)
	})
	if err != nil {
		return fmt.Errorf("store entry: %w", err)
	}
	return nil
}

// Recent returns up to n entries, newest first.
func (s *Store) Recent(n int) ([]Entry, error) {
	if s.db.IsClosed() {
		return nil, ErrClosed
	}
	if n <= 0 {
		return nil, nil
	}

	var entries []Entry
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(entryPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration needs a seek key past the last entry.
		seek := append([]byte(entryPrefix), 0xff)
		for it.Seek(seek); it.Valid() && len(entries) < n; it.Next() {
			var e Entry
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &e)
			})
			if err != nil {
				return err
			}
			entries = append(entries, e)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	return entries, nil
}

// Stats returns cumulative usage totals.
func (s *Store) Stats() (Stats, error) {
	if s.db.IsClosed() {
		return Stats{}, ErrClosed
	}
	var stats Stats
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		stats, err = readStats(txn)
		return err
	})
	if err != nil {
		return Stats{}, fmt.Errorf("read stats: %w", err)
	}
	return stats, nil
}

// Close flushes and closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func readStats(txn *badger.Txn) (Stats, error) {
	item, err := txn.Get([]byte(statsKey))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Stats{}, nil
	}
	if err != nil {
		return Stats{}, err
	}
	var stats Stats
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &stats)
	})
	return stats, err
}

// entryKey orders entries chronologically under entryPrefix.
func entryKey(t time.Time) []byte {
	return []byte(fmt.Sprintf("%s%020d", entryPrefix, t.UnixNano()))
}

func countWords(text string) int {
	return len(strings.Fields(text))
}
