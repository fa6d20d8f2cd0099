package draft

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"

	_ "github.com/mattn/go-sqlite3"

	"github.com/cardlens/cardlens/internal/card"
)

const (
	// draftKey is the single fixed key under which the bulk draft lives.
	draftKey = "bulk_grading_draft"

	// maxEntries bounds how many entries the persisted draft holds. The
	// in-memory list is never truncated; only its persisted suffix is.
	maxEntries = 10

	// degradedEntries is the reduced cap used when the first write fails,
	// typically under storage-quota pressure.
	degradedEntries = 5
)

// reclaimableKeys are non-essential keys cleared before a degraded retry to
// free space. The draft key itself is never on this list.
var reclaimableKeys = []string{
	"bulk_grading_draft_v1",
	"capture_cache",
	"recognition_cache",
}

// Store is the durable local home of the bulk capture draft. It survives
// process restarts so an interrupted bulk session can be resumed.
type Store struct {
	conn *sql.DB
}

// Open opens (or creates) the draft database at path.
func Open(path string) (*Store, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open draft database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping draft database: %w", err)
	}

	store := &Store{conn: conn}
	if err := store.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return store, nil
}

func (s *Store) createTables() error {
	query := `
	CREATE TABLE IF NOT EXISTS drafts (
		key TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	`

	_, err := s.conn.Exec(query)
	return err
}

func (s *Store) Close() error {
	return s.conn.Close()
}

// Save persists the entry list, truncated to the most recent maxEntries. An
// empty list removes the key entirely. On write failure the reclaimable keys
// are cleared and a further-truncated copy is retried once; an error is
// returned only when both attempts fail, and callers are expected to log it
// and carry on.
func (s *Store) Save(entries []card.BulkEntry) error {
	if len(entries) == 0 {
		return s.Clear()
	}

	if err := s.write(truncate(entries, maxEntries)); err != nil {
		log.Printf("[DRAFT] Write failed, clearing reclaimable keys and retrying degraded: %v", err)
		s.clearReclaimable()
		if err := s.write(truncate(entries, degradedEntries)); err != nil {
			return fmt.Errorf("degraded draft write failed: %w", err)
		}
	}

	return nil
}

func (s *Store) write(entries []card.BulkEntry) error {
	payload, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshaling draft: %w", err)
	}

	_, err = s.conn.Exec(`
		INSERT INTO drafts (key, payload, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, updated_at = CURRENT_TIMESTAMP
	`, draftKey, string(payload))
	if err != nil {
		return fmt.Errorf("writing draft: %w", err)
	}
	return nil
}

func (s *Store) clearReclaimable() {
	for _, key := range reclaimableKeys {
		if _, err := s.conn.Exec("DELETE FROM drafts WHERE key = ?", key); err != nil {
			log.Printf("[DRAFT] Failed to clear key %s: %v", key, err)
		}
	}
}

// Load reads the persisted draft. A missing key or an undecodable payload
// yields an empty list, never an error: a corrupt draft must not block the
// bulk flow from starting.
func (s *Store) Load() ([]card.BulkEntry, error) {
	var payload string
	err := s.conn.QueryRow("SELECT payload FROM drafts WHERE key = ?", draftKey).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading draft: %w", err)
	}

	var entries []card.BulkEntry
	if err := json.Unmarshal([]byte(payload), &entries); err != nil {
		log.Printf("[DRAFT] Discarding undecodable draft payload: %v", err)
		return nil, nil
	}

	return entries, nil
}

// Clear removes the persisted draft.
func (s *Store) Clear() error {
	if _, err := s.conn.Exec("DELETE FROM drafts WHERE key = ?", draftKey); err != nil {
		return fmt.Errorf("clearing draft: %w", err)
	}
	return nil
}

// truncate keeps the most recent n entries (the list suffix).
func truncate(entries []card.BulkEntry, n int) []card.BulkEntry {
	if len(entries) <= n {
		return entries
	}
	return entries[len(entries)-n:]
}
