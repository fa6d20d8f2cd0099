package session

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// State is the persisted session: the auth credential and the monthly
// grading usage counter. Month is a "2006-01" marker so usage resets when
// the calendar rolls over.
type State struct {
	Token        string
	GradesUsed   int
	MonthlyLimit int
	Month        string
}

// Store persists session state across process restarts.
type Store struct {
	conn *sql.DB
}

// Open opens (or creates) the session database at path.
func Open(path string) (*Store, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open session database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping session database: %w", err)
	}

	store := &Store{conn: conn}
	if err := store.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return store, nil
}

func (s *Store) createTables() error {
	query := `
	CREATE TABLE IF NOT EXISTS session (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		token TEXT NOT NULL DEFAULT '',
		grades_used INTEGER NOT NULL DEFAULT 0,
		monthly_limit INTEGER NOT NULL DEFAULT 0,
		month TEXT NOT NULL DEFAULT ''
	);
	`

	_, err := s.conn.Exec(query)
	return err
}

func (s *Store) Close() error {
	return s.conn.Close()
}

// Load hydrates the persisted state. A missing row yields a zero state.
func (s *Store) Load() (State, error) {
	var state State
	err := s.conn.QueryRow(
		"SELECT token, grades_used, monthly_limit, month FROM session WHERE id = 1",
	).Scan(&state.Token, &state.GradesUsed, &state.MonthlyLimit, &state.Month)
	if err == sql.ErrNoRows {
		return State{}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("reading session: %w", err)
	}
	return state, nil
}

// Save writes the full state.
func (s *Store) Save(state State) error {
	_, err := s.conn.Exec(`
		INSERT INTO session (id, token, grades_used, monthly_limit, month)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			token = excluded.token,
			grades_used = excluded.grades_used,
			monthly_limit = excluded.monthly_limit,
			month = excluded.month
	`, state.Token, state.GradesUsed, state.MonthlyLimit, state.Month)
	if err != nil {
		return fmt.Errorf("writing session: %w", err)
	}
	return nil
}

// Clear wipes the persisted session (logout teardown).
func (s *Store) Clear() error {
	if _, err := s.conn.Exec("DELETE FROM session WHERE id = 1"); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	return nil
}
