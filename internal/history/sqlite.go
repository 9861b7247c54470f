// Package history persists the append-only conversation log in SQLite.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/mattn/go-sqlite3"

	"faqrag/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS entries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	question TEXT NOT NULL,
	answer TEXT NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);`

// Store is a durable append-only log of conversation entries. Entries are
// never edited or deleted.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the history database at path. A file that cannot
// be initialized is moved aside and replaced with a fresh database: history
// is informational, so a corrupt log degrades to an empty one instead of
// blocking startup.
func Open(path string) (*Store, error) {
	db, err := open(path)
	if err != nil {
		log.Printf("history at %s unusable (%v), starting fresh", path, err)
		if renameErr := os.Rename(path, path+".corrupt"); renameErr != nil {
			return nil, fmt.Errorf("moving corrupt history aside: %w", renameErr)
		}
		db, err = open(path)
		if err != nil {
			return nil, err
		}
	}
	return &Store{db: db}, nil
}

func open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening history db: %w", err)
	}
	// SQLite allows a single writer. One connection serializes concurrent
	// appends instead of surfacing SQLITE_BUSY to callers.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing history schema: %w", err)
	}
	return db, nil
}

// Append durably records one conversation entry before returning.
func (s *Store) Append(ctx context.Context, question, answer string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO entries (question, answer) VALUES (?, ?)", question, answer)
	if err != nil {
		return fmt.Errorf("appending history entry: %w", err)
	}
	return nil
}

// ReadAll returns every entry in append order. Read failures degrade to an
// empty history rather than failing the caller.
func (s *Store) ReadAll(ctx context.Context) []domain.HistoryEntry {
	rows, err := s.db.QueryContext(ctx,
		"SELECT question, answer FROM entries ORDER BY id")
	if err != nil {
		log.Printf("reading history: %v", err)
		return nil
	}
	defer rows.Close()

	var entries []domain.HistoryEntry
	for rows.Next() {
		var e domain.HistoryEntry
		if err := rows.Scan(&e.Question, &e.Answer); err != nil {
			log.Printf("scanning history entry: %v", err)
			return nil
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		log.Printf("reading history: %v", err)
		return nil
	}
	return entries
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
