// Package transcript holds the Session Transcript: the ordered, append-only
// record of this run's exchanges between the user, the shell, and the AI.
// The store lives in an in-memory SQLite database and is discarded when the
// process exits; nothing is persisted across runs.
package transcript

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/sahilm/fuzzy"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

// Exchange kinds.
const (
	KindShell = "shell"
	KindAI    = "ai"
)

// searchWindow is how many recent exchanges fuzzy search considers.
const searchWindow = 200

// Exchange is a single transcript entry. For shell exchanges, Command is the
// input line, Output the relayed shell output, and ExitCode the shell's $?.
// For AI exchanges, Command is the question and Output the suggestion.
type Exchange struct {
	ID        uint      `gorm:"primarykey"`
	CreatedAt time.Time `gorm:"index"`

	Kind     string
	Command  string
	Output   string
	ExitCode sql.NullInt32
}

// Store is the in-memory transcript store.
type Store struct {
	db *gorm.DB
}

// NewStore opens a fresh in-memory transcript database.
func NewStore() (*Store, error) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open transcript store: %w", err)
	}

	if err := db.AutoMigrate(&Exchange{}); err != nil {
		return nil, fmt.Errorf("failed to migrate transcript schema: %w", err)
	}

	return &Store{db: db}, nil
}

// AppendShell records a shell command exchange.
func (s *Store) AppendShell(command string, output string, exitCode int) (*Exchange, error) {
	entry := Exchange{
		Kind:     KindShell,
		Command:  command,
		Output:   output,
		ExitCode: sql.NullInt32{Int32: int32(exitCode), Valid: true},
	}

	result := s.db.Create(&entry)
	if result.Error != nil {
		return nil, result.Error
	}

	return &entry, nil
}

// AppendAI records an AI query exchange.
func (s *Store) AppendAI(question string, suggestion string) (*Exchange, error) {
	entry := Exchange{
		Kind:    KindAI,
		Command: question,
		Output:  suggestion,
	}

	result := s.db.Create(&entry)
	if result.Error != nil {
		return nil, result.Error
	}

	return &entry, nil
}

// Recent returns up to limit most recent exchanges in chronological order.
func (s *Store) Recent(limit int) ([]Exchange, error) {
	var entries []Exchange
	result := s.db.Order("id desc").Limit(limit).Find(&entries)
	if result.Error != nil {
		return nil, result.Error
	}

	lo.Reverse(entries)
	return entries, nil
}

// Search fuzzy-matches the query against recent commands and returns the
// matching exchanges, best match first.
func (s *Store) Search(query string, limit int) ([]Exchange, error) {
	entries, err := s.Recent(searchWindow)
	if err != nil {
		return nil, err
	}

	commands := lo.Map(entries, func(e Exchange, _ int) string {
		return e.Command
	})

	matches := fuzzy.Find(query, commands)
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	return lo.Map(matches, func(m fuzzy.Match, _ int) Exchange {
		return entries[m.Index]
	}), nil
}

// Count returns the number of transcript exchanges.
func (s *Store) Count() (int64, error) {
	var count int64
	result := s.db.Model(&Exchange{}).Count(&count)
	if result.Error != nil {
		return 0, result.Error
	}
	return count, nil
}

// Clear empties the transcript.
func (s *Store) Clear() error {
	result := s.db.Exec("DELETE FROM exchanges")
	return result.Error
}
