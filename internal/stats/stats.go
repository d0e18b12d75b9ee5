package stats

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store keeps anonymous aggregate assessment tallies. Only the severity
// label and a day bucket are written; answers, probabilities and request
// payloads never reach disk.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the tally database under dataDir
func NewStore(dataDir string) (*Store, error) {
	// Ensure data directory exists
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "riskmeter_stats.db")

	// Configure connection string for better performance
	connStr := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	store := &Store{db: db}

	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	slog.Info("Stats store initialized", "path", dbPath)

	return store, nil
}

// migrate creates the necessary tables
func (s *Store) migrate() error {
	query := `CREATE TABLE IF NOT EXISTS severity_tallies (
		day TEXT NOT NULL,
		severity TEXT NOT NULL,
		count INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (day, severity)
	)`

	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create severity_tallies table: %w", err)
	}

	return nil
}

// RecordSeverity increments the tally for today's bucket of the given
// severity label
func (s *Store) RecordSeverity(severity string) error {
	day := time.Now().UTC().Format("2006-01-02")

	_, err := s.db.Exec(`INSERT INTO severity_tallies (day, severity, count)
		VALUES (?, ?, 1)
		ON CONFLICT(day, severity) DO UPDATE SET count = count + 1`,
		day, severity)
	if err != nil {
		return fmt.Errorf("failed to record severity tally: %w", err)
	}

	return nil
}

// SeverityTally is one aggregate row of the daily tallies
type SeverityTally struct {
	Day      string `json:"day"`
	Severity string `json:"severity"`
	Count    int64  `json:"count"`
}

// RecentTallies returns per-day severity counts for the last n days
func (s *Store) RecentTallies(days int) ([]SeverityTally, error) {
	since := time.Now().UTC().AddDate(0, 0, -days).Format("2006-01-02")

	rows, err := s.db.Query(`SELECT day, severity, count FROM severity_tallies
		WHERE day >= ? ORDER BY day DESC, severity`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query severity tallies: %w", err)
	}
	defer rows.Close()

	var tallies []SeverityTally
	for rows.Next() {
		var t SeverityTally
		if err := rows.Scan(&t.Day, &t.Severity, &t.Count); err != nil {
			return nil, fmt.Errorf("failed to scan severity tally: %w", err)
		}
		tallies = append(tallies, t)
	}

	return tallies, rows.Err()
}

// Totals returns the all-time count per severity label
func (s *Store) Totals() (map[string]int64, error) {
	rows, err := s.db.Query(`SELECT severity, SUM(count) FROM severity_tallies GROUP BY severity`)
	if err != nil {
		return nil, fmt.Errorf("failed to query severity totals: %w", err)
	}
	defer rows.Close()

	totals := make(map[string]int64)
	for rows.Next() {
		var severity string
		var count int64
		if err := rows.Scan(&severity, &count); err != nil {
			return nil, fmt.Errorf("failed to scan severity total: %w", err)
		}
		totals[severity] = count
	}

	return totals, rows.Err()
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}
