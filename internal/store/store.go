package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Store is the SQLite-backed persistence for batches, tests, submissions,
// accounts and announcements. It is safe for concurrent use.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database at dbPath and applies the schema.
func New(dbPath string) (*Store, error) {
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	if dbPath != ":memory:" {
		dsn += "&_pragma=journal_mode(WAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS batches (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		code TEXT NOT NULL,
		institution_id TEXT NOT NULL,
		faculty_id TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL DEFAULT '',
		department TEXT NOT NULL DEFAULT '',
		year TEXT NOT NULL DEFAULT '',
		section TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		UNIQUE (code, institution_id)
	);

	CREATE TABLE IF NOT EXISTS batch_students (
		batch_id INTEGER NOT NULL,
		student_id TEXT NOT NULL,
		added_at DATETIME NOT NULL,
		PRIMARY KEY (batch_id, student_id),
		FOREIGN KEY (batch_id) REFERENCES batches(id)
	);

	CREATE TABLE IF NOT EXISTS faculty (
		id TEXT PRIMARY KEY,
		institution_id TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS students (
		enrollment_id TEXT NOT NULL,
		institution_id TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		batch_id INTEGER,
		faculty_id TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		PRIMARY KEY (institution_id, enrollment_id)
	);

	CREATE TABLE IF NOT EXISTS mcq_tests (
		id TEXT PRIMARY KEY,
		institution_id TEXT NOT NULL,
		type TEXT NOT NULL,
		title TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'draft',
		questions_json TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_mcq_tests_institution ON mcq_tests(institution_id);

	CREATE TABLE IF NOT EXISTS test_targets (
		test_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		ref TEXT NOT NULL,
		UNIQUE (test_id, kind, ref),
		FOREIGN KEY (test_id) REFERENCES mcq_tests(id)
	);
	CREATE INDEX IF NOT EXISTS idx_test_targets_ref ON test_targets(kind, ref);

	CREATE TABLE IF NOT EXISTS submissions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		test_id TEXT NOT NULL,
		student_id TEXT NOT NULL,
		answers_json TEXT NOT NULL,
		score INTEGER NOT NULL,
		attempted_at DATETIME NOT NULL,
		FOREIGN KEY (test_id) REFERENCES mcq_tests(id)
	);
	CREATE INDEX IF NOT EXISTS idx_submissions_test ON submissions(test_id, student_id);

	CREATE TABLE IF NOT EXISTS announcements (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		institution_id TEXT NOT NULL,
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		batch_codes_json TEXT NOT NULL DEFAULT '[]',
		created_at DATETIME NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// isConstraint reports whether err is an SQLite constraint failure of the
// given kind ("UNIQUE", "FOREIGN KEY", "PRIMARY KEY").
func isConstraint(err error, kind string) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	if se.Code()&0xff != sqlite3.SQLITE_CONSTRAINT {
		return false
	}
	return strings.Contains(se.Error(), kind)
}

// placeholders returns "?, ?, ..." with n markers.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func stringArgs(prefix []any, values []string) []any {
	args := make([]any, 0, len(prefix)+len(values))
	args = append(args, prefix...)
	for _, v := range values {
		args = append(args, v)
	}
	return args
}
