// Package store persists screening outcomes. Each candidate row is an
// immutable audit record keyed by its content fingerprint; rows are only
// ever removed by the explicit bulk clear.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when the requested candidate does not exist.
	ErrNotFound = errors.New("candidate not found")

	// ErrDuplicateFingerprint is returned when an insert collides with
	// an existing fingerprint. The caller resolves it by re-reading the
	// now-existing record.
	ErrDuplicateFingerprint = errors.New("fingerprint already exists")
)

// Candidate is one stored screening outcome.
type Candidate struct {
	ID             int64
	Fingerprint    string
	CandidateName  string
	ResumeText     string
	JobDescription string
	Score          int
	Pros           []string
	Cons           []string
	Rationale      string
	Recommendation string
	Confidence     float64
	DecisionReason string
	CreatedAt      time.Time
}

// Summary is the trimmed listing view of a candidate.
type Summary struct {
	ID             int64     `json:"id"`
	CandidateName  string    `json:"candidate_name,omitempty"`
	Score          int       `json:"score"`
	Recommendation string    `json:"recommendation"`
	Confidence     float64   `json:"confidence"`
	CreatedAt      time.Time `json:"created_at"`
}

// Store wraps the SQLite candidates database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the candidates database at the given path.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open candidates database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS candidates (
	  id              INTEGER PRIMARY KEY AUTOINCREMENT,
	  fingerprint     TEXT NOT NULL UNIQUE,
	  candidate_name  TEXT,
	  resume_text     TEXT NOT NULL,
	  job_description TEXT NOT NULL,

	  score           INTEGER NOT NULL,
	  pros            TEXT NOT NULL,
	  cons            TEXT NOT NULL,
	  rationale       TEXT,

	  recommendation  TEXT NOT NULL,
	  confidence      REAL NOT NULL,
	  decision_reason TEXT,

	  created_at      TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_candidates_created_at
	ON candidates(created_at DESC);`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create candidates schema: %w", err)
	}
	return nil
}

// InsertCandidate stores a new record and returns its id. A fingerprint
// collision yields ErrDuplicateFingerprint.
func (s *Store) InsertCandidate(ctx context.Context, c *Candidate) (int64, error) {
	pros, err := json.Marshal(c.Pros)
	if err != nil {
		return 0, fmt.Errorf("marshal pros: %w", err)
	}
	cons, err := json.Marshal(c.Cons)
	if err != nil {
		return 0, fmt.Errorf("marshal cons: %w", err)
	}

	createdAt := c.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
	INSERT INTO candidates (
	  fingerprint, candidate_name, resume_text, job_description,
	  score, pros, cons, rationale,
	  recommendation, confidence, decision_reason, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.Fingerprint, nullable(c.CandidateName), c.ResumeText, c.JobDescription,
		c.Score, string(pros), string(cons), c.Rationale,
		c.Recommendation, c.Confidence, c.DecisionReason,
		createdAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return 0, ErrDuplicateFingerprint
		}
		return 0, fmt.Errorf("insert candidate: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert candidate id: %w", err)
	}
	return id, nil
}

// FindByFingerprint returns the id of the candidate with the given
// fingerprint, or ErrNotFound.
func (s *Store) FindByFingerprint(ctx context.Context, fingerprint string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM candidates WHERE fingerprint = ?`, fingerprint).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("find by fingerprint: %w", err)
	}
	return id, nil
}

// GetCandidate returns the full record for id, or ErrNotFound.
func (s *Store) GetCandidate(ctx context.Context, id int64) (*Candidate, error) {
	var (
		c         Candidate
		name      sql.NullString
		pros      string
		cons      string
		createdAt string
	)

	err := s.db.QueryRowContext(ctx, `
	SELECT id, fingerprint, candidate_name, resume_text, job_description,
	       score, pros, cons, rationale,
	       recommendation, confidence, decision_reason, created_at
	FROM candidates WHERE id = ?`, id).Scan(
		&c.ID, &c.Fingerprint, &name, &c.ResumeText, &c.JobDescription,
		&c.Score, &pros, &cons, &c.Rationale,
		&c.Recommendation, &c.Confidence, &c.DecisionReason, &createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get candidate: %w", err)
	}

	c.CandidateName = name.String
	if err := json.Unmarshal([]byte(pros), &c.Pros); err != nil {
		return nil, fmt.Errorf("unmarshal pros: %w", err)
	}
	if err := json.Unmarshal([]byte(cons), &c.Cons); err != nil {
		return nil, fmt.Errorf("unmarshal cons: %w", err)
	}
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		c.CreatedAt = t
	}

	return &c, nil
}

// ListCandidates returns up to limit summaries, newest first.
func (s *Store) ListCandidates(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
	SELECT id, candidate_name, score, recommendation, confidence, created_at
	FROM candidates
	ORDER BY created_at DESC
	LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	defer rows.Close()

	summaries := make([]Summary, 0)
	for rows.Next() {
		var (
			sum       Summary
			name      sql.NullString
			createdAt string
		)
		if err := rows.Scan(&sum.ID, &name, &sum.Score, &sum.Recommendation, &sum.Confidence, &createdAt); err != nil {
			return nil, fmt.Errorf("scan candidate summary: %w", err)
		}
		sum.CandidateName = name.String
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			sum.CreatedAt = t
		}
		summaries = append(summaries, sum)
	}

	return summaries, rows.Err()
}

// DeleteAll removes every candidate and resets the identity sequence.
func (s *Store) DeleteAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM candidates`); err != nil {
		return fmt.Errorf("delete candidates: %w", err)
	}
	// AUTOINCREMENT bookkeeping; absent until the first insert.
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sqlite_sequence WHERE name = 'candidates'`); err != nil {
		return fmt.Errorf("reset candidates sequence: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func nullable(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
