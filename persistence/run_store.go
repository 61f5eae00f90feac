package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// RunRecord is one engine invocation in the history database.
type RunRecord struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	ProjectType string    `json:"project_type"`
	Status      string    `json:"status"`
	Confidence  int       `json:"confidence"`
	Progress    float64   `json:"progress"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at,omitempty"`
}

// Transition is one recorded state change within a run.
type Transition struct {
	RunID  string    `json:"run_id"`
	From   string    `json:"from"`
	To     string    `json:"to"`
	TaskID int       `json:"task_id"`
	Detail string    `json:"detail,omitempty"`
	At     time.Time `json:"at"`
}

// RunStore keeps run history in a SQLite database outside the workspace, so
// project teardown does not erase the audit trail.
type RunStore struct {
	db *sql.DB
}

// NewRunStore opens/creates the database at dbPath.
func NewRunStore(dbPath string) (*RunStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, err
	}
	store := &RunStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *RunStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		description TEXT NOT NULL,
		project_type TEXT,
		status TEXT NOT NULL,
		confidence INTEGER,
		progress REAL,
		started_at TIMESTAMP,
		finished_at TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS transitions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		from_state TEXT,
		to_state TEXT NOT NULL,
		task_id INTEGER,
		detail TEXT,
		at TIMESTAMP,
		FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
	);
	CREATE TABLE IF NOT EXISTS artifacts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		payload TEXT,
		at TIMESTAMP,
		FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
	);
	CREATE TABLE IF NOT EXISTS approvals (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		request_id TEXT,
		approved BOOLEAN,
		decided_by TEXT,
		reason TEXT,
		at TIMESTAMP,
		FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close releases the underlying database handle.
func (s *RunStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// CreateRun inserts a new run in its starting state.
func (s *RunStore) CreateRun(rec *RunRecord) error {
	if rec == nil || rec.ID == "" {
		return errors.New("run record with id required")
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO runs (id, description, project_type, status, confidence, progress, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Description, rec.ProjectType, rec.Status, rec.Confidence, rec.Progress, rec.StartedAt,
	)
	return err
}

// UpdateRun refreshes the mutable columns of an existing run.
func (s *RunStore) UpdateRun(rec *RunRecord) error {
	if rec == nil || rec.ID == "" {
		return errors.New("run record with id required")
	}
	var finished interface{}
	if !rec.FinishedAt.IsZero() {
		finished = rec.FinishedAt
	}
	res, err := s.db.Exec(
		`UPDATE runs SET status=?, confidence=?, progress=?, finished_at=? WHERE id=?`,
		rec.Status, rec.Confidence, rec.Progress, finished, rec.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return fmt.Errorf("run %s not found", rec.ID)
	}
	return err
}

// GetRun loads one run by id.
func (s *RunStore) GetRun(id string) (*RunRecord, error) {
	row := s.db.QueryRow(
		`SELECT id, description, project_type, status, confidence, progress, started_at, finished_at
		 FROM runs WHERE id=?`, id)
	var rec RunRecord
	var finished sql.NullTime
	err := row.Scan(&rec.ID, &rec.Description, &rec.ProjectType, &rec.Status,
		&rec.Confidence, &rec.Progress, &rec.StartedAt, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	if finished.Valid {
		rec.FinishedAt = finished.Time
	}
	return &rec, nil
}

// ListRuns returns runs newest first.
func (s *RunStore) ListRuns(limit int) ([]*RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT id, description, project_type, status, confidence, progress, started_at, finished_at
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*RunRecord
	for rows.Next() {
		var rec RunRecord
		var finished sql.NullTime
		if err := rows.Scan(&rec.ID, &rec.Description, &rec.ProjectType, &rec.Status,
			&rec.Confidence, &rec.Progress, &rec.StartedAt, &finished); err != nil {
			return nil, err
		}
		if finished.Valid {
			rec.FinishedAt = finished.Time
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}

// RecordTransition appends one state change to the run's trail.
func (s *RunStore) RecordTransition(t Transition) error {
	if t.RunID == "" {
		return errors.New("transition requires run id")
	}
	if t.At.IsZero() {
		t.At = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO transitions (run_id, from_state, to_state, task_id, detail, at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		t.RunID, t.From, t.To, t.TaskID, t.Detail, t.At,
	)
	return err
}

// Transitions lists a run's state changes in order.
func (s *RunStore) Transitions(runID string) ([]Transition, error) {
	rows, err := s.db.Query(
		`SELECT run_id, COALESCE(from_state, ''), to_state, COALESCE(task_id, 0), COALESCE(detail, ''), at
		 FROM transitions WHERE run_id=? ORDER BY id ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Transition
	for rows.Next() {
		var t Transition
		if err := rows.Scan(&t.RunID, &t.From, &t.To, &t.TaskID, &t.Detail, &t.At); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// SaveArtifact stores a JSON-encodable payload under a kind label, e.g. the
// final plan or the security report.
func (s *RunStore) SaveArtifact(runID, kind string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode artifact %s: %w", kind, err)
	}
	_, err = s.db.Exec(
		`INSERT INTO artifacts (run_id, kind, payload, at) VALUES (?, ?, ?, ?)`,
		runID, kind, string(data), time.Now().UTC(),
	)
	return err
}

// Artifact loads the most recent payload of a kind into out.
func (s *RunStore) Artifact(runID, kind string, out interface{}) error {
	row := s.db.QueryRow(
		`SELECT payload FROM artifacts WHERE run_id=? AND kind=? ORDER BY id DESC LIMIT 1`,
		runID, kind)
	var payload string
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("artifact %s/%s not found", runID, kind)
		}
		return err
	}
	return json.Unmarshal([]byte(payload), out)
}

// RecordApproval stores one gate decision.
func (s *RunStore) RecordApproval(runID, requestID string, approved bool, decidedBy, reason string) error {
	_, err := s.db.Exec(
		`INSERT INTO approvals (run_id, request_id, approved, decided_by, reason, at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		runID, requestID, approved, decidedBy, reason, time.Now().UTC(),
	)
	return err
}

// Approval is one recorded gate decision.
type Approval struct {
	RunID     string    `json:"run_id"`
	RequestID string    `json:"request_id"`
	Approved  bool      `json:"approved"`
	DecidedBy string    `json:"decided_by"`
	Reason    string    `json:"reason,omitempty"`
	At        time.Time `json:"at"`
}

// Approvals lists a run's gate decisions in order.
func (s *RunStore) Approvals(runID string) ([]Approval, error) {
	rows, err := s.db.Query(
		`SELECT run_id, COALESCE(request_id, ''), approved, COALESCE(decided_by, ''), COALESCE(reason, ''), at
		 FROM approvals WHERE run_id=? ORDER BY id ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Approval
	for rows.Next() {
		var a Approval
		if err := rows.Scan(&a.RunID, &a.RequestID, &a.Approved, &a.DecidedBy, &a.Reason, &a.At); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
