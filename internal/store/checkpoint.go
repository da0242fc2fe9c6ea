package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/glebarez/go-sqlite"
	"github.com/rahul/khoj/internal/plan"
	"github.com/rahul/khoj/internal/workflow"
)

// CheckpointStore persists run state to sqlite after every transition
// so an interrupted run can be inspected or resumed.
type CheckpointStore struct {
	DB *sql.DB
}

func NewCheckpointStore(dbPath string) (*CheckpointStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	// Create tables if not exist
	queries := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			topic TEXT,
			locale TEXT,
			state TEXT,
			plan_json TEXT,
			plan_iterations INTEGER,
			final_report TEXT,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS steps (
			run_id TEXT,
			step_index INTEGER,
			title TEXT,
			kind TEXT,
			status TEXT,
			result TEXT,
			error_message TEXT,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (run_id, step_index)
		);`,
		`CREATE TABLE IF NOT EXISTS observations (
			run_id TEXT,
			obs_index INTEGER,
			content TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (run_id, obs_index)
		);`,
	}
	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return nil, err
		}
	}

	return &CheckpointStore{DB: db}, nil
}

func (s *CheckpointStore) Close() error {
	return s.DB.Close()
}

func (s *CheckpointStore) SaveRun(r *workflow.Run) error {
	var planJSON []byte
	if r.Plan != nil {
		var err error
		planJSON, err = json.Marshal(r.Plan)
		if err != nil {
			return fmt.Errorf("marshal plan: %w", err)
		}
	}

	query := `INSERT OR REPLACE INTO runs (id, topic, locale, state, plan_json, plan_iterations, final_report, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, datetime('now'))`
	_, err := s.DB.Exec(query, r.ID, r.Topic, r.Locale, string(r.State), string(planJSON), r.PlanIterations, r.FinalReport)
	return err
}

func (s *CheckpointStore) SaveStep(runID string, index int, step *plan.Step) error {
	query := `INSERT OR REPLACE INTO steps (run_id, step_index, title, kind, status, result, error_message, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, datetime('now'))`
	_, err := s.DB.Exec(query, runID, index, step.Title, string(step.Kind),
		string(step.ExecutionStatus), step.Result, step.ErrorMessage)
	return err
}

func (s *CheckpointStore) AppendObservation(runID string, index int, text string) error {
	query := `INSERT OR REPLACE INTO observations (run_id, obs_index, content) VALUES (?, ?, ?)`
	_, err := s.DB.Exec(query, runID, index, text)
	return err
}

// LoadRun reconstructs a persisted run, including its plan and
// observation history, in insertion order.
func (s *CheckpointStore) LoadRun(id string) (*workflow.Run, error) {
	row := s.DB.QueryRow(
		`SELECT id, topic, locale, state, plan_json, plan_iterations, final_report FROM runs WHERE id = ?`, id)

	var r workflow.Run
	var state, planJSON string
	if err := row.Scan(&r.ID, &r.Topic, &r.Locale, &state, &planJSON, &r.PlanIterations, &r.FinalReport); err != nil {
		return nil, err
	}
	r.State = workflow.State(state)

	if planJSON != "" {
		var p plan.Plan
		if err := json.Unmarshal([]byte(planJSON), &p); err != nil {
			return nil, fmt.Errorf("unmarshal plan: %w", err)
		}
		r.Plan = &p
	}

	rows, err := s.DB.Query(`SELECT content FROM observations WHERE run_id = ? ORDER BY obs_index`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var content string
		if err := rows.Scan(&content); err != nil {
			return nil, err
		}
		r.Observations = append(r.Observations, content)
	}
	return &r, rows.Err()
}
