// Package store persists plans to sqlite.
package store

import (
	"context"
	"database/sql"

	_ "github.com/glebarez/go-sqlite"
	"github.com/rahul/yojana/planner"
)

type PlanStore struct {
	DB *sql.DB
}

func NewPlanStore(dbPath string) (*PlanStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	// Create tables if not exist
	query := `CREATE TABLE IF NOT EXISTS plans (
		id TEXT PRIMARY KEY,
		goal TEXT,
		complexity TEXT,
		steps TEXT,
		created_at DATETIME,
		context TEXT
	);`
	if _, err := db.Exec(query); err != nil {
		return nil, err
	}

	return &PlanStore{DB: db}, nil
}

// SavePlan inserts or replaces the plan record, so a plan can be re-saved
// after execution updates its steps.
func (s *PlanStore) SavePlan(ctx context.Context, rec planner.PlanRecord) error {
	query := `INSERT OR REPLACE INTO plans (id, goal, complexity, steps, created_at, context) VALUES (?, ?, ?, ?, ?, ?)`
	_, err := s.DB.ExecContext(ctx, query, rec.ID, rec.Goal, rec.Complexity, rec.Steps, rec.CreatedAt, rec.Context)
	return err
}

// GetPlan reads back a persisted plan record.
func (s *PlanStore) GetPlan(ctx context.Context, id string) (planner.PlanRecord, error) {
	query := `SELECT id, goal, complexity, steps, created_at, context FROM plans WHERE id = ?`
	var rec planner.PlanRecord
	err := s.DB.QueryRowContext(ctx, query, id).Scan(
		&rec.ID, &rec.Goal, &rec.Complexity, &rec.Steps, &rec.CreatedAt, &rec.Context)
	return rec, err
}

// ListPlans returns persisted plan records, newest first.
func (s *PlanStore) ListPlans(ctx context.Context, limit int) ([]planner.PlanRecord, error) {
	query := `SELECT id, goal, complexity, steps, created_at, context FROM plans ORDER BY created_at DESC LIMIT ?`
	rows, err := s.DB.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []planner.PlanRecord
	for rows.Next() {
		var rec planner.PlanRecord
		if err := rows.Scan(&rec.ID, &rec.Goal, &rec.Complexity, &rec.Steps, &rec.CreatedAt, &rec.Context); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func (s *PlanStore) Close() error {
	return s.DB.Close()
}

var _ planner.PlanStore = (*PlanStore)(nil)
