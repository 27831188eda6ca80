// Package store persists detection run records.
//
// Two implementations are provided: MemoryStore for tests and single-shot
// CLI usage, and MongoStore for the serve mode where run history survives
// restarts. Records are summaries; full decompositions stay in memory with
// their incidence matrix and are not persisted.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested run does not exist.
var ErrNotFound = errors.New("not found")

// BestDecomp summarizes the highest-ranked decomposition of a run.
type BestDecomp struct {
	NBlocks    int     `bson:"nblocks" json:"nblocks"`
	NMaster    int     `bson:"nmaster" json:"nmaster"`
	NLinking   int     `bson:"nlinking" json:"nlinking"`
	Score      string  `bson:"score" json:"score"`
	ScoreValue float64 `bson:"score_value" json:"score_value"`
}

// RunRecord is one persisted detection run.
type RunRecord struct {
	ID        string        `bson:"_id" json:"id"`
	Model     string        `bson:"model" json:"model"`
	ModelHash string        `bson:"model_hash" json:"model_hash"`
	NConss    int           `bson:"nconss" json:"nconss"`
	NVars     int           `bson:"nvars" json:"nvars"`
	NNonzeros int           `bson:"nnonzeros" json:"nnonzeros"`
	NDecomps  int           `bson:"ndecomps" json:"ndecomps"`
	Best      BestDecomp    `bson:"best" json:"best"`
	Detectors []string      `bson:"detectors" json:"detectors"`
	Duration  time.Duration `bson:"duration" json:"duration"`
	CreatedAt time.Time     `bson:"created_at" json:"created_at"`
}

// Store is the persistence interface for run records.
type Store interface {
	// SaveRun inserts or replaces a record by ID.
	SaveRun(ctx context.Context, rec *RunRecord) error

	// GetRun returns the record with the given ID, or ErrNotFound.
	GetRun(ctx context.Context, id string) (*RunRecord, error)

	// ListRuns returns up to limit records, newest first. A non-positive
	// limit returns all records.
	ListRuns(ctx context.Context, limit int) ([]*RunRecord, error)

	// Close releases backend resources.
	Close(ctx context.Context) error
}
