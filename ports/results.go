package ports

import (
	"context"
	"time"

	"github.com/takjakim/method-studio/domain/core"
)

// ResultRecord is a persisted analysis result: the composed result structure
// serialized as JSON, plus enough metadata to list and reload it.
type ResultRecord struct {
	ID        core.AnalysisID `db:"id"`
	Analysis  string          `db:"analysis"` // e.g. "mediation", "moderation"
	Payload   []byte          `db:"payload"`  // JSON-encoded composed result
	CreatedAt time.Time       `db:"created_at"`
}

// ResultStore persists composed analysis results.
type ResultStore interface {
	Save(ctx context.Context, rec ResultRecord) error
	Get(ctx context.Context, id core.AnalysisID) (*ResultRecord, error)
	List(ctx context.Context, analysis string, limit int) ([]ResultRecord, error)
}

// DatasetReader loads a columnar numeric dataset from an external source.
// Non-numeric cells become NaN and are handled by listwise deletion.
type DatasetReader interface {
	Read(path string) (columns []string, data map[string][]float64, err error)
}
