package scenario

import (
	"context"

	"github.com/joelkehle/invoice-roi/internal/roi"
)

// Store persists named scenarios. Implementations upsert by trimmed scenario
// name: saving under an existing name replaces its inputs, result and
// updated_at atomically while keeping its id and created_at.
type Store interface {
	Save(ctx context.Context, in roi.ScenarioInputs, result roi.CalculationResult) (Scenario, error)
	List(ctx context.Context) ([]Scenario, error)
	Get(ctx context.Context, id int64) (Scenario, error)
	Delete(ctx context.Context, id int64) error
	Close() error
}
