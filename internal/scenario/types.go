package scenario

import (
	"sort"
	"strings"
	"time"

	"github.com/joelkehle/invoice-roi/internal/roi"
)

type Scenario struct {
	ID int64 `json:"id"`
	roi.ScenarioInputs
	Results   roi.CalculationResult `json:"results"`
	CreatedAt time.Time             `json:"created_at"`
	UpdatedAt time.Time             `json:"updated_at"`
}

type Config struct {
	Clock func() time.Time
}

func (c Config) now() time.Time {
	if c.Clock != nil {
		return c.Clock().UTC()
	}
	return time.Now().UTC()
}

// prepareInputs returns a detached copy of in ready to persist: trimmed name,
// every required field present and the implementation cost defaulted to 0.
func prepareInputs(in roi.ScenarioInputs) (roi.ScenarioInputs, error) {
	name := strings.TrimSpace(in.ScenarioName)
	if name == "" {
		return roi.ScenarioInputs{}, ErrNameRequired
	}
	if missing := roi.MissingFields(in); len(missing) > 0 {
		return roi.ScenarioInputs{}, &roi.MissingInputError{Fields: missing}
	}
	out := in.Clone()
	out.ScenarioName = name
	if out.OneTimeImplementationCost == nil {
		out.OneTimeImplementationCost = roi.Float(0)
	}
	return out, nil
}

// sortByRecency orders scenarios most recently updated first.
func sortByRecency(out []Scenario) {
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID > out[j].ID
	})
}
