package scenario

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joelkehle/invoice-roi/internal/roi"
)

// steppingClock returns a clock that advances one second per call.
func steppingClock() func() time.Time {
	var mu sync.Mutex
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

func inputsNamed(name string, volume int) roi.ScenarioInputs {
	return roi.ScenarioInputs{
		ScenarioName:              name,
		MonthlyInvoiceVolume:      roi.Int(volume),
		NumAPStaff:                roi.Int(3),
		AvgHoursPerInvoice:        roi.Float(0.17),
		HourlyWage:                roi.Float(30),
		ErrorRateManual:           roi.Float(0.5),
		ErrorCost:                 roi.Float(100),
		TimeHorizonMonths:         roi.Int(36),
		OneTimeImplementationCost: roi.Float(50000),
	}
}

func mustCalculate(t *testing.T, in roi.ScenarioInputs) roi.CalculationResult {
	t.Helper()
	res, err := roi.Calculate(in)
	require.NoError(t, err)
	return res
}

// exerciseStore runs the behaviour every Store implementation shares.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	first := inputsNamed("Q4 pilot", 2000)
	saved, err := s.Save(ctx, first, mustCalculate(t, first))
	require.NoError(t, err)
	require.NotZero(t, saved.ID)
	assert.Equal(t, "Q4 pilot", saved.ScenarioName)
	assert.Equal(t, 143000.0, saved.Results.MonthlySavings)
	assert.Equal(t, saved.CreatedAt, saved.UpdatedAt)

	other := inputsNamed("Baseline", 500)
	other.OneTimeImplementationCost = nil
	baseline, err := s.Save(ctx, other, mustCalculate(t, other))
	require.NoError(t, err)
	assert.NotEqual(t, saved.ID, baseline.ID)
	require.NotNil(t, baseline.OneTimeImplementationCost)
	assert.Equal(t, 0.0, *baseline.OneTimeImplementationCost)

	// Same trimmed name replaces in place.
	replacement := inputsNamed("  Q4 pilot  ", 4000)
	replaced, err := s.Save(ctx, replacement, mustCalculate(t, replacement))
	require.NoError(t, err)
	assert.Equal(t, saved.ID, replaced.ID)
	assert.Equal(t, "Q4 pilot", replaced.ScenarioName)
	assert.Equal(t, 4000, *replaced.MonthlyInvoiceVolume)
	assert.True(t, replaced.CreatedAt.Equal(saved.CreatedAt), "created_at must be kept")
	assert.True(t, replaced.UpdatedAt.After(saved.UpdatedAt), "updated_at must advance")

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, saved.ID, list[0].ID, "most recently updated first")
	assert.Equal(t, baseline.ID, list[1].ID)

	got, err := s.Get(ctx, baseline.ID)
	require.NoError(t, err)
	assert.Equal(t, "Baseline", got.ScenarioName)
	assert.Equal(t, baseline.Results, got.Results)

	_, err = s.Get(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Delete(ctx, baseline.ID))
	assert.ErrorIs(t, s.Delete(ctx, baseline.ID), ErrNotFound)
	_, err = s.Get(ctx, baseline.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	list, err = s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func exerciseSaveRejects(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	blank := inputsNamed("   ", 100)
	_, err := s.Save(ctx, blank, roi.CalculationResult{})
	assert.ErrorIs(t, err, ErrNameRequired)

	partial := inputsNamed("partial", 100)
	partial.HourlyWage = nil
	_, err = s.Save(ctx, partial, roi.CalculationResult{})
	var missing *roi.MissingInputError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []string{"hourly_wage"}, missing.Fields)

	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

// exerciseWideIntegers saves integer fields beyond the 32-bit range, up to
// the largest whole number the transport accepts.
func exerciseWideIntegers(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	in := inputsNamed("enterprise", 3_000_000_000)
	in.NumAPStaff = roi.Int(1 << 53)
	in.TimeHorizonMonths = roi.Int(5_000_000_000)
	saved, err := s.Save(ctx, in, mustCalculate(t, in))
	require.NoError(t, err)

	got, err := s.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, 3_000_000_000, *got.MonthlyInvoiceVolume)
	assert.Equal(t, 1<<53, *got.NumAPStaff)
	assert.Equal(t, 5_000_000_000, *got.TimeHorizonMonths)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore(Config{Clock: steppingClock()}))
}

func TestMemoryStoreKeepsWideIntegers(t *testing.T) {
	exerciseWideIntegers(t, NewMemoryStore(Config{Clock: steppingClock()}))
}

func TestMemoryStoreRejectsInvalidSave(t *testing.T) {
	exerciseSaveRejects(t, NewMemoryStore(Config{Clock: steppingClock()}))
}

func TestMemoryStoreListOnEmptyStoreIsEmpty(t *testing.T) {
	list, err := NewMemoryStore(Config{}).List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestMemoryStoreReturnsDetachedCopies(t *testing.T) {
	s := NewMemoryStore(Config{Clock: steppingClock()})
	in := inputsNamed("detached", 100)
	saved, err := s.Save(context.Background(), in, mustCalculate(t, in))
	require.NoError(t, err)

	*in.MonthlyInvoiceVolume = 1
	*saved.NumAPStaff = 99

	got, err := s.Get(context.Background(), saved.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, *got.MonthlyInvoiceVolume)
	assert.Equal(t, 3, *got.NumAPStaff)
}

func TestMemoryStoreConcurrentSavesUnderOneName(t *testing.T) {
	s := NewMemoryStore(Config{Clock: steppingClock()})
	var wg sync.WaitGroup
	for i := 1; i <= 20; i++ {
		wg.Add(1)
		go func(volume int) {
			defer wg.Done()
			in := inputsNamed("shared", volume)
			_, err := s.Save(context.Background(), in, roi.CalculationResult{})
			assert.NoError(t, err)
		}(i * 100)
	}
	wg.Wait()

	list, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(1), list[0].ID)
}
