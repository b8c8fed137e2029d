package roi

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAcceptsSample(t *testing.T) {
	assert.Empty(t, Validate(sampleInputs()))
	assert.NoError(t, CheckInputs(sampleInputs()))
}

func TestValidateZeroInvoiceVolume(t *testing.T) {
	in := sampleInputs()
	in.MonthlyInvoiceVolume = Int(0)

	got := Validate(in)
	require.Len(t, got, 1)
	assert.Contains(t, strings.ToLower(got[0]), "monthly invoice volume")
}

func TestValidateEmptyInputsReportsEveryRequiredFieldInOrder(t *testing.T) {
	got := Validate(ScenarioInputs{})
	assert.Equal(t, []string{
		msgInvoiceVolume,
		msgAPStaff,
		msgHoursPerInvoice,
		msgHourlyWage,
		msgErrorRate,
		msgErrorCost,
		msgTimeHorizon,
	}, got)
}

func TestValidateRules(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*ScenarioInputs)
		want   []string
	}{
		{"negative staff", func(in *ScenarioInputs) { in.NumAPStaff = Int(-1) }, []string{msgAPStaff}},
		{"zero hours", func(in *ScenarioInputs) { in.AvgHoursPerInvoice = Float(0) }, []string{msgHoursPerInvoice}},
		{"zero wage", func(in *ScenarioInputs) { in.HourlyWage = Float(0) }, []string{msgHourlyWage}},
		{"zero error rate allowed", func(in *ScenarioInputs) { in.ErrorRateManual = Float(0) }, nil},
		{"negative error rate", func(in *ScenarioInputs) { in.ErrorRateManual = Float(-0.1) }, []string{msgErrorRate}},
		{"zero error cost allowed", func(in *ScenarioInputs) { in.ErrorCost = Float(0) }, nil},
		{"negative error cost", func(in *ScenarioInputs) { in.ErrorCost = Float(-5) }, []string{msgErrorCost}},
		{"zero horizon", func(in *ScenarioInputs) { in.TimeHorizonMonths = Int(0) }, []string{msgTimeHorizon}},
		{"absent implementation cost allowed", func(in *ScenarioInputs) { in.OneTimeImplementationCost = nil }, nil},
		{"zero implementation cost allowed", func(in *ScenarioInputs) { in.OneTimeImplementationCost = Float(0) }, nil},
		{"negative implementation cost", func(in *ScenarioInputs) { in.OneTimeImplementationCost = Float(-1) }, []string{msgImplementationCost}},
		{"NaN wage", func(in *ScenarioInputs) { in.HourlyWage = Float(math.NaN()) }, []string{msgHourlyWage}},
		{"infinite error cost", func(in *ScenarioInputs) { in.ErrorCost = Float(math.Inf(1)) }, []string{msgErrorCost}},
		{"name is not checked", func(in *ScenarioInputs) { in.ScenarioName = "  " }, nil},
		{"multiple violations", func(in *ScenarioInputs) {
			in.NumAPStaff = Int(0)
			in.TimeHorizonMonths = nil
		}, []string{msgAPStaff, msgTimeHorizon}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := sampleInputs()
			tc.mutate(&in)
			got := Validate(in)
			if len(tc.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCheckInputsReturnsValidationError(t *testing.T) {
	in := sampleInputs()
	in.HourlyWage = nil
	err := CheckInputs(in)

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, []string{msgHourlyWage}, ve.Violations)
	assert.Contains(t, err.Error(), msgHourlyWage)
}

func TestValidatorAgreesWithCalculatorOnPresence(t *testing.T) {
	fields := []func(*ScenarioInputs){
		func(in *ScenarioInputs) { in.MonthlyInvoiceVolume = nil },
		func(in *ScenarioInputs) { in.NumAPStaff = nil },
		func(in *ScenarioInputs) { in.AvgHoursPerInvoice = nil },
		func(in *ScenarioInputs) { in.HourlyWage = nil },
		func(in *ScenarioInputs) { in.ErrorRateManual = nil },
		func(in *ScenarioInputs) { in.ErrorCost = nil },
		func(in *ScenarioInputs) { in.TimeHorizonMonths = nil },
	}
	for i, unset := range fields {
		in := sampleInputs()
		unset(&in)
		if len(Validate(in)) == 0 {
			t.Fatalf("field %d: expected a violation for an absent field", i)
		}
		if _, err := Calculate(in); err == nil {
			t.Fatalf("field %d: expected calculate to fault on an absent field", i)
		}
	}
}

func TestValidateRejectsOverflowingMagnitudes(t *testing.T) {
	in := sampleInputs()
	in.HourlyWage = Float(1e155)
	in.AvgHoursPerInvoice = Float(1e155)

	assert.Equal(t, []string{msgMagnitude}, Validate(in))
	_, err := Calculate(in)
	assert.ErrorIs(t, err, ErrNonFinite)

	var ve *ValidationError
	require.ErrorAs(t, CheckInputs(in), &ve)
}

func TestValidateLargeButFiniteInputsStillCalculate(t *testing.T) {
	in := sampleInputs()
	in.HourlyWage = Float(1e100)
	in.AvgHoursPerInvoice = Float(1e100)

	require.Empty(t, Validate(in))
	_, err := Calculate(in)
	require.NoError(t, err)
}
