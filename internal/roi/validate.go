package roi

import (
	"errors"
	"math"
)

const (
	msgInvoiceVolume      = "Monthly invoice volume must be greater than 0"
	msgAPStaff            = "Number of AP staff must be greater than 0"
	msgHoursPerInvoice    = "Average hours per invoice must be greater than 0"
	msgHourlyWage         = "Hourly wage must be greater than 0"
	msgErrorRate          = "Manual error rate must be 0 or greater"
	msgErrorCost          = "Error cost must be 0 or greater"
	msgTimeHorizon        = "Time horizon must be greater than 0 months"
	msgImplementationCost = "Implementation cost cannot be negative"
	msgMagnitude          = "Input values are too large to calculate savings"
)

// Validate returns the violations found in the inputs, in field order.
// An empty slice means Calculate will succeed on the inputs; values whose
// products overflow are reported as a single magnitude violation.
func Validate(in ScenarioInputs) []string {
	out := []string{}
	if !positiveInt(in.MonthlyInvoiceVolume) {
		out = append(out, msgInvoiceVolume)
	}
	if !positiveInt(in.NumAPStaff) {
		out = append(out, msgAPStaff)
	}
	if !positiveFloat(in.AvgHoursPerInvoice) {
		out = append(out, msgHoursPerInvoice)
	}
	if !positiveFloat(in.HourlyWage) {
		out = append(out, msgHourlyWage)
	}
	if !nonNegativeFloat(in.ErrorRateManual) {
		out = append(out, msgErrorRate)
	}
	if !nonNegativeFloat(in.ErrorCost) {
		out = append(out, msgErrorCost)
	}
	if !positiveInt(in.TimeHorizonMonths) {
		out = append(out, msgTimeHorizon)
	}
	if in.OneTimeImplementationCost != nil && !nonNegativeFloat(in.OneTimeImplementationCost) {
		out = append(out, msgImplementationCost)
	}
	if len(out) == 0 {
		if _, err := Calculate(in); errors.Is(err, ErrNonFinite) {
			out = append(out, msgMagnitude)
		}
	}
	return out
}

// CheckInputs wraps Validate, returning a *ValidationError when any rule fails.
func CheckInputs(in ScenarioInputs) error {
	if v := Validate(in); len(v) > 0 {
		return &ValidationError{Violations: v}
	}
	return nil
}

func positiveInt(v *int) bool {
	return v != nil && *v > 0
}

func positiveFloat(v *float64) bool {
	return v != nil && finite(*v) && *v > 0
}

func nonNegativeFloat(v *float64) bool {
	return v != nil && finite(*v) && *v >= 0
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
