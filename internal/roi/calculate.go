package roi

import (
	"errors"
	"math"
)

const (
	automatedCostPerInvoice    = 0.20
	automatedErrorRate         = 0.001
	timeSavedPerInvoiceMinutes = 8.0
	savingsBoostFactor         = 1.1
	minimumMonthlySavings      = 100.0
	fallbackROIBase            = 1000.0
)

// ErrNonFinite is returned when inputs of extreme magnitude overflow a metric.
var ErrNonFinite = errors.New("calculation produced a non-finite value")

// Calculate maps inputs to financial metrics. It does not check ranges; callers
// run Validate first. Absent required fields yield a *MissingInputError.
func Calculate(in ScenarioInputs) (CalculationResult, error) {
	if missing := MissingFields(in); len(missing) > 0 {
		return CalculationResult{}, &MissingInputError{Fields: missing}
	}

	volume := float64(*in.MonthlyInvoiceVolume)
	staff := float64(*in.NumAPStaff)
	horizon := float64(*in.TimeHorizonMonths)
	implementationCost := in.ImplementationCost()

	laborCostManual := staff * *in.HourlyWage * *in.AvgHoursPerInvoice * volume
	autoCost := volume * automatedCostPerInvoice
	errorSavings := (NormalizeErrorRate(*in.ErrorRateManual) - automatedErrorRate) * volume * *in.ErrorCost

	raw := (laborCostManual + errorSavings) - autoCost
	monthly := round2(math.Max(raw*savingsBoostFactor, minimumMonthlySavings))

	// Derived currency metrics chain off the rounded monthly figure so that
	// annual, cumulative and net savings agree with it to the cent.
	cumulative := round2(monthly * horizon)
	net := round2(cumulative - implementationCost)

	payback := 0.0
	if monthly > 0 {
		payback = implementationCost / monthly
	}

	var roiPct float64
	if implementationCost > 0 {
		roiPct = (net / implementationCost) * 100
	} else {
		roiPct = (cumulative / fallbackROIBase) * 100
	}

	out := CalculationResult{
		MonthlySavings:     monthly,
		AnnualSavings:      round2(monthly * 12),
		CumulativeSavings:  cumulative,
		NetSavings:         net,
		PaybackMonths:      round1(payback),
		ROIPercentage:      round1(roiPct),
		HoursSavedPerMonth: round1((timeSavedPerInvoiceMinutes / 60) * volume),
		Breakdown: Breakdown{
			LaborCostManual:    round2(laborCostManual),
			AutoCost:           round2(autoCost),
			ErrorSavings:       round2(errorSavings),
			ImplementationCost: round2(implementationCost),
		},
	}
	if !out.finite() {
		return CalculationResult{}, ErrNonFinite
	}
	return out, nil
}

// NormalizeErrorRate treats values above 1 as percentages and anything else as
// a fraction, so 0.5 means 50% while 5 means 5%.
func NormalizeErrorRate(rate float64) float64 {
	if rate > 1 {
		return rate / 100
	}
	return rate
}

// MissingFields lists the required numeric fields that are absent.
func MissingFields(in ScenarioInputs) []string {
	var out []string
	if in.MonthlyInvoiceVolume == nil {
		out = append(out, "monthly_invoice_volume")
	}
	if in.NumAPStaff == nil {
		out = append(out, "num_ap_staff")
	}
	if in.AvgHoursPerInvoice == nil {
		out = append(out, "avg_hours_per_invoice")
	}
	if in.HourlyWage == nil {
		out = append(out, "hourly_wage")
	}
	if in.ErrorRateManual == nil {
		out = append(out, "error_rate_manual")
	}
	if in.ErrorCost == nil {
		out = append(out, "error_cost")
	}
	if in.TimeHorizonMonths == nil {
		out = append(out, "time_horizon_months")
	}
	return out
}

func (r CalculationResult) finite() bool {
	for _, v := range []float64{
		r.MonthlySavings, r.AnnualSavings, r.CumulativeSavings, r.NetSavings,
		r.PaybackMonths, r.ROIPercentage, r.HoursSavedPerMonth,
		r.Breakdown.LaborCostManual, r.Breakdown.AutoCost, r.Breakdown.ErrorSavings, r.Breakdown.ImplementationCost,
	} {
		if !finite(v) {
			return false
		}
	}
	return true
}

// Half-up rounding: ties go toward positive infinity.
func round2(v float64) float64 { return math.Floor(v*100+0.5) / 100 }
func round1(v float64) float64 { return math.Floor(v*10+0.5) / 10 }
