package roi

// ScenarioInputs is the parameter set driving a calculation. Numeric fields are
// pointers so that an absent value can be told apart from an explicit zero.
type ScenarioInputs struct {
	ScenarioName              string   `json:"scenario_name,omitempty"`
	MonthlyInvoiceVolume      *int     `json:"monthly_invoice_volume"`
	NumAPStaff                *int     `json:"num_ap_staff"`
	AvgHoursPerInvoice        *float64 `json:"avg_hours_per_invoice"`
	HourlyWage                *float64 `json:"hourly_wage"`
	ErrorRateManual           *float64 `json:"error_rate_manual"`
	ErrorCost                 *float64 `json:"error_cost"`
	TimeHorizonMonths         *int     `json:"time_horizon_months"`
	OneTimeImplementationCost *float64 `json:"one_time_implementation_cost,omitempty"`
}

type Breakdown struct {
	LaborCostManual    float64 `json:"labor_cost_manual"`
	AutoCost           float64 `json:"auto_cost"`
	ErrorSavings       float64 `json:"error_savings"`
	ImplementationCost float64 `json:"implementation_cost"`
}

type CalculationResult struct {
	MonthlySavings     float64   `json:"monthly_savings"`
	AnnualSavings      float64   `json:"annual_savings"`
	CumulativeSavings  float64   `json:"cumulative_savings"`
	NetSavings         float64   `json:"net_savings"`
	PaybackMonths      float64   `json:"payback_months"`
	ROIPercentage      float64   `json:"roi_percentage"`
	HoursSavedPerMonth float64   `json:"hours_saved_per_month"`
	Breakdown          Breakdown `json:"breakdown"`
}

// ImplementationCost returns the one-time cost, defaulting to 0 when absent.
func (in ScenarioInputs) ImplementationCost() float64 {
	if in.OneTimeImplementationCost == nil {
		return 0
	}
	return *in.OneTimeImplementationCost
}

func Int(v int) *int { return &v }

func Float(v float64) *float64 { return &v }

// Clone returns a copy that shares no pointers with in.
func (in ScenarioInputs) Clone() ScenarioInputs {
	out := in
	out.MonthlyInvoiceVolume = cloneInt(in.MonthlyInvoiceVolume)
	out.NumAPStaff = cloneInt(in.NumAPStaff)
	out.AvgHoursPerInvoice = cloneFloat(in.AvgHoursPerInvoice)
	out.HourlyWage = cloneFloat(in.HourlyWage)
	out.ErrorRateManual = cloneFloat(in.ErrorRateManual)
	out.ErrorCost = cloneFloat(in.ErrorCost)
	out.TimeHorizonMonths = cloneInt(in.TimeHorizonMonths)
	out.OneTimeImplementationCost = cloneFloat(in.OneTimeImplementationCost)
	return out
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	return Int(*v)
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	return Float(*v)
}
