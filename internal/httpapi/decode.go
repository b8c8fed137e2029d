package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/joelkehle/invoice-roi/internal/roi"
)

// requestError is a malformed request body: bad JSON or a field of the wrong
// shape. It always maps to 400.
type requestError struct {
	Message string
	Details []string
}

func (e *requestError) Error() string {
	if len(e.Details) == 0 {
		return e.Message
	}
	return e.Message + ": " + strings.Join(e.Details, "; ")
}

// maxSafeInteger bounds integer fields to values a float64 holds exactly.
const maxSafeInteger = 1<<53 - 1

func decodeObject(body []byte) (map[string]json.RawMessage, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return map[string]json.RawMessage{}, nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &requestError{Message: "Invalid JSON body"}
	}
	if raw == nil {
		raw = map[string]json.RawMessage{}
	}
	return raw, nil
}

// decodeInputs reads scenario inputs from a JSON object. Numeric fields may
// be JSON numbers or numeric strings; null and "" mean absent.
func decodeInputs(raw map[string]json.RawMessage) (roi.ScenarioInputs, error) {
	var (
		in   roi.ScenarioInputs
		errs []string
	)
	intField := func(name string, dst **int) {
		v, err := decodeInt(raw[name])
		if err != nil {
			errs = append(errs, name+" "+err.Error())
			return
		}
		*dst = v
	}
	floatField := func(name string, dst **float64) {
		v, err := decodeFloat(raw[name])
		if err != nil {
			errs = append(errs, name+" "+err.Error())
			return
		}
		*dst = v
	}

	name, err := decodeString(raw["scenario_name"])
	if err != nil {
		errs = append(errs, "scenario_name "+err.Error())
	}
	in.ScenarioName = name
	intField("monthly_invoice_volume", &in.MonthlyInvoiceVolume)
	intField("num_ap_staff", &in.NumAPStaff)
	floatField("avg_hours_per_invoice", &in.AvgHoursPerInvoice)
	floatField("hourly_wage", &in.HourlyWage)
	floatField("error_rate_manual", &in.ErrorRateManual)
	floatField("error_cost", &in.ErrorCost)
	intField("time_horizon_months", &in.TimeHorizonMonths)
	floatField("one_time_implementation_cost", &in.OneTimeImplementationCost)

	if len(errs) > 0 {
		return roi.ScenarioInputs{}, &requestError{Message: "Invalid input", Details: errs}
	}
	return in, nil
}

func absent(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}

func decodeString(raw json.RawMessage) (string, error) {
	if absent(raw) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("must be a string")
	}
	return s, nil
}

func decodeFloat(raw json.RawMessage) (*float64, error) {
	if absent(raw) {
		return nil, nil
	}
	t := bytes.TrimSpace(raw)
	var f float64
	if t[0] == '"' {
		var s string
		if err := json.Unmarshal(t, &s); err != nil {
			return nil, fmt.Errorf("must be a number")
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil, nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("must be a number")
		}
		f = v
	} else if err := json.Unmarshal(t, &f); err != nil {
		return nil, fmt.Errorf("must be a number")
	}
	return &f, nil
}

func decodeInt(raw json.RawMessage) (*int, error) {
	f, err := decodeFloat(raw)
	if err != nil || f == nil {
		return nil, err
	}
	if *f != math.Trunc(*f) {
		return nil, fmt.Errorf("must be a whole number")
	}
	if math.Abs(*f) > maxSafeInteger {
		return nil, fmt.Errorf("is out of range")
	}
	v := int(*f)
	return &v, nil
}
