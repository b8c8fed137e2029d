package report

import (
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/joelkehle/invoice-roi/internal/roi"
)

const reportTitle = "Invoicing ROI Analysis Report"

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"md":      escapeMarkdown,
	"money":   formatMoney,
	"decimal": formatDecimal,
	"count":   formatCount,
	"rate":    formatErrorRate,
}).Parse(`# {{.Title}}

**Scenario:** {{md .Scenario}}  
**Generated:** {{.Generated}}  
**Contact:** {{md .Email}}

## Key Benefits of Automation

- **Monthly Savings:** {{money .Result.MonthlySavings}}
- **Payback Period:** {{decimal .Result.PaybackMonths}} months
- **ROI over {{.Horizon}} months:** {{decimal .Result.ROIPercentage}}%
- **Hours Saved Monthly:** {{decimal .Result.HoursSavedPerMonth}} hours

## Summary

| Metric | Value |
|---|---|
| Monthly Savings | {{money .Result.MonthlySavings}} |
| Annual Savings | {{money .Result.AnnualSavings}} |
| Cumulative Savings ({{.Horizon}} months) | {{money .Result.CumulativeSavings}} |
| Net Savings | {{money .Result.NetSavings}} |
| Payback Period | {{decimal .Result.PaybackMonths}} months |
| ROI Percentage | {{decimal .Result.ROIPercentage}}% |
| Hours Saved per Month | {{decimal .Result.HoursSavedPerMonth}} |

## Input Parameters

| Parameter | Value |
|---|---|
| Monthly Invoice Volume | {{count .Volume}} |
| AP Staff Count | {{count .Staff}} |
| Hours per Invoice | {{decimal .HoursPerInvoice}} |
| Hourly Wage | {{money .HourlyWage}} |
| Manual Error Rate | {{rate .ErrorRate}} |
| Error Cost | {{money .ErrorCost}} |
| Time Horizon | {{.Horizon}} months |
| Implementation Cost | {{money .ImplementationCost}} |

## Cost Breakdown

| Item | Amount |
|---|---|
| Current Manual Labor Cost | {{money .Result.Breakdown.LaborCostManual}}/month |
| Automation Cost | {{money .Result.Breakdown.AutoCost}}/month |
| Error Reduction Savings | {{money .Result.Breakdown.ErrorSavings}}/month |
| One-time Implementation Cost | {{money .Result.Breakdown.ImplementationCost}} |
| **Net Monthly Benefit** | **{{money .Result.MonthlySavings}}** |

## Why Automate Now?

- Reduce manual processing time by 80%
- Minimize human errors and associated costs
- Free up staff for higher-value activities
- Improve cash flow with faster processing
- Scale operations without proportional headcount increases

---

This analysis is based on your provided inputs and industry-standard automation benefits.

Generated by Invoicing ROI Simulator | {{.Year}}
`))

type reportView struct {
	Title              string
	Scenario           string
	Generated          string
	Year               int
	Email              string
	Result             roi.CalculationResult
	Volume             int
	Staff              int
	HoursPerInvoice    float64
	HourlyWage         float64
	ErrorRate          float64
	ErrorCost          float64
	Horizon            int
	ImplementationCost float64
}

// BuildMarkdown renders the report body. Every required input must be present.
func BuildMarkdown(req Request) (string, error) {
	in := req.Inputs
	if missing := roi.MissingFields(in); len(missing) > 0 {
		return "", &roi.MissingInputError{Fields: missing}
	}
	generated := req.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}
	scenario := strings.TrimSpace(in.ScenarioName)
	if scenario == "" {
		scenario = "Custom Simulation"
	}

	view := reportView{
		Title:              reportTitle,
		Scenario:           scenario,
		Generated:          generated.UTC().Format("January 2, 2006"),
		Year:               generated.UTC().Year(),
		Email:              strings.TrimSpace(req.Email),
		Result:             req.Result,
		Volume:             *in.MonthlyInvoiceVolume,
		Staff:              *in.NumAPStaff,
		HoursPerInvoice:    *in.AvgHoursPerInvoice,
		HourlyWage:         *in.HourlyWage,
		ErrorRate:          *in.ErrorRateManual,
		ErrorCost:          *in.ErrorCost,
		Horizon:            *in.TimeHorizonMonths,
		ImplementationCost: in.ImplementationCost(),
	}
	var out strings.Builder
	if err := reportTemplate.Execute(&out, view); err != nil {
		return "", err
	}
	return out.String(), nil
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "*", `\*`, "_", `\_`, "`", "\\`", "[", `\[`, "]", `\]`,
	"<", `\<`, ">", `\>`, "#", `\#`, "|", `\|`,
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// formatMoney renders v as dollars with thousands separators and cents.
func formatMoney(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	s := strconv.FormatFloat(v, 'f', 2, 64)
	whole, frac, _ := strings.Cut(s, ".")
	return sign + "$" + groupThousands(whole) + "." + frac
}

// formatDecimal prints at most two decimals without trailing zeros.
func formatDecimal(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

func formatCount(n int) string {
	if n < 0 {
		return "-" + groupThousands(strconv.Itoa(-n))
	}
	return groupThousands(strconv.Itoa(n))
}

// formatErrorRate shows the rate as the percentage the calculator applies.
func formatErrorRate(rate float64) string {
	return formatDecimal(roi.NormalizeErrorRate(rate)*100) + "%"
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
