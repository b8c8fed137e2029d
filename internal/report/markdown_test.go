package report

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joelkehle/invoice-roi/internal/roi"
)

func sampleRequest(t *testing.T) Request {
	t.Helper()
	in := roi.ScenarioInputs{
		ScenarioName:              "Q4 pilot",
		MonthlyInvoiceVolume:      roi.Int(2000),
		NumAPStaff:                roi.Int(3),
		AvgHoursPerInvoice:        roi.Float(0.17),
		HourlyWage:                roi.Float(30),
		ErrorRateManual:           roi.Float(0.5),
		ErrorCost:                 roi.Float(100),
		TimeHorizonMonths:         roi.Int(36),
		OneTimeImplementationCost: roi.Float(50000),
	}
	res, err := roi.Calculate(in)
	require.NoError(t, err)
	return Request{
		Inputs:      in,
		Result:      res,
		Email:       "ap.lead@example.com",
		GeneratedAt: time.Date(2026, 3, 14, 15, 9, 26, 535000000, time.UTC),
	}
}

func TestBuildMarkdownContainsEveryField(t *testing.T) {
	md, err := BuildMarkdown(sampleRequest(t))
	require.NoError(t, err)

	for _, want := range []string{
		"# Invoicing ROI Analysis Report",
		"**Scenario:** Q4 pilot",
		"**Generated:** March 14, 2026",
		`**Contact:** ap.lead@example.com`,
		// results
		"| Monthly Savings | $143,000.00 |",
		"| Annual Savings | $1,716,000.00 |",
		"| Cumulative Savings (36 months) | $5,148,000.00 |",
		"| Net Savings | $5,098,000.00 |",
		"| Payback Period | 0.3 months |",
		"| ROI Percentage | 10196% |",
		"| Hours Saved per Month | 266.7 |",
		"**ROI over 36 months:** 10196%",
		// inputs
		"| Monthly Invoice Volume | 2,000 |",
		"| AP Staff Count | 3 |",
		"| Hours per Invoice | 0.17 |",
		"| Hourly Wage | $30.00 |",
		"| Manual Error Rate | 50% |",
		"| Error Cost | $100.00 |",
		"| Time Horizon | 36 months |",
		"| Implementation Cost | $50,000.00 |",
		// breakdown
		"| Current Manual Labor Cost | $30,600.00/month |",
		"| Automation Cost | $400.00/month |",
		"| Error Reduction Savings | $99,800.00/month |",
		"| One-time Implementation Cost | $50,000.00 |",
		"**Net Monthly Benefit**",
		"## Why Automate Now?",
		"Generated by Invoicing ROI Simulator | 2026",
	} {
		assert.Contains(t, md, want)
	}
}

func TestBuildMarkdownDefaultsScenarioName(t *testing.T) {
	req := sampleRequest(t)
	req.Inputs.ScenarioName = "  "
	md, err := BuildMarkdown(req)
	require.NoError(t, err)
	assert.Contains(t, md, "**Scenario:** Custom Simulation")
}

func TestBuildMarkdownEscapesUserText(t *testing.T) {
	req := sampleRequest(t)
	req.Inputs.ScenarioName = "*bold* | [link](x)"
	md, err := BuildMarkdown(req)
	require.NoError(t, err)
	assert.Contains(t, md, `\*bold\* \| \[link\](x)`)
}

func TestBuildMarkdownRequiresInputs(t *testing.T) {
	req := sampleRequest(t)
	req.Inputs.ErrorCost = nil
	_, err := BuildMarkdown(req)
	var missing *roi.MissingInputError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []string{"error_cost"}, missing.Fields)
}

func TestFormatters(t *testing.T) {
	assert.Equal(t, "$0.00", formatMoney(0))
	assert.Equal(t, "$999.50", formatMoney(999.5))
	assert.Equal(t, "$1,000.00", formatMoney(1000))
	assert.Equal(t, "-$12,345,678.90", formatMoney(-12345678.9))
	assert.Equal(t, "0.3", formatDecimal(0.3))
	assert.Equal(t, "10196", formatDecimal(10196))
	assert.Equal(t, "-2", formatDecimal(-2))
	assert.Equal(t, "123,456", formatCount(123456))
	assert.Equal(t, "5%", formatErrorRate(5))
	assert.Equal(t, "1.5%", formatErrorRate(0.015))
}

func TestBuildHTMLRendersTables(t *testing.T) {
	md, err := BuildMarkdown(sampleRequest(t))
	require.NoError(t, err)
	doc, err := BuildHTML(md)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(doc, "<!doctype html>"))
	assert.Contains(t, doc, "<title>Invoicing ROI Analysis Report</title>")
	assert.Contains(t, doc, "<table>")
	assert.Contains(t, doc, `<h2 data-highlight="true">Key Benefits of Automation</h2>`)
}

func TestBuildHTMLOmitsRawHTML(t *testing.T) {
	doc, err := BuildHTML("<script>alert(1)</script>\n\ntext")
	require.NoError(t, err)
	assert.NotContains(t, doc, "<script>")
}
