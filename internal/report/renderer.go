package report

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/joelkehle/invoice-roi/internal/report")

const (
	renderTimeout = 30 * time.Second
	// 20mm in inches.
	pageMargin = 0.79
)

// ChromiumRenderer prints the report HTML to an A4 PDF with headless Chrome.
type ChromiumRenderer struct {
	archive    *Archive
	chromePath string
	clock      func() time.Time
	token      func() string
}

// NewChromiumRenderer uses chromePath when set and otherwise looks for a
// locally installed Chrome or Chromium.
func NewChromiumRenderer(archive *Archive, chromePath string) *ChromiumRenderer {
	if chromePath == "" {
		chromePath = detectChromePath()
	}
	return &ChromiumRenderer{archive: archive, chromePath: chromePath, clock: time.Now, token: newToken}
}

// Available reports whether a browser binary was found.
func (r *ChromiumRenderer) Available() bool { return r.chromePath != "" }

func (r *ChromiumRenderer) Render(ctx context.Context, req Request) (Document, error) {
	ctx, span := startRenderSpan(ctx, "pdf", req)
	defer span.End()

	if req.GeneratedAt.IsZero() {
		req.GeneratedAt = r.clock()
	}
	htmlDoc, err := buildDocument(req)
	if err != nil {
		return Document{}, failSpan(span, err)
	}
	pdf, err := r.printPDF(ctx, htmlDoc)
	if err != nil {
		return Document{}, failSpan(span, renderErr("pdf", err))
	}
	doc, err := r.archive.store(req, "pdf", "application/pdf", pdf, r.token)
	if err != nil {
		return Document{}, failSpan(span, renderErr("write", err))
	}
	span.SetAttributes(attribute.String("report.filename", doc.Name), attribute.Int64("report.size", doc.Size))
	return doc, nil
}

func (r *ChromiumRenderer) printPDF(ctx context.Context, htmlDoc string) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, renderTimeout)
	defer cancel()

	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
	}
	if r.chromePath != "" {
		opts = append(opts, chromedp.ExecPath(r.chromePath))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(timeoutCtx, append(chromedp.DefaultExecAllocatorOptions[:], opts...)...)
	defer allocCancel()

	taskCtx, taskCancel := chromedp.NewContext(allocCtx)
	defer taskCancel()

	var pdf []byte
	dataURL := "data:text/html;base64," + base64.StdEncoding.EncodeToString([]byte(htmlDoc))
	if err := chromedp.Run(taskCtx,
		chromedp.Navigate(dataURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			out, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(8.27).
				WithPaperHeight(11.69).
				WithMarginTop(pageMargin).
				WithMarginBottom(pageMargin).
				WithMarginLeft(pageMargin).
				WithMarginRight(pageMargin).
				Do(ctx)
			if err != nil {
				return err
			}
			pdf = out
			return nil
		}),
	); err != nil {
		return nil, fmt.Errorf("print to pdf: %w", err)
	}
	return pdf, nil
}

// HTMLRenderer archives the report as a standalone HTML page. It needs no
// browser and is the fallback when Chrome is not installed.
type HTMLRenderer struct {
	archive *Archive
	clock   func() time.Time
	token   func() string
}

func NewHTMLRenderer(archive *Archive) *HTMLRenderer {
	return &HTMLRenderer{archive: archive, clock: time.Now, token: newToken}
}

func (r *HTMLRenderer) Render(ctx context.Context, req Request) (Document, error) {
	_, span := startRenderSpan(ctx, "html", req)
	defer span.End()

	if err := ctx.Err(); err != nil {
		return Document{}, failSpan(span, renderErr("html", err))
	}
	if req.GeneratedAt.IsZero() {
		req.GeneratedAt = r.clock()
	}
	htmlDoc, err := buildDocument(req)
	if err != nil {
		return Document{}, failSpan(span, err)
	}
	doc, err := r.archive.store(req, "html", "text/html; charset=utf-8", []byte(htmlDoc), r.token)
	if err != nil {
		return Document{}, failSpan(span, renderErr("write", err))
	}
	span.SetAttributes(attribute.String("report.filename", doc.Name))
	return doc, nil
}

func startRenderSpan(ctx context.Context, format string, req Request) (context.Context, trace.Span) {
	return tracer.Start(ctx, "report.render", trace.WithAttributes(
		attribute.String("report.format", format),
		attribute.String("scenario.name", req.Inputs.ScenarioName),
	))
}

func failSpan(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func detectChromePath() string {
	candidates := []string{
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/usr/bin/google-chrome",
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, name := range []string{"chromium", "chromium-browser", "google-chrome", "google-chrome-stable"} {
		if p, err := exec.LookPath(name); err == nil {
			return p
		}
	}
	return ""
}

var (
	_ Renderer = (*ChromiumRenderer)(nil)
	_ Renderer = (*HTMLRenderer)(nil)
)
