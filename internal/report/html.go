package report

import (
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

const reportCSS = `
body{font-family:'Segoe UI',Tahoma,Geneva,Verdana,sans-serif;line-height:1.6;color:#333;max-width:800px;margin:0 auto;padding:20px;background:#fff;}
html,body,*{-webkit-print-color-adjust:exact !important;print-color-adjust:exact !important;}
h1{color:#007acc;text-align:center;font-size:28px;margin:0 0 10px 0;}
h1 + p{text-align:center;color:#666;border-bottom:3px solid #007acc;padding-bottom:20px;margin-bottom:30px;}
h2{color:#007acc;border-bottom:2px solid #007acc;padding-bottom:8px;margin-top:28px;}
h2[data-highlight="true"]{border:0;margin-bottom:0;color:#fff;background:#007acc;padding:14px 20px 4px;border-radius:8px 8px 0 0;}
h2[data-highlight="true"] + ul{background:#0056b3;color:#fff;margin-top:0;padding:10px 20px 16px 40px;border-radius:0 0 8px 8px;}
table{width:100%;border-collapse:collapse;border:1px solid #dee2e6;font-size:0.9rem;}
th,td{border:1px solid #dee2e6;padding:0.4rem 0.6rem;text-align:left;vertical-align:top;}
thead th{background:#f8f9fa;font-weight:700;}
td:last-child{font-weight:600;}
hr{border:0;border-top:1px solid #dee2e6;margin-top:40px;}
hr ~ p{text-align:center;color:#666;font-size:12px;}
@media print{body{margin:0;padding:0;}}
`

var markdownEngine = goldmark.New(goldmark.WithExtensions(extension.GFM))

// BuildHTML converts the report markdown into a standalone HTML document.
func BuildHTML(markdown string) (string, error) {
	var content strings.Builder
	if err := markdownEngine.Convert([]byte(markdown), &content); err != nil {
		return "", fmt.Errorf("markdown convert: %w", err)
	}
	body := strings.Replace(content.String(),
		"<h2>Key Benefits of Automation</h2>",
		`<h2 data-highlight="true">Key Benefits of Automation</h2>`, 1)

	return "<!doctype html><html lang='en'><head><meta charset='utf-8'>" +
		"<meta name='viewport' content='width=device-width, initial-scale=1.0'>" +
		"<title>" + html.EscapeString(reportTitle) + "</title>" +
		"<style>" + reportCSS + "</style></head><body>" +
		body +
		"</body></html>", nil
}

// buildDocument runs the shared markdown and HTML stages.
func buildDocument(req Request) (string, error) {
	markdown, err := BuildMarkdown(req)
	if err != nil {
		return "", renderErr("markdown", err)
	}
	doc, err := BuildHTML(markdown)
	if err != nil {
		return "", renderErr("html", err)
	}
	return doc, nil
}
