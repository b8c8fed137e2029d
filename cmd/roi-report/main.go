package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/joelkehle/invoice-roi/internal/logging"
	"github.com/joelkehle/invoice-roi/internal/report"
	"github.com/joelkehle/invoice-roi/internal/roi"
)

// scenarioFile is the JSON the CLI reads: scenario inputs plus an optional
// contact email.
type scenarioFile struct {
	roi.ScenarioInputs
	Email string `json:"email"`
}

func main() {
	inputPath := flag.String("input", "", "Path to scenario inputs JSON")
	format := flag.String("format", "md", "Output format: md, html or pdf")
	outputPath := flag.String("output", "", "Path to write markdown (md only, defaults to stdout)")
	dir := flag.String("dir", "reports", "Directory for html and pdf reports")
	email := flag.String("email", "", "Contact email shown in the report header (overrides the input file)")
	chromePath := flag.String("chrome", "", "Chrome or Chromium binary for pdf output")
	flag.Parse()

	logger, err := logging.New("info", "console")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	if *inputPath == "" {
		logger.Fatal("missing required -input")
	}
	req, err := loadRequest(*inputPath)
	if err != nil {
		logger.Fatal("load scenario", zap.Error(err))
	}
	if *email != "" {
		req.Email = *email
	}

	switch *format {
	case "md":
		md, err := report.BuildMarkdown(req)
		if err != nil {
			logger.Fatal("build markdown", zap.Error(err))
		}
		if err := writeMarkdown(*outputPath, md); err != nil {
			logger.Fatal("write markdown", zap.Error(err))
		}
	case "html", "pdf":
		archive, err := report.NewArchive(*dir)
		if err != nil {
			logger.Fatal("open report directory", zap.Error(err))
		}
		var renderer report.Renderer = report.NewHTMLRenderer(archive)
		if *format == "pdf" {
			renderer = report.NewChromiumRenderer(archive, *chromePath)
		}
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		doc, err := renderer.Render(ctx, req)
		if err != nil {
			logger.Fatal("render report", zap.Error(err))
		}
		logger.Info("report written", zap.String("dir", archive.Dir()), zap.String("filename", doc.Name), zap.Int64("size", doc.Size))
	default:
		logger.Fatal("unknown -format", zap.String("format", *format))
	}
}

// loadRequest reads inputs, validates them and computes the metrics.
func loadRequest(path string) (report.Request, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return report.Request{}, err
	}
	var in scenarioFile
	if err := json.Unmarshal(blob, &in); err != nil {
		return report.Request{}, fmt.Errorf("decode %s: %w", path, err)
	}
	if err := roi.CheckInputs(in.ScenarioInputs); err != nil {
		return report.Request{}, err
	}
	res, err := roi.Calculate(in.ScenarioInputs)
	if err != nil {
		return report.Request{}, err
	}
	return report.Request{
		Inputs:      in.ScenarioInputs,
		Result:      res,
		Email:       strings.TrimSpace(in.Email),
		GeneratedAt: time.Now(),
	}, nil
}

func writeMarkdown(outputPath, markdown string) error {
	if outputPath == "" {
		_, err := fmt.Print(markdown)
		return err
	}
	return os.WriteFile(outputPath, []byte(markdown), 0o644)
}
