package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/joelkehle/invoice-roi/internal/roi"
)

// Request is everything a report is built from.
type Request struct {
	Inputs      roi.ScenarioInputs
	Result      roi.CalculationResult
	Email       string
	GeneratedAt time.Time
}

// Document identifies a rendered report inside an Archive. Name is the opaque
// handle clients later pass to Open.
type Document struct {
	Name        string `json:"filename"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

type Renderer interface {
	Render(ctx context.Context, req Request) (Document, error)
}

// ErrNotFound is returned by Archive.Open for unknown or unsafe names.
var ErrNotFound = errors.New("report not found")

// ErrNameTaken is returned when a document name is already in the archive.
var ErrNameTaken = errors.New("report name already exists")

// RenderError wraps a failure in one stage of the render pipeline.
type RenderError struct {
	Stage string
	Err   error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render report (%s): %v", e.Stage, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

func renderErr(stage string, err error) error {
	return &RenderError{Stage: stage, Err: err}
}
