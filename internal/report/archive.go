package report

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Archive is the directory rendered reports are written to and served from.
type Archive struct {
	dir string
}

func NewArchive(dir string) (*Archive, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("report directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create report directory: %w", err)
	}
	return &Archive{dir: dir}, nil
}

func (a *Archive) Dir() string { return a.dir }

// FileName builds roi-report-<name>-<timestamp>[-<token>].<ext>. A blank
// scenario name becomes "simulation". The timestamp has millisecond
// precision; token distinguishes reports rendered in the same millisecond.
func FileName(scenarioName, ext string, at time.Time, token string) string {
	name := "simulation"
	if strings.TrimSpace(scenarioName) != "" {
		name = sanitizeFilename(scenarioName)
	}
	at = at.UTC()
	stamp := fmt.Sprintf("%s-%03dZ", at.Format("2006-01-02T15-04-05"), at.Nanosecond()/int(time.Millisecond))
	if token != "" {
		stamp += "-" + sanitizeFilename(token)
	}
	return "roi-report-" + name + "-" + stamp + "." + ext
}

// newToken returns a short random suffix for document names.
func newToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// write stores data under name without replacing an existing document. The
// bytes land in a private temp file first and are then hard-linked into
// place, which fails instead of overwriting when the name is taken.
func (a *Archive) write(name, contentType string, data []byte) (Document, error) {
	tmp, err := os.CreateTemp(a.dir, name+".*.tmp")
	if err != nil {
		return Document{}, err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return Document{}, err
	}
	if err := tmp.Close(); err != nil {
		return Document{}, err
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return Document{}, err
	}
	if err := os.Link(tmpPath, filepath.Join(a.dir, name)); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return Document{}, fmt.Errorf("%w: %s", ErrNameTaken, name)
		}
		return Document{}, err
	}
	return Document{Name: name, Size: int64(len(data)), ContentType: contentType}, nil
}

const storeAttempts = 3

// store writes a rendered report under a fresh name, drawing a new token
// when the previous name is already taken.
func (a *Archive) store(req Request, ext, contentType string, data []byte, token func() string) (Document, error) {
	var err error
	for range storeAttempts {
		var doc Document
		doc, err = a.write(FileName(req.Inputs.ScenarioName, ext, req.GeneratedAt, token()), contentType, data)
		if !errors.Is(err, ErrNameTaken) {
			return doc, err
		}
	}
	return Document{}, err
}

// Open resolves a document name for download. Names that are not a plain
// file name inside the archive are treated as missing.
func (a *Archive) Open(name string) (*os.File, Document, error) {
	if !safeName(name) {
		return nil, Document{}, ErrNotFound
	}
	path := filepath.Join(a.dir, name)
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return nil, Document{}, ErrNotFound
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, Document{}, fmt.Errorf("open report: %w", err)
	}
	return f, Document{Name: name, Size: info.Size(), ContentType: contentTypeFor(name)}, nil
}

func safeName(name string) bool {
	if name == "" || strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".tmp") {
		return false
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return false
	}
	return filepath.Base(name) == name
}

func contentTypeFor(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return "application/pdf"
	case ".html":
		return "text/html; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}

func sanitizeFilename(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "report"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, v)
}
