package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/joelkehle/invoice-roi/internal/report"
	"github.com/joelkehle/invoice-roi/internal/roi"
	"github.com/joelkehle/invoice-roi/internal/scenario"
)

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	blob, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, &requestError{Message: "Invalid request body"}
	}
	return blob, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "OK",
		"timestamp": s.opts.Clock().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	})
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	in, err := s.readInputs(w, r)
	if err != nil {
		s.writeFault(w, r, err, "Calculation failed")
		return
	}
	res, err := s.calculate(r.Context(), in)
	if err != nil {
		s.writeFault(w, r, err, "Calculation failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"inputs":  in,
		"results": res,
	})
}

func (s *Server) readInputs(w http.ResponseWriter, r *http.Request) (roi.ScenarioInputs, error) {
	body, err := readBody(w, r)
	if err != nil {
		return roi.ScenarioInputs{}, err
	}
	raw, err := decodeObject(body)
	if err != nil {
		return roi.ScenarioInputs{}, err
	}
	return decodeInputs(raw)
}

func (s *Server) handleSaveScenario(w http.ResponseWriter, r *http.Request) {
	in, err := s.readInputs(w, r)
	if err != nil {
		s.writeFault(w, r, err, "Failed to save scenario")
		return
	}
	if err := roi.CheckInputs(in); err != nil {
		s.metrics.ValidationFailures.Inc()
		s.writeFault(w, r, err, "Failed to save scenario")
		return
	}
	if strings.TrimSpace(in.ScenarioName) == "" {
		s.writeFault(w, r, scenario.ErrNameRequired, "Failed to save scenario")
		return
	}
	res, err := s.calculate(r.Context(), in)
	if err != nil {
		s.writeFault(w, r, err, "Failed to save scenario")
		return
	}
	saved, err := s.store.Save(r.Context(), in, res)
	if err != nil {
		s.writeFault(w, r, err, "Failed to save scenario")
		return
	}
	s.metrics.ScenariosSaved.Inc()
	s.logger.Info("scenario saved", zap.Int64("id", saved.ID), zap.String("name", saved.ScenarioName))
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"scenario": saved,
		"results":  res,
	})
}

func (s *Server) handleListScenarios(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.List(r.Context())
	if err != nil {
		s.writeFault(w, r, err, "Failed to fetch scenarios")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"scenarios": list,
	})
}

// scenarioID parses the {id} path segment. Anything that is not a positive
// integer cannot name a scenario.
func scenarioID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, scenario.ErrNotFound
	}
	return id, nil
}

func (s *Server) handleGetScenario(w http.ResponseWriter, r *http.Request) {
	id, err := scenarioID(r)
	if err != nil {
		s.writeFault(w, r, err, "Failed to fetch scenario")
		return
	}
	sc, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.writeFault(w, r, err, "Failed to fetch scenario")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"scenario": sc,
	})
}

func (s *Server) handleDeleteScenario(w http.ResponseWriter, r *http.Request) {
	id, err := scenarioID(r)
	if err != nil {
		s.writeFault(w, r, err, "Failed to delete scenario")
		return
	}
	if err := s.store.Delete(r.Context(), id); err != nil {
		s.writeFault(w, r, err, "Failed to delete scenario")
		return
	}
	s.logger.Info("scenario deleted", zap.Int64("id", id))
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Scenario deleted successfully",
	})
}

func (s *Server) handleGenerateReport(w http.ResponseWriter, r *http.Request) {
	const title = "Failed to generate report"
	body, err := readBody(w, r)
	if err != nil {
		s.writeFault(w, r, err, title)
		return
	}
	raw, err := decodeObject(body)
	if err != nil {
		s.writeFault(w, r, err, title)
		return
	}

	email, err := decodeString(raw["email"])
	email = strings.TrimSpace(email)
	if err != nil || !strings.Contains(email, "@") {
		writeError(w, http.StatusBadRequest, "Valid email address is required")
		return
	}
	if absent(raw["scenarioData"]) {
		writeError(w, http.StatusBadRequest, "Scenario data is required")
		return
	}
	data, err := decodeObject(raw["scenarioData"])
	if err != nil {
		s.writeFault(w, r, &requestError{Message: "Scenario data must be an object"}, title)
		return
	}
	in, err := decodeInputs(data)
	if err != nil {
		s.writeFault(w, r, err, title)
		return
	}

	res, err := s.reportResults(r, in, data["results"])
	if err != nil {
		s.writeFault(w, r, err, title)
		return
	}

	doc, err := s.renderer.Render(r.Context(), report.Request{
		Inputs:      in,
		Result:      res,
		Email:       email,
		GeneratedAt: s.opts.Clock(),
	})
	if err != nil {
		s.metrics.ReportsRendered.WithLabelValues("error").Inc()
		s.writeFault(w, r, err, title)
		return
	}
	s.metrics.ReportsRendered.WithLabelValues("ok").Inc()
	s.logger.Info("report generated",
		zap.String("filename", doc.Name),
		zap.Int64("size", doc.Size),
		zap.String("request_id", requestID(r)),
	)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"message":  "Report generated successfully",
		"filename": doc.Name,
	})
}

// reportResults recomputes the metrics whenever the inputs validate so a
// report never shows figures that disagree with its inputs. Supplied results
// are used only for inputs the calculator would reject.
func (s *Server) reportResults(r *http.Request, in roi.ScenarioInputs, supplied json.RawMessage) (roi.CalculationResult, error) {
	if roi.CheckInputs(in) == nil || absent(supplied) {
		return s.calculate(r.Context(), in)
	}
	var res roi.CalculationResult
	if err := json.Unmarshal(supplied, &res); err != nil {
		return roi.CalculationResult{}, &requestError{Message: "Invalid input", Details: []string{"results must be an object of metrics"}}
	}
	if missing := roi.MissingFields(in); len(missing) > 0 {
		return roi.CalculationResult{}, &roi.MissingInputError{Fields: missing}
	}
	return res, nil
}

func (s *Server) handleDownloadReport(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["filename"]
	f, doc, err := s.archive.Open(name)
	if err != nil {
		s.writeFault(w, r, err, "Failed to download report")
		return
	}
	defer f.Close()

	modTime := time.Time{}
	if info, err := f.Stat(); err == nil {
		modTime = info.ModTime()
	}
	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Name))
	http.ServeContent(w, r, doc.Name, modTime, f)
}

// handleRoot serves the single-page frontend. Unknown paths fall back to
// index.html so client-side routes resolve; unknown /api paths are JSON 404s.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") || s.opts.WebDir == "" {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	clean := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
	if clean != "" && clean != "index.html" {
		if info, err := fs.Stat(os.DirFS(s.opts.WebDir), clean); err == nil && !info.IsDir() {
			http.ServeFile(w, r, filepath.Join(s.opts.WebDir, filepath.FromSlash(clean)))
			return
		}
	}
	index := filepath.Join(s.opts.WebDir, "index.html")
	if _, err := os.Stat(index); err != nil {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	// Prevent stale frontend bundles from breaking the UI after deploys.
	w.Header().Set("Cache-Control", "no-store")
	http.ServeFile(w, r, index)
}
