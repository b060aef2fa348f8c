package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/assetdesk/assetdesk/internal/allocation"
	"github.com/assetdesk/assetdesk/internal/csv"
	"github.com/assetdesk/assetdesk/internal/importer"
	"github.com/assetdesk/assetdesk/internal/logging"
	"github.com/assetdesk/assetdesk/internal/service"
	"github.com/assetdesk/assetdesk/internal/store"
)

// maxDisplayErrors is how many row errors the import response lists in its
// display summary; the full list stays in the outcome. Matches the truncated
// presentation the screens have always used.
const maxDisplayErrors = 5

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, map[string]string{"status": "ok"})
}

func (s *Server) handleListEntities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, s.service.ListEntities())
}

func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	entity := chi.URLParam(r, "entity")

	tpl, err := s.service.Template(entity)
	if err != nil {
		writeError(w, r, http.StatusNotFound, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", entity+"_template.csv"))
	io.WriteString(w, tpl)
}

// importResponse wraps an ImportReport with the truncated error display the
// screens render verbatim.
type importResponse struct {
	*service.ImportReport
	DisplayErrors []string `json:"displayErrors,omitempty"`
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	s.runImport(w, r, s.service.Import)
}

func (s *Server) handleImportPreview(w http.ResponseWriter, r *http.Request) {
	s.runImport(w, r, s.service.Preview)
}

func (s *Server) runImport(w http.ResponseWriter, r *http.Request, run func(ctx context.Context, entity, fileName, raw string) (*service.ImportReport, error)) {
	entity := chi.URLParam(r, "entity")

	raw, ok := s.readBody(w, r)
	if !ok {
		return
	}

	report, err := run(r.Context(), entity, r.Header.Get("X-File-Name"), raw)
	if err != nil {
		s.writeImportError(w, r, err)
		return
	}

	writeJSON(w, r, importResponse{
		ImportReport:  report,
		DisplayErrors: displayErrors(report.Outcome.Errors),
	})
}

// writeImportError maps engine errors onto HTTP statuses.
func (s *Server) writeImportError(w http.ResponseWriter, r *http.Request, err error) {
	var schemaErr *importer.SchemaError
	switch {
	case errors.Is(err, csv.ErrMalformedInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.As(err, &schemaErr):
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, service.ErrUnknownEntity):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrImportBusy):
		writeError(w, r, http.StatusConflict, err.Error())
	default:
		logging.FromContext(r.Context()).Error("import failed", "error", err)
		writeError(w, r, http.StatusInternalServerError, "import failed")
	}
}

// allocateRequest is the JSON body for allocation endpoints.
type allocateRequest struct {
	Requests []allocation.Request `json:"requests"`
}

func (s *Server) handleAllocate(w http.ResponseWriter, r *http.Request) {
	s.runAllocation(w, r, s.service.Allocate)
}

func (s *Server) handleAllocateValidate(w http.ResponseWriter, r *http.Request) {
	s.runAllocation(w, r, s.service.ValidateAllocation)
}

func (s *Server) runAllocation(w http.ResponseWriter, r *http.Request, run func(ctx context.Context, poolID string, requests []allocation.Request) (*service.AllocationReport, error)) {
	poolID := chi.URLParam(r, "poolID")

	var body allocateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&body); err != nil {
		writeError(w, r, http.StatusBadRequest, fmt.Sprintf("decode request: %v", err))
		return
	}

	report, err := run(r.Context(), poolID, body.Requests)
	if err != nil {
		s.writeAllocationError(w, r, err)
		return
	}

	writeJSON(w, r, report)
}

func (s *Server) writeAllocationError(w http.ResponseWriter, r *http.Request, err error) {
	var reqErr *allocation.RequestError
	var capErr *allocation.CapacityError
	switch {
	case errors.As(err, &reqErr), errors.As(err, &capErr):
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, store.ErrPoolNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrInsufficientStock):
		writeError(w, r, http.StatusConflict, err.Error())
	default:
		logging.FromContext(r.Context()).Error("allocation failed", "error", err)
		writeError(w, r, http.StatusInternalServerError, "allocation failed")
	}
}

func (s *Server) handleRelease(w http.ResponseWriter, r *http.Request) {
	poolID := chi.URLParam(r, "poolID")

	var assignment allocation.Assignment
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&assignment); err != nil {
		writeError(w, r, http.StatusBadRequest, fmt.Sprintf("decode request: %v", err))
		return
	}

	available, err := s.service.Release(r.Context(), poolID, assignment)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRelease) {
			writeError(w, r, http.StatusUnprocessableEntity, err.Error())
			return
		}
		if errors.Is(err, store.ErrPoolNotFound) {
			writeError(w, r, http.StatusNotFound, err.Error())
			return
		}
		logging.FromContext(r.Context()).Error("release failed", "error", err)
		writeError(w, r, http.StatusInternalServerError, "release failed")
		return
	}

	writeJSON(w, r, map[string]int{"available": available})
}

// readBody reads the raw CSV body subject to the configured size limit.
func (s *Server) readBody(w http.ResponseWriter, r *http.Request) (string, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.Import.MaxFileSize))
	if err != nil {
		writeError(w, r, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("upload exceeds %d byte limit", s.cfg.Import.MaxFileSize))
		return "", false
	}
	if len(body) == 0 {
		writeError(w, r, http.StatusBadRequest, "empty upload")
		return "", false
	}
	return string(body), true
}

// displayErrors renders the first few row errors for the UI plus a count of
// the rest.
func displayErrors(errs []importer.RowError) []string {
	if len(errs) == 0 {
		return nil
	}

	n := len(errs)
	if n > maxDisplayErrors {
		n = maxDisplayErrors
	}

	out := make([]string, 0, n+1)
	for _, e := range errs[:n] {
		out = append(out, fmt.Sprintf("row %d: %s", e.Row, e.Message))
	}
	if rest := len(errs) - n; rest > 0 {
		out = append(out, fmt.Sprintf("... and %d more", rest))
	}
	return out
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	logging.FromContext(r.Context()).Warn("request failed", "status", status, "message", message)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"error":%q}`, message)
}

// writeJSON encodes v as JSON and writes it to w.
func writeJSON(w http.ResponseWriter, r *http.Request, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context()).Error("json encode error", "error", err)
	}
}
