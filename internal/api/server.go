package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"toolcost/internal"
	"toolcost/internal/catalog"
	"toolcost/internal/config"
	"toolcost/internal/metrics"
	"toolcost/internal/pipeline"
	"toolcost/internal/render"
	"toolcost/internal/storage"
)

type Server struct {
	cfg    config.Config
	db     *storage.DB
	logger *zap.Logger
}

func NewServer(cfg config.Config, db *storage.DB, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{cfg: cfg, db: db, logger: logger}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /get_field_mapping", s.handleFieldMapping)
	mux.HandleFunc("POST /upload_csv", s.handleUploadCSV)
	mux.HandleFunc("POST /save_data", s.handleSaveData)
	mux.HandleFunc("GET /api/tool_cost/options", s.handleToolCostOptions)
	mux.HandleFunc("GET /api/tool_cost/record", s.handleToolCostRecord)
	mux.HandleFunc("DELETE /api/tool_cost/delete/{id}", s.handleToolCostDelete)
	mux.HandleFunc("GET /api/form/options", s.handleFormOptions)
	mux.HandleFunc("POST /compare", s.handleCompare)
	return withCORS(s.withMetrics(mux))
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleFieldMapping(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, pipeline.FieldMapping)
}

// handleUploadCSV answers with 200 even on failure; the form reads the
// success flag.
func (s *Server) handleUploadCSV(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(s.maxUploadBytes()); err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": "no file uploaded"})
		return
	}
	files := r.MultipartForm.File["csv_file"]
	if len(files) == 0 {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": "no file uploaded"})
		return
	}
	fh := files[0]
	if fh.Filename == "" {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": "no file selected"})
		return
	}
	if !strings.HasSuffix(strings.ToLower(fh.Filename), ".csv") {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": "please upload a CSV file"})
		return
	}

	f, err := fh.Open()
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": fmt.Sprintf("file parse error: %v", err)})
		return
	}
	defer f.Close()
	blob, err := io.ReadAll(f)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": fmt.Sprintf("file parse error: %v", err)})
		return
	}

	parsed, err := pipeline.ParseFlatFields(pipeline.DecodeText(blob))
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": fmt.Sprintf("file parse error: %v", err)})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    parsed,
		"message": fmt.Sprintf("parsed CSV file, found %d fields", len(parsed)),
	})
}

func (s *Server) handleSaveData(w http.ResponseWriter, r *http.Request) {
	var data map[string]any
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}

	id, err := s.db.SaveToolCost(data)
	var missing *storage.MissingFieldsError
	switch {
	case errors.As(err, &missing):
		writeErr(w, http.StatusBadRequest, err)
		return
	case errors.Is(err, storage.ErrDuplicateRecord):
		writeErr(w, http.StatusConflict, err)
		return
	case err != nil:
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	s.logger.Info("tool cost saved", zap.Int64("id", id))
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "msg": "saved", "id": id})
}

func (s *Server) handleToolCostOptions(w http.ResponseWriter, _ *http.Request) {
	opts, err := s.db.ToolCostOptions()
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, opts)
}

func (s *Server) handleToolCostRecord(w http.ResponseWriter, r *http.Request) {
	keys := make(map[string]string, len(storage.RequiredFields))
	for _, field := range storage.RequiredFields {
		keys[field] = r.URL.Query().Get(field)
	}
	rec, err := s.db.GetToolCost(keys)
	var missing *storage.MissingFieldsError
	switch {
	case errors.As(err, &missing):
		writeErr(w, http.StatusBadRequest, fmt.Errorf("all six key fields are required"))
		return
	case err != nil:
		writeErr(w, http.StatusInternalServerError, err)
		return
	case rec == nil:
		writeErr(w, http.StatusNotFound, fmt.Errorf("record not found"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "record": rec})
}

func (s *Server) handleToolCostDelete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}
	deleted, err := s.db.DeleteToolCost(id)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": deleted})
}

func (s *Server) handleFormOptions(w http.ResponseWriter, _ *http.Request) {
	opts, err := catalog.LoadFormOptions(s.cfg.FormOptionsXLSX)
	if err != nil {
		s.logger.Warn("form options workbook unreadable, serving defaults", zap.Error(err))
		opts = catalog.DefaultFormOptions()
	}
	writeJSON(w, http.StatusOK, opts)
}

// handleCompare runs one comparison over the uploaded "files". The format
// query value picks json (default), html, csv or xlsx output.
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(s.maxUploadBytes()); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("parse multipart: %w", err))
		return
	}

	session := pipeline.NewSession(s.cfg.CompareMaxFiles, "api", s.logger)
	for _, fh := range r.MultipartForm.File["files"] {
		session.Add(pipeline.Upload{
			Name:     fh.Filename,
			Size:     fh.Size,
			MIMEType: fh.Header.Get("Content-Type"),
			Source:   internal.SourceUpload,
			Open: func() (io.ReadCloser, error) {
				return fh.Open()
			},
		})
	}

	view, err := session.Compare()
	var readErr *pipeline.FileReadError
	switch {
	case errors.Is(err, pipeline.ErrTooFewFiles):
		writeErr(w, http.StatusBadRequest, fmt.Errorf("please select at least 2 CSV files to compare"))
		return
	case errors.As(err, &readErr):
		writeErr(w, http.StatusUnprocessableEntity, err)
		return
	case err != nil:
		writeErr(w, http.StatusInternalServerError, err)
		return
	}

	filename := "cost_comparison_" + time.Now().Format("2006-01-02")
	switch r.URL.Query().Get("format") {
	case "", "json":
		writeJSON(w, http.StatusOK, view)
	case "html":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, render.Page(view))
	case "csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`.csv"`)
		w.WriteHeader(http.StatusOK)
		if err := pipeline.WriteViewCSV(w, view); err != nil {
			s.logger.Warn("write csv", zap.Error(err))
		}
	case "xlsx":
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`.xlsx"`)
		w.WriteHeader(http.StatusOK)
		if err := pipeline.WriteViewXLSX(w, view); err != nil {
			s.logger.Warn("write xlsx", zap.Error(err))
		}
	default:
		writeErr(w, http.StatusBadRequest, fmt.Errorf("unknown format %q", r.URL.Query().Get("format")))
	}
}

func (s *Server) maxUploadBytes() int64 {
	mb := s.cfg.UploadMaxMB
	if mb <= 0 {
		mb = 32
	}
	return int64(mb) << 20
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr keeps the {ok, msg} body the entry form expects.
func writeErr(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]any{"ok": false, "msg": err.Error()})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) withMetrics(next *http.ServeMux) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		_, route := next.Handler(r)
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status))
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
