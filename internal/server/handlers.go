package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/raaihank/pii-redactor/internal/audit"
	"github.com/raaihank/pii-redactor/internal/ingest"
	"github.com/raaihank/pii-redactor/internal/logger"
	"github.com/raaihank/pii-redactor/internal/metrics"
	"github.com/raaihank/pii-redactor/internal/privacy"
	"github.com/raaihank/pii-redactor/internal/websocket"
	"go.uber.org/zap"
)

// multipart framing allowed on top of max_file_mb
const multipartOverhead = 1 << 20

// RedactRequest is the body of POST /api/v1/redact
type RedactRequest struct {
	Text string `json:"text"`
}

// RedactResponse is returned for a redacted text
type RedactResponse struct {
	SessionID  string              `json:"session_id"`
	MaskedText string              `json:"masked_text"`
	Detections []privacy.Detection `json:"detections"`
	Summary    map[string]int      `json:"summary"`
	LatencyMS  float64             `json:"latency_ms"`
}

// FileResponse is returned for a redacted file
type FileResponse struct {
	SessionID       string            `json:"session_id"`
	FileName        string            `json:"file_name"`
	Format          string            `json:"format"`
	Records         int               `json:"records"`
	Skipped         int               `json:"skipped"`
	TotalDetections int               `json:"total_detections"`
	Categories      map[string]int    `json:"categories"`
	LatencyMS       float64           `json:"latency_ms"`
	AuditLatencyMS  float64           `json:"audit_latency_ms"`
	Redacted        json.RawMessage   `json:"redacted"`
	AuditCSV        string            `json:"audit_csv"`
	Accuracy        *metrics.Accuracy `json:"accuracy,omitempty"`
	ReportCSV       string            `json:"report_csv,omitempty"`
}

// SessionMetricsResponse is the session summary plus, when the audit sink
// can report it, the audited detections per category
type SessionMetricsResponse struct {
	metrics.Summary
	AuditCategories map[string]int `json:"audit_categories,omitempty"`
}

// RuleInfo describes one enabled rule
type RuleInfo struct {
	Name        string `json:"name"`
	Style       string `json:"style"`
	Pattern     string `json:"pattern"`
	Placeholder string `json:"placeholder,omitempty"`
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// handleInfo handles info requests
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":              "pii-redactor",
		"version":           Version,
		"redaction_enabled": s.detector.Enabled(),
		"rules":             s.detector.EnabledRules(),
		"websocket":         s.wsHub.Stats(),
	})
}

func (s *Server) handleRedactText(w http.ResponseWriter, r *http.Request) {
	reqID := requestID(r.Context())
	session := sessionID(r.Context())
	log := s.logger.WithRequestID(reqID).WithSession(session)

	if limit := s.config.Redaction.MaxTextBytes; limit > 0 {
		// Room for the JSON envelope around the text
		r.Body = http.MaxBytesReader(w, r.Body, int64(limit)+1024)
	}

	var req RedactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "text too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	if limit := s.config.Redaction.MaxTextBytes; limit > 0 && len(req.Text) > limit {
		writeError(w, http.StatusRequestEntityTooLarge, "text too large")
		return
	}

	outcome := s.detector.ProcessText(req.Text)
	counts := outcome.CountByCategory()
	log.LogRedaction(audit.SourceText, counts, outcome.LatencyMS)

	if err := s.collector.RecordText(r.Context(), session, outcome); err != nil {
		log.Warn("Failed to record text metrics", zap.Error(err))
	}
	s.writeAudit(r, log, audit.FromOutcome(session, reqID, audit.SourceText, outcome, time.Now()))
	s.wsHub.BroadcastRedaction(session, reqID, clientIP(r), outcome)

	writeJSON(w, http.StatusOK, RedactResponse{
		SessionID:  session,
		MaskedText: outcome.MaskedText,
		Detections: outcome.Detections,
		Summary:    counts,
		LatencyMS:  outcome.LatencyMS,
	})
}

func (s *Server) handleRedactFile(w http.ResponseWriter, r *http.Request) {
	reqID := requestID(r.Context())
	session := sessionID(r.Context())
	log := s.logger.WithRequestID(reqID).WithSession(session)

	maxBytes := int64(s.config.Redaction.MaxFileMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	if header.Size > maxBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "file too large")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		log.Error("Failed to read upload", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to read file")
		return
	}

	ds, err := ingest.Load(header.Filename, data, ingest.LoadOptions{
		TextField: s.config.Redaction.TextField,
		IDField:   s.config.Redaction.IDField,
	})
	if err != nil {
		if errors.Is(err, ingest.ErrUnsupportedFormat) {
			writeError(w, http.StatusUnsupportedMediaType, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.pipeline.Process(r.Context(), session, ds)
	if err != nil {
		log.Warn("File redaction aborted", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "redaction cancelled")
		return
	}

	redacted, err := ingest.EncodeJSON(result.Records)
	if err != nil {
		log.Error("Failed to encode redacted records", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to encode output")
		return
	}

	var auditCSV bytes.Buffer
	if err := audit.WriteCSV(&auditCSV, result.Audit); err != nil {
		log.Error("Failed to render audit CSV", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to render audit log")
		return
	}
	s.writeAudit(r, log, result.Audit)

	stats := result.Stats
	resp := FileResponse{
		SessionID:       session,
		FileName:        header.Filename,
		Format:          string(ds.Format),
		Records:         stats.Records,
		Skipped:         stats.Skipped,
		TotalDetections: stats.Detections,
		Categories:      stats.Categories,
		LatencyMS:       stats.LatencyMS(),
		AuditLatencyMS:  stats.AuditLatencyMS(),
		Redacted:        redacted,
		AuditCSV:        auditCSV.String(),
	}

	if err := s.collector.RecordFile(r.Context(), session, metrics.FileSample{
		FileName:       header.Filename,
		Records:        stats.Records,
		PIICount:       stats.Detections,
		LatencyMS:      stats.LatencyMS(),
		AuditLatencyMS: stats.AuditLatencyMS(),
		Categories:     stats.Categories,
	}); err != nil {
		log.Warn("Failed to record file metrics", zap.Error(err))
	}

	if metrics.IsGroundTruthFile(header.Filename) {
		s.evaluateGroundTruth(r, log, data, result.Audit, &resp)
	}

	event := websocket.FileProcessedEvent{
		FileName:        resp.FileName,
		Format:          resp.Format,
		Records:         resp.Records,
		Skipped:         resp.Skipped,
		TotalDetections: resp.TotalDetections,
		Categories:      resp.Categories,
		LatencyMS:       resp.LatencyMS,
	}
	if resp.Accuracy != nil {
		f1 := resp.Accuracy.F1
		event.F1 = &f1
	}
	s.wsHub.BroadcastFile(session, reqID, event)

	log.Info("File redacted",
		zap.String("file", header.Filename),
		zap.Int("records", stats.Records),
		zap.Int("detections", stats.Detections),
		zap.Float64("latency_ms", resp.LatencyMS),
	)

	writeJSON(w, http.StatusOK, resp)
}

// evaluateGroundTruth scores the detections against the labels in data. A
// file whose labels cannot be read is still returned redacted.
func (s *Server) evaluateGroundTruth(r *http.Request, log *logger.Logger, data []byte, entries []audit.Entry, resp *FileResponse) {
	truth, err := metrics.ParseGroundTruth(data)
	if err != nil {
		log.Warn("Skipping ground truth evaluation", zap.Error(err))
		return
	}

	acc, rows := metrics.Evaluate(truth, entries)
	acc.FileName = resp.FileName

	var report bytes.Buffer
	if err := metrics.WriteReportCSV(&report, rows); err != nil {
		log.Warn("Failed to render accuracy report", zap.Error(err))
	}

	if err := s.collector.RecordAccuracy(r.Context(), resp.SessionID, acc); err != nil {
		log.Warn("Failed to record accuracy", zap.Error(err))
	}

	resp.Accuracy = &acc
	resp.ReportCSV = report.String()
}

// writeAudit persists entries. Failures are logged and never fail the request.
func (s *Server) writeAudit(r *http.Request, log *logger.Logger, entries []audit.Entry) {
	if len(entries) == 0 {
		return
	}
	if err := s.sink.Write(r.Context(), entries); err != nil {
		log.Warn("Failed to write audit entries", zap.Int("entries", len(entries)), zap.Error(err))
	}
}

func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	rules := s.detector.Registry().Rules()
	out := make([]RuleInfo, 0, len(rules))
	for _, rule := range rules {
		info := RuleInfo{
			Name:    rule.Name,
			Style:   string(rule.Style),
			Pattern: rule.Pattern.String(),
		}
		if rule.Style == privacy.StyleTag {
			info.Placeholder = rule.Placeholder
			if info.Placeholder == "" {
				info.Placeholder = privacy.DefaultPlaceholder
			}
		}
		out = append(out, info)
	}
	writeJSON(w, http.StatusOK, map[string]any{"rules": out})
}

func (s *Server) handleSessionMetrics(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	summary, err := s.collector.Summary(r.Context(), id)
	if err != nil {
		s.logger.WithRequestID(requestID(r.Context())).Error("Failed to load session metrics", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load metrics")
		return
	}

	resp := SessionMetricsResponse{Summary: summary}
	if counter, ok := s.sink.(audit.Counter); ok {
		counts, err := counter.CountByCategory(r.Context(), id)
		if err != nil {
			s.logger.WithRequestID(requestID(r.Context())).Warn("Failed to count audit entries", zap.Error(err))
		} else {
			resp.AuditCategories = counts
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.collector.Reset(r.Context(), id); err != nil {
		s.logger.WithRequestID(requestID(r.Context())).Error("Failed to delete session", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to delete session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
