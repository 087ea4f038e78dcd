package server

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/opd-ai/zplprint"
	"github.com/opd-ai/zplprint/interfaces"
	"github.com/opd-ai/zplprint/limits"
	"github.com/opd-ai/zplprint/transport"
	"github.com/opd-ai/zplprint/zpl"
	"github.com/sirupsen/logrus"
)

// UploadField is the multipart field carrying the label file.
const UploadField = "zplFile"

//go:embed templates/index.html
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// ErrBadRequest is reported for print requests whose body is not valid JSON.
var ErrBadRequest = errors.New("invalid print request")

// Defaults pre-fills the printer fields of the upload page.
type Defaults struct {
	PrinterIP   string
	PrinterPort int
}

// Server holds the HTTP handlers.
type Server struct {
	printer  *zplprint.Printer
	defaults Defaults
	logger   logrus.FieldLogger
	mux      *http.ServeMux
}

// page is the view model of templates/index.html.
type page struct {
	PrinterIP   string
	PrinterPort int
	Ports       []string
	Simulation  bool
	FileName    string
	Content     string
	LabelCount  int
	Error       string
}

// portsResponse is the body of GET /ports.
type portsResponse struct {
	Ports   []string             `json:"ports"`
	Details []transport.PortInfo `json:"details"`
}

// New builds the handler set. A zero Defaults.PrinterPort selects 9100 and a
// nil logger selects the logrus standard logger.
func New(printer *zplprint.Printer, defaults Defaults, logger logrus.FieldLogger) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if defaults.PrinterPort == 0 {
		defaults.PrinterPort = transport.DefaultNetworkPort
	}

	s := &Server{
		printer:  printer,
		defaults: defaults,
		logger:   logger,
		mux:      http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("POST /{$}", s.handleUpload)
	s.mux.HandleFunc("POST /print", s.handlePrint)
	s.mux.HandleFunc("GET /ports", s.handlePorts)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	return s
}

// Handler returns the routed handlers wrapped in request logging.
func (s *Server) Handler() http.Handler {
	return logRequests(s.logger, s.mux)
}

func (s *Server) newPage() page {
	return page{
		PrinterIP:   s.defaults.PrinterIP,
		PrinterPort: s.defaults.PrinterPort,
		Ports:       s.printer.AvailablePorts(),
		Simulation:  s.printer.IsSimulation(),
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, s.newPage())
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	p := s.newPage()

	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxUploadSize)
	file, header, err := r.FormFile(UploadField)
	if err != nil {
		p.Error = uploadErrorMessage(err)
		s.logUploadError(r, "", err)
		s.render(w, http.StatusBadRequest, p)
		return
	}
	defer file.Close()

	content, err := zpl.Prepare(file, header.Filename)
	if err != nil {
		p.Error = uploadErrorMessage(err)
		s.logUploadError(r, header.Filename, err)
		s.render(w, http.StatusBadRequest, p)
		return
	}

	p.FileName = header.Filename
	p.Content = content
	p.LabelCount = zpl.CountLabels(content)

	s.logger.WithFields(logrus.Fields{
		"function": "Server.handleUpload",
		"file":     header.Filename,
		"size":     len(content),
		"labels":   p.LabelCount,
	}).Info("Label file accepted")

	s.render(w, http.StatusOK, p)
}

// uploadErrorMessage maps an upload failure to the text shown on the page.
func uploadErrorMessage(err error) string {
	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return zpl.ErrNoFile.Error()
	case errors.As(err, &maxErr), errors.Is(err, limits.ErrLabelTooLarge):
		return fmt.Sprintf("error processing the file: file exceeds %d bytes", limits.MaxLabelSize)
	case errors.Is(err, zpl.ErrNoFile), errors.Is(err, zpl.ErrNotText), errors.Is(err, zpl.ErrEmpty),
		errors.Is(err, zpl.ErrInvalidEnvelope), errors.Is(err, zpl.ErrNotUTF8):
		return err.Error()
	default:
		return "error processing the file: " + err.Error()
	}
}

func (s *Server) logUploadError(r *http.Request, name string, err error) {
	s.logger.WithFields(logrus.Fields{
		"function": "Server.handleUpload",
		"remote":   r.RemoteAddr,
		"file":     name,
		"error":    err.Error(),
	}).Warn("Rejected label file")
}

// handlePrint answers with {"success", "message"}. Delivery failures are
// reported in the body with status 200; only an unreadable body is a 400.
func (s *Server) handlePrint(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxUploadSize)

	var req zplprint.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.logger.WithFields(logrus.Fields{
			"function": "Server.handlePrint",
			"error":    err.Error(),
		}).Warn("Malformed print request")
		writeJSON(w, http.StatusBadRequest, interfaces.Failed(ErrBadRequest))
		return
	}

	req.Payload = strings.TrimSpace(req.Payload)
	if req.Payload != "" {
		if err := zpl.ValidateEnvelope(req.Payload); err != nil {
			writeJSON(w, http.StatusOK, interfaces.Failed(err))
			return
		}
	}

	writeJSON(w, http.StatusOK, s.printer.Send(r.Context(), req))
}

func (s *Server) handlePorts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, portsResponse{
		Ports:   s.printer.AvailablePorts(),
		Details: s.printer.PortDetails(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

// render executes the page template into a buffer so a template failure can
// still produce a clean 500.
func (s *Server) render(w http.ResponseWriter, status int, p page) {
	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, p); err != nil {
		s.logger.WithFields(logrus.Fields{
			"function": "Server.render",
			"error":    err.Error(),
		}).Error("Failed to render page")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// logRequests logs one line per request.
func logRequests(logger logrus.FieldLogger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		entry := logger.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"remote":   r.RemoteAddr,
			"duration": time.Since(start).String(),
		})
		if rec.status >= http.StatusInternalServerError {
			entry.Error("HTTP request")
			return
		}
		entry.Debug("HTTP request")
	})
}
