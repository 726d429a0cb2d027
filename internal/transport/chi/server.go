package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragchat/internal/domain"
	"github.com/kailas-cloud/ragchat/internal/domain/usage"
	"github.com/kailas-cloud/ragchat/internal/logger"
	"github.com/kailas-cloud/ragchat/internal/usecase/health"
	"github.com/kailas-cloud/ragchat/internal/usecase/ingest"
)

// Upload limits applied before the ingestion pipeline sees the request.
const (
	DefaultMaxFiles     = 20
	DefaultMaxFileBytes = 32 << 20
	multipartMemory     = 8 << 20
	maxJSONBody         = 1 << 20
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Limits bounds multipart uploads.
type Limits struct {
	MaxFiles     int
	MaxFileBytes int64
}

// Server holds the HTTP handlers.
type Server struct {
	ingest        Ingestor
	chat          Chatter
	health        HealthChecker
	usage         UsageReporter
	corsOrigins   []string
	limits        Limits
	validate      *validator.Validate
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(ingestor Ingestor, chatter Chatter, hc HealthChecker, limits Limits, logger *zap.Logger) *Server {
	if limits.MaxFiles <= 0 {
		limits.MaxFiles = DefaultMaxFiles
	}
	if limits.MaxFileBytes <= 0 {
		limits.MaxFileBytes = DefaultMaxFileBytes
	}

	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	s := &Server{
		ingest:   ingestor,
		chat:     chatter,
		health:   hc,
		limits:   limits,
		validate: v,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrValidation, http.StatusBadRequest),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound),
		sentinelHandler(domain.ErrEmbeddingQuotaExceeded, http.StatusTooManyRequests),
		sentinelHandler(domain.ErrParse, http.StatusUnprocessableEntity),
		sentinelHandler(domain.ErrVectorStore, http.StatusServiceUnavailable),
		sentinelHandler(domain.ErrStorage, http.StatusInternalServerError),
	}
	return s
}

// UploadDocuments handles POST /api/v1/documents.
func (s *Server) UploadDocuments(w http.ResponseWriter, r *http.Request) {
	// Per-file limits are enforced by the upload store; this caps the request as a whole.
	maxBody := int64(s.limits.MaxFiles)*s.limits.MaxFileBytes + multipartMemory
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, domain.KindValidation, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, domain.KindValidation, "expected multipart/form-data with a files field")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File["files"]
	if len(headers) > s.limits.MaxFiles {
		writeError(w, http.StatusBadRequest, domain.KindValidation,
			fmt.Sprintf("at most %d files per upload", s.limits.MaxFiles))
		return
	}

	files, closeAll, err := openParts(headers)
	defer closeAll()
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	results, err := s.ingest.Upload(ctx, files)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	items := make([]UploadItem, len(results))
	for i, res := range results {
		items[i] = uploadResultToDTO(res)
		if !res.OK() {
			logger.FromContext(r.Context()).Warn("upload item failed",
				zap.String("filename", res.Filename()), zap.Error(res.Err()))
		}
	}
	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, items)
}

// ListDocuments handles GET /api/v1/documents.
func (s *Server) ListDocuments(w http.ResponseWriter, r *http.Request) {
	recs, err := s.ingest.List(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	items := make([]Document, len(recs))
	for i, rec := range recs {
		items[i] = documentToDTO(rec)
	}
	writeJSON(w, http.StatusOK, DocumentList{Items: items})
}

// GetDocument handles GET /api/v1/documents/{id}.
func (s *Server) GetDocument(w http.ResponseWriter, r *http.Request) {
	rec, err := s.ingest.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, documentToDTO(rec))
}

// Chat handles POST /api/v1/chat.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if !s.decode(w, r, &req) {
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	resp, err := s.chat.Chat(ctx, req.Message, req.TopK)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, ChatResponse{
		Answer:        resp.Answer,
		Sources:       sourcesToDTO(resp.Sources),
		RetrievalUsed: resp.RetrievalUsed,
		LatencyMs:     resp.LatencyMs,
	})
}

// Search handles POST /api/v1/search. It always retrieves.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if !s.decode(w, r, &req) {
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	answer, sources, err := s.chat.Search(ctx, req.Query, req.TopK)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	resp := SearchResponse{Answer: answer, Sources: []Source{}}
	if req.IncludeSources == nil || *req.IncludeSources {
		resp.Sources = sourcesToDTO(sources)
	}
	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, resp)
}

// PurgeOrphans handles POST /api/v1/maintenance/purge-orphans.
func (s *Server) PurgeOrphans(w http.ResponseWriter, r *http.Request) {
	n, err := s.ingest.PurgeOrphans(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PurgeResponse{Removed: n})
}

// WithUsage enables GET /api/v1/usage.
func (s *Server) WithUsage(u UsageReporter) *Server {
	s.usage = u
	return s
}

// WithCORS allows browsers on origins to call the API. "*" allows any origin.
func (s *Server) WithCORS(origins []string) *Server {
	s.corsOrigins = origins
	return s
}

// GetUsage handles GET /api/v1/usage?period=day|month.
func (s *Server) GetUsage(w http.ResponseWriter, r *http.Request) {
	period, err := usage.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, usageToDTO(s.usage.GetReport(r.Context(), period)))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != health.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, HealthResponse{Status: string(report.Status), Checks: checks})
}

// decode reads and validates a JSON body. It writes the 400 itself and returns false on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, domain.KindValidation, "invalid request body")
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, domain.KindValidation, validationMessage(err))
		return false
	}
	return true
}

func openParts(headers []*multipart.FileHeader) ([]ingest.File, func(), error) {
	files := make([]ingest.File, 0, len(headers))
	var opened []multipart.File
	closeAll := func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, closeAll, fmt.Errorf("%w: open part %s: %w", domain.ErrStorage, fh.Filename, err)
		}
		opened = append(opened, f)
		files = append(files, ingest.File{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Content:     f,
		})
	}
	return files, closeAll, nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request body"
	}
	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs[i] = fe.Field() + " is required"
		case "max":
			msgs[i] = fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
		default:
			msgs[i] = fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
		}
	}
	return strings.Join(msgs, "; ")
}

const embeddingTokensHeader = "X-Embedding-Tokens"

// setEmbeddingHeaders reports per-request embedding tokens when the embedder was called.
func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if usage.Used() {
		w.Header().Set(embeddingTokensHeader, strconv.FormatInt(usage.TotalTokens(), 10))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, kind domain.Kind, message string) {
	writeJSON(w, status, ErrorResponse{Code: string(kind), Message: message})
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
// The client sees the sentinel text only, never the wrapped internals.
func sentinelHandler(sentinel error, status int) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, domain.KindOf(err), domain.SafeMessage(err))
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	for _, h := range s.errorHandlers {
		if h(w, err) {
			log.Warn("domain error", zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, domain.KindInternal, "internal error")
}
