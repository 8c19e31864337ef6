// Package httpadapter exposes the document QA service over HTTP.
package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/oapi-codegen/runtime"

	"github.com/docforge/docqa/internal/core/ports"
)

type Router struct {
	ingestor ports.DocumentIngestor
	answerer ports.QuestionAnswerer
	manager  ports.DocumentManager
	options  Options
}

// RetrievalObserver receives the outcome of successful ask and search
// requests, typically backed by prometheus collectors.
type RetrievalObserver interface {
	RecordRetrieval(endpoint string, chunkCount int, duration time.Duration)
	RecordAnswerConfidence(confidence float64)
}

type Options struct {
	RateLimitRPS    float64
	RateLimitBurst  int
	MaxInFlight     int
	OverloadTimeout time.Duration
	Metrics         RetrievalObserver
}

func NewRouter(
	ingestor ports.DocumentIngestor,
	answerer ports.QuestionAnswerer,
	manager ports.DocumentManager,
	options Options,
) *Router {
	if options.OverloadTimeout <= 0 {
		options.OverloadTimeout = 100 * time.Millisecond
	}
	return &Router{
		ingestor: ingestor,
		answerer: answerer,
		manager:  manager,
		options:  options,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/documents", rt.documents)
	mux.HandleFunc("/v1/documents/", rt.documentByID)
	mux.HandleFunc("/v1/qa/ask", rt.ask)
	mux.HandleFunc("/v1/qa/search", rt.search)

	var handler http.Handler = mux
	if rt.options.MaxInFlight > 0 {
		handler = backpressureMiddleware(handler, rt.options.MaxInFlight, rt.options.OverloadTimeout)
	}
	if rt.options.RateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rt.options.RateLimitRPS, rt.options.RateLimitBurst)
	}
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) documents(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		rt.uploadDocument(w, r)
	case http.MethodGet:
		rt.listDocuments(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "multipart field 'file' is required")
		return
	}
	defer file.Close()

	doc, err := rt.ingestor.Upload(
		r.Context(),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		file,
	)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, doc)
}

func (rt *Router) listDocuments(w http.ResponseWriter, r *http.Request) {
	var limit, offset int
	query := r.URL.Query()
	if query.Has("limit") {
		if err := runtime.BindQueryParameter("form", true, false, "limit", query, &limit); err != nil {
			writeError(w, http.StatusBadRequest, "invalid limit parameter")
			return
		}
	}
	if query.Has("offset") {
		if err := runtime.BindQueryParameter("form", true, false, "offset", query, &offset); err != nil {
			writeError(w, http.StatusBadRequest, "invalid offset parameter")
			return
		}
	}

	docs, err := rt.manager.List(r.Context(), limit, offset)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func (rt *Router) documentByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/documents/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "document id is required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		doc, err := rt.manager.GetByID(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, doc)
	case http.MethodDelete:
		if err := rt.manager.Delete(r.Context(), id); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (rt *Router) ask(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		Question   string `json:"question"`
		TopK       int    `json:"top_k"`
		DocumentID string `json:"document_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	start := time.Now()
	answer, err := rt.answerer.Ask(r.Context(), req.Question, req.TopK, req.DocumentID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if rt.options.Metrics != nil {
		rt.options.Metrics.RecordRetrieval("ask", len(answer.Chunks), time.Since(start))
		rt.options.Metrics.RecordAnswerConfidence(answer.Confidence)
	}
	writeJSON(w, http.StatusOK, answer)
}

func (rt *Router) search(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	query := r.URL.Query()
	var question string
	if err := runtime.BindQueryParameter("form", true, true, "q", query, &question); err != nil {
		writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}

	var topK int
	if query.Has("top_k") {
		if err := runtime.BindQueryParameter("form", true, false, "top_k", query, &topK); err != nil {
			writeError(w, http.StatusBadRequest, "invalid top_k parameter")
			return
		}
	}
	documentID := query.Get("document_id")

	start := time.Now()
	chunks, err := rt.answerer.Search(r.Context(), question, topK, documentID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if rt.options.Metrics != nil {
		rt.options.Metrics.RecordRetrieval("search", len(chunks), time.Since(start))
	}
	writeJSON(w, http.StatusOK, map[string]any{"chunks": chunks})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, mapErrorToHTTPStatus(err), err.Error())
}
