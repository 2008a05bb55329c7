// Package server exposes the triage pipeline over HTTP. One server holds one
// session: records load once, annotations fetch once, and every view derives
// from those two immutable lists.
package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ppetrov/opinia/internal/facet"
	"github.com/ppetrov/opinia/internal/merge"
	"github.com/ppetrov/opinia/internal/model"
	"github.com/ppetrov/opinia/internal/pipeline"
)

// Server serves the feedback triage API
type Server struct {
	pipeline *pipeline.Pipeline
	merger   *merge.Merger
	addr     string

	mu          sync.Mutex
	records     []model.FeedbackRecord // nil until the first successful load
	annotations []model.Annotation
	diagnostic  string
	llm         model.LLMInfo
	fetched     bool          // the annotation fetch ran (success or fallback)
	inflight    chan struct{} // non-nil while an annotation fetch is running
}

// NewServer creates a server around the given pipeline
func NewServer(p *pipeline.Pipeline, addr string) *Server {
	return &Server{
		pipeline: p,
		merger:   merge.NewMerger(),
		addr:     addr,
	}
}

// Handler returns the routing handler wrapped in logging and CORS middleware
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/records", s.handleRecords)
	mux.HandleFunc("/api/annotate", s.handleAnnotate)
	mux.HandleFunc("/api/view", s.handleView)
	mux.HandleFunc("/health", s.handleHealth)
	return corsMiddleware(loggingMiddleware(mux))
}

// Start runs the HTTP server until the context is cancelled
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:        s.addr,
		Handler:     s.Handler(),
		ReadTimeout: 15 * time.Second,
		// Model calls can take most of a minute; leave headroom
		WriteTimeout: 120 * time.Second,
	}

	log.Printf("[INFO] opinia server listening on %s", s.addr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	return server.ListenAndServe()
}

type recordsResponse struct {
	Records []model.EnrichedRecord `json:"records"`
	Sources []model.FacetValue     `json:"sources"`
}

type annotateResponse struct {
	Annotations []model.Annotation `json:"annotations"`
	Diagnostic  string             `json:"diagnostic"`
	LLM         model.LLMInfo      `json:"llm"`
}

type viewResponse struct {
	Records   []model.EnrichedRecord `json:"records"`
	Facets    []model.FacetSummary   `json:"facets"`
	Total     int                    `json:"total"`
	Matched   int                    `json:"matched"`
	Annotated bool                   `json:"annotated"`
}

// handleRecords returns the pre-annotation view: every record carrying the
// default annotation, plus the index of source values.
func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	records, err := s.sessionRecords(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}

	enriched := s.merger.Merge(records, nil)
	writeJSON(w, http.StatusOK, recordsResponse{
		Records: enriched,
		Sources: facet.Index(enriched, facet.Source),
	})
}

// handleAnnotate triggers the annotation fetch. The fetch runs at most once
// per session: concurrent callers wait for the running fetch, later callers
// get the stored result.
func (s *Server) handleAnnotate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var flight chan struct{}
	for {
		s.mu.Lock()
		if s.fetched {
			resp := annotateResponse{
				Annotations: s.annotations,
				Diagnostic:  s.diagnostic,
				LLM:         s.llm,
			}
			s.mu.Unlock()
			writeJSON(w, http.StatusOK, resp)
			return
		}
		if s.inflight != nil {
			wait := s.inflight
			s.mu.Unlock()
			select {
			case <-wait:
				continue
			case <-r.Context().Done():
				http.Error(w, "Request cancelled", http.StatusServiceUnavailable)
				return
			}
		}
		flight = make(chan struct{})
		s.inflight = flight
		s.mu.Unlock()
		break
	}

	records, err := s.sessionRecords(r.Context())
	if err != nil {
		s.mu.Lock()
		s.inflight = nil
		s.mu.Unlock()
		close(flight)
		writeError(w, http.StatusBadGateway, err)
		return
	}

	res := s.pipeline.AnnotateRecords(r.Context(), records)
	if res.Annotations == nil {
		res.Annotations = []model.Annotation{}
	}

	s.mu.Lock()
	s.annotations = res.Annotations
	s.diagnostic = res.Diagnostic
	s.llm = res.LLM
	s.fetched = true
	s.inflight = nil
	s.mu.Unlock()
	close(flight)

	writeJSON(w, http.StatusOK, annotateResponse{
		Annotations: res.Annotations,
		Diagnostic:  res.Diagnostic,
		LLM:         res.LLM,
	})
}

// handleView returns the enriched records filtered by the facet query
// parameters (comma-separated values, AND across facets, OR within one).
func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	records, err := s.sessionRecords(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}

	s.mu.Lock()
	annotations := s.annotations
	s.mu.Unlock()

	enriched := s.merger.Merge(records, annotations)

	engine := facet.NewEngine()
	if len(annotations) > 0 {
		engine.MarkAnnotated()
	}
	for _, f := range facet.All {
		for _, raw := range r.URL.Query()[string(f)] {
			for _, value := range strings.Split(raw, ",") {
				if value = strings.TrimSpace(value); value != "" {
					engine.Toggle(f, value)
				}
			}
		}
	}

	filtered := engine.Apply(enriched)
	writeJSON(w, http.StatusOK, viewResponse{
		Records:   filtered,
		Facets:    engine.Summaries(enriched),
		Total:     len(enriched),
		Matched:   len(filtered),
		Annotated: engine.Annotated(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// sessionRecords returns the session's record set, loading it from the store
// on first use. A store failure is not cached; the next call retries.
func (s *Server) sessionRecords(ctx context.Context) ([]model.FeedbackRecord, error) {
	s.mu.Lock()
	if s.records != nil {
		records := s.records
		s.mu.Unlock()
		return records, nil
	}
	s.mu.Unlock()

	records, err := s.pipeline.Records(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.records == nil {
		s.records = records
	}
	records = s.records
	s.mu.Unlock()
	return records, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %v", r.Method, r.URL.Path, time.Since(start))
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			return
		}
		next.ServeHTTP(w, r)
	})
}
