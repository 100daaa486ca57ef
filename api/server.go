package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pranavsinghpatil/Open-Acumen-sub001/core"
	"github.com/pranavsinghpatil/Open-Acumen-sub001/ingestion"
)

// DefaultMaxBodyBytes bounds submission bodies.
const DefaultMaxBodyBytes = 64 << 20

// Importer is the pipeline surface served by the API.
type Importer interface {
	Submit(ctx context.Context, spec ingestion.ImportJobSpec) (string, error)
	GetStatus(ctx context.Context, jobID string) (*core.ImportJob, error)
	Cancel(ctx context.Context, jobID string) error
}

// MessageReader reads stored messages.
type MessageReader interface {
	GetMessages(ctx context.Context, itemID string) ([]core.NormalizedMessage, error)
}

// Server is the HTTP front end of the pipeline.
type Server struct {
	router       *chi.Mux
	importer     Importer
	messages     MessageReader
	token        string
	maxBodyBytes int64
	logger       *slog.Logger
}

// Option configures a Server.
type Option func(*Server) error

// WithToken requires "Authorization: Bearer <token>" on job routes.
func WithToken(token string) Option {
	return func(s *Server) error {
		s.token = token
		return nil
	}
}

// WithMaxBodyBytes bounds request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) error {
		if n <= 0 {
			return errors.New("max body bytes must be positive")
		}
		s.maxBodyBytes = n
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewServer builds the router.
func NewServer(importer Importer, messages MessageReader, opts ...Option) (*Server, error) {
	if importer == nil {
		return nil, errors.New("importer is required")
	}
	if messages == nil {
		return nil, errors.New("message reader is required")
	}
	s := &Server{
		router:       chi.NewRouter(),
		importer:     importer,
		messages:     messages,
		maxBodyBytes: DefaultMaxBodyBytes,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "api")

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/health", s.health)
	s.router.Route("/import-jobs", func(r chi.Router) {
		r.Use(s.authenticate)
		r.Post("/", s.submit)
		r.Route("/{jobId}", func(r chi.Router) {
			r.Get("/", s.status)
			r.Post("/cancel", s.cancel)
			r.Get("/stats", s.stats)
			r.Get("/items/{itemId}/messages", s.itemMessages)
		})
	})
	return s, nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API server starting", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.logger.Info("API server stopped")
	return nil
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token == "" {
			next.ServeHTTP(w, r)
			return
		}
		got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(s.token)) != 1 {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	body := http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("invalid JSON: %v", err)})
		return
	}

	spec, err := req.Spec()
	if err != nil {
		s.writeError(w, err)
		return
	}
	jobID, err := s.importer.Submit(r.Context(), spec)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Location", "/import-jobs/"+jobID)
	writeJSON(w, http.StatusAccepted, SubmitResponse{JobID: jobID})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	job, err := s.importer.GetStatus(r.Context(), chi.URLParam(r, "jobId"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, NewJobResponse(job))
}

func (s *Server) cancel(w http.ResponseWriter, r *http.Request) {
	if err := s.importer.Cancel(r.Context(), chi.URLParam(r, "jobId")); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]bool{"accepted": true})
}

// messageFilter narrows a message listing to one platform and to the last
// Limit messages.
type messageFilter struct {
	Platform string
	Limit    int
}

func parseFilter(r *http.Request) (messageFilter, error) {
	q := r.URL.Query()
	f := messageFilter{Platform: strings.TrimSpace(q.Get("platform"))}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return f, fmt.Errorf("%w: limit must be a positive integer", ErrInvalidQuery)
		}
		f.Limit = n
	}
	return f, nil
}

func (f messageFilter) apply(msgs []core.NormalizedMessage) []core.NormalizedMessage {
	if f.Platform != "" {
		kept := msgs[:0:0]
		for _, m := range msgs {
			if strings.EqualFold(m.SourceMetadata["platform"], f.Platform) {
				kept = append(kept, m)
			}
		}
		msgs = kept
	}
	if f.Limit > 0 && len(msgs) > f.Limit {
		msgs = msgs[len(msgs)-f.Limit:]
	}
	return msgs
}

func (s *Server) itemMessages(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	job, err := s.importer.GetStatus(r.Context(), chi.URLParam(r, "jobId"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	itemID := chi.URLParam(r, "itemId")
	var item *core.ImportItem
	for i := range job.Items {
		if job.Items[i].ID == itemID {
			item = &job.Items[i]
			break
		}
	}
	if item == nil {
		s.writeError(w, fmt.Errorf("%w: %s", ErrItemNotFound, itemID))
		return
	}
	if item.Status != core.ItemStatusDone {
		s.writeError(w, fmt.Errorf("%w: %s is %s", ErrItemNotDone, itemID, item.Status))
		return
	}

	msgs, err := s.messages.GetMessages(r.Context(), sourceItem(*item))
	if err != nil {
		s.writeError(w, err)
		return
	}
	resp := MessagesResponse{ItemID: item.ID, Messages: NewMessageResponses(filter.apply(msgs))}
	if item.Duplicate {
		resp.SourceID = item.DuplicateOf
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	job, err := s.importer.GetStatus(r.Context(), chi.URLParam(r, "jobId"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	var all []core.NormalizedMessage
	for _, it := range job.Items {
		if it.Status != core.ItemStatusDone {
			continue
		}
		msgs, err := s.messages.GetMessages(r.Context(), sourceItem(it))
		if err != nil {
			s.writeError(w, err)
			return
		}
		all = append(all, msgs...)
	}

	st := core.ConversationStats(filter.apply(all))
	writeJSON(w, http.StatusOK, StatsResponse{
		JobID:             job.ID,
		Items:             len(job.Items),
		MessageCount:      st.MessageCount,
		SpeakerCounts:     st.SpeakerCounts,
		PlatformCounts:    st.PlatformCounts,
		ContentTypeCounts: st.ContentTypeCounts,
		QuestionCount:     st.QuestionCount,
		AvgWordCount:      st.AvgWordCount,
	})
}

// sourceItem is the item whose stored messages back it.
func sourceItem(it core.ImportItem) string {
	if it.Duplicate && it.DuplicateOf != "" {
		return it.DuplicateOf
	}
	return it.ID
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := statusOf(err)
	if code >= http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
