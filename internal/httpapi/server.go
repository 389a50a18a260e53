package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"mime"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/HenryOlvera28/landing/internal/catalog"
	"github.com/HenryOlvera28/landing/internal/domain"
	"github.com/HenryOlvera28/landing/internal/render"
	"github.com/HenryOlvera28/landing/internal/session"
	"github.com/HenryOlvera28/landing/internal/storage"
	"github.com/HenryOlvera28/landing/internal/tally"
	"github.com/HenryOlvera28/landing/internal/vote"
)

const sessionCookie = "landing_session"

type PageLoader interface {
	Load(ctx context.Context, limit int) catalog.Page
}

type Server struct {
	sessions *session.Manager
	catalog  PageLoader
	featured int
	logger   *zap.Logger
}

func New(sessions *session.Manager, pages PageLoader, featured int, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		sessions: sessions,
		catalog:  pages,
		featured: featured,
		logger:   logger,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handlePage)
	mux.HandleFunc("/vote", s.handleVote)
	mux.HandleFunc("/results", s.handleResults)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	return mux
}

// Run serves on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server starting", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

// session returns the visitor's session. Reads (create false) never store a
// new session: a visitor without a known cookie gets a transient one.
func (s *Server) session(w http.ResponseWriter, r *http.Request, create bool) *session.Session {
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		if sess, ok := s.sessions.Lookup(c.Value); ok {
			return sess
		}
		if create {
			return s.sessions.Get(c.Value)
		}
		return s.sessions.Transient()
	}
	if !create {
		return s.sessions.Transient()
	}

	key := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    key,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return s.sessions.Get(key)
}

// ---------- Page ----------

type pageData struct {
	Message       string
	Products      []domain.Product
	Categories    []domain.Category
	ProductsErr   string
	CategoriesErr string
	Tally         template.HTML
	TallyErr      string
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Invalid request method", http.StatusMethodNotAllowed)
		return
	}

	sess := s.session(w, r, false)
	page := s.catalog.Load(r.Context(), s.featured)

	data := pageData{
		Message:    r.URL.Query().Get("msg"),
		Products:   page.Products,
		Categories: page.Categories,
	}
	if page.ProductsErr != nil {
		data.ProductsErr = "Could not load products: " + page.ProductsErr.Error()
	}
	if page.CategoriesErr != nil {
		data.CategoriesErr = "Could not load categories: " + page.CategoriesErr.Error()
	}

	entries, err := sess.Flow.Refresh(r.Context())
	if err != nil {
		data.TallyErr = "Could not load votes: " + err.Error()
		entries, _ = sess.Displayed.Last()
	}
	if data.Tally, err = render.HTMLTable(entries); err != nil {
		s.logger.Error("render tally", zap.Error(err))
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, data); err != nil {
		s.logger.Error("render page", zap.Error(err))
	}
}

// ---------- Votes ----------

type voteRequest struct {
	ProductID string `json:"productID"`
}

type voteResponse struct {
	Message string              `json:"message"`
	Error   string              `json:"error,omitempty"`
	Vote    *domain.VoteRecord  `json:"vote,omitempty"`
	Tally   []domain.TallyEntry `json:"tally,omitempty"`
}

func isJSON(r *http.Request) bool {
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return mt == "application/json"
}

func (s *Server) handleVote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Invalid request method", http.StatusMethodNotAllowed)
		return
	}

	asJSON := isJSON(r)
	var productID string
	if asJSON {
		var req voteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		productID = req.ProductID
	} else {
		productID = r.FormValue("select_product")
	}

	sess := s.session(w, r, true)
	res, err := sess.Flow.Submit(r.Context(), productID)
	code, resp := voteOutcome(res, err)

	log := s.logger.With(zap.String("product_id", productID), zap.Int("status", code))
	if err != nil {
		log.Warn("vote request failed", zap.Error(err))
	} else {
		log.Info("vote cast")
	}

	if !asJSON {
		http.Redirect(w, r, "/?msg="+url.QueryEscape(resp.Message), http.StatusSeeOther)
		return
	}
	writeJSON(w, code, resp)
}

func voteOutcome(res vote.Result, err error) (int, voteResponse) {
	var storeErr *storage.Error
	switch {
	case err == nil:
		return http.StatusCreated, voteResponse{Message: res.Message, Vote: &res.Record, Tally: res.Tally}
	case errors.Is(err, vote.ErrMissingSelection):
		return http.StatusBadRequest, voteResponse{Message: "Please select a product before voting.", Error: err.Error()}
	case errors.Is(err, vote.ErrSubmissionInProgress):
		return http.StatusConflict, voteResponse{Message: "Your previous vote is still being saved.", Error: err.Error()}
	case errors.Is(err, vote.ErrRefreshFailed):
		return http.StatusCreated, voteResponse{Message: res.Message, Error: err.Error(), Vote: &res.Record}
	case errors.As(err, &storeErr):
		return http.StatusBadGateway, voteResponse{Message: "Could not save the vote: " + err.Error(), Error: err.Error()}
	}
	return http.StatusInternalServerError, voteResponse{Message: "Could not save the vote.", Error: err.Error()}
}

// ---------- Results ----------

type resultsResponse struct {
	Tally []domain.TallyEntry `json:"tally"`
	Total int                 `json:"total"`
	Error string              `json:"error,omitempty"`
	Stale bool                `json:"stale,omitempty"`
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Invalid request method", http.StatusMethodNotAllowed)
		return
	}

	sess := s.session(w, r, false)
	entries, err := sess.Flow.Refresh(r.Context())
	if err != nil {
		s.logger.Warn("results failed", zap.Error(err))
		last, _ := sess.Displayed.Last()
		if last == nil {
			last = []domain.TallyEntry{}
		}
		writeJSON(w, http.StatusBadGateway, resultsResponse{
			Tally: last,
			Total: tally.Total(last),
			Error: "Could not load votes: " + err.Error(),
			Stale: true,
		})
		return
	}

	writeJSON(w, http.StatusOK, resultsResponse{Tally: entries, Total: tally.Total(entries)})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
