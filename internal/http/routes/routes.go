package routes

import (
	"encoding/json"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	scs "github.com/alexedwards/scs/v2"
	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/briangreenhill/postboard/apierror"
	"github.com/briangreenhill/postboard/board"
	"github.com/briangreenhill/postboard/cache"
	appmw "github.com/briangreenhill/postboard/internal/http/middleware"
	"github.com/briangreenhill/postboard/schema"
)

type Server struct {
	Router   *chi.Mux
	Sess     *scs.SessionManager
	Tmpl     *template.Template
	Board    *board.Service
	PageSize int
	Logger   zerolog.Logger
}

type ServerOptions struct {
	Sess     *scs.SessionManager
	Tmpl     *template.Template
	Board    *board.Service
	PageSize int
	Logger   zerolog.Logger
	// Gatherer backs /metrics; nil uses the default registry.
	Gatherer prometheus.Gatherer
}

func New(opts ServerOptions) *Server {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)

	s := &Server{Router: r, Sess: opts.Sess, Tmpl: opts.Tmpl, Board: opts.Board, PageSize: opts.PageSize, Logger: opts.Logger}
	if s.PageSize <= 0 {
		s.PageSize = schema.DefaultLimit
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("ok")); err != nil {
			s.Logger.Error().Err(err).Msg("write health check response")
		}
	})

	r.Get("/debug/cache", s.handleCacheState)
	r.Post("/debug/cache/reset", s.handleCacheReset)

	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	} else {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Group(func(pr chi.Router) {
		pr.Use(appmw.Flash(s.Sess))
		pr.Get("/", s.handleBoard)
		pr.Post("/posts", s.handleCreatePost)
		pr.Get("/posts/{postID}", s.handlePost)
		pr.Post("/posts/{postID}/delete", s.handleDeletePost)
		pr.Get("/users/{userID}", s.handleUser)
	})

	return s
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data map[string]any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.Tmpl.ExecuteTemplate(w, name, data); err != nil {
		s.Logger.Error().Err(err).Str("template", name).Msg("render template failed")
	}
}

func (s *Server) page(r *http.Request, title string) map[string]any {
	data := map[string]any{"Title": title}
	if t, ok := appmw.FlashFrom(r.Context()); ok {
		data["Toast"] = t
	}
	return data
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		err = errors.New("nothing loaded yet")
	}
	status := httpStatus(err)
	data := s.page(r, http.StatusText(status))
	data["Message"] = err.Error()
	s.render(w, status, "error", data)
}

type postRow struct {
	Post   schema.Post
	Author string
}

func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	pag, err := schema.ParsePagination(q.Get("page"), q.Get("limit"))
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	if strings.TrimSpace(q.Get("limit")) == "" {
		pag.Limit = s.PageSize
	}
	sort, err := schema.ParseSort("id", q.Get("sort"))
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	search := schema.ParseSearch(q.Get("q"))

	var reads []cache.QueryOption
	if q.Get("refresh") != "" {
		reads = append(reads, cache.Refetch())
	}
	posts := s.Board.Posts(r.Context(), reads...)
	users := s.Board.Users(r.Context())

	data := s.page(r, "Board")
	data["Users"] = users.Value
	data["Query"] = search.Query
	data["Sort"] = string(sort.Order)
	data["Page"] = pag.Page
	data["Limit"] = pag.Limit
	data["UpdatedAt"] = posts.UpdatedAt
	data["DefaultAuthor"] = board.DefaultAuthorID
	data["Saving"] = s.Board.Saving()
	data["Refreshing"] = posts.IsStale() && posts.Err == nil

	if posts.IsLoading() {
		data["Loading"] = true
		data["PageCount"] = 0
		s.render(w, http.StatusOK, "board", data)
		return
	}
	if posts.Err != nil {
		hlog.FromRequest(r).Warn().Err(posts.Err).Str("kind", apierror.KindOf(posts.Err).String()).Msg("load posts")
		if !posts.HasValue {
			data["LoadError"] = posts.Err.Error()
			data["PageCount"] = 0
			s.render(w, http.StatusOK, "board", data)
			return
		}
		data["StaleError"] = posts.Err.Error()
	}

	matched := schema.SortPosts(search.FilterPosts(posts.Value), sort.Order)
	rows := make([]postRow, 0, pag.Limit)
	for _, p := range schema.Paginate(matched, pag) {
		rows = append(rows, postRow{Post: p, Author: board.UserName(users.Value, p.UserID)})
	}
	data["Posts"] = rows
	data["PageCount"] = max(pag.PageCount(len(matched)), 1)
	s.render(w, http.StatusOK, "board", data)
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	in := schema.NewPost{
		Title: strings.TrimSpace(r.Form.Get("title")),
		Body:  strings.TrimSpace(r.Form.Get("body")),
	}
	in.UserID = board.DefaultAuthorID
	if raw := strings.TrimSpace(r.Form.Get("userId")); raw != "" {
		in.UserID, _ = strconv.Atoi(raw)
	}

	post, err := s.Board.CreatePost(r.Context(), in)
	if err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("create post")
		appmw.PutFlash(r.Context(), s.Sess, "error", err.Error())
	} else {
		hlog.FromRequest(r).Info().Int("post_id", post.ID).Int("user_id", post.UserID).Msg("post created")
		appmw.PutFlash(r.Context(), s.Sess, "success", "Post created")
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "postID"))
	if err := s.Board.DeletePost(r.Context(), id); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Int("post_id", id).Msg("delete post")
		appmw.PutFlash(r.Context(), s.Sess, "error", err.Error())
	} else {
		appmw.PutFlash(r.Context(), s.Sess, "success", "Post deleted")
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "postID"))
	post := s.Board.Post(r.Context(), id)
	if !post.HasValue {
		s.renderError(w, r, post.Err)
		return
	}

	users := s.Board.Users(r.Context())
	comments := s.Board.CommentsByPost(r.Context(), id)

	data := s.page(r, post.Value.Title)
	data["Post"] = post.Value
	data["Author"] = board.UserName(users.Value, post.Value.UserID)
	data["Comments"] = comments.Value
	if post.Err != nil {
		data["StaleError"] = post.Err.Error()
	}
	if comments.Err != nil && !comments.HasValue {
		data["CommentsError"] = comments.Err.Error()
	}
	s.render(w, http.StatusOK, "post", data)
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "userID"))
	user := s.Board.User(r.Context(), id)
	if !user.HasValue {
		s.renderError(w, r, user.Err)
		return
	}

	posts := s.Board.PostsByUser(r.Context(), id)

	data := s.page(r, user.Value.Name)
	data["User"] = user.Value
	data["Posts"] = posts.Value
	if posts.Err != nil && !posts.HasValue {
		data["PostsError"] = posts.Err.Error()
	}
	s.render(w, http.StatusOK, "user", data)
}

type entryState struct {
	Key       string    `json:"key"`
	Status    string    `json:"status"`
	HasData   bool      `json:"hasData"`
	UpdatedAt time.Time `json:"updatedAt"`
	Error     string    `json:"error,omitempty"`
}

type mutationState struct {
	Name    string `json:"name"`
	Pending bool   `json:"pending"`
	Error   string `json:"error,omitempty"`
}

type cacheState struct {
	StaleTime string          `json:"staleTime"`
	Entries   int             `json:"entries"`
	Keys      []entryState    `json:"keys"`
	Mutations []mutationState `json:"mutations"`
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// handleCacheState reports every cached entry and write, for debugging.
func (s *Server) handleCacheState(w http.ResponseWriter, r *http.Request) {
	store := s.Board.Store()
	state := cacheState{
		StaleTime: store.StaleTime().String(),
		Entries:   store.Len(),
		Keys:      []entryState{},
	}
	for _, key := range store.Keys() {
		snap := store.Peek(key)
		state.Keys = append(state.Keys, entryState{
			Key:       key,
			Status:    snap.Status.String(),
			HasData:   snap.Status.HasData(),
			UpdatedAt: snap.UpdatedAt,
			Error:     errText(snap.Err),
		})
	}
	for _, m := range s.Board.Mutations() {
		state.Mutations = append(state.Mutations, mutationState{Name: m.Name, Pending: m.Pending, Error: errText(m.Err)})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(state); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("encode cache state")
	}
}

func (s *Server) handleCacheReset(w http.ResponseWriter, r *http.Request) {
	s.Board.Store().Reset()
	hlog.FromRequest(r).Info().Msg("cache reset")
	w.WriteHeader(http.StatusNoContent)
}

// httpStatus maps an error kind to the status of the page reporting it. A
// timeout or cancellation reports 504 whatever layer classified it.
func httpStatus(err error) int {
	if apierror.Canceled(err) {
		return http.StatusGatewayTimeout
	}
	switch apierror.KindOf(err) {
	case apierror.KindNotFound:
		return http.StatusNotFound
	case apierror.KindValidation:
		return http.StatusBadRequest
	case apierror.KindUnauthorized:
		return http.StatusUnauthorized
	case apierror.KindNetwork, apierror.KindServerFault:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// sessionLifetime is how long a flash can wait to be shown.
const sessionLifetime = 12 * time.Hour

// NewSessionManager builds the cookie session used for flash messages.
func NewSessionManager() *scs.SessionManager {
	sess := scs.New()
	sess.Lifetime = sessionLifetime
	sess.Cookie.HttpOnly = true
	sess.Cookie.SameSite = http.SameSiteLaxMode
	sess.Cookie.Secure = false
	return sess
}
