package web

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	gojson "github.com/goccy/go-json"
	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/weftwork/weft/meta"
	"github.com/weftwork/weft/registry"
	"github.com/weftwork/weft/writer"
)

const (
	DefaultHost = "127.0.0.1"
	DefaultPort = 4400
	// DefaultCacheTTL bounds how long a rendered response can outlive its
	// tree version; version-keyed lookups make stale hits impossible before
	// that.
	DefaultCacheTTL = 5 * time.Minute
)

// Config controls the dev server endpoint.
type Config struct {
	Host     string
	Port     int
	CacheTTL time.Duration
}

// Server exposes the current tree read-only. All mutation happens through
// reloads; handlers never touch nodes beyond reading them.
type Server struct {
	cfg    Config
	reg    *registry.Registry
	store  *Store
	hub    *Hub
	cache  *gocache.Cache
	render *writer.Writer
	log    *zap.Logger

	mux      *chi.Mux
	http     *http.Server
	listener net.Listener
}

func New(cfg Config, reg *registry.Registry, store *Store, log *zap.Logger) (*Server, error) {
	if reg == nil {
		return nil, fmt.Errorf("web: registry is required")
	}
	if store == nil {
		return nil, fmt.Errorf("web: tree store is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	s := &Server{
		cfg:    cfg,
		reg:    reg,
		store:  store,
		hub:    NewHub(log),
		cache:  gocache.New(cfg.CacheTTL, 2*cfg.CacheTTL),
		render: writer.New(reg),
		log:    log,
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(s.requestID)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/tree", s.cachedJSON("tree", s.renderTree))
		r.Get("/objects", s.cachedJSON("objects", s.renderObjects))
		r.Get("/objects/{name}", s.handleObject)
		r.Get("/types", s.cachedJSON("types", s.renderTypes))
		r.Get("/stats", s.handleStats)
	})
	r.Get("/ws", s.hub.ServeHTTP)

	s.mux = r
}

// Handler exposes the route table.
func (s *Server) Handler() http.Handler { return s.mux }

// Start listens and serves until Shutdown. The websocket endpoint keeps
// connections open indefinitely, so only header and idle timeouts apply.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("web: listen %s: %w", addr, err)
	}
	s.listener = ln
	s.http = &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	s.log.Info("dev server listening", zap.String("addr", ln.Addr().String()))
	if err := s.http.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown closes the reload channel and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// Addr reports the bound address once Start has run.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
}

// Hub exposes the reload channel for composing with a watcher.
func (s *Server) Hub() *Hub { return s.hub }

// OnChange rebuilds the tree after a document change batch, then flushes
// the render cache and tells clients to reload. A failed rebuild keeps
// the previous tree serving and reports the error instead.
func (s *Server) OnChange(files []string) error {
	start := time.Now()
	if err := s.store.Reload(); err != nil {
		s.log.Error("tree rebuild failed", zap.Strings("files", files), zap.Error(err))
		s.hub.NotifyError(err.Error())
		return err
	}
	s.cache.Flush()
	s.log.Info("tree reloaded",
		zap.Strings("files", files),
		zap.Int64("version", s.store.Version()),
		zap.Duration("elapsed", time.Since(start)))
	s.hub.NotifyReload(files)
	return nil
}

type ctxKey string

const requestIDKey ctxKey = "request_id"

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		ctx := context.WithValue(r.Context(), requestIDKey, id)
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		id, _ := r.Context().Value(requestIDKey).(string)
		s.log.Debug("request",
			zap.String("request_id", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", sw.status),
			zap.Duration("elapsed", time.Since(start)))
	})
}

// statusWriter records the response code and passes hijacking through so
// the websocket upgrade still works behind the logging middleware.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("web: response writer does not support hijacking")
	}
	return hj.Hijack()
}

// cachedJSON serves a rendered document out of the response cache. Keys
// embed the tree version, so a reload makes every old entry unreachable
// even before the flush lands.
func (s *Server) cachedJSON(name string, render func() ([]byte, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := fmt.Sprintf("%s@%d", name, s.store.Version())
		if hit, ok := s.cache.Get(key); ok {
			writeJSON(w, http.StatusOK, hit.([]byte))
			return
		}
		body, err := render()
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.cache.Set(key, body, gocache.DefaultExpiration)
		writeJSON(w, http.StatusOK, body)
	}
}

func (s *Server) renderTree() ([]byte, error) {
	ld, err := s.store.Current()
	if err != nil {
		return nil, err
	}
	root, err := ld.Root()
	if err != nil {
		return nil, err
	}
	return s.render.JSON(root)
}

type objectSummary struct {
	Name          string `json:"name"`
	Package       string `json:"package,omitempty"`
	SubType       string `json:"subType"`
	Abstract      bool   `json:"abstract,omitempty"`
	Interface     bool   `json:"interface,omitempty"`
	Fields        int    `json:"fields"`
	Identities    int    `json:"identities"`
	Relationships int    `json:"relationships"`
}

func (s *Server) renderObjects() ([]byte, error) {
	ld, err := s.store.Current()
	if err != nil {
		return nil, err
	}
	objs, err := ld.Objects()
	if err != nil {
		return nil, err
	}
	out := make([]objectSummary, 0, len(objs))
	for _, o := range objs {
		out = append(out, objectSummary{
			Name:          o.Name(),
			Package:       o.Package(),
			SubType:       o.SubType(),
			Abstract:      o.IsAbstract(),
			Interface:     o.IsInterface(),
			Fields:        len(o.MetaFields()),
			Identities:    len(o.Identities()),
			Relationships: len(o.Relationships()),
		})
	}
	return marshalBody(map[string]any{"objects": out})
}

func (s *Server) handleObject(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	key := fmt.Sprintf("object:%s@%d", name, s.store.Version())
	if hit, ok := s.cache.Get(key); ok {
		writeJSON(w, http.StatusOK, hit.([]byte))
		return
	}
	ld, err := s.store.Current()
	if err != nil {
		s.writeError(w, err)
		return
	}
	obj, err := ld.Object(name)
	if err != nil {
		var nf *meta.NotFoundError
		if errors.As(err, &nf) {
			s.writeProblem(w, http.StatusNotFound, err)
			return
		}
		s.writeError(w, err)
		return
	}
	body, err := s.render.JSON(obj)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.cache.Set(key, body, gocache.DefaultExpiration)
	writeJSON(w, http.StatusOK, body)
}

type typeEntry struct {
	Type         string `json:"type"`
	SubType      string `json:"subType"`
	InheritsFrom string `json:"inheritsFrom,omitempty"`
	Default      bool   `json:"default,omitempty"`
	Description  string `json:"description,omitempty"`
}

func (s *Server) renderTypes() ([]byte, error) {
	defs := s.reg.Definitions()
	out := make([]typeEntry, 0, len(defs))
	for _, def := range defs {
		e := typeEntry{
			Type:        def.Type,
			SubType:     def.SubType,
			Default:     def.IsDefaultSubType,
			Description: def.Description,
		}
		if def.InheritsFrom != nil {
			e.InheritsFrom = def.InheritsFrom.String()
		}
		out = append(out, e)
	}
	return marshalBody(map[string]any{"types": out})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"registry": s.reg.Stats(),
		"tree":     s.treeStats(),
	}
	payload, err := marshalBody(body)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) treeStats() map[string]any {
	ld, err := s.store.Current()
	if err != nil {
		return map[string]any{"loaded": false}
	}
	stats := map[string]any{
		"loaded":  true,
		"loader":  ld.Name(),
		"phase":   ld.Phase().String(),
		"version": s.store.Version(),
	}
	if objs, err := ld.Objects(); err == nil {
		stats["objects"] = len(objs)
	}
	if nodes, err := ld.Filter(func(meta.Node) bool { return true }); err == nil {
		stats["nodes"] = len(nodes)
	}
	return stats
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if _, err := s.store.Current(); err != nil {
		status = "waiting"
	}
	payload, err := marshalBody(map[string]any{
		"status":      status,
		"treeVersion": s.store.Version(),
		"clients":     s.hub.ConnectionCount(),
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.writeProblem(w, http.StatusInternalServerError, err)
}

func (s *Server) writeProblem(w http.ResponseWriter, status int, err error) {
	payload, merr := gojson.Marshal(map[string]string{"error": err.Error()})
	if merr != nil {
		http.Error(w, err.Error(), status)
		return
	}
	writeJSON(w, status, append(payload, '\n'))
}

func marshalBody(v any) ([]byte, error) {
	body, err := gojson.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(body, '\n'), nil
}

func writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}
