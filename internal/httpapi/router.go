package httpapi

import (
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// Router wraps the standard library ServeMux (no third-party routing
// dependency; the surface is small enough).
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func method(m string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if req.Method != m {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h(w, req)
	}
}

// RegisterDataRoutes wires the ingestion endpoint. Ingestion is the one
// surface without auth: the E3 gateway carries no identity.
func (r *Router) RegisterDataRoutes(d *DataHandler) {
	r.Handle("/dados", method(http.MethodPost, d.Ingest))
	r.Handle("/data", method(http.MethodPost, d.Ingest))
}

// RegisterStructureRoutes wires the navigation/detail queries.
func (r *Router) RegisterStructureRoutes(s *StructureHandler, auth *Middleware) {
	r.Handle("/estrutura", auth.Require(method(http.MethodGet, s.GetStructure)))

	r.Handle("/disciplina/", auth.Require(method(http.MethodGet, func(w http.ResponseWriter, req *http.Request) {
		code := strings.TrimPrefix(req.URL.Path, "/disciplina/")
		if code == "" || strings.Contains(code, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		s.GetDiscipline(w, req, code)
	})))

	r.Handle("/equipamento/", auth.Require(method(http.MethodGet, func(w http.ResponseWriter, req *http.Request) {
		raw := strings.TrimPrefix(req.URL.Path, "/equipamento/")
		tag, err := url.PathUnescape(raw)
		if err != nil || tag == "" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		s.GetEquipment(w, req, tag)
	})))
}

// RegisterAlarmRoutes wires the alarm lifecycle surface.
func (r *Router) RegisterAlarmRoutes(a *AlarmHandler, auth *Middleware) {
	r.Handle("/alarms/active", auth.Require(method(http.MethodGet, a.Active)))
	r.Handle("/alarms/history", auth.Require(method(http.MethodGet, a.History)))
	r.Handle("/alarms/export", auth.Require(method(http.MethodGet, a.Export)))
	r.Handle("/alarms/ack", auth.Require(method(http.MethodPost, a.Acknowledge)))
	r.Handle("/alarms/clear", auth.Require(method(http.MethodPost, a.Clear)))
	r.Handle("/alarms/clear-recognized", auth.Require(method(http.MethodPost, a.ClearRecognized)))
}

// RegisterHealthRoutes wires liveness.
func (r *Router) RegisterHealthRoutes() {
	r.Handle("/health", method(http.MethodGet, func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	}))
}
