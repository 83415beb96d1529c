package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/nidhogg/ruleta/internal/audit"
	"github.com/nidhogg/ruleta/internal/catalog"
	"github.com/nidhogg/ruleta/internal/notify"
	"github.com/nidhogg/ruleta/internal/rotation"
	"github.com/nidhogg/ruleta/internal/spin"
	"go.uber.org/zap"
)

// Handler holds dependencies for HTTP handlers. audit and notifier are
// optional; the corresponding endpoints degrade when absent.
type Handler struct {
	orch      *spin.Orchestrator
	catalog   *catalog.Catalog
	audit     *audit.Store
	notifier  notify.Notifier
	staticDir string
	logger    *zap.Logger
}

// NewHandler creates a new API handler.
func NewHandler(orch *spin.Orchestrator, cat *catalog.Catalog, auditStore *audit.Store,
	notifier notify.Notifier, staticDir string, logger *zap.Logger) *Handler {
	return &Handler{
		orch:      orch,
		catalog:   cat,
		audit:     auditStore,
		notifier:  notifier,
		staticDir: staticDir,
		logger:    logger,
	}
}

// Router builds the chi router with all routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/health", h.healthCheck)
	r.Post("/girar", h.girar)

	r.Route("/api", func(r chi.Router) {
		r.Post("/cajeros/init", h.initCajeros)
		r.Get("/spins", h.listSpins)
		r.Post("/usuario", h.newUsuario)
	})

	// Serve the frontend when a static dir is configured and present.
	if h.staticDir != "" {
		if _, err := os.Stat(h.staticDir); err == nil {
			fs := http.FileServer(http.Dir(h.staticDir))
			r.Handle("/*", fs)
		}
	}

	return r
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type girarRequest struct {
	UsuarioID string `json:"usuarioId"`
}

type girarResponse struct {
	YaGiro  bool            `json:"yaGiro"`
	Mensaje string          `json:"mensaje,omitempty"`
	Premio  string          `json:"premio,omitempty"`
	Cajero  *catalog.Cajero `json:"cajero,omitempty"`
}

func (h *Handler) girar(w http.ResponseWriter, r *http.Request) {
	var req girarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UsuarioID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Falta usuarioId"})
		return
	}

	d, err := h.orch.Spin(r.Context(), req.UsuarioID)
	if err != nil {
		if errors.Is(err, rotation.ErrNoCajeros) {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "No hay cajeros configurados"})
			return
		}
		h.logger.Error("girar failed", zap.String("usuario", req.UsuarioID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Error interno"})
		return
	}

	writeJSON(w, http.StatusOK, girarResponse{
		YaGiro:  d.YaGiro,
		Mensaje: d.Mensaje,
		Premio:  d.Premio,
		Cajero:  d.Cajero,
	})
}

type initCajerosRequest struct {
	Cajeros []catalog.Cajero `json:"cajeros"`
}

func (h *Handler) initCajeros(w http.ResponseWriter, r *http.Request) {
	var req initCajerosRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Mandá 'cajeros' como array con al menos 1 elemento."})
		return
	}

	err := h.catalog.Replace(r.Context(), req.Cajeros)
	if err != nil {
		if errors.Is(err, catalog.ErrEmpty) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Mandá 'cajeros' como array con al menos 1 elemento."})
			return
		}
		h.logger.Error("init cajeros failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Error interno"})
		return
	}

	if h.notifier != nil {
		if err := h.notifier.CatalogReplaced(r.Context(), len(req.Cajeros)); err != nil {
			h.logger.Warn("catalog notification failed", zap.Error(err))
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "count": len(req.Cajeros)})
}

func (h *Handler) listSpins(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "audit store not configured"})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.audit.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.Error("list spins failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Error interno"})
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// newUsuario issues a fresh visitor ID for frontends that have not generated
// one client-side yet.
func (h *Handler) newUsuario(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"usuarioId": uuid.NewString()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
