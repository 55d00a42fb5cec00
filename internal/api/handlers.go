package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/maltedev/pet-products-scraper/internal/jobs"
	"github.com/maltedev/pet-products-scraper/internal/models"
	"github.com/maltedev/pet-products-scraper/internal/shops"
)

const (
	pendingWarnThreshold     = 1000
	deadLetterErrorThreshold = 100
)

// StatusStore is the read side of the URL status tracker.
type StatusStore interface {
	Ping(ctx context.Context) error
	CountByStatus(ctx context.Context, shop string) ([]models.StatusCount, error)
}

type OutboxCounter interface {
	Counts(ctx context.Context) (pending, deadLetter int64, err error)
}

// Engine exposes the registered shops and their run state.
type Engine interface {
	Registry() *shops.Registry
	State(shop string) models.RunState
}

type Handlers struct {
	store  StatusStore
	outbox OutboxCounter
	engine Engine
	jobs   *jobs.Manager
	logger *slog.Logger
}

func NewHandlers(store StatusStore, outbox OutboxCounter, engine Engine, jobs *jobs.Manager, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		store:  store,
		outbox: outbox,
		engine: engine,
		jobs:   jobs,
		logger: logger,
	}
}

type ShopInfo struct {
	Name       string          `json:"name"`
	BaseURL    string          `json:"base_url"`
	Categories int             `json:"categories"`
	Enabled    bool            `json:"enabled"`
	State      models.RunState `json:"state"`
}

type ShopStatusResponse struct {
	Shop   string                        `json:"shop"`
	State  models.RunState               `json:"state"`
	Counts map[models.ScrapeStatus]int64 `json:"counts"`
	Total  int64                         `json:"total"`
}

// Health reports database reachability and the outbox backlog.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{"status": "ok"}
	status := http.StatusOK

	if err := h.store.Ping(r.Context()); err != nil {
		h.logger.Error("database ping failed", "error", err)
		health["status"] = "error"
		health["message"] = "database unreachable"
		h.respondJSON(w, http.StatusServiceUnavailable, health)
		return
	}

	if h.outbox != nil {
		pending, deadLetter, err := h.outbox.Counts(r.Context())
		if err != nil {
			h.logger.Error("failed to count outbox events", "error", err)
		}
		health["outbox"] = map[string]interface{}{
			"pending":     pending,
			"dead_letter": deadLetter,
		}
		if pending > pendingWarnThreshold {
			health["status"] = "warning"
			health["message"] = "High number of pending outbox events"
		}
		if deadLetter > deadLetterErrorThreshold {
			health["status"] = "error"
			health["message"] = "High number of dead letter events"
			status = http.StatusServiceUnavailable
		}
	}

	h.respondJSON(w, status, health)
}

func (h *Handlers) ListShops(w http.ResponseWriter, r *http.Request) {
	all := h.engine.Registry().All()
	out := make([]ShopInfo, 0, len(all))
	for _, c := range all {
		out = append(out, ShopInfo{
			Name:       c.Name(),
			BaseURL:    c.Shop.BaseURL,
			Categories: len(c.Shop.Categories),
			Enabled:    !c.Disabled,
			State:      h.engine.State(c.Name()),
		})
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"shops": out,
		"total": len(out),
	})
}

func (h *Handlers) ShopStatus(w http.ResponseWriter, r *http.Request) {
	shop, ok := h.shop(w, r)
	if !ok {
		return
	}

	counts, err := h.store.CountByStatus(r.Context(), shop)
	if err != nil {
		h.logger.Error("failed to count urls", "error", err, "shop", shop)
		h.respondError(w, http.StatusInternalServerError, "failed to count urls")
		return
	}

	resp := ShopStatusResponse{
		Shop:   shop,
		State:  h.engine.State(shop),
		Counts: make(map[models.ScrapeStatus]int64, len(counts)),
	}
	for _, c := range counts {
		resp.Counts[c.Status] += c.Count
		resp.Total += c.Count
	}
	h.respondJSON(w, http.StatusOK, resp)
}

func (h *Handlers) RefreshLinks(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, jobs.KindRefreshLinks)
}

func (h *Handlers) Run(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, jobs.KindRun)
}

func (h *Handlers) submit(w http.ResponseWriter, r *http.Request, kind jobs.Kind) {
	shop, ok := h.shop(w, r)
	if !ok {
		return
	}

	job, err := h.jobs.Submit(kind, shop)
	if errors.Is(err, jobs.ErrQueueFull) {
		h.respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("failed to submit job", "error", err, "shop", shop, "kind", kind)
		h.respondError(w, http.StatusInternalServerError, "failed to submit job")
		return
	}
	h.respondJSON(w, http.StatusAccepted, job)
}

func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.jobs.Get(chi.URLParam(r, "jobID"))
	if errors.Is(err, jobs.ErrJobNotFound) {
		h.respondError(w, http.StatusNotFound, "job not found")
		return
	}
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "failed to get job")
		return
	}
	h.respondJSON(w, http.StatusOK, job)
}

func (h *Handlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	list := h.jobs.List()
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  list,
		"total": len(list),
	})
}

// shop resolves the {shop} path parameter against the registry and writes
// a 404 when it is unknown.
func (h *Handlers) shop(w http.ResponseWriter, r *http.Request) (string, bool) {
	name := chi.URLParam(r, "shop")
	if _, err := h.engine.Registry().Get(name); err != nil {
		h.respondError(w, http.StatusNotFound, err.Error())
		return "", false
	}
	return name, true
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
